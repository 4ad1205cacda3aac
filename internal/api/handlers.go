package api

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"axiom-vpn/internal/domain"

	"go.uber.org/zap"
)

const maxBodyBytes = 64 << 10

type linkRequest struct {
	Link string `json:"link"`
}

type linkResponse struct {
	Profile  domain.ConnectionProfile `json:"profile"`
	Strategy string                   `json:"strategy"`
	Name     string                   `json:"name,omitempty"`
}

// startRequest mirrors the fields the user can edit before connecting.
// Non-empty fields replace the stored profile's values.
type startRequest struct {
	Identity string `json:"identity"`
	SNI      string `json:"sni"`
	PBK      string `json:"pbk"`
	SID      string `json:"sid"`
}

type statusResponse struct {
	Status string `json:"status"`
	State  string `json:"state"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func (s *Server) handleImportLink(w http.ResponseWriter, r *http.Request) {
	var req linkRequest
	if !s.decode(w, r, &req) {
		return
	}

	result, err := s.importer.Import(req.Link)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	writeJSON(w, http.StatusOK, linkResponse{
		Profile:  result.Profile,
		Strategy: string(result.Strategy),
		Name:     result.Name,
	})
}

func (s *Server) handleGetProfile(w http.ResponseWriter, r *http.Request) {
	profile, ok := s.store.Current()
	if !ok {
		writeError(w, http.StatusNotFound, domain.ErrConfigurationMissing)
		return
	}
	writeJSON(w, http.StatusOK, profile)
}

func (s *Server) handlePutProfile(w http.ResponseWriter, r *http.Request) {
	var profile domain.ConnectionProfile
	if !s.decode(w, r, &profile) {
		return
	}
	if profile.Port == 0 {
		profile.Port = domain.DefaultPort
	}

	if err := s.store.Save(profile); err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, domain.ErrMissingCredentials) {
			status = http.StatusBadRequest
		}
		writeError(w, status, err)
		return
	}

	s.events.Append("Config Saved: "+profile.Address, domain.SeverityInfo)
	writeJSON(w, http.StatusOK, profile)
}

func (s *Server) handleStart(w http.ResponseWriter, r *http.Request) {
	var req startRequest
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	profile, _ := s.store.Current()
	overlay(&profile.Identity, req.Identity)
	overlay(&profile.CamouflageDomain, req.SNI)
	overlay(&profile.PublicKey, req.PBK)
	overlay(&profile.ShortID, req.SID)

	if err := s.tunnel.Start(r.Context(), profile); err != nil {
		s.logger.Warn("tunnel start rejected", zap.Error(err))
		writeError(w, startStatus(err), err)
		return
	}

	s.writeStatus(w)
}

func (s *Server) handleStop(w http.ResponseWriter, r *http.Request) {
	if err := s.tunnel.Stop(r.Context()); err != nil {
		s.logger.Warn("tunnel stop interrupted", zap.Error(err))
	}
	s.writeStatus(w)
}

func (s *Server) handleToggle(w http.ResponseWriter, r *http.Request) {
	if err := s.tunnel.Toggle(r.Context()); err != nil {
		writeError(w, startStatus(err), err)
		return
	}
	s.writeStatus(w)
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	s.writeStatus(w)
}

func (s *Server) handleLogs(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.logs.Snapshot())
}

func (s *Server) writeStatus(w http.ResponseWriter) {
	writeJSON(w, http.StatusOK, statusResponse{
		Status: s.tunnel.Status(),
		State:  s.tunnel.State().String(),
	})
}

func (s *Server) decode(w http.ResponseWriter, r *http.Request, v any) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return false
	}
	return true
}

func overlay(dst *string, value string) {
	if value != "" {
		*dst = value
	}
}

func startStatus(err error) int {
	switch {
	case errors.Is(err, domain.ErrTunnelBusy):
		return http.StatusConflict
	case errors.Is(err, domain.ErrConfigurationMissing):
		return http.StatusBadRequest
	default:
		return http.StatusBadGateway
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, errorResponse{Error: err.Error()})
}
