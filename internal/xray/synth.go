package xray

import (
	"fmt"

	"axiom-vpn/internal/config"
	"axiom-vpn/internal/domain"
)

// Endpoint is the remote server the proxy outbound dials.
type Endpoint struct {
	Address string
	Port    int
}

// Synthesizer derives engine documents from connection profiles. It performs
// no I/O.
type Synthesizer struct {
	endpoint           Endpoint
	useProfileEndpoint bool
}

func NewSynthesizer(cfg *config.Config) *Synthesizer {
	return &Synthesizer{
		endpoint: Endpoint{
			Address: cfg.Engine.Endpoint.Address,
			Port:    cfg.Engine.Endpoint.Port,
		},
		useProfileEndpoint: cfg.Engine.UseProfileEndpoint,
	}
}

// Synthesize builds the engine document for profile. The caller must only
// pass usable profiles.
func (s *Synthesizer) Synthesize(profile domain.ConnectionProfile) (*Config, error) {
	if !profile.Usable() {
		return nil, fmt.Errorf("cannot synthesize engine config: %w", domain.ErrConfigurationMissing)
	}

	endpoint := s.Endpoint(profile)

	return &Config{
		Log: LogConfig{
			LogLevel: LogLevel,
		},
		Inbounds: []InboundConfig{
			{
				Tag:      InboundTag,
				Port:     InboundPort,
				Protocol: "dokodemo-door",
				Settings: DokodemoInboundSettings{
					Network:        "tcp,udp",
					FollowRedirect: true,
				},
				Sniffing: SniffingConfig{
					Enabled:      true,
					DestOverride: []string{"http", "tls"},
				},
			},
		},
		Outbounds: []OutboundConfig{
			generateProxyOutbound(profile, endpoint),
			{
				Tag:      DirectTag,
				Protocol: "freedom",
			},
		},
	}, nil
}

// Endpoint returns the remote the next synthesized document dials for
// profile.
func (s *Synthesizer) Endpoint(profile domain.ConnectionProfile) Endpoint {
	if s.useProfileEndpoint && profile.Address != "" {
		return Endpoint{Address: profile.Address, Port: profile.Port}
	}
	return s.endpoint
}

func generateProxyOutbound(p domain.ConnectionProfile, endpoint Endpoint) OutboundConfig {
	return OutboundConfig{
		Tag:      ProxyTag,
		Protocol: "vless",
		Settings: &VLESSSettings{
			Vnext: []VLESSServer{
				{
					Address: endpoint.Address,
					Port:    endpoint.Port,
					Users: []VLESSUser{
						{
							ID:   p.Identity,
							Flow: p.Flow(),
							// VLESS has no inner encryption layer; Reality
							// provides the outer one.
							Encryption: "none",
						},
					},
				},
			},
		},
		StreamSettings: &StreamSettings{
			Network:  "tcp",
			Security: "reality",
			RealitySettings: RealitySettings{
				Show:        false,
				Fingerprint: Fingerprint,
				ServerName:  p.CamouflageDomain,
				PublicKey:   p.PublicKey,
				ShortID:     p.ShortID,
			},
		},
	}
}
