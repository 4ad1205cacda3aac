package domain

import "fmt"

const (
	// DefaultPort is used when a link carries no port or an unparseable one.
	DefaultPort = 443

	// DefaultFlow is the anti-censorship flow used when a profile has none.
	DefaultFlow = "xtls-rprx-vision"
)

// ConnectionProfile is the normalized result of parsing a VLESS link.
type ConnectionProfile struct {
	Identity         string `json:"uuid"`
	Address          string `json:"address"`
	Port             int    `json:"port"`
	CamouflageDomain string `json:"sni"`
	PublicKey        string `json:"pbk"`
	ShortID          string `json:"sid"`
	FlowControl      string `json:"flow"`
}

// Usable reports whether the profile carries both credentials needed to
// authenticate against the remote endpoint.
func (p ConnectionProfile) Usable() bool {
	return p.Identity != "" && p.PublicKey != ""
}

// Startable reports whether the tunnel can be brought up with the profile:
// the Reality handshake also needs the camouflage domain.
func (p ConnectionProfile) Startable() bool {
	return p.Usable() && p.CamouflageDomain != ""
}

// Target returns the informational host:port of the profile.
func (p ConnectionProfile) Target() string {
	return fmt.Sprintf("%s:%d", p.Address, p.Port)
}

// Flow returns the flow to announce to the server.
func (p ConnectionProfile) Flow() string {
	if p.FlowControl != "" {
		return p.FlowControl
	}
	return DefaultFlow
}
