package xray

import "encoding/json"

// Stable tags referenced by routing rules outside this module.
const (
	InboundTag = "tun-in"
	ProxyTag   = "proxy"
	DirectTag  = "direct"
)

const (
	// InboundPort is the transparent redirect listener fed by the capture
	// interface.
	InboundPort = 10808

	Fingerprint = "chrome"

	// LogLevel is fixed so engine output stays at warnings and above.
	LogLevel = "warning"
)

// Config structures for XRay
type (
	Config struct {
		Log       LogConfig        `json:"log"`
		Inbounds  []InboundConfig  `json:"inbounds"`
		Outbounds []OutboundConfig `json:"outbounds"`
	}

	LogConfig struct {
		LogLevel string `json:"loglevel"`
	}

	InboundConfig struct {
		Tag      string                  `json:"tag"`
		Port     int                     `json:"port"`
		Protocol string                  `json:"protocol"`
		Settings DokodemoInboundSettings `json:"settings"`
		Sniffing SniffingConfig          `json:"sniffing"`
	}

	DokodemoInboundSettings struct {
		Network        string `json:"network"`
		FollowRedirect bool   `json:"followRedirect"`
	}

	SniffingConfig struct {
		Enabled      bool     `json:"enabled"`
		DestOverride []string `json:"destOverride"`
	}

	OutboundConfig struct {
		Tag            string          `json:"tag"`
		Protocol       string          `json:"protocol"`
		Settings       *VLESSSettings  `json:"settings,omitempty"`
		StreamSettings *StreamSettings `json:"streamSettings,omitempty"`
	}

	VLESSSettings struct {
		Vnext []VLESSServer `json:"vnext"`
	}

	VLESSServer struct {
		Address string      `json:"address"`
		Port    int         `json:"port"`
		Users   []VLESSUser `json:"users"`
	}

	VLESSUser struct {
		ID         string `json:"id"`
		Flow       string `json:"flow"`
		Encryption string `json:"encryption"`
	}

	StreamSettings struct {
		Network         string          `json:"network"`
		Security        string          `json:"security"`
		RealitySettings RealitySettings `json:"realitySettings"`
	}

	RealitySettings struct {
		Show        bool   `json:"show"`
		Fingerprint string `json:"fingerprint"`
		ServerName  string `json:"serverName"`
		PublicKey   string `json:"publicKey"`
		ShortID     string `json:"shortId"`
	}
)

// Marshal renders the document the way the engine reads it from disk.
func (c *Config) Marshal() ([]byte, error) {
	return json.MarshalIndent(c, "", "    ")
}
