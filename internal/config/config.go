package config

import (
	"fmt"
	"os"
)

// Default configuration values.
const (
	DefaultListenAddr = ":5000"
	DefaultServerURL  = "ws://localhost:5000/ws"
	DefaultSTUN       = "stun:stun.l.google.com:19302"
	DefaultTURNRealm  = "milan"
)

// Server holds the coordinator's configuration.
type Server struct {
	// ListenAddr is the HTTP listen address for the websocket endpoint.
	ListenAddr string

	// AllowedOrigin is the browser client address permitted to connect
	// cross-origin. Empty accepts any origin.
	AllowedOrigin string

	// Embedded TURN relay. Disabled unless TURNListen is set.
	TURNListen   string
	TURNPublicIP string
	TURNRealm    string
	TURNUser     string
	TURNPass     string
}

// ServerOptions are CLI flag overrides for LoadServer.
type ServerOptions struct {
	ListenAddr    string
	AllowedOrigin string
	TURNListen    string
	TURNPublicIP  string
	TURNRealm     string
	TURNUser      string
	TURNPass      string
}

// LoadServer reads server configuration with priority:
// CLI flags > environment variables > defaults.
func LoadServer(opts ServerOptions) *Server {
	return &Server{
		ListenAddr:    firstOf(opts.ListenAddr, os.Getenv("LISTEN_ADDR"), DefaultListenAddr),
		AllowedOrigin: firstOf(opts.AllowedOrigin, os.Getenv("CLIENT_URL")),
		TURNListen:    firstOf(opts.TURNListen, os.Getenv("TURN_LISTEN")),
		TURNPublicIP:  firstOf(opts.TURNPublicIP, os.Getenv("TURN_PUBLIC_IP")),
		TURNRealm:     firstOf(opts.TURNRealm, os.Getenv("TURN_REALM"), DefaultTURNRealm),
		TURNUser:      firstOf(opts.TURNUser, os.Getenv("TURN_USERNAME")),
		TURNPass:      firstOf(opts.TURNPass, os.Getenv("TURN_PASSWORD")),
	}
}

// Client holds the CLI peer's configuration.
type Client struct {
	// ServerURL is the coordinator's websocket endpoint.
	ServerURL string

	// ICE servers for the peer link.
	STUNServer string
	TURNServer string
	TURNUser   string
	TURNPass   string
}

// ClientOptions are CLI flag overrides for LoadClient.
type ClientOptions struct {
	ServerURL  string
	STUNServer string
	TURNServer string
	TURNUser   string
	TURNPass   string
}

// LoadClient reads client configuration with priority:
// CLI flags > environment variables > defaults.
func LoadClient(opts ClientOptions) *Client {
	return &Client{
		ServerURL:  firstOf(opts.ServerURL, os.Getenv("MILAN_SERVER_URL"), DefaultServerURL),
		STUNServer: firstOf(opts.STUNServer, os.Getenv("STUN_SERVER"), DefaultSTUN),
		TURNServer: firstOf(opts.TURNServer, os.Getenv("TURN_SERVER")),
		TURNUser:   firstOf(opts.TURNUser, os.Getenv("TURN_USERNAME")),
		TURNPass:   firstOf(opts.TURNPass, os.Getenv("TURN_PASSWORD")),
	}
}

// GetSTUNServers returns STUN server URLs for the peer link.
func (c *Client) GetSTUNServers() []string {
	return []string{c.STUNServer}
}

// GetTURNServers returns TURN server URLs if configured.
func (c *Client) GetTURNServers() []string {
	if c.TURNServer == "" {
		return nil
	}
	return []string{
		fmt.Sprintf("%s?transport=udp", c.TURNServer),
		fmt.Sprintf("%s?transport=tcp", c.TURNServer),
	}
}

// GetTURNCredentials returns the TURN username and password.
func (c *Client) GetTURNCredentials() (string, string) {
	return c.TURNUser, c.TURNPass
}

func firstOf(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
