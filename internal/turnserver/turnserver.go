// Package turnserver runs an optional embedded TURN relay so calls between
// peers behind symmetric NATs work without a separately operated relay.
package turnserver

import (
	"errors"
	"log/slog"
	"net"

	"github.com/pion/turn/v4"

	"github.com/jindalujjwal0720/milan/internal/config"
)

var errMissingCredentials = errors.New("turnserver: username and password are required")

// Server wraps a pion TURN server with static long-term credentials.
type Server struct {
	inner *turn.Server
	conn  net.PacketConn
}

// Start listens on cfg.TURNListen and starts relaying. The relay address
// advertised to peers is cfg.TURNPublicIP, which must be the address
// clients can actually reach.
func Start(cfg *config.Server) (*Server, error) {
	if cfg.TURNUser == "" || cfg.TURNPass == "" {
		return nil, errMissingCredentials
	}

	conn, err := net.ListenPacket("udp4", cfg.TURNListen)
	if err != nil {
		return nil, err
	}

	key := turn.GenerateAuthKey(cfg.TURNUser, cfg.TURNRealm, cfg.TURNPass)
	inner, err := turn.NewServer(turn.ServerConfig{
		Realm: cfg.TURNRealm,
		AuthHandler: func(username, realm string, srcAddr net.Addr) ([]byte, bool) {
			if username != cfg.TURNUser {
				return nil, false
			}
			return key, true
		},
		PacketConnConfigs: []turn.PacketConnConfig{
			{
				PacketConn: conn,
				RelayAddressGenerator: &turn.RelayAddressGeneratorStatic{
					RelayAddress: net.ParseIP(cfg.TURNPublicIP),
					Address:      "0.0.0.0",
				},
			},
		},
	})
	if err != nil {
		conn.Close()
		return nil, err
	}

	slog.Info("TURN relay listening", "addr", cfg.TURNListen, "realm", cfg.TURNRealm, "public_ip", cfg.TURNPublicIP)
	return &Server{inner: inner, conn: conn}, nil
}

// Close stops relaying and releases the listener.
func (s *Server) Close() error {
	return s.inner.Close()
}
