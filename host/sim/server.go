package sim

import (
	"crypto/subtle"
	"net/http"

	"github.com/golang/glog"
	"github.com/gorilla/websocket"

	"diffbot/config"
	"diffbot/host/serial"
)

// Server bridges WebSocket clients to simulated controllers, one fresh
// controller per connection
type Server struct {
	Config *config.Config

	// Optional HTTP Basic credentials
	Username string
	Password string

	upgrader websocket.Upgrader
}

// NewServer creates a bridge serving cfg
func NewServer(cfg *config.Config) *Server {
	return &Server{
		Config: cfg,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(*http.Request) bool { return true },
		},
	}
}

// ServeHTTP implements http.Handler
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if !s.authorized(r) {
		w.Header().Set("WWW-Authenticate", `Basic realm="diffbot"`)
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		glog.Warningf("websocket upgrade from %s: %v", r.RemoteAddr, err)
		return
	}
	port := serial.NewWebSocketPort(conn)
	defer port.Close()

	dev, err := New(s.Config, port)
	if err != nil {
		glog.Errorf("simulated controller: %v", err)
		return
	}
	glog.Infof("client %s connected", r.RemoteAddr)
	if err := dev.Run(r.Context()); err != nil && r.Context().Err() == nil {
		glog.V(1).Infof("client %s: %v", r.RemoteAddr, err)
	}
	glog.Infof("client %s disconnected", r.RemoteAddr)
}

func (s *Server) authorized(r *http.Request) bool {
	if s.Username == "" && s.Password == "" {
		return true
	}
	user, pass, ok := r.BasicAuth()
	if !ok {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(user), []byte(s.Username)) == 1 &&
		subtle.ConstantTimeCompare([]byte(pass), []byte(s.Password)) == 1
}
