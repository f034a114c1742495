//go:build !wasm

package serial

import (
	"bufio"
	"context"
	"crypto/tls"
	"encoding/base64"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/gorilla/websocket"
	"golang.org/x/term"
)

// ErrConnectionClosed is returned when reading from a closed WebSocket connection
var ErrConnectionClosed = errors.New("websocket connection closed")

// PasswordEnv names the environment variable read by GetPassword
const PasswordEnv = "DIFFBOT_PASSWORD"

// WebSocketConfig describes a serial-over-WebSocket bridge
type WebSocketConfig struct {
	URL           string
	Username      string
	Password      string
	SkipSSLVerify bool
}

// WebSocketPort carries the byte stream in binary WebSocket messages. A
// message may hold any number of bytes; frame boundaries are recovered from
// the delimiter, not from message boundaries.
type WebSocketPort struct {
	conn *websocket.Conn

	readMutex sync.Mutex
	buf       []byte
	bufOffset int
	closed    bool

	writeMutex sync.Mutex
}

// OpenWebSocket dials a bridge with optional HTTP Basic auth
func OpenWebSocket(cfg WebSocketConfig) (Port, error) {
	u, err := url.Parse(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("invalid URL: %w", err)
	}

	switch u.Scheme {
	case "ws", "wss":
	default:
		return nil, fmt.Errorf("unsupported URL scheme: %s (use ws:// or wss://)", u.Scheme)
	}

	dialer := websocket.Dialer{
		HandshakeTimeout: 10 * time.Second,
	}
	if u.Scheme == "wss" {
		dialer.TLSClientConfig = &tls.Config{
			InsecureSkipVerify: cfg.SkipSSLVerify,
		}
	}

	headers := http.Header{}
	if cfg.Username != "" && cfg.Password != "" {
		credentials := base64.StdEncoding.EncodeToString([]byte(cfg.Username + ":" + cfg.Password))
		headers.Set("Authorization", "Basic "+credentials)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	conn, resp, err := dialer.DialContext(ctx, cfg.URL, headers)
	if err != nil {
		if resp != nil {
			return nil, fmt.Errorf("websocket connection failed (HTTP %d): %w", resp.StatusCode, err)
		}
		return nil, fmt.Errorf("websocket connection failed: %w", err)
	}

	return NewWebSocketPort(conn), nil
}

// NewWebSocketPort wraps an established connection, either end
func NewWebSocketPort(conn *websocket.Conn) *WebSocketPort {
	return &WebSocketPort{conn: conn}
}

// Read returns buffered message bytes, reading the next binary message when
// the buffer is empty
func (w *WebSocketPort) Read(p []byte) (int, error) {
	w.readMutex.Lock()
	defer w.readMutex.Unlock()

	if w.closed {
		return 0, ErrConnectionClosed
	}

	if w.bufOffset < len(w.buf) {
		n := copy(p, w.buf[w.bufOffset:])
		w.bufOffset += n
		return n, nil
	}

	for {
		messageType, data, err := w.conn.ReadMessage()
		if err != nil {
			w.closed = true
			return 0, err
		}
		if messageType != websocket.BinaryMessage {
			continue
		}

		w.buf = data
		n := copy(p, w.buf)
		w.bufOffset = n
		return n, nil
	}
}

// Write sends p as one binary message
func (w *WebSocketPort) Write(p []byte) (int, error) {
	w.writeMutex.Lock()
	defer w.writeMutex.Unlock()

	if err := w.conn.WriteMessage(websocket.BinaryMessage, p); err != nil {
		return 0, err
	}
	return len(p), nil
}

// Close closes the connection
func (w *WebSocketPort) Close() error {
	return w.conn.Close()
}

// Flush drops any partially consumed message
func (w *WebSocketPort) Flush() error {
	w.readMutex.Lock()
	defer w.readMutex.Unlock()
	w.buf = nil
	w.bufOffset = 0
	return nil
}

// GetPassword reads the bridge password from PasswordEnv, or prompts for
// it on the terminal without echo
func GetPassword() (string, error) {
	if pw := os.Getenv(PasswordEnv); pw != "" {
		return pw, nil
	}

	fmt.Fprint(os.Stderr, "Password: ")

	passwordBytes, err := term.ReadPassword(int(syscall.Stdin))
	fmt.Fprintln(os.Stderr)
	if err != nil {
		// Not a terminal: read a plain line instead
		reader := bufio.NewReader(os.Stdin)
		password, err := reader.ReadString('\n')
		if err != nil {
			return "", fmt.Errorf("failed to read password: %w", err)
		}
		return strings.TrimSpace(password), nil
	}
	return string(passwordBytes), nil
}
