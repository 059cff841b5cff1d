package observer

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gorilla/websocket"
	"gonum.org/v1/gonum/spatial/r2"

	"github.com/Dasch0/hivemind-mirror/game"
	"github.com/Dasch0/hivemind-mirror/inspector"
)

// Server serves the bootstrap document and the frame stream.
type Server struct {
	hub         *Hub
	info        Bootstrap
	submit      func(...game.Command)
	allowRemote bool

	upgrader websocket.Upgrader
}

// Options configures a Server.
type Options struct {
	// Submit receives commands sent by clients. Nil makes the stream read-only.
	Submit func(...game.Command)
	// AllowRemote accepts non-loopback clients.
	AllowRemote bool
}

// NewServer creates a server streaming frames from hub.
func NewServer(hub *Hub, info Bootstrap, opts Options) *Server {
	info.ProtocolVersion = Version
	return &Server{
		hub:         hub,
		info:        info,
		submit:      opts.Submit,
		allowRemote: opts.AllowRemote,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4 * 1024,
			WriteBufferSize: 64 * 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
	}
}

// Handler returns the routes: GET /bootstrap, GET /inspect and GET /ws.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/bootstrap", s.BootstrapHandler())
	mux.HandleFunc("/inspect", s.InspectHandler())
	mux.HandleFunc("/ws", s.WSHandler())
	return mux
}

func (s *Server) allowed(r *http.Request) bool {
	return s.allowRemote || isLoopbackRemote(r.RemoteAddr)
}

// BootstrapHandler serves the world description as JSON.
func (s *Server) BootstrapHandler() http.HandlerFunc {
	return func(rw http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			rw.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		if !s.allowed(r) {
			http.Error(rw, "forbidden", http.StatusForbidden)
			return
		}
		rw.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(rw).Encode(s.info)
	}
}

// inspectTimeout bounds the wait for the simulation loop to answer.
const inspectTimeout = 2 * time.Second

// InspectHandler answers GET /inspect?x=..&y=.. with the report for that
// world position. The request is queued as a command, so a stopped
// simulation loop yields 503.
func (s *Server) InspectHandler() http.HandlerFunc {
	return func(rw http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			rw.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		if !s.allowed(r) {
			http.Error(rw, "forbidden", http.StatusForbidden)
			return
		}
		if s.submit == nil {
			http.Error(rw, "inspection disabled", http.StatusNotFound)
			return
		}
		x, errX := strconv.ParseFloat(r.URL.Query().Get("x"), 64)
		y, errY := strconv.ParseFloat(r.URL.Query().Get("y"), 64)
		if errX != nil || errY != nil {
			http.Error(rw, "x and y must be numbers", http.StatusBadRequest)
			return
		}

		reply := make(chan inspector.Report, 1)
		s.submit(game.Inspect{Pos: r2.Vec{X: x, Y: y}, Reply: reply})

		ctx, cancel := context.WithTimeout(r.Context(), inspectTimeout)
		defer cancel()
		select {
		case report := <-reply:
			rw.Header().Set("Content-Type", "application/json")
			_ = json.NewEncoder(rw).Encode(report)
		case <-ctx.Done():
			http.Error(rw, "simulation did not answer", http.StatusServiceUnavailable)
		}
	}
}

// WSHandler upgrades the connection and streams frames until either side closes.
func (s *Server) WSHandler() http.HandlerFunc {
	return func(rw http.ResponseWriter, r *http.Request) {
		if !s.allowed(r) {
			http.Error(rw, "forbidden", http.StatusForbidden)
			return
		}
		conn, err := s.upgrader.Upgrade(rw, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()

		id, frames := s.hub.join()
		defer s.hub.leave(id)
		slog.Debug("observer connected", "client", id, "remote", r.RemoteAddr)

		ctx, cancel := context.WithCancel(r.Context())
		defer cancel()

		// Writer goroutine.
		writeErr := make(chan error, 1)
		go func() {
			for {
				select {
				case <-ctx.Done():
					writeErr <- ctx.Err()
					return
				case b, ok := <-frames:
					if !ok {
						writeErr <- nil
						return
					}
					_ = conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
					if err := conn.WriteMessage(websocket.TextMessage, b); err != nil {
						writeErr <- err
						return
					}
				}
			}
		}()

		// Reader loop: client commands.
		for {
			_, msg, err := conn.ReadMessage()
			if err != nil {
				break
			}
			cmd, err := ParseCommand(msg)
			if err != nil {
				slog.Debug("observer message rejected", "client", id, "error", err)
				continue
			}
			if s.submit != nil {
				s.submit(cmd)
			}
		}

		cancel()
		_ = conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, "bye"), time.Now().Add(time.Second))

		select {
		case <-writeErr:
		case <-time.After(500 * time.Millisecond):
		}
		slog.Debug("observer disconnected", "client", id)
	}
}

// ListenAndServe serves h on addr until ctx is cancelled.
func ListenAndServe(ctx context.Context, addr string, h http.Handler) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           h,
		ReadHeaderTimeout: 5 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() { errCh <- srv.ListenAndServe() }()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}

func isLoopbackRemote(remoteAddr string) bool {
	host := remoteAddr
	if h, _, err := net.SplitHostPort(remoteAddr); err == nil {
		host = h
	}
	host = strings.TrimPrefix(host, "[")
	host = strings.TrimSuffix(host, "]")
	ip := net.ParseIP(host)
	return ip != nil && ip.IsLoopback()
}
