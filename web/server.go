package web

import (
	"context"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"nhooyr.io/websocket"
	"nhooyr.io/websocket/wsjson"

	"github.com/switchboard-dev/switchboard/core"
	"github.com/switchboard-dev/switchboard/logging"
	"github.com/switchboard-dev/switchboard/session"
)

//go:embed client.html
var clientHTML []byte

// shutdownGrace bounds the drain of in-flight connections on Stop.
const shutdownGrace = 5 * time.Second

// Server exposes the chat engine over WebSocket. One connection is one
// session; its turns run strictly sequentially, and a consumer that
// stalls reading frames backpressures the turn through the sink.
type Server struct {
	manager    *session.Manager
	logger     *logging.Scoped
	sinkBuffer int

	httpSrv   *http.Server
	boundAddr string
}

// Options configure NewServer.
type Options struct {
	// Logger receives server logs. Web mode logs to stderr by convention;
	// the caller picks the destination.
	Logger logging.Logger
	// SinkBuffer is the per-turn event queue capacity.
	SinkBuffer int
}

// NewServer wires a server over the session manager.
func NewServer(manager *session.Manager, optFns ...func(o *Options)) *Server {
	opts := Options{
		Logger:     logging.NoOpLogger{},
		SinkBuffer: core.DefaultSinkBuffer,
	}
	for _, fn := range optFns {
		fn(&opts)
	}
	return &Server{
		manager:    manager,
		logger:     logging.NewScoped(opts.Logger).WithComponent("web"),
		sinkBuffer: opts.SinkBuffer,
	}
}

// Handler returns the HTTP handler: the embedded chat client at / and the
// WebSocket endpoint at /ws. Exposed so tests and embedding servers can
// mount it without binding a port.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/", s.handleIndex)
	mux.HandleFunc("/ws", s.handleWS)
	return mux
}

// Start listens on addr and serves until ctx is cancelled.
func (s *Server) Start(ctx context.Context, addr string) error {
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("web listen on %s: %w", addr, err)
	}
	s.boundAddr = listener.Addr().String()
	s.httpSrv = &http.Server{Handler: s.Handler()}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
		defer cancel()
		_ = s.httpSrv.Shutdown(shutdownCtx)
	}()

	s.logger.Info("web server started", "addr", s.boundAddr)
	if err := s.httpSrv.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("web serve: %w", err)
	}
	return nil
}

// BoundAddr returns the listen address. Only valid after Start.
func (s *Server) BoundAddr() string { return s.boundAddr }

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = w.Write(clientHTML)
}

func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	// Default origin policy: same-origin only, which covers the embedded
	// client page the server itself serves.
	conn, err := websocket.Accept(w, r, nil)
	if err != nil {
		s.logger.Warn("websocket accept failed", "error", err)
		return
	}
	defer conn.Close(websocket.StatusInternalError, "closing")

	s.serveConn(r.Context(), conn)
	conn.Close(websocket.StatusNormalClosure, "")
}

// queryFrame is the only client-to-server message shape.
type queryFrame struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

// serveConn reads query frames and runs one turn per frame, in order.
func (s *Server) serveConn(ctx context.Context, conn *websocket.Conn) {
	sessionID := uuid.NewString()
	logger := s.logger.WithSession(sessionID)
	logger.Info("client connected")
	defer logger.Info("client disconnected")

	for {
		_, data, err := conn.Read(ctx)
		if err != nil {
			return
		}

		var frame queryFrame
		if err := json.Unmarshal(data, &frame); err != nil || frame.Type != "query" || strings.TrimSpace(frame.Text) == "" {
			// A malformed frame is the client's bug, not a reason to drop
			// the conversation.
			s.writeFrame(ctx, conn, errorFrame{
				Type:    "error",
				Message: `expected {"type":"query","text":"..."}`,
			})
			continue
		}

		s.runTurn(ctx, conn, logger, sessionID, frame.Text)
	}
}

// runTurn executes one turn and forwards its events as frames. The read
// loop does not resume until the turn finishes, which keeps turns
// strictly sequential per connection.
func (s *Server) runTurn(ctx context.Context, conn *websocket.Conn, logger *logging.Scoped, sessionID, query string) {
	sink := core.NewSink(s.sinkBuffer)
	done := make(chan error, 1)
	go func() {
		_, err := s.manager.RunTurn(ctx, sessionID, query, sink)
		done <- err
	}()

	for ev := range sink.Events() {
		if err := wsjson.Write(ctx, conn, frameFor(ev)); err != nil {
			logger.Warn("client write failed mid-turn, draining", "error", err)
			for range sink.Events() {
			}
			break
		}
	}

	if err := <-done; err != nil {
		logger.Error("turn failed outside the engine", "error", err)
		s.writeFrame(ctx, conn, errorFrame{Type: "error", Message: "An error occurred while processing your request."})
	}
}

func (s *Server) writeFrame(ctx context.Context, conn *websocket.Conn, frame any) {
	if err := wsjson.Write(ctx, conn, frame); err != nil {
		s.logger.Warn("frame write failed", "error", err)
	}
}

// Server-to-client frames, one shape per progress event type.
type progressFrame struct {
	Type   string `json:"type"`
	Source string `json:"source"`
	Text   string `json:"text"`
}

type toolStartFrame struct {
	Type        string `json:"type"`
	Agent       string `json:"agent"`
	Tool        string `json:"tool"`
	ArgsPreview string `json:"args_preview,omitempty"`
}

type toolEndFrame struct {
	Type  string `json:"type"`
	Agent string `json:"agent"`
	Tool  string `json:"tool"`
	OK    bool   `json:"ok"`
}

type tokenFrame struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

type finalFrame struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

type errorFrame struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

// frameFor maps a progress event to its wire frame.
func frameFor(ev core.Event) any {
	switch e := ev.(type) {
	case core.ProgressText:
		return progressFrame{Type: "progress", Source: e.Source, Text: e.Text}
	case core.ToolCallStarted:
		return toolStartFrame{Type: "tool_start", Agent: e.Agent, Tool: e.Tool, ArgsPreview: e.ArgsPreview}
	case core.ToolCallFinished:
		return toolEndFrame{Type: "tool_end", Agent: e.Agent, Tool: e.Tool, OK: e.OK}
	case core.PartialToken:
		return tokenFrame{Type: "token", Text: e.Text}
	case core.Final:
		return finalFrame{Type: "final", Text: e.Text}
	case core.Error:
		return errorFrame{Type: "error", Message: e.Message}
	default:
		return errorFrame{Type: "error", Message: "unknown event"}
	}
}
