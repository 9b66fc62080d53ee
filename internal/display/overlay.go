package display

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/mimi-overlay/mimi/internal/avatar"
	"github.com/mimi-overlay/mimi/pkg/logger"
)

// renderCommand is one drawing instruction pushed to the overlay window.
type renderCommand struct {
	Op      string   `json:"op"`
	Pose    string   `json:"pose,omitempty"`
	Path    string   `json:"path,omitempty"`
	X       int      `json:"x,omitempty"`
	Y       int      `json:"y,omitempty"`
	Visible *bool    `json:"visible,omitempty"`
	Width   int      `json:"width,omitempty"`
	Height  int      `json:"height,omitempty"`
	Data    []byte   `json:"data,omitempty"`
}

// pointerEvent is one pointer interaction reported by the overlay window.
type pointerEvent struct {
	Type string  `json:"type"`
	X    float64 `json:"x"`
	Y    float64 `json:"y"`
}

// OverlayServer bridges the engine to a browser-based overlay window over a
// websocket. Render commands flow out as JSON; pointer events flow back in
// and drive the engine's gesture handling. It implements Renderer, so the
// engine stays unaware of the transport.
//
// A single overlay connection is active at a time; a new connection
// replaces the old one. While no overlay is connected, render commands are
// dropped and the engine keeps running headless.
type OverlayServer struct {
	addr    string
	engine  *Engine
	logger  *logger.Logger
	server  *http.Server
	upgrade websocket.Upgrader

	mu   sync.Mutex
	conn *websocket.Conn
}

// NewOverlayServer creates the overlay bridge listening on addr. The engine
// is attached after construction because the engine itself needs a Renderer
// at construction time.
func NewOverlayServer(addr string, log *logger.Logger) *OverlayServer {
	return &OverlayServer{
		addr:   addr,
		logger: log.WithComponent("overlay"),
		upgrade: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			// The overlay is a local window, not a browser origin we
			// need to gate.
			CheckOrigin: func(r *http.Request) bool { return true },
		},
	}
}

// AttachEngine wires the engine that receives pointer events.
func (o *OverlayServer) AttachEngine(engine *Engine) {
	o.engine = engine
}

// Run serves the websocket endpoint until the context is cancelled.
func (o *OverlayServer) Run(ctx context.Context) error {
	mux := http.NewServeMux()
	mux.HandleFunc("/ws", o.handleWS)

	o.server = &http.Server{
		Addr:         o.addr,
		Handler:      mux,
		ReadTimeout:  0,
		WriteTimeout: 0,
	}

	errCh := make(chan error, 1)
	go func() {
		o.logger.Info("Overlay bridge listening", zap.String("addr", o.addr))
		if err := o.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return o.server.Shutdown(shutdownCtx)
	case err := <-errCh:
		return err
	}
}

func (o *OverlayServer) handleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := o.upgrade.Upgrade(w, r, nil)
	if err != nil {
		o.logger.Warn("Overlay upgrade failed", zap.Error(err))
		return
	}

	o.mu.Lock()
	if o.conn != nil {
		o.conn.Close()
	}
	o.conn = conn
	o.mu.Unlock()

	o.logger.Info("Overlay connected", zap.String("remote", r.RemoteAddr))
	o.readLoop(r.Context(), conn)
}

func (o *OverlayServer) readLoop(ctx context.Context, conn *websocket.Conn) {
	defer func() {
		o.mu.Lock()
		if o.conn == conn {
			o.conn = nil
		}
		o.mu.Unlock()
		conn.Close()
		o.logger.Info("Overlay disconnected")
	}()

	for {
		_, payload, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				o.logger.Warn("Overlay read error", zap.Error(err))
			}
			return
		}

		var event pointerEvent
		if err := json.Unmarshal(payload, &event); err != nil {
			o.logger.Warn("Malformed pointer event", zap.Error(err))
			continue
		}
		o.dispatch(ctx, event)
	}
}

func (o *OverlayServer) dispatch(ctx context.Context, event pointerEvent) {
	if o.engine == nil {
		return
	}
	switch event.Type {
	case "press":
		o.engine.HandlePress(event.X, event.Y)
	case "move":
		o.engine.HandleMove(event.X, event.Y)
	case "release":
		o.engine.HandleRelease(ctx, event.X, event.Y)
	case "hide":
		o.engine.HandleHide(ctx)
	default:
		o.logger.Debug("Unknown pointer event", zap.String("type", event.Type))
	}
}

func (o *OverlayServer) send(cmd renderCommand) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.conn == nil {
		return
	}
	o.conn.SetWriteDeadline(time.Now().Add(2 * time.Second))
	if err := o.conn.WriteJSON(cmd); err != nil {
		o.logger.Debug("Overlay write failed", zap.Error(err))
		o.conn.Close()
		o.conn = nil
	}
}

// SetSprite implements Renderer.
func (o *OverlayServer) SetSprite(pose string, path string) {
	o.send(renderCommand{Op: "sprite", Pose: pose, Path: path})
}

// SetPosition implements Renderer.
func (o *OverlayServer) SetPosition(pos avatar.Position) {
	o.send(renderCommand{Op: "position", X: pos.X, Y: pos.Y})
}

// SetVisible implements Renderer.
func (o *OverlayServer) SetVisible(visible bool) {
	o.send(renderCommand{Op: "visible", Visible: &visible})
}

// SetGeometry implements Renderer.
func (o *OverlayServer) SetGeometry(g Geometry) {
	o.send(renderCommand{Op: "geometry", Width: g.Width, Height: g.Height})
}

// PlayGif implements Renderer. Media bytes travel base64-encoded inside
// the JSON command.
func (o *OverlayServer) PlayGif(data []byte) {
	o.send(renderCommand{Op: "gif", Data: data})
}

// StopGif implements Renderer.
func (o *OverlayServer) StopGif() {
	o.send(renderCommand{Op: "stop_gif"})
}
