package server

import (
	"fmt"
	"net/http"
	"sync"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/arjunm/recallmap/internal/diagram"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// The editor is a local browser app; the server binds to loopback.
	CheckOrigin: func(*http.Request) bool { return true },
}

// renderCommand is what the server pushes to the connected editor.
type renderCommand struct {
	Op     string `json:"op"` // "hide" or "show"
	NodeID string `json:"node_id"`
}

// wsRenderer drives node visibility in a connected diagram editor over
// a websocket. It satisfies diagram.Renderer.
type wsRenderer struct {
	mu   sync.Mutex
	conn *websocket.Conn
	log  *zap.Logger
}

func (r *wsRenderer) send(cmd renderCommand) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.conn.WriteJSON(cmd); err != nil {
		return fmt.Errorf("render %s %s: %w", cmd.Op, cmd.NodeID, err)
	}
	return nil
}

// HideNode pushes a hide command and returns the capability that shows
// the node again. Show failures are logged, not surfaced: by then the
// learner-facing operation already succeeded.
func (r *wsRenderer) HideNode(id string) (diagram.RestoreFunc, error) {
	if err := r.send(renderCommand{Op: "hide", NodeID: id}); err != nil {
		return nil, err
	}
	return func() error {
		if err := r.send(renderCommand{Op: "show", NodeID: id}); err != nil {
			r.log.Warn("failed to restore node in editor",
				zap.String("node_id", id), zap.Error(err))
			return err
		}
		return nil
	}, nil
}

func (r *wsRenderer) close() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.conn.Close()
}

// rendererRegistry tracks connected editors by client id. Sessions for
// a client without a live connection run headless.
type rendererRegistry struct {
	mu      sync.Mutex
	clients map[string]*wsRenderer
	log     *zap.Logger
}

func newRendererRegistry(log *zap.Logger) *rendererRegistry {
	return &rendererRegistry{clients: make(map[string]*wsRenderer), log: log}
}

func (g *rendererRegistry) register(clientID string, conn *websocket.Conn) *wsRenderer {
	g.mu.Lock()
	defer g.mu.Unlock()
	if old, ok := g.clients[clientID]; ok {
		old.close()
	}
	r := &wsRenderer{conn: conn, log: g.log}
	g.clients[clientID] = r
	return r
}

func (g *rendererRegistry) unregister(clientID string, r *wsRenderer) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.clients[clientID] == r {
		delete(g.clients, clientID)
	}
}

// lookup returns the renderer for a client, or the headless no-op when
// the editor is not connected.
func (g *rendererRegistry) lookup(clientID string) diagram.Renderer {
	g.mu.Lock()
	defer g.mu.Unlock()
	if r, ok := g.clients[clientID]; ok {
		return r
	}
	return diagram.NopRenderer{}
}

// handleWS upgrades the editor's renderer connection. The read loop
// only watches for the peer closing; all traffic is server to client.
func (s *Server) handleWS(w http.ResponseWriter, req *http.Request) {
	clientID := req.URL.Query().Get("client_id")
	if clientID == "" {
		http.Error(w, "client_id is required", http.StatusBadRequest)
		return
	}

	conn, err := upgrader.Upgrade(w, req, nil)
	if err != nil {
		s.log.Warn("websocket upgrade failed", zap.Error(err))
		return
	}

	r := s.renderers.register(clientID, conn)
	s.log.Info("editor connected", zap.String("client_id", clientID))

	go func() {
		defer func() {
			s.renderers.unregister(clientID, r)
			r.close()
			s.log.Info("editor disconnected", zap.String("client_id", clientID))
		}()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()
}
