// Package ws pushes playback and generation events to connected
// reading views over one WebSocket feed.
package ws

import (
	"net/http"
	"sync"

	evbus "github.com/asaskevich/EventBus"
	"github.com/bytedance/sonic"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"aristo-server-go/internal/domain/eventbus"
	"aristo-server-go/internal/domain/playback"
	platformerrors "aristo-server-go/internal/platform/errors"
	"aristo-server-go/internal/platform/logging"
)

// Frame is one event on the feed.
type Frame struct {
	Type string `json:"type"`
	Data any    `json:"data,omitempty"`
}

// Feed fans bus events out to every connected client. Clients only
// listen; inbound messages are drained and discarded.
type Feed struct {
	bus      evbus.Bus
	logger   *logging.Logger
	upgrader websocket.Upgrader

	mu      sync.Mutex
	clients map[*websocket.Conn]struct{}
	closed  bool
}

func NewFeed(bus evbus.Bus, logger *logging.Logger) (*Feed, error) {
	f := &Feed{
		bus:    bus,
		logger: logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(*http.Request) bool { return true },
		},
		clients: make(map[*websocket.Conn]struct{}),
	}

	subscriptions := map[string]any{
		eventbus.TopicPlaybackProgress: f.onProgress,
		eventbus.TopicPlaybackSegment:  f.onSegment,
		eventbus.TopicPlaybackComplete: f.onComplete,
		eventbus.TopicAudioGenerated:   f.onAudioGenerated,
		eventbus.TopicAudioError:       f.onAudioError,
	}
	for topic, handler := range subscriptions {
		if err := bus.Subscribe(topic, handler); err != nil {
			return nil, platformerrors.Wrap(platformerrors.KindBootstrap, "ws.NewFeed",
				"subscribing to "+topic+" failed", err)
		}
	}
	return f, nil
}

// Handle upgrades the request and keeps the connection on the feed
// until the client goes away.
func (f *Feed) Handle(c *gin.Context) {
	conn, err := f.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		f.warn("websocket upgrade failed: %v", err)
		return
	}

	f.mu.Lock()
	if f.closed {
		f.mu.Unlock()
		conn.Close()
		return
	}
	f.clients[conn] = struct{}{}
	count := len(f.clients)
	f.mu.Unlock()

	f.info("feed client connected (%d active)", count)
	go f.readLoop(conn)
}

// ClientCount reports the number of connected clients.
func (f *Feed) ClientCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.clients)
}

// Close drops every client and detaches from the bus.
func (f *Feed) Close() {
	f.bus.Unsubscribe(eventbus.TopicPlaybackProgress, f.onProgress)
	f.bus.Unsubscribe(eventbus.TopicPlaybackSegment, f.onSegment)
	f.bus.Unsubscribe(eventbus.TopicPlaybackComplete, f.onComplete)
	f.bus.Unsubscribe(eventbus.TopicAudioGenerated, f.onAudioGenerated)
	f.bus.Unsubscribe(eventbus.TopicAudioError, f.onAudioError)

	f.mu.Lock()
	f.closed = true
	for conn := range f.clients {
		conn.Close()
		delete(f.clients, conn)
	}
	f.mu.Unlock()
}

func (f *Feed) readLoop(conn *websocket.Conn) {
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			break
		}
	}
	f.drop(conn)
}

func (f *Feed) drop(conn *websocket.Conn) {
	f.mu.Lock()
	if _, ok := f.clients[conn]; ok {
		delete(f.clients, conn)
		conn.Close()
	}
	f.mu.Unlock()
}

func (f *Feed) onProgress(progress playback.Progress) {
	f.broadcast(Frame{Type: "progress", Data: progress})
}

func (f *Feed) onSegment(displayIndex int) {
	f.broadcast(Frame{Type: "segment", Data: map[string]any{"display_index": displayIndex}})
}

func (f *Feed) onComplete() {
	f.broadcast(Frame{Type: "chapter_complete"})
}

func (f *Feed) onAudioGenerated(chapterID string, segments int) {
	f.broadcast(Frame{Type: "audio_generated", Data: map[string]any{
		"chapter_id": chapterID,
		"segments":   segments,
	}})
}

func (f *Feed) onAudioError(chapterID string, err error) {
	f.broadcast(Frame{Type: "audio_error", Data: map[string]any{
		"chapter_id": chapterID,
		"error":      err.Error(),
	}})
}

func (f *Feed) broadcast(frame Frame) {
	payload, err := sonic.Marshal(frame)
	if err != nil {
		f.warn("marshaling %s frame failed: %v", frame.Type, err)
		return
	}

	f.mu.Lock()
	for conn := range f.clients {
		if err := conn.WriteMessage(websocket.TextMessage, payload); err != nil {
			// A client that cannot be written to is gone.
			delete(f.clients, conn)
			conn.Close()
		}
	}
	f.mu.Unlock()
}

func (f *Feed) info(format string, args ...any) {
	if f.logger != nil {
		f.logger.InfoTag("WS", format, args...)
	}
}

func (f *Feed) warn(format string, args ...any) {
	if f.logger != nil {
		f.logger.WarnTag("WS", format, args...)
	}
}
