package ws

import (
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/bytedance/sonic"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"aristo-server-go/internal/domain/eventbus"
	"aristo-server-go/internal/domain/playback"
)

func newTestFeed(t *testing.T) (*Feed, *websocket.Conn, func(string, ...any)) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	bus := eventbus.New()
	feed, err := NewFeed(bus, nil)
	if err != nil {
		t.Fatalf("NewFeed error: %v", err)
	}
	t.Cleanup(feed.Close)

	engine := gin.New()
	engine.GET("/ws", feed.Handle)
	server := httptest.NewServer(engine)
	t.Cleanup(server.Close)

	url := "ws" + strings.TrimPrefix(server.URL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dialing feed: %v", err)
	}
	t.Cleanup(func() { conn.Close() })

	// The server registers the client just after the handshake; wait
	// for it before publishing.
	deadline := time.Now().Add(2 * time.Second)
	for feed.ClientCount() == 0 {
		if time.Now().After(deadline) {
			t.Fatal("client never registered on the feed")
		}
		time.Sleep(5 * time.Millisecond)
	}

	return feed, conn, func(topic string, args ...any) {
		bus.Publish(topic, args...)
	}
}

func readFrame(t *testing.T, conn *websocket.Conn) Frame {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, payload, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("reading frame: %v", err)
	}
	var frame Frame
	if err := sonic.Unmarshal(payload, &frame); err != nil {
		t.Fatalf("frame %q did not parse: %v", payload, err)
	}
	return frame
}

func TestFeedBroadcastsProgress(t *testing.T) {
	_, conn, publish := newTestFeed(t)

	publish(eventbus.TopicPlaybackProgress, playback.Progress{
		SegmentIndex: 1,
		Elapsed:      30,
		Total:        60,
		Percentage:   0.5,
		State:        "playing",
	})

	frame := readFrame(t, conn)
	if frame.Type != "progress" {
		t.Fatalf("frame type = %q, want progress", frame.Type)
	}
	data, ok := frame.Data.(map[string]any)
	if !ok {
		t.Fatalf("unexpected frame data: %+v", frame.Data)
	}
	if data["percentage"].(float64) != 0.5 {
		t.Errorf("percentage = %v, want 0.5", data["percentage"])
	}
	if data["state"] != "playing" {
		t.Errorf("state = %v, want playing", data["state"])
	}
}

func TestFeedBroadcastsSegmentAndCompletion(t *testing.T) {
	_, conn, publish := newTestFeed(t)

	publish(eventbus.TopicPlaybackSegment, 4)
	frame := readFrame(t, conn)
	if frame.Type != "segment" {
		t.Fatalf("frame type = %q, want segment", frame.Type)
	}
	if idx := frame.Data.(map[string]any)["display_index"].(float64); idx != 4 {
		t.Errorf("display_index = %v, want 4", idx)
	}

	publish(eventbus.TopicPlaybackComplete)
	frame = readFrame(t, conn)
	if frame.Type != "chapter_complete" {
		t.Errorf("frame type = %q, want chapter_complete", frame.Type)
	}
}

func TestFeedDropsClosedClients(t *testing.T) {
	feed, conn, publish := newTestFeed(t)

	conn.Close()

	// The read loop notices the close shortly; broadcasting afterwards
	// must not keep the dead client around.
	deadline := time.Now().Add(2 * time.Second)
	for feed.ClientCount() != 0 {
		if time.Now().After(deadline) {
			t.Fatal("closed client was never dropped")
		}
		publish(eventbus.TopicPlaybackComplete)
		time.Sleep(5 * time.Millisecond)
	}
}
