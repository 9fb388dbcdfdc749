package voicerelay

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"nhooyr.io/websocket"
)

// upstreamServer simulates the Voice Live WebSocket endpoint. Frames the
// relay sends arrive on Frames; frames queued with Push are written to the
// connected relay.
type upstreamServer struct {
	t      *testing.T
	server *httptest.Server
	Frames chan map[string]any
	push   chan []byte
}

func newUpstreamServer(t *testing.T) *upstreamServer {
	t.Helper()
	us := &upstreamServer{
		t:      t,
		Frames: make(chan map[string]any, 64),
		push:   make(chan []byte, 64),
	}
	us.server = httptest.NewServer(http.HandlerFunc(us.handle))
	t.Cleanup(us.server.Close)
	return us
}

// URL returns the HTTP base URL; the relay converts the scheme itself.
func (us *upstreamServer) URL() string { return us.server.URL }

// Push queues one upstream frame for delivery to the connected relay.
func (us *upstreamServer) Push(frame any) {
	data, err := json.Marshal(frame)
	if err != nil {
		us.t.Fatalf("marshal pushed frame: %v", err)
	}
	us.push <- data
}

// PushRaw queues raw bytes, for deliberately malformed frames.
func (us *upstreamServer) PushRaw(data string) {
	us.push <- []byte(data)
}

// NextFrame returns the next frame received from the relay, or fails.
func (us *upstreamServer) NextFrame() map[string]any {
	us.t.Helper()
	select {
	case f := <-us.Frames:
		return f
	case <-time.After(2 * time.Second):
		us.t.Fatal("timed out waiting for upstream frame")
		return nil
	}
}

func (us *upstreamServer) handle(w http.ResponseWriter, r *http.Request) {
	if r.Header.Get("api-key") == "" && r.Header.Get("Authorization") == "" {
		http.Error(w, "missing authentication", http.StatusUnauthorized)
		return
	}

	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{InsecureSkipVerify: true})
	if err != nil {
		us.t.Errorf("websocket accept: %v", err)
		return
	}
	defer conn.Close(websocket.StatusNormalClosure, "")

	ctx := r.Context()
	readDone := make(chan struct{})

	go func() {
		defer close(readDone)
		for {
			_, data, err := conn.Read(ctx)
			if err != nil {
				return
			}
			var frame map[string]any
			if err := json.Unmarshal(data, &frame); err != nil {
				continue
			}
			select {
			case us.Frames <- frame:
			case <-ctx.Done():
				return
			}
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return
		case <-readDone:
			return
		case data := <-us.push:
			if err := conn.Write(ctx, websocket.MessageText, data); err != nil {
				return
			}
		}
	}
}

// newTestRelay creates a relay pointed at the mock upstream.
func newTestRelay(t *testing.T, us *upstreamServer) *Relay {
	t.Helper()
	endpoint := "http://invalid.test"
	if us != nil {
		endpoint = us.URL()
	}
	r, err := New(Config{
		Endpoint:         endpoint,
		Model:            "gpt-4o",
		APIVersion:       "2025-05-01-preview",
		Credential:       APIKey("test-key"),
		DialTimeout:      2 * time.Second,
		StructuredLogger: NewLogger(LogLevelOff),
		SweepInterval:    time.Hour,
	})
	if err != nil {
		t.Fatalf("create relay: %v", err)
	}
	t.Cleanup(r.Close)
	return r
}
