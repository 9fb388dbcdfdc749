package relayhttp

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/river-hendriksen/voicerelay"
)

// newTestServer builds a server over a relay with an unreachable upstream.
// Routes that need a live upstream connection are tested through their error
// paths here; the relay package covers the connected flows.
func newTestServer(t *testing.T) (*httptest.Server, *voicerelay.Relay) {
	t.Helper()
	relay, err := voicerelay.New(voicerelay.Config{
		Endpoint:         "http://invalid.test",
		Model:            "gpt-4o",
		APIVersion:       "2025-05-01-preview",
		Credential:       voicerelay.APIKey("test-key"),
		DialTimeout:      time.Second,
		StructuredLogger: voicerelay.NewLogger(voicerelay.LogLevelOff),
		SweepInterval:    time.Hour,
	})
	require.NoError(t, err)
	t.Cleanup(relay.Close)

	srv := httptest.NewServer(NewServer(relay, zap.NewNop()).Handler())
	t.Cleanup(srv.Close)
	return srv, relay
}

func postJSON(t *testing.T, url, body string) *http.Response {
	t.Helper()
	resp, err := http.Post(url, "application/json", strings.NewReader(body))
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func decodeBody(t *testing.T, resp *http.Response) map[string]any {
	t.Helper()
	var m map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&m))
	return m
}

func TestCreateSession(t *testing.T) {
	srv, relay := newTestServer(t)

	resp := postJSON(t, srv.URL+"/api/chat/session", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "application/json", resp.Header.Get("Content-Type"))

	body := decodeBody(t, resp)
	id, _ := body["sessionId"].(string)
	require.NotEmpty(t, id)

	_, err := relay.Status(id)
	assert.NoError(t, err, "issued id must resolve in the registry")
}

func TestStatus(t *testing.T) {
	srv, relay := newTestServer(t)
	id := relay.Sessions().CreateSession()

	resp, err := http.Get(srv.URL + "/api/chat/" + id + "/status")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	body := decodeBody(t, resp)
	assert.Equal(t, id, body["sessionId"])
	assert.Equal(t, false, body["isConnected"])
	assert.Equal(t, false, body["isRecording"])
}

func TestUnknownSessionIs404(t *testing.T) {
	srv, _ := newTestServer(t)

	resp, err := http.Get(srv.URL + "/api/chat/no-such-session/status")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	body := decodeBody(t, resp)
	assert.Contains(t, body["error"], "session not found")
}

func TestToggleVoiceWhileDisconnectedIs409(t *testing.T) {
	srv, relay := newTestServer(t)
	id := relay.Sessions().CreateSession()

	resp := postJSON(t, srv.URL+"/api/chat/"+id+"/toggle-voice", "")
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
}

func TestSendMessageWhileDisconnectedIs409(t *testing.T) {
	srv, relay := newTestServer(t)
	id := relay.Sessions().CreateSession()

	resp := postJSON(t, srv.URL+"/api/chat/"+id+"/send-message", `{"message":"Hello"}`)
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
}

func TestSendMessageBadBodyIs400(t *testing.T) {
	srv, relay := newTestServer(t)
	id := relay.Sessions().CreateSession()

	resp := postJSON(t, srv.URL+"/api/chat/"+id+"/send-message", "{not json")
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestConnectUnreachableUpstreamIs502(t *testing.T) {
	srv, relay := newTestServer(t)
	id := relay.Sessions().CreateSession()

	resp := postJSON(t, srv.URL+"/api/chat/"+id+"/connect", "")
	assert.Equal(t, http.StatusBadGateway, resp.StatusCode)
}

func TestHistoryRoutes(t *testing.T) {
	srv, relay := newTestServer(t)
	id := relay.Sessions().CreateSession()
	relay.History().AddMessage(id, "LEARNER: Hello")
	relay.History().AddMessage(id, "FAMILY: Hi, doctor.")

	resp, err := http.Get(srv.URL + "/api/chat/" + id + "/history")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	body := decodeBody(t, resp)
	assert.Equal(t, id, body["sessionId"])
	history, _ := body["history"].([]any)
	require.Len(t, history, 2)
	assert.Equal(t, "LEARNER: Hello", history[0])

	req, err := http.NewRequest(http.MethodDelete, srv.URL+"/api/chat/"+id+"/history", nil)
	require.NoError(t, err)
	del, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer del.Body.Close()
	require.Equal(t, http.StatusOK, del.StatusCode)

	assert.Empty(t, relay.History().GetHistory(id))
}

func TestRemoveSession(t *testing.T) {
	srv, relay := newTestServer(t)
	id := relay.Sessions().CreateSession()
	relay.History().AddMessage(id, "LEARNER: Hello")

	req, err := http.NewRequest(http.MethodDelete, srv.URL+"/api/chat/"+id, nil)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	body := decodeBody(t, resp)
	assert.Equal(t, true, body["removed"])
	_, statusErr := relay.Status(id)
	assert.Error(t, statusErr)
	assert.Equal(t, 0, relay.History().GetActiveSessionCount())
}

func TestAdminRoutes(t *testing.T) {
	srv, relay := newTestServer(t)
	a := relay.Sessions().CreateSession()
	b := relay.Sessions().CreateSession()

	resp, err := http.Get(srv.URL + "/api/admin/sessions")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	body := decodeBody(t, resp)
	assert.Equal(t, float64(2), body["count"])
	sessions, _ := body["sessions"].([]any)
	assert.ElementsMatch(t, []any{a, b}, sessions)

	cleanup := postJSON(t, srv.URL+"/api/admin/cleanup", "")
	require.Equal(t, http.StatusOK, cleanup.StatusCode)
	cleanupBody := decodeBody(t, cleanup)
	assert.Equal(t, float64(0), cleanupBody["removed"], "fresh sessions must survive cleanup")
}

func TestStreamWhileDisconnectedIs409(t *testing.T) {
	srv, relay := newTestServer(t)
	id := relay.Sessions().CreateSession()

	resp, err := http.Get(srv.URL + "/api/chat/" + id + "/stream")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
	assert.Equal(t, "application/json", resp.Header.Get("Content-Type"))
}

func TestMetricsEndpoint(t *testing.T) {
	srv, relay := newTestServer(t)
	relay.Sessions().CreateSession()

	resp, err := http.Get(srv.URL + "/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	out := string(raw)
	assert.Contains(t, out, "voicerelay_active_sessions 1")
	assert.Contains(t, out, "voicerelay_events_relayed_total")
}
