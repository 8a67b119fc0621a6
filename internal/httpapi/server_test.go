package httpapi

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hmiyata/cascade/internal/docstore"
	"github.com/hmiyata/cascade/internal/events"
	"github.com/hmiyata/cascade/internal/executor"
	"github.com/hmiyata/cascade/internal/model"
	"github.com/hmiyata/cascade/internal/orchestrator"
	"github.com/hmiyata/cascade/internal/planner"
)

func newTestServer(t *testing.T) (*httptest.Server, *Server, *docstore.Store, *events.Bus) {
	t.Helper()

	store := docstore.New()
	bus := events.NewBus(100)
	orch := orchestrator.New(model.OrchestratorConfig{ConfidenceThreshold: 0.6}, nil)
	orch.SetExecutorFactory(func(workerID int) executor.Executor {
		return executor.NewHeuristic("test-worker", nil)
	})
	orch.SetEventBus(bus)

	srv := NewServer("127.0.0.1:0", planner.New(), orch, store, bus, nil)
	ts := httptest.NewServer(srv.Routes())
	t.Cleanup(func() {
		ts.Close()
		bus.Close()
	})
	return ts, srv, store, bus
}

func postJSON(t *testing.T, url string, body any) *http.Response {
	t.Helper()
	data, err := json.Marshal(body)
	require.NoError(t, err)
	resp, err := http.Post(url, "application/json", bytes.NewReader(data))
	require.NoError(t, err)
	return resp
}

func TestHandlePlan(t *testing.T) {
	ts, _, _, _ := newTestServer(t)

	resp := postJSON(t, ts.URL+"/plan", map[string]string{"intent": "Summarize the report"})
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var body planResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, "Summarize the report", body.Plan.Intent)
	require.Len(t, body.Plan.Tasks, 3)
	assert.Equal(t, model.TaskTypeSummarize, body.Plan.Tasks[1].Type)
	assert.NoError(t, body.Plan.Validate())
}

func TestHandlePlan_BlankIntent(t *testing.T) {
	ts, _, _, _ := newTestServer(t)

	resp := postJSON(t, ts.URL+"/plan", map[string]string{"intent": "   "})
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestHandleUpload_PastedText(t *testing.T) {
	ts, _, store, _ := newTestServer(t)

	resp := postJSON(t, ts.URL+"/upload", map[string]string{
		"text": "pasted document body",
		"name": "notes.txt",
		"type": "paste",
	})
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var body uploadResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	require.Len(t, body.Sources, 1)
	assert.Equal(t, "notes.txt", body.Sources[0].Name)
	assert.Equal(t, docstore.SourceStatusLoaded, body.Sources[0].Status)

	text, ok := store.Text()
	require.True(t, ok)
	assert.Equal(t, "pasted document body", text)
}

func TestHandleSources(t *testing.T) {
	ts, _, store, _ := newTestServer(t)
	store.Add("a.txt", "txt", "content")

	resp, err := http.Get(ts.URL + "/sources")
	require.NoError(t, err)
	defer resp.Body.Close()

	var body uploadResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	require.Len(t, body.Sources, 1)
	assert.Equal(t, "a.txt", body.Sources[0].Name)
}

func TestHandleRun_StreamsSSE(t *testing.T) {
	ts, _, _, _ := newTestServer(t)

	planResp := postJSON(t, ts.URL+"/plan", map[string]string{"intent": "summarize this"})
	var planBody planResponse
	require.NoError(t, json.NewDecoder(planResp.Body).Decode(&planBody))
	planResp.Body.Close()

	resp := postJSON(t, ts.URL+"/run", runRequest{Plan: planBody.Plan})
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))

	frames := readSSEFrames(t, resp)
	require.NotEmpty(t, frames)

	// All but the last frame are worker updates; the stream terminates with
	// exactly one result.
	for _, frame := range frames[:len(frames)-1] {
		assert.Equal(t, "worker_update", frame["type"])
	}
	last := frames[len(frames)-1]
	require.Equal(t, "result", last["type"])
	assert.EqualValues(t, 3, last["total_tasks"])
	assert.EqualValues(t, 0, last["warnings"])
}

func TestHandleRun_NoTasks(t *testing.T) {
	ts, _, _, _ := newTestServer(t)

	resp := postJSON(t, ts.URL+"/run", runRequest{Plan: model.Plan{Intent: "x"}})
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestHandleWebSocket_ForwardsBusEvents(t *testing.T) {
	ts, _, _, bus := newTestServer(t)

	wsURL := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	defer conn.Close()

	// Give the handler a moment to subscribe before publishing.
	time.Sleep(50 * time.Millisecond)
	bus.Publish(events.WorkerUpdate{
		Type:     events.TypeWorkerUpdate,
		WorkerID: 7,
		Status:   model.WorkerStatusRunning,
	})

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	var received map[string]any
	require.NoError(t, conn.ReadJSON(&received))
	assert.Equal(t, "worker_update", received["type"])
	assert.EqualValues(t, 7, received["worker_id"])
}

func TestHandleHealthz(t *testing.T) {
	ts, _, _, _ := newTestServer(t)

	resp, err := http.Get(ts.URL + "/healthz")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func readSSEFrames(t *testing.T, resp *http.Response) []map[string]any {
	t.Helper()

	var buf bytes.Buffer
	_, err := buf.ReadFrom(resp.Body)
	require.NoError(t, err)

	var frames []map[string]any
	for _, chunk := range strings.Split(buf.String(), "\n\n") {
		chunk = strings.TrimSpace(chunk)
		if chunk == "" {
			continue
		}
		require.True(t, strings.HasPrefix(chunk, "data: "), "malformed SSE frame: %q", chunk)
		var frame map[string]any
		require.NoError(t, json.Unmarshal([]byte(strings.TrimPrefix(chunk, "data: ")), &frame))
		frames = append(frames, frame)
	}
	return frames
}
