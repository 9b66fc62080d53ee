package api

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mimi-overlay/mimi/internal/avatar"
	"github.com/mimi-overlay/mimi/pkg/logger"
)

func newTestServer(t *testing.T) *Server {
	t.Helper()

	server, err := NewServer(ServerConfig{
		Port:           3338,
		Host:           "localhost",
		AnimationsFile: filepath.Join(t.TempDir(), "animations.jsonl"),
	}, logger.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = server.Shutdown()
	})
	return server
}

func doRequest(t *testing.T, server *Server, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()

	var reader *strings.Reader
	if body != "" {
		reader = strings.NewReader(body)
	} else {
		reader = strings.NewReader("")
	}
	req := httptest.NewRequest(method, path, reader)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	recorder := httptest.NewRecorder()
	server.Handler().ServeHTTP(recorder, req)
	return recorder
}

func stateSnapshot(t *testing.T, server *Server) avatar.AvatarState {
	t.Helper()
	state, err := server.Store().Snapshot()
	require.NoError(t, err)
	return state
}

func TestServer_Health(t *testing.T) {
	server := newTestServer(t)

	resp := doRequest(t, server, http.MethodGet, "/health", "")

	assert.Equal(t, http.StatusOK, resp.Code)
	assert.JSONEq(t, `{"status":"running"}`, resp.Body.String())
}

func TestServer_State(t *testing.T) {
	t.Run("GetReturnsDefaultState", func(t *testing.T) {
		server := newTestServer(t)

		resp := doRequest(t, server, http.MethodGet, "/state", "")

		require.Equal(t, http.StatusOK, resp.Code)
		var state avatar.AvatarState
		require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &state))
		assert.True(t, state.Visible)
		assert.Equal(t, avatar.PoseIdle, state.PoseName())
		assert.Equal(t, avatar.Position{X: 1000, Y: 100}, state.Position)
	})

	t.Run("PostMergesPartialUpdate", func(t *testing.T) {
		server := newTestServer(t)

		resp := doRequest(t, server, http.MethodPost, "/state", `{"pose":"wave1","mood":"happy"}`)
		require.Equal(t, http.StatusOK, resp.Code)
		assert.JSONEq(t, `{"status":"ok"}`, resp.Body.String())

		read := doRequest(t, server, http.MethodGet, "/state", "")
		var doc map[string]json.RawMessage
		require.NoError(t, json.Unmarshal(read.Body.Bytes(), &doc))
		assert.JSONEq(t, `"wave1"`, string(doc["pose"]))
		// Unknown keys pass through untouched
		assert.JSONEq(t, `"happy"`, string(doc["mood"]))
		assert.JSONEq(t, `true`, string(doc["visible"]))
	})

	t.Run("PostNullClearsKey", func(t *testing.T) {
		server := newTestServer(t)
		doRequest(t, server, http.MethodPost, "/state", `{"pose":"wave1"}`)

		resp := doRequest(t, server, http.MethodPost, "/state", `{"pose":null}`)
		require.Equal(t, http.StatusOK, resp.Code)

		read := doRequest(t, server, http.MethodGet, "/state", "")
		var doc map[string]json.RawMessage
		require.NoError(t, json.Unmarshal(read.Body.Bytes(), &doc))
		_, present := doc["pose"]
		assert.False(t, present)
	})

	t.Run("PostRejectsNonObject", func(t *testing.T) {
		server := newTestServer(t)

		resp := doRequest(t, server, http.MethodPost, "/state", `[1,2,3]`)
		assert.Equal(t, http.StatusBadRequest, resp.Code)
	})

	t.Run("RejectsUnsupportedMethod", func(t *testing.T) {
		server := newTestServer(t)

		resp := doRequest(t, server, http.MethodDelete, "/state", "")
		assert.Equal(t, http.StatusMethodNotAllowed, resp.Code)
	})
}

func TestServer_PlayAnimation(t *testing.T) {
	t.Run("ExplicitFrames", func(t *testing.T) {
		server := newTestServer(t)

		resp := doRequest(t, server, http.MethodPost, "/play_animation",
			`{"id":"anim-1","frames":["wave1","wave2"],"fps":2,"loop":true}`)
		require.Equal(t, http.StatusOK, resp.Code)

		state := stateSnapshot(t, server)
		require.NotNil(t, state.Animation)
		assert.Equal(t, "anim-1", state.Animation.ID)
		assert.Equal(t, []string{"wave1", "wave2"}, state.Animation.Sequence)
		assert.True(t, state.Animation.Loop)
		require.NotNil(t, state.Animation.StartTime)
		assert.True(t, state.Visible)
	})

	t.Run("ResolvesLibraryAnimation", func(t *testing.T) {
		server := newTestServer(t)
		created := doRequest(t, server, http.MethodPost, "/animations",
			`{"id":"wave","name":"Wave","frames":["wave1","wave2"],"fps":4,"loop":true}`)
		require.Equal(t, http.StatusOK, created.Code)

		resp := doRequest(t, server, http.MethodPost, "/play_animation", `{"id":"wave"}`)
		require.Equal(t, http.StatusOK, resp.Code)

		state := stateSnapshot(t, server)
		require.NotNil(t, state.Animation)
		assert.Equal(t, []string{"wave1", "wave2"}, state.Animation.Sequence)
		assert.Equal(t, 4.0, state.Animation.FPS)
		assert.True(t, state.Animation.Loop)
	})

	t.Run("UnknownIDFallsBackToStill", func(t *testing.T) {
		server := newTestServer(t)

		resp := doRequest(t, server, http.MethodPost, "/play_animation", `{"id":"sleepy"}`)
		require.Equal(t, http.StatusOK, resp.Code)

		state := stateSnapshot(t, server)
		require.NotNil(t, state.Animation)
		assert.Equal(t, []string{"sleepy"}, state.Animation.Sequence)
	})

	t.Run("RejectsMissingID", func(t *testing.T) {
		server := newTestServer(t)

		resp := doRequest(t, server, http.MethodPost, "/play_animation", `{"frames":["wave1"]}`)
		assert.Equal(t, http.StatusBadRequest, resp.Code)
	})
}

func TestServer_StopAnimation(t *testing.T) {
	server := newTestServer(t)
	doRequest(t, server, http.MethodPost, "/play_animation", `{"id":"anim-1","frames":["wave1"]}`)

	resp := doRequest(t, server, http.MethodDelete, "/animate", "")
	require.Equal(t, http.StatusOK, resp.Code)

	state := stateSnapshot(t, server)
	assert.Nil(t, state.Animation)
	assert.Equal(t, avatar.PoseIdle, state.PoseName())
}

func TestServer_Gif(t *testing.T) {
	t.Run("ShowAndHide", func(t *testing.T) {
		server := newTestServer(t)
		doRequest(t, server, http.MethodPost, "/play_animation", `{"id":"anim-1","frames":["wave1"]}`)

		resp := doRequest(t, server, http.MethodPost, "/show_gif",
			`{"url":"https://media.example.com/dance.gif","duration":8}`)
		require.Equal(t, http.StatusOK, resp.Code)

		state := stateSnapshot(t, server)
		require.NotNil(t, state.Gif)
		assert.Equal(t, 8.0, state.Gif.Duration)
		// A gif displaces any running animation
		assert.Nil(t, state.Animation)

		resp = doRequest(t, server, http.MethodPost, "/hide_gif", "")
		require.Equal(t, http.StatusOK, resp.Code)

		state = stateSnapshot(t, server)
		assert.Nil(t, state.Gif)
		assert.Equal(t, avatar.PoseIdle, state.PoseName())
	})

	t.Run("DefaultsDuration", func(t *testing.T) {
		server := newTestServer(t)

		resp := doRequest(t, server, http.MethodPost, "/show_gif",
			`{"url":"https://media.example.com/dance.gif"}`)
		require.Equal(t, http.StatusOK, resp.Code)

		state := stateSnapshot(t, server)
		require.NotNil(t, state.Gif)
		assert.Equal(t, avatar.DefaultGifDuration, state.Gif.Duration)
	})

	t.Run("RejectsMissingURL", func(t *testing.T) {
		server := newTestServer(t)

		resp := doRequest(t, server, http.MethodPost, "/show_gif", `{"duration":5}`)
		assert.Equal(t, http.StatusBadRequest, resp.Code)
	})
}

func TestServer_Animations(t *testing.T) {
	server := newTestServer(t)

	resp := doRequest(t, server, http.MethodPost, "/animations",
		`{"id":"wave","name":"Wave","frames":["wave1","wave2"],"fps":2,"loop":true}`)
	require.Equal(t, http.StatusOK, resp.Code)

	// Duplicate ids are rejected
	resp = doRequest(t, server, http.MethodPost, "/animations",
		`{"id":"wave","name":"Wave","frames":["wave1"]}`)
	assert.Equal(t, http.StatusBadRequest, resp.Code)

	list := doRequest(t, server, http.MethodGet, "/animations", "")
	require.Equal(t, http.StatusOK, list.Code)

	var listResp struct {
		Animations []avatar.Animation `json:"animations"`
		Total      int                `json:"total"`
	}
	require.NoError(t, json.Unmarshal(list.Body.Bytes(), &listResp))
	require.Equal(t, 1, listResp.Total)
	assert.Equal(t, "wave", listResp.Animations[0].ID)
}

func TestServer_CORSHeaders(t *testing.T) {
	server := newTestServer(t)

	resp := doRequest(t, server, http.MethodGet, "/state", "")
	assert.Equal(t, "*", resp.Header().Get("Access-Control-Allow-Origin"))

	preflight := doRequest(t, server, http.MethodOptions, "/state", "")
	assert.Equal(t, http.StatusOK, preflight.Code)
}
