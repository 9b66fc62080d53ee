package display

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mimi-overlay/mimi/internal/avatar"
	"github.com/mimi-overlay/mimi/pkg/logger"
)

func dialOverlay(t *testing.T, overlay *OverlayServer) *websocket.Conn {
	t.Helper()

	server := httptest.NewServer(http.HandlerFunc(overlay.handleWS))
	t.Cleanup(server.Close)

	url := "ws" + strings.TrimPrefix(server.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() {
		conn.Close()
	})
	return conn
}

func readCommand(t *testing.T, conn *websocket.Conn) renderCommand {
	t.Helper()

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	var cmd renderCommand
	require.NoError(t, conn.ReadJSON(&cmd))
	return cmd
}

func TestOverlayServer_RenderCommands(t *testing.T) {
	overlay := NewOverlayServer("127.0.0.1:0", logger.NewNop())
	conn := dialOverlay(t, overlay)

	overlay.SetSprite("idle", "library/idle.png")
	cmd := readCommand(t, conn)
	assert.Equal(t, "sprite", cmd.Op)
	assert.Equal(t, "idle", cmd.Pose)
	assert.Equal(t, "library/idle.png", cmd.Path)

	overlay.SetPosition(avatar.Position{X: 40, Y: 50})
	cmd = readCommand(t, conn)
	assert.Equal(t, "position", cmd.Op)
	assert.Equal(t, 40, cmd.X)
	assert.Equal(t, 50, cmd.Y)

	overlay.SetVisible(false)
	cmd = readCommand(t, conn)
	assert.Equal(t, "visible", cmd.Op)
	require.NotNil(t, cmd.Visible)
	assert.False(t, *cmd.Visible)

	overlay.SetGeometry(GifGeometry)
	cmd = readCommand(t, conn)
	assert.Equal(t, "geometry", cmd.Op)
	assert.Equal(t, GifGeometry.Width, cmd.Width)

	overlay.PlayGif([]byte{0x47, 0x49, 0x46})
	cmd = readCommand(t, conn)
	assert.Equal(t, "gif", cmd.Op)
	assert.Equal(t, []byte{0x47, 0x49, 0x46}, cmd.Data)

	overlay.StopGif()
	cmd = readCommand(t, conn)
	assert.Equal(t, "stop_gif", cmd.Op)
}

func TestOverlayServer_DropsCommandsWithoutConnection(t *testing.T) {
	overlay := NewOverlayServer("127.0.0.1:0", logger.NewNop())

	// Must not block or panic with nobody connected
	overlay.SetSprite("idle", "library/idle.png")
	overlay.StopGif()
}

func TestOverlayServer_PointerEventsDriveEngine(t *testing.T) {
	h := newEngineHarness(t)
	overlay := NewOverlayServer("127.0.0.1:0", logger.NewNop())
	overlay.AttachEngine(h.engine)
	conn := dialOverlay(t, overlay)

	require.NoError(t, h.server.Store().PlayAnimation(avatar.AnimationDescriptor{
		ID:       "anim-1",
		Sequence: []string{"wave1", "wave2"},
		FPS:      1,
		Loop:     true,
	}))
	h.engine.Tick(context.Background())
	require.Equal(t, "wave1", h.engine.CurrentPose())

	press, _ := json.Marshal(pointerEvent{Type: "press", X: 100, Y: 100})
	release, _ := json.Marshal(pointerEvent{Type: "release", X: 101, Y: 100})
	require.NoError(t, conn.WriteMessage(websocket.TextMessage, press))
	require.NoError(t, conn.WriteMessage(websocket.TextMessage, release))

	// The click cancels the running animation
	require.Eventually(t, func() bool {
		state, err := h.server.Store().Snapshot()
		return err == nil && state.Animation == nil && h.engine.CurrentPose() == avatar.PoseIdle
	}, 2*time.Second, 20*time.Millisecond)
}
