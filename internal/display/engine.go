package display

import (
	"context"
	"net/http"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/mimi-overlay/mimi/internal/avatar"
	"github.com/mimi-overlay/mimi/pkg/logger"
)

// EngineState is the display loop's coarse state. Polling is the normal
// mode; GIF playback suspends polling entirely, and Resuming is the short
// settle window after a GIF before polling restarts.
type EngineState int

const (
	StatePolling EngineState = iota
	StateGifPlaying
	StateResuming
)

// String returns the state name
func (s EngineState) String() string {
	switch s {
	case StatePolling:
		return "polling"
	case StateGifPlaying:
		return "gif-playing"
	case StateResuming:
		return "resuming"
	default:
		return "unknown"
	}
}

// EngineConfig holds the display loop's timing knobs.
type EngineConfig struct {
	PollInterval     time.Duration
	WatchdogInterval time.Duration
	ResumeDelay      time.Duration
	DragThreshold    float64
}

// Engine drives the display: it polls the store, resolves the rendering
// mode each tick, advances animation playback on the client clock, and
// owns the GIF lifecycle. Pointer gestures feed in from the renderer side
// and may cancel whatever is playing.
type Engine struct {
	cfg      EngineConfig
	store    *StoreClient
	sprites  *SpriteLibrary
	renderer Renderer
	logger   *logger.Logger
	media    *http.Client
	now      func() time.Time

	mu          sync.Mutex
	state       EngineState
	session     *Session
	completedID string
	currentPose string
	visible     bool
	position    avatar.Position
	gif         *avatar.GifDescriptor
	gifCancel   context.CancelFunc
	pointer     *PointerTracker
	resumeAt    time.Time
}

// EngineOption customizes engine construction.
type EngineOption func(*Engine)

// WithEngineClock overrides the engine's wall clock.
func WithEngineClock(now func() time.Time) EngineOption {
	return func(e *Engine) {
		e.now = now
	}
}

// WithMediaClient overrides the HTTP client used for GIF downloads.
func WithMediaClient(client *http.Client) EngineOption {
	return func(e *Engine) {
		e.media = client
	}
}

// NewEngine creates a display engine. Zero config fields fall back to the
// standard timings.
func NewEngine(cfg EngineConfig, store *StoreClient, sprites *SpriteLibrary, renderer Renderer, log *logger.Logger, opts ...EngineOption) *Engine {
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = 100 * time.Millisecond
	}
	if cfg.WatchdogInterval <= 0 {
		cfg.WatchdogInterval = time.Second
	}
	if cfg.ResumeDelay <= 0 {
		cfg.ResumeDelay = 300 * time.Millisecond
	}
	if cfg.DragThreshold <= 0 {
		cfg.DragThreshold = 5.0
	}

	engine := &Engine{
		cfg:      cfg,
		store:    store,
		sprites:  sprites,
		renderer: renderer,
		logger:   log.WithComponent("display-engine"),
		media:    &http.Client{Timeout: 10 * time.Second},
		now:      time.Now,
		visible:  true,
		pointer:  NewPointerTracker(cfg.DragThreshold),
	}
	for _, opt := range opts {
		opt(engine)
	}
	return engine
}

// Run drives the poll and watchdog tickers until the context is cancelled.
func (e *Engine) Run(ctx context.Context) error {
	if err := e.store.CheckHealth(ctx); err != nil {
		e.logger.Warn("State store unreachable, will keep retrying", zap.Error(err))
	}

	e.Tick(ctx)

	poll := time.NewTicker(e.cfg.PollInterval)
	defer poll.Stop()
	watchdog := time.NewTicker(e.cfg.WatchdogInterval)
	defer watchdog.Stop()

	e.logger.Info("Display engine started",
		zap.Duration("poll_interval", e.cfg.PollInterval),
		zap.Duration("watchdog_interval", e.cfg.WatchdogInterval))

	for {
		select {
		case <-ctx.Done():
			e.logger.Info("Display engine stopped")
			return nil
		case <-poll.C:
			e.Tick(ctx)
		case <-watchdog.C:
			e.WatchdogTick()
		}
	}
}

// Tick runs one poll cycle. It is a no-op while a GIF is playing, while
// the resume delay is still running, or while the pointer holds the avatar.
func (e *Engine) Tick(ctx context.Context) {
	e.mu.Lock()
	switch e.state {
	case StateGifPlaying:
		e.mu.Unlock()
		return
	case StateResuming:
		if e.now().Before(e.resumeAt) {
			e.mu.Unlock()
			return
		}
		e.state = StatePolling
	}
	if e.pointer.Pressed() {
		e.mu.Unlock()
		return
	}
	e.mu.Unlock()

	state, err := e.store.GetState(ctx)
	if err != nil {
		// Keep rendering the last known state until the store comes back.
		e.logger.Debug("State poll failed", zap.Error(err))
		return
	}
	e.Apply(state)
}

// Apply renders one state snapshot. Split from Tick so tests can feed
// snapshots without a live store.
func (e *Engine) Apply(state avatar.AvatarState) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.state != StatePolling || e.pointer.Pressed() {
		return
	}

	if state.Visible != e.visible {
		e.visible = state.Visible
		e.renderer.SetVisible(state.Visible)
	}
	if state.Position != e.position {
		e.position = state.Position
		e.renderer.SetPosition(state.Position)
	}

	switch ResolveMode(state) {
	case ModeGif:
		e.enterGifLocked(state.Gif)
	case ModeAnimation:
		e.animateLocked(state.Animation)
	case ModeStatic:
		e.session = nil
		e.completedID = ""
		e.renderPoseLocked(state.PoseName())
	}
}

// WatchdogTick expires a playing GIF whose display budget has run out.
func (e *Engine) WatchdogTick() {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.state != StateGifPlaying || e.gif == nil {
		return
	}
	if e.gif.Expired(e.now()) {
		e.logger.Info("GIF expired", zap.String("url", e.gif.URL))
		e.exitGifLocked()
	}
}

func (e *Engine) animateLocked(desc *avatar.AnimationDescriptor) {
	// A completed non-looping animation stays completed until the store
	// acknowledges the writeback or a new instance id arrives.
	if desc.ID == e.completedID {
		e.renderPoseLocked(avatar.PoseIdle)
		return
	}
	e.completedID = ""

	if e.session == nil || e.session.ID != desc.ID {
		e.session = NewSession(desc.ID, e.now())
		e.logger.Info("Animation started",
			zap.String("id", desc.ID),
			zap.String("name", desc.Name),
			zap.Int("frames", len(desc.Sequence)),
			zap.Bool("loop", desc.Loop))
	}

	frame := e.session.FrameAt(desc, e.now())
	if frame.Done {
		e.logger.Info("Animation completed", zap.String("id", desc.ID))
		e.completedID = desc.ID
		e.session = nil
		e.renderPoseLocked(avatar.PoseIdle)
		go e.writeStop()
		return
	}
	e.renderPoseLocked(frame.Pose)
}

func (e *Engine) enterGifLocked(desc *avatar.GifDescriptor) {
	gif := *desc
	e.state = StateGifPlaying
	e.gif = &gif
	e.session = nil
	e.completedID = ""
	e.renderer.SetGeometry(GifGeometry)

	fetchCtx, cancel := context.WithCancel(context.Background())
	e.gifCancel = cancel

	e.logger.Info("GIF playback starting",
		zap.String("url", gif.URL),
		zap.Float64("duration", gif.Duration))
	go e.fetchAndPlay(fetchCtx, gif.URL)
}

func (e *Engine) fetchAndPlay(ctx context.Context, url string) {
	data, frames, err := fetchGif(ctx, e.media, url)

	e.mu.Lock()
	defer e.mu.Unlock()

	if e.state != StateGifPlaying || e.gif == nil || e.gif.URL != url {
		return
	}
	if err != nil {
		e.logger.Warn("GIF fetch failed, falling back to static pose", zap.Error(err))
		e.exitGifLocked()
		return
	}
	e.logger.Debug("GIF media ready",
		zap.String("url", url),
		zap.Int("frames", frames),
		zap.Int("bytes", len(data)))
	e.renderer.PlayGif(data)
}

// exitGifLocked tears down GIF playback: stops the media, restores the
// sprite view at idle, clears the gif on the store so other consumers see
// it gone, and arms the resume delay before polling restarts.
func (e *Engine) exitGifLocked() {
	if e.gifCancel != nil {
		e.gifCancel()
		e.gifCancel = nil
	}
	e.gif = nil
	e.renderer.StopGif()
	e.renderer.SetGeometry(BaseGeometry)
	e.renderPoseLocked(avatar.PoseIdle)
	e.state = StateResuming
	e.resumeAt = e.now().Add(e.cfg.ResumeDelay)

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		if err := e.store.HideGif(ctx); err != nil {
			e.logger.Debug("Failed to clear gif state", zap.Error(err))
		}
	}()
}

func (e *Engine) renderPoseLocked(pose string) {
	if pose == e.currentPose {
		return
	}
	path, ok := e.sprites.Resolve(pose)
	if !ok {
		e.logger.Warn("Sprite not found", zap.String("pose", pose))
		return
	}
	e.renderer.SetSprite(pose, path)
	e.currentPose = pose
}

func (e *Engine) writeStop() {
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := e.store.StopAnimation(ctx); err != nil {
		e.logger.Debug("Failed to write animation completion", zap.Error(err))
	}
}

// HandlePress starts a pointer gesture at the given screen position.
func (e *Engine) HandlePress(x, y float64) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.pointer.Press(x, y)
}

// HandleMove updates an in-progress gesture. Once the drag threshold is
// crossed the avatar follows the pointer and each move streams a position
// write to the store.
func (e *Engine) HandleMove(x, y float64) {
	e.mu.Lock()
	promoted := e.pointer.Move(x, y)
	if !e.pointer.Dragging() {
		e.mu.Unlock()
		return
	}
	if promoted && e.state == StatePolling && e.sprites.Has(avatar.PosePickUp) {
		e.renderPoseLocked(avatar.PosePickUp)
	}
	pos := avatar.Position{X: int(x), Y: int(y)}
	e.position = pos
	e.renderer.SetPosition(pos)
	e.mu.Unlock()

	// Pointer events arrive one at a time from the overlay, so streaming
	// synchronously keeps position writes ordered. The write client's
	// short timeout bounds how long a move can stall.
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := e.store.UpdatePosition(ctx, pos); err != nil {
		e.logger.Debug("Failed to stream position", zap.Error(err))
	}
}

// HandleRelease ends a pointer gesture. A click cancels whatever is
// playing; a drag writes the final position and re-synchronizes from the
// store on the next tick.
func (e *Engine) HandleRelease(ctx context.Context, x, y float64) {
	e.mu.Lock()
	gesture := e.pointer.Release(x, y)

	switch gesture {
	case GestureClick:
		if e.state == StateGifPlaying {
			e.logger.Info("GIF cancelled by click")
			e.exitGifLocked()
			e.mu.Unlock()
			return
		}
		if e.session != nil {
			e.completedID = e.session.ID
			e.session = nil
		}
		e.renderPoseLocked(avatar.PoseIdle)
		e.mu.Unlock()
		e.logger.Info("Animation cancelled by click")
		if err := e.store.StopAnimation(ctx); err != nil {
			e.logger.Debug("Failed to write animation stop", zap.Error(err))
		}
	case GestureDrag:
		pos := avatar.Position{X: int(x), Y: int(y)}
		e.position = pos
		e.renderer.SetPosition(pos)
		e.mu.Unlock()
		if err := e.store.UpdatePosition(ctx, pos); err != nil {
			e.logger.Debug("Failed to write final position", zap.Error(err))
		}
		e.Tick(ctx)
	default:
		e.mu.Unlock()
	}
}

// HandleHide hides the avatar locally and records it on the store.
func (e *Engine) HandleHide(ctx context.Context) {
	e.mu.Lock()
	e.visible = false
	e.renderer.SetVisible(false)
	e.mu.Unlock()

	if err := e.store.UpdateState(ctx, map[string]interface{}{"visible": false}); err != nil {
		e.logger.Debug("Failed to record hide", zap.Error(err))
	}
}

// State returns the engine's current coarse state.
func (e *Engine) State() EngineState {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state
}

// CurrentPose returns the pose the renderer was last told to draw.
func (e *Engine) CurrentPose() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.currentPose
}
