package handlers

import (
	"net/http"

	"go.uber.org/zap"

	"github.com/mimi-overlay/mimi/internal/api/httpx"
	"github.com/mimi-overlay/mimi/internal/avatar"
	"github.com/mimi-overlay/mimi/pkg/logger"
)

// AnimationHandler serves the animation and gif convenience endpoints,
// resolving named library animations when a request carries no frames.
type AnimationHandler struct {
	logger  *logger.Logger
	store   *avatar.Store
	library *avatar.Library
}

// NewAnimationHandler creates a new animation handler
func NewAnimationHandler(log *logger.Logger, store *avatar.Store, library *avatar.Library) *AnimationHandler {
	return &AnimationHandler{
		logger:  log.WithComponent("animation-handler"),
		store:   store,
		library: library,
	}
}

// PlayAnimationRequest is the body of POST /play_animation. Frames may be
// omitted when ID names a library animation; explicit fields override what
// the library entry carries.
type PlayAnimationRequest struct {
	ID              string   `json:"id"`
	Name            string   `json:"name,omitempty"`
	Frames          []string `json:"frames,omitempty"`
	FPS             float64  `json:"fps,omitempty"`
	DurationPerPose float64  `json:"durationPerPose,omitempty"`
	Loop            *bool    `json:"loop,omitempty"`
}

// ShowGifRequest is the body of POST /show_gif
type ShowGifRequest struct {
	URL      string  `json:"url"`
	Duration float64 `json:"duration,omitempty"`
}

// CreateAnimationRequest is the body of POST /animations
type CreateAnimationRequest struct {
	ID     string   `json:"id"`
	Name   string   `json:"name"`
	Frames []string `json:"frames"`
	FPS    float64  `json:"fps,omitempty"`
	Loop   bool     `json:"loop,omitempty"`
}

// ListAnimationsResponse is the body of GET /animations
type ListAnimationsResponse struct {
	Animations []avatar.Animation `json:"animations"`
	Total      int                `json:"total"`
}

// HandlePlayAnimation handles POST /play_animation
func (h *AnimationHandler) HandlePlayAnimation(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		httpx.MethodNotAllowed(w)
		return
	}

	var req PlayAnimationRequest
	if err := httpx.Decode(r, &req); err != nil {
		httpx.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if req.ID == "" {
		httpx.Error(w, http.StatusBadRequest, "animation id is required")
		return
	}

	desc := h.resolveDescriptor(req)
	if len(desc.Sequence) == 0 {
		httpx.Error(w, http.StatusBadRequest, "animation must have at least one frame")
		return
	}

	if err := h.store.PlayAnimation(desc); err != nil {
		h.logger.Warn("Rejected play_animation request",
			zap.String("id", req.ID),
			zap.Error(err))
		httpx.Error(w, http.StatusBadRequest, "invalid animation request")
		return
	}

	h.logger.Info("Animation started",
		zap.String("id", desc.ID),
		zap.Int("frames", len(desc.Sequence)),
		zap.Bool("loop", desc.Loop))

	httpx.OK(w)
}

// resolveDescriptor turns a request into a playable descriptor. Explicit
// frames win; otherwise the library entry for the id is used; an unknown id
// falls back to a one-frame still of the same name, mirroring how a bare
// pose name used to be playable.
func (h *AnimationHandler) resolveDescriptor(req PlayAnimationRequest) avatar.AnimationDescriptor {
	var desc avatar.AnimationDescriptor

	switch {
	case len(req.Frames) > 0:
		desc = avatar.AnimationDescriptor{
			ID:       req.ID,
			Name:     req.Name,
			Sequence: req.Frames,
		}
	default:
		if anim, ok := h.library.Get(req.ID); ok {
			desc = anim.Descriptor(req.ID)
		} else {
			desc = avatar.AnimationDescriptor{
				ID:       req.ID,
				Name:     req.Name,
				Sequence: []string{req.ID},
			}
		}
	}

	if req.FPS > 0 {
		desc.FPS = req.FPS
	}
	if req.DurationPerPose > 0 {
		desc.DurationPerPose = req.DurationPerPose
	}
	if req.Loop != nil {
		desc.Loop = *req.Loop
	}

	return desc
}

// HandleStopAnimation handles DELETE /animate
func (h *AnimationHandler) HandleStopAnimation(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodDelete {
		httpx.MethodNotAllowed(w)
		return
	}

	if err := h.store.StopAnimation(); err != nil {
		h.logger.Error("Failed to stop animation", zap.Error(err))
		httpx.Error(w, http.StatusInternalServerError, "failed to stop animation")
		return
	}

	h.logger.Info("Animation stopped")
	httpx.OK(w)
}

// HandleShowGif handles POST /show_gif
func (h *AnimationHandler) HandleShowGif(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		httpx.MethodNotAllowed(w)
		return
	}

	var req ShowGifRequest
	if err := httpx.Decode(r, &req); err != nil {
		httpx.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if req.URL == "" {
		httpx.Error(w, http.StatusBadRequest, "gif url is required")
		return
	}

	if err := h.store.ShowGif(req.URL, req.Duration); err != nil {
		h.logger.Warn("Rejected show_gif request", zap.Error(err))
		httpx.Error(w, http.StatusBadRequest, "invalid gif request")
		return
	}

	h.logger.Info("GIF requested",
		zap.String("url", req.URL),
		zap.Float64("duration", req.Duration))

	httpx.OK(w)
}

// HandleHideGif handles POST /hide_gif
func (h *AnimationHandler) HandleHideGif(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		httpx.MethodNotAllowed(w)
		return
	}

	if err := h.store.HideGif(); err != nil {
		h.logger.Error("Failed to hide gif", zap.Error(err))
		httpx.Error(w, http.StatusInternalServerError, "failed to hide gif")
		return
	}

	h.logger.Info("GIF hidden")
	httpx.OK(w)
}

// HandleAnimations handles GET /animations (list) and POST /animations (create)
func (h *AnimationHandler) HandleAnimations(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		animations := h.library.List()
		httpx.WriteJSON(w, http.StatusOK, ListAnimationsResponse{
			Animations: animations,
			Total:      len(animations),
		})

	case http.MethodPost:
		var req CreateAnimationRequest
		if err := httpx.Decode(r, &req); err != nil {
			httpx.Error(w, http.StatusBadRequest, "invalid request body")
			return
		}

		anim := avatar.Animation{
			ID:     req.ID,
			Name:   req.Name,
			Frames: req.Frames,
			FPS:    req.FPS,
			Loop:   req.Loop,
		}

		if err := h.library.Save(anim); err != nil {
			h.logger.Warn("Failed to save animation",
				zap.String("id", req.ID),
				zap.Error(err))
			httpx.Error(w, http.StatusBadRequest, "failed to save animation")
			return
		}

		httpx.OK(w)

	default:
		httpx.MethodNotAllowed(w)
	}
}
