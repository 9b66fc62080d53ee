package display

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"time"

	"github.com/samber/oops"

	"github.com/mimi-overlay/mimi/internal/avatar"
	"github.com/mimi-overlay/mimi/pkg/logger"
)

// StoreClient talks to the state store over HTTP. Reads and writes use
// separate short timeouts so a stalled store degrades the display to its
// last known state instead of freezing the render loop.
type StoreClient struct {
	baseURL     string
	readClient  *http.Client
	writeClient *http.Client
	logger      *logger.Logger
}

// StoreClientConfig holds the store endpoint and per-direction timeouts.
type StoreClientConfig struct {
	BaseURL      string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// NewStoreClient creates a client for the given store endpoint.
func NewStoreClient(config StoreClientConfig, log *logger.Logger) *StoreClient {
	return &StoreClient{
		baseURL:     config.BaseURL,
		readClient:  &http.Client{Timeout: config.ReadTimeout},
		writeClient: &http.Client{Timeout: config.WriteTimeout},
		logger:      log.WithComponent("store-client"),
	}
}

// GetState fetches the current avatar state.
func (c *StoreClient) GetState(ctx context.Context) (avatar.AvatarState, error) {
	var state avatar.AvatarState

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/state", nil)
	if err != nil {
		return state, oops.In("display").Wrapf(err, "failed to build state request")
	}

	resp, err := c.readClient.Do(req)
	if err != nil {
		return state, oops.In("display").Wrapf(err, "failed to fetch state")
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return state, oops.In("display").
			With("status", resp.StatusCode).
			Errorf("state fetch returned %d", resp.StatusCode)
	}

	if err := json.NewDecoder(resp.Body).Decode(&state); err != nil {
		return state, oops.In("display").Wrapf(err, "failed to decode state")
	}
	return state, nil
}

// UpdateState posts a partial state update. Only the keys present in fields
// are touched; a nil value clears the corresponding key.
func (c *StoreClient) UpdateState(ctx context.Context, fields map[string]interface{}) error {
	body, err := json.Marshal(fields)
	if err != nil {
		return oops.In("display").Wrapf(err, "failed to encode state update")
	}
	return c.post(ctx, "/state", body)
}

// UpdatePosition writes the avatar position during and after a drag.
func (c *StoreClient) UpdatePosition(ctx context.Context, pos avatar.Position) error {
	return c.UpdateState(ctx, map[string]interface{}{"position": pos})
}

// StopAnimation clears any running animation on the store.
func (c *StoreClient) StopAnimation(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodDelete, c.baseURL+"/animate", nil)
	if err != nil {
		return oops.In("display").Wrapf(err, "failed to build stop request")
	}
	return c.do(c.writeClient, req)
}

// HideGif clears the gif state on the store and resets the pose to idle.
func (c *StoreClient) HideGif(ctx context.Context) error {
	return c.post(ctx, "/hide_gif", nil)
}

// CheckHealth probes the store health endpoint.
func (c *StoreClient) CheckHealth(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/health", nil)
	if err != nil {
		return oops.In("display").Wrapf(err, "failed to build health request")
	}
	return c.do(c.readClient, req)
}

func (c *StoreClient) post(ctx context.Context, path string, body []byte) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return oops.In("display").Wrapf(err, "failed to build request for %s", path)
	}
	req.Header.Set("Content-Type", "application/json")
	return c.do(c.writeClient, req)
}

func (c *StoreClient) do(client *http.Client, req *http.Request) error {
	resp, err := client.Do(req)
	if err != nil {
		return oops.In("display").Wrapf(err, "request to %s failed", req.URL.Path)
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)

	if resp.StatusCode >= 400 {
		return oops.In("display").
			With("status", resp.StatusCode).
			Errorf("%s returned %d", req.URL.Path, resp.StatusCode)
	}
	return nil
}
