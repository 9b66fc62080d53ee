package display

import (
	"bytes"
	"context"
	"image/gif"
	"io"
	"net/http"

	"github.com/samber/oops"
)

// maxGifBytes caps how much GIF media the display will pull down.
const maxGifBytes = 32 << 20

// fetchGif downloads and validates GIF media from a URL. It returns the raw
// bytes for the renderer along with the decoded frame count. Any failure, a
// bad status, truncated media, or a payload that is not a GIF, is terminal
// for this playback.
func fetchGif(ctx context.Context, client *http.Client, url string) ([]byte, int, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, 0, oops.In("display").With("url", url).Wrapf(err, "failed to build gif request")
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, 0, oops.In("display").With("url", url).Wrapf(err, "gif fetch failed")
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, 0, oops.In("display").
			With("url", url).
			With("status", resp.StatusCode).
			Errorf("gif fetch returned %d", resp.StatusCode)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxGifBytes))
	if err != nil {
		return nil, 0, oops.In("display").With("url", url).Wrapf(err, "failed to read gif body")
	}

	img, err := gif.DecodeAll(bytes.NewReader(data))
	if err != nil {
		return nil, 0, oops.In("display").With("url", url).Wrapf(err, "payload is not a valid gif")
	}

	return data, len(img.Image), nil
}
