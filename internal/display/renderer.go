package display

import "github.com/mimi-overlay/mimi/internal/avatar"

// Geometry is a window size in pixels.
type Geometry struct {
	Width  int `json:"width"`
	Height int `json:"height"`
}

// Default window geometries. GIF playback gets a wider canvas than the
// sprite view so media is not clipped.
var (
	BaseGeometry = Geometry{Width: 300, Height: 400}
	GifGeometry  = Geometry{Width: 480, Height: 400}
)

// Renderer is the drawing surface the engine pushes frames to. The engine
// owns all timing and mode decisions; the renderer only draws what it is
// told. GIF playback is the one exception: the renderer animates the GIF
// at its natural frame delays once handed the decoded media.
type Renderer interface {
	// SetSprite displays the named still sprite from the given file.
	SetSprite(pose string, path string)
	// SetPosition moves the avatar window.
	SetPosition(pos avatar.Position)
	// SetVisible shows or hides the avatar window.
	SetVisible(visible bool)
	// SetGeometry resizes the avatar window.
	SetGeometry(g Geometry)
	// PlayGif starts playing raw GIF media, replacing the sprite view.
	PlayGif(data []byte)
	// StopGif ends GIF playback and restores the sprite view.
	StopGif()
}

// NopRenderer discards everything. Used when the display runs headless.
type NopRenderer struct{}

func (NopRenderer) SetSprite(pose string, path string) {}
func (NopRenderer) SetPosition(pos avatar.Position)    {}
func (NopRenderer) SetVisible(visible bool)            {}
func (NopRenderer) SetGeometry(g Geometry)             {}
func (NopRenderer) PlayGif(data []byte)                {}
func (NopRenderer) StopGif()                           {}
