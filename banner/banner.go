// Package banner draws the "welcome" image posted when a member finishes
// verification: background, Habbo avatar on the left, name and a short text
// on the right.
package banner

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	_ "image/jpeg" // background images may be jpeg
	"image/png"
	"log/slog"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/nfnt/resize"
	gocache "github.com/patrickmn/go-cache"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/font/gofont/goregular"
	"golang.org/x/image/font/opentype"
	"golang.org/x/image/math/fixed"
)

// AvatarSource fetches the avatar picture for a profile name.
type AvatarSource interface {
	Avatar(ctx context.Context, name string) (image.Image, error)
}

// Options controls the banner layout and look.
type Options struct {
	Width, Height   int
	Text            string
	Background      color.RGBA
	BackgroundImage string
	FontPath        string
	FontSize        float64
	MainColor       color.RGBA
	SecondaryColor  color.RGBA
}

// DefaultOptions mirrors the stock look of the bot.
func DefaultOptions() Options {
	return Options{
		Width:          500,
		Height:         200,
		Text:           "Welcome \nto MYT!",
		Background:     color.RGBA{R: 20, G: 20, B: 20, A: 255},
		FontSize:       24,
		MainColor:      color.RGBA{R: 255, G: 255, B: 255, A: 255},
		SecondaryColor: color.RGBA{R: 255, G: 181, B: 77, A: 255},
	}
}

var (
	avatarOffset = image.Pt(20, 0)
	nameOrigin   = image.Pt(200, 60)
	textOrigin   = image.Pt(200, 90)
)

const avatarTTL = 10 * time.Minute

// Renderer composes banners. It is safe for concurrent use.
type Renderer struct {
	opts    Options
	avatars AvatarSource
	cache   *gocache.Cache

	faceOnce sync.Once
	face     font.Face
	faceMu   sync.Mutex // font.Face implementations are not goroutine safe
}

// New returns a Renderer. Zero-valued size/font fields fall back to DefaultOptions.
func New(opts Options, avatars AvatarSource) *Renderer {
	def := DefaultOptions()
	if opts.Width <= 0 || opts.Height <= 0 {
		opts.Width, opts.Height = def.Width, def.Height
	}
	if opts.FontSize <= 0 {
		opts.FontSize = def.FontSize
	}
	return &Renderer{
		opts:    opts,
		avatars: avatars,
		cache:   gocache.New(avatarTTL, 2*avatarTTL),
	}
}

// Render returns the PNG bytes of the banner for name.
func (r *Renderer) Render(ctx context.Context, name string) ([]byte, error) {
	avatar, err := r.avatar(ctx, name)
	if err != nil {
		return nil, err
	}

	canvas := image.NewRGBA(image.Rect(0, 0, r.opts.Width, r.opts.Height))
	draw.Draw(canvas, canvas.Bounds(), r.background(), image.Point{}, draw.Src)
	draw.Draw(canvas, avatar.Bounds().Sub(avatar.Bounds().Min).Add(avatarOffset), avatar, avatar.Bounds().Min, draw.Over)

	r.faceMu.Lock()
	face := r.fontFace()
	drawText(canvas, face, nameOrigin, name+",", r.opts.MainColor)
	drawText(canvas, face, textOrigin, r.opts.Text, r.opts.SecondaryColor)
	r.faceMu.Unlock()

	var buf bytes.Buffer
	if err := png.Encode(&buf, canvas); err != nil {
		return nil, fmt.Errorf("encode banner: %w", err)
	}
	return buf.Bytes(), nil
}

func (r *Renderer) avatar(ctx context.Context, name string) (image.Image, error) {
	key := strings.ToLower(name)
	if v, ok := r.cache.Get(key); ok {
		return v.(image.Image), nil
	}
	if r.avatars == nil {
		return nil, fmt.Errorf("no avatar source configured")
	}
	img, err := r.avatars.Avatar(ctx, name)
	if err != nil {
		return nil, fmt.Errorf("fetch avatar: %w", err)
	}
	r.cache.SetDefault(key, img)
	return img, nil
}

// background loads the configured image stretched to the banner size, or a
// solid fill when there is none or it cannot be read.
func (r *Renderer) background() image.Image {
	solid := image.NewUniform(r.opts.Background)
	if r.opts.BackgroundImage == "" {
		return solid
	}
	f, err := os.Open(r.opts.BackgroundImage)
	if err != nil {
		if !os.IsNotExist(err) {
			slog.Warn("banner background unreadable; using solid color", slog.String("path", r.opts.BackgroundImage), slog.Any("err", err))
		}
		return solid
	}
	defer f.Close() //nolint:errcheck // read-only file
	img, _, err := image.Decode(f)
	if err != nil {
		slog.Warn("banner background decode failed; using solid color", slog.String("path", r.opts.BackgroundImage), slog.Any("err", err))
		return solid
	}
	return resize.Resize(uint(r.opts.Width), uint(r.opts.Height), img, resize.Bilinear)
}

// fontFace loads FontPath at FontSize. Without a usable font file it falls
// back to the bundled Go Regular at the same size, and to basicfont only if
// that cannot be built.
func (r *Renderer) fontFace() font.Face {
	r.faceOnce.Do(func() {
		raw := goregular.TTF
		if path := r.opts.FontPath; path != "" {
			b, err := os.ReadFile(path)
			switch {
			case err == nil:
				raw = b
			case !os.IsNotExist(err):
				slog.Warn("banner font unreadable; using builtin", slog.String("path", path), slog.Any("err", err))
			}
		}
		face, err := sizedFace(raw, r.opts.FontSize)
		if err != nil && r.opts.FontPath != "" {
			slog.Warn("banner font parse failed; using builtin", slog.String("path", r.opts.FontPath), slog.Any("err", err))
			face, err = sizedFace(goregular.TTF, r.opts.FontSize)
		}
		if err != nil {
			slog.Warn("builtin banner font failed; using fixed bitmap font", slog.Any("err", err))
			face = basicfont.Face7x13
		}
		r.face = face
	})
	return r.face
}

func sizedFace(raw []byte, size float64) (font.Face, error) {
	parsed, err := opentype.Parse(raw)
	if err != nil {
		return nil, err
	}
	return opentype.NewFace(parsed, &opentype.FaceOptions{Size: size, DPI: 72, Hinting: font.HintingFull})
}

// drawText writes text with its top-left corner at origin, one line per "\n".
func drawText(dst draw.Image, face font.Face, origin image.Point, text string, col color.Color) {
	m := face.Metrics()
	lineHeight := m.Height
	if lineHeight == 0 {
		lineHeight = m.Ascent + m.Descent
	}
	d := &font.Drawer{Dst: dst, Src: image.NewUniform(col), Face: face}
	baseline := fixed.I(origin.Y) + m.Ascent
	for _, line := range strings.Split(text, "\n") {
		d.Dot = fixed.Point26_6{X: fixed.I(origin.X), Y: baseline}
		d.DrawString(line)
		baseline += lineHeight
	}
}
