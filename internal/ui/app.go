package ui

import (
	"github.com/Boskeroni/yage/internal/emu"
	"github.com/Boskeroni/yage/internal/ppu"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/inpututil"
)

// shadePalette maps the four shades plus the blank sentinel to RGBA.
type shadePalette [ppu.BlankShade + 1][4]byte

var palettes = []shadePalette{
	// Classic green
	{{0xE0, 0xF8, 0xD0, 0xFF}, {0x88, 0xC0, 0x70, 0xFF}, {0x34, 0x68, 0x56, 0xFF}, {0x08, 0x18, 0x20, 0xFF}, {0x08, 0x18, 0x20, 0xFF}},
	// Grayscale
	{{0xFF, 0xFF, 0xFF, 0xFF}, {0xAA, 0xAA, 0xAA, 0xFF}, {0x55, 0x55, 0x55, 0xFF}, {0x00, 0x00, 0x00, 0xFF}, {0x00, 0x00, 0x00, 0xFF}},
	// Sepia
	{{0xF8, 0xE8, 0xC8, 0xFF}, {0xD8, 0xB0, 0x78, 0xFF}, {0x98, 0x68, 0x30, 0xFF}, {0x38, 0x28, 0x08, 0xFF}, {0x38, 0x28, 0x08, 0xFF}},
}

// App is the ebiten shell around a Machine: it polls the keyboard into
// the joypad, runs one guest frame per host tick (four in turbo), and
// blits the shade buffer through the selected palette.
type App struct {
	cfg    Config
	m      *emu.Machine
	tex    *ebiten.Image
	pix    []byte // RGBA staging buffer
	paused bool
	turbo  bool
}

func NewApp(cfg Config, m *emu.Machine) *App {
	cfg.Defaults()
	title := cfg.Title
	if t := m.Header().Title; t != "" {
		title += " - [" + t + "]"
	}
	ebiten.SetWindowTitle(title)
	ebiten.SetWindowSize(ppu.ScreenWidth*cfg.Scale, ppu.ScreenHeight*cfg.Scale)
	return &App{
		cfg: cfg,
		m:   m,
		tex: ebiten.NewImage(ppu.ScreenWidth, ppu.ScreenHeight),
		pix: make([]byte, emu.FrameSize*4),
	}
}

// Run blocks until the window closes or the machine errors.
func (a *App) Run() error { return ebiten.RunGame(a) }

func (a *App) Update() error {
	if inpututil.IsKeyJustPressed(ebiten.KeyP) {
		a.paused = !a.paused
	}
	if inpututil.IsKeyJustPressed(ebiten.KeyTab) {
		a.turbo = !a.turbo
	}
	if inpututil.IsKeyJustPressed(ebiten.KeyF1) {
		a.cfg.Palette = (a.cfg.Palette + 1) % len(palettes)
	}
	if a.paused {
		return nil
	}

	a.m.SetButtons(pollButtons())

	frames := 1
	if a.turbo {
		frames = 4
	}
	for i := 0; i < frames; i++ {
		if err := a.m.StepFrame(); err != nil {
			return err
		}
	}
	return nil
}

func (a *App) Draw(screen *ebiten.Image) {
	pal := palettes[a.cfg.Palette]
	for i, shade := range a.m.Frame() {
		copy(a.pix[i*4:], pal[shade][:])
	}
	a.tex.WritePixels(a.pix)
	screen.DrawImage(a.tex, nil)
}

func (a *App) Layout(int, int) (int, int) {
	return ppu.ScreenWidth, ppu.ScreenHeight
}

func pollButtons() emu.Buttons {
	return emu.Buttons{
		A:      ebiten.IsKeyPressed(ebiten.KeyZ),
		B:      ebiten.IsKeyPressed(ebiten.KeyX),
		Start:  ebiten.IsKeyPressed(ebiten.KeyEnter),
		Select: ebiten.IsKeyPressed(ebiten.KeyBackspace),
		Up:     ebiten.IsKeyPressed(ebiten.KeyArrowUp),
		Down:   ebiten.IsKeyPressed(ebiten.KeyArrowDown),
		Left:   ebiten.IsKeyPressed(ebiten.KeyArrowLeft),
		Right:  ebiten.IsKeyPressed(ebiten.KeyArrowRight),
	}
}
