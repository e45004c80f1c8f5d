package main

import (
	"fmt"
	"image"
	"image/png"
	"log"
	"os"
	"strings"

	"github.com/alecthomas/kong"

	"github.com/Boskeroni/yage/internal/emu"
	"github.com/Boskeroni/yage/internal/ppu"
	"github.com/Boskeroni/yage/internal/ui"
)

var cli struct {
	ROM    string `arg:"" help:"Path to the ROM image (.gb)." type:"existingfile"`
	Booted bool   `short:"b" help:"Start from the post-boot state instead of running the boot sequence."`
	Save   bool   `short:"s" help:"Load and persist battery RAM next to the ROM (.sav)."`

	Scale   int    `default:"3" help:"Window scale factor."`
	Palette int    `default:"0" help:"Shade palette index."`
	Title   string `default:"yage" help:"Window title."`

	Headless bool   `help:"Run without a window."`
	Frames   int    `default:"300" help:"Frames to run in headless mode."`
	OutPNG   string `name:"outpng" help:"Write the final headless frame to a PNG."`
}

func main() {
	ctx := kong.Parse(&cli)

	rom, err := os.ReadFile(cli.ROM)
	ctx.FatalIfErrorf(err, "read ROM")

	m, err := emu.New(rom, emu.Config{Booted: cli.Booted})
	ctx.FatalIfErrorf(err, "load cartridge")

	h := m.Header()
	log.Printf("ROM: %q type=%s banks=%d ram=%dB", h.Title, h.CartTypeStr, h.ROMBanks, h.RAMSizeBytes)

	var savPath string
	if cli.Save {
		savPath = strings.TrimSuffix(cli.ROM, ".gb") + ".sav"
		if data, err := os.ReadFile(savPath); err == nil {
			if m.LoadBattery(data) {
				log.Printf("loaded save RAM: %s (%d bytes)", savPath, len(data))
			}
		}
	}

	if cli.Headless {
		err = runHeadless(m, cli.Frames, cli.OutPNG)
	} else {
		app := ui.NewApp(ui.Config{Title: cli.Title, Scale: cli.Scale, Palette: cli.Palette}, m)
		err = app.Run()
	}

	if cli.Save && savPath != "" {
		if data, ok := m.SaveBattery(); ok {
			if werr := os.WriteFile(savPath, data, 0644); werr == nil {
				log.Printf("wrote %s", savPath)
			}
		}
	}
	ctx.FatalIfErrorf(err)
}

func runHeadless(m *emu.Machine, frames int, pngPath string) error {
	if frames <= 0 {
		frames = 1
	}
	for i := 0; i < frames; i++ {
		if err := m.StepFrame(); err != nil {
			return fmt.Errorf("frame %d: %w", i, err)
		}
	}
	if pngPath == "" {
		return nil
	}
	return writeFramePNG(m.Frame(), pngPath)
}

// writeFramePNG renders the shade buffer through a grayscale ramp.
func writeFramePNG(frame []byte, path string) error {
	shades := [ppu.BlankShade + 1]byte{0xFF, 0xAA, 0x55, 0x00, 0x00}
	img := image.NewGray(image.Rect(0, 0, ppu.ScreenWidth, ppu.ScreenHeight))
	for i, s := range frame {
		img.Pix[i] = shades[s]
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	return png.Encode(f, img)
}
