package ppu

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestPPU() (*PPU, *byte) {
	ifReg := new(byte)
	p := New(func(bit int) { *ifReg |= 1 << bit })
	return p, ifReg
}

// advanceToLine runs the machine until the target line is about to start,
// discarding emitted scanlines. Works from any mid-line position.
func advanceToLine(p *PPU, line byte) {
	for i := 0; i < 2*70224; i++ {
		if p.ly == line && p.ticks == 0 && p.state == modeOAMScan {
			return
		}
		p.Advance(2)
	}
	panic("target line never reached")
}

func TestTileDecode_RoundTrip(t *testing.T) {
	data := [16]byte{0x3C, 0x7E, 0x42, 0x42, 0x42, 0x42, 0x42, 0x42, 0x7E, 0x5E, 0x7E, 0x0A, 0x7C, 0x56, 0x38, 0x7C}
	tile := DecodeTile(data)
	assert.Equal(t, data, EncodeTile(tile))

	// Known row: low 0x3C, high 0x7E -> 0 2 3 3 3 3 2 0.
	assert.Equal(t, TileRow{0, 2, 3, 3, 3, 3, 2, 0}, tile[0])
}

func TestAdvance_ModeSequence(t *testing.T) {
	p, ifReg := newTestPPU()
	p.CPUWrite(0xFF40, 0x80)

	p.Advance(oamDots)
	assert.EqualValues(t, 3, p.currentMode(), "OAM scan ends at 80 dots")

	line := p.Advance(drawDots - oamDots)
	require.NotNil(t, line, "draw end emits the scanline")
	assert.Len(t, line, ScreenWidth)
	assert.EqualValues(t, 0, p.currentMode())

	p.Advance(lineDots - drawDots)
	assert.EqualValues(t, 2, p.currentMode())
	assert.EqualValues(t, 1, p.ly)
	_ = ifReg
}

func TestAdvance_VBlankInterrupt(t *testing.T) {
	p, ifReg := newTestPPU()
	p.CPUWrite(0xFF40, 0x80)
	advanceToLine(p, 143)
	*ifReg = 0

	p.Advance(oamDots)
	p.Advance(drawDots - oamDots)
	p.Advance(lineDots - drawDots)
	assert.EqualValues(t, 144, p.ly)
	assert.EqualValues(t, 1, p.currentMode())
	assert.NotZero(t, *ifReg&1, "vblank interrupt requested at LY=144")

	// Ten lines later the frame restarts.
	p.Advance(lineDots * 10)
	p.Advance(4)
	assert.EqualValues(t, 0, p.ly)
	assert.EqualValues(t, 2, p.currentMode())
}

func TestAdvance_LYCCoincidence(t *testing.T) {
	p, ifReg := newTestPPU()
	p.CPUWrite(0xFF40, 0x80)
	p.CPUWrite(0xFF45, 0x01)
	p.CPUWrite(0xFF41, 1<<6)

	advanceToLine(p, 1)
	*ifReg = 0
	p.Advance(4) // dot 0 of line 1
	assert.NotZero(t, p.CPURead(0xFF41)&(1<<2), "coincidence flag set")
	assert.NotZero(t, *ifReg&2, "STAT interrupt on LYC match")
}

func TestAdvance_LCDOffProducesNothing(t *testing.T) {
	p, _ := newTestPPU()
	for i := 0; i < 100; i++ {
		assert.Nil(t, p.Advance(456))
	}
	assert.Zero(t, p.ly)
}

func TestCPUWrite_LCDCDisableClearsModeAndLY(t *testing.T) {
	p, _ := newTestPPU()
	p.CPUWrite(0xFF40, 0x80)
	advanceToLine(p, 5)
	p.Advance(oamDots) // mode 3

	p.CPUWrite(0xFF40, 0x00)
	assert.Zero(t, p.ly)
	assert.Zero(t, p.CPURead(0xFF41)&0x03)
}

func TestBlockers_VRAMAndOAM(t *testing.T) {
	p, _ := newTestPPU()
	p.CPUWrite(0x8000, 0x11)
	p.CPUWrite(0xFE00, 0x22)
	assert.EqualValues(t, 0x11, p.CPURead(0x8000))
	assert.EqualValues(t, 0x22, p.CPURead(0xFE00))

	p.CPUWrite(0xFF40, 0x80)
	p.Advance(4) // mode 2: OAM blocked, VRAM open
	assert.EqualValues(t, 0xFF, p.CPURead(0xFE00))
	assert.EqualValues(t, 0x11, p.CPURead(0x8000))
	p.CPUWrite(0xFE00, 0x33)
	assert.EqualValues(t, 0x22, p.UncheckedRead(0xFE00), "blocked write dropped")

	p.Advance(oamDots) // mode 3: both blocked
	assert.EqualValues(t, 0xFF, p.CPURead(0x8000))
	assert.EqualValues(t, 0xFF, p.CPURead(0xFE00))
	assert.EqualValues(t, 0x11, p.UncheckedRead(0x8000))
}

// Scenario: LCDC=0x91, BG map all tile 0 (all-zero pixels), BGP=0xE4 ->
// the emitted scanline is 160 copies of shade 0.
func TestScanline_AllZeroBackground(t *testing.T) {
	p, _ := newTestPPU()
	p.CPUWrite(0xFF47, 0xE4)
	p.CPUWrite(0xFF40, 0x91)

	p.Advance(oamDots)
	line := p.Advance(drawDots - oamDots)
	require.NotNil(t, line)
	for x, px := range line {
		require.EqualValues(t, 0, px, "pixel %d", x)
	}
}

func TestScanline_BackgroundScrollAndPalette(t *testing.T) {
	p, _ := newTestPPU()
	// Tile 1: every pixel color 3. Tile data at 0x8010.
	for i := 0; i < 16; i++ {
		p.UncheckedWrite(uint16(0x8010+i), 0xFF)
	}
	// Map row 0: first tile is tile 1, rest tile 0.
	p.UncheckedWrite(0x9800, 0x01)
	p.CPUWrite(0xFF47, 0xE4) // 3 -> shade 3, 0 -> shade 0
	p.CPUWrite(0xFF40, 0x91)

	p.Advance(oamDots)
	line := p.Advance(drawDots - oamDots)
	require.NotNil(t, line)
	for x := 0; x < 8; x++ {
		assert.EqualValues(t, 3, line[x], "tile 1 pixels")
	}
	assert.EqualValues(t, 0, line[8])

	// Scroll four pixels: only four tile-1 pixels remain on screen.
	advanceToLine(p, 0)
	p.CPUWrite(0xFF43, 0x04)
	p.Advance(oamDots)
	line = p.Advance(drawDots - oamDots)
	require.NotNil(t, line)
	assert.EqualValues(t, 3, line[3])
	assert.EqualValues(t, 0, line[4])
}

func TestScanline_WindowGating(t *testing.T) {
	p, _ := newTestPPU()
	for i := 0; i < 16; i++ {
		p.UncheckedWrite(uint16(0x8010+i), 0xFF) // tile 1, color 3
	}
	// Window map (0x9C00) all tile 1.
	for i := 0; i < 32*32; i++ {
		p.UncheckedWrite(uint16(0x9C00+i), 0x01)
	}
	p.CPUWrite(0xFF47, 0xE4)
	p.CPUWrite(0xFF4A, 2)    // WY
	p.CPUWrite(0xFF4B, 7)    // WX: window starts at screen X 0
	p.CPUWrite(0xFF40, 0xF1) // LCD, window on, map 0x9C00, BG on

	// WY > LY: no window on line 0.
	p.Advance(oamDots)
	line := p.Advance(drawDots - oamDots)
	require.NotNil(t, line)
	assert.EqualValues(t, 0, line[0])
	assert.Zero(t, p.windowLine)

	// WY == LY renders, and consumes one internal window line.
	advanceToLine(p, 2)
	p.Advance(oamDots)
	line = p.Advance(drawDots - oamDots)
	require.NotNil(t, line)
	assert.EqualValues(t, 3, line[0])
	assert.EqualValues(t, 1, p.windowLine)
}

func TestScanline_WindowLeftClipBelowWX7(t *testing.T) {
	render := func(wx byte) []byte {
		p, _ := newTestPPU()
		// Tile 1 row 0 decodes to 0 2 3 3 3 3 2 0.
		p.UncheckedWrite(0x8010, 0x3C)
		p.UncheckedWrite(0x8011, 0x7E)
		for i := 0; i < 32*32; i++ {
			p.UncheckedWrite(uint16(0x9C00+i), 0x01)
		}
		p.CPUWrite(0xFF47, 0xE4)
		p.CPUWrite(0xFF4A, 0)
		p.CPUWrite(0xFF4B, wx)
		p.CPUWrite(0xFF40, 0xF1)
		p.Advance(oamDots)
		line := p.Advance(drawDots - oamDots)
		require.NotNil(t, line)
		return line
	}

	// WX=7 anchors window column 0 at screen X 0.
	line := render(7)
	assert.EqualValues(t, 0, line[0])
	assert.EqualValues(t, 2, line[1])

	// WX=4 clips the window's first three columns: screen X 0 shows
	// window column 3, and the first tile ends three pixels early.
	line = render(4)
	assert.EqualValues(t, 3, line[0])
	assert.EqualValues(t, 2, line[3], "window column 6 lands at screen X 3")
	assert.EqualValues(t, 0, line[4], "window column 7 lands at screen X 4")
}

func TestScanline_SpriteSelectionCapAndOrder(t *testing.T) {
	p, _ := newTestPPU()
	// Sprite tile 2: solid color 3.
	for i := 0; i < 16; i++ {
		p.UncheckedWrite(uint16(0x8020+i), 0xFF)
	}
	// Twelve sprites on line 0, descending X so OAM order != X order.
	for i := 0; i < 12; i++ {
		base := uint16(0xFE00 + i*4)
		p.UncheckedWrite(base, 16)              // Y: covers LY 0
		p.UncheckedWrite(base+1, byte(100-i*8)) // X
		p.UncheckedWrite(base+2, 0x02)
		p.UncheckedWrite(base+3, 0x00)
	}
	p.CPUWrite(0xFF47, 0xE4)
	p.CPUWrite(0xFF48, 0xE4)
	p.CPUWrite(0xFF40, 0x93) // LCD, BG, sprites

	p.Advance(oamDots)
	line := p.Advance(drawDots - oamDots)
	require.NotNil(t, line)

	// Only the first ten OAM entries were selected: X=100-72=28..100.
	// Sprites 10 and 11 (X=20, 12) lost their slots.
	assert.EqualValues(t, 0, line[12-8], "11th sprite not drawn")
	assert.EqualValues(t, 3, line[28-8], "lowest selected X drawn")
	assert.EqualValues(t, 3, line[100-8+7], "highest X drawn")
}

func TestScanline_SpritePriorityBehindBackground(t *testing.T) {
	p, _ := newTestPPU()
	// BG tile 1 solid color 2 in map slot 0; elsewhere tile 0.
	for i := 0; i < 16; i++ {
		p.UncheckedWrite(uint16(0x8010+i), 0x00)
	}
	for i := 0; i < 8; i++ {
		p.UncheckedWrite(uint16(0x8010+i*2+1), 0xFF) // high plane only: color 2
	}
	p.UncheckedWrite(0x9800, 0x01)
	// Sprite tile 2 solid color 3 straddling the tile seam (screen X
	// 4..11), priority behind.
	for i := 0; i < 16; i++ {
		p.UncheckedWrite(uint16(0x8020+i), 0xFF)
	}
	p.UncheckedWrite(0xFE00, 16)
	p.UncheckedWrite(0xFE01, 12)
	p.UncheckedWrite(0xFE02, 0x02)
	p.UncheckedWrite(0xFE03, attrPriority)
	p.CPUWrite(0xFF47, 0xE4)
	p.CPUWrite(0xFF48, 0x1B)
	p.CPUWrite(0xFF40, 0x93)

	p.Advance(oamDots)
	line := p.Advance(drawDots - oamDots)
	require.NotNil(t, line)

	// BG color 2 hides the sprite under priority 1; past the BG tile the
	// background is color 0 and the sprite shows.
	assert.EqualValues(t, shade(2, 0xE4), line[4])
	assert.EqualValues(t, shade(3, 0x1B), line[8])
}

func TestScanline_TallSpriteHalves(t *testing.T) {
	p, _ := newTestPPU()
	// Tile 4 solid color 1, tile 5 solid color 3.
	for i := 0; i < 8; i++ {
		p.UncheckedWrite(uint16(0x8040+i*2), 0xFF)   // low plane: color 1
		p.UncheckedWrite(uint16(0x8050+i*2), 0xFF)   // tile 5 low
		p.UncheckedWrite(uint16(0x8050+i*2+1), 0xFF) // tile 5 high
	}
	// 8x16 sprite using tiles 4/5 at Y=16 (covers LY 0..15), X=8.
	p.UncheckedWrite(0xFE00, 16)
	p.UncheckedWrite(0xFE01, 8)
	p.UncheckedWrite(0xFE02, 0x05) // odd index: bit 0 ignored
	p.UncheckedWrite(0xFE03, 0x00)
	p.CPUWrite(0xFF48, 0xE4)
	p.CPUWrite(0xFF40, 0x97) // LCD, BG, sprites, 8x16

	p.Advance(oamDots)
	line := p.Advance(drawDots - oamDots)
	require.NotNil(t, line)
	assert.EqualValues(t, 1, line[0], "top half uses tile index & 0xFE")

	advanceToLine(p, 8)
	p.Advance(oamDots)
	line = p.Advance(drawDots - oamDots)
	require.NotNil(t, line)
	assert.EqualValues(t, 3, line[0], "bottom half uses tile index | 1")
}

func TestScanline_OffscreenSpriteStillConsumesSlot(t *testing.T) {
	p, _ := newTestPPU()
	for i := 0; i < 16; i++ {
		p.UncheckedWrite(uint16(0x8020+i), 0xFF)
	}
	// Ten sprites with X=0 (off-screen) fill the buffer...
	for i := 0; i < 10; i++ {
		base := uint16(0xFE00 + i*4)
		p.UncheckedWrite(base, 16)
		p.UncheckedWrite(base+1, 0)
		p.UncheckedWrite(base+2, 0x02)
	}
	// ...so this visible one is never selected.
	p.UncheckedWrite(0xFE28, 16)
	p.UncheckedWrite(0xFE29, 50)
	p.UncheckedWrite(0xFE2A, 0x02)
	p.CPUWrite(0xFF48, 0xE4)
	p.CPUWrite(0xFF40, 0x93)

	p.Advance(oamDots)
	line := p.Advance(drawDots - oamDots)
	require.NotNil(t, line)
	assert.EqualValues(t, 0, line[50-8])
}
