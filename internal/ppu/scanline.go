package ppu

import "sort"

// Sprite attribute bits carried alongside the 2-bit color in the sprite
// layer buffer.
const (
	attrPriority = 0x80 // 1: BG/window colors 1-3 draw over the sprite
	attrYFlip    = 0x40
	attrXFlip    = 0x20
	attrPalette  = 0x10 // 0: OBP0, 1: OBP1
)

// renderScanline produces the current line: three 160-wide layers
// composed pixel by pixel, then resolved through the palettes.
func (p *PPU) renderScanline() []byte {
	bg := p.renderBackground()
	win := p.renderWindow()
	sprites := p.renderSprites()

	out := make([]byte, ScreenWidth)
	for x := range out {
		sp := sprites[x]
		spColor := sp & 0x03
		spPal := p.obp0
		if sp != BlankShade && sp&attrPalette != 0 {
			spPal = p.obp1
		}

		switch {
		case sp&attrPriority == 0:
			// Sprite above; a blank slot (no bit 7) lands here with color 0.
			switch {
			case spColor != 0:
				out[x] = shade(spColor, spPal)
			case win[x] != BlankShade:
				out[x] = shade(win[x], p.bgp)
			default:
				out[x] = shade(bg[x], p.bgp)
			}
		default:
			// BG/window colors 1-3 above the sprite.
			switch {
			case win[x] != BlankShade:
				out[x] = shade(win[x], p.bgp)
			case bg[x] != BlankShade && bg[x] != 0:
				out[x] = shade(bg[x], p.bgp)
			default:
				out[x] = shade(spColor, spPal)
			}
		}
	}
	return out
}

// shade resolves a color index through a palette register; the blank
// sentinel passes through untouched.
func shade(index, palette byte) byte {
	if index == BlankShade {
		return index
	}
	return palette >> (index * 2) & 0x03
}

func blankLine() [ScreenWidth]byte {
	var line [ScreenWidth]byte
	for i := range line {
		line[i] = BlankShade
	}
	return line
}

func (p *PPU) renderBackground() [ScreenWidth]byte {
	if p.lcdc&0x01 == 0 {
		return blankLine()
	}
	mapBase := uint16(0x9800)
	if p.lcdc&0x08 != 0 {
		mapBase = 0x9C00
	}

	bgY := uint16(p.ly) + uint16(p.scy)
	var q fifo
	f := newBGFetcher(vramReaderFunc(p.UncheckedRead), &q,
		mapBase, p.lcdc&0x10 != 0, bgY>>3, uint16(p.scx)>>3, byte(bgY&7))

	f.Fetch()
	for i := 0; i < int(p.scx&7); i++ {
		q.Pop()
	}

	var line [ScreenWidth]byte
	for x := range line {
		if q.Len() == 0 {
			f.Fetch()
		}
		line[x], _ = q.Pop()
	}
	return line
}

func (p *PPU) renderWindow() [ScreenWidth]byte {
	line := blankLine()
	if p.lcdc&0x21 != 0x21 {
		return line
	}
	// WY gates the first line; WX past the right edge hides it entirely.
	if p.wy > p.ly || p.wx > 166 {
		return line
	}
	mapBase := uint16(0x9800)
	if p.lcdc&0x40 != 0 {
		mapBase = 0x9C00
	}

	winY := p.windowLine
	p.windowLine++

	var q fifo
	f := newBGFetcher(vramReaderFunc(p.UncheckedRead), &q,
		mapBase, p.lcdc&0x10 != 0, uint16(winY>>3), 0, byte(winY&7))
	f.Fetch()

	// WX below 7 pushes the window off the left edge: its leading
	// columns are clipped rather than shifted on screen.
	startX := int(p.wx) - 7
	if startX < 0 {
		for i := startX; i < 0; i++ {
			q.Pop()
		}
		startX = 0
	}
	for x := startX; x < ScreenWidth; x++ {
		if q.Len() == 0 {
			f.Fetch()
		}
		line[x], _ = q.Pop()
	}
	return line
}

// renderSprites scans OAM for the up-to-10 sprites on this line and lays
// their pixels into a buffer wide enough for the X=0..255 off-screen
// positions. Each slot keeps the priority and palette attribute bits next
// to the color.
func (p *PPU) renderSprites() []byte {
	buf := make([]byte, 256+8)
	for i := range buf {
		buf[i] = BlankShade
	}
	if p.lcdc&0x02 == 0 {
		return buf[8 : 8+ScreenWidth]
	}

	height := byte(8)
	if p.lcdc&0x04 != 0 {
		height = 16
	}

	ly := p.ly + 16
	var selected [][4]byte
	for i := 0; i < 40; i++ {
		s := p.OAMEntry(i)
		if s[0] == 0 || s[0] >= 160 {
			continue
		}
		if ly < s[0] || ly >= s[0]+height {
			continue
		}
		selected = append(selected, s)
		if len(selected) == 10 {
			break
		}
	}
	// Lower X wins overlaps; the stable sort keeps OAM order on ties.
	sort.SliceStable(selected, func(i, j int) bool { return selected[i][1] < selected[j][1] })

	for _, s := range selected {
		rowInSprite := ly - s[0]
		yflip := s[3]&attrYFlip != 0

		tileIndex := s[2]
		if height == 16 {
			bottom := rowInSprite >= 8
			if yflip {
				bottom = !bottom
			}
			tileIndex = s[2] & 0xFE
			if bottom {
				tileIndex |= 1
			}
		}

		row := rowInSprite & 7
		if yflip {
			row = 7 - row
		}
		pixels := p.ReadTile(0x8000 + uint16(tileIndex)*16)[row]
		if s[3]&attrXFlip != 0 {
			for i, j := 0, 7; i < j; i, j = i+1, j-1 {
				pixels[i], pixels[j] = pixels[j], pixels[i]
			}
		}

		for i := 0; i < 8; i++ {
			slot := int(s[1]) + i
			if cur := buf[slot]; cur != BlankShade && cur&0x03 != 0 {
				continue
			}
			buf[slot] = pixels[i] | s[3]&(attrPriority|attrPalette)
		}
	}
	return buf[8 : 8+ScreenWidth]
}
