package ppu

// TileRow is eight 2-bit color indices, leftmost pixel first.
type TileRow [8]byte

// Tile is a decoded 8x8 tile, top row first.
type Tile [8]TileRow

// DecodeTile unpacks the 16-byte two-bitplane format: each row is a low
// byte and a high byte, bit 7 being the leftmost pixel.
func DecodeTile(data [16]byte) Tile {
	var t Tile
	for row := 0; row < 8; row++ {
		lo := data[row*2]
		hi := data[row*2+1]
		for px := 0; px < 8; px++ {
			bit := 7 - byte(px)
			t[row][px] = hi>>bit&1<<1 | lo>>bit&1
		}
	}
	return t
}

// EncodeTile packs a decoded tile back into the bitplane format.
func EncodeTile(t Tile) [16]byte {
	var data [16]byte
	for row := 0; row < 8; row++ {
		var lo, hi byte
		for px := 0; px < 8; px++ {
			bit := 7 - byte(px)
			lo |= t[row][px] & 1 << bit
			hi |= t[row][px] >> 1 & 1 << bit
		}
		data[row*2] = lo
		data[row*2+1] = hi
	}
	return data
}

// OAMEntry returns the four attribute bytes of sprite index (0..39):
// Y+16, X+8, tile index, attributes.
func (p *PPU) OAMEntry(index int) [4]byte {
	off := index * 4
	return [4]byte{p.oam[off], p.oam[off+1], p.oam[off+2], p.oam[off+3]}
}

// ReadTile decodes the 8x8 tile whose data starts at addr in VRAM.
func (p *PPU) ReadTile(addr uint16) Tile {
	var data [16]byte
	for i := range data {
		data[i] = p.UncheckedRead(addr + uint16(i))
	}
	return DecodeTile(data)
}

// ReadBGTile resolves the tile index stored at mapAddr through the given
// addressing mode (true: 0x8000 unsigned; false: signed around 0x9000)
// and decodes it.
func (p *PPU) ReadBGTile(mapAddr uint16, tileData8000 bool) Tile {
	index := p.UncheckedRead(mapAddr)
	return p.ReadTile(tileDataAddr(index, tileData8000))
}

func tileDataAddr(index byte, tileData8000 bool) uint16 {
	if tileData8000 {
		return 0x8000 + uint16(index)*16
	}
	return uint16(0x9000 + int(int8(index))*16)
}
