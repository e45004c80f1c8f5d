package bus

import (
	"io"
	"log"
	"os"

	"github.com/Boskeroni/yage/internal/cart"
	"github.com/Boskeroni/yage/internal/ppu"
	"github.com/Boskeroni/yage/internal/timer"
)

var debugBus = os.Getenv("GB_DEBUG_BUS") != ""

// Bus owns the flat 16-bit address space: WRAM with its echo, HRAM, the
// IO register file, and the interrupt registers. Cartridge windows
// delegate to the MBC, VRAM/OAM and the LCD registers to the PPU, and
// FF04–FF07 to the timer. Reads and writes apply the PPU mode blockers;
// the Unchecked pair bypasses them for subsystem bookkeeping.
type Bus struct {
	cart cart.Cartridge

	// Work RAM 0xC000–0xDFFF; 0xE000–0xFDFF mirrors 0xC000–0xDDFF onto
	// the same backing array.
	wram [0x2000]byte
	hram [0x7F]byte
	io   [0x80]byte // raw store for IO registers nothing intercepts

	ppu *ppu.PPU
	tmr *timer.Timer

	ie    byte // FFFF
	ifReg byte // FF0F, lower 5 bits

	// Joypad: select bits as written, pressed-key mask from the host, and
	// the last synthesized low nibble for press-edge detection.
	joypSelect byte
	joypad     byte
	joypLower4 byte

	sb byte // FF01
	sc byte // FF02

	dma byte      // FF46, last written source page
	sw  io.Writer // serial sink, optional
}

// New wires a bus around the given cartridge, with PPU and timer
// requesting interrupt bits through it.
func New(c cart.Cartridge) *Bus {
	b := &Bus{cart: c}
	req := func(bit int) { b.ifReg |= 1 << bit }
	b.ppu = ppu.New(req)
	b.tmr = timer.New(req)
	b.joypLower4 = 0x0F
	return b
}

// PPU exposes the picture processor for the frame loop.
func (b *Bus) PPU() *ppu.PPU { return b.ppu }

// Timer exposes the timer for the frame loop.
func (b *Bus) Timer() *timer.Timer { return b.tmr }

// Cart returns the cartridge for battery persistence.
func (b *Bus) Cart() cart.Cartridge { return b.cart }

func (b *Bus) Read(addr uint16) byte {
	switch {
	case addr < 0x8000:
		return b.cart.ReadROM(addr)
	case addr <= 0x9FFF:
		return b.ppu.CPURead(addr)
	case addr <= 0xBFFF:
		return b.cart.ReadRAM(addr)
	case addr <= 0xDFFF:
		return b.wram[addr-0xC000]
	case addr <= 0xFDFF:
		return b.wram[addr-0xE000]
	case addr <= 0xFE9F:
		return b.ppu.CPURead(addr)
	case addr <= 0xFEFF:
		return 0xFF
	case addr == 0xFF00:
		return 0xC0 | b.joypSelect | b.joypadLowNibble()
	case addr == 0xFF01:
		return b.sb
	case addr == 0xFF02:
		return b.sc
	case addr >= 0xFF04 && addr <= 0xFF07:
		return b.tmr.Read(addr)
	case addr == 0xFF0F:
		return 0xE0 | b.ifReg&0x1F
	case addr == 0xFF46:
		return b.dma
	case addr >= 0xFF40 && addr <= 0xFF4B:
		return b.ppu.CPURead(addr)
	case addr >= 0xFF00 && addr <= 0xFF7F:
		return b.io[addr-0xFF00]
	case addr <= 0xFFFE:
		return b.hram[addr-0xFF80]
	default:
		return b.ie
	}
}

func (b *Bus) Write(addr uint16, value byte) {
	switch {
	case addr < 0x8000:
		b.cart.WriteROM(addr, value)
	case addr <= 0x9FFF:
		b.ppu.CPUWrite(addr, value)
	case addr <= 0xBFFF:
		b.cart.WriteRAM(addr, value)
	case addr <= 0xDFFF:
		b.wram[addr-0xC000] = value
	case addr <= 0xFDFF:
		b.wram[addr-0xE000] = value
	case addr <= 0xFE9F:
		b.ppu.CPUWrite(addr, value)
	case addr <= 0xFEFF:
		if debugBus {
			log.Printf("[BUS] write %02X to unused region %04X dropped", value, addr)
		}
	case addr == 0xFF00:
		b.joypSelect = value & 0x30
		b.updateJoypadIRQ()
	case addr == 0xFF01:
		b.sb = value
	case addr == 0xFF02:
		b.sc = value
		if value == 0x81 {
			if b.sw != nil {
				b.sw.Write([]byte{b.sb})
			}
			b.ifReg |= 1 << 3
			b.sc = 0
		}
	case addr >= 0xFF04 && addr <= 0xFF07:
		b.tmr.Write(addr, value)
	case addr == 0xFF0F:
		b.ifReg = value & 0x1F
	case addr == 0xFF46:
		b.dma = value
		b.runDMA(uint16(value) << 8)
	case addr >= 0xFF40 && addr <= 0xFF4B:
		b.ppu.CPUWrite(addr, value)
	case addr >= 0xFF00 && addr <= 0xFF7F:
		b.io[addr-0xFF00] = value
	case addr <= 0xFFFE:
		b.hram[addr-0xFF80] = value
	default:
		b.ie = value
	}
}

// ReadWord reads little endian: low byte at addr, high at addr+1.
func (b *Bus) ReadWord(addr uint16) uint16 {
	return uint16(b.Read(addr)) | uint16(b.Read(addr+1))<<8
}

func (b *Bus) WriteWord(addr uint16, value uint16) {
	b.Write(addr, byte(value))
	b.Write(addr+1, byte(value>>8))
}

// UncheckedRead bypasses the PPU blockers; everything else behaves like
// Read. DMA uses it to fetch its source bytes.
func (b *Bus) UncheckedRead(addr uint16) byte {
	switch {
	case addr >= 0x8000 && addr <= 0x9FFF, addr >= 0xFE00 && addr <= 0xFE9F:
		return b.ppu.UncheckedRead(addr)
	default:
		return b.Read(addr)
	}
}

// UncheckedWrite bypasses the blockers and the timer edge logic.
func (b *Bus) UncheckedWrite(addr uint16, value byte) {
	switch {
	case addr >= 0x8000 && addr <= 0x9FFF, addr >= 0xFE00 && addr <= 0xFE9F:
		b.ppu.UncheckedWrite(addr, value)
	case addr >= 0xFF04 && addr <= 0xFF07:
		b.tmr.UncheckedWrite(addr, value)
	case addr == 0xFF46:
		b.dma = value
	default:
		b.Write(addr, value)
	}
}

// runDMA copies 160 bytes into OAM as one atomic step.
func (b *Bus) runDMA(src uint16) {
	for i := uint16(0); i < 0xA0; i++ {
		b.ppu.UncheckedWrite(0xFE00+i, b.UncheckedRead(src+i))
	}
}

// OAMSearch returns the four attribute bytes of sprite index (0..39).
func (b *Bus) OAMSearch(index int) [4]byte { return b.ppu.OAMEntry(index) }

// ReadTile decodes the 8x8 tile at addr in VRAM.
func (b *Bus) ReadTile(addr uint16) ppu.Tile { return b.ppu.ReadTile(addr) }

// ReadBGTile resolves a map entry through the addressing mode and
// decodes the tile it names.
func (b *Bus) ReadBGTile(mapAddr uint16, tileData8000 bool) ppu.Tile {
	return b.ppu.ReadBGTile(mapAddr, tileData8000)
}

// Joypad button bitmasks for SetJoypadState; set bits mean pressed.
const (
	JoypRight     = 1 << 0
	JoypLeft      = 1 << 1
	JoypUp        = 1 << 2
	JoypDown      = 1 << 3
	JoypA         = 1 << 4
	JoypB         = 1 << 5
	JoypSelectBtn = 1 << 6
	JoypStart     = 1 << 7
)

// SetJoypadState records which buttons are held and raises the joypad
// interrupt on any press edge visible through the current select lines.
func (b *Bus) SetJoypadState(mask byte) {
	b.joypad = mask
	b.updateJoypadIRQ()
}

// SetSerialWriter attaches a sink for bytes sent through FF01/FF02.
func (b *Bus) SetSerialWriter(w io.Writer) { b.sw = w }

// joypadLowNibble derives the active-low key bits from whichever select
// lines are pulled low; with both high it reads 0xF.
func (b *Bus) joypadLowNibble() byte {
	res := byte(0x0F)
	if b.joypSelect&0x10 == 0 { // P14: D-pad
		res &^= b.joypad & 0x0F
	}
	if b.joypSelect&0x20 == 0 { // P15: buttons
		res &^= b.joypad >> 4
	}
	return res
}

func (b *Bus) updateJoypadIRQ() {
	newLower := b.joypadLowNibble()
	if b.joypLower4&^newLower != 0 {
		b.ifReg |= 1 << 4
	}
	b.joypLower4 = newLower
}
