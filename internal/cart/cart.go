package cart

import (
	"errors"
	"fmt"
	"log"
	"os"
)

// ErrUnsupportedCartridge is returned when the header names an MBC type or
// ROM size code this emulator cannot construct.
var ErrUnsupportedCartridge = errors.New("unsupported cartridge")

// Cartridge is the capability the Bus needs for the two cartridge windows.
// ROM covers 0x0000–0x7FFF, RAM covers 0xA000–0xBFFF. Writes into the ROM
// window never store anything; they reconfigure banking.
type Cartridge interface {
	ReadROM(addr uint16) byte
	WriteROM(addr uint16, value byte)
	ReadRAM(addr uint16) byte
	WriteRAM(addr uint16, value byte)
}

// BatteryBacked is an optional interface for cartridges whose external RAM
// should be persisted. SaveRAM returns a copy; LoadRAM restores verbatim.
type BatteryBacked interface {
	SaveRAM() []byte
	LoadRAM(data []byte)
}

var debugMBC = os.Getenv("GB_DEBUG_MBC") != ""

func mbcLogf(format string, args ...any) {
	if debugMBC {
		log.Printf("[MBC] "+format, args...)
	}
}

// New picks a controller implementation from the cartridge header.
func New(rom []byte) (Cartridge, error) {
	h, err := ParseHeader(rom)
	if err != nil {
		return nil, err
	}
	if h.ROMBanks == 0 {
		return nil, fmt.Errorf("%w: ROM size code %#02x", ErrUnsupportedCartridge, h.ROMSizeCode)
	}
	switch h.CartType {
	case 0x00, 0x01, 0x02, 0x03:
		return NewMBC1(rom, h), nil
	case 0x05, 0x06:
		return NewMBC2(rom, h), nil
	case 0x0F, 0x10, 0x11, 0x12, 0x13:
		return NewMBC3(rom, h), nil
	case 0x19, 0x1A, 0x1B, 0x1C, 0x1D, 0x1E:
		return NewMBC5(rom, h), nil
	default:
		return nil, fmt.Errorf("%w: MBC type %#02x", ErrUnsupportedCartridge, h.CartType)
	}
}
