package cart

// MBC3 (header types 0x0F–0x13) without the real-time clock. The clock
// register selects (0x08–0x0C) and the latch window are accepted and
// diagnosed; they never change state.
//
// - 0000–1FFF: RAM enable (0x0A in the low nibble)
// - 2000–3FFF: 7-bit ROM bank, minimum 1
// - 4000–5FFF: RAM bank 0–7, or an RTC register above that
// - 6000–7FFF: latch clock (ignored without RTC)
type MBC3 struct {
	rom []byte
	ram []byte

	romBank    int // 1..127
	ramBank    int // 0..7
	ramEnabled bool
}

func NewMBC3(rom []byte, h *Header) *MBC3 {
	m := &MBC3{rom: rom, romBank: 1}
	if h.RAMSizeBytes > 0 {
		m.ram = make([]byte, h.RAMSizeBytes)
	}
	return m
}

func (m *MBC3) ReadROM(addr uint16) byte {
	var off int
	if addr < 0x4000 {
		off = int(addr)
	} else {
		off = m.romBank*0x4000 + int(addr-0x4000)
	}
	if off >= len(m.rom) {
		return 0xFF
	}
	return m.rom[off]
}

func (m *MBC3) WriteROM(addr uint16, value byte) {
	switch {
	case addr < 0x2000:
		m.ramEnabled = value&0x0F == 0x0A
	case addr < 0x4000:
		bank := int(value & 0x7F)
		if bank == 0 {
			bank = 1
		}
		m.romBank = bank
	case addr < 0x6000:
		if value >= 0x08 && value <= 0x0C {
			mbcLogf("RTC register %#02x selected; clock not implemented", value)
			return
		}
		m.ramBank = int(value & 0x07)
	default:
		mbcLogf("RTC latch write %#02x ignored; clock not implemented", value)
	}
}

func (m *MBC3) ReadRAM(addr uint16) byte {
	if !m.ramEnabled || len(m.ram) == 0 {
		mbcLogf("read from disabled cartridge RAM at %04X", addr)
		return 0xFF
	}
	if off := m.ramBank*0x2000 + int(addr-0xA000); off < len(m.ram) {
		return m.ram[off]
	}
	return 0xFF
}

func (m *MBC3) WriteRAM(addr uint16, value byte) {
	if !m.ramEnabled || len(m.ram) == 0 {
		mbcLogf("write to disabled cartridge RAM at %04X dropped", addr)
		return
	}
	if off := m.ramBank*0x2000 + int(addr-0xA000); off < len(m.ram) {
		m.ram[off] = value
	}
}

func (m *MBC3) SaveRAM() []byte {
	if len(m.ram) == 0 {
		return nil
	}
	out := make([]byte, len(m.ram))
	copy(out, m.ram)
	return out
}

func (m *MBC3) LoadRAM(data []byte) {
	copy(m.ram, data)
}
