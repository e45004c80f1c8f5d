package emu

import (
	"io"
	"math/rand"

	"github.com/Boskeroni/yage/internal/bus"
	"github.com/Boskeroni/yage/internal/cart"
	"github.com/Boskeroni/yage/internal/cpu"
	"github.com/Boskeroni/yage/internal/ppu"
)

// Config selects how the machine comes up.
type Config struct {
	// Booted starts from the documented post-boot state. When false the
	// RAM is randomised and the logo bytes are synthesized so the guest
	// boot sequence's check passes, with execution from 0x0000.
	Booted bool
}

// Buttons is the per-frame key state the host supplies.
type Buttons struct {
	A, B, Start, Select   bool
	Up, Down, Left, Right bool
}

// FrameSize is the flat length of one emitted frame: 160x144 shades.
const FrameSize = ppu.ScreenWidth * ppu.ScreenHeight

// cyclesPerFrame is one full LCD refresh: 154 lines of 456 dots.
const cyclesPerFrame = 70224

// Machine wires the cartridge, bus, and CPU into the fetch-execute
// interleave loop: every instruction's cycle count is handed to the timer
// and then the PPU before the next fetch.
type Machine struct {
	cfg    Config
	header *cart.Header
	cart   cart.Cartridge
	bus    *bus.Bus
	cpu    *cpu.CPU

	frame [FrameSize]byte
}

// New builds a machine around the ROM image.
func New(rom []byte, cfg Config) (*Machine, error) {
	image := make([]byte, len(rom))
	copy(image, rom)
	if !cfg.Booted && len(image) >= 0x0134 {
		copy(image[0x0104:], cart.NintendoLogo[:])
	}

	h, err := cart.ParseHeader(image)
	if err != nil {
		return nil, err
	}
	c, err := cart.New(image)
	if err != nil {
		return nil, err
	}

	m := &Machine{cfg: cfg, header: h, cart: c, bus: bus.New(c)}
	m.cpu = cpu.New(m.bus)
	m.reset()
	return m, nil
}

func (m *Machine) reset() {
	if !m.cfg.Booted {
		// Unbooted RAM comes up with garbage.
		for addr := 0xC000; addr <= 0xDFFF; addr++ {
			m.bus.UncheckedWrite(uint16(addr), byte(rand.Intn(256)))
		}
		for addr := 0xFF80; addr <= 0xFFFE; addr++ {
			m.bus.UncheckedWrite(uint16(addr), byte(rand.Intn(256)))
		}
		m.cpu.PC = 0x0000
		return
	}

	m.cpu.ResetBooted()
	for _, init := range []struct {
		addr  uint16
		value byte
	}{
		{0xFF00, 0xCF},
		{0xFF02, 0x7E},
		{0xFF04, 0x18},
		{0xFF07, 0xF8},
		{0xFF0F, 0xE1},
		{0xFF40, 0x91},
		{0xFF41, 0x81},
		{0xFF46, 0xFF},
		{0xFF47, 0xFC},
		{0xFF48, 0xFF},
		{0xFF49, 0xFF},
	} {
		m.bus.UncheckedWrite(init.addr, init.value)
	}
}

// Header describes the loaded cartridge.
func (m *Machine) Header() *cart.Header { return m.header }

// Bus exposes the memory bus for tools and tests.
func (m *Machine) Bus() *bus.Bus { return m.bus }

// CPU exposes the processor for tools and tests.
func (m *Machine) CPU() *cpu.CPU { return m.cpu }

// Step runs one instruction and advances the timer and PPU by its
// cycles. A completed scanline, if any, is returned.
func (m *Machine) Step() (int, []byte, error) {
	cycles, err := m.cpu.Step()
	if err != nil {
		return cycles, nil, err
	}
	m.bus.Timer().Advance(cycles)
	line := m.bus.PPU().Advance(cycles)
	return cycles, line, nil
}

// StepFrame runs until a full 144-line frame has been emitted. With the
// LCD disabled no lines ever complete; after two frames' worth of cycles
// the buffer is filled with the blank shade instead.
func (m *Machine) StepFrame() error {
	collected := 0
	run := 0
	for collected < ppu.ScreenHeight {
		cycles, line, err := m.Step()
		if err != nil {
			return err
		}
		if line != nil {
			copy(m.frame[collected*ppu.ScreenWidth:], line)
			collected++
		}
		run += cycles
		if run > 2*cyclesPerFrame {
			for i := range m.frame {
				m.frame[i] = ppu.BlankShade
			}
			return nil
		}
	}
	return nil
}

// Frame is the last completed frame: FrameSize shade codes in row-major
// order, each 0..3 or the blank sentinel.
func (m *Machine) Frame() []byte { return m.frame[:] }

// SetButtons feeds the host key state to the joypad register; the bus
// raises the joypad interrupt on press edges.
func (m *Machine) SetButtons(b Buttons) {
	var mask byte
	for _, k := range []struct {
		held bool
		bit  byte
	}{
		{b.Right, bus.JoypRight},
		{b.Left, bus.JoypLeft},
		{b.Up, bus.JoypUp},
		{b.Down, bus.JoypDown},
		{b.A, bus.JoypA},
		{b.B, bus.JoypB},
		{b.Select, bus.JoypSelectBtn},
		{b.Start, bus.JoypStart},
	} {
		if k.held {
			mask |= k.bit
		}
	}
	m.bus.SetJoypadState(mask)
}

// SetSerialWriter attaches a sink for the serial test-output port.
func (m *Machine) SetSerialWriter(w io.Writer) { m.bus.SetSerialWriter(w) }

// SaveBattery returns the cartridge RAM when the controller persists it.
func (m *Machine) SaveBattery() ([]byte, bool) {
	if bb, ok := m.cart.(cart.BatteryBacked); ok {
		data := bb.SaveRAM()
		return data, len(data) > 0
	}
	return nil, false
}

// LoadBattery restores previously saved cartridge RAM.
func (m *Machine) LoadBattery(data []byte) bool {
	if bb, ok := m.cart.(cart.BatteryBacked); ok && len(data) > 0 {
		bb.LoadRAM(data)
		return true
	}
	return false
}
