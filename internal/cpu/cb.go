package cpu

// executeCB runs the prefixed bit-manipulation page. The operand byte
// splits into a register slot (mod 8, with 6 addressing (HL)) and an
// operation index (div 8): 0–7 rotate/shift, 8–15 bit, 16–23 res,
// 24–31 set.
func (c *CPU) executeCB() int {
	op := c.fetch8()
	target := op % 8
	operation := op / 8

	v := c.getReg8(target)
	switch operation {
	case 0:
		v = c.rlc(v)
	case 1:
		v = c.rrc(v)
	case 2:
		v = c.rl(v)
	case 3:
		v = c.rr(v)
	case 4:
		v = c.sla(v)
	case 5:
		v = c.sra(v)
	case 6:
		v = c.swap(v)
	case 7:
		v = c.srl(v)
	default:
		n := operation % 8
		switch operation / 8 {
		case 1: // BIT n: flags only, no writeback
			c.F = c.F&flagC | flagH
			if v>>n&1 == 0 {
				c.F |= flagZ
			}
			if target == 6 {
				return 12
			}
			return 8
		case 2: // RES n
			v &^= 1 << n
		case 3: // SET n
			v |= 1 << n
		}
	}
	c.setReg8(target, v)
	if target == 6 {
		return 16
	}
	return 8
}

// --- rotates and shifts; Z is computed normally here, the unprefixed
// accumulator forms clear it afterwards ---

func (c *CPU) rlc(v byte) byte {
	carry := v >> 7
	v = v<<1 | carry
	c.setZNHC(v == 0, false, false, carry == 1)
	return v
}

func (c *CPU) rrc(v byte) byte {
	carry := v & 1
	v = v>>1 | carry<<7
	c.setZNHC(v == 0, false, false, carry == 1)
	return v
}

func (c *CPU) rl(v byte) byte {
	carry := v >> 7
	var ci byte
	if c.cf() {
		ci = 1
	}
	v = v<<1 | ci
	c.setZNHC(v == 0, false, false, carry == 1)
	return v
}

func (c *CPU) rr(v byte) byte {
	carry := v & 1
	var ci byte
	if c.cf() {
		ci = 1
	}
	v = v>>1 | ci<<7
	c.setZNHC(v == 0, false, false, carry == 1)
	return v
}

func (c *CPU) sla(v byte) byte {
	carry := v >> 7
	v <<= 1
	c.setZNHC(v == 0, false, false, carry == 1)
	return v
}

// sra shifts right keeping bit 7.
func (c *CPU) sra(v byte) byte {
	carry := v & 1
	v = v&0x80 | v>>1
	c.setZNHC(v == 0, false, false, carry == 1)
	return v
}

func (c *CPU) swap(v byte) byte {
	v = v<<4 | v>>4
	c.setZNHC(v == 0, false, false, false)
	return v
}

func (c *CPU) srl(v byte) byte {
	carry := v & 1
	v >>= 1
	c.setZNHC(v == 0, false, false, carry == 1)
	return v
}
