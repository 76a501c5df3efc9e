package sim

// inst is one 32-bit RV32I instruction word.
type inst uint32

func (i inst) opcode() uint32 { return uint32(i) & 0x7F }
func (i inst) rd() uint32     { return (uint32(i) >> 7) & 0x1F }
func (i inst) funct3() uint32 { return (uint32(i) >> 12) & 0x7 }
func (i inst) rs1() uint32    { return (uint32(i) >> 15) & 0x1F }
func (i inst) rs2() uint32    { return (uint32(i) >> 20) & 0x1F }
func (i inst) funct7() uint32 { return uint32(i) >> 25 }

const (
	opLUI    = 0x37
	opAUIPC  = 0x17
	opJAL    = 0x6F
	opJALR   = 0x67
	opBranch = 0x63
	opLoad   = 0x03
	opStore  = 0x23
	opImm    = 0x13
	opReg    = 0x33
	opSystem = 0x73
)

// sext sign-extends the low bits of v.
func sext(v uint32, bits uint) uint32 {
	shift := 32 - bits
	return uint32(int32(v<<shift) >> shift)
}

func (i inst) immI() uint32 { return sext(uint32(i)>>20, 12) }

func (i inst) immS() uint32 {
	return sext(uint32(i)>>25<<5|i.rd(), 12)
}

// [12|10:5|4:1|11] << 1
func (i inst) immB() uint32 {
	w := uint32(i)
	v := (w>>31&1)<<12 | (w>>25&0x3F)<<5 | (w>>8&0xF)<<1 | (w>>7&1)<<11
	return sext(v, 13)
}

func (i inst) immU() uint32 { return uint32(i) & 0xFFFFF000 }

// [20|10:1|11|19:12] << 1
func (i inst) immJ() uint32 {
	w := uint32(i)
	v := (w>>31&1)<<20 | (w>>21&0x3FF)<<1 | (w>>20&1)<<11 | (w>>12&0xFF)<<12
	return sext(v, 21)
}
