package sim

import (
	"fmt"
	"io"
	"os"

	"rvsoc/elf"
)

// CPU is a minimal RV32I core with LB/LBU/SB for UART byte demos. Any
// SYSTEM instruction halts it.
type CPU struct {
	Reg   [32]uint32
	PC    uint32
	Bus   *Bus
	Trace bool

	// Out receives trace, trap and halt lines. nil means stdout.
	Out io.Writer

	// ResetVector is the PC after a reset without an entry point.
	ResetVector uint32

	image  *elf.Image
	labels map[uint64]string
}

func NewCPU(bus *Bus) *CPU { return &CPU{Bus: bus} }

// Reset clears the registers and restarts at the reset vector.
func (c *CPU) Reset() {
	c.Reg = [32]uint32{}
	c.PC = c.ResetVector
}

// SetEntryAndReset resets the core, starts it at entry and keeps img for
// symbol lookups in traces.
func (c *CPU) SetEntryAndReset(entry uint32, img *elf.Image) {
	c.Reset()
	c.PC = entry
	c.image = img
	c.labels = nil
	if img != nil {
		c.labels = img.Labels()
	}
}

// Image is the program handed over by the last SetEntryAndReset, or nil.
func (c *CPU) Image() *elf.Image { return c.image }

func (c *CPU) out() io.Writer {
	if c.Out != nil {
		return c.Out
	}
	return os.Stdout
}

func (c *CPU) logf(format string, args ...any) {
	fmt.Fprintf(c.out(), format, args...)
}

func (c *CPU) reg(i uint32) uint32 {
	if i == 0 {
		return 0
	}
	return c.Reg[i]
}

func (c *CPU) setReg(i uint32, v uint32) {
	if i != 0 {
		c.Reg[i] = v
	}
}

// Step executes one instruction. It returns false once the core halts or
// traps.
func (c *CPU) Step() bool {
	w, ok := c.Bus.Read32(c.PC)
	if !ok {
		c.logf("\n[trap] fetch OOB pc=%08x\n", c.PC)
		return false
	}
	in := inst(w)

	if c.Trace {
		if name, ok := c.labels[uint64(c.PC)]; ok {
			c.logf("%s:\n", name)
		}
		c.logf("pc=%08x inst=%08x\n", c.PC, w)
	}

	next := c.PC + 4
	switch in.opcode() {
	case opLUI:
		c.setReg(in.rd(), in.immU())
	case opAUIPC:
		c.setReg(in.rd(), c.PC+in.immU())
	case opJAL:
		c.setReg(in.rd(), c.PC+4)
		next = c.PC + in.immJ()
	case opJALR:
		tgt := (c.reg(in.rs1()) + in.immI()) &^ 1
		c.setReg(in.rd(), c.PC+4)
		next = tgt
	case opBranch:
		if c.branchTaken(in) {
			next = c.PC + in.immB()
		}
	case opLoad:
		if !c.load(in) {
			return false
		}
	case opStore:
		if !c.store(in) {
			return false
		}
	case opImm:
		c.setReg(in.rd(), c.aluImm(in))
	case opReg:
		c.setReg(in.rd(), c.aluReg(in))
	case opSystem:
		c.logf("\n[halt] ECALL\n")
		return false
	default:
		c.logf("\n[warn] unsupported opcode 0x%x at pc=%08x\n", in.opcode(), c.PC)
	}

	c.PC = next
	return true
}

func (c *CPU) branchTaken(in inst) bool {
	a, b := c.reg(in.rs1()), c.reg(in.rs2())
	switch in.funct3() {
	case 0x0: // BEQ
		return a == b
	case 0x1: // BNE
		return a != b
	case 0x4: // BLT
		return int32(a) < int32(b)
	case 0x5: // BGE
		return int32(a) >= int32(b)
	case 0x6: // BLTU
		return a < b
	case 0x7: // BGEU
		return a >= b
	}
	c.logf("[warn] BRANCH f3=%d\n", in.funct3())
	return false
}

func (c *CPU) load(in inst) bool {
	addr := c.reg(in.rs1()) + in.immI()
	switch in.funct3() {
	case 0x0, 0x4: // LB, LBU
		b, ok := c.Bus.Read8(addr)
		if !ok {
			c.logf("\n[trap] load OOB addr=%08x\n", addr)
			return false
		}
		v := uint32(b)
		if in.funct3() == 0x0 {
			v = sext(v, 8)
		}
		c.setReg(in.rd(), v)
	case 0x2: // LW
		w, ok := c.Bus.Read32(addr)
		if !ok {
			c.logf("\n[trap] LW OOB addr=%08x\n", addr)
			return false
		}
		c.setReg(in.rd(), w)
	default:
		c.logf("[warn] LOAD f3=%d\n", in.funct3())
	}
	return true
}

func (c *CPU) store(in inst) bool {
	addr := c.reg(in.rs1()) + in.immS()
	v := c.reg(in.rs2())
	switch in.funct3() {
	case 0x0: // SB
		if !c.Bus.Write8(addr, uint8(v)) {
			c.logf("\n[trap] SB OOB addr=%08x\n", addr)
			return false
		}
	case 0x2: // SW
		if !c.Bus.Write32(addr, v) {
			c.logf("\n[trap] SW OOB addr=%08x\n", addr)
			return false
		}
	default:
		c.logf("[warn] STORE f3=%d\n", in.funct3())
	}
	return true
}

func (c *CPU) aluImm(in inst) uint32 {
	a, imm := c.reg(in.rs1()), in.immI()
	sh := imm & 0x1F
	switch in.funct3() {
	case 0x0: // ADDI
		return a + imm
	case 0x2: // SLTI
		return bool2u(int32(a) < int32(imm))
	case 0x3: // SLTIU
		return bool2u(a < imm)
	case 0x4: // XORI
		return a ^ imm
	case 0x6: // ORI
		return a | imm
	case 0x7: // ANDI
		return a & imm
	case 0x1: // SLLI
		return a << sh
	case 0x5: // SRLI, SRAI
		if in.funct7() == 0x20 {
			return uint32(int32(a) >> sh)
		}
		return a >> sh
	}
	return c.reg(in.rd())
}

func (c *CPU) aluReg(in inst) uint32 {
	a, b := c.reg(in.rs1()), c.reg(in.rs2())
	sub := in.funct7() == 0x20
	switch in.funct3() {
	case 0x0: // ADD, SUB
		if sub {
			return a - b
		}
		return a + b
	case 0x1: // SLL
		return a << (b & 0x1F)
	case 0x2: // SLT
		return bool2u(int32(a) < int32(b))
	case 0x3: // SLTU
		return bool2u(a < b)
	case 0x4: // XOR
		return a ^ b
	case 0x5: // SRL, SRA
		if sub {
			return uint32(int32(a) >> (b & 0x1F))
		}
		return a >> (b & 0x1F)
	case 0x6: // OR
		return a | b
	case 0x7: // AND
		return a & b
	}
	return c.reg(in.rd())
}

func bool2u(b bool) uint32 {
	if b {
		return 1
	}
	return 0
}
