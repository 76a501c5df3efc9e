package sim

// Simple address map and read/write helpers.
// RAM:       0x0000_0000 .. size-1
// UART:      0x1000_0000 .. 0x1000_00FF (TX at +0x00, STATUS at +0x04)

const (
	UARTBase   = 0x10000000
	UARTSize   = 0x100
	UARTTx     = UARTBase + 0x00
	UARTStatus = UARTBase + 0x04
)

type Bus struct {
	ram  *RAM
	uart *UART

	// write journal, active between Begin and Commit/Rollback
	recording bool
	journal   []undo
}

type undo struct {
	addr uint32
	old  uint8
}

func NewBus(ram *RAM, uart *UART) *Bus {
	return &Bus{ram: ram, uart: uart}
}

func isUART(addr uint32) bool { return addr >= UARTBase && addr < UARTBase+UARTSize }

func (b *Bus) Read8(addr uint32) (uint8, bool) {
	if isUART(addr) {
		if addr == UARTStatus {
			return 1, true // always ready
		}
		return 0, true
	}
	return b.ram.Read8(addr)
}

// Write8 is one byte write transaction. It reports false when nothing
// answers at addr.
func (b *Bus) Write8(addr uint32, v uint8) bool {
	if isUART(addr) {
		if addr == UARTTx {
			b.uart.Tx(v)
		}
		return true
	}
	if b.recording {
		old, ok := b.ram.Read8(addr)
		if !ok {
			return false
		}
		b.journal = append(b.journal, undo{addr: addr, old: old})
	}
	return b.ram.Write8(addr, v)
}

func (b *Bus) Read32(addr uint32) (uint32, bool) {
	var w uint32
	for i := uint32(0); i < 4; i++ {
		v, ok := b.Read8(addr + i)
		if !ok {
			return 0, false
		}
		w |= uint32(v) << (8 * i)
	}
	return w, true
}

func (b *Bus) Write32(addr uint32, v uint32) bool {
	// word store to UART TX prints the low byte only
	if addr == UARTTx {
		b.uart.Tx(uint8(v))
		return true
	}
	for i := uint32(0); i < 4; i++ {
		if !b.Write8(addr+i, uint8(v>>(8*i))) {
			return false
		}
	}
	return true
}

// Begin starts journaling RAM writes so they can be undone with Rollback.
// UART output cannot be taken back.
func (b *Bus) Begin() {
	b.recording = true
	b.journal = b.journal[:0]
}

// Commit keeps every write since Begin.
func (b *Bus) Commit() {
	b.recording = false
	b.journal = b.journal[:0]
}

// Rollback restores RAM to its state at Begin.
func (b *Bus) Rollback() {
	for i := len(b.journal) - 1; i >= 0; i-- {
		b.ram.Write8(b.journal[i].addr, b.journal[i].old)
	}
	b.recording = false
	b.journal = b.journal[:0]
}
