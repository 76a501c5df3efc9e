package sim

import (
	"io"
	"os"
)

// UART is a transmit-only serial console.
type UART struct {
	Out io.Writer
}

func NewUART() *UART { return &UART{Out: os.Stdout} }

func (u *UART) Tx(b uint8) {
	u.Out.Write([]byte{b})
}
