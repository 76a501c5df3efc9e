package main

import (
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/xyproto/env/v2"

	"rvsoc/elf"
	"rvsoc/sim"
)

func main() {
	elfPath := flag.String("elf", "", "ELF file to load")
	binPath := flag.String("bin", "", "Flat binary to load at 0x0")
	steps := flag.Int("steps", env.Int("RVSOC_STEPS", 10_000_000), "Max steps")
	trace := flag.Bool("trace", env.Bool("RVSOC_TRACE"), "Print each instruction (teaching mode)")
	memMiB := flag.Int("mem", env.Int("RVSOC_MEM", 16), "RAM MiB")
	startPC := flag.Uint("pc", 0, "Override start PC (0 keeps loader entry/reset)")
	info := flag.Bool("info", false, "Print the ELF header, segments, sections and symbols, then exit")
	verbose := flag.Bool("v", env.Bool("RVSOC_VERBOSE"), "Log every loader step to stderr")
	atomic := flag.Bool("atomic", env.Bool("RVSOC_ATOMIC"), "Roll back a segment whose memory write fails")

	flag.Parse()

	if *info {
		if *elfPath == "" {
			fmt.Fprintln(os.Stderr, "-info needs -elf")
			os.Exit(2)
		}
		img, err := elf.Decode(elf.FileOpener(*elfPath))
		if err != nil {
			fmt.Fprintln(os.Stderr, "ELF read error:", err)
			os.Exit(1)
		}
		printInfo(os.Stdout, img)
		return
	}

	// Build the machine
	ram := sim.NewRAM(uint64(*memMiB) * 1024 * 1024)
	uart := sim.NewUART()
	bus := sim.NewBus(ram, uart)
	cpu := sim.NewCPU(bus)
	cpu.Trace = *trace

	// Load program
	switch {
	case *elfPath != "":
		var log io.Writer
		if *verbose {
			log = os.Stderr
		}
		l := &sim.Loader{
			Open:   elf.FileOpener(*elfPath),
			Arch:   elf.MachineRISCV,
			Order:  elf.LittleEndian,
			Bus:    bus,
			Target: cpu,
			Atomic: *atomic,
			Log:    log,
		}
		if _, err := l.Load(); err != nil {
			fmt.Fprintln(os.Stderr, "ELF load error:", err)
			os.Exit(1)
		}
	case *binPath != "":
		if err := ram.LoadFlat(*binPath, 0); err != nil {
			fmt.Fprintln(os.Stderr, "BIN load error:", err)
			os.Exit(1)
		}
		cpu.Reset()
	default:
		fmt.Fprintln(os.Stderr, "No program provided. Use -elf or -bin.")
		os.Exit(2)
	}

	if *startPC != 0 {
		cpu.PC = uint32(*startPC)
	}

	for i := 0; i < *steps; i++ {
		if !cpu.Step() {
			break
		}
	}
}
