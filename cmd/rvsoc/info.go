package main

import (
	"fmt"
	"io"
	"sort"
	"text/tabwriter"

	"rvsoc/elf"
)

// printInfo dumps the decoded tables roughly the way readelf -h -l -S -s does.
func printInfo(w io.Writer, img *elf.Image) {
	h := img.Header
	fmt.Fprintf(w, "Class:   %s\n", h.Class)
	fmt.Fprintf(w, "Data:    %s\n", h.Data)
	fmt.Fprintf(w, "Type:    %s\n", h.Type)
	fmt.Fprintf(w, "Machine: %s (%d)\n", h.Machine, uint16(h.Machine))
	fmt.Fprintf(w, "Entry:   0x%08x\n", h.Entry)

	tw := tabwriter.NewWriter(w, 0, 4, 1, ' ', 0)
	fmt.Fprintln(w, "\nProgram headers:")
	fmt.Fprintln(tw, "  Type\tOffset\tVirtAddr\tPhysAddr\tFileSiz\tMemSiz\tFlg\tAlign")
	for _, p := range img.Programs {
		fmt.Fprintf(tw, "  %s\t0x%06x\t0x%08x\t0x%08x\t0x%05x\t0x%05x\t%s\t0x%x\n",
			p.Type, p.Offset, p.VAddr, p.PAddr, p.FileSize, p.MemSize, p.Flags, p.Align)
	}
	tw.Flush()

	fmt.Fprintln(w, "\nSection headers:")
	fmt.Fprintln(tw, "  [Nr]\tName\tType\tAddr\tOff\tSize\tFlg\tSyms")
	for i, s := range img.Sections {
		fmt.Fprintf(tw, "  [%2d]\t%s\t%s\t0x%08x\t0x%06x\t0x%06x\t%s\t%d\n",
			i, s.Name, s.Type, s.Addr, s.Offset, s.Size, s.Flags, len(s.Symbols))
	}
	tw.Flush()

	labels := img.Labels()
	if len(labels) == 0 {
		return
	}
	addrs := make([]uint64, 0, len(labels))
	for a := range labels {
		addrs = append(addrs, a)
	}
	sort.Slice(addrs, func(i, j int) bool { return addrs[i] < addrs[j] })
	fmt.Fprintln(w, "\nSymbols:")
	for _, a := range addrs {
		fmt.Fprintf(w, "  0x%08x %s\n", a, labels[a])
	}
}
