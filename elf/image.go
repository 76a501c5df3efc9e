package elf

// Image is everything decoded from one file: header, program headers and
// sections with their names and symbols. The loader hands it to the
// processor for entry-point reset and later symbol lookups.
type Image struct {
	Header   *Header
	Programs []ProgramHeader
	Sections []SectionHeader
}

// Decode reads the header, program headers and sections, each on its own
// pass from open.
func Decode(open Opener) (*Image, error) {
	src, err := open.Open()
	if err != nil {
		return nil, newError("header", KindReadFile, err)
	}
	h, err := ReadHeader(src)
	src.Close()
	if err != nil {
		return nil, err
	}

	if src, err = open.Open(); err != nil {
		return nil, newError("program headers", KindProgramNotFound, err)
	}
	progs, err := ReadProgramHeaders(src, h)
	src.Close()
	if err != nil {
		return nil, err
	}

	sections, err := ReadSections(open, h)
	if err != nil {
		return nil, err
	}
	return &Image{Header: h, Programs: progs, Sections: sections}, nil
}

// Section returns the first section called name.
func (img *Image) Section(name string) (*SectionHeader, bool) {
	for i := range img.Sections {
		if img.Sections[i].Name == name {
			return &img.Sections[i], true
		}
	}
	return nil, false
}

// Lookup finds a symbol by name across all sections.
func (img *Image) Lookup(name string) (Symbol, bool) {
	for i := range img.Sections {
		for _, s := range img.Sections[i].Symbols {
			if s.Name == name {
				return s, true
			}
		}
	}
	return Symbol{}, false
}

// Labels maps addresses in allocated sections to the first named symbol at
// that address.
func (img *Image) Labels() map[uint64]string {
	labels := make(map[uint64]string)
	for i := range img.Sections {
		sh := &img.Sections[i]
		if !sh.IsAllocated() {
			continue
		}
		for _, s := range sh.Symbols {
			if s.Name == "" || s.Type() == SymbolSection || s.Type() == SymbolFile {
				continue
			}
			if _, ok := labels[s.Value]; !ok {
				labels[s.Value] = s.Name
			}
		}
	}
	return labels
}

// Loadable returns the LOAD program headers in table order.
func (img *Image) Loadable() []ProgramHeader {
	var out []ProgramHeader
	for _, p := range img.Programs {
		if p.Type == ProgLoad {
			out = append(out, p)
		}
	}
	return out
}
