// Package program derives content-addressed program identities.
//
// A program is identified by the hash of its bytecode. Identities are
// never assigned centrally: two byte-identical programs always share
// an id, and the id is recomputed from content wherever it is needed.
package program

import (
	"bytes"
	"crypto/sha256"
	"debug/elf"
	"fmt"
	"os"

	"github.com/blockberries/seqtest"
	"github.com/blockberries/seqtest/types"
)

// identityDomain separates program ids from every other hash in the
// system. The version suffix leaves room for a future scheme.
const identityDomain = "seqtest/program/v1"

// Program is validated bytecode together with its identity.
type Program struct {
	bytecode []byte
	id       types.ProgramID
	entry    uint32
}

// New validates bytecode and derives its identity. Bytecode that is not
// a RISC-V 32-bit executable is rejected with a *seqtest.ParseError.
func New(bytecode []byte) (*Program, error) {
	entry, err := validate(bytecode)
	if err != nil {
		return nil, err
	}
	b := make([]byte, len(bytecode))
	copy(b, bytecode)
	return &Program{
		bytecode: b,
		id:       hashBytecode(b),
		entry:    entry,
	}, nil
}

// Load reads bytecode from path and validates it. Read failures are
// reported as *seqtest.IOError, validation failures as *seqtest.ParseError.
func Load(path string) (*Program, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, &seqtest.IOError{Path: path, Err: err}
	}
	return New(b)
}

// Identity is New(bytecode).ID().
func Identity(bytecode []byte) (types.ProgramID, error) {
	p, err := New(bytecode)
	if err != nil {
		return types.ProgramID{}, err
	}
	return p.ID(), nil
}

// ID returns the content-derived program id.
func (p *Program) ID() types.ProgramID { return p.id }

// Bytecode returns a copy of the program image.
func (p *Program) Bytecode() []byte {
	b := make([]byte, len(p.bytecode))
	copy(b, p.bytecode)
	return b
}

// Entry returns the image entry point.
func (p *Program) Entry() uint32 { return p.entry }

// Size returns the image length in bytes.
func (p *Program) Size() int { return len(p.bytecode) }

func hashBytecode(b []byte) types.ProgramID {
	h := sha256.New()
	h.Write([]byte(identityDomain))
	h.Write([]byte{0x00})
	h.Write(b)
	var id types.ProgramID
	copy(id[:], h.Sum(nil))
	return id
}

func validate(b []byte) (uint32, error) {
	f, err := elf.NewFile(bytes.NewReader(b))
	if err != nil {
		return 0, &seqtest.ParseError{Reason: "not an ELF image", Err: err}
	}
	defer f.Close()

	switch {
	case f.Class != elf.ELFCLASS32:
		return 0, &seqtest.ParseError{Reason: fmt.Sprintf("expected ELFCLASS32, got %s", f.Class)}
	case f.Data != elf.ELFDATA2LSB:
		return 0, &seqtest.ParseError{Reason: fmt.Sprintf("expected little-endian image, got %s", f.Data)}
	case f.Machine != elf.EM_RISCV:
		return 0, &seqtest.ParseError{Reason: fmt.Sprintf("expected RISC-V machine, got %s", f.Machine)}
	case f.Type != elf.ET_EXEC:
		return 0, &seqtest.ParseError{Reason: fmt.Sprintf("expected executable image, got %s", f.Type)}
	}

	entryOK := false
	for i, p := range f.Progs {
		if p.Type != elf.PT_LOAD {
			continue
		}
		if p.Filesz > p.Memsz {
			return 0, &seqtest.ParseError{Reason: fmt.Sprintf("segment %d: file size %d exceeds memory size %d", i, p.Filesz, p.Memsz)}
		}
		if p.Off+p.Filesz > uint64(len(b)) {
			return 0, &seqtest.ParseError{Reason: fmt.Sprintf("segment %d extends past end of image", i)}
		}
		if p.Flags&elf.PF_X != 0 && f.Entry >= p.Vaddr && f.Entry < p.Vaddr+p.Memsz {
			entryOK = true
		}
	}
	if !entryOK {
		return 0, &seqtest.ParseError{Reason: fmt.Sprintf("entry point %#x is not inside an executable segment", f.Entry)}
	}
	return uint32(f.Entry), nil
}
