package program

import (
	"bytes"
	"debug/elf"
	"encoding/binary"
)

const (
	imageBase   = 0x10000
	headerSize  = 52
	progHdrSize = 32
)

// nop is the RV32I encoding of addi x0, x0, 0.
var nop = []byte{0x13, 0x00, 0x00, 0x00}

// BuildImage assembles a minimal single-segment RV32 executable whose
// text is the given payload. Natively backed programs use it to get a
// stable image, and therefore a stable identity, for their logic.
// An empty payload is replaced by a single nop.
func BuildImage(text []byte) []byte {
	if len(text) == 0 {
		text = nop
	}
	textOff := uint32(headerSize + progHdrSize)
	total := textOff + uint32(len(text))

	hdr := elf.Header32{
		Type:      uint16(elf.ET_EXEC),
		Machine:   uint16(elf.EM_RISCV),
		Version:   uint32(elf.EV_CURRENT),
		Entry:     imageBase + textOff,
		Phoff:     headerSize,
		Ehsize:    headerSize,
		Phentsize: progHdrSize,
		Phnum:     1,
		Shentsize: 40,
	}
	copy(hdr.Ident[:], elf.ELFMAG)
	hdr.Ident[elf.EI_CLASS] = byte(elf.ELFCLASS32)
	hdr.Ident[elf.EI_DATA] = byte(elf.ELFDATA2LSB)
	hdr.Ident[elf.EI_VERSION] = byte(elf.EV_CURRENT)

	prog := elf.Prog32{
		Type:   uint32(elf.PT_LOAD),
		Off:    0,
		Vaddr:  imageBase,
		Paddr:  imageBase,
		Filesz: total,
		Memsz:  total,
		Flags:  uint32(elf.PF_R | elf.PF_X),
		Align:  0x1000,
	}

	var buf bytes.Buffer
	buf.Grow(int(total))
	// Writes to a bytes.Buffer cannot fail.
	_ = binary.Write(&buf, binary.LittleEndian, &hdr)
	_ = binary.Write(&buf, binary.LittleEndian, &prog)
	buf.Write(text)
	return buf.Bytes()
}
