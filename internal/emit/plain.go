package emit

import (
	"fmt"
	"os"
	"strings"

	"github.com/xyproto/b2g/internal/groundtruth"
)

// Plain renders the run-compressed per-byte dump: one section header block,
// then (for .text only) one line per run of bytes sharing a class. A run also
// ends before any byte that starts an instruction, so each instruction start
// opens a new line.
// The displayed address is the byte's rebased offset plus imageBase, matching
// the reference tool's double-basing of PE/ELF text addresses.
func Plain(sections []groundtruth.Section, imageBase uint64, buf *groundtruth.ByteBuffer) string {
	var sb strings.Builder

	for _, s := range sections {
		fmt.Fprintf(&sb, "******* section %s *******\n", s.Name)
		fmt.Fprintf(&sb, "<%s va: 0x%08X, size:0x%08X, flags: []>\n", s.Name, s.VA, s.RawDataSize)

		if s.Name != ".text" {
			continue
		}

		bytes := buf.Bytes
		i := 0
		for i < len(bytes) {
			b := bytes[i]
			fmt.Fprintf(&sb, "@0x%012X: ", b.Offset+imageBase)

			switch {
			case b.IsCode():
				sb.WriteString(codeRunFlags(b))
				i++
				for i < len(bytes) && bytes[i].IsCode() && !bytes[i].IsInstructionStart() && !bytes[i].IsData() && !bytes[i].IsAlignment() {
					sb.WriteString("C")
					i++
				}
			case b.IsData():
				sb.WriteString("D]")
				i++
				for i < len(bytes) && bytes[i].IsData() && !bytes[i].IsInstructionStart() && !bytes[i].IsCode() && !bytes[i].IsAlignment() {
					sb.WriteString("D")
					i++
				}
			case b.IsAlignment():
				sb.WriteString("N]")
				i++
				for i < len(bytes) && bytes[i].IsAlignment() && !bytes[i].IsInstructionStart() && !bytes[i].IsCode() && !bytes[i].IsData() {
					sb.WriteString("N")
					i++
				}
			default:
				sb.WriteString("U]")
				i++
				for i < len(bytes) && !bytes[i].IsAlignment() && !bytes[i].IsInstructionStart() && !bytes[i].IsCode() && !bytes[i].IsData() {
					sb.WriteString("U")
					i++
				}
			}
			sb.WriteString("\n")
		}
	}

	return sb.String()
}

// codeRunFlags renders the leading byte of a code run: one character per set
// flag in fixed order F, N, J, 3, R, I, then the mandatory trailing C.
func codeRunFlags(b groundtruth.Byte) string {
	var sb strings.Builder
	sb.WriteString("[")
	if b.IsFunctionStart() {
		sb.WriteString("F")
	}
	if b.IsAlignment() {
		sb.WriteString("N")
	}
	if b.IsInstructionJump() {
		sb.WriteString("J")
	}
	if b.IsInstructionInt() {
		sb.WriteString("3")
	}
	if b.IsInstructionReturn() {
		sb.WriteString("R")
	}
	if b.IsInstructionStart() {
		sb.WriteString("I")
	}
	sb.WriteString("C]")
	return sb.String()
}

// WritePlain writes the plain dump to "<stem>.txt".
func WritePlain(stem string, sections []groundtruth.Section, imageBase uint64, buf *groundtruth.ByteBuffer) error {
	content := Plain(sections, imageBase, buf)
	if err := os.WriteFile(stem+".txt", []byte(content), 0o644); err != nil {
		return fmt.Errorf("emit: could not write %s.txt: %w", stem, err)
	}
	return nil
}
