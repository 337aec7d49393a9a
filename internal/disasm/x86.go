package disasm

import (
	"fmt"
	"strings"

	"golang.org/x/arch/x86/x86asm"

	"github.com/xyproto/b2g/internal/groundtruth"
)

// X86Backend decodes x86/x86-64 machine code using golang.org/x/arch's pure
// Go decoder — the concrete oracle implementation, standing in for the
// reference tool's Capstone binding.
type X86Backend struct{}

// NewX86Backend returns the default (and only fully wired) disassembler
// backend.
func NewX86Backend() *X86Backend {
	return &X86Backend{}
}

func (X86Backend) Disassemble(buf []byte, arch groundtruth.Architecture) ([]groundtruth.Instruction, error) {
	mode := 64
	if arch.EffectiveArchitecture() == groundtruth.X86 {
		mode = 32
	}

	var out []groundtruth.Instruction
	offset := 0
	for offset < len(buf) {
		inst, err := x86asm.Decode(buf[offset:], mode)
		if err != nil {
			return nil, fmt.Errorf("disasm: could not decode at offset 0x%x: %w", offset, err)
		}
		if inst.Len == 0 {
			return nil, fmt.Errorf("disasm: zero-length instruction at offset 0x%x", offset)
		}

		mnemonic := strings.ToLower(inst.Op.String())
		operand := formatArgs(inst)

		gi := groundtruth.Instruction{
			Mnemonic: mnemonic,
			Operand:  operand,
			Bytes:    append([]byte(nil), buf[offset:offset+inst.Len]...),
			Offset:   uint64(offset),
			Length:   uint64(inst.Len),
		}
		gi.Flags.Set(classifyGroup(inst.Op))

		if mnemonic == "nop" || isNonDestructiveLeaNop(inst) {
			gi.Flags.Set(groundtruth.INSTRUCTION_ALIGNMENT)
		}

		out = append(out, gi)
		offset += inst.Len
	}

	return out, nil
}

// classifyGroup maps an x86asm opcode to the spec's instruction-class flag,
// mirroring the reference tool's Capstone group -> FLAG table
// (CALL -> INSTRUCTION_CALL, INT -> INSTRUCTION_INT, IRET -> INSTRUCTION_IRET,
// JUMP -> INSTRUCTION_JUMP, RET -> INSTRUCTION_RET).
func classifyGroup(op x86asm.Op) groundtruth.Flag {
	switch op {
	case x86asm.JMP,
		x86asm.JA, x86asm.JAE, x86asm.JB, x86asm.JBE, x86asm.JCXZ, x86asm.JE,
		x86asm.JECXZ, x86asm.JG, x86asm.JGE, x86asm.JL, x86asm.JLE, x86asm.JNE,
		x86asm.JNO, x86asm.JNP, x86asm.JNS, x86asm.JO, x86asm.JP, x86asm.JRCXZ,
		x86asm.JS, x86asm.LOOP, x86asm.LOOPE, x86asm.LOOPNE:
		return groundtruth.INSTRUCTION_JUMP
	case x86asm.CALL:
		return groundtruth.INSTRUCTION_CALL
	case x86asm.RET:
		return groundtruth.INSTRUCTION_RET
	case x86asm.INT, x86asm.INTO:
		return groundtruth.INSTRUCTION_INT
	case x86asm.IRET, x86asm.IRETD, x86asm.IRETQ:
		return groundtruth.INSTRUCTION_IRET
	default:
		return 0
	}
}

// isNonDestructiveLeaNop reports whether inst is the MSVC-emitted
// "lea rXX, [rXX]" / "lea eXX, [eXX]" no-op padding form: a lea whose
// destination register is also the (sole) base register of its memory
// operand, with no index and no displacement.
//
// The spec describes this via a backreferencing regex on the formatted
// operand string; Go's RE2-based regexp package has no backreferences, so
// this compares the decoded register operands directly instead, which is
// the same condition without the regex detour.
func isNonDestructiveLeaNop(inst x86asm.Inst) bool {
	if strings.ToLower(inst.Op.String()) != "lea" {
		return false
	}

	dst, ok := inst.Args[0].(x86asm.Reg)
	if !ok {
		return false
	}
	mem, ok := inst.Args[1].(x86asm.Mem)
	if !ok {
		return false
	}
	if mem.Index != 0 || mem.Disp != 0 || mem.Base == 0 {
		return false
	}
	if mem.Base != dst {
		return false
	}

	name := strings.ToLower(dst.String())
	return strings.HasPrefix(name, "r") || strings.HasPrefix(name, "e")
}

func formatArgs(inst x86asm.Inst) string {
	var parts []string
	for _, arg := range inst.Args {
		if arg == nil {
			break
		}
		parts = append(parts, formatArg(arg, inst.MemBytes))
	}
	return strings.Join(parts, ", ")
}

func formatArg(arg x86asm.Arg, memBytes int) string {
	switch a := arg.(type) {
	case x86asm.Reg:
		return strings.ToLower(a.String())
	case x86asm.Mem:
		return memSizePrefix(memBytes) + "[" + formatMem(a) + "]"
	case x86asm.Imm:
		return formatHex(int64(a))
	case x86asm.Rel:
		return formatHex(int64(a))
	default:
		return strings.ToLower(arg.String())
	}
}

func formatMem(m x86asm.Mem) string {
	var b strings.Builder
	wrote := false
	if m.Base != 0 {
		b.WriteString(strings.ToLower(m.Base.String()))
		wrote = true
	}
	if m.Index != 0 {
		if wrote {
			b.WriteString("+")
		}
		fmt.Fprintf(&b, "%s*%d", strings.ToLower(m.Index.String()), m.Scale)
		wrote = true
	}
	if m.Disp != 0 || !wrote {
		if wrote && m.Disp >= 0 {
			b.WriteString("+")
		}
		b.WriteString(formatHex(m.Disp))
	}
	return b.String()
}

// formatHex renders a signed displacement/immediate as "0x10" or "-0x10",
// never the malformed "0x-10" fmt's "%x" verb produces for negative values.
func formatHex(v int64) string {
	if v < 0 {
		return fmt.Sprintf("-0x%x", uint64(-v))
	}
	return fmt.Sprintf("0x%x", v)
}

func memSizePrefix(memBytes int) string {
	switch memBytes {
	case 1:
		return "byte ptr "
	case 2:
		return "word ptr "
	case 4:
		return "dword ptr "
	case 8:
		return "qword ptr "
	case 16:
		return "xmmword ptr "
	case 32:
		return "ymmword ptr "
	default:
		return ""
	}
}
