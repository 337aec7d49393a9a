package groundtruth

// Architecture enumerates the instruction set a set of debug symbols was
// compiled for. UNKNOWN is a valid, silently-recovered value (§6/§7 of the
// spec): downstream code treats it the same as X64.
type Architecture int

const (
	X64 Architecture = iota
	X86
	UNKNOWN
)

func (a Architecture) String() string {
	switch a {
	case X86:
		return "x86"
	case X64:
		return "x64"
	default:
		return "unknown"
	}
}

// DefaultImageBase returns the conventional image base for the architecture:
// 0x400000 for x86, 0x140000000 for x64 (and for UNKNOWN, which is treated
// as x64 downstream).
func (a Architecture) DefaultImageBase() uint64 {
	if a == X86 {
		return 0x400000
	}
	return 0x140000000
}

// EffectiveArchitecture maps UNKNOWN to X64 for any code path that needs a
// concrete decode mode (the disassembler, the default image base).
func (a Architecture) EffectiveArchitecture() Architecture {
	if a == UNKNOWN {
		return X64
	}
	return a
}
