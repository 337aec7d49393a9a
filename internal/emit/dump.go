package emit

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/xyproto/b2g/internal/groundtruth"
)

// DumpVersion is the structured dump's format version, reported verbatim in
// every emitted file.
const DumpVersion = "v0.1"

// Dump is the full structured record written alongside the plain dump: every
// byte, function, and instruction the pipeline produced, plus summary
// statistics over the finished buffer.
type Dump struct {
	Version         string                    `yaml:"version"`
	Timestamp       int64                     `yaml:"timestamp"`
	Architecture    string                    `yaml:"architecture"`
	TotalBytes      uint64                    `yaml:"total_bytes"`
	BytesIdentified uint64                    `yaml:"bytes_identified"`
	Accuracy        float64                   `yaml:"accuracy"`
	Bytes           []groundtruth.Byte        `yaml:"bytes"`
	Functions       []groundtruth.Function    `yaml:"functions"`
	Instructions    []groundtruth.Instruction `yaml:"instructions"`
}

// BuildDump assembles a Dump from a finished pipeline run. now is injected so
// callers can hold timestamps fixed in tests.
func BuildDump(arch groundtruth.Architecture, buf *groundtruth.ByteBuffer, fns []groundtruth.Function, insts []groundtruth.Instruction, now time.Time) Dump {
	total := uint64(len(buf.Bytes))

	var identified uint64
	for _, b := range buf.Bytes {
		if !b.Flags.Empty() {
			identified++
		}
	}

	var accuracy float64
	if total > 0 {
		accuracy = 100.0 * float64(identified) / float64(total)
	}

	return Dump{
		Version:         DumpVersion,
		Timestamp:       now.Unix(),
		Architecture:    arch.String(),
		TotalBytes:      total,
		BytesIdentified: identified,
		Accuracy:        accuracy,
		Bytes:           buf.Bytes,
		Functions:       fns,
		Instructions:    insts,
	}
}

// WriteDump serializes d as YAML to "<stem>.yaml".
func WriteDump(stem string, d Dump) error {
	out, err := yaml.Marshal(d)
	if err != nil {
		return fmt.Errorf("emit: could not marshal dump: %w", err)
	}
	if err := os.WriteFile(stem+".yaml", out, 0o644); err != nil {
		return fmt.Errorf("emit: could not write %s.yaml: %w", stem, err)
	}
	return nil
}
