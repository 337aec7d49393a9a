package main

// cli.go implements the b2g command line: a single positional pair, no
// subcommands, no flags, no environment variables.
//
//	b2g <DUMP> <BINARY>

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/xyproto/b2g/internal/container"
	"github.com/xyproto/b2g/internal/disasm"
	"github.com/xyproto/b2g/internal/emit"
	"github.com/xyproto/b2g/internal/groundtruth"
	"github.com/xyproto/b2g/internal/pipeline"
	"github.com/xyproto/b2g/internal/symboldump"
)

// Run executes the b2g CLI over args (os.Args[1:]) and returns the process
// exit code: 0 on success, 1 on any fatal error.
func Run(args []string) int {
	if len(args) != 2 {
		fmt.Fprintln(os.Stderr, "usage: b2g <DUMP> <BINARY>")
		return 1
	}
	dumpPath, binaryPath := args[0], args[1]

	format, err := container.Sniff(binaryPath)
	if err != nil {
		slog.Error("could not sniff binary", "path", binaryPath, "err", err)
		return 1
	}

	switch format {
	case container.PE:
		return runPE(dumpPath, binaryPath)
	case container.ELF:
		return runELF(dumpPath, binaryPath)
	default:
		slog.Error("unrecognized container format, nothing written", "path", binaryPath)
		return 0
	}
}

func runPE(dumpPath, binaryPath string) int {
	bin, err := container.ReadPE(binaryPath)
	if err != nil {
		slog.Error("could not read PE binary", "path", binaryPath, "err", err)
		return 1
	}

	pdb, err := symboldump.LoadPDB(dumpPath)
	if err != nil {
		slog.Error("could not load PDB symbol dump", "path", dumpPath, "err", err)
		return 1
	}

	result, err := pipeline.RunPE(binaryPath, bin, pdb, disasm.NewX86Backend())
	if err != nil {
		slog.Error("pipeline failed", "path", binaryPath, "err", err)
		return 1
	}

	return emitResult(result, bin.Sections, pdb.ImageBase, binaryPath)
}

func runELF(dumpPath, binaryPath string) int {
	bin, err := container.ReadELF(binaryPath)
	if err != nil {
		slog.Error("could not read ELF binary", "path", binaryPath, "err", err)
		return 1
	}

	dwarf, err := symboldump.LoadDWARF(dumpPath)
	if err != nil {
		slog.Error("could not load DWARF symbol dump", "path", dumpPath, "err", err)
		return 1
	}

	result, err := pipeline.RunELF(binaryPath, bin, dwarf, disasm.NewX86Backend())
	if err != nil {
		slog.Error("pipeline failed", "path", binaryPath, "err", err)
		return 1
	}

	return emitResult(result, bin.Sections, dwarf.ImageBase, binaryPath)
}

// stem derives the output file stem from the binary's base name, dropping
// its extension: "bin/foo.exe" -> "foo".
func stem(binaryPath string) string {
	base := filepath.Base(binaryPath)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// emitResult writes the plain and structured dumps for a completed pipeline
// run to "<stem>.txt" and "<stem>.yaml" in the current working directory
// (the stem carries no directory part).
func emitResult(result *pipeline.Result, sections []groundtruth.Section, imageBase uint64, binaryPath string) int {
	out := stem(binaryPath)

	if err := emit.WritePlain(out, sections, imageBase, result.Buffer); err != nil {
		slog.Error("could not write plain dump", "err", err)
		return 1
	}

	dump := emit.BuildDump(result.Architecture, result.Buffer, result.Functions, result.Instructions, time.Now())
	if err := emit.WriteDump(out, dump); err != nil {
		slog.Error("could not write structured dump", "err", err)
		return 1
	}

	slog.Info("wrote dumps", "plain", out+".txt", "yaml", out+".yaml")
	return 0
}
