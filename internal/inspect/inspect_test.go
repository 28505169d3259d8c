package inspect

// Copyright (C) 2021-2025 Intel Corporation
// SPDX-License-Identifier: BSD-3-Clause

import (
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tracelab/internal/artifact"
)

const readelfHeader = `ELF Header:
  Magic:   7f 45 4c 46 02 01 01 00 00 00 00 00 00 00 00 00
  Class:                             ELF64
  OS/ABI:                            UNIX - System V
  Type:                              DYN (Position-Independent Executable file)
  Machine:                           AArch64
`

// readelfTarget answers readelf and objdump invocations from canned output.
type readelfTarget struct {
	tools   map[string]bool
	outputs map[string]string // keyed by "<tool> <flag>"
	failing map[string]bool
}

func (f *readelfTarget) GetName() string                  { return "fake" }
func (f *readelfTarget) GetArchitecture() (string, error) { return "x86_64", nil }
func (f *readelfTarget) CommandExists(name string) bool   { return f.tools[name] }
func (f *readelfTarget) RunCommand(cmd *exec.Cmd, timeout int) (string, string, int, bool, error) {
	key := strings.Join(cmd.Args[:2], " ")
	if f.failing[key] {
		return "", "readelf: Error: Not an ELF file", 1, false, nil
	}
	return f.outputs[key], "", 0, false, nil
}

func tempBinary(t *testing.T) string {
	path := filepath.Join(t.TempDir(), "bench")
	require.NoError(t, os.WriteFile(path, []byte("\x7fELF"), 0755)) // #nosec G306
	return path
}

func TestBinary(t *testing.T) {
	tests := []struct {
		name         string
		target       *readelfTarget
		isa          string
		abi          string
		linkage      string
		symbols      string
		pltgot       string
		disassembler string
		hints        []string
		notes        []string
	}{
		{
			name: "dynamic aarch64",
			target: &readelfTarget{
				tools: map[string]bool{"readelf": true, "objdump": true},
				outputs: map[string]string{
					"readelf -h": readelfHeader,
					"readelf -l": "  INTERP         0x0000000000000238\n  DYNAMIC        0x0000000000010df8\n",
					"readelf -s": "Symbol table '.dynsym' contains 7 entries:\nSymbol table '.symtab' contains 65 entries:\n",
					"readelf -S": "  [11] .plt              PROGBITS\n  [21] .got              PROGBITS\n",
				},
			},
			isa:          "AArch64",
			abi:          "UNIX - System V",
			linkage:      "dynamic",
			symbols:      "symtab_present",
			pltgot:       "present",
			disassembler: "objdump",
			hints:        []string{"aarch64"},
			notes:        []string{},
		},
		{
			name: "stripped static",
			target: &readelfTarget{
				tools: map[string]bool{"readelf": true, "llvm-objdump": true},
				outputs: map[string]string{
					"readelf -h": strings.ReplaceAll(strings.ReplaceAll(readelfHeader, "AArch64", "Advanced Micro Devices X86-64"), "DYN (Position-Independent Executable file)", "EXEC (Executable file)"),
					"readelf -l": "  LOAD           0x0000000000000000\n",
					"readelf -s": "\n",
					"readelf -S": "  [ 1] .text             PROGBITS\n",
				},
			},
			isa:          "Advanced Micro Devices X86-64",
			abi:          "UNIX - System V",
			linkage:      "static_or_unknown",
			symbols:      "no_symbols_detected",
			pltgot:       "not_detected",
			disassembler: "llvm-objdump",
			hints:        []string{"x86_64"},
			notes:        []string{},
		},
		{
			name: "program headers fail, fall back to type",
			target: &readelfTarget{
				tools:   map[string]bool{"readelf": true},
				outputs: map[string]string{"readelf -h": readelfHeader, "readelf -s": "Symbol table '.dynsym' contains 7 entries:\n"},
				failing: map[string]bool{"readelf -l": true, "readelf -S": true},
			},
			isa:          "AArch64",
			abi:          "UNIX - System V",
			linkage:      "dynamic_or_pie",
			symbols:      "dynsym_only_probably_stripped",
			pltgot:       Unknown,
			disassembler: "missing",
			hints:        []string{"aarch64"},
			notes:        []string{"readelf -l failed", "readelf -S failed", "objdump and llvm-objdump missing"},
		},
		{
			name: "no tools",
			target: &readelfTarget{
				tools: map[string]bool{},
			},
			isa:          Unknown,
			abi:          Unknown,
			linkage:      Unknown,
			symbols:      Unknown,
			pltgot:       Unknown,
			disassembler: "missing",
			hints:        []string{},
			notes:        []string{"readelf missing", "objdump and llvm-objdump missing"},
		},
		{
			name: "disassembler fails",
			target: &readelfTarget{
				tools:   map[string]bool{"objdump": true},
				failing: map[string]bool{"objdump -d": true},
			},
			isa:          Unknown,
			abi:          Unknown,
			linkage:      Unknown,
			symbols:      Unknown,
			pltgot:       Unknown,
			disassembler: "objdump",
			hints:        []string{},
			notes:        []string{"readelf missing", "objdump -d failed"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := tempBinary(t)
			r, err := Binary(tt.target, path)
			require.NoError(t, err)
			assert.Equal(t, artifact.KindInspect, r.Kind)
			assert.Equal(t, path, r.Binary)
			assert.Equal(t, tt.isa, r.ISAArch)
			assert.Equal(t, tt.abi, r.ABI)
			assert.Equal(t, tt.linkage, r.Linkage)
			assert.Equal(t, tt.symbols, r.Symbols)
			assert.Equal(t, tt.pltgot, r.PLTGOT)
			assert.Equal(t, tt.disassembler, r.Disassembler)
			assert.Equal(t, tt.hints, r.QEMUSelectorHints)
			assert.Equal(t, []string{"x86_64", "aarch64", "riscv64"}, r.QEMUSupportedSelectors)
			assert.Equal(t, tt.notes, r.Notes)
		})
	}
}

func TestBinaryNotFound(t *testing.T) {
	_, err := Binary(&readelfTarget{}, filepath.Join(t.TempDir(), "missing"))
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestLabeledField(t *testing.T) {
	v, ok := labeledField(readelfHeader, "Machine:")
	assert.True(t, ok)
	assert.Equal(t, "AArch64", v)
	_, ok = labeledField(readelfHeader, "Entry point address:")
	assert.False(t, ok)
}
