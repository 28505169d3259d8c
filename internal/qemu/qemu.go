// Package qemu maps architecture names to QEMU user-mode emulator selectors.
package qemu

// Copyright (C) 2021-2025 Intel Corporation
// SPDX-License-Identifier: BSD-3-Clause

import "strings"

// Supported selectors.
const (
	ArchX86_64  = "x86_64"
	ArchAArch64 = "aarch64"
	ArchRISCV64 = "riscv64"
)

var archAliases = map[string]string{
	ArchX86_64:  ArchX86_64,
	"amd64":     ArchX86_64,
	"x64":       ArchX86_64,
	ArchAArch64: ArchAArch64,
	"arm64":     ArchAArch64,
	ArchRISCV64: ArchRISCV64,
	"riscv":     ArchRISCV64,
	"rv64":      ArchRISCV64,
}

// SupportedArches returns the selectors accepted by --qemu, in display order.
func SupportedArches() []string {
	return []string{ArchX86_64, ArchAArch64, ArchRISCV64}
}

// SupportedArchesText returns the selectors joined for error messages.
func SupportedArchesText() string {
	return strings.Join(SupportedArches(), ", ")
}

// NormalizeArch resolves an architecture name or alias to a supported selector.
func NormalizeArch(arch string) (string, bool) {
	normalized, ok := archAliases[strings.ToLower(strings.TrimSpace(arch))]
	return normalized, ok
}

var isaPatterns = []struct {
	substrings []string
	arch       string
}{
	{[]string{"x86-64", "x86_64"}, ArchX86_64},
	{[]string{"aarch64", "arm64"}, ArchAArch64},
	{[]string{"risc-v", "riscv"}, ArchRISCV64},
}

// HintsFromISA returns the selectors likely to run a binary whose ELF machine
// string (as printed by readelf) is isa. Unknown machines yield no hints.
func HintsFromISA(isa string) []string {
	lower := strings.ToLower(isa)
	for _, p := range isaPatterns {
		for _, sub := range p.substrings {
			if strings.Contains(lower, sub) {
				return []string{p.arch}
			}
		}
	}
	return []string{}
}

// Binary returns the emulator executable for a normalized selector.
func Binary(arch string) string {
	return "qemu-" + arch
}
