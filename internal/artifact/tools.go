package artifact

// Copyright (C) 2021-2025 Intel Corporation
// SPDX-License-Identifier: BSD-3-Clause

// DoctorResult is the doctor_result document.
type DoctorResult struct {
	Header
	Host            Host              `json:"host"`
	Required        map[string]string `json:"required"`
	Optional        map[string]string `json:"optional"`
	MissingRequired bool              `json:"missing_required"`
}

// InspectResult is the inspect_result document.
type InspectResult struct {
	Header
	Binary                 string   `json:"binary"`
	ISAArch                string   `json:"isa_arch"`
	ABI                    string   `json:"abi"`
	Linkage                string   `json:"linkage"`
	Symbols                string   `json:"symbols"`
	PLTGOT                 string   `json:"plt_got"`
	QEMUSupportedSelectors []string `json:"qemu_supported_selectors"`
	QEMUSelectorHints      []string `json:"qemu_selector_hints"`
	Disassembler           string   `json:"disassembler"`
	Notes                  []string `json:"notes"`
}

// LoadDoctorResult reads a doctor_result document.
func LoadDoctorResult(path string) (DoctorResult, error) {
	var r DoctorResult
	err := load(path, KindDoctor, &r)
	return r, err
}

// LoadInspectResult reads an inspect_result document.
func LoadInspectResult(path string) (InspectResult, error) {
	var r InspectResult
	err := load(path, KindInspect, &r)
	return r, err
}
