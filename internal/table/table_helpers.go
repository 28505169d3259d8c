// Copyright (C) 2021-2025 Intel Corporation
// SPDX-License-Identifier: BSD-3-Clause

// table_helpers.go contains helpers that format artifact values for display.

package table

import (
	"strconv"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// NotAvailable is shown for absent values.
const NotAvailable = "n/a"

// FormatFloat formats v with a fixed number of decimals.
func FormatFloat(v float64, decimals int) string {
	return strconv.FormatFloat(v, 'f', decimals, 64)
}

// FormatOptionalFloat formats a possibly absent value.
func FormatOptionalFloat(v *float64, decimals int) string {
	if v == nil {
		return NotAvailable
	}
	return FormatFloat(*v, decimals)
}

// FormatOptionalInt formats a possibly absent integer with thousands separators.
func FormatOptionalInt(v *int64) string {
	if v == nil {
		return NotAvailable
	}
	return FormatCount(float64(*v))
}

// FormatCount formats a counter value with thousands separators, e.g., 1,234,567
func FormatCount(v float64) string {
	p := message.NewPrinter(language.English)
	return p.Sprintf("%d", int64(v))
}

// FormatBool returns yes or no.
func FormatBool(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}

// Column returns a field holding one value per row.
func Column(name string, values []string) Field {
	if values == nil {
		values = []string{}
	}
	return Field{Name: name, Values: values}
}

// Pair returns a single-valued field.
func Pair(name string, value string) Field {
	return Field{Name: name, Values: []string{value}}
}
