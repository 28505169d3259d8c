// Package parse converts raw telemetry tool output into typed structures.
//
// The parsers are lenient: a malformed row or token is skipped, and only an
// input that yields no usable rows at all is reported, as ErrNoData.
package parse

// Copyright (C) 2021-2025 Intel Corporation
// SPDX-License-Identifier: BSD-3-Clause

import (
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

// ErrNoData is returned when no usable rows were found in the input.
var ErrNoData = errors.New("no usable rows in input")

// CanonicalizeNumber normalizes locale grouping and decimal variants so the
// result uses '.' as the only decimal separator and carries no grouping.
//
//	"1,234"    -> "1234"     (three digits follow the single comma)
//	"12,5"     -> "12.5"     (comma is the decimal point)
//	"1.234,56" -> "1234.56"  (the last separator is the decimal point)
//	"1,234.56" -> "1234.56"
func CanonicalizeNumber(value string) string {
	value = strings.TrimSpace(value)
	value = strings.ReplaceAll(value, " ", "")
	commas := strings.Count(value, ",")
	dots := strings.Count(value, ".")
	switch {
	case commas > 0 && dots == 0:
		digitsAfter := len(value) - strings.LastIndex(value, ",") - 1
		if commas >= 2 || digitsAfter == 3 {
			value = strings.ReplaceAll(value, ",", "")
		} else {
			value = strings.ReplaceAll(value, ",", ".")
		}
	case commas > 0 && dots > 0:
		value = resolveMixedSeparators(value)
	}
	return value
}

// resolveMixedSeparators handles tokens carrying both ',' and '.'. The
// separator that appears last is the decimal point and the other one groups
// thousands.
func resolveMixedSeparators(value string) string {
	if strings.LastIndex(value, ",") > strings.LastIndex(value, ".") {
		value = strings.ReplaceAll(value, ".", "")
		return strings.ReplaceAll(value, ",", ".")
	}
	return strings.ReplaceAll(value, ",", "")
}

// ParseCounterValue parses a possibly localized counter token.
func ParseCounterValue(token string) (float64, bool) {
	canonical := CanonicalizeNumber(token)
	var sb strings.Builder
	for _, ch := range canonical {
		if (ch >= '0' && ch <= '9') || ch == '.' || ch == '-' || ch == '+' || ch == 'e' || ch == 'E' {
			sb.WriteRune(ch)
		}
	}
	cleaned := sb.String()
	if cleaned == "" {
		return 0, false
	}
	v, err := strconv.ParseFloat(cleaned, 64)
	if err != nil {
		return 0, false
	}
	return v, true
}

// parseSeconds parses a syscall time column. Unlike counter values, a lone
// comma is always a decimal point here, and with both separators present the
// commas are grouping and dropped.
func parseSeconds(token string) (float64, bool) {
	normalized := strings.ReplaceAll(strings.TrimSpace(token), " ", "")
	commas := strings.Count(normalized, ",")
	dots := strings.Count(normalized, ".")
	switch {
	case commas > 0 && dots == 0:
		normalized = strings.ReplaceAll(normalized, ",", ".")
	case commas > 0 && dots > 0:
		normalized = strings.ReplaceAll(normalized, ",", "")
	}
	v, err := strconv.ParseFloat(normalized, 64)
	if err != nil {
		return 0, false
	}
	return v, true
}
