package report

// Copyright (C) 2021-2025 Intel Corporation
// SPDX-License-Identifier: BSD-3-Clause

import (
	"encoding/json"

	"tracelab/internal/table"
)

// createJsonReport maps each table name to a list of records keyed by field
// name. Tables without data map to an empty list.
func createJsonReport(allTableValues []table.TableValues) ([]byte, error) {
	doc := make(map[string][]map[string]string, len(allTableValues))
	for _, tv := range allTableValues {
		records := []map[string]string{}
		if len(tv.Fields) > 0 {
			for i := range tv.Fields[0].Values {
				record := make(map[string]string, len(tv.Fields))
				for _, field := range tv.Fields {
					record[field.Name] = field.Values[i]
				}
				records = append(records, record)
			}
		}
		doc[tv.Name] = records
	}
	return json.MarshalIndent(doc, "", " ")
}
