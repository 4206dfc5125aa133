package google

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"txdash/internal/core"
)

var errMissingHeader = errors.New("sheet has no header row")

// parseValues converts a values matrix (as returned by the Sheets API) into a
// raw table. Rows shorter than the header leave the trailing cells missing.
func parseValues(values [][]interface{}) (core.RawTable, error) {
	if len(values) == 0 {
		return core.RawTable{}, errMissingHeader
	}
	headers := toStrings(values[0])
	empty := true
	for _, h := range headers {
		if h != "" {
			empty = false
			break
		}
	}
	if empty {
		return core.RawTable{}, errMissingHeader
	}

	table := core.RawTable{Columns: headers}
	for i := 1; i < len(values); i++ {
		cells := toStrings(values[i])
		row := make(core.RawRecord, len(headers))
		for j, col := range headers {
			v := safeGet(cells, j)
			if col == "" || v == "" {
				continue
			}
			row[col] = v
		}
		if len(row) == 0 {
			continue
		}
		table.Rows = append(table.Rows, row)
	}
	return table, nil
}

// toStrings renders cells as text. Whole numbers lose the trailing ".0" the
// JSON decoder would otherwise give them.
func toStrings(in []interface{}) []string {
	out := make([]string, len(in))
	for i, v := range in {
		switch n := v.(type) {
		case float64:
			out[i] = strconv.FormatFloat(n, 'f', -1, 64)
		default:
			out[i] = strings.TrimSpace(fmt.Sprint(v))
		}
	}
	return out
}

func safeGet(arr []string, idx int) string {
	if idx < 0 || idx >= len(arr) {
		return ""
	}
	return arr[idx]
}
