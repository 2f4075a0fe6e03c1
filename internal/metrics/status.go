package metrics

import "sort"

// StatusRow is one aggregated status-code bucket for display.
type StatusRow struct {
	Code  int
	Count int64
}

// ErrorRow is one aggregated error-kind bucket for display.
type ErrorRow struct {
	Kind  ErrorKind
	Count int64
}

// SortedStatusRows flattens a status-code histogram into rows sorted by
// descending count, then by code for stability.
func SortedStatusRows(counts map[int]int64) []StatusRow {
	if len(counts) == 0 {
		return nil
	}
	rows := make([]StatusRow, 0, len(counts))
	for code, count := range counts {
		rows = append(rows, StatusRow{Code: code, Count: count})
	}
	sort.Slice(rows, func(i, j int) bool {
		if rows[i].Count == rows[j].Count {
			return rows[i].Code < rows[j].Code
		}
		return rows[i].Count > rows[j].Count
	})
	return rows
}

// SortedErrorRows flattens an error-kind histogram into rows sorted by
// descending count, then by kind for stability.
func SortedErrorRows(counts map[ErrorKind]int64) []ErrorRow {
	if len(counts) == 0 {
		return nil
	}
	rows := make([]ErrorRow, 0, len(counts))
	for kind, count := range counts {
		rows = append(rows, ErrorRow{Kind: kind, Count: count})
	}
	sort.Slice(rows, func(i, j int) bool {
		if rows[i].Count == rows[j].Count {
			return rows[i].Kind < rows[j].Kind
		}
		return rows[i].Count > rows[j].Count
	})
	return rows
}
