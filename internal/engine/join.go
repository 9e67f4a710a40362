package engine

import (
	"log/slog"

	"github.com/leengari/minidb/internal/data"
)

// mergeRows combines a left row and a right row into one flat output row.
// A right-side key already present in the merged row is stored under
// "<rightTable>_<key>" so a name collision never silently drops a column.
func mergeRows(left, right data.Row, rightTable string) data.Row {
	merged := left.Copy()
	for k, v := range right.Data {
		if _, exists := merged.Data[k]; exists {
			merged.Data[rightTable+"_"+k] = v
		} else {
			merged.Data[k] = v
		}
	}
	return merged
}

// hashJoin computes the inner equi-join of two row sets in O(N+M): the
// smaller input becomes the build side and is hashed into a multimap on its
// join column; the larger side streams through and probes for matches.
// Output rows are always merged left-seeded regardless of which side was
// built, so the collision rule sees the true right table name.
func hashJoin(leftRows, rightRows []data.Row, leftColumn, rightColumn, rightTable string) []data.Row {
	buildRows, probeRows := leftRows, rightRows
	buildColumn, probeColumn := leftColumn, rightColumn
	swapped := false
	if len(rightRows) < len(leftRows) {
		buildRows, probeRows = rightRows, leftRows
		buildColumn, probeColumn = rightColumn, leftColumn
		swapped = true
	}

	multimap := make(map[interface{}][]data.Row, len(buildRows))
	for _, row := range buildRows {
		val, ok := row.Data[buildColumn]
		if !ok || val == nil {
			continue // NULL join keys never match
		}
		key := data.HashKey(val)
		multimap[key] = append(multimap[key], row)
	}

	var result []data.Row
	for _, probeRow := range probeRows {
		val, ok := probeRow.Data[probeColumn]
		if !ok || val == nil {
			continue
		}
		for _, buildRow := range multimap[data.HashKey(val)] {
			if swapped {
				// build side is the right table
				result = append(result, mergeRows(probeRow, buildRow, rightTable))
			} else {
				result = append(result, mergeRows(buildRow, probeRow, rightTable))
			}
		}
	}

	slog.Debug("hash join completed",
		"build_rows", len(buildRows), "probe_rows", len(probeRows), "result_rows", len(result))
	return result
}

// nestedLoopJoin is the O(N*M) reference implementation, selectable via
// configuration for comparison and benchmarking against hashJoin.
func nestedLoopJoin(leftRows, rightRows []data.Row, leftColumn, rightColumn, rightTable string) []data.Row {
	var result []data.Row
	for _, leftRow := range leftRows {
		lv, ok := leftRow.Data[leftColumn]
		if !ok || lv == nil {
			continue
		}
		for _, rightRow := range rightRows {
			rv, ok := rightRow.Data[rightColumn]
			if !ok || rv == nil {
				continue
			}
			if data.HashKey(lv) == data.HashKey(rv) {
				result = append(result, mergeRows(leftRow, rightRow, rightTable))
			}
		}
	}
	return result
}
