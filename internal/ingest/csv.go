package ingest

import (
	"encoding/csv"
	"fmt"
	"os"
	"strconv"
	"strings"
)

// readCSV reads a whole CSV file and returns the header row and data rows.
func readCSV(path string) (header []string, rows [][]string, err error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, err
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.TrimLeadingSpace = true
	// Quarter columns make rows ragged in some exports.
	r.FieldsPerRecord = -1

	records, err := r.ReadAll()
	if err != nil {
		return nil, nil, fmt.Errorf("reading %s: %w", path, err)
	}
	if len(records) == 0 {
		return nil, nil, fmt.Errorf("%s: empty file", path)
	}
	return records[0], records[1:], nil
}

// columnIndex resolves canonical column names to positions using a rename
// map, so exports with either Korean or already-renamed headers both load.
func columnIndex(header []string, renames map[string]string) map[string]int {
	idx := make(map[string]int)
	for i, col := range header {
		name := strings.TrimSpace(col)
		if canonical, ok := renames[name]; ok {
			name = canonical
		}
		if _, taken := idx[name]; !taken {
			idx[name] = i
		}
	}
	return idx
}

// parseInt parses an integer cell, tolerating comma separators.
func parseInt(s string) (int64, error) {
	return strconv.ParseInt(strings.ReplaceAll(strings.TrimSpace(s), ",", ""), 10, 64)
}

// parseFloat parses a numeric cell, tolerating comma separators.
func parseFloat(s string) (float64, error) {
	return strconv.ParseFloat(strings.ReplaceAll(strings.TrimSpace(s), ",", ""), 64)
}
