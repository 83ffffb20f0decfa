package utils

import (
	"encoding/csv"
	"fmt"
	"io"
	"sort"

	"github.com/facette/natsort"
)

type CSV [][]string

func (data CSV) Less(i, j int) bool {
	for k := range min(len(data[i]), len(data[j])) {
		if data[i][k] != data[j][k] {
			return natsort.Compare(data[i][k], data[j][k])
		}
	}
	return len(data[i]) < len(data[j])
}

func (data CSV) Len() int {
	return len(data)
}
func (data CSV) Swap(i, j int) {
	data[i], data[j] = data[j], data[i]
}

// WriteAsCSV writes the header followed by rows in natural order.
func WriteAsCSV(w io.Writer, columns []string, data CSV) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(columns); err != nil {
		return fmt.Errorf("write csv header: %w", err)
	}
	sort.Stable(data)
	if err := cw.WriteAll(data); err != nil {
		return fmt.Errorf("write csv rows: %w", err)
	}
	return nil
}
