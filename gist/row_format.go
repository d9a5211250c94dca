package gist

import (
	"fmt"
	"strconv"

	"github.com/Adarsh-Kmt/IndexInspector/treewalk"
)

// Columns names the cells of a row for a tree with numAttrs attributes.
func Columns(numAttrs int) []string {

	columns := []string{"level", "valid"}
	for i := range numAttrs {
		columns = append(columns, fmt.Sprintf("a%d", i+1))
	}
	return columns
}

func (row Row) Cells(numAttrs int) []string {

	cells := []string{strconv.Itoa(row.Level), strconv.FormatBool(row.Valid)}
	for i := range numAttrs {
		var value []byte
		if i < len(row.Payload) {
			value = row.Payload[i]
		}
		cells = append(cells, treewalk.FormatDatum(value))
	}
	return cells
}
