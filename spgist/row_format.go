package spgist

import (
	"strconv"

	"github.com/Adarsh-Kmt/IndexInspector/treewalk"
)

var Columns = []string{"tid", "allthesame", "node", "level", "tid_pointer", "prefix", "node_label", "leaf_value"}

func (row Row) Cells() []string {

	cells := []string{row.Tid.String(), treewalk.NullDatum, treewalk.NullDatum, strconv.Itoa(row.Level), treewalk.NullDatum}

	if row.AllTheSame != nil {
		cells[1] = strconv.FormatBool(*row.AllTheSame)
	}
	if row.Node != nil {
		cells[2] = strconv.Itoa(*row.Node)
	}
	if row.TidPointer != nil {
		cells[4] = row.TidPointer.String()
	}

	return append(cells, treewalk.FormatDatum(row.Prefix), treewalk.FormatDatum(row.Label), treewalk.FormatDatum(row.Leaf))
}
