package gin

import (
	"encoding/binary"
	"strconv"

	"github.com/Adarsh-Kmt/IndexInspector/pagecodec"
	"github.com/Adarsh-Kmt/IndexInspector/treewalk"
)

var Columns = []string{"value", "nrow"}

// Cells renders the row; int64 keys print as numbers.
func (row Row) Cells(ordering pagecodec.KeyOrdering) []string {

	value := treewalk.NullDatum
	switch {
	case row.Null:
	case ordering == pagecodec.OrderingInt64 && len(row.Value) == 8:
		value = strconv.FormatInt(int64(binary.LittleEndian.Uint64(row.Value)), 10)
	default:
		value = treewalk.FormatDatum(row.Value)
	}

	return []string{value, strconv.Itoa(row.Count)}
}
