package treewalk

import (
	"encoding/hex"
	"unicode/utf8"
)

const NullDatum = "NULL"

// FormatDatum renders a stored value for display: printable UTF-8 as is,
// anything else as \x-prefixed hex.
func FormatDatum(value []byte) string {

	if value == nil {
		return NullDatum
	}

	if utf8.Valid(value) {
		printable := true
		for _, r := range string(value) {
			if r < 0x20 || r == 0x7f {
				printable = false
				break
			}
		}
		if printable {
			return string(value)
		}
	}

	return `\x` + hex.EncodeToString(value)
}
