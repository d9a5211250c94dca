package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/olekukonko/tablewriter"
	"golang.org/x/term"
)

// isTerminal reports whether out is an interactive terminal.
func isTerminal(out io.Writer) bool {

	file, ok := out.(*os.File)
	return ok && term.IsTerminal(int(file.Fd()))
}

// printRows draws a table on a terminal and writes tab-separated lines elsewhere.
func printRows(out io.Writer, columns []string, rows [][]string) error {

	if isTerminal(out) {

		table := tablewriter.NewWriter(out)
		table.SetHeader(columns)
		table.SetAutoWrapText(false)
		table.AppendBulk(rows)
		table.SetFooter(footer(len(columns), len(rows)))
		table.Render()
		return nil
	}

	if _, err := fmt.Fprintln(out, strings.Join(columns, "\t")); err != nil {
		return err
	}
	for _, row := range rows {
		if _, err := fmt.Fprintln(out, strings.Join(row, "\t")); err != nil {
			return err
		}
	}
	return nil
}

func footer(numColumns int, numRows int) []string {

	cells := make([]string, numColumns)
	if numColumns > 0 {
		cells[numColumns-1] = fmt.Sprintf("%d rows", numRows)
	}
	return cells
}
