package stats

import (
	"fmt"
	"io"
	"strconv"

	"github.com/fatih/color"
	"github.com/jedib0t/go-pretty/v6/table"
)

var (
	valueColor    = color.New(color.FgHiWhite)
	errorColor    = color.New(color.FgRed)
	includedColor = color.New(color.FgGreen)
	excludedColor = color.New(color.FgRed)
)

// Print renders every counter and, for categorized counters, every category.
func (s *Stats) Print(w io.Writer) error {
	counters, histograms := s.Snapshot()

	tbl := table.NewWriter()
	tbl.SetStyle(table.StyleLight)
	tbl.Style().Options.SeparateRows = false
	tbl.Style().Options.SeparateColumns = false
	tbl.Style().Options.DrawBorder = false
	tbl.Style().Options.SeparateHeader = false
	tbl.SetTitle("Statistics:")

	for _, c := range Counters {
		cats := categories(c)
		if len(cats) > 0 {
			tbl.AppendRow(table.Row{c.Label() + ":", ""})
		} else {
			tbl.AppendRow(table.Row{c.Label() + ":", s.counterValue(c, counters[c])})
		}

		for _, cat := range cats {
			tbl.AppendRow(table.Row{"    " + cat + ":", s.categoryValue(cat, histograms[c][cat])})
		}
	}

	if _, err := fmt.Fprintln(w, tbl.Render()); err != nil {
		return fmt.Errorf("print stats: %w", err)
	}
	return nil
}

func (s *Stats) counterValue(c Counter, v int64) string {
	text := strconv.FormatInt(v, 10)
	if c == Errors {
		return errorColor.Sprint(text)
	}
	return valueColor.Sprint(text)
}

func (s *Stats) categoryValue(category string, v int64) string {
	text := strconv.FormatInt(v, 10)
	in, restricted := s.included(category)
	switch {
	case !restricted:
		return valueColor.Sprint(text)
	case in:
		return includedColor.Sprint(text)
	default:
		return excludedColor.Sprint(text)
	}
}
