// Package format renders execution plans and summaries as terminal or
// Markdown tables.
package format

import (
	"fmt"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
)

// Mode controls the output format.
type Mode int

const (
	ASCII    Mode = iota // Fixed-width terminal tables
	Markdown             // GitHub-flavoured Markdown tables
)

// ColumnAlign specifies the horizontal alignment for a column.
type ColumnAlign int

const (
	AlignDefault ColumnAlign = iota
	AlignLeft
	AlignRight
)

// ColumnConfig controls per-column formatting.
type ColumnConfig struct {
	Number   int // 1-based column index
	Align    ColumnAlign
	MaxWidth int // 0 = unlimited
}

// TableBuilder builds a table once and renders it in the Mode set at creation.
type TableBuilder interface {
	Header(cols ...string)
	// Row appends a data row. Values are converted with fmt.Sprint.
	Row(vals ...any)
	Footer(vals ...any)
	Columns(cfgs ...ColumnConfig)
	String() string
}

// NewTable returns a TableBuilder that renders in the given Mode.
func NewTable(m Mode) TableBuilder {
	w := table.NewWriter()
	if m == ASCII {
		w.SetStyle(table.StyleLight)
	}
	return &prettyAdapter{writer: w, mode: m}
}

type prettyAdapter struct {
	writer table.Writer
	mode   Mode
}

func toRow(vals []any) table.Row {
	row := make(table.Row, len(vals))
	copy(row, vals)
	return row
}

func (a *prettyAdapter) Header(cols ...string) {
	row := make(table.Row, len(cols))
	for i, c := range cols {
		row[i] = c
	}
	a.writer.AppendHeader(row)
}

func (a *prettyAdapter) Row(vals ...any)    { a.writer.AppendRow(toRow(vals)) }
func (a *prettyAdapter) Footer(vals ...any) { a.writer.AppendFooter(toRow(vals)) }

func (a *prettyAdapter) Columns(cfgs ...ColumnConfig) {
	out := make([]table.ColumnConfig, len(cfgs))
	for i, c := range cfgs {
		out[i] = table.ColumnConfig{Number: c.Number, Align: toTextAlign(c.Align), WidthMax: c.MaxWidth}
	}
	a.writer.SetColumnConfigs(out)
}

func (a *prettyAdapter) String() string {
	if a.mode == Markdown {
		return a.writer.RenderMarkdown()
	}
	return a.writer.Render()
}

func toTextAlign(a ColumnAlign) text.Align {
	switch a {
	case AlignLeft:
		return text.AlignLeft
	case AlignRight:
		return text.AlignRight
	default:
		return text.AlignDefault
	}
}

// PlanRow describes one node of an execution plan.
type PlanRow struct {
	Node   string
	Type   string
	UID    string
	Status string // stored status before the run
	Action string // "compute" or "skip"
}

// Plan renders rows as a numbered table with a footer counting the nodes
// that will be computed.
func Plan(m Mode, rows []PlanRow) string {
	tb := NewTable(m)
	tb.Header("#", "Node", "Type", "UID", "Status", "Action")
	tb.Columns(ColumnConfig{Number: 1, Align: AlignRight})
	compute := 0
	for i, r := range rows {
		if r.Action == "compute" {
			compute++
		}
		tb.Row(i+1, r.Node, r.Type, ShortUID(r.UID), r.Status, r.Action)
	}
	tb.Footer("", "", "", "", "", fmt.Sprintf("%d/%d", compute, len(rows)))
	return tb.String()
}
