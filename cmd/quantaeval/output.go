package main

import (
	stderrors "errors"
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"

	"github.com/dshills/QuantaEval/internal/errors"
	"github.com/dshills/QuantaEval/internal/sql/types"
	"github.com/dshills/QuantaEval/internal/sql/vector"
)

func disableColor() {
	color.NoColor = true
}

func Cyan(s string) string {
	return color.New(color.FgHiCyan).SprintFunc()(s)
}

func Green(s string) string {
	return color.New(color.FgHiGreen).SprintFunc()(s)
}

func Magenta(s string) string {
	return color.New(color.FgHiMagenta).SprintFunc()(s)
}

func Yellow(s string) string {
	return color.New(color.FgHiYellow).SprintFunc()(s)
}

func Red(s string) string {
	return color.New(color.FgHiRed).SprintFunc()(s)
}

// tablePrinter writes batches as tab separated rows.
type tablePrinter struct {
	w      io.Writer
	schema *vector.Schema
}

func newTablePrinter(w io.Writer, schema *vector.Schema) *tablePrinter {
	return &tablePrinter{w: w, schema: schema}
}

func (p *tablePrinter) header() {
	names := make([]string, len(p.schema.Fields))
	for i, f := range p.schema.Fields {
		names[i] = Cyan(f.Name)
	}
	fmt.Fprintln(p.w, strings.Join(names, "\t"))
}

func (p *tablePrinter) batch(b *vector.Batch) error {
	cells := make([]string, b.Width())
	for row := 0; row < b.RowCount(); row++ {
		for ch := range cells {
			cells[ch] = formatValue(b.Vector(ch).Get(row))
		}
		if _, err := fmt.Fprintln(p.w, strings.Join(cells, "\t")); err != nil {
			return err
		}
	}
	return nil
}

func formatValue(v types.Value) string {
	if v.IsNull() {
		return Magenta("NULL")
	}
	if f, ok := v.Data.(float64); ok {
		return types.FormatDouble(f)
	}
	return v.String()
}

// exprError ties a frontend error to the expression text it came from.
type exprError struct {
	text string
	err  error
}

func (e *exprError) Error() string { return e.err.Error() }
func (e *exprError) Unwrap() error { return e.err }

// printError renders err in psql's style, pointing at the failing position
// of an expression when one is known.
func printError(w io.Writer, err error) {
	fmt.Fprintf(w, "%s %s\n", Red("ERROR:"), err.Error())

	e, ok := errors.As(err)
	if !ok {
		return
	}
	if e.Hint != "" {
		fmt.Fprintf(w, "HINT:  %s\n", e.Hint)
	}
	var xe *exprError
	if e.Position > 0 && stderrors.As(err, &xe) && e.Position <= len(xe.text)+1 {
		fmt.Fprintf(w, "LINE 1: %s\n", xe.text)
		fmt.Fprintf(w, "%s^\n", strings.Repeat(" ", len("LINE 1: ")+e.Position-1))
	}
}
