// Package output renders command results as tables, JSON or YAML.
package output

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/goccy/go-yaml"
	"github.com/mattn/go-isatty"
	"github.com/olekukonko/tablewriter"
	"github.com/olekukonko/tablewriter/tw"

	"github.com/noxenys/AI-Knowledge-Agent/internal/cmd/table"
)

// Format names an output format.
type Format string

const (
	// FormatTable renders a compact table.
	FormatTable Format = "table"
	// FormatJSON renders indented JSON.
	FormatJSON Format = "json"
	// FormatYAML renders YAML.
	FormatYAML Format = "yaml"
	// FormatWide renders a table with ids, hashes and edit times.
	FormatWide Format = "wide"
)

// Formatter writes one value.
type Formatter interface {
	Format(w io.Writer, data any) error
}

// NewFormatter returns the formatter for format. Unknown formats render tables.
func NewFormatter(format Format) Formatter {
	switch format {
	case FormatJSON:
		return &JSONFormatter{Indent: "  "}
	case FormatYAML:
		return &YAMLFormatter{}
	case FormatTable, FormatWide:
		return &TableFormatter{}
	}
	return &TableFormatter{}
}

// JSONFormatter writes JSON.
type JSONFormatter struct {
	Indent string
}

// Format implements Formatter.
func (f *JSONFormatter) Format(w io.Writer, data any) error {
	enc := json.NewEncoder(w)
	if f.Indent != "" {
		enc.SetIndent("", f.Indent)
	}
	return enc.Encode(data)
}

// YAMLFormatter writes YAML.
type YAMLFormatter struct{}

// Format implements Formatter.
func (f *YAMLFormatter) Format(w io.Writer, data any) error {
	b, err := yaml.MarshalWithOptions(data, yaml.Indent(2), yaml.IndentSequence(false))
	if err != nil {
		return err
	}
	_, err = w.Write(b)
	return err
}

// TableFormatter writes table.Data with tablewriter. Anything else is
// written as JSON.
type TableFormatter struct{}

// Format implements Formatter.
func (f *TableFormatter) Format(w io.Writer, data any) error {
	d, ok := data.(Data)
	if !ok {
		return (&JSONFormatter{Indent: "  "}).Format(w, data)
	}

	var cfg tablewriter.Config
	if len(d.ColumnAlignment) > 0 {
		align := make([]tw.Align, len(d.ColumnAlignment))
		for i, a := range d.ColumnAlignment {
			align[i] = twAlign(a)
		}
		cfg.Header.Alignment = tw.CellAlignment{PerColumn: align}
		cfg.Row.Alignment = tw.CellAlignment{PerColumn: align}
	}

	t := tablewriter.NewTable(w, tablewriter.WithConfig(cfg))
	if len(d.Headers) > 0 {
		t.Header(cells(d.Headers)...)
	}
	for _, row := range d.Rows {
		if err := t.Append(cells(row)...); err != nil {
			return err
		}
	}
	return t.Render()
}

func twAlign(a table.Align) tw.Align {
	switch a {
	case table.AlignLeft:
		return tw.AlignLeft
	case table.AlignCenter:
		return tw.AlignCenter
	case table.AlignRight:
		return tw.AlignRight
	case table.AlignDefault:
	}
	return tw.Skip
}

func cells(row []string) []any {
	out := make([]any, len(row))
	for i, c := range row {
		out[i] = c
	}
	return out
}

// Data is the tabular form every renderer produces.
type Data = table.Data

// DetectFormat returns the explicit format if one was given. Otherwise
// terminals get tables and pipes or redirected files get JSON. Writers that
// are not files, such as buffers, get tables.
func DetectFormat(explicit string, w io.Writer) Format {
	if explicit != "" {
		return Format(strings.ToLower(explicit))
	}
	f, ok := w.(interface{ Fd() uintptr })
	if !ok {
		return FormatTable
	}
	if isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd()) {
		return FormatTable
	}
	return FormatJSON
}

// ParseFormat validates a --format value. The empty string means detect.
func ParseFormat(s string) (Format, error) {
	f := Format(strings.ToLower(s))
	switch f {
	case FormatTable, FormatJSON, FormatYAML, FormatWide, "":
		return f, nil
	}
	return "", fmt.Errorf("invalid format %q: must be one of: table, json, yaml, wide", s)
}
