package core

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
)

// Printer handles all display output for the CLI.
type Printer struct {
	JSON    bool
	Verbose bool
	Writer  io.Writer
}

// NewPrinter creates a default Printer writing to stdout.
func NewPrinter(jsonMode, verbose bool) *Printer {
	return &Printer{JSON: jsonMode, Verbose: verbose, Writer: os.Stdout}
}

// PrintMetadata renders a Metadata struct to the configured output.
func (p *Printer) PrintMetadata(m *Metadata) {
	if p.JSON {
		p.printJSON(m)
		return
	}
	p.printText(m)
}

func (p *Printer) printText(m *Metadata) {
	fmt.Fprintf(p.Writer, "File  : %s\n", m.FilePath)
	fmt.Fprintf(p.Writer, "Format: %s\n", m.Format)
	if len(m.Fields) == 0 {
		fmt.Fprintln(p.Writer, "(no metadata found)")
	} else {
		fmt.Fprintln(p.Writer)
	}

	// Group by category, keeping first-seen order
	groups := make(map[string][]MetaField)
	order := []string{}
	for _, f := range m.Fields {
		if _, ok := groups[f.Category]; !ok {
			order = append(order, f.Category)
		}
		groups[f.Category] = append(groups[f.Category], f)
	}

	for _, cat := range order {
		fmt.Fprintf(p.Writer, "── %s ──\n", cat)
		for _, f := range groups[cat] {
			edit := ""
			if f.Editable && p.Verbose {
				edit = " [writable]"
			}
			fmt.Fprintf(p.Writer, "  %-30s %s%s\n", f.Key+":", f.Value, edit)
		}
		fmt.Fprintln(p.Writer)
	}
	p.PrintWarnings(m.Warnings)
}

func (p *Printer) printJSON(m *Metadata) {
	type jsonField struct {
		Key      string `json:"key"`
		Value    string `json:"value"`
		Category string `json:"category"`
		Editable bool   `json:"editable"`
	}
	type jsonOutput struct {
		FilePath string      `json:"file"`
		Format   string      `json:"format"`
		Fields   []jsonField `json:"fields"`
		Warnings []string    `json:"warnings,omitempty"`
	}

	out := jsonOutput{
		FilePath: m.FilePath,
		Format:   m.Format,
	}
	for _, f := range m.Fields {
		out.Fields = append(out.Fields, jsonField{
			Key:      f.Key,
			Value:    f.Value,
			Category: f.Category,
			Editable: f.Editable,
		})
	}
	for _, w := range m.Warnings {
		out.Warnings = append(out.Warnings, w.String())
	}

	b, _ := json.MarshalIndent(out, "", "  ")
	fmt.Fprintln(p.Writer, string(b))
}

// PrintWarnings lists warnings (suppressed in JSON mode).
func (p *Printer) PrintWarnings(ws []Warning) {
	if p.JSON {
		return
	}
	for _, w := range ws {
		fmt.Fprintln(p.Writer, "! "+w.String())
	}
}

// PrintDiagnostics lists the warnings and errors of a call.
func (p *Printer) PrintDiagnostics(d Diagnostics) {
	if p.JSON {
		type jsonDiag struct {
			Warnings []string `json:"warnings"`
			Errors   []string `json:"errors"`
		}
		out := jsonDiag{Warnings: []string{}, Errors: []string{}}
		for _, w := range d.Warnings {
			out.Warnings = append(out.Warnings, w.String())
		}
		for _, e := range d.Errors {
			out.Errors = append(out.Errors, e.Error())
		}
		b, _ := json.MarshalIndent(out, "", "  ")
		fmt.Fprintln(p.Writer, string(b))
		return
	}
	p.PrintWarnings(d.Warnings)
	for _, e := range d.Errors {
		fmt.Fprintln(p.Writer, "✗ "+e.Error())
	}
}

// PrintSuccess prints a success message.
func (p *Printer) PrintSuccess(msg string) {
	if !p.JSON {
		fmt.Fprintln(p.Writer, "✓ "+msg)
	}
}

// PrintInfo prints an info line (suppressed in JSON mode).
func (p *Printer) PrintInfo(msg string) {
	if !p.JSON {
		fmt.Fprintln(p.Writer, msg)
	}
}

// ParseKV parses a "Key=Value" string.
func ParseKV(s string) (key, value string, ok bool) {
	idx := strings.Index(s, "=")
	if idx < 1 {
		return "", "", false
	}
	return strings.TrimSpace(s[:idx]), s[idx+1:], true
}
