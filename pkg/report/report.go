// Package report renders lint results as text, JSON or YAML.
package report

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/fatih/color"
	"github.com/jedib0t/go-pretty/v6/table"
	"gopkg.in/yaml.v3"

	"github.com/Sumatoshi-tech/pystyle/pkg/runner"
)

// Output formats.
const (
	FormatText = "text"
	FormatJSON = "json"
	FormatYAML = "yaml"
)

// SuccessMessage is printed when every file passes.
const SuccessMessage = "All Python files passed checks with correct imports, docstrings, and type hints."

// ErrUnsupportedFormat indicates the requested output format is not supported.
var ErrUnsupportedFormat = errors.New("unsupported format")

// Options control rendering.
type Options struct {
	Format  string
	Color   bool
	Summary bool
}

// Reporter writes results to an output stream. Failures to check a file go to
// the error stream in text mode.
type Reporter struct {
	out    io.Writer
	errOut io.Writer
	opts   Options

	pass *color.Color
	fail *color.Color
}

// New creates a Reporter.
func New(out, errOut io.Writer, opts Options) *Reporter {
	r := &Reporter{
		out:    out,
		errOut: errOut,
		opts:   opts,
		pass:   color.New(color.FgGreen, color.Bold),
		fail:   color.New(color.FgRed, color.Bold),
	}

	if !opts.Color {
		r.pass.DisableColor()
		r.fail.DisableColor()
	}

	return r
}

// NormalizeFormat canonicalizes a user-provided output format string.
func NormalizeFormat(format string) (string, error) {
	normalized := strings.ToLower(strings.TrimSpace(format))

	switch normalized {
	case "":
		return FormatText, nil
	case FormatText, FormatJSON, FormatYAML:
		return normalized, nil
	default:
		return "", fmt.Errorf("%w: %s", ErrUnsupportedFormat, format)
	}
}

// Render writes the result in the configured format.
func (r *Reporter) Render(res *runner.Result) error {
	format, err := NormalizeFormat(r.opts.Format)
	if err != nil {
		return err
	}

	doc := NewDocument(res)

	switch format {
	case FormatJSON:
		return r.renderJSON(doc)
	case FormatYAML:
		return r.renderYAML(doc)
	default:
		return r.renderText(doc)
	}
}

func (r *Reporter) renderText(doc Document) error {
	for _, d := range doc.Diagnostics {
		if _, err := fmt.Fprintln(r.out, d.String()); err != nil {
			return fmt.Errorf("write diagnostic: %w", err)
		}
	}

	for _, f := range doc.Failures {
		if _, err := fmt.Fprintln(r.errOut, f.String()); err != nil {
			return fmt.Errorf("write failure: %w", err)
		}
	}

	if r.opts.Summary {
		if _, err := fmt.Fprintln(r.out, SummaryTable(doc.Summary)); err != nil {
			return fmt.Errorf("write summary: %w", err)
		}
	}

	return r.renderStatus(doc)
}

func (r *Reporter) renderStatus(doc Document) error {
	var err error

	if doc.Passed {
		_, err = r.pass.Fprintln(r.out, SuccessMessage)
	} else {
		_, err = r.fail.Fprintf(r.out, "Found %s issue(s) in %s file(s)\n",
			humanize.Comma(int64(doc.Summary.Issues)), humanize.Comma(int64(doc.Summary.FilesWithIssues)))
	}

	if err != nil {
		return fmt.Errorf("write status: %w", err)
	}

	return nil
}

func (r *Reporter) renderJSON(doc Document) error {
	enc := json.NewEncoder(r.out)
	enc.SetIndent("", "  ")

	err := enc.Encode(doc)
	if err != nil {
		return fmt.Errorf("encode json: %w", err)
	}

	return nil
}

func (r *Reporter) renderYAML(doc Document) error {
	enc := yaml.NewEncoder(r.out)
	enc.SetIndent(2)

	err := enc.Encode(doc)
	if err != nil {
		return fmt.Errorf("encode yaml: %w", err)
	}

	err = enc.Close()
	if err != nil {
		return fmt.Errorf("close yaml encoder: %w", err)
	}

	return nil
}

// SummaryTable renders run totals as a borderless table.
func SummaryTable(s Summary) string {
	tbl := table.NewWriter()
	tbl.SetStyle(table.StyleLight)
	tbl.Style().Options.DrawBorder = false
	tbl.Style().Options.SeparateColumns = false
	tbl.Style().Options.SeparateRows = false

	tbl.AppendHeader(table.Row{"Metric", "Count"})
	tbl.AppendRow(table.Row{"Files checked", humanize.Comma(int64(s.FilesChecked))})
	tbl.AppendRow(table.Row{"Lines checked", humanize.Comma(int64(s.LinesChecked))})
	tbl.AppendRow(table.Row{"Files with issues", humanize.Comma(int64(s.FilesWithIssues))})
	tbl.AppendRow(table.Row{"Files failed", humanize.Comma(int64(s.Failures))})

	for _, name := range sortedKeys(s.ByCategory) {
		tbl.AppendRow(table.Row{name, humanize.Comma(int64(s.ByCategory[name]))})
	}

	tbl.AppendFooter(table.Row{"Issues", humanize.Comma(int64(s.Issues))})

	return tbl.Render()
}
