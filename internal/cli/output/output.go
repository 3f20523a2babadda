// Package output renders CLI results as styled text tables, Markdown or JSON.
package output

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/jedib0t/go-pretty/v6/table"
	"golang.org/x/term"
)

// Mode selects the output format.
type Mode string

// Output modes.
const (
	ModeAuto     Mode = "auto"
	ModeText     Mode = "text"
	ModeMarkdown Mode = "markdown"
	ModeJSON     Mode = "json"
)

// Modes lists the accepted --output values.
func Modes() []string {
	return []string{string(ModeAuto), string(ModeText), string(ModeMarkdown), string(ModeJSON)}
}

// Renderer writes command results.
type Renderer struct {
	out    io.Writer
	err    io.Writer
	mode   Mode
	styles *Styles
}

// NewRenderer creates a renderer. ModeAuto picks text on a terminal and
// Markdown otherwise.
func NewRenderer(out, errOut io.Writer, mode Mode) *Renderer {
	if mode == "" {
		mode = ModeAuto
	}
	return &Renderer{out: out, err: errOut, mode: mode, styles: NewStyles(out)}
}

// Styles returns the text-mode styles.
func (r *Renderer) Styles() *Styles { return r.styles }

// Out returns the primary writer.
func (r *Renderer) Out() io.Writer { return r.out }

// EffectiveMode resolves ModeAuto against the output writer.
func (r *Renderer) EffectiveMode() Mode {
	if r.mode != ModeAuto {
		return r.mode
	}
	if f, ok := r.out.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		return ModeText
	}
	return ModeMarkdown
}

// Table renders rows under header. In JSON mode, records is encoded instead.
func (r *Renderer) Table(title string, header []string, rows [][]any, records any) error {
	mode := r.EffectiveMode()
	if mode == ModeJSON {
		return r.JSON(records)
	}

	t := table.NewWriter()
	t.SetOutputMirror(r.out)

	headerRow := make(table.Row, len(header))
	for i, h := range header {
		headerRow[i] = h
	}
	t.AppendHeader(headerRow)
	for _, row := range rows {
		t.AppendRow(table.Row(row))
	}

	if mode == ModeMarkdown {
		if title != "" {
			_, _ = fmt.Fprintf(r.out, "## %s\n\n", title)
		}
		t.RenderMarkdown()
		_, _ = fmt.Fprintln(r.out)
		return nil
	}

	t.SetStyle(table.StyleLight)
	if title != "" {
		t.SetTitle(title)
	}
	t.Render()
	return nil
}

// JSON writes v as indented JSON.
func (r *Renderer) JSON(v any) error {
	enc := json.NewEncoder(r.out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// Println writes a line to the primary writer unless the mode is JSON.
func (r *Renderer) Println(a ...any) {
	if r.EffectiveMode() == ModeJSON {
		return
	}
	_, _ = fmt.Fprintln(r.out, a...)
}

// Success writes msg to the primary writer, styled in text mode.
func (r *Renderer) Success(msg string) {
	switch r.EffectiveMode() {
	case ModeJSON:
		return
	case ModeText:
		msg = r.styles.Success.Render(msg)
	}
	_, _ = fmt.Fprintln(r.out, msg)
}

// Warnf writes a message to the error writer.
func (r *Renderer) Warnf(format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	if r.EffectiveMode() == ModeText {
		msg = r.styles.Warning.Render(msg)
	}
	_, _ = fmt.Fprintln(r.err, msg)
}
