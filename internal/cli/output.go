package cli

import (
	"fmt"
	"io"
	"os"
	"strings"

	"charm.land/lipgloss/v2"
	"github.com/mattn/go-isatty"

	"github.com/xonecas/docsmith/internal/highlight"
	"github.com/xonecas/docsmith/internal/treesitter"
)

// printer writes command output, styled when the destination is a terminal.
type printer struct {
	w     io.Writer
	color bool
	theme string

	headingStyle lipgloss.Style
	dimStyle     lipgloss.Style
	errorStyle   lipgloss.Style
}

func newPrinter(w io.Writer, noColor bool, theme string) *printer {
	pal := highlight.ThemePalette(theme)
	return &printer{
		w:            w,
		color:        !noColor && os.Getenv("NO_COLOR") == "" && isTerminal(w),
		theme:        theme,
		headingStyle: lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color(pal.Accent)),
		dimStyle:     lipgloss.NewStyle().Foreground(lipgloss.Color(pal.Dim)),
		errorStyle:   lipgloss.NewStyle().Foreground(lipgloss.Color(pal.Error)),
	}
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

// line writes s and a newline, dropping escape sequences on plain outputs.
func (p *printer) line(s string) {
	if !p.color {
		s = highlight.Plain(s)
	}
	fmt.Fprintln(p.w, s)
}

func (p *printer) linef(format string, args ...any) {
	p.line(fmt.Sprintf(format, args...))
}

func (p *printer) heading(s string) {
	p.line(p.headingStyle.Render(s))
}

func (p *printer) dim(s string) string {
	return p.dimStyle.Render(s)
}

func (p *printer) errorText(s string) string {
	return p.errorStyle.Render(s)
}

// code returns text highlighted as lang on color outputs.
func (p *printer) code(text, lang string) string {
	if !p.color {
		return text
	}
	return highlight.Code(text, lang, p.theme)
}

// block writes a multi-line text indented by prefix.
func (p *printer) block(text, lang, prefix string) {
	for _, l := range strings.Split(p.code(text, lang), "\n") {
		p.line(prefix + l)
	}
}

// outline writes the functions and classes of one parse result.
func (p *printer) outline(path string, res treesitter.ParseResult) {
	p.heading(path)
	if !res.Succeeded {
		p.line("  " + p.errorText("error: "+res.Error))
		return
	}
	if len(res.Functions) == 0 && len(res.Classes) == 0 {
		p.line("  " + p.dim("(no functions or classes)"))
		return
	}

	lang := highlight.DetectLanguage(path)
	for _, c := range res.Classes {
		methods := p.dim("no methods")
		if len(c.Methods) > 0 {
			methods = strings.Join(c.Methods, ", ")
		}
		p.linef("  %4d  %s  %s", c.Line, p.code("class "+c.Name+":", lang), methods)
	}
	for _, f := range res.Functions {
		sig := treesitter.FormatSignature(f)
		if f.Async {
			sig = "async " + sig
		}
		note := ""
		if !f.HasDocstring() {
			note = "  " + p.dim("# undocumented")
		}
		p.linef("  %4d  %s%s", f.Line, p.code(sig, lang), note)
	}
}
