package cli

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/soyeahso/medchat/internal/domain"
	"github.com/soyeahso/medchat/internal/markup"
	"golang.org/x/term"
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#7C3AED"))

	userStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#3B82F6"))

	assistantStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#10B981"))

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#EF4444")).
			Bold(true)

	warningStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#F59E0B"))

	dimStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#6B7280"))
)

// printer writes transcript turns to a terminal or a plain stream.
type printer struct {
	out    io.Writer
	plain  bool
	styles markup.TerminalStyles
}

func newPrinter(out io.Writer, plain bool) *printer {
	st := markup.DefaultTerminalStyles()
	if plain {
		st = markup.PlainTerminalStyles()
	}
	return &printer{out: out, plain: plain, styles: st}
}

// stdoutPrinter styles output only when stdout is a terminal and NO_COLOR
// is unset.
func stdoutPrinter(out io.Writer) *printer {
	plain := os.Getenv("NO_COLOR") != "" || !term.IsTerminal(int(os.Stdout.Fd()))
	return newPrinter(out, plain)
}

func (p *printer) style(s lipgloss.Style, text string) string {
	if p.plain {
		return text
	}
	return s.Render(text)
}

func (p *printer) label(turn domain.Turn) string {
	switch {
	case turn.Role == domain.RoleUser:
		return p.style(userStyle, "You:")
	case turn.Source == domain.SourcePlaceholder:
		return p.style(errorStyle, "Assistant:")
	default:
		return p.style(assistantStyle, "Assistant:")
	}
}

// Turn prints one turn. Assistant text is rendered as markup; user text is
// printed verbatim.
func (p *printer) Turn(turn domain.Turn) {
	body := turn.Text
	if turn.Role == domain.RoleAssistant {
		body = markup.RenderTerminal(markup.Parse(turn.Text), p.styles)
	}
	fmt.Fprintf(p.out, "%s\n%s\n\n", p.label(turn), indent(body, "  "))
}

// Transcript prints every turn in order.
func (p *printer) Transcript(turns []domain.Turn) {
	for _, t := range turns {
		p.Turn(t)
	}
}

func (p *printer) Title(text string) {
	fmt.Fprintln(p.out, p.style(titleStyle, text))
}

func (p *printer) Notice(text string) {
	fmt.Fprintln(p.out, p.style(dimStyle, text))
}

func (p *printer) Warn(text string) {
	fmt.Fprintln(p.out, p.style(warningStyle, text))
}

func (p *printer) Error(err error) {
	fmt.Fprintln(p.out, p.style(errorStyle, "Error:"), describeError(err))
}

func indent(s, prefix string) string {
	lines := strings.Split(s, "\n")
	for i, l := range lines {
		if l != "" {
			lines[i] = prefix + l
		}
	}
	return strings.Join(lines, "\n")
}
