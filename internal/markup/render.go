package markup

import (
	"html"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// RenderHTML emits the document using only <p>, <br>, <ul>, <li> and
// <strong>. All source text is escaped.
func RenderHTML(doc Document) string {
	var b strings.Builder
	for _, blk := range doc.Blocks {
		switch blk := blk.(type) {
		case Paragraph:
			b.WriteString("<p>")
			for i, line := range blk.Lines {
				if i > 0 {
					b.WriteString("<br>")
				}
				writeHTMLLine(&b, line)
			}
			b.WriteString("</p>")
		case List:
			b.WriteString("<ul>")
			for _, item := range blk.Items {
				b.WriteString("<li>")
				writeHTMLLine(&b, item)
				b.WriteString("</li>")
			}
			b.WriteString("</ul>")
		}
	}
	return b.String()
}

func writeHTMLLine(b *strings.Builder, line Line) {
	for _, in := range line {
		switch in.Kind {
		case InlineStrong:
			b.WriteString("<strong>")
			b.WriteString(html.EscapeString(in.Text))
			b.WriteString("</strong>")
		default:
			b.WriteString(html.EscapeString(in.Text))
		}
	}
}

// ToHTML parses and renders text in one step.
func ToHTML(text string) string {
	return RenderHTML(Parse(text))
}

// TerminalStyles controls how RenderTerminal decorates output.
type TerminalStyles struct {
	Strong lipgloss.Style
	Bullet lipgloss.Style
	// BulletGlyph prefixes each list item.
	BulletGlyph string
}

// DefaultTerminalStyles returns bold emphasis and a coloured bullet.
func DefaultTerminalStyles() TerminalStyles {
	return TerminalStyles{
		Strong:      lipgloss.NewStyle().Bold(true),
		Bullet:      lipgloss.NewStyle().Foreground(lipgloss.Color("#10B981")),
		BulletGlyph: "•",
	}
}

// PlainTerminalStyles returns styles that add no escape sequences.
func PlainTerminalStyles() TerminalStyles {
	return TerminalStyles{
		Strong:      lipgloss.NewStyle(),
		Bullet:      lipgloss.NewStyle(),
		BulletGlyph: "•",
	}
}

// RenderTerminal renders the document for a terminal. Blocks are separated
// by a blank line and list items are indented under a bullet glyph.
func RenderTerminal(doc Document, st TerminalStyles) string {
	blocks := make([]string, 0, len(doc.Blocks))
	for _, blk := range doc.Blocks {
		var lines []string
		switch blk := blk.(type) {
		case Paragraph:
			for _, line := range blk.Lines {
				lines = append(lines, terminalLine(line, st))
			}
		case List:
			for _, item := range blk.Items {
				lines = append(lines, "  "+st.Bullet.Render(st.BulletGlyph)+" "+terminalLine(item, st))
			}
		}
		blocks = append(blocks, strings.Join(lines, "\n"))
	}
	return strings.Join(blocks, "\n\n")
}

func terminalLine(line Line, st TerminalStyles) string {
	var b strings.Builder
	for _, in := range line {
		if in.Kind == InlineStrong {
			b.WriteString(st.Strong.Render(in.Text))
			continue
		}
		b.WriteString(in.Text)
	}
	return b.String()
}
