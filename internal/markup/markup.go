// Package markup formats assistant replies.
//
// Only three constructs are recognised: **bold** spans, "* " bullet lines,
// and blank-line separated paragraphs. Everything else, including any HTML in
// the source, is plain text.
package markup

import "strings"

// InlineKind distinguishes plain text from emphasised text.
type InlineKind int

const (
	InlineText InlineKind = iota
	InlineStrong
)

// Inline is a run of text within a line.
type Inline struct {
	Kind InlineKind
	Text string
}

// Line is a sequence of inline runs.
type Line []Inline

// Block is either a Paragraph or a List.
type Block interface {
	block()
}

// Paragraph is a run of non-bullet lines rendered with line breaks between them.
type Paragraph struct {
	Lines []Line
}

// List is a run of consecutive bullet lines.
type List struct {
	Items []Line
}

func (Paragraph) block() {}
func (List) block()      {}

// Document is a parsed reply.
type Document struct {
	Blocks []Block
}

// Empty reports whether the document has nothing to render.
func (d Document) Empty() bool {
	return len(d.Blocks) == 0
}

const bulletPrefix = "* "

// Parse builds a Document from text. It never fails.
func Parse(text string) Document {
	text = strings.ReplaceAll(text, "\r\n", "\n")

	var doc Document
	for _, chunk := range strings.Split(text, "\n\n") {
		doc.Blocks = append(doc.Blocks, parseChunk(chunk)...)
	}
	return doc
}

// parseChunk splits one blank-line separated chunk into paragraphs and lists.
// Bullet lines take precedence, so a chunk may yield several blocks.
func parseChunk(chunk string) []Block {
	lines := trimBlankLines(strings.Split(chunk, "\n"))
	if len(lines) == 0 {
		return nil
	}

	var (
		blocks []Block
		para   *Paragraph
		list   *List
	)
	flush := func() {
		if para != nil {
			blocks = append(blocks, *para)
			para = nil
		}
		if list != nil {
			blocks = append(blocks, *list)
			list = nil
		}
	}

	for _, raw := range lines {
		if item, ok := strings.CutPrefix(raw, bulletPrefix); ok {
			if list == nil {
				flush()
				list = &List{}
			}
			list.Items = append(list.Items, parseInline(item))
			continue
		}
		if para == nil {
			flush()
			para = &Paragraph{}
		}
		para.Lines = append(para.Lines, parseInline(raw))
	}
	flush()
	return blocks
}

func trimBlankLines(lines []string) []string {
	start, end := 0, len(lines)
	for start < end && strings.TrimSpace(lines[start]) == "" {
		start++
	}
	for end > start && strings.TrimSpace(lines[end-1]) == "" {
		end--
	}
	return lines[start:end]
}

// parseInline finds **bold** spans on a single line. The first closing
// delimiter ends a span; an opener without one stays literal.
func parseInline(line string) Line {
	var out Line
	text := func(s string) {
		if s == "" {
			return
		}
		if n := len(out); n > 0 && out[n-1].Kind == InlineText {
			out[n-1].Text += s
			return
		}
		out = append(out, Inline{Kind: InlineText, Text: s})
	}

	rest := line
	for {
		open := strings.Index(rest, "**")
		if open < 0 {
			break
		}
		closing := strings.Index(rest[open+2:], "**")
		if closing < 0 {
			break
		}
		text(rest[:open])
		out = append(out, Inline{Kind: InlineStrong, Text: rest[open+2 : open+2+closing]})
		rest = rest[open+2+closing+2:]
	}
	text(rest)
	return out
}
