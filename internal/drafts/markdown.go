package drafts

import (
	"path/filepath"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"
)

var markdown = goldmark.New()

// DetectFormat reports markdown for .md/.markdown files, and for other files
// whose text parses into any markdown structure beyond plain paragraphs.
func DetectFormat(path, body string) Format {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".md", ".markdown":
		return FormatMarkdown
	}
	src := []byte(body)
	doc := markdown.Parser().Parse(text.NewReader(src))
	structured := false
	_ = ast.Walk(doc, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		switch n.Kind() {
		case ast.KindDocument, ast.KindParagraph, ast.KindText, ast.KindTextBlock, ast.KindString:
			return ast.WalkContinue, nil
		default:
			structured = true
			return ast.WalkStop, nil
		}
	})
	if structured {
		return FormatMarkdown
	}
	return FormatPlain
}

func markdownTitle(body string) string {
	src := []byte(body)
	doc := markdown.Parser().Parse(text.NewReader(src))
	var first, top string
	_ = ast.Walk(doc, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		heading, ok := n.(*ast.Heading)
		if !entering || !ok {
			return ast.WalkContinue, nil
		}
		value := strings.TrimSpace(inlineText(heading, src))
		if value == "" {
			return ast.WalkSkipChildren, nil
		}
		if first == "" {
			first = value
		}
		if heading.Level == 1 {
			top = value
			return ast.WalkStop, nil
		}
		return ast.WalkSkipChildren, nil
	})
	if top != "" {
		return top
	}
	return first
}

// markdownSpeech flattens markdown into prose. Code blocks, raw HTML, and
// images are dropped; headings end with a full stop so speech pauses.
func markdownSpeech(body string) string {
	src := []byte(body)
	doc := markdown.Parser().Parse(text.NewReader(src))

	var blocks []string
	for block := doc.FirstChild(); block != nil; block = block.NextSibling() {
		blocks = appendSpeechBlocks(blocks, block, src)
	}
	return strings.Join(blocks, "\n\n")
}

func appendSpeechBlocks(out []string, n ast.Node, src []byte) []string {
	switch node := n.(type) {
	case *ast.FencedCodeBlock, *ast.CodeBlock, *ast.HTMLBlock, *ast.ThematicBreak:
		return out
	case *ast.Heading:
		line := strings.TrimSpace(inlineText(node, src))
		if line == "" {
			return out
		}
		if !strings.ContainsAny(line[len(line)-1:], ".!?:") {
			line += "."
		}
		return append(out, line)
	case *ast.Paragraph, *ast.TextBlock:
		if line := strings.TrimSpace(inlineText(node, src)); line != "" {
			out = append(out, line)
		}
		return out
	default:
		for child := n.FirstChild(); child != nil; child = child.NextSibling() {
			out = appendSpeechBlocks(out, child, src)
		}
		return out
	}
}

func inlineText(n ast.Node, src []byte) string {
	var b strings.Builder
	_ = ast.Walk(n, func(node ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		switch v := node.(type) {
		case *ast.Image, *ast.RawHTML:
			return ast.WalkSkipChildren, nil
		case *ast.AutoLink:
			b.Write(v.Label(src))
			return ast.WalkSkipChildren, nil
		case *ast.Text:
			b.Write(v.Segment.Value(src))
			if v.SoftLineBreak() || v.HardLineBreak() {
				b.WriteByte(' ')
			}
		case *ast.String:
			b.Write(v.Value)
		}
		return ast.WalkContinue, nil
	})
	return strings.Join(strings.Fields(b.String()), " ")
}
