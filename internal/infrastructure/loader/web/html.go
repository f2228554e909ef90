package web

import (
	"fmt"
	"io"
	"strings"
	"unicode"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

var skippedElements = map[atom.Atom]bool{
	atom.Script:   true,
	atom.Style:    true,
	atom.Noscript: true,
	atom.Template: true,
	atom.Svg:      true,
	atom.Iframe:   true,
	atom.Canvas:   true,
	atom.Object:   true,
}

// paragraphElements end with a blank line, lineElements with a single newline.
var paragraphElements = map[atom.Atom]bool{
	atom.P: true, atom.H1: true, atom.H2: true, atom.H3: true, atom.H4: true, atom.H5: true, atom.H6: true,
	atom.Article: true, atom.Section: true, atom.Blockquote: true, atom.Pre: true,
	atom.Ul: true, atom.Ol: true, atom.Table: true, atom.Header: true, atom.Footer: true,
}

var lineElements = map[atom.Atom]bool{
	atom.Div: true, atom.Li: true, atom.Tr: true, atom.Br: true, atom.Dt: true, atom.Dd: true,
	atom.Nav: true, atom.Main: true, atom.Aside: true, atom.Figure: true, atom.Figcaption: true,
	atom.Hr: true, atom.Form: true,
}

func extractHTML(r io.Reader) (string, string, error) {
	root, err := html.Parse(r)
	if err != nil {
		return "", "", fmt.Errorf("parse html: %w", err)
	}
	w := &textWalker{}
	w.walk(root)
	return w.title, w.out.String(), nil
}

type textWalker struct {
	out     strings.Builder
	title   string
	pending int
	space   bool
}

func (w *textWalker) walk(n *html.Node) {
	switch n.Type {
	case html.TextNode:
		w.writeText(n.Data)
		return
	case html.CommentNode, html.DoctypeNode:
		return
	case html.ElementNode:
		if n.DataAtom == atom.Title {
			if w.title == "" {
				w.title = strings.Join(strings.Fields(nodeText(n)), " ")
			}
			return
		}
		if skippedElements[n.DataAtom] {
			return
		}
	}

	breaks := 0
	switch {
	case n.Type != html.ElementNode:
	case paragraphElements[n.DataAtom]:
		breaks = 2
	case lineElements[n.DataAtom]:
		breaks = 1
	}

	w.lineBreak(breaks)
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		w.walk(c)
	}
	w.lineBreak(breaks)
}

func (w *textWalker) writeText(s string) {
	fields := strings.Fields(s)
	if len(fields) == 0 {
		if s != "" {
			w.space = true
		}
		return
	}
	if unicode.IsSpace([]rune(s)[0]) {
		w.space = true
	}
	for i, field := range fields {
		if i > 0 {
			w.space = true
		}
		w.writeWord(field)
	}
	if r := []rune(s); unicode.IsSpace(r[len(r)-1]) {
		w.space = true
	}
}

func (w *textWalker) writeWord(word string) {
	if w.out.Len() > 0 {
		switch {
		case w.pending > 0:
			w.out.WriteString(strings.Repeat("\n", w.pending))
		case w.space:
			w.out.WriteByte(' ')
		}
	}
	w.out.WriteString(word)
	w.pending = 0
	w.space = false
}

func (w *textWalker) lineBreak(n int) {
	if n > w.pending {
		w.pending = n
	}
}

func nodeText(n *html.Node) string {
	var b strings.Builder
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.TextNode {
			b.WriteString(c.Data)
		}
	}
	return b.String()
}
