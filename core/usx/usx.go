// Package usx imports USX documents (the XML interchange form used by
// Paratext and the Digital Bible Library) by translating them to USFM
// and handing the result to the usfm package. Only the subset of USX
// that maps onto the editor's item kinds is accepted.
package usx

import (
	"fmt"
	"io"
	"strings"

	"github.com/antchfx/xmlquery"
	"github.com/antchfx/xpath"

	kiterr "github.com/FocuswithJustin/KeyItBible/core/errors"
	"github.com/FocuswithJustin/KeyItBible/core/usfm"
)

// styleMarkers are the para styles carried over verbatim as markers
// with their inner text.
var styleMarkers = map[string]string{
	"s":   "s",
	"r":   "r",
	"d":   "d",
	"mt":  "mt",
	"imt": "imt",
	"ims": "ims",
	"ip":  "ip",
}

var chapterQuery = xpath.MustCompile("//chapter")

// ToUSFM renders a USX document as the equivalent USFM text.
func ToUSFM(r io.Reader) (string, error) {
	doc, err := xmlquery.Parse(r)
	if err != nil {
		return "", fmt.Errorf("usx parse: %w", err)
	}
	root := xmlquery.FindOne(doc, "//usx")
	if root == nil {
		return "", fmt.Errorf("no usx root element: %w", kiterr.ErrInvalidInput)
	}
	if len(xmlquery.QuerySelectorAll(doc, chapterQuery)) == 0 {
		return "", fmt.Errorf("usx document has no chapters: %w", kiterr.ErrInvalidInput)
	}

	w := &usfmWriter{}
	for n := root.FirstChild; n != nil; n = n.NextSibling {
		if n.Type != xmlquery.ElementNode {
			continue
		}
		switch n.Data {
		case "book":
			code := n.SelectAttr("code")
			if code == "" {
				return "", fmt.Errorf("book element without a code: %w", kiterr.ErrInvalidInput)
			}
			w.line(`\id ` + code)
		case "chapter":
			num := n.SelectAttr("number")
			if num == "" {
				return "", fmt.Errorf("chapter element without a number: %w", kiterr.ErrInvalidInput)
			}
			w.line(`\c ` + num)
		case "para":
			if err := w.para(n); err != nil {
				return "", err
			}
		default:
			return "", fmt.Errorf("unsupported usx element <%s>: %w", n.Data, kiterr.ErrInvalidInput)
		}
	}
	return w.String(), nil
}

// ParseBook imports a USX document as item prototypes, via USFM.
func ParseBook(r io.Reader) (*usfm.ParsedBook, error) {
	text, err := ToUSFM(r)
	if err != nil {
		return nil, err
	}
	return usfm.ParseBook(text)
}

type usfmWriter struct {
	sb strings.Builder
}

func (w *usfmWriter) line(s string) {
	if w.sb.Len() > 0 {
		w.sb.WriteByte('\n')
	}
	w.sb.WriteString(s)
}

func (w *usfmWriter) String() string {
	return w.sb.String()
}

// para translates one <para> element. Verse text paras (style "p")
// carry inline <verse> milestones with their text as sibling nodes;
// every other accepted style maps to a single marker line.
func (w *usfmWriter) para(n *xmlquery.Node) error {
	style := n.SelectAttr("style")
	if style != "p" {
		m, ok := styleMarkers[style]
		if !ok {
			return fmt.Errorf("unsupported para style %q: %w", style, kiterr.ErrInvalidInput)
		}
		w.line(`\` + m + ` ` + strings.TrimSpace(n.InnerText()))
		return nil
	}

	w.line(`\p`)
	var cur strings.Builder
	open := false // a \v line (or continuation line) is being built
	flush := func() {
		if open {
			w.line(strings.TrimRight(cur.String(), " "))
			cur.Reset()
			open = false
		}
	}
	add := func(text string) {
		if cur.Len() > 0 && !strings.HasSuffix(cur.String(), " ") {
			cur.WriteByte(' ')
		}
		cur.WriteString(text)
		open = true
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		switch {
		case c.Type == xmlquery.ElementNode && c.Data == "verse":
			num := c.SelectAttr("number")
			if num == "" {
				return fmt.Errorf("verse element without a number: %w", kiterr.ErrInvalidInput)
			}
			flush()
			cur.WriteString(`\v ` + num + ` `)
			open = true
		case c.Type == xmlquery.TextNode:
			text := strings.TrimSpace(c.Data)
			if text == "" {
				continue
			}
			// Text before the first verse milestone continues the verse
			// left open by the previous paragraph.
			add(text)
		case c.Type == xmlquery.ElementNode:
			// Character-level markup (char, note refs) is flattened to
			// its text content.
			text := strings.TrimSpace(c.InnerText())
			if text == "" {
				continue
			}
			add(text)
		}
	}
	flush()
	return nil
}
