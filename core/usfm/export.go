// Package usfm generates and parses the USFM rendition of edited
// chapters. Generation walks a chapter's item list in itemOrder;
// parsing turns USFM text back into item prototypes so a draft can be
// imported into the editing tables.
package usfm

import (
	"fmt"
	"strings"

	"github.com/FocuswithJustin/KeyItBible/core/chapter"
)

// markerFor maps an item kind to its USFM marker. Verse and VerseCont
// are handled separately because of bridge ranges and continuation
// lines.
var markerFor = map[chapter.ItemKind]string{
	chapter.KindPara:       `\p`,
	chapter.KindParaCont:   `\p`,
	chapter.KindHeading:    `\s`,
	chapter.KindParlRef:    `\r`,
	chapter.KindTitle:      `\mt`,
	chapter.KindInTitle:    `\imt`,
	chapter.KindInSubj:     `\ims`,
	chapter.KindInPara:     `\ip`,
	chapter.KindAscription: `\d`,
}

// ChapterText renders one chapter's items as USFM, starting with its
// \c marker. Items must already be in itemOrder, as ReadItems returns
// them.
func ChapterText(chNum int, items []chapter.VerseItem) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, `\c %d`, chNum)
	for _, it := range items {
		sb.WriteByte('\n')
		switch it.Kind {
		case chapter.KindVerse:
			if it.IsBridge {
				fmt.Fprintf(&sb, `\v %d-%d %s`, it.VerseNum, it.LastVsBridge, it.Text)
			} else {
				fmt.Fprintf(&sb, `\v %d %s`, it.VerseNum, it.Text)
			}
		case chapter.KindVerseCont:
			// Continuation of a split verse: bare text after the \p.
			sb.WriteString(it.Text)
		case chapter.KindPara, chapter.KindParaCont:
			sb.WriteString(`\p`)
		default:
			m, ok := markerFor[it.Kind]
			if !ok {
				// An unknown kind is corrupt data; emit it as a comment
				// rather than silently dropping the text.
				fmt.Fprintf(&sb, `\rem unknown item kind %q: %s`, string(it.Kind), it.Text)
				continue
			}
			sb.WriteString(m)
			sb.WriteByte(' ')
			sb.WriteString(it.Text)
		}
	}
	return sb.String()
}

// BookText assembles a whole book from its chapter renditions, headed
// by the \id line.
func BookText(code string, chapterTexts []string) string {
	var sb strings.Builder
	sb.WriteString(`\id `)
	sb.WriteString(code)
	for _, ch := range chapterTexts {
		sb.WriteByte('\n')
		sb.WriteString(ch)
	}
	return sb.String()
}
