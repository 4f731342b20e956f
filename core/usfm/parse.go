package usfm

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/alecthomas/participle/v2"
	"github.com/alecthomas/participle/v2/lexer"

	"github.com/FocuswithJustin/KeyItBible/core/chapter"
	kiterr "github.com/FocuswithJustin/KeyItBible/core/errors"
)

// Element is one line of a USFM document: a marker with its text, or a
// bare continuation line (Marker == "").
type Element struct {
	Marker string
	Text   string
}

// usfmLexer splits a document into markers, line text and line ends.
// Text runs to the end of the line so marker arguments stay attached.
var usfmLexer = lexer.MustSimple([]lexer.SimpleRule{
	{Name: "Marker", Pattern: `\\[a-z]+[0-9]*`},
	{Name: "Text", Pattern: `[^\\\r\n]+`},
	{Name: "EOL", Pattern: `\r?\n`},
})

//nolint:govet // participle grammar tags are not standard struct tags
type docGrammar struct {
	Elements []elemGrammar `parser:"@@*"`
}

//nolint:govet // participle grammar tags are not standard struct tags
type elemGrammar struct {
	Marker string `parser:"( @Marker"`
	Text   string `parser:"  @Text? )"`
	Cont   string `parser:"| @Text"`
}

var docParser = participle.MustBuild[docGrammar](
	participle.Lexer(usfmLexer),
	participle.Elide("EOL"),
)

// Parse splits USFM text into elements. Marker names lose their
// backslash; text is trimmed of the single space that separates it from
// its marker. No marker vocabulary check happens here.
func Parse(src string) ([]Element, error) {
	doc, err := docParser.ParseString("", src)
	if err != nil {
		return nil, fmt.Errorf("usfm parse: %w", err)
	}
	var out []Element
	for _, eg := range doc.Elements {
		if eg.Marker == "" {
			text := strings.TrimSpace(eg.Cont)
			if text == "" {
				continue
			}
			out = append(out, Element{Text: text})
			continue
		}
		out = append(out, Element{
			Marker: strings.TrimPrefix(eg.Marker, `\`),
			Text:   strings.TrimSpace(eg.Text),
		})
	}
	return out, nil
}

// ParsedChapter is one chapter recovered from a USFM document: its
// number and its items in itemOrder, as prototypes without database
// IDs.
type ParsedChapter struct {
	Num   int
	Items []chapter.VerseItem
}

// ParsedBook is a whole USFM book.
type ParsedBook struct {
	Code     string
	Chapters []ParsedChapter
}

// ParseBook turns a USFM book into item prototypes, reversing the
// layout that ChapterText and BookText generate. The item orders are
// reconstructed from the same verse-band offsets the editor uses, so a
// parsed book can be written straight into the VerseItems table.
func ParseBook(src string) (*ParsedBook, error) {
	elems, err := Parse(src)
	if err != nil {
		return nil, err
	}
	if len(elems) == 0 {
		return nil, fmt.Errorf("empty usfm document: %w", kiterr.ErrInvalidInput)
	}

	book := &ParsedBook{}
	i := 0
	if elems[0].Marker == "id" {
		code, _, _ := strings.Cut(elems[0].Text, " ")
		book.Code = code
		i++
	}

	var cur *chapterBuilder
	flush := func() error {
		if cur == nil {
			return nil
		}
		ch, err := cur.finish()
		if err != nil {
			return err
		}
		book.Chapters = append(book.Chapters, ch)
		return nil
	}

	for ; i < len(elems); i++ {
		el := elems[i]
		if el.Marker == "c" {
			if err := flush(); err != nil {
				return nil, err
			}
			num, err := strconv.Atoi(strings.TrimSpace(el.Text))
			if err != nil {
				return nil, fmt.Errorf("bad chapter number %q: %w", el.Text, kiterr.ErrInvalidInput)
			}
			cur = &chapterBuilder{num: num}
			continue
		}
		if cur == nil {
			return nil, fmt.Errorf("marker \\%s before the first \\c: %w", el.Marker, kiterr.ErrInvalidInput)
		}
		if err := cur.add(el); err != nil {
			return nil, err
		}
	}
	if err := flush(); err != nil {
		return nil, err
	}
	if len(book.Chapters) == 0 {
		return nil, fmt.Errorf("no chapters in usfm document: %w", kiterr.ErrInvalidInput)
	}
	return book, nil
}

// chapterBuilder accumulates one chapter's items while markers arrive.
// Pre-verse markers (heading, parallel reference, paragraph) are held
// back until the verse they precede is known, because their itemOrder
// hangs off that verse's band.
type chapterBuilder struct {
	num      int
	items    []chapter.VerseItem
	pending  []chapter.VerseItem // orders assigned when the next \v arrives
	curVerse int
	// lastVerseOrder tracks the order of the latest in-verse item so a
	// second split continues at +20 steps.
	lastVerseOrder int
	intSeq         int
}

const (
	ordAscription = 75
	ordTitle      = 70
	ordInTitle    = 10
	ordHeadingBef = -20
	ordParlRef    = -15
	ordParaBef    = -10
	verseBand     = 100
)

func (b *chapterBuilder) add(el Element) error {
	switch el.Marker {
	case "v":
		arg, text, _ := strings.Cut(el.Text, " ")
		first, last, err := parseVerseArg(arg)
		if err != nil {
			return err
		}
		b.curVerse = first
		b.lastVerseOrder = verseBand * first
		b.resolvePending(first)
		it := chapter.VerseItem{
			Kind: chapter.KindVerse, VerseNum: first,
			Order: verseBand * first, Text: strings.TrimSpace(text),
		}
		if last > first {
			it.IsBridge = true
			it.LastVsBridge = last
		}
		b.items = append(b.items, it)

	case "p":
		// A \p after a verse is either an in-verse split (a bare text
		// line follows) or a paragraph before the next verse (\v
		// follows). The distinction resolves itself: continuation text
		// arrives via add("" ...) and converts the pending Para.
		b.pending = append(b.pending, chapter.VerseItem{Kind: chapter.KindPara})

	case "":
		// Continuation line: the preceding \p was an in-verse split.
		if b.curVerse == 0 || len(b.pending) == 0 || b.pending[len(b.pending)-1].Kind != chapter.KindPara {
			return fmt.Errorf("continuation text %q without a verse split: %w", el.Text, kiterr.ErrInvalidInput)
		}
		b.pending = b.pending[:len(b.pending)-1]
		b.items = append(b.items,
			chapter.VerseItem{
				Kind: chapter.KindParaCont, VerseNum: b.curVerse,
				Order: b.lastVerseOrder + 10,
			},
			chapter.VerseItem{
				Kind: chapter.KindVerseCont, VerseNum: b.curVerse,
				Order: b.lastVerseOrder + 20, Text: el.Text,
			},
		)
		b.lastVerseOrder += 20

	case "s":
		b.pending = append(b.pending, chapter.VerseItem{Kind: chapter.KindHeading, Text: el.Text})
	case "r":
		b.pending = append(b.pending, chapter.VerseItem{Kind: chapter.KindParlRef, Text: el.Text})

	case "d":
		b.items = append(b.items, chapter.VerseItem{
			Kind: chapter.KindAscription, VerseNum: 1, Order: ordAscription, Text: el.Text,
		})
	case "mt":
		b.items = append(b.items, chapter.VerseItem{
			Kind: chapter.KindTitle, VerseNum: 1, Order: ordTitle, Text: el.Text,
		})
	case "imt":
		b.items = append(b.items, chapter.VerseItem{
			Kind: chapter.KindInTitle, VerseNum: 1, Order: ordInTitle, Text: el.Text,
		})
	case "ims":
		b.intSeq++
		b.items = append(b.items, chapter.VerseItem{
			Kind: chapter.KindInSubj, VerseNum: 1, Order: ordInTitle + b.intSeq,
			Text: el.Text, IntSeq: b.intSeq,
		})
	case "ip":
		b.intSeq++
		b.items = append(b.items, chapter.VerseItem{
			Kind: chapter.KindInPara, VerseNum: 1, Order: ordInTitle + b.intSeq,
			Text: el.Text, IntSeq: b.intSeq,
		})

	default:
		return fmt.Errorf("unsupported marker \\%s: %w", el.Marker, kiterr.ErrInvalidInput)
	}
	return nil
}

// resolvePending gives the held-back pre-verse items their orders in
// the arriving verse's band.
func (b *chapterBuilder) resolvePending(verse int) {
	for _, p := range b.pending {
		p.VerseNum = verse
		switch p.Kind {
		case chapter.KindHeading:
			p.Order = verseBand*verse + ordHeadingBef
		case chapter.KindParlRef:
			p.Order = verseBand*verse + ordParlRef
		case chapter.KindPara:
			p.Order = verseBand*verse + ordParaBef
		}
		b.items = append(b.items, p)
	}
	b.pending = nil
}

func (b *chapterBuilder) finish() (ParsedChapter, error) {
	if len(b.pending) > 0 {
		return ParsedChapter{}, fmt.Errorf("chapter %d ends with %d unattached markers: %w",
			b.num, len(b.pending), kiterr.ErrInvalidInput)
	}
	// Items were appended in document order; pre-verse items landed
	// after earlier verses but their orders place them correctly.
	sortItems(b.items)
	return ParsedChapter{Num: b.num, Items: b.items}, nil
}

func sortItems(items []chapter.VerseItem) {
	// Insertion sort: the list is nearly ordered already and stays
	// stable for equal orders.
	for i := 1; i < len(items); i++ {
		for j := i; j > 0 && items[j].Order < items[j-1].Order; j-- {
			items[j], items[j-1] = items[j-1], items[j]
		}
	}
}

// parseVerseArg reads "7" or "7-9" into a first and last verse number.
func parseVerseArg(arg string) (first, last int, err error) {
	lo, hi, isRange := strings.Cut(arg, "-")
	first, err = strconv.Atoi(lo)
	if err != nil || first < 1 {
		return 0, 0, fmt.Errorf("bad verse number %q: %w", arg, kiterr.ErrInvalidInput)
	}
	if !isRange {
		return first, first, nil
	}
	last, err = strconv.Atoi(hi)
	if err != nil || last <= first {
		return 0, 0, fmt.Errorf("bad verse range %q: %w", arg, kiterr.ErrInvalidInput)
	}
	return first, last, nil
}
