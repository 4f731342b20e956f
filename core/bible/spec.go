// Package bible holds the book catalogue and the editing session that
// owns the single live Book and Chapter.
package bible

import (
	"bufio"
	_ "embed"
	"fmt"
	"strconv"
	"strings"
	"sync"
)

// PsalmsBookID is the catalogue ID of the Psalms, the one book whose
// chapters may carry an ascription.
const PsalmsBookID = 19

//go:embed data/books_spec.txt
var booksSpecData string

//go:embed data/books_names.txt
var bookNamesData string

// ChapterSpec gives the verse count of one chapter and whether the
// chapter reserves an ascription slot ahead of verse 1.
type ChapterSpec struct {
	NumVerses     int
	HasAscription bool
}

// BookSpec describes one book of the catalogue: its fixed ID, its USFM
// code, its display name and its chapter layout.
type BookSpec struct {
	ID       int
	Code     string
	Name     string
	Chapters []ChapterSpec
}

// ParseBooksSpec parses the two catalogue files: spec lines of the form
// "bookID, CODE, n1, n2, ..." where an A prefix on a count marks an
// ascription slot, and name lines of the form "bookID, Name". Lines
// starting with # and blank lines are skipped.
func ParseBooksSpec(spec, names string) ([]BookSpec, error) {
	nameByID := make(map[int]string)
	sc := bufio.NewScanner(strings.NewReader(names))
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		id, rest, ok := strings.Cut(line, ",")
		if !ok {
			return nil, fmt.Errorf("book names: malformed line %q", line)
		}
		n, err := strconv.Atoi(strings.TrimSpace(id))
		if err != nil {
			return nil, fmt.Errorf("book names: bad book id in %q: %w", line, err)
		}
		nameByID[n] = strings.TrimSpace(rest)
	}

	var books []BookSpec
	sc = bufio.NewScanner(strings.NewReader(spec))
	buf := make([]byte, 0, 64*1024)
	sc.Buffer(buf, 64*1024) // the Psalms line runs long
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		fields := strings.Split(line, ",")
		if len(fields) < 3 {
			return nil, fmt.Errorf("books spec: malformed line %q", line)
		}
		id, err := strconv.Atoi(strings.TrimSpace(fields[0]))
		if err != nil {
			return nil, fmt.Errorf("books spec: bad book id in %q: %w", line, err)
		}
		b := BookSpec{
			ID:   id,
			Code: strings.TrimSpace(fields[1]),
			Name: nameByID[id],
		}
		if b.Name == "" {
			return nil, fmt.Errorf("books spec: book %d has no name entry", id)
		}
		for _, f := range fields[2:] {
			f = strings.TrimSpace(f)
			cs := ChapterSpec{}
			if strings.HasPrefix(f, "A") {
				if id != PsalmsBookID {
					return nil, fmt.Errorf("books spec: ascription marker outside the Psalms in %q", line)
				}
				cs.HasAscription = true
				f = f[1:]
			}
			cs.NumVerses, err = strconv.Atoi(f)
			if err != nil {
				return nil, fmt.Errorf("books spec: bad verse count %q for book %d: %w", f, id, err)
			}
			b.Chapters = append(b.Chapters, cs)
		}
		books = append(books, b)
	}
	return books, nil
}

var catalogue = sync.OnceValue(func() []BookSpec {
	books, err := ParseBooksSpec(booksSpecData, bookNamesData)
	if err != nil {
		// The embedded files ship with the binary; a parse failure is a
		// build defect, not a runtime condition.
		panic("bible: embedded catalogue is invalid: " + err.Error())
	}
	return books
})

// Catalogue returns the 66-book catalogue parsed from the embedded
// data files. The returned slice is shared; callers must not modify it.
func Catalogue() []BookSpec {
	return catalogue()
}
