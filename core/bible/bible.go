package bible

import (
	"github.com/FocuswithJustin/KeyItBible/core/chapter"
	kiterr "github.com/FocuswithJustin/KeyItBible/core/errors"
)

// Record is the single row of the Bibles table.
type Record struct {
	ID           int
	Name         string
	BooksCreated bool
	CurrBookID   int // 0 until a book has been chosen
}

// BookRecord is one row of the Books table.
type BookRecord struct {
	ID              int // fixed catalogue ID, not auto-assigned
	BibleID         int
	Code            string
	Name            string
	ChaptersCreated bool
	NumChapters     int
	CurrChapterID   int
	CurrChapterNum  int
}

// Store is what the session needs from persistence: the chapter-level
// item store plus the Bible, Book and Chapter record tables.
type Store interface {
	chapter.Store

	EnsureBible(name string) (Record, error)
	UpdateBibleBooksCreated(bibleID int) error
	UpdateBibleCurrBook(bibleID, bookID int) error

	InsertBook(b BookRecord) error
	ReadBooks(bibleID int) ([]BookRecord, error)
	UpdateBook(b BookRecord) error

	InsertChapter(bibleID, bookID, chNum, numVerses, numItems int) (int, error)
	ReadChapters(bibleID, bookID int) ([]chapter.Record, error)
}

// Session is the root of the editing state. It owns at most one open
// Book, which in turn owns at most one open Chapter; opening another
// book or chapter discards the previous one. All access is
// single-threaded.
type Session struct {
	store Store

	Bible Record
	Book  *Book

	books []BookRecord
	specs map[int]BookSpec
}

// Open loads (or on first launch creates) the Bible record and its 66
// book records, then restores the previously current book and chapter
// when one was recorded.
func Open(st Store, name string) (*Session, error) {
	bib, err := st.EnsureBible(name)
	if err != nil {
		return nil, kiterr.Annotate("Open", err)
	}
	s := &Session{
		store: st,
		Bible: bib,
		specs: make(map[int]BookSpec),
	}
	for _, sp := range Catalogue() {
		s.specs[sp.ID] = sp
	}

	if !s.Bible.BooksCreated {
		if err := s.createBookRecords(); err != nil {
			return nil, kiterr.Annotate("Open", err)
		}
	}
	s.books, err = st.ReadBooks(s.Bible.ID)
	if err != nil {
		return nil, kiterr.Annotate("Open", err)
	}

	if s.Bible.CurrBookID != 0 {
		if _, err := s.OpenBook(s.Bible.CurrBookID); err != nil {
			return nil, kiterr.Annotate("Open", err)
		}
	}
	return s, nil
}

// createBookRecords writes one Books row per catalogue book. Chapter
// records are not created here; they are expanded lazily the first time
// each book is opened.
func (s *Session) createBookRecords() error {
	for _, sp := range Catalogue() {
		b := BookRecord{
			ID:      sp.ID,
			BibleID: s.Bible.ID,
			Code:    sp.Code,
			Name:    sp.Name,
		}
		if err := s.store.InsertBook(b); err != nil {
			return kiterr.Annotate("createBookRecords", err)
		}
	}
	s.Bible.BooksCreated = true
	if err := s.store.UpdateBibleBooksCreated(s.Bible.ID); err != nil {
		return kiterr.Annotate("createBookRecords", err)
	}
	return nil
}

// Books lists the book records in catalogue order.
func (s *Session) Books() []BookRecord {
	return s.books
}

// BookByID returns the record for one book.
func (s *Session) BookByID(bookID int) (BookRecord, error) {
	for _, b := range s.books {
		if b.ID == bookID {
			return b, nil
		}
	}
	return BookRecord{}, &kiterr.NotFoundError{Resource: "book", ID: bookID}
}

// OpenBook makes the given book current, expanding its chapter records
// on first open and restoring its previously current chapter. The
// previously open book (and its chapter) is discarded.
func (s *Session) OpenBook(bookID int) (*Book, error) {
	rec, err := s.BookByID(bookID)
	if err != nil {
		return nil, kiterr.Annotate("OpenBook", err)
	}
	sp, ok := s.specs[bookID]
	if !ok {
		return nil, kiterr.Annotate("OpenBook", &kiterr.NotFoundError{Resource: "book spec", ID: bookID})
	}
	b := &Book{store: s.store, Record: rec, spec: sp}

	if !b.Record.ChaptersCreated {
		if err := b.createChapterRecords(); err != nil {
			return nil, kiterr.Annotate("OpenBook", err)
		}
	}
	b.Chapters, err = s.store.ReadChapters(b.Record.BibleID, b.Record.ID)
	if err != nil {
		return nil, kiterr.Annotate("OpenBook", err)
	}

	s.Book = b
	s.Bible.CurrBookID = bookID
	if err := s.store.UpdateBibleCurrBook(s.Bible.ID, bookID); err != nil {
		return nil, kiterr.Annotate("OpenBook", err)
	}
	s.rememberBook(b.Record)

	if b.Record.CurrChapterNum != 0 {
		if _, err := b.OpenChapter(b.Record.CurrChapterNum); err != nil {
			return nil, kiterr.Annotate("OpenBook", err)
		}
		s.rememberBook(b.Record)
	}
	return b, nil
}

// rememberBook mirrors a book record update back into the cached list
// so that Books() reflects what was persisted.
func (s *Session) rememberBook(rec BookRecord) {
	for i := range s.books {
		if s.books[i].ID == rec.ID {
			s.books[i] = rec
			return
		}
	}
}

// Book is one open book: its record, its chapter records, and at most
// one live Chapter.
type Book struct {
	store Store

	Record   BookRecord
	Chapters []chapter.Record
	Chapter  *chapter.Chapter

	spec BookSpec
}

// createChapterRecords expands the book's catalogue spec into one
// Chapters row per chapter. A Psalm chapter with an ascription slot
// gets numItems = numVerses + 1.
func (b *Book) createChapterRecords() error {
	for i, cs := range b.spec.Chapters {
		numItems := cs.NumVerses
		if cs.HasAscription {
			numItems++
		}
		if _, err := b.store.InsertChapter(b.Record.BibleID, b.Record.ID, i+1, cs.NumVerses, numItems); err != nil {
			return kiterr.Annotate("createChapterRecords", err)
		}
	}
	b.Record.ChaptersCreated = true
	b.Record.NumChapters = len(b.spec.Chapters)
	if err := b.store.UpdateBook(b.Record); err != nil {
		return kiterr.Annotate("createChapterRecords", err)
	}
	return nil
}

// ChapterRecord returns the record of one chapter by chapter number.
func (b *Book) ChapterRecord(chNum int) (chapter.Record, error) {
	for _, rec := range b.Chapters {
		if rec.Num == chNum {
			return rec, nil
		}
	}
	return chapter.Record{}, &kiterr.NotFoundError{Resource: "chapter", ID: chNum}
}

// OpenChapter makes the given chapter current, building its editing
// state and persisting the selection on the book record. The previously
// open chapter is discarded.
func (b *Book) OpenChapter(chNum int) (*chapter.Chapter, error) {
	rec, err := b.ChapterRecord(chNum)
	if err != nil {
		return nil, kiterr.Annotate("OpenChapter", err)
	}
	ch, err := chapter.Open(b.store, rec, b.Record.ID == PsalmsBookID)
	if err != nil {
		return nil, kiterr.Annotate("OpenChapter", err)
	}
	b.Chapter = ch

	b.Record.CurrChapterID = rec.ID
	b.Record.CurrChapterNum = chNum
	if err := b.store.UpdateBook(b.Record); err != nil {
		return nil, kiterr.Annotate("OpenChapter", err)
	}
	// Keep the cached record list in step with what chapter.Open may
	// have corrected (item creation, count self-healing, selection).
	for i := range b.Chapters {
		if b.Chapters[i].ID == ch.ID {
			b.Chapters[i].ItemsCreated = ch.ItemsCreated
			b.Chapters[i].NumItems = ch.NumItems
			b.Chapters[i].CurrItemID = ch.CurrItemID
			b.Chapters[i].CurrVerseNum = ch.CurrVerseNum
		}
	}
	return ch, nil
}
