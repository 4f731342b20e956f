package bible

import (
	kiterr "github.com/FocuswithJustin/KeyItBible/core/errors"
	"github.com/FocuswithJustin/KeyItBible/core/usfm"
)

// ExportUSFM renders the whole book as USFM by reading each chapter's
// items straight from the store. Chapters that have never been opened
// have no items yet and export as a bare \c line; the current selection
// is not disturbed.
func (b *Book) ExportUSFM() (string, error) {
	chTexts := make([]string, 0, len(b.Chapters))
	for _, rec := range b.Chapters {
		items, err := b.store.ReadItems(rec.ID)
		if err != nil {
			return "", kiterr.Annotate("ExportUSFM", err)
		}
		chTexts = append(chTexts, usfm.ChapterText(rec.Num, items))
	}
	return usfm.BookText(b.Record.Code, chTexts), nil
}

// BookByCode returns the record for the book with the given USFM code.
func (s *Session) BookByCode(code string) (BookRecord, error) {
	for _, b := range s.books {
		if b.Code == code {
			return b, nil
		}
	}
	return BookRecord{}, kiterr.Annotate("BookByCode",
		&kiterr.NotFoundError{Resource: "book code " + code, ID: 0})
}
