package bible

import (
	"fmt"

	"github.com/FocuswithJustin/KeyItBible/core/chapter"
	kiterr "github.com/FocuswithJustin/KeyItBible/core/errors"
	"github.com/FocuswithJustin/KeyItBible/core/usfm"
)

// ImportBook replaces the item records of every chapter present in the
// parsed book. The target book is located by its USFM code and becomes
// the current book. Chapters the document does not mention keep their
// existing items.
//
// The replacement is per chapter and not transactional: a store failure
// leaves earlier chapters imported and later ones untouched, which a
// re-run of the same import repairs.
func (s *Session) ImportBook(parsed *usfm.ParsedBook) error {
	rec, err := s.BookByCode(parsed.Code)
	if err != nil {
		return kiterr.Annotate("ImportBook", err)
	}
	b, err := s.OpenBook(rec.ID)
	if err != nil {
		return kiterr.Annotate("ImportBook", err)
	}

	for _, pc := range parsed.Chapters {
		chRec, err := b.ChapterRecord(pc.Num)
		if err != nil {
			return kiterr.Annotate("ImportBook",
				fmt.Errorf("chapter %d not in %s: %w", pc.Num, parsed.Code, err))
		}
		if err := b.replaceChapterItems(chRec, pc.Items); err != nil {
			return kiterr.Annotate("ImportBook", err)
		}
	}

	// Reload chapter records so counters and flags reflect the import,
	// and drop any open chapter whose items were just replaced.
	b.Chapters, err = s.store.ReadChapters(b.Record.BibleID, b.Record.ID)
	if err != nil {
		return kiterr.Annotate("ImportBook", err)
	}
	b.Chapter = nil
	return nil
}

// replaceChapterItems deletes a chapter's current items and writes the
// imported prototypes in their place. Bridged imports get a synthetic
// bridge record so they can still be unbridged in the editor.
func (b *Book) replaceChapterItems(rec chapter.Record, items []chapter.VerseItem) error {
	existing, err := b.store.ReadItems(rec.ID)
	if err != nil {
		return kiterr.Annotate("replaceChapterItems", err)
	}
	for _, it := range existing {
		brs, err := b.store.ReadBridgeRecords(it.ID)
		if err != nil {
			return kiterr.Annotate("replaceChapterItems", err)
		}
		for _, br := range brs {
			if err := b.store.DeleteBridgeRecord(br.ID); err != nil {
				return kiterr.Annotate("replaceChapterItems", err)
			}
		}
		if err := b.store.DeleteItem(it.ID); err != nil {
			return kiterr.Annotate("replaceChapterItems", err)
		}
	}

	for _, it := range items {
		id, err := b.store.InsertItem(rec.ID, it.VerseNum, it.Kind, it.Order,
			it.Text, it.IntSeq, it.IsBridge, it.LastVsBridge)
		if err != nil {
			return kiterr.Annotate("replaceChapterItems", err)
		}
		if it.IsBridge {
			// One snapshot per absorbed verse keeps the unbridge path
			// working; the pre-merge texts are gone, so the snapshots
			// carry the bridged text and empty extracted verses.
			for v := it.VerseNum; v < it.LastVsBridge; v++ {
				if _, err := b.store.InsertBridgeRecord(id, it.Text, ""); err != nil {
					return kiterr.Annotate("replaceChapterItems", err)
				}
			}
		}
	}

	if err := b.store.UpdateChapterRecord(rec.ID, true, 0, 0); err != nil {
		return kiterr.Annotate("replaceChapterItems", err)
	}
	if err := b.store.UpdateChapterCounters(rec.ID, len(items), 0, 0); err != nil {
		return kiterr.Annotate("replaceChapterItems", err)
	}
	return nil
}
