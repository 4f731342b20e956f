package bible

import (
	"fmt"
	"sort"

	"github.com/FocuswithJustin/KeyItBible/core/chapter"
)

// fakeStore is an in-memory Store for the session tests. Unlike the
// chapter engine's fake it keeps full Bible/Book/Chapter tables so a
// second session can be opened over the same state.
type fakeStore struct {
	nextChapterID int
	nextItemID    int
	nextBridgeID  int

	bible    Record
	hasBible bool
	books    map[int]BookRecord
	chapters map[int]chapter.Record
	items    map[int]chapter.VerseItem
	bridges  []chapter.BridgeRecord

	// failOp makes the named operation fail, for error-path tests.
	failOp string
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		nextChapterID: 1,
		nextItemID:    1,
		nextBridgeID:  1,
		books:         make(map[int]BookRecord),
		chapters:      make(map[int]chapter.Record),
		items:         make(map[int]chapter.VerseItem),
	}
}

func (f *fakeStore) fail(op string) error {
	if f.failOp == op {
		return fmt.Errorf("injected failure in %s", op)
	}
	return nil
}

func (f *fakeStore) EnsureBible(name string) (Record, error) {
	if err := f.fail("EnsureBible"); err != nil {
		return Record{}, err
	}
	if !f.hasBible {
		f.bible = Record{ID: 1, Name: name}
		f.hasBible = true
	}
	return f.bible, nil
}

func (f *fakeStore) UpdateBibleBooksCreated(bibleID int) error {
	if err := f.fail("UpdateBibleBooksCreated"); err != nil {
		return err
	}
	f.bible.BooksCreated = true
	return nil
}

func (f *fakeStore) UpdateBibleCurrBook(bibleID, bookID int) error {
	if err := f.fail("UpdateBibleCurrBook"); err != nil {
		return err
	}
	f.bible.CurrBookID = bookID
	return nil
}

func (f *fakeStore) InsertBook(b BookRecord) error {
	if err := f.fail("InsertBook"); err != nil {
		return err
	}
	if _, ok := f.books[b.ID]; ok {
		return fmt.Errorf("duplicate book %d", b.ID)
	}
	f.books[b.ID] = b
	return nil
}

func (f *fakeStore) ReadBooks(bibleID int) ([]BookRecord, error) {
	if err := f.fail("ReadBooks"); err != nil {
		return nil, err
	}
	var out []BookRecord
	for _, b := range f.books {
		if b.BibleID == bibleID {
			out = append(out, b)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (f *fakeStore) UpdateBook(b BookRecord) error {
	if err := f.fail("UpdateBook"); err != nil {
		return err
	}
	if _, ok := f.books[b.ID]; !ok {
		return fmt.Errorf("no book %d", b.ID)
	}
	f.books[b.ID] = b
	return nil
}

func (f *fakeStore) InsertChapter(bibleID, bookID, chNum, numVerses, numItems int) (int, error) {
	if err := f.fail("InsertChapter"); err != nil {
		return 0, err
	}
	id := f.nextChapterID
	f.nextChapterID++
	f.chapters[id] = chapter.Record{
		ID: id, BibleID: bibleID, BookID: bookID, Num: chNum,
		NumVerses: numVerses, NumItems: numItems,
	}
	return id, nil
}

func (f *fakeStore) ReadChapters(bibleID, bookID int) ([]chapter.Record, error) {
	if err := f.fail("ReadChapters"); err != nil {
		return nil, err
	}
	var out []chapter.Record
	for _, c := range f.chapters {
		if c.BibleID == bibleID && c.BookID == bookID {
			out = append(out, c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Num < out[j].Num })
	return out, nil
}

func (f *fakeStore) InsertItem(chapterID, verseNum int, kind chapter.ItemKind, order int, text string, intSeq int, isBridge bool, lastVsBridge int) (int, error) {
	if err := f.fail("InsertItem"); err != nil {
		return 0, err
	}
	id := f.nextItemID
	f.nextItemID++
	f.items[id] = chapter.VerseItem{
		ID: id, ChapterID: chapterID, VerseNum: verseNum, Kind: kind,
		Order: order, Text: text, IntSeq: intSeq, IsBridge: isBridge,
		LastVsBridge: lastVsBridge,
	}
	return id, nil
}

func (f *fakeStore) ReadItems(chapterID int) ([]chapter.VerseItem, error) {
	if err := f.fail("ReadItems"); err != nil {
		return nil, err
	}
	var out []chapter.VerseItem
	for _, it := range f.items {
		if it.ChapterID == chapterID {
			out = append(out, it)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Order < out[j].Order })
	return out, nil
}

func (f *fakeStore) UpdateItemText(itemID int, text string) error {
	it, ok := f.items[itemID]
	if !ok {
		return fmt.Errorf("no item %d", itemID)
	}
	it.Text = text
	f.items[itemID] = it
	return nil
}

func (f *fakeStore) UpdateItemForBridge(itemID int, text string, isBridge bool, lastVsBridge int) error {
	it, ok := f.items[itemID]
	if !ok {
		return fmt.Errorf("no item %d", itemID)
	}
	it.Text = text
	it.IsBridge = isBridge
	it.LastVsBridge = lastVsBridge
	f.items[itemID] = it
	return nil
}

func (f *fakeStore) DeleteItem(itemID int) error {
	if _, ok := f.items[itemID]; !ok {
		return fmt.Errorf("no item %d", itemID)
	}
	delete(f.items, itemID)
	return nil
}

func (f *fakeStore) InsertBridgeRecord(itemID int, textCurrBridge, textExtraVerse string) (int, error) {
	id := f.nextBridgeID
	f.nextBridgeID++
	f.bridges = append(f.bridges, chapter.BridgeRecord{
		ID: id, ItemID: itemID,
		TextCurrBridge: textCurrBridge, TextExtraVerse: textExtraVerse,
	})
	return id, nil
}

func (f *fakeStore) ReadBridgeRecords(itemID int) ([]chapter.BridgeRecord, error) {
	var out []chapter.BridgeRecord
	for _, br := range f.bridges {
		if br.ItemID == itemID {
			out = append(out, br)
		}
	}
	return out, nil
}

func (f *fakeStore) DeleteBridgeRecord(bridgeID int) error {
	for i, br := range f.bridges {
		if br.ID == bridgeID {
			f.bridges = append(f.bridges[:i], f.bridges[i+1:]...)
			return nil
		}
	}
	return fmt.Errorf("no bridge record %d", bridgeID)
}

func (f *fakeStore) UpdateChapterRecord(chapterID int, itemsCreated bool, currItemID, currVerseNum int) error {
	c, ok := f.chapters[chapterID]
	if !ok {
		return fmt.Errorf("no chapter %d", chapterID)
	}
	c.ItemsCreated = itemsCreated
	c.CurrItemID = currItemID
	c.CurrVerseNum = currVerseNum
	f.chapters[chapterID] = c
	return nil
}

func (f *fakeStore) UpdateChapterCounters(chapterID int, numItems, currItemID, currVerseNum int) error {
	c, ok := f.chapters[chapterID]
	if !ok {
		return fmt.Errorf("no chapter %d", chapterID)
	}
	c.NumItems = numItems
	c.CurrItemID = currItemID
	c.CurrVerseNum = currVerseNum
	f.chapters[chapterID] = c
	return nil
}
