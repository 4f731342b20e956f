package store

import (
	"errors"
	"path/filepath"
	"testing"

	"github.com/FocuswithJustin/KeyItBible/core/bible"
	"github.com/FocuswithJustin/KeyItBible/core/chapter"
	kiterr "github.com/FocuswithJustin/KeyItBible/core/errors"
)

func openTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := Open(filepath.Join(t.TempDir(), "kit.db"))
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func TestEnsureBibleIsIdempotent(t *testing.T) {
	db := openTestDB(t)

	rec, err := db.EnsureBible("First")
	if err != nil {
		t.Fatal(err)
	}
	if rec.ID != 1 || rec.Name != "First" || rec.BooksCreated {
		t.Errorf("record = %+v", rec)
	}

	// A second call must return the same row, keeping the original name.
	again, err := db.EnsureBible("Second")
	if err != nil {
		t.Fatal(err)
	}
	if again != rec {
		t.Errorf("second EnsureBible = %+v, want %+v", again, rec)
	}
}

func TestBibleFlagsPersist(t *testing.T) {
	db := openTestDB(t)
	rec, err := db.EnsureBible("Trial")
	if err != nil {
		t.Fatal(err)
	}
	if err := db.UpdateBibleBooksCreated(rec.ID); err != nil {
		t.Fatal(err)
	}
	if err := db.UpdateBibleCurrBook(rec.ID, 19); err != nil {
		t.Fatal(err)
	}
	rec, err = db.EnsureBible("Trial")
	if err != nil {
		t.Fatal(err)
	}
	if !rec.BooksCreated || rec.CurrBookID != 19 {
		t.Errorf("record = %+v", rec)
	}
}

func TestBookRoundTrip(t *testing.T) {
	db := openTestDB(t)

	books := []bible.BookRecord{
		{ID: 8, BibleID: 1, Code: "RUT", Name: "Ruth"},
		{ID: 1, BibleID: 1, Code: "GEN", Name: "Genesis"},
	}
	for _, b := range books {
		if err := db.InsertBook(b); err != nil {
			t.Fatal(err)
		}
	}

	got, err := db.ReadBooks(1)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 2 || got[0].ID != 1 || got[1].ID != 8 {
		t.Fatalf("books not ordered by ID: %+v", got)
	}

	upd := got[1]
	upd.ChaptersCreated = true
	upd.NumChapters = 4
	upd.CurrChapterID = 7
	upd.CurrChapterNum = 2
	if err := db.UpdateBook(upd); err != nil {
		t.Fatal(err)
	}
	got, err = db.ReadBooks(1)
	if err != nil {
		t.Fatal(err)
	}
	if got[1] != upd {
		t.Errorf("updated book = %+v, want %+v", got[1], upd)
	}
}

func TestInsertBookRejectsDuplicate(t *testing.T) {
	db := openTestDB(t)
	b := bible.BookRecord{ID: 8, BibleID: 1, Code: "RUT", Name: "Ruth"}
	if err := db.InsertBook(b); err != nil {
		t.Fatal(err)
	}
	err := db.InsertBook(b)
	if err == nil {
		t.Fatal("expected duplicate key error")
	}
	if !errors.Is(err, kiterr.ErrStoreCreate) {
		t.Errorf("error = %v, want ErrStoreCreate in chain", err)
	}
}

func TestChapterRecords(t *testing.T) {
	db := openTestDB(t)

	id1, err := db.InsertChapter(1, 8, 1, 22, 22)
	if err != nil {
		t.Fatal(err)
	}
	id2, err := db.InsertChapter(1, 8, 2, 23, 23)
	if err != nil {
		t.Fatal(err)
	}
	if id2 <= id1 {
		t.Errorf("chapter IDs not increasing: %d then %d", id1, id2)
	}

	if err := db.UpdateChapterRecord(id1, true, 0, 0); err != nil {
		t.Fatal(err)
	}
	if err := db.UpdateChapterCounters(id1, 25, 3, 2); err != nil {
		t.Fatal(err)
	}

	chs, err := db.ReadChapters(1, 8)
	if err != nil {
		t.Fatal(err)
	}
	if len(chs) != 2 {
		t.Fatalf("len(chapters) = %d, want 2", len(chs))
	}
	want := chapter.Record{
		ID: id1, BibleID: 1, BookID: 8, Num: 1, ItemsCreated: true,
		NumVerses: 22, NumItems: 25, CurrItemID: 3, CurrVerseNum: 2,
	}
	if chs[0] != want {
		t.Errorf("chapter 1 = %+v, want %+v", chs[0], want)
	}
}

func TestItemsReadInItemOrder(t *testing.T) {
	db := openTestDB(t)
	chID, err := db.InsertChapter(1, 8, 1, 2, 2)
	if err != nil {
		t.Fatal(err)
	}

	// Insert out of order; reads must come back ordered by itemOrder.
	if _, err := db.InsertItem(chID, 2, chapter.KindVerse, 200, "two", 0, false, 0); err != nil {
		t.Fatal(err)
	}
	if _, err := db.InsertItem(chID, 1, chapter.KindVerse, 100, "one", 0, false, 0); err != nil {
		t.Fatal(err)
	}
	if _, err := db.InsertItem(chID, 1, chapter.KindHeading, 80, "head", 0, false, 0); err != nil {
		t.Fatal(err)
	}

	items, err := db.ReadItems(chID)
	if err != nil {
		t.Fatal(err)
	}
	wantOrders := []int{80, 100, 200}
	if len(items) != 3 {
		t.Fatalf("len(items) = %d, want 3", len(items))
	}
	for i, it := range items {
		if it.Order != wantOrders[i] {
			t.Errorf("item %d order = %d, want %d", i, it.Order, wantOrders[i])
		}
	}
	if items[0].Kind != chapter.KindHeading || items[1].Text != "one" {
		t.Errorf("items = %+v", items)
	}
}

func TestItemIDsNeverReused(t *testing.T) {
	db := openTestDB(t)
	chID, err := db.InsertChapter(1, 8, 1, 1, 1)
	if err != nil {
		t.Fatal(err)
	}
	id1, err := db.InsertItem(chID, 1, chapter.KindVerse, 100, "", 0, false, 0)
	if err != nil {
		t.Fatal(err)
	}
	if err := db.DeleteItem(id1); err != nil {
		t.Fatal(err)
	}
	id2, err := db.InsertItem(chID, 1, chapter.KindVerse, 100, "", 0, false, 0)
	if err != nil {
		t.Fatal(err)
	}
	if id2 <= id1 {
		t.Errorf("item ID %d reused after deleting %d", id2, id1)
	}
}

func TestItemUpdates(t *testing.T) {
	db := openTestDB(t)
	chID, err := db.InsertChapter(1, 8, 1, 1, 1)
	if err != nil {
		t.Fatal(err)
	}
	id, err := db.InsertItem(chID, 1, chapter.KindVerse, 100, "", 0, false, 0)
	if err != nil {
		t.Fatal(err)
	}

	if err := db.UpdateItemText(id, "In the days"); err != nil {
		t.Fatal(err)
	}
	if err := db.UpdateItemForBridge(id, "In the days of the judges", true, 2); err != nil {
		t.Fatal(err)
	}

	items, err := db.ReadItems(chID)
	if err != nil {
		t.Fatal(err)
	}
	it := items[0]
	if it.Text != "In the days of the judges" || !it.IsBridge || it.LastVsBridge != 2 {
		t.Errorf("item = %+v", it)
	}

	if err := db.UpdateItemText(999999, "x"); err == nil {
		t.Error("expected error updating a missing item")
	} else if !errors.Is(err, kiterr.ErrStoreUpdate) {
		t.Errorf("error = %v, want ErrStoreUpdate in chain", err)
	}
	if err := db.DeleteItem(999999); err == nil {
		t.Error("expected error deleting a missing item")
	} else if !errors.Is(err, kiterr.ErrStoreDelete) {
		t.Errorf("error = %v, want ErrStoreDelete in chain", err)
	}
}

func TestBridgeRecordsLIFO(t *testing.T) {
	db := openTestDB(t)
	chID, err := db.InsertChapter(1, 8, 1, 3, 3)
	if err != nil {
		t.Fatal(err)
	}
	itemID, err := db.InsertItem(chID, 1, chapter.KindVerse, 100, "", 0, true, 2)
	if err != nil {
		t.Fatal(err)
	}

	first, err := db.InsertBridgeRecord(itemID, "one", "two")
	if err != nil {
		t.Fatal(err)
	}
	second, err := db.InsertBridgeRecord(itemID, "one two", "three")
	if err != nil {
		t.Fatal(err)
	}

	recs, err := db.ReadBridgeRecords(itemID)
	if err != nil {
		t.Fatal(err)
	}
	if len(recs) != 2 || recs[0].ID != first || recs[1].ID != second {
		t.Fatalf("records = %+v", recs)
	}
	if recs[1].TextCurrBridge != "one two" || recs[1].TextExtraVerse != "three" {
		t.Errorf("newest record = %+v", recs[1])
	}

	if err := db.DeleteBridgeRecord(second); err != nil {
		t.Fatal(err)
	}
	recs, err = db.ReadBridgeRecords(itemID)
	if err != nil {
		t.Fatal(err)
	}
	if len(recs) != 1 || recs[0].ID != first {
		t.Errorf("records after delete = %+v", recs)
	}
}

func TestChapterUSFMCache(t *testing.T) {
	db := openTestDB(t)
	chID, err := db.InsertChapter(1, 8, 1, 1, 1)
	if err != nil {
		t.Fatal(err)
	}
	if err := db.UpdateChapterUSFM(chID, "\\c 1\n\\v 1 text"); err != nil {
		t.Fatal(err)
	}
	got, err := db.ReadChapterUSFM(chID)
	if err != nil {
		t.Fatal(err)
	}
	if got != "\\c 1\n\\v 1 text" {
		t.Errorf("cached USFM = %q", got)
	}
	if _, err := db.ReadChapterUSFM(999999); err == nil {
		t.Error("expected error for a missing chapter")
	}
}

// TestSessionOverSQLite drives the full stack: session, book and chapter
// open over the real database, an edit, then a relaunch.
func TestSessionOverSQLite(t *testing.T) {
	path := filepath.Join(t.TempDir(), "kit.db")
	db, err := Open(path)
	if err != nil {
		t.Fatal(err)
	}

	s, err := bible.Open(db, "Trial Translation")
	if err != nil {
		t.Fatal(err)
	}
	b, err := s.OpenBook(8) // Ruth
	if err != nil {
		t.Fatal(err)
	}
	ch, err := b.OpenChapter(1)
	if err != nil {
		t.Fatal(err)
	}
	if len(ch.Items) != 22 {
		t.Fatalf("Ruth 1 items = %d, want 22", len(ch.Items))
	}

	verse1 := ch.Items[0]
	if err := ch.SaveItemText(verse1.ID, "In the days when the judges ruled"); err != nil {
		t.Fatal(err)
	}
	if err := ch.SelectItem(verse1.ID); err != nil {
		t.Fatal(err)
	}
	if err := ch.Apply(chapter.ActionCreateTitle, 0); err != nil {
		t.Fatal(err)
	}
	if ch.Items[0].Kind != chapter.KindTitle {
		t.Fatalf("first item = %s, want Title", ch.Items[0].Kind)
	}
	if err := db.Close(); err != nil {
		t.Fatal(err)
	}

	// Relaunch: the same state must come back from disk.
	db2, err := Open(path)
	if err != nil {
		t.Fatal(err)
	}
	defer db2.Close()
	s2, err := bible.Open(db2, "ignored on relaunch")
	if err != nil {
		t.Fatal(err)
	}
	if s2.Bible.Name != "Trial Translation" {
		t.Errorf("bible name = %q", s2.Bible.Name)
	}
	if s2.Book == nil || s2.Book.Record.ID != 8 || s2.Book.Chapter == nil {
		t.Fatal("current book/chapter not restored")
	}
	ch2 := s2.Book.Chapter
	if ch2.Items[0].Kind != chapter.KindTitle {
		t.Errorf("first item after relaunch = %s, want Title", ch2.Items[0].Kind)
	}
	if ch2.Items[1].Text != "In the days when the judges ruled" {
		t.Errorf("verse 1 text = %q", ch2.Items[1].Text)
	}
	if ch2.NumItems != 23 {
		t.Errorf("NumItems = %d, want 23", ch2.NumItems)
	}
}
