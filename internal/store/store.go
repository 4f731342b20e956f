// Package store persists Bibles, Books, Chapters, VerseItems and
// BridgeItems in a single SQLite database. It is the one implementation
// of bible.Store; everything above it operates on records and items,
// never on SQL.
package store

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/FocuswithJustin/KeyItBible/core/bible"
	"github.com/FocuswithJustin/KeyItBible/core/chapter"
	kiterr "github.com/FocuswithJustin/KeyItBible/core/errors"
	"github.com/FocuswithJustin/KeyItBible/core/sqlite"
)

const schema = `
CREATE TABLE IF NOT EXISTS Bibles (
	bibleID         INTEGER PRIMARY KEY,
	name            TEXT NOT NULL,
	bookRecsCreated INTEGER NOT NULL DEFAULT 0,
	currBook        INTEGER NOT NULL DEFAULT 0
);

CREATE TABLE IF NOT EXISTS Books (
	bookID          INTEGER NOT NULL,
	bibleID         INTEGER NOT NULL,
	bookCode        TEXT NOT NULL,
	bookName        TEXT NOT NULL,
	chapRecsCreated INTEGER NOT NULL DEFAULT 0,
	numChaps        INTEGER NOT NULL DEFAULT 0,
	currChID        INTEGER NOT NULL DEFAULT 0,
	currChNum       INTEGER NOT NULL DEFAULT 0,
	USFMText        TEXT NOT NULL DEFAULT '',
	PRIMARY KEY (bibleID, bookID)
);

CREATE TABLE IF NOT EXISTS Chapters (
	chapterID       INTEGER PRIMARY KEY AUTOINCREMENT,
	bibleID         INTEGER NOT NULL,
	bookID          INTEGER NOT NULL,
	chNum           INTEGER NOT NULL,
	itemRecsCreated INTEGER NOT NULL DEFAULT 0,
	numVerses       INTEGER NOT NULL,
	numItems        INTEGER NOT NULL,
	currItem        INTEGER NOT NULL DEFAULT 0,
	currVsNum       INTEGER NOT NULL DEFAULT 0,
	USFMText        TEXT NOT NULL DEFAULT ''
);

CREATE TABLE IF NOT EXISTS VerseItems (
	itemID       INTEGER PRIMARY KEY AUTOINCREMENT,
	chapterID    INTEGER NOT NULL,
	vsNum        INTEGER NOT NULL,
	itemType     TEXT NOT NULL,
	itemOrder    INTEGER NOT NULL,
	itemText     TEXT NOT NULL DEFAULT '',
	intSeq       INTEGER NOT NULL DEFAULT 0,
	isBridge     INTEGER NOT NULL DEFAULT 0,
	lastVsBridge INTEGER NOT NULL DEFAULT 0
);

CREATE TABLE IF NOT EXISTS BridgeItems (
	bridgeID      INTEGER PRIMARY KEY AUTOINCREMENT,
	itemID        INTEGER NOT NULL,
	txtCurrBridge TEXT NOT NULL,
	txtExtraVerse TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_verseitems_chapter ON VerseItems(chapterID, itemOrder);
CREATE INDEX IF NOT EXISTS idx_bridgeitems_item   ON BridgeItems(itemID, bridgeID);
`

// DB is the SQLite-backed store.
type DB struct {
	sql *sql.DB
}

var _ bible.Store = (*DB)(nil)

// Open opens (creating if necessary) the database at path and ensures
// the schema exists. AUTOINCREMENT keeps item and bridge IDs from ever
// being reused after a delete.
func Open(path string) (*DB, error) {
	db, err := sqlite.Open(path)
	if err != nil {
		return nil, kiterr.Create("openDatabase", err)
	}
	// A single connection: the editing model is single-threaded and
	// this sidesteps table-lock errors between concurrent writers.
	db.SetMaxOpenConns(1)
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, kiterr.Create("createTables", err)
	}
	return &DB{sql: db}, nil
}

// Close releases the underlying database handle.
func (d *DB) Close() error {
	return d.sql.Close()
}

// EnsureBible returns the single Bibles row, creating it with the given
// name on first launch. The name is not overwritten on later launches.
func (d *DB) EnsureBible(name string) (bible.Record, error) {
	var rec bible.Record
	err := d.sql.QueryRow(
		`SELECT bibleID, name, bookRecsCreated, currBook FROM Bibles LIMIT 1`,
	).Scan(&rec.ID, &rec.Name, &rec.BooksCreated, &rec.CurrBookID)
	if err == nil {
		return rec, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return bible.Record{}, kiterr.Read("bibleGetRec", err)
	}
	if _, err := d.sql.Exec(
		`INSERT INTO Bibles (bibleID, name) VALUES (1, ?)`, name,
	); err != nil {
		return bible.Record{}, kiterr.Create("bibleInsertRec", err)
	}
	return bible.Record{ID: 1, Name: name}, nil
}

func (d *DB) UpdateBibleBooksCreated(bibleID int) error {
	if _, err := d.sql.Exec(
		`UPDATE Bibles SET bookRecsCreated = 1 WHERE bibleID = ?`, bibleID,
	); err != nil {
		return kiterr.Update("bibleUpdateRecsCreated", err)
	}
	return nil
}

func (d *DB) UpdateBibleCurrBook(bibleID, bookID int) error {
	if _, err := d.sql.Exec(
		`UPDATE Bibles SET currBook = ? WHERE bibleID = ?`, bookID, bibleID,
	); err != nil {
		return kiterr.Update("bibleUpdateCurrBook", err)
	}
	return nil
}

func (d *DB) InsertBook(b bible.BookRecord) error {
	if _, err := d.sql.Exec(
		`INSERT INTO Books (bookID, bibleID, bookCode, bookName) VALUES (?, ?, ?, ?)`,
		b.ID, b.BibleID, b.Code, b.Name,
	); err != nil {
		return kiterr.Create("booksInsertRec", err)
	}
	return nil
}

func (d *DB) ReadBooks(bibleID int) ([]bible.BookRecord, error) {
	rows, err := d.sql.Query(
		`SELECT bookID, bibleID, bookCode, bookName, chapRecsCreated,
		        numChaps, currChID, currChNum
		 FROM Books WHERE bibleID = ? ORDER BY bookID`, bibleID,
	)
	if err != nil {
		return nil, kiterr.Read("readBooksRecs", err)
	}
	defer rows.Close()

	var out []bible.BookRecord
	for rows.Next() {
		var b bible.BookRecord
		if err := rows.Scan(&b.ID, &b.BibleID, &b.Code, &b.Name,
			&b.ChaptersCreated, &b.NumChapters, &b.CurrChapterID, &b.CurrChapterNum); err != nil {
			return nil, kiterr.Read("readBooksRecs", err)
		}
		out = append(out, b)
	}
	if err := rows.Err(); err != nil {
		return nil, kiterr.Read("readBooksRecs", err)
	}
	return out, nil
}

func (d *DB) UpdateBook(b bible.BookRecord) error {
	if _, err := d.sql.Exec(
		`UPDATE Books SET chapRecsCreated = ?, numChaps = ?, currChID = ?, currChNum = ?
		 WHERE bibleID = ? AND bookID = ?`,
		b.ChaptersCreated, b.NumChapters, b.CurrChapterID, b.CurrChapterNum,
		b.BibleID, b.ID,
	); err != nil {
		return kiterr.Update("booksUpdateRec", err)
	}
	return nil
}

func (d *DB) InsertChapter(bibleID, bookID, chNum, numVerses, numItems int) (int, error) {
	res, err := d.sql.Exec(
		`INSERT INTO Chapters (bibleID, bookID, chNum, numVerses, numItems)
		 VALUES (?, ?, ?, ?, ?)`,
		bibleID, bookID, chNum, numVerses, numItems,
	)
	if err != nil {
		return 0, kiterr.Create("chaptersInsertRec", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, kiterr.Create("chaptersInsertRec", err)
	}
	return int(id), nil
}

func (d *DB) ReadChapters(bibleID, bookID int) ([]chapter.Record, error) {
	rows, err := d.sql.Query(
		`SELECT chapterID, bibleID, bookID, chNum, itemRecsCreated,
		        numVerses, numItems, currItem, currVsNum
		 FROM Chapters WHERE bibleID = ? AND bookID = ? ORDER BY chNum`,
		bibleID, bookID,
	)
	if err != nil {
		return nil, kiterr.Read("readChaptersRecs", err)
	}
	defer rows.Close()

	var out []chapter.Record
	for rows.Next() {
		var c chapter.Record
		if err := rows.Scan(&c.ID, &c.BibleID, &c.BookID, &c.Num, &c.ItemsCreated,
			&c.NumVerses, &c.NumItems, &c.CurrItemID, &c.CurrVerseNum); err != nil {
			return nil, kiterr.Read("readChaptersRecs", err)
		}
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, kiterr.Read("readChaptersRecs", err)
	}
	return out, nil
}

func (d *DB) UpdateChapterRecord(chapterID int, itemsCreated bool, currItemID, currVerseNum int) error {
	if _, err := d.sql.Exec(
		`UPDATE Chapters SET itemRecsCreated = ?, currItem = ?, currVsNum = ?
		 WHERE chapterID = ?`,
		itemsCreated, currItemID, currVerseNum, chapterID,
	); err != nil {
		return kiterr.Update("chaptersUpdateRec", err)
	}
	return nil
}

func (d *DB) UpdateChapterCounters(chapterID int, numItems, currItemID, currVerseNum int) error {
	if _, err := d.sql.Exec(
		`UPDATE Chapters SET numItems = ?, currItem = ?, currVsNum = ?
		 WHERE chapterID = ?`,
		numItems, currItemID, currVerseNum, chapterID,
	); err != nil {
		return kiterr.Update("chaptersUpdateRecPub", err)
	}
	return nil
}

// UpdateChapterUSFM caches a chapter's generated USFM on its record.
func (d *DB) UpdateChapterUSFM(chapterID int, usfm string) error {
	if _, err := d.sql.Exec(
		`UPDATE Chapters SET USFMText = ? WHERE chapterID = ?`, usfm, chapterID,
	); err != nil {
		return kiterr.Update("updateUSFMText", err)
	}
	return nil
}

// ReadChapterUSFM returns the cached USFM of one chapter.
func (d *DB) ReadChapterUSFM(chapterID int) (string, error) {
	var usfm string
	err := d.sql.QueryRow(
		`SELECT USFMText FROM Chapters WHERE chapterID = ?`, chapterID,
	).Scan(&usfm)
	if errors.Is(err, sql.ErrNoRows) {
		return "", &kiterr.NotFoundError{Resource: "chapter", ID: chapterID}
	}
	if err != nil {
		return "", kiterr.Read("readUSFMText", err)
	}
	return usfm, nil
}

// UpdateBookUSFM caches a whole book's generated USFM on its record.
func (d *DB) UpdateBookUSFM(bibleID, bookID int, usfm string) error {
	if _, err := d.sql.Exec(
		`UPDATE Books SET USFMText = ? WHERE bibleID = ? AND bookID = ?`,
		usfm, bibleID, bookID,
	); err != nil {
		return kiterr.Update("booksUpdateUSFM", err)
	}
	return nil
}

// ReadBookUSFM returns the cached USFM of one book, written by the
// last export. Empty until the book has been exported once.
func (d *DB) ReadBookUSFM(bibleID, bookID int) (string, error) {
	var usfm string
	err := d.sql.QueryRow(
		`SELECT USFMText FROM Books WHERE bibleID = ? AND bookID = ?`,
		bibleID, bookID,
	).Scan(&usfm)
	if errors.Is(err, sql.ErrNoRows) {
		return "", &kiterr.NotFoundError{Resource: "book", ID: bookID}
	}
	if err != nil {
		return "", kiterr.Read("booksReadUSFM", err)
	}
	return usfm, nil
}

func (d *DB) InsertItem(chapterID, verseNum int, kind chapter.ItemKind, order int, text string, intSeq int, isBridge bool, lastVsBridge int) (int, error) {
	res, err := d.sql.Exec(
		`INSERT INTO VerseItems (chapterID, vsNum, itemType, itemOrder, itemText,
		                         intSeq, isBridge, lastVsBridge)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		chapterID, verseNum, string(kind), order, text, intSeq, isBridge, lastVsBridge,
	)
	if err != nil {
		return 0, kiterr.Create("verseItemsInsertRec", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, kiterr.Create("verseItemsInsertRec", err)
	}
	return int(id), nil
}

func (d *DB) ReadItems(chapterID int) ([]chapter.VerseItem, error) {
	rows, err := d.sql.Query(
		`SELECT itemID, chapterID, vsNum, itemType, itemOrder, itemText,
		        intSeq, isBridge, lastVsBridge
		 FROM VerseItems WHERE chapterID = ? ORDER BY itemOrder`, chapterID,
	)
	if err != nil {
		return nil, kiterr.Read("readVerseItemsRecs", err)
	}
	defer rows.Close()

	var out []chapter.VerseItem
	for rows.Next() {
		var it chapter.VerseItem
		var kind string
		if err := rows.Scan(&it.ID, &it.ChapterID, &it.VerseNum, &kind, &it.Order,
			&it.Text, &it.IntSeq, &it.IsBridge, &it.LastVsBridge); err != nil {
			return nil, kiterr.Read("readVerseItemsRecs", err)
		}
		it.Kind = chapter.ItemKind(kind)
		out = append(out, it)
	}
	if err := rows.Err(); err != nil {
		return nil, kiterr.Read("readVerseItemsRecs", err)
	}
	return out, nil
}

func (d *DB) UpdateItemText(itemID int, text string) error {
	return d.execOne("itemsUpdateRecText",
		`UPDATE VerseItems SET itemText = ? WHERE itemID = ?`, text, itemID)
}

func (d *DB) UpdateItemForBridge(itemID int, text string, isBridge bool, lastVsBridge int) error {
	return d.execOne("itemsUpdateForBridge",
		`UPDATE VerseItems SET itemText = ?, isBridge = ?, lastVsBridge = ? WHERE itemID = ?`,
		text, isBridge, lastVsBridge, itemID)
}

func (d *DB) DeleteItem(itemID int) error {
	res, err := d.sql.Exec(`DELETE FROM VerseItems WHERE itemID = ?`, itemID)
	if err != nil {
		return kiterr.Delete("itemsDeleteRec", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return kiterr.Delete("itemsDeleteRec", err)
	}
	if n == 0 {
		return kiterr.Delete("itemsDeleteRec", &kiterr.NotFoundError{Resource: "verse item", ID: itemID})
	}
	return nil
}

func (d *DB) InsertBridgeRecord(itemID int, textCurrBridge, textExtraVerse string) (int, error) {
	res, err := d.sql.Exec(
		`INSERT INTO BridgeItems (itemID, txtCurrBridge, txtExtraVerse) VALUES (?, ?, ?)`,
		itemID, textCurrBridge, textExtraVerse,
	)
	if err != nil {
		return 0, kiterr.Create("bridgeInsertRec", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, kiterr.Create("bridgeInsertRec", err)
	}
	return int(id), nil
}

func (d *DB) ReadBridgeRecords(itemID int) ([]chapter.BridgeRecord, error) {
	rows, err := d.sql.Query(
		`SELECT bridgeID, itemID, txtCurrBridge, txtExtraVerse
		 FROM BridgeItems WHERE itemID = ? ORDER BY bridgeID`, itemID,
	)
	if err != nil {
		return nil, kiterr.Read("bridgeGetRecs", err)
	}
	defer rows.Close()

	var out []chapter.BridgeRecord
	for rows.Next() {
		var br chapter.BridgeRecord
		if err := rows.Scan(&br.ID, &br.ItemID, &br.TextCurrBridge, &br.TextExtraVerse); err != nil {
			return nil, kiterr.Read("bridgeGetRecs", err)
		}
		out = append(out, br)
	}
	if err := rows.Err(); err != nil {
		return nil, kiterr.Read("bridgeGetRecs", err)
	}
	return out, nil
}

func (d *DB) DeleteBridgeRecord(bridgeID int) error {
	res, err := d.sql.Exec(`DELETE FROM BridgeItems WHERE bridgeID = ?`, bridgeID)
	if err != nil {
		return kiterr.Delete("bridgeDeleteRec", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return kiterr.Delete("bridgeDeleteRec", err)
	}
	if n == 0 {
		return kiterr.Delete("bridgeDeleteRec", &kiterr.NotFoundError{Resource: "bridge record", ID: bridgeID})
	}
	return nil
}

// execOne runs an update that must touch exactly one row.
func (d *DB) execOne(op, query string, args ...any) error {
	res, err := d.sql.Exec(query, args...)
	if err != nil {
		return kiterr.Update(op, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return kiterr.Update(op, err)
	}
	if n != 1 {
		return kiterr.Update(op, fmt.Errorf("%d rows affected, want 1", n))
	}
	return nil
}
