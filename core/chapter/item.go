// Package chapter implements the item-editing engine for one Bible chapter.
//
// A chapter's content is an ordered list of publication items (verses,
// paragraph breaks, headings, titles, parallel references, introductory
// matter and ascriptions). The engine holds the in-memory list for the one
// live chapter, executes the fixed catalogue of structural edits against
// the persistence layer, and derives the set of commands that are legal
// for the current selection.
//
// Ordering within a chapter is carried entirely by the itemOrder value.
// Each verse v reserves the numeric band [100v-99 .. 100v+99] and related
// items are slotted at fixed offsets inside that band, so inserting a
// heading or paragraph break never requires renumbering existing items.
package chapter

// ItemKind identifies the kind of one publication item. The values are
// stored as-is in the VerseItems table.
type ItemKind string

const (
	// KindVerse is an ordinary verse (or the head of a verse bridge).
	KindVerse ItemKind = "Verse"
	// KindVerseCont is the continuation of a verse after an in-verse
	// paragraph break.
	KindVerseCont ItemKind = "VerseCont"
	// KindPara is a paragraph break before a verse.
	KindPara ItemKind = "Para"
	// KindParaCont is a paragraph break inside a verse.
	KindParaCont ItemKind = "ParaCont"
	// KindHeading is a subject heading before a verse.
	KindHeading ItemKind = "Heading"
	// KindParlRef is a parallel passage reference.
	KindParlRef ItemKind = "ParlRef"
	// KindTitle is the main title of a book (chapter 1 only).
	KindTitle ItemKind = "Title"
	// KindInTitle is a title within a book's introductory matter.
	KindInTitle ItemKind = "InTitle"
	// KindInSubj is a subject heading within introductory matter.
	KindInSubj ItemKind = "InSubj"
	// KindInPara is a paragraph within introductory matter.
	KindInPara ItemKind = "InPara"
	// KindAscription is a superscription before verse 1 of some Psalms.
	KindAscription ItemKind = "Ascription"
)

// Item order offsets inside the 100-wide band a verse reserves.
// Title, InTitle, InSubj and InPara use absolute positions below verse 1's
// band because they belong to the book's front matter, not to a verse.
const (
	ordAscription = 75 // absolute: after front matter, before verse 1
	ordTitle      = 70 // absolute: book title slot
	ordInTitle    = 10 // absolute: intro matter starts here; InSubj/InPara
	// follow at 10+intSeq
	ordHeadingBef = -20 // relative to 100*verse
	ordParlRef    = -15
	ordParaBef    = -10
	ordParaCont   = 10
	ordVerseCont  = 20
	verseBand     = 100
)

// VerseItem is one line of a chapter's document.
type VerseItem struct {
	ID           int      // assigned by the store on insert, never reused
	ChapterID    int      //
	VerseNum     int      // the verse this item belongs to or precedes
	Kind         ItemKind //
	Order        int      // display/export order within the chapter
	Text         string   // freely edited by the user
	IntSeq       int      // sequence for InSubj/InPara (InTitle is 0)
	IsBridge     bool     //
	LastVsBridge int      // last verse folded into the bridge, if bridged
}

// BridgeRecord is the reversible snapshot written when two verses are
// merged. It is owned by the bridge-head item and consumed LIFO by
// unbridging.
type BridgeRecord struct {
	ID             int    // bridge record ID
	ItemID         int    // owning bridge-head item
	TextCurrBridge string // head item's text before the merge
	TextExtraVerse string // text of the verse that was absorbed
}

// Store is the persistence collaborator the engine runs against. Every
// call either succeeds or fails with a store-level error from
// core/errors; the engine treats any failure as fatal to the current
// operation and never retries.
type Store interface {
	// InsertItem creates a VerseItem record and returns its new ID.
	InsertItem(chapterID, verseNum int, kind ItemKind, order int, text string, intSeq int, isBridge bool, lastVsBridge int) (int, error)
	// ReadItems returns all items of a chapter ordered by itemOrder
	// ascending. An empty chapter is not an error.
	ReadItems(chapterID int) ([]VerseItem, error)
	// UpdateItemText replaces the text of one item.
	UpdateItemText(itemID int, text string) error
	// UpdateItemForBridge replaces text and bridge state of one item.
	UpdateItemForBridge(itemID int, text string, isBridge bool, lastVsBridge int) error
	// DeleteItem removes one item record.
	DeleteItem(itemID int) error

	// InsertBridgeRecord appends a bridge snapshot for an item.
	InsertBridgeRecord(itemID int, textCurrBridge, textExtraVerse string) (int, error)
	// ReadBridgeRecords returns an item's bridge snapshots oldest first.
	ReadBridgeRecords(itemID int) ([]BridgeRecord, error)
	// DeleteBridgeRecord removes one consumed bridge snapshot.
	DeleteBridgeRecord(bridgeID int) error

	// UpdateChapterRecord persists the items-created flag and current
	// item pointer of a chapter.
	UpdateChapterRecord(chapterID int, itemsCreated bool, currItemID, currVerseNum int) error
	// UpdateChapterCounters persists the item count and current item
	// pointer of a chapter after a mutation.
	UpdateChapterCounters(chapterID int, numItems, currItemID, currVerseNum int) error
}
