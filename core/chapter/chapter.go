package chapter

import (
	"log/slog"

	kiterr "github.com/FocuswithJustin/KeyItBible/core/errors"
)

// Record carries a chapter's row from the Chapters table. The owning book
// supplies it when the chapter is opened.
type Record struct {
	ID           int  // chapterID
	BibleID      int  //
	BookID       int  //
	Num          int  // chapter number within the book
	ItemsCreated bool // VerseItem records exist for this chapter
	NumVerses    int  //
	NumItems     int  // numVerses + 1 when an ascription slot exists
	CurrItemID   int  // 0 until an item has been selected
	CurrVerseNum int  //
}

// Chapter is the live editing state for one chapter. There is at most one
// instance in memory; opening a different chapter discards it. All access
// is single-threaded.
type Chapter struct {
	store Store

	ID           int
	BibleID      int
	BookID       int
	Num          int
	ItemsCreated bool
	NumVerses    int
	NumItems     int
	CurrItemID   int
	CurrVerseNum int

	// Items is the ordered item list, index order equal to itemOrder
	// order. It is cleared and reloaded from the store after every
	// mutation rather than patched in place.
	Items []VerseItem

	currOfst int

	// Existence flags for front-matter items, recomputed at every load
	// and toggled locally on create/delete of the corresponding kind.
	HasAscription bool
	HasTitle      bool
	HasInTitle    bool

	// NextIntSeq is 1 + the largest intSeq among loaded items. It starts
	// at 1 because InTitle is in effect intSeq 0. Gaps left by deleted
	// items are never reused.
	NextIntSeq int

	// IsPsalms is true when the owning book is the Psalms; it gates the
	// Ascription command and the numItems>numVerses ascription slot.
	IsPsalms bool
}

// Open builds the editing state for one chapter. On the first open of a
// chapter its VerseItem records are created from the verse count; on
// every open the item list is read back from the store, the item count is
// verified against what was actually read, and the current item pointer
// is re-established.
func Open(st Store, rec Record, isPsalms bool) (*Chapter, error) {
	c := &Chapter{
		store:        st,
		ID:           rec.ID,
		BibleID:      rec.BibleID,
		BookID:       rec.BookID,
		Num:          rec.Num,
		ItemsCreated: rec.ItemsCreated,
		NumVerses:    rec.NumVerses,
		NumItems:     rec.NumItems,
		CurrItemID:   rec.CurrItemID,
		CurrVerseNum: rec.CurrVerseNum,
		currOfst:     -1,
		IsPsalms:     isPsalms,
	}

	if !c.ItemsCreated {
		if err := c.createItemRecords(); err != nil {
			return nil, kiterr.Annotate("Open", err)
		}
	}

	if err := c.load(); err != nil {
		return nil, kiterr.Annotate("Open", err)
	}

	// Guard against accumulated count drift from earlier partial
	// failures: the loaded list is authoritative.
	c.NumItems = len(c.Items)
	if err := c.store.UpdateChapterCounters(c.ID, c.NumItems, c.CurrItemID, c.CurrVerseNum); err != nil {
		return nil, kiterr.Annotate("Open", err)
	}

	if len(c.Items) > 0 {
		if err := c.goCurrentItem(); err != nil {
			return nil, kiterr.Annotate("Open", err)
		}
	}
	return c, nil
}

// createItemRecords writes the initial VerseItem rows for this chapter:
// one empty Verse per verse, preceded by an empty Ascription when the
// chapter record reserved a slot for one (numItems > numVerses, Psalms
// only).
func (c *Chapter) createItemRecords() error {
	if c.NumItems > c.NumVerses {
		if _, err := c.store.InsertItem(c.ID, 1, KindAscription, ordAscription, "", 0, false, 0); err != nil {
			return kiterr.Annotate("createItemRecords", err)
		}
	}
	for vsNum := 1; vsNum <= c.NumVerses; vsNum++ {
		if _, err := c.store.InsertItem(c.ID, vsNum, KindVerse, verseBand*vsNum, "", 0, false, 0); err != nil {
			return kiterr.Annotate("createItemRecords", err)
		}
	}
	c.ItemsCreated = true
	if err := c.store.UpdateChapterRecord(c.ID, c.ItemsCreated, c.CurrItemID, c.CurrVerseNum); err != nil {
		return kiterr.Annotate("createItemRecords", err)
	}
	return nil
}

// load clears and refills Items from the store, recomputing the derived
// flags and the next introductory sequence number as it goes.
func (c *Chapter) load() error {
	items, err := c.store.ReadItems(c.ID)
	if err != nil {
		return kiterr.Annotate("load", err)
	}
	c.Items = items
	c.HasAscription = false
	c.HasTitle = false
	c.HasInTitle = false
	c.NextIntSeq = 1
	for _, it := range items {
		switch it.Kind {
		case KindAscription:
			c.HasAscription = true
		case KindTitle:
			c.HasTitle = true
		case KindInTitle:
			c.HasInTitle = true
		}
		// Items arrive in ascending order but intSeq values may have
		// gaps from deletions; never reuse one.
		if it.IntSeq > 0 && it.IntSeq >= c.NextIntSeq {
			c.NextIntSeq = it.IntSeq + 1
		}
	}
	return nil
}

// reload refreshes the item list after a mutation and re-establishes the
// offset of the current item. The store is the single source of truth
// once a mutation has run.
func (c *Chapter) reload() error {
	if err := c.load(); err != nil {
		return kiterr.Annotate("reload", err)
	}
	if len(c.Items) > 0 {
		c.currOfst = c.offsetOf(c.CurrItemID)
	} else {
		c.currOfst = -1
	}
	return nil
}

// offsetOf returns the position in Items of the item with the given ID.
// An unknown ID falls back to offset 0, as the original editors did; the
// fallback is logged because it can mask a stale pointer.
func (c *Chapter) offsetOf(itemID int) int {
	for i := range c.Items {
		if c.Items[i].ID == itemID {
			return i
		}
	}
	slog.Warn("item id not in loaded chapter, selecting first item",
		"chapter_id", c.ID, "item_id", itemID)
	return 0
}

// IndexOf returns the position of the item with the given ID, or an
// error when it is not loaded. External callers get the strict variant;
// the engine's own paths keep the permissive fallback.
func (c *Chapter) IndexOf(itemID int) (int, error) {
	for i := range c.Items {
		if c.Items[i].ID == itemID {
			return i, nil
		}
	}
	return 0, &kiterr.NotFoundError{Resource: "verse item", ID: itemID}
}

// goCurrentItem establishes the current item after a load. A chapter with
// no recorded selection starts at its first item.
func (c *Chapter) goCurrentItem() error {
	if c.CurrItemID == 0 {
		c.currOfst = 0
	} else {
		c.currOfst = c.offsetOf(c.CurrItemID)
	}
	c.CurrItemID = c.Items[c.currOfst].ID
	c.CurrVerseNum = c.Items[c.currOfst].VerseNum
	if err := c.store.UpdateChapterRecord(c.ID, c.ItemsCreated, c.CurrItemID, c.CurrVerseNum); err != nil {
		return kiterr.Annotate("goCurrentItem", err)
	}
	return nil
}

// SelectItem makes the item with the given ID the current one and
// persists the selection. It is a pure state change; command derivation
// is a separate explicit call.
func (c *Chapter) SelectItem(itemID int) error {
	ofst, err := c.IndexOf(itemID)
	if err != nil {
		return kiterr.Annotate("SelectItem", err)
	}
	c.currOfst = ofst
	c.CurrItemID = c.Items[ofst].ID
	c.CurrVerseNum = c.Items[ofst].VerseNum
	if err := c.store.UpdateChapterRecord(c.ID, c.ItemsCreated, c.CurrItemID, c.CurrVerseNum); err != nil {
		return kiterr.Annotate("SelectItem", err)
	}
	return nil
}

// CurrentItem returns the currently selected item, or false when the
// chapter has no items.
func (c *Chapter) CurrentItem() (VerseItem, bool) {
	if c.currOfst < 0 || c.currOfst >= len(c.Items) {
		return VerseItem{}, false
	}
	return c.Items[c.currOfst], true
}

// CurrentOffset returns the position of the current item in Items, or -1
// when nothing is selected.
func (c *Chapter) CurrentOffset() int {
	return c.currOfst
}

// ItemAt returns the item at a position in load order.
func (c *Chapter) ItemAt(ofst int) VerseItem {
	return c.Items[ofst]
}

// SaveItemText flushes the text of one item to the store and mirrors it
// in memory. The UI calls this whenever focus leaves an item, before any
// structural mutation is allowed to run, so the engine never operates on
// stale text.
func (c *Chapter) SaveItemText(itemID int, text string) error {
	ofst, err := c.IndexOf(itemID)
	if err != nil {
		return kiterr.Annotate("SaveItemText", err)
	}
	c.Items[ofst].Text = text
	if err := c.store.UpdateItemText(itemID, text); err != nil {
		return kiterr.Annotate("SaveItemText", err)
	}
	return nil
}
