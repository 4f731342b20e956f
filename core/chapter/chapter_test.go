package chapter

import (
	"errors"
	"testing"

	kiterr "github.com/FocuswithJustin/KeyItBible/core/errors"
)

// openTestChapter opens a fresh 3-verse chapter (not Psalms, chapter 2 by
// default so no front-matter commands apply).
func openTestChapter(t *testing.T, st *fakeStore, rec Record, psalms bool) *Chapter {
	t.Helper()
	c, err := Open(st, rec, psalms)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	return c
}

func plainRecord() Record {
	return Record{ID: 1, BibleID: 1, BookID: 41, Num: 2, NumVerses: 3, NumItems: 3}
}

func TestOpenCreatesItemRecords(t *testing.T) {
	st := newFakeStore()
	c := openTestChapter(t, st, plainRecord(), false)

	if len(c.Items) != 3 {
		t.Fatalf("len(Items) = %d, want 3", len(c.Items))
	}
	for i, it := range c.Items {
		if it.Kind != KindVerse {
			t.Errorf("item %d kind = %s, want Verse", i, it.Kind)
		}
		if it.VerseNum != i+1 {
			t.Errorf("item %d verse = %d, want %d", i, it.VerseNum, i+1)
		}
		if it.Order != 100*(i+1) {
			t.Errorf("item %d order = %d, want %d", i, it.Order, 100*(i+1))
		}
	}
	if !c.ItemsCreated {
		t.Error("ItemsCreated not set")
	}
	if !st.chItemsCreated {
		t.Error("items-created flag not persisted")
	}
	// First item becomes current when no selection was recorded.
	cur, ok := c.CurrentItem()
	if !ok || cur.VerseNum != 1 {
		t.Errorf("current item = %+v, want verse 1", cur)
	}
}

func TestOpenCreatesAscriptionSlot(t *testing.T) {
	st := newFakeStore()
	rec := Record{ID: 1, BibleID: 1, BookID: 19, Num: 3, NumVerses: 8, NumItems: 9}
	c := openTestChapter(t, st, rec, true)

	if len(c.Items) != 9 {
		t.Fatalf("len(Items) = %d, want 9", len(c.Items))
	}
	if c.Items[0].Kind != KindAscription {
		t.Errorf("first item = %s, want Ascription", c.Items[0].Kind)
	}
	if c.Items[0].Order != 75 {
		t.Errorf("ascription order = %d, want 75", c.Items[0].Order)
	}
	if !c.HasAscription {
		t.Error("HasAscription not set after load")
	}
}

func TestOrderInvariant(t *testing.T) {
	st := newFakeStore()
	c := openTestChapter(t, st, plainRecord(), false)

	mustApply(t, c, ActionCreateParaBefore)
	if err := c.SelectItem(c.Items[0].ID); err != nil {
		t.Fatal(err)
	}
	mustApply(t, c, ActionCreateHeadingBefore)

	seen := make(map[int]bool)
	prev := -1 << 30
	for _, it := range c.Items {
		if it.Order <= prev {
			t.Fatalf("orders not strictly increasing: %d after %d", it.Order, prev)
		}
		if seen[it.Order] {
			t.Fatalf("duplicate order %d", it.Order)
		}
		seen[it.Order] = true
		prev = it.Order
	}
}

func TestOpenSelfHealsNumItems(t *testing.T) {
	st := newFakeStore()
	rec := plainRecord()
	rec.NumItems = 99 // stale count from a prior partial failure
	c := openTestChapter(t, st, rec, false)

	if c.NumItems != 3 {
		t.Errorf("NumItems = %d, want 3", c.NumItems)
	}
	if st.chNumItems != 3 {
		t.Errorf("persisted NumItems = %d, want 3", st.chNumItems)
	}
}

func TestOpenEmptyChapterNotAnError(t *testing.T) {
	st := newFakeStore()
	rec := plainRecord()
	rec.NumVerses = 0
	rec.NumItems = 0
	c := openTestChapter(t, st, rec, false)
	if len(c.Items) != 0 {
		t.Errorf("len(Items) = %d, want 0", len(c.Items))
	}
	if _, ok := c.CurrentItem(); ok {
		t.Error("empty chapter should have no current item")
	}
}

func TestOpenPropagatesReadError(t *testing.T) {
	st := newFakeStore()
	rec := plainRecord()
	rec.ItemsCreated = true // skip creation, force the read to be first
	st.failOp = "ReadItems"
	if _, err := Open(st, rec, false); err == nil {
		t.Fatal("expected error from failing read")
	}
}

func TestNextIntSeqToleratesGaps(t *testing.T) {
	st := newFakeStore()
	rec := plainRecord()
	rec.Num = 1
	c := openTestChapter(t, st, rec, false)

	// InTitle then two intro paragraphs: intSeq 1 and 2.
	mustApply(t, c, ActionCreateIntroTitle)
	mustApply(t, c, ActionCreateIntroPara)
	mustApply(t, c, ActionCreateIntroPara)
	if c.NextIntSeq != 3 {
		t.Fatalf("NextIntSeq = %d, want 3", c.NextIntSeq)
	}

	// Delete the first InPara (intSeq 1); the gap must not be reused.
	for _, it := range c.Items {
		if it.Kind == KindInPara && it.IntSeq == 1 {
			if err := c.SelectItem(it.ID); err != nil {
				t.Fatal(err)
			}
			break
		}
	}
	mustApply(t, c, ActionDeleteIntroPara)
	if c.NextIntSeq != 3 {
		t.Errorf("NextIntSeq after delete = %d, want 3", c.NextIntSeq)
	}
	for _, it := range c.Items {
		if it.IntSeq >= c.NextIntSeq {
			t.Errorf("intSeq %d not below NextIntSeq %d", it.IntSeq, c.NextIntSeq)
		}
	}
}

func TestSelectItemStrict(t *testing.T) {
	st := newFakeStore()
	c := openTestChapter(t, st, plainRecord(), false)

	if err := c.SelectItem(987654); err == nil {
		t.Fatal("expected error selecting unknown item")
	} else if !errors.Is(err, kiterr.ErrItemNotFound) {
		t.Errorf("error = %v, want ErrItemNotFound in chain", err)
	}

	second := c.Items[1]
	if err := c.SelectItem(second.ID); err != nil {
		t.Fatal(err)
	}
	if c.CurrItemID != second.ID || c.CurrVerseNum != 2 {
		t.Errorf("selection = (%d, %d), want (%d, 2)", c.CurrItemID, c.CurrVerseNum, second.ID)
	}
	if st.chCurrItem != second.ID {
		t.Error("selection not persisted")
	}
}

func TestOffsetOfFallsBackToZero(t *testing.T) {
	st := newFakeStore()
	c := openTestChapter(t, st, plainRecord(), false)
	if got := c.offsetOf(987654); got != 0 {
		t.Errorf("offsetOf(unknown) = %d, want 0", got)
	}
}

func TestSaveItemText(t *testing.T) {
	st := newFakeStore()
	c := openTestChapter(t, st, plainRecord(), false)

	id := c.Items[1].ID
	if err := c.SaveItemText(id, "In the beginning"); err != nil {
		t.Fatal(err)
	}
	if c.Items[1].Text != "In the beginning" {
		t.Error("in-memory text not updated")
	}
	if st.items[id].Text != "In the beginning" {
		t.Error("stored text not updated")
	}
}

// mustApply applies an action with cursor 0 and fails the test on error.
func mustApply(t *testing.T, c *Chapter, act Action) {
	t.Helper()
	if err := c.Apply(act, 0); err != nil {
		t.Fatalf("Apply(%s) failed: %v", act, err)
	}
}

// countInvariant checks numItems against the store after a mutation.
func countInvariant(t *testing.T, c *Chapter, st *fakeStore) {
	t.Helper()
	if c.NumItems != st.countItems(c.ID) {
		t.Fatalf("NumItems = %d, store has %d", c.NumItems, st.countItems(c.ID))
	}
	if len(c.Items) != c.NumItems {
		t.Fatalf("len(Items) = %d, NumItems = %d", len(c.Items), c.NumItems)
	}
}
