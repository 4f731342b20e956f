package chapter

import (
	"fmt"
	"sort"
)

// fakeStore is an in-memory Store used by the engine tests. It mimics the
// SQLite layer: auto-increment IDs, reads ordered by itemOrder, bridge
// records returned oldest first.
type fakeStore struct {
	nextItemID   int
	nextBridgeID int
	items        map[int]VerseItem
	bridges      []BridgeRecord

	// last persisted chapter pointer values
	chItemsCreated bool
	chNumItems     int
	chCurrItem     int
	chCurrVsNum    int

	// failOp makes the named operation fail, for error-path tests.
	failOp string
}

func newFakeStore() *fakeStore {
	return &fakeStore{nextItemID: 1, nextBridgeID: 1, items: make(map[int]VerseItem)}
}

func (f *fakeStore) fail(op string) error {
	if f.failOp == op {
		return fmt.Errorf("injected failure in %s", op)
	}
	return nil
}

func (f *fakeStore) InsertItem(chapterID, verseNum int, kind ItemKind, order int, text string, intSeq int, isBridge bool, lastVsBridge int) (int, error) {
	if err := f.fail("InsertItem"); err != nil {
		return 0, err
	}
	id := f.nextItemID
	f.nextItemID++
	f.items[id] = VerseItem{
		ID: id, ChapterID: chapterID, VerseNum: verseNum, Kind: kind,
		Order: order, Text: text, IntSeq: intSeq, IsBridge: isBridge,
		LastVsBridge: lastVsBridge,
	}
	return id, nil
}

func (f *fakeStore) ReadItems(chapterID int) ([]VerseItem, error) {
	if err := f.fail("ReadItems"); err != nil {
		return nil, err
	}
	var out []VerseItem
	for _, it := range f.items {
		if it.ChapterID == chapterID {
			out = append(out, it)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Order < out[j].Order })
	return out, nil
}

func (f *fakeStore) UpdateItemText(itemID int, text string) error {
	if err := f.fail("UpdateItemText"); err != nil {
		return err
	}
	it, ok := f.items[itemID]
	if !ok {
		return fmt.Errorf("no item %d", itemID)
	}
	it.Text = text
	f.items[itemID] = it
	return nil
}

func (f *fakeStore) UpdateItemForBridge(itemID int, text string, isBridge bool, lastVsBridge int) error {
	if err := f.fail("UpdateItemForBridge"); err != nil {
		return err
	}
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
	if err := f.fail("DeleteItem"); err != nil {
		return err
	}
	if _, ok := f.items[itemID]; !ok {
		return fmt.Errorf("no item %d", itemID)
	}
	delete(f.items, itemID)
	return nil
}

func (f *fakeStore) InsertBridgeRecord(itemID int, textCurrBridge, textExtraVerse string) (int, error) {
	if err := f.fail("InsertBridgeRecord"); err != nil {
		return 0, err
	}
	id := f.nextBridgeID
	f.nextBridgeID++
	f.bridges = append(f.bridges, BridgeRecord{
		ID: id, ItemID: itemID,
		TextCurrBridge: textCurrBridge, TextExtraVerse: textExtraVerse,
	})
	return id, nil
}

func (f *fakeStore) ReadBridgeRecords(itemID int) ([]BridgeRecord, error) {
	if err := f.fail("ReadBridgeRecords"); err != nil {
		return nil, err
	}
	var out []BridgeRecord
	for _, br := range f.bridges {
		if br.ItemID == itemID {
			out = append(out, br)
		}
	}
	return out, nil
}

func (f *fakeStore) DeleteBridgeRecord(bridgeID int) error {
	if err := f.fail("DeleteBridgeRecord"); err != nil {
		return err
	}
	for i, br := range f.bridges {
		if br.ID == bridgeID {
			f.bridges = append(f.bridges[:i], f.bridges[i+1:]...)
			return nil
		}
	}
	return fmt.Errorf("no bridge record %d", bridgeID)
}

func (f *fakeStore) UpdateChapterRecord(chapterID int, itemsCreated bool, currItemID, currVerseNum int) error {
	if err := f.fail("UpdateChapterRecord"); err != nil {
		return err
	}
	f.chItemsCreated = itemsCreated
	f.chCurrItem = currItemID
	f.chCurrVsNum = currVerseNum
	return nil
}

func (f *fakeStore) UpdateChapterCounters(chapterID int, numItems, currItemID, currVerseNum int) error {
	if err := f.fail("UpdateChapterCounters"); err != nil {
		return err
	}
	f.chNumItems = numItems
	f.chCurrItem = currItemID
	f.chCurrVsNum = currVerseNum
	return nil
}

// countItems returns the number of stored items for a chapter.
func (f *fakeStore) countItems(chapterID int) int {
	n := 0
	for _, it := range f.items {
		if it.ChapterID == chapterID {
			n++
		}
	}
	return n
}
