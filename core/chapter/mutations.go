package chapter

import (
	kiterr "github.com/FocuswithJustin/KeyItBible/core/errors"
)

// Apply executes one edit command against the current item. cursor is
// used only by ActionCreateParaCont, where it is the rune offset in the
// current verse's text at which the paragraph break is inserted.
//
// Every command persists its changes step by step and then the whole item
// list is reloaded from the store, so the in-memory view always matches
// the authoritative records afterwards. The multi-step commands (the
// paragraph split and the bridge operations) are not transactional: a
// failure partway through is surfaced immediately and leaves the already
// committed steps in place.
//
// Apply only accepts actions that appear on the current item's derived
// menu. The mutation bodies assume their preconditions hold (a bridge
// needs a following verse, a delete needs a successor item), and action
// codes arrive from the API and the CLI, not just from menus.
func (c *Chapter) Apply(act Action, cursor int) error {
	if !c.menuAllows(act) {
		return kiterr.Annotate("Apply", kiterr.ErrInvalidInput)
	}
	var err error
	switch act {
	case ActionCreateAscription:
		err = c.createAscription()
	case ActionDeleteAscription:
		err = c.deleteAscription()
	case ActionCreateTitle:
		err = c.createTitle()
	case ActionDeleteTitle:
		err = c.deleteTitle()
	case ActionCreateParaBefore:
		err = c.createParagraphBefore()
	case ActionDeletePara:
		err = c.deleteParagraphBefore()
	case ActionCreateParaCont:
		err = c.createParagraphCont(cursor)
	case ActionDeleteParaCont:
		err = c.deleteParagraphCont()
	case ActionDeleteVerseCont:
		err = c.deleteVerseCont()
	case ActionCreateHeadingBefore, ActionCreateHeadingAfter:
		err = c.createSubjHeading()
	case ActionDeleteHeading:
		err = c.deleteSubjHeading()
	case ActionCreateParlRef:
		err = c.createParallelRef()
	case ActionDeleteParlRef:
		err = c.deleteParallelRef()
	case ActionBridgeNext:
		err = c.bridgeNextVerse()
	case ActionUnbridgeLast:
		err = c.unbridgeLastVerse()
	case ActionCreateIntroTitle:
		err = c.createIntroTitle()
	case ActionDeleteIntroTitle:
		err = c.deleteIntroTitle()
	case ActionCreateIntroHeading:
		err = c.createIntroHeading()
	case ActionDeleteIntroSubj:
		err = c.deleteIntroHeading()
	case ActionCreateIntroPara:
		err = c.createIntroPara()
	case ActionDeleteIntroPara:
		err = c.deleteIntroPara()
	default:
		return kiterr.Annotate("Apply", kiterr.ErrInvalidInput)
	}
	if err != nil {
		return kiterr.Annotate("Apply", err)
	}
	return c.reload()
}

// nextItemID is the unconditional next-neighbor rule used by every delete
// command: the item after the deleted one becomes current. Deletable
// kinds always precede verse content, so a successor exists.
func (c *Chapter) nextItemID() int {
	return c.Items[c.currOfst+1].ID
}

// createAscription inserts the Psalm ascription slot. Only offered for
// verse 1 of a Psalm without one.
func (c *Chapter) createAscription() error {
	newID, err := c.store.InsertItem(c.ID, c.CurrVerseNum, KindAscription, ordAscription, "", 0, false, 0)
	if err != nil {
		return kiterr.Annotate("createAscription", err)
	}
	c.HasAscription = true
	c.NumItems++
	c.CurrItemID = newID
	if err := c.store.UpdateChapterCounters(c.ID, c.NumItems, newID, c.CurrVerseNum); err != nil {
		return kiterr.Annotate("createAscription", err)
	}
	return nil
}

func (c *Chapter) deleteAscription() error {
	if err := c.store.DeleteItem(c.CurrItemID); err != nil {
		return kiterr.Annotate("deleteAscription", err)
	}
	c.HasAscription = false
	c.NumItems--
	c.CurrItemID = c.nextItemID()
	if err := c.store.UpdateChapterCounters(c.ID, c.NumItems, c.CurrItemID, c.CurrVerseNum); err != nil {
		return kiterr.Annotate("deleteAscription", err)
	}
	return nil
}

// createTitle inserts the book title. Only offered for chapter 1.
func (c *Chapter) createTitle() error {
	newID, err := c.store.InsertItem(c.ID, c.CurrVerseNum, KindTitle, ordTitle, "", 0, false, 0)
	if err != nil {
		return kiterr.Annotate("createTitle", err)
	}
	c.HasTitle = true
	c.NumItems++
	c.CurrItemID = newID
	if err := c.store.UpdateChapterCounters(c.ID, c.NumItems, newID, c.CurrVerseNum); err != nil {
		return kiterr.Annotate("createTitle", err)
	}
	return nil
}

func (c *Chapter) deleteTitle() error {
	if err := c.store.DeleteItem(c.CurrItemID); err != nil {
		return kiterr.Annotate("deleteTitle", err)
	}
	c.HasTitle = false
	c.NumItems--
	c.CurrItemID = c.nextItemID()
	if err := c.store.UpdateChapterCounters(c.ID, c.NumItems, c.CurrItemID, c.CurrVerseNum); err != nil {
		return kiterr.Annotate("deleteTitle", err)
	}
	return nil
}

// createParagraphBefore inserts a paragraph break before the current
// verse. The verse stays current: there is nothing to type into a Para.
func (c *Chapter) createParagraphBefore() error {
	if _, err := c.store.InsertItem(c.ID, c.CurrVerseNum, KindPara, c.CurrVerseNum*verseBand+ordParaBef, "", 0, false, 0); err != nil {
		return kiterr.Annotate("createParagraphBefore", err)
	}
	c.NumItems++
	if err := c.store.UpdateChapterCounters(c.ID, c.NumItems, c.CurrItemID, c.CurrVerseNum); err != nil {
		return kiterr.Annotate("createParagraphBefore", err)
	}
	return nil
}

func (c *Chapter) deleteParagraphBefore() error {
	vsNum := c.Items[c.currOfst].VerseNum
	if err := c.store.DeleteItem(c.CurrItemID); err != nil {
		return kiterr.Annotate("deleteParagraphBefore", err)
	}
	c.NumItems--
	c.CurrItemID = c.nextItemID()
	c.CurrVerseNum = vsNum
	if err := c.store.UpdateChapterCounters(c.ID, c.NumItems, c.CurrItemID, vsNum); err != nil {
		return kiterr.Annotate("deleteParagraphBefore", err)
	}
	return nil
}

// createParagraphCont splits the current verse's text at cursor and
// inserts a paragraph break inside the verse: the verse keeps the text
// before the cursor, a ParaCont marks the break, and a new VerseCont
// carries the text after the cursor and becomes current. Three dependent
// writes, executed strictly in order.
func (c *Chapter) createParagraphCont(cursor int) error {
	itemText := []rune(c.Items[c.currOfst].Text)
	if cursor < 0 || cursor > len(itemText) {
		return kiterr.Annotate("createParagraphCont", kiterr.ErrInvalidInput)
	}
	txtBef := string(itemText[:cursor])
	txtAft := string(itemText[cursor:])
	vsNum := c.Items[c.currOfst].VerseNum

	if err := c.store.UpdateItemText(c.Items[c.currOfst].ID, txtBef); err != nil {
		return kiterr.Annotate("createParagraphCont", err)
	}
	if _, err := c.store.InsertItem(c.ID, vsNum, KindParaCont, vsNum*verseBand+ordParaCont, "", 0, false, 0); err != nil {
		return kiterr.Annotate("createParagraphCont", err)
	}
	c.NumItems++
	newVContID, err := c.store.InsertItem(c.ID, vsNum, KindVerseCont, vsNum*verseBand+ordVerseCont, txtAft, 0, false, 0)
	if err != nil {
		return kiterr.Annotate("createParagraphCont", err)
	}
	c.NumItems++
	c.CurrItemID = newVContID
	c.CurrVerseNum = vsNum
	if err := c.store.UpdateChapterCounters(c.ID, c.NumItems, newVContID, vsNum); err != nil {
		return kiterr.Annotate("createParagraphCont", err)
	}
	return nil
}

// deleteParagraphCont removes an in-verse paragraph break selected on the
// ParaCont item: the preceding verse reabsorbs the following VerseCont's
// text and both break items are deleted.
func (c *Chapter) deleteParagraphCont() error {
	prevItem := c.Items[c.currOfst-1]
	nextItem := c.Items[c.currOfst+1]
	vsNum := c.Items[c.currOfst].VerseNum

	if err := c.store.DeleteItem(c.CurrItemID); err != nil {
		return kiterr.Annotate("deleteParagraphCont", err)
	}
	c.NumItems--
	if err := c.store.UpdateItemText(prevItem.ID, prevItem.Text+nextItem.Text); err != nil {
		return kiterr.Annotate("deleteParagraphCont", err)
	}
	if err := c.store.DeleteItem(nextItem.ID); err != nil {
		return kiterr.Annotate("deleteParagraphCont", err)
	}
	c.NumItems--
	c.CurrItemID = prevItem.ID
	c.CurrVerseNum = vsNum
	if err := c.store.UpdateChapterCounters(c.ID, c.NumItems, prevItem.ID, vsNum); err != nil {
		return kiterr.Annotate("deleteParagraphCont", err)
	}
	return nil
}

// deleteVerseCont removes an in-verse paragraph break selected on the
// VerseCont item; the verse two positions back (over the ParaCont)
// reabsorbs the continuation text.
func (c *Chapter) deleteVerseCont() error {
	prevItem := c.Items[c.currOfst-2]
	contItem := c.Items[c.currOfst]
	paraCont := c.Items[c.currOfst-1]
	vsNum := contItem.VerseNum

	if err := c.store.UpdateItemText(prevItem.ID, prevItem.Text+contItem.Text); err != nil {
		return kiterr.Annotate("deleteVerseCont", err)
	}
	if err := c.store.DeleteItem(c.CurrItemID); err != nil {
		return kiterr.Annotate("deleteVerseCont", err)
	}
	c.NumItems--
	if err := c.store.DeleteItem(paraCont.ID); err != nil {
		return kiterr.Annotate("deleteVerseCont", err)
	}
	c.NumItems--
	c.CurrItemID = prevItem.ID
	c.CurrVerseNum = vsNum
	if err := c.store.UpdateChapterCounters(c.ID, c.NumItems, prevItem.ID, vsNum); err != nil {
		return kiterr.Annotate("deleteVerseCont", err)
	}
	return nil
}

func (c *Chapter) createSubjHeading() error {
	newID, err := c.store.InsertItem(c.ID, c.CurrVerseNum, KindHeading, c.CurrVerseNum*verseBand+ordHeadingBef, "", 0, false, 0)
	if err != nil {
		return kiterr.Annotate("createSubjHeading", err)
	}
	c.NumItems++
	c.CurrItemID = newID
	if err := c.store.UpdateChapterCounters(c.ID, c.NumItems, newID, c.CurrVerseNum); err != nil {
		return kiterr.Annotate("createSubjHeading", err)
	}
	return nil
}

func (c *Chapter) deleteSubjHeading() error {
	vsNum := c.Items[c.currOfst].VerseNum
	if err := c.store.DeleteItem(c.CurrItemID); err != nil {
		return kiterr.Annotate("deleteSubjHeading", err)
	}
	c.NumItems--
	c.CurrItemID = c.nextItemID()
	c.CurrVerseNum = vsNum
	if err := c.store.UpdateChapterCounters(c.ID, c.NumItems, c.CurrItemID, vsNum); err != nil {
		return kiterr.Annotate("deleteSubjHeading", err)
	}
	return nil
}

// createParallelRef inserts a parallel passage reference before the
// current verse (or after a heading).
func (c *Chapter) createParallelRef() error {
	newID, err := c.store.InsertItem(c.ID, c.CurrVerseNum, KindParlRef, c.CurrVerseNum*verseBand+ordParlRef, "", 0, false, 0)
	if err != nil {
		return kiterr.Annotate("createParallelRef", err)
	}
	c.NumItems++
	c.CurrItemID = newID
	if err := c.store.UpdateChapterCounters(c.ID, c.NumItems, newID, c.CurrVerseNum); err != nil {
		return kiterr.Annotate("createParallelRef", err)
	}
	return nil
}

func (c *Chapter) deleteParallelRef() error {
	vsNum := c.Items[c.currOfst].VerseNum
	if err := c.store.DeleteItem(c.CurrItemID); err != nil {
		return kiterr.Annotate("deleteParallelRef", err)
	}
	c.NumItems--
	c.CurrItemID = c.nextItemID()
	c.CurrVerseNum = vsNum
	if err := c.store.UpdateChapterCounters(c.ID, c.NumItems, c.CurrItemID, vsNum); err != nil {
		return kiterr.Annotate("deleteParallelRef", err)
	}
	return nil
}

// bridgeNextVerse folds the following verse into the current one. The
// absorbed verse's record is deleted, a BridgeRecord snapshots both texts
// so the merge can be reversed, and the head verse takes on the combined
// text and the bridge flags. The head stays current.
func (c *Chapter) bridgeNextVerse() error {
	nextVI := c.Items[c.currOfst+1]
	curTxt := c.Items[c.currOfst].Text

	if err := c.store.DeleteItem(nextVI.ID); err != nil {
		return kiterr.Annotate("bridgeNextVerse", err)
	}
	c.NumItems--
	if _, err := c.store.InsertBridgeRecord(c.CurrItemID, curTxt, nextVI.Text); err != nil {
		return kiterr.Annotate("bridgeNextVerse", err)
	}
	newHeadTxt := curTxt + " " + nextVI.Text
	if err := c.store.UpdateItemForBridge(c.CurrItemID, newHeadTxt, true, nextVI.VerseNum); err != nil {
		return kiterr.Annotate("bridgeNextVerse", err)
	}
	if err := c.store.UpdateChapterCounters(c.ID, c.NumItems, c.CurrItemID, c.CurrVerseNum); err != nil {
		return kiterr.Annotate("bridgeNextVerse", err)
	}
	return nil
}

// unbridgeLastVerse reverses the most recent merge of the current bridge
// head. The bridge records form an append-only log, so repeated
// extensions of one bridge are unwound one verse at a time, newest first.
func (c *Chapter) unbridgeLastVerse() error {
	head := c.Items[c.currOfst]
	recs, err := c.store.ReadBridgeRecords(head.ID)
	if err != nil {
		return kiterr.Annotate("unbridgeLastVerse", err)
	}
	if len(recs) == 0 {
		return kiterr.Annotate("unbridgeLastVerse",
			&kiterr.NotFoundError{Resource: "bridge record", ID: head.ID})
	}
	last := recs[len(recs)-1]

	// Re-create the verse that was absorbed last.
	nextVsNum := head.LastVsBridge
	if _, err := c.store.InsertItem(c.ID, nextVsNum, KindVerse, verseBand*nextVsNum, last.TextExtraVerse, 0, false, 0); err != nil {
		return kiterr.Annotate("unbridgeLastVerse", err)
	}
	c.NumItems++

	// Restore the head's pre-merge text. It stays a bridge head unless
	// it now covers a single verse again.
	isBrid := true
	lastVsBr := head.LastVsBridge - 1
	if lastVsBr == head.VerseNum {
		isBrid = false
		lastVsBr = 0
	}
	if err := c.store.UpdateItemForBridge(head.ID, last.TextCurrBridge, isBrid, lastVsBr); err != nil {
		return kiterr.Annotate("unbridgeLastVerse", err)
	}
	if err := c.store.DeleteBridgeRecord(last.ID); err != nil {
		return kiterr.Annotate("unbridgeLastVerse", err)
	}
	if err := c.store.UpdateChapterCounters(c.ID, c.NumItems, head.ID, c.CurrVerseNum); err != nil {
		return kiterr.Annotate("unbridgeLastVerse", err)
	}
	return nil
}

// createIntroTitle inserts the introductory matter title. Only offered
// for chapter 1, verse 1.
func (c *Chapter) createIntroTitle() error {
	newID, err := c.store.InsertItem(c.ID, c.CurrVerseNum, KindInTitle, ordInTitle, "", 0, false, 0)
	if err != nil {
		return kiterr.Annotate("createIntroTitle", err)
	}
	c.HasInTitle = true
	c.NumItems++
	c.CurrItemID = newID
	if err := c.store.UpdateChapterCounters(c.ID, c.NumItems, newID, c.CurrVerseNum); err != nil {
		return kiterr.Annotate("createIntroTitle", err)
	}
	return nil
}

func (c *Chapter) deleteIntroTitle() error {
	if err := c.store.DeleteItem(c.CurrItemID); err != nil {
		return kiterr.Annotate("deleteIntroTitle", err)
	}
	c.HasInTitle = false
	c.NumItems--
	c.CurrItemID = c.nextItemID()
	c.CurrVerseNum = 1
	if err := c.store.UpdateChapterCounters(c.ID, c.NumItems, c.CurrItemID, 1); err != nil {
		return kiterr.Annotate("deleteIntroTitle", err)
	}
	return nil
}

// createIntroHeading inserts a subject heading into the introductory
// matter, consuming the next intSeq slot.
func (c *Chapter) createIntroHeading() error {
	newID, err := c.store.InsertItem(c.ID, c.CurrVerseNum, KindInSubj, ordInTitle+c.NextIntSeq, "", c.NextIntSeq, false, 0)
	if err != nil {
		return kiterr.Annotate("createIntroHeading", err)
	}
	c.NextIntSeq++
	c.NumItems++
	c.CurrItemID = newID
	if err := c.store.UpdateChapterCounters(c.ID, c.NumItems, newID, c.CurrVerseNum); err != nil {
		return kiterr.Annotate("createIntroHeading", err)
	}
	return nil
}

func (c *Chapter) deleteIntroHeading() error {
	if err := c.store.DeleteItem(c.CurrItemID); err != nil {
		return kiterr.Annotate("deleteIntroHeading", err)
	}
	c.NumItems--
	c.CurrItemID = c.nextItemID()
	c.CurrVerseNum = 1
	if err := c.store.UpdateChapterCounters(c.ID, c.NumItems, c.CurrItemID, 1); err != nil {
		return kiterr.Annotate("deleteIntroHeading", err)
	}
	return nil
}

func (c *Chapter) createIntroPara() error {
	newID, err := c.store.InsertItem(c.ID, c.CurrVerseNum, KindInPara, ordInTitle+c.NextIntSeq, "", c.NextIntSeq, false, 0)
	if err != nil {
		return kiterr.Annotate("createIntroPara", err)
	}
	c.NextIntSeq++
	c.NumItems++
	c.CurrItemID = newID
	if err := c.store.UpdateChapterCounters(c.ID, c.NumItems, newID, c.CurrVerseNum); err != nil {
		return kiterr.Annotate("createIntroPara", err)
	}
	return nil
}

func (c *Chapter) deleteIntroPara() error {
	if err := c.store.DeleteItem(c.CurrItemID); err != nil {
		return kiterr.Annotate("deleteIntroPara", err)
	}
	c.NumItems--
	c.CurrItemID = c.nextItemID()
	c.CurrVerseNum = 1
	if err := c.store.UpdateChapterCounters(c.ID, c.NumItems, c.CurrItemID, 1); err != nil {
		return kiterr.Annotate("deleteIntroPara", err)
	}
	return nil
}
