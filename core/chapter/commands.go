package chapter

// Action is the code of one edit command, consumed by Apply. The codes
// are also the wire values used by the edit-session API.
type Action string

const (
	// ActionNone is the diagnostic entry offered for a corrupted item.
	ActionNone Action = "NOOP"

	ActionCreateAscription    Action = "crAsc"
	ActionDeleteAscription    Action = "delAsc"
	ActionCreateTitle         Action = "crTitle"
	ActionDeleteTitle         Action = "delTitle"
	ActionCreateParaBefore    Action = "crParaBef"
	ActionDeletePara          Action = "delPara"
	ActionCreateParaCont      Action = "crParaCont"
	ActionDeleteParaCont      Action = "delPCon"
	ActionDeleteVerseCont     Action = "delVCon"
	ActionCreateHeadingBefore Action = "crHdBef"
	ActionCreateHeadingAfter  Action = "crHdAft"
	ActionDeleteHeading       Action = "delHead"
	ActionCreateParlRef       Action = "crPalRef"
	ActionDeleteParlRef       Action = "delPalRef"
	ActionBridgeNext          Action = "brid"
	ActionUnbridgeLast        Action = "unBrid"
	ActionCreateIntroTitle    Action = "crInTit"
	ActionDeleteIntroTitle    Action = "delInTit"
	ActionCreateIntroHeading  Action = "crInHed"
	ActionDeleteIntroSubj     Action = "delInSubj"
	ActionCreateIntroPara     Action = "crInPar"
	ActionDeleteIntroPara     Action = "delInPar"
)

// Class tags a command for presentation only.
type Class byte

const (
	// ClassCreate marks commands that insert an item.
	ClassCreate Class = 'C'
	// ClassDelete marks commands that remove an item.
	ClassDelete Class = 'D'
	// ClassBridge marks the bridge command.
	ClassBridge Class = 'B'
	// ClassUnbridge marks the unbridge command.
	ClassUnbridge Class = 'U'
)

// Command is one legal edit command for the current selection.
type Command struct {
	Label  string `json:"label"`
	Action Action `json:"action"`
	Class  string `json:"class"`
}

func cmd(label string, act Action, cls Class) Command {
	return Command{Label: label, Action: act, Class: string(cls)}
}

// DeriveCommands computes the ordered list of commands that are legal for
// the item with the given ID. It is a pure function of the item's kind,
// its neighbors, and the chapter flags; it must be called again whenever
// the selection or the item list changes, because the legality of the
// paragraph-in and bridge commands depends on neighbor state.
func (c *Chapter) DeriveCommands(itemID int) ([]Command, error) {
	ofst, err := c.IndexOf(itemID)
	if err != nil {
		return nil, err
	}
	return c.deriveAt(ofst), nil
}

// menuAllows reports whether act is on the current item's derived menu.
// ActionNone is the corrupted-state placeholder and is never executable.
func (c *Chapter) menuAllows(act Action) bool {
	if act == ActionNone || c.currOfst < 0 || c.currOfst >= len(c.Items) {
		return false
	}
	for _, m := range c.deriveAt(c.currOfst) {
		if m.Action == act {
			return true
		}
	}
	return false
}

// deriveAt derives the command list for the item at a load-order offset.
func (c *Chapter) deriveAt(ofst int) []Command {
	item := c.Items[ofst]
	isLast := ofst+1 == c.NumItems
	var nextKind ItemKind
	if !isLast && ofst+1 < len(c.Items) {
		nextKind = c.Items[ofst+1].Kind
	}

	var cmds []Command
	switch item.Kind {
	case KindAscription:
		cmds = append(cmds, cmd("Ascription", ActionDeleteAscription, ClassDelete))

	case KindTitle:
		if item.VerseNum == 1 && c.Num == 1 && !c.HasInTitle {
			cmds = append(cmds, cmd("Intro Title", ActionCreateIntroTitle, ClassCreate))
		}
		cmds = append(cmds,
			cmd("Heading After", ActionCreateHeadingAfter, ClassCreate),
			cmd("Title", ActionDeleteTitle, ClassDelete))

	case KindInTitle:
		cmds = append(cmds,
			cmd("Intro Paragraph", ActionCreateIntroPara, ClassCreate),
			cmd("Intro Heading", ActionCreateIntroHeading, ClassCreate),
			cmd("Intro Title", ActionDeleteIntroTitle, ClassDelete))

	case KindInSubj:
		if item.VerseNum == 1 && c.Num == 1 && !c.HasInTitle {
			cmds = append(cmds, cmd("Intro Title", ActionCreateIntroTitle, ClassCreate))
		}
		cmds = append(cmds,
			cmd("Intro Paragraph", ActionCreateIntroPara, ClassCreate),
			cmd("Intro Subject", ActionDeleteIntroSubj, ClassDelete))

	case KindInPara:
		cmds = append(cmds,
			cmd("Intro Paragraph", ActionCreateIntroPara, ClassCreate),
			cmd("Intro Heading", ActionCreateIntroHeading, ClassCreate))
		if item.VerseNum == 1 && c.Num == 1 && !c.HasTitle {
			cmds = append(cmds, cmd("Title", ActionCreateTitle, ClassCreate))
		}
		cmds = append(cmds, cmd("Intro Paragraph", ActionDeleteIntroPara, ClassDelete))

	case KindHeading:
		if item.VerseNum == 1 && c.Num == 1 && !c.HasTitle {
			cmds = append(cmds, cmd("Title", ActionCreateTitle, ClassCreate))
		}
		cmds = append(cmds,
			cmd("Parallel Ref", ActionCreateParlRef, ClassCreate),
			cmd("Heading", ActionDeleteHeading, ClassDelete))

	case KindPara:
		cmds = append(cmds,
			cmd("Heading", ActionCreateHeadingAfter, ClassCreate),
			cmd("Paragraph", ActionDeletePara, ClassDelete))

	case KindParaCont:
		cmds = append(cmds, cmd("Paragraph", ActionDeleteParaCont, ClassDelete))

	case KindVerseCont:
		cmds = append(cmds, cmd("Paragraph", ActionDeleteVerseCont, ClassDelete))

	case KindParlRef:
		cmds = append(cmds, cmd("Parallel Ref", ActionDeleteParlRef, ClassDelete))

	case KindVerse:
		if c.IsPsalms && item.VerseNum == 1 && !c.HasAscription {
			cmds = append(cmds, cmd("Ascription", ActionCreateAscription, ClassCreate))
		}
		if item.VerseNum == 1 && c.Num == 1 && !c.HasInTitle {
			cmds = append(cmds, cmd("Intro Title", ActionCreateIntroTitle, ClassCreate))
		}
		if item.VerseNum == 1 && c.Num == 1 && !c.HasTitle {
			cmds = append(cmds, cmd("Title", ActionCreateTitle, ClassCreate))
		}
		if ofst == 0 || c.Items[ofst-1].Kind != KindHeading {
			cmds = append(cmds, cmd("Heading Before", ActionCreateHeadingBefore, ClassCreate))
		}
		if ofst == 0 || c.Items[ofst-1].Kind != KindPara {
			cmds = append(cmds, cmd("Paragraph Before", ActionCreateParaBefore, ClassCreate))
		}
		if !item.IsBridge && nextKind != KindParaCont {
			cmds = append(cmds, cmd("Paragraph In", ActionCreateParaCont, ClassCreate))
		}
		cmds = append(cmds, cmd("Parallel Ref", ActionCreateParlRef, ClassCreate))
		// A bridge is possible while the verse (or the bridge tail) is
		// not the chapter's last verse, and only with an unbridged
		// ordinary verse following.
		var brgPossible bool
		if item.IsBridge {
			brgPossible = item.LastVsBridge < c.NumVerses
		} else {
			brgPossible = item.VerseNum < c.NumVerses
		}
		if brgPossible && !isLast && ofst+1 < len(c.Items) {
			nextVI := c.Items[ofst+1]
			if nextVI.Kind == KindVerse && !nextVI.IsBridge {
				cmds = append(cmds, cmd("Bridge Next Verse", ActionBridgeNext, ClassBridge))
			}
		}
		if item.IsBridge {
			cmds = append(cmds, cmd("Unbridge Last Verse", ActionUnbridgeLast, ClassUnbridge))
		}

	default:
		cmds = append(cmds, cmd("***MENU ERROR***", ActionNone, ClassCreate))
	}
	return cmds
}
