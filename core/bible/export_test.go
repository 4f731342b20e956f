package bible

import (
	"strings"
	"testing"

	"github.com/FocuswithJustin/KeyItBible/core/chapter"
	"github.com/FocuswithJustin/KeyItBible/core/usfm"
)

func openRuth(t *testing.T, st *fakeStore) (*Session, *Book) {
	t.Helper()
	s, err := Open(st, "Trial")
	if err != nil {
		t.Fatal(err)
	}
	b, err := s.OpenBook(8)
	if err != nil {
		t.Fatal(err)
	}
	return s, b
}

func TestExportUSFM(t *testing.T) {
	st := newFakeStore()
	_, b := openRuth(t, st)
	ch, err := b.OpenChapter(1)
	if err != nil {
		t.Fatal(err)
	}
	if err := ch.SaveItemText(ch.Items[0].ID, "In the days when the judges ruled"); err != nil {
		t.Fatal(err)
	}

	text, err := b.ExportUSFM()
	if err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(text, "\\id RUT\n\\c 1\n\\v 1 In the days when the judges ruled") {
		t.Errorf("export starts with %q", text[:60])
	}
	// Chapter 1 was opened, so all 22 of its verses export; chapter 3
	// never was, so it exports as a bare \c line.
	if !strings.Contains(text, "\\v 22 \n\\c 2") {
		t.Error("chapter 1 should export all 22 verses before \\c 2")
	}
	if !strings.Contains(text, "\\c 3\n\\c 4") {
		t.Error("unopened chapters should export as bare \\c lines")
	}
}

func TestExportSelectionUndisturbed(t *testing.T) {
	st := newFakeStore()
	_, b := openRuth(t, st)
	ch, err := b.OpenChapter(2)
	if err != nil {
		t.Fatal(err)
	}
	verse3 := ch.Items[2]
	if err := ch.SelectItem(verse3.ID); err != nil {
		t.Fatal(err)
	}

	if _, err := b.ExportUSFM(); err != nil {
		t.Fatal(err)
	}
	cur, ok := ch.CurrentItem()
	if !ok || cur.ID != verse3.ID {
		t.Errorf("current item = %+v, want verse 3", cur)
	}
}

func TestImportBookReplacesItems(t *testing.T) {
	st := newFakeStore()
	s, _ := openRuth(t, st)

	src := strings.Join([]string{
		`\id RUT`,
		`\c 1`,
		`\s Naomi loses her family`,
		`\v 1 In the days when the judges ruled`,
		`\v 2-3 Elimelech and his sons`,
	}, "\n")
	parsed, err := usfm.ParseBook(src)
	if err != nil {
		t.Fatal(err)
	}
	if err := s.ImportBook(parsed); err != nil {
		t.Fatal(err)
	}

	ch, err := s.Book.OpenChapter(1)
	if err != nil {
		t.Fatal(err)
	}
	if len(ch.Items) != 3 {
		t.Fatalf("items after import = %d, want 3", len(ch.Items))
	}
	if ch.Items[0].Kind != chapter.KindHeading {
		t.Errorf("first item = %s, want Heading", ch.Items[0].Kind)
	}
	bridge := ch.Items[2]
	if !bridge.IsBridge || bridge.LastVsBridge != 3 {
		t.Errorf("bridge = %+v", bridge)
	}

	// Imported bridges can still be unbridged.
	if err := ch.SelectItem(bridge.ID); err != nil {
		t.Fatal(err)
	}
	if err := ch.Apply(chapter.ActionUnbridgeLast, 0); err != nil {
		t.Fatal(err)
	}
	if len(ch.Items) != 4 {
		t.Errorf("items after unbridge = %d, want 4", len(ch.Items))
	}

	// Untouched chapters keep their catalogue-created verse slots.
	ch2, err := s.Book.OpenChapter(2)
	if err != nil {
		t.Fatal(err)
	}
	if len(ch2.Items) != 23 {
		t.Errorf("chapter 2 items = %d, want 23", len(ch2.Items))
	}
}

func TestImportBookIsRepeatable(t *testing.T) {
	st := newFakeStore()
	s, _ := openRuth(t, st)
	parsed, err := usfm.ParseBook("\\id RUT\n\\c 1\n\\v 1 one\n\\v 2 two")
	if err != nil {
		t.Fatal(err)
	}
	if err := s.ImportBook(parsed); err != nil {
		t.Fatal(err)
	}
	if err := s.ImportBook(parsed); err != nil {
		t.Fatal(err)
	}
	ch, err := s.Book.OpenChapter(1)
	if err != nil {
		t.Fatal(err)
	}
	if len(ch.Items) != 2 {
		t.Errorf("items after double import = %d, want 2", len(ch.Items))
	}
}

func TestImportBookUnknownCodeAndChapter(t *testing.T) {
	st := newFakeStore()
	s, _ := openRuth(t, st)

	parsed, err := usfm.ParseBook("\\id XXX\n\\c 1\n\\v 1 one")
	if err != nil {
		t.Fatal(err)
	}
	if err := s.ImportBook(parsed); err == nil {
		t.Error("expected error for unknown book code")
	}

	parsed, err = usfm.ParseBook("\\id RUT\n\\c 9\n\\v 1 one")
	if err != nil {
		t.Fatal(err)
	}
	if err := s.ImportBook(parsed); err == nil {
		t.Error("expected error for chapter past the end of Ruth")
	}
}
