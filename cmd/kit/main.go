// Command kit is the Key It Bible drafting tool. It manages the draft
// database, runs one-shot edit operations against a chapter, imports and
// exports USFM, and serves the HTTP/WebSocket editing API.
package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/alecthomas/kong"
	"github.com/pmezard/go-difflib/difflib"

	"github.com/FocuswithJustin/KeyItBible/core/bible"
	"github.com/FocuswithJustin/KeyItBible/core/chapter"
	"github.com/FocuswithJustin/KeyItBible/core/usfm"
	"github.com/FocuswithJustin/KeyItBible/core/usx"
	"github.com/FocuswithJustin/KeyItBible/internal/api"
	"github.com/FocuswithJustin/KeyItBible/internal/archive"
	"github.com/FocuswithJustin/KeyItBible/internal/logging"
	"github.com/FocuswithJustin/KeyItBible/internal/store"
	"github.com/FocuswithJustin/KeyItBible/internal/validation"
)

const version = "1.0.0"

// CLI defines the command-line interface for kit.
var CLI struct {
	// Global flags
	DB    string `help:"SQLite database file" env:"KIT_DB" default:"kit.db" type:"path"`
	Bible string `help:"Bible name, recorded when the database is first created" default:"New Translation"`
	Debug bool   `help:"Enable debug logging"`

	Setup    SetupCmd    `cmd:"" help:"Create or open the draft database and report its state"`
	Books    BooksCmd    `cmd:"" help:"List the book records"`
	Chapters ChaptersCmd `cmd:"" help:"List the chapter records of a book"`
	Edit     EditGroup   `cmd:"" help:"One-shot edit operations (show, menu, apply, text)"`
	Export   ExportCmd   `cmd:"" help:"Export a book as USFM, or every drafted book as a bundle"`
	Import   ImportCmd   `cmd:"" help:"Seed books from a USFM file, a USX file, or a bundle"`
	Serve    ServeCmd    `cmd:"" help:"Start the HTTP/WebSocket edit server"`
	Version  VersionCmd  `cmd:"" help:"Print version information"`
}

// EditGroup contains the one-shot chapter edit operations. Each opens
// the addressed book and chapter, performs its operation, and exits;
// selection state persists in the database between invocations.
type EditGroup struct {
	Show  ShowCmd  `cmd:"" help:"Print a chapter's items"`
	Menu  MenuCmd  `cmd:"" help:"Show the command menu for an item"`
	Apply ApplyCmd `cmd:"" help:"Apply a structural action to an item"`
	Text  TextCmd  `cmd:"" help:"Replace an item's working text"`
}

// openSession opens the store and the editing session. The caller
// closes the returned store.
func openSession() (*store.DB, *bible.Session, error) {
	db, err := store.Open(CLI.DB)
	if err != nil {
		return nil, nil, fmt.Errorf("open store: %w", err)
	}
	session, err := bible.Open(db, CLI.Bible)
	if err != nil {
		db.Close()
		return nil, nil, fmt.Errorf("open session: %w", err)
	}
	return db, session, nil
}

// openChapter opens book bookID at chapter chNum.
func openChapter(session *bible.Session, bookID, chNum int) (*chapter.Chapter, error) {
	b, err := session.OpenBook(bookID)
	if err != nil {
		return nil, err
	}
	return b.OpenChapter(chNum)
}

// printItems renders a chapter's item list, marking the current item.
func printItems(ch *chapter.Chapter) {
	for _, it := range ch.Items {
		marker := " "
		if it.ID == ch.CurrItemID {
			marker = ">"
		}
		label := string(it.Kind)
		if it.Kind == chapter.KindVerse && it.IsBridge {
			label = fmt.Sprintf("Verse %d-%d", it.VerseNum, it.LastVsBridge)
		} else if it.VerseNum > 0 {
			label = fmt.Sprintf("%s %d", it.Kind, it.VerseNum)
		}
		fmt.Printf("%s %5d  %-12s %s\n", marker, it.ID, label, it.Text)
	}
}

// SetupCmd creates or opens the database and reports its state.
type SetupCmd struct{}

func (c *SetupCmd) Run() error {
	db, session, err := openSession()
	if err != nil {
		return err
	}
	defer db.Close()

	fmt.Printf("Database: %s\n", CLI.DB)
	fmt.Printf("  Bible: %s\n", session.Bible.Name)
	fmt.Printf("  Books: %d\n", len(session.Books()))
	if b := session.Book; b != nil {
		fmt.Printf("  Current book: %s (%s)\n", b.Record.Name, b.Record.Code)
		if b.Chapter != nil {
			fmt.Printf("  Current chapter: %d\n", b.Chapter.Num)
		}
	}
	return nil
}

// BooksCmd lists the book records.
type BooksCmd struct {
	Drafted bool `help:"Only show books whose chapter records exist"`
}

func (c *BooksCmd) Run() error {
	db, session, err := openSession()
	if err != nil {
		return err
	}
	defer db.Close()

	for _, b := range session.Books() {
		if c.Drafted && !b.ChaptersCreated {
			continue
		}
		state := ""
		if b.ChaptersCreated {
			state = " [drafting]"
		}
		fmt.Printf("  %2d  %s  %-20s %3d chapters%s\n",
			b.ID, b.Code, b.Name, b.NumChapters, state)
	}
	return nil
}

// ChaptersCmd lists the chapter records of one book.
type ChaptersCmd struct {
	Book int `arg:"" help:"Book ID (1-39 OT, 41-67 NT)"`
}

func (c *ChaptersCmd) Run() error {
	db, session, err := openSession()
	if err != nil {
		return err
	}
	defer db.Close()

	b, err := session.OpenBook(c.Book)
	if err != nil {
		return err
	}
	fmt.Printf("%s (%s)\n", b.Record.Name, b.Record.Code)
	for _, rec := range b.Chapters {
		state := ""
		if rec.ItemsCreated {
			state = fmt.Sprintf("  %d items", rec.NumItems)
		}
		fmt.Printf("  chapter %3d: %3d verses%s\n", rec.Num, rec.NumVerses, state)
	}
	return nil
}

// ShowCmd prints a chapter's items.
type ShowCmd struct {
	Book    int `arg:"" help:"Book ID"`
	Chapter int `arg:"" help:"Chapter number"`
}

func (c *ShowCmd) Run() error {
	db, session, err := openSession()
	if err != nil {
		return err
	}
	defer db.Close()

	ch, err := openChapter(session, c.Book, c.Chapter)
	if err != nil {
		return err
	}
	printItems(ch)
	return nil
}

// MenuCmd shows the command menu for one item.
type MenuCmd struct {
	Book    int `arg:"" help:"Book ID"`
	Chapter int `arg:"" help:"Chapter number"`
	Item    int `arg:"" help:"Item ID (see edit show)"`
}

func (c *MenuCmd) Run() error {
	db, session, err := openSession()
	if err != nil {
		return err
	}
	defer db.Close()

	ch, err := openChapter(session, c.Book, c.Chapter)
	if err != nil {
		return err
	}
	if err := ch.SelectItem(c.Item); err != nil {
		return err
	}
	cmds, err := ch.DeriveCommands(c.Item)
	if err != nil {
		return err
	}
	if len(cmds) == 0 {
		fmt.Println("No commands for this item.")
		return nil
	}
	for _, cmd := range cmds {
		fmt.Printf("  %-14s %s\n", cmd.Action, cmd.Label)
	}
	return nil
}

// ApplyCmd applies a structural action to one item.
type ApplyCmd struct {
	Book    int    `arg:"" help:"Book ID"`
	Chapter int    `arg:"" help:"Chapter number"`
	Item    int    `arg:"" help:"Item ID"`
	Action  string `arg:"" help:"Action name, as listed by edit menu (e.g. crParaBef, brid)"`
	Cursor  int    `help:"Text offset for split actions" default:"0"`
}

func (c *ApplyCmd) Run() error {
	db, session, err := openSession()
	if err != nil {
		return err
	}
	defer db.Close()

	ch, err := openChapter(session, c.Book, c.Chapter)
	if err != nil {
		return err
	}
	if err := ch.SelectItem(c.Item); err != nil {
		return err
	}
	if err := ch.Apply(chapter.Action(c.Action), c.Cursor); err != nil {
		return err
	}
	logging.EditAction(c.Action, ch.ID, c.Item)
	printItems(ch)
	return nil
}

// TextCmd replaces an item's working text.
type TextCmd struct {
	Book    int    `arg:"" help:"Book ID"`
	Chapter int    `arg:"" help:"Chapter number"`
	Item    int    `arg:"" help:"Item ID"`
	Text    string `arg:"" help:"New text"`
}

func (c *TextCmd) Run() error {
	db, session, err := openSession()
	if err != nil {
		return err
	}
	defer db.Close()

	ch, err := openChapter(session, c.Book, c.Chapter)
	if err != nil {
		return err
	}
	if err := ch.SaveItemText(c.Item, c.Text); err != nil {
		return err
	}
	fmt.Printf("Saved item %d.\n", c.Item)
	return nil
}

// ExportCmd exports a book as USFM, or every drafted book as a bundle.
type ExportCmd struct {
	Book   int    `arg:"" optional:"" help:"Book ID (omit with --bundle)"`
	Out    string `help:"Write to a file instead of stdout" type:"path"`
	Diff   bool   `help:"Show a unified diff against the last export instead of the text"`
	Bundle string `help:"Write every drafted book into a .tar.xz or .tar.gz bundle" type:"path"`
}

func (c *ExportCmd) Run() error {
	for _, p := range []string{c.Out, c.Bundle} {
		if p != "" {
			if err := validation.ValidatePath(p); err != nil {
				return err
			}
		}
	}
	db, session, err := openSession()
	if err != nil {
		return err
	}
	defer db.Close()

	if c.Bundle != "" {
		return exportBundle(db, session, c.Bundle)
	}
	if c.Book == 0 {
		return fmt.Errorf("a book ID is required unless --bundle is given")
	}

	b, err := session.OpenBook(c.Book)
	if err != nil {
		return err
	}
	text, err := b.ExportUSFM()
	if err != nil {
		return err
	}

	if c.Diff {
		prev, err := db.ReadBookUSFM(b.Record.BibleID, b.Record.ID)
		if err != nil {
			return err
		}
		return printDiff(b.Record.Code, prev, text)
	}

	// Cache the rendition so the next --diff has a baseline.
	if err := db.UpdateBookUSFM(b.Record.BibleID, b.Record.ID, text); err != nil {
		return err
	}
	if c.Out != "" {
		if err := os.WriteFile(c.Out, []byte(text), 0644); err != nil {
			return fmt.Errorf("write %s: %w", c.Out, err)
		}
		fmt.Printf("Exported %s to %s (%d bytes)\n", b.Record.Code, c.Out, len(text))
		return nil
	}
	fmt.Print(text)
	if !strings.HasSuffix(text, "\n") {
		fmt.Println()
	}
	return nil
}

// exportBundle writes every book whose drafting has started into an
// archive bundle with a checksummed manifest.
func exportBundle(db *store.DB, session *bible.Session, path string) error {
	if !archive.IsSupportedFormat(path) {
		return fmt.Errorf("unsupported bundle format: %s (want .tar.xz or .tar.gz)", path)
	}

	var books []archive.BookUSFM
	for _, rec := range session.Books() {
		if !rec.ChaptersCreated {
			continue
		}
		b, err := session.OpenBook(rec.ID)
		if err != nil {
			return err
		}
		text, err := b.ExportUSFM()
		if err != nil {
			return err
		}
		if err := db.UpdateBookUSFM(b.Record.BibleID, b.Record.ID, text); err != nil {
			return err
		}
		books = append(books, archive.BookUSFM{
			ID:       rec.ID,
			Code:     rec.Code,
			Name:     rec.Name,
			Chapters: rec.NumChapters,
			Text:     text,
		})
	}
	if len(books) == 0 {
		return fmt.Errorf("no drafted books to bundle")
	}

	if err := archive.WriteBundle(path, session.Bible.Name, books); err != nil {
		return err
	}
	fmt.Printf("Bundle created: %s (%d books)\n", path, len(books))
	return nil
}

// printDiff renders a unified diff between the cached and the current
// rendition of one book.
func printDiff(code, prev, curr string) error {
	if prev == curr {
		fmt.Println("No changes since the last export.")
		return nil
	}
	ud := difflib.UnifiedDiff{
		A:        difflib.SplitLines(prev),
		B:        difflib.SplitLines(curr),
		FromFile: code + ".usfm (last export)",
		ToFile:   code + ".usfm (current)",
		Context:  3,
	}
	text, err := difflib.GetUnifiedDiffString(ud)
	if err != nil {
		return fmt.Errorf("diff: %w", err)
	}
	fmt.Print(text)
	return nil
}

// ImportCmd seeds books from a USFM file, a USX file, or a bundle.
type ImportCmd struct {
	Path string `arg:"" help:"Path to a .usfm/.sfm, .usx, or bundle file" type:"existingfile"`
}

func (c *ImportCmd) Run() error {
	kind, err := checkImportFile(c.Path)
	if err != nil {
		return err
	}

	db, session, err := openSession()
	if err != nil {
		return err
	}
	defer db.Close()

	var parsed *usfm.ParsedBook
	switch kind {
	case validation.FileTypeTarXZ, validation.FileTypeTarGZ:
		return importBundle(session, c.Path)
	case validation.FileTypeUSX:
		f, err := os.Open(c.Path)
		if err != nil {
			return err
		}
		defer f.Close()
		parsed, err = usx.ParseBook(f)
		if err != nil {
			return err
		}
	default:
		data, err := os.ReadFile(c.Path)
		if err != nil {
			return err
		}
		parsed, err = usfm.ParseBook(string(data))
		if err != nil {
			return err
		}
	}

	if err := session.ImportBook(parsed); err != nil {
		return err
	}
	fmt.Printf("Imported %s (%d chapters)\n", parsed.Code, len(parsed.Chapters))
	return nil
}

// checkImportFile validates the path and verifies the file's content
// matches its extension before anything is parsed.
func checkImportFile(path string) (validation.FileType, error) {
	if err := validation.ValidatePath(path); err != nil {
		return validation.FileTypeUnknown, err
	}
	f, err := os.Open(path)
	if err != nil {
		return validation.FileTypeUnknown, err
	}
	defer f.Close()
	kind, err := validation.DetectImportType(f, path)
	if err != nil {
		return validation.FileTypeUnknown, err
	}
	if kind == validation.FileTypeSQLite {
		return validation.FileTypeUnknown, fmt.Errorf("%s is a database, not an importable draft", path)
	}
	return kind, nil
}

// importBundle imports every book of a bundle, in manifest order.
func importBundle(session *bible.Session, path string) error {
	bundle, err := archive.ReadBundle(path)
	if err != nil {
		return err
	}

	for _, entry := range bundle.Manifest.Books {
		parsed, err := usfm.ParseBook(bundle.Texts[entry.Code])
		if err != nil {
			return fmt.Errorf("parse %s: %w", entry.Code, err)
		}
		if err := session.ImportBook(parsed); err != nil {
			return fmt.Errorf("import %s: %w", entry.Code, err)
		}
		fmt.Printf("Imported %s (%d chapters)\n", entry.Code, len(parsed.Chapters))
	}
	fmt.Printf("Bundle imported: %d books from %s\n", len(bundle.Manifest.Books), path)
	return nil
}

// ServeCmd starts the HTTP/WebSocket edit server.
type ServeCmd struct {
	Addr string `help:"Listen address" default:"127.0.0.1:8710"`
}

func (c *ServeCmd) Run() error {
	logging.InitLogger(logOptions(true))

	srv, err := api.NewServer(api.Config{
		Addr:      c.Addr,
		DBPath:    CLI.DB,
		BibleName: CLI.Bible,
	})
	if err != nil {
		return err
	}
	defer srv.Close()
	return srv.Start()
}

// VersionCmd prints version information.
type VersionCmd struct{}

func (c *VersionCmd) Run() error {
	fmt.Printf("kit version %s\n", version)
	return nil
}

// logOptions picks the level and format for one invocation. Interactive
// commands log text and stay quiet; the server logs JSON for machine
// collection.
func logOptions(serve bool) (logging.Level, logging.Format) {
	format := logging.FormatText
	level := logging.LevelWarn
	if serve {
		format = logging.FormatJSON
		level = logging.LevelInfo
	}
	if CLI.Debug {
		level = logging.LevelDebug
	}
	return level, format
}

func main() {
	ctx := kong.Parse(&CLI,
		kong.Name("kit"),
		kong.Description("Key It Bible - structured Bible draft editor"),
		kong.UsageOnError(),
		kong.ConfigureHelp(kong.HelpOptions{
			Compact: true,
		}),
	)

	logging.InitLogger(logOptions(false))

	err := ctx.Run(ctx)
	ctx.FatalIfErrorf(err)
}
