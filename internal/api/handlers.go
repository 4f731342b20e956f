package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/FocuswithJustin/KeyItBible/core/bible"
	"github.com/FocuswithJustin/KeyItBible/core/chapter"
	kiterr "github.com/FocuswithJustin/KeyItBible/core/errors"
	"github.com/FocuswithJustin/KeyItBible/core/sqlite"
	"github.com/FocuswithJustin/KeyItBible/internal/logging"
)

// itemJSON is the wire form of one publication item.
type itemJSON struct {
	ID           int    `json:"id"`
	VerseNum     int    `json:"verse_num"`
	Kind         string `json:"kind"`
	Order        int    `json:"order"`
	Text         string `json:"text"`
	IntSeq       int    `json:"int_seq,omitempty"`
	IsBridge     bool   `json:"is_bridge,omitempty"`
	LastVsBridge int    `json:"last_vs_bridge,omitempty"`
}

func toItemJSON(items []chapter.VerseItem) []itemJSON {
	out := make([]itemJSON, len(items))
	for i, it := range items {
		out[i] = itemJSON{
			ID: it.ID, VerseNum: it.VerseNum, Kind: string(it.Kind),
			Order: it.Order, Text: it.Text, IntSeq: it.IntSeq,
			IsBridge: it.IsBridge, LastVsBridge: it.LastVsBridge,
		}
	}
	return out
}

// bookJSON is the wire form of one book record.
type bookJSON struct {
	ID              int    `json:"id"`
	Code            string `json:"code"`
	Name            string `json:"name"`
	ChaptersCreated bool   `json:"chapters_created"`
	NumChapters     int    `json:"num_chapters"`
	CurrChapterNum  int    `json:"curr_chapter_num,omitempty"`
}

func toBookJSON(b bible.BookRecord) bookJSON {
	return bookJSON{
		ID: b.ID, Code: b.Code, Name: b.Name,
		ChaptersCreated: b.ChaptersCreated, NumChapters: b.NumChapters,
		CurrChapterNum: b.CurrChapterNum,
	}
}

// chapterJSON is the wire form of one chapter record.
type chapterJSON struct {
	ID        int `json:"id"`
	Num       int `json:"num"`
	NumVerses int `json:"num_verses"`
	NumItems  int `json:"num_items"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logging.Error("failed to encode response", "error", err)
	}
}

// writeError maps core errors onto HTTP statuses.
func writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	var nf *kiterr.NotFoundError
	switch {
	case errors.As(err, &nf), errors.Is(err, kiterr.ErrItemNotFound):
		status = http.StatusNotFound
	case errors.Is(err, kiterr.ErrInvalidInput):
		status = http.StatusBadRequest
	}
	writeJSON(w, status, map[string]string{"error": err.Error()})
}

func pathInt(r *http.Request, name string) (int, error) {
	n, err := strconv.Atoi(r.PathValue(name))
	if err != nil {
		return 0, kiterr.Annotate("bad "+name, kiterr.ErrInvalidInput)
	}
	return n, nil
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()

	resp := map[string]any{
		"session_id": s.sessionID,
		"bible":      s.session.Bible.Name,
		"sqlite":     sqlite.GetInfo(),
	}
	if b := s.session.Book; b != nil {
		resp["book_id"] = b.Record.ID
		resp["book_code"] = b.Record.Code
		if b.Chapter != nil {
			resp["chapter_num"] = b.Chapter.Num
			resp["curr_item_id"] = b.Chapter.CurrItemID
		}
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleBooks(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()

	books := s.session.Books()
	out := make([]bookJSON, len(books))
	for i, b := range books {
		out[i] = toBookJSON(b)
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleOpenBook(w http.ResponseWriter, r *http.Request) {
	id, err := pathInt(r, "id")
	if err != nil {
		writeError(w, err)
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	b, err := s.session.OpenBook(id)
	if err != nil {
		writeError(w, err)
		return
	}

	chapters := make([]chapterJSON, len(b.Chapters))
	for i, c := range b.Chapters {
		chapters[i] = chapterJSON{ID: c.ID, Num: c.Num, NumVerses: c.NumVerses, NumItems: c.NumItems}
	}
	s.hub.Broadcast(EditEvent{Type: "book", BookID: id})
	writeJSON(w, http.StatusOK, map[string]any{
		"book":     toBookJSON(b.Record),
		"chapters": chapters,
	})
}

// currentBook returns the open book, or a not-found error to report.
func (s *Server) currentBook() (*bible.Book, error) {
	if s.session.Book == nil {
		return nil, &kiterr.NotFoundError{Resource: "open book", ID: 0}
	}
	return s.session.Book, nil
}

// currentChapter returns the open chapter, or a not-found error.
func (s *Server) currentChapter() (*chapter.Chapter, error) {
	b, err := s.currentBook()
	if err != nil {
		return nil, err
	}
	if b.Chapter == nil {
		return nil, &kiterr.NotFoundError{Resource: "open chapter", ID: 0}
	}
	return b.Chapter, nil
}

func (s *Server) handleOpenChapter(w http.ResponseWriter, r *http.Request) {
	num, err := pathInt(r, "num")
	if err != nil {
		writeError(w, err)
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	b, err := s.currentBook()
	if err != nil {
		writeError(w, err)
		return
	}
	ch, err := b.OpenChapter(num)
	if err != nil {
		writeError(w, err)
		return
	}

	s.hub.Broadcast(EditEvent{Type: "chapter", BookID: b.Record.ID, ChapterID: ch.ID})
	writeJSON(w, http.StatusOK, map[string]any{
		"chapter": chapterJSON{ID: ch.ID, Num: ch.Num, NumVerses: ch.NumVerses, NumItems: ch.NumItems},
		"items":   toItemJSON(ch.Items),
	})
}

func (s *Server) handleItems(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	ch, err := s.currentChapter()
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"items":        toItemJSON(ch.Items),
		"curr_item_id": ch.CurrItemID,
	})
}

func (s *Server) handleSelectItem(w http.ResponseWriter, r *http.Request) {
	id, err := pathInt(r, "id")
	if err != nil {
		writeError(w, err)
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	ch, err := s.currentChapter()
	if err != nil {
		writeError(w, err)
		return
	}
	if err := ch.SelectItem(id); err != nil {
		writeError(w, err)
		return
	}
	cmds, err := ch.DeriveCommands(id)
	if err != nil {
		writeError(w, err)
		return
	}

	s.hub.Broadcast(EditEvent{Type: "select", ChapterID: ch.ID, ItemID: id})
	writeJSON(w, http.StatusOK, map[string]any{"commands": cmds})
}

func (s *Server) handleCommands(w http.ResponseWriter, r *http.Request) {
	id, err := pathInt(r, "id")
	if err != nil {
		writeError(w, err)
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	ch, err := s.currentChapter()
	if err != nil {
		writeError(w, err)
		return
	}
	cmds, err := ch.DeriveCommands(id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"commands": cmds})
}

func (s *Server) handleItemText(w http.ResponseWriter, r *http.Request) {
	id, err := pathInt(r, "id")
	if err != nil {
		writeError(w, err)
		return
	}
	var body struct {
		Text string `json:"text"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, kiterr.Annotate("decode body", kiterr.ErrInvalidInput))
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	ch, err := s.currentChapter()
	if err != nil {
		writeError(w, err)
		return
	}
	if err := ch.SaveItemText(id, body.Text); err != nil {
		writeError(w, err)
		return
	}

	s.hub.Broadcast(EditEvent{Type: "text", ChapterID: ch.ID, ItemID: id})
	writeJSON(w, http.StatusOK, map[string]string{"status": "saved"})
}

func (s *Server) handleAction(w http.ResponseWriter, r *http.Request) {
	id, err := pathInt(r, "id")
	if err != nil {
		writeError(w, err)
		return
	}
	var body struct {
		Action string `json:"action"`
		Cursor int    `json:"cursor"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, kiterr.Annotate("decode body", kiterr.ErrInvalidInput))
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	ch, err := s.currentChapter()
	if err != nil {
		writeError(w, err)
		return
	}
	// The action applies to the addressed item, so it becomes current
	// first; mirrors tapping a row's menu in the original editors.
	if err := ch.SelectItem(id); err != nil {
		writeError(w, err)
		return
	}
	act := chapter.Action(body.Action)
	if err := ch.Apply(act, body.Cursor); err != nil {
		writeError(w, err)
		return
	}
	logging.EditAction(string(act), ch.ID, id)

	s.hub.Broadcast(EditEvent{Type: "action", Action: string(act), ChapterID: ch.ID, ItemID: id})
	writeJSON(w, http.StatusOK, map[string]any{
		"items":        toItemJSON(ch.Items),
		"curr_item_id": ch.CurrItemID,
	})
}

func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	id, err := pathInt(r, "id")
	if err != nil {
		writeError(w, err)
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	b, err := s.session.OpenBook(id)
	if err != nil {
		writeError(w, err)
		return
	}
	text, err := b.ExportUSFM()
	if err != nil {
		writeError(w, err)
		return
	}
	// Cache the rendition on the book record for later bundle export.
	if err := s.db.UpdateBookUSFM(b.Record.BibleID, b.Record.ID, text); err != nil {
		writeError(w, err)
		return
	}

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Write([]byte(text))
}
