// Package api serves the editing session over HTTP: REST endpoints for
// books, chapters, items, command menus and structural edits, plus a
// WebSocket feed of edit events. One server owns one session; handlers
// serialize on a mutex because the editing core is single-threaded.
package api

import (
	"fmt"
	"net/http"
	"sync"

	"github.com/google/uuid"

	"github.com/FocuswithJustin/KeyItBible/core/bible"
	"github.com/FocuswithJustin/KeyItBible/internal/logging"
	"github.com/FocuswithJustin/KeyItBible/internal/store"
)

// Config holds the server settings.
type Config struct {
	// Addr is the listen address, e.g. "127.0.0.1:8710".
	Addr string
	// DBPath is the SQLite database file.
	DBPath string
	// BibleName seeds the Bible record on first launch.
	BibleName string
}

// Server is the HTTP face of one editing session.
type Server struct {
	cfg Config

	// mu serializes all access to the session; the editing core keeps a
	// single live chapter and is not safe for concurrent use.
	mu      sync.Mutex
	db      *store.DB
	session *bible.Session
	hub     *Hub

	// sessionID identifies this server run in responses and logs.
	sessionID string
}

// NewServer opens the database and the editing session and prepares
// the hub. Call Start to listen, or Routes to mount the handler in a
// test server.
func NewServer(cfg Config) (*Server, error) {
	db, err := store.Open(cfg.DBPath)
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}
	session, err := bible.Open(db, cfg.BibleName)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("open session: %w", err)
	}
	s := &Server{
		cfg:       cfg,
		db:        db,
		session:   session,
		hub:       NewHub(),
		sessionID: uuid.NewString(),
	}
	go s.hub.Run()
	return s, nil
}

// Close releases the database.
func (s *Server) Close() error {
	return s.db.Close()
}

// Routes builds the handler tree with request-ID and logging
// middleware applied.
func (s *Server) Routes() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /api/status", s.handleStatus)
	mux.HandleFunc("GET /api/books", s.handleBooks)
	mux.HandleFunc("POST /api/books/{id}/open", s.handleOpenBook)
	mux.HandleFunc("POST /api/chapters/{num}/open", s.handleOpenChapter)
	mux.HandleFunc("GET /api/items", s.handleItems)
	mux.HandleFunc("POST /api/items/{id}/select", s.handleSelectItem)
	mux.HandleFunc("GET /api/items/{id}/commands", s.handleCommands)
	mux.HandleFunc("PUT /api/items/{id}/text", s.handleItemText)
	mux.HandleFunc("POST /api/items/{id}/actions", s.handleAction)
	mux.HandleFunc("GET /api/export/{id}", s.handleExport)
	mux.HandleFunc("GET /ws", s.hub.ServeWS)

	return logging.CombinedMiddleware(mux)
}

// Start listens on the configured address until the listener fails.
func (s *Server) Start() error {
	logging.Info("api server starting",
		"addr", s.cfg.Addr, "db", s.cfg.DBPath, "session_id", s.sessionID)
	return http.ListenAndServe(s.cfg.Addr, s.Routes())
}
