// Package validation checks user-supplied paths and import files before
// the CLI acts on them: length and character limits on paths, and magic
// byte inspection so a file's content matches what its extension claims.
package validation

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"unicode"
)

// MaxPathLength is the maximum allowed path length.
const MaxPathLength = 4096

// Common validation errors.
var (
	ErrEmptyPath        = errors.New("path cannot be empty")
	ErrPathTooLong      = errors.New("path too long")
	ErrInvalidCharacter = errors.New("invalid character in path")
	ErrTypeMismatch     = errors.New("file content does not match extension")
)

// ValidatePath rejects empty, oversized, and control-character paths.
func ValidatePath(path string) error {
	if path == "" {
		return ErrEmptyPath
	}
	if len(path) > MaxPathLength {
		return ErrPathTooLong
	}
	if strings.Contains(path, "\x00") {
		return fmt.Errorf("%w: null byte not allowed", ErrInvalidCharacter)
	}
	for _, r := range path {
		if unicode.IsControl(r) {
			return fmt.Errorf("%w: control character not allowed", ErrInvalidCharacter)
		}
	}
	return nil
}

// FileType classifies the inputs the importer accepts.
type FileType string

const (
	FileTypeUSFM    FileType = "usfm"
	FileTypeUSX     FileType = "usx"
	FileTypeTarXZ   FileType = "tar.xz"
	FileTypeTarGZ   FileType = "tar.gz"
	FileTypeSQLite  FileType = "sqlite"
	FileTypeUnknown FileType = "unknown"
)

// magicBytes holds the signatures of the binary formats the importer
// can receive, or be handed by mistake.
var magicBytes = []struct {
	fileType FileType
	magic    []byte
}{
	{FileTypeTarXZ, []byte{0xfd, 0x37, 0x7a, 0x58, 0x5a, 0x00}},
	{FileTypeTarGZ, []byte{0x1f, 0x8b}},
	{FileTypeSQLite, []byte("SQLite format 3")},
}

// DetectImportType reads a file's header and verifies it against the
// type its extension claims. USFM and USX have no magic bytes, so those
// only need to look like text.
func DetectImportType(r io.Reader, filename string) (FileType, error) {
	buf := make([]byte, 512)
	n, err := io.ReadFull(r, buf)
	if err != nil && err != io.ErrUnexpectedEOF && err != io.EOF {
		return FileTypeUnknown, fmt.Errorf("read file header: %w", err)
	}
	buf = buf[:n]

	detected := detectFromMagic(buf)
	expected := detectFromExtension(filename)

	switch expected {
	case FileTypeTarXZ, FileTypeTarGZ, FileTypeSQLite:
		if detected != expected {
			return FileTypeUnknown, fmt.Errorf("%w: %s claims %s", ErrTypeMismatch, filename, expected)
		}
		return expected, nil
	case FileTypeUSFM, FileTypeUSX:
		if detected != FileTypeUnknown || !isLikelyText(buf) {
			return FileTypeUnknown, fmt.Errorf("%w: %s is not a text file", ErrTypeMismatch, filename)
		}
		return expected, nil
	}
	return FileTypeUnknown, fmt.Errorf("%w: unrecognized extension on %s", ErrTypeMismatch, filename)
}

func detectFromMagic(buf []byte) FileType {
	for _, sig := range magicBytes {
		if len(buf) >= len(sig.magic) && bytes.Equal(buf[:len(sig.magic)], sig.magic) {
			return sig.fileType
		}
	}
	return FileTypeUnknown
}

func detectFromExtension(filename string) FileType {
	lower := strings.ToLower(filename)
	if strings.HasSuffix(lower, ".tar.xz") {
		return FileTypeTarXZ
	}
	if strings.HasSuffix(lower, ".tar.gz") || strings.HasSuffix(lower, ".tgz") {
		return FileTypeTarGZ
	}
	switch filepath.Ext(lower) {
	case ".usfm", ".sfm", ".txt":
		return FileTypeUSFM
	case ".usx":
		return FileTypeUSX
	case ".db", ".sqlite", ".sqlite3":
		return FileTypeSQLite
	}
	return FileTypeUnknown
}

// isLikelyText reports whether the buffer looks like UTF-8/ASCII text.
func isLikelyText(buf []byte) bool {
	if len(buf) == 0 {
		return true // an empty file is an empty text file
	}
	if bytes.IndexByte(buf, 0) != -1 {
		return false
	}
	printable, control := 0, 0
	for _, b := range buf {
		switch {
		case b >= 0x20 && b <= 0x7e, b == '\t', b == '\n', b == '\r':
			printable++
		case b < 0x20:
			control++
		}
	}
	return float64(printable)/float64(printable+control+1) > 0.9
}
