// Package archive reads and writes USFM export bundles: tar.xz (or
// tar.gz) archives holding one .usfm file per exported book plus a
// manifest.json with BLAKE3 checksums, so a bundle can be verified
// before it is re-imported or handed to a typesetter.
package archive

import (
	"strings"
	"time"
)

// ManifestName is the manifest's path inside a bundle.
const ManifestName = "manifest.json"

// ManifestVersion is written into new bundles. Readers reject
// manifests from a later version.
const ManifestVersion = 1

// Manifest describes a bundle's contents.
type Manifest struct {
	Version   int         `json:"version"`
	Bible     string      `json:"bible"`
	CreatedAt time.Time   `json:"created_at"`
	Books     []BookEntry `json:"books"`
}

// BookEntry is one exported book in the manifest.
type BookEntry struct {
	ID       int    `json:"id"`   // catalogue book ID
	Code     string `json:"code"` // USFM code, also the file stem
	Name     string `json:"name"`
	Chapters int    `json:"chapters"`
	File     string `json:"file"`     // path inside the bundle
	Checksum string `json:"checksum"` // BLAKE3 of the file content
}

// BookUSFM is one book's rendition handed to the writer.
type BookUSFM struct {
	ID       int
	Code     string
	Name     string
	Chapters int
	Text     string
}

// bookPath returns the bundle-internal path of a book's USFM file.
func bookPath(code string) string {
	return "usfm/" + code + ".usfm"
}

// DetectFormat detects the archive format from the file extension.
func DetectFormat(path string) string {
	switch {
	case strings.HasSuffix(path, ".tar.xz"):
		return "tar.xz"
	case strings.HasSuffix(path, ".tar.gz"):
		return "tar.gz"
	default:
		return "unknown"
	}
}

// IsSupportedFormat returns true if the file has a supported bundle
// extension.
func IsSupportedFormat(path string) bool {
	return DetectFormat(path) != "unknown"
}
