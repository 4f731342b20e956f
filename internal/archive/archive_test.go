package archive

import (
	"archive/tar"
	"compress/gzip"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/FocuswithJustin/KeyItBible/core/usfm"
)

func sampleBooks() []BookUSFM {
	return []BookUSFM{
		{ID: 8, Code: "RUT", Name: "Ruth", Chapters: 4, Text: "\\id RUT\n\\c 1\n\\v 1 In the days"},
		{ID: 32, Code: "JON", Name: "Jonah", Chapters: 4, Text: "\\id JON\n\\c 1\n\\v 1 Now the word"},
	}
}

func TestBundleRoundTripXZ(t *testing.T) {
	path := filepath.Join(t.TempDir(), "trial.tar.xz")
	if err := WriteBundle(path, "Trial Translation", sampleBooks()); err != nil {
		t.Fatal(err)
	}

	b, err := ReadBundle(path)
	if err != nil {
		t.Fatal(err)
	}
	if b.Manifest.Bible != "Trial Translation" || b.Manifest.Version != ManifestVersion {
		t.Errorf("manifest = %+v", b.Manifest)
	}
	if len(b.Manifest.Books) != 2 {
		t.Fatalf("manifest books = %d, want 2", len(b.Manifest.Books))
	}
	if b.Texts["RUT"] != "\\id RUT\n\\c 1\n\\v 1 In the days" {
		t.Errorf("RUT text = %q", b.Texts["RUT"])
	}
	if b.Texts["JON"] == "" {
		t.Error("JON text missing")
	}
	entry := b.Manifest.Books[0]
	if entry.Code != "RUT" || entry.File != "usfm/RUT.usfm" || entry.Chapters != 4 {
		t.Errorf("entry = %+v", entry)
	}
	if entry.Checksum != usfm.Checksum(b.Texts["RUT"]) {
		t.Error("manifest checksum does not match content")
	}
}

func TestBundleRoundTripGZ(t *testing.T) {
	path := filepath.Join(t.TempDir(), "trial.tar.gz")
	if err := WriteBundle(path, "Trial", sampleBooks()); err != nil {
		t.Fatal(err)
	}
	b, err := ReadBundle(path)
	if err != nil {
		t.Fatal(err)
	}
	if len(b.Texts) != 2 {
		t.Errorf("texts = %d, want 2", len(b.Texts))
	}
}

func TestWriteBundleRejects(t *testing.T) {
	dir := t.TempDir()
	if err := WriteBundle(filepath.Join(dir, "x.zip"), "Trial", sampleBooks()); err == nil {
		t.Error("expected error for unsupported extension")
	}
	if err := WriteBundle(filepath.Join(dir, "x.tar.xz"), "Trial", nil); err == nil {
		t.Error("expected error for empty book list")
	}
}

func TestReadBundleDetectsTampering(t *testing.T) {
	// Build a gz bundle by hand with a checksum that does not match.
	path := filepath.Join(t.TempDir(), "bad.tar.gz")
	manifest := Manifest{
		Version:   ManifestVersion,
		Bible:     "Trial",
		CreatedAt: time.Now().UTC(),
		Books: []BookEntry{{
			ID: 8, Code: "RUT", Name: "Ruth", Chapters: 4,
			File: "usfm/RUT.usfm", Checksum: usfm.Checksum("original text"),
		}},
	}
	writeRawBundle(t, path, manifest, map[string]string{
		"usfm/RUT.usfm": "altered text",
	})

	if _, err := ReadBundle(path); err == nil || !strings.Contains(err.Error(), "checksum mismatch") {
		t.Errorf("error = %v, want checksum mismatch", err)
	}
}

func TestReadBundleMissingPieces(t *testing.T) {
	dir := t.TempDir()

	// A bundle without a manifest entry at all.
	noManifest := filepath.Join(dir, "nomanifest.tar.gz")
	f, err := os.Create(noManifest)
	if err != nil {
		t.Fatal(err)
	}
	gw := gzip.NewWriter(f)
	tw := tar.NewWriter(gw)
	content := []byte("text")
	if err := tw.WriteHeader(&tar.Header{Name: "usfm/RUT.usfm", Mode: 0644, Size: int64(len(content))}); err != nil {
		t.Fatal(err)
	}
	if _, err := tw.Write(content); err != nil {
		t.Fatal(err)
	}
	tw.Close()
	gw.Close()
	f.Close()
	if _, err := ReadBundle(noManifest); err == nil || !strings.Contains(err.Error(), "no manifest.json") {
		t.Errorf("error = %v, want missing manifest", err)
	}

	missingFile := filepath.Join(dir, "missingfile.tar.gz")
	manifest := Manifest{
		Version: ManifestVersion,
		Books: []BookEntry{{
			Code: "RUT", File: "usfm/RUT.usfm", Checksum: usfm.Checksum("text"),
		}},
	}
	writeRawBundle(t, missingFile, manifest, nil)
	if _, err := ReadBundle(missingFile); err == nil || !strings.Contains(err.Error(), "missing") {
		t.Errorf("error = %v, want missing book file", err)
	}
}

func TestReadBundleRejectsNewerVersion(t *testing.T) {
	path := filepath.Join(t.TempDir(), "future.tar.gz")
	writeRawBundle(t, path, Manifest{Version: ManifestVersion + 1}, nil)
	if _, err := ReadBundle(path); err == nil || !strings.Contains(err.Error(), "newer") {
		t.Errorf("error = %v, want version rejection", err)
	}
}

func TestDetectFormat(t *testing.T) {
	tests := []struct {
		path string
		want string
	}{
		{"a.tar.xz", "tar.xz"},
		{"a.tar.gz", "tar.gz"},
		{"a.tar", "unknown"},
		{"a.usfm", "unknown"},
	}
	for _, tt := range tests {
		if got := DetectFormat(tt.path); got != tt.want {
			t.Errorf("DetectFormat(%q) = %q, want %q", tt.path, got, tt.want)
		}
	}
	if IsSupportedFormat("a.zip") {
		t.Error("zip should not be supported")
	}
}

// writeRawBundle writes a gz bundle with exactly the given manifest and
// files, bypassing WriteBundle's checksumming.
func writeRawBundle(t *testing.T, path string, manifest Manifest, files map[string]string) {
	t.Helper()
	f, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	gw := gzip.NewWriter(f)
	tw := tar.NewWriter(gw)

	manifestJSON, err := json.Marshal(manifest)
	if err != nil {
		t.Fatal(err)
	}
	entries := map[string][]byte{ManifestName: manifestJSON}
	for name, content := range files {
		entries[name] = []byte(content)
	}
	for name, content := range entries {
		if err := tw.WriteHeader(&tar.Header{Name: name, Mode: 0644, Size: int64(len(content))}); err != nil {
			t.Fatal(err)
		}
		if _, err := tw.Write(content); err != nil {
			t.Fatal(err)
		}
	}
	if err := tw.Close(); err != nil {
		t.Fatal(err)
	}
	if err := gw.Close(); err != nil {
		t.Fatal(err)
	}
}
