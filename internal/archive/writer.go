package archive

import (
	"archive/tar"
	"compress/gzip"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/ulikunitz/xz"

	"github.com/FocuswithJustin/KeyItBible/core/usfm"
)

// WriteBundle creates a bundle at path containing the given books and
// a manifest with their checksums. The compression is chosen from the
// path's extension (.tar.xz or .tar.gz).
func WriteBundle(path, bibleName string, books []BookUSFM) error {
	if !IsSupportedFormat(path) {
		return fmt.Errorf("unsupported bundle format: %s", path)
	}
	if len(books) == 0 {
		return fmt.Errorf("nothing to bundle")
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create bundle: %w", err)
	}
	defer f.Close()

	var compressor io.WriteCloser
	switch DetectFormat(path) {
	case "tar.xz":
		compressor, err = xz.NewWriter(f)
		if err != nil {
			return fmt.Errorf("xz writer: %w", err)
		}
	case "tar.gz":
		compressor = gzip.NewWriter(f)
	}
	tw := tar.NewWriter(compressor)

	manifest := Manifest{
		Version:   ManifestVersion,
		Bible:     bibleName,
		CreatedAt: time.Now().UTC(),
	}
	for _, b := range books {
		manifest.Books = append(manifest.Books, BookEntry{
			ID:       b.ID,
			Code:     b.Code,
			Name:     b.Name,
			Chapters: b.Chapters,
			File:     bookPath(b.Code),
			Checksum: usfm.Checksum(b.Text),
		})
	}
	manifestJSON, err := json.MarshalIndent(manifest, "", "  ")
	if err != nil {
		return fmt.Errorf("encode manifest: %w", err)
	}

	now := time.Now()
	if err := writeEntry(tw, ManifestName, manifestJSON, now); err != nil {
		return err
	}
	for _, b := range books {
		if err := writeEntry(tw, bookPath(b.Code), []byte(b.Text), now); err != nil {
			return err
		}
	}

	if err := tw.Close(); err != nil {
		return fmt.Errorf("close tar: %w", err)
	}
	if err := compressor.Close(); err != nil {
		return fmt.Errorf("close compressor: %w", err)
	}
	return f.Close()
}

func writeEntry(tw *tar.Writer, name string, content []byte, modTime time.Time) error {
	hdr := &tar.Header{
		Name:    name,
		Mode:    0644,
		Size:    int64(len(content)),
		ModTime: modTime,
	}
	if err := tw.WriteHeader(hdr); err != nil {
		return fmt.Errorf("write header %s: %w", name, err)
	}
	if _, err := tw.Write(content); err != nil {
		return fmt.Errorf("write entry %s: %w", name, err)
	}
	return nil
}
