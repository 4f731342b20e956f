package archive

import (
	"archive/tar"
	"compress/gzip"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/ulikunitz/xz"

	"github.com/FocuswithJustin/KeyItBible/core/usfm"
)

// Reader wraps a tar.Reader with automatic decompression handling.
type Reader struct {
	*tar.Reader
	file         *os.File
	decompressor io.Closer
}

// NewReader opens a bundle for reading, detecting .tar.xz and .tar.gz
// compression from the path.
func NewReader(path string) (*Reader, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open bundle: %w", err)
	}

	var reader io.Reader
	var decompressor io.Closer
	switch DetectFormat(path) {
	case "tar.xz":
		xzr, err := xz.NewReader(f)
		if err != nil {
			f.Close()
			return nil, fmt.Errorf("xz reader: %w", err)
		}
		reader = xzr // xz readers need no Close
	case "tar.gz":
		gzr, err := gzip.NewReader(f)
		if err != nil {
			f.Close()
			return nil, fmt.Errorf("gzip reader: %w", err)
		}
		reader = gzr
		decompressor = gzr
	default:
		f.Close()
		return nil, fmt.Errorf("unsupported bundle format: %s", path)
	}

	return &Reader{
		Reader:       tar.NewReader(reader),
		file:         f,
		decompressor: decompressor,
	}, nil
}

// Close closes the reader and any underlying decompressor.
func (r *Reader) Close() error {
	var errs []error
	if r.decompressor != nil {
		if err := r.decompressor.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	if err := r.file.Close(); err != nil {
		errs = append(errs, err)
	}
	if len(errs) > 0 {
		return errs[0]
	}
	return nil
}

// Visitor is a callback for iterating bundle entries. Return true to
// stop iteration.
type Visitor func(header *tar.Header, content io.Reader) (stop bool, err error)

// Iterate walks all entries in the bundle, calling the visitor for
// each.
func (r *Reader) Iterate(visitor Visitor) error {
	for {
		header, err := r.Next()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return fmt.Errorf("read header: %w", err)
		}
		stop, err := visitor(header, r)
		if err != nil {
			return err
		}
		if stop {
			return nil
		}
	}
}

// Bundle is a fully read and checksum-verified export bundle.
type Bundle struct {
	Manifest Manifest
	// Texts holds each book's USFM keyed by its code.
	Texts map[string]string
}

// ReadBundle reads a bundle and verifies every book file against the
// manifest. A missing manifest, a missing book file or a checksum
// mismatch all fail the read; a damaged bundle is never half-imported.
func ReadBundle(path string) (*Bundle, error) {
	r, err := NewReader(path)
	if err != nil {
		return nil, err
	}
	defer r.Close()

	var manifestJSON []byte
	files := make(map[string][]byte)
	err = r.Iterate(func(header *tar.Header, content io.Reader) (bool, error) {
		if header.Typeflag == tar.TypeDir {
			return false, nil
		}
		data, err := io.ReadAll(content)
		if err != nil {
			return false, fmt.Errorf("read %s: %w", header.Name, err)
		}
		if header.Name == ManifestName {
			manifestJSON = data
		} else {
			files[header.Name] = data
		}
		return false, nil
	})
	if err != nil {
		return nil, err
	}
	if manifestJSON == nil {
		return nil, fmt.Errorf("bundle has no %s", ManifestName)
	}

	var manifest Manifest
	if err := json.Unmarshal(manifestJSON, &manifest); err != nil {
		return nil, fmt.Errorf("decode manifest: %w", err)
	}
	if manifest.Version > ManifestVersion {
		return nil, fmt.Errorf("bundle manifest version %d is newer than supported %d",
			manifest.Version, ManifestVersion)
	}

	b := &Bundle{Manifest: manifest, Texts: make(map[string]string)}
	for _, entry := range manifest.Books {
		data, ok := files[entry.File]
		if !ok {
			return nil, fmt.Errorf("book file %s listed in manifest but missing", entry.File)
		}
		text := string(data)
		if sum := usfm.Checksum(text); sum != entry.Checksum {
			return nil, fmt.Errorf("checksum mismatch for %s: manifest %s, file %s",
				entry.File, entry.Checksum, sum)
		}
		b.Texts[entry.Code] = text
	}
	return b, nil
}
