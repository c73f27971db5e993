// Package archive provides read access to addon packages shipped as
// archives: format sniffing, entry enumeration, named streams and full
// extraction to a directory.
package archive

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/klauspost/compress/zip"
)

var (
	ErrNotArchive    = errors.New("not a supported archive")
	ErrEntryNotFound = errors.New("archive entry not found")
	ErrUnsafePath    = errors.New("archive entry escapes destination")
)

// zip local file header, empty archive and spanned archive signatures
var zipMagic = [][]byte{
	{'P', 'K', 0x03, 0x04},
	{'P', 'K', 0x05, 0x06},
	{'P', 'K', 0x07, 0x08},
}

// Entry describes a single file inside an archive.
type Entry struct {
	Name  string // Slash-separated path inside the archive
	Size  int64
	IsDir bool
}

// Base returns the file name of the entry without its directory.
func (e Entry) Base() string {
	return path.Base(e.Name)
}

// Reader is an opened archive.
type Reader interface {
	Entries() []Entry
	Open(name string) (io.ReadCloser, error)
	ExtractTo(dir string) error
	Close() error
}

// Opener detects and opens archives.
type Opener interface {
	IsArchive(path string) bool
	Open(path string) (Reader, error)
}

// ZipOpener opens zip-based packages (.zip, .pk3, .pk4, .grp.zip, ...).
type ZipOpener struct{}

// NewZipOpener returns the default archive opener.
func NewZipOpener() ZipOpener {
	return ZipOpener{}
}

// IsArchive sniffs the file header instead of trusting the extension.
func (ZipOpener) IsArchive(p string) bool {
	f, err := os.Open(p)
	if err != nil {
		return false
	}
	defer func() { _ = f.Close() }()

	header := make([]byte, 4)
	if _, err := io.ReadFull(f, header); err != nil {
		return false
	}

	for _, magic := range zipMagic {
		if bytes.Equal(header, magic) {
			return true
		}
	}
	return false
}

// Open opens the archive at p.
func (o ZipOpener) Open(p string) (Reader, error) {
	if !o.IsArchive(p) {
		return nil, fmt.Errorf("%w: %s", ErrNotArchive, p)
	}

	rc, err := zip.OpenReader(p)
	if err != nil {
		return nil, fmt.Errorf("failed to open archive %s: %w", p, err)
	}

	return &ZipReader{rc: rc}, nil
}

// ZipReader is a Reader backed by a zip file.
type ZipReader struct {
	rc *zip.ReadCloser
}

// Entries lists every entry in archive order.
func (z *ZipReader) Entries() []Entry {
	entries := make([]Entry, 0, len(z.rc.File))
	for _, f := range z.rc.File {
		entries = append(entries, Entry{
			Name:  f.Name,
			Size:  int64(f.UncompressedSize64),
			IsDir: f.FileInfo().IsDir(),
		})
	}
	return entries
}

// Open returns a stream for the named entry. Lookup falls back to a
// case-insensitive match since packages are often authored on Windows.
func (z *ZipReader) Open(name string) (io.ReadCloser, error) {
	name = strings.TrimPrefix(filepath.ToSlash(name), "/")

	var fallback *zip.File
	for _, f := range z.rc.File {
		if f.Name == name {
			return f.Open()
		}
		if fallback == nil && strings.EqualFold(f.Name, name) {
			fallback = f
		}
	}

	if fallback != nil {
		return fallback.Open()
	}
	return nil, fmt.Errorf("%w: %s", ErrEntryNotFound, name)
}

// ExtractTo writes every entry below dir, creating it if needed.
func (z *ZipReader) ExtractTo(dir string) error {
	root, err := filepath.Abs(dir)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(root, 0755); err != nil {
		return err
	}

	for _, f := range z.rc.File {
		dest := filepath.Join(root, filepath.FromSlash(f.Name))
		if dest != root && !strings.HasPrefix(dest, root+string(os.PathSeparator)) {
			return fmt.Errorf("%w: %s", ErrUnsafePath, f.Name)
		}

		if f.FileInfo().IsDir() {
			if err := os.MkdirAll(dest, 0755); err != nil {
				return err
			}
			continue
		}

		if err := extractFile(f, dest); err != nil {
			return fmt.Errorf("failed to extract %s: %w", f.Name, err)
		}
	}

	return nil
}

// Close releases the underlying file.
func (z *ZipReader) Close() error {
	return z.rc.Close()
}

func extractFile(f *zip.File, dest string) error {
	if err := os.MkdirAll(filepath.Dir(dest), 0755); err != nil {
		return err
	}

	src, err := f.Open()
	if err != nil {
		return err
	}
	defer func() { _ = src.Close() }()

	out, err := os.OpenFile(dest, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0644)
	if err != nil {
		return err
	}

	if _, err := io.Copy(out, src); err != nil {
		_ = out.Close()
		return err
	}
	return out.Close()
}
