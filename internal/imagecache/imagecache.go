// Package imagecache stores addon cover images on disk, addressed by their
// xxhash content hash.
package imagecache

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"

	"github.com/cespare/xxhash/v2"
)

// Cache is a content-addressed image directory
type Cache struct {
	dir string
}

// New returns a cache rooted at dir. The directory is created lazily.
func New(dir string) *Cache {
	return &Cache{dir: dir}
}

// Path returns the file that holds the image with the given hash
func (c *Cache) Path(hash uint64) string {
	name := strconv.FormatUint(hash, 16)
	return filepath.Join(c.dir, name[len(name)-1:], name)
}

// Has reports whether an image is cached
func (c *Cache) Has(hash uint64) bool {
	_, err := os.Stat(c.Path(hash))
	return err == nil
}

// Add stores the image read from r under hash. Existing entries are kept.
// The content is verified against the hash before it is committed.
func (c *Cache) Add(hash uint64, r io.Reader) error {
	dest := c.Path(hash)
	if _, err := os.Stat(dest); err == nil {
		_, _ = io.Copy(io.Discard, r)
		return nil
	}

	if err := os.MkdirAll(filepath.Dir(dest), 0755); err != nil {
		return err
	}

	tmp, err := os.CreateTemp(filepath.Dir(dest), ".img-*")
	if err != nil {
		return err
	}
	defer func() { _ = os.Remove(tmp.Name()) }()

	digest := xxhash.New()
	if _, err := io.Copy(io.MultiWriter(tmp, digest), r); err != nil {
		_ = tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}

	if got := digest.Sum64(); got != hash {
		return fmt.Errorf("image hash mismatch: expected %x, got %x", hash, got)
	}
	return os.Rename(tmp.Name(), dest)
}

// Open returns the cached image
func (c *Cache) Open(hash uint64) (io.ReadCloser, error) {
	return os.Open(c.Path(hash))
}
