// Package cache owns the application cache directory and keeps station
// favicons there, including a record of favicons that failed to load.
package cache

import (
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"image"
	"image/png"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog/log"
)

const (
	// DefaultExpiry is how long cached favicons are valid (7 days).
	DefaultExpiry = 7 * 24 * time.Hour
	// MissExpiry is how long a favicon that failed to load is not retried.
	MissExpiry = 24 * time.Hour
	// FaviconSubdir is the subdirectory for cached favicons.
	FaviconSubdir = "favicons"
	// AppName is used for the cache directory name.
	AppName = "moodradio"

	imageExt = ".png"
	missExt  = ".miss"
)

// Cache manages disk-based caching of station favicons.
type Cache struct {
	baseDir string
	expiry  time.Duration
	now     func() time.Time
}

// NewCache creates a Cache in the user cache directory with the default expiry.
func NewCache() (*Cache, error) {
	cacheDir, err := GetCacheDir()
	if err != nil {
		return nil, err
	}
	return New(cacheDir, DefaultExpiry), nil
}

// New creates a Cache rooted at dir.
func New(dir string, expiry time.Duration) *Cache {
	return &Cache{
		baseDir: dir,
		expiry:  expiry,
		now:     time.Now,
	}
}

// GetCacheDir returns the platform-specific cache directory for the application.
func GetCacheDir() (string, error) {
	userCacheDir, err := os.UserCacheDir()
	if err != nil {
		return "", fmt.Errorf("failed to get user cache directory: %w", err)
	}
	return filepath.Join(userCacheDir, AppName), nil
}

// Dir returns the cache root.
func (c *Cache) Dir() string {
	return c.baseDir
}

func hashURL(url string) string {
	hash := md5.Sum([]byte(url))
	return hex.EncodeToString(hash[:])
}

func (c *Cache) path(url, ext string) string {
	return filepath.Join(c.baseDir, FaviconSubdir, hashURL(url)+ext)
}

// fresh reports whether the file at path exists and is younger than ttl.
// Stale files are removed.
func (c *Cache) fresh(path string, ttl time.Duration) bool {
	info, err := os.Stat(path)
	if err != nil {
		return false
	}
	if c.now().Sub(info.ModTime()) <= ttl {
		return true
	}
	if err := os.Remove(path); err != nil {
		log.Debug().Err(err).Str("file", path).Msg("Failed to remove expired cache file")
	}
	return false
}

// GetImage returns the cached favicon for url, or nil if absent or expired.
func (c *Cache) GetImage(url string) image.Image {
	imagePath := c.path(url, imageExt)
	if !c.fresh(imagePath, c.expiry) {
		return nil
	}

	file, err := os.Open(imagePath)
	if err != nil {
		return nil
	}
	defer file.Close()

	img, _, err := image.Decode(file)
	if err != nil {
		log.Debug().Err(err).Str("file", imagePath).Msg("Failed to decode cached image")
		return nil
	}
	return img
}

// SaveImage stores img as PNG, keyed by its URL. The write is atomic.
func (c *Cache) SaveImage(url string, img image.Image) error {
	dir := filepath.Join(c.baseDir, FaviconSubdir)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create cache directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".favicon-*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpPath := tmp.Name()
	defer func() {
		if tmpPath != "" {
			os.Remove(tmpPath)
		}
	}()

	if err := png.Encode(tmp, img); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to encode image: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close temp file: %w", err)
	}
	if err := os.Rename(tmpPath, c.path(url, imageExt)); err != nil {
		return fmt.Errorf("failed to rename cache file: %w", err)
	}
	tmpPath = ""

	os.Remove(c.path(url, missExt))
	return nil
}

// MarkMissing records that the favicon at url could not be loaded.
func (c *Cache) MarkMissing(url string) error {
	dir := filepath.Join(c.baseDir, FaviconSubdir)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create cache directory: %w", err)
	}
	if err := os.WriteFile(c.path(url, missExt), nil, 0644); err != nil {
		return fmt.Errorf("failed to write miss marker: %w", err)
	}
	return nil
}

// IsMissing reports whether url failed to load within MissExpiry.
func (c *Cache) IsMissing(url string) bool {
	return c.fresh(c.path(url, missExt), MissExpiry)
}

// CleanExpired removes favicons older than the expiry and stale miss markers.
// It returns the number of files removed.
func (c *Cache) CleanExpired() (int, error) {
	dir := filepath.Join(c.baseDir, FaviconSubdir)

	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return 0, nil
		}
		return 0, fmt.Errorf("failed to read cache directory: %w", err)
	}

	now := c.now()
	var removed, failed int
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}

		ttl := c.expiry
		if filepath.Ext(entry.Name()) == missExt {
			ttl = MissExpiry
		}

		info, err := entry.Info()
		if err != nil {
			continue
		}
		if now.Sub(info.ModTime()) <= ttl {
			continue
		}

		filePath := filepath.Join(dir, entry.Name())
		if err := os.Remove(filePath); err != nil {
			log.Debug().Err(err).Str("file", filePath).Msg("Failed to remove expired cache file")
			failed++
		} else {
			removed++
		}
	}

	if removed > 0 || failed > 0 {
		log.Debug().Int("removed", removed).Int("failed", failed).Msg("Cache cleanup completed")
	}
	return removed, nil
}
