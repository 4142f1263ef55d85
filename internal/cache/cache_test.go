package cache

import (
	"image"
	"image/color"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestHashURL(t *testing.T) {
	tests := []struct {
		name string
		url  string
	}{
		{"simple URL", "https://example.com/favicon.png"},
		{"URL with query params", "https://example.com/favicon.png?size=large"},
		{"empty string", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := hashURL(tt.url)

			if len(result) != 32 {
				t.Errorf("hashURL(%q) length = %d, want 32", tt.url, len(result))
			}
			for _, c := range result {
				if (c < '0' || c > '9') && (c < 'a' || c > 'f') {
					t.Errorf("hashURL(%q) contains non-hex character: %c", tt.url, c)
				}
			}
		})
	}

	if hashURL("https://a.example.com/1.png") == hashURL("https://a.example.com/2.png") {
		t.Error("different URLs produced the same hash")
	}
}

func createTestImage(width, height int) image.Image {
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			img.Set(x, y, color.RGBA{R: uint8(x % 256), G: uint8(y % 256), B: 128, A: 255})
		}
	}
	return img
}

// newTestCache returns a cache whose clock the test can move forward.
func newTestCache(t *testing.T, expiry time.Duration) (*Cache, *time.Time) {
	t.Helper()
	now := time.Now()
	c := New(t.TempDir(), expiry)
	c.now = func() time.Time { return now }
	return c, &now
}

func TestSaveAndGetImage(t *testing.T) {
	c, _ := newTestCache(t, DefaultExpiry)

	testURL := "https://example.com/favicon.png"
	if err := c.SaveImage(testURL, createTestImage(100, 100)); err != nil {
		t.Fatalf("SaveImage() error = %v", err)
	}

	img := c.GetImage(testURL)
	if img == nil {
		t.Fatal("GetImage() returned nil, expected image")
	}
	if b := img.Bounds(); b.Dx() != 100 || b.Dy() != 100 {
		t.Errorf("GetImage() size = %dx%d, want 100x100", b.Dx(), b.Dy())
	}

	entries, err := os.ReadDir(filepath.Join(c.Dir(), FaviconSubdir))
	if err != nil {
		t.Fatalf("ReadDir() error = %v", err)
	}
	if len(entries) != 1 {
		t.Errorf("favicon dir has %d entries, temp files must not be left behind", len(entries))
	}
}

func TestGetImageNonExistent(t *testing.T) {
	c, _ := newTestCache(t, DefaultExpiry)

	if c.GetImage("https://example.com/nonexistent.png") != nil {
		t.Error("GetImage() for nonexistent URL should return nil")
	}
}

func TestGetImageExpired(t *testing.T) {
	c, now := newTestCache(t, time.Hour)

	testURL := "https://example.com/expired.png"
	if err := c.SaveImage(testURL, createTestImage(50, 50)); err != nil {
		t.Fatalf("SaveImage() error = %v", err)
	}

	*now = now.Add(2 * time.Hour)
	if c.GetImage(testURL) != nil {
		t.Error("GetImage() for expired image should return nil")
	}
	if _, err := os.Stat(c.path(testURL, imageExt)); !os.IsNotExist(err) {
		t.Error("expired image file should have been deleted")
	}
}

func TestMissingMarker(t *testing.T) {
	c, now := newTestCache(t, DefaultExpiry)
	testURL := "https://example.com/broken.ico"

	if c.IsMissing(testURL) {
		t.Error("IsMissing() before marking = true")
	}
	if err := c.MarkMissing(testURL); err != nil {
		t.Fatalf("MarkMissing() error = %v", err)
	}
	if !c.IsMissing(testURL) {
		t.Error("IsMissing() after marking = false")
	}

	*now = now.Add(MissExpiry + time.Minute)
	if c.IsMissing(testURL) {
		t.Error("a miss marker should expire after MissExpiry")
	}
}

func TestSaveImageClearsMissingMarker(t *testing.T) {
	c, _ := newTestCache(t, DefaultExpiry)
	testURL := "https://example.com/flaky.png"

	if err := c.MarkMissing(testURL); err != nil {
		t.Fatalf("MarkMissing() error = %v", err)
	}
	if err := c.SaveImage(testURL, createTestImage(10, 10)); err != nil {
		t.Fatalf("SaveImage() error = %v", err)
	}
	if c.IsMissing(testURL) {
		t.Error("a saved favicon should clear its miss marker")
	}
}

func TestCleanExpired(t *testing.T) {
	c, now := newTestCache(t, time.Hour)

	for _, url := range []string{"https://example.com/1.png", "https://example.com/2.png"} {
		if err := c.SaveImage(url, createTestImage(10, 10)); err != nil {
			t.Fatalf("SaveImage(%q) error = %v", url, err)
		}
	}
	if err := c.MarkMissing("https://example.com/3.png"); err != nil {
		t.Fatalf("MarkMissing() error = %v", err)
	}

	// Images expire after an hour, the miss marker only after MissExpiry.
	*now = now.Add(2 * time.Hour)
	removed, err := c.CleanExpired()
	if err != nil {
		t.Fatalf("CleanExpired() error = %v", err)
	}
	if removed != 2 {
		t.Errorf("CleanExpired() removed %d files, want 2", removed)
	}
	if !c.IsMissing("https://example.com/3.png") {
		t.Error("CleanExpired() removed a live miss marker")
	}
}

func TestCleanExpiredKeepsValidFiles(t *testing.T) {
	c, _ := newTestCache(t, 24*time.Hour)
	testURL := "https://example.com/valid.png"

	if err := c.SaveImage(testURL, createTestImage(10, 10)); err != nil {
		t.Fatalf("SaveImage() error = %v", err)
	}
	if removed, err := c.CleanExpired(); err != nil || removed != 0 {
		t.Fatalf("CleanExpired() = %d, %v; want 0, nil", removed, err)
	}
	if c.GetImage(testURL) == nil {
		t.Error("CleanExpired() should not remove valid images")
	}
}

func TestCleanExpiredNonExistentDirectory(t *testing.T) {
	c, _ := newTestCache(t, DefaultExpiry)

	if _, err := c.CleanExpired(); err != nil {
		t.Errorf("CleanExpired() should not error on non-existent directory, got %v", err)
	}
}

func TestGetCacheDir(t *testing.T) {
	dir, err := GetCacheDir()
	if err != nil {
		t.Fatalf("GetCacheDir() error = %v", err)
	}
	if !filepath.IsAbs(dir) {
		t.Errorf("GetCacheDir() = %q, want absolute path", dir)
	}
	if filepath.Base(dir) != AppName {
		t.Errorf("GetCacheDir() directory name = %q, want %q", filepath.Base(dir), AppName)
	}
}

func TestNewCache(t *testing.T) {
	c, err := NewCache()
	if err != nil {
		t.Fatalf("NewCache() error = %v", err)
	}
	if c.Dir() == "" {
		t.Error("NewCache() base dir is empty")
	}
	if c.expiry != DefaultExpiry {
		t.Errorf("NewCache() expiry = %v, want %v", c.expiry, DefaultExpiry)
	}
}
