package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/glebovdev/moodradio/internal/playback"
	"github.com/glebovdev/moodradio/internal/station"
	"github.com/glebovdev/moodradio/internal/store"
)

func testStation(id string) station.Station {
	return station.Station{
		ID:        id,
		Name:      "Station " + id,
		StreamURL: fmt.Sprintf("https://%s.example.com/live.mp3", id),
		Tags:      []string{"jazz"},
	}
}

func writeConfigFile(t *testing.T, home, body string) {
	t.Helper()
	dir := filepath.Join(home, ConfigDir)
	if err := os.MkdirAll(dir, 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, ConfigFileName), []byte(body), 0644); err != nil {
		t.Fatal(err)
	}
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.Volume != DefaultVolume {
		t.Errorf("DefaultConfig().Volume = %d, want %d", cfg.Volume, DefaultVolume)
	}
	if cfg.Lang != DefaultLang {
		t.Errorf("DefaultConfig().Lang = %q, want %q", cfg.Lang, DefaultLang)
	}
	if cfg.LastGenre != "" {
		t.Errorf("DefaultConfig().LastGenre = %q, want empty string", cfg.LastGenre)
	}
	if cfg.MaxFailures != playback.DefaultMaxFailures {
		t.Errorf("DefaultConfig().MaxFailures = %d, want %d", cfg.MaxFailures, playback.DefaultMaxFailures)
	}
	if cfg.Storage.Backend != store.BackendFile {
		t.Errorf("DefaultConfig().Storage.Backend = %q, want %q", cfg.Storage.Backend, store.BackendFile)
	}
	if len(cfg.Directory.Mirrors) == 0 {
		t.Error("DefaultConfig() should list directory mirrors")
	}
	if cfg.Timeouts.Watchdog != 5*time.Second || cfg.Timeouts.StallGrace != 10*time.Second {
		t.Errorf("DefaultConfig().Timeouts = %+v", cfg.Timeouts)
	}
}

func TestConfigSaveAndLoad(t *testing.T) {
	tmpDir := t.TempDir()
	t.Setenv("HOME", tmpDir)

	testCfg := DefaultConfig()
	testCfg.Volume = 85
	testCfg.LastGenre = "lofi"
	testCfg.Lang = "ru"
	testCfg.Timeouts.Verification = time.Minute

	if err := testCfg.Save(); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	configPath := filepath.Join(tmpDir, ConfigDir, ConfigFileName)
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		t.Fatalf("Config file was not created at %s", configPath)
	}

	loadedCfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if loadedCfg.Volume != 85 {
		t.Errorf("Load().Volume = %d, want 85", loadedCfg.Volume)
	}
	if loadedCfg.LastGenre != "lofi" {
		t.Errorf("Load().LastGenre = %q, want lofi", loadedCfg.LastGenre)
	}
	if loadedCfg.Lang != "ru" {
		t.Errorf("Load().Lang = %q, want ru", loadedCfg.Lang)
	}
	if loadedCfg.Timeouts.Verification != time.Minute {
		t.Errorf("Load().Timeouts.Verification = %v, want 1m", loadedCfg.Timeouts.Verification)
	}
}

func TestLoadNonExistentConfig(t *testing.T) {
	tmpDir := t.TempDir()
	t.Setenv("HOME", tmpDir)

	cfg, err := Load()
	if err != nil {
		t.Logf("Load() error (expected): %v", err)
	}

	if cfg.Volume != DefaultVolume {
		t.Errorf("Load() with non-existent file returned Volume = %d, want %d", cfg.Volume, DefaultVolume)
	}
	if cfg.LastGenre != "" {
		t.Errorf("Load() with non-existent file returned LastGenre = %q, want empty string", cfg.LastGenre)
	}
}

func TestVolumeValidation(t *testing.T) {
	tests := []struct {
		name           string
		inputVolume    int
		expectedVolume int
	}{
		{"valid volume 50", 50, 50},
		{"valid volume 0", 0, 0},
		{"valid volume 100", 100, 100},
		{"negative volume", -10, 0},
		{"volume over 100", 150, 100},
		{"volume way over 100", 1000, 100},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tmpDir := t.TempDir()
			t.Setenv("HOME", tmpDir)

			testCfg := &Config{Volume: tt.inputVolume, LastGenre: "jazz"}
			if err := testCfg.Save(); err != nil {
				t.Fatalf("Save() error = %v", err)
			}

			loadedCfg, err := Load()
			if err != nil {
				t.Fatalf("Load() error = %v", err)
			}

			if loadedCfg.Volume != tt.expectedVolume {
				t.Errorf("Load().Volume = %d, want %d", loadedCfg.Volume, tt.expectedVolume)
			}
		})
	}
}

func TestLoadFillsMissingValues(t *testing.T) {
	tmpDir := t.TempDir()
	t.Setenv("HOME", tmpDir)

	writeConfigFile(t, tmpDir, `
volume: 40
lang: de
max_failures: -3
directory:
  page_size: 0
timeouts:
  watchdog: 12s
  probe: 0s
`)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Volume != 40 {
		t.Errorf("Volume = %d, want 40", cfg.Volume)
	}
	if cfg.Lang != DefaultLang {
		t.Errorf("unsupported lang should fall back, got %q", cfg.Lang)
	}
	if cfg.MaxFailures != playback.DefaultMaxFailures {
		t.Errorf("MaxFailures = %d, want %d", cfg.MaxFailures, playback.DefaultMaxFailures)
	}
	if cfg.Directory.PageSize <= 0 {
		t.Errorf("PageSize = %d, want a positive default", cfg.Directory.PageSize)
	}
	if cfg.Timeouts.Watchdog != 12*time.Second {
		t.Errorf("Timeouts.Watchdog = %v, want 12s", cfg.Timeouts.Watchdog)
	}
	if cfg.Timeouts.Probe != DefaultConfig().Timeouts.Probe {
		t.Errorf("Timeouts.Probe = %v, want the default", cfg.Timeouts.Probe)
	}
}

func TestEnvOverrides(t *testing.T) {
	tmpDir := t.TempDir()
	t.Setenv("HOME", tmpDir)

	writeConfigFile(t, tmpDir, `
lang: en
storage:
  backend: sqlite
llm:
  model: from-file
`)

	t.Setenv(EnvLang, "ru")
	t.Setenv(EnvStorageBackend, "redis")
	t.Setenv(EnvRedisAddr, "cache:6379")
	t.Setenv(EnvRedisDB, "3")
	t.Setenv(EnvLLMAPIKey, "secret")
	t.Setenv(EnvMirrors, "https://a.example.com, ,https://b.example.com")
	t.Setenv(EnvMaxFailures, "not-a-number")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Lang != "ru" {
		t.Errorf("Lang = %q, want ru", cfg.Lang)
	}
	if cfg.Storage.Backend != "redis" || cfg.Storage.RedisAddr != "cache:6379" || cfg.Storage.RedisDB != 3 {
		t.Errorf("Storage = %+v", cfg.Storage)
	}
	if cfg.LLM.Model != "from-file" || cfg.LLM.APIKey != "secret" {
		t.Errorf("LLM = %+v", cfg.LLM)
	}
	if len(cfg.Directory.Mirrors) != 2 || cfg.Directory.Mirrors[1] != "https://b.example.com" {
		t.Errorf("Mirrors = %v", cfg.Directory.Mirrors)
	}
	if cfg.MaxFailures != playback.DefaultMaxFailures {
		t.Errorf("an unparsable override should be ignored, MaxFailures = %d", cfg.MaxFailures)
	}
}

func TestSecretsNotSaved(t *testing.T) {
	tmpDir := t.TempDir()
	t.Setenv("HOME", tmpDir)

	cfg := DefaultConfig()
	cfg.LLM.APIKey = "sk-secret"
	cfg.Storage.RedisPassword = "hunter2"
	if err := cfg.Save(); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	path, _ := GetConfigPath()
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	for _, secret := range []string{"sk-secret", "hunter2"} {
		if strings.Contains(string(data), secret) {
			t.Errorf("config file contains %q", secret)
		}
	}
}

func TestPlaybackConfig(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Timeouts.Watchdog = 7 * time.Second
	cfg.Timeouts.QuickSkip = 3 * time.Second
	cfg.MaxFailures = 4

	pc := cfg.PlaybackConfig()
	if pc.WatchdogTimeout != 7*time.Second || pc.QuickSkipWindow != 3*time.Second || pc.MaxFailures != 4 {
		t.Errorf("PlaybackConfig() = %+v", pc)
	}
	if pc.StallGrace != playback.DefaultStallGrace || pc.VerifyAfter != playback.DefaultVerifyAfter {
		t.Errorf("PlaybackConfig() lost defaults: %+v", pc)
	}
}

func TestStoreOptions(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Storage = Storage{Backend: store.BackendSQLite, SQLitePath: "/tmp/x.db", RedisDB: 2}

	opts := cfg.StoreOptions("/data")
	if opts.Backend != store.BackendSQLite || opts.Dir != "/data" || opts.SQLitePath != "/tmp/x.db" || opts.RedisDB != 2 {
		t.Errorf("StoreOptions() = %+v", opts)
	}
}

func TestThemeDefaults(t *testing.T) {
	tmpDir := t.TempDir()
	t.Setenv("HOME", tmpDir)

	cfg, err := Load()
	if err != nil {
		t.Logf("Load() error (expected): %v", err)
	}

	if cfg.Theme.Background != "#1a1b25" {
		t.Errorf("Theme.Background = %q, want %q", cfg.Theme.Background, "#1a1b25")
	}
	if cfg.Theme.Highlight != "#ff9d65" {
		t.Errorf("Theme.Highlight = %q, want %q", cfg.Theme.Highlight, "#ff9d65")
	}
	if cfg.Theme.MutedVolume != "#fe0702" {
		t.Errorf("Theme.MutedVolume = %q, want %q", cfg.Theme.MutedVolume, "#fe0702")
	}
}

func TestThemePersistence(t *testing.T) {
	tmpDir := t.TempDir()
	t.Setenv("HOME", tmpDir)

	testCfg := &Config{
		Volume: 70,
		Theme: Theme{
			Background: "black",
			Foreground: "yellow",
			Borders:    "blue",
			Highlight:  "red",
		},
	}
	if err := testCfg.Save(); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	loadedCfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if loadedCfg.Theme.Background != "black" {
		t.Errorf("Theme.Background = %q, want %q", loadedCfg.Theme.Background, "black")
	}
	if loadedCfg.Theme.Highlight != "red" {
		t.Errorf("Theme.Highlight = %q, want %q", loadedCfg.Theme.Highlight, "red")
	}
}

func TestIsFavorite(t *testing.T) {
	tests := []struct {
		name      string
		favorites []station.Station
		stationID string
		expected  bool
	}{
		{"station is favorite", []station.Station{testStation("a"), testStation("b")}, "b", true},
		{"station is not favorite", []station.Station{testStation("a")}, "c", false},
		{"empty favorites list", []station.Station{}, "a", false},
		{"nil favorites", nil, "a", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := &Config{Favorites: tt.favorites}
			if got := cfg.IsFavorite(tt.stationID); got != tt.expected {
				t.Errorf("IsFavorite(%q) = %v, want %v", tt.stationID, got, tt.expected)
			}
		})
	}
}

func TestToggleFavorite(t *testing.T) {
	cfg := &Config{Favorites: []station.Station{testStation("a"), testStation("b"), testStation("c")}}

	if cfg.ToggleFavorite(testStation("b")) {
		t.Error("ToggleFavorite() of an existing favorite should report false")
	}
	if len(cfg.Favorites) != 2 || cfg.Favorites[0].ID != "a" || cfg.Favorites[1].ID != "c" {
		t.Errorf("Favorites after removal = %v", cfg.Favorites)
	}

	if !cfg.ToggleFavorite(testStation("d")) {
		t.Error("ToggleFavorite() of a new station should report true")
	}
	if !cfg.IsFavorite("d") || cfg.Favorites[len(cfg.Favorites)-1].ID != "d" {
		t.Errorf("new favorite should be appended, got %v", cfg.Favorites)
	}
}

func TestToggleFavoriteDoubleToggle(t *testing.T) {
	cfg := &Config{Favorites: []station.Station{}}

	cfg.ToggleFavorite(testStation("jazz24"))
	if !cfg.IsFavorite("jazz24") {
		t.Error("After first toggle, jazz24 should be favorite")
	}

	cfg.ToggleFavorite(testStation("jazz24"))
	if cfg.IsFavorite("jazz24") {
		t.Error("After second toggle, jazz24 should not be favorite")
	}
}

func TestCleanupFavorites(t *testing.T) {
	insecure := testStation("plain")
	insecure.StreamURL = "http://plain.example.com/live.mp3"
	playlist := testStation("pls")
	playlist.StreamURL = "https://pls.example.com/listen.pls"

	cfg := &Config{Favorites: []station.Station{
		testStation("a"),
		insecure,
		testStation("a"),
		playlist,
		{Name: "no id", StreamURL: "https://x.example.com/live"},
		testStation("b"),
	}}

	cfg.CleanupFavorites()

	if len(cfg.Favorites) != 2 || cfg.Favorites[0].ID != "a" || cfg.Favorites[1].ID != "b" {
		t.Errorf("CleanupFavorites() = %v, want [a b]", cfg.Favorites)
	}
}

func TestFavoritesPersistence(t *testing.T) {
	tmpDir := t.TempDir()
	t.Setenv("HOME", tmpDir)

	testCfg := DefaultConfig()
	testCfg.Favorites = []station.Station{testStation("a"), testStation("b")}
	if err := testCfg.Save(); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	loadedCfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if len(loadedCfg.Favorites) != 2 {
		t.Fatalf("Load().Favorites has %d items, want 2", len(loadedCfg.Favorites))
	}
	got := loadedCfg.Favorites[1]
	want := testStation("b")
	if got.ID != want.ID || got.StreamURL != want.StreamURL || got.Name != want.Name || len(got.Tags) != 1 {
		t.Errorf("Favorites[1] = %+v, want %+v", got, want)
	}
}

func TestGetColor(t *testing.T) {
	for _, s := range []string{"", "default"} {
		if got := GetColor(s); got != 0 {
			t.Errorf("GetColor(%q) = %v, want ColorDefault (0)", s, got)
		}
	}
	if GetColor("#ff0000") == 0 {
		t.Error("GetColor(#ff0000) returned ColorDefault")
	}
}

func TestLoadInvalidYAML(t *testing.T) {
	tmpDir := t.TempDir()
	t.Setenv("HOME", tmpDir)

	writeConfigFile(t, tmpDir, "this is not: valid: yaml: [")

	cfg, err := Load()
	if err == nil {
		t.Error("Load() should report invalid YAML")
	}
	if cfg.Volume != DefaultVolume {
		t.Errorf("Load() with invalid YAML returned Volume = %d, want default %d", cfg.Volume, DefaultVolume)
	}
}

func TestGetConfigPath(t *testing.T) {
	path, err := GetConfigPath()
	if err != nil {
		t.Fatalf("GetConfigPath() error = %v", err)
	}
	if !filepath.IsAbs(path) {
		t.Errorf("GetConfigPath() = %q, want absolute path", path)
	}
}
