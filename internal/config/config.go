package config

import (
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/gdamore/tcell/v2"
	"github.com/glebovdev/moodradio/internal/api"
	"github.com/glebovdev/moodradio/internal/playback"
	"github.com/glebovdev/moodradio/internal/station"
	"github.com/glebovdev/moodradio/internal/store"
	"github.com/glebovdev/moodradio/internal/validate"
	"gopkg.in/yaml.v3"
)

const (
	AppName           = "moodradio"
	AppTagline        = "Radio for your mood"
	AppDescription    = "A terminal radio player that turns a mood into a live internet station"
	AppAuthor         = "Ilya Glebov"
	AppAuthorURL      = "https://ilyaglebov.dev"
	AppAuthorURLShort = "ilyaglebov.dev"
	AppProjectURL     = "https://github.com/glebovdev/moodradio"
	AppProjectShort   = "github.com/glebovdev/moodradio"
	AppDirectoryURL   = "https://www.radio-browser.info"
	AppDirectoryShort = "radio-browser.info"

	ConfigDir      = ".config/moodradio"
	ConfigFileName = "config.yml"
	DefaultVolume  = 70
	MinVolume      = 0
	MaxVolume      = 100
	DefaultLang    = "en"
)

// Environment variables applied on top of the config file.
const (
	EnvLang           = "MOODRADIO_LANG"
	EnvMirrors        = "MOODRADIO_MIRRORS"
	EnvMaxFailures    = "MOODRADIO_MAX_FAILURES"
	EnvLLMBaseURL     = "MOODRADIO_LLM_BASE_URL"
	EnvLLMModel       = "MOODRADIO_LLM_MODEL"
	EnvLLMAPIKey      = "MOODRADIO_LLM_API_KEY"
	EnvStorageBackend = "MOODRADIO_STORAGE"
	EnvRedisAddr      = "MOODRADIO_REDIS_ADDR"
	EnvRedisPassword  = "MOODRADIO_REDIS_PASSWORD"
	EnvRedisDB        = "MOODRADIO_REDIS_DB"
	EnvSQLitePath     = "MOODRADIO_SQLITE_PATH"
	EnvMetricsAddr    = "MOODRADIO_METRICS_ADDR"
)

var supportedLangs = []string{"en", "ru"}

// ClampVolume ensures volume is within the valid range [0, 100].
func ClampVolume(volume int) int {
	if volume < MinVolume {
		return MinVolume
	}
	if volume > MaxVolume {
		return MaxVolume
	}
	return volume
}

// AppVersion can be overridden at build time using ldflags:
// go build -ldflags "-X github.com/glebovdev/moodradio/internal/config.AppVersion=1.0.0"
var AppVersion = "dev"

type Theme struct {
	Background                  string `yaml:"background"`
	Foreground                  string `yaml:"foreground"`
	Borders                     string `yaml:"borders"`
	Highlight                   string `yaml:"highlight"`
	MutedVolume                 string `yaml:"muted_volume"`
	HeaderBackground            string `yaml:"header_background"`
	StationListHeaderBackground string `yaml:"station_list_header_background"`
	StationListHeaderForeground string `yaml:"station_list_header_foreground"`
	HelpBackground              string `yaml:"help_background"`
	HelpForeground              string `yaml:"help_foreground"`
	HelpHotkey                  string `yaml:"help_hotkey"`
	GenreTagBackground          string `yaml:"genre_tag_background"`
	ModalBackground             string `yaml:"modal_background"`
}

type Directory struct {
	Mirrors  []string `yaml:"mirrors"`
	PageSize int      `yaml:"page_size"`
	// Denylist holds extra station IDs that are never offered.
	Denylist []string `yaml:"denylist,omitempty"`
}

type Timeouts struct {
	Watchdog     time.Duration `yaml:"watchdog"`
	StallGrace   time.Duration `yaml:"stall_grace"`
	Verification time.Duration `yaml:"verification"`
	QuickSkip    time.Duration `yaml:"quick_skip"`
	Probe        time.Duration `yaml:"probe"`
	Mirror       time.Duration `yaml:"mirror"`
	LLM          time.Duration `yaml:"llm"`
}

type LLM struct {
	BaseURL string `yaml:"base_url"`
	Model   string `yaml:"model"`
	// APIKey only comes from the environment and is never written to disk.
	APIKey string `yaml:"-"`
}

type Storage struct {
	Backend       string `yaml:"backend"`
	RedisAddr     string `yaml:"redis_addr,omitempty"`
	RedisPassword string `yaml:"-"`
	RedisDB       int    `yaml:"redis_db,omitempty"`
	SQLitePath    string `yaml:"sqlite_path,omitempty"`
}

type Config struct {
	Volume      int               `yaml:"volume"`
	Lang        string            `yaml:"lang"`
	LastGenre   string            `yaml:"last_genre"`
	Autostart   bool              `yaml:"autostart"`
	Favorites   []station.Station `yaml:"favorites"`
	Directory   Directory         `yaml:"directory"`
	Timeouts    Timeouts          `yaml:"timeouts"`
	MaxFailures int               `yaml:"max_failures"`
	LLM         LLM               `yaml:"llm"`
	Storage     Storage           `yaml:"storage"`
	MetricsAddr string            `yaml:"metrics_addr,omitempty"`
	Theme       Theme             `yaml:"theme"`
}

func GetConfigPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get user home directory: %w", err)
	}

	configPath := filepath.Join(home, ConfigDir, ConfigFileName)
	return configPath, nil
}

// Load reads the config file and applies MOODRADIO_* overrides on top.
// A missing or broken file still yields a usable config.
func Load() (*Config, error) {
	cfg, err := loadFile()
	cfg.applyEnv()
	cfg.normalize()
	return cfg, err
}

func loadFile() (*Config, error) {
	configPath, err := GetConfigPath()
	if err != nil {
		return DefaultConfig(), err
	}

	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		return DefaultConfig(), nil
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return DefaultConfig(), fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return DefaultConfig(), fmt.Errorf("failed to parse config file: %w", err)
	}
	return cfg, nil
}

func (c *Config) applyEnv() {
	c.Lang = getEnv(EnvLang, c.Lang)
	if mirrors := getEnvList(EnvMirrors); len(mirrors) > 0 {
		c.Directory.Mirrors = mirrors
	}
	c.MaxFailures = getEnvInt(EnvMaxFailures, c.MaxFailures)

	c.LLM.BaseURL = getEnv(EnvLLMBaseURL, c.LLM.BaseURL)
	c.LLM.Model = getEnv(EnvLLMModel, c.LLM.Model)
	c.LLM.APIKey = getEnv(EnvLLMAPIKey, c.LLM.APIKey)

	c.Storage.Backend = getEnv(EnvStorageBackend, c.Storage.Backend)
	c.Storage.RedisAddr = getEnv(EnvRedisAddr, c.Storage.RedisAddr)
	c.Storage.RedisPassword = getEnv(EnvRedisPassword, c.Storage.RedisPassword)
	c.Storage.RedisDB = getEnvInt(EnvRedisDB, c.Storage.RedisDB)
	c.Storage.SQLitePath = getEnv(EnvSQLitePath, c.Storage.SQLitePath)

	c.MetricsAddr = getEnv(EnvMetricsAddr, c.MetricsAddr)
}

func (c *Config) normalize() {
	def := DefaultConfig()

	c.Volume = ClampVolume(c.Volume)
	c.Lang = strings.ToLower(strings.TrimSpace(c.Lang))
	if !slices.Contains(supportedLangs, c.Lang) {
		c.Lang = DefaultLang
	}
	if c.MaxFailures <= 0 {
		c.MaxFailures = def.MaxFailures
	}
	if c.Directory.PageSize <= 0 {
		c.Directory.PageSize = def.Directory.PageSize
	}
	if c.Storage.Backend == "" {
		c.Storage.Backend = def.Storage.Backend
	}

	durations := []struct {
		got *time.Duration
		def time.Duration
	}{
		{&c.Timeouts.Watchdog, def.Timeouts.Watchdog},
		{&c.Timeouts.StallGrace, def.Timeouts.StallGrace},
		{&c.Timeouts.Verification, def.Timeouts.Verification},
		{&c.Timeouts.QuickSkip, def.Timeouts.QuickSkip},
		{&c.Timeouts.Probe, def.Timeouts.Probe},
		{&c.Timeouts.Mirror, def.Timeouts.Mirror},
		{&c.Timeouts.LLM, def.Timeouts.LLM},
	}
	for _, d := range durations {
		if *d.got <= 0 {
			*d.got = d.def
		}
	}

	c.CleanupFavorites()
}

// Save writes the configuration to disk atomically using temp file + rename.
func (c *Config) Save() error {
	configPath, err := GetConfigPath()
	if err != nil {
		return err
	}

	configDir := filepath.Dir(configPath)
	if err := os.MkdirAll(configDir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	tmpFile, err := os.CreateTemp(configDir, ".config-*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpPath := tmpFile.Name()

	defer func() {
		if tmpPath != "" {
			os.Remove(tmpPath)
		}
	}()

	if _, err := tmpFile.Write(data); err != nil {
		tmpFile.Close()
		return fmt.Errorf("failed to write temp file: %w", err)
	}

	if err := tmpFile.Close(); err != nil {
		return fmt.Errorf("failed to close temp file: %w", err)
	}

	if err := os.Rename(tmpPath, configPath); err != nil {
		return fmt.Errorf("failed to rename config file: %w", err)
	}

	tmpPath = ""
	return nil
}

func DefaultConfig() *Config {
	return &Config{
		Volume:    DefaultVolume,
		Lang:      DefaultLang,
		Favorites: []station.Station{},
		Directory: Directory{
			Mirrors:  slices.Clone(api.DefaultMirrors),
			PageSize: api.DefaultPageSize,
		},
		Timeouts: Timeouts{
			Watchdog:     playback.DefaultWatchdogTimeout,
			StallGrace:   playback.DefaultStallGrace,
			Verification: playback.DefaultVerifyAfter,
			QuickSkip:    playback.DefaultQuickSkipWindow,
			Probe:        validate.DefaultProbeTimeout,
			Mirror:       api.DefaultMirrorTimeout,
			LLM:          api.DefaultLLMTimeout,
		},
		MaxFailures: playback.DefaultMaxFailures,
		LLM: LLM{
			BaseURL: api.DefaultLLMBaseURL,
			Model:   api.DefaultLLMModel,
		},
		Storage: Storage{
			Backend: store.BackendFile,
		},
		Theme: Theme{
			Background:                  "#1a1b25",
			Foreground:                  "#a3aacb",
			Borders:                     "#40445b",
			Highlight:                   "#ff9d65",
			MutedVolume:                 "#fe0702",
			HeaderBackground:            "#473533",
			StationListHeaderBackground: "#3a3d4f",
			StationListHeaderForeground: "#c8d0e8",
			HelpBackground:              "#322f45",
			HelpForeground:              "#9aa3c6",
			HelpHotkey:                  "#ff9d65",
			GenreTagBackground:          "#3a3d4f",
			ModalBackground:             "#282a36",
		},
	}
}

// PlaybackConfig returns the controller settings derived from the config.
func (c *Config) PlaybackConfig() playback.Config {
	cfg := playback.DefaultConfig()
	cfg.WatchdogTimeout = c.Timeouts.Watchdog
	cfg.StallGrace = c.Timeouts.StallGrace
	cfg.VerifyAfter = c.Timeouts.Verification
	cfg.QuickSkipWindow = c.Timeouts.QuickSkip
	cfg.MaxFailures = c.MaxFailures
	return cfg
}

// StoreOptions returns the station store settings rooted at dir.
func (c *Config) StoreOptions(dir string) store.Options {
	return store.Options{
		Backend:       c.Storage.Backend,
		Dir:           dir,
		RedisAddr:     c.Storage.RedisAddr,
		RedisPassword: c.Storage.RedisPassword,
		RedisDB:       c.Storage.RedisDB,
		SQLitePath:    c.Storage.SQLitePath,
	}
}

func (c *Config) IsFavorite(stationID string) bool {
	return slices.ContainsFunc(c.Favorites, func(st station.Station) bool {
		return st.ID == stationID
	})
}

// ToggleFavorite adds or removes st and reports whether it is now a favorite.
func (c *Config) ToggleFavorite(st station.Station) bool {
	for i, fav := range c.Favorites {
		if fav.ID == st.ID {
			c.Favorites = slices.Delete(c.Favorites, i, i+1)
			return false
		}
	}
	c.Favorites = append(c.Favorites, st)
	return true
}

// CleanupFavorites drops duplicate and unplayable favorites.
func (c *Config) CleanupFavorites() {
	cleaned := []station.Station{}
	for _, st := range station.Dedupe(c.Favorites) {
		if st.IsPlayable() {
			cleaned = append(cleaned, st)
		}
	}
	c.Favorites = cleaned
}

func GetColor(colorStr string) tcell.Color {
	if colorStr == "" || colorStr == "default" {
		return tcell.ColorDefault
	}
	return tcell.GetColor(colorStr)
}

func getEnv(key, def string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return def
}

func getEnvInt(key string, def int) int {
	if val := os.Getenv(key); val != "" {
		if parsed, err := strconv.Atoi(val); err == nil {
			return parsed
		}
	}
	return def
}

// getEnvList splits a comma-separated variable, dropping empty entries.
func getEnvList(key string) []string {
	var out []string
	for _, part := range strings.Split(os.Getenv(key), ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
