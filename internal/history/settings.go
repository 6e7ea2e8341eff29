// Package history persists global reader settings and the bounded
// recent-files list, including the per-file zoom/page-mode snapshots the
// session consults when re-opening a known path.
package history

import (
	"encoding/json"
	"fmt"
	"log"

	"github.com/spf13/afero"
)

// ZoomFileLoading selects where a freshly opened file takes its zoom and
// page-mode defaults from.
const (
	ZoomLoadHistory  = "history"
	ZoomLoadDefault  = "default"
	ZoomLoadLastUsed = "lastused"
)

const (
	defaultMaxRecentFiles = 100
	defaultCacheSize      = 16
	defaultWorkerTimeout  = 30
	defaultPDFReadingDPI  = 150
	defaultZoomScale      = 100
)

// Settings are the global reader defaults.
type Settings struct {
	ZoomFileLoading      string `json:"zoom_file_loading"`
	DefaultFitMode       int    `json:"default_fit_mode"`
	DefaultZoomScale     int    `json:"default_zoom_scale"`
	DefaultPageMode      int    `json:"default_page_mode"`
	AutoOpenNextFile     bool   `json:"auto_open_next_file"`
	WorkerTimeoutSeconds int    `json:"worker_timeout_seconds"`
	CacheSize            int    `json:"cache_size"`
	PDFReadingDPI        int    `json:"pdf_reading_dpi"`
	MaxRecentFiles       int    `json:"max_recent_files"`
}

// DefaultSettings returns the built-in defaults.
func DefaultSettings() Settings {
	return Settings{
		ZoomFileLoading:      ZoomLoadDefault,
		DefaultFitMode:       0,
		DefaultZoomScale:     defaultZoomScale,
		DefaultPageMode:      0,
		AutoOpenNextFile:     false,
		WorkerTimeoutSeconds: defaultWorkerTimeout,
		CacheSize:            defaultCacheSize,
		PDFReadingDPI:        defaultPDFReadingDPI,
		MaxRecentFiles:       defaultMaxRecentFiles,
	}
}

// validate clamps out-of-range values back to their defaults rather than
// failing the load; a broken settings file should never block opening files.
func (s *Settings) validate() {
	switch s.ZoomFileLoading {
	case ZoomLoadHistory, ZoomLoadDefault, ZoomLoadLastUsed:
	default:
		s.ZoomFileLoading = ZoomLoadDefault
	}
	if s.DefaultZoomScale < 10 || s.DefaultZoomScale > 800 {
		s.DefaultZoomScale = defaultZoomScale
	}
	if s.DefaultPageMode < 0 || s.DefaultPageMode > 2 {
		s.DefaultPageMode = 0
	}
	if s.WorkerTimeoutSeconds < 1 {
		s.WorkerTimeoutSeconds = defaultWorkerTimeout
	}
	if s.CacheSize < 1 {
		s.CacheSize = defaultCacheSize
	} else if s.CacheSize > 64 {
		s.CacheSize = 64
	}
	if s.PDFReadingDPI < 72 || s.PDFReadingDPI > 600 {
		s.PDFReadingDPI = defaultPDFReadingDPI
	}
	if s.MaxRecentFiles < 1 {
		s.MaxRecentFiles = defaultMaxRecentFiles
	}
}

// LoadSettings reads settings from path, falling back to defaults when the
// file is missing or unparseable.
func LoadSettings(fs afero.Fs, path string) Settings {
	settings := DefaultSettings()

	data, err := afero.ReadFile(fs, path)
	if err != nil {
		return settings
	}
	if err := json.Unmarshal(data, &settings); err != nil {
		log.Printf("Warning: invalid settings file %s, using defaults: %v", path, err)
		return DefaultSettings()
	}
	settings.validate()
	return settings
}

// SaveSettings writes settings to path.
func SaveSettings(fs afero.Fs, path string, settings Settings) error {
	data, err := json.MarshalIndent(settings, "", "  ")
	if err != nil {
		return fmt.Errorf("history: marshal settings: %w", err)
	}
	return afero.WriteFile(fs, path, data, 0644)
}
