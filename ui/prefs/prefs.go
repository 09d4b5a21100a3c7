// Package prefs provides JSON-based application preferences.
package prefs

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sync"
)

const prefsFile = "preferences.json"

// Preference keys.
const (
	KeyPageHeight       = "pageHeightCm"
	KeyPageWidth        = "pageWidthCm"
	KeyPaddingTop       = "paddingTopCm"
	KeyPaddingBottom    = "paddingBottomCm"
	KeyInstructionsFile = "instructionsFile"
	KeyInstructionsText = "instructionsText"
	KeyLastDir          = "lastDirectory"
)

// Prefs stores application preferences as a key-value map.
type Prefs struct {
	mu     sync.RWMutex
	values map[string]interface{}
	path   string
}

// Load reads preferences from the user config directory. Returns empty
// preferences if the file doesn't exist.
func Load() *Prefs {
	configDir, err := os.UserConfigDir()
	if err != nil {
		configDir = filepath.Join(os.Getenv("HOME"), ".config")
	}
	return LoadFrom(filepath.Join(configDir, "bookfold", prefsFile))
}

// LoadFrom reads preferences from path.
func LoadFrom(path string) *Prefs {
	p := &Prefs{
		values: make(map[string]interface{}),
		path:   path,
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return p
	}
	if err := json.Unmarshal(data, &p.values); err != nil || p.values == nil {
		p.values = make(map[string]interface{})
	}
	return p
}

// Path returns the backing file.
func (p *Prefs) Path() string { return p.path }

// Save writes preferences to disk.
func (p *Prefs) Save() error {
	p.mu.RLock()
	data, err := json.MarshalIndent(p.values, "", "  ")
	p.mu.RUnlock()
	if err != nil {
		return err
	}

	dir := filepath.Dir(p.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	return os.WriteFile(p.path, data, 0o644)
}

// FloatWithFallback returns a float64 preference, or fallback if not set.
func (p *Prefs) FloatWithFallback(key string, fallback float64) float64 {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if v, ok := p.values[key]; ok {
		switch n := v.(type) {
		case float64:
			return n
		case int:
			return float64(n)
		}
	}
	return fallback
}

// SetFloat stores a float64 preference.
func (p *Prefs) SetFloat(key string, val float64) {
	p.mu.Lock()
	p.values[key] = val
	p.mu.Unlock()
}

// String returns a string preference, or "" if not set.
func (p *Prefs) String(key string) string {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if v, ok := p.values[key]; ok {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return ""
}

// SetString stores a string preference.
func (p *Prefs) SetString(key string, val string) {
	p.mu.Lock()
	p.values[key] = val
	p.mu.Unlock()
}

// Page is the persisted page setup.
type Page struct {
	HeightCm        float64
	WidthCm         float64
	PaddingTopCm    float64
	PaddingBottomCm float64
}

// Page returns the stored page setup, falling back to def per field.
func (p *Prefs) Page(def Page) Page {
	return Page{
		HeightCm:        p.FloatWithFallback(KeyPageHeight, def.HeightCm),
		WidthCm:         p.FloatWithFallback(KeyPageWidth, def.WidthCm),
		PaddingTopCm:    p.FloatWithFallback(KeyPaddingTop, def.PaddingTopCm),
		PaddingBottomCm: p.FloatWithFallback(KeyPaddingBottom, def.PaddingBottomCm),
	}
}

// SetPage stores the page setup.
func (p *Prefs) SetPage(pg Page) {
	p.SetFloat(KeyPageHeight, pg.HeightCm)
	p.SetFloat(KeyPageWidth, pg.WidthCm)
	p.SetFloat(KeyPaddingTop, pg.PaddingTopCm)
	p.SetFloat(KeyPaddingBottom, pg.PaddingBottomCm)
}
