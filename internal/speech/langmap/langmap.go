// Package langmap normalizes the short language codes the kiosk UI uses
// into the vendor locales speech APIs expect. Recognition and synthesis
// keep separate tables because vendors disagree on Arabic: recognition
// wants a real locale like ar-SA while synthesis uses the synthetic
// ar-XA region.
package langmap

import (
	"fmt"
	"os"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"
)

const maxLangLen = 32

var defaultSTT = map[string]string{
	"en": "en-US",
	"es": "es-ES",
	"fr": "fr-FR",
	"ar": "ar-SA",
	"hy": "hy-AM",
	"ru": "ru-RU",
	"de": "de-DE",
	"it": "it-IT",
	"pt": "pt-BR",
	"tr": "tr-TR",
}

var defaultTTS = map[string]string{
	"en": "en-US",
	"es": "es-ES",
	"ar": "ar-XA",
	"hy": "hy-AM",
}

// Mapper resolves kiosk language codes to vendor locales.
type Mapper struct {
	mu  sync.RWMutex
	stt map[string]string
	tts map[string]string
}

// New returns a Mapper with the built-in tables.
func New() *Mapper {
	return &Mapper{stt: clone(defaultSTT), tts: clone(defaultTTS)}
}

type overrideFile struct {
	STT map[string]string `yaml:"stt"`
	TTS map[string]string `yaml:"tts"`
}

// LoadFile merges locale overrides from a YAML file into the tables.
// Keys present in the file win over the built-ins.
func (m *Mapper) LoadFile(path string) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("langmap: read %s: %w", path, err)
	}

	var o overrideFile
	if err := yaml.Unmarshal(raw, &o); err != nil {
		return fmt.Errorf("langmap: parse %s: %w", path, err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	for k, v := range o.STT {
		m.stt[strings.ToLower(strings.TrimSpace(k))] = strings.TrimSpace(v)
	}
	for k, v := range o.TTS {
		m.tts[strings.ToLower(strings.TrimSpace(k))] = strings.TrimSpace(v)
	}
	return nil
}

// STTLocale maps a kiosk language code to a recognition locale. Codes
// that already carry a region pass through, except ar-XA which is a
// synthesis-only region and is rewritten to ar-SA.
func (m *Mapper) STTLocale(lang string) string {
	x := clamp(lang)
	if x == "" {
		return "en-US"
	}
	low := strings.ToLower(x)
	if low == "ar-xa" {
		return "ar-SA"
	}
	if strings.Contains(low, "-") {
		return x
	}

	m.mu.RLock()
	defer m.mu.RUnlock()
	if loc, ok := m.stt[low]; ok {
		return loc
	}
	return x
}

// TTSLocale maps a kiosk language code to a synthesis locale.
func (m *Mapper) TTSLocale(lang string) string {
	x := clamp(lang)
	if x == "" {
		return ""
	}
	low := strings.ToLower(x)
	if strings.Contains(low, "-") {
		return x
	}

	m.mu.RLock()
	defer m.mu.RUnlock()
	if loc, ok := m.tts[low]; ok {
		return loc
	}
	return x
}

func clamp(s string) string {
	x := strings.TrimSpace(s)
	if len(x) > maxLangLen {
		x = x[:maxLangLen]
	}
	return x
}

func clone(m map[string]string) map[string]string {
	out := make(map[string]string, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}
