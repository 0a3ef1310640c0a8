// Package i18n provides the display strings of the daemon in several languages.
//
// Day headers, the "no date" fallback and notification texts are rendered in
// the configured display locale. Languages resolve in this order:
//  1. DISPLAY_LOCALE (or an explicit tag passed to NewLocalizer)
//  2. Accept-Language of the UI request, when the caller asks for it
//  3. DefaultLanguage (es)
//
// Usage:
//
//	localizer := i18n.NewLocalizer("en")
//	msg := localizer.T("timeline.no_date")
//	// → "No date"
package i18n

import (
	"encoding/json"
	"fmt"
	"io/fs"
	"log"
	"strings"
	"sync"

	"golang.org/x/text/language"
)

// SupportedLanguages lists the language codes with a locale file.
var SupportedLanguages = []string{"es", "en"}

// DefaultLanguage is used for unknown or unsupported tags.
const DefaultLanguage = "es"

// translations holds lang → flat key → text.
// Loaded once at startup and read-only afterwards.
var (
	translations map[string]map[string]string
	loadOnce     sync.Once
)

// matcher maps arbitrary BCP 47 tags ("es-MX", "en-GB") onto a supported language.
// The first tag is the fallback.
var matcher = language.NewMatcher([]language.Tag{
	language.Spanish,
	language.English,
})

// Load reads one JSON file per supported language (es.json, en.json) from localesFS.
// Only the first call does any work.
func Load(localesFS fs.FS) error {
	var loadErr error

	loadOnce.Do(func() {
		translations = make(map[string]map[string]string)

		for _, lang := range SupportedLanguages {
			fileName := lang + ".json"

			data, err := fs.ReadFile(localesFS, fileName)
			if err != nil {
				loadErr = fmt.Errorf("failed to read translation file %s: %w", fileName, err)
				return
			}

			// {"timeline": {"no_date": "..."}} → "timeline.no_date"
			var nested map[string]any
			if err := json.Unmarshal(data, &nested); err != nil {
				loadErr = fmt.Errorf("failed to parse translation file %s: %w", fileName, err)
				return
			}

			flat := make(map[string]string)
			flattenMap("", nested, flat)
			translations[lang] = flat

			log.Printf("[i18n] loaded %d keys for language: %s", len(flat), lang)
		}
	})

	return loadErr
}

// Localizer translates keys for one language.
type Localizer struct {
	lang string
}

// NewLocalizer returns a Localizer for the closest supported language of tag.
func NewLocalizer(tag string) *Localizer {
	return &Localizer{lang: Match(tag)}
}

// Lang returns the resolved language code.
func (l *Localizer) Lang() string {
	return l.lang
}

// T returns the text for key.
// Missing keys fall back to DefaultLanguage, then to the key itself.
func (l *Localizer) T(key string) string {
	if msg, ok := translations[l.lang][key]; ok {
		return msg
	}
	if msg, ok := translations[DefaultLanguage][key]; ok {
		return msg
	}
	return key
}

// TWithParams replaces {{param}} placeholders in the translated text.
//
//	localizer.TWithParams("notify.body", map[string]string{"number": "5215550001", "text": "Hola"})
//	→ "5215550001: Hola"
func (l *Localizer) TWithParams(key string, params map[string]string) string {
	msg := l.T(key)
	for k, v := range params {
		msg = strings.ReplaceAll(msg, "{{"+k+"}}", v)
	}
	return msg
}

// Match resolves a BCP 47 tag or an Accept-Language header value to a
// supported language code.
func Match(tagOrHeader string) string {
	if strings.TrimSpace(tagOrHeader) == "" {
		return DefaultLanguage
	}

	tags, _, err := language.ParseAcceptLanguage(tagOrHeader)
	if err != nil || len(tags) == 0 {
		return DefaultLanguage
	}

	_, idx, confidence := matcher.Match(tags...)
	if confidence == language.No {
		return DefaultLanguage
	}
	return SupportedLanguages[idx]
}

// flattenMap converts nested JSON into dot-notation keys.
func flattenMap(prefix string, src map[string]any, dst map[string]string) {
	for k, v := range src {
		key := k
		if prefix != "" {
			key = prefix + "." + k
		}

		switch val := v.(type) {
		case string:
			dst[key] = val
		case map[string]any:
			flattenMap(key, val, dst)
		}
	}
}
