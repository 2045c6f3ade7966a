// Package langsel keeps the ordered set of target languages chosen by the user
package langsel

import (
	"errors"
	"fmt"
	"regexp"
	"sync"
)

// ErrUnknownLanguage is returned when a code is not in the catalog
var ErrUnknownLanguage = errors.New("unknown language")

// Language is a catalog entry
type Language struct {
	Code string `json:"code"`
	Name string `json:"name"`
	Flag string `json:"flag"`
}

// Catalog lists the selectable target languages in display order
var Catalog = []Language{
	{Code: "ru", Name: "Русский", Flag: "🇷🇺"},
	{Code: "kk", Name: "Қазақша", Flag: "🇰🇿"},
	{Code: "en", Name: "English", Flag: "🇬🇧"},
	{Code: "de", Name: "Deutsch", Flag: "🇩🇪"},
	{Code: "fr", Name: "Français", Flag: "🇫🇷"},
	{Code: "es", Name: "Español", Flag: "🇪🇸"},
	{Code: "zh", Name: "中文", Flag: "🇨🇳"},
	{Code: "it", Name: "Italiano", Flag: "🇮🇹"},
	{Code: "pt", Name: "Português", Flag: "🇵🇹"},
	{Code: "ar", Name: "العربية", Flag: "🇸🇦"},
	{Code: "tr", Name: "Türkçe", Flag: "🇹🇷"},
}

// DefaultCodes is the initial selection
var DefaultCodes = []string{"ru", "kk", "en"}

var codePattern = regexp.MustCompile(`^[a-z]{2}$`)

// Lookup returns the catalog entry for code
func Lookup(code string) (Language, bool) {
	for _, l := range Catalog {
		if l.Code == code {
			return l, true
		}
	}
	return Language{}, false
}

// Set is an ordered set of language codes that is never empty.
// Order is selection order.
type Set struct {
	mu    sync.RWMutex
	codes []string
}

// New creates a set from codes. Duplicates are dropped; an empty or
// fully unknown input falls back to DefaultCodes.
func New(codes ...string) *Set {
	s := &Set{}
	for _, c := range codes {
		if _, ok := Lookup(c); !ok || s.contains(c) {
			continue
		}
		s.codes = append(s.codes, c)
	}
	if len(s.codes) == 0 {
		s.codes = append([]string(nil), DefaultCodes...)
	}
	return s
}

// Default creates a set holding DefaultCodes
func Default() *Set {
	return New(DefaultCodes...)
}

// Toggle appends code when absent and removes it when present.
// Removing the last remaining code is a no-op.
func (s *Set) Toggle(code string) error {
	if !codePattern.MatchString(code) {
		return fmt.Errorf("%w: %q", ErrUnknownLanguage, code)
	}
	if _, ok := Lookup(code); !ok {
		return fmt.Errorf("%w: %s", ErrUnknownLanguage, code)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for i, c := range s.codes {
		if c != code {
			continue
		}
		if len(s.codes) == 1 {
			return nil
		}
		s.codes = append(s.codes[:i:i], s.codes[i+1:]...)
		return nil
	}
	s.codes = append(s.codes, code)
	return nil
}

// Codes returns a copy of the selected codes in order
func (s *Set) Codes() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]string(nil), s.codes...)
}

// Len returns the number of selected codes
func (s *Set) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.codes)
}

// Contains reports whether code is selected
func (s *Set) Contains(code string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.contains(code)
}

func (s *Set) contains(code string) bool {
	for _, c := range s.codes {
		if c == code {
			return true
		}
	}
	return false
}
