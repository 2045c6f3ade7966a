package models

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/shopspring/decimal"
)

// SourceLanguageAuto is reported when the backend could not detect the source language
const SourceLanguageAuto = "auto"

// ProcessingResult is the backend answer for one processed file.
// It is never mutated after decoding.
type ProcessingResult struct {
	Recognition Recognition `json:"recognition"`
	Translation Translation `json:"translation"`
}

// Recognition holds OCR or speech recognition output
type Recognition struct {
	Text          string        `json:"text"`
	Language      string        `json:"language,omitempty"`
	Confidence    *float64      `json:"confidence,omitempty"`
	BoundingBoxes []BoundingBox `json:"bounding_boxes,omitempty"`
	Speakers      *Speakers     `json:"speakers,omitempty"`
	Segments      []Segment     `json:"segments,omitempty"`
}

// BoundingBox is a text block found on an image
type BoundingBox struct {
	Text       string  `json:"text"`
	Confidence float64 `json:"confidence"`
}

// UnmarshalJSON clamps the confidence into [0,1]
func (b *BoundingBox) UnmarshalJSON(data []byte) error {
	type plain BoundingBox
	var raw plain
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	switch {
	case raw.Confidence < 0:
		raw.Confidence = 0
	case raw.Confidence > 1:
		raw.Confidence = 1
	}
	*b = BoundingBox(raw)
	return nil
}

// Speakers summarizes diarization output
type Speakers struct {
	NumSpeakers int `json:"num_speakers"`
}

// Segment is one diarized utterance. Start and End are seconds.
type Segment struct {
	Speaker string          `json:"speaker,omitempty"`
	Start   decimal.Decimal `json:"start"`
	End     decimal.Decimal `json:"end"`
	Text    string          `json:"text"`
}

// Translation holds the translated texts
type Translation struct {
	SourceLanguage string       `json:"source_language"`
	OriginalText   string       `json:"original_text,omitempty"`
	Translations   Translations `json:"translations"`
}

// UnmarshalJSON defaults a missing source language to "auto"
func (t *Translation) UnmarshalJSON(data []byte) error {
	type plain Translation
	var raw plain
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	if raw.SourceLanguage == "" {
		raw.SourceLanguage = SourceLanguageAuto
	}
	*t = Translation(raw)
	return nil
}

// Translations maps language codes to texts and keeps the order in which
// the codes first appeared.
type Translations struct {
	codes  []string
	values map[string]string
}

// NewTranslations builds translations from code/text pairs in order
func NewTranslations(pairs ...[2]string) Translations {
	var t Translations
	for _, p := range pairs {
		t.set(p[0], p[1])
	}
	return t
}

func (t *Translations) set(code, text string) {
	if t.values == nil {
		t.values = make(map[string]string)
	}
	if _, ok := t.values[code]; !ok {
		t.codes = append(t.codes, code)
	}
	t.values[code] = text
}

// Get returns the translation for code
func (t Translations) Get(code string) (string, bool) {
	text, ok := t.values[code]
	return text, ok
}

// Codes returns the language codes in insertion order
func (t Translations) Codes() []string {
	out := make([]string, len(t.codes))
	copy(out, t.codes)
	return out
}

// Len returns the number of translations
func (t Translations) Len() int {
	return len(t.codes)
}

// UnmarshalJSON walks the object token by token so key order survives.
func (t *Translations) UnmarshalJSON(data []byte) error {
	*t = Translations{}
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		return nil
	}

	dec := json.NewDecoder(bytes.NewReader(data))
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return fmt.Errorf("translations: expected object, got %v", tok)
	}

	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return err
		}
		code, ok := tok.(string)
		if !ok {
			return fmt.Errorf("translations: unexpected key %v", tok)
		}

		var value *string
		if err := dec.Decode(&value); err != nil {
			return fmt.Errorf("translations: value for %q: %w", code, err)
		}
		text := ""
		if value != nil {
			text = *value
		}
		t.set(code, text)
	}

	if _, err := dec.Token(); err != nil {
		return err
	}
	return nil
}

// MarshalJSON writes the object in insertion order
func (t Translations) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, code := range t.codes {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(code)
		if err != nil {
			return nil, err
		}
		value, err := json.Marshal(t.values[code])
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		buf.Write(value)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// HasSpeakers reports whether diarization found at least one speaker
func (r *ProcessingResult) HasSpeakers() bool {
	return r.Recognition.Speakers != nil && r.Recognition.Speakers.NumSpeakers > 0
}

// SourceLanguage returns the detected source language or "auto"
func (r *ProcessingResult) SourceLanguage() string {
	if r.Translation.SourceLanguage == "" {
		return SourceLanguageAuto
	}
	return r.Translation.SourceLanguage
}
