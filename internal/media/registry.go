// Package media classifies submitted files and describes how their processing is presented
package media

import (
	"fmt"
	"mime"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/example/mediatranslate/internal/models"
)

// Stage is one step of the simulated processing timeline
type Stage struct {
	Title       string `json:"title"`
	Description string `json:"description"`
}

// Profile describes a media class: which extensions belong to it and
// how many simulated stages its processing shows
type Profile struct {
	Type       models.FileType
	Extensions []string
	StageCount int
	Stages     []Stage
}

// GetContentTypeByExt returns the content type based on file extension
func GetContentTypeByExt(filename string) string {
	ext := filepath.Ext(filename)
	if ext == "" {
		return "application/octet-stream"
	}

	contentType := mime.TypeByExtension(strings.ToLower(ext))
	if contentType == "" {
		return "application/octet-stream"
	}

	return contentType
}

// Ext returns the lower-cased extension of filename including the dot
func Ext(filename string) string {
	return strings.ToLower(filepath.Ext(filename))
}

// Registry maintains the media profiles by type and extension
type Registry struct {
	mu       sync.RWMutex
	profiles map[models.FileType]Profile
	byExt    map[string]models.FileType
}

// NewRegistry creates an empty registry
func NewRegistry() *Registry {
	return &Registry{
		profiles: make(map[models.FileType]Profile),
		byExt:    make(map[string]models.FileType),
	}
}

// Register adds or replaces a profile
func (r *Registry) Register(p Profile) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.profiles[p.Type] = p
	for _, ext := range p.Extensions {
		r.byExt[strings.ToLower(ext)] = p.Type
	}
}

// Classify maps a file name to its profile by extension.
// Unknown or missing extensions return ErrUnsupportedFormat.
func (r *Registry) Classify(filename string) (Profile, error) {
	ext := Ext(filename)

	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.byExt[ext]
	if !ok || ext == "" {
		if ext == "" {
			ext = "неизвестный"
		}
		return Profile{}, fmt.Errorf("%w: %s", ErrUnsupportedFormat, ext)
	}
	return r.profiles[t], nil
}

// Profile returns the profile registered for t
func (r *Registry) Profile(t models.FileType) (Profile, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.profiles[t]
	return p, ok
}

// StageCount returns the number of simulated stages for t, 2 when t is unknown
func (r *Registry) StageCount(t models.FileType) int {
	if p, ok := r.Profile(t); ok && p.StageCount > 0 {
		return p.StageCount
	}
	return 2
}

// Extensions lists every accepted extension, sorted
func (r *Registry) Extensions() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	exts := make([]string, 0, len(r.byExt))
	for ext := range r.byExt {
		exts = append(exts, ext)
	}
	sort.Strings(exts)
	return exts
}

var (
	stageOCR       = Stage{Title: "Извлечение текста", Description: "OCR обработка"}
	stageSpeech    = Stage{Title: "Распознавание речи", Description: "Whisper V3"}
	stageTranslate = Stage{Title: "Перевод", Description: "AI Translation"}
	stageVoice     = Stage{Title: "Генерация голоса", Description: "TTS синтез"}
	stageVideo     = Stage{Title: "Обработка видео", Description: "Финализация"}
)

// DefaultRegistry is the default profile registry
var DefaultRegistry = NewRegistry()

func init() {
	DefaultRegistry.Register(Profile{
		Type:       models.FileTypeImage,
		Extensions: []string{".jpg", ".jpeg", ".png"},
		StageCount: 2,
		Stages:     []Stage{stageOCR, stageTranslate},
	})
	DefaultRegistry.Register(Profile{
		Type:       models.FileTypeAudio,
		Extensions: []string{".mp3", ".wav", ".m4a"},
		StageCount: 3,
		Stages:     []Stage{stageSpeech, stageTranslate},
	})
	DefaultRegistry.Register(Profile{
		Type:       models.FileTypeVideo,
		Extensions: []string{".mp4", ".webm", ".avi"},
		StageCount: 5,
		Stages:     []Stage{stageSpeech, stageTranslate, stageVoice, stageVideo},
	})
	// Text never comes from an upload; it only needs a timeline.
	DefaultRegistry.Register(Profile{
		Type:       models.FileTypeText,
		StageCount: 2,
		Stages:     []Stage{stageTranslate},
	})
}

// StageCount returns the stage count of t from the default registry
func StageCount(t models.FileType) int {
	return DefaultRegistry.StageCount(t)
}
