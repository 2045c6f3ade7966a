// Package models provides data structures shared by the media translation client
package models

import (
	"time"
)

// FileType is the media class of a submitted file
type FileType string

const (
	FileTypeImage FileType = "image"
	FileTypeAudio FileType = "audio"
	FileTypeVideo FileType = "video"
	FileTypeText  FileType = "text"
)

// HistoryItem is a summary of one successful processing session
type HistoryItem struct {
	ID              string    `json:"id"`
	Timestamp       time.Time `json:"timestamp"`
	Filename        string    `json:"filename"`
	FileType        FileType  `json:"fileType"`
	SourceLanguage  string    `json:"sourceLanguage"`
	TargetLanguages []string  `json:"targetLanguages"`
	WordCount       int       `json:"wordCount"`
	Duration        string    `json:"duration"`
	Fingerprint     string    `json:"fingerprint,omitempty"` // BLAKE3 of the uploaded bytes
}

// APIResponse is a generic API response structure
type APIResponse struct {
	Success bool        `json:"success"`
	Message string      `json:"message,omitempty"`
	Data    interface{} `json:"data,omitempty"`
	Error   string      `json:"error,omitempty"`
}
