package presenter

import "errors"

// Common errors
var (
	ErrUnknownTab    = errors.New("unknown tab")
	ErrUnknownVoice  = errors.New("unknown voice")
	ErrUnknownFormat = errors.New("unknown download format")
	ErrPlayback      = errors.New("playback failed")
	ErrNoClipboard   = errors.New("no clipboard available")

	// ErrUndetectedSource rejects speaking the original text when its language is unknown
	ErrUndetectedSource = errors.New("source language was not detected")
)

// Notices shown after a failed playback
const (
	NoticeSynthesisFailed = "Ошибка генерации голоса. Попробуйте позже."
	NoticePlaybackFailed  = "Ошибка воспроизведения аудио"
)
