package upload

import (
	"errors"
	"fmt"
	"strings"

	"github.com/example/mediatranslate/internal/backend"
	"github.com/example/mediatranslate/internal/media"
	"github.com/example/mediatranslate/internal/workers"
)

// Pre-flight errors. Neither ever reaches the network.
var (
	ErrUnsupportedFormat = media.ErrUnsupportedFormat
	ErrFileTooLarge      = errors.New("file too large")
)

// DefaultBackendURL is shown in the unreachable message when no URL is known
const DefaultBackendURL = "http://localhost:8000"

// Message renders err as the single line of text shown on the upload step
func Message(err error, backendURL string) string {
	if backendURL == "" {
		backendURL = DefaultBackendURL
	}

	var be *backend.Error
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrUnsupportedFormat):
		return fmt.Sprintf("Неподдерживаемый формат файла: %s. Используйте изображения (JPG, PNG), аудио (MP3, WAV) или видео (MP4, WEBM)", unsupportedExt(err))
	case errors.Is(err, ErrFileTooLarge):
		return "Файл слишком большой. Максимальный размер: 100MB"
	case errors.Is(err, workers.ErrQueueFull):
		return "Сервер занят. Попробуйте позже."
	case errors.As(err, &be):
		switch be.Kind {
		case backend.KindUnreachable:
			return "Сервер не отвечает. Убедитесь, что backend запущен на " + backendURL
		case backend.KindServiceUnavailable:
			if strings.Contains(be.Detail, "не установлена") {
				return "AI-модель не установлена.\n\n" + be.Detail + "\n\nУстановите необходимые зависимости для обработки файлов."
			}
			return detailOrStatus(be)
		case backend.KindValidationFailed:
			return "Ошибка валидации: " + be.Detail
		case backend.KindServerError:
			return "Ошибка сервера: " + be.Detail
		default:
			return detailOrStatus(be)
		}
	default:
		return "Ошибка: " + err.Error()
	}
}

func detailOrStatus(be *backend.Error) string {
	if be.Detail != "" {
		return be.Detail
	}
	return fmt.Sprintf("Ошибка %d", be.Status)
}

// extError carries the rejected extension
type extError struct {
	ext string
}

func (e *extError) Error() string { return fmt.Sprintf("%s: %s", ErrUnsupportedFormat, e.ext) }
func (e *extError) Unwrap() error { return ErrUnsupportedFormat }

func unsupportedExt(err error) string {
	var ee *extError
	if errors.As(err, &ee) {
		return ee.ext
	}
	return "неизвестный"
}
