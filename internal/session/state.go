package session

import (
	"fmt"
	"time"

	"github.com/example/mediatranslate/internal/media"
	"github.com/example/mediatranslate/internal/models"
)

// Phase is the step the user is on
type Phase string

const (
	PhaseUpload     Phase = "upload"
	PhaseProcessing Phase = "processing"
	PhaseResult     Phase = "result"
)

// Processing describes a running session
type Processing struct {
	StartedAt      time.Time       `json:"startedAt"`
	ElapsedSeconds int             `json:"elapsedSeconds"`
	StageIndex     int             `json:"stageIndex"`
	StageCount     int             `json:"stageCount"`
	Stages         []media.Stage   `json:"stages"`
	FileType       models.FileType `json:"fileType"`
	Filename       string          `json:"filename"`
	UploadProgress int             `json:"uploadProgress"`
	Demo           bool            `json:"demo"`
}

// ResultState is a finished session
type ResultState struct {
	Data     *models.ProcessingResult `json:"data"`
	FileType models.FileType          `json:"fileType"`
	Filename string                   `json:"filename"`
}

// State is an immutable snapshot of the machine. Exactly one of
// Processing and Result is set outside the upload phase.
type State struct {
	Phase      Phase        `json:"phase"`
	Session    uint64       `json:"session"`
	Error      string       `json:"error,omitempty"`
	Processing *Processing  `json:"processing,omitempty"`
	Result     *ResultState `json:"result,omitempty"`
}

// FormatElapsed renders seconds as "<m>м <s>с", or "<s>с" under a minute
func FormatElapsed(seconds int) string {
	if seconds < 0 {
		seconds = 0
	}
	m, s := seconds/60, seconds%60
	if m > 0 {
		return fmt.Sprintf("%dм %dс", m, s)
	}
	return fmt.Sprintf("%dс", s)
}

// EstimatedProgress gives a smooth 0-100 progress figure for st
func EstimatedProgress(st State) float64 {
	switch st.Phase {
	case PhaseProcessing:
		return media.EstimateProgress(time.Duration(st.Processing.ElapsedSeconds) * time.Second)
	case PhaseResult:
		return 100
	default:
		return 0
	}
}
