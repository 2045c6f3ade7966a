package notify

import (
	"encoding/json"
	"time"

	"go.uber.org/zap"

	"github.com/example/mediatranslate/internal/models"
)

// Publisher sends a message body to a queue
type Publisher interface {
	Publish(queueName string, body []byte) error
}

// HistoryEvent is the message published on every history change
type HistoryEvent struct {
	Type      string               `json:"type"`
	Items     []models.HistoryItem `json:"items"`
	Timestamp time.Time            `json:"timestamp"`
}

// HistoryExporter publishes history snapshots. Its Observe method fits history.Observer.
type HistoryExporter struct {
	pub   Publisher
	queue string
	now   func() time.Time
	log   *zap.SugaredLogger
}

// NewHistoryExporter creates an exporter publishing to queue
func NewHistoryExporter(pub Publisher, queue string, log *zap.SugaredLogger) *HistoryExporter {
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	return &HistoryExporter{pub: pub, queue: queue, now: time.Now, log: log}
}

// Observe publishes items. Failures are logged and dropped.
func (e *HistoryExporter) Observe(items []models.HistoryItem) {
	if items == nil {
		items = []models.HistoryItem{}
	}
	body, err := json.Marshal(HistoryEvent{Type: "history", Items: items, Timestamp: e.now()})
	if err != nil {
		e.log.Errorw("failed to encode history event", "error", err)
		return
	}
	if err := e.pub.Publish(e.queue, body); err != nil {
		e.log.Warnw("failed to export history", "queue", e.queue, "error", err)
		return
	}
	e.log.Debugw("exported history", "queue", e.queue, "items", len(items))
}
