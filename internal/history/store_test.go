package history

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/example/mediatranslate/internal/clock"
	"github.com/example/mediatranslate/internal/models"
	"github.com/example/mediatranslate/internal/storage"
)

var epoch = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

func newLocalSlot(t *testing.T, dir string) storage.Provider {
	t.Helper()
	slot := storage.NewLocalStorage()
	if err := slot.Initialize(map[string]string{"basePath": dir}); err != nil {
		t.Fatalf("Failed to initialize slot: %v", err)
	}
	return slot
}

// faultySlot fails every operation
type faultySlot struct{}

func (faultySlot) Initialize(map[string]string) error { return nil }
func (faultySlot) Load(context.Context, string) ([]byte, error) {
	return nil, errors.New("disk on fire")
}
func (faultySlot) Save(context.Context, string, []byte) error { return errors.New("disk on fire") }
func (faultySlot) Delete(context.Context, string) error       { return errors.New("disk on fire") }

func item(name string) models.HistoryItem {
	return models.HistoryItem{
		Filename:        name,
		FileType:        models.FileTypeImage,
		SourceLanguage:  "ru",
		TargetLanguages: []string{"en"},
		WordCount:       3,
		Duration:        "4с",
	}
}

func TestRecordKeepsMostRecentTen(t *testing.T) {
	clk := clock.NewManual(epoch)
	s := NewStore(newLocalSlot(t, t.TempDir()), Options{Clock: clk})

	for i := 0; i < 25; i++ {
		s.Record(item(fmt.Sprintf("file-%d.png", i)))
		clk.Advance(time.Second)
		if n := len(s.List()); n > DefaultLimit {
			t.Fatalf("history has %d items after %d records", n, i+1)
		}
	}

	items := s.List()
	if len(items) != 10 {
		t.Fatalf("expected 10 items, got %d", len(items))
	}
	if items[0].Filename != "file-24.png" || items[9].Filename != "file-15.png" {
		t.Errorf("unexpected order: first %s, last %s", items[0].Filename, items[9].Filename)
	}
}

func TestRecordAssignsMonotonicIDs(t *testing.T) {
	clk := clock.NewManual(epoch)
	s := NewStore(nil, Options{Clock: clk})

	a := s.Record(item("a.png"))
	b := s.Record(item("b.png"))
	if a.ID == "" || b.ID == "" || a.ID == b.ID {
		t.Fatalf("ids not unique: %q %q", a.ID, b.ID)
	}
	if a.ID != fmt.Sprint(epoch.UnixMilli()) || b.ID != fmt.Sprint(epoch.UnixMilli()+1) {
		t.Errorf("unexpected ids %s %s", a.ID, b.ID)
	}
	if !a.Timestamp.Equal(epoch) {
		t.Errorf("timestamp = %v, want %v", a.Timestamp, epoch)
	}
}

func TestHistorySurvivesReopen(t *testing.T) {
	dir := t.TempDir()
	s := NewStore(newLocalSlot(t, dir), Options{Clock: clock.NewManual(epoch)})
	s.Record(item("kept.mp3"))

	reopened := NewStore(newLocalSlot(t, dir), Options{})
	items := reopened.List()
	if len(items) != 1 || items[0].Filename != "kept.mp3" {
		t.Fatalf("expected persisted item, got %+v", items)
	}
}

func TestStorageFaultsAreAbsorbed(t *testing.T) {
	var notified []int
	s := NewStore(faultySlot{}, Options{Clock: clock.NewManual(epoch)})
	s.Subscribe(func(items []models.HistoryItem) { notified = append(notified, len(items)) })

	s.Record(item("a.png"))
	s.Record(item("b.png"))

	items := s.List()
	if len(items) != 2 || items[0].Filename != "b.png" {
		t.Fatalf("in-memory copy should hold both items, got %+v", items)
	}
	if !s.Remove(items[1].ID) {
		t.Error("Remove should succeed against the in-memory copy")
	}
	s.Clear()

	if fmt.Sprint(notified) != "[1 2 1 0]" {
		t.Errorf("unexpected notifications %v", notified)
	}
}

func TestRemoveAndClear(t *testing.T) {
	dir := t.TempDir()
	s := NewStore(newLocalSlot(t, dir), Options{Clock: clock.NewManual(epoch)})
	a := s.Record(item("a.png"))
	b := s.Record(item("b.png"))

	if s.Remove("missing") {
		t.Error("Remove of unknown id reported success")
	}
	if !s.Remove(a.ID) {
		t.Fatal("Remove failed")
	}
	items := s.List()
	if len(items) != 1 || items[0].ID != b.ID {
		t.Fatalf("unexpected items after remove: %+v", items)
	}

	s.Clear()
	if len(s.List()) != 0 {
		t.Error("Clear left items behind")
	}
	if len(NewStore(newLocalSlot(t, dir), Options{}).List()) != 0 {
		t.Error("Clear did not delete the persisted record")
	}
}

func TestConcurrentRecordAndRemoveLoseNothing(t *testing.T) {
	s := NewStore(newLocalSlot(t, t.TempDir()), Options{Limit: 100})
	victim := s.Record(item("victim.png"))

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			s.Record(item(fmt.Sprintf("f%d.png", i)))
		}(i)
	}
	wg.Add(1)
	go func() {
		defer wg.Done()
		s.Remove(victim.ID)
	}()
	wg.Wait()

	items := s.List()
	if len(items) != 20 {
		t.Fatalf("expected 20 items, got %d", len(items))
	}
	for _, it := range items {
		if it.ID == victim.ID {
			t.Error("removed item came back")
		}
	}
}

func TestUnsubscribe(t *testing.T) {
	s := NewStore(nil, Options{})
	calls := 0
	unsubscribe := s.Subscribe(func([]models.HistoryItem) { calls++ })
	s.Record(item("a.png"))
	unsubscribe()
	s.Record(item("b.png"))
	if calls != 1 {
		t.Errorf("observer called %d times, want 1", calls)
	}
}

func TestListReturnsCopies(t *testing.T) {
	s := NewStore(nil, Options{})
	s.Record(item("a.png"))
	items := s.List()
	items[0].TargetLanguages[0] = "zz"
	if s.List()[0].TargetLanguages[0] != "en" {
		t.Error("mutating List() result changed the store")
	}
}

func TestTimeAgo(t *testing.T) {
	tests := []struct {
		ago  time.Duration
		want string
	}{
		{10 * time.Second, "только что"},
		{5 * time.Minute, "5 мин назад"},
		{3 * time.Hour, "3 ч назад"},
		{49 * time.Hour, "2 дн назад"},
	}
	for _, tt := range tests {
		if got := TimeAgo(epoch.Add(-tt.ago), epoch); got != tt.want {
			t.Errorf("TimeAgo(%v) = %q, want %q", tt.ago, got, tt.want)
		}
	}
}
