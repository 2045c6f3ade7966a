package langsel

import (
	"errors"
	"math/rand"
	"reflect"
	"testing"
)

func TestToggleAppendsAndRemoves(t *testing.T) {
	s := Default()

	if err := s.Toggle("de"); err != nil {
		t.Fatalf("Toggle(de) failed: %v", err)
	}
	if got, want := s.Codes(), []string{"ru", "kk", "en", "de"}; !reflect.DeepEqual(got, want) {
		t.Errorf("Codes() = %v, want %v", got, want)
	}

	if err := s.Toggle("kk"); err != nil {
		t.Fatalf("Toggle(kk) failed: %v", err)
	}
	if got, want := s.Codes(), []string{"ru", "en", "de"}; !reflect.DeepEqual(got, want) {
		t.Errorf("Codes() = %v, want %v", got, want)
	}
}

func TestToggleLastCodeIsNoop(t *testing.T) {
	s := New("en")
	if err := s.Toggle("en"); err != nil {
		t.Fatalf("Toggle(en) failed: %v", err)
	}
	if s.Len() != 1 || !s.Contains("en") {
		t.Errorf("expected [en] to remain, got %v", s.Codes())
	}
}

func TestToggleUnknownLanguage(t *testing.T) {
	s := Default()
	for _, code := range []string{"xx", "EN", "eng", ""} {
		if err := s.Toggle(code); !errors.Is(err, ErrUnknownLanguage) {
			t.Errorf("Toggle(%q) error = %v, want ErrUnknownLanguage", code, err)
		}
	}
	if s.Len() != 3 {
		t.Errorf("rejected toggles changed the set: %v", s.Codes())
	}
}

func TestCardinalityNeverDropsBelowOne(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	s := Default()
	for i := 0; i < 2000; i++ {
		code := Catalog[rng.Intn(len(Catalog))].Code
		if err := s.Toggle(code); err != nil {
			t.Fatalf("Toggle(%s) failed: %v", code, err)
		}
		if s.Len() < 1 {
			t.Fatalf("set became empty after toggling %s", code)
		}
	}
}

func TestNewFiltersInput(t *testing.T) {
	if got := New("en", "en", "xx", "de").Codes(); !reflect.DeepEqual(got, []string{"en", "de"}) {
		t.Errorf("New() = %v", got)
	}
	if got := New().Codes(); !reflect.DeepEqual(got, DefaultCodes) {
		t.Errorf("New() with no codes = %v, want defaults", got)
	}
}

func TestCodesReturnsCopy(t *testing.T) {
	s := Default()
	codes := s.Codes()
	codes[0] = "zz"
	if s.Codes()[0] != "ru" {
		t.Error("mutating Codes() result changed the set")
	}
}
