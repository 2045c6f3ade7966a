package backend

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func TestProcessQuickDecodesResult(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != PathProcessQuick || r.Method != http.MethodPost {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		if ct := r.Header.Get("Content-Type"); ct != "multipart/form-data; boundary=x" {
			t.Errorf("content type = %q", ct)
		}
		w.Write([]byte(`{
			"recognition": {"text": "Привет мир"},
			"translation": {"source_language": "ru", "translations": {"en": "Hello world", "kk": "Сәлем әлем"}}
		}`))
	}))
	defer server.Close()

	c := NewClient(server.URL, 5*time.Second, nil)
	result, err := c.ProcessQuick(context.Background(), strings.NewReader("body"), "multipart/form-data; boundary=x")
	if err != nil {
		t.Fatalf("ProcessQuick failed: %v", err)
	}
	if result.Recognition.Text != "Привет мир" {
		t.Errorf("text = %q", result.Recognition.Text)
	}
	if got := strings.Join(result.Translation.Translations.Codes(), ","); got != "en,kk" {
		t.Errorf("codes = %s", got)
	}
}

func TestProcessQuickClassifiesErrors(t *testing.T) {
	tests := []struct {
		status int
		body   string
		kind   Kind
		detail string
	}{
		{400, `{"detail":"bad language"}`, KindValidationFailed, "bad language"},
		{503, `{"detail":"Whisper is not installed: pip install openai-whisper"}`, KindServiceUnavailable, "Whisper is not installed: pip install openai-whisper"},
		{500, `{"message":"boom"}`, KindServerError, "boom"},
		{502, `gateway down`, KindUnknownHTTPError, "gateway down"},
		{422, `{"detail":[{"loc":["file"]}]}`, KindUnknownHTTPError, `[{"loc":["file"]}]`},
		{418, ``, KindUnknownHTTPError, ""},
	}

	for _, tt := range tests {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(tt.status)
			w.Write([]byte(tt.body))
		}))

		c := NewClient(server.URL, 5*time.Second, nil)
		_, err := c.ProcessQuick(context.Background(), strings.NewReader(""), "text/plain")
		server.Close()

		var be *Error
		if !errors.As(err, &be) {
			t.Fatalf("status %d: expected *Error, got %v", tt.status, err)
		}
		if be.Kind != tt.kind || be.Status != tt.status || be.Detail != tt.detail {
			t.Errorf("status %d: got %+v, want kind %s detail %q", tt.status, be, tt.kind, tt.detail)
		}
		if !IsKind(err, tt.kind) {
			t.Errorf("status %d: IsKind(%s) = false", tt.status, tt.kind)
		}
	}
}

func TestProcessQuickMalformedJSON(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"recognition": `))
	}))
	defer server.Close()

	_, err := NewClient(server.URL, 0, nil).ProcessQuick(context.Background(), strings.NewReader(""), "text/plain")
	if !IsKind(err, KindServerError) {
		t.Errorf("expected server error, got %v", err)
	}
}

func TestUnreachable(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	url := server.URL
	server.Close()

	_, err := NewClient(url, time.Second, nil).ProcessQuick(context.Background(), strings.NewReader(""), "text/plain")
	if !IsKind(err, KindUnreachable) {
		t.Errorf("expected unreachable, got %v", err)
	}
}

func TestCancelledRequestIsNotUnreachable(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	}))
	defer server.Close()

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(50 * time.Millisecond)
		cancel()
	}()
	_, err := NewClient(server.URL, 0, nil).ProcessQuick(ctx, strings.NewReader(""), "text/plain")
	if !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
}

func TestSynthesizeAndOpenAudio(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc(PathSynthesize, func(w http.ResponseWriter, r *http.Request) {
		var in SynthesizeRequest
		if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
			t.Errorf("bad body: %v", err)
		}
		if in.Language != "en" || in.Voice != "slow" || in.Text != "hello" {
			t.Errorf("unexpected request %+v", in)
		}
		w.Write([]byte(`{"audio_url": "/static/audio/abc.mp3"}`))
	})
	mux.HandleFunc("/static/audio/abc.mp3", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ID3audio"))
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	c := NewClient(server.URL+"/", 5*time.Second, nil)
	audioURL, err := c.Synthesize(context.Background(), SynthesizeRequest{Text: "hello", Language: "en", Voice: "slow"})
	if err != nil {
		t.Fatalf("Synthesize failed: %v", err)
	}
	if audioURL != server.URL+"/static/audio/abc.mp3" {
		t.Errorf("audio url = %s", audioURL)
	}

	body, err := c.OpenAudio(context.Background(), audioURL)
	if err != nil {
		t.Fatalf("OpenAudio failed: %v", err)
	}
	defer body.Close()
	data, _ := io.ReadAll(body)
	if string(data) != "ID3audio" {
		t.Errorf("audio = %q", data)
	}
}

func TestSynthesizeServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"detail":"tts offline"}`, http.StatusServiceUnavailable)
	}))
	defer server.Close()

	_, err := NewClient(server.URL, time.Second, nil).Synthesize(context.Background(), SynthesizeRequest{Text: "x"})
	if !errors.Is(err, &Error{Kind: KindServiceUnavailable}) {
		t.Errorf("expected service unavailable, got %v", err)
	}
}
