// Package backend talks to the recognition and translation service over HTTP
package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/example/mediatranslate/internal/models"
)

// Paths of the backend endpoints
const (
	PathProcessQuick = "/api/process/quick"
	PathSynthesize   = "/api/tts/synthesize"
)

const maxErrorBody = 64 << 10

// Client calls the backend
type Client struct {
	baseURL string
	httpc   *http.Client
	log     *zap.SugaredLogger
}

// NewClient creates a client for baseURL. A zero timeout means no limit.
func NewClient(baseURL string, timeout time.Duration, log *zap.SugaredLogger) *Client {
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpc:   &http.Client{Timeout: timeout},
		log:     log,
	}
}

// BaseURL returns the backend origin
func (c *Client) BaseURL() string {
	return c.baseURL
}

// ProcessQuick posts an already encoded multipart body and decodes the result
func (c *Client) ProcessQuick(ctx context.Context, body io.Reader, contentType string) (*models.ProcessingResult, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+PathProcessQuick, body)
	if err != nil {
		return nil, fmt.Errorf("building process request: %w", err)
	}
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := c.do(ctx, req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if err := checkStatus(resp); err != nil {
		c.log.Warnw("process request failed", "status", resp.StatusCode, "error", err)
		return nil, err
	}

	var result models.ProcessingResult
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, &Error{Kind: KindServerError, Status: resp.StatusCode, Detail: err.Error(), Err: err}
	}
	c.log.Infow("processed file",
		"source", result.SourceLanguage(),
		"translations", result.Translation.Translations.Len(),
		"took", time.Since(start),
	)
	return &result, nil
}

// SynthesizeRequest is the text to speech request body
type SynthesizeRequest struct {
	Text     string `json:"text"`
	Language string `json:"language"`
	Voice    string `json:"voice"`
}

type synthesizeResponse struct {
	AudioURL string `json:"audio_url"`
}

// Synthesize requests speech for the text and returns the absolute audio URL
func (c *Client) Synthesize(ctx context.Context, in SynthesizeRequest) (string, error) {
	payload, err := json.Marshal(in)
	if err != nil {
		return "", fmt.Errorf("encoding synthesize request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+PathSynthesize, bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("building synthesize request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.do(ctx, req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if err := checkStatus(resp); err != nil {
		return "", err
	}

	var out synthesizeResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", &Error{Kind: KindServerError, Status: resp.StatusCode, Detail: err.Error(), Err: err}
	}
	if out.AudioURL == "" {
		return "", &Error{Kind: KindServerError, Status: resp.StatusCode, Detail: "empty audio_url"}
	}
	return c.ResolveURL(out.AudioURL)
}

// ResolveURL resolves a path returned by the backend against its origin
func (c *Client) ResolveURL(ref string) (string, error) {
	base, err := url.Parse(c.baseURL + "/")
	if err != nil {
		return "", fmt.Errorf("invalid backend url: %w", err)
	}
	u, err := url.Parse(ref)
	if err != nil {
		return "", fmt.Errorf("invalid audio url %q: %w", ref, err)
	}
	return base.ResolveReference(u).String(), nil
}

// OpenAudio streams the audio at rawURL. The caller closes the body.
func (c *Client) OpenAudio(ctx context.Context, rawURL string) (io.ReadCloser, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("building audio request: %w", err)
	}

	// Streams must outlive the request timeout used for API calls
	httpc := *c.httpc
	httpc.Timeout = 0

	resp, err := httpc.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, &Error{Kind: KindUnreachable, Err: err}
	}
	if err := checkStatus(resp); err != nil {
		resp.Body.Close()
		return nil, err
	}
	return resp.Body, nil
}

func (c *Client) do(ctx context.Context, req *http.Request) (*http.Response, error) {
	resp, err := c.httpc.Do(req)
	if err == nil {
		return resp, nil
	}
	// Cancellation is the caller's decision, not a transport failure
	if ctx.Err() != nil {
		return nil, ctx.Err()
	}
	c.log.Warnw("backend unreachable", "url", req.URL.String(), "error", err)
	return nil, &Error{Kind: KindUnreachable, Err: err}
}

// checkStatus turns a non-2xx response into a classified *Error
func checkStatus(resp *http.Response) error {
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	return &Error{
		Kind:   KindForStatus(resp.StatusCode),
		Status: resp.StatusCode,
		Detail: extractDetail(raw),
	}
}

// extractDetail prefers a string "detail", then "message", then the raw body
func extractDetail(raw []byte) string {
	var body struct {
		Detail  json.RawMessage `json:"detail"`
		Message string          `json:"message"`
	}
	if err := json.Unmarshal(raw, &body); err == nil {
		var s string
		if len(body.Detail) > 0 && json.Unmarshal(body.Detail, &s) == nil && s != "" {
			return s
		}
		if body.Message != "" {
			return body.Message
		}
		if len(body.Detail) > 0 && string(body.Detail) != "null" {
			return string(body.Detail)
		}
	}
	return strings.TrimSpace(string(raw))
}

// IsKind reports whether err is a backend error of kind k
func IsKind(err error, k Kind) bool {
	var be *Error
	return errors.As(err, &be) && be.Kind == k
}
