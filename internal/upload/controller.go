// Package upload validates user files and submits them to the backend
package upload

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/textproto"
	"strconv"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/example/mediatranslate/internal/backend"
	"github.com/example/mediatranslate/internal/media"
	"github.com/example/mediatranslate/internal/models"
)

// DefaultMaxSize is the upload ceiling, 100 MiB
const DefaultMaxSize int64 = 100 << 20

// File is a user picked file. Size is in bytes; zero or less means unknown.
// When Content is also an io.Closer it is closed after the upload.
type File struct {
	Name    string
	Size    int64
	Content io.Reader
}

// ProgressFunc receives upload progress in percent
type ProgressFunc func(percent int)

// Receipt is a successful upload
type Receipt struct {
	Result      *models.ProcessingResult
	FileType    models.FileType
	Fingerprint string
}

// Processor is the backend call used by the controller
type Processor interface {
	ProcessQuick(ctx context.Context, body io.Reader, contentType string) (*models.ProcessingResult, error)
}

// Controller validates, classifies and uploads files
type Controller struct {
	backend  Processor
	registry *media.Registry
	maxSize  int64
	log      *zap.SugaredLogger
}

// Options configures a Controller
type Options struct {
	Registry *media.Registry
	MaxSize  int64
	Log      *zap.SugaredLogger
}

// NewController creates a controller over p
func NewController(p Processor, opts Options) *Controller {
	if opts.Registry == nil {
		opts.Registry = media.DefaultRegistry
	}
	if opts.MaxSize <= 0 {
		opts.MaxSize = DefaultMaxSize
	}
	if opts.Log == nil {
		opts.Log = zap.NewNop().Sugar()
	}
	return &Controller{backend: p, registry: opts.Registry, maxSize: opts.MaxSize, log: opts.Log}
}

// Validate checks the extension and the size ceiling and returns the media profile
func (c *Controller) Validate(f File) (media.Profile, error) {
	profile, err := c.registry.Classify(f.Name)
	if err != nil {
		ext := media.Ext(f.Name)
		if ext == "" {
			ext = "неизвестный"
		}
		return media.Profile{}, &extError{ext: ext}
	}
	if f.Size > c.maxSize {
		return media.Profile{}, fmt.Errorf("%w: %d bytes, limit %d", ErrFileTooLarge, f.Size, c.maxSize)
	}
	return profile, nil
}

// Submit validates f and uploads it with the target languages. Progress
// is optional and is only reported when the size is known.
func (c *Controller) Submit(ctx context.Context, f File, languages []string, diarization bool, progress ProgressFunc) (*Receipt, error) {
	if closer, ok := f.Content.(io.Closer); ok {
		defer closer.Close()
	}

	profile, err := c.Validate(f)
	if err != nil {
		return nil, err
	}
	if len(languages) == 0 {
		return nil, fmt.Errorf("no target languages selected")
	}

	hasher := media.NewHasher()
	counter := &progressReader{r: f.Content, total: f.Size, report: progress, max: c.maxSize}
	content := io.TeeReader(counter, hasher)

	pr, pw := io.Pipe()
	mw := multipart.NewWriter(pw)

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		pw.CloseWithError(writeForm(mw, f.Name, content, languages, profile.Type, diarization))
	}()

	c.log.Infow("uploading file", "filename", f.Name, "size", f.Size, "fileType", profile.Type, "languages", languages)
	result, err := c.backend.ProcessQuick(ctx, pr, mw.FormDataContentType())
	// Unblock the writer if the request ended before consuming the body
	pr.CloseWithError(io.ErrClosedPipe)
	wg.Wait()
	if counter.err != nil {
		if errors.Is(counter.err, ErrFileTooLarge) {
			return nil, counter.err
		}
		return nil, fmt.Errorf("reading %s: %w", f.Name, counter.err)
	}
	if err != nil {
		return nil, err
	}
	counter.finish()

	return &Receipt{
		Result:      result,
		FileType:    profile.Type,
		Fingerprint: fmt.Sprintf("%x", hasher.Sum(nil)),
	}, nil
}

func writeForm(mw *multipart.Writer, filename string, content io.Reader, languages []string, fileType models.FileType, diarization bool) error {
	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="file"; filename="%s"`, escapeQuotes(filename)))
	h.Set("Content-Type", media.GetContentTypeByExt(filename))
	part, err := mw.CreatePart(h)
	if err != nil {
		return err
	}
	if _, err := io.Copy(part, content); err != nil {
		return err
	}

	fields := [][2]string{
		{"target_languages", strings.Join(languages, ",")},
		{"generate_tts", "false"},
		{"replace_text_on_image", "false"},
	}
	if fileType == models.FileTypeAudio || fileType == models.FileTypeVideo {
		fields = append(fields, [2]string{"enable_diarization", strconv.FormatBool(diarization)})
	}
	for _, kv := range fields {
		if err := mw.WriteField(kv[0], kv[1]); err != nil {
			return err
		}
	}
	return mw.Close()
}

var quoteEscaper = strings.NewReplacer("\\", "\\\\", `"`, "\\\"")

func escapeQuotes(s string) string {
	return quoteEscaper.Replace(s)
}

// progressReader reports monotonically increasing percentages of total
type progressReader struct {
	r      io.Reader
	total  int64
	max    int64
	read   int64
	last   int
	report ProgressFunc
	err    error
}

func (p *progressReader) Read(b []byte) (int, error) {
	n, err := p.r.Read(b)
	p.read += int64(n)
	if err != nil && err != io.EOF {
		p.err = err
	}
	if p.read > p.max {
		p.err = fmt.Errorf("%w: more than %d bytes", ErrFileTooLarge, p.max)
		return n, p.err
	}
	p.emit()
	return n, err
}

func (p *progressReader) emit() {
	if p.report == nil || p.total <= 0 {
		return
	}
	pct := int(p.read * 100 / p.total)
	if pct > 100 {
		pct = 100
	}
	if pct > p.last {
		p.last = pct
		p.report(pct)
	}
}

func (p *progressReader) finish() {
	if p.report == nil || p.total <= 0 || p.last >= 100 {
		return
	}
	p.last = 100
	p.report(100)
}

// Compile time check
var _ Processor = (*backend.Client)(nil)
