package presenter

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/unidoc/unioffice/common/license"
	"github.com/unidoc/unioffice/document"
)

// Download formats
const (
	FormatTXT  = "txt"
	FormatDOCX = "docx"
)

// SetLicenseKey installs a metered unioffice key. An empty key is ignored.
func SetLicenseKey(key string) error {
	if key == "" {
		return nil
	}
	if err := license.SetMeteredKey(key); err != nil {
		return fmt.Errorf("setting unioffice license: %w", err)
	}
	return nil
}

// DownloadName returns the file name of tab in format
func DownloadName(tab, format string) string {
	if tab == TabOriginal {
		return "original." + format
	}
	return fmt.Sprintf("translation_%s.%s", tab, format)
}

// Download renders the text of tab as a file
func (p *Presenter) Download(tab, format string) (string, []byte, error) {
	if !p.HasTab(tab) {
		return "", nil, fmt.Errorf("%w: %s", ErrUnknownTab, tab)
	}
	if format == "" {
		format = FormatTXT
	}
	text := p.Text(tab)

	switch format {
	case FormatTXT:
		return DownloadName(tab, format), []byte(text), nil
	case FormatDOCX:
		data, err := renderDOCX(text)
		if err != nil {
			return "", nil, err
		}
		return DownloadName(tab, format), data, nil
	default:
		return "", nil, fmt.Errorf("%w: %s", ErrUnknownFormat, format)
	}
}

// renderDOCX writes one paragraph per line
func renderDOCX(text string) ([]byte, error) {
	doc := document.New()
	for _, line := range strings.Split(text, "\n") {
		doc.AddParagraph().AddRun().AddText(line)
	}

	var buf bytes.Buffer
	if err := doc.Save(&buf); err != nil {
		return nil, fmt.Errorf("failed to render Word document: %w", err)
	}
	return buf.Bytes(), nil
}
