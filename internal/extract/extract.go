package extract

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/ledongthuc/pdf"
)

var ErrUnsupportedFormat = errors.New("unsupported document format")

// Document is the plain text of one source file.
type Document struct {
	// ID identifies the document in the store: the source file name.
	ID   string
	Path string
	Text string
}

// Supported reports whether path has an extension Bytes can handle.
func Supported(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".pdf", ".md", ".markdown", ".txt":
		return true
	}
	return false
}

// File reads and extracts the document at path.
func File(path string) (Document, error) {
	if !Supported(path) {
		return Document{}, fmt.Errorf("%w: %s", ErrUnsupportedFormat, path)
	}
	content, err := os.ReadFile(path)
	if err != nil {
		return Document{}, err
	}
	text, err := Bytes(path, content)
	if err != nil {
		return Document{}, err
	}
	return Document{ID: filepath.Base(path), Path: path, Text: text}, nil
}

// Bytes extracts text from content, choosing the format by filename.
func Bytes(filename string, content []byte) (string, error) {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".pdf":
		text, err := PDF(content)
		if err != nil {
			return "", fmt.Errorf("extract %s: %w", filename, err)
		}
		return text, nil
	case ".md", ".markdown", ".txt":
		return string(content), nil
	default:
		return "", fmt.Errorf("%w: %s", ErrUnsupportedFormat, filename)
	}
}

// PDF returns the plain text of every page, pages separated by a blank line.
// Pages without content or that fail to decode are skipped. The pdf package
// panics on some malformed files; that is reported as an error.
func PDF(content []byte) (text string, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			text, err = "", fmt.Errorf("malformed pdf: %v", rec)
		}
	}()

	reader := bytes.NewReader(content)
	pdfReader, err := pdf.NewReader(reader, int64(len(content)))
	if err != nil {
		return "", err
	}

	var pages []string
	numPages := pdfReader.NumPage()
	for pageNum := 1; pageNum <= numPages; pageNum++ {
		page := pdfReader.Page(pageNum)
		if page.V.IsNull() || page.V.Key("Contents").Kind() == pdf.Null {
			continue
		}
		pageText, err := page.GetPlainText(nil)
		if err != nil {
			continue
		}
		if pageText = strings.TrimSpace(pageText); pageText != "" {
			pages = append(pages, pageText)
		}
	}
	return strings.Join(pages, "\n\n"), nil
}
