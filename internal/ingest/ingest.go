// Package ingest extracts plain text from a web page, PDF, or text file so it
// can be handed to the script writer as reference material.
package ingest

import (
	"context"
	"fmt"
	"os"
	"strings"
	"unicode"
)

// Kind is the type of source a reference was read from.
type Kind string

const (
	KindURL  Kind = "url"
	KindPDF  Kind = "pdf"
	KindText Kind = "text"

	// maxSourceBytes caps what is read from any source.
	maxSourceBytes = 25 * 1024 * 1024
)

// Document is extracted reference text.
type Document struct {
	Kind   Kind
	Origin string
	Title  string
	Text   string
	Words  int
}

// DetectKind classifies an input by URL scheme or file extension.
func DetectKind(input string) Kind {
	if strings.HasPrefix(input, "http://") || strings.HasPrefix(input, "https://") {
		return KindURL
	}
	if strings.HasSuffix(strings.ToLower(input), ".pdf") {
		return KindPDF
	}
	return KindText
}

// Load extracts the text of input, dispatching on DetectKind.
func Load(ctx context.Context, input string) (*Document, error) {
	var (
		doc *Document
		err error
	)
	switch kind := DetectKind(input); kind {
	case KindURL:
		doc, err = fetchArticle(ctx, input)
	case KindPDF:
		doc, err = readPDF(input)
	default:
		doc, err = readText(input)
	}
	if err != nil {
		return nil, err
	}
	doc.Words = countWords(doc.Text)
	if doc.Title == "" {
		doc.Title = firstLine(doc.Text, 80)
	}
	return doc, nil
}

// Excerpt returns at most limit bytes of the text, cut at a word boundary.
func (d *Document) Excerpt(limit int) string {
	if len(d.Text) <= limit {
		return d.Text
	}
	cut := strings.LastIndexFunc(d.Text[:limit], unicode.IsSpace)
	if cut <= 0 {
		cut = limit
	}
	return d.Text[:cut]
}

func countWords(text string) int {
	return len(strings.Fields(text))
}

func firstLine(text string, maxLen int) string {
	line, _, _ := strings.Cut(strings.TrimSpace(text), "\n")
	line = strings.TrimSpace(line)
	if len(line) > maxLen {
		line = line[:maxLen] + "..."
	}
	if line == "" {
		return "Untitled"
	}
	return line
}

func checkFile(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("cannot access %s: %w", path, err)
	}
	if info.IsDir() {
		return fmt.Errorf("%s is a directory, not a file", path)
	}
	if info.Size() > maxSourceBytes {
		return fmt.Errorf("%s is too large (%d MB, max %d MB)", path, info.Size()/(1024*1024), maxSourceBytes/(1024*1024))
	}
	return nil
}
