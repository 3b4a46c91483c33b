// Package ingestion turns raw documents into identified, embedded chunks and
// writes them to the vector store.
package ingestion

import (
	"bytes"
	"fmt"
	"strconv"
	"strings"

	"github.com/ledongthuc/pdf"
)

// Document is a unit of raw text plus provenance metadata. PDF uploads yield
// one Document per page so page numbers survive into citations.
type Document struct {
	Content  string
	Metadata map[string]string
}

// Chunk is a bounded-size span of a Document's text. Metadata is inherited
// from the parent Document; the index writer adds the chunk's stable
// document_id before persisting.
type Chunk struct {
	Content  string
	Metadata map[string]string
}

func NewTextDocument(text, source string) Document {
	metadata := map[string]string{}
	if source != "" {
		metadata["source"] = source
	}
	return Document{Content: text, Metadata: metadata}
}

// LoadPDF extracts text page by page. Pages are numbered from 1.
func LoadPDF(data []byte, source string) ([]Document, error) {
	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("open pdf: %w", err)
	}

	documents := make([]Document, 0, reader.NumPage())
	for pageNum := 1; pageNum <= reader.NumPage(); pageNum++ {
		page := reader.Page(pageNum)
		if page.V.IsNull() {
			continue
		}

		text, err := page.GetPlainText(nil)
		if err != nil {
			return nil, fmt.Errorf("extract text from page %d: %w", pageNum, err)
		}

		text = normalizePlainText(text)
		if strings.TrimSpace(text) == "" {
			continue
		}

		metadata := map[string]string{"page": strconv.Itoa(pageNum)}
		if source != "" {
			metadata["source"] = source
		}
		documents = append(documents, Document{Content: text, Metadata: metadata})
	}

	return documents, nil
}

func normalizePlainText(content string) string {
	content = strings.ReplaceAll(content, "\r\n", "\n")
	content = strings.ReplaceAll(content, "\r", "\n")
	lines := strings.Split(content, "\n")
	for i, line := range lines {
		lines[i] = strings.TrimRight(line, " \t")
	}
	return strings.Join(lines, "\n")
}

func copyMetadata(src map[string]string) map[string]string {
	dst := make(map[string]string, len(src)+1)
	for k, v := range src {
		dst[k] = v
	}
	return dst
}
