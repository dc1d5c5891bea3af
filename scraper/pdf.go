package scraper

import (
	"bytes"
	"fmt"
	"io"

	"github.com/ledongthuc/pdf"
)

func isPDF(body []byte) bool {
	return bytes.HasPrefix(body, []byte("%PDF-"))
}

// ExtractPDF returns the plain text of a PDF document
func ExtractPDF(body []byte) (text string, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("malformed pdf: %v", r)
		}
	}()

	reader, err := pdf.NewReader(bytes.NewReader(body), int64(len(body)))
	if err != nil {
		return "", fmt.Errorf("failed to open pdf: %w", err)
	}
	plain, err := reader.GetPlainText()
	if err != nil {
		return "", fmt.Errorf("failed to extract pdf text: %w", err)
	}
	raw, err := io.ReadAll(plain)
	if err != nil {
		return "", fmt.Errorf("failed to read pdf text: %w", err)
	}
	return collapse(string(raw)), nil
}
