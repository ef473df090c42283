package extract

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/ledongthuc/pdf"
)

// ErrInvalidEncoding means a text file was not valid UTF-8. Corrupted text
// is never passed on silently.
var ErrInvalidEncoding = errors.New("file is not valid UTF-8 text")

// Text extracts plain text from a named byte blob. PDF files go through the
// PDF reader; everything else is treated as UTF-8 text. The result is
// trimmed; an empty result means the file had no extractable text.
func Text(filename string, data []byte) (string, error) {
	if len(data) == 0 {
		return "", nil
	}
	if strings.EqualFold(filepath.Ext(filename), ".pdf") {
		text, err := pdfText(data)
		if err != nil {
			return "", fmt.Errorf("extract pdf %q failed: %w", filename, err)
		}
		return strings.TrimSpace(text), nil
	}
	if !utf8.Valid(data) {
		return "", fmt.Errorf("%w: %q", ErrInvalidEncoding, filename)
	}
	return strings.TrimSpace(string(data)), nil
}

func pdfText(data []byte) (string, error) {
	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", err
	}
	plain, err := reader.GetPlainText()
	if err != nil {
		return "", err
	}
	out, err := io.ReadAll(plain)
	if err != nil {
		return "", err
	}
	return string(out), nil
}
