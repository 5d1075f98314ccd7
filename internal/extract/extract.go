package extract

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/acheong08/credscore/internal/analysis"
)

// DefaultMaxImageBytes is the largest image accepted for extraction
const DefaultMaxImageBytes = 10 << 20

// Extraction errors. All of them are user-facing and match
// analysis.ErrInvalidInput except ErrExtractionFailed.
var (
	ErrNotImage              = fmt.Errorf("%w: file is not an image", analysis.ErrInvalidInput)
	ErrImageTooLarge         = fmt.Errorf("%w: image is too large", analysis.ErrInvalidInput)
	ErrEmptyImage            = fmt.Errorf("%w: image is empty", analysis.ErrInvalidInput)
	ErrExtractionUnavailable = fmt.Errorf("%w: image text extraction is not configured", analysis.ErrInvalidInput)
	ErrExtractionFailed      = errors.New("could not read text from image")
)

// Recognizer turns an image into text
type Recognizer interface {
	Recognize(ctx context.Context, image []byte, mimeType string) (string, error)
}

// Extractor validates uploaded images and hands them to a Recognizer
type Extractor struct {
	recognizer Recognizer
	maxBytes   int64
}

// NewExtractor creates an extractor. A nil recognizer makes every extraction
// fail with ErrExtractionUnavailable.
func NewExtractor(recognizer Recognizer, maxBytes int64) *Extractor {
	if maxBytes <= 0 {
		maxBytes = DefaultMaxImageBytes
	}
	return &Extractor{recognizer: recognizer, maxBytes: maxBytes}
}

// ExtractText returns the text found in image
func (e *Extractor) ExtractText(ctx context.Context, image []byte) (string, error) {
	mimeType, err := e.validate(image)
	if err != nil {
		return "", err
	}
	if e.recognizer == nil {
		return "", ErrExtractionUnavailable
	}

	text, err := e.recognizer.Recognize(ctx, image, mimeType)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrExtractionFailed, err)
	}
	return strings.TrimSpace(text), nil
}

func (e *Extractor) validate(image []byte) (string, error) {
	if len(image) == 0 {
		return "", ErrEmptyImage
	}
	if int64(len(image)) > e.maxBytes {
		return "", fmt.Errorf("%w (%d bytes, limit %d)", ErrImageTooLarge, len(image), e.maxBytes)
	}
	mimeType := http.DetectContentType(image)
	if !strings.HasPrefix(mimeType, "image/") {
		return "", fmt.Errorf("%w (detected %s)", ErrNotImage, mimeType)
	}
	return mimeType, nil
}

// Combine joins manually entered text and extracted text into the content
// sent for analysis.
func Combine(manual, extracted string) string {
	manual = strings.TrimSpace(manual)
	extracted = strings.TrimSpace(extracted)
	switch {
	case manual == "":
		return extracted
	case extracted == "":
		return manual
	default:
		return manual + "\n\n" + extracted
	}
}
