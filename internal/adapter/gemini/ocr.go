package gemini

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"
)

const ocrPrompt = "Transcribe all text visible in this image. Return only the text, with no commentary. If the image contains no text, return an empty response."

// OCR recognizes text in page images with a Gemini vision model. It backs
// the extractor's fallback for scanned or image-only PDF pages.
type OCR struct {
	client *genai.Client
	model  string
}

func NewOCR(ctx context.Context, apiKey, model string) (*OCR, error) {
	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, err
	}
	if model == "" {
		model = "gemini-2.0-flash"
	}
	return &OCR{client: client, model: model}, nil
}

func (o *OCR) Recognize(ctx context.Context, image []byte) (string, error) {
	slog.DebugContext(ctx, "recognizing image text", "model", o.model, "bytes", len(image))

	gm := o.client.GenerativeModel(o.model)
	resp, err := gm.GenerateContent(ctx, genai.ImageData(imageFormat(image), image), genai.Text(ocrPrompt))
	if err != nil {
		return "", err
	}
	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return "", fmt.Errorf("ocr response carried no candidates")
	}

	var sb strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if text, ok := part.(genai.Text); ok {
			sb.WriteString(string(text))
		}
	}
	return strings.TrimSpace(sb.String()), nil
}

func (o *OCR) Close() error {
	return o.client.Close()
}

var (
	pngMagic  = []byte{0x89, 'P', 'N', 'G'}
	jpegMagic = []byte{0xFF, 0xD8, 0xFF}
)

func imageFormat(data []byte) string {
	switch {
	case bytes.HasPrefix(data, jpegMagic):
		return "jpeg"
	case bytes.HasPrefix(data, pngMagic):
		return "png"
	default:
		return "png"
	}
}
