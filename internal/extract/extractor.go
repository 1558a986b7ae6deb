// Package extract turns PDF byte streams into ordered per-page text.
//
// Embedded text is read with ledongthuc/pdf (pure Go, no CGO). Raster images
// are pulled out with pdfcpu and handed to a pluggable OCR implementation;
// recognized text is appended to the owning page. OCR is strictly
// best-effort: a failing image never fails its page, and a page whose text
// extraction fails yields empty text rather than an error.
package extract

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/ledongthuc/pdf"
	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
)

// OCR recognizes text in a raster image. Implementations wrap an external
// OCR capability; accuracy is out of scope here.
type OCR interface {
	Recognize(ctx context.Context, image []byte) (string, error)
}

type Extractor struct {
	ocr OCR
}

// New builds an Extractor. ocr may be nil, in which case embedded images are
// not inspected at all.
func New(ocr OCR) *Extractor {
	return &Extractor{ocr: ocr}
}

// Extract opens the document and returns a single-pass page iterator. The
// page count is known immediately; call Extract again for a fresh pass.
// An unparseable byte stream is a fatal extraction failure.
func (e *Extractor) Extract(ctx context.Context, data []byte) (*Pages, error) {
	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("open pdf: %w", err)
	}

	pages := &Pages{
		reader: reader,
		total:  reader.NumPage(),
		ocr:    e.ocr,
	}
	if e.ocr != nil {
		pages.images = pageImages(ctx, data)
	}
	return pages, nil
}

// pageImages extracts raster images grouped by 1-based page number. Any
// failure here is logged and swallowed: image text is an enrichment, not a
// requirement.
func pageImages(ctx context.Context, data []byte) map[int][][]byte {
	conf := model.NewDefaultConfiguration()
	conf.ValidationMode = model.ValidationRelaxed

	extracted, err := api.ExtractImagesRaw(bytes.NewReader(data), nil, conf)
	if err != nil {
		slog.WarnContext(ctx, "image extraction failed, skipping ocr", "error", err)
		return nil
	}

	images := make(map[int][][]byte)
	for _, pageMap := range extracted {
		for _, img := range pageMap {
			raw, err := io.ReadAll(img)
			if err != nil {
				slog.WarnContext(ctx, "failed to read embedded image", "page", img.PageNr, "error", err)
				continue
			}
			images[img.PageNr] = append(images[img.PageNr], raw)
		}
	}
	return images
}

// Pages is a finite, single-pass iterator over per-page text. It is not
// restartable.
type Pages struct {
	reader *pdf.Reader
	ocr    OCR
	images map[int][][]byte
	total  int
	next   int // 0-based count of pages already yielded
}

// Total reports the page count, known as soon as the document is opened.
func (p *Pages) Total() int {
	return p.total
}

// Next yields the next page's text. ok is false once all pages have been
// consumed. Every page in the document produces a value, possibly empty.
func (p *Pages) Next(ctx context.Context) (string, bool, error) {
	if p.next >= p.total {
		return "", false, nil
	}
	if err := ctx.Err(); err != nil {
		return "", false, err
	}

	pageNr := p.next + 1 // ledongthuc/pdf pages are 1-based
	p.next++

	var buf bytes.Buffer

	page := p.reader.Page(pageNr)
	if !page.V.IsNull() {
		content, err := page.GetPlainText(nil)
		if err != nil {
			slog.WarnContext(ctx, "page text extraction failed", "page", pageNr, "error", err)
		} else {
			buf.WriteString(content)
		}
	}

	for _, img := range p.images[pageNr] {
		recognized, err := p.ocr.Recognize(ctx, img)
		if err != nil {
			slog.WarnContext(ctx, "ocr failed for embedded image", "page", pageNr, "error", err)
			continue
		}
		if recognized != "" {
			buf.WriteString("\n")
			buf.WriteString(recognized)
		}
	}

	return buf.String(), true, nil
}
