// Package pdf recovers embedded raster images and per-page text from
// PDF documents. Text comes from the rendering backend; images are
// reconstructed from the document's image objects and the page content
// streams (inline images included).
package pdf

import (
	"bytes"
	"context"
	"fmt"
	"image"

	"github.com/gen2brain/go-fitz"
	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/types"

	"github.com/deckgen/deckgen/internal/document"
	"github.com/deckgen/deckgen/internal/extraction"
	"github.com/deckgen/deckgen/pkg/imaging"
	"github.com/deckgen/deckgen/pkg/logger"
	"github.com/deckgen/deckgen/pkg/models"
)

const pageNoun = "Page"

type Extractor struct {
	thresholds imaging.FilterThresholds
	log        *logger.Logger
}

func NewExtractor(thresholds imaging.FilterThresholds, log *logger.Logger) *Extractor {
	return &Extractor{
		thresholds: thresholds,
		log:        log,
	}
}

// Extract walks the document page by page, strictly in order, and
// returns deduplicated candidates. Identical encoded rasters painted
// on several pages collapse into one candidate whose context windows
// are merged.
func (e *Extractor) Extract(ctx context.Context, data []byte, onProgress extraction.ProgressFunc) ([]models.ExtractionCandidate, error) {
	pdfCtx, err := api.ReadValidateAndOptimize(bytes.NewReader(data), model.NewDefaultConfiguration())
	if err != nil {
		return nil, &extraction.ParseError{Kind: document.KindPDF, Err: err}
	}

	texts, err := e.pageTexts(data, pdfCtx.PageCount)
	if err != nil {
		return nil, &extraction.ParseError{Kind: document.KindPDF, Err: err}
	}

	var candidates []models.ExtractionCandidate
	byHash := make(map[string]int)

	for pageNr := 1; pageNr <= pdfCtx.PageCount; pageNr++ {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}

		window := texts.Window(pageNr, pageNoun)
		label := document.Label(pageNoun, pageNr)

		for _, png := range e.pageImages(pdfCtx, pageNr) {
			key := imaging.Hash(png)
			if idx, seen := byHash[key]; seen {
				candidates[idx].Context = document.AppendContext(candidates[idx].Context, label, window)
				continue
			}

			byHash[key] = len(candidates)
			candidates = append(candidates, models.ExtractionCandidate{
				ID:        models.NewCandidateID(pageNr),
				PNG:       png,
				PageIndex: pageNr,
				Context:   window,
			})
		}

		if onProgress != nil {
			onProgress(pageNr, pdfCtx.PageCount)
		}
	}

	return candidates, nil
}

// pageTexts extracts whitespace-normalized text for every page before
// any window is built, since a window looks one page ahead.
func (e *Extractor) pageTexts(data []byte, pageCount int) (document.PageTexts, error) {
	doc, err := fitz.NewFromMemory(data)
	if err != nil {
		return nil, fmt.Errorf("failed to open PDF for text extraction: %w", err)
	}
	defer doc.Close()

	raw := make([]string, pageCount)
	// Page numbers are zero indexed in the fitz package.
	for pageNum := 0; pageNum < doc.NumPage() && pageNum < pageCount; pageNum++ {
		text, err := doc.Text(pageNum)
		if err != nil {
			e.log.Warn("couldn't extract text from page %d: %v", pageNum+1, err)
			continue
		}
		raw[pageNum] = text
	}

	return document.BuildPageTexts(raw), nil
}

// pageImages recovers every raster painted on a page: the image
// XObjects referenced by its content stream plus any inline images
// embedded directly in it. Failures are per-image, never fatal.
func (e *Extractor) pageImages(pdfCtx *model.Context, pageNr int) [][]byte {
	var out [][]byte

	for _, objNr := range pdfcpu.ImageObjNrs(pdfCtx, pageNr) {
		img, err := e.recoverObject(pdfCtx, objNr)
		if err != nil {
			e.log.Debug("page %d obj %d skipped: %v", pageNr, objNr, err)
			continue
		}
		if img == nil {
			continue
		}
		png, err := imaging.EncodePNG(img)
		if err != nil {
			e.log.Debug("page %d obj %d encode failed: %v", pageNr, objNr, err)
			continue
		}
		out = append(out, png)
	}

	for _, img := range e.inlineImages(pdfCtx, pageNr) {
		png, err := imaging.EncodePNG(img)
		if err != nil {
			continue
		}
		out = append(out, png)
	}

	return out
}

// recoverObject reconstructs one image XObject into a filtered raster.
// A nil image with nil error means the object was filtered as noise.
func (e *Extractor) recoverObject(pdfCtx *model.Context, objNr int) (image.Image, error) {
	entry := pdfCtx.Table[objNr]
	if entry == nil || entry.Free || entry.Compressed {
		return nil, fmt.Errorf("object unavailable")
	}

	sd, ok := entry.Object.(types.StreamDict)
	if !ok {
		return nil, fmt.Errorf("not a stream object")
	}

	w := sd.IntEntry("Width")
	h := sd.IntEntry("Height")
	if w == nil || h == nil {
		return nil, fmt.Errorf("missing dimensions")
	}

	// Cheap shape filter before any decode work.
	if !e.thresholds.KeepEmbedded(*w, *h) {
		e.log.Trace("filtered %dx%d image object %d", *w, *h, objNr)
		return nil, nil
	}

	if hasFilter(&sd, "DCTDecode") {
		return imaging.DecodeJPEG(sd.Raw)
	}
	if hasFilter(&sd, "JPXDecode") {
		return nil, fmt.Errorf("JPX sample data unsupported")
	}

	if err := sd.Decode(); err != nil {
		return nil, fmt.Errorf("failed to decode sample stream: %w", err)
	}

	img, err := imaging.FromRaw(sd.Content, *w, *h)
	if err != nil {
		return nil, err
	}
	return img, nil
}

func hasFilter(sd *types.StreamDict, name string) bool {
	for _, f := range sd.FilterPipeline {
		if f.Name == name {
			return true
		}
	}
	return false
}
