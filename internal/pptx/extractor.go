// Package pptx recovers slide text and embedded media images from
// PPTX containers (a zip of OOXML parts). Slide image references are
// resolved through each slide's companion relationship part.
package pptx

import (
	"archive/zip"
	"bytes"
	"context"
	"fmt"
	"io"
	"path"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/deckgen/deckgen/internal/document"
	"github.com/deckgen/deckgen/internal/extraction"
	"github.com/deckgen/deckgen/pkg/imaging"
	"github.com/deckgen/deckgen/pkg/logger"
	"github.com/deckgen/deckgen/pkg/models"
)

const slideNoun = "Slide"

var slideNameRe = regexp.MustCompile(`^ppt/slides/slide(\d+)\.xml$`)

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

type slidePart struct {
	name string
	num  int
}

// Extract walks the slides in numeric order and returns deduplicated
// candidates. PPTX media are shared objects, so the dedup key is the
// resolved container path of the asset, checked before any decode.
func (e *Extractor) Extract(ctx context.Context, data []byte, onProgress extraction.ProgressFunc) ([]models.ExtractionCandidate, error) {
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, &extraction.ParseError{Kind: document.KindPPTX, Err: err}
	}

	parts := make(map[string]*zip.File, len(zr.File))
	var slides []slidePart
	for _, f := range zr.File {
		parts[f.Name] = f
		if m := slideNameRe.FindStringSubmatch(f.Name); m != nil {
			num, err := strconv.Atoi(m[1])
			if err != nil {
				continue
			}
			slides = append(slides, slidePart{name: f.Name, num: num})
		}
	}

	if len(slides) == 0 {
		return nil, &extraction.ParseError{Kind: document.KindPPTX, Err: fmt.Errorf("container holds no slides")}
	}

	// slide2 must sort before slide10.
	sort.Slice(slides, func(i, j int) bool { return slides[i].num < slides[j].num })

	texts, slideXML, err := e.slideTexts(parts, slides)
	if err != nil {
		return nil, &extraction.ParseError{Kind: document.KindPPTX, Err: err}
	}

	var candidates []models.ExtractionCandidate
	byPath := make(map[string]int)

	for i, slide := range slides {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}

		slideIdx := i + 1
		window := texts.Window(slideIdx, slideNoun)
		label := document.Label(slideNoun, slideIdx)

		rels := e.slideRels(parts, slide.name)

		for _, relID := range embedReferences(slideXML[i]) {
			target, ok := rels[relID]
			if !ok {
				continue
			}

			mediaPath, mediaFile := resolveMediaPath(parts, target)
			if mediaFile == nil {
				e.log.Debug("slide %d: media target %q not in container", slideIdx, target)
				continue
			}

			// Resolved-path dedup guards the double visit of the
			// catch-all and the drawing-markup scan; it must run
			// before the decode work.
			if idx, seen := byPath[mediaPath]; seen {
				candidates[idx].Context = document.AppendContext(candidates[idx].Context, label, window)
				continue
			}

			png, err := e.recoverMedia(mediaFile)
			if err != nil {
				e.log.Debug("slide %d: media %s skipped: %v", slideIdx, mediaPath, err)
				continue
			}
			if png == nil {
				continue
			}

			byPath[mediaPath] = len(candidates)
			candidates = append(candidates, models.ExtractionCandidate{
				ID:        models.NewCandidateID(slideIdx),
				PNG:       png,
				PageIndex: slideIdx,
				Context:   window,
			})
		}

		if onProgress != nil {
			onProgress(slideIdx, len(slides))
		}
	}

	return candidates, nil
}

// slideTexts reads every slide part up front: windows look one slide
// ahead, so all text must exist before any window is built. The raw
// XML is returned alongside to avoid reading each part twice.
func (e *Extractor) slideTexts(parts map[string]*zip.File, slides []slidePart) (document.PageTexts, [][]byte, error) {
	raw := make([]string, len(slides))
	xmlParts := make([][]byte, len(slides))
	for i, slide := range slides {
		b, err := readPart(parts[slide.name])
		if err != nil {
			return nil, nil, fmt.Errorf("failed to read %s: %w", slide.name, err)
		}
		xmlParts[i] = b
		raw[i] = slideText(b)
	}
	return document.BuildPageTexts(raw), xmlParts, nil
}

// slideRels parses the slide's relationship part. A missing or broken
// part simply yields zero images for the slide.
func (e *Extractor) slideRels(parts map[string]*zip.File, slideName string) map[string]string {
	relsName := path.Join("ppt/slides/_rels", path.Base(slideName)+".rels")
	f, ok := parts[relsName]
	if !ok {
		e.log.Debug("no relationship part for %s", slideName)
		return nil
	}
	b, err := readPart(f)
	if err != nil {
		e.log.Debug("failed to read %s: %v", relsName, err)
		return nil
	}
	return parseRels(b)
}

// resolveMediaPath normalizes a relationship target to an absolute
// container path, falling back to a bare-filename lookup under any
// media/ directory for producers with non-standard relative paths.
func resolveMediaPath(parts map[string]*zip.File, target string) (string, *zip.File) {
	resolved := path.Clean(path.Join("ppt/slides", target))
	resolved = strings.TrimPrefix(resolved, "/")
	if f, ok := parts[resolved]; ok {
		return resolved, f
	}

	base := path.Base(target)
	for name, f := range parts {
		if strings.Contains(name, "media/") && path.Base(name) == base {
			return name, f
		}
	}
	return "", nil
}

// recoverMedia decodes, filters, optionally downscales and re-encodes
// one media asset. A nil result with nil error means filtered noise.
func (e *Extractor) recoverMedia(f *zip.File) ([]byte, error) {
	data, err := readPart(f)
	if err != nil {
		return nil, err
	}

	w, h, err := imaging.Bounds(data)
	if err != nil {
		return nil, fmt.Errorf("undecodable media: %w", err)
	}
	if !e.thresholds.KeepSlide(w, h) {
		e.log.Trace("filtered %dx%d media %s", w, h, f.Name)
		return nil, nil
	}

	img, err := imaging.Decode(data)
	if err != nil {
		return nil, err
	}

	img = imaging.Downscale(img, e.thresholds.MaxDimension)
	return imaging.EncodePNG(img)
}

func readPart(f *zip.File) ([]byte, error) {
	rc, err := f.Open()
	if err != nil {
		return nil, err
	}
	defer rc.Close()
	return io.ReadAll(rc)
}
