package pdf

import (
	"bytes"
	"image"
	"io"
	"regexp"
	"strconv"

	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"

	"github.com/deckgen/deckgen/pkg/imaging"
)

var (
	inlineWidthRe  = regexp.MustCompile(`/W(?:idth)?\s+(\d+)`)
	inlineHeightRe = regexp.MustCompile(`/H(?:eight)?\s+(\d+)`)
	inlineFilterRe = regexp.MustCompile(`/F(?:ilter)?[\s/\[]`)
)

// inlineImages scans a page's content stream for BI/ID/EI sequences.
func (e *Extractor) inlineImages(pdfCtx *model.Context, pageNr int) []image.Image {
	r, err := pdfcpu.ExtractPageContent(pdfCtx, pageNr)
	if err != nil {
		return nil
	}
	data, err := io.ReadAll(r)
	if err != nil || len(data) == 0 {
		return nil
	}

	imgs, skipped := parseInlineImages(data, e.thresholds)
	if skipped > 0 {
		e.log.Trace("page %d: %d inline images skipped", pageNr, skipped)
	}
	return imgs
}

// parseInlineImages reconstructs any uncompressed inline rasters of a
// content stream. Compressed inline images are skipped; they are rare
// and their filters are already covered on the XObject path.
func parseInlineImages(data []byte, thresholds imaging.FilterThresholds) (imgs []image.Image, skipped int) {
	for pos := 0; pos < len(data); {
		bi := indexToken(data[pos:], "BI")
		if bi < 0 {
			break
		}
		bi += pos

		id := indexToken(data[bi:], "ID")
		if id < 0 {
			break
		}
		id += bi

		params := data[bi+2 : id]
		dataStart := id + 2
		if dataStart < len(data) && isWhitespace(data[dataStart]) {
			dataStart++
		}

		ei := indexToken(data[dataStart:], "EI")
		if ei < 0 {
			break
		}
		ei += dataStart
		pos = ei + 2

		if inlineFilterRe.Match(params) {
			skipped++
			continue
		}

		w := matchInt(inlineWidthRe, params)
		h := matchInt(inlineHeightRe, params)
		if w <= 0 || h <= 0 || !thresholds.KeepEmbedded(w, h) {
			skipped++
			continue
		}

		samples := bytes.TrimRight(data[dataStart:ei], " \t\r\n")
		img, err := imaging.FromRaw(samples, w, h)
		if err != nil {
			skipped++
			continue
		}
		imgs = append(imgs, img)
	}

	return imgs, skipped
}

// indexToken finds tok delimited by whitespace on both sides.
func indexToken(data []byte, tok string) int {
	t := []byte(tok)
	for i := 0; i+len(t) <= len(data); i++ {
		if !bytes.HasPrefix(data[i:], t) {
			continue
		}
		if i > 0 && !isWhitespace(data[i-1]) {
			continue
		}
		end := i + len(t)
		if end < len(data) && !isWhitespace(data[end]) {
			continue
		}
		return i
	}
	return -1
}

func isWhitespace(b byte) bool {
	switch b {
	case ' ', '\t', '\r', '\n', '\f', 0:
		return true
	}
	return false
}

func matchInt(re *regexp.Regexp, data []byte) int {
	m := re.FindSubmatch(data)
	if len(m) < 2 {
		return 0
	}
	n, err := strconv.Atoi(string(m[1]))
	if err != nil {
		return 0
	}
	return n
}
