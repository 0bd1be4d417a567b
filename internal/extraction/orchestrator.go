package extraction

import (
	"context"

	"github.com/deckgen/deckgen/internal/document"
	"github.com/deckgen/deckgen/pkg/logger"
	"github.com/deckgen/deckgen/pkg/models"
)

// Extractor is one format-specific extraction path.
type Extractor interface {
	Extract(ctx context.Context, data []byte, onProgress ProgressFunc) ([]models.ExtractionCandidate, error)
}

// Orchestrator sequences kind detection and the matching extractor and
// returns the ordered, deduplicated candidate list.
type Orchestrator struct {
	pdf  Extractor
	pptx Extractor
	log  *logger.Logger
}

func NewOrchestrator(pdf, pptx Extractor, log *logger.Logger) *Orchestrator {
	return &Orchestrator{
		pdf:  pdf,
		pptx: pptx,
		log:  log,
	}
}

// ExtractCandidates parses the document and recovers candidates.
// A corrupt container surfaces as *ParseError; a clean parse with zero
// surviving images returns ErrNoCandidates.
func (o *Orchestrator) ExtractCandidates(ctx context.Context, data []byte, onProgress ProgressFunc) ([]models.ExtractionCandidate, error) {
	kind, err := document.DetectKind(data)
	if err != nil {
		return nil, &ParseError{Kind: kind, Err: err}
	}

	o.log.Debug("Detected document kind: %s", kind)

	var candidates []models.ExtractionCandidate
	switch kind {
	case document.KindPDF:
		candidates, err = o.pdf.Extract(ctx, data, onProgress)
	case document.KindPPTX:
		candidates, err = o.pptx.Extract(ctx, data, onProgress)
	}
	if err != nil {
		return nil, err
	}

	if len(candidates) == 0 {
		return nil, ErrNoCandidates
	}

	o.log.Info("Extraction produced %d candidates", len(candidates))
	return candidates, nil
}
