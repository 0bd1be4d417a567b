package generation

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/deckgen/deckgen/pkg/logger"
	"github.com/deckgen/deckgen/pkg/models"
)

// ErrPipelineBusy is returned when a second run is started against a
// queue that already has one in flight.
var ErrPipelineBusy = errors.New("generation pipeline already running")

// ProgressFunc is invoked once per processed card; current is
// monotonically non-decreasing.
type ProgressFunc func(current, total int)

// Pipeline converts pending cards into scored, named flashcards. The
// default batch width of 1 is deliberate: external rate limits punish
// parallel calls far more than sequential processing costs.
type Pipeline struct {
	provider  Provider
	language  string
	batchSize int
	log       *logger.Logger

	mu      sync.Mutex
	running bool
}

func NewPipeline(provider Provider, language string, log *logger.Logger) *Pipeline {
	return &Pipeline{
		provider:  provider,
		language:  language,
		batchSize: 1,
		log:       log,
	}
}

// SetBatchSize widens the per-batch provider call fan-out.
func (p *Pipeline) SetBatchSize(n int) {
	if n > 0 {
		p.batchSize = n
	}
}

// ApproveCandidates converts user-approved candidates into pending
// cards on the deck, releasing any matching entry from the ignored
// set so an image id lives in at most one of the two.
func ApproveCandidates(deck *models.Deck, approved []models.ExtractionCandidate, now time.Time) {
	for _, c := range approved {
		deck.Cards = append(deck.Cards, models.NewPendingCard(c, now))

		kept := make([]models.ExtractionCandidate, 0, len(deck.IgnoredImages))
		for _, ig := range deck.IgnoredImages {
			if ig.ID != c.ID {
				kept = append(kept, ig)
			}
		}
		deck.IgnoredImages = kept
	}
}

// Run drives every pending card through the provider. Provider
// failures are isolated per card; the only error Run itself returns is
// ErrPipelineBusy or context cancellation.
func (p *Pipeline) Run(ctx context.Context, deck *models.Deck, onProgress ProgressFunc) error {
	return p.run(ctx, deck, models.StatusPending, onProgress)
}

// RetryFailed re-runs exactly the same pipeline, but only over cards
// in error status.
func (p *Pipeline) RetryFailed(ctx context.Context, deck *models.Deck, onProgress ProgressFunc) error {
	return p.run(ctx, deck, models.StatusError, onProgress)
}

func (p *Pipeline) run(ctx context.Context, deck *models.Deck, from models.CardStatus, onProgress ProgressFunc) error {
	if !p.tryAcquire() {
		return ErrPipelineBusy
	}
	defer p.release()

	var queue []string
	for _, card := range deck.Cards {
		if card.Status == from {
			queue = append(queue, card.ID)
		}
	}

	total := len(queue)
	p.log.Info("Generating %d cards (batch size %d)", total, p.batchSize)

	done := 0
	for start := 0; start < total; start += p.batchSize {
		end := start + p.batchSize
		if end > total {
			end = total
		}
		batch := queue[start:end]

		results := make([]batchOutcome, len(batch))
		var wg sync.WaitGroup
		for i, id := range batch {
			card, ok := findCard(deck.Cards, id)
			if !ok {
				results[i] = batchOutcome{skip: true}
				continue
			}

			setStatus(deck, id, models.StatusGenerating)

			wg.Add(1)
			go func(i int, card models.FlashcardRecord) {
				defer wg.Done()
				res, err := p.provider.Generate(ctx, Request{
					PNG:      card.PNG,
					Context:  card.Context,
					Language: p.language,
				})
				results[i] = batchOutcome{res: res, err: err}
			}(i, card)
		}
		wg.Wait()

		// Mutations from the whole batch merge here, serially, as
		// whole-list replacements over the deck's current card list.
		for i, id := range batch {
			if results[i].skip {
				continue
			}
			p.applyOutcome(deck, id, results[i])
			done++
			if onProgress != nil {
				onProgress(done, total)
			}
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}
	}

	return nil
}

type batchOutcome struct {
	res  Result
	err  error
	skip bool
}

func (p *Pipeline) applyOutcome(deck *models.Deck, id string, out batchOutcome) {
	card, ok := findCard(deck.Cards, id)
	if !ok {
		return
	}

	switch {
	case out.err != nil:
		p.log.Warn("card %s failed: %v", id, out.err)
		card.Status = models.StatusError
		card.Description = out.err.Error()
		replaceCard(deck, card)

	case !out.res.IsValid:
		// Not a meaningful figure: archive the source image instead
		// of silently dropping it.
		p.log.Debug("card %s judged invalid, archiving image %s", id, card.ImageID)
		removeCard(deck, id)
		archiveIgnored(deck, card)

	case out.res.Name == SentinelName:
		card.Status = models.StatusError
		card.Description = out.res.Description
		replaceCard(deck, card)

	case hasCompletedName(deck.Cards, id, out.res.Name):
		// The same physical object extracted twice must not yield two
		// cards.
		p.log.Debug("card %s duplicates name %q, archiving", id, out.res.Name)
		removeCard(deck, id)
		archiveIgnored(deck, card)

	default:
		card.Name = out.res.Name
		card.Description = out.res.Description
		card.Status = models.StatusCompleted
		replaceCard(deck, card)
	}
}

func normalizeName(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

func hasCompletedName(cards []models.FlashcardRecord, selfID, name string) bool {
	want := normalizeName(name)
	for _, c := range cards {
		if c.ID != selfID && c.Status == models.StatusCompleted && normalizeName(c.Name) == want {
			return true
		}
	}
	return false
}

func findCard(cards []models.FlashcardRecord, id string) (models.FlashcardRecord, bool) {
	for _, c := range cards {
		if c.ID == id {
			return c, true
		}
	}
	return models.FlashcardRecord{}, false
}

func setStatus(deck *models.Deck, id string, status models.CardStatus) {
	card, ok := findCard(deck.Cards, id)
	if !ok {
		return
	}
	card.Status = status
	replaceCard(deck, card)
}

// replaceCard swaps one card by id in a fresh copy of the list.
func replaceCard(deck *models.Deck, card models.FlashcardRecord) {
	next := make([]models.FlashcardRecord, len(deck.Cards))
	copy(next, deck.Cards)
	for i := range next {
		if next[i].ID == card.ID {
			next[i] = card
			break
		}
	}
	deck.Cards = next
}

func removeCard(deck *models.Deck, id string) {
	next := make([]models.FlashcardRecord, 0, len(deck.Cards))
	for _, c := range deck.Cards {
		if c.ID != id {
			next = append(next, c)
		}
	}
	deck.Cards = next
}

// archiveIgnored reconstructs a candidate from the card and appends it
// to the ignored set, recovering the page index from the image id's
// naming convention. The image id appears at most once.
func archiveIgnored(deck *models.Deck, card models.FlashcardRecord) {
	for _, ig := range deck.IgnoredImages {
		if ig.ID == card.ImageID {
			return
		}
	}
	deck.IgnoredImages = append(deck.IgnoredImages, models.ExtractionCandidate{
		ID:        card.ImageID,
		PNG:       card.PNG,
		PageIndex: models.PageFromID(card.ImageID),
		Context:   card.Context,
	})
}

func (p *Pipeline) tryAcquire() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.running {
		return false
	}
	p.running = true
	return true
}

func (p *Pipeline) release() {
	p.mu.Lock()
	p.running = false
	p.mu.Unlock()
}
