package generation

import (
	"context"
	"errors"
	"io"
	"sync"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/deckgen/deckgen/pkg/logger"
	"github.com/deckgen/deckgen/pkg/models"
)

// scriptedProvider returns canned results keyed by card context, so a
// test can steer each card individually.
type scriptedProvider struct {
	mu      sync.Mutex
	byCtx   map[string]Result
	errCtx  map[string]error
	calls   int
	release chan struct{}
}

func (s *scriptedProvider) Generate(ctx context.Context, req Request) (Result, error) {
	s.mu.Lock()
	s.calls++
	s.mu.Unlock()
	if s.release != nil {
		<-s.release
	}
	if err, ok := s.errCtx[req.Context]; ok {
		return Result{}, err
	}
	if res, ok := s.byCtx[req.Context]; ok {
		return res, nil
	}
	return Result{Name: "Unscripted", Description: "d", IsValid: true}, nil
}

func quietLogger() *logger.Logger {
	return logger.New(logger.WithOutput(io.Discard))
}

func pendingCard(key string) models.FlashcardRecord {
	c := models.NewPendingCard(models.ExtractionCandidate{
		ID:      models.NewCandidateID(3),
		PNG:     []byte{0x89, 0x50},
		Context: key,
	}, time.Now())
	return c
}

var _ = Describe("Generation pipeline", func() {
	var (
		deck models.Deck
		prov *scriptedProvider
		pipe *Pipeline
	)

	BeforeEach(func() {
		deck = models.NewDeck("anatomy", time.Now())
		prov = &scriptedProvider{
			byCtx:  map[string]Result{},
			errCtx: map[string]error{},
		}
		pipe = NewPipeline(prov, "English", quietLogger())
	})

	It("completes pending cards with the provider's name and description", func() {
		deck.Cards = append(deck.Cards, pendingCard("a"))
		prov.byCtx["a"] = Result{Name: "Scalpel", Description: "Cuts tissue.", IsValid: true}

		Expect(pipe.Run(context.Background(), &deck, nil)).To(Succeed())

		Expect(deck.Cards).To(HaveLen(1))
		Expect(deck.Cards[0].Status).To(Equal(models.StatusCompleted))
		Expect(deck.Cards[0].Name).To(Equal("Scalpel"))
		Expect(deck.Cards[0].Description).To(Equal("Cuts tissue."))
	})

	It("leaves exactly one completed card per name", func() {
		deck.Cards = append(deck.Cards, pendingCard("a"), pendingCard("b"))
		prov.byCtx["a"] = Result{Name: "Femur", Description: "Thigh bone.", IsValid: true}
		prov.byCtx["b"] = Result{Name: " femur ", Description: "Same bone again.", IsValid: true}

		Expect(pipe.Run(context.Background(), &deck, nil)).To(Succeed())

		Expect(deck.Cards).To(HaveLen(1))
		Expect(deck.Cards[0].Name).To(Equal("Femur"))
		// The duplicate's image is archived, not discarded.
		Expect(deck.IgnoredImages).To(HaveLen(1))
	})

	It("archives invalid images into the ignored set", func() {
		card := pendingCard("a")
		deck.Cards = append(deck.Cards, card)
		prov.byCtx["a"] = Result{Name: "whatever", Description: "decorative border", IsValid: false}

		Expect(pipe.Run(context.Background(), &deck, nil)).To(Succeed())

		Expect(deck.Cards).To(BeEmpty())
		Expect(deck.IgnoredImages).To(HaveLen(1))
		Expect(deck.IgnoredImages[0].ID).To(Equal(card.ImageID))
		Expect(deck.IgnoredImages[0].PageIndex).To(Equal(3))
	})

	It("never archives the same image twice", func() {
		card := pendingCard("a")
		deck.Cards = append(deck.Cards, card)
		deck.IgnoredImages = append(deck.IgnoredImages, models.ExtractionCandidate{ID: card.ImageID})
		prov.byCtx["a"] = Result{IsValid: false, Name: "x"}

		Expect(pipe.Run(context.Background(), &deck, nil)).To(Succeed())
		Expect(deck.IgnoredImages).To(HaveLen(1))
	})

	It("marks provider failures as error cards without aborting the run", func() {
		deck.Cards = append(deck.Cards, pendingCard("bad"), pendingCard("good"))
		prov.errCtx["bad"] = errors.New("boom")
		prov.byCtx["good"] = Result{Name: "Tibia", Description: "Shin bone.", IsValid: true}

		Expect(pipe.Run(context.Background(), &deck, nil)).To(Succeed())

		statuses := map[models.CardStatus]int{}
		for _, c := range deck.Cards {
			statuses[c.Status]++
		}
		Expect(statuses[models.StatusError]).To(Equal(1))
		Expect(statuses[models.StatusCompleted]).To(Equal(1))
	})

	It("treats the sentinel result as a failed card", func() {
		deck.Cards = append(deck.Cards, pendingCard("a"))
		prov.byCtx["a"] = Result{Name: SentinelName, Description: "retries exhausted", IsValid: true}

		Expect(pipe.Run(context.Background(), &deck, nil)).To(Succeed())

		Expect(deck.Cards[0].Status).To(Equal(models.StatusError))
		Expect(deck.Cards[0].Description).To(Equal("retries exhausted"))
	})

	It("retries only error cards, leaving completed ones untouched", func() {
		done := pendingCard("done")
		done.Status = models.StatusCompleted
		done.Name = "Ulna"
		failed := pendingCard("failed")
		failed.Status = models.StatusError
		deck.Cards = append(deck.Cards, done, failed)
		prov.byCtx["failed"] = Result{Name: "Radius", Description: "Forearm bone.", IsValid: true}

		Expect(pipe.RetryFailed(context.Background(), &deck, nil)).To(Succeed())

		Expect(prov.calls).To(Equal(1))
		Expect(deck.Cards[0].Name).To(Equal("Ulna"))
		Expect(deck.Cards[1].Status).To(Equal(models.StatusCompleted))
		Expect(deck.Cards[1].Name).To(Equal("Radius"))
	})

	It("rejects a second run while one is in flight", func() {
		deck.Cards = append(deck.Cards, pendingCard("a"))
		prov.release = make(chan struct{})

		firstDone := make(chan error, 1)
		go func() {
			firstDone <- pipe.Run(context.Background(), &deck, nil)
		}()

		Eventually(func() int {
			prov.mu.Lock()
			defer prov.mu.Unlock()
			return prov.calls
		}).Should(Equal(1))

		other := models.NewDeck("other", time.Now())
		Expect(pipe.Run(context.Background(), &other, nil)).To(MatchError(ErrPipelineBusy))

		close(prov.release)
		Expect(<-firstDone).To(Succeed())
	})

	It("reports monotonic progress over the queue", func() {
		for _, k := range []string{"a", "b", "c"} {
			deck.Cards = append(deck.Cards, pendingCard(k))
			prov.byCtx[k] = Result{Name: "N" + k, Description: "d", IsValid: true}
		}

		var seen [][2]int
		Expect(pipe.Run(context.Background(), &deck, func(current, total int) {
			seen = append(seen, [2]int{current, total})
		})).To(Succeed())

		Expect(seen).To(Equal([][2]int{{1, 3}, {2, 3}, {3, 3}}))
	})

	It("processes wider batches when configured", func() {
		pipe.SetBatchSize(2)
		for _, k := range []string{"a", "b", "c"} {
			deck.Cards = append(deck.Cards, pendingCard(k))
			prov.byCtx[k] = Result{Name: "N" + k, Description: "d", IsValid: true}
		}

		Expect(pipe.Run(context.Background(), &deck, nil)).To(Succeed())
		Expect(prov.calls).To(Equal(3))
		for _, c := range deck.Cards {
			Expect(c.Status).To(Equal(models.StatusCompleted))
		}
	})
})

var _ = Describe("Approving candidates", func() {
	It("moves an approved candidate out of the ignored set", func() {
		deck := models.NewDeck("d", time.Now())
		cand := models.ExtractionCandidate{ID: models.NewCandidateID(1), PNG: []byte{1}, Context: "ctx"}
		deck.IgnoredImages = append(deck.IgnoredImages, cand)

		ApproveCandidates(&deck, []models.ExtractionCandidate{cand}, time.Now())

		Expect(deck.IgnoredImages).To(BeEmpty())
		Expect(deck.Cards).To(HaveLen(1))
		Expect(deck.Cards[0].Status).To(Equal(models.StatusPending))
		Expect(deck.Cards[0].ImageID).To(Equal(cand.ID))
		Expect(deck.Cards[0].SRS.Ease).To(Equal(models.DefaultEase))
	})

	It("leaves the previous ignored list's backing array untouched", func() {
		deck := models.NewDeck("d", time.Now())
		first := models.ExtractionCandidate{ID: models.NewCandidateID(1)}
		second := models.ExtractionCandidate{ID: models.NewCandidateID(2)}
		deck.IgnoredImages = append(deck.IgnoredImages, first, second)
		prior := deck.IgnoredImages

		ApproveCandidates(&deck, []models.ExtractionCandidate{first}, time.Now())

		Expect(deck.IgnoredImages).To(HaveLen(1))
		Expect(deck.IgnoredImages[0].ID).To(Equal(second.ID))
		Expect(prior[0].ID).To(Equal(first.ID))
		Expect(prior[1].ID).To(Equal(second.ID))
	})
})
