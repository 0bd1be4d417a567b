package models

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

// CardStatus is the linear per-card generation state machine.
type CardStatus string

const (
	StatusPending    CardStatus = "pending"
	StatusGenerating CardStatus = "generating"
	StatusCompleted  CardStatus = "completed"
	StatusError      CardStatus = "error"
)

const (
	DefaultEase = 2.5
)

// SRSState holds the current spaced-repetition scheduling state of a card.
// No per-card review history is retained beyond these four fields.
type SRSState struct {
	Interval     int       `json:"interval"`
	Ease         float64   `json:"ease"`
	Reps         int       `json:"reps"`
	NextReviewAt time.Time `json:"next_review_at"`
}

// ExtractionCandidate is an extracted image not yet approved for
// flashcard generation. PNG holds the re-encoded raster.
type ExtractionCandidate struct {
	ID        string `json:"id"`
	PNG       []byte `json:"png"`
	PageIndex int    `json:"page_index"`
	Context   string `json:"context"`
}

// FlashcardRecord is a named flashcard owned by a deck.
type FlashcardRecord struct {
	ID          string     `json:"id"`
	ImageID     string     `json:"image_id"`
	PNG         []byte     `json:"png"`
	Name        string     `json:"name"`
	Description string     `json:"description"`
	Status      CardStatus `json:"status"`
	Context     string     `json:"context"`
	SRS         SRSState   `json:"srs"`
}

// Deck is a container of cards plus the holding set of rejected
// candidates. A given ImageID appears in at most one of Cards or
// IgnoredImages at any time.
type Deck struct {
	ID            string                `json:"id"`
	Title         string                `json:"title"`
	CreatedAt     time.Time             `json:"created_at"`
	Cards         []FlashcardRecord     `json:"cards"`
	IgnoredImages []ExtractionCandidate `json:"ignored_images"`
}

// NewCandidateID builds the page-encoding id used by extraction. The
// page index stays recoverable so a rejected card can be reconstructed
// into a candidate later.
func NewCandidateID(pageIndex int) string {
	return fmt.Sprintf("p%d-%s", pageIndex, uuid.NewString())
}

// PageFromID recovers the page index from a candidate/card id.
// Returns 0 when the id does not follow the naming convention.
func PageFromID(id string) int {
	if !strings.HasPrefix(id, "p") {
		return 0
	}
	rest := strings.TrimPrefix(id, "p")
	dash := strings.IndexByte(rest, '-')
	if dash <= 0 {
		return 0
	}
	n, err := strconv.Atoi(rest[:dash])
	if err != nil {
		return 0
	}
	return n
}

// NewPendingCard converts an approved candidate into a pending card
// with fresh default scheduling state.
func NewPendingCard(c ExtractionCandidate, now time.Time) FlashcardRecord {
	return FlashcardRecord{
		ID:      uuid.NewString(),
		ImageID: c.ID,
		PNG:     c.PNG,
		Status:  StatusPending,
		Context: c.Context,
		SRS: SRSState{
			Interval:     0,
			Ease:         DefaultEase,
			Reps:         0,
			NextReviewAt: now,
		},
	}
}

// NewManualCard creates a user-authored card, completed immediately.
func NewManualCard(name, description string, png []byte, now time.Time) FlashcardRecord {
	return FlashcardRecord{
		ID:          uuid.NewString(),
		ImageID:     NewCandidateID(0),
		PNG:         png,
		Name:        name,
		Description: description,
		Status:      StatusCompleted,
		SRS: SRSState{
			Interval:     0,
			Ease:         DefaultEase,
			Reps:         0,
			NextReviewAt: now,
		},
	}
}

// NewDeck creates an empty deck.
func NewDeck(title string, now time.Time) Deck {
	return Deck{
		ID:        uuid.NewString(),
		Title:     title,
		CreatedAt: now,
	}
}
