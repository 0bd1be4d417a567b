package deck

import (
	"fmt"
	"time"

	"github.com/deckgen/deckgen/internal/srs"
	"github.com/deckgen/deckgen/pkg/models"
)

// SubmitReview applies a review grade to one card's scheduling state.
func SubmitReview(d *models.Deck, cardID string, quality srs.Quality, now time.Time) error {
	for i, c := range d.Cards {
		if c.ID == cardID {
			next := make([]models.FlashcardRecord, len(d.Cards))
			copy(next, d.Cards)
			next[i].SRS = srs.Schedule(c.SRS, quality, now)
			d.Cards = next
			return nil
		}
	}
	return fmt.Errorf("card %s not found in deck %s", cardID, d.ID)
}

// DueCards returns the cards due for review at now, completed ones
// only.
func DueCards(d *models.Deck, now time.Time) []models.FlashcardRecord {
	var due []models.FlashcardRecord
	for _, c := range d.Cards {
		if c.Status == models.StatusCompleted && !c.SRS.NextReviewAt.After(now) {
			due = append(due, c)
		}
	}
	return due
}

// DeleteCard removes a card outright, by explicit user intent.
func DeleteCard(d *models.Deck, cardID string) {
	next := make([]models.FlashcardRecord, 0, len(d.Cards))
	for _, c := range d.Cards {
		if c.ID != cardID {
			next = append(next, c)
		}
	}
	d.Cards = next
}

// AddManualCard appends a user-authored card, completed immediately.
func AddManualCard(d *models.Deck, name, description string, png []byte, now time.Time) models.FlashcardRecord {
	card := models.NewManualCard(name, description, png, now)
	d.Cards = append(d.Cards, card)
	return card
}
