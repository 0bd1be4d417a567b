// Package srs implements the SM-2 style review scheduler. Schedule is
// a pure function over the card's current state; no review history is
// kept beyond it.
package srs

import (
	"math"
	"time"

	"github.com/deckgen/deckgen/pkg/models"
)

// Quality is the review grade submitted by the user.
type Quality int

const (
	Again Quality = 1
	Hard  Quality = 2
	Good  Quality = 3
	Easy  Quality = 4
)

const (
	minEase     = 1.3
	hardPenalty = 0.2
	easyBonus   = 0.15
)

// Schedule maps the current scheduling state and a review grade to the
// next state. Again resets repetition progress without touching ease;
// the remaining grades advance the interval ladder 1 → 6 →
// round(interval*ease) and adjust ease at the extremes.
func Schedule(s models.SRSState, q Quality, now time.Time) models.SRSState {
	next := s

	if q == Again {
		next.Reps = 0
		next.Interval = 1
	} else {
		next.Reps = s.Reps + 1
		switch next.Reps {
		case 1:
			next.Interval = 1
		case 2:
			next.Interval = 6
		default:
			next.Interval = int(math.Round(float64(s.Interval) * s.Ease))
		}

		switch q {
		case Hard:
			next.Ease = math.Max(minEase, s.Ease-hardPenalty)
		case Easy:
			next.Ease = s.Ease + easyBonus
		}
	}

	next.NextReviewAt = now.Add(time.Duration(next.Interval) * 24 * time.Hour)
	return next
}
