// Package rating computes Elo rating and win/loss/draw counter updates for
// finished games.
package rating

import (
	"math"

	"chess-arena/internal/rules"
)

const (
	// KFactor is the fixed Elo K used for every update.
	KFactor = 32
	// Floor is the lowest rating an update may produce.
	Floor = 100
	// InitialRating is assigned to newly created accounts.
	InitialRating = 1200
)

// Stats is one player's rating and lifetime counters.
type Stats struct {
	Rating int
	Wins   int
	Losses int
	Draws  int
}

// Expected returns the expected score of a player rated own against opp.
func Expected(own, opp int) float64 {
	return 1.0 / (1.0 + math.Pow(10, float64(opp-own)/400.0))
}

// Apply returns the updated stats for the white and black players given the
// game result. Ratings never drop below Floor.
func Apply(white, black Stats, result rules.Result) (Stats, Stats) {
	expW := Expected(white.Rating, black.Rating)
	expB := Expected(black.Rating, white.Rating)

	var scoreW, scoreB float64
	switch result {
	case rules.ResultWhite:
		scoreW, scoreB = 1, 0
		white.Wins++
		black.Losses++
	case rules.ResultBlack:
		scoreW, scoreB = 0, 1
		black.Wins++
		white.Losses++
	default:
		scoreW, scoreB = 0.5, 0.5
		white.Draws++
		black.Draws++
	}

	white.Rating = clamp(white.Rating, scoreW, expW)
	black.Rating = clamp(black.Rating, scoreB, expB)
	return white, black
}

func clamp(rating int, score, expected float64) int {
	next := int(math.Round(float64(rating) + KFactor*(score-expected)))
	if next < Floor {
		return Floor
	}
	return next
}
