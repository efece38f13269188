package models

import "math"

// Band is the qualitative category of a continuous sentiment score.
type Band string

const (
	BandStronglyNegative Band = "Strongly Negative"
	BandNegative         Band = "Negative"
	BandNeutral          Band = "Neutral"
	BandPositive         Band = "Positive"
	BandStronglyPositive Band = "Strongly Positive"
)

// Bands lists every band from most negative to most positive.
var Bands = []Band{BandStronglyNegative, BandNegative, BandNeutral, BandPositive, BandStronglyPositive}

// BandFor maps a score to its band. The first matching rule wins, so -0.2 and 0.2 are
// Neutral while -0.6 and 0.6 fall into the strong bands. Scores outside [-1,1] are not
// rejected; they land in the nearest strong band. NaN is Neutral.
func BandFor(score float64) Band {
	switch {
	case math.IsNaN(score):
		return BandNeutral
	case score <= -0.6:
		return BandStronglyNegative
	case score < -0.2:
		return BandNegative
	case score <= 0.2:
		return BandNeutral
	case score < 0.6:
		return BandPositive
	default:
		return BandStronglyPositive
	}
}

func (b Band) String() string { return string(b) }
