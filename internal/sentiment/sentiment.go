// Package sentiment scores free-text feedback on a -1 to +1 polarity
// scale. The Analyzer interface lets an external engine supply polarities;
// the bundled VADER analyzer is the offline default.
package sentiment

import "github.com/jonreiter/govader"

// Categories assigned from a polarity value.
const (
	Positive = "Positive"
	Neutral  = "Neutral"
	Negative = "Negative"
)

// Analyzer produces a polarity in [-1, 1] for a piece of text.
type Analyzer interface {
	Polarity(text string) float64
}

// Categorize maps a polarity to its display category. The thresholds keep
// a band of slightly-leaning comments neutral.
func Categorize(polarity float64) string {
	switch {
	case polarity > 0.1:
		return Positive
	case polarity < -0.1:
		return Negative
	default:
		return Neutral
	}
}

// VaderAnalyzer scores text with the VADER rule-based model, which handles
// negation, intensifiers, and punctuation emphasis. It needs no network or
// trained model files.
type VaderAnalyzer struct {
	engine *govader.SentimentIntensityAnalyzer
}

// NewVaderAnalyzer creates the offline VADER analyzer.
func NewVaderAnalyzer() *VaderAnalyzer {
	return &VaderAnalyzer{engine: govader.NewSentimentIntensityAnalyzer()}
}

// Polarity returns VADER's compound score, already normalized to [-1, 1].
// Text with no scoring words yields 0.
func (a *VaderAnalyzer) Polarity(text string) float64 {
	return a.engine.PolarityScores(text).Compound
}
