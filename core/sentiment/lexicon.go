package sentiment

import (
	"strings"

	"github.com/siherrmann/diffuser/model"
)

// Lexicon classifies texts by counting positive and negative words.
// It needs no model download and is deterministic.
type Lexicon struct {
	positive model.StringSet
	negative model.StringSet
	negators model.StringSet
}

// NewLexicon creates a lexicon from word lists. Words are matched lowercase.
func NewLexicon(positive, negative []string) *Lexicon {
	l := &Lexicon{
		positive: model.StringSet{},
		negative: model.StringSet{},
		negators: model.NewStringSet("not", "no", "never", "nothing", "nobody", "none", "hardly", "dont", "isnt", "wasnt", "cant", "wont"),
	}
	for _, w := range positive {
		l.positive.Add(strings.ToLower(w))
	}
	for _, w := range negative {
		l.negative.Add(strings.ToLower(w))
	}
	return l
}

// DefaultLexicon returns a lexicon with a small general purpose word list
func DefaultLexicon() *Lexicon {
	return NewLexicon(
		[]string{
			"good", "great", "excellent", "amazing", "awesome", "best", "better", "love", "loved",
			"like", "happy", "glad", "nice", "wonderful", "fantastic", "thanks", "thank", "win",
			"won", "success", "successful", "safe", "hope", "hopeful", "proud", "beautiful",
			"positive", "support", "agree", "welcome", "congratulations", "enjoy", "fun", "free",
			"helpful", "strong", "effective", "recover", "recovered", "cure",
		},
		[]string{
			"bad", "worse", "worst", "terrible", "awful", "horrible", "hate", "hated", "sad",
			"angry", "wrong", "fail", "failed", "failure", "lose", "lost", "death", "dead", "die",
			"died", "kill", "killed", "fear", "afraid", "scary", "danger", "dangerous", "crisis",
			"negative", "sick", "pain", "poor", "disaster", "fake", "lie", "lies", "stupid",
			"problem", "worried", "risk",
		},
	)
}

// Classify implements model.SentimentFunc. Words following a negator count for
// the opposite polarity. A zero score is neutral.
func (l *Lexicon) Classify(text string) (model.Sentiment, error) {
	score := 0
	negate := false
	for _, word := range strings.Fields(strings.ToLower(Clean(text))) {
		polarity := 0
		if l.positive.Has(word) {
			polarity = 1
		} else if l.negative.Has(word) {
			polarity = -1
		}
		if negate {
			polarity = -polarity
		}
		score += polarity
		negate = l.negators.Has(word)
	}

	switch {
	case score > 0:
		return model.SentimentPositive, nil
	case score < 0:
		return model.SentimentNegative, nil
	default:
		return model.SentimentNeutral, nil
	}
}
