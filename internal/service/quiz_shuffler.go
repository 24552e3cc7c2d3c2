package service

import (
	"math/rand"
	"time"

	"github.com/PoluyanbIch/StudyQuizBot/internal/content"
)

// Choices is the shuffled option list of one question plus the position of the
// correct answer inside it.
type Choices struct {
	Options []string
	Correct int
}

func newRand() *rand.Rand {
	return rand.New(rand.NewSource(time.Now().UnixNano()))
}

// ShuffleChoices shuffles the answer and distractors with Fisher-Yates and
// tracks where the answer lands.
func ShuffleChoices(r *rand.Rand, q content.Question) Choices {
	options := q.Choices()
	correct := 0

	for i := len(options) - 1; i > 0; i-- {
		j := r.Intn(i + 1)
		options[i], options[j] = options[j], options[i]
		switch correct {
		case i:
			correct = j
		case j:
			correct = i
		}
	}

	return Choices{Options: options, Correct: correct}
}

// ShuffleAll shuffles the choices of every item once, at session creation.
func ShuffleAll(r *rand.Rand, items []Item) []Choices {
	out := make([]Choices, len(items))
	for i, item := range items {
		out[i] = ShuffleChoices(r, item.Question)
	}
	return out
}
