package service

import (
	"fmt"
	"math/rand"
	"sort"

	"github.com/PoluyanbIch/StudyQuizBot/internal/content"
)

// Selection is the ordered result of SelectQuestionSets. Sections[i] is the
// section QuestionSets[i] was drawn from, so a section appears once per pick.
type Selection struct {
	Sections     []content.Section
	QuestionSets []content.QuestionSet
}

// Item is one flattened question together with its shared stimulus and source section.
type Item struct {
	Stimulus content.Stimulus
	Question content.Question
	Section  content.Section
}

// Span is the inclusive 1-based range of questions sharing a stimulus.
type Span struct {
	Start int
	End   int
}

// SelectQuestionSets draws count distinct question sets. Each pick chooses a
// section uniformly among the sections that still have an unchosen set
// (sections may repeat), then a set from that section that has not been chosen
// yet. Sections whose sets are all taken drop out of later picks, so the
// section distribution shifts towards larger sections as the draw goes on.
// Sets without questions are never picked. When too few usable sets exist the
// selection fails instead of retrying forever.
func SelectQuestionSets(r *rand.Rand, sections []content.Section, count int) (Selection, error) {
	if count <= 0 {
		return Selection{}, fmt.Errorf("%w: requested %d question sets", ErrInsufficientContent, count)
	}

	available := 0
	for _, s := range sections {
		available += len(unchosen(s, nil))
	}
	if available < count {
		return Selection{}, fmt.Errorf("%w: %d question sets available, %d requested",
			ErrInsufficientContent, available, count)
	}

	chosen := make(map[int]struct{}, count)
	sel := Selection{
		Sections:     make([]content.Section, 0, count),
		QuestionSets: make([]content.QuestionSet, 0, count),
	}

	for len(sel.QuestionSets) < count {
		eligible := make([]int, 0, len(sections))
		for i, s := range sections {
			if len(unchosen(s, chosen)) > 0 {
				eligible = append(eligible, i)
			}
		}
		if len(eligible) == 0 {
			return Selection{}, fmt.Errorf("%w: ran out of distinct question sets after %d",
				ErrInsufficientContent, len(sel.QuestionSets))
		}

		section := sections[eligible[r.Intn(len(eligible))]]
		fresh := unchosen(section, chosen)
		set := fresh[r.Intn(len(fresh))]

		chosen[set.ID] = struct{}{}
		sel.Sections = append(sel.Sections, section)
		sel.QuestionSets = append(sel.QuestionSets, set)
	}

	return sel, nil
}

// unchosen lists the sets of s that have questions and are not in chosen.
func unchosen(s content.Section, chosen map[int]struct{}) []content.QuestionSet {
	var out []content.QuestionSet
	for _, qs := range s.QuestionSets {
		if len(qs.Questions) == 0 {
			continue
		}
		if _, ok := chosen[qs.ID]; !ok {
			out = append(out, qs)
		}
	}
	return out
}

// Flatten expands a selection into per-question items in selection order, and
// the stimulus span of each item. Sets without questions contribute nothing.
func Flatten(sel Selection) ([]Item, []Span) {
	var (
		items []Item
		spans []Span
	)
	next := 1
	for i, set := range sel.QuestionSets {
		n := len(set.Questions)
		if n == 0 {
			continue
		}
		span := Span{Start: next, End: next + n - 1}
		for _, q := range set.Questions {
			items = append(items, Item{Stimulus: set.Stimulus, Question: q, Section: sel.Sections[i]})
			spans = append(spans, span)
		}
		next += n
	}
	return items, spans
}

// Units returns the distinct sections of a selection ordered by period.
func (s Selection) Units() []content.Section {
	seen := make(map[int]struct{}, len(s.Sections))
	var out []content.Section
	for _, section := range s.Sections {
		if _, ok := seen[section.Key()]; ok {
			continue
		}
		seen[section.Key()] = struct{}{}
		out = append(out, section)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Period < out[j].Period })
	return out
}
