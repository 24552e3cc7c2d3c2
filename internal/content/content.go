package content

import "fmt"

// CourseType identifies how a course's sections are shaped.
type CourseType string

const (
	CourseHistory CourseType = "history"
)

type Term struct {
	Term       string `json:"term"`
	Definition string `json:"definition"`
	Image      string `json:"image,omitempty"`
}

type Question struct {
	Question     string   `json:"question"`
	Answer       string   `json:"answer"`
	OtherChoices []string `json:"other_choices"`
	Explanation  string   `json:"explanation,omitempty"`
}

// Choices returns the correct answer followed by the distractors.
func (q Question) Choices() []string {
	out := make([]string, 0, len(q.OtherChoices)+1)
	out = append(out, q.Answer)
	return append(out, q.OtherChoices...)
}

// Stimulus is the passage or image shared by every question of a set.
// When Image is set it takes precedence over Text.
type Stimulus struct {
	Header string `json:"header"`
	Text   string `json:"text,omitempty"`
	Image  string `json:"image,omitempty"`
	Footer string `json:"footer,omitempty"`
}

// QuestionSet groups questions that share one stimulus. ID is assigned at load
// time and is the only identity used when de-duplicating sets.
type QuestionSet struct {
	ID        int        `json:"id"`
	Stimulus  Stimulus   `json:"stimulus"`
	Questions []Question `json:"questions"`
}

type Section struct {
	Period       int           `json:"period"`
	Range        string        `json:"range"`
	Terms        []Term        `json:"terms"`
	QuestionSets []QuestionSet `json:"mcqs"`
}

// Key identifies a section. Sections sharing a period are the same section.
func (s Section) Key() int { return s.Period }

// Label is the human readable "Period N: range" line.
func (s Section) Label() string {
	return fmt.Sprintf("Period %d: %s", s.Period, s.Range)
}

type Course struct {
	Type     CourseType `json:"type"`
	Name     string     `json:"name"`
	Sections []Section  `json:"sections"`
}

// SectionSummary is a count of the material available in one section.
type SectionSummary struct {
	Period       int    `json:"period"`
	Range        string `json:"range"`
	Terms        int    `json:"terms"`
	QuestionSets int    `json:"question_sets"`
	Questions    int    `json:"questions"`
}

type CourseSummary struct {
	Type     CourseType       `json:"type"`
	Name     string           `json:"name"`
	Sections []SectionSummary `json:"sections"`
}

func (c Course) Summary() CourseSummary {
	out := CourseSummary{Type: c.Type, Name: c.Name, Sections: make([]SectionSummary, 0, len(c.Sections))}
	for _, s := range c.Sections {
		sum := SectionSummary{
			Period:       s.Period,
			Range:        s.Range,
			Terms:        len(s.Terms),
			QuestionSets: len(s.QuestionSets),
		}
		for _, qs := range s.QuestionSets {
			sum.Questions += len(qs.Questions)
		}
		out.Sections = append(out.Sections, sum)
	}
	return out
}
