package content

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
)

// ErrContentLoad wraps every failure to read or validate the course file.
var ErrContentLoad = errors.New("content load failed")

type rawCourse struct {
	Type     *string       `json:"type"`
	Name     *string       `json:"name"`
	Sections *[]rawSection `json:"sections"`
}

type rawSection struct {
	Period *int           `json:"period"`
	Range  *string        `json:"range"`
	Terms  []Term         `json:"terms"`
	MCQs   *[]rawQuestSet `json:"mcqs"`
}

type rawQuestSet struct {
	Stimulus  *rawStimulus   `json:"stimulus"`
	Questions *[]rawQuestion `json:"questions"`
}

type rawStimulus struct {
	Header *string `json:"header"`
	Text   *string `json:"text"`
	Image  *string `json:"image"`
	Footer *string `json:"footer"`
}

type rawQuestion struct {
	Question     *string   `json:"question"`
	Answer       *string   `json:"answer"`
	OtherChoices *[]string `json:"other_choices"`
	Explanation  *string   `json:"explanation"`
}

// Load reads the course file at path.
func Load(path string) ([]Course, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to open file: %v", ErrContentLoad, err)
	}
	defer file.Close()

	return Decode(file)
}

// Decode parses a JSON array of courses and assigns question set IDs in file order.
func Decode(r io.Reader) ([]Course, error) {
	var raw []rawCourse
	if err := json.NewDecoder(r).Decode(&raw); err != nil {
		return nil, fmt.Errorf("%w: invalid json: %v", ErrContentLoad, err)
	}

	nextID := 1
	courses := make([]Course, 0, len(raw))
	for ci, rc := range raw {
		course, err := rc.build(&nextID)
		if err != nil {
			return nil, fmt.Errorf("%w: course %d: %v", ErrContentLoad, ci, err)
		}
		courses = append(courses, course)
	}
	return courses, nil
}

func (rc rawCourse) build(nextID *int) (Course, error) {
	if rc.Type == nil {
		return Course{}, missing("type")
	}
	if rc.Name == nil {
		return Course{}, missing("name")
	}
	if rc.Sections == nil {
		return Course{}, missing("sections")
	}

	ty := CourseType(*rc.Type)
	switch ty {
	case CourseHistory:
	default:
		return Course{}, fmt.Errorf("unknown course type %q", *rc.Type)
	}

	course := Course{Type: ty, Name: *rc.Name, Sections: make([]Section, 0, len(*rc.Sections))}
	for si, rs := range *rc.Sections {
		section, err := rs.build(nextID)
		if err != nil {
			return Course{}, fmt.Errorf("section %d: %v", si, err)
		}
		course.Sections = append(course.Sections, section)
	}
	return course, nil
}

func (rs rawSection) build(nextID *int) (Section, error) {
	if rs.Period == nil {
		return Section{}, missing("period")
	}
	if rs.Range == nil {
		return Section{}, missing("range")
	}
	if rs.MCQs == nil {
		return Section{}, missing("mcqs")
	}

	section := Section{
		Period:       *rs.Period,
		Range:        *rs.Range,
		Terms:        rs.Terms,
		QuestionSets: make([]QuestionSet, 0, len(*rs.MCQs)),
	}
	for i, t := range section.Terms {
		if t.Term == "" || t.Definition == "" {
			return Section{}, fmt.Errorf("term %d: missing term or definition", i)
		}
	}
	for qi, rq := range *rs.MCQs {
		set, err := rq.build()
		if err != nil {
			return Section{}, fmt.Errorf("mcq %d: %v", qi, err)
		}
		set.ID = *nextID
		*nextID++
		section.QuestionSets = append(section.QuestionSets, set)
	}
	return section, nil
}

func (rq rawQuestSet) build() (QuestionSet, error) {
	if rq.Stimulus == nil {
		return QuestionSet{}, missing("stimulus")
	}
	if rq.Stimulus.Header == nil {
		return QuestionSet{}, missing("stimulus.header")
	}
	if rq.Questions == nil {
		return QuestionSet{}, missing("questions")
	}
	if len(*rq.Questions) == 0 {
		return QuestionSet{}, errors.New("question set has no questions")
	}

	set := QuestionSet{
		Stimulus: Stimulus{
			Header: *rq.Stimulus.Header,
			Text:   deref(rq.Stimulus.Text),
			Image:  deref(rq.Stimulus.Image),
			Footer: deref(rq.Stimulus.Footer),
		},
		Questions: make([]Question, 0, len(*rq.Questions)),
	}
	for i, q := range *rq.Questions {
		switch {
		case q.Question == nil:
			return QuestionSet{}, fmt.Errorf("question %d: %v", i, missing("question"))
		case q.Answer == nil:
			return QuestionSet{}, fmt.Errorf("question %d: %v", i, missing("answer"))
		case q.OtherChoices == nil:
			return QuestionSet{}, fmt.Errorf("question %d: %v", i, missing("other_choices"))
		}
		set.Questions = append(set.Questions, Question{
			Question:     *q.Question,
			Answer:       *q.Answer,
			OtherChoices: *q.OtherChoices,
			Explanation:  deref(q.Explanation),
		})
	}
	return set, nil
}

func missing(key string) error {
	return fmt.Errorf("missing key %q", key)
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
