package content

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

const sampleCourses = `[
  {
    "type": "history",
    "name": "APUSH",
    "sections": [
      {
        "period": 1,
        "range": "1491-1607",
        "terms": [{"term": "Encomienda", "definition": "Labor system", "image": null}],
        "mcqs": [
          {
            "stimulus": {"header": "to the excerpt below.", "text": "Passage", "footer": "Source"},
            "questions": [
              {"question": "Q1", "answer": "A", "other_choices": ["B", "C", "D"], "explanation": "Because"},
              {"question": "Q2", "answer": "A", "other_choices": ["B", "C", "D"]}
            ]
          }
        ]
      },
      {
        "period": 2,
        "range": "1607-1754",
        "terms": [],
        "mcqs": [
          {
            "stimulus": {"header": "to the image below.", "image": "https://example.com/map.png"},
            "questions": [{"question": "Q3", "answer": "A", "other_choices": ["B"]}]
          }
        ]
      }
    ]
  }
]`

func TestDecode(t *testing.T) {
	courses, err := Decode(strings.NewReader(sampleCourses))
	if err != nil {
		t.Fatalf("Decode() error = %v", err)
	}
	if len(courses) != 1 {
		t.Fatalf("len(courses) = %d, want 1", len(courses))
	}
	c := courses[0]
	if c.Type != CourseHistory || c.Name != "APUSH" {
		t.Errorf("course = %+v", c)
	}
	if len(c.Sections) != 2 {
		t.Fatalf("len(sections) = %d, want 2", len(c.Sections))
	}

	first := c.Sections[0].QuestionSets[0]
	second := c.Sections[1].QuestionSets[0]
	if first.ID != 1 || second.ID != 2 {
		t.Errorf("question set ids = %d, %d; want 1, 2", first.ID, second.ID)
	}
	if first.Questions[0].Explanation != "Because" {
		t.Errorf("explanation = %q", first.Questions[0].Explanation)
	}
	if second.Stimulus.Image == "" || second.Stimulus.Text != "" {
		t.Errorf("stimulus = %+v", second.Stimulus)
	}
	if got := c.Sections[0].Label(); got != "Period 1: 1491-1607" {
		t.Errorf("Label() = %q", got)
	}
}

func TestDecodeErrors(t *testing.T) {
	tests := []struct {
		name string
		data string
	}{
		{name: "invalid json", data: `[{`},
		{name: "unknown type", data: `[{"type": "math", "name": "x", "sections": []}]`},
		{name: "missing name", data: `[{"type": "history", "sections": []}]`},
		{name: "missing sections", data: `[{"type": "history", "name": "x"}]`},
		{name: "missing period", data: `[{"type": "history", "name": "x", "sections": [{"range": "r", "mcqs": []}]}]`},
		{name: "missing mcqs", data: `[{"type": "history", "name": "x", "sections": [{"period": 1, "range": "r"}]}]`},
		{
			name: "missing stimulus header",
			data: `[{"type": "history", "name": "x", "sections": [{"period": 1, "range": "r", "mcqs": [{"stimulus": {}, "questions": []}]}]}]`,
		},
		{
			name: "empty question set",
			data: `[{"type": "history", "name": "x", "sections": [{"period": 1, "range": "r", "mcqs": [{"stimulus": {"header": "h"}, "questions": []}]}]}]`,
		},
		{
			name: "missing answer",
			data: `[{"type": "history", "name": "x", "sections": [{"period": 1, "range": "r", "mcqs": [{"stimulus": {"header": "h"}, "questions": [{"question": "q", "other_choices": []}]}]}]}]`,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Decode(strings.NewReader(tt.data))
			if !errors.Is(err, ErrContentLoad) {
				t.Errorf("Decode() error = %v, want ErrContentLoad", err)
			}
		})
	}
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "courses.json")
	if err := os.WriteFile(path, []byte(sampleCourses), 0o644); err != nil {
		t.Fatal(err)
	}

	courses, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	sum := courses[0].Summary()
	if len(sum.Sections) != 2 || sum.Sections[0].Questions != 2 || sum.Sections[1].QuestionSets != 1 {
		t.Errorf("Summary() = %+v", sum)
	}

	if _, err := Load(filepath.Join(dir, "absent.json")); !errors.Is(err, ErrContentLoad) {
		t.Errorf("Load(absent) error = %v, want ErrContentLoad", err)
	}
}

func TestLoadBundledCourses(t *testing.T) {
	courses, err := Load(filepath.Join("..", "..", "assets", "courses.json"))
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if len(courses) != 1 || courses[0].Type != CourseHistory {
		t.Fatalf("courses = %+v", courses)
	}

	seen := make(map[int]bool)
	for _, s := range courses[0].Sections {
		for _, qs := range s.QuestionSets {
			if seen[qs.ID] {
				t.Errorf("duplicate question set id %d", qs.ID)
			}
			seen[qs.ID] = true
			for _, q := range qs.Questions {
				if n := len(q.Choices()); n < 2 || n > 5 {
					t.Errorf("%q has %d choices", q.Question, n)
				}
			}
		}
	}
	if len(seen) < 3 {
		t.Errorf("only %d question sets bundled", len(seen))
	}
}
