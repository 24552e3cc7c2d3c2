package service

// QuestionResult is the grading outcome of one question. UserChoice is
// Unanswered when the user skipped it.
type QuestionResult struct {
	UserChoice    int
	CorrectChoice int
	IsCorrect     bool
}

type Result struct {
	Correct     int
	Total       int
	Ratio       float64
	PerQuestion []QuestionResult
}

// Percent is the integer percentage of correct answers.
func (r Result) Percent() int {
	if r.Total == 0 {
		return 0
	}
	return r.Correct * 100 / r.Total
}

// Grade compares answers against the correct index of each shuffled choice
// list. Unanswered questions are always wrong.
func Grade(answers []int, choices []Choices) Result {
	res := Result{Total: len(choices), PerQuestion: make([]QuestionResult, len(choices))}

	for i, c := range choices {
		user := Unanswered
		if i < len(answers) {
			user = answers[i]
		}
		ok := user != Unanswered && user == c.Correct
		if ok {
			res.Correct++
		}
		res.PerQuestion[i] = QuestionResult{UserChoice: user, CorrectChoice: c.Correct, IsCorrect: ok}
	}

	if res.Total > 0 {
		res.Ratio = float64(res.Correct) / float64(res.Total)
	}
	return res
}
