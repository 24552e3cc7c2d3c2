package telegram

import (
	"errors"
	"strconv"
	"strings"
)

// Menu buttons carry fixed callback data.
const (
	dataStartQuiz     = "start_quiz"
	dataStartPractice = "start_mcq"
	dataLeaderboard   = "leaderboard"
	dataInfo          = "info"
	dataMenu          = "back_to_menu"
)

const (
	prefixQuiz     = "q"
	prefixPractice = "p"

	actionStart    = "start"
	actionAnswer   = "ans"
	actionNavigate = "nav"
	actionSubmit   = "submit"
)

var errBadCallback = errors.New("malformed callback data")

// callbackData is a decoded session button: q:<session>:<action>[:arg] for
// timed quizzes and p:<session>:<choice> for practice questions.
type callbackData struct {
	Kind    string
	Session string
	Action  string
	Arg     int
}

func quizData(session, action, arg string) string {
	if arg == "" {
		return prefixQuiz + ":" + session + ":" + action
	}
	return prefixQuiz + ":" + session + ":" + action + ":" + arg
}

func practiceData(session string, choice int) string {
	return prefixPractice + ":" + session + ":" + strconv.Itoa(choice)
}

func parseCallback(data string) (callbackData, error) {
	parts := strings.Split(data, ":")
	if len(parts) < 3 || parts[1] == "" {
		return callbackData{}, errBadCallback
	}

	switch parts[0] {
	case prefixPractice:
		if len(parts) != 3 {
			return callbackData{}, errBadCallback
		}
		choice, err := strconv.Atoi(parts[2])
		if err != nil {
			return callbackData{}, errBadCallback
		}
		return callbackData{Kind: prefixPractice, Session: parts[1], Action: actionAnswer, Arg: choice}, nil

	case prefixQuiz:
		cd := callbackData{Kind: prefixQuiz, Session: parts[1], Action: parts[2]}
		switch cd.Action {
		case actionStart, actionSubmit:
			if len(parts) != 3 {
				return callbackData{}, errBadCallback
			}
		case actionAnswer, actionNavigate:
			if len(parts) != 4 {
				return callbackData{}, errBadCallback
			}
			arg, err := strconv.Atoi(parts[3])
			if err != nil {
				return callbackData{}, errBadCallback
			}
			cd.Arg = arg
		default:
			return callbackData{}, errBadCallback
		}
		return cd, nil
	}
	return callbackData{}, errBadCallback
}
