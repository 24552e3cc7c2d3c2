package telegram

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/PoluyanbIch/StudyQuizBot/internal/content"
	"github.com/PoluyanbIch/StudyQuizBot/internal/service"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

const letters = "ABCDE"

func escape(s string) string {
	return tgbotapi.EscapeText(tgbotapi.ModeHTML, s)
}

func choiceLabel(i int) string {
	if i >= 0 && i < len(letters) {
		return letters[i : i+1]
	}
	return fmt.Sprintf("%d", i+1)
}

func minutes(d time.Duration) int {
	return int(math.Ceil(d.Minutes()))
}

// renderIntro describes a created quiz before the user presses Begin.
func renderIntro(total int, limit time.Duration, units []content.Section) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "📝 <b>Timed MCQ</b>\n\nThis short MCQ consists of %d questions.\n", total)
	if limit > 0 {
		fmt.Fprintf(&sb, "You will have %d minutes to answer all %d questions.\n", minutes(limit), total)
	}
	if len(units) > 0 {
		sb.WriteString("\n<b>Units Covered</b>\n")
		for _, u := range units {
			fmt.Fprintf(&sb, "- %s\n", escape(u.Label()))
		}
	}
	sb.WriteString("\n<i>Press the button below to begin.</i>")
	return sb.String()
}

func spanHeader(span service.Span) string {
	if span.Start == span.End {
		return fmt.Sprintf("Question %d refers", span.Start)
	}
	return fmt.Sprintf("Questions %d-%d refer", span.Start, span.End)
}

func writeStimulus(sb *strings.Builder, header string, st content.Stimulus) {
	fmt.Fprintf(sb, "<b>%s %s</b>\n", escape(header), escape(st.Header))
	if st.Image != "" {
		fmt.Fprintf(sb, "<a href=\"%s\">View image</a>\n", escape(st.Image))
	} else if st.Text != "" {
		fmt.Fprintf(sb, "\n%s\n", escape(st.Text))
	}
	if st.Footer != "" {
		fmt.Fprintf(sb, "<i>%s</i>\n", escape(st.Footer))
	}
}

func formatChoice(i int, choice string, v service.View) string {
	text := escape(choice)
	if v.Revealed {
		switch {
		case i == v.CorrectChoice:
			text = "<b>" + text + "</b>"
		case i == v.UserChoice:
			text = "<s>" + text + "</s>"
		}
	} else if i == v.UserChoice {
		text += " ◀"
	}
	return fmt.Sprintf("- %s) %s", choiceLabel(i), text)
}

func writeQuestion(sb *strings.Builder, v service.View) {
	fmt.Fprintf(sb, "\n<b>%s</b>\n", escape(v.Question.Question))
	for i, choice := range v.Choices {
		sb.WriteString(formatChoice(i, choice, v))
		sb.WriteByte('\n')
	}
	if v.Revealed && v.Question.Explanation != "" {
		fmt.Fprintf(sb, "\n<b>Explanation</b>\n%s\n", escape(v.Question.Explanation))
	}
	fmt.Fprintf(sb, "\n<i>%s</i>", escape(v.Section.Label()))
}

// renderResults is the score line shown once a quiz is revealed.
func renderResults(res service.Result) string {
	return fmt.Sprintf("Score: %d/%d (%.1f%%)", res.Correct, res.Total, res.Ratio*100)
}

// renderQuiz renders a started quiz at its cursor. The grade is only used once
// the quiz is revealed.
func renderQuiz(v service.View, res service.Result) string {
	var sb strings.Builder
	if v.TimedOut {
		sb.WriteString("⏰ <b>You ran out of time</b>\n\n")
	}
	if v.Revealed {
		fmt.Fprintf(&sb, "🏁 <b>%s</b>\n\n", renderResults(res))
	}

	fmt.Fprintf(&sb, "❓ <b>Question %d/%d</b>", v.Cursor+1, v.Total)
	if !v.Revealed && !v.Deadline.IsZero() {
		fmt.Fprintf(&sb, " · due %s", v.Deadline.Format("15:04"))
	}
	sb.WriteString("\n\n")

	writeStimulus(&sb, spanHeader(v.Span), v.Stimulus)
	writeQuestion(&sb, v)
	return sb.String()
}

// renderPractice renders a single practice question.
func renderPractice(v service.View) string {
	var sb strings.Builder
	if v.Revealed {
		if v.UserChoice == v.CorrectChoice {
			sb.WriteString("✅ <b>Correct!</b>\n\n")
		} else {
			sb.WriteString("❌ <b>Incorrect</b>\n\n")
		}
	}
	writeStimulus(&sb, "This question refers", v.Stimulus)
	writeQuestion(&sb, v)
	return sb.String()
}

func quizKeyboard(v service.View) tgbotapi.InlineKeyboardMarkup {
	id := v.SessionID
	var rows [][]tgbotapi.InlineKeyboardButton

	if v.State == service.StateNotStarted {
		return tgbotapi.NewInlineKeyboardMarkup(tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("▶️ Begin", quizData(id, actionStart, "")),
		))
	}

	if !v.Revealed {
		var row []tgbotapi.InlineKeyboardButton
		for i := range v.Choices {
			row = append(row, tgbotapi.NewInlineKeyboardButtonData(choiceLabel(i), quizData(id, actionAnswer, fmt.Sprint(i))))
		}
		rows = append(rows, row)
	}

	var nav []tgbotapi.InlineKeyboardButton
	if v.Cursor > 0 {
		nav = append(nav, tgbotapi.NewInlineKeyboardButtonData("⬅️ Previous", quizData(id, actionNavigate, "-1")))
	}
	if v.Cursor < v.Total-1 {
		nav = append(nav, tgbotapi.NewInlineKeyboardButtonData("Next ➡️", quizData(id, actionNavigate, "1")))
	}
	if len(nav) > 0 {
		rows = append(rows, nav)
	}

	if v.Revealed {
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("🎯 New quiz", dataStartQuiz),
			tgbotapi.NewInlineKeyboardButtonData("🔙 Menu", dataMenu),
		))
	} else if v.AllAnswered {
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("✅ Submit", quizData(id, actionSubmit, "")),
		))
	} else {
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("🚪 Quit", quizData(id, actionSubmit, "")),
		))
	}
	return tgbotapi.NewInlineKeyboardMarkup(rows...)
}

func practiceKeyboard(v service.View) tgbotapi.InlineKeyboardMarkup {
	if v.Revealed {
		return tgbotapi.NewInlineKeyboardMarkup(tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("🔁 Another question", dataStartPractice),
			tgbotapi.NewInlineKeyboardButtonData("🔙 Menu", dataMenu),
		))
	}
	var row []tgbotapi.InlineKeyboardButton
	for i := range v.Choices {
		row = append(row, tgbotapi.NewInlineKeyboardButtonData(choiceLabel(i), practiceData(v.SessionID, i)))
	}
	return tgbotapi.NewInlineKeyboardMarkup(row)
}

func medal(i int) string {
	switch i {
	case 0:
		return "🥇"
	case 1:
		return "🥈"
	case 2:
		return "🥉"
	}
	return "🔸"
}

func renderLeaderboard(top []service.LeaderboardEntry) string {
	if len(top) == 0 {
		return "🏆 <b>Leaderboard</b>\n\nNo results yet. Be the first! 🎯"
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "🏆 <b>Top %d players</b>\n\n", len(top))
	for i, entry := range top {
		name := entry.FirstName
		if entry.Username != "" {
			name = "@" + entry.Username
		}
		fmt.Fprintf(&sb, "%s %d. %s - %d%% (%d/%d)\n   📅 %s\n\n",
			medal(i), i+1, escape(name), entry.Percentage, entry.Score, entry.Total, entry.Date)
	}
	return sb.String()
}

func renderInfo(summary content.CourseSummary) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "📚 <b>%s</b>\n\n", escape(summary.Name))
	for _, s := range summary.Sections {
		fmt.Fprintf(&sb, "- Period %d: %s (%d sets, %d questions)\n",
			s.Period, escape(s.Range), s.QuestionSets, s.Questions)
	}
	sb.WriteString("\nSource code:\n" + repoURL)
	return sb.String()
}
