package telegram

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"sync"

	"github.com/PoluyanbIch/StudyQuizBot/internal/content"
	"github.com/PoluyanbIch/StudyQuizBot/internal/service"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

const repoURL = "https://github.com/PoluyanbIch/StudyQuizBot"

const (
	noticeNotOwner = "This quiz belongs to someone else"
	noticeGone     = "This quiz is no longer available"
	noticeBadInput = "That choice is not available"
)

// client is the part of the Bot API the handlers talk to.
type client interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
}

// messageRef points at the message a session is rendered into.
type messageRef struct {
	chatID    int64
	messageID int
	user      *tgbotapi.User
}

type Bot struct {
	api                *tgbotapi.BotAPI
	client             client
	manager            *service.Manager
	leaderboardService service.LeaderboardService
	course             content.Course

	mu       sync.Mutex
	messages map[string]messageRef
	latest   map[string]string
}

func NewBot(token string, debug bool, manager *service.Manager, leaderboardService service.LeaderboardService, course content.Course) (*Bot, error) {
	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, err
	}
	api.Debug = debug

	b := newBot(api, manager, leaderboardService, course)
	b.api = api
	return b, nil
}

func newBot(c client, manager *service.Manager, leaderboardService service.LeaderboardService, course content.Course) *Bot {
	return &Bot{
		client:             c,
		manager:            manager,
		leaderboardService: leaderboardService,
		course:             course,
		messages:           make(map[string]messageRef),
		latest:             make(map[string]string),
	}
}

func (b *Bot) Start() {
	log.Printf("Authorised on account: %s", b.api.Self.UserName)

	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60

	updates := b.api.GetUpdatesChan(u)

	for update := range updates {
		b.handleUpdate(update)
	}
}

// Stop ends the update loop started by Start.
func (b *Bot) Stop() {
	b.api.StopReceivingUpdates()
}

func (b *Bot) handleUpdate(update tgbotapi.Update) {
	if update.Message != nil && update.Message.From != nil {
		b.handleMessage(update.Message)
	}
	if update.CallbackQuery != nil {
		b.handleCallback(update.CallbackQuery)
	}
}

func (b *Bot) handleMessage(msg *tgbotapi.Message) {
	chatID := msg.Chat.ID
	switch msg.Command() {
	case "start":
		b.sendMainMenu(chatID)
	case "quiz":
		b.startQuiz(chatID, msg.From)
	case "mcq":
		b.startPractice(chatID, msg.From)
	case "leaderboard":
		b.handleLeaderboard(chatID)
	case "info":
		b.handleInfo(chatID)
	default:
		b.sendMessage(chatID, "Unknown command. Try /start")
	}
}

func (b *Bot) handleCallback(callback *tgbotapi.CallbackQuery) {
	if callback.Message == nil {
		b.answerCallback(callback.ID, "")
		return
	}
	chatID := callback.Message.Chat.ID
	user := callback.From

	switch callback.Data {
	case dataStartQuiz:
		b.answerCallback(callback.ID, "")
		b.startQuiz(chatID, user)
		return
	case dataStartPractice:
		b.answerCallback(callback.ID, "")
		b.startPractice(chatID, user)
		return
	case dataLeaderboard:
		b.answerCallback(callback.ID, "")
		b.handleLeaderboard(chatID)
		return
	case dataInfo:
		b.answerCallback(callback.ID, "")
		b.handleInfo(chatID)
		return
	case dataMenu:
		b.answerCallback(callback.ID, "")
		b.sendMainMenu(chatID)
		return
	}

	cd, err := parseCallback(callback.Data)
	if err != nil {
		log.Printf("Error parsing callback %q: %v", callback.Data, err)
		b.answerCallback(callback.ID, "Unknown command")
		return
	}

	ref, ok := b.ref(cd.Session)
	switch {
	case !ok:
		b.answerCallback(callback.ID, noticeGone)
		return
	case ref.user.ID != user.ID:
		b.answerCallback(callback.ID, noticeNotOwner)
		return
	}

	if cd.Kind == prefixPractice {
		b.handlePracticeAnswer(callback, ref, cd)
		return
	}
	b.handleQuizAction(callback, ref, cd)
}

func (b *Bot) handleQuizAction(callback *tgbotapi.CallbackQuery, ref messageRef, cd callbackData) {
	ctx := context.Background()
	actor := callback.From.ID

	session, err := b.manager.Get(actor, cd.Session)
	if err != nil {
		b.answerCallback(callback.ID, callbackNotice(err))
		return
	}

	switch cd.Action {
	case actionStart:
		_, err = b.manager.Start(ctx, actor, cd.Session)
	case actionAnswer:
		err = session.RecordAnswer(actor, session.Cursor(), cd.Arg)
	case actionNavigate:
		err = session.Navigate(actor, cd.Arg)
	case actionSubmit:
		// Submitting with unanswered questions is a quit and is kept off the
		// leaderboard.
		quit := !session.AllAnswered()
		_, err = b.manager.Submit(ctx, actor, cd.Session)
		if err == nil && !quit {
			b.recordResult(ref, session)
		}
	}
	b.answerCallback(callback.ID, callbackNotice(err))

	if errors.Is(err, service.ErrInvalidActor) {
		return
	}
	b.renderSession(ref, session)
}

func (b *Bot) handlePracticeAnswer(callback *tgbotapi.CallbackQuery, ref messageRef, cd callbackData) {
	actor := callback.From.ID

	p, err := b.manager.Practice(actor, cd.Session)
	if err != nil {
		b.answerCallback(callback.ID, callbackNotice(err))
		return
	}
	_, err = p.Answer(actor, cd.Arg)
	b.answerCallback(callback.ID, callbackNotice(err))
	if err != nil {
		return
	}

	v := p.Snapshot()
	b.edit(ref, renderPractice(v), practiceKeyboard(v))
}

// OnExpire renders the results of a quiz that ran out of time. It runs on the
// session's timer goroutine.
func (b *Bot) OnExpire(session *service.QuizSession) {
	ref, ok := b.ref(session.ID)
	if !ok {
		return
	}
	b.recordResult(ref, session)
	b.renderSession(ref, session)
}

func (b *Bot) startQuiz(chatID int64, user *tgbotapi.User) {
	ctx := context.Background()

	session, err := b.manager.Begin(ctx, user.ID)
	if err != nil {
		b.sendMessage(chatID, userMessage(err))
		return
	}

	msg := tgbotapi.NewMessage(chatID, renderIntro(session.Total(), session.TimeLimit(), session.Units()))
	msg.ParseMode = tgbotapi.ModeHTML
	msg.ReplyMarkup = quizKeyboard(session.Snapshot())

	sent, err := b.client.Send(msg)
	if err != nil {
		log.Printf("Error sending quiz intro: %v", err)
		b.manager.Release(ctx, user.ID)
		return
	}
	b.track("quiz", session.ID, messageRef{chatID: chatID, messageID: sent.MessageID, user: user})
}

func (b *Bot) startPractice(chatID int64, user *tgbotapi.User) {
	p, err := b.manager.NewPractice(user.ID)
	if err != nil {
		b.sendMessage(chatID, userMessage(err))
		return
	}

	v := p.Snapshot()
	msg := tgbotapi.NewMessage(chatID, renderPractice(v))
	msg.ParseMode = tgbotapi.ModeHTML
	msg.ReplyMarkup = practiceKeyboard(v)

	sent, err := b.client.Send(msg)
	if err != nil {
		log.Printf("Error sending practice question: %v", err)
		return
	}
	b.track("practice", p.ID, messageRef{chatID: chatID, messageID: sent.MessageID, user: user})
}

func (b *Bot) renderSession(ref messageRef, session *service.QuizSession) {
	v := session.Snapshot()
	text := renderIntro(session.Total(), session.TimeLimit(), session.Units())
	if v.State != service.StateNotStarted {
		text = renderQuiz(v, session.Grade())
	}
	b.edit(ref, text, quizKeyboard(v))
}

func (b *Bot) recordResult(ref messageRef, session *service.QuizSession) {
	res := session.Grade()
	isNewBest := b.leaderboardService.AddEntry(ref.user.ID, ref.user.UserName, ref.user.FirstName, res.Correct, res.Total)
	if !isNewBest {
		return
	}
	if position, _ := b.leaderboardService.GetUserPosition(ref.user.ID); position != -1 {
		b.sendMessage(ref.chatID, fmt.Sprintf("🎉 New personal best! You are #%d on the leaderboard.", position))
	}
}

// track remembers where a session is rendered. Only the latest session of
// each kind per user is kept.
func (b *Bot) track(kind, sessionID string, ref messageRef) {
	key := fmt.Sprintf("%s:%d", kind, ref.user.ID)

	b.mu.Lock()
	defer b.mu.Unlock()
	if old, ok := b.latest[key]; ok {
		delete(b.messages, old)
	}
	b.latest[key] = sessionID
	b.messages[sessionID] = ref
}

func (b *Bot) ref(sessionID string) (messageRef, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	ref, ok := b.messages[sessionID]
	return ref, ok
}

func (b *Bot) edit(ref messageRef, text string, kb tgbotapi.InlineKeyboardMarkup) {
	msg := tgbotapi.NewEditMessageTextAndMarkup(ref.chatID, ref.messageID, text, kb)
	msg.ParseMode = tgbotapi.ModeHTML
	if _, err := b.client.Send(msg); err != nil && !strings.Contains(err.Error(), "message is not modified") {
		log.Printf("Error editing message %d: %v", ref.messageID, err)
	}
}

func (b *Bot) answerCallback(id, text string) {
	if _, err := b.client.Request(tgbotapi.NewCallback(id, text)); err != nil {
		log.Printf("Error Answering Callback: %v", err)
	}
}

// callbackNotice maps a session error to the short notice shown on the
// button press. Repeated transitions are answered silently.
func callbackNotice(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, service.ErrInvalidActor):
		return noticeNotOwner
	case errors.Is(err, service.ErrSessionNotFound):
		return noticeGone
	case errors.Is(err, service.ErrChoiceOutOfRange), errors.Is(err, service.ErrQuestionOutOfRange):
		return noticeBadInput
	case errors.Is(err, service.ErrAlreadyStarted), errors.Is(err, service.ErrAlreadyRevealed),
		errors.Is(err, service.ErrNotStarted), errors.Is(err, service.ErrNotInProgress):
		return ""
	}
	log.Printf("Unexpected session error: %v", err)
	return ""
}

func userMessage(err error) string {
	switch {
	case errors.Is(err, service.ErrInsufficientContent):
		return "😕 There is not enough material to build a quiz right now."
	case errors.Is(err, service.ErrSessionActive):
		return "⏳ You already have a quiz in progress. Finish it first."
	}
	log.Printf("Error creating quiz: %v", err)
	return "Something went wrong, please try again later."
}

func (b *Bot) sendMainMenu(chatID int64) {
	msg := tgbotapi.NewMessage(chatID, "📋 <b>Main menu</b>")
	msg.ParseMode = tgbotapi.ModeHTML

	kb := tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("📝 Timed quiz", dataStartQuiz),
			tgbotapi.NewInlineKeyboardButtonData("🎲 Single MCQ", dataStartPractice),
		),
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("🏆 Leaderboard", dataLeaderboard),
			tgbotapi.NewInlineKeyboardButtonData("ℹ️ Info", dataInfo),
		),
	)
	msg.ReplyMarkup = kb
	if _, err := b.client.Send(msg); err != nil {
		log.Printf("Error sending start message: %v", err)
	}
}

func (b *Bot) sendMessage(chatID int64, text string) {
	msg := tgbotapi.NewMessage(chatID, text)
	if _, err := b.client.Send(msg); err != nil {
		log.Printf("Error sending msg: %v", err)
	}
}

func (b *Bot) handleLeaderboard(chatID int64) {
	msg := tgbotapi.NewMessage(chatID, renderLeaderboard(b.leaderboardService.GetTop(10)))
	msg.ParseMode = tgbotapi.ModeHTML

	keyboard := tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("🎯 Start quiz", dataStartQuiz),
			tgbotapi.NewInlineKeyboardButtonData("📋 Main menu", dataMenu),
		),
	)
	msg.ReplyMarkup = keyboard

	if _, err := b.client.Send(msg); err != nil {
		log.Printf("Error sending leaderboard: %v", err)
	}
}

func (b *Bot) handleInfo(chatID int64) {
	infoMsg := tgbotapi.NewMessage(chatID, renderInfo(b.course.Summary()))
	infoMsg.ParseMode = tgbotapi.ModeHTML

	keyboard := tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonURL("📂 GitHub repository", repoURL),
		),
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("🔙 Back", dataMenu),
		),
	)
	infoMsg.ReplyMarkup = keyboard

	if _, err := b.client.Send(infoMsg); err != nil {
		log.Printf("Error sending info: %v", err)
	}
}
