package transport

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"github.com/civicgrid/grievance-engine/internal/config"
)

const welcomeHTML = `Hi! 👋

I am the <b>Public Grievance AI Bot</b>. 🤖
Please <b>send me a photo</b> of the issue (e.g. Pothole, Garbage, Broken Light) and I will route it to the correct officer.`

const helpText = "Just send a photo of the grievance! I'll handle the rest. Use /cancel to abandon a report in progress."

// Telegram adapts the Telegram Bot API to the engine's transport contract.
// It is deliberately thin: all decision logic lives behind Handler.
type Telegram struct {
	bot      *tgbotapi.BotAPI
	logger   *zap.Logger
	poll     int
	download *http.Client
}

// NewTelegram connects the bot client.
func NewTelegram(cfg config.TelegramConfig, logger *zap.Logger) (*Telegram, error) {
	bot, err := tgbotapi.NewBotAPI(cfg.Token)
	if err != nil {
		return nil, fmt.Errorf("telegram connect: %w", err)
	}
	logger.Info("connected to telegram", zap.String("username", bot.Self.UserName))
	return &Telegram{
		bot:      bot,
		logger:   logger,
		poll:     cfg.PollTimeoutSec,
		download: &http.Client{Timeout: 30 * time.Second},
	}, nil
}

// Run polls for updates and feeds them to the handler until ctx is done.
// Updates arrive serially per chat, which keeps sessions single-flight.
func (t *Telegram) Run(ctx context.Context, handler Handler) {
	updateCfg := tgbotapi.NewUpdate(0)
	updateCfg.Timeout = t.poll
	updates := t.bot.GetUpdatesChan(updateCfg)

	for {
		select {
		case <-ctx.Done():
			t.bot.StopReceivingUpdates()
			return
		case update, ok := <-updates:
			if !ok {
				return
			}
			t.dispatch(ctx, handler, update)
		}
	}
}

func (t *Telegram) dispatch(ctx context.Context, handler Handler, update tgbotapi.Update) {
	if update.CallbackQuery != nil {
		t.dispatchCallback(ctx, handler, update.CallbackQuery)
		return
	}
	msg := update.Message
	if msg == nil {
		return
	}

	switch {
	case msg.IsCommand():
		t.dispatchCommand(ctx, handler, msg)
	case len(msg.Photo) > 0 && msg.ReplyToMessage != nil:
		handler.HandleResolutionReply(ctx, ReplyWithPhoto{
			Replier:       msg.Chat.ID,
			EvidenceRef:   largestPhoto(msg.Photo),
			InReplyToText: replyText(msg.ReplyToMessage),
		})
	case len(msg.Photo) > 0:
		ref := largestPhoto(msg.Photo)
		evidence, err := t.downloadFile(ref)
		if err != nil {
			t.logger.Error("photo download failed", zap.Int64("chat_id", msg.Chat.ID), zap.Error(err))
			_ = t.SendText(ctx, msg.Chat.ID, "❌ Could not read your photo. Please try again.")
			return
		}
		handler.HandlePhoto(ctx, PhotoSubmitted{
			Submitter:     msg.Chat.ID,
			EventID:       msg.MessageID,
			EvidenceBytes: evidence,
			EvidenceRef:   ref,
		})
	case msg.Location != nil:
		handler.HandleLocation(ctx, LocationShared{
			Submitter: msg.Chat.ID,
			Latitude:  msg.Location.Latitude,
			Longitude: msg.Location.Longitude,
			Accuracy:  msg.Location.HorizontalAccuracy,
		})
	}
}

func (t *Telegram) dispatchCommand(ctx context.Context, handler Handler, msg *tgbotapi.Message) {
	switch msg.Command() {
	case "start":
		_ = t.SendText(ctx, msg.Chat.ID, welcomeHTML)
	case "help":
		_ = t.SendText(ctx, msg.Chat.ID, helpText)
	case "cancel":
		handler.HandleCancel(ctx, CancelRequested{Submitter: msg.Chat.ID})
	}
}

func (t *Telegram) dispatchCallback(ctx context.Context, handler Handler, query *tgbotapi.CallbackQuery) {
	defer func() {
		if _, err := t.bot.Request(tgbotapi.NewCallback(query.ID, "Thanks for your feedback! 🙏")); err != nil {
			t.logger.Warn("callback ack failed", zap.Error(err))
		}
	}()

	ticketID, score, ok := parseRatingData(query.Data)
	if !ok {
		t.logger.Warn("unrecognized callback data", zap.String("data", query.Data))
		return
	}
	handler.HandleRating(ctx, RatingChosen{
		Submitter: query.From.ID,
		TicketID:  ticketID,
		Score:     score,
	})
}

// SendText implements Messenger.
func (t *Telegram) SendText(_ context.Context, chatID int64, html string) error {
	msg := tgbotapi.NewMessage(chatID, html)
	msg.ParseMode = tgbotapi.ModeHTML
	_, err := t.bot.Send(msg)
	return err
}

// SendStatus implements Messenger.
func (t *Telegram) SendStatus(_ context.Context, chatID int64, text string) (int, error) {
	sent, err := t.bot.Send(tgbotapi.NewMessage(chatID, text))
	if err != nil {
		return 0, err
	}
	return sent.MessageID, nil
}

// EditStatus implements Messenger.
func (t *Telegram) EditStatus(_ context.Context, chatID int64, messageID int, html string) error {
	edit := tgbotapi.NewEditMessageText(chatID, messageID, html)
	edit.ParseMode = tgbotapi.ModeHTML
	_, err := t.bot.Send(edit)
	return err
}

// SendPhoto implements Messenger.
func (t *Telegram) SendPhoto(_ context.Context, chatID int64, fileRef, caption string) error {
	photo := tgbotapi.NewPhoto(chatID, tgbotapi.FileID(fileRef))
	photo.Caption = caption
	photo.ParseMode = tgbotapi.ModeHTML
	_, err := t.bot.Send(photo)
	return err
}

// SendBeforeAfter implements Messenger.
func (t *Telegram) SendBeforeAfter(_ context.Context, chatID int64, beforeRef, afterRef string) error {
	before := tgbotapi.NewInputMediaPhoto(tgbotapi.FileID(beforeRef))
	before.Caption = "Before"
	after := tgbotapi.NewInputMediaPhoto(tgbotapi.FileID(afterRef))
	after.Caption = "After"

	group := tgbotapi.NewMediaGroup(chatID, []interface{}{before, after})
	_, err := t.bot.SendMediaGroup(group)
	return err
}

// SendRatingPrompt implements Messenger.
func (t *Telegram) SendRatingPrompt(_ context.Context, chatID int64, ticketID string) error {
	buttons := make([]tgbotapi.InlineKeyboardButton, 0, 5)
	for score := 1; score <= 5; score++ {
		label := strings.Repeat("⭐", score)
		buttons = append(buttons, tgbotapi.NewInlineKeyboardButtonData(label, ratingData(ticketID, score)))
	}
	msg := tgbotapi.NewMessage(chatID, "How satisfied are you with the resolution?")
	msg.ReplyMarkup = tgbotapi.NewInlineKeyboardMarkup(tgbotapi.NewInlineKeyboardRow(buttons...))
	_, err := t.bot.Send(msg)
	return err
}

// RequestLocation implements Messenger.
func (t *Telegram) RequestLocation(_ context.Context, chatID int64, text string) error {
	msg := tgbotapi.NewMessage(chatID, text)
	keyboard := tgbotapi.NewOneTimeReplyKeyboard(
		tgbotapi.NewKeyboardButtonRow(tgbotapi.NewKeyboardButtonLocation("📍 Share Location")),
	)
	msg.ReplyMarkup = keyboard
	_, err := t.bot.Send(msg)
	return err
}

func (t *Telegram) downloadFile(fileID string) ([]byte, error) {
	url, err := t.bot.GetFileDirectURL(fileID)
	if err != nil {
		return nil, err
	}
	resp, err := t.download.Get(url)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("file download status %d", resp.StatusCode)
	}
	return io.ReadAll(resp.Body)
}

func largestPhoto(photos []tgbotapi.PhotoSize) string {
	return photos[len(photos)-1].FileID
}

func replyText(msg *tgbotapi.Message) string {
	if msg.Caption != "" {
		return msg.Caption
	}
	return msg.Text
}

func ratingData(ticketID string, score int) string {
	return fmt.Sprintf("rate:%s:%d", ticketID, score)
}

func parseRatingData(data string) (string, int, bool) {
	parts := strings.Split(data, ":")
	if len(parts) != 3 || parts[0] != "rate" {
		return "", 0, false
	}
	score, err := strconv.Atoi(parts[2])
	if err != nil || score < 1 || score > 5 {
		return "", 0, false
	}
	return parts[1], score, true
}
