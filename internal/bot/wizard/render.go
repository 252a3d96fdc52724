package wizard

import (
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"
)

// renderer owns the chat-facing side of the wizard. Callback-driven steps
// edit the message that carried the pressed button; text-driven steps send a
// fresh message. Edit failures (message too old, already edited with the same
// content) fall back to a plain send so the user is never left without a
// prompt.
type renderer struct {
	transport Transport
	chatID    int64
	logger    *zap.Logger
}

func (r *renderer) send(text string) {
	msg := tgbotapi.NewMessage(r.chatID, text)
	if _, err := r.transport.Send(msg); err != nil {
		r.logger.Error("Failed to send message",
			zap.Int64("chat_id", r.chatID),
			zap.Error(err))
	}
}

func (r *renderer) sendKeyboard(text string, keyboard tgbotapi.InlineKeyboardMarkup) {
	msg := tgbotapi.NewMessage(r.chatID, text)
	msg.ReplyMarkup = keyboard
	if _, err := r.transport.Send(msg); err != nil {
		r.logger.Error("Failed to send message",
			zap.Int64("chat_id", r.chatID),
			zap.Error(err))
	}
}

func (r *renderer) edit(messageID int, text string) {
	edit := tgbotapi.NewEditMessageText(r.chatID, messageID, text)
	if _, err := r.transport.Send(edit); err != nil {
		r.logger.Debug("Edit failed, sending instead",
			zap.Int64("chat_id", r.chatID),
			zap.Error(err))
		r.send(text)
	}
}

func (r *renderer) editKeyboard(messageID int, text string, keyboard tgbotapi.InlineKeyboardMarkup) {
	edit := tgbotapi.NewEditMessageTextAndMarkup(r.chatID, messageID, text, keyboard)
	if _, err := r.transport.Send(edit); err != nil {
		r.logger.Debug("Edit failed, sending instead",
			zap.Int64("chat_id", r.chatID),
			zap.Error(err))
		r.sendKeyboard(text, keyboard)
	}
}

func (r *renderer) answerCallback(callbackID, text string) {
	callback := tgbotapi.NewCallback(callbackID, text)
	if _, err := r.transport.Request(callback); err != nil {
		r.logger.Debug("Failed to answer callback",
			zap.Int64("chat_id", r.chatID),
			zap.Error(err))
	}
}
