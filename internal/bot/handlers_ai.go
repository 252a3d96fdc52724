package bot

import (
	"context"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

const aiWelcomeText = "🤖 AI-консультант Vidoma\n\n" +
	"Напишіть, що шукаєте, і я підберу варіанти з каталогу.\n" +
	"Наприклад: «теплу піжаму на зиму» або «халат у подарунок мамі»."

func (b *Bot) enterAIMode(chatID int64, sess *session) {
	sess.setAIMode(true)
	sess.clearNav()

	msg := tgbotapi.NewMessage(chatID, aiWelcomeText)
	msg.ReplyMarkup = aiModeKeyboard()
	b.send(msg)
}

func (b *Bot) handleAIQuestion(ctx context.Context, chatID, userID int64, question string) {
	typing := tgbotapi.NewChatAction(chatID, tgbotapi.ChatTyping)
	_, _ = b.api.Request(typing)

	answer := b.consultant.Ask(ctx, userID, question)

	msg := tgbotapi.NewMessage(chatID, answer.Text)
	if len(answer.Products) > 0 {
		msg.ReplyMarkup = aiProductsKeyboard(answer.Products)
	} else {
		msg.ReplyMarkup = aiModeKeyboard()
	}
	b.send(msg)
}
