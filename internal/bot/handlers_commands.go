package bot

import (
	"context"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"
)

const welcomeText = "Вітаємо у Vidoma! 💙\n\n" +
	"Ми шиємо затишний домашній одяг в Україні.\n\n" +
	"🛍 Каталог - переглянути товари\n" +
	"🤖 AI-консультант - підібрати одяг під вас\n" +
	"📦 Мої замовлення - статус ваших замовлень\n" +
	"📞 Підтримка - зв'язок з менеджером"

const helpText = "Команди:\n" +
	"/start - головне меню\n" +
	"/help - ця довідка\n\n" +
	"Замовлення оформлюється через каталог: оберіть товар і натисніть " +
	"«🛒 Замовити». Якщо щось пішло не так, напишіть у підтримку."

func (b *Bot) handleCommand(ctx context.Context, msg *tgbotapi.Message) {
	chatID := msg.Chat.ID
	sess := b.sessions.get(chatID)

	switch msg.Command() {
	case "start":
		// /start aborts whatever was in progress.
		sess.setWizard(nil)
		sess.setAIMode(false)
		sess.clearNav()

		if err := b.storage.UpsertUser(ctx,
			msg.From.ID, msg.From.UserName, msg.From.FirstName, msg.From.LastName); err != nil {
			b.logger.Error("Failed to upsert user",
				zap.Int64("user_id", msg.From.ID),
				zap.Error(err))
		}

		reply := tgbotapi.NewMessage(chatID, welcomeText)
		reply.ReplyMarkup = mainMenuReplyKeyboard()
		b.send(reply)
	case "help":
		b.send(tgbotapi.NewMessage(chatID, helpText))
	default:
		b.send(tgbotapi.NewMessage(chatID, "Невідома команда. Спробуйте /help"))
	}
}

func (b *Bot) showMainMenu(chatID int64) {
	reply := tgbotapi.NewMessage(chatID, "🏠 Головне меню")
	reply.ReplyMarkup = mainMenuReplyKeyboard()
	b.send(reply)
}
