package bot

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"vidoma-bot/pkg/crm"
)

const trackingURL = "https://novaposhta.ua/tracking/?cargo_number="

// showUserOrders renders the customer's order history as reported by the CRM.
func (b *Bot) showUserOrders(ctx context.Context, chatID, userID int64) {
	orders, err := b.crm.GetUserOrders(ctx, itoa(userID))
	if err != nil {
		b.logger.Error("Failed to fetch user orders",
			zap.Int64("user_id", userID),
			zap.Error(err))
		b.send(tgbotapi.NewMessage(chatID,
			"❌ Не вдалося отримати замовлення. Спробуйте пізніше."))
		return
	}
	if orders == nil || len(orders.Orders) == 0 {
		b.send(tgbotapi.NewMessage(chatID,
			"У вас поки немає замовлень 🙈\n\nЗагляньте у наш каталог 🛍"))
		return
	}

	msg := tgbotapi.NewMessage(chatID, formatOrders(orders))
	msg.ParseMode = tgbotapi.ModeHTML
	msg.DisableWebPagePreview = true
	b.send(msg)
}

func formatOrders(orders *crm.UserOrders) string {
	statuses := make(map[string]string, len(orders.StatusOptions))
	for _, opt := range orders.StatusOptions {
		statuses[opt.Value.String()] = opt.Text
	}

	var b strings.Builder
	b.WriteString(fmt.Sprintf("📦 Ваші замовлення (%d):\n\n", orders.Count))

	for _, order := range orders.Orders {
		b.WriteString(fmt.Sprintf("<b>Замовлення №%s</b>\n", html(order.ID)))
		if order.OrderTime != "" {
			b.WriteString(fmt.Sprintf("🗓 %s\n", html(order.OrderTime)))
		}
		if status := statusText(statuses, order.StatusID); status != "" {
			b.WriteString(fmt.Sprintf("📌 Статус: %s\n", html(status)))
		}
		for _, p := range order.Products {
			b.WriteString(fmt.Sprintf("• %s x%s - %s₴\n",
				html(p.Text), html(p.Amount), html(p.Price)))
		}
		for _, d := range order.DeliveryData {
			if d.CityName != "" {
				b.WriteString(fmt.Sprintf("🚚 %s, %s\n", html(d.CityName), html(d.Address)))
			}
			if d.TrackingNumber != "" {
				b.WriteString(fmt.Sprintf("🔎 ТТН: <a href=\"%s%s\">%s</a>\n",
					trackingURL, d.TrackingNumber, html(d.TrackingNumber)))
			}
		}
		if order.PaymentAmount != "" {
			b.WriteString(fmt.Sprintf("💰 Сума: %s₴\n", html(order.PaymentAmount)))
		}
		b.WriteString("\n")
	}

	if orders.PaymentTotal != "" {
		b.WriteString(fmt.Sprintf("Разом за весь час: %s₴", orders.PaymentTotal))
	}
	return strings.TrimSpace(b.String())
}

func statusText(statuses map[string]string, statusID json.Number) string {
	return statuses[statusID.String()]
}
