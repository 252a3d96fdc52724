package bot

import (
	"context"
	"fmt"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"vidoma-bot/internal/storage"
)

// NotifyOrderStatus tells a customer their order moved to a new status and
// records the status on the local order copy. Called from the CRM webhook.
func (b *Bot) NotifyOrderStatus(ctx context.Context, chatID int64, crmOrderID, status string) error {
	if err := b.storage.UpdateOrderStatus(ctx, crmOrderID, status); err != nil {
		return fmt.Errorf("update order status: %w", err)
	}

	text := fmt.Sprintf("📦 Замовлення №%s\n\nНовий статус: %s", crmOrderID, status)

	// The local copy names the product, which reads better than a bare id.
	order, err := b.storage.GetOrderByCRMID(ctx, crmOrderID)
	if err != nil {
		b.logger.Warn("Failed to load local order for status notice",
			zap.String("crm_order_id", crmOrderID),
			zap.Error(err))
	} else if order != nil {
		text = fmt.Sprintf("📦 Замовлення №%s\n%s\n\nНовий статус: %s",
			crmOrderID, order.ProductName, status)
	}

	if _, err := b.api.Send(tgbotapi.NewMessage(chatID, text)); err != nil {
		return fmt.Errorf("notify customer: %w", err)
	}
	return nil
}

// adminOrderText renders the staff notice fired on every accepted order.
func adminOrderText(order storage.Order) string {
	var b strings.Builder
	b.WriteString("🆕 Нове замовлення")
	if order.CRMOrderID.Valid {
		b.WriteString(fmt.Sprintf(" №%s", order.CRMOrderID.String))
	}
	b.WriteString("\n\n")
	b.WriteString(fmt.Sprintf("📦 %s\n", order.ProductName))
	b.WriteString(fmt.Sprintf("💰 %g₴\n", order.Price))
	b.WriteString(fmt.Sprintf("👤 %s, %s\n", order.CustomerName, order.CustomerPhone))
	b.WriteString(fmt.Sprintf("🚚 %s, відділення №%s\n", order.DeliveryCity, order.WarehouseNo))
	b.WriteString(fmt.Sprintf("💳 %s", order.PaymentMethod))
	return b.String()
}

// NotifyAdmin forwards a service message to the staff chat, when configured.
func (b *Bot) NotifyAdmin(text string) {
	if b.cfg.Admin.ChatID == 0 {
		return
	}
	b.send(tgbotapi.NewMessage(b.cfg.Admin.ChatID, text))
}
