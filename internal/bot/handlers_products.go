package bot

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"vidoma-bot/internal/storage"
)

const sizeGuideText = "📖 Розмірна сітка\n\n" +
	"XS - обхват грудей: 82-86 см\n" +
	"S - обхват грудей: 86-90 см\n" +
	"M - обхват грудей: 90-94 см\n" +
	"L - обхват грудей: 94-98 см\n" +
	"XL - обхват грудей: 98-102 см\n" +
	"XXL - обхват грудей: 102-106 см\n" +
	"3XL - обхват грудей: 106-110 см\n" +
	"4XL - обхват грудей: 110-114 см\n" +
	"5XL - обхват грудей: 114-118 см\n\n" +
	"Не впевнені у розмірі? Напишіть AI-консультанту 🤖"

// Navigation screen tokens kept on the per-session back stack.
const screenCategories = "categories"

func (b *Bot) showCategories(ctx context.Context, chatID int64, messageID int) {
	categories, err := b.storage.GetActiveCategories(ctx)
	if err != nil {
		b.logger.Error("Failed to load categories",
			zap.Int64("chat_id", chatID),
			zap.Error(err))
		b.send(tgbotapi.NewMessage(chatID, "❌ Не вдалося завантажити каталог. Спробуйте пізніше."))
		return
	}
	if len(categories) == 0 {
		b.send(tgbotapi.NewMessage(chatID, "Каталог поки порожній 🙈 Загляньте трохи пізніше!"))
		return
	}

	b.sendOrEdit(chatID, messageID, "🛍 Оберіть категорію:", categoriesKeyboard(categories))
}

func (b *Bot) showCategoryProducts(ctx context.Context, chatID int64, sess *session, data string, messageID int) {
	categoryID, err := strconv.ParseInt(strings.TrimPrefix(data, "category_"), 10, 64)
	if err != nil {
		return
	}

	b.renderCategoryProducts(ctx, chatID, categoryID, messageID)
	sess.pushNav(screenCategories)
}

func (b *Bot) renderCategoryProducts(ctx context.Context, chatID, categoryID int64, messageID int) {
	products, err := b.storage.GetProductsByCategory(ctx, categoryID)
	if err != nil {
		b.logger.Error("Failed to load products",
			zap.Int64("category_id", categoryID),
			zap.Error(err))
		b.send(tgbotapi.NewMessage(chatID, "❌ Не вдалося завантажити товари. Спробуйте пізніше."))
		return
	}
	if len(products) == 0 {
		b.sendOrEdit(chatID, messageID,
			"У цій категорії поки немає товарів 🙈", categoriesKeyboard(nil))
		return
	}

	b.sendOrEdit(chatID, messageID, "Оберіть товар:", productsKeyboard(products))
}

func (b *Bot) showProductCard(ctx context.Context, chatID int64, sess *session, data string) {
	productID, err := strconv.ParseInt(strings.TrimPrefix(data, "product_"), 10, 64)
	if err != nil {
		return
	}

	product, err := b.storage.GetProductByID(ctx, productID)
	if err != nil {
		b.logger.Error("Failed to load product",
			zap.Int64("product_id", productID),
			zap.Error(err))
		b.send(tgbotapi.NewMessage(chatID, "❌ Не вдалося завантажити товар. Спробуйте пізніше."))
		return
	}
	if product == nil {
		b.send(tgbotapi.NewMessage(chatID, "❌ Товар не знайдено."))
		return
	}

	if product.CategoryID.Valid {
		sess.pushNav("category_" + itoa(product.CategoryID.Int64))
	} else {
		sess.pushNav(screenCategories)
	}

	caption := productCaption(product)
	keyboard := productCardKeyboard(product.ID)

	// The first catalog image becomes the card photo; without one the card
	// is plain text.
	if image := firstImage(product); image != "" {
		photo := tgbotapi.NewPhoto(chatID, tgbotapi.FileURL(image))
		photo.Caption = caption
		photo.ParseMode = tgbotapi.ModeHTML
		photo.ReplyMarkup = keyboard
		if _, err := b.api.Send(photo); err != nil {
			b.logger.Warn("Failed to send product photo, falling back to text",
				zap.Int64("product_id", productID),
				zap.Error(err))
		} else {
			return
		}
	}

	msg := tgbotapi.NewMessage(chatID, caption)
	msg.ParseMode = tgbotapi.ModeHTML
	msg.ReplyMarkup = keyboard
	b.send(msg)
}

func (b *Bot) goBack(ctx context.Context, chatID int64, sess *session, messageID int) {
	screen, ok := sess.popNav()
	if !ok {
		b.showMainMenu(chatID)
		return
	}

	switch {
	case screen == screenCategories:
		b.showCategories(ctx, chatID, messageID)
	case strings.HasPrefix(screen, "category_"):
		categoryID, err := strconv.ParseInt(strings.TrimPrefix(screen, "category_"), 10, 64)
		if err != nil {
			b.showMainMenu(chatID)
			return
		}
		b.renderCategoryProducts(ctx, chatID, categoryID, messageID)
	default:
		b.showMainMenu(chatID)
	}
}

func (b *Bot) showSizeGuide(chatID int64) {
	b.send(tgbotapi.NewMessage(chatID, sizeGuideText))
}

// sendOrEdit edits in place when arriving from a button press, sends a fresh
// message otherwise, and falls back to sending when the edit is rejected.
func (b *Bot) sendOrEdit(chatID int64, messageID int, text string, keyboard tgbotapi.InlineKeyboardMarkup) {
	if messageID != 0 {
		edit := tgbotapi.NewEditMessageTextAndMarkup(chatID, messageID, text, keyboard)
		if _, err := b.api.Send(edit); err == nil {
			return
		}
	}
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ReplyMarkup = keyboard
	b.send(msg)
}

func productCaption(p *storage.Product) string {
	var b strings.Builder
	b.WriteString(fmt.Sprintf("<b>%s</b>\n\n", html(p.Name)))

	if p.SalePrice.Valid {
		b.WriteString(fmt.Sprintf("💰 <s>%g₴</s> <b>%g₴</b>\n", p.Price, p.SalePrice.Float64))
	} else {
		b.WriteString(fmt.Sprintf("💰 <b>%g₴</b>\n", p.Price))
	}

	variants := p.Variants()
	if len(variants.Colors) > 0 {
		b.WriteString(fmt.Sprintf("🎨 Кольори: %s\n", html(strings.Join(variants.Colors, ", "))))
	}
	if len(variants.Sizes) > 0 {
		b.WriteString(fmt.Sprintf("📏 Розміри: %s\n", html(strings.Join(variants.Sizes, ", "))))
	}

	if p.StockQuantity > 0 {
		b.WriteString("\n✅ В наявності")
	} else {
		b.WriteString("\n⏳ Під замовлення")
	}
	return b.String()
}

func firstImage(p *storage.Product) string {
	if !p.Images.Valid {
		return ""
	}
	images := strings.Split(p.Images.String, ",")
	return strings.TrimSpace(images[0])
}

func html(s string) string {
	replacer := strings.NewReplacer("&", "&amp;", "<", "&lt;", ">", "&gt;")
	return replacer.Replace(s)
}
