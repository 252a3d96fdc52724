package bot

// TELEGRAM DISPATCHER

import (
	"context"
	"strconv"
	"strings"
	"sync"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"vidoma-bot/internal/ai"
	"vidoma-bot/internal/bot/wizard"
	"vidoma-bot/internal/config"
	"vidoma-bot/internal/storage"
	"vidoma-bot/pkg/crm"
	"vidoma-bot/pkg/novaposhta"
)

type Bot struct {
	api        *tgbotapi.BotAPI
	cfg        *config.Config
	storage    *storage.PostgresStorage
	directory  *novaposhta.Client
	crm        *crm.Client
	consultant *ai.Consultant
	sessions   *sessionStore
	logger     *zap.Logger

	mu      sync.Mutex
	running bool
	stop    context.CancelFunc
}

func New(
	cfg *config.Config,
	store *storage.PostgresStorage,
	directory *novaposhta.Client,
	crmClient *crm.Client,
	consultant *ai.Consultant,
	logger *zap.Logger,
) (*Bot, error) {
	api, err := tgbotapi.NewBotAPI(cfg.TelegramToken)
	if err != nil {
		return nil, err
	}
	api.Debug = cfg.Debug

	logger.Info("Authorized on Telegram",
		zap.String("username", api.Self.UserName))

	return &Bot{
		api:        api,
		cfg:        cfg,
		storage:    store,
		directory:  directory,
		crm:        crmClient,
		consultant: consultant,
		sessions:   newSessionStore(),
		logger:     logger,
	}, nil
}

// Start consumes the update stream until the context is cancelled. Updates
// are funneled through a per-chat queue: one conversation's events are
// handled strictly in arrival order, different conversations run
// concurrently.
func (b *Bot) Start(ctx context.Context) {
	b.mu.Lock()
	if b.running {
		b.mu.Unlock()
		return
	}
	ctx, b.stop = context.WithCancel(ctx)
	b.running = true
	b.mu.Unlock()

	queue := newUpdateQueue(b.handleUpdate, b.logger)

	updateConfig := tgbotapi.NewUpdate(0)
	updateConfig.Timeout = 30
	updates := b.api.GetUpdatesChan(updateConfig)

	b.logger.Info("Bot started, listening for updates")

	for {
		select {
		case <-ctx.Done():
			b.api.StopReceivingUpdates()
			b.setRunning(false)
			b.logger.Info("Bot stopped")
			return
		case update, ok := <-updates:
			if !ok {
				b.setRunning(false)
				return
			}
			queue.dispatch(ctx, update)
		}
	}
}

// Stop cancels the update loop. Safe to call when not running.
func (b *Bot) Stop() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.stop != nil {
		b.stop()
	}
}

// Running reports whether the update loop is live.
func (b *Bot) Running() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.running
}

func (b *Bot) setRunning(v bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.running = v
}

func (b *Bot) handleUpdate(ctx context.Context, update tgbotapi.Update) {
	defer func() {
		if r := recover(); r != nil {
			b.logger.Error("Panic while handling update",
				zap.Any("panic", r))
		}
	}()

	ctx, cancel := context.WithTimeout(ctx, time.Minute)
	defer cancel()

	switch {
	case update.Message != nil:
		b.handleMessage(ctx, update.Message)
	case update.CallbackQuery != nil:
		b.handleCallback(ctx, update.CallbackQuery)
	}
}

func (b *Bot) handleMessage(ctx context.Context, msg *tgbotapi.Message) {
	chatID := msg.Chat.ID
	sess := b.sessions.get(chatID)

	if msg.IsCommand() {
		b.handleCommand(ctx, msg)
		return
	}

	// A live wizard owns every free-text message in its chat.
	if w := sess.activeWizard(); w != nil {
		w.HandleMessage(ctx, msg)
		return
	}

	switch msg.Text {
	case menuCatalog:
		sess.setAIMode(false)
		sess.clearNav()
		b.showCategories(ctx, chatID, 0)
	case menuAI:
		b.enterAIMode(chatID, sess)
	case menuOrders:
		sess.setAIMode(false)
		b.showUserOrders(ctx, chatID, msg.From.ID)
	case menuSupport:
		sess.setAIMode(false)
		b.showSupport(ctx, chatID)
	case menuSizeGuide:
		sess.setAIMode(false)
		b.showSizeGuide(chatID)
	default:
		if sess.inAIMode() {
			b.handleAIQuestion(ctx, chatID, msg.From.ID, msg.Text)
			return
		}
		b.send(tgbotapi.NewMessage(chatID,
			"Скористайтеся меню нижче або командою /start 👇"))
	}
}

func (b *Bot) handleCallback(ctx context.Context, cb *tgbotapi.CallbackQuery) {
	if cb.Message == nil {
		b.answerCallback(cb.ID, "")
		return
	}

	chatID := cb.Message.Chat.ID
	sess := b.sessions.get(chatID)
	data := cb.Data

	// Ordering a product always starts a fresh wizard, cancelling a live one.
	if strings.HasPrefix(data, "order_") {
		b.startOrder(ctx, cb, sess)
		return
	}

	if w := sess.activeWizard(); w != nil && wizard.Owns(data) {
		w.HandleCallback(ctx, cb)
		return
	}

	switch {
	case data == "main_menu":
		b.answerCallback(cb.ID, "")
		sess.clearNav()
		sess.setAIMode(false)
		b.showMainMenu(chatID)
	case data == "back":
		b.answerCallback(cb.ID, "")
		b.goBack(ctx, chatID, sess, cb.Message.MessageID)
	case data == "ai_exit":
		b.answerCallback(cb.ID, "")
		sess.setAIMode(false)
		b.showMainMenu(chatID)
	case strings.HasPrefix(data, "category_"):
		b.answerCallback(cb.ID, "")
		b.showCategoryProducts(ctx, chatID, sess, data, cb.Message.MessageID)
	case strings.HasPrefix(data, "product_"):
		b.answerCallback(cb.ID, "")
		b.showProductCard(ctx, chatID, sess, data)
	case strings.HasPrefix(data, "size_help_"):
		b.answerCallback(cb.ID, "")
		b.showSizeGuide(chatID)
	default:
		b.answerCallback(cb.ID, "")
	}
}

// startOrder spins up an order wizard for the product named in the callback.
func (b *Bot) startOrder(ctx context.Context, cb *tgbotapi.CallbackQuery, sess *session) {
	chatID := cb.Message.Chat.ID

	productID, err := strconv.ParseInt(strings.TrimPrefix(cb.Data, "order_"), 10, 64)
	if err != nil {
		b.answerCallback(cb.ID, "❌ Помилка")
		return
	}
	b.answerCallback(cb.ID, "")

	// Product cards carry a photo and cannot be edited into the wizard's
	// text prompts, so the card is removed and the wizard sends fresh
	// messages.
	if _, err := b.api.Request(tgbotapi.NewDeleteMessage(chatID, cb.Message.MessageID)); err != nil {
		b.logger.Debug("Failed to delete product card", zap.Error(err))
	}

	sess.setAIMode(false)

	w := wizard.New(chatID, cb.From.ID, cb.From.UserName, wizard.Deps{
		Transport: b.api,
		Catalog:   b.storage,
		Directory: b.directory,
		Submitter: b.crm,
		Users:     b.storage,
		Orders:    b.storage,
		Logger:    b.logger,
		Timeout:   b.cfg.OrderTimeout,
		OnFinish: func(chatID int64) {
			b.sessions.get(chatID).detachWizard()
		},
		OnSubmitted: func(order storage.Order) {
			b.NotifyAdmin(adminOrderText(order))
		},
	})
	sess.setWizard(w)
	w.Start(ctx, productID)
}

func (b *Bot) send(c tgbotapi.Chattable) {
	if _, err := b.api.Send(c); err != nil {
		b.logger.Error("Failed to send message", zap.Error(err))
	}
}

func (b *Bot) answerCallback(callbackID, text string) {
	if _, err := b.api.Request(tgbotapi.NewCallback(callbackID, text)); err != nil {
		b.logger.Debug("Failed to answer callback", zap.Error(err))
	}
}

func itoa(v int64) string {
	return strconv.FormatInt(v, 10)
}
