package wizard

import (
	"context"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"vidoma-bot/internal/storage"
	"vidoma-bot/pkg/crm"
	"vidoma-bot/pkg/novaposhta"
)

// Transport is the outbound side of the chat API. *tgbotapi.BotAPI satisfies
// it; tests substitute a recorder.
type Transport interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
}

// Catalog supplies the product snapshot read once at wizard entry.
type Catalog interface {
	GetProductByID(ctx context.Context, id int64) (*storage.Product, error)
}

// Directory resolves city names and lists pickup points.
type Directory interface {
	SearchCities(ctx context.Context, name string) ([]novaposhta.City, error)
	GetWarehouses(ctx context.Context, cityRef string) ([]novaposhta.Warehouse, error)
}

// Submitter posts the finalized order to the CRM. The wizard never retries a
// failed submission.
type Submitter interface {
	CreateOrder(ctx context.Context, req crm.OrderRequest) (*crm.OrderResult, error)
}

// UserStore looks up the customer record required at submission time.
type UserStore interface {
	GetUserByTelegramID(ctx context.Context, telegramID int64) (*storage.User, error)
}

// OrderLog persists a local copy of every accepted order.
type OrderLog interface {
	SaveOrder(ctx context.Context, o storage.Order) (int64, error)
}

type Deps struct {
	Transport Transport
	Catalog   Catalog
	Directory Directory
	Submitter Submitter
	Users     UserStore
	Orders    OrderLog
	Logger    *zap.Logger

	// Timeout is the inactivity window; zero means the 5-minute default.
	Timeout time.Duration

	// OnFinish runs on every terminal transition, letting the session store
	// detach the dead wizard.
	OnFinish func(chatID int64)

	// OnSubmitted runs after the CRM accepts an order, so staff can be told
	// about it.
	OnSubmitted func(order storage.Order)
}
