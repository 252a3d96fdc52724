package wizard

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"vidoma-bot/internal/storage"
	"vidoma-bot/pkg/crm"
	"vidoma-bot/pkg/novaposhta"
)

const (
	testChatID = int64(100)
	testUserID = int64(200)
)

type fakeTransport struct {
	mu   sync.Mutex
	sent []tgbotapi.Chattable
}

func (t *fakeTransport) Send(c tgbotapi.Chattable) (tgbotapi.Message, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.sent = append(t.sent, c)
	return tgbotapi.Message{MessageID: len(t.sent)}, nil
}

func (t *fakeTransport) Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error) {
	return &tgbotapi.APIResponse{Ok: true}, nil
}

func (t *fakeTransport) texts() []string {
	t.mu.Lock()
	defer t.mu.Unlock()

	var texts []string
	for _, c := range t.sent {
		switch msg := c.(type) {
		case tgbotapi.MessageConfig:
			texts = append(texts, msg.Text)
		case tgbotapi.EditMessageTextConfig:
			texts = append(texts, msg.Text)
		}
	}
	return texts
}

func (t *fakeTransport) lastText() string {
	texts := t.texts()
	if len(texts) == 0 {
		return ""
	}
	return texts[len(texts)-1]
}

func (t *fakeTransport) countContaining(substr string) int {
	count := 0
	for _, text := range t.texts() {
		if strings.Contains(text, substr) {
			count++
		}
	}
	return count
}

type fakeCatalog struct {
	product *storage.Product
	err     error
	calls   int
}

func (c *fakeCatalog) GetProductByID(ctx context.Context, id int64) (*storage.Product, error) {
	c.calls++
	return c.product, c.err
}

type fakeDirectory struct {
	cities     []novaposhta.City
	citiesErr  error
	warehouses []novaposhta.Warehouse
	whErr      error
}

func (d *fakeDirectory) SearchCities(ctx context.Context, name string) ([]novaposhta.City, error) {
	return d.cities, d.citiesErr
}

func (d *fakeDirectory) GetWarehouses(ctx context.Context, cityRef string) ([]novaposhta.Warehouse, error) {
	return d.warehouses, d.whErr
}

type fakeSubmitter struct {
	result *crm.OrderResult
	err    error
	got    *crm.OrderRequest
}

func (s *fakeSubmitter) CreateOrder(ctx context.Context, req crm.OrderRequest) (*crm.OrderResult, error) {
	s.got = &req
	if s.err != nil {
		return nil, s.err
	}
	return s.result, nil
}

type fakeUsers struct {
	user *storage.User
	err  error
}

func (u *fakeUsers) GetUserByTelegramID(ctx context.Context, telegramID int64) (*storage.User, error) {
	return u.user, u.err
}

type fakeOrders struct {
	saved []storage.Order
	err   error
}

func (o *fakeOrders) SaveOrder(ctx context.Context, order storage.Order) (int64, error) {
	o.saved = append(o.saved, order)
	if o.err != nil {
		return 0, o.err
	}
	return int64(len(o.saved)), nil
}

func testProduct() *storage.Product {
	return &storage.Product{
		ID:   7,
		Name: "Піжама Cloud",
		Description: sql.NullString{
			String: `{"colors":["Синій","Бежевий"],"sizes":["S","M","L"]}`,
			Valid:  true,
		},
		Price:         1200,
		StockQuantity: 5,
		Active:        true,
	}
}

type fixture struct {
	transport *fakeTransport
	catalog   *fakeCatalog
	directory *fakeDirectory
	submitter *fakeSubmitter
	users     *fakeUsers
	orders    *fakeOrders
	finished  chan int64
	submitted chan storage.Order
	wizard    *Wizard
}

func newFixture(t *testing.T, timeout time.Duration) *fixture {
	t.Helper()

	f := &fixture{
		transport: &fakeTransport{},
		catalog:   &fakeCatalog{product: testProduct()},
		directory: &fakeDirectory{
			cities: []novaposhta.City{
				{Name: "Київ", Area: "Київська", Ref: "kyiv-ref"},
			},
			warehouses: []novaposhta.Warehouse{
				{Number: "12", Description: "Відділення №12", Ref: "wh-12", TypeOfWarehouse: novaposhta.TypeWarehouse},
				{Number: "5310", Description: "Поштомат №5310", Ref: "wh-5310"},
			},
		},
		submitter: &fakeSubmitter{result: &crm.OrderResult{Success: true, OrderID: "9001"}},
		users:     &fakeUsers{user: &storage.User{ID: 42, TelegramID: testUserID}},
		orders:    &fakeOrders{},
		finished:  make(chan int64, 4),
		submitted: make(chan storage.Order, 1),
	}

	f.wizard = New(testChatID, testUserID, "customer", Deps{
		Transport: f.transport,
		Catalog:   f.catalog,
		Directory: f.directory,
		Submitter: f.submitter,
		Users:     f.users,
		Orders:    f.orders,
		Logger:    zap.NewNop(),
		Timeout:   timeout,
		OnFinish:  func(chatID int64) { f.finished <- chatID },
		OnSubmitted: func(order storage.Order) {
			select {
			case f.submitted <- order:
			default:
			}
		},
	})
	return f
}

func (f *fixture) message(ctx context.Context, text string) {
	f.wizard.HandleMessage(ctx, &tgbotapi.Message{
		Text: text,
		Chat: &tgbotapi.Chat{ID: testChatID},
		From: &tgbotapi.User{ID: testUserID},
	})
}

func (f *fixture) callback(ctx context.Context, data string) {
	f.wizard.HandleCallback(ctx, &tgbotapi.CallbackQuery{
		ID:   "cb",
		Data: data,
		From: &tgbotapi.User{ID: testUserID},
		Message: &tgbotapi.Message{
			MessageID: 55,
			Chat:      &tgbotapi.Chat{ID: testChatID},
		},
	})
}

// walkToConfirm drives a fresh wizard through every capture step.
func (f *fixture) walkToConfirm(ctx context.Context, t *testing.T) {
	t.Helper()

	f.wizard.Start(ctx, 7)
	require.Equal(t, StateColorSelect, f.wizard.State())

	f.callback(ctx, "color_Синій")
	require.Equal(t, StateSizeSelect, f.wizard.State())

	f.callback(ctx, "size_M")
	require.Equal(t, StateNameCapture, f.wizard.State())

	f.message(ctx, "Олена")
	require.Equal(t, StateSurnameCapture, f.wizard.State())

	f.message(ctx, "Петренко")
	require.Equal(t, StatePhoneCapture, f.wizard.State())

	f.message(ctx, "+380501234567")
	require.Equal(t, StateCityInput, f.wizard.State())

	f.message(ctx, "Київ")
	require.Equal(t, StateWarehouseResolution, f.wizard.State())

	f.message(ctx, "12")
	require.Equal(t, StatePaymentSelect, f.wizard.State())

	f.callback(ctx, "payment_postpaid")
	require.Equal(t, StateConfirm, f.wizard.State())
}

func TestWizardFullFlow(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, time.Minute)

	f.walkToConfirm(ctx, t)
	f.callback(ctx, "confirm_order")

	require.Equal(t, StateCompleted, f.wizard.State())
	require.True(t, f.wizard.Done())

	req := f.submitter.got
	require.NotNil(t, req)
	assert.Equal(t, "200", req.ExternalID)
	assert.Equal(t, "Олена", req.FirstName)
	assert.Equal(t, "Петренко", req.LastName)
	assert.Equal(t, "+380501234567", req.Phone)
	assert.Equal(t, "customer", req.TelegramUsername)
	assert.Equal(t, "Нова Пошта", req.DeliveryMethod)
	assert.Equal(t, "Післяплата", req.PaymentMethod)
	assert.Equal(t, "Київ, відділення №12", req.DeliveryAddress)

	require.Len(t, req.Products, 1)
	assert.Equal(t, "7", req.Products[0].ID)
	assert.Equal(t, "Піжама Cloud - Синій, M", req.Products[0].Name)
	assert.Equal(t, float64(1200), req.Products[0].Price)

	require.NotNil(t, req.NovaPoshta)
	assert.Equal(t, "kyiv-ref", req.NovaPoshta.CityRef)
	assert.Equal(t, "wh-12", req.NovaPoshta.WarehouseRef)
	assert.Equal(t, "Payment control", req.NovaPoshta.Postpaid)

	require.Len(t, f.orders.saved, 1)
	assert.Equal(t, "9001", f.orders.saved[0].CRMOrderID.String)
	assert.Equal(t, int64(42), f.orders.saved[0].UserID)

	assert.Contains(t, f.transport.lastText(), "№9001")

	select {
	case chatID := <-f.finished:
		assert.Equal(t, testChatID, chatID)
	case <-time.After(time.Second):
		t.Fatal("OnFinish was not called")
	}

	// Staff get told about every order the CRM accepted.
	select {
	case order := <-f.submitted:
		assert.Equal(t, "9001", order.CRMOrderID.String)
		assert.Equal(t, "Піжама Cloud", order.ProductName)
		assert.Equal(t, "Олена Петренко", order.CustomerName)
	case <-time.After(time.Second):
		t.Fatal("OnSubmitted was not called")
	}
}

func TestWizardSkipsVariantStepsWithoutVariants(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, time.Minute)
	f.catalog.product = &storage.Product{
		ID:    7,
		Name:  "Рушник",
		Price: 300,
	}

	f.wizard.Start(ctx, 7)
	assert.Equal(t, StateNameCapture, f.wizard.State())
}

func TestWizardRejectsInvalidPhone(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, time.Minute)

	f.wizard.Start(ctx, 7)
	f.callback(ctx, "color_Синій")
	f.callback(ctx, "size_M")
	f.message(ctx, "Олена")
	f.message(ctx, "Петренко")

	f.message(ctx, "12345")
	assert.Equal(t, StatePhoneCapture, f.wizard.State())
	assert.Contains(t, f.transport.lastText(), "Неправильний формат телефону")

	f.message(ctx, "050 123 45 67")
	assert.Equal(t, StateCityInput, f.wizard.State())
}

func TestWizardCityDisambiguation(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, time.Minute)
	f.directory.cities = []novaposhta.City{
		{Name: "Миколаїв", Area: "Миколаївська", Ref: "ref-1"},
		{Name: "Миколаїв", Area: "Львівська", Ref: "ref-2"},
		{Name: "Миколаївка", Area: "Сумська", Ref: "ref-3"},
	}

	f.wizard.Start(ctx, 7)
	f.callback(ctx, "color_Синій")
	f.callback(ctx, "size_M")
	f.message(ctx, "Олена")
	f.message(ctx, "Петренко")
	f.message(ctx, "+380501234567")

	f.message(ctx, "Миколаїв")
	require.Equal(t, StateCityDisambiguation, f.wizard.State())

	f.callback(ctx, "city_ref-2")
	require.Equal(t, StateWarehouseResolution, f.wizard.State())

	f.message(ctx, "12")
	require.Equal(t, StatePaymentSelect, f.wizard.State())
}

func TestWizardCityNotFound(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, time.Minute)
	f.directory.cities = nil

	f.wizard.Start(ctx, 7)
	f.callback(ctx, "color_Синій")
	f.callback(ctx, "size_M")
	f.message(ctx, "Олена")
	f.message(ctx, "Петренко")
	f.message(ctx, "+380501234567")

	f.message(ctx, "Кийв")
	assert.Equal(t, StateCityInput, f.wizard.State())
	assert.Contains(t, f.transport.lastText(), "Місто не знайдено")
}

func TestWizardChangeCityClearsDelivery(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, time.Minute)

	f.wizard.Start(ctx, 7)
	f.callback(ctx, "color_Синій")
	f.callback(ctx, "size_M")
	f.message(ctx, "Олена")
	f.message(ctx, "Петренко")
	f.message(ctx, "+380501234567")
	f.message(ctx, "Київ")
	require.Equal(t, StateWarehouseResolution, f.wizard.State())

	f.callback(ctx, "change_city")
	require.Equal(t, StateCityInput, f.wizard.State())

	f.wizard.mu.Lock()
	assert.Nil(t, f.wizard.draft.City)
	assert.Nil(t, f.wizard.draft.Warehouse)
	f.wizard.mu.Unlock()
}

func TestWizardWarehouseNumberValidation(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, time.Minute)

	f.wizard.Start(ctx, 7)
	f.callback(ctx, "color_Синій")
	f.callback(ctx, "size_M")
	f.message(ctx, "Олена")
	f.message(ctx, "Петренко")
	f.message(ctx, "+380501234567")
	f.message(ctx, "Київ")

	f.message(ctx, "12a")
	assert.Equal(t, StateWarehouseResolution, f.wizard.State())
	assert.Contains(t, f.transport.lastText(), "Неправильний формат номера")

	f.message(ctx, "99")
	assert.Equal(t, StateWarehouseResolution, f.wizard.State())
	assert.Contains(t, f.transport.lastText(), "№99 не знайдено")
}

func TestWizardWarehousePickFromList(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, time.Minute)

	f.wizard.Start(ctx, 7)
	f.callback(ctx, "color_Синій")
	f.callback(ctx, "size_M")
	f.message(ctx, "Олена")
	f.message(ctx, "Петренко")
	f.message(ctx, "+380501234567")
	f.message(ctx, "Київ")

	f.callback(ctx, "list_warehouses")
	require.Equal(t, StateWarehouseResolution, f.wizard.State())

	f.callback(ctx, "warehouse_wh-5310")
	require.Equal(t, StatePaymentSelect, f.wizard.State())
}

func TestWizardEditOrderRestartsFromScratch(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, time.Minute)

	f.walkToConfirm(ctx, t)
	require.Equal(t, 1, f.catalog.calls)

	f.callback(ctx, "edit_order")
	assert.Equal(t, StateColorSelect, f.wizard.State())
	assert.Equal(t, 2, f.catalog.calls)

	f.wizard.mu.Lock()
	assert.Empty(t, f.wizard.draft.FirstName)
	assert.Empty(t, f.wizard.draft.Phone)
	assert.Nil(t, f.wizard.draft.City)
	f.wizard.mu.Unlock()
}

func TestWizardCancelFromAnyState(t *testing.T) {
	states := []struct {
		name string
		walk func(ctx context.Context, f *fixture)
	}{
		{"color select", func(ctx context.Context, f *fixture) {}},
		{"phone capture", func(ctx context.Context, f *fixture) {
			f.callback(ctx, "color_Синій")
			f.callback(ctx, "size_M")
			f.message(ctx, "Олена")
			f.message(ctx, "Петренко")
		}},
		{"city input", func(ctx context.Context, f *fixture) {
			f.callback(ctx, "color_Синій")
			f.callback(ctx, "size_M")
			f.message(ctx, "Олена")
			f.message(ctx, "Петренко")
			f.message(ctx, "+380501234567")
		}},
	}

	for _, tc := range states {
		t.Run(tc.name, func(t *testing.T) {
			ctx := context.Background()
			f := newFixture(t, time.Minute)
			f.wizard.Start(ctx, 7)
			tc.walk(ctx, f)

			f.callback(ctx, "cancel_order")
			assert.Equal(t, StateCancelled, f.wizard.State())
			assert.True(t, f.wizard.Done())
		})
	}
}

func TestWizardTimeoutFiresOnce(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, 30*time.Millisecond)

	f.wizard.Start(ctx, 7)

	select {
	case <-f.finished:
	case <-time.After(time.Second):
		t.Fatal("timeout never fired")
	}

	assert.Equal(t, StateTimedOut, f.wizard.State())
	assert.Equal(t, 1, f.transport.countContaining("Час очікування вичерпано"))

	// Events after expiry are ignored.
	f.message(ctx, "Олена")
	assert.Equal(t, StateTimedOut, f.wizard.State())
}

func TestWizardActivityReArmsTimer(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, 80*time.Millisecond)

	f.wizard.Start(ctx, 7)
	for i := 0; i < 4; i++ {
		time.Sleep(40 * time.Millisecond)
		f.callback(ctx, "size_guide")
	}
	assert.False(t, f.wizard.Done())
}

func TestWizardSubmissionFailureIsTerminal(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, time.Minute)
	f.submitter.result = &crm.OrderResult{Success: false, Error: "rejected"}

	f.walkToConfirm(ctx, t)
	f.callback(ctx, "confirm_order")

	assert.Equal(t, StateFailed, f.wizard.State())
	assert.True(t, f.wizard.Done())
	assert.Contains(t, f.transport.lastText(), "Помилка при оформленні замовлення")
	assert.Empty(t, f.orders.saved)

	select {
	case <-f.submitted:
		t.Fatal("OnSubmitted fired for a rejected order")
	default:
	}
}

func TestWizardSubmissionTransportErrorIsTerminal(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, time.Minute)
	f.submitter.err = errors.New("connection refused")

	f.walkToConfirm(ctx, t)
	f.callback(ctx, "confirm_order")

	assert.Equal(t, StateFailed, f.wizard.State())
}

func TestWizardRequiresUserRecordAtSubmission(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, time.Minute)
	f.users.user = nil

	f.walkToConfirm(ctx, t)
	f.callback(ctx, "confirm_order")

	assert.Equal(t, StateFailed, f.wizard.State())
	assert.Nil(t, f.submitter.got)
}

func TestWizardMissingProduct(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, time.Minute)
	f.catalog.product = nil

	f.wizard.Start(ctx, 7)
	assert.Equal(t, StateFailed, f.wizard.State())
	assert.True(t, f.wizard.Done())
}

func TestWizardOrderLogFailureDoesNotFailOrder(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, time.Minute)
	f.orders.err = fmt.Errorf("disk full")

	f.walkToConfirm(ctx, t)
	f.callback(ctx, "confirm_order")

	assert.Equal(t, StateCompleted, f.wizard.State())
	assert.Contains(t, f.transport.lastText(), "№9001")
}

func TestOwns(t *testing.T) {
	owned := []string{
		"cancel_order", "change_city", "retry_city", "size_guide",
		"list_warehouses", "confirm_order", "edit_order",
		"payment_postpaid", "payment_prepaid",
		"color_Синій", "size_M", "city_ref-1", "warehouse_wh-12",
	}
	for _, data := range owned {
		assert.True(t, Owns(data), data)
	}

	foreign := []string{
		"main_menu", "order_7", "product_7", "category_1",
		"size_help_7", "back", "ai_exit", "color_", "size_",
	}
	for _, data := range foreign {
		assert.False(t, Owns(data), data)
	}
}
