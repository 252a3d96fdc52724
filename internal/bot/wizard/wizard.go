package wizard

// ORDER WIZARD STATE MACHINE

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"vidoma-bot/internal/storage"
	"vidoma-bot/pkg/crm"
	"vidoma-bot/pkg/novaposhta"
)

const defaultTimeout = 5 * time.Minute

// Wizard walks one customer through a single order: variant selection,
// identity capture, delivery resolution, payment choice, confirmation and
// submission. One instance per chat; the mutex serializes every event for
// that conversation, including the external calls made while handling it,
// so the machine never observes two events at once.
type Wizard struct {
	chatID   int64
	userID   int64
	username string

	mu    sync.Mutex
	state State
	draft Draft
	timer *time.Timer
	done  bool

	deps    Deps
	timeout time.Duration
	render  *renderer
	logger  *zap.Logger
}

func New(chatID, userID int64, username string, deps Deps) *Wizard {
	timeout := deps.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	logger := deps.Logger.With(zap.Int64("chat_id", chatID))
	return &Wizard{
		chatID:   chatID,
		userID:   userID,
		username: username,
		deps:     deps,
		timeout:  timeout,
		render: &renderer{
			transport: deps.Transport,
			chatID:    chatID,
			logger:    logger,
		},
		logger: logger,
	}
}

// State reports the current step.
func (w *Wizard) State() State {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.state
}

// Done reports whether the wizard reached a terminal state.
func (w *Wizard) Done() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.done
}

// Start fetches the product snapshot and enters the first applicable step.
func (w *Wizard) Start(ctx context.Context, productID int64) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.done {
		return
	}

	if !w.loadProduct(ctx, productID) {
		return
	}

	w.armTimer()
	w.enterVariantSelection(0)
}

// Cancel terminates the wizard without a chat message. The dispatcher uses
// it when the customer starts a new order over a live one.
func (w *Wizard) Cancel() {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.done {
		return
	}
	w.finish(StateCancelled)
}

// HandleMessage processes a free-text message routed to this wizard.
func (w *Wizard) HandleMessage(ctx context.Context, msg *tgbotapi.Message) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.done {
		return
	}
	w.armTimer()

	text := strings.TrimSpace(msg.Text)

	switch w.state {
	case StateColorSelect:
		w.render.send(msgColorButtons)
	case StateSizeSelect:
		w.render.send(msgSizeButtons)
	case StateNameCapture:
		w.handleName(text)
	case StateSurnameCapture:
		w.handleSurname(text)
	case StatePhoneCapture:
		w.handlePhone(text)
	case StateCityInput, StateCityDisambiguation:
		// A fresh city name during disambiguation starts a new search.
		w.handleCitySearch(ctx, text)
	case StateWarehouseResolution:
		w.handleWarehouseNumber(ctx, text)
	case StatePaymentSelect:
		w.render.send(msgPaymentButtons)
	case StateConfirm:
		w.render.send(msgConfirmButtons)
	}
}

// HandleCallback processes an inline-button press routed to this wizard.
func (w *Wizard) HandleCallback(ctx context.Context, cb *tgbotapi.CallbackQuery) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.done {
		w.render.answerCallback(cb.ID, "")
		return
	}
	w.armTimer()

	data := cb.Data
	messageID := 0
	if cb.Message != nil {
		messageID = cb.Message.MessageID
	}

	// Cancellation works from every step.
	if data == CallbackCancelOrder {
		w.render.answerCallback(cb.ID, "")
		w.render.editKeyboard(messageID, msgCancelled, mainMenuKeyboard())
		w.finish(StateCancelled)
		return
	}

	switch w.state {
	case StateColorSelect:
		w.handleColorCallback(cb.ID, messageID, data)
	case StateSizeSelect:
		w.handleSizeCallback(cb.ID, messageID, data)
	case StateCityInput:
		w.handleCityInputCallback(cb.ID, messageID, data)
	case StateCityDisambiguation:
		w.handleCityPickCallback(ctx, cb.ID, messageID, data)
	case StateWarehouseResolution:
		w.handleWarehouseCallback(ctx, cb.ID, messageID, data)
	case StatePaymentSelect:
		w.handlePaymentCallback(cb.ID, messageID, data)
	case StateConfirm:
		w.handleConfirmCallback(ctx, cb.ID, messageID, data)
	default:
		w.render.answerCallback(cb.ID, "")
	}
}

// loadProduct fetches the catalog snapshot into the draft. On failure the
// wizard terminates before its first prompt.
func (w *Wizard) loadProduct(ctx context.Context, productID int64) bool {
	product, err := w.deps.Catalog.GetProductByID(ctx, productID)
	if err != nil {
		w.logger.Error("Failed to load product for order",
			zap.Int64("product_id", productID),
			zap.Error(err))
		w.render.send(msgProductLoad)
		w.finish(StateFailed)
		return false
	}
	if product == nil {
		w.render.send(msgProductMissing)
		w.finish(StateFailed)
		return false
	}

	variants := product.Variants()
	w.draft = Draft{
		ProductID:       productID,
		Product:         product,
		AvailableColors: variants.Colors,
		AvailableSizes:  variants.Sizes,
	}
	return true
}

// enterVariantSelection picks the first applicable step: color, then size,
// then identity capture. messageID is non-zero when arriving from a button
// press, so the prompt edits in place.
func (w *Wizard) enterVariantSelection(messageID int) {
	if len(w.draft.AvailableColors) > 0 && w.draft.SelectedColor == "" {
		w.state = StateColorSelect
		w.prompt(messageID, msgColorPrompt, colorKeyboard(w.draft.AvailableColors))
		return
	}
	w.enterSizeSelection(messageID)
}

func (w *Wizard) enterSizeSelection(messageID int) {
	if len(w.draft.AvailableSizes) > 0 && w.draft.SelectedSize == "" {
		w.state = StateSizeSelect
		w.prompt(messageID, msgSizePrompt, sizeKeyboard(w.draft.AvailableSizes, true))
		return
	}
	w.enterNameCapture(messageID)
}

func (w *Wizard) enterNameCapture(messageID int) {
	w.state = StateNameCapture
	w.prompt(messageID, w.draft.OrderSummaryHeader()+msgName, cancelKeyboard())
}

func (w *Wizard) handleColorCallback(callbackID string, messageID int, data string) {
	if !strings.HasPrefix(data, CallbackColorPrefix) {
		w.render.answerCallback(callbackID, "")
		return
	}
	color := strings.TrimPrefix(data, CallbackColorPrefix)
	if !contains(w.draft.AvailableColors, color) {
		w.render.answerCallback(callbackID, msgColorButtons)
		return
	}
	w.draft.SelectedColor = color
	w.render.answerCallback(callbackID, "")
	w.enterSizeSelection(messageID)
}

func (w *Wizard) handleSizeCallback(callbackID string, messageID int, data string) {
	if data == CallbackSizeGuide {
		w.render.answerCallback(callbackID, "")
		w.render.editKeyboard(messageID, msgSizeGuide, sizeKeyboard(w.draft.AvailableSizes, false))
		return
	}
	if !strings.HasPrefix(data, CallbackSizePrefix) {
		w.render.answerCallback(callbackID, "")
		return
	}
	size := strings.TrimPrefix(data, CallbackSizePrefix)
	if !contains(w.draft.AvailableSizes, size) {
		w.render.answerCallback(callbackID, msgSizeButtons)
		return
	}
	w.draft.SelectedSize = size
	w.render.answerCallback(callbackID, "")
	w.enterNameCapture(messageID)
}

func (w *Wizard) handleName(text string) {
	if text == "" {
		w.render.send(msgNameText)
		return
	}
	w.draft.FirstName = text
	w.state = StateSurnameCapture
	w.render.sendKeyboard(msgSurname, cancelKeyboard())
}

func (w *Wizard) handleSurname(text string) {
	if text == "" {
		w.render.send(msgSurnameText)
		return
	}
	w.draft.LastName = text
	w.state = StatePhoneCapture
	w.render.sendKeyboard(msgPhone, cancelKeyboard())
}

func (w *Wizard) handlePhone(text string) {
	if text == "" {
		w.render.send(msgPhoneText)
		return
	}
	if !IsValidPhone(text) {
		w.render.send(msgPhoneRetry)
		return
	}
	w.draft.Phone = text
	w.state = StateCityInput
	w.render.sendKeyboard(msgCityIntro, cancelOrderKeyboard())
}

// handleCitySearch resolves free-text input against the delivery directory.
// Zero matches keeps the customer in city input; one match goes straight to
// warehouse entry; several matches open a pick list.
func (w *Wizard) handleCitySearch(ctx context.Context, text string) {
	if text == "" {
		w.render.send(msgCityText)
		return
	}

	w.render.send(msgCitySearching)

	cities, err := w.deps.Directory.SearchCities(ctx, text)
	if err != nil {
		w.logger.Warn("City search failed",
			zap.String("city", text),
			zap.Error(err))
		w.state = StateCityInput
		w.render.sendKeyboard(msgCitySearchError, retryCityKeyboard())
		return
	}

	switch len(cities) {
	case 0:
		w.state = StateCityInput
		w.render.sendKeyboard(msgCityNotFound, retryCityKeyboard())
	case 1:
		w.draft.City = &cities[0]
		w.draft.CityMatches = nil
		w.enterWarehouseResolution(0)
	default:
		w.draft.CityMatches = cities
		w.state = StateCityDisambiguation
		w.render.sendKeyboard(msgCityMany, novaposhta.CitiesKeyboard(cities))
	}
}

func (w *Wizard) handleCityInputCallback(callbackID string, messageID int, data string) {
	switch data {
	case CallbackRetryCity:
		w.render.answerCallback(callbackID, "")
		w.render.editKeyboard(messageID, msgCityPrompt, cancelOrderKeyboard())
	default:
		w.render.answerCallback(callbackID, "")
	}
}

func (w *Wizard) handleCityPickCallback(ctx context.Context, callbackID string, messageID int, data string) {
	switch {
	case strings.HasPrefix(data, CallbackCityPrefix):
		ref := strings.TrimPrefix(data, CallbackCityPrefix)
		for i := range w.draft.CityMatches {
			if w.draft.CityMatches[i].Ref == ref {
				city := w.draft.CityMatches[i]
				w.draft.City = &city
				w.draft.CityMatches = nil
				w.render.answerCallback(callbackID, "")
				w.enterWarehouseResolution(messageID)
				return
			}
		}
		w.render.answerCallback(callbackID, msgCityPickError)
	case data == CallbackChangeCity, data == CallbackRetryCity:
		w.render.answerCallback(callbackID, "")
		w.resetCity(messageID)
	default:
		// no_cities and anything stale just re-prompt for a city.
		w.render.answerCallback(callbackID, "")
		w.resetCity(messageID)
	}
}

func (w *Wizard) enterWarehouseResolution(messageID int) {
	w.state = StateWarehouseResolution
	text := fmt.Sprintf(msgWarehousePromptFmt, w.draft.City.Name)
	w.prompt(messageID, text, warehouseEntryKeyboard())
}

func (w *Wizard) handleWarehouseNumber(ctx context.Context, text string) {
	if text == "" {
		w.render.send(msgWarehouseText)
		return
	}
	if !IsValidWarehouseNumber(text) {
		w.render.send(msgWarehouseFormat)
		return
	}

	w.render.send(msgWarehouseChecking)

	warehouses, err := w.deps.Directory.GetWarehouses(ctx, w.draft.City.Ref)
	if err != nil {
		w.logger.Warn("Warehouse lookup failed",
			zap.String("city_ref", w.draft.City.Ref),
			zap.Error(err))
		w.render.sendKeyboard(msgWarehouseError, changeCityKeyboard())
		return
	}

	for i := range warehouses {
		if warehouses[i].Number == text {
			w.draft.Warehouse = &warehouses[i]
			w.enterPaymentSelect(0)
			return
		}
	}

	w.render.sendKeyboard(
		fmt.Sprintf(msgWarehouseMissFmt, text, w.draft.City.Name),
		warehouseEntryKeyboard())
}

func (w *Wizard) handleWarehouseCallback(ctx context.Context, callbackID string, messageID int, data string) {
	switch {
	case data == CallbackListWarehouses:
		w.render.answerCallback(callbackID, "")
		w.showWarehouseList(ctx, messageID)
	case strings.HasPrefix(data, CallbackWarehousePrefix):
		w.pickWarehouse(ctx, callbackID, messageID, strings.TrimPrefix(data, CallbackWarehousePrefix))
	case data == CallbackChangeCity:
		w.render.answerCallback(callbackID, "")
		w.resetCity(messageID)
	default:
		w.render.answerCallback(callbackID, "")
	}
}

func (w *Wizard) showWarehouseList(ctx context.Context, messageID int) {
	warehouses, err := w.deps.Directory.GetWarehouses(ctx, w.draft.City.Ref)
	if err != nil {
		w.logger.Warn("Warehouse lookup failed",
			zap.String("city_ref", w.draft.City.Ref),
			zap.Error(err))
		w.render.sendKeyboard(msgWarehouseError, changeCityKeyboard())
		return
	}
	if len(warehouses) == 0 {
		w.render.editKeyboard(messageID, msgWarehouseListEmpty, changeCityKeyboard())
		return
	}
	w.render.editKeyboard(messageID, msgWarehouseList, novaposhta.WarehousesKeyboard(warehouses))
}

func (w *Wizard) pickWarehouse(ctx context.Context, callbackID string, messageID int, ref string) {
	warehouses, err := w.deps.Directory.GetWarehouses(ctx, w.draft.City.Ref)
	if err != nil {
		w.logger.Warn("Warehouse lookup failed",
			zap.String("city_ref", w.draft.City.Ref),
			zap.Error(err))
		w.render.answerCallback(callbackID, msgWarehousePickError)
		return
	}
	for i := range warehouses {
		if warehouses[i].Ref == ref {
			w.draft.Warehouse = &warehouses[i]
			w.render.answerCallback(callbackID, "")
			w.enterPaymentSelect(messageID)
			return
		}
	}
	w.render.answerCallback(callbackID, msgWarehousePickError)
}

// resetCity drops the resolved city and warehouse and returns to city input.
func (w *Wizard) resetCity(messageID int) {
	w.draft.City = nil
	w.draft.Warehouse = nil
	w.draft.CityMatches = nil
	w.state = StateCityInput
	w.prompt(messageID, msgCityPrompt, cancelOrderKeyboard())
}

func (w *Wizard) enterPaymentSelect(messageID int) {
	w.state = StatePaymentSelect
	w.prompt(messageID, msgPaymentPrompt, paymentKeyboard())
}

func (w *Wizard) handlePaymentCallback(callbackID string, messageID int, data string) {
	switch data {
	case CallbackPaymentPostpaid:
		w.draft.PaymentMethod = PaymentPostpaid
	case CallbackPaymentPrepaid:
		w.draft.PaymentMethod = PaymentPrepaid
	default:
		w.render.answerCallback(callbackID, "")
		return
	}
	w.render.answerCallback(callbackID, "")
	w.state = StateConfirm
	w.render.editKeyboard(messageID, w.draft.Summary(), confirmKeyboard())
}

func (w *Wizard) handleConfirmCallback(ctx context.Context, callbackID string, messageID int, data string) {
	switch data {
	case CallbackConfirmOrder:
		w.render.answerCallback(callbackID, "")
		w.submit(ctx, messageID)
	case CallbackEditOrder:
		w.render.answerCallback(callbackID, "")
		w.restart(ctx, messageID)
	default:
		w.render.answerCallback(callbackID, "")
	}
}

// restart wipes every entered value and walks the flow again from variant
// selection, re-reading the product snapshot.
func (w *Wizard) restart(ctx context.Context, messageID int) {
	productID := w.draft.ProductID
	w.draft = Draft{}
	if !w.loadProduct(ctx, productID) {
		return
	}
	w.enterVariantSelection(messageID)
}

// submit posts the order to the CRM. Submission is attempted exactly once;
// any failure past this point is terminal and the customer is told a manager
// will follow up.
func (w *Wizard) submit(ctx context.Context, messageID int) {
	w.stopTimer()
	w.render.edit(messageID, msgProcessing)

	user, err := w.deps.Users.GetUserByTelegramID(ctx, w.userID)
	if err != nil || user == nil {
		w.logger.Error("Missing user record at submission",
			zap.Int64("user_id", w.userID),
			zap.Error(err))
		w.render.sendKeyboard(msgSubmitFailed, mainMenuKeyboard())
		w.finish(StateFailed)
		return
	}

	delivery := novaposhta.PrepareForCRM(*w.draft.City, *w.draft.Warehouse)
	if w.draft.PaymentMethod == PaymentPostpaid {
		delivery.Postpaid = "Payment control"
	} else {
		delivery.Postpaid = "No cash on delivery"
	}

	req := crm.OrderRequest{
		ExternalID: strconv.FormatInt(w.userID, 10),
		Products: []crm.ProductLine{{
			ID:          strconv.FormatInt(w.draft.ProductID, 10),
			Name:        w.draft.DisplayName(),
			Price:       w.draft.Product.EffectivePrice(),
			Quantity:    1,
			Description: w.draft.Product.Description.String,
		}},
		CustomerName:     w.draft.CustomerName(),
		FirstName:        w.draft.FirstName,
		LastName:         w.draft.LastName,
		Phone:            w.draft.Phone,
		TelegramUsername: w.username,
		DeliveryMethod:   DeliveryMethod,
		DeliveryAddress:  w.draft.DeliveryAddress(),
		PaymentMethod:    w.draft.PaymentMethod,
		NovaPoshta:       &delivery,
		Notes:            w.draft.Notes(),
	}

	result, err := w.deps.Submitter.CreateOrder(ctx, req)
	if err != nil || !result.Success {
		if err != nil {
			w.logger.Error("CRM submission failed",
				zap.Int64("user_id", w.userID),
				zap.Error(err))
		} else {
			w.logger.Error("CRM rejected order",
				zap.Int64("user_id", w.userID),
				zap.String("crm_error", result.Error))
		}
		w.render.sendKeyboard(msgSubmitFailed, mainMenuKeyboard())
		w.finish(StateFailed)
		return
	}

	order := w.buildOrder(user.ID, result.OrderID)
	w.logOrder(ctx, order)
	if w.deps.OnSubmitted != nil {
		go w.deps.OnSubmitted(order)
	}

	w.render.sendKeyboard(fmt.Sprintf(msgSuccessFmt, result.OrderID), mainMenuKeyboard())
	w.finish(StateCompleted)
}

func (w *Wizard) buildOrder(userID int64, crmOrderID string) storage.Order {
	return storage.Order{
		UserID:        userID,
		CRMOrderID:    sql.NullString{String: crmOrderID, Valid: true},
		ProductID:     w.draft.ProductID,
		ProductName:   w.draft.DisplayName(),
		Color:         nullable(w.draft.SelectedColor),
		Size:          nullable(w.draft.SelectedSize),
		Price:         w.draft.Product.EffectivePrice(),
		CustomerName:  w.draft.CustomerName(),
		CustomerPhone: w.draft.Phone,
		DeliveryCity:  w.draft.City.Name,
		WarehouseNo:   w.draft.Warehouse.Number,
		PaymentMethod: w.draft.PaymentMethod,
		Status:        "new",
	}
}

// logOrder records a local copy of the accepted order. Failures are logged
// and swallowed; the CRM already holds the order.
func (w *Wizard) logOrder(ctx context.Context, order storage.Order) {
	if _, err := w.deps.Orders.SaveOrder(ctx, order); err != nil {
		w.logger.Warn("Failed to record order locally",
			zap.String("crm_order_id", order.CRMOrderID.String),
			zap.Error(err))
	}
}

// prompt edits in place when arriving from a button press, sends otherwise.
func (w *Wizard) prompt(messageID int, text string, keyboard tgbotapi.InlineKeyboardMarkup) {
	if messageID != 0 {
		w.render.editKeyboard(messageID, text, keyboard)
		return
	}
	w.render.sendKeyboard(text, keyboard)
}

// armTimer restarts the inactivity window. Every incoming event re-arms it,
// valid or not.
func (w *Wizard) armTimer() {
	w.stopTimer()
	w.timer = time.AfterFunc(w.timeout, w.expire)
}

func (w *Wizard) stopTimer() {
	if w.timer != nil {
		w.timer.Stop()
		w.timer = nil
	}
}

// expire fires at most once: it waits for any in-flight event to release the
// mutex and the done flag decides who won.
func (w *Wizard) expire() {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.done {
		return
	}
	w.render.sendKeyboard(msgTimedOut, mainMenuKeyboard())
	w.finish(StateTimedOut)
}

// finish moves to a terminal state exactly once and detaches the session.
func (w *Wizard) finish(state State) {
	w.state = state
	w.done = true
	w.stopTimer()
	if w.deps.OnFinish != nil {
		go w.deps.OnFinish(w.chatID)
	}
}

func nullable(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func contains(values []string, v string) bool {
	for _, value := range values {
		if value == v {
			return true
		}
	}
	return false
}
