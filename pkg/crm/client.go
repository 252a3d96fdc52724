package crm

// CRM CLIENT

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"

	"vidoma-bot/pkg/novaposhta"
)

type Client struct {
	apiURL     string
	apiKey     string
	httpClient *http.Client
	logger     *zap.Logger
}

// NewClient creates a CRM client. The timeout bounds every request; retrying
// a failed submission is the caller's decision, never the client's.
func NewClient(apiURL, apiKey string, timeout time.Duration, logger *zap.Logger) *Client {
	return &Client{
		apiURL: apiURL,
		apiKey: apiKey,
		httpClient: &http.Client{
			Timeout: timeout,
		},
		logger: logger,
	}
}

type ProductLine struct {
	ID          string
	Name        string
	Price       float64
	Quantity    int
	Description string
}

type OrderRequest struct {
	ExternalID       string
	Products         []ProductLine
	CustomerName     string
	FirstName        string
	LastName         string
	Phone            string
	Email            string
	TelegramUsername string
	DeliveryMethod   string
	DeliveryAddress  string
	PaymentMethod    string
	NovaPoshta       *novaposhta.DeliveryPayload
	Notes            string
}

type OrderResult struct {
	Success bool
	OrderID string
	Error   string
}

type productPayload struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	CostPerItem string `json:"costPerItem"`
	Amount      string `json:"amount"`
	Description string `json:"description"`
}

type orderPayload struct {
	Form            string           `json:"form"`
	GetResultData   string           `json:"getResultData"`
	Products        []productPayload `json:"products"`
	Comment         string           `json:"comment"`
	ExternalID      string           `json:"externalId"`
	FName           string           `json:"fName"`
	LName           string           `json:"lName"`
	Phone           string           `json:"phone"`
	Email           string           `json:"email"`
	ConTelegram     string           `json:"con_telegram"`
	ShippingMethod  string           `json:"shipping_method"`
	PaymentMethod   string           `json:"payment_method"`
	ShippingAddress string           `json:"shipping_address"`
	NovaPoshta      any              `json:"novaposhta"`
	Sajt            string           `json:"sajt"`
}

// CreateOrder submits a finalized order and returns the CRM-assigned order
// identifier, or a structured failure. Transport faults are returned as
// errors; an explicit CRM rejection comes back as OrderResult.Success=false.
func (c *Client) CreateOrder(ctx context.Context, req OrderRequest) (*OrderResult, error) {
	products := make([]productPayload, 0, len(req.Products))
	for _, p := range req.Products {
		quantity := p.Quantity
		if quantity == 0 {
			quantity = 1
		}
		products = append(products, productPayload{
			ID:          p.ID,
			Name:        p.Name,
			CostPerItem: fmt.Sprintf("%g", p.Price),
			Amount:      fmt.Sprintf("%d", quantity),
			Description: p.Description,
		})
	}

	firstName := req.FirstName
	if firstName == "" {
		firstName = req.CustomerName
	}

	var novaPoshta any = map[string]string{}
	if req.NovaPoshta != nil {
		novaPoshta = req.NovaPoshta
	}

	payload := orderPayload{
		Form:            c.apiKey,
		GetResultData:   "1",
		Products:        products,
		Comment:         req.Notes,
		ExternalID:      req.ExternalID,
		FName:           firstName,
		LName:           req.LastName,
		Phone:           req.Phone,
		Email:           req.Email,
		ConTelegram:     req.TelegramUsername,
		ShippingMethod:  req.DeliveryMethod,
		PaymentMethod:   req.PaymentMethod,
		ShippingAddress: req.DeliveryAddress,
		NovaPoshta:      novaPoshta,
		Sajt:            "Telegram Bot",
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(
		ctx,
		http.MethodPost,
		c.apiURL+"/handler/",
		bytes.NewReader(body),
	)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return &OrderResult{
			Success: false,
			Error:   fmt.Sprintf("unexpected status: %d", resp.StatusCode),
		}, nil
	}

	var result struct {
		ID      json.Number `json:"id"`
		OrderID json.Number `json:"order_id"`
		Message string      `json:"message"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}

	orderID := result.ID.String()
	if orderID == "" {
		orderID = result.OrderID.String()
	}
	if orderID == "" {
		return &OrderResult{
			Success: false,
			Error:   "response carried no order id",
		}, nil
	}

	c.logger.Info("CRM order created",
		zap.String("order_id", orderID),
		zap.String("external_id", req.ExternalID))

	return &OrderResult{Success: true, OrderID: orderID}, nil
}

// Order is a customer's order as reported by the CRM.
type Order struct {
	ID            string          `json:"id"`
	StatusID      json.Number     `json:"statusId"`
	OrderTime     string          `json:"orderTime"`
	PaymentAmount string          `json:"paymentAmount"`
	Products      []OrderProduct  `json:"products"`
	DeliveryData  []OrderDelivery `json:"ord_delivery_data"`
}

type OrderProduct struct {
	Text   string `json:"text"`
	Amount string `json:"amount"`
	Price  string `json:"price"`
}

type OrderDelivery struct {
	CityName       string `json:"cityName"`
	Address        string `json:"address"`
	TrackingNumber string `json:"trackingNumber"`
}

type StatusOption struct {
	Value json.Number `json:"value"`
	Text  string      `json:"text"`
}

type UserOrders struct {
	Orders        []Order        `json:"orders"`
	StatusOptions []StatusOption `json:"statusOptions"`
	Count         int            `json:"count"`
	PaymentTotal  string         `json:"paymentAmount"`
}

// GetUserOrders fetches all orders placed under the given external id
// (the customer's Telegram user id).
func (c *Client) GetUserOrders(ctx context.Context, externalID string) (*UserOrders, error) {
	payload := map[string]string{
		"form":       c.apiKey,
		"externalId": externalID,
		"action":     "getOrders",
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(
		ctx,
		http.MethodPost,
		c.apiURL+"/handler/",
		bytes.NewReader(body),
	)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status: %d", resp.StatusCode)
	}

	var result struct {
		Orders        []Order        `json:"orders"`
		StatusOptions []StatusOption `json:"statusOptions"`
		Totals        struct {
			Count         int    `json:"count"`
			PaymentAmount string `json:"paymentAmount"`
		} `json:"totals"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}

	return &UserOrders{
		Orders:        result.Orders,
		StatusOptions: result.StatusOptions,
		Count:         result.Totals.Count,
		PaymentTotal:  result.Totals.PaymentAmount,
	}, nil
}
