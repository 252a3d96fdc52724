package novaposhta

// NOVA POSHTA DIRECTORY CLIENT

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sort"
	"strconv"
	"time"

	"go.uber.org/zap"

	"vidoma-bot/pkg/redis"
)

// TypeWarehouse marks a full-service branch as opposed to a parcel locker.
const TypeWarehouse = "Warehouse"

type City struct {
	Name   string `json:"name"`
	Area   string `json:"area"`
	Region string `json:"region"`
	Ref    string `json:"ref"`
}

type Warehouse struct {
	Number          string `json:"number"`
	Description     string `json:"description"`
	Address         string `json:"address"`
	Ref             string `json:"ref"`
	SiteKey         string `json:"site_key"`
	TypeOfWarehouse string `json:"type_of_warehouse"`
}

type Client struct {
	apiURL     string
	apiKey     string
	httpClient *http.Client
	cache      *redis.Client
	logger     *zap.Logger
}

// NewClient creates a directory client. cache may be nil to disable the
// read-through lookup cache.
func NewClient(apiURL, apiKey string, timeout time.Duration, cache *redis.Client, logger *zap.Logger) *Client {
	return &Client{
		apiURL: apiURL,
		apiKey: apiKey,
		httpClient: &http.Client{
			Timeout: timeout,
		},
		cache:  cache,
		logger: logger,
	}
}

type apiRequest struct {
	APIKey           string `json:"apiKey"`
	ModelName        string `json:"modelName"`
	CalledMethod     string `json:"calledMethod"`
	MethodProperties any    `json:"methodProperties"`
}

type apiResponse struct {
	Success bool              `json:"success"`
	Data    []json.RawMessage `json:"data"`
	Errors  []string          `json:"errors"`
}

func (c *Client) call(ctx context.Context, model, method string, props any) (*apiResponse, error) {
	body, err := json.Marshal(apiRequest{
		APIKey:           c.apiKey,
		ModelName:        model,
		CalledMethod:     method,
		MethodProperties: props,
	})
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.apiURL, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status: %d", resp.StatusCode)
	}

	var parsed apiResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}

	return &parsed, nil
}

// SearchCities resolves a free-text city name to directory entries. Zero
// matches is a valid empty result, not an error.
func (c *Client) SearchCities(ctx context.Context, name string) ([]City, error) {
	cacheKey := "np:cities:" + name

	if c.cache != nil {
		var cached []City
		if err := c.cache.GetJSON(ctx, cacheKey, &cached); err == nil {
			return cached, nil
		}
	}

	resp, err := c.call(ctx, "Address", "getCities", map[string]string{
		"FindByString": name,
	})
	if err != nil {
		return nil, fmt.Errorf("search cities: %w", err)
	}

	if !resp.Success {
		return nil, fmt.Errorf("search cities: service returned failure: %v", resp.Errors)
	}

	cities := make([]City, 0, len(resp.Data))
	for _, raw := range resp.Data {
		var entry struct {
			Description string `json:"Description"`
			Area        string `json:"Area"`
			Region      string `json:"Region"`
			Ref         string `json:"Ref"`
		}
		if err := json.Unmarshal(raw, &entry); err != nil {
			return nil, fmt.Errorf("decode city entry: %w", err)
		}
		cities = append(cities, City{
			Name:   entry.Description,
			Area:   entry.Area,
			Region: entry.Region,
			Ref:    entry.Ref,
		})
	}

	if c.cache != nil {
		if err := c.cache.SetJSON(ctx, cacheKey, cities); err != nil {
			c.logger.Warn("Failed to cache city lookup",
				zap.String("city", name),
				zap.Error(err))
		}
	}

	return cities, nil
}

// GetWarehouses returns pickup points for a resolved city. An empty list is
// a valid result.
func (c *Client) GetWarehouses(ctx context.Context, cityRef string) ([]Warehouse, error) {
	cacheKey := "np:warehouses:" + cityRef

	if c.cache != nil {
		var cached []Warehouse
		if err := c.cache.GetJSON(ctx, cacheKey, &cached); err == nil {
			return cached, nil
		}
	}

	resp, err := c.call(ctx, "AddressGeneral", "getWarehouses", map[string]string{
		"CityRef": cityRef,
	})
	if err != nil {
		return nil, fmt.Errorf("get warehouses: %w", err)
	}

	if !resp.Success {
		return nil, fmt.Errorf("get warehouses: service returned failure: %v", resp.Errors)
	}

	warehouses := make([]Warehouse, 0, len(resp.Data))
	for _, raw := range resp.Data {
		var entry struct {
			Number          string `json:"Number"`
			Description     string `json:"Description"`
			ShortAddress    string `json:"ShortAddress"`
			Ref             string `json:"Ref"`
			SiteKey         string `json:"SiteKey"`
			TypeOfWarehouse string `json:"TypeOfWarehouse"`
		}
		if err := json.Unmarshal(raw, &entry); err != nil {
			return nil, fmt.Errorf("decode warehouse entry: %w", err)
		}
		warehouses = append(warehouses, Warehouse{
			Number:          entry.Number,
			Description:     entry.Description,
			Address:         entry.ShortAddress,
			Ref:             entry.Ref,
			SiteKey:         entry.SiteKey,
			TypeOfWarehouse: entry.TypeOfWarehouse,
		})
	}

	if c.cache != nil {
		if err := c.cache.SetJSON(ctx, cacheKey, warehouses); err != nil {
			c.logger.Warn("Failed to cache warehouse lookup",
				zap.String("city_ref", cityRef),
				zap.Error(err))
		}
	}

	return warehouses, nil
}

// TrackingInfo describes a parcel's delivery status.
type TrackingInfo struct {
	Number                string `json:"Number"`
	Status                string `json:"Status"`
	StatusCode            string `json:"StatusCode"`
	WarehouseSender       string `json:"WarehouseSender"`
	WarehouseRecipient    string `json:"WarehouseRecipient"`
	DateCreated           string `json:"DateCreated"`
	ScheduledDeliveryDate string `json:"ScheduledDeliveryDate"`
	ActualDeliveryDate    string `json:"ActualDeliveryDate"`
}

// TrackParcel looks up the delivery status of a single TTN.
func (c *Client) TrackParcel(ctx context.Context, ttn string) (*TrackingInfo, error) {
	resp, err := c.call(ctx, "TrackingDocument", "getStatusDocuments", map[string]any{
		"Documents": []map[string]string{{"DocumentNumber": ttn}},
	})
	if err != nil {
		return nil, fmt.Errorf("track parcel: %w", err)
	}

	if !resp.Success || len(resp.Data) == 0 {
		return nil, nil
	}

	var info TrackingInfo
	if err := json.Unmarshal(resp.Data[0], &info); err != nil {
		return nil, fmt.Errorf("decode tracking entry: %w", err)
	}

	return &info, nil
}

// SortWarehouses orders full-service branches before parcel lockers, each
// group ascending by number.
func SortWarehouses(warehouses []Warehouse) []Warehouse {
	sorted := make([]Warehouse, len(warehouses))
	copy(sorted, warehouses)

	sort.SliceStable(sorted, func(i, j int) bool {
		if sorted[i].TypeOfWarehouse != sorted[j].TypeOfWarehouse {
			return sorted[i].TypeOfWarehouse == TypeWarehouse
		}
		ni, _ := strconv.Atoi(sorted[i].Number)
		nj, _ := strconv.Atoi(sorted[j].Number)
		return ni < nj
	})

	return sorted
}

// DeliveryPayload is the Nova Poshta block the CRM expects on order creation.
type DeliveryPayload struct {
	ServiceType     string `json:"ServiceType"`
	Payer           string `json:"payer"`
	Area            string `json:"area"`
	Region          string `json:"region"`
	City            string `json:"city"`
	WarehouseNumber string `json:"WarehouseNumber"`
	CityNameFormat  string `json:"cityNameFormat"`
	CityRef         string `json:"cityRef"`
	WarehouseRef    string `json:"warehouseRef"`
	Postpaid        string `json:"postpaid,omitempty"`
}

// PrepareForCRM assembles the delivery block for a resolved city/warehouse pair.
func PrepareForCRM(city City, warehouse Warehouse) DeliveryPayload {
	return DeliveryPayload{
		ServiceType:     TypeWarehouse,
		Payer:           "recipient",
		Area:            city.Area,
		Region:          city.Region,
		City:            city.Name,
		WarehouseNumber: warehouse.Number,
		CityNameFormat:  "full",
		CityRef:         city.Ref,
		WarehouseRef:    warehouse.Ref,
	}
}
