package novaposhta

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestServer(t *testing.T, handler func(req apiRequest) any) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req apiRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		require.NoError(t, json.NewEncoder(w).Encode(handler(req)))
	}))
}

func TestSearchCities(t *testing.T) {
	server := newTestServer(t, func(req apiRequest) any {
		assert.Equal(t, "test-key", req.APIKey)
		assert.Equal(t, "Address", req.ModelName)
		assert.Equal(t, "getCities", req.CalledMethod)

		return map[string]any{
			"success": true,
			"data": []map[string]string{
				{"Description": "Київ", "Area": "Київська", "Region": "", "Ref": "kyiv-ref"},
				{"Description": "Київець", "Area": "Львівська", "Region": "Миколаївський", "Ref": "other-ref"},
			},
		}
	})
	defer server.Close()

	client := NewClient(server.URL, "test-key", time.Second, nil, zap.NewNop())

	cities, err := client.SearchCities(context.Background(), "Київ")
	require.NoError(t, err)
	require.Len(t, cities, 2)
	assert.Equal(t, "Київ", cities[0].Name)
	assert.Equal(t, "Київська", cities[0].Area)
	assert.Equal(t, "kyiv-ref", cities[0].Ref)
}

func TestSearchCitiesEmptyResult(t *testing.T) {
	server := newTestServer(t, func(req apiRequest) any {
		return map[string]any{"success": true, "data": []map[string]string{}}
	})
	defer server.Close()

	client := NewClient(server.URL, "test-key", time.Second, nil, zap.NewNop())

	cities, err := client.SearchCities(context.Background(), "Нема")
	require.NoError(t, err)
	assert.Empty(t, cities)
}

func TestSearchCitiesServiceFailure(t *testing.T) {
	server := newTestServer(t, func(req apiRequest) any {
		return map[string]any{"success": false, "errors": []string{"API key expired"}}
	})
	defer server.Close()

	client := NewClient(server.URL, "test-key", time.Second, nil, zap.NewNop())

	_, err := client.SearchCities(context.Background(), "Київ")
	assert.Error(t, err)
}

func TestGetWarehouses(t *testing.T) {
	server := newTestServer(t, func(req apiRequest) any {
		assert.Equal(t, "AddressGeneral", req.ModelName)
		assert.Equal(t, "getWarehouses", req.CalledMethod)

		return map[string]any{
			"success": true,
			"data": []map[string]string{
				{"Number": "12", "Description": "Відділення №12", "Ref": "wh-12", "TypeOfWarehouse": TypeWarehouse},
			},
		}
	})
	defer server.Close()

	client := NewClient(server.URL, "test-key", time.Second, nil, zap.NewNop())

	warehouses, err := client.GetWarehouses(context.Background(), "kyiv-ref")
	require.NoError(t, err)
	require.Len(t, warehouses, 1)
	assert.Equal(t, "12", warehouses[0].Number)
	assert.Equal(t, TypeWarehouse, warehouses[0].TypeOfWarehouse)
}

func TestTrackParcel(t *testing.T) {
	server := newTestServer(t, func(req apiRequest) any {
		assert.Equal(t, "TrackingDocument", req.ModelName)
		assert.Equal(t, "getStatusDocuments", req.CalledMethod)

		props, ok := req.MethodProperties.(map[string]any)
		require.True(t, ok)
		docs, ok := props["Documents"].([]any)
		require.True(t, ok)
		require.Len(t, docs, 1)

		return map[string]any{
			"success": true,
			"data": []map[string]string{
				{
					"Number":             "20450000000001",
					"Status":             "Прибув у відділення",
					"StatusCode":         "7",
					"WarehouseRecipient": "Відділення №12",
				},
			},
		}
	})
	defer server.Close()

	client := NewClient(server.URL, "test-key", time.Second, nil, zap.NewNop())

	info, err := client.TrackParcel(context.Background(), "20450000000001")
	require.NoError(t, err)
	require.NotNil(t, info)
	assert.Equal(t, "20450000000001", info.Number)
	assert.Equal(t, "Прибув у відділення", info.Status)
	assert.Equal(t, "7", info.StatusCode)
}

func TestTrackParcelUnknownTTN(t *testing.T) {
	server := newTestServer(t, func(req apiRequest) any {
		return map[string]any{"success": true, "data": []map[string]string{}}
	})
	defer server.Close()

	client := NewClient(server.URL, "test-key", time.Second, nil, zap.NewNop())

	info, err := client.TrackParcel(context.Background(), "00000000000000")
	require.NoError(t, err)
	assert.Nil(t, info)
}

func TestSortWarehouses(t *testing.T) {
	warehouses := []Warehouse{
		{Number: "5310", TypeOfWarehouse: "Postomat"},
		{Number: "25", TypeOfWarehouse: TypeWarehouse},
		{Number: "3", TypeOfWarehouse: TypeWarehouse},
		{Number: "101", TypeOfWarehouse: "Postomat"},
		{Number: "1", TypeOfWarehouse: TypeWarehouse},
	}

	sorted := SortWarehouses(warehouses)

	numbers := make([]string, len(sorted))
	for i, wh := range sorted {
		numbers[i] = wh.Number
	}
	assert.Equal(t, []string{"1", "3", "25", "101", "5310"}, numbers)

	// Input slice stays untouched.
	assert.Equal(t, "5310", warehouses[0].Number)
}

func TestCitiesKeyboardCap(t *testing.T) {
	var cities []City
	for i := 0; i < 20; i++ {
		cities = append(cities, City{
			Name: fmt.Sprintf("Місто-%d", i),
			Area: "Область",
			Ref:  fmt.Sprintf("ref-%d", i),
		})
	}

	keyboard := CitiesKeyboard(cities)

	// 8 city rows plus the cancel row.
	require.Len(t, keyboard.InlineKeyboard, 9)
	assert.Equal(t, "city_ref-0", *keyboard.InlineKeyboard[0][0].CallbackData)
	assert.Equal(t, "cancel_order", *keyboard.InlineKeyboard[8][0].CallbackData)
}

func TestCitiesKeyboardEmpty(t *testing.T) {
	keyboard := CitiesKeyboard(nil)
	require.Len(t, keyboard.InlineKeyboard, 1)
	assert.Equal(t, "no_cities", *keyboard.InlineKeyboard[0][0].CallbackData)
}

func TestWarehousesKeyboardCap(t *testing.T) {
	var warehouses []Warehouse
	for i := 1; i <= 30; i++ {
		warehouses = append(warehouses, Warehouse{
			Number:          fmt.Sprintf("%d", i),
			Description:     fmt.Sprintf("Відділення №%d", i),
			Ref:             fmt.Sprintf("wh-%d", i),
			TypeOfWarehouse: TypeWarehouse,
		})
	}

	keyboard := WarehousesKeyboard(warehouses)

	// 10 warehouse rows, change city, cancel.
	require.Len(t, keyboard.InlineKeyboard, 12)
	assert.Equal(t, "warehouse_wh-1", *keyboard.InlineKeyboard[0][0].CallbackData)
	assert.Equal(t, "change_city", *keyboard.InlineKeyboard[10][0].CallbackData)
	assert.Equal(t, "cancel_order", *keyboard.InlineKeyboard[11][0].CallbackData)
}

func TestWarehousesKeyboardBranchesBeforeLockers(t *testing.T) {
	warehouses := []Warehouse{
		{Number: "900", Description: "Поштомат", Ref: "p-900", TypeOfWarehouse: "Postomat"},
		{Number: "7", Description: "Відділення", Ref: "w-7", TypeOfWarehouse: TypeWarehouse},
	}

	keyboard := WarehousesKeyboard(warehouses)
	assert.Equal(t, "warehouse_w-7", *keyboard.InlineKeyboard[0][0].CallbackData)
	assert.Equal(t, "warehouse_p-900", *keyboard.InlineKeyboard[1][0].CallbackData)
}

func TestPrepareForCRM(t *testing.T) {
	payload := PrepareForCRM(
		City{Name: "Київ", Area: "Київська", Region: "", Ref: "kyiv-ref"},
		Warehouse{Number: "12", Ref: "wh-12"},
	)

	assert.Equal(t, TypeWarehouse, payload.ServiceType)
	assert.Equal(t, "recipient", payload.Payer)
	assert.Equal(t, "Київ", payload.City)
	assert.Equal(t, "12", payload.WarehouseNumber)
	assert.Equal(t, "full", payload.CityNameFormat)
	assert.Equal(t, "kyiv-ref", payload.CityRef)
	assert.Equal(t, "wh-12", payload.WarehouseRef)

	// Postpaid is omitted from the JSON until explicitly set.
	data, err := json.Marshal(payload)
	require.NoError(t, err)
	assert.NotContains(t, string(data), "postpaid")
}
