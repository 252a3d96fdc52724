package admin

import (
	"database/sql"
	"encoding/json"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strconv"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"vidoma-bot/internal/storage"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}

func pathID(r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	return id, err == nil
}

// CATEGORIES

type categoryPayload struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	SortOrder   int    `json:"sort_order"`
	Active      bool   `json:"active"`
}

func (p categoryPayload) toModel(id int64) storage.Category {
	return storage.Category{
		ID:          id,
		Name:        p.Name,
		Description: sql.NullString{String: p.Description, Valid: p.Description != ""},
		SortOrder:   p.SortOrder,
		Active:      p.Active,
	}
}

func (s *Server) listCategories(w http.ResponseWriter, r *http.Request) {
	categories, err := s.storage.GetActiveCategories(r.Context())
	if err != nil {
		s.logger.Error("Failed to list categories", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "storage failure")
		return
	}
	writeJSON(w, http.StatusOK, categories)
}

func (s *Server) getCategory(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid id")
		return
	}

	category, err := s.storage.GetCategoryByID(r.Context(), id)
	if err != nil {
		s.logger.Error("Failed to load category",
			zap.Int64("category_id", id),
			zap.Error(err))
		writeError(w, http.StatusInternalServerError, "storage failure")
		return
	}
	if category == nil {
		writeError(w, http.StatusNotFound, "category not found")
		return
	}
	writeJSON(w, http.StatusOK, category)
}

func (s *Server) createCategory(w http.ResponseWriter, r *http.Request) {
	var payload categoryPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		writeError(w, http.StatusBadRequest, "invalid body")
		return
	}
	if payload.Name == "" {
		writeError(w, http.StatusBadRequest, "name is required")
		return
	}

	id, err := s.storage.CreateCategory(r.Context(), payload.toModel(0))
	if err != nil {
		s.logger.Error("Failed to create category", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "storage failure")
		return
	}
	writeJSON(w, http.StatusCreated, map[string]int64{"id": id})
}

func (s *Server) updateCategory(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid id")
		return
	}

	var payload categoryPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		writeError(w, http.StatusBadRequest, "invalid body")
		return
	}

	if err := s.storage.UpdateCategory(r.Context(), payload.toModel(id)); err != nil {
		s.logger.Error("Failed to update category",
			zap.Int64("category_id", id),
			zap.Error(err))
		writeError(w, http.StatusInternalServerError, "storage failure")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) deleteCategory(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid id")
		return
	}
	if err := s.storage.DeleteCategory(r.Context(), id); err != nil {
		s.logger.Error("Failed to delete category",
			zap.Int64("category_id", id),
			zap.Error(err))
		writeError(w, http.StatusInternalServerError, "storage failure")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// PRODUCTS

type productPayload struct {
	CategoryID    int64    `json:"category_id"`
	Name          string   `json:"name"`
	Description   string   `json:"description"`
	Price         float64  `json:"price"`
	SalePrice     *float64 `json:"sale_price"`
	StockQuantity int      `json:"stock_quantity"`
	Images        string   `json:"images"`
	Active        bool     `json:"active"`
}

func (p productPayload) toModel(id int64) storage.Product {
	product := storage.Product{
		ID:            id,
		CategoryID:    sql.NullInt64{Int64: p.CategoryID, Valid: p.CategoryID != 0},
		Name:          p.Name,
		Description:   sql.NullString{String: p.Description, Valid: p.Description != ""},
		Price:         p.Price,
		StockQuantity: p.StockQuantity,
		Images:        sql.NullString{String: p.Images, Valid: p.Images != ""},
		Active:        p.Active,
	}
	if p.SalePrice != nil {
		product.SalePrice = sql.NullFloat64{Float64: *p.SalePrice, Valid: true}
	}
	return product
}

func (s *Server) getProduct(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid id")
		return
	}

	product, err := s.storage.GetProductByID(r.Context(), id)
	if err != nil {
		s.logger.Error("Failed to load product",
			zap.Int64("product_id", id),
			zap.Error(err))
		writeError(w, http.StatusInternalServerError, "storage failure")
		return
	}
	if product == nil {
		writeError(w, http.StatusNotFound, "product not found")
		return
	}
	writeJSON(w, http.StatusOK, product)
}

func (s *Server) createProduct(w http.ResponseWriter, r *http.Request) {
	var payload productPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		writeError(w, http.StatusBadRequest, "invalid body")
		return
	}
	if payload.Name == "" || payload.Price <= 0 {
		writeError(w, http.StatusBadRequest, "name and positive price are required")
		return
	}

	id, err := s.storage.CreateProduct(r.Context(), payload.toModel(0))
	if err != nil {
		s.logger.Error("Failed to create product", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "storage failure")
		return
	}
	writeJSON(w, http.StatusCreated, map[string]int64{"id": id})
}

func (s *Server) updateProduct(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid id")
		return
	}

	var payload productPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		writeError(w, http.StatusBadRequest, "invalid body")
		return
	}

	if err := s.storage.UpdateProduct(r.Context(), payload.toModel(id)); err != nil {
		s.logger.Error("Failed to update product",
			zap.Int64("product_id", id),
			zap.Error(err))
		writeError(w, http.StatusInternalServerError, "storage failure")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) deleteProduct(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid id")
		return
	}
	if err := s.storage.DeleteProduct(r.Context(), id); err != nil {
		s.logger.Error("Failed to delete product",
			zap.Int64("product_id", id),
			zap.Error(err))
		writeError(w, http.StatusInternalServerError, "storage failure")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// SETTINGS

func (s *Server) getSettings(w http.ResponseWriter, r *http.Request) {
	settings, err := s.storage.GetSettings(r.Context())
	if err != nil {
		s.logger.Error("Failed to load settings", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "storage failure")
		return
	}
	writeJSON(w, http.StatusOK, settings)
}

func (s *Server) putSettings(w http.ResponseWriter, r *http.Request) {
	var settings map[string]string
	if err := json.NewDecoder(r.Body).Decode(&settings); err != nil {
		writeError(w, http.StatusBadRequest, "invalid body")
		return
	}

	for key, value := range settings {
		if err := s.storage.SetSetting(r.Context(), key, value); err != nil {
			s.logger.Error("Failed to store setting",
				zap.String("key", key),
				zap.Error(err))
			writeError(w, http.StatusInternalServerError, "storage failure")
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// BOT CONTROL

func (s *Server) botStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]bool{"running": s.bot.Running()})
}

func (s *Server) botStart(w http.ResponseWriter, r *http.Request) {
	if s.bot.Running() {
		writeJSON(w, http.StatusOK, map[string]string{"status": "already running"})
		return
	}
	go s.bot.Start(s.botCtx)
	writeJSON(w, http.StatusOK, map[string]string{"status": "started"})
}

func (s *Server) botStop(w http.ResponseWriter, r *http.Request) {
	s.bot.Stop()
	writeJSON(w, http.StatusOK, map[string]string{"status": "stopped"})
}

// BACKUP

func (s *Server) generateBackup(w http.ResponseWriter, r *http.Request) {
	backup, err := s.storage.GenerateBackup(r.Context(),
		r.URL.Query().Get("date_from"),
		r.URL.Query().Get("date_to"))
	if err != nil {
		s.logger.Error("Failed to generate backup", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "backup failure")
		return
	}

	w.Header().Set("Content-Type", "application/sql")
	w.Header().Set("Content-Disposition", "attachment; filename="+backup.Filename)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(backup.Content))
}

func (s *Server) restoreBackup(w http.ResponseWriter, r *http.Request) {
	content, err := io.ReadAll(http.MaxBytesReader(w, r.Body, 32<<20))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid body")
		return
	}

	executed, total, err := s.storage.RestoreBackup(r.Context(), string(content))
	if err != nil {
		s.logger.Error("Failed to restore backup", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "restore failure")
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{
		"executed": executed,
		"total":    total,
	})
}

// ORDERS EXPORT

func (s *Server) exportOrders(w http.ResponseWriter, r *http.Request) {
	path, err := s.storage.ExportOrdersToExcel(r.Context(), os.TempDir())
	if err != nil {
		s.logger.Error("Failed to export orders", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "export failure")
		return
	}
	defer os.Remove(path)

	w.Header().Set("Content-Type",
		"application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", "attachment; filename="+filepath.Base(path))
	http.ServeFile(w, r, path)
}

// CRM WEBHOOK

type crmWebhookPayload struct {
	Token      string `json:"token"`
	ExternalID int64  `json:"externalId,string"`
	OrderID    string `json:"orderId"`
	Status     string `json:"status"`
}

// crmWebhook receives status transitions from the CRM and relays them to the
// customer.
func (s *Server) crmWebhook(w http.ResponseWriter, r *http.Request) {
	var payload crmWebhookPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		writeError(w, http.StatusBadRequest, "invalid body")
		return
	}

	token := payload.Token
	if token == "" {
		token = r.URL.Query().Get("token")
	}
	if token != s.cfg.Token {
		writeError(w, http.StatusUnauthorized, "invalid token")
		return
	}
	if payload.OrderID == "" || payload.Status == "" || payload.ExternalID == 0 {
		writeError(w, http.StatusBadRequest, "orderId, status and externalId are required")
		return
	}

	if err := s.bot.NotifyOrderStatus(r.Context(), payload.ExternalID, payload.OrderID, payload.Status); err != nil {
		s.logger.Error("Failed to relay order status",
			zap.String("crm_order_id", payload.OrderID),
			zap.Error(err))
		writeError(w, http.StatusInternalServerError, "notify failure")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
