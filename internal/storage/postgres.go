package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"go.uber.org/zap"

	"vidoma-bot/internal/config"
)

type PostgresStorage struct {
	db     *sqlx.DB
	logger *zap.Logger
}

type Category struct {
	ID          int64          `db:"id"`
	Name        string         `db:"name"`
	Description sql.NullString `db:"description"`
	SortOrder   int            `db:"sort_order"`
	Active      bool           `db:"active"`
	CreatedAt   time.Time      `db:"created_at"`
}

type Product struct {
	ID            int64           `db:"id"`
	CategoryID    sql.NullInt64   `db:"category_id"`
	Name          string          `db:"name"`
	Description   sql.NullString  `db:"description"`
	Price         float64         `db:"price"`
	SalePrice     sql.NullFloat64 `db:"sale_price"`
	StockQuantity int             `db:"stock_quantity"`
	Images        sql.NullString  `db:"images"`
	Active        bool            `db:"active"`
	CreatedAt     time.Time       `db:"created_at"`
	CategoryName  sql.NullString  `db:"category_name"`
}

// Variants are color/size options encoded as JSON in the product description.
type Variants struct {
	Colors []string `json:"colors"`
	Sizes  []string `json:"sizes"`
}

// EffectivePrice returns the sale price when one is set.
func (p *Product) EffectivePrice() float64 {
	if p.SalePrice.Valid {
		return p.SalePrice.Float64
	}
	return p.Price
}

// Variants decodes the variant sets from the description column. A
// description that is not valid JSON yields empty variant sets.
func (p *Product) Variants() Variants {
	var v Variants
	if !p.Description.Valid {
		return v
	}
	if err := json.Unmarshal([]byte(p.Description.String), &v); err != nil {
		return Variants{}
	}
	return v
}

type User struct {
	ID         int64          `db:"id"`
	TelegramID int64          `db:"telegram_id"`
	Username   sql.NullString `db:"username"`
	FirstName  sql.NullString `db:"first_name"`
	LastName   sql.NullString `db:"last_name"`
	CreatedAt  time.Time      `db:"created_at"`
}

type Order struct {
	ID            int64          `db:"id"`
	UserID        int64          `db:"user_id"`
	CRMOrderID    sql.NullString `db:"crm_order_id"`
	ProductID     int64          `db:"product_id"`
	ProductName   string         `db:"product_name"`
	Color         sql.NullString `db:"color"`
	Size          sql.NullString `db:"size"`
	Price         float64        `db:"price"`
	CustomerName  string         `db:"customer_name"`
	CustomerPhone string         `db:"customer_phone"`
	DeliveryCity  string         `db:"delivery_city"`
	WarehouseNo   string         `db:"warehouse_no"`
	PaymentMethod string         `db:"payment_method"`
	Status        string         `db:"status"`
	CreatedAt     time.Time      `db:"created_at"`
}

func NewPostgresStorage(ctx context.Context, cfg config.DatabaseConfig, logger *zap.Logger) (*PostgresStorage, error) {
	const operation = "storage.NewPostgresStorage"

	connStr := fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=disable",
		cfg.Host,
		cfg.Port,
		cfg.User,
		cfg.Password,
		cfg.Name,
	)

	var db *sqlx.DB
	var err error

	retryPolicy := backoff.NewExponentialBackOff()
	retryPolicy.MaxElapsedTime = 2 * time.Minute
	retryPolicy.MaxInterval = 15 * time.Second

	logger.Info("Connecting to PostgreSQL...")

	err = backoff.RetryNotify(
		func() error {
			db, err = sqlx.ConnectContext(ctx, "postgres", connStr)
			if err != nil {
				return fmt.Errorf("connect: %w", err)
			}

			if err = db.PingContext(ctx); err != nil {
				return fmt.Errorf("ping: %w", err)
			}
			return nil
		},
		retryPolicy,
		func(err error, duration time.Duration) {
			logger.Warn("PostgreSQL connection failed, retrying...",
				zap.Error(err),
				zap.Duration("next_attempt_in", duration))
		},
	)

	if err != nil {
		return nil, fmt.Errorf("%s: failed to connect after retries: %w", operation, err)
	}

	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	db.SetConnMaxIdleTime(cfg.ConnMaxIdleTime)

	logger.Info("Successfully connected to PostgreSQL")
	return &PostgresStorage{
		db:     db,
		logger: logger,
	}, nil
}

func (s *PostgresStorage) Close() error {
	return s.db.Close()
}

// DB exposes the underlying handle for migrations and the backup service.
func (s *PostgresStorage) DB() *sqlx.DB {
	return s.db
}

// CATEGORIES

func (s *PostgresStorage) GetActiveCategories(ctx context.Context) ([]Category, error) {
	const operation = "storage.GetActiveCategories"

	var categories []Category
	err := s.db.SelectContext(ctx, &categories, `
		SELECT id, name, description, sort_order, active, created_at
		FROM categories
		WHERE active = TRUE
		ORDER BY sort_order ASC, name ASC`)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", operation, err)
	}
	return categories, nil
}

func (s *PostgresStorage) GetCategoryByID(ctx context.Context, id int64) (*Category, error) {
	const operation = "storage.GetCategoryByID"

	var category Category
	err := s.db.GetContext(ctx, &category, `
		SELECT id, name, description, sort_order, active, created_at
		FROM categories
		WHERE id = $1`, id)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w", operation, err)
	}
	return &category, nil
}

func (s *PostgresStorage) CreateCategory(ctx context.Context, c Category) (int64, error) {
	const operation = "storage.CreateCategory"

	var id int64
	err := s.db.QueryRowContext(ctx, `
		INSERT INTO categories (name, description, sort_order, active)
		VALUES ($1, $2, $3, $4)
		RETURNING id`,
		c.Name, c.Description, c.SortOrder, c.Active).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", operation, err)
	}
	return id, nil
}

func (s *PostgresStorage) UpdateCategory(ctx context.Context, c Category) error {
	const operation = "storage.UpdateCategory"

	_, err := s.db.ExecContext(ctx, `
		UPDATE categories
		SET name = $1, description = $2, sort_order = $3, active = $4
		WHERE id = $5`,
		c.Name, c.Description, c.SortOrder, c.Active, c.ID)
	if err != nil {
		return fmt.Errorf("%s: %w", operation, err)
	}
	return nil
}

func (s *PostgresStorage) DeleteCategory(ctx context.Context, id int64) error {
	const operation = "storage.DeleteCategory"

	if _, err := s.db.ExecContext(ctx, `DELETE FROM categories WHERE id = $1`, id); err != nil {
		return fmt.Errorf("%s: %w", operation, err)
	}
	return nil
}

// PRODUCTS

func (s *PostgresStorage) GetProductByID(ctx context.Context, id int64) (*Product, error) {
	const operation = "storage.GetProductByID"

	var product Product
	err := s.db.GetContext(ctx, &product, `
		SELECT p.id, p.category_id, p.name, p.description, p.price, p.sale_price,
		       p.stock_quantity, p.images, p.active, p.created_at,
		       c.name AS category_name
		FROM products p
		LEFT JOIN categories c ON p.category_id = c.id
		WHERE p.id = $1`, id)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w", operation, err)
	}
	return &product, nil
}

func (s *PostgresStorage) GetProductsByCategory(ctx context.Context, categoryID int64) ([]Product, error) {
	const operation = "storage.GetProductsByCategory"

	var products []Product
	err := s.db.SelectContext(ctx, &products, `
		SELECT p.id, p.category_id, p.name, p.description, p.price, p.sale_price,
		       p.stock_quantity, p.images, p.active, p.created_at,
		       NULL AS category_name
		FROM products p
		WHERE p.category_id = $1 AND p.active = TRUE
		ORDER BY p.name ASC`, categoryID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", operation, err)
	}
	return products, nil
}

// GetActiveProducts returns every in-stock active product joined with its
// category, for the AI consultant's catalog prompt.
func (s *PostgresStorage) GetActiveProducts(ctx context.Context) ([]Product, error) {
	const operation = "storage.GetActiveProducts"

	var products []Product
	err := s.db.SelectContext(ctx, &products, `
		SELECT p.id, p.category_id, p.name, p.description, p.price, p.sale_price,
		       p.stock_quantity, p.images, p.active, p.created_at,
		       c.name AS category_name
		FROM products p
		LEFT JOIN categories c ON p.category_id = c.id
		WHERE p.active = TRUE AND p.stock_quantity > 0
		ORDER BY c.name, p.name`)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", operation, err)
	}
	return products, nil
}

func (s *PostgresStorage) CreateProduct(ctx context.Context, p Product) (int64, error) {
	const operation = "storage.CreateProduct"

	var id int64
	err := s.db.QueryRowContext(ctx, `
		INSERT INTO products (category_id, name, description, price, sale_price,
		                      stock_quantity, images, active)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id`,
		p.CategoryID, p.Name, p.Description, p.Price, p.SalePrice,
		p.StockQuantity, p.Images, p.Active).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", operation, err)
	}
	return id, nil
}

func (s *PostgresStorage) UpdateProduct(ctx context.Context, p Product) error {
	const operation = "storage.UpdateProduct"

	_, err := s.db.ExecContext(ctx, `
		UPDATE products
		SET category_id = $1, name = $2, description = $3, price = $4,
		    sale_price = $5, stock_quantity = $6, images = $7, active = $8
		WHERE id = $9`,
		p.CategoryID, p.Name, p.Description, p.Price, p.SalePrice,
		p.StockQuantity, p.Images, p.Active, p.ID)
	if err != nil {
		return fmt.Errorf("%s: %w", operation, err)
	}
	return nil
}

func (s *PostgresStorage) DeleteProduct(ctx context.Context, id int64) error {
	const operation = "storage.DeleteProduct"

	if _, err := s.db.ExecContext(ctx, `DELETE FROM products WHERE id = $1`, id); err != nil {
		return fmt.Errorf("%s: %w", operation, err)
	}
	return nil
}

// USERS

// UpsertUser records a customer on first contact and refreshes profile
// fields on every /start.
func (s *PostgresStorage) UpsertUser(ctx context.Context, telegramID int64, username, firstName, lastName string) error {
	const operation = "storage.UpsertUser"

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO users (telegram_id, username, first_name, last_name)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (telegram_id) DO UPDATE
		SET username = EXCLUDED.username,
		    first_name = EXCLUDED.first_name,
		    last_name = EXCLUDED.last_name`,
		telegramID, username, firstName, lastName)
	if err != nil {
		return fmt.Errorf("%s: %w", operation, err)
	}
	return nil
}

func (s *PostgresStorage) GetUserByTelegramID(ctx context.Context, telegramID int64) (*User, error) {
	const operation = "storage.GetUserByTelegramID"

	var user User
	err := s.db.GetContext(ctx, &user, `
		SELECT id, telegram_id, username, first_name, last_name, created_at
		FROM users
		WHERE telegram_id = $1`, telegramID)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w", operation, err)
	}
	return &user, nil
}

// ORDERS

func (s *PostgresStorage) SaveOrder(ctx context.Context, o Order) (int64, error) {
	const operation = "storage.SaveOrder"

	var id int64
	err := s.db.QueryRowContext(ctx, `
		INSERT INTO orders (user_id, crm_order_id, product_id, product_name,
		                    color, size, price, customer_name, customer_phone,
		                    delivery_city, warehouse_no, payment_method, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		RETURNING id`,
		o.UserID, o.CRMOrderID, o.ProductID, o.ProductName,
		o.Color, o.Size, o.Price, o.CustomerName, o.CustomerPhone,
		o.DeliveryCity, o.WarehouseNo, o.PaymentMethod, o.Status).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", operation, err)
	}
	return id, nil
}

func (s *PostgresStorage) GetOrders(ctx context.Context) ([]Order, error) {
	const operation = "storage.GetOrders"

	var orders []Order
	err := s.db.SelectContext(ctx, &orders, `
		SELECT id, user_id, crm_order_id, product_id, product_name, color, size,
		       price, customer_name, customer_phone, delivery_city, warehouse_no,
		       payment_method, status, created_at
		FROM orders
		ORDER BY created_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", operation, err)
	}
	return orders, nil
}

func (s *PostgresStorage) UpdateOrderStatus(ctx context.Context, crmOrderID, status string) error {
	const operation = "storage.UpdateOrderStatus"

	_, err := s.db.ExecContext(ctx, `
		UPDATE orders SET status = $1 WHERE crm_order_id = $2`,
		status, crmOrderID)
	if err != nil {
		return fmt.Errorf("%s: %w", operation, err)
	}
	return nil
}

func (s *PostgresStorage) GetOrderByCRMID(ctx context.Context, crmOrderID string) (*Order, error) {
	const operation = "storage.GetOrderByCRMID"

	var order Order
	err := s.db.GetContext(ctx, &order, `
		SELECT id, user_id, crm_order_id, product_id, product_name, color, size,
		       price, customer_name, customer_phone, delivery_city, warehouse_no,
		       payment_method, status, created_at
		FROM orders
		WHERE crm_order_id = $1`, crmOrderID)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w", operation, err)
	}
	return &order, nil
}

// SETTINGS

func (s *PostgresStorage) GetSettings(ctx context.Context) (map[string]string, error) {
	const operation = "storage.GetSettings"

	rows, err := s.db.QueryContext(ctx, `SELECT key, value FROM system_settings`)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", operation, err)
	}
	defer rows.Close()

	settings := make(map[string]string)
	for rows.Next() {
		var key, value string
		if err := rows.Scan(&key, &value); err != nil {
			return nil, fmt.Errorf("%s: %w", operation, err)
		}
		settings[key] = value
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", operation, err)
	}
	return settings, nil
}

func (s *PostgresStorage) SetSetting(ctx context.Context, key, value string) error {
	const operation = "storage.SetSetting"

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO system_settings (key, value)
		VALUES ($1, $2)
		ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value`,
		key, value)
	if err != nil {
		return fmt.Errorf("%s: %w", operation, err)
	}
	return nil
}
