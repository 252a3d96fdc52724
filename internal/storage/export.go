package storage

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/xuri/excelize/v2"
)

// ExportOrdersToExcel writes every stored order into an .xlsx file under dir
// and returns the file path.
func (s *PostgresStorage) ExportOrdersToExcel(ctx context.Context, dir string) (string, error) {
	const operation = "storage.ExportOrdersToExcel"

	orders, err := s.GetOrders(ctx)
	if err != nil {
		return "", fmt.Errorf("%s: %w", operation, err)
	}

	f := excelize.NewFile()
	defer f.Close()

	const sheet = "Orders"
	index, err := f.NewSheet(sheet)
	if err != nil {
		return "", fmt.Errorf("%s: create sheet: %w", operation, err)
	}
	f.SetActiveSheet(index)
	f.DeleteSheet("Sheet1")

	headers := []string{
		"ID", "CRM Order", "Product", "Color", "Size", "Price",
		"Customer", "Phone", "City", "Warehouse", "Payment", "Status", "Created",
	}
	for i, h := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		if err := f.SetCellValue(sheet, cell, h); err != nil {
			return "", fmt.Errorf("%s: set header: %w", operation, err)
		}
	}

	style, _ := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
	})
	_ = f.SetRowStyle(sheet, 1, 1, style)

	for row, o := range orders {
		values := []any{
			o.ID,
			o.CRMOrderID.String,
			o.ProductName,
			o.Color.String,
			o.Size.String,
			o.Price,
			o.CustomerName,
			o.CustomerPhone,
			o.DeliveryCity,
			o.WarehouseNo,
			o.PaymentMethod,
			o.Status,
			o.CreatedAt.Format("02.01.2006 15:04"),
		}
		for col, v := range values {
			cell, _ := excelize.CoordinatesToCellName(col+1, row+2)
			if err := f.SetCellValue(sheet, cell, v); err != nil {
				return "", fmt.Errorf("%s: set cell: %w", operation, err)
			}
		}
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("%s: create export dir: %w", operation, err)
	}

	path := filepath.Join(dir, fmt.Sprintf("orders_%s.xlsx", time.Now().Format("2006-01-02_15-04-05")))
	if err := f.SaveAs(path); err != nil {
		return "", fmt.Errorf("%s: save file: %w", operation, err)
	}

	return path, nil
}
