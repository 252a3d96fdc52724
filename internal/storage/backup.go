package storage

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Backup is a plain-SQL dump of the application tables.
type Backup struct {
	Filename string
	Content  string
	Size     int
}

// backupTables are dumped in dependency order so a restore can replay the
// statements top to bottom.
var backupTables = []string{"categories", "products", "users", "orders", "system_settings"}

// GenerateBackup dumps all application tables as INSERT statements. dateFrom
// and dateTo (YYYY-MM-DD, either may be empty) bound rows of tables that
// carry a created_at column.
func (s *PostgresStorage) GenerateBackup(ctx context.Context, dateFrom, dateTo string) (*Backup, error) {
	const operation = "storage.GenerateBackup"

	var b strings.Builder
	b.WriteString("-- SQL dump for Vidoma Bot database\n")
	b.WriteString(fmt.Sprintf("-- Generated on: %s\n", time.Now().Format(time.RFC3339)))
	if dateFrom != "" || dateTo != "" {
		from := dateFrom
		if from == "" {
			from = "beginning"
		}
		to := dateTo
		if to == "" {
			to = "end"
		}
		b.WriteString(fmt.Sprintf("-- Date range: %s to %s\n", from, to))
	}
	b.WriteString("\n")

	for _, table := range backupTables {
		query := fmt.Sprintf("SELECT * FROM %s", table)
		var args []any

		if table != "system_settings" && (dateFrom != "" || dateTo != "") {
			var conditions []string
			if dateFrom != "" {
				args = append(args, dateFrom)
				conditions = append(conditions, fmt.Sprintf("created_at >= $%d", len(args)))
			}
			if dateTo != "" {
				args = append(args, dateTo+" 23:59:59")
				conditions = append(conditions, fmt.Sprintf("created_at <= $%d", len(args)))
			}
			query += " WHERE " + strings.Join(conditions, " AND ")
		}

		rows, err := s.db.QueryxContext(ctx, query, args...)
		if err != nil {
			return nil, fmt.Errorf("%s: dump %s: %w", operation, table, err)
		}

		columns, err := rows.Columns()
		if err != nil {
			rows.Close()
			return nil, fmt.Errorf("%s: columns of %s: %w", operation, table, err)
		}

		var inserts []string
		for rows.Next() {
			values, err := rows.SliceScan()
			if err != nil {
				rows.Close()
				return nil, fmt.Errorf("%s: scan %s: %w", operation, table, err)
			}
			inserts = append(inserts, fmt.Sprintf("(%s)", joinSQLValues(values)))
		}
		if err := rows.Err(); err != nil {
			rows.Close()
			return nil, fmt.Errorf("%s: iterate %s: %w", operation, table, err)
		}
		rows.Close()

		if len(inserts) == 0 {
			continue
		}

		b.WriteString(fmt.Sprintf("-- Data for table %s\n", table))
		b.WriteString(fmt.Sprintf("INSERT INTO %s (%s) VALUES\n", table, strings.Join(columns, ", ")))
		b.WriteString(strings.Join(inserts, ",\n"))
		b.WriteString(";\n\n")
	}

	content := b.String()
	return &Backup{
		Filename: fmt.Sprintf("vidoma_bot_backup_%s_%s.sql",
			time.Now().Format("2006-01-02T15-04-05"),
			uuid.NewString()[:8]),
		Content: content,
		Size:    len(content),
	}, nil
}

// RestoreBackup replays a dump statement by statement. Individual statement
// failures are counted but do not abort the restore.
func (s *PostgresStorage) RestoreBackup(ctx context.Context, sqlContent string) (executed, total int, err error) {
	const operation = "storage.RestoreBackup"

	statements := splitStatements(sqlContent)
	for _, stmt := range statements {
		if _, execErr := s.db.ExecContext(ctx, stmt); execErr != nil {
			s.logger.Warn("Restore statement failed, continuing",
				zap.Error(execErr))
			continue
		}
		executed++
	}

	return executed, len(statements), nil
}

func splitStatements(content string) []string {
	parts := strings.Split(content, ";")
	statements := make([]string, 0, len(parts))
	for _, part := range parts {
		stmt := strings.TrimSpace(part)
		if stmt == "" || strings.HasPrefix(stmt, "--") {
			continue
		}
		statements = append(statements, stmt)
	}
	return statements
}

func joinSQLValues(values []any) string {
	rendered := make([]string, 0, len(values))
	for _, v := range values {
		switch value := v.(type) {
		case nil:
			rendered = append(rendered, "NULL")
		case []byte:
			rendered = append(rendered, quoteSQL(string(value)))
		case string:
			rendered = append(rendered, quoteSQL(value))
		case time.Time:
			rendered = append(rendered, quoteSQL(value.Format("2006-01-02 15:04:05")))
		case bool:
			if value {
				rendered = append(rendered, "TRUE")
			} else {
				rendered = append(rendered, "FALSE")
			}
		default:
			rendered = append(rendered, fmt.Sprintf("%v", value))
		}
	}
	return strings.Join(rendered, ", ")
}

func quoteSQL(s string) string {
	return "'" + strings.ReplaceAll(s, "'", "''") + "'"
}
