package repository

import (
	"context"
	"fmt"

	"github.com/magabrotheeeer/tradebot-portal/internal/models"
)

// ListAlerts возвращает историю торговых сигналов с пагинацией,
// свежие записи первыми. Таблицу заполняет торговый сервис.
func (s *Storage) ListAlerts(ctx context.Context, limit, offset int) ([]*models.AlertRecord, error) {
	const op = "storage.ListAlerts"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `SELECT id, symbol, action, quantity, price, created_at
			  FROM alerthist
			  ORDER BY created_at DESC
			  LIMIT $1 OFFSET $2`
	rows, err := s.DB.QueryContext(ctx, query, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer func() { _ = rows.Close() }()

	var result []*models.AlertRecord
	for rows.Next() {
		var item models.AlertRecord
		if err := rows.Scan(&item.ID, &item.Symbol, &item.Action,
			&item.Quantity, &item.Price, &item.CreatedAt); err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		result = append(result, &item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return result, nil
}

// ListPerformance возвращает годовые результаты стратегии, свежие годы первыми.
func (s *Storage) ListPerformance(ctx context.Context) ([]*models.PerformanceRecord, error) {
	const op = "storage.ListPerformance"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `SELECT id, year, profit_loss, return_pct
			  FROM performance
			  ORDER BY year DESC`
	rows, err := s.DB.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer func() { _ = rows.Close() }()

	var result []*models.PerformanceRecord
	for rows.Next() {
		var item models.PerformanceRecord
		if err := rows.Scan(&item.ID, &item.Year, &item.ProfitLoss, &item.ReturnPct); err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		result = append(result, &item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return result, nil
}
