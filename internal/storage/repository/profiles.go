package repository

import (
	"context"
	"fmt"

	"github.com/magabrotheeeer/tradebot-portal/internal/models"
)

// GetProfile возвращает профиль торгового сервиса пользователя.
func (s *Storage) GetProfile(ctx context.Context, userUID string) (*models.Profile, error) {
	const op = "storage.GetProfile"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `SELECT user_uid, display_name, trader_service_name, trader_secret, server_url
			  FROM profiles WHERE user_uid = $1`
	row := s.DB.QueryRowContext(ctx, query, userUID)

	var profile models.Profile
	if err := row.Scan(&profile.UserUID, &profile.DisplayName, &profile.TraderServiceName,
		&profile.TraderSecret, &profile.ServerURL); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return &profile, nil
}

// UpdateProfile обновляет настройки подключения к торговому сервису.
// Поля, переданные как nil, сохраняют прежние значения: секрет никогда не
// возвращается клиенту, поэтому запрос без него не должен его стирать.
// Возвращает число обновлённых строк.
func (s *Storage) UpdateProfile(ctx context.Context, profile models.Profile) (int, error) {
	const op = "storage.UpdateProfile"
	select {
	case <-ctx.Done():
		return 0, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `UPDATE profiles
			  SET display_name = COALESCE($2, display_name),
				  trader_service_name = COALESCE($3, trader_service_name),
				  trader_secret = COALESCE($4, trader_secret),
				  server_url = COALESCE($5, server_url)
			  WHERE user_uid = $1`
	result, err := s.DB.ExecContext(ctx, query, profile.UserUID, profile.DisplayName,
		profile.TraderServiceName, profile.TraderSecret, profile.ServerURL)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	return int(rows), nil
}
