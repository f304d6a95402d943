package store

import (
	"context"
	"database/sql"
	"errors"

	sq "github.com/Masterminds/squirrel"
)

// Setting keys used by the application.
const (
	SettingDefaultCriteria = "default_criteria"
	SettingAgeMode         = "age_mode"
)

// SettingsStore holds small key/value preferences such as the standing
// filter criteria and the operator's age-counting mode.
type SettingsStore struct {
	db QueryInterceptor
}

func NewSettingsStore(db QueryInterceptor) *SettingsStore {
	return &SettingsStore{db: db}
}

// Get returns the stored value, or fallback when the key is absent.
func (s *SettingsStore) Get(ctx context.Context, key, fallback string) (string, error) {
	query, args, err := sq.Select("value").
		From("settings").
		Where(sq.Eq{"key": key}).
		ToSql()
	if err != nil {
		return "", err
	}

	row := s.db.QueryRowContext(ctx, query, args...)
	var value string
	err = row.Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return fallback, nil
	}
	if err != nil {
		return "", err
	}
	return value, nil
}

func (s *SettingsStore) Set(ctx context.Context, key, value string) error {
	query, args, err := sq.Insert("settings").
		Columns("key", "value").
		Values(key, value).
		Suffix("ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value").
		ToSql()
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, query, args...)
	return err
}
