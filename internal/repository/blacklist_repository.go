package repository

import (
	"database/sql"
	"errors"
	"strings"
	"time"

	"predictarb/internal/models"
)

// Ошибки репозитория черного списка
var (
	ErrBlacklistEntryNotFound = errors.New("blacklist entry not found")
	ErrBlacklistEntryExists   = errors.New("market already in blacklist")
)

// BlacklistRepository - работа с таблицей blacklist
type BlacklistRepository struct {
	db *sql.DB
}

// NewBlacklistRepository создает новый экземпляр репозитория
func NewBlacklistRepository(db *sql.DB) *BlacklistRepository {
	return &BlacklistRepository{db: db}
}

// Create добавляет рынок в черный список
func (r *BlacklistRepository) Create(entry *models.BlacklistEntry) error {
	query := `
		INSERT INTO blacklist (venue, condition_id, asset, reason, created_at)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id`

	entry.CreatedAt = time.Now()

	err := r.db.QueryRow(
		query,
		entry.Venue,
		entry.ConditionID,
		entry.Asset,
		entry.Reason,
		entry.CreatedAt,
	).Scan(&entry.ID)

	if err != nil {
		if isBlacklistUniqueViolation(err) {
			return ErrBlacklistEntryExists
		}
		return err
	}

	return nil
}

// GetAll возвращает весь черный список
func (r *BlacklistRepository) GetAll() ([]*models.BlacklistEntry, error) {
	query := `
		SELECT id, venue, condition_id, asset, reason, created_at
		FROM blacklist
		ORDER BY created_at DESC`

	rows, err := r.db.Query(query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []*models.BlacklistEntry
	for rows.Next() {
		entry := &models.BlacklistEntry{}
		err := rows.Scan(
			&entry.ID,
			&entry.Venue,
			&entry.ConditionID,
			&entry.Asset,
			&entry.Reason,
			&entry.CreatedAt,
		)
		if err != nil {
			return nil, err
		}
		entries = append(entries, entry)
	}

	if err = rows.Err(); err != nil {
		return nil, err
	}

	return entries, nil
}

// GetByID возвращает запись по ID
func (r *BlacklistRepository) GetByID(id int) (*models.BlacklistEntry, error) {
	query := `
		SELECT id, venue, condition_id, asset, reason, created_at
		FROM blacklist
		WHERE id = $1`

	entry := &models.BlacklistEntry{}
	err := r.db.QueryRow(query, id).Scan(
		&entry.ID,
		&entry.Venue,
		&entry.ConditionID,
		&entry.Asset,
		&entry.Reason,
		&entry.CreatedAt,
	)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrBlacklistEntryNotFound
		}
		return nil, err
	}

	return entry, nil
}

// GetByConditionID возвращает запись по venue и condition_id рынка
func (r *BlacklistRepository) GetByConditionID(venue, conditionID string) (*models.BlacklistEntry, error) {
	query := `
		SELECT id, venue, condition_id, asset, reason, created_at
		FROM blacklist
		WHERE venue = $1 AND condition_id = $2`

	entry := &models.BlacklistEntry{}
	err := r.db.QueryRow(query, venue, conditionID).Scan(
		&entry.ID,
		&entry.Venue,
		&entry.ConditionID,
		&entry.Asset,
		&entry.Reason,
		&entry.CreatedAt,
	)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrBlacklistEntryNotFound
		}
		return nil, err
	}

	return entry, nil
}

// Delete удаляет рынок из черного списка
func (r *BlacklistRepository) Delete(venue, conditionID string) error {
	query := `DELETE FROM blacklist WHERE venue = $1 AND condition_id = $2`

	result, err := r.db.Exec(query, venue, conditionID)
	if err != nil {
		return err
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return err
	}

	if rowsAffected == 0 {
		return ErrBlacklistEntryNotFound
	}

	return nil
}

// DeleteByID удаляет запись по ID
func (r *BlacklistRepository) DeleteByID(id int) error {
	query := `DELETE FROM blacklist WHERE id = $1`

	result, err := r.db.Exec(query, id)
	if err != nil {
		return err
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return err
	}

	if rowsAffected == 0 {
		return ErrBlacklistEntryNotFound
	}

	return nil
}

// Exists проверяет наличие рынка в черном списке
func (r *BlacklistRepository) Exists(venue, conditionID string) (bool, error) {
	query := `SELECT EXISTS(SELECT 1 FROM blacklist WHERE venue = $1 AND condition_id = $2)`

	var exists bool
	err := r.db.QueryRow(query, venue, conditionID).Scan(&exists)
	if err != nil {
		return false, err
	}

	return exists, nil
}

// UpdateReason обновляет причину добавления в черный список
func (r *BlacklistRepository) UpdateReason(venue, conditionID, reason string) error {
	query := `
		UPDATE blacklist
		SET reason = $1
		WHERE venue = $2 AND condition_id = $3`

	result, err := r.db.Exec(query, reason, venue, conditionID)
	if err != nil {
		return err
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return err
	}

	if rowsAffected == 0 {
		return ErrBlacklistEntryNotFound
	}

	return nil
}

// Count возвращает количество записей в черном списке
func (r *BlacklistRepository) Count() (int, error) {
	query := `SELECT COUNT(*) FROM blacklist`

	var count int
	err := r.db.QueryRow(query).Scan(&count)
	if err != nil {
		return 0, err
	}

	return count, nil
}

// DeleteAll очищает весь черный список
func (r *BlacklistRepository) DeleteAll() error {
	query := `DELETE FROM blacklist`
	_, err := r.db.Exec(query)
	return err
}

// SearchByAsset ищет записи по активу (BTC, ETH, ...)
func (r *BlacklistRepository) SearchByAsset(asset string) ([]*models.BlacklistEntry, error) {
	sqlQuery := `
		SELECT id, venue, condition_id, asset, reason, created_at
		FROM blacklist
		WHERE UPPER(asset) LIKE UPPER($1)
		ORDER BY created_at DESC`

	searchPattern := "%" + asset + "%"
	rows, err := r.db.Query(sqlQuery, searchPattern)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []*models.BlacklistEntry
	for rows.Next() {
		entry := &models.BlacklistEntry{}
		err := rows.Scan(
			&entry.ID,
			&entry.Venue,
			&entry.ConditionID,
			&entry.Asset,
			&entry.Reason,
			&entry.CreatedAt,
		)
		if err != nil {
			return nil, err
		}
		entries = append(entries, entry)
	}

	if err = rows.Err(); err != nil {
		return nil, err
	}

	return entries, nil
}

// isBlacklistUniqueViolation проверяет, является ли ошибка нарушением UNIQUE constraint
func isBlacklistUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	errStr := err.Error()
	return strings.Contains(errStr, "duplicate key") || strings.Contains(errStr, "23505")
}
