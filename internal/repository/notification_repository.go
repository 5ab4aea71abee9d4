package repository

import (
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	"predictarb/internal/models"
)

// Ошибки репозитория уведомлений
var (
	ErrNotificationNotFound = errors.New("notification not found")
)

// NotificationRepository - работа с таблицей notifications
type NotificationRepository struct {
	db *sql.DB
}

// NewNotificationRepository создает новый экземпляр репозитория
func NewNotificationRepository(db *sql.DB) *NotificationRepository {
	return &NotificationRepository{db: db}
}

// Create создает новое уведомление
func (r *NotificationRepository) Create(notif *models.Notification) error {
	query := `
		INSERT INTO notifications (timestamp, type, severity, market_id, message, meta)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id`

	notif.Timestamp = time.Now()

	var metaJSON []byte
	if notif.Meta != nil {
		var err error
		metaJSON, err = json.Marshal(notif.Meta)
		if err != nil {
			return err
		}
	}

	return r.db.QueryRow(
		query,
		notif.Timestamp,
		notif.Type,
		notif.Severity,
		notif.MarketID,
		notif.Message,
		metaJSON,
	).Scan(&notif.ID)
}

func (r *NotificationRepository) scanNotification(row interface{ Scan(...interface{}) error }) (*models.Notification, error) {
	notif := &models.Notification{}
	var metaJSON []byte
	err := row.Scan(
		&notif.ID,
		&notif.Timestamp,
		&notif.Type,
		&notif.Severity,
		&notif.MarketID,
		&notif.Message,
		&metaJSON,
	)
	if err != nil {
		return nil, err
	}
	if len(metaJSON) > 0 {
		if err := json.Unmarshal(metaJSON, &notif.Meta); err != nil {
			return nil, err
		}
	}
	return notif, nil
}

// GetByID возвращает уведомление по ID
func (r *NotificationRepository) GetByID(id int) (*models.Notification, error) {
	query := `SELECT id, timestamp, type, severity, market_id, message, meta FROM notifications WHERE id = $1`

	notif, err := r.scanNotification(r.db.QueryRow(query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotificationNotFound
		}
		return nil, err
	}

	return notif, nil
}

func (r *NotificationRepository) queryNotifications(query string, args ...interface{}) ([]*models.Notification, error) {
	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var notifs []*models.Notification
	for rows.Next() {
		notif, err := r.scanNotification(rows)
		if err != nil {
			return nil, err
		}
		notifs = append(notifs, notif)
	}

	if err = rows.Err(); err != nil {
		return nil, err
	}

	return notifs, nil
}

// GetRecent возвращает последние N уведомлений
func (r *NotificationRepository) GetRecent(limit int) ([]*models.Notification, error) {
	query := `SELECT id, timestamp, type, severity, market_id, message, meta FROM notifications ORDER BY timestamp DESC LIMIT $1`
	return r.queryNotifications(query, limit)
}

// GetByMarketID возвращает уведомления для конкретного рынка
func (r *NotificationRepository) GetByMarketID(marketID string, limit int) ([]*models.Notification, error) {
	query := `SELECT id, timestamp, type, severity, market_id, message, meta FROM notifications WHERE market_id = $1 ORDER BY timestamp DESC LIMIT $2`
	return r.queryNotifications(query, marketID, limit)
}

// GetBySeverity возвращает уведомления заданной важности
func (r *NotificationRepository) GetBySeverity(severity string, limit int) ([]*models.Notification, error) {
	query := `SELECT id, timestamp, type, severity, market_id, message, meta FROM notifications WHERE severity = $1 ORDER BY timestamp DESC LIMIT $2`
	return r.queryNotifications(query, severity, limit)
}

// GetInTimeRange возвращает уведомления за период
func (r *NotificationRepository) GetInTimeRange(from, to time.Time, limit int) ([]*models.Notification, error) {
	query := `
		SELECT id, timestamp, type, severity, market_id, message, meta
		FROM notifications
		WHERE timestamp >= $1 AND timestamp <= $2
		ORDER BY timestamp DESC
		LIMIT $3`
	return r.queryNotifications(query, from, to, limit)
}

// DeleteAll очищает журнал уведомлений
func (r *NotificationRepository) DeleteAll() error {
	_, err := r.db.Exec(`DELETE FROM notifications`)
	return err
}

// DeleteOlderThan удаляет уведомления старше указанной даты
func (r *NotificationRepository) DeleteOlderThan(timestamp time.Time) (int64, error) {
	result, err := r.db.Exec(`DELETE FROM notifications WHERE timestamp < $1`, timestamp)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

// DeleteByMarketID удаляет уведомления, относящиеся к рынку
func (r *NotificationRepository) DeleteByMarketID(marketID string) error {
	_, err := r.db.Exec(`DELETE FROM notifications WHERE market_id = $1`, marketID)
	return err
}

// Count возвращает общее количество уведомлений
func (r *NotificationRepository) Count() (int, error) {
	var count int
	err := r.db.QueryRow(`SELECT COUNT(*) FROM notifications`).Scan(&count)
	return count, err
}

// CountByType возвращает количество уведомлений заданного типа
func (r *NotificationRepository) CountByType(notifType string) (int, error) {
	var count int
	err := r.db.QueryRow(`SELECT COUNT(*) FROM notifications WHERE type = $1`, notifType).Scan(&count)
	return count, err
}

// CountBySeverity возвращает количество уведомлений заданной важности
func (r *NotificationRepository) CountBySeverity(severity string) (int, error) {
	var count int
	err := r.db.QueryRow(`SELECT COUNT(*) FROM notifications WHERE severity = $1`, severity).Scan(&count)
	return count, err
}

// KeepRecent оставляет только N последних уведомлений, удаляя остальные
func (r *NotificationRepository) KeepRecent(n int) (int64, error) {
	query := `
		DELETE FROM notifications
		WHERE id NOT IN (
			SELECT id FROM notifications ORDER BY timestamp DESC LIMIT $1
		)`

	result, err := r.db.Exec(query, n)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}
