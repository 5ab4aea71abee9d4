package repository

import (
	"database/sql"
	"errors"
	"time"

	"predictarb/internal/models"
)

// Ошибки репозитория ордеров
var (
	ErrOrderNotFound = errors.New("order not found")
)

const orderColumns = `id, market_id, venue, token, side, order_type, quantity, price_avg, fee, status, error_message, venue_order_id, created_at, filled_at`

// OrderRepository - работа с таблицей orders
type OrderRepository struct {
	db *sql.DB
}

// NewOrderRepository создает новый экземпляр репозитория
func NewOrderRepository(db *sql.DB) *OrderRepository {
	return &OrderRepository{db: db}
}

// Create создает запись об исполнении одной ноги сделки
func (r *OrderRepository) Create(order *models.OrderRecord) error {
	query := `
		INSERT INTO orders (market_id, venue, token, side, order_type, quantity, price_avg, fee, status, error_message, venue_order_id, created_at, filled_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		RETURNING id`

	order.CreatedAt = time.Now()

	return r.db.QueryRow(
		query,
		order.MarketID,
		order.Venue,
		order.Token,
		order.Side,
		order.OrderType,
		order.Quantity,
		order.PriceAvg,
		order.Fee,
		order.Status,
		order.ErrorMessage,
		order.VenueOrderID,
		order.CreatedAt,
		order.FilledAt,
	).Scan(&order.ID)
}

func (r *OrderRepository) scanOrder(row interface{ Scan(...interface{}) error }) (*models.OrderRecord, error) {
	order := &models.OrderRecord{}
	err := row.Scan(
		&order.ID,
		&order.MarketID,
		&order.Venue,
		&order.Token,
		&order.Side,
		&order.OrderType,
		&order.Quantity,
		&order.PriceAvg,
		&order.Fee,
		&order.Status,
		&order.ErrorMessage,
		&order.VenueOrderID,
		&order.CreatedAt,
		&order.FilledAt,
	)
	return order, err
}

// GetByID возвращает ордер по ID
func (r *OrderRepository) GetByID(id int) (*models.OrderRecord, error) {
	query := `SELECT ` + orderColumns + ` FROM orders WHERE id = $1`

	order, err := r.scanOrder(r.db.QueryRow(query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrOrderNotFound
		}
		return nil, err
	}

	return order, nil
}

func (r *OrderRepository) queryOrders(query string, args ...interface{}) ([]*models.OrderRecord, error) {
	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var orders []*models.OrderRecord
	for rows.Next() {
		order, err := r.scanOrder(rows)
		if err != nil {
			return nil, err
		}
		orders = append(orders, order)
	}

	if err = rows.Err(); err != nil {
		return nil, err
	}

	return orders, nil
}

// GetByMarketID возвращает все ноги сделок для конкретного рынка
func (r *OrderRepository) GetByMarketID(marketID string) ([]*models.OrderRecord, error) {
	query := `SELECT ` + orderColumns + ` FROM orders WHERE market_id = $1 ORDER BY created_at DESC`
	return r.queryOrders(query, marketID)
}

// GetRecent возвращает последние N ордеров
func (r *OrderRepository) GetRecent(limit int) ([]*models.OrderRecord, error) {
	query := `SELECT ` + orderColumns + ` FROM orders ORDER BY created_at DESC LIMIT $1`
	return r.queryOrders(query, limit)
}

// GetByStatus возвращает ордера с определенным статусом
func (r *OrderRepository) GetByStatus(status string) ([]*models.OrderRecord, error) {
	query := `SELECT ` + orderColumns + ` FROM orders WHERE status = $1 ORDER BY created_at DESC`
	return r.queryOrders(query, status)
}

// GetByVenue возвращает ордера для конкретного venue
func (r *OrderRepository) GetByVenue(venue string, limit int) ([]*models.OrderRecord, error) {
	query := `SELECT ` + orderColumns + ` FROM orders WHERE venue = $1 ORDER BY created_at DESC LIMIT $2`
	return r.queryOrders(query, venue, limit)
}

// UpdateStatus обновляет статус ордера
func (r *OrderRepository) UpdateStatus(id int, status string, priceAvg float64, filledAt *time.Time) error {
	query := `
		UPDATE orders
		SET status = $1, price_avg = $2, filled_at = $3
		WHERE id = $4`

	result, err := r.db.Exec(query, status, priceAvg, filledAt, id)
	if err != nil {
		return err
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return err
	}

	if rowsAffected == 0 {
		return ErrOrderNotFound
	}

	return nil
}

// SetError устанавливает сообщение об ошибке для ордера
func (r *OrderRepository) SetError(id int, errorMessage string) error {
	query := `
		UPDATE orders
		SET error_message = $1, status = $2
		WHERE id = $3`

	result, err := r.db.Exec(query, errorMessage, models.OrderStatusRejected, id)
	if err != nil {
		return err
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return err
	}

	if rowsAffected == 0 {
		return ErrOrderNotFound
	}

	return nil
}

// Delete удаляет ордер
func (r *OrderRepository) Delete(id int) error {
	query := `DELETE FROM orders WHERE id = $1`

	result, err := r.db.Exec(query, id)
	if err != nil {
		return err
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return err
	}

	if rowsAffected == 0 {
		return ErrOrderNotFound
	}

	return nil
}

// DeleteByMarketID удаляет все ноги сделок для рынка
func (r *OrderRepository) DeleteByMarketID(marketID string) error {
	query := `DELETE FROM orders WHERE market_id = $1`

	_, err := r.db.Exec(query, marketID)
	return err
}

// DeleteOlderThan удаляет ордера старше указанной даты
func (r *OrderRepository) DeleteOlderThan(timestamp time.Time) (int64, error) {
	query := `DELETE FROM orders WHERE created_at < $1`

	result, err := r.db.Exec(query, timestamp)
	if err != nil {
		return 0, err
	}

	return result.RowsAffected()
}

// Count возвращает общее количество ордеров
func (r *OrderRepository) Count() (int, error) {
	query := `SELECT COUNT(*) FROM orders`

	var count int
	err := r.db.QueryRow(query).Scan(&count)
	if err != nil {
		return 0, err
	}

	return count, nil
}

// CountByStatus возвращает количество ордеров с определенным статусом
func (r *OrderRepository) CountByStatus(status string) (int, error) {
	query := `SELECT COUNT(*) FROM orders WHERE status = $1`

	var count int
	err := r.db.QueryRow(query, status).Scan(&count)
	if err != nil {
		return 0, err
	}

	return count, nil
}

// GetFilledByMarketIDInTimeRange возвращает исполненные ноги сделок рынка за период
func (r *OrderRepository) GetFilledByMarketIDInTimeRange(marketID string, from, to time.Time) ([]*models.OrderRecord, error) {
	query := `
		SELECT ` + orderColumns + `
		FROM orders
		WHERE market_id = $1 AND status = $2 AND filled_at >= $3 AND filled_at <= $4
		ORDER BY filled_at DESC`

	return r.queryOrders(query, marketID, models.OrderStatusFilled, from, to)
}
