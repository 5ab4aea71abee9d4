package service

import (
	"time"

	"predictarb/internal/models"
	"predictarb/internal/repository"
)

// OrderService предоставляет доступ к истории исполненных ног сделок.
//
// Ордера записывает конвейер (pipeline) по итогам исполнения, сервис здесь — read-only
// обертка над таблицей orders для operator API.
type OrderService struct {
	orderRepo *repository.OrderRepository
}

// NewOrderService создает новый экземпляр OrderService.
func NewOrderService(orderRepo *repository.OrderRepository) *OrderService {
	return &OrderService{orderRepo: orderRepo}
}

// GetRecent возвращает последние N ордеров.
func (s *OrderService) GetRecent(limit int) ([]*models.OrderRecord, error) {
	if limit <= 0 {
		limit = 100
	}
	return s.orderRepo.GetRecent(limit)
}

// GetByMarket возвращает все ноги сделок для конкретного рынка.
func (s *OrderService) GetByMarket(marketID string) ([]*models.OrderRecord, error) {
	return s.orderRepo.GetByMarketID(marketID)
}

// GetByStatus возвращает ордера с определенным статусом.
func (s *OrderService) GetByStatus(status string) ([]*models.OrderRecord, error) {
	return s.orderRepo.GetByStatus(status)
}

// GetByVenue возвращает ордера для конкретного venue.
func (s *OrderService) GetByVenue(venue string, limit int) ([]*models.OrderRecord, error) {
	if limit <= 0 {
		limit = 100
	}
	return s.orderRepo.GetByVenue(venue, limit)
}

// GetByID возвращает ордер по ID.
func (s *OrderService) GetByID(id int) (*models.OrderRecord, error) {
	return s.orderRepo.GetByID(id)
}

// CountByStatus возвращает количество ордеров с определенным статусом.
func (s *OrderService) CountByStatus(status string) (int, error) {
	return s.orderRepo.CountByStatus(status)
}

// CleanupOldOrders удаляет записи старше указанной даты.
func (s *OrderService) CleanupOldOrders(olderThan time.Time) (int64, error) {
	return s.orderRepo.DeleteOlderThan(olderThan)
}
