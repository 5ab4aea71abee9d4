package service

import (
	"errors"
	"strings"

	"predictarb/internal/models"
	"predictarb/internal/repository"
)

// Ошибки сервиса черного списка
var (
	ErrBlacklistVenueEmpty       = errors.New("venue cannot be empty")
	ErrBlacklistConditionIDEmpty = errors.New("condition_id cannot be empty")
	ErrBlacklistMarketExists     = errors.New("market already in blacklist")
	ErrBlacklistEntryNotFound    = errors.New("blacklist entry not found")
)

// BlacklistService предоставляет бизнес-логику для управления черным списком.
//
// Черный список - это заметки оператора о рынках, которые не следует
// торговать. Конвейер (pipeline) на каждом проходе пропускает рынки из
// этого списка, не передавая их детектору возможностей.
type BlacklistService struct {
	blacklistRepo *repository.BlacklistRepository
}

// NewBlacklistService создает новый экземпляр BlacklistService.
func NewBlacklistService(blacklistRepo *repository.BlacklistRepository) *BlacklistService {
	return &BlacklistService{
		blacklistRepo: blacklistRepo,
	}
}

// AddToBlacklist добавляет рынок в черный список.
//
// Параметры:
// - venue: биржа рынка (например, "polymarket")
// - conditionID: идентификатор рынка на этой бирже
// - asset: базовый актив (например, "BTC"), опционально
// - reason: причина добавления, опционально
func (s *BlacklistService) AddToBlacklist(venue, conditionID, asset, reason string) (*models.BlacklistEntry, error) {
	venue = strings.TrimSpace(venue)
	if venue == "" {
		return nil, ErrBlacklistVenueEmpty
	}

	conditionID = strings.TrimSpace(conditionID)
	if conditionID == "" {
		return nil, ErrBlacklistConditionIDEmpty
	}

	exists, err := s.blacklistRepo.Exists(venue, conditionID)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, ErrBlacklistMarketExists
	}

	entry := &models.BlacklistEntry{
		Venue:       venue,
		ConditionID: conditionID,
		Asset:       strings.TrimSpace(asset),
		Reason:      strings.TrimSpace(reason),
	}

	if err := s.blacklistRepo.Create(entry); err != nil {
		if errors.Is(err, repository.ErrBlacklistEntryExists) {
			return nil, ErrBlacklistMarketExists
		}
		return nil, err
	}

	return entry, nil
}

// GetBlacklist возвращает весь черный список, отсортированный по дате добавления.
func (s *BlacklistService) GetBlacklist() ([]*models.BlacklistEntry, error) {
	entries, err := s.blacklistRepo.GetAll()
	if err != nil {
		return nil, err
	}

	if entries == nil {
		entries = []*models.BlacklistEntry{}
	}

	return entries, nil
}

// RemoveFromBlacklist удаляет рынок из черного списка.
func (s *BlacklistService) RemoveFromBlacklist(venue, conditionID string) error {
	venue = strings.TrimSpace(venue)
	conditionID = strings.TrimSpace(conditionID)
	if venue == "" {
		return ErrBlacklistVenueEmpty
	}
	if conditionID == "" {
		return ErrBlacklistConditionIDEmpty
	}

	err := s.blacklistRepo.Delete(venue, conditionID)
	if err != nil {
		if errors.Is(err, repository.ErrBlacklistEntryNotFound) {
			return ErrBlacklistEntryNotFound
		}
		return err
	}

	return nil
}

// GetByConditionID возвращает запись черного списка по venue и condition_id.
func (s *BlacklistService) GetByConditionID(venue, conditionID string) (*models.BlacklistEntry, error) {
	venue = strings.TrimSpace(venue)
	conditionID = strings.TrimSpace(conditionID)
	if venue == "" {
		return nil, ErrBlacklistVenueEmpty
	}
	if conditionID == "" {
		return nil, ErrBlacklistConditionIDEmpty
	}

	entry, err := s.blacklistRepo.GetByConditionID(venue, conditionID)
	if err != nil {
		if errors.Is(err, repository.ErrBlacklistEntryNotFound) {
			return nil, ErrBlacklistEntryNotFound
		}
		return nil, err
	}

	return entry, nil
}

// IsBlacklisted проверяет, находится ли рынок в черном списке.
//
// Используется конвейером (pipeline) для отсева запрещенных рынков
// перед сравнением книг ордеров.
func (s *BlacklistService) IsBlacklisted(venue, conditionID string) (bool, error) {
	venue = strings.TrimSpace(venue)
	conditionID = strings.TrimSpace(conditionID)
	if venue == "" {
		return false, ErrBlacklistVenueEmpty
	}
	if conditionID == "" {
		return false, ErrBlacklistConditionIDEmpty
	}

	return s.blacklistRepo.Exists(venue, conditionID)
}

// UpdateReason обновляет причину добавления в черный список.
func (s *BlacklistService) UpdateReason(venue, conditionID, reason string) error {
	venue = strings.TrimSpace(venue)
	conditionID = strings.TrimSpace(conditionID)
	if venue == "" {
		return ErrBlacklistVenueEmpty
	}
	if conditionID == "" {
		return ErrBlacklistConditionIDEmpty
	}

	err := s.blacklistRepo.UpdateReason(venue, conditionID, strings.TrimSpace(reason))
	if err != nil {
		if errors.Is(err, repository.ErrBlacklistEntryNotFound) {
			return ErrBlacklistEntryNotFound
		}
		return err
	}

	return nil
}

// SearchByAsset ищет записи по активу. Поиск регистронезависимый.
func (s *BlacklistService) SearchByAsset(asset string) ([]*models.BlacklistEntry, error) {
	asset = strings.TrimSpace(asset)
	if asset == "" {
		return s.GetBlacklist()
	}

	entries, err := s.blacklistRepo.SearchByAsset(asset)
	if err != nil {
		return nil, err
	}

	if entries == nil {
		entries = []*models.BlacklistEntry{}
	}

	return entries, nil
}

// GetCount возвращает количество записей в черном списке.
func (s *BlacklistService) GetCount() (int, error) {
	return s.blacklistRepo.Count()
}

// ClearAll очищает весь черный список. Используйте с осторожностью.
func (s *BlacklistService) ClearAll() error {
	return s.blacklistRepo.DeleteAll()
}
