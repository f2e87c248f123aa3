package postgres

import (
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lib/pq"

	"github.com/azamalidev/Kick-Expert-sub000/internal/domain/entity"
	"github.com/azamalidev/Kick-Expert-sub000/internal/domain/repository"
	apperrors "github.com/azamalidev/Kick-Expert-sub000/internal/pkg/errors"
)

// CompetitionRepo реализует repository.CompetitionRepository
type CompetitionRepo struct {
	db *gorm.DB
}

// NewCompetitionRepo создает новый репозиторий соревнований
func NewCompetitionRepo(db *gorm.DB) *CompetitionRepo {
	return &CompetitionRepo{db: db}
}

// Create создает новое соревнование
func (r *CompetitionRepo) Create(competition *entity.Competition) error {
	return r.db.Create(competition).Error
}

// GetByID возвращает соревнование по ID
func (r *CompetitionRepo) GetByID(id uint) (*entity.Competition, error) {
	var competition entity.Competition
	err := r.db.First(&competition, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrNotFound
		}
		return nil, err
	}
	return &competition, nil
}

// GetRunning возвращает идущие соревнования
func (r *CompetitionRepo) GetRunning() ([]entity.Competition, error) {
	var competitions []entity.Competition
	err := r.db.Where("status = ?", entity.CompetitionStatusRunning).
		Order("start_time").
		Find(&competitions).Error
	if err != nil {
		return nil, err
	}
	return competitions, nil
}

// GetUpcoming возвращает запланированные соревнования, включая те, чьё
// время старта уже прошло: зачистка продвигает их в running
func (r *CompetitionRepo) GetUpcoming() ([]entity.Competition, error) {
	var competitions []entity.Competition
	err := r.db.Where("status = ?", entity.CompetitionStatusUpcoming).
		Order("start_time").
		Find(&competitions).Error
	if err != nil {
		return nil, err
	}
	return competitions, nil
}

// UpdateStatus выполняет переход статуса. Условие в WHERE гарантирует
// движение только вперёд даже при гонке двух путей завершения.
func (r *CompetitionRepo) UpdateStatus(competitionID uint, status string) error {
	var allowedFrom []string
	switch status {
	case entity.CompetitionStatusRunning:
		allowedFrom = []string{entity.CompetitionStatusUpcoming}
	case entity.CompetitionStatusCompleted:
		allowedFrom = []string{entity.CompetitionStatusRunning}
	case entity.CompetitionStatusCancelled:
		allowedFrom = []string{entity.CompetitionStatusUpcoming, entity.CompetitionStatusRunning}
	default:
		return fmt.Errorf("недопустимый целевой статус: %s", status)
	}

	result := r.db.Model(&entity.Competition{}).
		Where("id = ? AND status IN ?", competitionID, allowedFrom).
		Update("status", status)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		// Либо соревнование не найдено, либо переход назад -
		// повторное завершение считаем no-op
		var current entity.Competition
		if err := r.db.First(&current, competitionID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return apperrors.ErrNotFound
			}
			return err
		}
		if current.Status == status {
			return nil
		}
		return fmt.Errorf("переход статуса %s → %s запрещён", current.Status, status)
	}
	return nil
}

// ListWithFilters возвращает отфильтрованный список с общим количеством
func (r *CompetitionRepo) ListWithFilters(filters repository.CompetitionFilters, limit, offset int) ([]entity.Competition, int64, error) {
	query := r.db.Model(&entity.Competition{})

	if filters.Status != "" {
		query = query.Where("status = ?", filters.Status)
	}
	if filters.Search != "" {
		pattern := "%" + filters.Search + "%"
		query = query.Where("name ILIKE ? OR description ILIKE ?", pattern, pattern)
	}
	if filters.DateFrom != nil {
		query = query.Where("start_time >= ?", *filters.DateFrom)
	}
	if filters.DateTo != nil {
		query = query.Where("start_time <= ?", *filters.DateTo)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var competitions []entity.Competition
	err := query.Order("start_time DESC").
		Limit(limit).
		Offset(offset).
		Find(&competitions).Error
	if err != nil {
		return nil, 0, err
	}
	return competitions, total, nil
}

// isUniqueViolation проверяет Postgres unique violation (23505) для pgconn и lib/pq драйверов
func isUniqueViolation(err error) bool {
	// pgx/v5 driver (pgconn.PgError)
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return true
	}
	// lib/pq driver
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == "23505" {
		return true
	}
	return false
}
