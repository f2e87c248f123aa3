package repository

import (
	"time"

	"github.com/azamalidev/Kick-Expert-sub000/internal/domain/entity"
)

// CompetitionFilters определяет фильтры для поиска соревнований
type CompetitionFilters struct {
	Status   string     // Фильтр по статусу (upcoming, running, completed, cancelled)
	Search   string     // Поиск по названию/описанию
	DateFrom *time.Time // Фильтр по дате начала
	DateTo   *time.Time // Фильтр по дате окончания
}

// CompetitionRepository определяет методы для работы с соревнованиями
type CompetitionRepository interface {
	Create(competition *entity.Competition) error
	GetByID(id uint) (*entity.Competition, error)
	// GetRunning возвращает соревнования в статусе running
	GetRunning() ([]entity.Competition, error)
	// GetUpcoming возвращает запланированные соревнования, включая
	// просроченные (их продвигает фоновая зачистка)
	GetUpcoming() ([]entity.Competition, error)
	// UpdateStatus выполняет переход статуса с проверкой допустимости:
	// статус двигается только вперёд (см. entity.Competition.CanTransitionTo).
	UpdateStatus(competitionID uint, status string) error
	ListWithFilters(filters CompetitionFilters, limit, offset int) ([]entity.Competition, int64, error)
}
