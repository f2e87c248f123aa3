package repository

import (
	"github.com/azamalidev/Kick-Expert-sub000/internal/domain/entity"
)

// FlaggedActionRepository определяет методы для журнала анти-чит срабатываний
type FlaggedActionRepository interface {
	Save(action *entity.FlaggedAction) error
	ListByCompetition(competitionID uint) ([]entity.FlaggedAction, error)
}
