package postgres

import (
	"gorm.io/gorm"

	"github.com/azamalidev/Kick-Expert-sub000/internal/domain/entity"
)

// FlaggedActionRepo реализует repository.FlaggedActionRepository
type FlaggedActionRepo struct {
	db *gorm.DB
}

// NewFlaggedActionRepo создает новый репозиторий анти-чит срабатываний
func NewFlaggedActionRepo(db *gorm.DB) *FlaggedActionRepo {
	return &FlaggedActionRepo{db: db}
}

// Save сохраняет срабатывание для последующей модерации
func (r *FlaggedActionRepo) Save(action *entity.FlaggedAction) error {
	return r.db.Create(action).Error
}

// ListByCompetition возвращает срабатывания по соревнованию
func (r *FlaggedActionRepo) ListByCompetition(competitionID uint) ([]entity.FlaggedAction, error) {
	var actions []entity.FlaggedAction
	err := r.db.Where("competition_id = ?", competitionID).
		Order("created_at DESC").
		Find(&actions).Error
	if err != nil {
		return nil, err
	}
	return actions, nil
}
