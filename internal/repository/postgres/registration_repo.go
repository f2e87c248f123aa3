package postgres

import (
	"errors"

	"gorm.io/gorm"

	"github.com/azamalidev/Kick-Expert-sub000/internal/domain/entity"
	apperrors "github.com/azamalidev/Kick-Expert-sub000/internal/pkg/errors"
)

// RegistrationRepo реализует repository.RegistrationRepository
type RegistrationRepo struct {
	db *gorm.DB
}

// NewRegistrationRepo создает новый репозиторий регистраций
func NewRegistrationRepo(db *gorm.DB) *RegistrationRepo {
	return &RegistrationRepo{db: db}
}

// Create создает регистрацию участника
func (r *RegistrationRepo) Create(registration *entity.Registration) error {
	err := r.db.Create(registration).Error
	if err != nil {
		if isUniqueViolation(err) {
			return apperrors.ErrConflict
		}
		return err
	}
	return nil
}

// IsRegistered возвращает true, если участник зарегистрирован и оплатил взнос
func (r *RegistrationRepo) IsRegistered(competitionID, userID uint) (bool, error) {
	var registration entity.Registration
	err := r.db.Where("competition_id = ? AND user_id = ? AND paid = ?", competitionID, userID, true).
		First(&registration).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// CountByCompetition возвращает число оплаченных регистраций соревнования
func (r *RegistrationRepo) CountByCompetition(competitionID uint) (int64, error) {
	var count int64
	err := r.db.Model(&entity.Registration{}).
		Where("competition_id = ? AND paid = ?", competitionID, true).
		Count(&count).Error
	return count, err
}
