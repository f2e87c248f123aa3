package repository

import (
	"github.com/azamalidev/Kick-Expert-sub000/internal/domain/entity"
)

// RegistrationRepository подтверждает оплаченное участие.
// Оркестратор отказывается создавать сессию для незарегистрированного
// участника; сам сбор оплаты - зона внешней платёжной подсистемы.
type RegistrationRepository interface {
	Create(registration *entity.Registration) error
	// IsRegistered возвращает true, если участник зарегистрирован И оплатил взнос
	IsRegistered(competitionID, userID uint) (bool, error)
	CountByCompetition(competitionID uint) (int64, error)
}
