package repository

import (
	"github.com/azamalidev/Kick-Expert-sub000/internal/domain/entity"
	"gorm.io/gorm"
)

// UserRepository определяет методы для работы с пользователями
type UserRepository interface {
	Create(user *entity.User) error
	GetByID(id uint) (*entity.User, error)
	GetByEmail(email string) (*entity.User, error)
	GetByIDs(ids []uint) ([]entity.User, error)
	// ApplyAwards начисляет XP/трофеи/приз ВНУТРИ ПЕРЕДАННОЙ ТРАНЗАКЦИИ
	// атомарными инкрементами, без full Save.
	ApplyAwards(tx *gorm.DB, userID uint, xp int, prize int, trophy bool, won bool) error
	// IncrementGamesPlayed атомарно увеличивает счётчик сыгранных игр
	IncrementGamesPlayed(tx *gorm.DB, userID uint) error
}
