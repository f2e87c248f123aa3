package entity

import (
	"time"

	"golang.org/x/crypto/bcrypt"
)

// User представляет пользователя системы
type User struct {
	ID            uint      `gorm:"primaryKey" json:"id"`
	Username      string    `gorm:"size:50;not null;uniqueIndex" json:"username"`
	Email         string    `gorm:"size:100;not null;uniqueIndex" json:"email"`
	Password      string    `gorm:"size:100;not null" json:"-"` // Хеш bcrypt, скрыт от клиента
	TotalXP       int       `gorm:"not null;default:0" json:"total_xp"`
	GamesPlayed   int       `gorm:"not null;default:0" json:"games_played"`
	WinsCount     int       `gorm:"not null;default:0" json:"wins_count"`
	TrophiesCount int       `gorm:"not null;default:0" json:"trophies_count"`
	TotalPrizeWon int       `gorm:"not null;default:0" json:"total_prize_won"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// TableName определяет имя таблицы для GORM
func (User) TableName() string {
	return "users"
}

// SetPassword хеширует и устанавливает пароль пользователя
func (u *User) SetPassword(password string) error {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	u.Password = string(hash)
	return nil
}

// CheckPassword проверяет пароль пользователя
func (u *User) CheckPassword(password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(u.Password), []byte(password)) == nil
}
