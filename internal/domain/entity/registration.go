package entity

import (
	"time"
)

// Registration подтверждает оплаченное участие пользователя в соревновании.
// Сбор оплаты выполняется внешней платёжной подсистемой; движок видит
// только факт регистрации и отказывается создавать сессию без него.
type Registration struct {
	ID            uint      `gorm:"primaryKey" json:"id"`
	CompetitionID uint      `gorm:"not null;index;uniqueIndex:idx_registration" json:"competition_id"`
	UserID        uint      `gorm:"not null;index;uniqueIndex:idx_registration" json:"user_id"`
	Paid          bool      `gorm:"not null;default:false" json:"paid"`
	CreatedAt     time.Time `json:"created_at"`
}

// TableName определяет имя таблицы для GORM
func (Registration) TableName() string {
	return "competition_registrations"
}
