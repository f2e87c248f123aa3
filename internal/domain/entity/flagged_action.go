package entity

import (
	"time"
)

// FlaggedAction представляет срабатывание анти-чит анализатора для сессии.
// Запись носит информационный характер для модерации: подозрительная
// сессия НЕ дисквалифицируется автоматически.
type FlaggedAction struct {
	ID            uint        `gorm:"primaryKey" json:"id"`
	SessionID     uint        `gorm:"not null;index" json:"session_id"`
	CompetitionID uint        `gorm:"not null;index" json:"competition_id"`
	UserID        uint        `gorm:"not null;index" json:"user_id"`
	Reasons       StringArray `gorm:"type:jsonb;not null" json:"reasons"`
	Details       string      `gorm:"size:500;not null;default:''" json:"details"`
	CreatedAt     time.Time   `json:"created_at"`
}

// TableName определяет имя таблицы для GORM
func (FlaggedAction) TableName() string {
	return "flagged_actions"
}
