package entity

import (
	"time"
)

// CompetitionResult представляет итоговое место участника в соревновании.
// Записывается один раз после запечатывания всех сессий; повторный расчёт
// выполняет upsert по ключу (competition_id, user_id), а не вставку.
type CompetitionResult struct {
	ID             uint      `gorm:"primaryKey" json:"id"`
	CompetitionID  uint      `gorm:"not null;index;uniqueIndex:idx_competition_user_result" json:"competition_id"`
	UserID         uint      `gorm:"not null;index;uniqueIndex:idx_competition_user_result" json:"user_id"`
	Username       string    `gorm:"size:50;not null" json:"username"`
	Rank           int       `gorm:"not null;default:0;index:idx_competition_rank" json:"rank"`
	Score          int       `gorm:"not null;default:0" json:"score"`
	PrizeAmount    int       `gorm:"not null;default:0" json:"prize_amount"`
	XPAwarded      int       `gorm:"not null;default:0" json:"xp_awarded"`
	TrophyAwarded  bool      `gorm:"not null;default:false" json:"trophy_awarded"`
	CompletedAt    time.Time `gorm:"not null" json:"completed_at"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// TableName определяет имя таблицы для GORM
func (CompetitionResult) TableName() string {
	return "competition_results"
}

// IsWinner проверяет, получил ли участник денежный приз
func (r *CompetitionResult) IsWinner() bool {
	return r.PrizeAmount > 0
}
