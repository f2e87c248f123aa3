package entity

import (
	"time"
)

// Session представляет участие одного пользователя в соревновании.
// Создаётся лениво при ПЕРВОМ ответе, а не при входе в зал ожидания:
// пользователь, который только заглянул, не считается сыгравшим.
type Session struct {
	ID              uint       `gorm:"primaryKey" json:"id"`
	PublicID        string     `gorm:"size:36;not null;uniqueIndex" json:"public_id"`
	CompetitionID   uint       `gorm:"not null;index;uniqueIndex:idx_competition_user" json:"competition_id"`
	UserID          uint       `gorm:"not null;index;uniqueIndex:idx_competition_user" json:"user_id"`
	StartTime       time.Time  `gorm:"not null" json:"start_time"`
	EndTime         *time.Time `gorm:"index" json:"end_time,omitempty"`
	CorrectAnswers  int        `gorm:"not null;default:0" json:"correct_answers"`
	ScorePercentage float64    `gorm:"not null;default:0" json:"score_percentage"`
	LateJoiner      bool       `gorm:"not null;default:false" json:"late_joiner"`
	MissedQuestions int        `gorm:"not null;default:0" json:"missed_questions"`
	CreatedAt       time.Time  `json:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at"`
}

// TableName определяет имя таблицы для GORM
func (Session) TableName() string {
	return "competition_sessions"
}

// IsSealed проверяет, запечатана ли сессия.
// Запечатанная сессия терминальна: ответы больше не принимаются,
// повторная реконсиляция не выполняется.
func (s *Session) IsSealed() bool {
	return s.EndTime != nil
}
