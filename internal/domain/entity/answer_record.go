package entity

import (
	"time"
)

// AnswerRecord представляет авторитетный ответ на один слот вопроса.
// Инвариант: не более одной записи на пару (session_id, question_id),
// обеспечивается уникальным индексом в БД. Повторная попытка отправки
// отклоняется, а не перезаписывается.
type AnswerRecord struct {
	ID                uint       `gorm:"primaryKey" json:"id"`
	SessionID         uint       `gorm:"not null;index;uniqueIndex:idx_session_question" json:"session_id"`
	QuestionID        uint       `gorm:"not null;uniqueIndex:idx_session_question" json:"question_id"`
	SlotIndex         int        `gorm:"not null" json:"slot_index"`
	SelectedAnswer    *int       `json:"selected_answer,omitempty"` // NULL = слот пропущен
	IsCorrect         bool       `gorm:"not null;default:false" json:"is_correct"`
	SubmittedAt       time.Time  `gorm:"not null" json:"submitted_at"`
	ResponseLatencyMs *int64     `json:"response_latency_ms,omitempty"`
	CreatedAt         time.Time  `json:"created_at"`
}

// TableName определяет имя таблицы для GORM
func (AnswerRecord) TableName() string {
	return "competition_answers"
}

// IsMissed проверяет, является ли запись синтезированным пропуском
func (a *AnswerRecord) IsMissed() bool {
	return a.SelectedAnswer == nil
}
