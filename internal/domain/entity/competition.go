package entity

import (
	"time"
)

// Константы статусов соревнования
const (
	CompetitionStatusUpcoming  = "upcoming"
	CompetitionStatusRunning   = "running"
	CompetitionStatusCompleted = "completed"
	CompetitionStatusCancelled = "cancelled"
)

// Уровни сложности соревнования (влияют на XP-стипендию не-победителям)
const (
	CompetitionDifficultyStarter = "starter"
	CompetitionDifficultyPro     = "pro"
	CompetitionDifficultyElite   = "elite"
)

// DefaultSlotDurationSec - длительность одного слота вопроса.
// Фиксирована на 30 секунд для всех соревнований.
const DefaultSlotDurationSec = 30

// Competition представляет запланированное соревнование
type Competition struct {
	ID              uint      `gorm:"primaryKey" json:"id"`
	Name            string    `gorm:"size:100;not null" json:"name"`
	Description     string    `gorm:"size:500;not null;default:''" json:"description"`
	StartTime       time.Time `gorm:"not null;index" json:"start_time"`
	Status          string    `gorm:"size:20;not null;default:'upcoming';index" json:"status"`
	QuestionCount   int       `gorm:"not null;default:0" json:"question_count"`
	SlotDurationSec int       `gorm:"not null;default:30" json:"slot_duration_sec"`
	EntryFee        int       `gorm:"not null;default:0" json:"entry_fee"`
	Difficulty      string    `gorm:"size:20;not null;default:'starter'" json:"difficulty"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

// TableName определяет имя таблицы для GORM
func (Competition) TableName() string {
	return "competitions"
}

// EndTime возвращает момент закрытия последнего слота
func (c *Competition) EndTime() time.Time {
	return c.StartTime.Add(time.Duration(c.QuestionCount*c.SlotDurationSec) * time.Second)
}

// SlotDuration возвращает длительность слота как time.Duration
func (c *Competition) SlotDuration() time.Duration {
	if c.SlotDurationSec <= 0 {
		return DefaultSlotDurationSec * time.Second
	}
	return time.Duration(c.SlotDurationSec) * time.Second
}

// IsRunning проверяет, идёт ли соревнование
func (c *Competition) IsRunning() bool {
	return c.Status == CompetitionStatusRunning
}

// IsUpcoming проверяет, запланировано ли соревнование
func (c *Competition) IsUpcoming() bool {
	return c.Status == CompetitionStatusUpcoming
}

// IsCompleted проверяет, завершено ли соревнование
func (c *Competition) IsCompleted() bool {
	return c.Status == CompetitionStatusCompleted
}

// IsCancelled проверяет, отменено ли соревнование
func (c *Competition) IsCancelled() bool {
	return c.Status == CompetitionStatusCancelled
}

// CanTransitionTo проверяет допустимость перехода статуса.
// Статус двигается только вперёд: upcoming → running → completed,
// отмена возможна из upcoming и running.
func (c *Competition) CanTransitionTo(status string) bool {
	switch c.Status {
	case CompetitionStatusUpcoming:
		return status == CompetitionStatusRunning || status == CompetitionStatusCancelled
	case CompetitionStatusRunning:
		return status == CompetitionStatusCompleted || status == CompetitionStatusCancelled
	default:
		return false
	}
}

// TotalRevenue возвращает суммарный сбор взносов для N участников
func (c *Competition) TotalRevenue(participantCount int) int {
	return participantCount * c.EntryFee
}
