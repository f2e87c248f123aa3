package competition

import (
	"context"
	"sync"
	"time"

	"github.com/azamalidev/Kick-Expert-sub000/internal/domain/entity"
	"github.com/azamalidev/Kick-Expert-sub000/internal/domain/repository"
)

// Константы значений по умолчанию
const (
	DefaultSlotDurationSec = 30
	DefaultResyncInterval  = 2 * time.Second
	DefaultXPPerCorrect    = 5
)

// Фазы state machine участника
const (
	PhaseWaiting         = "waiting"
	PhaseQuiz            = "quiz"
	PhaseResults         = "results"
	PhaseLeaderboard     = "leaderboard"
	PhaseDetailedResults = "detailed-results"
)

// Причины отклонения отправки ответа. Это ожидаемые состояния протокола,
// возвращаемые клиенту как reason, а не ошибки.
const (
	ReasonAccepted         = "ACCEPTED"
	ReasonSessionClosed    = "SESSION_CLOSED"
	ReasonDuplicate        = "DUPLICATE"
	ReasonCompetitionEnded = "COMPETITION_ENDED"
	ReasonNotStarted       = "NOT_STARTED"
	ReasonInvalidChoice    = "INVALID_CHOICE"
	ReasonSlotNotOpen      = "SLOT_NOT_OPEN"
)

// Config содержит настройки для всех компонентов движка соревнований
type Config struct {
	// Длительность слота вопроса в секундах (фиксирована на 30)
	SlotDurationSec int

	// Интервал периодической ре-синхронизации активной сессии
	ResyncInterval time.Duration

	// XP за правильный ответ для победителей
	XPPerCorrect int

	// XP-стипендия не-победителям по сложности соревнования
	StipendStarter int
	StipendPro     int
	StipendElite   int

	// Максимальное количество попыток записи при транзиентной ошибке БД
	MaxPersistRetries int

	// Интервал между повторными попытками записи
	RetryInterval time.Duration
}

// DefaultConfig возвращает конфигурацию по умолчанию
func DefaultConfig() *Config {
	return &Config{
		SlotDurationSec:   DefaultSlotDurationSec,
		ResyncInterval:    DefaultResyncInterval,
		XPPerCorrect:      DefaultXPPerCorrect,
		StipendStarter:    10,
		StipendPro:        20,
		StipendElite:      30,
		MaxPersistRetries: 3,
		RetryInterval:     500 * time.Millisecond,
	}
}

// StipendFor возвращает XP-стипендию для сложности соревнования
func (c *Config) StipendFor(difficulty string) int {
	switch difficulty {
	case entity.CompetitionDifficultyElite:
		return c.StipendElite
	case entity.CompetitionDifficultyPro:
		return c.StipendPro
	default:
		return c.StipendStarter
	}
}

// SlotDuration возвращает длительность слота как time.Duration
func (c *Config) SlotDuration() time.Duration {
	return time.Duration(c.SlotDurationSec) * time.Second
}

// Notifier - минимальный интерфейс для fire-and-forget уведомлений.
// Используется ТОЛЬКО для объявлений (результаты готовы, соревнование
// завершено). Расписание вопросов никогда не пушится: оно выводится
// из времени (см. slot.go).
type Notifier interface {
	BroadcastToCompetition(competitionID uint, event interface{}) error
	SendToUser(userID uint, event interface{}) error
}

// StatsSink - fire-and-forget приёмник статистики качества вопросов.
// Ошибки приёмника никогда не блокируют и не ломают путь отправки ответа.
type StatsSink interface {
	RecordAnswer(questionID uint, isCorrect bool, latencyMs int64)
}

// Dependencies содержит зависимости компонентов движка
type Dependencies struct {
	CompetitionRepo  repository.CompetitionRepository
	SessionRepo      repository.SessionRepository
	AnswerRepo       repository.AnswerRepository
	QuestionRepo     repository.QuestionRepository
	RegistrationRepo repository.RegistrationRepository
	FlaggedRepo      repository.FlaggedActionRepository
	CacheRepo        repository.CacheRepository
	Notifier         Notifier
	Stats            StatsSink
}

// SessionState хранит состояние одной активной сессии участника.
// Явная структура вместо модульных мутабельных переменных: состояние
// принадлежит оркестратору и передаётся явно.
type SessionState struct {
	CompetitionID uint
	UserID        uint
	SessionID     uint // 0, пока сессия не создана (ленивое создание)

	Phase          string
	CurrentSlot    int
	SelectedChoice *int // Текущий выбранный вариант открытого слота

	// Отмена таймеров ре-синхронизации; выход из фазы quiz обязан
	// детерминированно остановить таймеры, повторный вход создаёт новые.
	cancelResync context.CancelFunc

	Mu sync.RWMutex
}

// NewSessionState создаёт состояние сессии в фазе ожидания
func NewSessionState(competitionID, userID uint) *SessionState {
	return &SessionState{
		CompetitionID: competitionID,
		UserID:        userID,
		Phase:         PhaseWaiting,
		CurrentSlot:   -1,
	}
}

// SetPhase устанавливает фазу
func (s *SessionState) SetPhase(phase string) {
	s.Mu.Lock()
	defer s.Mu.Unlock()
	s.Phase = phase
}

// GetPhase возвращает текущую фазу
func (s *SessionState) GetPhase() string {
	s.Mu.RLock()
	defer s.Mu.RUnlock()
	return s.Phase
}

// SetCurrentSlot устанавливает индекс текущего слота
func (s *SessionState) SetCurrentSlot(index int) {
	s.Mu.Lock()
	defer s.Mu.Unlock()
	s.CurrentSlot = index
	// Новый слот - выбор предыдущего больше не актуален
	s.SelectedChoice = nil
}

// GetCurrentSlot возвращает индекс текущего слота
func (s *SessionState) GetCurrentSlot() int {
	s.Mu.RLock()
	defer s.Mu.RUnlock()
	return s.CurrentSlot
}

// SetResyncCancel сохраняет функцию отмены таймера ре-синхронизации,
// останавливая предыдущий таймер, если он был
func (s *SessionState) SetResyncCancel(cancel context.CancelFunc) {
	s.Mu.Lock()
	defer s.Mu.Unlock()
	if s.cancelResync != nil {
		s.cancelResync()
	}
	s.cancelResync = cancel
}

// StopResync останавливает таймер ре-синхронизации, если он запущен
func (s *SessionState) StopResync() {
	s.Mu.Lock()
	defer s.Mu.Unlock()
	if s.cancelResync != nil {
		s.cancelResync()
		s.cancelResync = nil
	}
}

// CanTransitionTo проверяет допустимость перехода фазы.
// waiting → quiz → results → leaderboard; detailed-results достижима
// из results и leaderboard (и обратно).
func (s *SessionState) CanTransitionTo(phase string) bool {
	s.Mu.RLock()
	defer s.Mu.RUnlock()
	switch s.Phase {
	case PhaseWaiting:
		return phase == PhaseQuiz || phase == PhaseResults
	case PhaseQuiz:
		return phase == PhaseResults
	case PhaseResults:
		return phase == PhaseLeaderboard || phase == PhaseDetailedResults
	case PhaseLeaderboard:
		return phase == PhaseDetailedResults
	case PhaseDetailedResults:
		return phase == PhaseResults || phase == PhaseLeaderboard
	}
	return false
}
