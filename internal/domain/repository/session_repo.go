package repository

import (
	"time"

	"github.com/azamalidev/Kick-Expert-sub000/internal/domain/entity"
)

// SessionRepository определяет методы для работы с сессиями участия
type SessionRepository interface {
	// Create создаёт сессию. Уникальный индекс (competition_id, user_id)
	// защищает от гонки двух вкладок, создающих сессию одновременно.
	Create(session *entity.Session) error
	GetByID(id uint) (*entity.Session, error)
	GetByCompetitionAndUser(competitionID, userID uint) (*entity.Session, error)
	// Seal атомарно устанавливает end_time, только если он ещё NULL.
	// Возвращает актуальную сессию; повторный вызов - no-op.
	Seal(sessionID uint, endTime time.Time, correctAnswers int, scorePercentage float64, missedQuestions int) (*entity.Session, error)
	// GetSealedByCompetition возвращает все запечатанные сессии соревнования,
	// готовые к ранжированию.
	GetSealedByCompetition(competitionID uint) ([]entity.Session, error)
	// GetOpenByCompetition возвращает ещё не запечатанные сессии
	GetOpenByCompetition(competitionID uint) ([]entity.Session, error)
	// CountOpenByCompetition возвращает число ещё не запечатанных сессий
	CountOpenByCompetition(competitionID uint) (int64, error)
}
