package postgres

import (
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/azamalidev/Kick-Expert-sub000/internal/domain/entity"
	apperrors "github.com/azamalidev/Kick-Expert-sub000/internal/pkg/errors"
)

// SessionRepo реализует repository.SessionRepository
type SessionRepo struct {
	db *gorm.DB
}

// NewSessionRepo создает новый репозиторий сессий
func NewSessionRepo(db *gorm.DB) *SessionRepo {
	return &SessionRepo{db: db}
}

// Create создает сессию. Гонка двух вкладок разрешается уникальным
// индексом (competition_id, user_id): проигравший получает ErrConflict
// и должен перечитать существующую сессию.
func (r *SessionRepo) Create(session *entity.Session) error {
	err := r.db.Create(session).Error
	if err != nil {
		if isUniqueViolation(err) {
			return apperrors.ErrConflict
		}
		return err
	}
	return nil
}

// GetByID возвращает сессию по ID
func (r *SessionRepo) GetByID(id uint) (*entity.Session, error) {
	var session entity.Session
	err := r.db.First(&session, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrNotFound
		}
		return nil, err
	}
	return &session, nil
}

// GetByCompetitionAndUser возвращает сессию участника в соревновании
func (r *SessionRepo) GetByCompetitionAndUser(competitionID, userID uint) (*entity.Session, error) {
	var session entity.Session
	err := r.db.Where("competition_id = ? AND user_id = ?", competitionID, userID).
		First(&session).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrNotFound
		}
		return nil, err
	}
	return &session, nil
}

// Seal атомарно запечатывает сессию: end_time устанавливается только
// если он ещё NULL, поэтому несколько гоняющихся путей финализации
// (таймер, явное завершение, глобальная зачистка) безопасны - выигрывает
// первый, остальные получают уже запечатанную сессию без изменений.
func (r *SessionRepo) Seal(sessionID uint, endTime time.Time, correctAnswers int, scorePercentage float64, missedQuestions int) (*entity.Session, error) {
	result := r.db.Model(&entity.Session{}).
		Where("id = ? AND end_time IS NULL", sessionID).
		Updates(map[string]interface{}{
			"end_time":         endTime,
			"correct_answers":  correctAnswers,
			"score_percentage": scorePercentage,
			"missed_questions": missedQuestions,
		})
	if result.Error != nil {
		return nil, result.Error
	}

	return r.GetByID(sessionID)
}

// GetSealedByCompetition возвращает запечатанные сессии соревнования,
// готовые к ранжированию
func (r *SessionRepo) GetSealedByCompetition(competitionID uint) ([]entity.Session, error) {
	var sessions []entity.Session
	err := r.db.Where("competition_id = ? AND end_time IS NOT NULL", competitionID).
		Find(&sessions).Error
	if err != nil {
		return nil, err
	}
	return sessions, nil
}

// GetOpenByCompetition возвращает ещё не запечатанные сессии соревнования
func (r *SessionRepo) GetOpenByCompetition(competitionID uint) ([]entity.Session, error) {
	var sessions []entity.Session
	err := r.db.Where("competition_id = ? AND end_time IS NULL", competitionID).
		Find(&sessions).Error
	if err != nil {
		return nil, err
	}
	return sessions, nil
}

// CountOpenByCompetition возвращает число ещё не запечатанных сессий
func (r *SessionRepo) CountOpenByCompetition(competitionID uint) (int64, error) {
	var count int64
	err := r.db.Model(&entity.Session{}).
		Where("competition_id = ? AND end_time IS NULL", competitionID).
		Count(&count).Error
	return count, err
}
