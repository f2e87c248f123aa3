package postgres

import (
	"gorm.io/gorm"

	"github.com/azamalidev/Kick-Expert-sub000/internal/domain/entity"
	apperrors "github.com/azamalidev/Kick-Expert-sub000/internal/pkg/errors"
)

// AnswerRepo реализует repository.AnswerRepository
type AnswerRepo struct {
	db *gorm.DB
}

// NewAnswerRepo создает новый репозиторий записей ответов
func NewAnswerRepo(db *gorm.DB) *AnswerRepo {
	return &AnswerRepo{db: db}
}

// Save сохраняет запись ответа. Нарушение уникального индекса
// (session_id, question_id) транслируется в ErrDuplicateAnswer - это
// единственный механизм at-most-one на слот, он обязан срабатывать и
// при параллельных ретраях с нескольких устройств.
func (r *AnswerRepo) Save(answer *entity.AnswerRecord) error {
	err := r.db.Create(answer).Error
	if err != nil {
		if isUniqueViolation(err) {
			return apperrors.ErrDuplicateAnswer
		}
		return err
	}
	return nil
}

// GetBySession возвращает все записи ответов сессии
func (r *AnswerRepo) GetBySession(sessionID uint) ([]entity.AnswerRecord, error) {
	var answers []entity.AnswerRecord
	err := r.db.Where("session_id = ?", sessionID).
		Order("slot_index").
		Find(&answers).Error
	if err != nil {
		return nil, err
	}
	return answers, nil
}
