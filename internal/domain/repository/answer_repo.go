package repository

import (
	"github.com/azamalidev/Kick-Expert-sub000/internal/domain/entity"
)

// AnswerRepository определяет методы для работы с записями ответов
type AnswerRepository interface {
	// Save сохраняет запись ответа. При нарушении уникального индекса
	// (session_id, question_id) возвращает apperrors.ErrDuplicateAnswer -
	// это ЕДИНСТВЕННЫЙ механизм защиты от двойной отправки, никакие
	// клиентские флаги "уже отвечено" не авторитетны.
	Save(answer *entity.AnswerRecord) error
	GetBySession(sessionID uint) ([]entity.AnswerRecord, error)
}
