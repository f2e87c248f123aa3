package repository

import (
	"github.com/azamalidev/Kick-Expert-sub000/internal/domain/entity"
)

// QuestionRepository определяет методы для работы с банком вопросов
type QuestionRepository interface {
	GetByID(id uint) (*entity.Question, error)
	GetByIDs(ids []uint) ([]entity.Question, error)
	// GetByDifficulty возвращает вопросы заданной сложности в стабильном
	// порядке (по id). Перемешивание выполняется выше, детерминированно
	// от id соревнования.
	GetByDifficulty(difficulty string, limit int) ([]entity.Question, error)
	CreateBatch(questions []entity.Question) error
}
