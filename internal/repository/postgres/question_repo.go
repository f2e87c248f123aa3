package postgres

import (
	"errors"

	"gorm.io/gorm"

	"github.com/azamalidev/Kick-Expert-sub000/internal/domain/entity"
	apperrors "github.com/azamalidev/Kick-Expert-sub000/internal/pkg/errors"
)

// QuestionRepo реализует repository.QuestionRepository
type QuestionRepo struct {
	db *gorm.DB
}

// NewQuestionRepo создает новый репозиторий вопросов
func NewQuestionRepo(db *gorm.DB) *QuestionRepo {
	return &QuestionRepo{db: db}
}

// GetByID возвращает вопрос по ID
func (r *QuestionRepo) GetByID(id uint) (*entity.Question, error) {
	var question entity.Question
	err := r.db.First(&question, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrNotFound
		}
		return nil, err
	}
	return &question, nil
}

// GetByIDs возвращает вопросы по списку ID
func (r *QuestionRepo) GetByIDs(ids []uint) ([]entity.Question, error) {
	var questions []entity.Question
	err := r.db.Where("id IN ?", ids).Find(&questions).Error
	if err != nil {
		return nil, err
	}
	return questions, nil
}

// GetByDifficulty возвращает вопросы заданной сложности в стабильном
// порядке по id. Детерминированное перемешивание от id соревнования
// выполняется сервисом вопросов, не репозиторием.
func (r *QuestionRepo) GetByDifficulty(difficulty string, limit int) ([]entity.Question, error) {
	var questions []entity.Question
	err := r.db.Where("difficulty = ?", difficulty).
		Order("id").
		Limit(limit).
		Find(&questions).Error
	if err != nil {
		return nil, err
	}
	return questions, nil
}

// CreateBatch сохраняет пакет вопросов
func (r *QuestionRepo) CreateBatch(questions []entity.Question) error {
	if len(questions) == 0 {
		return nil
	}
	return r.db.Create(&questions).Error
}
