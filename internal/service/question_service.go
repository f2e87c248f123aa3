package service

import (
	"fmt"
	"math/rand"

	"github.com/azamalidev/Kick-Expert-sub000/internal/domain/entity"
	"github.com/azamalidev/Kick-Expert-sub000/internal/domain/repository"
)

// QuestionService отдаёт последовательность вопросов соревнования.
// Порядок вопросов и перемешивание вариантов сидированы id соревнования:
// каждый участник получает идентичную последовательность без какой-либо
// координации между клиентами.
type QuestionService struct {
	questionRepo repository.QuestionRepository
}

// NewQuestionService создает новый сервис вопросов
func NewQuestionService(questionRepo repository.QuestionRepository) *QuestionService {
	return &QuestionService{
		questionRepo: questionRepo,
	}
}

// GetCompetitionQuestions возвращает упорядоченный список вопросов
// соревнования. Повторный вызов с тем же соревнованием детерминированно
// даёт тот же порядок и ту же расстановку вариантов.
func (s *QuestionService) GetCompetitionQuestions(competition *entity.Competition) ([]entity.Question, error) {
	questions, err := s.questionRepo.GetByDifficulty(competition.Difficulty, competition.QuestionCount)
	if err != nil {
		return nil, fmt.Errorf("не удалось загрузить вопросы: %w", err)
	}
	if len(questions) < competition.QuestionCount {
		return nil, fmt.Errorf("в банке недостаточно вопросов сложности %s: есть %d, нужно %d",
			competition.Difficulty, len(questions), competition.QuestionCount)
	}
	questions = questions[:competition.QuestionCount]

	// Репозиторий отдаёт стабильный порядок по id; вся случайность
	// исходит из генератора, сидированного id соревнования
	rng := rand.New(rand.NewSource(int64(competition.ID)))

	rng.Shuffle(len(questions), func(i, j int) {
		questions[i], questions[j] = questions[j], questions[i]
	})

	for i := range questions {
		shuffleChoices(&questions[i], rng)
	}

	return questions, nil
}

// shuffleChoices перемешивает варианты ответа вопроса, перенося индекс
// правильного варианта вместе с ним
func shuffleChoices(q *entity.Question, rng *rand.Rand) {
	n := len(q.Choices)
	if n < 2 {
		return
	}

	perm := rng.Perm(n)
	correct := q.CorrectChoice
	shuffled := make(entity.StringArray, n)
	for newPos, oldPos := range perm {
		shuffled[newPos] = q.Choices[oldPos]
		if oldPos == correct {
			q.CorrectChoice = newPos
		}
	}
	q.Choices = shuffled
}
