package competition

import (
	"context"
	"errors"
	"log"
	"time"

	"github.com/azamalidev/Kick-Expert-sub000/internal/domain/entity"
	apperrors "github.com/azamalidev/Kick-Expert-sub000/internal/pkg/errors"
)

// AnswerLedger - журнал ответов с гарантией не более одной записи на
// пару (сессия, вопрос). Единственная защита от двойной отправки -
// уникальный индекс в БД: никаких внутрипроцессных блокировок,
// поэтому гарантия переживает рестарт и несколько инстансов.
type AnswerLedger struct {
	config   *Config
	deps     *Dependencies
	analyzer *Analyzer
}

// NewAnswerLedger создаёт новый журнал ответов
func NewAnswerLedger(config *Config, deps *Dependencies, analyzer *Analyzer) *AnswerLedger {
	return &AnswerLedger{
		config:   config,
		deps:     deps,
		analyzer: analyzer,
	}
}

// SubmitOutcome - результат попытки записи ответа
type SubmitOutcome struct {
	Accepted  bool
	Reason    string
	IsCorrect bool
	Record    *entity.AnswerRecord
}

// Submit записывает ответ участника на вопрос слота slotIndex.
// Отклонение по закрытой сессии или дубликату - не ошибка, а исход
// протокола (Accepted=false + Reason). Ошибка возвращается только
// при реальном сбое персистентности.
func (l *AnswerLedger) Submit(ctx context.Context, session *entity.Session, question *entity.Question, slotIndex, selectedChoice int, slotOpenedAt time.Time) (*SubmitOutcome, error) {
	if session.IsSealed() {
		return &SubmitOutcome{Reason: ReasonSessionClosed}, nil
	}

	if !question.IsValidChoice(selectedChoice) {
		return &SubmitOutcome{Reason: ReasonInvalidChoice}, nil
	}

	now := time.Now()
	latencyMs := now.Sub(slotOpenedAt).Milliseconds()
	if latencyMs < 0 {
		// Рассинхронизация часов клиента и сервера не должна давать
		// отрицательную задержку в журнале
		latencyMs = 0
	}

	isCorrect := question.IsCorrect(selectedChoice)
	record := &entity.AnswerRecord{
		SessionID:         session.ID,
		QuestionID:        question.ID,
		SlotIndex:         slotIndex,
		SelectedAnswer:    &selectedChoice,
		IsCorrect:         isCorrect,
		SubmittedAt:       now,
		ResponseLatencyMs: &latencyMs,
	}

	if err := l.save(ctx, record); err != nil {
		if errors.Is(err, apperrors.ErrDuplicateAnswer) {
			log.Printf("[AnswerLedger] Дубликат ответа: сессия %d, вопрос %d", session.ID, question.ID)
			return &SubmitOutcome{Reason: ReasonDuplicate}, nil
		}
		return nil, apperrors.ErrPersistenceFailure
	}

	// Один сэмпл анализатору на каждый принятый ответ
	if l.analyzer != nil {
		l.analyzer.Record(session.ID, Sample{LatencyMs: latencyMs, IsCorrect: isCorrect})
	}

	// Статистика качества вопросов - fire-and-forget, сбой приёмника
	// не влияет на путь отправки
	if l.deps.Stats != nil {
		go l.deps.Stats.RecordAnswer(question.ID, isCorrect, latencyMs)
	}

	return &SubmitOutcome{
		Accepted:  true,
		Reason:    ReasonAccepted,
		IsCorrect: isCorrect,
		Record:    record,
	}, nil
}

// save записывает ответ с ограниченным числом повторов при транзиентном
// сбое БД. Дубликат повторов не вызывает.
func (l *AnswerLedger) save(ctx context.Context, record *entity.AnswerRecord) error {
	var lastErr error
	attempts := l.config.MaxPersistRetries
	if attempts < 1 {
		attempts = 1
	}

	for i := 0; i < attempts; i++ {
		if i > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(l.config.RetryInterval):
			}
		}

		lastErr = l.deps.AnswerRepo.Save(record)
		if lastErr == nil || errors.Is(lastErr, apperrors.ErrDuplicateAnswer) {
			return lastErr
		}
		log.Printf("[AnswerLedger] Попытка записи %d/%d не удалась: %v", i+1, attempts, lastErr)
	}

	return lastErr
}
