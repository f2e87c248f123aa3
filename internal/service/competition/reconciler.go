package competition

import (
	"context"
	"errors"
	"log"
	"sort"
	"time"

	"github.com/azamalidev/Kick-Expert-sub000/internal/domain/entity"
	apperrors "github.com/azamalidev/Kick-Expert-sub000/internal/pkg/errors"
)

// Reconciler восстанавливает состояние сессии при подключении или
// переподключении участника к идущему соревнованию
type Reconciler struct {
	config *Config
	deps   *Dependencies
}

// NewReconciler создаёт новый восстановитель сессий
func NewReconciler(config *Config, deps *Dependencies) *Reconciler {
	return &Reconciler{
		config: config,
		deps:   deps,
	}
}

// ReconcileResult - результат восстановления сессии
type ReconcileResult struct {
	// Все записи ответов сессии после восстановления,
	// отсортированные по индексу слота
	Records []entity.AnswerRecord

	// Количество слотов, синтезированных как пропущенные в этом вызове
	NewlyMissed int

	// Текущий счёт (количество правильных ответов)
	CorrectCount int

	// Общее количество пропущенных слотов в сессии
	MissedCount int
}

// Reconcile приводит журнал ответов сессии в соответствие с текущим
// слотом: для каждого истёкшего слота без записи синтезируется запись
// "пропущено" (selectedAnswer NULL, isCorrect false). Операция
// идемпотентна - повторный вызов с тем же currentSlot ничего не
// добавляет; гонка с параллельной отправкой ответа разрешается
// уникальным индексом (session_id, question_id) в БД.
func (r *Reconciler) Reconcile(ctx context.Context, session *entity.Session, questions []entity.Question, currentSlot int) (*ReconcileResult, error) {
	if session.IsSealed() {
		return nil, apperrors.ErrSessionClosed
	}

	existing, err := r.deps.AnswerRepo.GetBySession(session.ID)
	if err != nil {
		return nil, apperrors.ErrPersistenceFailure
	}

	bySlot := make(map[int]entity.AnswerRecord, len(existing))
	for _, rec := range existing {
		bySlot[rec.SlotIndex] = rec
	}

	result := &ReconcileResult{}
	now := time.Now()

	// Слоты [0, currentSlot) истекли; текущий слот ещё открыт
	// и пропущенным не считается
	for slot := 0; slot < currentSlot && slot < len(questions); slot++ {
		if _, ok := bySlot[slot]; ok {
			continue
		}

		missed := &entity.AnswerRecord{
			SessionID:   session.ID,
			QuestionID:  questions[slot].ID,
			SlotIndex:   slot,
			SubmittedAt: now,
		}

		if err := r.deps.AnswerRepo.Save(missed); err != nil {
			if errors.Is(err, apperrors.ErrDuplicateAnswer) {
				// Проигранная гонка с параллельной отправкой ответа -
				// запись уже есть, перечитаем журнал целиком ниже
				log.Printf("[Reconciler] Слот %d сессии %d уже записан параллельно", slot, session.ID)
				continue
			}
			return nil, apperrors.ErrPersistenceFailure
		}

		bySlot[slot] = *missed
		result.NewlyMissed++
	}

	// Перечитываем журнал, чтобы учесть записи, выигравшие гонку
	records, err := r.deps.AnswerRepo.GetBySession(session.ID)
	if err != nil {
		return nil, apperrors.ErrPersistenceFailure
	}

	sort.Slice(records, func(i, j int) bool {
		return records[i].SlotIndex < records[j].SlotIndex
	})

	for _, rec := range records {
		if rec.IsCorrect {
			result.CorrectCount++
		}
		if rec.IsMissed() {
			result.MissedCount++
		}
	}
	result.Records = records

	if result.NewlyMissed > 0 {
		log.Printf("[Reconciler] Сессия %d: синтезировано %d пропущенных слотов, счёт %d",
			session.ID, result.NewlyMissed, result.CorrectCount)
	}

	return result, nil
}
