package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/azamalidev/Kick-Expert-sub000/internal/domain/entity"
	apperrors "github.com/azamalidev/Kick-Expert-sub000/internal/pkg/errors"
	"github.com/azamalidev/Kick-Expert-sub000/internal/service/competition"
	"github.com/azamalidev/Kick-Expert-sub000/internal/websocket"
)

// CompetitionManager - фасад движка соревнований. Владеет state machine
// участника (waiting → quiz → results → leaderboard), периодической
// ре-синхронизацией и всеми побочными эффектами: только менеджер
// обращается к персистентности и внешним сервисам.
//
// Каждая сессия участника - независимый логический актор: общего
// мутабельного состояния между сессиями в процессе нет, корректность
// конкурентных записей обеспечивают уникальные индексы БД.
type CompetitionManager struct {
	config *competition.Config
	deps   *competition.Dependencies

	reconciler *competition.Reconciler
	ledger     *competition.AnswerLedger
	analyzer   *competition.Analyzer

	questionService *QuestionService
	rankingService  *RankingService

	// Активные состояния сессий: "competitionID:userID" -> *SessionState
	states sync.Map

	// Отмена фоновой зачистки
	sweepCancel context.CancelFunc
}

// NewCompetitionManager создает новый менеджер соревнований
func NewCompetitionManager(
	config *competition.Config,
	deps *competition.Dependencies,
	questionService *QuestionService,
	rankingService *RankingService,
) *CompetitionManager {
	analyzer := competition.NewAnalyzer()
	return &CompetitionManager{
		config:          config,
		deps:            deps,
		reconciler:      competition.NewReconciler(config, deps),
		ledger:          competition.NewAnswerLedger(config, deps, analyzer),
		analyzer:        analyzer,
		questionService: questionService,
		rankingService:  rankingService,
	}
}

// StateSnapshot - снимок состояния участника, возвращаемый при входе
type StateSnapshot struct {
	Phase           string                `json:"phase"`
	CompetitionID   uint                  `json:"competition_id"`
	SessionPublicID string                `json:"session_id,omitempty"`
	CurrentSlot     int                   `json:"current_slot"`
	RemainingSec    int                   `json:"remaining_sec"`
	Ended           bool                  `json:"ended"`
	QuestionCount   int                   `json:"question_count"`
	WaitingCount    int                   `json:"waiting_count,omitempty"`
	CorrectCount    int                   `json:"correct_count"`
	MissedCount     int                   `json:"missed_count"`
	Restored        []entity.AnswerRecord `json:"restored,omitempty"`
	LateJoiner      bool                  `json:"late_joiner"`
}

// SubmitResult - итог отправки ответа
type SubmitResult struct {
	Accepted      bool   `json:"accepted"`
	IsCorrect     bool   `json:"is_correct"`
	Reason        string `json:"reason"`
	SessionSealed bool   `json:"session_sealed"`
}

// stateKey возвращает ключ состояния сессии
func stateKey(competitionID, userID uint) string {
	return fmt.Sprintf("%d:%d", competitionID, userID)
}

// Enter обрабатывает вход (или повторный вход) участника в соревнование.
// Сессия здесь НЕ создаётся: она появляется лениво при первом ответе,
// чтобы не записать неявившегося как "сыгравшего".
func (m *CompetitionManager) Enter(ctx context.Context, competitionID, userID uint) (*StateSnapshot, error) {
	comp, err := m.deps.CompetitionRepo.GetByID(competitionID)
	if err != nil {
		return nil, err
	}
	if comp.IsCancelled() {
		return nil, apperrors.ErrCompetitionEnded
	}

	registered, err := m.deps.RegistrationRepo.IsRegistered(competitionID, userID)
	if err != nil {
		return nil, apperrors.ErrPersistenceFailure
	}
	if !registered {
		return nil, apperrors.ErrNotRegistered
	}

	// Слот считается от серверных часов: клиент получает готовый
	// remaining_sec и не обязан доверять собственным часам
	now := time.Now()
	slot := competition.CurrentSlot(comp.StartTime, now, comp.SlotDuration(), comp.QuestionCount)

	snapshot := &StateSnapshot{
		CompetitionID: competitionID,
		CurrentSlot:   slot.Index,
		RemainingSec:  int(slot.Remaining.Seconds()),
		Ended:         slot.Ended,
		QuestionCount: comp.QuestionCount,
	}

	if slot.NotStarted {
		snapshot.Phase = competition.PhaseWaiting
		m.trackState(competitionID, userID, competition.PhaseWaiting, -1)

		// Учёт зала ожидания - неавторитетный, только для витрины
		if err := m.deps.CacheRepo.SAdd(waitingRoomKey(competitionID), userID); err != nil {
			log.Printf("[CompetitionManager] Не удалось отметить участника %d в зале ожидания: %v", userID, err)
		}
		if members, err := m.deps.CacheRepo.SMembers(waitingRoomKey(competitionID)); err == nil {
			snapshot.WaitingCount = len(members)
		}
		return snapshot, nil
	}

	// Соревнование началось - фиксируем статус running при первом входе
	if comp.IsUpcoming() {
		if err := m.deps.CompetitionRepo.UpdateStatus(competitionID, entity.CompetitionStatusRunning); err != nil {
			log.Printf("[CompetitionManager] Не удалось перевести соревнование %d в running: %v", competitionID, err)
		}
	}

	session, err := m.deps.SessionRepo.GetByCompetitionAndUser(competitionID, userID)
	switch {
	case err == nil:
		// Повторный вход: восстановление обязано отработать до
		// возобновления фазы quiz
		return m.reenter(ctx, comp, session, slot, snapshot)
	case errors.Is(err, apperrors.ErrNotFound):
		// Первый вход после старта
		if slot.Ended {
			snapshot.Phase = competition.PhaseResults
			m.trackState(competitionID, userID, competition.PhaseResults, slot.Index)
			return snapshot, nil
		}
		snapshot.Phase = competition.PhaseQuiz
		snapshot.LateJoiner = slot.Index > 0
		state := m.trackState(competitionID, userID, competition.PhaseQuiz, slot.Index)
		m.startResyncLoop(comp, state)
		return snapshot, nil
	default:
		return nil, apperrors.ErrPersistenceFailure
	}
}

// reenter восстанавливает участника с существующей сессией
func (m *CompetitionManager) reenter(ctx context.Context, comp *entity.Competition, session *entity.Session, slot competition.SlotInfo, snapshot *StateSnapshot) (*StateSnapshot, error) {
	snapshot.SessionPublicID = session.PublicID
	snapshot.LateJoiner = session.LateJoiner

	if session.IsSealed() {
		// Запечатанная сессия терминальна - повторный вход ведёт
		// сразу к результатам
		snapshot.Phase = competition.PhaseResults
		snapshot.CorrectCount = session.CorrectAnswers
		snapshot.MissedCount = session.MissedQuestions
		m.trackState(comp.ID, session.UserID, competition.PhaseResults, slot.Index)
		return snapshot, nil
	}

	questions, err := m.questionService.GetCompetitionQuestions(comp)
	if err != nil {
		return nil, err
	}

	if slot.Ended {
		// Глобальный конец наступил, пока участник отсутствовал
		if err := m.finishSession(ctx, comp, session, questions); err != nil {
			return nil, err
		}
		sealed, err := m.deps.SessionRepo.GetByID(session.ID)
		if err == nil {
			snapshot.CorrectCount = sealed.CorrectAnswers
			snapshot.MissedCount = sealed.MissedQuestions
		}
		snapshot.Phase = competition.PhaseResults
		m.trackState(comp.ID, session.UserID, competition.PhaseResults, slot.Index)
		return snapshot, nil
	}

	result, err := m.reconciler.Reconcile(ctx, session, questions, slot.Index)
	if err != nil {
		return nil, err
	}

	snapshot.Phase = competition.PhaseQuiz
	snapshot.CorrectCount = result.CorrectCount
	snapshot.MissedCount = result.MissedCount
	snapshot.Restored = result.Records

	state := m.trackState(comp.ID, session.UserID, competition.PhaseQuiz, slot.Index)
	m.startResyncLoop(comp, state)
	return snapshot, nil
}

// SubmitAnswer записывает ответ участника на вопрос текущего слота
func (m *CompetitionManager) SubmitAnswer(ctx context.Context, competitionID, userID, questionID uint, choice int) (*SubmitResult, error) {
	comp, err := m.deps.CompetitionRepo.GetByID(competitionID)
	if err != nil {
		return nil, err
	}
	if comp.IsCancelled() || comp.IsCompleted() {
		return nil, apperrors.ErrCompetitionEnded
	}

	registered, err := m.deps.RegistrationRepo.IsRegistered(competitionID, userID)
	if err != nil {
		return nil, apperrors.ErrPersistenceFailure
	}
	if !registered {
		return nil, apperrors.ErrNotRegistered
	}

	now := time.Now()
	slot := competition.CurrentSlot(comp.StartTime, now, comp.SlotDuration(), comp.QuestionCount)
	if slot.NotStarted {
		return &SubmitResult{Reason: competition.ReasonNotStarted}, nil
	}

	questions, err := m.questionService.GetCompetitionQuestions(comp)
	if err != nil {
		return nil, err
	}

	session, created, err := m.getOrCreateSession(comp, userID, slot.Index)
	if err != nil {
		return nil, err
	}

	if slot.Ended {
		// Конец соревнования, обнаруженный в момент отправки:
		// отправка прерывается, сессия досрочно закрывается с
		// синтезом "пропущено" для вопроса в полёте
		if err := m.finishSession(ctx, comp, session, questions); err != nil {
			return nil, err
		}
		m.forcePhase(competitionID, userID, competition.PhaseResults)
		return &SubmitResult{Reason: competition.ReasonCompetitionEnded, SessionSealed: true}, nil
	}

	// Восстановление закрывает все истёкшие слоты, поэтому запись
	// в слот раньше текущего отобьётся уникальным индексом
	if !created {
		if _, err := m.reconciler.Reconcile(ctx, session, questions, slot.Index); err != nil {
			if errors.Is(err, apperrors.ErrSessionClosed) {
				return &SubmitResult{Reason: competition.ReasonSessionClosed, SessionSealed: true}, nil
			}
			return nil, err
		}
	}

	question := &questions[slot.Index]
	if question.ID != questionID {
		// Клиент отстал или забежал вперёд - принимаем только
		// вопрос текущего слота
		return &SubmitResult{Reason: competition.ReasonSlotNotOpen}, nil
	}

	slotOpenedAt := competition.SlotOpenedAt(comp.StartTime, comp.SlotDuration(), slot.Index)
	outcome, err := m.ledger.Submit(ctx, session, question, slot.Index, choice, slotOpenedAt)
	if err != nil {
		return nil, err
	}

	result := &SubmitResult{
		Accepted:  outcome.Accepted,
		IsCorrect: outcome.IsCorrect,
		Reason:    outcome.Reason,
	}

	// Ответ на последний слот исчерпывает личную временную шкалу
	if outcome.Accepted && slot.Index == comp.QuestionCount-1 {
		if err := m.finishSession(ctx, comp, session, questions); err != nil {
			log.Printf("[CompetitionManager] Не удалось закрыть сессию %d после последнего слота: %v", session.ID, err)
		} else {
			result.SessionSealed = true
			m.forcePhase(competitionID, userID, competition.PhaseResults)
		}
	}

	return result, nil
}

// getOrCreateSession возвращает сессию участника, лениво создавая её
// при первом ответе. Возвращает created=true для новой сессии.
func (m *CompetitionManager) getOrCreateSession(comp *entity.Competition, userID uint, currentSlot int) (*entity.Session, bool, error) {
	session, err := m.deps.SessionRepo.GetByCompetitionAndUser(comp.ID, userID)
	if err == nil {
		return session, false, nil
	}
	if !errors.Is(err, apperrors.ErrNotFound) {
		return nil, false, apperrors.ErrPersistenceFailure
	}

	session = &entity.Session{
		PublicID:      uuid.New().String(),
		CompetitionID: comp.ID,
		UserID:        userID,
		StartTime:     time.Now(),
		LateJoiner:    currentSlot > 0,
	}
	if err := m.deps.SessionRepo.Create(session); err != nil {
		if errors.Is(err, apperrors.ErrConflict) {
			// Вторая вкладка успела раньше - перечитываем её сессию
			existing, getErr := m.deps.SessionRepo.GetByCompetitionAndUser(comp.ID, userID)
			if getErr != nil {
				return nil, false, apperrors.ErrPersistenceFailure
			}
			return existing, false, nil
		}
		return nil, false, apperrors.ErrPersistenceFailure
	}
	return session, true, nil
}

// finishSession закрывает сессию: дозаписывает пропущенные слоты,
// запечатывает, оценивает анти-чит и при необходимости запускает
// финализацию соревнования. Повторный вызов безопасен.
func (m *CompetitionManager) finishSession(ctx context.Context, comp *entity.Competition, session *entity.Session, questions []entity.Question) error {
	if session.IsSealed() {
		return nil
	}

	result, err := m.reconciler.Reconcile(ctx, session, questions, comp.QuestionCount)
	if err != nil {
		if errors.Is(err, apperrors.ErrSessionClosed) {
			return nil
		}
		return err
	}

	scorePercentage := 0.0
	if comp.QuestionCount > 0 {
		scorePercentage = float64(result.CorrectCount) / float64(comp.QuestionCount) * 100
	}

	sealed, err := m.deps.SessionRepo.Seal(session.ID, time.Now(), result.CorrectCount, scorePercentage, result.MissedCount)
	if err != nil {
		return apperrors.ErrPersistenceFailure
	}
	*session = *sealed

	m.evaluateSession(comp, session, result.Records)
	m.stopResync(comp.ID, session.UserID)

	// Если глобальный конец наступил, гонка путей финализации
	// разрешается идемпотентным пересчётом
	now := time.Now()
	if !now.Before(competition.CompetitionEndsAt(comp.StartTime, comp.SlotDuration(), comp.QuestionCount)) {
		m.completeCompetition(ctx, comp)
	}

	return nil
}

// evaluateSession прогоняет анти-чит по закрытой сессии. Fail-open:
// сбой анализа или записи флага никогда не ломает закрытие сессии.
func (m *CompetitionManager) evaluateSession(comp *entity.Competition, session *entity.Session, records []entity.AnswerRecord) {
	verdict := m.analyzer.Evaluate(session.ID)
	if !verdict.IsSuspicious {
		// После рестарта процесса накопленный набор пуст -
		// восстанавливаем сэмплы из журнала ответов
		verdict = competition.EvaluateSamples(competition.SamplesFromRecords(records))
	}
	if !verdict.IsSuspicious {
		return
	}

	action := &entity.FlaggedAction{
		SessionID:     session.ID,
		CompetitionID: comp.ID,
		UserID:        session.UserID,
		Reasons:       verdict.Reasons,
		Details:       fmt.Sprintf("session %d flagged: %d correct of %d slots", session.ID, session.CorrectAnswers, comp.QuestionCount),
	}
	if err := m.deps.FlaggedRepo.Save(action); err != nil {
		log.Printf("[CompetitionManager] Не удалось записать анти-чит срабатывание сессии %d: %v", session.ID, err)
		return
	}

	// Оперативный флаг в Redis для дашбордов модерации; БД остаётся
	// источником истины
	if err := m.deps.CacheRepo.Set(fmt.Sprintf("suspect:session:%d", session.ID), 1, 24*time.Hour); err != nil {
		log.Printf("[CompetitionManager] Не удалось выставить флаг подозрительности сессии %d: %v", session.ID, err)
	}

	log.Printf("[CompetitionManager] Сессия %d помечена подозрительной: %v", session.ID, verdict.Reasons)
}

// completeCompetition переводит соревнование в completed и запускает
// ранжирование, когда все открытые сессии закрыты
func (m *CompetitionManager) completeCompetition(ctx context.Context, comp *entity.Competition) {
	open, err := m.deps.SessionRepo.CountOpenByCompetition(comp.ID)
	if err != nil {
		log.Printf("[CompetitionManager] Не удалось посчитать открытые сессии соревнования %d: %v", comp.ID, err)
		return
	}
	if open > 0 {
		// Зачистка закроет отставшие сессии и повторит финализацию
		return
	}

	if err := m.deps.CompetitionRepo.UpdateStatus(comp.ID, entity.CompetitionStatusCompleted); err != nil {
		log.Printf("[CompetitionManager] Не удалось завершить соревнование %d: %v", comp.ID, err)
	}

	if err := m.rankingService.FinalizeCompetition(ctx, comp); err != nil {
		log.Printf("[CompetitionManager] Финализация соревнования %d не удалась: %v", comp.ID, err)
	}

	if m.deps.Notifier != nil {
		m.deps.Notifier.BroadcastToCompetition(comp.ID, websocket.Event{
			Type: websocket.EventCompetitionCompleted,
			Data: map[string]interface{}{"competition_id": comp.ID},
		})
	}

	if flagged, err := m.deps.FlaggedRepo.ListByCompetition(comp.ID); err == nil && len(flagged) > 0 {
		log.Printf("[CompetitionManager] Соревнование %d: анти-чит пометил сессий - %d", comp.ID, len(flagged))
	}
}

// trackState регистрирует (или обновляет) состояние сессии участника
func (m *CompetitionManager) trackState(competitionID, userID uint, phase string, slotIndex int) *competition.SessionState {
	key := stateKey(competitionID, userID)
	v, _ := m.states.LoadOrStore(key, competition.NewSessionState(competitionID, userID))
	state := v.(*competition.SessionState)
	state.SetPhase(phase)
	if slotIndex >= 0 {
		state.SetCurrentSlot(slotIndex)
	}
	return state
}

// forcePhase переводит отслеживаемое состояние в фазу и останавливает таймеры
func (m *CompetitionManager) forcePhase(competitionID, userID uint, phase string) {
	if v, ok := m.states.Load(stateKey(competitionID, userID)); ok {
		state := v.(*competition.SessionState)
		state.StopResync()
		state.SetPhase(phase)
	}
}

// stopResync останавливает таймер ре-синхронизации участника
func (m *CompetitionManager) stopResync(competitionID, userID uint) {
	if v, ok := m.states.Load(stateKey(competitionID, userID)); ok {
		v.(*competition.SessionState).StopResync()
	}
}

// startResyncLoop запускает периодическую ре-синхронизацию состояния
// участника. Выход из фазы quiz детерминированно останавливает цикл;
// повторный вход создаёт новый, никогда не возобновляя старый.
func (m *CompetitionManager) startResyncLoop(comp *entity.Competition, state *competition.SessionState) {
	ctx, cancel := context.WithCancel(context.Background())
	state.SetResyncCancel(cancel)

	go func() {
		ticker := time.NewTicker(m.config.ResyncInterval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				m.resyncTick(ctx, comp, state)
			}
		}
	}()
}

// resyncTick - один шаг ре-синхронизации: перевычисляет слот и
// продвигает состояние участника
func (m *CompetitionManager) resyncTick(ctx context.Context, comp *entity.Competition, state *competition.SessionState) {
	if state.GetPhase() != competition.PhaseQuiz {
		state.StopResync()
		return
	}

	slot := competition.CurrentSlot(comp.StartTime, time.Now(), comp.SlotDuration(), comp.QuestionCount)
	if slot.Index > state.GetCurrentSlot() {
		state.SetCurrentSlot(slot.Index)
	}
	if !slot.Ended {
		return
	}

	// Все слоты истекли - личная временная шкала исчерпана
	state.StopResync()
	state.SetPhase(competition.PhaseResults)

	session, err := m.deps.SessionRepo.GetByCompetitionAndUser(state.CompetitionID, state.UserID)
	if err != nil {
		// Участник так и не ответил ни разу - сессии нет, закрывать нечего
		return
	}
	questions, err := m.questionService.GetCompetitionQuestions(comp)
	if err != nil {
		log.Printf("[CompetitionManager] Ре-синхронизация: вопросы соревнования %d недоступны: %v", comp.ID, err)
		return
	}
	if err := m.finishSession(ctx, comp, session, questions); err != nil {
		log.Printf("[CompetitionManager] Ре-синхронизация: не удалось закрыть сессию %d: %v", session.ID, err)
	}
}

// StartSweeper запускает фоновую зачистку: закрывает отставшие сессии
// завершившихся соревнований и доводит их до финализации. Это третий
// путь финализации после таймера участника и явного завершения.
func (m *CompetitionManager) StartSweeper(interval time.Duration) {
	ctx, cancel := context.WithCancel(context.Background())
	m.sweepCancel = cancel

	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				m.sweep(ctx)
			}
		}
	}()
	log.Printf("[CompetitionManager] Зачистка запущена с интервалом %s", interval)
}

// StopSweeper останавливает фоновую зачистку
func (m *CompetitionManager) StopSweeper() {
	if m.sweepCancel != nil {
		m.sweepCancel()
		m.sweepCancel = nil
	}
}

// sweep закрывает все открытые сессии соревнований, чьё глобальное
// время истекло
func (m *CompetitionManager) sweep(ctx context.Context) {
	now := time.Now()

	// Соревнование, в которое никто не вошёл, никогда не получит
	// ленивый перевод в running - продвигаем его здесь, чтобы обычная
	// ветка довела его до завершения. Соревнование без единой оплаченной
	// регистрации стартовать не может: его нечем финансировать.
	upcoming, err := m.deps.CompetitionRepo.GetUpcoming()
	if err != nil {
		log.Printf("[CompetitionManager] Зачистка: не удалось получить запланированные соревнования: %v", err)
	} else {
		for i := range upcoming {
			comp := &upcoming[i]
			if now.Before(comp.StartTime) {
				continue
			}

			paid, err := m.deps.RegistrationRepo.CountByCompetition(comp.ID)
			if err != nil {
				log.Printf("[CompetitionManager] Зачистка: не удалось посчитать регистрации соревнования %d: %v", comp.ID, err)
				continue
			}
			if paid == 0 {
				if err := m.deps.CompetitionRepo.UpdateStatus(comp.ID, entity.CompetitionStatusCancelled); err != nil {
					log.Printf("[CompetitionManager] Зачистка: не удалось отменить соревнование %d: %v", comp.ID, err)
					continue
				}
				log.Printf("[CompetitionManager] Соревнование %d отменено: ни одной оплаченной регистрации", comp.ID)
				if m.deps.Notifier != nil {
					m.deps.Notifier.BroadcastToCompetition(comp.ID, websocket.Event{
						Type: websocket.EventCompetitionCancelled,
						Data: map[string]interface{}{"competition_id": comp.ID},
					})
				}
				continue
			}

			if err := m.deps.CompetitionRepo.UpdateStatus(comp.ID, entity.CompetitionStatusRunning); err != nil {
				log.Printf("[CompetitionManager] Зачистка: не удалось перевести соревнование %d в running: %v", comp.ID, err)
			}
		}
	}

	running, err := m.deps.CompetitionRepo.GetRunning()
	if err != nil {
		log.Printf("[CompetitionManager] Зачистка: не удалось получить идущие соревнования: %v", err)
		return
	}
	for i := range running {
		comp := &running[i]
		if now.Before(comp.EndTime()) {
			continue
		}

		questions, err := m.questionService.GetCompetitionQuestions(comp)
		if err != nil {
			log.Printf("[CompetitionManager] Зачистка: вопросы соревнования %d недоступны: %v", comp.ID, err)
			continue
		}

		sessions, err := m.openSessions(comp.ID)
		if err != nil {
			log.Printf("[CompetitionManager] Зачистка: сессии соревнования %d недоступны: %v", comp.ID, err)
			continue
		}
		for j := range sessions {
			if err := m.finishSession(ctx, comp, &sessions[j], questions); err != nil {
				log.Printf("[CompetitionManager] Зачистка: не удалось закрыть сессию %d: %v", sessions[j].ID, err)
			}
		}

		m.completeCompetition(ctx, comp)
	}
}

// openSessions возвращает незапечатанные сессии соревнования
func (m *CompetitionManager) openSessions(competitionID uint) ([]entity.Session, error) {
	return m.deps.SessionRepo.GetOpenByCompetition(competitionID)
}

// waitingRoomKey возвращает ключ множества зала ожидания
func waitingRoomKey(competitionID uint) string {
	return fmt.Sprintf("competition:%d:waiting_room", competitionID)
}
