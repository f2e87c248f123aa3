package service

import (
	"context"
	"fmt"
	"log"
	"sort"
	"time"

	"github.com/xuri/excelize/v2"
	"gorm.io/gorm"

	"github.com/azamalidev/Kick-Expert-sub000/internal/domain/entity"
	"github.com/azamalidev/Kick-Expert-sub000/internal/domain/repository"
	apperrors "github.com/azamalidev/Kick-Expert-sub000/internal/pkg/errors"
	"github.com/azamalidev/Kick-Expert-sub000/internal/service/competition"
	"github.com/azamalidev/Kick-Expert-sub000/internal/websocket"
)

// RankingService считает итоговое ранжирование и призы соревнования.
// Финализация может быть запущена из нескольких путей (истечение
// таймера, явное завершение, глобальная зачистка), поэтому весь расчёт
// перезапускаем: результаты пишутся идемпотентным upsert по ключу
// (competition_id, user_id).
type RankingService struct {
	db               *gorm.DB
	config           *competition.Config
	sessionRepo      repository.SessionRepository
	resultRepo       repository.ResultRepository
	userRepo         repository.UserRepository
	registrationRepo repository.RegistrationRepository
	cacheRepo        repository.CacheRepository
	emailService     EmailService
	notifier         competition.Notifier
}

// NewRankingService создает новый сервис ранжирования
func NewRankingService(
	db *gorm.DB,
	config *competition.Config,
	sessionRepo repository.SessionRepository,
	resultRepo repository.ResultRepository,
	userRepo repository.UserRepository,
	registrationRepo repository.RegistrationRepository,
	cacheRepo repository.CacheRepository,
	emailService EmailService,
	notifier competition.Notifier,
) *RankingService {
	return &RankingService{
		db:               db,
		config:           config,
		sessionRepo:      sessionRepo,
		resultRepo:       resultRepo,
		userRepo:         userRepo,
		registrationRepo: registrationRepo,
		cacheRepo:        cacheRepo,
		emailService:     emailService,
		notifier:         notifier,
	}
}

// RankSessions сортирует запечатанные сессии в итоговом порядке:
// правильные ответы по убыванию, при равенстве - более ранний endTime
// (быстрее финишировал - выше). Порядок тотальный и стабильный,
// ранги получаются непрерывной последовательностью 1..N.
func RankSessions(sessions []entity.Session) []entity.Session {
	ranked := make([]entity.Session, len(sessions))
	copy(ranked, sessions)

	sort.SliceStable(ranked, func(i, j int) bool {
		if ranked[i].CorrectAnswers != ranked[j].CorrectAnswers {
			return ranked[i].CorrectAnswers > ranked[j].CorrectAnswers
		}
		ti, tj := ranked[i].EndTime, ranked[j].EndTime
		switch {
		case ti == nil && tj == nil:
			return ranked[i].ID < ranked[j].ID
		case ti == nil:
			return false
		case tj == nil:
			return true
		}
		if !ti.Equal(*tj) {
			return ti.Before(*tj)
		}
		// Одинаковое время до миллисекунды - стабилизируем по id
		return ranked[i].ID < ranked[j].ID
	})

	return ranked
}

// FinalizeCompetition пересчитывает и фиксирует результаты соревнования.
// Призовой фонд считается от числа оплаченных регистраций, а не от
// числа доигравших: no-show оплатил взнос и увеличил фонд.
func (s *RankingService) FinalizeCompetition(ctx context.Context, comp *entity.Competition) error {
	sessions, err := s.sessionRepo.GetSealedByCompetition(comp.ID)
	if err != nil {
		return fmt.Errorf("не удалось загрузить сессии: %w", err)
	}
	if len(sessions) == 0 {
		log.Printf("[Ranking] Соревнование %d: нет запечатанных сессий, финализировать нечего", comp.ID)
		return nil
	}

	participantCount, err := s.registrationRepo.CountByCompetition(comp.ID)
	if err != nil {
		return fmt.Errorf("не удалось получить число участников: %w", err)
	}
	if participantCount < int64(len(sessions)) {
		participantCount = int64(len(sessions))
	}

	prizeConfig := competition.PrizeConfigForPlayers(int(participantCount))
	pool := prizeConfig.Pool(comp.TotalRevenue(int(participantCount)))
	prizes := prizeConfig.PrizeSplit(pool)
	ranked := RankSessions(sessions)

	sessionUserIDs := make([]uint, 0, len(ranked))
	for _, session := range ranked {
		sessionUserIDs = append(sessionUserIDs, session.UserID)
	}
	users, err := s.userRepo.GetByIDs(sessionUserIDs)
	if err != nil {
		return fmt.Errorf("не удалось загрузить участников: %w", err)
	}
	usernames := make(map[uint]string, len(users))
	for _, u := range users {
		usernames[u.ID] = u.Username
	}

	now := time.Now()
	results := make([]entity.CompetitionResult, len(ranked))
	for i, session := range ranked {
		rank := i + 1
		prize := 0
		if rank <= len(prizes) {
			prize = prizes[rank-1]
		}

		var xp int
		if prize > 0 {
			xp = competition.XPForWinner(session.CorrectAnswers, s.config.XPPerCorrect)
		} else {
			xp = s.config.StipendFor(comp.Difficulty)
		}

		completedAt := now
		if session.EndTime != nil {
			completedAt = *session.EndTime
		}

		results[i] = entity.CompetitionResult{
			CompetitionID: comp.ID,
			UserID:        session.UserID,
			Username:      usernames[session.UserID],
			Rank:          rank,
			Score:         session.CorrectAnswers,
			PrizeAmount:   prize,
			XPAwarded:     xp,
			TrophyAwarded: rank == 1,
			CompletedAt:   completedAt,
		}
	}

	err = s.db.Transaction(func(tx *gorm.DB) error {
		return s.persistResults(tx, comp.ID, results)
	})
	if err != nil {
		return fmt.Errorf("%w: %v", apperrors.ErrPersistenceFailure, err)
	}

	log.Printf("[Ranking] Соревнование %d финализировано: %d сессий, фонд %d, призовых мест %d",
		comp.ID, len(results), pool, prizeConfig.WinnerCount)

	// Свежие результаты должны быть видны сразу, не дожидаясь TTL
	if s.cacheRepo != nil {
		if err := s.cacheRepo.Delete(leaderboardCacheKey(comp.ID, 50, 0)); err != nil {
			log.Printf("[Ranking] Не удалось сбросить кеш таблицы соревнования %d: %v", comp.ID, err)
		}
	}

	// Финализацию могут запустить несколько путей подряд - объявление
	// и письма уходят один раз, остальное у них идемпотентно и так
	announce := true
	if s.cacheRepo != nil {
		ok, err := s.cacheRepo.SetNX(fmt.Sprintf("finalized:%d", comp.ID), 1, 24*time.Hour)
		if err != nil {
			log.Printf("[Ranking] Не удалось взять замок объявления соревнования %d: %v", comp.ID, err)
		} else {
			announce = ok
		}
	}
	if !announce {
		return nil
	}

	if s.notifier != nil {
		s.notifier.BroadcastToCompetition(comp.ID, websocket.Event{
			Type: websocket.EventResultsAvailable,
			Data: map[string]interface{}{"competition_id": comp.ID},
		})
	}

	go s.notifyWinners(comp, results)

	return nil
}

// persistResults записывает результаты и начисляет награды в одной
// транзакции. Чтение уже начисленного идёт под замком строки
// соревнования: гонку финализаторов сериализует БД, второй расчёт
// видит коммит первого и перезаписывает результаты, не трогая
// балансы пользователей повторно.
func (s *RankingService) persistResults(tx *gorm.DB, competitionID uint, results []entity.CompetitionResult) error {
	existing, err := s.resultRepo.GetAllForAwardGuard(tx, competitionID)
	if err != nil {
		return err
	}
	alreadyAwarded := make(map[uint]bool, len(existing))
	for _, r := range existing {
		alreadyAwarded[r.UserID] = true
	}

	for i := range results {
		if err := s.resultRepo.Upsert(tx, &results[i]); err != nil {
			return err
		}
	}

	for i := range results {
		r := &results[i]
		if alreadyAwarded[r.UserID] {
			continue
		}
		if err := s.userRepo.ApplyAwards(tx, r.UserID, r.XPAwarded, r.PrizeAmount, r.TrophyAwarded, r.PrizeAmount > 0); err != nil {
			return err
		}
		if err := s.userRepo.IncrementGamesPlayed(tx, r.UserID); err != nil {
			return err
		}
	}
	return nil
}

// notifyWinners отправляет призёрам письма. Fire-and-forget: сбой
// почты не влияет на финализацию.
func (s *RankingService) notifyWinners(comp *entity.Competition, results []entity.CompetitionResult) {
	if s.emailService == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	for _, r := range results {
		if r.PrizeAmount == 0 {
			continue
		}
		user, err := s.userRepo.GetByID(r.UserID)
		if err != nil {
			log.Printf("[Ranking] Не удалось загрузить призёра %d: %v", r.UserID, err)
			continue
		}
		idempotencyKey := fmt.Sprintf("prize-%d-%d", comp.ID, r.UserID)
		if err := s.emailService.SendPrizeNotification(ctx, user.Email, comp.Name, r.Rank, r.PrizeAmount, idempotencyKey); err != nil {
			log.Printf("[Ranking] Не удалось отправить письмо призёру %d: %v", r.UserID, err)
		}
	}
}

// leaderboardCacheTTL - срок жизни снапшота таблицы в Redis
const leaderboardCacheTTL = time.Minute

// leaderboardPage - кешируемая страница таблицы результатов
type leaderboardPage struct {
	Results []entity.CompetitionResult `json:"results"`
	Total   int64                      `json:"total"`
}

// leaderboardCacheKey возвращает ключ снапшота страницы таблицы
func leaderboardCacheKey(competitionID uint, limit, offset int) string {
	return fmt.Sprintf("leaderboard:%d:%d:%d", competitionID, limit, offset)
}

// GetLeaderboard возвращает таблицу результатов соревнования.
// Страницы кешируются в Redis коротким TTL: после финализации таблица
// не меняется, а первую минуту после неё читает весь зал.
func (s *RankingService) GetLeaderboard(competitionID uint, limit, offset int) ([]entity.CompetitionResult, int64, error) {
	if limit <= 0 || limit > 100 {
		limit = 50
	}

	key := leaderboardCacheKey(competitionID, limit, offset)
	if s.cacheRepo != nil {
		var page leaderboardPage
		if err := s.cacheRepo.GetJSON(key, &page); err == nil {
			return page.Results, page.Total, nil
		}
	}

	results, total, err := s.resultRepo.GetCompetitionResults(competitionID, limit, offset)
	if err != nil {
		return nil, 0, err
	}

	if s.cacheRepo != nil {
		if err := s.cacheRepo.SetJSON(key, leaderboardPage{Results: results, Total: total}, leaderboardCacheTTL); err != nil {
			log.Printf("[Ranking] Не удалось закешировать таблицу соревнования %d: %v", competitionID, err)
		}
	}
	return results, total, nil
}

// GetUserResult возвращает результат участника
func (s *RankingService) GetUserResult(competitionID, userID uint) (*entity.CompetitionResult, error) {
	return s.resultRepo.GetUserResult(competitionID, userID)
}

// GetWinners возвращает призёров соревнования
func (s *RankingService) GetWinners(competitionID uint) ([]entity.CompetitionResult, error) {
	return s.resultRepo.GetWinners(competitionID)
}

// ExportLeaderboardXLSX выгружает итоговую таблицу соревнования в xlsx
func (s *RankingService) ExportLeaderboardXLSX(comp *entity.Competition) (*excelize.File, error) {
	results, err := s.resultRepo.GetAllCompetitionResults(comp.ID)
	if err != nil {
		return nil, err
	}

	f := excelize.NewFile()
	sheet := "Leaderboard"
	f.SetSheetName("Sheet1", sheet)

	headers := []string{"Rank", "Username", "Score", "Prize", "XP", "Trophy", "Completed At"}
	for i, h := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		f.SetCellValue(sheet, cell, h)
	}

	for row, r := range results {
		values := []interface{}{
			r.Rank,
			r.Username,
			r.Score,
			r.PrizeAmount,
			r.XPAwarded,
			r.TrophyAwarded,
			r.CompletedAt.Format(time.RFC3339),
		}
		for col, v := range values {
			cell, _ := excelize.CoordinatesToCellName(col+1, row+2)
			f.SetCellValue(sheet, cell, v)
		}
	}

	return f, nil
}
