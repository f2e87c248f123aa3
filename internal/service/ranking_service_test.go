package service

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/azamalidev/Kick-Expert-sub000/internal/domain/entity"
	"github.com/azamalidev/Kick-Expert-sub000/internal/service/competition"
)

func sealedSession(id, userID uint, correct int, endTime time.Time) entity.Session {
	s := entity.Session{
		CompetitionID:  1,
		UserID:         userID,
		CorrectAnswers: correct,
		EndTime:        &endTime,
	}
	s.ID = id
	return s
}

func TestRankSessions_TieBrokenByEndTime(t *testing.T) {
	// Arrange: трое набрали по 8, тай-брейк по моменту финиша
	base := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	sessions := []entity.Session{
		sealedSession(1, 10, 8, base.Add(3*time.Minute)),
		sealedSession(2, 20, 8, base.Add(1*time.Minute)),
		sealedSession(3, 30, 7, base.Add(5*time.Minute)),
		sealedSession(4, 40, 8, base.Add(2*time.Minute)),
		sealedSession(5, 50, 6, base.Add(4*time.Minute)),
	}

	// Act
	ranked := RankSessions(sessions)

	// Assert: сначала восьмёрки в порядке финиша, затем 7 и 6
	require.Len(t, ranked, 5)
	expectedUsers := []uint{20, 40, 10, 30, 50}
	for i, want := range expectedUsers {
		assert.Equal(t, want, ranked[i].UserID,
			"Позиция %d должна принадлежать пользователю %d", i+1, want)
	}
}

func TestRankSessions_DoesNotMutateInput(t *testing.T) {
	base := time.Now()
	sessions := []entity.Session{
		sealedSession(1, 10, 3, base.Add(2*time.Minute)),
		sealedSession(2, 20, 9, base.Add(1*time.Minute)),
	}

	_ = RankSessions(sessions)

	assert.Equal(t, uint(10), sessions[0].UserID, "Исходный срез не должен меняться")
	assert.Equal(t, uint(20), sessions[1].UserID, "Исходный срез не должен меняться")
}

func TestRankSessions_EqualEndTimeStableByID(t *testing.T) {
	// Arrange: полный тай - одинаковые очки и одинаковый endTime
	endTime := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	sessions := []entity.Session{
		sealedSession(9, 90, 5, endTime),
		sealedSession(3, 30, 5, endTime),
		sealedSession(6, 60, 5, endTime),
	}

	ranked := RankSessions(sessions)

	// Assert: порядок детерминирован - стабилизация по id сессии
	assert.Equal(t, uint(30), ranked[0].UserID, "При полном тае порядок фиксируется по id")
	assert.Equal(t, uint(60), ranked[1].UserID)
	assert.Equal(t, uint(90), ranked[2].UserID)

	again := RankSessions(sessions)
	for i := range ranked {
		assert.Equal(t, ranked[i].ID, again[i].ID, "Повторное ранжирование даёт тот же порядок")
	}
}

func TestRankSessions_NilEndTimeLast(t *testing.T) {
	endTime := time.Now()
	open := entity.Session{CompetitionID: 1, UserID: 10, CorrectAnswers: 5}
	open.ID = 1
	sessions := []entity.Session{
		open,
		sealedSession(2, 20, 5, endTime),
	}

	ranked := RankSessions(sessions)

	assert.Equal(t, uint(20), ranked[0].UserID, "Сессия без endTime опускается вниз при равных очках")
	assert.Equal(t, uint(10), ranked[1].UserID)
}

func TestRankSessions_RanksAreGapless(t *testing.T) {
	// Arrange: десять участников с повторяющимися очками
	base := time.Now()
	sessions := make([]entity.Session, 10)
	for i := range sessions {
		sessions[i] = sealedSession(uint(i+1), uint((i+1)*10), i%3, base.Add(time.Duration(i)*time.Second))
	}

	ranked := RankSessions(sessions)

	// Assert: позиции 1..N без пропусков и долей - ранг это индекс+1
	require.Len(t, ranked, 10)
	for i := 1; i < len(ranked); i++ {
		prev, cur := ranked[i-1], ranked[i]
		better := prev.CorrectAnswers > cur.CorrectAnswers ||
			(prev.CorrectAnswers == cur.CorrectAnswers && !prev.EndTime.After(*cur.EndTime))
		assert.True(t, better, "Позиция %d не должна обгонять позицию %d", i+1, i)
	}
}

func TestFinalization_AwardSplit(t *testing.T) {
	// Проверяем формулы наград, которые применяет финализация:
	// призёр получает XP за правильные ответы, остальные - стипендию
	config := competition.DefaultConfig()

	prizeConfig := competition.PrizeConfigForPlayers(40)
	pool := prizeConfig.Pool(40 * 10)

	winnerPrize := prizeConfig.PrizeForRank(pool, 1)
	assert.Greater(t, winnerPrize, 0, "Первое место в призах")
	assert.Equal(t, 8*config.XPPerCorrect, competition.XPForWinner(8, config.XPPerCorrect))

	loserPrize := prizeConfig.PrizeForRank(pool, prizeConfig.WinnerCount+1)
	assert.Equal(t, 0, loserPrize, "Вне призовых мест приз нулевой")
	assert.Equal(t, config.StipendPro, config.StipendFor(entity.CompetitionDifficultyPro),
		"Не-победитель получает стипендию по сложности")
}

// MockResultRepoForRanking - мок репозитория результатов
type MockResultRepoForRanking struct {
	mock.Mock
}

func (m *MockResultRepoForRanking) Upsert(tx *gorm.DB, result *entity.CompetitionResult) error {
	args := m.Called(tx, result)
	return args.Error(0)
}

func (m *MockResultRepoForRanking) GetAllForAwardGuard(tx *gorm.DB, competitionID uint) ([]entity.CompetitionResult, error) {
	args := m.Called(tx, competitionID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]entity.CompetitionResult), args.Error(1)
}

func (m *MockResultRepoForRanking) GetCompetitionResults(competitionID uint, limit, offset int) ([]entity.CompetitionResult, int64, error) {
	args := m.Called(competitionID, limit, offset)
	if args.Get(0) == nil {
		return nil, 0, args.Error(2)
	}
	return args.Get(0).([]entity.CompetitionResult), args.Get(1).(int64), args.Error(2)
}

func (m *MockResultRepoForRanking) GetAllCompetitionResults(competitionID uint) ([]entity.CompetitionResult, error) {
	args := m.Called(competitionID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]entity.CompetitionResult), args.Error(1)
}

func (m *MockResultRepoForRanking) GetUserResult(competitionID, userID uint) (*entity.CompetitionResult, error) {
	args := m.Called(competitionID, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entity.CompetitionResult), args.Error(1)
}

func (m *MockResultRepoForRanking) GetWinners(competitionID uint) ([]entity.CompetitionResult, error) {
	args := m.Called(competitionID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]entity.CompetitionResult), args.Error(1)
}

// MockUserRepoForRanking - мок репозитория пользователей
type MockUserRepoForRanking struct {
	mock.Mock
}

func (m *MockUserRepoForRanking) Create(user *entity.User) error {
	args := m.Called(user)
	return args.Error(0)
}

func (m *MockUserRepoForRanking) GetByID(id uint) (*entity.User, error) {
	args := m.Called(id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entity.User), args.Error(1)
}

func (m *MockUserRepoForRanking) GetByEmail(email string) (*entity.User, error) {
	args := m.Called(email)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entity.User), args.Error(1)
}

func (m *MockUserRepoForRanking) GetByIDs(ids []uint) ([]entity.User, error) {
	args := m.Called(ids)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]entity.User), args.Error(1)
}

func (m *MockUserRepoForRanking) ApplyAwards(tx *gorm.DB, userID uint, xp int, prize int, trophy bool, won bool) error {
	args := m.Called(tx, userID, xp, prize, trophy, won)
	return args.Error(0)
}

func (m *MockUserRepoForRanking) IncrementGamesPlayed(tx *gorm.DB, userID uint) error {
	args := m.Called(tx, userID)
	return args.Error(0)
}

func rankingResult(userID uint, rank, score, prize, xp int) entity.CompetitionResult {
	return entity.CompetitionResult{
		CompetitionID: 1,
		UserID:        userID,
		Rank:          rank,
		Score:         score,
		PrizeAmount:   prize,
		XPAwarded:     xp,
		TrophyAwarded: rank == 1,
	}
}

func TestPersistResults_FirstFinalizeAwardsEveryone(t *testing.T) {
	// Arrange: результатов ещё нет - награды начисляются всем
	resultRepo := new(MockResultRepoForRanking)
	userRepo := new(MockUserRepoForRanking)
	rankingService := NewRankingService(nil, competition.DefaultConfig(), nil, resultRepo, userRepo, nil, nil, nil, nil)

	results := []entity.CompetitionResult{
		rankingResult(10, 1, 8, 32, 40),
		rankingResult(20, 2, 7, 20, 35),
	}

	var tx *gorm.DB
	resultRepo.On("GetAllForAwardGuard", tx, uint(1)).Return([]entity.CompetitionResult{}, nil)
	resultRepo.On("Upsert", tx, mock.AnythingOfType("*entity.CompetitionResult")).Return(nil).Twice()
	userRepo.On("ApplyAwards", tx, uint(10), 40, 32, true, true).Return(nil).Once()
	userRepo.On("ApplyAwards", tx, uint(20), 35, 20, false, true).Return(nil).Once()
	userRepo.On("IncrementGamesPlayed", tx, uint(10)).Return(nil).Once()
	userRepo.On("IncrementGamesPlayed", tx, uint(20)).Return(nil).Once()

	// Act
	err := rankingService.persistResults(tx, 1, results)

	// Assert
	require.NoError(t, err)
	resultRepo.AssertExpectations(t)
	userRepo.AssertExpectations(t)
}

func TestPersistResults_RepeatFinalizeDoesNotReapplyAwards(t *testing.T) {
	// Arrange: повторная финализация (гонка таймера, последнего ответа
	// и зачистки) видит под замком результаты первого расчёта
	resultRepo := new(MockResultRepoForRanking)
	userRepo := new(MockUserRepoForRanking)
	rankingService := NewRankingService(nil, competition.DefaultConfig(), nil, resultRepo, userRepo, nil, nil, nil, nil)

	results := []entity.CompetitionResult{
		rankingResult(10, 1, 8, 32, 40),
		rankingResult(20, 2, 7, 20, 35),
	}

	var tx *gorm.DB
	resultRepo.On("GetAllForAwardGuard", tx, uint(1)).Return(results, nil)
	resultRepo.On("Upsert", tx, mock.AnythingOfType("*entity.CompetitionResult")).Return(nil).Twice()

	// Act
	err := rankingService.persistResults(tx, 1, results)

	// Assert: результаты перезаписаны, балансы не тронуты
	require.NoError(t, err)
	resultRepo.AssertExpectations(t)
	userRepo.AssertNotCalled(t, "ApplyAwards", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	userRepo.AssertNotCalled(t, "IncrementGamesPlayed", mock.Anything, mock.Anything)
}

func TestPersistResults_LateSealAwardsOnlyNewcomer(t *testing.T) {
	// Arrange: первый расчёт наградил двоих, дозапечатавшаяся сессия
	// добавила третьего - награды идут только ему
	resultRepo := new(MockResultRepoForRanking)
	userRepo := new(MockUserRepoForRanking)
	rankingService := NewRankingService(nil, competition.DefaultConfig(), nil, resultRepo, userRepo, nil, nil, nil, nil)

	existing := []entity.CompetitionResult{
		rankingResult(10, 1, 8, 32, 40),
		rankingResult(20, 2, 7, 20, 35),
	}
	recomputed := []entity.CompetitionResult{
		rankingResult(10, 1, 8, 32, 40),
		rankingResult(20, 2, 7, 20, 35),
		rankingResult(30, 3, 5, 13, 25),
	}

	var tx *gorm.DB
	resultRepo.On("GetAllForAwardGuard", tx, uint(1)).Return(existing, nil)
	resultRepo.On("Upsert", tx, mock.AnythingOfType("*entity.CompetitionResult")).Return(nil).Times(3)
	userRepo.On("ApplyAwards", tx, uint(30), 25, 13, false, true).Return(nil).Once()
	userRepo.On("IncrementGamesPlayed", tx, uint(30)).Return(nil).Once()

	// Act
	err := rankingService.persistResults(tx, 1, recomputed)

	// Assert
	require.NoError(t, err)
	userRepo.AssertExpectations(t)
	userRepo.AssertNotCalled(t, "ApplyAwards", tx, uint(10), mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	userRepo.AssertNotCalled(t, "ApplyAwards", tx, uint(20), mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}
