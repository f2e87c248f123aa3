package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/azamalidev/Kick-Expert-sub000/internal/domain/entity"
	"github.com/azamalidev/Kick-Expert-sub000/internal/domain/repository"
	apperrors "github.com/azamalidev/Kick-Expert-sub000/internal/pkg/errors"
	"github.com/azamalidev/Kick-Expert-sub000/internal/service/competition"
)

// MockCompetitionRepoForManager - мок репозитория соревнований
type MockCompetitionRepoForManager struct {
	mock.Mock
}

func (m *MockCompetitionRepoForManager) Create(c *entity.Competition) error {
	args := m.Called(c)
	return args.Error(0)
}

func (m *MockCompetitionRepoForManager) GetByID(id uint) (*entity.Competition, error) {
	args := m.Called(id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entity.Competition), args.Error(1)
}

func (m *MockCompetitionRepoForManager) GetRunning() ([]entity.Competition, error) {
	args := m.Called()
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]entity.Competition), args.Error(1)
}

func (m *MockCompetitionRepoForManager) GetUpcoming() ([]entity.Competition, error) {
	args := m.Called()
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]entity.Competition), args.Error(1)
}

func (m *MockCompetitionRepoForManager) UpdateStatus(competitionID uint, status string) error {
	args := m.Called(competitionID, status)
	return args.Error(0)
}

func (m *MockCompetitionRepoForManager) ListWithFilters(filters repository.CompetitionFilters, limit, offset int) ([]entity.Competition, int64, error) {
	args := m.Called(filters, limit, offset)
	if args.Get(0) == nil {
		return nil, 0, args.Error(2)
	}
	return args.Get(0).([]entity.Competition), args.Get(1).(int64), args.Error(2)
}

// MockSessionRepoForManager - мок репозитория сессий
type MockSessionRepoForManager struct {
	mock.Mock
}

func (m *MockSessionRepoForManager) Create(session *entity.Session) error {
	args := m.Called(session)
	return args.Error(0)
}

func (m *MockSessionRepoForManager) GetByID(id uint) (*entity.Session, error) {
	args := m.Called(id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entity.Session), args.Error(1)
}

func (m *MockSessionRepoForManager) GetByCompetitionAndUser(competitionID, userID uint) (*entity.Session, error) {
	args := m.Called(competitionID, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entity.Session), args.Error(1)
}

func (m *MockSessionRepoForManager) Seal(sessionID uint, endTime time.Time, correctAnswers int, scorePercentage float64, missedQuestions int) (*entity.Session, error) {
	args := m.Called(sessionID, endTime, correctAnswers, scorePercentage, missedQuestions)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entity.Session), args.Error(1)
}

func (m *MockSessionRepoForManager) GetSealedByCompetition(competitionID uint) ([]entity.Session, error) {
	args := m.Called(competitionID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]entity.Session), args.Error(1)
}

func (m *MockSessionRepoForManager) GetOpenByCompetition(competitionID uint) ([]entity.Session, error) {
	args := m.Called(competitionID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]entity.Session), args.Error(1)
}

func (m *MockSessionRepoForManager) CountOpenByCompetition(competitionID uint) (int64, error) {
	args := m.Called(competitionID)
	return args.Get(0).(int64), args.Error(1)
}

// MockAnswerRepoForManager - мок репозитория ответов
type MockAnswerRepoForManager struct {
	mock.Mock
}

func (m *MockAnswerRepoForManager) Save(answer *entity.AnswerRecord) error {
	args := m.Called(answer)
	return args.Error(0)
}

func (m *MockAnswerRepoForManager) GetBySession(sessionID uint) ([]entity.AnswerRecord, error) {
	args := m.Called(sessionID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]entity.AnswerRecord), args.Error(1)
}

// MockRegistrationRepoForManager - мок репозитория регистраций
type MockRegistrationRepoForManager struct {
	mock.Mock
}

func (m *MockRegistrationRepoForManager) Create(registration *entity.Registration) error {
	args := m.Called(registration)
	return args.Error(0)
}

func (m *MockRegistrationRepoForManager) IsRegistered(competitionID, userID uint) (bool, error) {
	args := m.Called(competitionID, userID)
	return args.Bool(0), args.Error(1)
}

func (m *MockRegistrationRepoForManager) CountByCompetition(competitionID uint) (int64, error) {
	args := m.Called(competitionID)
	return args.Get(0).(int64), args.Error(1)
}

// MockFlaggedRepoForManager - мок журнала анти-чит срабатываний
type MockFlaggedRepoForManager struct {
	mock.Mock
}

func (m *MockFlaggedRepoForManager) Save(action *entity.FlaggedAction) error {
	args := m.Called(action)
	return args.Error(0)
}

func (m *MockFlaggedRepoForManager) ListByCompetition(competitionID uint) ([]entity.FlaggedAction, error) {
	args := m.Called(competitionID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]entity.FlaggedAction), args.Error(1)
}

// MockCacheRepoForManager - мок кеша
type MockCacheRepoForManager struct {
	mock.Mock
}

func (m *MockCacheRepoForManager) Set(key string, value interface{}, expiration time.Duration) error {
	args := m.Called(key, value, expiration)
	return args.Error(0)
}

func (m *MockCacheRepoForManager) Delete(key string) error {
	args := m.Called(key)
	return args.Error(0)
}

func (m *MockCacheRepoForManager) SetJSON(key string, value interface{}, expiration time.Duration) error {
	args := m.Called(key, value, expiration)
	return args.Error(0)
}

func (m *MockCacheRepoForManager) GetJSON(key string, dest interface{}) error {
	args := m.Called(key, dest)
	return args.Error(0)
}

func (m *MockCacheRepoForManager) SetNX(key string, value interface{}, expiration time.Duration) (bool, error) {
	args := m.Called(key, value, expiration)
	return args.Bool(0), args.Error(1)
}

func (m *MockCacheRepoForManager) SAdd(key string, member interface{}) error {
	args := m.Called(key, member)
	return args.Error(0)
}

func (m *MockCacheRepoForManager) SMembers(key string) ([]string, error) {
	args := m.Called(key)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]string), args.Error(1)
}

func (m *MockCacheRepoForManager) HIncrBy(key, field string, delta int64) (int64, error) {
	args := m.Called(key, field, delta)
	return args.Get(0).(int64), args.Error(1)
}

// managerFixture собирает менеджер с моками всех зависимостей
type managerFixture struct {
	manager         *CompetitionManager
	competitionRepo *MockCompetitionRepoForManager
	sessionRepo     *MockSessionRepoForManager
	answerRepo      *MockAnswerRepoForManager
	questionRepo    *MockQuestionRepoForQuestions
	registration    *MockRegistrationRepoForManager
	flaggedRepo     *MockFlaggedRepoForManager
	cacheRepo       *MockCacheRepoForManager
}

func newManagerFixture() *managerFixture {
	f := &managerFixture{
		competitionRepo: new(MockCompetitionRepoForManager),
		sessionRepo:     new(MockSessionRepoForManager),
		answerRepo:      new(MockAnswerRepoForManager),
		questionRepo:    new(MockQuestionRepoForQuestions),
		registration:    new(MockRegistrationRepoForManager),
		flaggedRepo:     new(MockFlaggedRepoForManager),
		cacheRepo:       new(MockCacheRepoForManager),
	}

	config := competition.DefaultConfig()
	// Тесты не должны зависеть от тиков ре-синхронизации
	config.ResyncInterval = time.Hour

	deps := &competition.Dependencies{
		CompetitionRepo:  f.competitionRepo,
		SessionRepo:      f.sessionRepo,
		AnswerRepo:       f.answerRepo,
		QuestionRepo:     f.questionRepo,
		RegistrationRepo: f.registration,
		FlaggedRepo:      f.flaggedRepo,
		CacheRepo:        f.cacheRepo,
	}

	questionService := NewQuestionService(f.questionRepo)
	f.manager = NewCompetitionManager(config, deps, questionService, nil)
	return f
}

func managerCompetition(id uint, status string, startTime time.Time, questionCount int) *entity.Competition {
	comp := &entity.Competition{
		Name:            "Вечерняя викторина",
		StartTime:       startTime,
		Status:          status,
		QuestionCount:   questionCount,
		SlotDurationSec: 30,
		EntryFee:        10,
		Difficulty:      entity.CompetitionDifficultyStarter,
	}
	comp.ID = id
	return comp
}

func TestEnter_BeforeStart_WaitingRoom(t *testing.T) {
	// Arrange: соревнование стартует через 5 минут
	f := newManagerFixture()
	comp := managerCompetition(1, entity.CompetitionStatusUpcoming, time.Now().Add(5*time.Minute), 10)

	f.competitionRepo.On("GetByID", uint(1)).Return(comp, nil)
	f.registration.On("IsRegistered", uint(1), uint(7)).Return(true, nil)
	f.cacheRepo.On("SAdd", "competition:1:waiting_room", uint(7)).Return(nil)
	f.cacheRepo.On("SMembers", "competition:1:waiting_room").Return([]string{"5", "6", "7"}, nil)

	// Act
	snapshot, err := f.manager.Enter(context.Background(), 1, 7)

	// Assert
	require.NoError(t, err)
	assert.Equal(t, competition.PhaseWaiting, snapshot.Phase)
	assert.Equal(t, -1, snapshot.CurrentSlot, "До старта текущего слота нет")
	assert.Equal(t, 3, snapshot.WaitingCount)
	assert.False(t, snapshot.Ended)
	f.cacheRepo.AssertExpectations(t)
}

func TestEnter_CancelledCompetition(t *testing.T) {
	f := newManagerFixture()
	comp := managerCompetition(1, entity.CompetitionStatusCancelled, time.Now().Add(-time.Minute), 10)
	f.competitionRepo.On("GetByID", uint(1)).Return(comp, nil)

	snapshot, err := f.manager.Enter(context.Background(), 1, 7)

	assert.ErrorIs(t, err, apperrors.ErrCompetitionEnded, "Отменённое соревнование недоступно для входа")
	assert.Nil(t, snapshot)
}

func TestEnter_NotRegistered(t *testing.T) {
	f := newManagerFixture()
	comp := managerCompetition(1, entity.CompetitionStatusUpcoming, time.Now().Add(5*time.Minute), 10)
	f.competitionRepo.On("GetByID", uint(1)).Return(comp, nil)
	f.registration.On("IsRegistered", uint(1), uint(7)).Return(false, nil)

	snapshot, err := f.manager.Enter(context.Background(), 1, 7)

	assert.ErrorIs(t, err, apperrors.ErrNotRegistered)
	assert.Nil(t, snapshot)
	f.cacheRepo.AssertNotCalled(t, "SAdd", mock.Anything, mock.Anything)
}

func TestEnter_FirstEntryAfterStart(t *testing.T) {
	// Arrange: соревнование началось 10 секунд назад и ещё числится upcoming
	f := newManagerFixture()
	comp := managerCompetition(1, entity.CompetitionStatusUpcoming, time.Now().Add(-10*time.Second), 10)

	f.competitionRepo.On("GetByID", uint(1)).Return(comp, nil)
	f.competitionRepo.On("UpdateStatus", uint(1), entity.CompetitionStatusRunning).Return(nil)
	f.registration.On("IsRegistered", uint(1), uint(7)).Return(true, nil)
	f.sessionRepo.On("GetByCompetitionAndUser", uint(1), uint(7)).Return(nil, apperrors.ErrNotFound)

	// Act
	snapshot, err := f.manager.Enter(context.Background(), 1, 7)

	// Assert: первый вход после старта - фаза quiz, слот 0, сессии нет
	require.NoError(t, err)
	assert.Equal(t, competition.PhaseQuiz, snapshot.Phase)
	assert.Equal(t, 0, snapshot.CurrentSlot)
	assert.False(t, snapshot.LateJoiner)
	assert.Empty(t, snapshot.SessionPublicID, "Сессия создаётся лениво, не при входе")
	f.competitionRepo.AssertCalled(t, "UpdateStatus", uint(1), entity.CompetitionStatusRunning)
}

func TestEnter_AfterEndWithoutSession(t *testing.T) {
	// Arrange: соревнование закончилось, участник так и не сыграл
	f := newManagerFixture()
	comp := managerCompetition(1, entity.CompetitionStatusRunning, time.Now().Add(-10*time.Minute), 10)

	f.competitionRepo.On("GetByID", uint(1)).Return(comp, nil)
	f.registration.On("IsRegistered", uint(1), uint(7)).Return(true, nil)
	f.sessionRepo.On("GetByCompetitionAndUser", uint(1), uint(7)).Return(nil, apperrors.ErrNotFound)

	snapshot, err := f.manager.Enter(context.Background(), 1, 7)

	require.NoError(t, err)
	assert.Equal(t, competition.PhaseResults, snapshot.Phase)
	assert.True(t, snapshot.Ended)
	f.sessionRepo.AssertNotCalled(t, "Create", mock.Anything)
}

func TestSubmitAnswer_BeforeStart(t *testing.T) {
	f := newManagerFixture()
	comp := managerCompetition(1, entity.CompetitionStatusUpcoming, time.Now().Add(5*time.Minute), 10)
	f.competitionRepo.On("GetByID", uint(1)).Return(comp, nil)
	f.registration.On("IsRegistered", uint(1), uint(7)).Return(true, nil)

	result, err := f.manager.SubmitAnswer(context.Background(), 1, 7, 100, 0)

	require.NoError(t, err)
	assert.False(t, result.Accepted)
	assert.Equal(t, competition.ReasonNotStarted, result.Reason)
}

func TestSubmitAnswer_LazySessionCreation(t *testing.T) {
	// Arrange: слот 0 открыт, сессии ещё нет - она создаётся первым ответом
	f := newManagerFixture()
	comp := managerCompetition(1, entity.CompetitionStatusRunning, time.Now().Add(-5*time.Second), 5)

	f.questionRepo.On("GetByDifficulty", entity.CompetitionDifficultyStarter, 5).
		Return(questionBank(5), nil)

	questionService := NewQuestionService(f.questionRepo)
	questions, err := questionService.GetCompetitionQuestions(comp)
	require.NoError(t, err)
	current := questions[0]

	f.competitionRepo.On("GetByID", uint(1)).Return(comp, nil)
	f.registration.On("IsRegistered", uint(1), uint(7)).Return(true, nil)
	f.sessionRepo.On("GetByCompetitionAndUser", uint(1), uint(7)).Return(nil, apperrors.ErrNotFound).Once()
	f.sessionRepo.On("Create", mock.AnythingOfType("*entity.Session")).Run(func(args mock.Arguments) {
		session := args.Get(0).(*entity.Session)
		session.ID = 42
	}).Return(nil).Once()
	f.answerRepo.On("Save", mock.AnythingOfType("*entity.AnswerRecord")).Return(nil).Once()

	// Act
	result, err := f.manager.SubmitAnswer(context.Background(), 1, 7, current.ID, current.CorrectChoice)

	// Assert
	require.NoError(t, err)
	assert.True(t, result.Accepted)
	assert.True(t, result.IsCorrect)
	assert.Equal(t, competition.ReasonAccepted, result.Reason)
	assert.False(t, result.SessionSealed, "Слот 0 из 5 не завершает сессию")
	f.sessionRepo.AssertExpectations(t)
	f.answerRepo.AssertExpectations(t)
}

func TestSubmitAnswer_TwoTabsRaceOnSessionCreate(t *testing.T) {
	// Arrange: вторая вкладка проигрывает гонку создания сессии - Create
	// отбивается уникальным индексом, существующая сессия перечитывается
	f := newManagerFixture()
	comp := managerCompetition(1, entity.CompetitionStatusRunning, time.Now().Add(-5*time.Second), 5)

	f.questionRepo.On("GetByDifficulty", entity.CompetitionDifficultyStarter, 5).
		Return(questionBank(5), nil)

	questionService := NewQuestionService(f.questionRepo)
	questions, err := questionService.GetCompetitionQuestions(comp)
	require.NoError(t, err)
	current := questions[0]

	existing := &entity.Session{
		PublicID:      "existing-session",
		CompetitionID: 1,
		UserID:        7,
		StartTime:     time.Now(),
	}
	existing.ID = 42

	f.competitionRepo.On("GetByID", uint(1)).Return(comp, nil)
	f.registration.On("IsRegistered", uint(1), uint(7)).Return(true, nil)
	f.sessionRepo.On("GetByCompetitionAndUser", uint(1), uint(7)).Return(nil, apperrors.ErrNotFound).Once()
	f.sessionRepo.On("Create", mock.AnythingOfType("*entity.Session")).Return(apperrors.ErrConflict).Once()
	f.sessionRepo.On("GetByCompetitionAndUser", uint(1), uint(7)).Return(existing, nil).Once()
	// Сессия не новая - восстановление перечитывает журнал (слот 0 открыт,
	// синтезировать нечего)
	f.answerRepo.On("GetBySession", uint(42)).Return([]entity.AnswerRecord{}, nil)
	f.answerRepo.On("Save", mock.AnythingOfType("*entity.AnswerRecord")).Return(nil).Once()

	// Act
	result, err := f.manager.SubmitAnswer(context.Background(), 1, 7, current.ID, current.CorrectChoice)

	// Assert
	require.NoError(t, err)
	assert.True(t, result.Accepted)
	f.sessionRepo.AssertExpectations(t)
}

func TestSubmitAnswer_WrongSlotQuestion(t *testing.T) {
	// Arrange: клиент шлёт вопрос не текущего слота
	f := newManagerFixture()
	comp := managerCompetition(1, entity.CompetitionStatusRunning, time.Now().Add(-5*time.Second), 5)

	f.questionRepo.On("GetByDifficulty", entity.CompetitionDifficultyStarter, 5).
		Return(questionBank(5), nil)

	questionService := NewQuestionService(f.questionRepo)
	questions, err := questionService.GetCompetitionQuestions(comp)
	require.NoError(t, err)
	wrong := questions[3]

	f.competitionRepo.On("GetByID", uint(1)).Return(comp, nil)
	f.registration.On("IsRegistered", uint(1), uint(7)).Return(true, nil)
	f.sessionRepo.On("GetByCompetitionAndUser", uint(1), uint(7)).Return(nil, apperrors.ErrNotFound).Once()
	f.sessionRepo.On("Create", mock.AnythingOfType("*entity.Session")).Run(func(args mock.Arguments) {
		args.Get(0).(*entity.Session).ID = 42
	}).Return(nil).Once()

	// Act
	result, err := f.manager.SubmitAnswer(context.Background(), 1, 7, wrong.ID, 0)

	// Assert: отклонение без обращения к журналу
	require.NoError(t, err)
	assert.False(t, result.Accepted)
	assert.Equal(t, competition.ReasonSlotNotOpen, result.Reason)
	f.answerRepo.AssertNotCalled(t, "Save", mock.Anything)
}

func TestSubmitAnswer_CompletedCompetition(t *testing.T) {
	f := newManagerFixture()
	comp := managerCompetition(1, entity.CompetitionStatusCompleted, time.Now().Add(-time.Hour), 5)
	f.competitionRepo.On("GetByID", uint(1)).Return(comp, nil)

	result, err := f.manager.SubmitAnswer(context.Background(), 1, 7, 100, 0)

	assert.ErrorIs(t, err, apperrors.ErrCompetitionEnded)
	assert.Nil(t, result)
}
