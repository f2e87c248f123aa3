package handler

import (
	"bytes"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/azamalidev/Kick-Expert-sub000/internal/domain/entity"
	"github.com/azamalidev/Kick-Expert-sub000/internal/domain/repository"
	"github.com/azamalidev/Kick-Expert-sub000/internal/handler/dto"
	"github.com/azamalidev/Kick-Expert-sub000/internal/middleware"
	apperrors "github.com/azamalidev/Kick-Expert-sub000/internal/pkg/errors"
	"github.com/azamalidev/Kick-Expert-sub000/internal/service"
	"github.com/azamalidev/Kick-Expert-sub000/internal/service/competition"
)

// CompetitionHandler обрабатывает запросы движка соревнований
type CompetitionHandler struct {
	competitionRepo    repository.CompetitionRepository
	registrationRepo   repository.RegistrationRepository
	questionService    *service.QuestionService
	rankingService     *service.RankingService
	competitionManager *service.CompetitionManager
}

// NewCompetitionHandler создает новый обработчик соревнований
func NewCompetitionHandler(
	competitionRepo repository.CompetitionRepository,
	registrationRepo repository.RegistrationRepository,
	questionService *service.QuestionService,
	rankingService *service.RankingService,
	competitionManager *service.CompetitionManager,
) *CompetitionHandler {
	return &CompetitionHandler{
		competitionRepo:    competitionRepo,
		registrationRepo:   registrationRepo,
		questionService:    questionService,
		rankingService:     rankingService,
		competitionManager: competitionManager,
	}
}

// ListCompetitions возвращает список соревнований с фильтрами
func (h *CompetitionHandler) ListCompetitions(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))
	if limit <= 0 || limit > 100 {
		limit = 20
	}

	filters := repository.CompetitionFilters{
		Status: c.Query("status"),
		Search: c.Query("search"),
	}

	competitions, total, err := h.competitionRepo.ListWithFilters(filters, limit, offset)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to list competitions"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"competitions": dto.NewCompetitionListResponse(competitions),
		"total":        total,
	})
}

// GetCompetition возвращает соревнование по ID
func (h *CompetitionHandler) GetCompetition(c *gin.Context) {
	competitionID := c.MustGet(middleware.ContextCompetitionID).(uint)

	comp, err := h.competitionRepo.GetByID(competitionID)
	if err != nil {
		h.handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.NewCompetitionResponse(comp))
}

// Register регистрирует пользователя в соревновании.
// Списание взноса выполняет платёжная подсистема; здесь регистрация
// помечается оплаченной сразу.
func (h *CompetitionHandler) Register(c *gin.Context) {
	competitionID := c.MustGet(middleware.ContextCompetitionID).(uint)
	userID := c.MustGet(middleware.ContextUserID).(uint)

	comp, err := h.competitionRepo.GetByID(competitionID)
	if err != nil {
		h.handleError(c, err)
		return
	}
	if !comp.IsUpcoming() {
		c.JSON(http.StatusConflict, gin.H{"error": "Registration is closed"})
		return
	}

	registration := &entity.Registration{
		CompetitionID: competitionID,
		UserID:        userID,
		Paid:          true,
	}
	if err := h.registrationRepo.Create(registration); err != nil {
		if errors.Is(err, apperrors.ErrConflict) {
			c.JSON(http.StatusConflict, gin.H{"error": "Already registered"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to register"})
		return
	}

	c.JSON(http.StatusCreated, gin.H{"message": "Registered", "competition_id": competitionID})
}

// Enter обрабатывает вход участника: возвращает снимок состояния
// (фаза, текущий слот, оставшиеся секунды, восстановленные ответы)
func (h *CompetitionHandler) Enter(c *gin.Context) {
	competitionID := c.MustGet(middleware.ContextCompetitionID).(uint)
	userID := c.MustGet(middleware.ContextUserID).(uint)

	snapshot, err := h.competitionManager.Enter(c.Request.Context(), competitionID, userID)
	if err != nil {
		h.handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, snapshot)
}

// GetQuestions возвращает последовательность вопросов соревнования
// (без правильных ответов). Доступно только после старта.
func (h *CompetitionHandler) GetQuestions(c *gin.Context) {
	competitionID := c.MustGet(middleware.ContextCompetitionID).(uint)
	userID := c.MustGet(middleware.ContextUserID).(uint)

	comp, err := h.competitionRepo.GetByID(competitionID)
	if err != nil {
		h.handleError(c, err)
		return
	}

	registered, err := h.registrationRepo.IsRegistered(competitionID, userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to verify registration"})
		return
	}
	if !registered {
		h.handleError(c, apperrors.ErrNotRegistered)
		return
	}

	if comp.IsUpcoming() {
		h.handleError(c, apperrors.ErrCompetitionNotStarted)
		return
	}

	questions, err := h.questionService.GetCompetitionQuestions(comp)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load questions"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"questions": dto.NewQuestionListResponse(questions)})
}

// SubmitAnswer записывает ответ на вопрос текущего слота
func (h *CompetitionHandler) SubmitAnswer(c *gin.Context) {
	competitionID := c.MustGet(middleware.ContextCompetitionID).(uint)
	userID := c.MustGet(middleware.ContextUserID).(uint)

	var req dto.SubmitAnswerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	result, err := h.competitionManager.SubmitAnswer(c.Request.Context(), competitionID, userID, req.QuestionID, *req.Choice)
	if err != nil {
		h.handleError(c, err)
		return
	}

	// Отклонённая отправка - обработанный исход, не ошибка HTTP:
	// участник может повторить в пределах оставшегося времени слота
	c.JSON(http.StatusOK, result)
}

// GetLeaderboard возвращает таблицу результатов соревнования
func (h *CompetitionHandler) GetLeaderboard(c *gin.Context) {
	competitionID := c.MustGet(middleware.ContextCompetitionID).(uint)
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))

	results, total, err := h.rankingService.GetLeaderboard(competitionID, limit, offset)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load leaderboard"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"results": dto.NewLeaderboardResponse(results),
		"total":   total,
	})
}

// GetWinners возвращает призёров соревнования
func (h *CompetitionHandler) GetWinners(c *gin.Context) {
	competitionID := c.MustGet(middleware.ContextCompetitionID).(uint)

	winners, err := h.rankingService.GetWinners(competitionID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load winners"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"winners": dto.NewLeaderboardResponse(winners)})
}

// GetMyResult возвращает результат текущего участника
func (h *CompetitionHandler) GetMyResult(c *gin.Context) {
	competitionID := c.MustGet(middleware.ContextCompetitionID).(uint)
	userID := c.MustGet(middleware.ContextUserID).(uint)

	result, err := h.rankingService.GetUserResult(competitionID, userID)
	if err != nil {
		h.handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.NewLeaderboardResponse([]entity.CompetitionResult{*result})[0])
}

// ExportLeaderboard выгружает итоговую таблицу в xlsx
func (h *CompetitionHandler) ExportLeaderboard(c *gin.Context) {
	competitionID := c.MustGet(middleware.ContextCompetitionID).(uint)

	comp, err := h.competitionRepo.GetByID(competitionID)
	if err != nil {
		h.handleError(c, err)
		return
	}

	file, err := h.rankingService.ExportLeaderboardXLSX(comp)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to export leaderboard"})
		return
	}

	var buf bytes.Buffer
	if err := file.Write(&buf); err != nil {
		log.Printf("[CompetitionHandler] Не удалось записать xlsx: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to write export"})
		return
	}

	filename := fmt.Sprintf("leaderboard_%d.xlsx", competitionID)
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%s", filename))
	c.Data(http.StatusOK, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", buf.Bytes())
}

// handleError транслирует ошибки движка в HTTP-статусы
func (h *CompetitionHandler) handleError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, apperrors.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "Not found"})
	case errors.Is(err, apperrors.ErrNotRegistered):
		c.JSON(http.StatusForbidden, gin.H{"error": "Not registered for this competition"})
	case errors.Is(err, apperrors.ErrCompetitionEnded):
		c.JSON(http.StatusConflict, gin.H{"error": "Competition has ended", "reason": competition.ReasonCompetitionEnded})
	case errors.Is(err, apperrors.ErrCompetitionNotStarted):
		c.JSON(http.StatusConflict, gin.H{"error": "Competition has not started", "reason": competition.ReasonNotStarted})
	case errors.Is(err, apperrors.ErrSessionClosed):
		c.JSON(http.StatusConflict, gin.H{"error": "Session is closed", "reason": competition.ReasonSessionClosed})
	case errors.Is(err, apperrors.ErrValidation):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, apperrors.ErrPersistenceFailure):
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Temporary storage failure, retry"})
	default:
		log.Printf("[CompetitionHandler] Внутренняя ошибка: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
	}
}
