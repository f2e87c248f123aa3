package dto

import (
	"time"

	"github.com/azamalidev/Kick-Expert-sub000/internal/domain/entity"
)

// CompetitionResponse - представление соревнования для клиента
type CompetitionResponse struct {
	ID              uint      `json:"id"`
	Name            string    `json:"name"`
	Description     string    `json:"description"`
	StartTime       time.Time `json:"start_time"`
	EndTime         time.Time `json:"end_time"`
	Status          string    `json:"status"`
	QuestionCount   int       `json:"question_count"`
	SlotDurationSec int       `json:"slot_duration_sec"`
	EntryFee        int       `json:"entry_fee"`
	Difficulty      string    `json:"difficulty"`
}

// NewCompetitionResponse преобразует сущность в ответ API
func NewCompetitionResponse(c *entity.Competition) CompetitionResponse {
	return CompetitionResponse{
		ID:              c.ID,
		Name:            c.Name,
		Description:     c.Description,
		StartTime:       c.StartTime,
		EndTime:         c.EndTime(),
		Status:          c.Status,
		QuestionCount:   c.QuestionCount,
		SlotDurationSec: c.SlotDurationSec,
		EntryFee:        c.EntryFee,
		Difficulty:      c.Difficulty,
	}
}

// NewCompetitionListResponse преобразует список сущностей
func NewCompetitionListResponse(competitions []entity.Competition) []CompetitionResponse {
	out := make([]CompetitionResponse, len(competitions))
	for i := range competitions {
		out[i] = NewCompetitionResponse(&competitions[i])
	}
	return out
}

// QuestionResponse - вопрос без правильного ответа.
// CorrectChoice намеренно не сериализуется: правильный вариант
// никогда не покидает сервер до закрытия слота.
type QuestionResponse struct {
	ID        uint     `json:"id"`
	SlotIndex int      `json:"slot_index"`
	Text      string   `json:"text"`
	Choices   []string `json:"choices"`
	Category  string   `json:"category"`
}

// NewQuestionListResponse преобразует последовательность вопросов
func NewQuestionListResponse(questions []entity.Question) []QuestionResponse {
	out := make([]QuestionResponse, len(questions))
	for i := range questions {
		out[i] = QuestionResponse{
			ID:        questions[i].ID,
			SlotIndex: i,
			Text:      questions[i].Text,
			Choices:   []string(questions[i].Choices),
			Category:  questions[i].Category,
		}
	}
	return out
}

// SubmitAnswerRequest - запрос на отправку ответа
type SubmitAnswerRequest struct {
	QuestionID uint `json:"question_id" binding:"required"`
	Choice     *int `json:"choice" binding:"required"`
}

// LeaderboardEntryResponse - строка таблицы результатов
type LeaderboardEntryResponse struct {
	Rank          int       `json:"rank"`
	UserID        uint      `json:"user_id"`
	Username      string    `json:"username"`
	Score         int       `json:"score"`
	PrizeAmount   int       `json:"prize_amount"`
	XPAwarded     int       `json:"xp_awarded"`
	TrophyAwarded bool      `json:"trophy_awarded"`
	CompletedAt   time.Time `json:"completed_at"`
}

// NewLeaderboardResponse преобразует результаты в строки таблицы
func NewLeaderboardResponse(results []entity.CompetitionResult) []LeaderboardEntryResponse {
	out := make([]LeaderboardEntryResponse, len(results))
	for i, r := range results {
		out[i] = LeaderboardEntryResponse{
			Rank:          r.Rank,
			UserID:        r.UserID,
			Username:      r.Username,
			Score:         r.Score,
			PrizeAmount:   r.PrizeAmount,
			XPAwarded:     r.XPAwarded,
			TrophyAwarded: r.TrophyAwarded,
			CompletedAt:   r.CompletedAt,
		}
	}
	return out
}
