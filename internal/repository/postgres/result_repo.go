package postgres

import (
	"errors"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/azamalidev/Kick-Expert-sub000/internal/domain/entity"
	apperrors "github.com/azamalidev/Kick-Expert-sub000/internal/pkg/errors"
)

// ResultRepo реализует repository.ResultRepository
type ResultRepo struct {
	db *gorm.DB
}

// NewResultRepo создает новый репозиторий результатов
func NewResultRepo(db *gorm.DB) *ResultRepo {
	return &ResultRepo{db: db}
}

// Upsert вставляет или обновляет результат по ключу (competition_id,
// user_id) внутри переданной транзакции. ON CONFLICT делает повторную
// финализацию идемпотентной.
func (r *ResultRepo) Upsert(tx *gorm.DB, result *entity.CompetitionResult) error {
	return tx.Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "competition_id"}, {Name: "user_id"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"username", "rank", "score", "prize_amount", "xp_awarded", "trophy_awarded", "completed_at", "updated_at",
		}),
	}).Create(result).Error
}

// GetAllForAwardGuard возвращает результаты соревнования, взяв
// FOR UPDATE на строку соревнования в переданной транзакции. Гонка
// финализаторов сериализуется на этом замке: пустой диапазон
// результатов при первой финализации заблокировать нечем.
func (r *ResultRepo) GetAllForAwardGuard(tx *gorm.DB, competitionID uint) ([]entity.CompetitionResult, error) {
	var comp entity.Competition
	if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
		Take(&comp, competitionID).Error; err != nil {
		return nil, err
	}

	var results []entity.CompetitionResult
	err := tx.Where("competition_id = ?", competitionID).
		Order("rank").
		Find(&results).Error
	if err != nil {
		return nil, err
	}
	return results, nil
}

// GetCompetitionResults возвращает результаты соревнования по рангу
// с пагинацией и общим количеством
func (r *ResultRepo) GetCompetitionResults(competitionID uint, limit, offset int) ([]entity.CompetitionResult, int64, error) {
	var total int64
	err := r.db.Model(&entity.CompetitionResult{}).
		Where("competition_id = ?", competitionID).
		Count(&total).Error
	if err != nil {
		return nil, 0, err
	}

	var results []entity.CompetitionResult
	err = r.db.Where("competition_id = ?", competitionID).
		Order("rank").
		Limit(limit).
		Offset(offset).
		Find(&results).Error
	if err != nil {
		return nil, 0, err
	}
	return results, total, nil
}

// GetAllCompetitionResults возвращает все результаты соревнования по рангу
func (r *ResultRepo) GetAllCompetitionResults(competitionID uint) ([]entity.CompetitionResult, error) {
	var results []entity.CompetitionResult
	err := r.db.Where("competition_id = ?", competitionID).
		Order("rank").
		Find(&results).Error
	if err != nil {
		return nil, err
	}
	return results, nil
}

// GetUserResult возвращает результат участника в соревновании
func (r *ResultRepo) GetUserResult(competitionID, userID uint) (*entity.CompetitionResult, error) {
	var result entity.CompetitionResult
	err := r.db.Where("competition_id = ? AND user_id = ?", competitionID, userID).
		First(&result).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrNotFound
		}
		return nil, err
	}
	return &result, nil
}

// GetWinners возвращает призёров соревнования по рангу
func (r *ResultRepo) GetWinners(competitionID uint) ([]entity.CompetitionResult, error) {
	var winners []entity.CompetitionResult
	err := r.db.Where("competition_id = ? AND prize_amount > 0", competitionID).
		Order("rank").
		Find(&winners).Error
	if err != nil {
		return nil, err
	}
	return winners, nil
}
