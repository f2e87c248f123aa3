package postgres

import (
	"errors"

	"gorm.io/gorm"

	"github.com/azamalidev/Kick-Expert-sub000/internal/domain/entity"
	apperrors "github.com/azamalidev/Kick-Expert-sub000/internal/pkg/errors"
)

// UserRepo реализует repository.UserRepository
type UserRepo struct {
	db *gorm.DB
}

// NewUserRepo создает новый репозиторий пользователей
func NewUserRepo(db *gorm.DB) *UserRepo {
	return &UserRepo{db: db}
}

// Create создает нового пользователя
func (r *UserRepo) Create(user *entity.User) error {
	err := r.db.Create(user).Error
	if err != nil {
		if isUniqueViolation(err) {
			return apperrors.ErrConflict
		}
		return err
	}
	return nil
}

// GetByID возвращает пользователя по ID
func (r *UserRepo) GetByID(id uint) (*entity.User, error) {
	var user entity.User
	err := r.db.First(&user, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrNotFound
		}
		return nil, err
	}
	return &user, nil
}

// GetByEmail возвращает пользователя по email
func (r *UserRepo) GetByEmail(email string) (*entity.User, error) {
	var user entity.User
	err := r.db.Where("email = ?", email).First(&user).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrNotFound
		}
		return nil, err
	}
	return &user, nil
}

// GetByIDs возвращает пользователей по списку ID
func (r *UserRepo) GetByIDs(ids []uint) ([]entity.User, error) {
	var users []entity.User
	err := r.db.Where("id IN ?", ids).Find(&users).Error
	if err != nil {
		return nil, err
	}
	return users, nil
}

// ApplyAwards начисляет награды атомарными инкрементами внутри
// переданной транзакции. Инкременты вместо полного Save исключают
// потерю обновлений при параллельных начислениях.
func (r *UserRepo) ApplyAwards(tx *gorm.DB, userID uint, xp int, prize int, trophy bool, won bool) error {
	updates := map[string]interface{}{
		"total_xp":        gorm.Expr("total_xp + ?", xp),
		"total_prize_won": gorm.Expr("total_prize_won + ?", prize),
	}
	if trophy {
		updates["trophies_count"] = gorm.Expr("trophies_count + 1")
	}
	if won {
		updates["wins_count"] = gorm.Expr("wins_count + 1")
	}

	result := tx.Model(&entity.User{}).
		Where("id = ?", userID).
		Updates(updates)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return apperrors.ErrNotFound
	}
	return nil
}

// IncrementGamesPlayed атомарно увеличивает счётчик сыгранных игр
func (r *UserRepo) IncrementGamesPlayed(tx *gorm.DB, userID uint) error {
	return tx.Model(&entity.User{}).
		Where("id = ?", userID).
		Update("games_played", gorm.Expr("games_played + 1")).Error
}
