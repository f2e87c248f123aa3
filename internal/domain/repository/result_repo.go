package repository

import (
	"github.com/azamalidev/Kick-Expert-sub000/internal/domain/entity"
	"gorm.io/gorm"
)

// ResultRepository определяет методы для работы с итоговыми результатами
type ResultRepository interface {
	// Upsert вставляет или обновляет результат по ключу (competition_id, user_id)
	// ВНУТРИ ПЕРЕДАННОЙ ТРАНЗАКЦИИ. Повторный расчёт безопасен: финализация
	// может быть запущена из нескольких путей (таймер, явное завершение,
	// глобальная зачистка), гоняющихся за одной и той же сессией.
	Upsert(tx *gorm.DB, result *entity.CompetitionResult) error
	// GetAllForAwardGuard возвращает уже записанные результаты
	// соревнования, взяв FOR UPDATE на строку соревнования ВНУТРИ
	// ПЕРЕДАННОЙ ТРАНЗАКЦИИ. Замок на строке результатов не годится:
	// при первой финализации их ещё нет, и два гоняющихся расчёта
	// прошли бы пустое чтение одновременно. Второй финализатор ждёт
	// коммита первого, видит его результаты и не начисляет награды
	// повторно.
	GetAllForAwardGuard(tx *gorm.DB, competitionID uint) ([]entity.CompetitionResult, error)
	GetCompetitionResults(competitionID uint, limit, offset int) ([]entity.CompetitionResult, int64, error)
	GetAllCompetitionResults(competitionID uint) ([]entity.CompetitionResult, error)
	GetUserResult(competitionID, userID uint) (*entity.CompetitionResult, error)
	GetWinners(competitionID uint) ([]entity.CompetitionResult, error)
}
