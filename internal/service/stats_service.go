package service

import (
	"fmt"
	"log"

	"github.com/azamalidev/Kick-Expert-sub000/internal/domain/repository"
)

// StatsService - fire-and-forget приёмник статистики качества вопросов
// на счётчиках Redis. Сбои записи логируются и глотаются: аналитика
// никогда не имеет права уронить путь отправки ответа.
type StatsService struct {
	cacheRepo repository.CacheRepository
}

// NewStatsService создает новый сервис статистики
func NewStatsService(cacheRepo repository.CacheRepository) *StatsService {
	return &StatsService{cacheRepo: cacheRepo}
}

// RecordAnswer инкрементирует счётчики показов и правильных ответов вопроса
func (s *StatsService) RecordAnswer(questionID uint, isCorrect bool, latencyMs int64) {
	key := fmt.Sprintf("question_stats:%d", questionID)

	if _, err := s.cacheRepo.HIncrBy(key, "shown", 1); err != nil {
		log.Printf("[Stats] Не удалось записать показ вопроса %d: %v", questionID, err)
		return
	}
	if isCorrect {
		if _, err := s.cacheRepo.HIncrBy(key, "correct", 1); err != nil {
			log.Printf("[Stats] Не удалось записать правильный ответ вопроса %d: %v", questionID, err)
		}
	}
	if _, err := s.cacheRepo.HIncrBy(key, "latency_ms_total", latencyMs); err != nil {
		log.Printf("[Stats] Не удалось записать задержку вопроса %d: %v", questionID, err)
	}
}
