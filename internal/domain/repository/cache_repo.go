package repository

import (
	"time"
)

// CacheRepository определяет методы для работы с кешем
type CacheRepository interface {
	Set(key string, value interface{}, expiration time.Duration) error
	Delete(key string) error
	SetJSON(key string, value interface{}, expiration time.Duration) error
	GetJSON(key string, dest interface{}) error
	// SetNX устанавливает ключ, только если его не было. Используется
	// как замок "объявить один раз" при финализации.
	SetNX(key string, value interface{}, expiration time.Duration) (bool, error)
	// SAdd добавляет элемент в множество (используется для списков участников)
	SAdd(key string, member interface{}) error
	// SMembers возвращает все элементы множества
	SMembers(key string) ([]string, error)
	// HIncrBy атомарно увеличивает поле хеша (счётчики качества вопросов)
	HIncrBy(key, field string, delta int64) (int64, error)
}
