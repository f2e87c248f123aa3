package errors

import "errors"

// Общие ошибки приложения
var (
	// ErrNotFound используется, когда запись или ресурс не найдены.
	ErrNotFound = errors.New("record not found")

	// ErrUnauthorized используется для ошибок авторизации (неверный токен, нет прав).
	ErrUnauthorized = errors.New("unauthorized")

	// ErrValidation используется для ошибок валидации входных данных.
	ErrValidation = errors.New("validation failed")

	// ErrConflict используется для конфликтов состояния (например, недопустимый переход статуса).
	ErrConflict = errors.New("resource state conflict")
)

// Ошибки соревновательного движка. Это ОЖИДАЕМЫЕ состояния протокола,
// а не сбои: обработчики возвращают их клиенту как отклонённый,
// но корректно обработанный результат.
var (
	// ErrNotRegistered - участник не зарегистрирован (или не оплатил) в соревновании.
	ErrNotRegistered = errors.New("participant is not registered for this competition")

	// ErrSessionClosed - сессия запечатана (end_time установлен), новые ответы не принимаются.
	ErrSessionClosed = errors.New("session is closed")

	// ErrDuplicateAnswer - на этот вопрос в рамках сессии уже есть ответ.
	// Источник истины - уникальный индекс (session_id, question_id) в БД.
	ErrDuplicateAnswer = errors.New("answer already recorded for this question")

	// ErrCompetitionEnded - глобальное время соревнования истекло.
	ErrCompetitionEnded = errors.New("competition has ended")

	// ErrCompetitionNotStarted - соревнование ещё не началось, слоты не открыты.
	ErrCompetitionNotStarted = errors.New("competition has not started yet")

	// ErrPersistenceFailure - транзиентная ошибка персистентности; повтор с тем же
	// идемпотентным ключом безопасен.
	ErrPersistenceFailure = errors.New("transient persistence failure")
)
