package competition

import (
	"time"
)

// SlotInfo описывает положение момента времени now внутри расписания
// соревнования. Расписание полностью выводится из (startTime,
// slotDuration, questionCount) - никакие слоты не пушатся сервером.
type SlotInfo struct {
	// Индекс текущего слота, 0-based. -1 до начала соревнования,
	// questionCount-1 после конца (зажат).
	Index int

	// Оставшееся время текущего слота
	Remaining time.Duration

	// Соревнование ещё не началось
	NotStarted bool

	// Время всех слотов истекло
	Ended bool
}

// CurrentSlot вычисляет текущий слот для момента now. Чистая функция:
// результат зависит только от аргументов, поэтому два вызова с
// одинаковыми входами всегда согласованы между собой.
//
// Индекс = floor((now - startTime) / slotDuration), зажатый в
// [0, questionCount-1]. Монотонность по now гарантирована: слот
// никогда не "откатывается" назад при повторном вычислении.
func CurrentSlot(startTime, now time.Time, slotDuration time.Duration, questionCount int) SlotInfo {
	if questionCount <= 0 || slotDuration <= 0 {
		return SlotInfo{Index: -1, NotStarted: true}
	}

	if now.Before(startTime) {
		return SlotInfo{
			Index:      -1,
			Remaining:  startTime.Sub(now),
			NotStarted: true,
		}
	}

	elapsed := now.Sub(startTime)
	index := int(elapsed / slotDuration)

	if index >= questionCount {
		return SlotInfo{
			Index: questionCount - 1,
			Ended: true,
		}
	}

	return SlotInfo{
		Index:     index,
		Remaining: slotDuration - elapsed%slotDuration,
	}
}

// SlotOpenedAt возвращает момент открытия слота с данным индексом
func SlotOpenedAt(startTime time.Time, slotDuration time.Duration, index int) time.Time {
	return startTime.Add(time.Duration(index) * slotDuration)
}

// CompetitionEndsAt возвращает момент истечения последнего слота
func CompetitionEndsAt(startTime time.Time, slotDuration time.Duration, questionCount int) time.Time {
	return startTime.Add(time.Duration(questionCount) * slotDuration)
}
