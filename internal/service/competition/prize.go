package competition

import (
	"math"
)

// PrizeConfig описывает распределение призового фонда соревнования.
// Доли distribution применяются к фонду (pool), а не к общей выручке,
// и в сумме дают 1.0.
type PrizeConfig struct {
	PercentageOfRevenue float64
	WinnerCount         int
	Distribution        []float64
}

// PrizeConfigForPlayers возвращает конфигурацию призов по количеству
// участников N:
//
//	N < 50:   3 победителя, 40% выручки
//	50-99:    5 победителей, 45% выручки
//	N >= 100: 10 победителей, 50% выручки
func PrizeConfigForPlayers(playerCount int) PrizeConfig {
	switch {
	case playerCount >= 100:
		return PrizeConfig{
			PercentageOfRevenue: 0.50,
			WinnerCount:         10,
			Distribution:        []float64{0.20, 0.10, 0.07, 0.04, 0.03, 0.02, 0.01, 0.01, 0.01, 0.01},
		}
	case playerCount >= 50:
		return PrizeConfig{
			PercentageOfRevenue: 0.45,
			WinnerCount:         5,
			Distribution:        []float64{0.20, 0.12, 0.07, 0.03, 0.03},
		}
	default:
		return PrizeConfig{
			PercentageOfRevenue: 0.40,
			WinnerCount:         3,
			Distribution:        []float64{0.20, 0.12, 0.08},
		}
	}
}

// Pool возвращает призовой фонд: floor(выручка * доля фонда)
func (c PrizeConfig) Pool(totalRevenue int) int {
	return int(math.Floor(float64(totalRevenue) * c.PercentageOfRevenue))
}

// PrizeSplit возвращает призы для мест 1..WinnerCount. Приз места -
// ceil(фонд * доля места), но не больше нераспределённого остатка:
// на маленьких фондах округление вверх иначе раздаёт больше, чем
// есть в фонде. Остаток расходуется сверху вниз, поэтому хвостовые
// места первыми получают 0.
func (c PrizeConfig) PrizeSplit(pool int) []int {
	prizes := make([]int, c.WinnerCount)
	remaining := pool
	for i := 0; i < c.WinnerCount && i < len(c.Distribution); i++ {
		prize := int(math.Ceil(float64(pool) * c.Distribution[i]))
		if prize > remaining {
			prize = remaining
		}
		prizes[i] = prize
		remaining -= prize
	}
	return prizes
}

// PrizeForRank возвращает приз для места rank (1-based), 0 вне призовых
func (c PrizeConfig) PrizeForRank(pool, rank int) int {
	if rank < 1 || rank > c.WinnerCount || rank > len(c.Distribution) {
		return 0
	}
	return c.PrizeSplit(pool)[rank-1]
}

// XPForWinner возвращает XP победителя: правильные ответы * множитель
func XPForWinner(correctAnswers, xpPerCorrect int) int {
	if correctAnswers < 0 {
		return 0
	}
	return correctAnswers * xpPerCorrect
}
