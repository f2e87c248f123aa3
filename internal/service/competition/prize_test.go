package competition

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPrizeConfigForPlayers_Tiers(t *testing.T) {
	small := PrizeConfigForPlayers(40)
	assert.Equal(t, 3, small.WinnerCount)
	assert.Equal(t, 0.40, small.PercentageOfRevenue)

	medium := PrizeConfigForPlayers(50)
	assert.Equal(t, 5, medium.WinnerCount)
	assert.Equal(t, 0.45, medium.PercentageOfRevenue)

	large := PrizeConfigForPlayers(100)
	assert.Equal(t, 10, large.WinnerCount)
	assert.Equal(t, 0.50, large.PercentageOfRevenue)
}

func TestPrizeConfig_DistributionBounded(t *testing.T) {
	// Доли применяются к фонду и в сумме никогда его не превышают
	for _, n := range []int{10, 50, 100, 500} {
		config := PrizeConfigForPlayers(n)
		require.Len(t, config.Distribution, config.WinnerCount)

		var sum float64
		for _, f := range config.Distribution {
			sum += f
		}
		assert.LessOrEqual(t, sum, 1.0, "N=%d", n)
	}
}

func TestPrizeCalculation_FortyPlayers(t *testing.T) {
	// N=40, entryFee=10: выручка 400, фонд floor(400*0.4)=160,
	// приз за 1 место ceil(160*0.20)=32
	config := PrizeConfigForPlayers(40)
	totalRevenue := 40 * 10

	pool := config.Pool(totalRevenue)
	require.Equal(t, 160, pool)

	assert.Equal(t, 32, config.PrizeForRank(pool, 1))
	assert.Equal(t, 20, config.PrizeForRank(pool, 2), "ceil(160*0.12)=20")
	assert.Equal(t, 13, config.PrizeForRank(pool, 3), "ceil(160*0.08)=13")
	assert.Equal(t, 0, config.PrizeForRank(pool, 4), "4 место не призовое при N<50")
}

func TestPrizeForRank_OutOfRange(t *testing.T) {
	config := PrizeConfigForPlayers(40)

	assert.Equal(t, 0, config.PrizeForRank(160, 0))
	assert.Equal(t, 0, config.PrizeForRank(160, -1))
	assert.Equal(t, 0, config.PrizeForRank(160, 11))
}

func TestPrizeSum_NeverExceedsPool(t *testing.T) {
	// Сумма всех призов не превышает фонд - в том числе на крошечных
	// фондах, где ceil каждого места иначе раздаёт больше фонда
	for _, fee := range []int{1, 2, 10, 25} {
		for _, n := range []int{1, 3, 5, 40, 50, 99, 100, 1000} {
			config := PrizeConfigForPlayers(n)
			pool := config.Pool(n * fee)

			var sum int
			for rank := 1; rank <= config.WinnerCount; rank++ {
				sum += config.PrizeForRank(pool, rank)
			}
			assert.LessOrEqual(t, sum, pool, "N=%d fee=%d pool=%d", n, fee, pool)
		}
	}
}

func TestPrizeSplit_TinyPoolCappedByRemainder(t *testing.T) {
	// N=5, entryFee=1: выручка 5, фонд floor(5*0.4)=2. Без ограничения
	// остатком ceil дал бы 1+1+1=3 > 2
	config := PrizeConfigForPlayers(5)
	pool := config.Pool(5 * 1)
	require.Equal(t, 2, pool)

	prizes := config.PrizeSplit(pool)
	require.Len(t, prizes, 3)
	assert.Equal(t, []int{1, 1, 0}, prizes, "Остаток расходуется сверху вниз")
}

func TestPrizeSplit_ZeroPool(t *testing.T) {
	config := PrizeConfigForPlayers(1)
	prizes := config.PrizeSplit(config.Pool(1))

	for rank, prize := range prizes {
		assert.Equal(t, 0, prize, "место %d", rank+1)
	}
}

func TestXPForWinner(t *testing.T) {
	assert.Equal(t, 40, XPForWinner(8, 5))
	assert.Equal(t, 0, XPForWinner(0, 5))
	assert.Equal(t, 0, XPForWinner(-1, 5))
}

func TestConfigStipendFor(t *testing.T) {
	config := DefaultConfig()

	assert.Equal(t, config.StipendStarter, config.StipendFor("starter"))
	assert.Equal(t, config.StipendPro, config.StipendFor("pro"))
	assert.Equal(t, config.StipendElite, config.StipendFor("elite"))
	assert.Equal(t, config.StipendStarter, config.StipendFor("unknown"))
}
