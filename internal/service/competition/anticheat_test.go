package competition

import (
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/azamalidev/Kick-Expert-sub000/internal/domain/entity"
)

func TestEvaluateSamples_NineInstantOfTen(t *testing.T) {
	// 10 сэмплов, 9 из которых быстрее 300 мс - флаг обязателен
	samples := make([]Sample, 0, 10)
	for i := 0; i < 9; i++ {
		samples = append(samples, Sample{LatencyMs: int64(100 + i*20), IsCorrect: i%2 == 0})
	}
	samples = append(samples, Sample{LatencyMs: 8000, IsCorrect: false})

	verdict := EvaluateSamples(samples)

	require.True(t, verdict.IsSuspicious)
	found := false
	for _, r := range verdict.Reasons {
		if strings.Contains(r, "responses under 300ms") {
			found = true
		}
	}
	assert.True(t, found, "Причина должна содержать 'responses under 300ms', получено: %v", verdict.Reasons)
}

func TestEvaluateSamples_MeanLatencyTooLow(t *testing.T) {
	samples := []Sample{
		{LatencyMs: 800}, {LatencyMs: 900}, {LatencyMs: 950},
	}

	verdict := EvaluateSamples(samples)

	assert.True(t, verdict.IsSuspicious, "Средняя задержка < 1000 мс подозрительна")
}

func TestEvaluateSamples_UniformTiming(t *testing.T) {
	// 6 сэмплов в двух корзинах по 100 мс - слишком равномерный ритм
	samples := []Sample{
		{LatencyMs: 5010}, {LatencyMs: 5090}, {LatencyMs: 5040},
		{LatencyMs: 5110}, {LatencyMs: 5150}, {LatencyMs: 5020},
	}

	verdict := EvaluateSamples(samples)

	require.True(t, verdict.IsSuspicious)
	found := false
	for _, r := range verdict.Reasons {
		if strings.Contains(r, "distinct 100ms buckets") {
			found = true
		}
	}
	assert.True(t, found, "Причины: %v", verdict.Reasons)
}

func TestEvaluateSamples_UniformTimingNeedsFiveSamples(t *testing.T) {
	// 4 сэмпла в одной корзине - выборка мала, эвристика молчит
	samples := []Sample{
		{LatencyMs: 5010}, {LatencyMs: 5020}, {LatencyMs: 5040}, {LatencyMs: 5090},
	}

	verdict := EvaluateSamples(samples)

	for _, r := range verdict.Reasons {
		assert.NotContains(t, r, "distinct 100ms buckets")
	}
}

func TestEvaluateSamples_ImplausibleAccuracySpeed(t *testing.T) {
	// Точность 1.0 при средней задержке ~1500 мс
	samples := []Sample{
		{LatencyMs: 1400, IsCorrect: true},
		{LatencyMs: 1500, IsCorrect: true},
		{LatencyMs: 1600, IsCorrect: true},
	}

	verdict := EvaluateSamples(samples)

	require.True(t, verdict.IsSuspicious)
	found := false
	for _, r := range verdict.Reasons {
		if strings.Contains(r, "accuracy") {
			found = true
		}
	}
	assert.True(t, found, "Причины: %v", verdict.Reasons)
}

func TestEvaluateSamples_HonestSessionClean(t *testing.T) {
	// Правдоподобная сессия: разные задержки, средняя точность
	samples := []Sample{
		{LatencyMs: 4200, IsCorrect: true},
		{LatencyMs: 7800, IsCorrect: false},
		{LatencyMs: 3100, IsCorrect: true},
		{LatencyMs: 12500, IsCorrect: false},
		{LatencyMs: 6400, IsCorrect: true},
		{LatencyMs: 9900, IsCorrect: true},
	}

	verdict := EvaluateSamples(samples)

	assert.False(t, verdict.IsSuspicious, "Честная сессия не должна флаговаться: %v", verdict.Reasons)
	assert.Empty(t, verdict.Reasons)
}

func TestEvaluateSamples_Empty(t *testing.T) {
	verdict := EvaluateSamples(nil)

	assert.False(t, verdict.IsSuspicious)
}

func TestAnalyzer_RecordEvaluateClears(t *testing.T) {
	analyzer := NewAnalyzer()

	for i := 0; i < 5; i++ {
		analyzer.Record(42, Sample{LatencyMs: 150, IsCorrect: true})
	}

	verdict := analyzer.Evaluate(42)
	assert.True(t, verdict.IsSuspicious)

	// Повторная оценка после очистки - пустой набор
	verdict = analyzer.Evaluate(42)
	assert.False(t, verdict.IsSuspicious, "Evaluate очищает накопленный набор")
}

func TestAnalyzer_ConcurrentRecordAndEvaluate(t *testing.T) {
	// Запись и оценка идут из разных горутин: после оценки сессии её
	// набор исчезает и не восстанавливается гоняющейся записью
	analyzer := NewAnalyzer()

	var wg sync.WaitGroup
	for s := uint(1); s <= 8; s++ {
		wg.Add(2)
		go func(sessionID uint) {
			defer wg.Done()
			for i := 0; i < 50; i++ {
				analyzer.Record(sessionID, Sample{LatencyMs: 5000, IsCorrect: i%2 == 0})
			}
		}(s)
		go func(sessionID uint) {
			defer wg.Done()
			analyzer.Evaluate(sessionID)
		}(s)
	}
	wg.Wait()

	for s := uint(1); s <= 8; s++ {
		analyzer.Evaluate(s)
	}
	for s := uint(1); s <= 8; s++ {
		verdict := analyzer.Evaluate(s)
		assert.False(t, verdict.IsSuspicious, "Сессия %d: после оценки набор пуст", s)
	}
}

func TestSamplesFromRecords_SkipsMissed(t *testing.T) {
	choice := 1
	latency := int64(2500)
	records := []entity.AnswerRecord{
		{SessionID: 42, SlotIndex: 0, SelectedAnswer: &choice, IsCorrect: true, ResponseLatencyMs: &latency},
		{SessionID: 42, SlotIndex: 1}, // пропущенный слот
		{SessionID: 42, SlotIndex: 2, SelectedAnswer: &choice, IsCorrect: false, ResponseLatencyMs: &latency},
	}

	samples := SamplesFromRecords(records)

	require.Len(t, samples, 2, "Пропущенные слоты сэмплов не дают")
	assert.Equal(t, int64(2500), samples[0].LatencyMs)
	assert.True(t, samples[0].IsCorrect)
	assert.False(t, samples[1].IsCorrect)
}
