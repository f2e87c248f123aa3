package competition

import (
	"fmt"
	"sync"

	"github.com/azamalidev/Kick-Expert-sub000/internal/domain/entity"
)

// Пороговые значения эвристик подозрительности
const (
	suspiciousMeanLatencyMs   = 1000
	instantAnswerLatencyMs    = 300
	instantAnswerMinCount     = 3
	uniformBucketSizeMs       = 100
	uniformMaxDistinctBuckets = 2
	uniformMinSampleCount     = 5
	implausibleAccuracy       = 0.95
	implausibleMeanLatencyMs  = 2000
)

// Sample - одно наблюдение (задержка, корректность) по ответу сессии
type Sample struct {
	LatencyMs int64
	IsCorrect bool
}

// Verdict - результат анализа сессии
type Verdict struct {
	IsSuspicious bool
	Reasons      []string
}

// Analyzer накапливает сэмплы по активным сессиям и оценивает их на
// статистические аномалии. Анализ никогда не блокирует подсчёт очков:
// подозрительная сессия помечается для модерации, но не
// дисквалифицируется автоматически.
type Analyzer struct {
	mu      sync.Mutex
	samples map[uint][]Sample // sessionID -> накопленные сэмплы
}

// NewAnalyzer создаёт новый анализатор
func NewAnalyzer() *Analyzer {
	return &Analyzer{samples: make(map[uint][]Sample)}
}

// Record добавляет сэмпл к накопленному набору сессии
func (a *Analyzer) Record(sessionID uint, s Sample) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.samples[sessionID] = append(a.samples[sessionID], s)
}

// Evaluate оценивает накопленный набор сэмплов сессии и очищает его.
// Вызывается при запечатывании сессии. Чтение и удаление идут под тем
// же мьютексом, что и Record: параллельная запись не может вернуть в
// карту набор уже запечатанной сессии.
func (a *Analyzer) Evaluate(sessionID uint) Verdict {
	a.mu.Lock()
	set, ok := a.samples[sessionID]
	delete(a.samples, sessionID)
	a.mu.Unlock()

	if !ok {
		return Verdict{}
	}
	return EvaluateSamples(set)
}

// SamplesFromRecords восстанавливает набор сэмплов из записей журнала
// ответов. Используется при финализации после рестарта процесса, когда
// накопленный в памяти набор потерян. Пропущенные слоты сэмплов не дают.
func SamplesFromRecords(records []entity.AnswerRecord) []Sample {
	samples := make([]Sample, 0, len(records))
	for _, rec := range records {
		if rec.IsMissed() || rec.ResponseLatencyMs == nil {
			continue
		}
		samples = append(samples, Sample{
			LatencyMs: *rec.ResponseLatencyMs,
			IsCorrect: rec.IsCorrect,
		})
	}
	return samples
}

// EvaluateSamples применяет эвристики к полному набору сэмплов сессии.
// Эвристики объединяются логическим ИЛИ - любая из них поднимает флаг:
//  1. средняя задержка < 1000 мс;
//  2. не менее 3 сэмплов с задержкой < 300 мс;
//  3. при >= 5 сэмплах задержки укладываются в <= 2 различных корзины
//     по 100 мс (подозрительно равномерный ритм);
//  4. точность >= 0.95 при средней задержке < 2000 мс (неправдоподобное
//     сочетание скорости и точности).
func EvaluateSamples(samples []Sample) Verdict {
	if len(samples) == 0 {
		return Verdict{}
	}

	var (
		totalLatency int64
		correct      int
		instant      int
		buckets      = make(map[int64]struct{})
	)

	for _, s := range samples {
		totalLatency += s.LatencyMs
		if s.IsCorrect {
			correct++
		}
		if s.LatencyMs < instantAnswerLatencyMs {
			instant++
		}
		buckets[s.LatencyMs/uniformBucketSizeMs] = struct{}{}
	}

	meanLatency := float64(totalLatency) / float64(len(samples))
	accuracy := float64(correct) / float64(len(samples))

	var reasons []string

	if meanLatency < suspiciousMeanLatencyMs {
		reasons = append(reasons, fmt.Sprintf("mean response latency %.0fms below %dms", meanLatency, suspiciousMeanLatencyMs))
	}

	if instant >= instantAnswerMinCount {
		reasons = append(reasons, fmt.Sprintf("%d responses under 300ms", instant))
	}

	if len(samples) >= uniformMinSampleCount && len(buckets) <= uniformMaxDistinctBuckets {
		reasons = append(reasons, fmt.Sprintf("latencies collapse into %d distinct 100ms buckets over %d samples", len(buckets), len(samples)))
	}

	if accuracy >= implausibleAccuracy && meanLatency < implausibleMeanLatencyMs {
		reasons = append(reasons, fmt.Sprintf("accuracy %.2f with mean latency %.0fms", accuracy, meanLatency))
	}

	return Verdict{
		IsSuspicious: len(reasons) > 0,
		Reasons:      reasons,
	}
}
