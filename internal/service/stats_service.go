package service

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

const (
	statsKeyPrefix = "anvil:stats:"

	// statsRetention expires counter buckets on their own.
	statsRetention = 90 * 24 * time.Hour
)

// suggestion sweep bounds
const (
	suggestMinSamples  = 20
	suggestMinPerClass = 3
	suggestLow         = 10
	suggestHigh        = 95
	suggestStep        = 5
)

// StatsService keeps daily-bucketed counters in Redis hashes and computes
// the offline threshold suggestion from logged evaluation outcomes.
type StatsService struct {
	rdb    redis.Cmdable
	logs   EvalLogSink
	logger zerolog.Logger
	now    func() time.Time
}

func NewStatsService(rdb redis.Cmdable, logs EvalLogSink, logger zerolog.Logger) *StatsService {
	return &StatsService{rdb: rdb, logs: logs, logger: logger, now: time.Now}
}

func dayKey(t time.Time) string {
	return statsKeyPrefix + t.UTC().Format("2006-01-02")
}

// Incr bumps today's bucket for key. Counter writes are best effort and
// never fail a scoring pass.
func (s *StatsService) Incr(ctx context.Context, key string) {
	bucket := dayKey(s.now())
	if err := s.rdb.HIncrBy(ctx, bucket, key, 1).Err(); err != nil {
		s.logger.Warn().Str("counter", key).Err(err).Msg("counter increment failed")
		return
	}
	// Refreshing the TTL on every write keeps active buckets alive and
	// lets idle ones age out.
	if err := s.rdb.Expire(ctx, bucket, statsRetention).Err(); err != nil {
		s.logger.Warn().Str("bucket", bucket).Err(err).Msg("counter expiry failed")
	}
}

// DaySummary is one day's counter values.
type DaySummary struct {
	Date     string           `json:"date"`
	Counters map[string]int64 `json:"counters"`
}

// Summary returns per-day counters for the last days days, newest first,
// plus totals across the window.
func (s *StatsService) Summary(ctx context.Context, days int) ([]DaySummary, map[string]int64, error) {
	if days < 1 || days > 90 {
		days = 7
	}

	totals := make(map[string]int64)
	out := make([]DaySummary, 0, days)
	for i := 0; i < days; i++ {
		day := s.now().UTC().AddDate(0, 0, -i)
		values, err := s.rdb.HGetAll(ctx, dayKey(day)).Result()
		if err != nil {
			return nil, nil, fmt.Errorf("read counters: %w", err)
		}

		counters := make(map[string]int64, len(values))
		for k, v := range values {
			var n int64
			if _, err := fmt.Sscanf(v, "%d", &n); err != nil {
				continue
			}
			counters[k] = n
			totals[k] += n
		}
		out = append(out, DaySummary{Date: day.Format("2006-01-02"), Counters: counters})
	}
	return out, totals, nil
}

// Suggestion is the result of the threshold sweep.
type Suggestion struct {
	Threshold      int     `json:"threshold"`
	F1             float64 `json:"f1"`
	Accuracy       float64 `json:"accuracy"`
	TruePositives  int     `json:"true_positives"`
	FalsePositives int     `json:"false_positives"`
	TrueNegatives  int     `json:"true_negatives"`
	FalseNegatives int     `json:"false_negatives"`
	Samples        int     `json:"samples"`
}

// ErrInsufficientData is returned when the logged sample set is too small
// or too one-sided for a meaningful sweep.
type ErrInsufficientData struct {
	Samples int
	Spam    int
	Ham     int
}

func (e *ErrInsufficientData) Error() string {
	return fmt.Sprintf("not enough labeled data: %d samples (%d spam, %d ham)", e.Samples, e.Spam, e.Ham)
}

// SuggestThreshold sweeps candidate thresholds over every logged
// (score, outcome) pair and returns the one maximizing F1, ties going to
// the lower threshold.
func (s *StatsService) SuggestThreshold(ctx context.Context) (*Suggestion, error) {
	pairs, err := s.logs.ScoredPairs(ctx)
	if err != nil {
		return nil, fmt.Errorf("load scored pairs: %w", err)
	}

	var spam, ham int
	for _, p := range pairs {
		if p.Spam {
			spam++
		} else {
			ham++
		}
	}
	if len(pairs) < suggestMinSamples || spam < suggestMinPerClass || ham < suggestMinPerClass {
		return nil, &ErrInsufficientData{Samples: len(pairs), Spam: spam, Ham: ham}
	}

	var best *Suggestion
	for t := suggestLow; t <= suggestHigh; t += suggestStep {
		var tp, fp, tn, fn int
		for _, p := range pairs {
			predictedSpam := p.Score >= t
			switch {
			case predictedSpam && p.Spam:
				tp++
			case predictedSpam && !p.Spam:
				fp++
			case !predictedSpam && !p.Spam:
				tn++
			default:
				fn++
			}
		}

		var f1 float64
		if 2*tp+fp+fn > 0 {
			f1 = float64(2*tp) / float64(2*tp+fp+fn)
		}
		if best == nil || f1 > best.F1 {
			best = &Suggestion{
				Threshold:      t,
				F1:             f1,
				Accuracy:       float64(tp+tn) / float64(len(pairs)),
				TruePositives:  tp,
				FalsePositives: fp,
				TrueNegatives:  tn,
				FalseNegatives: fn,
				Samples:        len(pairs),
			}
		}
	}
	return best, nil
}
