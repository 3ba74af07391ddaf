package core

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"subgate/internal/clients/subtitles"
	"subgate/internal/config"
	"subgate/internal/metrics"
	"subgate/internal/models"
)

// Attempt is the trace of one adapter run.
type Attempt struct {
	Adapter    string        `json:"name"`
	Status     models.Status `json:"status"`
	Records    int           `json:"records"`
	Duration   time.Duration `json:"-"`
	DurationMS int64         `json:"duration_ms"`
	Error      string        `json:"error,omitempty"`
}

// Result is the ranked, truncated outcome of a pipeline run.
type Result struct {
	Subtitles []models.SubtitleRecord
	Total     int
	Attempts  []Attempt
	Synthetic bool
}

// Observer is called once per adapter as it settles, never concurrently.
type Observer func(Attempt)

type PipelineOptions struct {
	Policy         string
	Concurrent     bool
	AdapterTimeout time.Duration
	DefaultLimit   int
	MaxLimit       int
	SyntheticCount int
}

// Pipeline fans a movie out to the configured adapters and merges the answers.
type Pipeline struct {
	adapters  []subtitles.Adapter
	synthetic *subtitles.SyntheticClient
	opts      PipelineOptions
	logger    zerolog.Logger
}

func NewPipeline(adapters []subtitles.Adapter, synthetic *subtitles.SyntheticClient, opts PipelineOptions, logger zerolog.Logger) *Pipeline {
	if opts.Policy == "" {
		opts.Policy = config.PolicyMergeAll
	}
	if opts.AdapterTimeout <= 0 {
		opts.AdapterTimeout = 8 * time.Second
	}
	return &Pipeline{
		adapters:  adapters,
		synthetic: synthetic,
		opts:      opts,
		logger:    logger.With().Str("component", "pipeline").Logger(),
	}
}

// AdapterNames returns the adapters in priority order.
func (p *Pipeline) AdapterNames() []string {
	names := make([]string, len(p.adapters))
	for i, a := range p.adapters {
		names[i] = a.Name()
	}
	return names
}

// Adapters returns the configured adapters in priority order.
func (p *Pipeline) Adapters() []subtitles.Adapter {
	return p.adapters
}

func (p *Pipeline) Resolve(ctx context.Context, movie models.MovieDescriptor, language string, limit int) *Result {
	return p.ResolveWithObserver(ctx, movie, language, limit, nil)
}

// ResolveWithObserver is Resolve with a per-adapter progress callback.
func (p *Pipeline) ResolveWithObserver(ctx context.Context, movie models.MovieDescriptor, language string, limit int, observe Observer) *Result {
	if observe == nil {
		observe = func(Attempt) {}
	}
	limit = effectiveLimit(limit, p.opts.DefaultLimit, p.opts.MaxLimit)

	var perAdapter [][]models.SubtitleRecord
	var attempts []Attempt
	if p.opts.Policy == config.PolicyFirstSuccess {
		perAdapter, attempts = p.runSequential(ctx, movie, language, observe)
	} else if p.opts.Concurrent {
		perAdapter, attempts = p.runConcurrent(ctx, movie, language, observe)
	} else {
		perAdapter, attempts = p.runAll(ctx, movie, language, observe)
	}

	var merged []models.SubtitleRecord
	for _, records := range perAdapter {
		merged = append(merged, records...)
	}
	merged = dedupe(merged)

	result := &Result{Attempts: attempts}
	if len(merged) == 0 && p.synthetic != nil {
		count := p.opts.SyntheticCount
		if count <= 0 || count > limit {
			count = limit
		}
		merged = p.synthetic.Generate(movie, language, count)
		result.Synthetic = true
		metrics.SyntheticFallbacks.Inc()
		p.logger.Info().
			Str("movie", movie.DisplayTitle()).
			Str("language", language).
			Int("count", len(merged)).
			Msg("No provider results, serving synthetic records")
	}

	rank(merged)
	result.Total = len(merged)
	if len(merged) > limit {
		merged = merged[:limit]
	}
	result.Subtitles = merged

	p.logger.Debug().
		Str("movie", movie.DisplayTitle()).
		Str("policy", p.opts.Policy).
		Int("total", result.Total).
		Int("returned", len(merged)).
		Bool("synthetic", result.Synthetic).
		Msg("Resolution completed")
	return result
}

// runSequential stops after the first adapter whose records survive the language filter.
func (p *Pipeline) runSequential(ctx context.Context, movie models.MovieDescriptor, language string, observe Observer) ([][]models.SubtitleRecord, []Attempt) {
	perAdapter := make([][]models.SubtitleRecord, 0, len(p.adapters))
	attempts := make([]Attempt, 0, len(p.adapters))
	for _, adapter := range p.adapters {
		if ctx.Err() != nil {
			break
		}
		records, attempt := p.runAdapter(ctx, adapter, movie, language)
		perAdapter = append(perAdapter, records)
		attempts = append(attempts, attempt)
		observe(attempt)
		if len(records) > 0 {
			break
		}
	}
	return perAdapter, attempts
}

func (p *Pipeline) runAll(ctx context.Context, movie models.MovieDescriptor, language string, observe Observer) ([][]models.SubtitleRecord, []Attempt) {
	perAdapter := make([][]models.SubtitleRecord, len(p.adapters))
	attempts := make([]Attempt, len(p.adapters))
	for i, adapter := range p.adapters {
		perAdapter[i], attempts[i] = p.runAdapter(ctx, adapter, movie, language)
		observe(attempts[i])
	}
	return perAdapter, attempts
}

// runConcurrent fans out to every adapter and waits for all of them to settle.
// Results keep their priority slot regardless of completion order.
func (p *Pipeline) runConcurrent(ctx context.Context, movie models.MovieDescriptor, language string, observe Observer) ([][]models.SubtitleRecord, []Attempt) {
	type settled struct {
		index   int
		records []models.SubtitleRecord
		attempt Attempt
	}

	results := make(chan settled, len(p.adapters))
	var wg sync.WaitGroup
	for i, adapter := range p.adapters {
		wg.Add(1)
		go func(i int, adapter subtitles.Adapter) {
			defer wg.Done()
			records, attempt := p.runAdapter(ctx, adapter, movie, language)
			results <- settled{index: i, records: records, attempt: attempt}
		}(i, adapter)
	}

	go func() {
		wg.Wait()
		close(results)
	}()

	perAdapter := make([][]models.SubtitleRecord, len(p.adapters))
	attempts := make([]Attempt, len(p.adapters))
	for s := range results {
		perAdapter[s.index] = s.records
		attempts[s.index] = s.attempt
		observe(s.attempt)
	}
	return perAdapter, attempts
}

type adapterOutcome struct {
	records []models.SubtitleRecord
	status  models.Status
	err     error
}

// runAdapter applies the per-adapter timeout, recovers panics and language-filters the records.
func (p *Pipeline) runAdapter(ctx context.Context, adapter subtitles.Adapter, movie models.MovieDescriptor, language string) ([]models.SubtitleRecord, Attempt) {
	start := time.Now()
	ctx, cancel := context.WithTimeout(ctx, p.opts.AdapterTimeout)
	defer cancel()

	done := make(chan adapterOutcome, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- adapterOutcome{status: models.StatusUnavailable, err: fmt.Errorf("%w: panic: %v", subtitles.ErrProviderUnavailable, r)}
			}
		}()
		records, status := adapter.Search(ctx, movie, language)
		done <- adapterOutcome{records: records, status: status}
	}()

	var out adapterOutcome
	select {
	case out = <-done:
	case <-ctx.Done():
		out = adapterOutcome{status: models.StatusUnavailable, err: fmt.Errorf("%w: %v", subtitles.ErrProviderUnavailable, ctx.Err())}
	}

	if out.err == nil && out.status == models.StatusUnavailable && ctx.Err() != nil {
		out.err = fmt.Errorf("%w: %v", subtitles.ErrProviderUnavailable, ctx.Err())
	}

	records := filterByLanguage(out.records, language)
	if out.status == models.StatusOK && len(records) == 0 {
		out.status = models.StatusEmpty
	}

	elapsed := time.Since(start)
	attempt := Attempt{
		Adapter:    adapter.Name(),
		Status:     out.status,
		Records:    len(records),
		Duration:   elapsed,
		DurationMS: elapsed.Milliseconds(),
	}
	if out.err != nil {
		attempt.Error = out.err.Error()
		p.logger.Warn().Err(out.err).Str("adapter", adapter.Name()).Msg("Adapter failed")
	}
	metrics.ObserveAdapter(adapter.Name(), string(out.status), elapsed)
	return records, attempt
}
