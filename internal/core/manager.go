package core

import (
	"context"
	"fmt"
	"net/url"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"

	"subgate/internal/clients/metadata"
	"subgate/internal/clients/subtitles"
	"subgate/internal/config"
	"subgate/internal/metrics"
	"subgate/internal/models"
	"subgate/internal/utils"
)

// Resolution is a resolved movie plus its ranked subtitles.
type Resolution struct {
	Kind       models.IdentifierKind
	Identifier string
	Language   string
	Movie      models.MovieDescriptor
	*Result
}

// Manager wires the resolver, the pipeline and the fetcher from one immutable config.
type Manager struct {
	config    *config.Config
	tmdb      *metadata.TMDBClient
	resolver  *Resolver
	pipeline  *Pipeline
	fetcher   *Fetcher
	logger    zerolog.Logger
	scheduler *cron.Cron
	started   time.Time
}

func NewManager(cfg *config.Config, logger *utils.Logger) (*Manager, error) {
	m := &Manager{
		config:    cfg,
		logger:    logger.Component("manager"),
		scheduler: cron.New(),
		started:   time.Now(),
	}

	m.tmdb = metadata.NewTMDBClient(
		cfg.Metadata.TMDB.APIKey,
		cfg.Metadata.TMDB.BaseURL,
		cfg.Metadata.Language,
		cfg.Metadata.TMDB.Timeout,
		logger.Logger,
	)
	m.resolver = NewResolver(m.tmdb, logger.Logger)

	// Setup subtitle adapters based on config order
	var adapters []subtitles.Adapter
	for _, provider := range cfg.Subtitles.Providers {
		switch provider {
		case config.ProviderOpenSubtitlesOrg:
			extractor, err := subtitles.NewExtractor(cfg.Subtitles.OpenSubtitlesOrg.Extractor)
			if err != nil {
				return nil, err
			}
			adapters = append(adapters, subtitles.NewOpenSubtitlesOrgClient(
				cfg.Subtitles.OpenSubtitlesOrg.BaseURL, extractor, cfg.Subtitles.AdapterTimeout, logger.Logger))
		case config.ProviderSubdl:
			adapters = append(adapters, subtitles.NewSubdlClient(
				cfg.Subtitles.Subdl.APIKey, cfg.Subtitles.Subdl.BaseURL, cfg.Subtitles.Subdl.DownloadBaseURL,
				cfg.Subtitles.AdapterTimeout, logger.Logger))
		case config.ProviderSinhala:
			adapters = append(adapters, subtitles.NewSinhalaClient(cfg.Subtitles.Sinhala.Teams, logger.Logger))
		default:
			return nil, fmt.Errorf("unsupported subtitle provider: %s", provider)
		}
	}

	m.pipeline = NewPipeline(adapters, subtitles.NewSyntheticClient(logger.Logger), PipelineOptions{
		Policy:         cfg.Subtitles.Policy,
		Concurrent:     cfg.Subtitles.Concurrent,
		AdapterTimeout: cfg.Subtitles.AdapterTimeout,
		DefaultLimit:   cfg.Subtitles.DefaultLimit,
		MaxLimit:       cfg.Subtitles.MaxLimit,
		SyntheticCount: cfg.Subtitles.SyntheticCount,
	}, logger.Logger)

	m.fetcher = NewFetcher(FetcherOptions{
		Timeout:      cfg.Fetcher.Timeout,
		MaxBytes:     cfg.Fetcher.MaxBytes,
		UserAgent:    cfg.Fetcher.UserAgent,
		AllowedHosts: upstreamHosts(cfg.Subtitles.OpenSubtitlesOrg.BaseURL, cfg.Subtitles.Subdl.DownloadBaseURL),
	}, DefaultMirrorRules(), logger.Logger)

	m.logger.Info().
		Strs("providers", m.pipeline.AdapterNames()).
		Str("policy", cfg.Subtitles.Policy).
		Bool("concurrent", cfg.Subtitles.Concurrent).
		Msg("Manager initialized")
	return m, nil
}

// upstreamHosts extracts the hostnames of the configured upstream base URLs.
func upstreamHosts(baseURLs ...string) []string {
	var hosts []string
	for _, raw := range baseURLs {
		if u, err := url.Parse(raw); err == nil && u.Hostname() != "" {
			hosts = append(hosts, u.Hostname())
		}
	}
	return hosts
}

// ResolveByMovie resolves the identifier and runs the pipeline. Only resolver
// failures are returned as errors.
func (m *Manager) ResolveByMovie(ctx context.Context, kind models.IdentifierKind, identifier, language string, limit int) (*Resolution, error) {
	return m.ResolveByMovieStream(ctx, kind, identifier, language, limit, nil, nil)
}

// ResolveByMovieStream is ResolveByMovie with progress callbacks: onMovie once
// the descriptor is known, observe as each adapter settles.
func (m *Manager) ResolveByMovieStream(ctx context.Context, kind models.IdentifierKind, identifier, language string, limit int, onMovie func(models.MovieDescriptor), observe Observer) (*Resolution, error) {
	if models.IsAllLanguages(language) {
		language = models.AllLanguages
	}

	movie, err := m.resolver.Resolve(ctx, identifier, kind)
	if err != nil {
		return nil, err
	}
	if onMovie != nil {
		onMovie(movie)
	}

	result := m.pipeline.ResolveWithObserver(ctx, movie, language, limit, observe)
	return &Resolution{
		Kind:       kind,
		Identifier: identifier,
		Language:   language,
		Movie:      movie,
		Result:     result,
	}, nil
}

func (m *Manager) FetchArtifact(ctx context.Context, ref string) models.Artifact {
	return m.fetcher.Fetch(ctx, ref)
}

// LegacyDownloadRef maps a bare opensubtitles.org id to its download ref.
func (m *Manager) LegacyDownloadRef(id string) string {
	return fmt.Sprintf("%s/en/subtitleserve/sub/%s", m.config.Subtitles.OpenSubtitlesOrg.BaseURL, id)
}

func (m *Manager) ProviderNames() []string {
	return m.pipeline.AdapterNames()
}

func (m *Manager) Uptime() time.Duration {
	return time.Since(m.started)
}

func (m *Manager) StartScheduler() error {
	if !m.config.ProbeEnabled() {
		m.logger.Info().Msg("Upstream probe disabled")
		return nil
	}
	schedule := "@every " + m.config.Scheduler.ProbeInterval
	if _, err := m.scheduler.AddFunc(schedule, m.probeUpstreams); err != nil {
		return fmt.Errorf("invalid scheduler.probe_interval %q: %w", m.config.Scheduler.ProbeInterval, err)
	}
	m.scheduler.Start()
	m.logger.Info().Str("interval", m.config.Scheduler.ProbeInterval).Msg("Scheduler started. Performing initial upstream probe.")
	go m.probeUpstreams()
	return nil
}

func (m *Manager) Stop() {
	if m.scheduler != nil {
		<-m.scheduler.Stop().Done()
	}
}

// probeUpstreams checks TMDB and every adapter with a remote upstream.
func (m *Manager) probeUpstreams() {
	ctx, cancel := context.WithTimeout(context.Background(), m.config.Subtitles.AdapterTimeout)
	defer cancel()

	m.recordProbe("tmdb", m.tmdb.Ping(ctx))
	for _, adapter := range m.pipeline.Adapters() {
		if checker, ok := adapter.(subtitles.HealthChecker); ok {
			m.recordProbe(adapter.Name(), checker.HealthCheck(ctx))
		}
	}
}

func (m *Manager) recordProbe(upstream string, err error) {
	metrics.SetUpstreamUp(upstream, err == nil)
	if err != nil {
		m.logger.Warn().Err(err).Str("upstream", upstream).Msg("Upstream probe failed")
		return
	}
	m.logger.Debug().Str("upstream", upstream).Msg("Upstream probe succeeded")
}
