package core

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"net/url"
	"path"
	"regexp"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/net/html/charset"

	"subgate/internal/clients/subtitles"
	"subgate/internal/metrics"
	"subgate/internal/models"
	"subgate/internal/utils"
)

// MirrorRule describes how to reach files on one origin. Templates may use
// {origin} (scheme://host of the ref) and {id} (last numeric path segment).
type MirrorRule struct {
	Host       string // matched as a host suffix
	Referer    string
	Alternates []string
	// DetailPage, when set, is scraped for a subtitleserve link as a last resort.
	DetailPage string
}

// DefaultMirrorRules covers the upstreams whose refs reach the fetcher.
func DefaultMirrorRules() []MirrorRule {
	return []MirrorRule{
		{
			Host:    "opensubtitles.org",
			Referer: "{origin}/en/subtitles/{id}",
			Alternates: []string{
				"{origin}/en/download/sub/{id}",
				"https://dl.opensubtitles.org/en/download/sub/{id}",
			},
			DetailPage: "{origin}/en/subtitles/{id}",
		},
		{
			Host:    "subdl.com",
			Referer: "https://subdl.com/",
		},
	}
}

type FetcherOptions struct {
	Timeout      time.Duration
	MaxBytes     int64
	UserAgent    string
	// AllowedHosts are upstream hosts reachable besides the mirror rule hosts.
	// Remote refs on any other host are answered with the placeholder.
	AllowedHosts []string
}

// Fetcher resolves download refs into artifacts. It never fails: anything it
// cannot retrieve becomes a plain-text placeholder.
type Fetcher struct {
	httpClient *http.Client
	opts       FetcherOptions
	rules      []MirrorRule
	logger     zerolog.Logger
}

func NewFetcher(opts FetcherOptions, rules []MirrorRule, logger zerolog.Logger) *Fetcher {
	if opts.Timeout <= 0 {
		opts.Timeout = 10 * time.Second
	}
	if opts.MaxBytes <= 0 {
		opts.MaxBytes = 5 << 20
	}
	f := &Fetcher{
		opts:   opts,
		rules:  rules,
		logger: logger.With().Str("component", "fetcher").Logger(),
	}
	f.httpClient = &http.Client{
		Timeout: opts.Timeout,
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			if len(via) >= 10 {
				return errors.New("stopped after 10 redirects")
			}
			if !f.allowedHost(req.URL.Hostname()) {
				return fmt.Errorf("redirect to %s is not allowed", req.URL.Hostname())
			}
			return nil
		},
	}
	return f
}

// allowedHost reports whether host is, or is a subdomain of, a mirror rule
// host or one of the allowed upstream hosts.
func (f *Fetcher) allowedHost(host string) bool {
	host = strings.ToLower(host)
	if host == "" {
		return false
	}
	matches := func(h string) bool {
		h = strings.ToLower(h)
		return h != "" && (host == h || strings.HasSuffix(host, "."+h))
	}
	for _, rule := range f.rules {
		if matches(rule.Host) {
			return true
		}
	}
	for _, h := range f.opts.AllowedHosts {
		if matches(h) {
			return true
		}
	}
	return false
}

var lastNumber = regexp.MustCompile(`(\d+)[^/]*/?$`)

// Fetch returns the artifact for ref. MimeType and SuggestedFilename are always set.
func (f *Fetcher) Fetch(ctx context.Context, ref string) models.Artifact {
	if subtitles.IsGenerateRef(ref) {
		artifact, err := f.generate(ref)
		if err == nil {
			metrics.ArtifactFetches.WithLabelValues(metrics.FetchGenerated).Inc()
			return artifact
		}
		return f.placeholder(ref, err)
	}

	u, err := url.Parse(ref)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return f.placeholder(ref, errors.New("unsupported download ref"))
	}
	if !f.allowedHost(u.Hostname()) {
		return f.placeholder(ref, fmt.Errorf("host %s is not a configured upstream", u.Hostname()))
	}

	rule := f.ruleFor(u.Hostname())
	origin := u.Scheme + "://" + u.Host
	id := ""
	if m := lastNumber.FindStringSubmatch(u.Path); m != nil {
		id = m[1]
	}
	expand := func(tmpl string) string {
		return strings.NewReplacer("{origin}", origin, "{id}", id).Replace(tmpl)
	}

	referer := origin + "/"
	if rule.Referer != "" && (id != "" || !strings.Contains(rule.Referer, "{id}")) {
		referer = expand(rule.Referer)
	}

	candidates := []string{ref}
	if id != "" {
		for _, alt := range rule.Alternates {
			candidates = append(candidates, expand(alt))
		}
	}

	var errs []error
	for _, candidate := range candidates {
		artifact, err := f.fetchRemote(ctx, candidate, referer, id)
		if err == nil {
			metrics.ArtifactFetches.WithLabelValues(metrics.FetchRemote).Inc()
			return artifact
		}
		errs = append(errs, err)
		if ctx.Err() != nil {
			break
		}
	}

	if rule.DetailPage != "" && id != "" && ctx.Err() == nil {
		artifact, err := f.fetchViaDetailPage(ctx, expand(rule.DetailPage), origin, referer, id)
		if err == nil {
			metrics.ArtifactFetches.WithLabelValues(metrics.FetchRemote).Inc()
			return artifact
		}
		errs = append(errs, err)
	}

	return f.placeholder(ref, errors.Join(errs...))
}

func (f *Fetcher) ruleFor(host string) MirrorRule {
	host = strings.ToLower(host)
	for _, rule := range f.rules {
		h := strings.ToLower(rule.Host)
		if host == h || strings.HasSuffix(host, "."+h) {
			return rule
		}
	}
	return MirrorRule{}
}

func (f *Fetcher) newRequest(ctx context.Context, target, referer string) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", f.opts.UserAgent)
	req.Header.Set("Referer", referer)
	req.Header.Set("Accept", "*/*")
	return req, nil
}

func (f *Fetcher) fetchRemote(ctx context.Context, target, referer, id string) (models.Artifact, error) {
	if u, err := url.Parse(target); err != nil || !f.allowedHost(u.Hostname()) {
		return models.Artifact{}, fmt.Errorf("GET %s: host is not a configured upstream", target)
	}
	req, err := f.newRequest(ctx, target, referer)
	if err != nil {
		return models.Artifact{}, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := f.httpClient.Do(req)
	if err != nil {
		return models.Artifact{}, fmt.Errorf("GET %s: %w", target, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return models.Artifact{}, fmt.Errorf("GET %s: status %d", target, resp.StatusCode)
	}

	mediaType, _, _ := mime.ParseMediaType(resp.Header.Get("Content-Type"))
	if mediaType == "text/html" {
		return models.Artifact{}, fmt.Errorf("GET %s: got an HTML page instead of a file", target)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, f.opts.MaxBytes+1))
	if err != nil {
		return models.Artifact{}, fmt.Errorf("GET %s: %w", target, err)
	}
	if int64(len(body)) > f.opts.MaxBytes {
		return models.Artifact{}, fmt.Errorf("GET %s: file exceeds %d bytes", target, f.opts.MaxBytes)
	}
	if len(body) == 0 {
		return models.Artifact{}, fmt.Errorf("GET %s: empty body", target)
	}

	filename := filenameFromResponse(resp, id)
	return models.Artifact{
		MimeType:          mimeTypeFor(mediaType, filename),
		SuggestedFilename: filename,
		Bytes:             body,
	}, nil
}

func (f *Fetcher) fetchViaDetailPage(ctx context.Context, detailURL, origin, referer, id string) (models.Artifact, error) {
	req, err := f.newRequest(ctx, detailURL, referer)
	if err != nil {
		return models.Artifact{}, err
	}
	resp, err := f.httpClient.Do(req)
	if err != nil {
		return models.Artifact{}, fmt.Errorf("GET %s: %w", detailURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return models.Artifact{}, fmt.Errorf("GET %s: status %d", detailURL, resp.StatusCode)
	}

	page, err := charset.NewReader(io.LimitReader(resp.Body, f.opts.MaxBytes), resp.Header.Get("Content-Type"))
	if err != nil {
		return models.Artifact{}, fmt.Errorf("GET %s: %w", detailURL, err)
	}
	href, ok := subtitles.FindDownloadPath(page)
	if !ok {
		return models.Artifact{}, fmt.Errorf("GET %s: download link not found", detailURL)
	}

	target := href
	if strings.HasPrefix(href, "/") {
		target = origin + href
	}
	return f.fetchRemote(ctx, target, detailURL, id)
}

func (f *Fetcher) generate(ref string) (models.Artifact, error) {
	parsed, err := subtitles.ParseGenerateRef(ref)
	if err != nil {
		return models.Artifact{}, err
	}
	body, format, err := subtitles.Render(parsed)
	if err != nil {
		return models.Artifact{}, err
	}
	return models.Artifact{
		MimeType:          mimeTypeFor("", "x."+format),
		SuggestedFilename: utils.SubtitleFilename(parsed.Name, format, "subtitle"),
		Bytes:             body,
	}, nil
}

func (f *Fetcher) placeholder(ref string, cause error) models.Artifact {
	f.logger.Warn().
		Err(fmt.Errorf("%w: %v", ErrArtifactUnavailable, cause)).
		Str("ref", ref).
		Msg("Serving placeholder artifact")
	metrics.ArtifactFetches.WithLabelValues(metrics.FetchPlaceholder).Inc()

	body := fmt.Sprintf("Subtitle file unavailable\n\n"+
		"The subtitle could not be retrieved from its source right now.\n"+
		"Reference: %s\n\n"+
		"Try again later or pick another subtitle from the list.\n", ref)
	return models.Artifact{
		MimeType:          "text/plain; charset=utf-8",
		SuggestedFilename: "subtitle-unavailable.txt",
		Bytes:             []byte(body),
	}
}

func filenameFromResponse(resp *http.Response, id string) string {
	if _, params, err := mime.ParseMediaType(resp.Header.Get("Content-Disposition")); err == nil {
		if name := utils.SanitizeFilename(path.Base(params["filename"])); name != "" && name != "." {
			return name
		}
	}
	if base := path.Base(resp.Request.URL.Path); path.Ext(base) != "" {
		if name := utils.SanitizeFilename(base); name != "" {
			return name
		}
	}
	if id != "" {
		return fmt.Sprintf("subtitle-%s.srt", id)
	}
	return "subtitle.srt"
}

var mimeByExt = map[string]string{
	".srt": "application/x-subrip",
	".vtt": "text/vtt",
	".ass": "text/x-ssa",
	".ssa": "text/x-ssa",
	".sub": "text/plain",
	".zip": "application/zip",
	".gz":  "application/gzip",
	".txt": "text/plain",
}

func mimeTypeFor(mediaType, filename string) string {
	if mediaType != "" && mediaType != "application/octet-stream" && mediaType != "binary/octet-stream" {
		return mediaType
	}
	if m, ok := mimeByExt[strings.ToLower(path.Ext(filename))]; ok {
		return m
	}
	return "application/octet-stream"
}

// ToVTT converts an SRT artifact to WebVTT; anything else is returned unchanged.
func ToVTT(a models.Artifact) models.Artifact {
	if a.MimeType == "text/vtt" || !utils.LooksLikeSRT(a.Bytes) {
		return a
	}
	name := strings.TrimSuffix(a.SuggestedFilename, path.Ext(a.SuggestedFilename))
	return models.Artifact{
		MimeType:          "text/vtt",
		SuggestedFilename: utils.SubtitleFilename(name, "vtt", "subtitle"),
		Bytes:             utils.ConvertSRTToVTT(a.Bytes),
	}
}
