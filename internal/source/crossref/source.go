package crossref

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"paper_recommender/internal/domain"
	"paper_recommender/internal/metrics"
)

const (
	SourceID   = "crossref"
	SourceName = "Crossref"

	selectFields = "title,abstract,author,published,DOI,container-title,ISSN"
)

// Config holds Crossref source configuration.
type Config struct {
	BaseURL        string // works endpoint
	JournalsURL    string
	Mailto         string
	Timeout        time.Duration
	MaxAttempts    int
	InitialBackoff time.Duration
	MaxBackoff     time.Duration
}

// Source fetches candidate articles from the Crossref REST API.
// Transport and decoding failures never escape: they are logged and yield no candidates.
type Source struct {
	httpClient     *http.Client
	baseURL        string
	journalsURL    string
	userAgent      string
	mailto         string
	maxAttempts    int
	initialBackoff time.Duration
	maxBackoff     time.Duration
	now            func() time.Time
	logger         *slog.Logger
}

// New creates a new Crossref source.
func New(cfg Config, logger *slog.Logger) *Source {
	ua := "PaperRecommender/1.0"
	if cfg.Mailto != "" {
		ua += " (mailto:" + cfg.Mailto + ")"
	}
	maxAttempts := cfg.MaxAttempts
	if maxAttempts < 1 {
		maxAttempts = 1
	}

	return &Source{
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
		},
		baseURL:        strings.TrimRight(cfg.BaseURL, "/"),
		journalsURL:    strings.TrimRight(cfg.JournalsURL, "/"),
		userAgent:      ua,
		mailto:         cfg.Mailto,
		maxAttempts:    maxAttempts,
		initialBackoff: cfg.InitialBackoff,
		maxBackoff:     cfg.MaxBackoff,
		now:            time.Now,
		logger:         logger.With("source", SourceID),
	}
}

// ID returns the source identifier.
func (s *Source) ID() string {
	return SourceID
}

// Name returns human-readable name.
func (s *Source) Name() string {
	return SourceName
}

// FetchRecent returns recent articles of one journal, newest first. The
// published-after bound is now - 2*DaysBack to absorb indexing lag. When the
// identifier filter yields nothing the query is retried once by name with the
// same window and cap.
func (s *Source) FetchRecent(ctx context.Context, q domain.FetchQuery) []domain.Candidate {
	from := s.now().AddDate(0, 0, -2*q.DaysBack)
	logger := s.logger.With("journal", q.JournalName, "issn", q.ExternalID)

	if q.ExternalID != "" {
		items, err := s.search(ctx, from, "issn:"+q.ExternalID, q.MaxResults)
		if err != nil {
			logger.Error("fetch by identifier failed", "error", err)
			return nil
		}
		if len(items) > 0 || q.JournalName == "" {
			return s.transform(logger, items)
		}
		logger.Warn("no articles for identifier, retrying by journal name")
	}

	if q.JournalName == "" {
		return nil
	}

	items, err := s.search(ctx, from, "container-title:"+quoteFilterValue(q.JournalName), q.MaxResults)
	if err != nil {
		logger.Error("fetch by journal name failed", "error", err)
		return nil
	}
	return s.transform(logger, items)
}

// FetchByIdentifier looks up one article by DOI.
func (s *Source) FetchByIdentifier(ctx context.Context, doi string) (domain.Candidate, bool) {
	logger := s.logger.With("doi", doi)

	var resp WorkResponse
	if err := s.get(ctx, "lookup", s.baseURL+"/"+url.PathEscape(doi), &resp); err != nil {
		logger.Error("fetch by doi failed", "error", err)
		return domain.Candidate{}, false
	}

	c, ok, err := parseItem(resp.Message)
	if err != nil {
		logger.Warn("failed to parse article", "error", err)
		return domain.Candidate{}, false
	}
	return c, ok
}

// LookupJournal resolves catalog metadata for an ISSN.
func (s *Source) LookupJournal(ctx context.Context, issn string) (domain.JournalInfo, bool) {
	var resp JournalResponse
	if err := s.get(ctx, "journal", s.journalsURL+"/"+url.PathEscape(issn), &resp); err != nil {
		s.logger.Error("journal lookup failed", "issn", issn, "error", err)
		return domain.JournalInfo{}, false
	}
	if resp.Message.Title == "" {
		return domain.JournalInfo{}, false
	}
	return domain.JournalInfo{
		Title:     resp.Message.Title,
		ISSN:      issn,
		Publisher: resp.Message.Publisher,
	}, true
}

// quoteFilterValue wraps v in double quotes so commas inside a journal name
// are not read as filter separators.
func quoteFilterValue(v string) string {
	return `"` + strings.ReplaceAll(v, `"`, "") + `"`
}

func (s *Source) search(ctx context.Context, from time.Time, filter string, rows int) ([]json.RawMessage, error) {
	params := url.Values{}
	params.Set("filter", "from-pub-date:"+from.Format("2006-01-02")+","+filter)
	params.Set("rows", fmt.Sprint(rows))
	params.Set("select", selectFields)
	params.Set("sort", "published")
	params.Set("order", "desc")
	if s.mailto != "" {
		params.Set("mailto", s.mailto)
	}

	var resp WorksResponse
	if err := s.get(ctx, "search", s.baseURL+"?"+params.Encode(), &resp); err != nil {
		return nil, err
	}

	s.logger.Debug("received articles", "filter", filter, "count", len(resp.Message.Items))
	return resp.Message.Items, nil
}

func (s *Source) get(ctx context.Context, operation, target string, v any) error {
	var err error

	for attempt := 1; attempt <= s.maxAttempts; attempt++ {
		start := time.Now()
		err = s.doRequest(ctx, target, v)
		metrics.ObserveFetch(operation, time.Since(start), err)
		if err == nil {
			return nil
		}

		if attempt == s.maxAttempts {
			break
		}

		backoff := s.calculateBackoff(attempt)
		s.logger.Warn("request failed, retrying",
			"attempt", attempt,
			"backoff", backoff,
			"error", err,
		)

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(backoff):
		}
	}

	if s.maxAttempts > 1 {
		return fmt.Errorf("after %d attempts: %w", s.maxAttempts, err)
	}
	return err
}

func (s *Source) doRequest(ctx context.Context, target string, v any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}

	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", s.userAgent)

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("execute request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected status: %d", resp.StatusCode)
	}

	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}

	return nil
}

func (s *Source) calculateBackoff(attempt int) time.Duration {
	backoff := s.initialBackoff
	for i := 1; i < attempt; i++ {
		backoff *= 2
	}
	if backoff > s.maxBackoff {
		backoff = s.maxBackoff
	}
	return backoff
}

func (s *Source) transform(logger *slog.Logger, items []json.RawMessage) []domain.Candidate {
	candidates := make([]domain.Candidate, 0, len(items))

	for i, raw := range items {
		c, ok, err := parseItem(raw)
		if err != nil {
			logger.Warn("failed to parse article", "index", i, "error", err)
			continue
		}
		if !ok {
			continue
		}
		candidates = append(candidates, c)
	}

	logger.Info("parsed articles", "received", len(items), "parsed", len(candidates))
	return candidates
}

// parseItem converts one raw work. ok is false when the item has no title.
func parseItem(raw json.RawMessage) (domain.Candidate, bool, error) {
	var w Work
	if err := json.Unmarshal(raw, &w); err != nil {
		return domain.Candidate{}, false, fmt.Errorf("decode item: %w", err)
	}

	title := strings.TrimSpace(w.Title.First())
	if title == "" {
		return domain.Candidate{}, false, nil
	}

	c := domain.Candidate{
		Title:      title,
		Abstract:   CleanAbstract(w.Abstract),
		ExternalID: w.DOI,
		Journal:    w.ContainerTitle.First(),
	}

	for _, a := range w.Author {
		given, family := strings.TrimSpace(a.Given), strings.TrimSpace(a.Family)
		switch {
		case given != "" && family != "":
			c.Authors = append(c.Authors, given+" "+family)
		case family != "":
			c.Authors = append(c.Authors, family)
		}
	}

	if w.Published != nil && len(w.Published.DateParts) > 0 && len(w.Published.DateParts[0]) > 0 {
		if y := w.Published.DateParts[0][0]; y != nil {
			year := *y
			c.Year = &year
		}
	}

	return c, true, nil
}
