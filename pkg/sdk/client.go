package paperfinder

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/paperfinder/paperfinder/internal/db"
	dbMemory "github.com/paperfinder/paperfinder/internal/db/memory"
	dbRedis "github.com/paperfinder/paperfinder/internal/db/redis"
	"github.com/paperfinder/paperfinder/internal/domain"
	"github.com/paperfinder/paperfinder/internal/domain/label"
	"github.com/paperfinder/paperfinder/internal/domain/search/filter"
	"github.com/paperfinder/paperfinder/internal/metrics"
	"github.com/paperfinder/paperfinder/internal/repository/ocrcache"
	sessionrepo "github.com/paperfinder/paperfinder/internal/repository/session"
	"github.com/paperfinder/paperfinder/internal/transport/assets"
	"github.com/paperfinder/paperfinder/internal/transport/mistral"
	"github.com/paperfinder/paperfinder/internal/transport/pinecone"
	healthuc "github.com/paperfinder/paperfinder/internal/usecase/health"
	searchuc "github.com/paperfinder/paperfinder/internal/usecase/search"
	sessionuc "github.com/paperfinder/paperfinder/internal/usecase/session"
	worksheetuc "github.com/paperfinder/paperfinder/internal/usecase/worksheet"
)

const (
	defaultReadinessTimeout = 10 * time.Second
	defaultSessionTTL       = 24 * time.Hour
)

// Client is the paperfinder SDK entry point.
type Client struct {
	store      db.Store
	assets     label.Assets
	search     *searchuc.Service
	sessions   *sessionuc.Service
	worksheets *worksheetuc.Service
	health     healthUseCase
	obs        *observer
}

// New creates a Client. Without WithRedis or WithValkey, sessions are kept
// in process memory. The context is used for the initial readiness check.
func New(ctx context.Context, opts ...Option) (*Client, error) {
	cfg := &clientConfig{driver: "memory", sessionTTL: defaultSessionTTL}
	for _, o := range opts {
		o.apply(cfg)
	}

	store, err := createStore(cfg)
	if err != nil {
		return nil, err
	}

	if err := store.WaitForReady(ctx, defaultReadinessTimeout); err != nil {
		store.Close()
		return nil, fmt.Errorf("paperfinder: database not ready: %w", err)
	}

	obs, err := newObserver(cfg.logger, cfg.metricsReg)
	if err != nil {
		store.Close()
		return nil, err
	}
	return wireClient(store, cfg, obs), nil
}

func createStore(cfg *clientConfig) (db.Store, error) {
	switch cfg.driver {
	case "memory":
		return dbMemory.NewStore(), nil
	case "redis", "valkey":
		s, err := dbRedis.NewStore(dbRedis.Config{
			Addrs:    cfg.addrs,
			Password: cfg.password,
		})
		if err != nil {
			return nil, fmt.Errorf("paperfinder: create %s store: %w", cfg.driver, err)
		}
		return s, nil
	default:
		return nil, fmt.Errorf("paperfinder: unknown driver %q", cfg.driver)
	}
}

func wireClient(store db.Store, cfg *clientConfig, obs *observer) *Client {
	logger := cfg.logger
	if logger == nil {
		logger = zap.NewNop()
	}

	primary, secondary := cfg.primary, cfg.secondary
	if primary == nil {
		if c := newIndex(cfg, cfg.primaryHost); c.Configured() {
			primary = c
		}
	}
	if secondary == nil {
		if c := newIndex(cfg, cfg.secondaryHost); c.Configured() {
			secondary = c
		}
	}

	providers := map[string]healthuc.ProviderChecker{}
	ocr := cfg.ocr
	if ocr == nil && cfg.mistralKey != "" {
		m := mistral.New(mistral.Config{APIKey: cfg.mistralKey})
		providers["ocr"] = m
		ocr = ocrcache.New(m, store, 0, metrics.OCRCacheTotal, logger)
	}

	var fetcher *assets.Fetcher
	if cfg.assetsFS != nil {
		fetcher = assets.NewFS(cfg.assetsFS)
	} else {
		fetcher = assets.New(assets.Config{BaseURL: cfg.assetsURL, Dir: cfg.assetsDir})
	}

	a := label.DefaultAssets()
	sessions := sessionrepo.New(store, cfg.sessionTTL)
	searchSvc := searchuc.New(primary, secondary, ocr, logger)

	return &Client{
		store:      store,
		assets:     a,
		search:     searchSvc,
		sessions:   sessionuc.New(sessions, searchSvc),
		worksheets: worksheetuc.New(fetcher, sessions, a, logger),
		health:     healthuc.New(store, providers),
		obs:        obs,
	}
}

func newIndex(cfg *clientConfig, host string) *pinecone.Client {
	return pinecone.New(pinecone.Config{
		APIKey:    cfg.pineconeKey,
		Host:      host,
		Namespace: cfg.namespace,
	})
}

// Close releases all resources.
func (c *Client) Close() {
	if c.store != nil {
		c.store.Close()
	}
}

// Ping checks session store connectivity.
func (c *Client) Ping(ctx context.Context) (err error) {
	start := time.Now()
	defer func() { c.obs.observe("ping", start, err) }()

	if err = c.store.Ping(ctx); err != nil {
		return fmt.Errorf("ping: %w", err)
	}
	return nil
}

// Search runs a text search. Index failures do not return an error: they
// yield the single error match (see Match.IsError).
func (c *Client) Search(ctx context.Context, query string, opts *SearchOptions) (_ []Match, err error) {
	start := time.Now()
	defer func() { c.obs.observe("search", start, err) }()

	f, err := c.filters(opts)
	if err != nil {
		return nil, fmt.Errorf("search: %w", err)
	}
	res, err := c.search.Search(ctx, query, f)
	if err != nil {
		return nil, fmt.Errorf("search: %w", err)
	}
	return fromMatches(res.Matches), nil
}

// SearchImage recognizes the text of a photographed question and searches
// for it.
func (c *Client) SearchImage(
	ctx context.Context, image []byte, mimeType string, opts *SearchOptions,
) (_ []Match, err error) {
	start := time.Now()
	defer func() { c.obs.observe("search_image", start, err) }()

	f, err := c.filters(opts)
	if err != nil {
		return nil, fmt.Errorf("search image: %w", err)
	}
	img, err := domain.NewImage(image, mimeType)
	if err != nil {
		return nil, fmt.Errorf("search image: %w", err)
	}
	return fromMatches(c.search.SearchImage(ctx, img, f).Matches), nil
}

// Recognize returns the text found in an image.
func (c *Client) Recognize(ctx context.Context, image []byte, mimeType string) (_ string, err error) {
	start := time.Now()
	defer func() { c.obs.observe("recognize", start, err) }()

	img, err := domain.NewImage(image, mimeType)
	if err != nil {
		return "", fmt.Errorf("recognize: %w", err)
	}
	text, err := c.search.Recognize(ctx, img)
	if err != nil {
		return "", fmt.Errorf("recognize: %w", err)
	}
	return text, nil
}

// Label describes a question identifier.
func (c *Client) Label(id string) (LabelInfo, error) {
	if err := label.Validate(id); err != nil {
		return LabelInfo{}, fmt.Errorf("label: %w", err)
	}
	return fromLabel(id, c.assets), nil
}

// Worksheet renders the given questions into an A4 PDF.
func (c *Client) Worksheet(ctx context.Context, ids []string, mode WorksheetMode) (_ Worksheet, err error) {
	start := time.Now()
	defer func() { c.obs.observe("worksheet", start, err) }()

	m, err := toWorksheetMode(mode)
	if err != nil {
		return Worksheet{}, fmt.Errorf("worksheet: %w", err)
	}
	doc, err := c.worksheets.Export(ctx, ids, m, nil)
	if err != nil {
		return Worksheet{}, fmt.Errorf("worksheet: %w", err)
	}
	return Worksheet{Name: doc.Name, Data: doc.Data, Pages: doc.Pages}, nil
}

// Sessions returns the search session service.
func (c *Client) Sessions() *SessionService {
	return &SessionService{svc: c.sessions, worksheets: c.worksheets, search: c.search, obs: c.obs}
}

// filters rejects the secondary backend when it has no index.
func (c *Client) filters(opts *SearchOptions) (filter.Filters, error) {
	f, err := toFilters(opts)
	if err != nil {
		return filter.Filters{}, err
	}
	if f.Backend() == filter.BackendSecondary && !c.search.HasBackend(f.Backend()) {
		return filter.Filters{}, fmt.Errorf("%w: search backend %s is not configured", domain.ErrInvalidInput, f.Backend())
	}
	return f, nil
}
