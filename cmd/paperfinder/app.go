package main

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/paperfinder/paperfinder/internal/config"
	"github.com/paperfinder/paperfinder/internal/db"
	dbMemory "github.com/paperfinder/paperfinder/internal/db/memory"
	dbRedis "github.com/paperfinder/paperfinder/internal/db/redis"
	"github.com/paperfinder/paperfinder/internal/domain/label"
	"github.com/paperfinder/paperfinder/internal/metrics"
	budgetrepo "github.com/paperfinder/paperfinder/internal/repository/budget"
	"github.com/paperfinder/paperfinder/internal/repository/ocrcache"
	sessionrepo "github.com/paperfinder/paperfinder/internal/repository/session"
	"github.com/paperfinder/paperfinder/internal/transport/assets"
	chiTransport "github.com/paperfinder/paperfinder/internal/transport/chi"
	"github.com/paperfinder/paperfinder/internal/transport/mail"
	"github.com/paperfinder/paperfinder/internal/transport/mistral"
	openaiChat "github.com/paperfinder/paperfinder/internal/transport/openai"
	"github.com/paperfinder/paperfinder/internal/transport/pinecone"
	"github.com/paperfinder/paperfinder/internal/transport/tesseract"
	chatuc "github.com/paperfinder/paperfinder/internal/usecase/chat"
	feedbackuc "github.com/paperfinder/paperfinder/internal/usecase/feedback"
	healthuc "github.com/paperfinder/paperfinder/internal/usecase/health"
	searchuc "github.com/paperfinder/paperfinder/internal/usecase/search"
	sessionuc "github.com/paperfinder/paperfinder/internal/usecase/session"
	usageuc "github.com/paperfinder/paperfinder/internal/usecase/usage"
	worksheetuc "github.com/paperfinder/paperfinder/internal/usecase/worksheet"
)

const (
	chatProvider   = "openai"
	budgetDailyTTL = 48 * time.Hour
	budgetMonthTTL = 62 * 24 * time.Hour
)

// app is the composition root shared by the serve and worksheet commands.
type app struct {
	cfg      config.Config
	logger   *zap.Logger
	store    db.Store
	assets   label.Assets
	services chiTransport.Services
}

// newApp connects the store and builds every service from cfg.
func newApp(ctx context.Context, cfg config.Config, logger *zap.Logger) (*app, error) {
	store, err := newStore(cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("create database store: %w", err)
	}
	if err := store.WaitForReady(ctx, time.Duration(cfg.Database.ReadinessTimeout)*time.Second); err != nil {
		store.Close()
		return nil, fmt.Errorf("database not ready: %w", err)
	}
	logger.Info("Connected to database", zap.String("driver", cfg.Database.Driver))

	// Register upstream metrics explicitly (no init())
	metrics.RegisterUpstreamMetrics()

	a := &app{cfg: cfg, logger: logger, store: store, assets: assetPrefixes(cfg.Assets)}

	fetcher := assets.New(assets.Config{
		BaseURL: cfg.Assets.BaseURL,
		Dir:     cfg.Assets.Dir,
		Timeout: seconds(cfg.Assets.TimeoutSec),
	})
	sessions := sessionrepo.New(store, seconds(cfg.Session.TTLSec))

	providers := map[string]healthuc.ProviderChecker{}

	// Search: an index without a host stays unregistered.
	var primary, secondary searchuc.Index
	if c := newIndex(cfg.Search, cfg.Search.PrimaryHost); c.Configured() {
		primary = c
	}
	if c := newIndex(cfg.Search, cfg.Search.SecondaryHost); c.Configured() {
		secondary = c
	}

	// Pass nil interface (not typed nil pointer!) when OCR is not configured.
	var ocr searchuc.Recognizer
	if rec, checker := newRecognizer(cfg.OCR); rec != nil {
		ocr = ocrcache.New(rec, store, seconds(cfg.OCR.CacheTTLSec), metrics.OCRCacheTotal, logger)
		providers["ocr"] = checker
	}
	searchSvc := searchuc.New(primary, secondary, ocr, logger)

	// Chat: a single BudgetTracker is shared by the chat and usage services.
	var budget *chatuc.BudgetTracker
	budgetCfg := cfg.Chat.Budget
	if budgetCfg.DailyTokenLimit > 0 || budgetCfg.MonthlyTokenLimit > 0 {
		action := chatuc.BudgetActionWarn
		if budgetCfg.Action == "reject" {
			action = chatuc.BudgetActionReject
		}
		budget = chatuc.NewBudgetTracker(
			chatProvider, budgetCfg.DailyTokenLimit, budgetCfg.MonthlyTokenLimit, action, logger,
		)
		// Connect persistence store: loads current counters from the store.
		budget.WithStore(ctx, budgetrepo.New(store, chatProvider, budgetDailyTTL, budgetMonthTTL))
	}

	var (
		budgetChecker chatuc.BudgetChecker
		budgetReader  usageuc.BudgetReader
	)
	if budget != nil {
		budgetChecker = budget
		budgetReader = budget
	}

	var provider chatuc.Provider
	if cfg.Chat.APIKey != "" {
		c := openaiChat.NewChat(&openaiChat.Config{
			APIKey:  cfg.Chat.APIKey,
			BaseURL: cfg.Chat.BaseURL,
			Logger:  logger,
		})
		provider = c
		providers["chat"] = c
	}

	fb := cfg.Feedback
	feedbackSvc := feedbackuc.New(
		mail.NewEmailJS(mail.EmailJSConfig{
			ServiceID:  fb.EmailJS.ServiceID,
			TemplateID: fb.EmailJS.TemplateID,
			PublicKey:  fb.EmailJS.PublicKey,
			PrivateKey: fb.EmailJS.PrivateKey,
			ToEmail:    fb.EmailJS.ToEmail,
		}),
		mail.NewFormspree(mail.FormspreeConfig{FormID: fb.Formspree.FormID}),
		logger,
	)

	a.services = chiTransport.Services{
		Sessions:   sessionuc.New(sessions, searchSvc),
		Search:     searchSvc,
		Chat:       chatuc.New(provider, budgetChecker, sessions, fetcher, a.assets, logger),
		Worksheets: worksheetuc.New(fetcher, sessions, a.assets, logger),
		Feedback:   feedbackSvc,
		Usage:      usageuc.New(budgetReader, chatProvider),
		Health:     healthuc.New(store, providers),
	}

	logger.Info("Services created",
		zap.Bool("search_primary", primary != nil),
		zap.Bool("search_secondary", secondary != nil),
		zap.String("ocr_provider", cfg.OCR.Provider),
		zap.Bool("ocr_enabled", ocr != nil),
		zap.Bool("chat_enabled", provider != nil),
		zap.Bool("chat_budget", budget != nil),
	)
	return a, nil
}

func (a *app) Close() {
	a.store.Close()
}

func newStore(cfg config.DatabaseConfig) (db.Store, error) {
	switch cfg.Driver {
	case "memory":
		return dbMemory.NewStore(), nil
	case "redis", "valkey":
		s, err := dbRedis.NewStore(dbRedis.Config{
			Addrs:    cfg.Addrs,
			Username: cfg.Username,
			Password: cfg.Password,
			DB:       cfg.DB,
		})
		if err != nil {
			return nil, fmt.Errorf("redis: %w", err)
		}
		return s, nil
	default:
		return nil, fmt.Errorf("unknown database driver %q", cfg.Driver)
	}
}

func newIndex(cfg config.SearchConfig, host string) *pinecone.Client {
	return pinecone.New(pinecone.Config{
		APIKey:     cfg.APIKey,
		Host:       host,
		Namespace:  cfg.Namespace,
		APIVersion: cfg.APIVersion,
		Timeout:    seconds(cfg.TimeoutSec),
	})
}

// newRecognizer returns nil when OCR is disabled or has no credentials.
func newRecognizer(cfg config.OCRConfig) (searchuc.Recognizer, healthuc.ProviderChecker) {
	switch cfg.Provider {
	case "mistral":
		if cfg.APIKey == "" {
			return nil, nil
		}
		o := mistral.New(mistral.Config{
			APIKey:  cfg.APIKey,
			BaseURL: cfg.BaseURL,
			Model:   cfg.Model,
			Timeout: seconds(cfg.TimeoutSec),
		})
		return o, o
	case "tesseract":
		e := tesseract.New(tesseract.Config{Languages: cfg.Languages})
		return e, e
	default:
		return nil, nil
	}
}

// assetPrefixes overlays configured prefixes on the published defaults.
func assetPrefixes(cfg config.AssetsConfig) label.Assets {
	a := label.DefaultAssets()
	if cfg.QuestionsPrefix != "" {
		a.Questions = cfg.QuestionsPrefix
	}
	if cfg.AnswersPrefix != "" {
		a.Answers = cfg.AnswersPrefix
	}
	if cfg.PapersPrefix != "" {
		a.Papers = cfg.PapersPrefix
	}
	if cfg.MarkschemesPrefix != "" {
		a.Markschemes = cfg.MarkschemesPrefix
	}
	return a
}

func seconds(n int) time.Duration {
	return time.Duration(n) * time.Second
}
