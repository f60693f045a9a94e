package ocrcache

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
	"golang.org/x/crypto/blake2b"

	"github.com/paperfinder/paperfinder/internal/db"
	"github.com/paperfinder/paperfinder/internal/domain"
)

var cacheKeyPrefix = domain.KeyPrefix + "ocr_cache:"

// store is the consumer interface for the OCR cache (ISP).
type store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	SetWithTTL(ctx context.Context, key string, value []byte, ttl time.Duration) error
}

// CachedRecognizer caches OCR text keyed by the image digest.
type CachedRecognizer struct {
	inner      domain.Recognizer
	store      store
	ttl        time.Duration
	cacheTotal *prometheus.CounterVec
	logger     *zap.Logger
}

// New creates a caching decorator. A zero ttl keeps entries forever.
// cacheTotal is a counter vec with label "result" ("hit"/"miss"), passed explicitly.
func New(
	inner domain.Recognizer,
	s store,
	ttl time.Duration,
	cacheTotal *prometheus.CounterVec,
	logger *zap.Logger,
) *CachedRecognizer {
	return &CachedRecognizer{
		inner:      inner,
		store:      s,
		ttl:        ttl,
		cacheTotal: cacheTotal,
		logger:     logger,
	}
}

// Recognize returns cached text or calls the inner recognizer.
// Failures are never cached.
func (c *CachedRecognizer) Recognize(ctx context.Context, img domain.Image) (string, error) {
	key := cacheKey(img)

	if text, ok := c.getFromCache(ctx, key); ok {
		c.incCache("hit")
		return text, nil
	}

	c.incCache("miss")

	text, err := c.inner.Recognize(ctx, img)
	if err != nil {
		return "", fmt.Errorf("recognize image: %w", err)
	}

	c.putToCache(ctx, key, text)
	return text, nil
}

// HealthCheck delegates to the inner recognizer when it supports it.
func (c *CachedRecognizer) HealthCheck(ctx context.Context) error {
	if hc, ok := c.inner.(domain.HealthChecker); ok {
		return hc.HealthCheck(ctx)
	}
	return nil
}

func (c *CachedRecognizer) incCache(result string) {
	if c.cacheTotal != nil {
		c.cacheTotal.WithLabelValues(result).Inc()
	}
}

func cacheKey(img domain.Image) string {
	h, _ := blake2b.New256(nil)
	h.Write([]byte(img.MIMEType))
	h.Write([]byte{0})
	h.Write(img.Data)
	return cacheKeyPrefix + hex.EncodeToString(h.Sum(nil))
}

func (c *CachedRecognizer) getFromCache(ctx context.Context, key string) (string, bool) {
	data, err := c.store.Get(ctx, key)
	if err != nil {
		if !errors.Is(err, db.ErrKeyNotFound) {
			c.logger.Warn("Failed to get cached OCR text", zap.String("key", key), zap.Error(err))
		}
		return "", false
	}
	if len(data) == 0 {
		return "", false
	}
	return string(data), true
}

func (c *CachedRecognizer) putToCache(ctx context.Context, key, text string) {
	var err error
	if c.ttl > 0 {
		err = c.store.SetWithTTL(ctx, key, []byte(text), c.ttl)
	} else {
		err = c.store.Set(ctx, key, []byte(text))
	}
	if err != nil {
		c.logger.Warn("Failed to cache OCR text", zap.String("key", key), zap.Error(err))
	}
}
