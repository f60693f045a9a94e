package paperfinder

import (
	"io/fs"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	searchuc "github.com/paperfinder/paperfinder/internal/usecase/search"
)

// Option configures the Client.
type Option interface {
	apply(*clientConfig)
}

// optionFunc adapts a function to the Option interface.
type optionFunc func(*clientConfig)

func (f optionFunc) apply(c *clientConfig) { f(c) }

type clientConfig struct {
	driver   string // "memory", "redis" or "valkey"
	addrs    []string
	password string

	pineconeKey   string
	primaryHost   string
	secondaryHost string
	namespace     string

	mistralKey string

	assetsDir string
	assetsURL string
	assetsFS  fs.FS

	sessionTTL time.Duration

	logger     *zap.Logger
	metricsReg prometheus.Registerer

	// set directly by tests
	primary   searchuc.Index
	secondary searchuc.Index
	ocr       searchuc.Recognizer
}

// WithRedis stores sessions in a Redis instance.
func WithRedis(addr, password string) Option {
	return optionFunc(func(c *clientConfig) {
		c.driver = "redis"
		c.addrs = []string{addr}
		c.password = password
	})
}

// WithValkey stores sessions in a Valkey instance.
func WithValkey(addr, password string) Option {
	return optionFunc(func(c *clientConfig) {
		c.driver = "valkey"
		c.addrs = []string{addr}
		c.password = password
	})
}

// WithPinecone configures the primary question index.
func WithPinecone(apiKey, host string) Option {
	return optionFunc(func(c *clientConfig) {
		c.pineconeKey = apiKey
		c.primaryHost = host
	})
}

// WithSecondaryIndex enables BackendSecondary on another index host.
// It shares the API key given to WithPinecone.
func WithSecondaryIndex(host string) Option {
	return optionFunc(func(c *clientConfig) {
		c.secondaryHost = host
	})
}

// WithNamespace overrides the index namespace.
func WithNamespace(ns string) Option {
	return optionFunc(func(c *clientConfig) {
		c.namespace = ns
	})
}

// WithMistralOCR enables image search through Mistral OCR.
func WithMistralOCR(apiKey string) Option {
	return optionFunc(func(c *clientConfig) {
		c.mistralKey = apiKey
	})
}

// WithAssetsDir reads question images from a local mirror of the site.
func WithAssetsDir(dir string) Option {
	return optionFunc(func(c *clientConfig) {
		c.assetsDir = dir
	})
}

// WithAssetsURL downloads question images from the published site.
func WithAssetsURL(baseURL string) Option {
	return optionFunc(func(c *clientConfig) {
		c.assetsURL = baseURL
	})
}

// WithAssetsFS reads question images from fsys, e.g. an embed.FS.
func WithAssetsFS(fsys fs.FS) Option {
	return optionFunc(func(c *clientConfig) {
		c.assetsFS = fsys
	})
}

// WithSessionTTL sets how long idle sessions are kept. Default: 24h.
func WithSessionTTL(ttl time.Duration) Option {
	return optionFunc(func(c *clientConfig) {
		c.sessionTTL = ttl
	})
}

// WithLogger enables structured logging for SDK operations.
// Pass nil to disable (default).
func WithLogger(l *zap.Logger) Option {
	return optionFunc(func(c *clientConfig) {
		c.logger = l
	})
}

// WithPrometheus registers SDK metrics (operation counts and durations)
// on the given registerer. Pass nil to disable (default).
func WithPrometheus(reg prometheus.Registerer) Option {
	return optionFunc(func(c *clientConfig) {
		c.metricsReg = reg
	})
}
