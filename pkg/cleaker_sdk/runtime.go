package cleaker_sdk

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"

	"github.com/cleaker/cleaker_sdk_go/internal/devseed"
	"github.com/cleaker/cleaker_sdk_go/pkg/ledger"
	"github.com/cleaker/cleaker_sdk_go/pkg/ledger/mock"
)

const (
	EnvMode     = "CLEAKER_RUNTIME_MODE"
	EnvMockSeed = "CLEAKER_MOCK_SEED"

	ModeAuto = "auto"
	ModeHTTP = "http"
	ModeMock = "mock"
)

type runtimeEnv struct {
	Mode     string `env:"CLEAKER_RUNTIME_MODE" envDefault:"http"`
	MockSeed string `env:"CLEAKER_MOCK_SEED"`
}

// Option configures NewFromEnv.
type Option func(*settings)

type settings struct {
	endpoint   string
	timeout    time.Duration
	clientOpts []ledger.Option
}

// WithEndpoint overrides CLEAKER_ENDPOINT. A blank value is ignored.
func WithEndpoint(endpoint string) Option {
	return func(s *settings) {
		s.endpoint = strings.TrimSpace(endpoint)
	}
}

// WithTimeout overrides CLEAKER_TIMEOUT. Non-positive values are ignored.
func WithTimeout(d time.Duration) Option {
	return func(s *settings) {
		if d > 0 {
			s.timeout = d
		}
	}
}

// WithClientOptions forwards opts to the ledger.Client constructor.
func WithClientOptions(opts ...ledger.Option) Option {
	return func(s *settings) {
		s.clientOpts = append(s.clientOpts, opts...)
	}
}

// NewFromEnv initialises a ledger client based on environment variables and
// returns the resolved mode ("http" or "mock").
func NewFromEnv(opts ...Option) (*ledger.Client, string, error) {
	var s settings
	for _, opt := range opts {
		opt(&s)
	}

	var rt runtimeEnv
	if err := env.Parse(&rt); err != nil {
		return nil, "", fmt.Errorf("cleaker_sdk: parse env: %w", err)
	}
	mode := strings.ToLower(strings.TrimSpace(rt.Mode))

	switch mode {
	case "", ModeHTTP:
		return newHTTPClient(s)
	case ModeAuto:
		if s.endpoint != "" || strings.TrimSpace(os.Getenv(ledger.EnvEndpoint)) != "" {
			return newHTTPClient(s)
		}
		return newMockClient(s, rt.MockSeed)
	case ModeMock:
		return newMockClient(s, rt.MockSeed)
	default:
		return nil, "", fmt.Errorf("cleaker_sdk: unsupported %s value %q", EnvMode, mode)
	}
}

func newHTTPClient(s settings) (*ledger.Client, string, error) {
	cfg, err := ledger.LoadConfig(s.endpoint)
	if err != nil {
		return nil, "", fmt.Errorf("cleaker_sdk: load config: %w", err)
	}
	if s.timeout > 0 {
		cfg.Timeout = s.timeout
	}
	client, err := ledger.New(cfg, s.clientOpts...)
	if err != nil {
		return nil, "", fmt.Errorf("cleaker_sdk: init HTTP client: %w", err)
	}
	return client, ModeHTTP, nil
}

func newMockClient(s settings, seedPath string) (*ledger.Client, string, error) {
	store, err := NewSeededMock(seedPath)
	if err != nil {
		return nil, "", err
	}
	return ledger.NewWithBackend(store, s.clientOpts...), ModeMock, nil
}

// NewSeededMock returns an in-memory ledger loaded from the seed file at
// path, or an empty one when path is blank.
func NewSeededMock(path string, opts ...mock.Option) (*mock.Mock, error) {
	store := mock.New(opts...)
	if path = strings.TrimSpace(path); path == "" {
		return store, nil
	}
	seed, err := devseed.LoadLedgerSeed(path)
	if err != nil {
		return nil, fmt.Errorf("cleaker_sdk: load mock seed: %w", err)
	}
	if err := store.Seed(seed); err != nil {
		return nil, fmt.Errorf("cleaker_sdk: apply mock seed: %w", err)
	}
	return store, nil
}
