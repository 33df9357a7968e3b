package authz

import (
	"context"
	_ "embed"
	"fmt"
	"sync"

	"github.com/casbin/casbin/v2"
	"github.com/casbin/casbin/v2/model"
	stringadapter "github.com/casbin/casbin/v2/persist/string-adapter"
	"github.com/sirupsen/logrus"
)

var (
	//go:embed model.conf
	defaultModel string
	//go:embed policy.csv
	defaultPolicy string
)

type Config struct {
	// Model and Policy default to the embedded role model when empty.
	Model  string
	Policy string
	Logger *logrus.Logger
}

// Service provides helpers for enforcing authorization decisions.
type Service struct {
	enforcer *casbin.Enforcer
	logger   *logrus.Entry
	mu       sync.RWMutex
}

// NewService constructs a Service with the provided config.
func NewService(cfg Config) (*Service, error) {
	if cfg.Model == "" {
		cfg.Model = defaultModel
	}
	if cfg.Policy == "" {
		cfg.Policy = defaultPolicy
	}

	var logger *logrus.Entry
	if cfg.Logger != nil {
		logger = cfg.Logger.WithField("component", "authz")
	} else {
		logger = logrus.WithField("component", "authz")
	}

	m, err := model.NewModelFromString(cfg.Model)
	if err != nil {
		return nil, fmt.Errorf("authz: failed to parse model: %w", err)
	}
	enf, err := casbin.NewEnforcer(m, stringadapter.NewAdapter(cfg.Policy))
	if err != nil {
		return nil, fmt.Errorf("authz: failed to initialize enforcer: %w", err)
	}
	if err := enf.LoadPolicy(); err != nil {
		return nil, fmt.Errorf("authz: failed to load policies: %w", err)
	}

	return &Service{enforcer: enf, logger: logger}, nil
}

var defaultService = sync.OnceValues(func() (*Service, error) {
	return NewService(Config{})
})

// Default returns the process-wide Service built from the embedded model and policy.
// It panics if the embedded files fail to load.
func Default() *Service {
	svc, err := defaultService()
	if err != nil {
		panic(err)
	}
	return svc
}

// Authorize returns an error if the request is denied.
func (s *Service) Authorize(ctx context.Context, req Request) error {
	allowed, err := s.Check(ctx, req)
	if err != nil {
		return err
	}
	if !allowed {
		s.logger.WithContext(ctx).WithFields(logrus.Fields{
			"subject": req.Subject,
			"object":  req.Object,
			"action":  req.Action,
		}).Warn("authz denied request")
		return forbiddenError(req)
	}
	return nil
}

// Check evaluates a request without returning an authorization error.
func (s *Service) Check(_ context.Context, req Request) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	res, err := s.enforcer.Enforce(req.Subject, req.Object, req.Action)
	if err != nil {
		return false, fmt.Errorf("authz: enforce failed: %w", err)
	}
	return res, nil
}
