package configuration

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/iota-uz/orghierarchy/pkg/logging"

	"github.com/caarlos0/env/v11"
	"github.com/iota-uz/utils/fs"
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
)

const Production = "production"

const (
	UnresolvedPolicyError = "error"
	UnresolvedPolicySkip  = "skip"

	SelfLoopPolicyReject = "reject"
	SelfLoopPolicyApply  = "apply"

	DuplicateParentLastWins = "last-wins"
	DuplicateParentReject   = "reject"
)

var singleton = sync.OnceValue(func() *Configuration {
	c := &Configuration{}
	if err := c.load([]string{".env", ".env.local"}); err != nil {
		c.Unload()
		panic(err)
	}
	return c
})

// LoadEnv loads the given env files from the working directory, falling back to
// the nearest directory containing go.mod.
func LoadEnv(envFiles []string) (int, error) {
	existingFiles := make([]string, 0, len(envFiles))
	root := findModuleRoot()
	for _, file := range envFiles {
		if fs.FileExists(file) {
			existingFiles = append(existingFiles, file)
			continue
		}
		if root == "" || filepath.IsAbs(file) {
			continue
		}
		if candidate := filepath.Join(root, file); fs.FileExists(candidate) {
			existingFiles = append(existingFiles, candidate)
		}
	}

	if len(existingFiles) == 0 {
		return 0, nil
	}

	return len(existingFiles), godotenv.Load(existingFiles...)
}

func findModuleRoot() string {
	dir, err := os.Getwd()
	if err != nil {
		return ""
	}
	for {
		if fs.FileExists(filepath.Join(dir, "go.mod")) {
			return dir
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return ""
		}
		dir = parent
	}
}

type DatabaseOptions struct {
	Opts     string `env:"-"`
	Name     string `env:"DB_NAME" envDefault:"orghierarchy"`
	Host     string `env:"DB_HOST" envDefault:"localhost"`
	Port     string `env:"DB_PORT" envDefault:"5432"`
	User     string `env:"DB_USER" envDefault:"postgres"`
	Password string `env:"DB_PASSWORD" envDefault:"postgres"`
}

func (d *DatabaseOptions) ConnectionString() string {
	return fmt.Sprintf(
		"host=%s port=%s user=%s dbname=%s password=%s sslmode=disable",
		d.Host, d.Port, d.User, d.Name, d.Password,
	)
}

type SQLiteOptions struct {
	Path string `env:"SQLITE_PATH" envDefault:"hierarchy.db"`
}

type LokiOptions struct {
	AppName string `env:"LOKI_APP_NAME" envDefault:"orghierarchy"`
	LogPath string `env:"LOG_PATH" envDefault:""`
}

type OpenTelemetryOptions struct {
	Enabled     bool   `env:"OTEL_ENABLED" envDefault:"false"`
	TempoURL    string `env:"OTEL_TEMPO_URL" envDefault:"localhost:4318"`
	ServiceName string `env:"OTEL_SERVICE_NAME" envDefault:"orghierarchy"`
}

type PrometheusOptions struct {
	Enabled bool   `env:"PROMETHEUS_METRICS_ENABLED" envDefault:"false"`
	Path    string `env:"PROMETHEUS_METRICS_PATH" envDefault:"/debug/prometheus"`
}

type RateLimitOptions struct {
	Enabled   bool   `env:"RATE_LIMIT_ENABLED" envDefault:"true"`
	GlobalRPS int    `env:"RATE_LIMIT_GLOBAL_RPS" envDefault:"1000"`
	Storage   string `env:"RATE_LIMIT_STORAGE" envDefault:"memory"` // memory or redis
	RedisURL  string `env:"RATE_LIMIT_REDIS_URL"`
}

// Validate checks the rate limit configuration for errors
func (r *RateLimitOptions) Validate() error {
	if r.GlobalRPS < 0 {
		return fmt.Errorf("rate limit GlobalRPS must be non-negative, got %d", r.GlobalRPS)
	}
	if r.GlobalRPS > 1000000 {
		return fmt.Errorf("rate limit GlobalRPS too high, maximum is 1,000,000, got %d", r.GlobalRPS)
	}
	if r.Storage != "memory" && r.Storage != "redis" {
		return fmt.Errorf("rate limit Storage must be 'memory' or 'redis', got '%s'", r.Storage)
	}
	if r.Storage == "redis" && r.RedisURL == "" {
		return fmt.Errorf("rate limit RedisURL is required when Storage is 'redis'")
	}
	return nil
}

// HierarchyOptions drive the reconciler and the remote designation store client.
type HierarchyOptions struct {
	PlaceholderPrefix     string        `env:"HIERARCHY_PLACEHOLDER_PREFIX" envDefault:"new-"`
	CallTimeout           time.Duration `env:"HIERARCHY_CALL_TIMEOUT" envDefault:"10s"`
	UnresolvedPolicy      string        `env:"HIERARCHY_UNRESOLVED_POLICY" envDefault:"error"`
	SelfLoopPolicy        string        `env:"HIERARCHY_SELF_LOOP_POLICY" envDefault:"reject"`
	DuplicateParentPolicy string        `env:"HIERARCHY_DUPLICATE_PARENT_POLICY" envDefault:"last-wins"`
	SimilarNameThreshold  int           `env:"HIERARCHY_SIMILAR_NAME_THRESHOLD" envDefault:"2"`
	StoreBaseURL          string        `env:"HIERARCHY_STORE_BASE_URL" envDefault:""`
	StoreAuthorization    string        `env:"HIERARCHY_STORE_AUTHORIZATION" envDefault:""`
	DefaultTenantID       string        `env:"HIERARCHY_DEFAULT_TENANT_ID" envDefault:"00000000-0000-0000-0000-000000000001"`
}

func (h *HierarchyOptions) Validate() error {
	if strings.TrimSpace(h.PlaceholderPrefix) == "" {
		return fmt.Errorf("HIERARCHY_PLACEHOLDER_PREFIX must not be empty")
	}
	if h.CallTimeout < 0 {
		return fmt.Errorf("HIERARCHY_CALL_TIMEOUT must be non-negative, got %s", h.CallTimeout)
	}
	if h.SimilarNameThreshold < 0 {
		return fmt.Errorf("HIERARCHY_SIMILAR_NAME_THRESHOLD must be non-negative, got %d", h.SimilarNameThreshold)
	}

	h.UnresolvedPolicy = strings.ToLower(strings.TrimSpace(h.UnresolvedPolicy))
	switch h.UnresolvedPolicy {
	case UnresolvedPolicyError, UnresolvedPolicySkip:
	default:
		return fmt.Errorf("invalid HIERARCHY_UNRESOLVED_POLICY=%q (expected error|skip)", h.UnresolvedPolicy)
	}

	h.SelfLoopPolicy = strings.ToLower(strings.TrimSpace(h.SelfLoopPolicy))
	switch h.SelfLoopPolicy {
	case SelfLoopPolicyReject, SelfLoopPolicyApply:
	default:
		return fmt.Errorf("invalid HIERARCHY_SELF_LOOP_POLICY=%q (expected reject|apply)", h.SelfLoopPolicy)
	}

	h.DuplicateParentPolicy = strings.ToLower(strings.TrimSpace(h.DuplicateParentPolicy))
	switch h.DuplicateParentPolicy {
	case DuplicateParentLastWins, DuplicateParentReject:
	default:
		return fmt.Errorf("invalid HIERARCHY_DUPLICATE_PARENT_POLICY=%q (expected last-wins|reject)", h.DuplicateParentPolicy)
	}

	if _, err := uuid.Parse(strings.TrimSpace(h.DefaultTenantID)); err != nil {
		return fmt.Errorf("invalid HIERARCHY_DEFAULT_TENANT_ID=%q: %w", h.DefaultTenantID, err)
	}
	return nil
}

func (h *HierarchyOptions) DefaultTenant() uuid.UUID {
	id, err := uuid.Parse(strings.TrimSpace(h.DefaultTenantID))
	if err != nil {
		return uuid.Nil
	}
	return id
}

type Configuration struct {
	Database      DatabaseOptions
	SQLite        SQLiteOptions
	Loki          LokiOptions
	OpenTelemetry OpenTelemetryOptions
	Prometheus    PrometheusOptions
	RateLimit     RateLimitOptions
	Hierarchy     HierarchyOptions

	MigrationsOnStart bool   `env:"MIGRATIONS_ON_START" envDefault:"true"`
	ServerPort        int    `env:"PORT" envDefault:"3200"`
	GoAppEnvironment  string `env:"GO_APP_ENV" envDefault:"development"`
	SocketAddress     string `env:"-"`
	Domain            string `env:"DOMAIN" envDefault:"localhost"`
	Origin            string `env:"ORIGIN" envDefault:"http://localhost:3200"`
	CorsOrigins       string `env:"CORS_ORIGINS" envDefault:"http://localhost:3000"`
	LogLevel          string `env:"LOG_LEVEL" envDefault:"error"`
	// Looked up on every request; a random uuidv4 is generated when absent.
	RequestIDHeader string `env:"REQUEST_ID_HEADER" envDefault:"X-Request-ID"`
	// Falls back to request.RemoteAddr when absent.
	RealIPHeader string `env:"REAL_IP_HEADER" envDefault:"X-Real-IP"`
	TenantHeader string `env:"TENANT_HEADER" envDefault:"X-Tenant-ID"`

	logFile *os.File
	logger  *logrus.Logger
}

func (c *Configuration) Logger() *logrus.Logger {
	return c.logger
}

func (c *Configuration) LogrusLogLevel() logrus.Level {
	switch c.LogLevel {
	case "silent":
		return logrus.PanicLevel
	case "error":
		return logrus.ErrorLevel
	case "warn":
		return logrus.WarnLevel
	case "info":
		return logrus.InfoLevel
	case "debug":
		return logrus.DebugLevel
	default:
		return logrus.ErrorLevel
	}
}

func (c *Configuration) Scheme() string {
	if c.GoAppEnvironment == Production {
		return "https"
	}
	return "http"
}

func (c *Configuration) CorsOriginList() []string {
	out := []string{}
	for _, part := range strings.Split(c.CorsOrigins, ",") {
		if v := strings.TrimSpace(part); v != "" {
			out = append(out, v)
		}
	}
	return out
}

func Use() *Configuration {
	return singleton()
}

func (c *Configuration) load(envFiles []string) error {
	n, err := LoadEnv(envFiles)
	if err != nil {
		return err
	}
	if n == 0 {
		wd, _ := os.Getwd()
		log.Println("No .env files found. Tried:")
		for _, file := range envFiles {
			log.Println(filepath.Join(wd, file))
		}
	}
	if err := env.Parse(c); err != nil {
		return err
	}
	if err := c.validate(); err != nil {
		return err
	}

	f, logger, err := logging.FileLogger(c.LogrusLogLevel(), c.Loki.LogPath)
	if err != nil {
		return err
	}
	c.logFile = f
	c.logger = logger

	c.Database.Opts = c.Database.ConnectionString()
	if c.GoAppEnvironment == Production {
		c.SocketAddress = fmt.Sprintf(":%d", c.ServerPort)
	} else {
		c.SocketAddress = fmt.Sprintf("localhost:%d", c.ServerPort)
	}

	if os.Getenv("ORIGIN") == "" {
		if c.GoAppEnvironment == "development" {
			c.Origin = fmt.Sprintf("%s://%s:%d", c.Scheme(), c.Domain, c.ServerPort)
		} else {
			c.Origin = fmt.Sprintf("%s://%s", c.Scheme(), c.Domain)
		}
	}
	if strings.TrimSpace(c.Hierarchy.StoreBaseURL) == "" {
		c.Hierarchy.StoreBaseURL = c.Origin
	}

	return nil
}

func (c *Configuration) validate() error {
	if err := c.RateLimit.Validate(); err != nil {
		return fmt.Errorf("rate limit configuration error: %w", err)
	}
	if err := c.Hierarchy.Validate(); err != nil {
		return fmt.Errorf("hierarchy configuration error: %w", err)
	}
	return nil
}

// Unload handles a graceful shutdown.
func (c *Configuration) Unload() {
	if c.logFile != nil {
		if err := c.logFile.Close(); err != nil {
			log.Printf("Failed to close log file: %v", err)
		}
	}
}
