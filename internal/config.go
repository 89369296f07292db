package internal

import (
	"errors"
	"fmt"
	"math"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	Server    ServerConfig    `mapstructure:"http_server"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Security  SecurityConfig  `mapstructure:"security" validate:"required"`
	Logging   LoggingConfig   `mapstructure:"logging"`
	Fiscal    FiscalConfig    `mapstructure:"fiscal"`
	TAC       TACConfig       `mapstructure:"tac"`
	Cache     CacheConfig     `mapstructure:"cache"`
	Dashboard DashboardConfig `mapstructure:"dashboard"`
}

type ServerConfig struct {
	Port              int           `mapstructure:"port"`
	BaseURL           string        `mapstructure:"base_url"`
	AllowedOrigins    string        `mapstructure:"allowed_origins"`
	ReadHeaderTimeout time.Duration `mapstructure:"read_header_timeout"`
	ReadTimeout       time.Duration `mapstructure:"read_timeout"`
	IdleTimeout       time.Duration `mapstructure:"idle_timeout"`
	WriteTimeout      time.Duration `mapstructure:"write_timeout"`
}

type DatabaseConfig struct {
	MaxOpenConns    int           `mapstructure:"max_open_conns" validate:"required,min=1"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns" validate:"required,min=1"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	ConnMaxIdleTime time.Duration `mapstructure:"conn_max_idle_time"`
	Source          string        `mapstructure:"source"`
}

type SecurityConfig struct {
	AccessTokenSecret    string        `mapstructure:"access_token_secret" validate:"required,min=32"`
	RefreshTokenSecret   string        `mapstructure:"refresh_token_secret" validate:"required,min=32"`
	AccessTokenDuration  time.Duration `mapstructure:"access_token_duration"`
	RefreshTokenDuration time.Duration `mapstructure:"refresh_token_duration"`
	BCryptCost           int           `mapstructure:"bcrypt_cost"`
}

type LoggingConfig struct {
	Level  string `mapstructure:"level" validate:"required,oneof=debug info warn error"`
	Format string `mapstructure:"format" validate:"required,oneof=json text"`
}

// FiscalConfig drives the pacing engine. MilestoneCurve holds the expected
// cumulative-spend percentage per fiscal month, index 0 = July through
// index 11 = June, and must be monotonically non-decreasing.
type FiscalConfig struct {
	MilestoneCurve   []float64 `mapstructure:"milestone_curve"`
	TolerancePercent float64   `mapstructure:"tolerance_percent"`
	RunwayCapMonths  int       `mapstructure:"runway_cap_months"`
}

// TACConfig holds the per-grade fee schedule and the org-level category
// weights used to split the collected fee pool.
type TACConfig struct {
	GradeOrder      []string           `mapstructure:"grade_order"`
	FeeRates        map[string]float64 `mapstructure:"fee_rates"`
	StepUpRates     map[string]float64 `mapstructure:"step_up_rates"`
	CategoryWeights map[string]float64 `mapstructure:"category_weights"`
}

type CacheConfig struct {
	ShortTTL  time.Duration `mapstructure:"short_ttl"`
	MediumTTL time.Duration `mapstructure:"medium_ttl"`
	LongTTL   time.Duration `mapstructure:"long_ttl"`
}

type DashboardConfig struct {
	DemoModeDefault    bool `mapstructure:"demo_mode_default"`
	RecentTransactions int  `mapstructure:"recent_transactions"`
}

// ----------------- HELPERS -----------------

func getEnv(key, defaultVal string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultVal
}

func getEnvAsInt(key string, defaultVal int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultVal
}

// LoadConfigFromEnv builds a Config from environment variables for container
// deployments where no config file is mounted. Engine tunables keep their
// defaults; only connection/secret material comes from the environment.
func LoadConfigFromEnv() *Config {
	cfg := DefaultConfig()
	cfg.Server.Port = getEnvAsInt("SERVER_PORT", cfg.Server.Port)
	cfg.Server.BaseURL = getEnv("SERVER_BASE_URL", cfg.Server.BaseURL)
	cfg.Server.AllowedOrigins = getEnv("SERVER_ALLOWED_ORIGINS", cfg.Server.AllowedOrigins)
	cfg.Database.Source = getEnv("DATABASE_SOURCE", cfg.Database.Source)
	cfg.Database.MaxOpenConns = getEnvAsInt("DATABASE_MAX_OPEN_CONNS", cfg.Database.MaxOpenConns)
	cfg.Database.MaxIdleConns = getEnvAsInt("DATABASE_MAX_IDLE_CONNS", cfg.Database.MaxIdleConns)
	cfg.Security.AccessTokenSecret = getEnv("SECURITY_ACCESS_TOKEN_SECRET", cfg.Security.AccessTokenSecret)
	cfg.Security.RefreshTokenSecret = getEnv("SECURITY_REFRESH_TOKEN_SECRET", cfg.Security.RefreshTokenSecret)
	cfg.Logging.Level = getEnv("LOGGING_LEVEL", cfg.Logging.Level)
	cfg.Logging.Format = getEnv("LOGGING_FORMAT", cfg.Logging.Format)
	return cfg
}

// DefaultConfig returns the reference configuration for a single-school
// deployment. File/env loading overrides any of these.
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Port:              8080,
			ReadHeaderTimeout: 5 * time.Second,
			ReadTimeout:       15 * time.Second,
			WriteTimeout:      15 * time.Second,
			IdleTimeout:       60 * time.Second,
		},
		Database: DatabaseConfig{
			MaxOpenConns:    10,
			MaxIdleConns:    5,
			ConnMaxLifetime: 30 * time.Minute,
			ConnMaxIdleTime: 5 * time.Minute,
		},
		Security: SecurityConfig{
			AccessTokenDuration:  15 * time.Minute,
			RefreshTokenDuration: 24 * 7 * time.Hour,
			BCryptCost:           12,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
		Fiscal: FiscalConfig{
			MilestoneCurve:   []float64{8, 16, 25, 33, 58, 66, 75, 83, 87, 92, 96, 100},
			TolerancePercent: 12,
			RunwayCapMonths:  12,
		},
		TAC: TACConfig{
			GradeOrder: []string{"K", "1", "2", "3", "4", "5", "6", "7", "8"},
			FeeRates: map[string]float64{
				"K": 850, "1": 900, "2": 900, "3": 950, "4": 950,
				"5": 1000, "6": 1050, "7": 1100, "8": 1100,
			},
			StepUpRates: map[string]float64{
				"K": 320, "1": 340, "2": 340, "3": 360, "4": 360,
				"5": 380, "6": 400, "7": 420, "8": 420,
			},
			CategoryWeights: map[string]float64{
				"technology":  0.55,
				"activities":  0.25,
				"consumables": 0.20,
			},
		},
		Cache: CacheConfig{
			ShortTTL:  5 * time.Minute,
			MediumTTL: 10 * time.Minute,
			LongTTL:   30 * time.Minute,
		},
		Dashboard: DashboardConfig{
			DemoModeDefault:    false,
			RecentTransactions: 10,
		},
	}
}

// ----------------- VALIDATION -----------------

func (c *Config) Validate() error {
	var errs []string

	if err := c.Server.Validate(); err != nil {
		errs = append(errs, fmt.Sprintf("server config: %v", err))
	}

	if err := c.Database.Validate(); err != nil {
		errs = append(errs, fmt.Sprintf("database config: %v", err))
	}

	if err := c.Security.Validate(); err != nil {
		errs = append(errs, fmt.Sprintf("security config: %v", err))
	}

	if err := c.Fiscal.Validate(); err != nil {
		errs = append(errs, fmt.Sprintf("fiscal config: %v", err))
	}

	if err := c.TAC.Validate(); err != nil {
		errs = append(errs, fmt.Sprintf("tac config: %v", err))
	}

	if err := c.Cache.Validate(); err != nil {
		errs = append(errs, fmt.Sprintf("cache config: %v", err))
	}

	if len(errs) > 0 {
		return errors.New(strings.Join(errs, "; "))
	}

	return nil
}

func (c *ServerConfig) Validate() error {
	if c.AllowedOrigins != "" {
		origins := strings.Split(c.AllowedOrigins, ",")
		for _, origin := range origins {
			origin = strings.TrimSpace(origin)
			if origin == "*" {
				continue
			}
			if _, err := url.Parse(origin); err != nil {
				return fmt.Errorf("invalid allowed origin %s: %w", origin, err)
			}
		}
	}
	if c.ReadTimeout < c.ReadHeaderTimeout {
		return errors.New("read_timeout must be >= read_header_timeout")
	}
	return nil
}

func (c *DatabaseConfig) Validate() error {
	if c.MaxIdleConns > c.MaxOpenConns {
		return errors.New("max_idle_conns cannot be greater than max_open_conns")
	}
	return nil
}

func (c *DatabaseConfig) GetDSN() string {
	return c.Source
}

func (c *SecurityConfig) Validate() error {
	if len(c.AccessTokenSecret) < 32 {
		return errors.New("access token secret must be at least 32 characters")
	}
	if len(c.RefreshTokenSecret) < 32 {
		return errors.New("refresh token secret must be at least 32 characters")
	}
	if c.BCryptCost < 10 || c.BCryptCost > 15 {
		return errors.New("bcrypt cost must be between 10 and 15")
	}
	return nil
}

func (c *FiscalConfig) Validate() error {
	if len(c.MilestoneCurve) != 12 {
		return fmt.Errorf("milestone curve must have 12 entries, got %d", len(c.MilestoneCurve))
	}
	for i := 1; i < len(c.MilestoneCurve); i++ {
		if c.MilestoneCurve[i] < c.MilestoneCurve[i-1] {
			return fmt.Errorf("milestone curve must be non-decreasing, entry %d (%.1f) < entry %d (%.1f)",
				i, c.MilestoneCurve[i], i-1, c.MilestoneCurve[i-1])
		}
	}
	if c.TolerancePercent <= 0 {
		return errors.New("tolerance_percent must be positive")
	}
	if c.RunwayCapMonths <= 0 {
		return errors.New("runway_cap_months must be positive")
	}
	return nil
}

func (c *TACConfig) Validate() error {
	if len(c.GradeOrder) == 0 {
		return errors.New("grade_order must not be empty")
	}
	for _, grade := range c.GradeOrder {
		if _, ok := c.FeeRates[grade]; !ok {
			return fmt.Errorf("fee_rates missing entry for grade %s", grade)
		}
		if _, ok := c.StepUpRates[grade]; !ok {
			return fmt.Errorf("step_up_rates missing entry for grade %s", grade)
		}
	}
	var sum float64
	for category, weight := range c.CategoryWeights {
		if weight < 0 {
			return fmt.Errorf("category weight for %s must not be negative", category)
		}
		sum += weight
	}
	if math.Abs(sum-1.0) > 1e-6 {
		return fmt.Errorf("category weights must sum to 1.0, got %.4f", sum)
	}
	return nil
}

func (c *CacheConfig) Validate() error {
	if c.ShortTTL <= 0 || c.MediumTTL <= 0 || c.LongTTL <= 0 {
		return errors.New("cache TTLs must be positive")
	}
	return nil
}
