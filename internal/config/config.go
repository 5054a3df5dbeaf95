package config

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config конфигурация обработки прайс-листов
type Config struct {
	// База данных
	DatabasePath string `json:"database_path"`

	// Логирование
	LogLevel string `json:"log_level"`

	// Обработка загрузки
	BatchSize int `json:"batch_size"`

	// Регистрация брендов, найденных внешним сервисом
	AutoRegisterBrands bool `json:"auto_register_brands"`

	// Внешний поиск брендов
	Lookup *LookupConfig `json:"lookup"`
}

// LookupConfig конфигурация внешнего сервиса поиска брендов.
// Длительности в JSON записываются строками ("5s", "24h").
type LookupConfig struct {
	Enabled           bool          `json:"enabled"`
	BaseURL           string        `json:"base_url"`
	APIKey            string        `json:"api_key"`
	Timeout           time.Duration `json:"-"`
	TimeoutRaw        string        `json:"timeout"`
	MaxRequestsPerDay int           `json:"max_requests_per_day"`
	MinInterval       time.Duration `json:"-"`
	MinIntervalRaw    string        `json:"min_interval"`
	CacheTTL          time.Duration `json:"-"`
	CacheTTLRaw       string        `json:"cache_ttl"`
}

// LoadConfig загружает конфигурацию из переменных окружения.
// Если path непуст (или задан PRICELIST_CONFIG), поверх окружения
// накладываются значения из JSON-файла.
func LoadConfig(path string) (*Config, error) {
	cfg := &Config{
		DatabasePath:       getEnv("DATABASE_PATH", "pricelist.db"),
		LogLevel:           getEnv("LOG_LEVEL", "INFO"),
		BatchSize:          getEnvInt("UPLOAD_BATCH_SIZE", 200),
		AutoRegisterBrands: getEnv("AUTO_REGISTER_BRANDS", "false") == "true",
		Lookup:             loadLookupConfig(),
	}

	if path == "" {
		path = os.Getenv("PRICELIST_CONFIG")
	}
	if path != "" {
		if err := cfg.applyFile(path); err != nil {
			return nil, err
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// loadLookupConfig загружает конфигурацию внешнего поиска брендов
func loadLookupConfig() *LookupConfig {
	return &LookupConfig{
		Enabled:           getEnv("BRAND_LOOKUP_ENABLED", "false") == "true",
		BaseURL:           getEnv("BRAND_LOOKUP_BASE_URL", ""),
		APIKey:            os.Getenv("BRAND_LOOKUP_API_KEY"),
		Timeout:           getEnvDuration("BRAND_LOOKUP_TIMEOUT", 5*time.Second),
		MaxRequestsPerDay: getEnvInt("BRAND_LOOKUP_MAX_REQUESTS_PER_DAY", 200),
		MinInterval:       getEnvDuration("BRAND_LOOKUP_MIN_INTERVAL", time.Second),
		CacheTTL:          getEnvDuration("BRAND_LOOKUP_CACHE_TTL", 24*time.Hour),
	}
}

// applyFile накладывает значения из JSON-файла поверх текущих
func (c *Config) applyFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}
	if err := json.Unmarshal(data, c); err != nil {
		return fmt.Errorf("failed to parse config file %s: %w", path, err)
	}

	if c.Lookup != nil {
		if err := applyDuration(&c.Lookup.Timeout, c.Lookup.TimeoutRaw); err != nil {
			return fmt.Errorf("invalid lookup timeout: %w", err)
		}
		if err := applyDuration(&c.Lookup.MinInterval, c.Lookup.MinIntervalRaw); err != nil {
			return fmt.Errorf("invalid lookup min_interval: %w", err)
		}
		if err := applyDuration(&c.Lookup.CacheTTL, c.Lookup.CacheTTLRaw); err != nil {
			return fmt.Errorf("invalid lookup cache_ttl: %w", err)
		}
	}
	return nil
}

func applyDuration(dst *time.Duration, raw string) error {
	if raw == "" {
		return nil
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return err
	}
	*dst = d
	return nil
}

// Validate проверяет согласованность конфигурации
func (c *Config) Validate() error {
	if c.DatabasePath == "" {
		return fmt.Errorf("database_path is required")
	}
	if c.BatchSize <= 0 {
		return fmt.Errorf("batch_size must be positive, got %d", c.BatchSize)
	}
	if c.Lookup != nil && c.Lookup.Enabled && c.Lookup.BaseURL == "" {
		return fmt.Errorf("lookup is enabled but base_url is empty")
	}
	return nil
}

// getEnv получает переменную окружения или возвращает значение по умолчанию
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvInt получает переменную окружения как int или возвращает значение по умолчанию
func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

// getEnvDuration получает переменную окружения как Duration или возвращает значение по умолчанию
func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}
