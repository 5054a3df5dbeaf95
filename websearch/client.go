package websearch

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/time/rate"
)

// Ошибки внешнего поиска; резолвер брендов трактует любую из них
// как "совпадения нет" и продолжает работу
var (
	ErrLookupDisabled  = errors.New("external brand lookup is disabled")
	ErrBudgetExhausted = errors.New("daily request budget exhausted")
)

// UsageStore журнал обращений к внешнему сервису; на нём держится
// жёсткий дневной бюджет запросов
type UsageStore interface {
	CountSince(ctx context.Context, since time.Time) (int, error)
	Log(ctx context.Context, endpoint string, success bool, errMessage string) error
}

// ClientConfig конфигурация клиента внешнего поиска брендов
type ClientConfig struct {
	Enabled           bool          `json:"enabled"`
	BaseURL           string        `json:"base_url"`
	APIKey            string        `json:"api_key"`
	Timeout           time.Duration `json:"timeout"`
	MaxRequestsPerDay int           `json:"max_requests_per_day"`
	MinInterval       time.Duration `json:"min_interval"`
	CacheTTL          time.Duration `json:"cache_ttl"`
}

// Client клиент внешнего сервиса поиска брендов. Каждый вызов ограничен
// таймаутом, минимальным интервалом между запросами и дневным бюджетом;
// превышение любого лимита деградирует до "не найдено" на стороне вызывающего.
type Client struct {
	config     ClientConfig
	httpClient *http.Client
	limiter    *rate.Limiter
	cache      *Cache
	usage      UsageStore
	logger     *slog.Logger
}

// NewClient создает клиент внешнего поиска брендов
func NewClient(config ClientConfig, usage UsageStore) *Client {
	if config.Timeout == 0 {
		config.Timeout = 5 * time.Second
	}
	if config.MaxRequestsPerDay == 0 {
		config.MaxRequestsPerDay = 200
	}
	if config.MinInterval == 0 {
		config.MinInterval = time.Second
	}
	if config.CacheTTL == 0 {
		config.CacheTTL = 24 * time.Hour
	}

	return &Client{
		config:     config,
		httpClient: &http.Client{Timeout: config.Timeout},
		limiter:    rate.NewLimiter(rate.Every(config.MinInterval), 1),
		cache:      NewCache(config.CacheTTL),
		usage:      usage,
		logger:     slog.Default().With("component", "brand_lookup"),
	}
}

// brandResult одна запись ответа внешнего сервиса
type brandResult struct {
	Brand string `json:"Brand"`
	Name  string `json:"Name"`
}

// lookupResponse ответ внешнего сервиса: либо список, либо обёртка results
type lookupResponse struct {
	Results []brandResult `json:"results"`
}

// FindBrand ищет бренд по запросу. Возвращает пустую строку без ошибки,
// если сервис ответил, но бренд не нашёлся.
func (c *Client) FindBrand(ctx context.Context, query string) (string, error) {
	if !c.config.Enabled || c.config.APIKey == "" {
		return "", ErrLookupDisabled
	}

	query = sanitizeQuery(query)
	if query == "" {
		return "", fmt.Errorf("empty query after sanitization")
	}

	if brand, ok := c.cache.Get(query); ok {
		return brand, nil
	}

	if err := c.checkBudget(ctx); err != nil {
		return "", err
	}

	if err := c.limiter.Wait(ctx); err != nil {
		return "", fmt.Errorf("rate limit wait interrupted: %w", err)
	}

	callCtx, cancel := context.WithTimeout(ctx, c.config.Timeout)
	defer cancel()

	brand, err := c.searchJSON(callCtx, query)
	if err != nil {
		c.logUsage(ctx, "brands", false, err.Error())
		return "", err
	}
	if brand == "" {
		// JSON не дал результатов — пробуем HTML-страницу поиска
		if htmlBrand, htmlErr := c.searchHTML(callCtx, query); htmlErr == nil {
			brand = htmlBrand
		} else {
			c.logger.Debug("html fallback search failed", "query", query, "error", htmlErr)
		}
	}

	c.logUsage(ctx, "brands", true, "")
	c.cache.Set(query, brand)
	return brand, nil
}

// checkBudget проверяет дневной бюджет запросов по журналу обращений
func (c *Client) checkBudget(ctx context.Context) error {
	if c.usage == nil {
		return nil
	}

	dayStart := time.Now().UTC().Truncate(24 * time.Hour)
	count, err := c.usage.CountSince(ctx, dayStart)
	if err != nil {
		return fmt.Errorf("failed to check usage budget: %w", err)
	}
	if count >= c.config.MaxRequestsPerDay {
		return ErrBudgetExhausted
	}
	return nil
}

// searchJSON запрашивает JSON-эндпоинт поиска
func (c *Client) searchJSON(ctx context.Context, query string) (string, error) {
	params := url.Values{}
	params.Add("search", query)
	params.Add("limit", "3")

	fullURL := fmt.Sprintf("%s/brands?%s", strings.TrimRight(c.config.BaseURL, "/"), params.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fullURL, nil)
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("x-api-key", c.config.APIKey)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("unexpected status code: %d", resp.StatusCode)
	}

	results, err := decodeResults(resp.Body)
	if err != nil {
		return "", err
	}

	for _, r := range results {
		if r.Brand != "" {
			return r.Brand, nil
		}
		if r.Name != "" {
			return r.Name, nil
		}
	}
	return "", nil
}

// decodeResults разбирает ответ сервиса: либо голый список,
// либо обёртка {"results": [...]}
func decodeResults(body io.Reader) ([]brandResult, error) {
	var raw json.RawMessage
	if err := json.NewDecoder(body).Decode(&raw); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}

	var results []brandResult
	if err := json.Unmarshal(raw, &results); err != nil {
		var wrapped lookupResponse
		if err := json.Unmarshal(raw, &wrapped); err != nil {
			return nil, fmt.Errorf("unrecognized response format: %w", err)
		}
		results = wrapped.Results
	}
	return results, nil
}

// logUsage пишет обращение в журнал; сбой журнала не прерывает поиск
func (c *Client) logUsage(ctx context.Context, endpoint string, success bool, errMessage string) {
	if c.usage == nil {
		return
	}
	if err := c.usage.Log(ctx, endpoint, success, errMessage); err != nil {
		c.logger.Warn("failed to log lookup usage", "error", err)
	}
}

// sanitizeQuery убирает управляющие символы и ограничивает длину запроса
func sanitizeQuery(query string) string {
	query = strings.TrimSpace(query)
	query = strings.Map(func(r rune) rune {
		if r < 32 || r == 127 {
			return -1
		}
		return r
	}, query)

	const maxQueryLen = 200
	if len(query) > maxQueryLen {
		query = query[:maxQueryLen]
	}
	return query
}
