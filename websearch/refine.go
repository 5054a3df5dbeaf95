package websearch

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"unicode/utf8"
)

// Служебные слова, которые внешний сервис добавляет к названиям ароматов
var refineNoiseWords = []string{
	"парфюмерная вода", "туалетная вода", "мужской", "женский", "унисекс",
	"духи", "edp", "edt",
}

// RefineModel ищет во внешнем сервисе полное название модели по паре
// (бренд, извлечённая модель). Возвращает пустую строку без ошибки, если
// подходящего результата нет. Запрос расходует тот же дневной бюджет
// и проходит тот же ограничитель, что и поиск бренда.
func (c *Client) RefineModel(ctx context.Context, brand, model string) (string, error) {
	if !c.config.Enabled || c.config.APIKey == "" {
		return "", ErrLookupDisabled
	}

	query := sanitizeQuery(strings.TrimSpace(brand + " " + model))
	if query == "" {
		return "", fmt.Errorf("empty query after sanitization")
	}

	// Ключ кэша отделён от кэша брендов: тот же текст запроса может
	// искаться и как бренд, и как модель
	key := "fragrances|" + query
	if refined, ok := c.cache.Get(key); ok {
		return refined, nil
	}

	if err := c.checkBudget(ctx); err != nil {
		return "", err
	}

	if err := c.limiter.Wait(ctx); err != nil {
		return "", fmt.Errorf("rate limit wait interrupted: %w", err)
	}

	callCtx, cancel := context.WithTimeout(ctx, c.config.Timeout)
	defer cancel()

	results, err := c.searchFragrances(callCtx, query)
	if err != nil {
		c.logUsage(ctx, "fragrances", false, err.Error())
		return "", err
	}
	c.logUsage(ctx, "fragrances", true, "")

	refined := pickModelName(results, brand)
	c.cache.Set(key, refined)
	return refined, nil
}

// searchFragrances запрашивает эндпоинт поиска ароматов
func (c *Client) searchFragrances(ctx context.Context, query string) ([]brandResult, error) {
	params := url.Values{}
	params.Add("search", query)
	params.Add("limit", "5")

	fullURL := fmt.Sprintf("%s/fragrances?%s", strings.TrimRight(c.config.BaseURL, "/"), params.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fullURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("x-api-key", c.config.APIKey)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status code: %d", resp.StatusCode)
	}

	return decodeResults(resp.Body)
}

// pickModelName выбирает название модели из результатов поиска: бренд
// результата должен совпасть с искомым, из названия убираются бренд
// и служебные слова. Слишком короткий остаток отбрасывается.
func pickModelName(results []brandResult, brand string) string {
	for _, r := range results {
		if r.Name == "" || !strings.EqualFold(r.Brand, brand) {
			continue
		}

		name := strings.TrimSpace(r.Name)
		if len(name) >= len(brand) && strings.EqualFold(name[:len(brand)], brand) {
			name = strings.TrimSpace(name[len(brand):])
		}
		for _, word := range refineNoiseWords {
			name = removeNoiseWord(name, word)
		}
		name = strings.Join(strings.Fields(name), " ")

		if utf8.RuneCountInString(name) > 2 {
			return name
		}
	}
	return ""
}

// removeNoiseWord удаляет слово целиком: вхождение должно быть ограничено
// не-буквенными символами (\b в regexp Go не знает кириллицу)
func removeNoiseWord(text, word string) string {
	re, err := regexp.Compile(`(?i)(^|[^\p{L}])` + regexp.QuoteMeta(word) + `($|[^\p{L}])`)
	if err != nil {
		return text
	}
	return re.ReplaceAllString(text, "${1}${2}")
}
