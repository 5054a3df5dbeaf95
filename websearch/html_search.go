package websearch

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// searchHTML запасной путь: парсит HTML-страницу поиска, когда
// JSON-эндпоинт не вернул результатов. Структура страницы: блоки
// .result с названием бренда в .result__brand (или первой ссылке).
func (c *Client) searchHTML(ctx context.Context, query string) (string, error) {
	searchURL := fmt.Sprintf("%s/search?q=%s", strings.TrimRight(c.config.BaseURL, "/"), url.QueryEscape(query))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, searchURL, nil)
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("x-api-key", c.config.APIKey)
	req.Header.Set("Accept", "text/html,application/xhtml+xml")
	req.Header.Set("Accept-Language", "ru-RU,ru;q=0.9,en-US;q=0.8")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("unexpected status code: %d", resp.StatusCode)
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to parse HTML: %w", err)
	}

	var brand string
	doc.Find(".result").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		text := strings.TrimSpace(s.Find(".result__brand").First().Text())
		if text == "" {
			text = strings.TrimSpace(s.Find("a").First().Text())
		}
		if text != "" {
			brand = text
			return false
		}
		return true
	})

	return brand, nil
}
