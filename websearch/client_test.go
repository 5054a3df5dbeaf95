package websearch

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"
)

// usageStoreMock мок журнала обращений
type usageStoreMock struct {
	mu     sync.Mutex
	count  int
	logged []string
}

func (m *usageStoreMock) CountSince(_ context.Context, _ time.Time) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.count, nil
}

func (m *usageStoreMock) Log(_ context.Context, endpoint string, _ bool, _ string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.logged = append(m.logged, endpoint)
	return nil
}

func newTestClient(serverURL string, usage UsageStore) *Client {
	return NewClient(ClientConfig{
		Enabled:           true,
		BaseURL:           serverURL,
		APIKey:            "test-key",
		Timeout:           2 * time.Second,
		MaxRequestsPerDay: 10,
		MinInterval:       time.Millisecond,
		CacheTTL:          time.Minute,
	}, usage)
}

// TestFindBrand_JSONList сервис отвечает голым списком
func TestFindBrand_JSONList(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("x-api-key") != "test-key" {
			t.Errorf("отсутствует заголовок x-api-key")
		}
		if got := r.URL.Query().Get("search"); got != "Tom Ford" {
			t.Errorf("параметр search = %q", got)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`[{"Brand": "Tom Ford"}, {"Brand": "Other"}]`))
	}))
	defer server.Close()

	client := newTestClient(server.URL, &usageStoreMock{})
	brand, err := client.FindBrand(context.Background(), "Tom Ford")
	if err != nil {
		t.Fatalf("FindBrand: %v", err)
	}
	if brand != "Tom Ford" {
		t.Errorf("бренд %q, ожидался Tom Ford", brand)
	}
}

// TestFindBrand_WrappedResults сервис отвечает обёрткой {"results": [...]}
func TestFindBrand_WrappedResults(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"results": [{"Name": "Kilian"}]}`))
	}))
	defer server.Close()

	client := newTestClient(server.URL, &usageStoreMock{})
	brand, err := client.FindBrand(context.Background(), "Kilian")
	if err != nil {
		t.Fatalf("FindBrand: %v", err)
	}
	if brand != "Kilian" {
		t.Errorf("бренд %q, ожидался Kilian", brand)
	}
}

// TestFindBrand_Disabled выключенный клиент возвращает ErrLookupDisabled
func TestFindBrand_Disabled(t *testing.T) {
	client := NewClient(ClientConfig{Enabled: false}, nil)
	_, err := client.FindBrand(context.Background(), "Chanel")
	if !errors.Is(err, ErrLookupDisabled) {
		t.Errorf("ожидалась ErrLookupDisabled, получена %v", err)
	}

	// Включён, но без ключа API — тоже отключён
	client = NewClient(ClientConfig{Enabled: true, BaseURL: "http://example.invalid"}, nil)
	_, err = client.FindBrand(context.Background(), "Chanel")
	if !errors.Is(err, ErrLookupDisabled) {
		t.Errorf("ожидалась ErrLookupDisabled без ключа API, получена %v", err)
	}
}

// TestFindBrand_BudgetExhausted исчерпанный дневной бюджет блокирует запрос
// до обращения к сети
func TestFindBrand_BudgetExhausted(t *testing.T) {
	requests := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		requests++
		w.Write([]byte(`[]`))
	}))
	defer server.Close()

	usage := &usageStoreMock{count: 10} // == MaxRequestsPerDay
	client := newTestClient(server.URL, usage)

	_, err := client.FindBrand(context.Background(), "Chanel")
	if !errors.Is(err, ErrBudgetExhausted) {
		t.Errorf("ожидалась ErrBudgetExhausted, получена %v", err)
	}
	if requests != 0 {
		t.Errorf("запросов к серверу %d, ожидалось 0", requests)
	}
}

// TestFindBrand_CacheHit повторный запрос берётся из кэша и не тратит бюджет
func TestFindBrand_CacheHit(t *testing.T) {
	requests := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		requests++
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`[{"Brand": "Chanel"}]`))
	}))
	defer server.Close()

	usage := &usageStoreMock{}
	client := newTestClient(server.URL, usage)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		brand, err := client.FindBrand(ctx, "Chanel")
		if err != nil {
			t.Fatalf("FindBrand #%d: %v", i, err)
		}
		if brand != "Chanel" {
			t.Errorf("бренд %q, ожидался Chanel", brand)
		}
	}

	if requests != 1 {
		t.Errorf("запросов к серверу %d, ожидался 1 (остальные из кэша)", requests)
	}
	if len(usage.logged) != 1 {
		t.Errorf("записей в журнале %d, ожидалась 1", len(usage.logged))
	}
}

// TestFindBrand_HTMLFallback пустой JSON-ответ приводит к разбору HTML-страницы
func TestFindBrand_HTMLFallback(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/brands":
			w.Header().Set("Content-Type", "application/json")
			w.Write([]byte(`[]`))
		case "/search":
			w.Header().Set("Content-Type", "text/html")
			w.Write([]byte(`<html><body>
				<div class="result"><span class="result__brand"> Montale </span></div>
			</body></html>`))
		default:
			http.NotFound(w, r)
		}
	}))
	defer server.Close()

	client := newTestClient(server.URL, &usageStoreMock{})
	brand, err := client.FindBrand(context.Background(), "Montale")
	if err != nil {
		t.Fatalf("FindBrand: %v", err)
	}
	if brand != "Montale" {
		t.Errorf("бренд %q, ожидался Montale", brand)
	}
}

// TestCache TTL-кэш результатов поиска
func TestCache(t *testing.T) {
	cache := NewCache(50 * time.Millisecond)

	if _, ok := cache.Get("Chanel"); ok {
		t.Error("пустой кэш не должен отдавать значения")
	}

	cache.Set("Chanel", "Chanel")
	if brand, ok := cache.Get("Chanel"); !ok || brand != "Chanel" {
		t.Errorf("Get = (%q, %v), ожидалось (Chanel, true)", brand, ok)
	}

	time.Sleep(80 * time.Millisecond)
	if _, ok := cache.Get("Chanel"); ok {
		t.Error("запись должна протухнуть после TTL")
	}
}
