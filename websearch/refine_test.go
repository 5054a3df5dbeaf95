package websearch

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
)

// TestRefineModel уточнение модели: бренд результата должен совпасть,
// из названия убирается бренд
func TestRefineModel(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/fragrances" {
			t.Errorf("путь запроса %q, ожидался /fragrances", r.URL.Path)
		}
		if got := r.URL.Query().Get("search"); got != "Chanel Coco" {
			t.Errorf("параметр search = %q", got)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`[
			{"Brand": "Dior", "Name": "Sauvage"},
			{"Brand": "CHANEL", "Name": "Chanel Coco Mademoiselle Eau de Parfum"}
		]`))
	}))
	defer server.Close()

	usage := &usageStoreMock{}
	client := newTestClient(server.URL, usage)

	model, err := client.RefineModel(context.Background(), "Chanel", "Coco")
	if err != nil {
		t.Fatalf("RefineModel: %v", err)
	}
	if model != "Coco Mademoiselle Eau de Parfum" {
		t.Errorf("модель %q, ожидалась Coco Mademoiselle Eau de Parfum", model)
	}
	if len(usage.logged) != 1 || usage.logged[0] != "fragrances" {
		t.Errorf("журнал обращений %v, ожидалась одна запись fragrances", usage.logged)
	}
}

// TestRefineModel_NoiseWords служебные слова убираются из названия
func TestRefineModel_NoiseWords(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`[{"Brand": "Chanel", "Name": "Chanel Chance Eau Tendre парфюмерная вода женский"}]`))
	}))
	defer server.Close()

	client := newTestClient(server.URL, &usageStoreMock{})
	model, err := client.RefineModel(context.Background(), "Chanel", "Chance")
	if err != nil {
		t.Fatalf("RefineModel: %v", err)
	}
	if model != "Chance Eau Tendre" {
		t.Errorf("модель %q, ожидалась Chance Eau Tendre", model)
	}
}

// TestRefineModel_BrandMismatch чужой бренд в результатах не даёт уточнения
func TestRefineModel_BrandMismatch(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`[{"Brand": "Dior", "Name": "Sauvage Elixir"}]`))
	}))
	defer server.Close()

	client := newTestClient(server.URL, &usageStoreMock{})
	model, err := client.RefineModel(context.Background(), "Chanel", "Coco")
	if err != nil {
		t.Fatalf("RefineModel: %v", err)
	}
	if model != "" {
		t.Errorf("модель %q, ожидалась пустая строка", model)
	}
}

// TestRefineModel_Cached повторный запрос той же пары берётся из кэша
// и не расходует бюджет
func TestRefineModel_Cached(t *testing.T) {
	requests := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		requests++
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`[{"Brand": "Chanel", "Name": "Chanel Coco Mademoiselle"}]`))
	}))
	defer server.Close()

	client := newTestClient(server.URL, &usageStoreMock{})
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		model, err := client.RefineModel(ctx, "Chanel", "Coco")
		if err != nil {
			t.Fatalf("RefineModel #%d: %v", i, err)
		}
		if model != "Coco Mademoiselle" {
			t.Errorf("модель %q, ожидалась Coco Mademoiselle", model)
		}
	}
	if requests != 1 {
		t.Errorf("запросов к серверу %d, ожидался 1 (остальные из кэша)", requests)
	}
}
