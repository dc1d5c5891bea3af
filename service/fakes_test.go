package service

import (
	"context"
	"errors"
	"strings"
	"sync"
	"unicode"

	"legalrag-backend/models"
	"legalrag-backend/oracle"
	"legalrag-backend/repository"
)

var vocabulary = []string{"residency", "requires", "years", "5", "visa", "sponsorship", "citizenship", "work"}

// keywordOracle embeds text as keyword counts plus a small bias dimension
type keywordOracle struct {
	mu        sync.Mutex
	answer    string
	genErr    error
	embedErr  error
	failOn    string
	prompts   []string
	options   []oracle.GenerateOptions
	embedHits int
}

func (k *keywordOracle) Name() string { return "keyword" }

func (k *keywordOracle) Embed(ctx context.Context, text string) ([]float32, error) {
	k.mu.Lock()
	defer k.mu.Unlock()
	k.embedHits++
	if k.embedErr != nil {
		return nil, k.embedErr
	}
	if k.failOn != "" && strings.Contains(text, k.failOn) {
		return nil, errors.New("embedding backend rejected chunk")
	}
	return keywordVector(text), nil
}

func (k *keywordOracle) Generate(ctx context.Context, prompt string, opts oracle.GenerateOptions) (string, error) {
	k.mu.Lock()
	defer k.mu.Unlock()
	k.prompts = append(k.prompts, prompt)
	k.options = append(k.options, opts)
	if k.genErr != nil {
		return "", k.genErr
	}
	return k.answer, nil
}

func (k *keywordOracle) ListModels(ctx context.Context) ([]string, error) {
	return []string{"keyword"}, nil
}

func keywordVector(text string) []float32 {
	vec := make([]float32, len(vocabulary)+1)
	words := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	for _, w := range words {
		for i, v := range vocabulary {
			if w == v {
				vec[i]++
			}
		}
	}
	vec[len(vocabulary)] = 0.01
	return vec
}

// mapScraper serves fixed page texts; unknown urls scrape to ""
type mapScraper struct {
	mu    sync.Mutex
	pages map[string]string
	calls []string
	block chan struct{}
}

func (m *mapScraper) Scrape(ctx context.Context, url string) string {
	if m.block != nil {
		<-m.block
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, url)
	return m.pages[url]
}

type failingIndex struct {
	repository.VectorIndex
}

func (failingIndex) Query(ctx context.Context, embedding []float32, n int, filter repository.Filter) ([]models.RetrievedChunk, error) {
	return nil, repository.ErrIndexUnavailable
}

const (
	urlA = "https://lex.uz/docs/residency"
	urlB = "https://www.gov.uk/skilled-worker-visa"
	urlC = "https://unreachable.example/immigration"
)

func testCatalog() models.SourceCatalog {
	return models.SourceCatalog{
		Primary: []models.CatalogEntry{
			{URL: urlA, Name: "Lex.uz - Uzbekistan Legal Database", Country: "UZ"},
		},
		Secondary: []models.CatalogEntry{
			{URL: urlB, Name: "UK Government - Immigration", Country: "UK"},
			{URL: urlC, Name: "Unreachable Portal", Country: "US"},
		},
	}
}

func testPages() map[string]string {
	return map[string]string{
		urlA: "Residency requires 5 years",
		urlB: "Visa requires sponsorship",
	}
}
