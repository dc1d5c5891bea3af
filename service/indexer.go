package service

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"legalrag-backend/audit"
	"legalrag-backend/chunker"
	"legalrag-backend/metrics"
	"legalrag-backend/models"
	"legalrag-backend/oracle"
	"legalrag-backend/repository"
	"legalrag-backend/storage"

	"github.com/rs/zerolog/log"
)

var (
	ErrEmptyScrape   = errors.New("source produced no text")
	ErrInvalidSource = errors.New("invalid legal source")
)

// SourceScraper returns the plain text of a page, or "" when it cannot be fetched
type SourceScraper interface {
	Scrape(ctx context.Context, url string) string
}

// SourceReport summarises indexing of one source
type SourceReport struct {
	URL           string `json:"url"`
	Title         string `json:"title"`
	Skipped       bool   `json:"skipped"`
	Chunks        int    `json:"chunks"`
	ChunksIndexed int    `json:"chunks_indexed"`
	ChunksFailed  int    `json:"chunks_failed"`
	Snapshot      string `json:"snapshot,omitempty"`
}

// IndexReport summarises a batch
type IndexReport struct {
	Sources       []SourceReport `json:"sources"`
	ChunksIndexed int            `json:"chunks_indexed"`
	ChunksFailed  int            `json:"chunks_failed"`
	Skipped       int            `json:"skipped"`
}

func (r *IndexReport) add(s SourceReport) {
	r.Sources = append(r.Sources, s)
	r.ChunksIndexed += s.ChunksIndexed
	r.ChunksFailed += s.ChunksFailed
	if s.Skipped {
		r.Skipped++
	}
}

// IngestRequest describes an ad-hoc official page to index
type IngestRequest struct {
	URL       string
	Title     string
	Country   string
	Category  string
	Authority models.Authority
}

// Indexer scrapes, chunks, embeds and stores official legal sources
type Indexer struct {
	scraper         SourceScraper
	embedder        oracle.Embedder
	index           repository.VectorIndex
	snapshots       storage.Storage
	audit           *audit.Logger
	metrics         *metrics.Metrics
	catalog         models.SourceCatalog
	chunkSize       int
	replaceExisting bool
	now             func() time.Time
}

// IndexerOption is a functional option for Indexer
type IndexerOption func(*Indexer)

// IndexWithScraper sets the page scraper
func IndexWithScraper(s SourceScraper) IndexerOption {
	return func(i *Indexer) {
		i.scraper = s
	}
}

// IndexWithEmbedder sets the chunk embedder
func IndexWithEmbedder(e oracle.Embedder) IndexerOption {
	return func(i *Indexer) {
		i.embedder = e
	}
}

// IndexWithVectorIndex sets the destination index
func IndexWithVectorIndex(idx repository.VectorIndex) IndexerOption {
	return func(i *Indexer) {
		i.index = idx
	}
}

// IndexWithSnapshots archives scraped text to s
func IndexWithSnapshots(s storage.Storage) IndexerOption {
	return func(i *Indexer) {
		i.snapshots = s
	}
}

// IndexWithAudit sets the audit trail
func IndexWithAudit(a *audit.Logger) IndexerOption {
	return func(i *Indexer) {
		i.audit = a
	}
}

// IndexWithMetrics sets the metrics sink
func IndexWithMetrics(m *metrics.Metrics) IndexerOption {
	return func(i *Indexer) {
		i.metrics = m
	}
}

// IndexWithCatalog replaces the built-in source catalog
func IndexWithCatalog(c models.SourceCatalog) IndexerOption {
	return func(i *Indexer) {
		i.catalog = c
	}
}

// IndexWithChunkSize sets the number of words per chunk
func IndexWithChunkSize(n int) IndexerOption {
	return func(i *Indexer) {
		if n > 0 {
			i.chunkSize = n
		}
	}
}

// IndexWithReplaceExisting prunes a source's chunks past the new tail after a clean re-index
func IndexWithReplaceExisting(replace bool) IndexerOption {
	return func(i *Indexer) {
		i.replaceExisting = replace
	}
}

// IndexWithClock overrides the time source used for LastUpdated
func IndexWithClock(now func() time.Time) IndexerOption {
	return func(i *Indexer) {
		i.now = now
	}
}

// NewIndexer creates a new indexer
func NewIndexer(opts ...IndexerOption) *Indexer {
	i := &Indexer{
		catalog:         models.DefaultCatalog(),
		chunkSize:       chunker.DefaultWindowSize,
		replaceExisting: true,
		now:             time.Now,
	}
	for _, opt := range opts {
		opt(i)
	}
	return i
}

// Catalog returns the sources indexed by IndexAllSources
func (i *Indexer) Catalog() models.SourceCatalog {
	return i.catalog
}

// Sources expands the catalog, primary sources first
func (i *Indexer) Sources() []models.LegalSource {
	return i.catalog.Sources(i.now())
}

// IndexAllSources indexes every catalog source sequentially, primary first.
// A failing source never stops the batch.
func (i *Indexer) IndexAllSources(ctx context.Context) IndexReport {
	var report IndexReport
	for _, src := range i.Sources() {
		if ctx.Err() != nil {
			log.Warn().Err(ctx.Err()).Msg("indexing cancelled")
			break
		}
		report.add(i.IndexSource(ctx, src))
	}
	log.Info().
		Int("sources", len(report.Sources)).
		Int("chunks_indexed", report.ChunksIndexed).
		Int("chunks_failed", report.ChunksFailed).
		Int("skipped", report.Skipped).
		Msg("legal sources indexed")
	return report
}

// IndexSource scrapes, chunks, embeds and stores one source.
// Per-chunk failures are logged and counted; the remaining chunks are still processed.
func (i *Indexer) IndexSource(ctx context.Context, src models.LegalSource) SourceReport {
	report := SourceReport{URL: src.URL, Title: src.Title}
	logger := log.With().Str("url", src.URL).Str("authority", string(src.Authority)).Logger()

	if i.scraper == nil || i.embedder == nil || i.index == nil {
		logger.Error().Msg("indexer is missing a scraper, embedder or index")
		report.Skipped = true
		return report
	}

	text := i.scraper.Scrape(ctx, src.URL)
	if text == "" {
		logger.Warn().Msg("no content scraped, skipping source")
		i.metrics.SourceSkipped()
		i.metrics.IndexFailure("scrape")
		report.Skipped = true
		i.audit.Index(src.URL, string(src.Authority), 0, 0, "", ErrEmptyScrape)
		return report
	}

	chunks := chunker.Chunk(text, i.chunkSize)
	report.Chunks = len(chunks)
	report.Snapshot = i.archive(ctx, src, text)

	for n, chunkText := range chunks {
		if err := i.indexChunk(ctx, src, n, chunkText); err != nil {
			logger.Error().Err(err).Int("chunk", n).Msg("failed to index chunk")
			report.ChunksFailed++
			continue
		}
		i.metrics.ChunkIndexed(string(src.Authority))
		report.ChunksIndexed++
	}

	// Old chunks past the new tail are pruned only once every new chunk is
	// stored, so a failed re-index keeps the previous text answerable.
	if i.replaceExisting && report.ChunksFailed == 0 && report.ChunksIndexed > 0 {
		if err := i.index.DeleteStale(ctx, src.URL, len(chunks)); err != nil {
			logger.Warn().Err(err).Msg("failed to remove stale chunks")
			i.metrics.IndexFailure("delete")
		}
	}

	logger.Info().
		Int("chunks", report.Chunks).
		Int("indexed", report.ChunksIndexed).
		Int("failed", report.ChunksFailed).
		Msg("source indexed")
	i.audit.Index(src.URL, string(src.Authority), report.ChunksIndexed, report.ChunksFailed, report.Snapshot, nil)
	return report
}

func (i *Indexer) indexChunk(ctx context.Context, src models.LegalSource, n int, text string) error {
	embedding, err := i.embedder.Embed(ctx, text)
	if err != nil {
		i.metrics.IndexFailure("embed")
		return fmt.Errorf("%w: %v", ErrEmbeddingFailed, err)
	}
	chunk := models.NewIndexedChunk(src, n, text, embedding)
	if err := i.index.Upsert(ctx, []models.IndexedChunk{chunk}); err != nil {
		i.metrics.IndexFailure("upsert")
		return err
	}
	return nil
}

func (i *Indexer) archive(ctx context.Context, src models.LegalSource, text string) string {
	if i.snapshots == nil {
		return ""
	}
	key := storage.SnapshotKey(src.URL, src.LastUpdated)
	path, err := i.snapshots.Put(ctx, key, strings.NewReader(text))
	if err != nil {
		log.Warn().Err(err).Str("url", src.URL).Msg("failed to archive snapshot")
		return ""
	}
	return path
}

// IngestURL indexes an official page outside the catalog
func (i *Indexer) IngestURL(ctx context.Context, req IngestRequest) (SourceReport, error) {
	src, err := i.sourceFromRequest(req)
	if err != nil {
		return SourceReport{}, err
	}
	report := i.IndexSource(ctx, src)
	if report.Skipped {
		return report, ErrEmptyScrape
	}
	return report, nil
}

func (i *Indexer) sourceFromRequest(req IngestRequest) (models.LegalSource, error) {
	u, err := url.Parse(strings.TrimSpace(req.URL))
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return models.LegalSource{}, fmt.Errorf("%w: url must be an absolute http(s) url", ErrInvalidSource)
	}

	authority := req.Authority
	if authority == "" {
		authority = models.AuthoritySecondary
	}
	if !authority.Valid() {
		return models.LegalSource{}, fmt.Errorf("%w: unknown authority %q", ErrInvalidSource, authority)
	}

	title := strings.TrimSpace(req.Title)
	if title == "" {
		title = u.Host
	}
	category := strings.TrimSpace(req.Category)
	if category == "" {
		category = models.DefaultCategory
	}

	return models.LegalSource{
		URL:         u.String(),
		Title:       title,
		Authority:   authority,
		Country:     normalizeCountry(req.Country),
		Category:    category,
		LastUpdated: i.now(),
	}, nil
}
