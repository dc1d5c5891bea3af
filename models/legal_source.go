package models

import "time"

// Authority ranks how much a source's text can be trusted as law
type Authority string

const (
	AuthorityPrimary   Authority = "primary"   // official statute database
	AuthoritySecondary Authority = "secondary" // government guidance portal
)

// DefaultCategory is the category of catalog entries that list none
const DefaultCategory = "immigration"

// Weight returns the confidence multiplier for the authority level
func (a Authority) Weight() float64 {
	if a == AuthorityPrimary {
		return 1.0
	}
	return 0.7
}

// Valid reports whether a is a known authority level
func (a Authority) Valid() bool {
	return a == AuthorityPrimary || a == AuthoritySecondary
}

// CatalogEntry is one statically known official source
type CatalogEntry struct {
	URL        string   `json:"url"`
	Name       string   `json:"name"`
	Country    string   `json:"country"`
	Categories []string `json:"categories"`
}

// SourceCatalog groups catalog entries by authority
type SourceCatalog struct {
	Primary   []CatalogEntry `json:"primary"`
	Secondary []CatalogEntry `json:"secondary"`
}

// DefaultCatalog returns the built-in list of official legal sources
func DefaultCatalog() SourceCatalog {
	return SourceCatalog{
		Primary: []CatalogEntry{
			{
				URL:        "https://lex.uz",
				Name:       "Lex.uz - Uzbekistan Legal Database",
				Country:    "UZ",
				Categories: []string{"immigration", "labor", "civil"},
			},
		},
		Secondary: []CatalogEntry{
			{
				URL:        "https://www.gov.uk/browse/visas-immigration",
				Name:       "UK Government - Immigration",
				Country:    "UK",
				Categories: []string{"immigration", "visas"},
			},
			{
				URL:        "https://www.uscis.gov",
				Name:       "US Citizenship and Immigration Services",
				Country:    "US",
				Categories: []string{"immigration", "visas", "citizenship"},
			},
			{
				URL:        "https://www.canada.ca/en/immigration-refugees-citizenship.html",
				Name:       "Immigration, Refugees and Citizenship Canada",
				Country:    "CA",
				Categories: []string{"immigration", "visas"},
			},
			{
				URL:        "https://www.germany.visa/immigration-residence-permit",
				Name:       "Germany Immigration Portal",
				Country:    "DE",
				Categories: []string{"immigration", "visas"},
			},
		},
	}
}

// Sources expands the catalog into indexable sources, primary entries first
func (c SourceCatalog) Sources(now time.Time) []LegalSource {
	sources := make([]LegalSource, 0, len(c.Primary)+len(c.Secondary))
	for _, e := range c.Primary {
		sources = append(sources, e.toSource(AuthorityPrimary, now))
	}
	for _, e := range c.Secondary {
		sources = append(sources, e.toSource(AuthoritySecondary, now))
	}
	return sources
}

func (e CatalogEntry) toSource(authority Authority, now time.Time) LegalSource {
	category := DefaultCategory
	if len(e.Categories) > 0 && e.Categories[0] != "" {
		category = e.Categories[0]
	}
	return LegalSource{
		URL:         e.URL,
		Title:       e.Name,
		Authority:   authority,
		Country:     e.Country,
		Category:    category,
		LastUpdated: now,
	}
}

// LegalSource is an official page that can be scraped and indexed
type LegalSource struct {
	URL         string    `json:"url"`
	Title       string    `json:"title"`
	Authority   Authority `json:"authority"`
	Country     string    `json:"country"`
	Category    string    `json:"category"`
	LastUpdated time.Time `json:"last_updated"`
}
