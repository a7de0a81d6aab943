package scraper

import (
	"encoding/json"
	"fmt"
	"log"
	"net/url"
	"strings"

	"github.com/gocolly/colly/v2"

	"github.com/Owoblo/sold2move-sub003/internal/ingest"
)

// Page is one result page's worth of raw items. The page number travels
// with the items: it feeds the just-listed heuristic downstream.
type Page struct {
	Number int
	Items  []*ingest.RawItem
}

// Source fetches raw listing payloads for one city and listing status.
type Source interface {
	FetchCity(city, status string, maxPages int) ([]Page, error)
}

// SearchScraper walks the source's paginated search results and pulls the
// listing payload embedded as JSON in each page.
type SearchScraper struct {
	baseURL string
}

func NewSearchScraper(baseURL string) *SearchScraper {
	return &SearchScraper{baseURL: baseURL}
}

// searchPayload is the fragment of the embedded page state we care about.
type searchPayload struct {
	SearchResults struct {
		ListResults []json.RawMessage `json:"listResults"`
	} `json:"searchResults"`
}

// FetchCity scrapes up to maxPages result pages. A page that fails to
// fetch or parse ends the walk with whatever was collected so far; partial
// results are better than none.
func (s *SearchScraper) FetchCity(city, status string, maxPages int) ([]Page, error) {
	var pages []Page
	seen := make(map[string]bool)

	for pageNum := 1; pageNum <= maxPages; pageNum++ {
		items, err := s.fetchPage(city, status, pageNum, seen)
		if err != nil {
			if pageNum == 1 {
				return nil, fmt.Errorf("fetch %s page 1 for %s: %w", status, city, err)
			}
			log.Printf("[scraper] Stopping at page %d for %s (%s): %v", pageNum, city, status, err)
			break
		}

		if len(items) == 0 {
			log.Printf("[scraper] No results on page %d for %s (%s), stopping", pageNum, city, status)
			break
		}

		pages = append(pages, Page{Number: pageNum, Items: items})
	}

	return pages, nil
}

func (s *SearchScraper) fetchPage(city, status string, pageNum int, seen map[string]bool) ([]*ingest.RawItem, error) {
	searchURL := fmt.Sprintf("%s/homes/%s/%s/%d_p/",
		s.baseURL, url.PathEscape(slugify(city)), statusPath(status), pageNum)

	c := colly.NewCollector()

	var items []*ingest.RawItem

	c.OnHTML("script[type='application/json']", func(e *colly.HTMLElement) {
		text := strings.TrimSpace(e.Text)
		// The page state script wraps its JSON in an HTML comment.
		text = strings.TrimPrefix(text, "<!--")
		text = strings.TrimSuffix(text, "-->")

		var payload searchPayload
		if err := json.Unmarshal([]byte(text), &payload); err != nil {
			return
		}

		for _, raw := range payload.SearchResults.ListResults {
			item := &ingest.RawItem{}
			if err := json.Unmarshal(raw, item); err != nil {
				log.Printf("[scraper] Skipping unparseable list result on %s page %d: %v",
					city, pageNum, err)
				continue
			}

			id := item.ItemID()
			if id == "" || seen[id] {
				continue
			}
			seen[id] = true
			items = append(items, item)
		}
	})

	if err := c.Visit(searchURL); err != nil {
		return nil, err
	}

	return items, nil
}

func slugify(city string) string {
	return strings.ToLower(strings.ReplaceAll(strings.TrimSpace(city), " ", "-"))
}

// statusPath maps a listing status to the source's URL segment.
func statusPath(status string) string {
	if status == "sold" {
		return "sold"
	}
	return "for_sale"
}
