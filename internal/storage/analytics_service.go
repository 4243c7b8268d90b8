// Maintains the analytics aggregate document via read-merge-write cycles.

package storage

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/maruel/ghcms/internal/models"
)

// Retention limits for the analytics document.
const (
	maxDateBuckets = 365
	maxTopPages    = 10
)

// AnalyticsService records page visits in data/analytics.json.
//
// Each visit is one read-merge-write transaction; an overlapping tracker can
// win the conditional write and this one's increment is lost. That is the
// documented contract: counters are lossy under contention, and tracking
// failures must never reach the end user.
type AnalyticsService struct {
	store DocumentStore
}

// NewAnalyticsService creates a new analytics service.
func NewAnalyticsService(store DocumentStore) *AnalyticsService {
	return &AnalyticsService{store: store}
}

// NormalizeRoute strips the trailing slash from a route path, except for
// the root.
func NormalizeRoute(route string) string {
	if route == "" || route == "/" {
		return "/"
	}
	if trimmed := strings.TrimRight(route, "/"); trimmed != "" {
		return trimmed
	}
	return "/"
}

// Get returns the current analytics document, or an all-zero document when
// none has been written yet.
func (s *AnalyticsService) Get(ctx context.Context) (*models.AnalyticsData, error) {
	doc, err := s.store.Get(ctx, models.AnalyticsFile)
	if err != nil {
		return nil, err
	}
	data := defaultAnalytics()
	decodeDocument(doc, data)
	ensureAnalyticsMaps(data)
	return data, nil
}

// TrackVisit merges one visit to route into the analytics document and
// writes it back. countryCode may be empty when geolocation is unavailable.
func (s *AnalyticsService) TrackVisit(ctx context.Context, route, countryCode string) error {
	route = NormalizeRoute(route)

	data, err := s.Get(ctx)
	if err != nil {
		return err
	}

	data.TotalVisits++
	data.PageVisits[route]++
	if countryCode != "" {
		data.VisitsByCountry[countryCode]++
	}

	today := time.Now().UTC().Format(time.DateOnly)
	found := false
	for i := range data.VisitsByDate {
		if data.VisitsByDate[i].Date == today {
			data.VisitsByDate[i].Visits++
			found = true
			break
		}
	}
	if !found {
		data.VisitsByDate = append(data.VisitsByDate, models.DateVisits{Date: today, Visits: 1})
	}
	// Newest first, capped to a year. ISO dates sort lexicographically.
	sort.Slice(data.VisitsByDate, func(i, j int) bool {
		return data.VisitsByDate[i].Date > data.VisitsByDate[j].Date
	})
	if len(data.VisitsByDate) > maxDateBuckets {
		data.VisitsByDate = data.VisitsByDate[:maxDateBuckets]
	}

	data.TopPages = topPages(data.PageVisits)

	_, err = s.store.Put(ctx, models.AnalyticsFile, data, "Analytics: Track visit to "+route)
	return err
}

// topPages recomputes the ranking wholesale from the visit counts: the ten
// highest by descending count, ties broken by ascending path so the result
// is stable across writes.
func topPages(pageVisits map[string]int) []models.PageVisits {
	pages := make([]models.PageVisits, 0, len(pageVisits))
	for path, visits := range pageVisits {
		pages = append(pages, models.PageVisits{Path: path, Visits: visits})
	}
	sort.Slice(pages, func(i, j int) bool {
		if pages[i].Visits != pages[j].Visits {
			return pages[i].Visits > pages[j].Visits
		}
		return pages[i].Path < pages[j].Path
	})
	if len(pages) > maxTopPages {
		pages = pages[:maxTopPages]
	}
	return pages
}

func defaultAnalytics() *models.AnalyticsData {
	return &models.AnalyticsData{
		PageVisits:      map[string]int{},
		VisitsByDate:    []models.DateVisits{},
		TopPages:        []models.PageVisits{},
		VisitsByCountry: map[string]int{},
	}
}

// ensureAnalyticsMaps repairs nil maps after decoding a partial document.
func ensureAnalyticsMaps(data *models.AnalyticsData) {
	if data.PageVisits == nil {
		data.PageVisits = map[string]int{}
	}
	if data.VisitsByCountry == nil {
		data.VisitsByCountry = map[string]int{}
	}
}
