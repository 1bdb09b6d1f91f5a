package usecases

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/koolihub/koolihub/internal/core/domain"
	"github.com/koolihub/koolihub/internal/core/matching"
	"github.com/koolihub/koolihub/internal/core/ports"
	"github.com/koolihub/koolihub/internal/pkg/geospatial"
)

const (
	defaultSearchLimit = 20
	maxSearchLimit     = 100
)

// SearchOptions tunes trip search.
type SearchOptions struct {
	RadiusKm            float64
	SimilarityThreshold float64
	// PrefilterRadiusKm bounds the R-tree lookups around the searched
	// pickup and dropoff. It is widened to the search radius when smaller.
	PrefilterRadiusKm float64
	// CandidateLimit caps how many upcoming trips are scored per search.
	CandidateLimit int
	CacheTTL       time.Duration
}

// DefaultSearchOptions are used for zero fields.
var DefaultSearchOptions = SearchOptions{
	RadiusKm:            matching.DefaultRadiusKm,
	SimilarityThreshold: matching.DefaultSimilarityThreshold,
	PrefilterRadiusKm:   25,
	CandidateLimit:      500,
	CacheTTL:            time.Minute,
}

// TripSearchService ranks upcoming trips against a passenger's search.
type TripSearchService struct {
	trips ports.TripRepository
	cache ports.CacheService
	opts  SearchOptions
	now   func() time.Time
}

// NewTripSearchService creates a new TripSearchService.
func NewTripSearchService(trips ports.TripRepository, cache ports.CacheService, opts SearchOptions) *TripSearchService {
	d := DefaultSearchOptions
	if opts.RadiusKm <= 0 {
		opts.RadiusKm = d.RadiusKm
	}
	if opts.SimilarityThreshold <= 0 {
		opts.SimilarityThreshold = d.SimilarityThreshold
	}
	if opts.PrefilterRadiusKm <= 0 {
		opts.PrefilterRadiusKm = d.PrefilterRadiusKm
	}
	if opts.CandidateLimit <= 0 {
		opts.CandidateLimit = d.CandidateLimit
	}
	if opts.CacheTTL <= 0 {
		opts.CacheTTL = d.CacheTTL
	}
	return &TripSearchService{trips: trips, cache: cache, opts: opts, now: time.Now}
}

// WithClock replaces the wall clock, for tests.
func (s *TripSearchService) WithClock(now func() time.Time) *TripSearchService {
	s.now = now
	return s
}

// Search returns trips matching the criteria, best match first.
//
// With both pickup and dropoff coordinates the geographic matcher decides
// and the text fields are ignored. Otherwise origin and destination are
// matched by name; an empty field matches every trip.
func (s *TripSearchService) Search(ctx context.Context, c domain.TripSearchCriteria) (result *domain.TripSearchResult, err error) {
	ctx, span := tracer.Start(ctx, "TripSearchService.Search", trace.WithAttributes(
		attribute.Bool("search.geo", c.HasCoordinates()),
	))
	defer func() { endSpan(span, err) }()

	if c.Limit <= 0 {
		c.Limit = defaultSearchLimit
	}
	if c.Limit > maxSearchLimit {
		c.Limit = maxSearchLimit
	}
	if c.Offset < 0 {
		c.Offset = 0
	}
	if c.RadiusKm <= 0 {
		c.RadiusKm = s.opts.RadiusKm
	}
	if (c.Pickup == nil) != (c.Dropoff == nil) {
		return nil, fmt.Errorf("%w: pickup and dropoff coordinates must be given together", domain.ErrInvalidSearch)
	}

	cacheKey := searchCacheKey(c)
	if s.cache != nil {
		if data, err := s.cache.Get(ctx, cacheKey); err == nil {
			var cached domain.TripSearchResult
			if err := json.Unmarshal(data, &cached); err == nil {
				span.SetAttributes(attribute.Bool("search.cached", true))
				return &cached, nil
			}
		}
	}

	candidates, err := s.trips.ListUpcoming(ctx, ports.TripFilter{
		DepartAfter: s.now(),
		On:          c.Date,
		Seats:       c.Seats,
		Limit:       s.opts.CandidateLimit,
	})
	if err != nil {
		return nil, fmt.Errorf("list upcoming trips: %w", err)
	}

	var matches []domain.TripMatch
	if c.HasCoordinates() {
		matches = s.matchByLocation(candidates, c)
	} else {
		matches = s.matchByText(candidates, c)
	}

	sort.SliceStable(matches, func(i, j int) bool {
		if matches[i].Match.MatchScore != matches[j].Match.MatchScore {
			return matches[i].Match.MatchScore > matches[j].Match.MatchScore
		}
		return matches[i].Trip.DepartureTime.Before(matches[j].Trip.DepartureTime)
	})

	result = &domain.TripSearchResult{
		Matches: page(matches, c.Offset, c.Limit),
		Total:   len(matches),
		Offset:  c.Offset,
		Limit:   c.Limit,
	}

	if s.cache != nil {
		if data, err := json.Marshal(result); err == nil {
			_ = s.cache.Set(ctx, cacheKey, data, int(s.opts.CacheTTL.Seconds()))
		}
	}

	span.SetAttributes(
		attribute.Int("search.candidates", len(candidates)),
		attribute.Int("search.results", len(matches)),
	)
	return result, nil
}

func page(matches []domain.TripMatch, offset, limit int) []domain.TripMatch {
	if offset >= len(matches) {
		return []domain.TripMatch{}
	}
	end := min(offset+limit, len(matches))
	return matches[offset:end]
}

func (s *TripSearchService) matchByLocation(candidates []domain.Trip, c domain.TripSearchCriteria) []domain.TripMatch {
	// One leg inside the radius is enough for a positive score, so a trip
	// is a candidate when either of its points is near the searched one.
	radius := max(c.RadiusKm, s.opts.PrefilterRadiusKm)
	near := geospatial.NewTripIndex(candidates).Within(*c.Pickup, radius)
	seen := make(map[string]struct{}, len(near))
	for _, t := range near {
		seen[t.ID] = struct{}{}
	}
	for _, t := range geospatial.NewDropoffIndex(candidates).Within(*c.Dropoff, radius) {
		if _, ok := seen[t.ID]; !ok {
			seen[t.ID] = struct{}{}
			near = append(near, t)
		}
	}

	out := make([]domain.TripMatch, 0, len(near))
	for _, t := range near {
		if !s.eligible(t, c) {
			continue
		}
		m := matching.MatchTripWithinRadius(t.Pickup, t.Dropoff, *c.Pickup, *c.Dropoff, c.RadiusKm)
		if m.MatchScore <= 0 {
			continue
		}
		out = append(out, domain.TripMatch{Trip: t, Match: m})
	}
	return out
}

func (s *TripSearchService) matchByText(candidates []domain.Trip, c domain.TripSearchCriteria) []domain.TripMatch {
	out := make([]domain.TripMatch, 0, len(candidates))
	for _, t := range candidates {
		if !s.eligible(t, c) {
			continue
		}

		var total float64
		var terms int
		rejected := false
		for _, pair := range [][2]string{{t.Origin, c.From}, {t.Destination, c.To}} {
			if strings.TrimSpace(pair[1]) == "" {
				continue
			}
			score := matching.TextScore(pair[0], pair[1], s.opts.SimilarityThreshold)
			if score == 0 {
				rejected = true
				break
			}
			total += score
			terms++
		}
		if rejected {
			continue
		}

		score := 100.0
		if terms > 0 {
			score = total / float64(terms)
		}
		out = append(out, domain.TripMatch{Trip: t, Match: domain.SearchMatchResult{MatchScore: score}})
	}
	return out
}

// eligible re-applies the repository filter on the in-memory candidates.
func (s *TripSearchService) eligible(t domain.Trip, c domain.TripSearchCriteria) bool {
	if t.Status != domain.TripScheduled {
		return false
	}
	if c.Seats > 0 && !t.HasSeats(c.Seats) {
		return false
	}
	if c.Date != nil {
		y1, m1, d1 := t.DepartureTime.UTC().Date()
		y2, m2, d2 := c.Date.UTC().Date()
		if y1 != y2 || m1 != m2 || d1 != d2 {
			return false
		}
	}
	return true
}

func searchCacheKey(c domain.TripSearchCriteria) string {
	raw, _ := json.Marshal(c)
	sum := sha256.Sum256(raw)
	return "trips:search:" + hex.EncodeToString(sum[:12])
}
