// Package matching scores candidate trips against a passenger's search,
// either by distance between pickup/dropoff points or by fuzzy comparison
// of place names.
package matching

import (
	"strings"
	"unicode"

	"github.com/koolihub/koolihub/internal/core/domain"
	"github.com/koolihub/koolihub/internal/pkg/geospatial"
	"github.com/koolihub/koolihub/internal/pkg/textsim"
)

const (
	DefaultRadiusKm            = 5.0
	DefaultSimilarityThreshold = 0.65

	// minWordLen is the shortest word compared in word-by-word matching.
	minWordLen = 3

	inRadiusMaxPenalty = 25.0
	outOfRadiusPenalty = 50.0
)

// MatchTripWithinRadius scores a trip's legs against the searched points.
// A leg inside the radius loses up to 25 points in proportion to its
// distance; a leg outside loses a flat 50. radiusKm <= 0 means the default.
func MatchTripWithinRadius(tripPickup, tripDropoff, searchPickup, searchDropoff domain.GeoPoint, radiusKm float64) domain.SearchMatchResult {
	if radiusKm <= 0 {
		radiusKm = DefaultRadiusKm
	}

	pickupKm := geospatial.Distance(tripPickup, searchPickup)
	dropoffKm := geospatial.Distance(tripDropoff, searchDropoff)

	score := 100 - legPenalty(pickupKm, radiusKm) - legPenalty(dropoffKm, radiusKm)
	if score < 0 {
		score = 0
	}

	return domain.SearchMatchResult{
		MatchScore:        score,
		PickupDistanceKm:  pickupKm,
		DropoffDistanceKm: dropoffKm,
		IsWithinRadius:    pickupKm <= radiusKm && dropoffKm <= radiusKm,
	}
}

func legPenalty(distanceKm, radiusKm float64) float64 {
	if distanceKm <= radiusKm {
		return inRadiusMaxPenalty * distanceKm / radiusKm
	}
	return outOfRadiusPenalty
}

// ArePhoneticallySimilar compares the normalized forms of a and b: equal,
// one containing the other, or within an edit budget of max(2, maxLen/3).
func ArePhoneticallySimilar(a, b string) bool {
	na, nb := NormalizeForPhonetics(a), NormalizeForPhonetics(b)

	// Inputs made entirely of suffixes normalize to "", which would
	// otherwise match everything.
	if na == "" || nb == "" {
		return strings.EqualFold(strings.TrimSpace(a), strings.TrimSpace(b))
	}

	if na == nb || strings.Contains(na, nb) || strings.Contains(nb, na) {
		return true
	}

	maxLen := max(len([]rune(na)), len([]rune(nb)))
	budget := max(2, maxLen/3)
	return textsim.Levenshtein(na, nb) <= budget
}

// MatchTripByText reports whether searchTerm plausibly names tripLocation.
// Strategies are tried cheapest first and the first hit wins. Edit-distance
// similarity must exceed the threshold; a threshold <= 0 means the default. An empty search term matches every location.
func MatchTripByText(tripLocation, searchTerm string, similarityThreshold float64) bool {
	if similarityThreshold <= 0 {
		similarityThreshold = DefaultSimilarityThreshold
	}

	location := strings.ToLower(strings.TrimSpace(tripLocation))
	term := strings.ToLower(strings.TrimSpace(searchTerm))
	if term == "" {
		return true
	}
	if location == "" {
		return false
	}
	city := CityName(location)

	// 1. direct containment against the full location and the city
	if containsEither(location, term) || containsEither(city, term) {
		return true
	}

	// 2. phonetic similarity of the city
	if ArePhoneticallySimilar(city, term) {
		return true
	}

	// 3. edit-distance similarity of the city
	if textsim.Similarity(city, term) > similarityThreshold {
		return true
	}

	// 4. containment between normalized forms
	nc, nt := NormalizeForPhonetics(city), NormalizeForPhonetics(term)
	if nc != "" && nt != "" && containsEither(nc, nt) {
		return true
	}

	// 5. word by word
	locWords := words(location)
	for _, sw := range words(term) {
		for _, lw := range locWords {
			if containsEither(lw, sw) ||
				ArePhoneticallySimilar(lw, sw) ||
				textsim.Similarity(lw, sw) > similarityThreshold {
				return true
			}
		}
	}

	return false
}

// CityName returns the part of a location before its first comma.
func CityName(location string) string {
	if i := strings.IndexByte(location, ','); i >= 0 {
		location = location[:i]
	}
	return strings.TrimSpace(location)
}

// TextScore ranks a text match in [50, 100]: any match earns 50, the rest
// scales with how close the term is to the location's city name. Zero when
// the term does not match.
func TextScore(tripLocation, searchTerm string, similarityThreshold float64) float64 {
	if !MatchTripByText(tripLocation, searchTerm, similarityThreshold) {
		return 0
	}
	term := strings.ToLower(strings.TrimSpace(searchTerm))
	if term == "" {
		return 100
	}
	city := strings.ToLower(CityName(tripLocation))
	return 50 + 50*textsim.Similarity(city, term)
}

func containsEither(a, b string) bool {
	if a == "" || b == "" {
		return false
	}
	return strings.Contains(a, b) || strings.Contains(b, a)
}

func words(s string) []string {
	fields := strings.FieldsFunc(s, func(r rune) bool {
		return r == ',' || unicode.IsSpace(r)
	})
	out := fields[:0]
	for _, f := range fields {
		if len([]rune(f)) >= minWordLen {
			out = append(out, f)
		}
	}
	return out
}
