package bookingcom

import (
	"strconv"
	"strings"

	"github.com/cockroachdb/errors"

	"wanderbook/internal/domain"
)

/********** alias registry **********/

// Paths are tried in order; the demand API has shipped several shapes over time.
var accommodationAliases = map[string][]string{
	"id":           {"id", "accommodation_id", "hotel_id"},
	"name":         {"name", "name.en-gb", "name.en-us", "hotel_name"},
	"city":         {"city", "location.city", "address.city"},
	"country":      {"country", "location.country", "address.country", "country_code"},
	"description":  {"description", "description.text", "description.en-gb"},
	"price":        {"price.total", "price.book", "price.amount", "price"},
	"currency":     {"currency.accommodation", "price.currency", "currency"},
	"rating":       {"review_score", "rating.review_score", "rating.score", "rating"},
	"review_count": {"review_count", "rating.number_of_reviews", "number_of_reviews"},
	"images":       {"image_urls", "photos", "images"},
	"amenities":    {"facilities", "amenities"},
}

const (
	defaultName              = "Unknown Hotel"
	defaultSearchDescription = "Beautiful hotel"
)

/********** tiny helpers **********/

// lookupAny: safe nested lookup with dot paths on maps.
func lookupAny(m map[string]any, path string) any {
	cur := any(m)
	for _, part := range strings.Split(path, ".") {
		obj, ok := cur.(map[string]any)
		if !ok {
			return nil
		}
		v, ok := obj[part]
		if !ok {
			return nil
		}
		cur = v
	}
	return cur
}

// lookupStr returns string at path or "".
func lookupStr(m map[string]any, path string) string {
	if v := lookupAny(m, path); v != nil {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return ""
}

// firstStr: first non-empty string for a named alias set.
func firstStr(m map[string]any, key string) string {
	for _, p := range accommodationAliases[key] {
		if s := strings.TrimSpace(lookupStr(m, p)); s != "" {
			return s
		}
	}
	return ""
}

// getFloatFlexible: number from several paths (float64/int/string like "8,0").
func getFloatFlexible(m map[string]any, paths ...string) (float64, bool) {
	for _, k := range paths {
		switch v := lookupAny(m, k).(type) {
		case float64:
			return v, true
		case int:
			return float64(v), true
		case int64:
			return float64(v), true
		case string:
			s := strings.TrimSpace(strings.ReplaceAll(v, ",", "."))
			if s == "" {
				continue
			}
			if f, err := strconv.ParseFloat(s, 64); err == nil {
				return f, true
			}
		}
	}
	return 0, false
}

// firstInt64Flexible: int64 from several paths (float64/int/string).
func firstInt64Flexible(m map[string]any, paths ...string) (int64, bool) {
	for _, k := range paths {
		switch v := lookupAny(m, k).(type) {
		case float64:
			return int64(v), true
		case int:
			return int64(v), true
		case int64:
			return v, true
		case string:
			s := strings.TrimSpace(v)
			if s == "" {
				continue
			}
			if n, err := strconv.ParseInt(s, 10, 64); err == nil {
				return n, true
			}
		}
	}
	return 0, false
}

// firstSliceStrings: accept []any with either strings or {url/src/name} objects.
func firstSliceStrings(m map[string]any, paths ...string) []string {
	for _, k := range paths {
		raw, ok := lookupAny(m, k).([]any)
		if !ok {
			continue
		}
		out := make([]string, 0, len(raw))
		for _, it := range raw {
			switch t := it.(type) {
			case string:
				if t != "" {
					out = append(out, t)
				}
			case map[string]any:
				for _, f := range []string{"url", "src", "url_max", "name"} {
					if u, ok := t[f].(string); ok && u != "" {
						out = append(out, u)
						break
					}
				}
			}
		}
		if len(out) > 0 {
			return out
		}
	}
	return nil
}

/********** accommodation mapper **********/

var errMalformed = errors.New("malformed accommodation")

// mapAccommodation converts one provider entry. city, when set, overrides the
// provider's value (search results carry the requested destination); fallbackID
// is used when the entry has no id of its own.
func mapAccommodation(raw any, city string, fallbackID int64, search bool) (domain.Hotel, error) {
	m, ok := raw.(map[string]any)
	if !ok {
		return domain.Hotel{}, errors.Wrapf(errMalformed, "entry is %T, not an object", raw)
	}

	id, ok := firstInt64Flexible(m, accommodationAliases["id"]...)
	if !ok {
		id = fallbackID
	}
	if id == 0 {
		return domain.Hotel{}, errors.Wrap(errMalformed, "missing id")
	}

	h := domain.Hotel{
		ID:          id,
		Name:        firstStr(m, "name"),
		City:        city,
		Country:     firstStr(m, "country"),
		Description: firstStr(m, "description"),
		Currency:    firstStr(m, "currency"),
		ImageURLs:   firstSliceStrings(m, accommodationAliases["images"]...),
		Amenities:   firstSliceStrings(m, accommodationAliases["amenities"]...),
	}
	if h.Name == "" {
		h.Name = defaultName
	}
	if h.City == "" {
		h.City = firstStr(m, "city")
	}
	if h.Description == "" && search {
		h.Description = defaultSearchDescription
	}
	if p, ok := getFloatFlexible(m, accommodationAliases["price"]...); ok {
		h.Price = p
	}
	if r, ok := getFloatFlexible(m, accommodationAliases["rating"]...); ok {
		h.Rating = r
	}
	if n, ok := firstInt64Flexible(m, accommodationAliases["review_count"]...); ok && n > 0 {
		h.ReviewCount = int(n)
	}
	return h.Normalize(), nil
}
