package domain

import (
	"strings"
	"time"
)

// Bounds applied to every hotel leaving the provider gateway or the mock catalog.
const (
	MaxSearchResults  = 15
	MaxImages         = 4
	MaxAmenities      = 6
	MaxDescriptionLen = 200
	DefaultCurrency   = "USD"
)

// Hotel is the normalized record served to clients (HotelInfo on the wire).
type Hotel struct {
	ID          int64    `json:"id" bson:"id" yaml:"id"`
	Name        string   `json:"name" bson:"name" yaml:"name"`
	City        string   `json:"city" bson:"city" yaml:"city"`
	Country     string   `json:"country" bson:"country" yaml:"country"`
	Description string   `json:"description" bson:"description" yaml:"description"`
	Price       float64  `json:"price" bson:"price" yaml:"price"`
	Currency    string   `json:"currency" bson:"currency" yaml:"currency"`
	Rating      float64  `json:"rating" bson:"rating" yaml:"rating"`
	ReviewCount int      `json:"review_count" bson:"review_count" yaml:"review_count"`
	ImageURLs   []string `json:"image_urls" bson:"image_urls" yaml:"image_urls"`
	Amenities   []string `json:"amenities" bson:"amenities" yaml:"amenities"`
}

// Clone returns a copy that shares no slices with h.
func (h Hotel) Clone() Hotel {
	out := h
	out.ImageURLs = append([]string(nil), h.ImageURLs...)
	out.Amenities = append([]string(nil), h.Amenities...)
	if out.ImageURLs == nil {
		out.ImageURLs = []string{}
	}
	if out.Amenities == nil {
		out.Amenities = []string{}
	}
	return out
}

// Normalize enforces the output bounds: non-negative price, a currency code,
// capped image and amenity lists and a truncated description.
func (h Hotel) Normalize() Hotel {
	out := h.Clone()
	if out.Price < 0 {
		out.Price = 0
	}
	if strings.TrimSpace(out.Currency) == "" {
		out.Currency = DefaultCurrency
	}
	if len(out.ImageURLs) > MaxImages {
		out.ImageURLs = out.ImageURLs[:MaxImages]
	}
	if len(out.Amenities) > MaxAmenities {
		out.Amenities = out.Amenities[:MaxAmenities]
	}
	out.Description = TruncateDescription(out.Description)
	return out
}

// TruncateDescription cuts s to MaxDescriptionLen runes and appends "..." when it was longer.
func TruncateDescription(s string) string {
	r := []rune(s)
	if len(r) <= MaxDescriptionLen {
		return s
	}
	return string(r[:MaxDescriptionLen]) + "..."
}

// CloneHotels copies a result list so callers can't mutate cached or catalog data.
func CloneHotels(in []Hotel) []Hotel {
	out := make([]Hotel, len(in))
	for i, h := range in {
		out[i] = h.Clone()
	}
	return out
}

// SearchQuery is a hotel search request.
type SearchQuery struct {
	Destination string `json:"destination"`
	CheckIn     string `json:"check_in"`
	CheckOut    string `json:"check_out"`
	NumAdults   int    `json:"num_adults"`
	NumChildren int    `json:"num_children"`
	NumRooms    int    `json:"num_rooms"`
}

// Key returns the cache key for q; destinations are keyed lower-cased.
func (q SearchQuery) Key() SearchKey {
	return SearchKey{
		Destination: strings.ToLower(strings.TrimSpace(q.Destination)),
		CheckIn:     q.CheckIn,
		CheckOut:    q.CheckOut,
	}
}

// Validate applies occupancy defaults and checks the stay dates.
func (q *SearchQuery) Validate() error {
	q.Destination = strings.TrimSpace(q.Destination)
	if q.Destination == "" {
		return NewInvalidInput("destination is required")
	}
	if q.NumAdults <= 0 {
		q.NumAdults = 1
	}
	if q.NumChildren < 0 {
		q.NumChildren = 0
	}
	if q.NumRooms <= 0 {
		q.NumRooms = 1
	}
	return ValidateStay(q.CheckIn, q.CheckOut)
}

// SearchKey identifies a cached search result.
type SearchKey struct {
	Destination string
	CheckIn     string
	CheckOut    string
}

func (k SearchKey) String() string {
	return k.Destination + ":" + k.CheckIn + ":" + k.CheckOut
}

const DateLayout = "2006-01-02"

// ValidateStay checks that both dates are ISO dates and check-out follows check-in.
func ValidateStay(checkIn, checkOut string) error {
	in, err := time.Parse(DateLayout, checkIn)
	if err != nil {
		return NewInvalidInput("check_in must be a YYYY-MM-DD date")
	}
	out, err := time.Parse(DateLayout, checkOut)
	if err != nil {
		return NewInvalidInput("check_out must be a YYYY-MM-DD date")
	}
	if !out.After(in) {
		return NewInvalidInput("check_out must be after check_in")
	}
	return nil
}
