package domain

import (
	"strings"
	"time"
)

type Tour struct {
	ID              int64      `json:"id"`
	Name            string     `json:"name"`
	Slug            string     `json:"slug"`
	Duration        int        `json:"duration"`
	MaxGroupSize    int        `json:"maxGroupSize"`
	Difficulty      string     `json:"difficulty"`
	RatingsAverage  float64    `json:"ratingsAverage"`
	RatingsQuantity int        `json:"ratingsQuantity"`
	Price           float64    `json:"price"`
	PriceDiscount   *float64   `json:"priceDiscount,omitempty"`
	Summary         string     `json:"summary"`
	Description     string     `json:"description,omitempty"`
	ImageCover      string     `json:"imageCover"`
	StartDate       *time.Time `json:"startDate,omitempty"`
	Secret          bool       `json:"-"`
	Locations       []Location `json:"locations,omitempty"`
	Reviews         []Review   `json:"reviews,omitempty"`
	CreatedAt       time.Time  `json:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at"`
}

// Location is a stop on a tour itinerary, consumed by the client-side map.
type Location struct {
	Coordinates [2]float64 `json:"coordinates"` // lng, lat
	Day         int        `json:"day"`
	Description string     `json:"description"`
}

// Tour difficulties
const (
	DifficultyEasy      = "easy"
	DifficultyMedium    = "medium"
	DifficultyDifficult = "difficult"
)

var validDifficulties = map[string]bool{
	DifficultyEasy:      true,
	DifficultyMedium:    true,
	DifficultyDifficult: true,
}

// DefaultRatingsAverage is used for tours with no reviews yet.
const DefaultRatingsAverage = 4.5

type TourPatch struct {
	Name          *string    `json:"name,omitempty"`
	Duration      *int       `json:"duration,omitempty"`
	MaxGroupSize  *int       `json:"maxGroupSize,omitempty"`
	Difficulty    *string    `json:"difficulty,omitempty"`
	Price         *float64   `json:"price,omitempty"`
	PriceDiscount *float64   `json:"priceDiscount,omitempty"`
	Summary       *string    `json:"summary,omitempty"`
	Description   *string    `json:"description,omitempty"`
	ImageCover    *string    `json:"imageCover,omitempty"`
	StartDate     *time.Time `json:"startDate,omitempty"`
	Secret        *bool      `json:"secret,omitempty"`
}

func (t *Tour) Normalize() {
	t.Name = strings.TrimSpace(t.Name)
	if t.Slug == "" {
		t.Slug = Slugify(t.Name)
	}
	if t.RatingsAverage == 0 && t.RatingsQuantity == 0 {
		t.RatingsAverage = DefaultRatingsAverage
	}
	if t.ImageCover == "" {
		t.ImageCover = "default-cover.jpg"
	}
}

func (t *Tour) Validate() error {
	if t.Name == "" {
		return Invalid("a tour must have a name")
	}
	if len(t.Name) > 40 {
		return Invalid("a tour name must have at most 40 characters")
	}
	if t.Duration <= 0 {
		return Invalid("a tour must have a duration")
	}
	if t.MaxGroupSize <= 0 {
		return Invalid("a tour must have a group size")
	}
	if !validDifficulties[t.Difficulty] {
		return Invalid("difficulty must be easy, medium or difficult")
	}
	if t.Price <= 0 {
		return Invalid("a tour must have a price")
	}
	if t.PriceDiscount != nil && *t.PriceDiscount >= t.Price {
		return Invalid("discount price should be below the regular price")
	}
	if t.Summary == "" {
		return Invalid("a tour must have a summary")
	}
	if t.RatingsAverage < 1 || t.RatingsAverage > 5 {
		return Invalid("ratings average must be between 1 and 5")
	}
	return nil
}

func (p *TourPatch) Validate() error {
	if p.Name != nil && (*p.Name == "" || len(*p.Name) > 40) {
		return Invalid("a tour name must have between 1 and 40 characters")
	}
	if p.Difficulty != nil && !validDifficulties[*p.Difficulty] {
		return Invalid("difficulty must be easy, medium or difficult")
	}
	if p.Duration != nil && *p.Duration <= 0 {
		return Invalid("a tour must have a duration")
	}
	if p.Price != nil && *p.Price <= 0 {
		return Invalid("a tour must have a price")
	}
	if p.Price != nil && p.PriceDiscount != nil && *p.PriceDiscount >= *p.Price {
		return Invalid("discount price should be below the regular price")
	}
	return nil
}

// TourStats is an aggregate row grouped by difficulty.
type TourStats struct {
	Difficulty string  `json:"difficulty"`
	NumTours   int     `json:"numTours"`
	NumRatings int     `json:"numRatings"`
	AvgRating  float64 `json:"avgRating"`
	AvgPrice   float64 `json:"avgPrice"`
	MinPrice   float64 `json:"minPrice"`
	MaxPrice   float64 `json:"maxPrice"`
}

// MonthlyPlan is an aggregate row of tour starts for one month of a year.
type MonthlyPlan struct {
	Month         int      `json:"month"`
	NumTourStarts int      `json:"numTourStarts"`
	Tours         []string `json:"tours"`
}

// Slugify lowercases the name and replaces runs of non-alphanumerics with a
// single hyphen.
func Slugify(name string) string {
	var b strings.Builder
	lastHyphen := true
	for _, r := range strings.ToLower(strings.TrimSpace(name)) {
		switch {
		case r >= 'a' && r <= 'z' || r >= '0' && r <= '9':
			b.WriteRune(r)
			lastHyphen = false
		default:
			if !lastHyphen {
				b.WriteByte('-')
				lastHyphen = true
			}
		}
	}
	return strings.TrimSuffix(b.String(), "-")
}
