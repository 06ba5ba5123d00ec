package domain_test

import (
	"testing"

	"github.com/trailborn/tours-api/internal/domain"
)

func TestSlugify(t *testing.T) {
	cases := []struct {
		in, want string
	}{
		{"The Forest Hiker", "the-forest-hiker"},
		{"  The Sea   Explorer  ", "the-sea-explorer"},
		{"Tour #1 (2026)!", "tour-1-2026"},
		{"", ""},
	}
	for _, c := range cases {
		if got := domain.Slugify(c.in); got != c.want {
			t.Errorf("Slugify(%q) = %q, want %q", c.in, got, c.want)
		}
	}
}

func TestTourNormalizeDefaults(t *testing.T) {
	tour := domain.Tour{Name: "The Forest Hiker"}
	tour.Normalize()

	if tour.Slug != "the-forest-hiker" {
		t.Errorf("slug = %q", tour.Slug)
	}
	if tour.RatingsAverage != domain.DefaultRatingsAverage {
		t.Errorf("ratingsAverage = %v", tour.RatingsAverage)
	}
	if tour.ImageCover == "" {
		t.Error("expected default cover image")
	}
}

func TestTourNormalizeKeepsExistingRatings(t *testing.T) {
	tour := domain.Tour{Name: "X", RatingsAverage: 3.2, RatingsQuantity: 4}
	tour.Normalize()
	if tour.RatingsAverage != 3.2 {
		t.Errorf("ratingsAverage = %v, existing value must survive", tour.RatingsAverage)
	}
}

func TestTourValidate(t *testing.T) {
	valid := func() domain.Tour {
		return domain.Tour{
			Name: "The Forest Hiker", Duration: 5, MaxGroupSize: 25,
			Difficulty: "easy", Price: 397, Summary: "s", RatingsAverage: 4.5,
		}
	}

	if err := func() error { tr := valid(); return tr.Validate() }(); err != nil {
		t.Fatalf("valid tour rejected: %v", err)
	}

	cases := []struct {
		name   string
		mutate func(*domain.Tour)
	}{
		{"empty name", func(tr *domain.Tour) { tr.Name = "" }},
		{"long name", func(tr *domain.Tour) {
			tr.Name = "This tour name is way way way too long to be accepted here"
		}},
		{"bad difficulty", func(tr *domain.Tour) { tr.Difficulty = "impossible" }},
		{"no price", func(tr *domain.Tour) { tr.Price = 0 }},
		{"discount above price", func(tr *domain.Tour) { d := 500.0; tr.PriceDiscount = &d }},
		{"rating out of range", func(tr *domain.Tour) { tr.RatingsAverage = 5.5 }},
	}
	for _, c := range cases {
		tr := valid()
		c.mutate(&tr)
		if err := tr.Validate(); err == nil {
			t.Errorf("%s: expected validation error", c.name)
		} else if !domain.IsValidation(err) {
			t.Errorf("%s: err = %v, want validation error", c.name, err)
		}
	}
}
