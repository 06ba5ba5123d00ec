package domain

import (
	"strings"
	"time"
)

type Review struct {
	ID        int64     `json:"id"`
	Review    string    `json:"review"`
	Rating    int       `json:"rating"`
	TourID    int64     `json:"tour"`
	UserID    int64     `json:"user"`
	Author    *UserInfo `json:"author,omitempty"` // populated on reads
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

type ReviewPatch struct {
	Review *string `json:"review,omitempty"`
	Rating *int    `json:"rating,omitempty"`
}

func (r *Review) Normalize() {
	r.Review = strings.TrimSpace(r.Review)
}

func (r *Review) Validate() error {
	if r.Review == "" {
		return Invalid("review can not be empty")
	}
	if r.Rating < 1 || r.Rating > 5 {
		return Invalid("rating must be between 1 and 5")
	}
	if r.TourID == 0 {
		return Invalid("review must belong to a tour")
	}
	if r.UserID == 0 {
		return Invalid("review must belong to a user")
	}
	return nil
}

func (p *ReviewPatch) Validate() error {
	if p.Review != nil && strings.TrimSpace(*p.Review) == "" {
		return Invalid("review can not be empty")
	}
	if p.Rating != nil && (*p.Rating < 1 || *p.Rating > 5) {
		return Invalid("rating must be between 1 and 5")
	}
	return nil
}
