package domain

import "time"

type Booking struct {
	ID        int64     `json:"id"`
	TourID    int64     `json:"tour"`
	UserID    int64     `json:"user"`
	Price     float64   `json:"price"`
	Paid      bool      `json:"paid"`
	SessionID string    `json:"-"` // checkout session reference
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

type BookingPatch struct {
	Price *float64 `json:"price,omitempty"`
	Paid  *bool    `json:"paid,omitempty"`
}

func (b *Booking) Validate() error {
	if b.TourID == 0 {
		return Invalid("booking must belong to a tour")
	}
	if b.UserID == 0 {
		return Invalid("booking must belong to a user")
	}
	if b.Price <= 0 {
		return Invalid("booking must have a price")
	}
	return nil
}

func (p *BookingPatch) Validate() error {
	if p.Price != nil && *p.Price <= 0 {
		return Invalid("booking must have a price")
	}
	return nil
}
