package models

import "time"

// Business is the organizer tenant that owns events. Read-only from
// this layer's perspective.
type Business struct {
	ID                string             `json:"_id"`
	Name              string             `json:"name"`
	Vertical          string             `json:"vertical"`
	Plan              string             `json:"plan"`
	APIKey            string             `json:"apiKey"`
	Config            map[string]any     `json:"config"`
	TaxonomyWeights   map[string]float64 `json:"taxonomyWeights"`
	TotalReservations int                `json:"totalReservations"`
	TotalNoShows      int                `json:"totalNoShows"`
	CreatedAt         time.Time          `json:"createdAt"`
}
