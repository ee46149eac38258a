package models

import "time"

const (
	ReservationPending   = "pending"
	ReservationCompleted = "completed"
	ReservationCancelled = "cancelled"
)

const (
	CheckinPending   = "pending"
	CheckinCompleted = "completed"
	CheckinTrouble   = "trouble"
	CheckinAnomaly   = "anomaly"
)

// Review is the post-check-in review subdocument (rating 1-5).
type Review struct {
	Rating    int       `json:"rating"`
	Comment   string    `json:"comment"`
	CreatedAt time.Time `json:"createdAt"`
}

// Checkin is the reservation's embedded check-in subdocument.
type Checkin struct {
	Status           string     `json:"status"`
	RequestedAt      time.Time  `json:"requestedAt"`
	OTPVerified      *bool      `json:"otpVerified,omitempty"`
	LocationVerified *bool      `json:"locationVerified,omitempty"`
	KYCVerified      *bool      `json:"kycVerified,omitempty"`
	CompletedAt      *time.Time `json:"completedAt,omitempty"`
	Review           *Review    `json:"review,omitempty"`
}

// Reservation is a user's claim on a capacity slot of an event,
// progressing through verification and check-in.
type Reservation struct {
	ID               string         `json:"_id"`
	EventID          string         `json:"eventId"`
	UserID           string         `json:"userId"`
	Status           string         `json:"status"`
	Code             string         `json:"code,omitempty"`
	PreverifiedAt    time.Time      `json:"preverifiedAt"`
	OTPVerified      bool           `json:"otpVerified"`
	LocationVerified *bool          `json:"locationVerified,omitempty"`
	KYCVerified      bool           `json:"kycVerified"`
	KYCInfo          *KYC           `json:"kycInfo,omitempty"`
	Checkin          *Checkin       `json:"checkin,omitempty"`
	CompletedAt      *time.Time     `json:"completedAt,omitempty"`
	CancelledAt      *time.Time     `json:"cancelledAt,omitempty"`
	CancelledReason  string         `json:"canceledReason,omitempty"`
	Metadata         map[string]any `json:"metadata,omitempty"`
}

// CheckinTier maps a check-in status to its display tier. Total over
// the status enum: an absent check-in or an unknown status counts as
// pending rather than an error.
func (r *Reservation) CheckinTier() string {
	if r == nil || r.Checkin == nil {
		return CheckinPending
	}
	switch r.Checkin.Status {
	case CheckinCompleted, CheckinTrouble, CheckinAnomaly:
		return r.Checkin.Status
	default:
		return CheckinPending
	}
}

// CheckedIn reports whether the reservation holds a completed check-in,
// the precondition for submitting a review.
func (r *Reservation) CheckedIn() bool {
	return r != nil && r.Checkin != nil && r.Checkin.Status == CheckinCompleted
}

// CheckinResult is the POST /reservations/{id}/checkin response: the
// updated check-in subdocument plus an abuse-detection flag whose
// semantics are owned entirely by the backend.
type CheckinResult struct {
	Checkin
	PreviousAnomalyCheckins bool `json:"previous_anomaly_checkins,omitempty"`
}
