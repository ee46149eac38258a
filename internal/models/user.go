package models

import "time"

// KYC holds a user's identity details as verified by the backend.
type KYC struct {
	ID        string     `json:"_id,omitempty"`
	Name      string     `json:"name"`
	Email     string     `json:"email"`
	Phone     string     `json:"phone"`
	BirthDate *time.Time `json:"birth_date,omitempty"`
	Address   string     `json:"address,omitempty"`
	Gender    string     `json:"gender,omitempty"`
}

// User is the backend's user document with its reputation counters.
type User struct {
	ID                 string     `json:"_id"`
	Verified           bool       `json:"verified"`
	KYC                *KYC       `json:"kyc,omitempty"`
	Roles              []string   `json:"roles"`
	CreatedAt          time.Time  `json:"createdAt"`
	LastActiveAt       *time.Time `json:"lastActiveAt,omitempty"`
	NoShowCount        int        `json:"noShowCount"`
	SuccessfulCheckins int        `json:"successfulCheckins"`
	AnomalyCheckins    int        `json:"anomalyCheckins"`
	ReviewCount        int        `json:"reviewCount"`
	AverageUserRating  float64    `json:"averageUserRating"`
}

// RegistrationForm is the POST /users/ payload. Field names match the
// backend's validation map keys so field errors can be relayed 1:1.
type RegistrationForm struct {
	Name      string `json:"name"`
	Email     string `json:"email"`
	Phone     string `json:"phone"`
	BirthDate string `json:"birth_date"`
	Address   string `json:"address"`
	Gender    string `json:"gender"`
}
