package entity

import (
	"time"
)

const (
	MinimumAge = 16
	MaximumAge = 120
)

var Genders = []string{"Male", "Female", "Other"}

type User struct {
	ID          string `json:"id" firestore:"id"`
	Email       string `json:"email,omitempty" firestore:"email,omitempty"`
	DisplayName string `json:"display_name" firestore:"displayName"`
	Age         int    `json:"age,omitempty" firestore:"age,omitempty"`
	Gender      string `json:"gender,omitempty" firestore:"gender,omitempty"`

	// ProfileSet gates onboarding; false until the profile form is completed.
	ProfileSet bool `json:"profile_set" firestore:"profileSet"`

	Trophies       int `json:"trophies" firestore:"trophies"`
	RequestsMade   int `json:"requests_made" firestore:"requestsMade"`
	RequestsHelped int `json:"requests_helped" firestore:"requestsHelped"`

	CreatedAt time.Time `json:"created_at" firestore:"createdAt"`
	UpdatedAt time.Time `json:"updated_at" firestore:"updatedAt"`
}

// Counter fields that are only ever changed through atomic increments.
const (
	CounterTrophies       = "trophies"
	CounterRequestsMade   = "requestsMade"
	CounterRequestsHelped = "requestsHelped"
)
