package entity

import (
	"time"

	"helphand/pkg/errors"
)

const (
	RequestStatusOpen       = "open"
	RequestStatusInProgress = "in_progress"
	RequestStatusCompleted  = "completed"
)

var Categories = []string{
	"General Help",
	"Consulting",
	"Counseling",
	"Editing",
	"Small Development/Support",
	"Artwork",
}

// EstimatedTimeOptions are the accepted durations in minutes.
var EstimatedTimeOptions = []int{10, 15, 30, 60}

type Request struct {
	ID            string     `json:"id" firestore:"id"`
	RequesterID   string     `json:"requester_id" firestore:"requesterId"`
	Category      string     `json:"category" firestore:"category"`
	Description   string     `json:"description" firestore:"description"`
	EstimatedTime int        `json:"estimated_time" firestore:"estimatedTime"`
	Status        string     `json:"status" firestore:"status"`
	HelperID      *string    `json:"helper_id" firestore:"helperId"`
	CreatedAt     time.Time  `json:"created_at" firestore:"createdAt"`
	CompletedAt   *time.Time `json:"completed_at,omitempty" firestore:"completedAt,omitempty"`
}

func (r *Request) Helper() string {
	if r.HelperID == nil {
		return ""
	}
	return *r.HelperID
}

// Claim moves an open request to in_progress for helperID. Re-claiming an
// in-progress request by its own helper is accepted and changes nothing.
func (r *Request) Claim(helperID string) error {
	if helperID == r.RequesterID {
		return errors.BadRequest("This is your own request. You cannot start a chat with yourself.", nil)
	}

	switch r.Status {
	case RequestStatusOpen:
	case RequestStatusInProgress:
		if r.Helper() != helperID {
			return errors.Conflict("This request is already being helped by someone else.")
		}
	default:
		return errors.Conflict("This request has already been completed.")
	}

	r.Status = RequestStatusInProgress
	r.HelperID = &helperID
	return nil
}

// Release reopens the request after the pairing ended.
func (r *Request) Release() {
	r.Status = RequestStatusOpen
	r.HelperID = nil
}

func (r *Request) Complete(now time.Time) {
	r.Status = RequestStatusCompleted
	r.CompletedAt = &now
}

func (r *Request) IsBrowsable() bool {
	return r.Status == RequestStatusOpen || r.Status == RequestStatusInProgress
}

func ValidCategory(category string) bool {
	for _, c := range Categories {
		if c == category {
			return true
		}
	}
	return false
}

func ValidEstimatedTime(minutes int) bool {
	for _, m := range EstimatedTimeOptions {
		if m == minutes {
			return true
		}
	}
	return false
}
