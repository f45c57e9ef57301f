package models

import "time"

// Delivery event states.
const (
	DeliveryPending = "PENDING"
	DeliverySuccess = "SUCCESS"
	DeliveryFailure = "FAILURE"
)

// WebhookTarget is a registered downstream subscriber. Deactivation stops
// future deliveries but leaves past delivery events untouched.
type WebhookTarget struct {
	ID       int64     `json:"id" db:"id"`
	Name     string    `json:"name" db:"name"`
	URL      string    `json:"url" db:"url"`
	Active   bool      `json:"active" db:"active"`
	Created  time.Time `json:"created" db:"created"`
	Modified time.Time `json:"modified" db:"modified"`
}

// WebhookDeliveryEvent records the delivery attempt sequence for one
// (target, alert) pair. There is never more than one row per pair; retries
// mutate it in place.
type WebhookDeliveryEvent struct {
	ID              int64     `json:"id" db:"id"`
	TargetID        int64     `json:"targetId" db:"target_id"`
	AlertIdentifier string    `json:"alertIdentifier" db:"alert_identifier"`
	Status          string    `json:"status" db:"status"`
	Retries         int       `json:"retries" db:"retries"`
	Error           string    `json:"error,omitempty" db:"error"`
	Created         time.Time `json:"created" db:"created"`
	Modified        time.Time `json:"modified" db:"modified"`
}

// AlertAnnouncement is the short-form summary broadcast on publish for
// lightweight consumers that do not want the full CAP document.
type AlertAnnouncement struct {
	Identifier     string   `json:"identifier"`
	IsUpdate       bool     `json:"isUpdate"`
	RefIDs         []string `json:"referenceIDs,omitempty"`
	Event          string   `json:"event"`
	Headline       string   `json:"headline"`
	Severity       string   `json:"severity"`
	Urgency        string   `json:"urgency"`
	Certainty      string   `json:"certainty"`
	OnsetTime      string   `json:"onsetTime,omitempty"`
	ExpirationTime string   `json:"expirationTime,omitempty"`
	URL            string   `json:"url,omitempty"`
}
