package domain

import "time"

// NotificationRequest is built fresh for every send and dropped after the attempt.
type NotificationRequest struct {
	Destination string       `json:"destination"` // channel ID
	Mention     string       `json:"mention,omitempty"`
	Body        string       `json:"body,omitempty"`
	Embed       *Embed       `json:"embed,omitempty"`
	Buttons     []RoleButton `json:"buttons,omitempty"`
	ItemID      string       `json:"item_id"` // source item or occurrence, for the delivery log
}

type Embed struct {
	Title       string       `json:"title"`
	Description string       `json:"description,omitempty"`
	URL         string       `json:"url,omitempty"`
	Color       int          `json:"color"`
	Fields      []EmbedField `json:"fields,omitempty"`
	Timestamp   time.Time    `json:"timestamp,omitzero"`
	Footer      string       `json:"footer,omitempty"`
}

type EmbedField struct {
	Name   string `json:"name"`
	Value  string `json:"value"`
	Inline bool   `json:"inline,omitempty"`
}

// RoleButton is a self-service toggle for a notification role.
type RoleButton struct {
	RoleID      string `json:"role_id"`
	Label       string `json:"label"`
	RequiresMod bool   `json:"requires_mod,omitempty"`
}

const (
	ColorGreen  = 0x2ecc71
	ColorBlue   = 0x3498db
	ColorYellow = 0xf1c40f
)

// DeliveryRecord is one line of the delivery log.
type DeliveryRecord struct {
	ID          int64     `db:"id"`
	Poller      string    `db:"poller"`
	Destination string    `db:"destination"`
	ItemID      string    `db:"item_id"`
	Status      string    `db:"status"`
	Error       *string   `db:"error"`
	CreatedAt   time.Time `db:"created_at"`
}

const (
	DeliveryStatusSent   = "sent"
	DeliveryStatusFailed = "failed"
)
