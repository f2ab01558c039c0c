package notifier

import (
	"encoding/json"
	"time"
)

// specVersion CloudEvents envelope version
const specVersion = "1.0"

// Source value of the envelope source attribute
const Source = "smc-parking-service"

// Event CloudEvents style envelope written to the notification topic
type Event struct {
	SpecVersion     string          `json:"specversion"`
	ID              string          `json:"id"`
	Source          string          `json:"source"`
	Type            string          `json:"type"`
	Time            time.Time       `json:"time"`
	DataContentType string          `json:"datacontenttype"`
	Data            json.RawMessage `json:"data"`
}

// Payload data of a notification event
type Payload struct {
	NotificationID string  `json:"notificationId"`
	UserID         *string `json:"userId,omitempty"`
	RecipientEmail *string `json:"recipientEmail,omitempty"`
	Type           string  `json:"type"`
	Title          string  `json:"title"`
	Message        string  `json:"message"`
	RelatedID      string  `json:"relatedId"`
}
