package model

import "time"

// Notification kinds recorded in notification_log for deduplication.
const (
	NotifTypeChoresToday    = "chores_today"
	NotifTypeStrikeReceived = "strike_received"
)

// PushSubscription is one browser endpoint registered by a participant.
type PushSubscription struct {
	ID          int64       `json:"id"`
	Participant Participant `json:"participant"`
	Endpoint    string      `json:"endpoint"`
	P256dhKey   string      `json:"p256dh_key"`
	AuthKey     string      `json:"auth_key"`
	DeviceName  string      `json:"device_name"`
	CreatedAt   time.Time   `json:"created_at"`
}
