package domain

import "time"

// PlaceholderEndpoint is written by the web client before the browser has
// granted notification permission; such a subscription cannot be pushed to.
const PlaceholderEndpoint = "pending"

// PushSubscription holds the browser push credentials for a user.
type PushSubscription struct {
	Endpoint string
	Auth     string
	P256dh   string
}

// Usable reports whether the subscription can actually receive a push.
func (s *PushSubscription) Usable() bool {
	if s == nil {
		return false
	}
	if s.Endpoint == "" || s.Endpoint == PlaceholderEndpoint {
		return false
	}
	return s.Auth != "" && s.P256dh != ""
}

// Profile carries the notification-relevant settings of a user.
// The web client owns the rest of the user record.
type Profile struct {
	UserID               string
	FirstName            string
	Language             string // "en", "es", "ca"
	NotificationsEnabled bool
	CalendarSyncEnabled  bool
	TelegramChatID       *int64 // optional linked chat for mirrored reminders
	Subscription         *PushSubscription
	UpdatedAt            time.Time
}
