package config

import "github.com/kelseyhightower/envconfig"

// Config holds application configuration loaded from environment variables.
type Config struct {
	DBPath   string `envconfig:"DB_PATH" default:"./data/reminders.db"`
	HTTPAddr string `envconfig:"HTTP_ADDR" default:":8080"`
	LogLevel string `envconfig:"LOG_LEVEL" default:"info"` // debug|info|warn|error

	// All slot clocks are wall-clock times in this single service timezone.
	Timezone string `envconfig:"TIMEZONE" default:"Europe/Madrid"`

	// Web Push sender identity.
	VAPIDPublicKey  string `envconfig:"VAPID_PUBLIC_KEY" required:"true"`
	VAPIDPrivateKey string `envconfig:"VAPID_PRIVATE_KEY" required:"true"`
	PushSubscriber  string `envconfig:"PUSH_SUBSCRIBER" default:"mailto:hello@fitbarca.app"`

	// Optional: when set, reminders are mirrored to linked Telegram chats.
	TelegramToken string `envconfig:"TELEGRAM_TOKEN"`

	// Notification artwork served by the web client.
	IconURL  string `envconfig:"ICON_URL" default:"/icons/icon-192.png"`
	BadgeURL string `envconfig:"BADGE_URL" default:"/icons/badge-72.png"`
}

// Load reads environment variables into Config.
func Load() (Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}
