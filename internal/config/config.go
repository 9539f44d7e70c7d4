package config

import (
	"os"
	"strconv"
	"time"
)

// Config is loaded once per run and immutable afterwards. Every constant the
// old scripts kept at module level (collection names, field names, templates,
// credentials path, worker count, probe IDs) lives here instead.
type Config struct {
	CredentialsFile string // Firebase service-account key JSON
	DatabaseURL     string // positions DB; empty means in-memory (nothing resolves)
	LogDir          string // logs directory
	MetricsAddr     string // optional promhttp listen address; empty disables

	FCMServerKey string
	FCMEndpoint  string // override for tests; empty means the real endpoint
	SendTimeout  time.Duration

	MaxConcurrency int // parallel sends; 1 reproduces the sequential sender

	// Diagnostic probe: a known-good user/alarm pair. Both empty skips the
	// pre-flight read check.
	ProbeOwnerID string
	ProbeAlertID string

	UsersCollection  string
	AlertsCollection string

	// Document field names, as written by the mobile clients.
	TokenField  string
	TargetField string
	LabelField  string
	ModeField   string
	RadiusField string
	LatField    string
	LonField    string

	TitleTemplate string
	BodyTemplate  string
}

func FromEnv() Config {
	cfg := Config{
		CredentialsFile: getenv("CREDENTIALS_FILE", "serviceAccountKey.json"),
		DatabaseURL:     os.Getenv("DATABASE_URL"),
		LogDir:          getenv("LOG_DIR", "logs"),
		MetricsAddr:     os.Getenv("METRICS_ADDR"),

		FCMServerKey: os.Getenv("FCM_SERVER_KEY"),
		FCMEndpoint:  os.Getenv("FCM_ENDPOINT"),
		SendTimeout:  10 * time.Second,

		MaxConcurrency: 10,

		ProbeOwnerID: os.Getenv("PROBE_USER_ID"),
		ProbeAlertID: os.Getenv("PROBE_ALARM_ID"),

		UsersCollection:  getenv("USERS_COLLECTION", "users"),
		AlertsCollection: getenv("ALARMS_COLLECTION", "alarms"),

		TokenField:  getenv("TOKEN_FIELD", "FCMDeviceToken"),
		TargetField: getenv("TARGET_FIELD", "vesselMMSI"),
		LabelField:  getenv("LABEL_FIELD", "name"),
		ModeField:   getenv("MODE_FIELD", "mode"),
		RadiusField: getenv("RADIUS_FIELD", "radiusMeters"),
		LatField:    getenv("CENTER_LAT_FIELD", "centerLat"),
		LonField:    getenv("CENTER_LON_FIELD", "centerLon"),

		TitleTemplate: getenv("TITLE_TEMPLATE", "🚨 Ship Alert: %s Detected!"),
		BodyTemplate:  getenv("BODY_TEMPLATE", "Vessel MMSI: %s. This is a critical alert for the vessel you are tracking."),
	}

	if v := os.Getenv("MAX_CONCURRENCY"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.MaxConcurrency = n
		}
	}
	if v := os.Getenv("SEND_TIMEOUT_MS"); v != "" {
		if ms, err := strconv.Atoi(v); err == nil && ms > 0 {
			cfg.SendTimeout = time.Duration(ms) * time.Millisecond
		}
	}
	return cfg
}

func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
