package domain

import "time"

type OwnerID string

type AlertID string

// TargetID is the tracked vessel's identifier (MMSI today, but opaque here).
type TargetID string

// Mode is the geofence polarity of an alert.
type Mode int

const (
	ModeUnknown Mode = iota
	ModeInsideRadius
	ModeOutsideRadius
)

// ParseMode maps the store's mode strings onto Mode. Anything unrecognized
// (including the empty string) is ModeUnknown.
func ParseMode(s string) Mode {
	switch s {
	case "inside_radius":
		return ModeInsideRadius
	case "outside_radius":
		return ModeOutsideRadius
	default:
		return ModeUnknown
	}
}

func (m Mode) String() string {
	switch m {
	case ModeInsideRadius:
		return "inside_radius"
	case ModeOutsideRadius:
		return "outside_radius"
	default:
		return "unknown"
	}
}

// AlertRecord is one geofence alert definition owned by a user. Records are
// immutable for the duration of a run.
type AlertRecord struct {
	Owner        OwnerID  `json:"owner_id"`
	ID           AlertID  `json:"alert_id"`
	Target       TargetID `json:"target_id"`
	TargetLabel  string   `json:"target_label"`
	DeviceToken  string   `json:"device_token"`
	Mode         Mode     `json:"mode"`
	RadiusMeters float64  `json:"radius_meters"`
	CenterLat    float64  `json:"center_lat"`
	CenterLon    float64  `json:"center_lon"`
}

// MissingFields lists the required fields that are empty. An alert with any
// of these missing must be skipped before geofence evaluation.
func (a *AlertRecord) MissingFields() []string {
	var missing []string
	if a.Target == "" {
		missing = append(missing, "target_id")
	}
	if a.TargetLabel == "" {
		missing = append(missing, "target_label")
	}
	if a.DeviceToken == "" {
		missing = append(missing, "device_token")
	}
	return missing
}

// Valid reports whether the record can be evaluated at all: all required
// fields present, a recognized mode, and a positive radius.
func (a *AlertRecord) Valid() bool {
	return len(a.MissingFields()) == 0 && a.Mode != ModeUnknown && a.RadiusMeters > 0
}

// Position is the latest known coordinate for a target.
type Position struct {
	Target     TargetID  `json:"target_id"`
	Lat        float64   `json:"lat"`
	Lon        float64   `json:"lon"`
	ObservedAt time.Time `json:"observed_at"`
}

// NotificationJob is one push delivery to perform. Emitted by the scanner,
// owned by the dispatcher after that.
type NotificationJob struct {
	AlertID     AlertID  `json:"alert_id"`
	Target      TargetID `json:"target_id"`
	TargetLabel string   `json:"target_label"`
	DeviceToken string   `json:"device_token"`
}

// OutcomeStatus classifies one dispatch attempt.
type OutcomeStatus int

const (
	// StatusDelivered means the transport acknowledged the send.
	StatusDelivered OutcomeStatus = iota
	// StatusRejectedStale means the transport rejected the device token as no
	// longer valid; the caller may want to clean the token up.
	StatusRejectedStale
	// StatusTransportError is every other delivery failure.
	StatusTransportError
)

func (s OutcomeStatus) String() string {
	switch s {
	case StatusDelivered:
		return "delivered"
	case StatusRejectedStale:
		return "rejected_stale"
	default:
		return "transport_error"
	}
}

// Outcome is the result of exactly one dispatch attempt for one job.
type Outcome struct {
	AlertID AlertID       `json:"alert_id"`
	Status  OutcomeStatus `json:"status"`
	// Detail holds the transport's error text for non-delivered outcomes.
	Detail string `json:"detail,omitempty"`
}
