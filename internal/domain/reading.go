package domain

import "time"

// RawMessage is one publication as delivered by the broker, before any
// decoding. It lives only for the duration of processing a single message.
type RawMessage struct {
	Topic   string
	Payload []byte
}

// Document is a decoded payload: a free-form mapping of attribute names to
// scalar values. Field sets vary by hardware revision, so no fixed schema
// is imposed.
type Document = map[string]any

// CodeSource selects how the station code is located within an inbound
// message.
type CodeSource string

const (
	// CodeFromPayload reads the reserved "id" field of the decoded document.
	CodeFromPayload CodeSource = "payload"
	// CodeFromTopic reads the last non-empty path segment of the topic.
	CodeFromTopic CodeSource = "topic"
)

// Identity is a resolved station reference, with an optional site
// sub-location. SiteID is nil when the deployment has no site directory or
// the station has no registered site.
type Identity struct {
	StationID int64
	SiteID    *int64
}

// Measurement is one normalized sensor reading, created once per
// successfully resolved message and persisted exactly once. Attributes hold
// the decoded document minus the reserved time and station-identity fields,
// with original key casing preserved.
type Measurement struct {
	StationID  int64
	SiteID     *int64
	Timestamp  time.Time
	Attributes Document

	// ReceivedAt is the local ingest time, used for logging and latency
	// metrics. It is not persisted.
	ReceivedAt time.Time
}
