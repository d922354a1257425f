package domain

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
)

var (
	// ErrNotObject reports a payload that decoded to something other than a
	// JSON object.
	ErrNotObject = errors.New("payload is not a JSON object")

	// ErrNoStationCode reports a payload-encoded message whose reserved "id"
	// field is missing or not a string.
	ErrNoStationCode = errors.New("payload has no station code")

	// ErrNoTimestamp reports a document without the reserved "time" field.
	ErrNoTimestamp = errors.New("document has no time field")

	// ErrUnknownStation reports a station code with no matching directory
	// record. Returned by resolvers, declared here so the pipeline does not
	// depend on a concrete store.
	ErrUnknownStation = errors.New("unknown station code")
)

// DecodePayload parses raw bytes as a JSON object. Anything that is valid
// JSON but not an object (arrays, bare scalars) is rejected, since readings
// are always named-field documents.
func DecodePayload(payload []byte) (Document, error) {
	var doc Document
	if err := json.Unmarshal(payload, &doc); err != nil {
		return nil, fmt.Errorf("decode payload: %w", err)
	}
	if doc == nil {
		return nil, ErrNotObject
	}
	return doc, nil
}

// StationCodeFromTopic extracts the station code under the topic-encoded
// convention: the last non-empty segment of the topic path.
// "/stations/7/" → "7".
func StationCodeFromTopic(topic string) (string, error) {
	segments := strings.Split(topic, "/")
	for i := len(segments) - 1; i >= 0; i-- {
		if segments[i] != "" {
			return segments[i], nil
		}
	}
	return "", fmt.Errorf("topic %q has no station segment", topic)
}

// ExtractStationCode extracts the station code under the payload-encoded
// convention: the reserved "id" field, which is removed from the document so
// the persisted attribute blob never carries it.
func ExtractStationCode(doc Document) (string, error) {
	v, ok := doc["id"]
	if !ok {
		return "", ErrNoStationCode
	}
	code, ok := v.(string)
	if !ok || code == "" {
		return "", ErrNoStationCode
	}
	delete(doc, "id")
	return code, nil
}

// StationCode locates the station code according to the configured
// convention.
func StationCode(source CodeSource, msg RawMessage, doc Document) (string, error) {
	if source == CodeFromTopic {
		return StationCodeFromTopic(msg.Topic)
	}
	return ExtractStationCode(doc)
}

// NormalizeMeasurement produces a Measurement from a decoded document and a
// resolved identity. The reserved "time" field is parsed as an ISO-8601
// instant and removed from the document; all remaining entries are retained
// verbatim as the attribute blob. No unit conversion, range checking, or
// field renaming happens here.
func NormalizeMeasurement(doc Document, identity Identity) (Measurement, error) {
	v, ok := doc["time"]
	if !ok {
		return Measurement{}, ErrNoTimestamp
	}
	s, ok := v.(string)
	if !ok {
		return Measurement{}, fmt.Errorf("time field is not a string: %v", v)
	}
	ts, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return Measurement{}, fmt.Errorf("parse time %q: %w", s, err)
	}
	delete(doc, "time")

	return Measurement{
		StationID:  identity.StationID,
		SiteID:     identity.SiteID,
		Timestamp:  ts,
		Attributes: doc,
		ReceivedAt: clock.Now().UTC(),
	}, nil
}
