// Package domain models environmental sensor readings published by
// monitoring stations over MQTT.
//
// # Message Conventions
//
// Payloads are JSON objects with a free-form attribute set that varies by
// hardware and firmware revision — different revisions emit different field
// names and casings for the same logical quantity (e.g. "PM2_5" vs "pm25"),
// so attributes are modelled as a variant map rather than a fixed record.
// Two fields are reserved:
//
//	time  ISO-8601 instant, the moment the reading was taken.
//	id    station code, present only under the payload-encoded convention.
//
// Station identification has two mutually exclusive conventions, selected
// per deployment:
//
//	Topic-encoded:   the code is the last non-empty segment of the topic,
//	                 e.g. "/stations/7/" → "7".
//	Payload-encoded: the code is the reserved "id" field of the document,
//	                 e.g. {"id": "pcb_radio_nebli", ...} → "pcb_radio_nebli".
//
// Both reserved fields are removed from the attribute map before it is
// persisted, so the stored blob never duplicates values used for indexing.
//
// # Identity
//
// A station is a registered physical installation with a unique code kept in
// the relational directory. Some deployments additionally register at most
// one site (sub-location) per station; a station without a site is valid and
// yields an absent site reference, not an error.
package domain
