// Copyright (c) 2019-present Mattermost, Inc. All Rights Reserved.
// See License for license information.

package lark

import (
	"encoding/json"
	"fmt"

	"github.com/larkkit/lark-sdk-go/utils"
)

// Reserved event types.
const (
	// EventTypeAppTicket is pushed to marketplace apps whenever the platform
	// rotates the app ticket.
	EventTypeAppTicket = "app_ticket"

	// EventTypeURLVerification is sent when a callback URL is configured in the
	// developer console; it must be answered with the challenge.
	EventTypeURLVerification = "url_verification"
)

// SchemaV2 is the schema value of the newer event envelope.
const SchemaV2 = "2.0"

// Event is the normalized form of an inbound event or card action. Both
// envelope generations normalize to the same shape: Type carries the event
// type, Fields the flattened header and body fields.
type Event struct {
	// Type is kept apart from Fields so that a payload field called "type"
	// can never be mistaken for the event type.
	Type string `json:"type"`

	// Schema is "2.0" for events that arrived in the newer envelope, and empty
	// for the legacy one.
	Schema string `json:"schema,omitempty"`

	Fields map[string]interface{} `json:"fields"`
}

// EventHeader holds the fields common to every event, whichever envelope it
// arrived in.
type EventHeader struct {
	EventID    string `json:"event_id"`
	Token      string `json:"token"`
	CreateTime string `json:"create_time"`
	AppID      string `json:"app_id"`
	TenantKey  string `json:"tenant_key"`
}

// String returns a top-level field as a string, or "" if it is missing.
func (e *Event) String(key string) string {
	if e == nil || e.Fields == nil {
		return ""
	}
	switch v := e.Fields[key].(type) {
	case nil:
		return ""
	case string:
		return v
	case json.Number:
		return v.String()
	default:
		return fmt.Sprintf("%v", v)
	}
}

// Header extracts the common header fields. Legacy envelopes use "uuid" and
// "ts" where the newer one has "event_id" and "create_time".
func (e *Event) Header() EventHeader {
	h := EventHeader{
		EventID:    e.String("event_id"),
		Token:      e.String("token"),
		CreateTime: e.String("create_time"),
		AppID:      e.String("app_id"),
		TenantKey:  e.String("tenant_key"),
	}
	if h.EventID == "" {
		h.EventID = e.String("uuid")
	}
	if h.CreateTime == "" {
		h.CreateTime = e.String("ts")
	}
	return h
}

// Decode unmarshals the event fields into v.
func (e *Event) Decode(v interface{}) error {
	if e == nil {
		return utils.NewInvalidError("nil event")
	}
	return utils.Remarshal(v, e.Fields)
}

func (e *Event) Loggable() []interface{} {
	if e == nil {
		return nil
	}
	h := e.Header()
	props := []interface{}{"event_type", e.Type}
	if h.EventID != "" {
		props = append(props, "event_id", h.EventID)
	}
	if h.TenantKey != "" {
		props = append(props, "tenant_key", h.TenantKey)
	}
	return props
}
