// Copyright (c) 2019-present Mattermost, Inc. All Rights Reserved.
// See License for license information.

package lark

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEventHeader(t *testing.T) {
	t.Run("v2 names", func(t *testing.T) {
		e := &Event{Type: "im.message.receive_v1", Schema: SchemaV2, Fields: map[string]interface{}{
			"event_id":    "5e3702a84e847582be8db7fb73283c02",
			"create_time": "1608725989000",
			"token":       "rvaYgkND1GOiu5MM0E1rncYC6PLtF7JV",
			"app_id":      "cli_9f5343c580712544",
			"tenant_key":  "2ca1d211f64f6438",
		}}
		h := e.Header()
		assert.Equal(t, "5e3702a84e847582be8db7fb73283c02", h.EventID)
		assert.Equal(t, "1608725989000", h.CreateTime)
		assert.Equal(t, "cli_9f5343c580712544", h.AppID)
		assert.Equal(t, "2ca1d211f64f6438", h.TenantKey)
	})

	t.Run("v1 names", func(t *testing.T) {
		e := &Event{Type: "message", Fields: map[string]interface{}{
			"uuid": "41b5f371157e3d5341b38b20396e77a3",
			"ts":   json.Number("1502199207.7171419"),
		}}
		h := e.Header()
		assert.Equal(t, "41b5f371157e3d5341b38b20396e77a3", h.EventID)
		assert.Equal(t, "1502199207.7171419", h.CreateTime)
	})
}

func TestEventDecode(t *testing.T) {
	e := &Event{Type: "im.message.receive_v1", Fields: map[string]interface{}{
		"message": map[string]interface{}{"chat_id": "oc_1", "content": `{"text":"hi"}`},
		"type":    "user-data",
	}}
	var out struct {
		Type    string `json:"type"`
		Message struct {
			ChatID  string `json:"chat_id"`
			Content string `json:"content"`
		} `json:"message"`
	}
	require.NoError(t, e.Decode(&out))
	assert.Equal(t, "oc_1", out.Message.ChatID)
	assert.Equal(t, "user-data", out.Type)
	assert.Equal(t, "im.message.receive_v1", e.Type)

	var nilEvent *Event
	require.Error(t, nilEvent.Decode(&out))
	assert.Equal(t, "", nilEvent.String("x"))
}
