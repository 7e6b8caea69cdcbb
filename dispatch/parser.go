// Copyright (c) 2020-present Mattermost, Inc. All Rights Reserved.
// See License for license information.

package dispatch

import (
	"crypto/hmac"
	"crypto/sha1" // nolint:gosec
	"crypto/sha256"
	"encoding/hex"
	"net/http"

	"github.com/larkkit/lark-sdk-go/encrypter"
	"github.com/larkkit/lark-sdk-go/lark"
	"github.com/larkkit/lark-sdk-go/utils"
)

// Request is an inbound webhook call, as extracted by an adapter.
type Request struct {
	Headers http.Header
	Body    []byte
}

func (r Request) signed() (timestamp, nonce, signature string) {
	if r.Headers == nil {
		return "", "", ""
	}
	return r.Headers.Get(lark.HeaderRequestTimestamp),
		r.Headers.Get(lark.HeaderRequestNonce),
		r.Headers.Get(lark.HeaderSignature)
}

// Parser verifies, decrypts and normalizes inbound payloads.
type Parser struct {
	EncryptKey        string
	VerificationToken string
	Cipher            encrypter.Cipher
	Log               utils.Logger
}

func NewParser(encryptKey, verificationToken string, log utils.Logger) *Parser {
	if log == nil {
		log = utils.NewNopLogger()
	}
	p := &Parser{
		EncryptKey:        encryptKey,
		VerificationToken: verificationToken,
		Log:               log,
	}
	if encryptKey != "" {
		p.Cipher = encrypter.NewAESCipher(encryptKey)
	}
	return p
}

// Decode unmarshals a body, decrypting it first if it has an "encrypt"
// field.
func (p *Parser) Decode(body []byte) (map[string]interface{}, error) {
	data, err := utils.DecodeObject(body)
	if err != nil {
		return nil, err
	}
	encrypted, ok := data["encrypt"].(string)
	if !ok {
		return data, nil
	}
	if p.Cipher == nil {
		return nil, utils.NewInvalidError("received an encrypted payload, but no encrypt key is configured")
	}
	plain, err := p.Cipher.Decrypt(encrypted)
	if err != nil {
		return nil, err
	}
	return utils.DecodeObject([]byte(plain))
}

// Parse normalizes an event. In the 2.0 envelope the type is
// header.event_type and the header fields are merged with the event fields,
// event fields winning. In the legacy envelope the type is event.type and
// the event fields are merged with the other top-level fields, top-level
// fields winning.
func (p *Parser) Parse(body []byte) (*lark.Event, error) {
	data, err := p.Decode(body)
	if err != nil {
		p.log().WithError(err).Warnw("failed to decode event")
		return nil, err
	}

	if schema, ok := data["schema"].(string); ok {
		return parseV2(schema, data), nil
	}

	event := object(data["event"])
	top := map[string]interface{}{}
	for k, v := range data {
		if k != "event" {
			top[k] = v
		}
	}
	eventType := stringField(event, "type")
	if eventType == "" {
		// url_verification and other bodies without an event object.
		eventType = stringField(data, "type")
	}
	return &lark.Event{
		Type:   eventType,
		Fields: mergeFields(event, top),
	}, nil
}

// ParseCard normalizes a card action callback. The type is
// header.event_type in the 2.0 envelope and action.tag in the legacy one.
func (p *Parser) ParseCard(body []byte) (*lark.Event, error) {
	data, err := p.Decode(body)
	if err != nil {
		p.log().WithError(err).Warnw("failed to decode card action")
		return nil, err
	}

	if schema, ok := data["schema"].(string); ok {
		return parseV2(schema, data), nil
	}

	eventType := stringField(object(data["action"]), "tag")
	if eventType == "" {
		eventType = stringField(data, "type")
	}
	return &lark.Event{
		Type:   eventType,
		Fields: mergeFields(data),
	}, nil
}

// CheckEvent verifies the signature of an event request. Without an encrypt
// key there is nothing to verify against.
func (p *Parser) CheckEvent(req Request) bool {
	if p.EncryptKey == "" {
		return true
	}
	timestamp, nonce, signature := req.signed()
	sum := sha256.Sum256([]byte(timestamp + nonce + p.EncryptKey + string(req.Body)))
	return hmac.Equal([]byte(hex.EncodeToString(sum[:])), []byte(signature))
}

// CheckCard verifies the signature of a card action request, which is keyed
// by the verification token.
func (p *Parser) CheckCard(req Request) bool {
	if p.VerificationToken == "" {
		return true
	}
	timestamp, nonce, signature := req.signed()
	sum := sha1.Sum([]byte(timestamp + nonce + p.VerificationToken + string(req.Body))) // nolint:gosec
	return hmac.Equal([]byte(hex.EncodeToString(sum[:])), []byte(signature))
}

func (p *Parser) log() utils.Logger {
	if p.Log == nil {
		return utils.NewNopLogger()
	}
	return p.Log
}

func parseV2(schema string, data map[string]interface{}) *lark.Event {
	header := object(data["header"])
	return &lark.Event{
		Type:   stringField(header, "event_type"),
		Schema: schema,
		Fields: mergeFields(header, object(data["event"])),
	}
}

func object(v interface{}) map[string]interface{} {
	m, _ := v.(map[string]interface{})
	return m
}

func stringField(m map[string]interface{}, key string) string {
	s, _ := m[key].(string)
	return s
}

// mergeFields copies maps into a new one, later maps winning.
func mergeFields(maps ...map[string]interface{}) map[string]interface{} {
	out := map[string]interface{}{}
	for _, m := range maps {
		for k, v := range m {
			out[k] = v
		}
	}
	return out
}
