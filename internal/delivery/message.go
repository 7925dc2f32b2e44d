// Package delivery moves notification side effects out of the request path:
// broker publishers, the worker-side router, email and push senders, the
// live websocket hub and the dispatcher that runs them asynchronously.
package delivery

import (
	"encoding/json"
	"strconv"
)

// Template names what a Message renders to.
type Template string

const (
	TemplateVerifyEmail   Template = "verify_email"
	TemplatePasswordReset Template = "password_reset"
	TemplateChangeCode    Template = "change_code"
	TemplatePhoneCode     Template = "phone_code"
	TemplateNotification  Template = "notification"
)

// Channel is the medium a template is delivered over.
type Channel string

const (
	ChannelEmail Channel = "email"
	ChannelSMS   Channel = "sms"
	ChannelPush  Channel = "push"
)

func (t Template) Channel() Channel {
	switch t {
	case TemplateVerifyEmail, TemplatePasswordReset, TemplateChangeCode:
		return ChannelEmail
	case TemplatePhoneCode:
		return ChannelSMS
	default:
		return ChannelPush
	}
}

// Message is the wire format shared by publishers and the worker.
type Message struct {
	RecipientID uint              `json:"recipient_id"`
	Template    Template          `json:"template"`
	To          string            `json:"to,omitempty"`
	Payload     map[string]string `json:"payload"`
}

func (m Message) Key() string { return strconv.FormatUint(uint64(m.RecipientID), 10) }

func (m Message) Encode() ([]byte, error) { return json.Marshal(m) }

func DecodeMessage(b []byte) (Message, error) {
	var m Message
	err := json.Unmarshal(b, &m)
	return m, err
}
