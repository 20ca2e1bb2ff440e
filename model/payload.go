package model

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"unicode/utf8"
)

var (
	// ErrInvalidUTF8 is returned when an inbound payload is not valid UTF-8 text.
	ErrInvalidUTF8 = errors.New("payload is not valid UTF-8")

	// ErrNotAnObject is returned when an inbound payload is valid JSON but not an object.
	ErrNotAnObject = errors.New("payload is not a JSON object")

	// ErrMissingMessage is returned when an inbound object has no message text.
	ErrMissingMessage = errors.New("payload has no message field")
)

// UserRef is a user identifier as it appears on the wire. Clients send it as a
// JSON number, a numeric string or null; anything else is kept as an
// unresolvable reference rather than rejected.
type UserRef struct {
	ID    int64
	Valid bool
	Raw   string
}

// UnmarshalJSON implements json.Unmarshaler.
func (r *UserRef) UnmarshalJSON(data []byte) error {
	*r = UserRef{}
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return nil
	}

	raw := string(trimmed)
	if trimmed[0] == '"' {
		var s string
		if err := json.Unmarshal(trimmed, &s); err != nil {
			return err
		}
		raw = strings.TrimSpace(s)
	}
	r.Raw = raw

	if id, err := strconv.ParseInt(raw, 10, 64); err == nil {
		r.ID = id
		r.Valid = true
	}
	return nil
}

// String returns the reference as received.
func (r UserRef) String() string {
	return r.Raw
}

// InboundPayload is the structured body of a message delivered by the broker.
type InboundPayload struct {
	Sender   UserRef `json:"sender"`
	Receiver UserRef `json:"receiver"`
	Message  string  `json:"message"`
}

// wirePayload mirrors InboundPayload with message presence tracked.
type wirePayload struct {
	Sender   UserRef `json:"sender"`
	Receiver UserRef `json:"receiver"`
	Message  *string `json:"message"`
}

// DecodePayload decodes raw broker bytes as UTF-8 text holding a JSON object
// with sender, receiver and message fields. The message is required; a
// missing or null sender or receiver is left empty.
func DecodePayload(raw []byte) (InboundPayload, error) {
	var p InboundPayload

	if !utf8.Valid(raw) {
		return p, ErrInvalidUTF8
	}

	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || trimmed[0] != '{' {
		if json.Valid(trimmed) {
			return p, ErrNotAnObject
		}
		return p, fmt.Errorf("invalid JSON payload")
	}

	var w wirePayload
	if err := json.Unmarshal(trimmed, &w); err != nil {
		return p, fmt.Errorf("invalid JSON payload: %w", err)
	}
	if w.Message == nil {
		return p, ErrMissingMessage
	}

	p.Sender = w.Sender
	p.Receiver = w.Receiver
	p.Message = *w.Message
	return p, nil
}

// Truncate shortens a payload for log output.
func Truncate(raw []byte, limit int) string {
	if len(raw) <= limit {
		return string(raw)
	}
	return string(raw[:limit]) + "..."
}
