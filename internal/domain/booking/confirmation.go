package booking

import (
	"bytes"
	"encoding/json"
	"strconv"
	"strings"

	"github.com/example/dine-composer/internal/internaltypes"
)

// Confirmation is the booking id the backend assigned. Master is set when the
// id came from a multi-table booking.
type Confirmation struct {
	BookingID int64
	Master    bool
}

const GenericBookingFailure = "booking failed"

// Accepted field names, checked in order.
var (
	primaryIDFields = []string{"bookingId", "booking_id"}
	masterIDFields  = []string{"masterBookingId", "master_booking_id"}
	messageFields   = []string{"message", "error", "detail"}
)

// DecodeConfirmation maps a create-booking response to a Confirmation.
// A body with no recognisable id is a remote failure whatever the status.
func DecodeConfirmation(status int, body []byte) (Confirmation, error) {
	var fields map[string]json.RawMessage
	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()
	if err := dec.Decode(&fields); err != nil {
		fields = nil
	}

	if status >= 200 && status < 300 {
		if id, ok := lookupID(fields, primaryIDFields); ok {
			return Confirmation{BookingID: id}, nil
		}
		if id, ok := lookupID(fields, masterIDFields); ok {
			return Confirmation{BookingID: id, Master: true}, nil
		}
	}

	msg := lookupMessage(fields)
	if msg == "" {
		msg = GenericBookingFailure
	}
	return Confirmation{}, internaltypes.Remote("create booking", status, msg)
}

// Message extracts a server message from a JSON error body using the same aliases.
func Message(body []byte) string {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(body, &fields); err != nil {
		return ""
	}
	return lookupMessage(fields)
}

func lookupID(fields map[string]json.RawMessage, names []string) (int64, bool) {
	for _, name := range names {
		raw, ok := fields[name]
		if !ok {
			continue
		}
		if id, ok := parseID(raw); ok {
			return id, true
		}
	}
	return 0, false
}

func parseID(raw json.RawMessage) (int64, bool) {
	var v any
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	if err := dec.Decode(&v); err != nil {
		return 0, false
	}
	var s string
	switch t := v.(type) {
	case json.Number:
		s = t.String()
	case string:
		s = strings.TrimSpace(t)
	default:
		return 0, false
	}
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}

func lookupMessage(fields map[string]json.RawMessage) string {
	for _, name := range messageFields {
		raw, ok := fields[name]
		if !ok {
			continue
		}
		var s string
		if err := json.Unmarshal(raw, &s); err == nil && strings.TrimSpace(s) != "" {
			return strings.TrimSpace(s)
		}
	}
	return ""
}
