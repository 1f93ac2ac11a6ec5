package protocol

import (
	"encoding/json"
	"errors"
	"fmt"
)

// MethodHandshake is the method of the first request on every connection.
const MethodHandshake = "handshake"

// errMissingID is returned when a reply carries no usable correlation id.
var errMissingID = errors.New("reply missing id")

// Request is an envelope sent to Unity.
type Request struct {
	// ID uniquely identifies this request for reply correlation.
	ID string `json:"id"`

	// Method names the editor command or resource to invoke.
	Method string `json:"method"`

	// Params holds the method arguments. A nil value is sent as {}.
	Params any `json:"params"`
}

// MarshalJSON encodes the request, substituting an empty object for nil params.
func (r *Request) MarshalJSON() ([]byte, error) {
	type wire Request

	w := wire(*r)
	if w.Params == nil {
		w.Params = map[string]any{}
	}

	return json.Marshal(&w)
}

// HandshakeParams is the payload of the handshake request.
type HandshakeParams struct {
	ClientName string `json:"clientName"`
}

// Response is an envelope received from Unity.
type Response struct {
	// ID echoes the id of the request being answered.
	ID string

	// Success reports whether Unity completed the request.
	Success bool

	// Message is an optional human readable status or error message.
	Message string

	// Payload holds every method-specific field of the reply.
	Payload map[string]any
}

// UnmarshalJSON decodes a reply, splitting the envelope fields from the payload.
func (r *Response) UnmarshalJSON(data []byte) error {
	var fields map[string]json.RawMessage

	if err := json.Unmarshal(data, &fields); err != nil {
		return fmt.Errorf("decode reply: %w", err)
	}

	if fields == nil {
		return errMissingID
	}

	var id string
	if raw, ok := fields["id"]; !ok || json.Unmarshal(raw, &id) != nil || id == "" {
		return errMissingID
	}

	var resp Response

	resp.ID = id

	if raw, ok := fields["success"]; ok {
		if err := json.Unmarshal(raw, &resp.Success); err != nil {
			return fmt.Errorf("decode success flag: %w", err)
		}
	}

	if raw, ok := fields["message"]; ok {
		// A non-string message is tolerated and dropped.
		_ = json.Unmarshal(raw, &resp.Message)
	}

	delete(fields, "id")
	delete(fields, "success")
	delete(fields, "message")

	resp.Payload = make(map[string]any, len(fields))

	for k, raw := range fields {
		var v any
		if err := json.Unmarshal(raw, &v); err != nil {
			return fmt.Errorf("decode field %q: %w", k, err)
		}

		resp.Payload[k] = v
	}

	*r = resp

	return nil
}

// DecodeResponse parses one inbound message.
func DecodeResponse(data []byte) (*Response, error) {
	var resp Response
	if err := json.Unmarshal(data, &resp); err != nil {
		return nil, err
	}

	return &resp, nil
}

// IsMissingID reports whether err came from a reply without a correlation id.
func IsMissingID(err error) bool {
	return errors.Is(err, errMissingID)
}
