package dto

import (
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"
	jsoniter "github.com/json-iterator/go"
)

// ErrMalformedRequest marks frames that are not a JSON object of the expected shape.
var ErrMalformedRequest = errors.New("malformed request")

var (
	json     = jsoniter.ConfigCompatibleWithStandardLibrary
	validate = validator.New()
)

// Marshal encodes v with the shared JSON codec.
func Marshal(v interface{}) ([]byte, error) {
	return json.Marshal(v)
}

// Unmarshal decodes data with the shared JSON codec.
func Unmarshal(data []byte, v interface{}) error {
	return json.Unmarshal(data, v)
}

// DecodeRequest parses and validates a websocket prediction request. Only frames that are not
// a JSON object are ErrMalformedRequest; a missing or non-string image is a validation error.
func DecodeRequest(data []byte) (*PredictionRequest, error) {
	var fields map[string]jsoniter.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil || fields == nil {
		return nil, fmt.Errorf("%w: expected a JSON object", ErrMalformedRequest)
	}

	var req PredictionRequest
	if raw, ok := fields["image"]; ok {
		if err := json.Unmarshal(raw, &req.Image); err != nil {
			return nil, fmt.Errorf("invalid request: image is not a string: %w", err)
		}
	}
	if err := validate.Struct(req); err != nil {
		return nil, fmt.Errorf("invalid request: %w", err)
	}
	return &req, nil
}
