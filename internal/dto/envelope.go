package dto

import (
	"encoding/json"
	"fmt"

	"github.com/kumbo-archives/archives-client/internal/models"
	appErrors "github.com/kumbo-archives/archives-client/pkg/errors"
)

// Envelope is the backend's uniform response contract. Every response body,
// success or failure, is decoded through this one shape; call sites never
// inspect raw JSON themselves.
type Envelope struct {
	Data       json.RawMessage        `json:"data,omitempty"`
	Error      *ErrorBody             `json:"error,omitempty"`
	Pagination *models.Pagination     `json:"pagination,omitempty"`
	Meta       map[string]interface{} `json:"meta,omitempty"`
}

// ErrorBody is the error half of the envelope.
type ErrorBody struct {
	Code    string                 `json:"code"`
	Message string                 `json:"message"`
	Fields  []appErrors.FieldError `json:"fields,omitempty"`
}

// Decode parses a response body into an Envelope. An empty body yields an
// empty envelope, which suits 204-style responses.
func Decode(body []byte) (*Envelope, error) {
	env := &Envelope{}
	if len(body) == 0 {
		return env, nil
	}
	if err := json.Unmarshal(body, env); err != nil {
		return nil, fmt.Errorf("decode response envelope: %w", err)
	}
	return env, nil
}

// Bind unmarshals the envelope's data payload into dest. A nil dest or an
// absent payload is a no-op.
func (e *Envelope) Bind(dest interface{}) error {
	if dest == nil || len(e.Data) == 0 {
		return nil
	}
	if err := json.Unmarshal(e.Data, dest); err != nil {
		return fmt.Errorf("bind response data: %w", err)
	}
	return nil
}

// Err converts the envelope's error body into the typed taxonomy for the
// given HTTP status.
func (e *Envelope) Err(status int) *appErrors.Error {
	message := ""
	if e.Error != nil {
		message = e.Error.Message
	}
	appErr := appErrors.FromStatus(status, message)
	if e.Error != nil {
		if e.Error.Code != "" {
			appErr.Code = e.Error.Code
		}
		appErr.Fields = e.Error.Fields
	}
	return appErr
}
