package api

import (
	"strings"

	"github.com/danielgtaylor/huma/v2"
)

// EnvelopeVersion is the wire version of the response envelope. Bump it
// only for breaking envelope changes; the extension checks this field
// before parsing the rest.
const EnvelopeVersion = 1

// APIEnvelope is the standard response wrapper: {v, success, data} on
// success, {v, success, error} for simple errors.
type APIEnvelope struct {
	Version int    `json:"v" doc:"Envelope version"`
	Success bool   `json:"success" doc:"Whether the request succeeded"`
	Data    any    `json:"data,omitempty" doc:"Response payload"`
	Error   string `json:"error,omitempty" doc:"Error message when success is false"`
}

// APIErrorEnvelope is the detailed error wrapper used when the error
// carries a machine-readable code.
type APIErrorEnvelope struct {
	Version int    `json:"v" doc:"Envelope version"`
	Success bool   `json:"success" doc:"Always false"`
	Code    string `json:"code" doc:"Machine-readable error code"`
	Message string `json:"message" doc:"Human-readable error message"`
	Details any    `json:"details,omitempty" doc:"Additional error details"`
}

// EnvelopeTransformer wraps every huma response body in the versioned
// envelope. Registered as a huma transformer so handlers return plain
// bodies and never see the wrapper.
func EnvelopeTransformer(_ huma.Context, status string, v any) (any, error) {
	success := strings.HasPrefix(status, "2")

	switch val := v.(type) {
	case nil:
		return APIEnvelope{Version: EnvelopeVersion, Success: success}, nil

	case *APIError:
		if val.Code != "" {
			return APIErrorEnvelope{
				Version: EnvelopeVersion,
				Success: false,
				Code:    val.Code,
				Message: val.Message,
				Details: val.Details,
			}, nil
		}
		return APIEnvelope{Version: EnvelopeVersion, Success: false, Error: val.Message}, nil

	case error:
		return APIEnvelope{Version: EnvelopeVersion, Success: false, Error: val.Error()}, nil

	default:
		if !success {
			return APIEnvelope{Version: EnvelopeVersion, Success: false}, nil
		}
		return APIEnvelope{Version: EnvelopeVersion, Success: true, Data: v}, nil
	}
}
