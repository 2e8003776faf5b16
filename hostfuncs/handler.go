package hostfuncs

import (
	"context"
	"encoding/json"
	"fmt"
)

// ByteHandler serves one query capability: JSON request bytes in, JSON
// response bytes out. A returned error is a host fault; anything the addon
// should see travels in the response.
type ByteHandler func(ctx context.Context, payload []byte) ([]byte, error)

// HostFunc is a typed query capability. Its error is answered with an
// ErrorResponse chosen by responseFor.
type HostFunc[Req, Resp any] func(ctx context.Context, req Req) (Resp, error)

// NewJSONHandler adapts fn to a ByteHandler. An empty payload decodes as
// the zero request, so argument-less queries can be called with nothing.
func NewJSONHandler[Req, Resp any](fn HostFunc[Req, Resp]) ByteHandler {
	return func(ctx context.Context, payload []byte) ([]byte, error) {
		var req Req
		if len(payload) > 0 {
			if err := json.Unmarshal(payload, &req); err != nil {
				return NewValidationError("malformed request: " + err.Error()).ToJSON(), nil
			}
		}

		resp, err := fn(ctx, req)
		if err != nil {
			return responseFor(err).ToJSON(), nil
		}

		out, err := json.Marshal(resp)
		if err != nil {
			return nil, fmt.Errorf("encode response: %w", err)
		}
		return out, nil
	}
}

// NotImplemented answers every call with NOT_IMPLEMENTED. The capability
// stays importable while nothing backs it.
func NotImplemented(name string) ByteHandler {
	resp := NewNotImplementedError(name).ToJSON()
	return func(context.Context, []byte) ([]byte, error) {
		return resp, nil
	}
}
