package entities

// ErrorDetail is the serializable form of a host error, carried by load
// reports and CLI output.
//
// Type is one of compile, instantiate, trap, timeout, application,
// validation, wire_format or internal.
type ErrorDetail struct {
	Details   map[string]any `json:"details,omitempty" yaml:"details,omitempty"`
	Message   string         `json:"message" yaml:"message"`
	Type      string         `json:"type" yaml:"type"`
	Code      string         `json:"code,omitempty" yaml:"code,omitempty"`
	IsTimeout bool           `json:"is_timeout,omitempty" yaml:"is_timeout,omitempty"`
}

// Error renders the detail as "type: message [code]", leaving out the
// internal type and an empty code.
func (e *ErrorDetail) Error() string {
	if e == nil {
		return ""
	}
	msg := e.Message
	if e.Type != "" && e.Type != "internal" {
		msg = e.Type + ": " + msg
	}
	if e.Code != "" {
		msg += " [" + e.Code + "]"
	}
	return msg
}
