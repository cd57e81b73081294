package firewall

import "errors"

// ErrInvalidRequest is returned when a Request fails validation: an
// out-of-range confidence or an unrecognized intended_action. Adapters
// translate this into a client error before the pipeline runs.
var ErrInvalidRequest = errors.New("firewall: invalid request")

// ErrUnknownPolicyMode is returned by SetMode for an unrecognized mode string.
// The current mode is left unchanged.
var ErrUnknownPolicyMode = errors.New("firewall: unknown policy mode")
