package polarmqtt

import (
	"errors"
	"fmt"
)

// Error codes surfaced through SessionHandler.OnError. Codes 1-5 are the
// MQTT v3.1.1 CONNACK refusal codes reported verbatim from the engine.
const (
	ErrCodeBadProtocolVersion = 1
	ErrCodeIdentifierRejected = 2
	ErrCodeServerUnavailable  = 3
	ErrCodeBadCredentials     = 4
	ErrCodeNotAuthorized      = 5

	// ErrCodeLocal is the sentinel for failures carrying no engine-native
	// code: transport errors, TLS setup failures and asynchronous
	// connection loss.
	ErrCodeLocal = -1
)

// EngineError wraps an engine failure together with the engine-native
// result code reported through SessionHandler.OnError.
type EngineError struct {
	Code   int
	Reason string
	Err    error
}

func (e *EngineError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("engine error %d: %s: %s", e.Code, e.Reason, e.Err.Error())
	}
	return fmt.Sprintf("engine error %d: %s", e.Code, e.Reason)
}

func (e *EngineError) Unwrap() error {
	return e.Err
}

// engineErrorCode extracts the engine-native code, or ErrCodeLocal when
// the error carries none.
func engineErrorCode(err error) int {
	var ee *EngineError
	if errors.As(err, &ee) {
		return ee.Code
	}
	return ErrCodeLocal
}
