package yasdi

import (
	"errors"
	"fmt"
)

// ResultCode is the integer status returned by most YASDI functions.
// Zero means success, negative values identify the failure.
type ResultCode int32

const (
	YE_OK                     ResultCode = 0
	YE_NO_ERROR               ResultCode = 0
	YE_UNKNOWN_HANDLE         ResultCode = -1
	YE_NOT_ALL_DEVS_FOUND     ResultCode = -1
	YE_SHUTDOWN               ResultCode = -2
	YE_TIMEOUT                ResultCode = -3
	YE_NO_RANGE               ResultCode = -3
	YE_VALUE_NOT_VALID        ResultCode = -4
	YE_NO_ACCESS_RIGHTS       ResultCode = -5
	YE_CHAN_TYPE_MISMATCH     ResultCode = -6
	YE_INVAL_ARGUMENT         ResultCode = -7
	YE_NOT_SUPPORTED          ResultCode = -8
	YE_DEV_DETECT_IN_PROGRESS ResultCode = -9
	YE_TOO_MANY_REQUESTS      ResultCode = -20
)

// Several codes share a value; the text covers every meaning the library documents for it.
var resultCodeText = map[ResultCode]string{
	YE_OK:                     "ok",
	YE_UNKNOWN_HANDLE:         "unknown handle or not all devices found",
	YE_SHUTDOWN:               "library is shutting down",
	YE_TIMEOUT:                "timeout or no value range",
	YE_VALUE_NOT_VALID:        "channel value is not valid",
	YE_NO_ACCESS_RIGHTS:       "insufficient access rights",
	YE_CHAN_TYPE_MISMATCH:     "operation not possible on this channel type",
	YE_INVAL_ARGUMENT:         "invalid argument",
	YE_NOT_SUPPORTED:          "not supported",
	YE_DEV_DETECT_IN_PROGRESS: "device detection already in progress",
	YE_TOO_MANY_REQUESTS:      "too many requests",
}

func (c ResultCode) Error() string {
	if text, ok := resultCodeText[c]; ok {
		return fmt.Sprintf("yasdi: %s (%d)", text, int32(c))
	}
	return fmt.Sprintf("yasdi: result code %d", int32(c))
}

// OK reports whether the code is the success code.
func (c ResultCode) OK() bool {
	return c == YE_OK
}

// CallError ties a failing result code to the native function that returned it.
type CallError struct {
	Op   string
	Code ResultCode
}

func (e *CallError) Error() string {
	return fmt.Sprintf("%s: %s", e.Op, e.Code.Error())
}

func (e *CallError) Unwrap() error {
	return e.Code
}

func callError(op string, code int32) error {
	if ResultCode(code) == YE_OK {
		return nil
	}
	return &CallError{Op: op, Code: ResultCode(code)}
}

var (
	ErrAlreadyInitialized = errors.New("yasdi: master already initialized")
	ErrNotInitialized     = errors.New("yasdi: master not initialized")
	ErrNotEncodable       = errors.New("yasdi: string is not ascii encodable")
	ErrChannelNotFound    = errors.New("yasdi: channel not found")
	ErrInvalidGroup       = errors.New("yasdi: invalid channel group")
	ErrNoDriverName       = errors.New("yasdi: driver name not available")
)

// CodeOf extracts the native result code from err. ok is false when err
// did not originate in a native call.
func CodeOf(err error) (code ResultCode, ok bool) {
	if err == nil {
		return YE_OK, true
	}
	var rc ResultCode
	if errors.As(err, &rc) {
		return rc, true
	}
	return 0, false
}
