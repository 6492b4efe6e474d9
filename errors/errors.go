package errors

import (
	"encoding/json"
	"fmt"
	"net/http"
	"runtime"

	"go.vocdoni.io/dvote/log"
)

// Error is used by handler functions to wrap errors, assigning a unique error code
// and also specifying which HTTP Status should be used.
type Error struct {
	Err        error  // Original error
	Code       int    // Error code
	HTTPstatus int    // HTTP status code to return
	LogLevel   string // Log level for this error (defaults to "debug")
}

// MarshalJSON returns a JSON containing Err.Error() and Code. Field HTTPstatus is ignored.
//
// Example output: {"error":"invalid JSON request body","code":40004}
func (e Error) MarshalJSON() ([]byte, error) {
	// json.Marshal doesn't call Err.Error(), so the string is copied explicitly
	return json.Marshal(
		struct {
			Error string `json:"error"`
			Code  int    `json:"code"`
		}{
			Error: e.Err.Error(),
			Code:  e.Code,
		})
}

// Error returns the Message contained inside the APIerror
func (e Error) Error() string {
	return e.Err.Error()
}

// Unwrap returns the wrapped error so errors.Is works against the definitions.
func (e Error) Unwrap() error {
	return e.Err
}

// Write serializes a JSON msg using Error.Err and Error.Code and writes it
// with Error.HTTPstatus. It also logs the error with appropriate level.
func (e Error) Write(w http.ResponseWriter) {
	msg, err := json.Marshal(e)
	if err != nil {
		log.Warn(err)
		http.Error(w, "marshal failed", http.StatusInternalServerError)
		return
	}
	e.log(2)
	// http.Error would reset the content type to text/plain
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("X-Content-Type-Options", "nosniff")
	w.WriteHeader(e.HTTPstatus)
	if _, err := w.Write(append(msg, '\n')); err != nil {
		log.Warnw("failed to write error response", "error", err)
	}
}

// WriteText writes Error.Err as a plain text body with Error.HTTPstatus. It is
// used by endpoints whose clients expect the bare message instead of JSON.
func (e Error) WriteText(w http.ResponseWriter) {
	e.log(2)
	http.Error(w, e.Error(), e.HTTPstatus)
}

// log reports the error with the configured level. skip is the number of
// stack frames between log and the handler that produced the error.
func (e Error) log(skip int) {
	pc, file, line, _ := runtime.Caller(skip)
	caller := runtime.FuncForPC(pc).Name()

	logLevel := e.LogLevel
	if logLevel == "" {
		if e.HTTPstatus >= 500 {
			logLevel = "error"
		} else {
			logLevel = "debug"
		}
	}

	// 5xx errors are always logged with the full error details
	if e.HTTPstatus >= 500 {
		log.Errorw(e.Err, fmt.Sprintf("API error response [%d]: %s (code: %d, caller: %s, file: %s:%d)",
			e.HTTPstatus, e.Error(), e.Code, caller, file, line))
		return
	}
	errMsg := fmt.Sprintf("API error response [%d]: %s (code: %d, caller: %s)",
		e.HTTPstatus, e.Error(), e.Code, caller)
	switch logLevel {
	case "info":
		log.Infow(errMsg)
	case "warn":
		log.Warnw(errMsg)
	default:
		if log.Level() == log.LogLevelDebug {
			log.Debugw(errMsg)
		}
	}
}

// With returns a copy of Error with the string appended at the end of e.Err
func (e Error) With(s string) Error {
	return Error{
		Err:        fmt.Errorf("%w: %v", e.Err, s),
		Code:       e.Code,
		HTTPstatus: e.HTTPstatus,
		LogLevel:   e.LogLevel,
	}
}

// WithErr returns a copy of Error with err.Error() appended at the end of e.Err
func (e Error) WithErr(err error) Error {
	return Error{
		Err:        fmt.Errorf("%w: %v", e.Err, err.Error()),
		Code:       e.Code,
		HTTPstatus: e.HTTPstatus,
		LogLevel:   e.LogLevel,
	}
}

// WithMessage returns a copy of Error whose message is replaced by msg. An
// empty msg keeps the original message.
func (e Error) WithMessage(msg string) Error {
	if msg == "" {
		return e
	}
	return Error{
		Err:        fmt.Errorf("%s", msg),
		Code:       e.Code,
		HTTPstatus: e.HTTPstatus,
		LogLevel:   e.LogLevel,
	}
}
