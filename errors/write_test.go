package errors

import (
	"encoding/json"
	stderrors "errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"

	qt "github.com/frankban/quicktest"
	"go.vocdoni.io/dvote/log"
)

func TestMain(m *testing.M) {
	log.Init("debug", "stdout", nil)
	os.Exit(m.Run())
}

func TestWriteJSON(t *testing.T) {
	c := qt.New(t)
	rec := httptest.NewRecorder()
	ErrMalformedBody.With("unexpected EOF").Write(rec)

	c.Assert(rec.Code, qt.Equals, http.StatusBadRequest)
	c.Assert(rec.Header().Get("Content-Type"), qt.Equals, "application/json")
	var body struct {
		Error string `json:"error"`
		Code  int    `json:"code"`
	}
	c.Assert(json.Unmarshal(rec.Body.Bytes(), &body), qt.IsNil)
	c.Assert(body.Code, qt.Equals, 40004)
	c.Assert(body.Error, qt.Equals, "invalid JSON request body: unexpected EOF")
}

func TestWriteText(t *testing.T) {
	c := qt.New(t)
	rec := httptest.NewRecorder()
	ErrCheckoutSessionFailed.WithMessage("Invalid API Key provided: sk_test_****1234").WriteText(rec)

	c.Assert(rec.Code, qt.Equals, http.StatusBadRequest)
	c.Assert(strings.HasPrefix(rec.Header().Get("Content-Type"), "text/plain"), qt.IsTrue)
	c.Assert(strings.TrimSpace(rec.Body.String()), qt.Equals, "Invalid API Key provided: sk_test_****1234")
}

func TestWithMessageKeepsDefault(t *testing.T) {
	c := qt.New(t)
	e := ErrCheckoutSessionFailed.WithMessage("")
	c.Assert(e.Error(), qt.Equals, "Failed to create session")
	c.Assert(e.Code, qt.Equals, ErrCheckoutSessionFailed.Code)
	c.Assert(e.HTTPstatus, qt.Equals, http.StatusBadRequest)
}

func TestWrappedErrorsUnwrap(t *testing.T) {
	c := qt.New(t)
	e := ErrInternalStorageError.WithErr(fmt.Errorf("connection reset"))
	c.Assert(stderrors.Is(e, ErrInternalStorageError.Err), qt.IsTrue)
	c.Assert(e.Error(), qt.Equals, "server error: storage operation failed: connection reset")
}
