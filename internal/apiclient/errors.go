package apiclient

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/go-resty/resty/v2"

	"github.com/mind-engage/mindengage-exams/internal/wire"
)

// Kind classifies a failed call.
type Kind int

const (
	KindServer       Kind = iota // unknown server error
	KindUnauthorized             // 401
	KindForbidden                // 403
	KindBadRequest               // 400 and other 4xx
	KindNotFound                 // 404
	KindNetwork                  // no response (status 0)
)

func (k Kind) String() string {
	switch k {
	case KindUnauthorized:
		return "unauthorized"
	case KindForbidden:
		return "forbidden"
	case KindBadRequest:
		return "bad_request"
	case KindNotFound:
		return "not_found"
	case KindNetwork:
		return "network"
	default:
		return "server"
	}
}

// Error is returned by every Client method when the call did not succeed.
type Error struct {
	Kind    Kind
	Status  int    // 0 when no response arrived
	Op      string // e.g. "POST /questions"
	Message string // server-provided detail, if any
	Err     error
}

func (e *Error) Error() string {
	var b strings.Builder
	b.WriteString(e.Op)
	if e.Status != 0 {
		fmt.Fprintf(&b, ": %d", e.Status)
	}
	if e.Message != "" {
		b.WriteString(": ")
		b.WriteString(e.Message)
	} else if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

func (e *Error) Unwrap() error { return e.Err }

// KindOf returns the Kind of err, or KindServer when err is not an *Error.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindServer
}

// StatusOf returns the HTTP status carried by err, or 0.
func StatusOf(err error) int {
	var e *Error
	if errors.As(err, &e) {
		return e.Status
	}
	return 0
}

func kindForStatus(status int) Kind {
	switch {
	case status == http.StatusUnauthorized:
		return KindUnauthorized
	case status == http.StatusForbidden:
		return KindForbidden
	case status == http.StatusNotFound:
		return KindNotFound
	case status >= 400 && status < 500:
		return KindBadRequest
	default:
		return KindServer
	}
}

func errorFromResponse(op string, res *resty.Response) *Error {
	e := &Error{Op: op, Status: res.StatusCode(), Kind: kindForStatus(res.StatusCode())}
	body := strings.TrimSpace(res.String())
	var env wire.ErrorBody
	if json.Unmarshal([]byte(body), &env) == nil && env.Message != "" {
		e.Message = env.Message
	} else if len(body) < 512 {
		e.Message = body
	}
	return e
}
