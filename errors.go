package adsql

import (
	"context"
	"database/sql/driver"
	"fmt"

	"github.com/pkg/errors"
)

var (
	// ErrDatabase matches every error relabelled by the adapter.
	ErrDatabase = errors.New("adsql: database error")
	// ErrIntegrity matches errors caused by a constraint violation.
	ErrIntegrity = errors.New("adsql: integrity error")
	// ErrNotSupported matches operations the Advantage engine cannot perform.
	ErrNotSupported = errors.New("adsql: not supported")
	// ErrInterface matches errors raised by the client interface itself,
	// most often a connection that is no longer usable.
	ErrInterface = errors.New("adsql: interface error")

	ErrCursorClosed = errors.New("adsql: cursor is closed")
)

// IntegrityErrorCodes lists native error codes that the Advantage client
// reports as operational errors although they are constraint violations.
var IntegrityErrorCodes = []int{1048}

type Kind int

const (
	KindDatabase Kind = iota
	KindOperational
	KindIntegrity
	KindProgramming
	KindInterface
	KindData
	KindInternal
	KindNotSupported
)

var kindNames = map[Kind]string{
	KindDatabase:     "database",
	KindOperational:  "operational",
	KindIntegrity:    "integrity",
	KindProgramming:  "programming",
	KindInterface:    "interface",
	KindData:         "data",
	KindInternal:     "internal",
	KindNotSupported: "not supported",
}

func (k Kind) String() string {
	if n, ok := kindNames[k]; ok {
		return n
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// NativeError is implemented by errors raised by a native Advantage client.
type NativeError interface {
	error
	NativeCode() int
	NativeKind() Kind
}

// ErrorCoder extracts the native code and kind from an error returned by
// the wrapped driver. ok is false for errors the native driver did not
// raise; those are returned to the caller untouched.
type ErrorCoder func(err error) (code int, kind Kind, ok bool)

// NativeErrorCoder is the default ErrorCoder. It understands NativeError.
func NativeErrorCoder(err error) (int, Kind, bool) {
	var ne NativeError
	if errors.As(err, &ne) {
		return ne.NativeCode(), ne.NativeKind(), true
	}
	return 0, KindDatabase, false
}

// Error is a native error relabelled into the category callers branch on.
type Error struct {
	Kind    Kind
	Code    int
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Code != 0 {
		return fmt.Sprintf("adsql: %s error %d: %s", e.Kind, e.Code, e.Message)
	}
	return fmt.Sprintf("adsql: %s error: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

// Is reports ErrDatabase for every Error and the narrower sentinel that
// matches its kind.
func (e *Error) Is(target error) bool {
	switch target {
	case ErrDatabase:
		return true
	case ErrIntegrity:
		return e.Kind == KindIntegrity
	case ErrNotSupported:
		return e.Kind == KindNotSupported
	case ErrInterface:
		return e.Kind == KindInterface
	}
	return false
}

// IsIntegrity reports whether err is, or wraps, an integrity violation.
func IsIntegrity(err error) bool {
	return errors.Is(err, ErrIntegrity)
}

type classifier struct {
	coder     ErrorCoder
	integrity map[int]struct{}
	onRelabel func(code int)
}

func newClassifier(coder ErrorCoder, codes []int) *classifier {
	c := &classifier{
		coder:     coder,
		integrity: make(map[int]struct{}, len(codes)),
	}
	if c.coder == nil {
		c.coder = NativeErrorCoder
	}
	for _, code := range codes {
		c.integrity[code] = struct{}{}
	}
	return c
}

// classify relabels err. Operational errors whose code appears in the
// integrity table become integrity errors.
func (c *classifier) classify(err error) error {
	if err == nil || err == driver.ErrBadConn || err == driver.ErrSkip ||
		err == context.Canceled || err == context.DeadlineExceeded {
		return err
	}
	var already *Error
	if errors.As(err, &already) {
		return err
	}

	code, kind, ok := c.coder(err)
	if !ok {
		return err
	}
	if kind == KindOperational {
		if _, hit := c.integrity[code]; hit {
			kind = KindIntegrity
			if c.onRelabel != nil {
				c.onRelabel(code)
			}
		}
	}
	return &Error{Kind: kind, Code: code, Message: err.Error(), Err: err}
}
