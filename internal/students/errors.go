package students

import (
	"errors"
	"fmt"
)

// Kind classifies pipeline failures. The set is closed: every error the
// pipeline raises on purpose carries exactly one of these.
type Kind int

const (
	KindConfig Kind = iota + 1
	KindSourceNotFound
	KindConnectivity
	KindSecondaryIndex
	KindFeatureValidation
)

// Policy tells the caller what to do with an error of a given kind.
type Policy int

const (
	PolicyFatal Policy = iota
	PolicyDegrade
	PolicyWarn
)

func (k Kind) String() string {
	switch k {
	case KindConfig:
		return "configuration error"
	case KindSourceNotFound:
		return "source not found"
	case KindConnectivity:
		return "connectivity error"
	case KindSecondaryIndex:
		return "secondary index error"
	case KindFeatureValidation:
		return "feature validation error"
	default:
		return fmt.Sprintf("unknown error kind %d", int(k))
	}
}

// Error lets a Kind be used as an errors.Is target.
func (k Kind) Error() string {
	return k.String()
}

// Policy reports how errors of this kind propagate. Connectivity errors
// degrade to the fallback store only when the caller has fallback enabled.
func (k Kind) Policy() Policy {
	switch k {
	case KindConnectivity:
		return PolicyDegrade
	case KindSecondaryIndex:
		return PolicyWarn
	default:
		return PolicyFatal
	}
}

type Error struct {
	Kind Kind
	Op   string
	Err  error
}

func (e *Error) Error() string {
	if e.Op == "" {
		return fmt.Sprintf("%s: %v", e.Kind, e.Err)
	}
	return fmt.Sprintf("%s: %s: %v", e.Op, e.Kind, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

func (e *Error) Is(target error) bool {
	kind, ok := target.(Kind)
	return ok && kind == e.Kind
}

func NewError(kind Kind, op string, err error) error {
	return &Error{Kind: kind, Op: op, Err: err}
}

func Errorf(kind Kind, op, format string, args ...any) error {
	return &Error{Kind: kind, Op: op, Err: fmt.Errorf(format, args...)}
}

// KindOf returns the kind of the outermost *Error in err's chain.
func KindOf(err error) (Kind, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind, true
	}
	return 0, false
}

// IsFatal reports whether err must stop the invoking process.
// Errors without a kind are treated as fatal.
func IsFatal(err error) bool {
	if err == nil {
		return false
	}
	kind, ok := KindOf(err)
	if !ok {
		return true
	}
	return kind.Policy() == PolicyFatal
}
