package property

import (
	"fmt"
	"reflect"
	"strings"

	"github.com/pkg/errors"

	"property-binder/internal/common"
)

var (
	// ErrUnknownProperty is returned when a session is asked to write a
	// property the binding does not have.
	ErrUnknownProperty = errors.New("unknown property")
	// ErrSessionFinished is returned when a session is used after Finish.
	ErrSessionFinished = errors.New("construction session already finished")
	// ErrNotImplemented is returned when a value handed to an accessor does
	// not implement the binding's definition.
	ErrNotImplemented = errors.New("value does not implement the definition")
	// ErrNilValue is returned when an accessor is handed a nil value.
	ErrNilValue = errors.New("nil value")
	// ErrArgumentType is returned when a written value cannot be passed to
	// the property's setter.
	ErrArgumentType = errors.New("value is not assignable to the setter argument")
)

// ConfigurationError reports a value type that cannot be bound: the wrong
// type was registered, or a required factory, build method or setter is
// missing. It is raised at registration or first discovery and is never
// worth retrying.
type ConfigurationError struct {
	Type     reflect.Type
	Property string
	Reason   string
	// Problems lists every individual finding when discovery found several.
	Problems []string
	Err      error
}

func (e *ConfigurationError) Error() string {
	var b strings.Builder

	b.WriteString("configuration error")
	if e.Type != nil {
		fmt.Fprintf(&b, " for %s", common.TypeName(e.Type))
	}

	if e.Property != "" {
		fmt.Fprintf(&b, " property %s", e.Property)
	}

	if e.Reason != "" {
		b.WriteString(": ")
		b.WriteString(e.Reason)
	}

	if len(e.Problems) > 0 {
		b.WriteString(": ")
		b.WriteString(strings.Join(e.Problems, "; "))
	}

	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}

	return b.String()
}

func (e *ConfigurationError) Unwrap() error { return e.Err }

// Op names the dynamically invoked operation that failed.
type Op string

const (
	OpFactory Op = "factory"
	OpSet     Op = "set"
	OpBuild   Op = "build"
	OpGet     Op = "get"
	OpProbe   Op = "probe"
)

// ConstructionError wraps a failure raised while invoking a previously
// discovered factory, setter, build method, getter or presence probe against
// a specific instance.
type ConstructionError struct {
	Op       Op
	Type     reflect.Type
	Property string
	Err      error
}

func (e *ConstructionError) Error() string {
	msg := fmt.Sprintf("%s %s", e.Op, common.TypeName(e.Type))
	if e.Property != "" {
		msg += "." + e.Property
	}

	return msg + ": " + e.Err.Error()
}

func (e *ConstructionError) Unwrap() error { return e.Err }

func constructionError(op Op, t reflect.Type, property string, err error) error {
	return &ConstructionError{Op: op, Type: t, Property: property, Err: err}
}
