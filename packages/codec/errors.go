package codec

import (
	"fmt"
	"reflect"
)

// UnencodableError reports a body value that no encoder could serialize for
// the requested content type.
type UnencodableError struct {
	ContentType string
	Value       string
	Err         error
}

func (e *UnencodableError) Error() string {
	msg := fmt.Sprintf("cannot encode body of type %s as %q; register an encoder with Registry.Register or map the content type with Registry.EncodeAs",
		e.Value, e.ContentType)
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *UnencodableError) Unwrap() error {
	return e.Err
}

func unencodable(contentType string, b Body, err error) error {
	return &UnencodableError{ContentType: contentType, Value: describe(b), Err: err}
}

func typeName(v any) string {
	if v == nil {
		return "<nil>"
	}
	return reflect.TypeOf(v).String()
}
