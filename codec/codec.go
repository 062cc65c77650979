// Package codec provides serializer/deserializer pairs for transport providers.
package codec

import (
	"fmt"
	"strings"

	"github.com/goccy/go-json"

	terrors "github.com/vinayprograms/transportkit/errors"
	"github.com/vinayprograms/transportkit/transport"
)

// Names accepted by Lookup.
const (
	NameIdentity = "identity"
	NameJSON     = "json"
)

// JSON returns a codec that marshals outbound messages to []byte and
// decodes inbound []byte or string data into generic values (maps, slices,
// float64, string, bool, nil).
func JSON() (transport.Serializer, transport.Deserializer) {
	return marshal, func(data any) (any, error) {
		var v any
		if err := unmarshal(data, &v); err != nil {
			return nil, err
		}
		return v, nil
	}
}

// JSONFor is JSON decoding into values of type T.
func JSONFor[T any]() (transport.Serializer, transport.Deserializer) {
	return marshal, func(data any) (any, error) {
		var v T
		if err := unmarshal(data, &v); err != nil {
			return nil, err
		}
		return v, nil
	}
}

// Lookup returns the codec registered under name. The empty name is identity.
func Lookup(name string) (transport.Serializer, transport.Deserializer, error) {
	switch strings.ToLower(name) {
	case "", NameIdentity:
		return transport.Identity, transport.Identity, nil
	case NameJSON:
		ser, de := JSON()
		return ser, de, nil
	default:
		return nil, nil, terrors.New(terrors.ErrCodeUnsupported, fmt.Sprintf("unknown codec %q", name))
	}
}

func marshal(msg any) (any, error) {
	b, err := json.Marshal(msg)
	if err != nil {
		return nil, terrors.WrapWithCode(err, terrors.ErrCodeSerialization, "marshal json")
	}
	return b, nil
}

func unmarshal(data any, v any) error {
	var b []byte
	switch d := data.(type) {
	case []byte:
		b = d
	case string:
		b = []byte(d)
	default:
		return terrors.New(terrors.ErrCodeSerialization, fmt.Sprintf("cannot decode json from %T", data))
	}
	if err := json.Unmarshal(b, v); err != nil {
		return terrors.WrapWithCode(err, terrors.ErrCodeSerialization, "unmarshal json")
	}
	return nil
}
