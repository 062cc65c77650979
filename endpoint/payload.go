package endpoint

import "fmt"

// toBytes converts serialized message data into a wire payload.
func toBytes(data any) ([]byte, error) {
	switch v := data.(type) {
	case []byte:
		return v, nil
	case string:
		return []byte(v), nil
	default:
		return nil, fmt.Errorf("%w: %T", ErrUnsupportedPayload, data)
	}
}
