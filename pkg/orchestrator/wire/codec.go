package wire

import (
	"math"

	"google.golang.org/protobuf/encoding/protowire"
)

func appendString(b []byte, num protowire.Number, s string) []byte {
	if s == "" {
		return b
	}
	b = protowire.AppendTag(b, num, protowire.BytesType)
	return protowire.AppendString(b, s)
}

func appendBytes(b []byte, num protowire.Number, v []byte) []byte {
	if len(v) == 0 {
		return b
	}
	b = protowire.AppendTag(b, num, protowire.BytesType)
	return protowire.AppendBytes(b, v)
}

func appendVarint(b []byte, num protowire.Number, v uint64) []byte {
	if v == 0 {
		return b
	}
	b = protowire.AppendTag(b, num, protowire.VarintType)
	return protowire.AppendVarint(b, v)
}

func doubleBits(f float64) uint64 { return math.Float64bits(f) }
func bitsToDouble(b uint64) float64 { return math.Float64frombits(b) }

// forEachField walks every top-level field in data, calling fn with its
// field number, wire type, and raw content bytes (the Bytes/Varint/Fixed64
// payload, not including the tag). Unknown field numbers are silently
// skipped, matching protobuf's forward-compatibility contract.
func forEachField(data []byte, fn func(num protowire.Number, typ protowire.Type, content []byte) error) error {
	for len(data) > 0 {
		num, typ, n := protowire.ConsumeTag(data)
		if n < 0 {
			return protowire.ParseError(n)
		}
		data = data[n:]

		var content []byte
		switch typ {
		case protowire.VarintType:
			_, n := protowire.ConsumeVarint(data)
			if n < 0 {
				return protowire.ParseError(n)
			}
			content = data[:n]
			data = data[n:]
		case protowire.Fixed64Type:
			_, n := protowire.ConsumeFixed64(data)
			if n < 0 {
				return protowire.ParseError(n)
			}
			content = data[:n]
			data = data[n:]
		case protowire.Fixed32Type:
			_, n := protowire.ConsumeFixed32(data)
			if n < 0 {
				return protowire.ParseError(n)
			}
			content = data[:n]
			data = data[n:]
		case protowire.BytesType:
			_, n := protowire.ConsumeBytes(data)
			if n < 0 {
				return protowire.ParseError(n)
			}
			content = data[:n]
			data = data[n:]
		default:
			n := protowire.ConsumeFieldValue(num, typ, data)
			if n < 0 {
				return protowire.ParseError(n)
			}
			content = data[:n]
			data = data[n:]
		}

		if err := fn(num, typ, content); err != nil {
			return err
		}
	}
	return nil
}

func bytesToString(typ protowire.Type, content []byte) (string, error) {
	if typ != protowire.BytesType {
		return "", errUnexpectedType(typ)
	}
	s, n := protowire.ConsumeString(content)
	if n < 0 {
		return "", protowire.ParseError(n)
	}
	return s, nil
}

func bytesToBytes(typ protowire.Type, content []byte) ([]byte, error) {
	if typ != protowire.BytesType {
		return nil, errUnexpectedType(typ)
	}
	b, n := protowire.ConsumeBytes(content)
	if n < 0 {
		return nil, protowire.ParseError(n)
	}
	out := make([]byte, len(b))
	copy(out, b)
	return out, nil
}

func bytesToVarint(typ protowire.Type, content []byte) (uint64, error) {
	if typ != protowire.VarintType {
		return 0, errUnexpectedType(typ)
	}
	v, n := protowire.ConsumeVarint(content)
	if n < 0 {
		return 0, protowire.ParseError(n)
	}
	return v, nil
}

type unexpectedTypeError struct{ typ protowire.Type }

func (e unexpectedTypeError) Error() string {
	return "wire: unexpected field wire type"
}

func errUnexpectedType(typ protowire.Type) error {
	return unexpectedTypeError{typ: typ}
}
