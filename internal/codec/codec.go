package codec

import "io"

type Encoder interface {
	Encode(v any) error
}

type Decoder interface {
	Decode(v any) error
}

type Marshaler interface {
	Marshal(v any) ([]byte, error)
	NewEncoder(w io.Writer) Encoder
}

type Unmarshaler interface {
	Unmarshal(data []byte, dst any) error
	NewDecoder(r io.Reader) Decoder
}

// Codec is implemented by wire formats that both encode and decode,
// such as models.CborCodec.
type Codec interface {
	Marshaler
	Unmarshaler
}

// Convert re-encodes src with c and decodes the bytes into dst.
// It is how loosely typed values coming out of the router are turned
// into the caller's types.
func Convert(c Codec, src, dst any) error {
	data, err := c.Marshal(src)
	if err != nil {
		return err
	}
	return c.Unmarshal(data, dst)
}
