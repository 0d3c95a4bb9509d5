package ticket

import "time"

// Codec encodes and decodes one ticket variant with a fixed secret and TTL.
// A Codec is immutable and safe for concurrent use.
type Codec[T Variant] struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// Option configures a Codec.
type Option func(*options)

type options struct {
	now func() time.Time
}

// WithClock overrides the time source. Intended for tests.
func WithClock(now func() time.Time) Option {
	return func(o *options) {
		if now != nil {
			o.now = now
		}
	}
}

// NewCodec creates a codec for variant T.
func NewCodec[T Variant](secret []byte, ttl time.Duration, opts ...Option) Codec[T] {
	o := options{now: time.Now}
	for _, opt := range opts {
		opt(&o)
	}

	key := make([]byte, len(secret))
	copy(key, secret)

	return Codec[T]{secret: key, ttl: ttl, now: o.now}
}

// TTL returns the lifetime of tickets minted by this codec.
func (c Codec[T]) TTL() time.Duration { return c.ttl }

// Encode mints a ticket for payload.
func (c Codec[T]) Encode(payload T) (string, error) {
	tok, _, err := encodeAt(payload, c.secret, c.ttl, c.clock())
	return tok, err
}

// EncodeWithHeader mints a ticket and returns its envelope fields.
func (c Codec[T]) EncodeWithHeader(payload T) (string, Header, error) {
	return encodeAt(payload, c.secret, c.ttl, c.clock())
}

// Decode verifies token and returns its payload with the envelope fields.
func (c Codec[T]) Decode(token string) (T, Header, error) {
	return decodeAt[T](token, c.secret, c.clock())
}

func (c Codec[T]) clock() time.Time {
	if c.now == nil {
		return time.Now()
	}
	return c.now()
}
