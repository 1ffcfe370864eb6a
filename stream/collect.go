// ABOUTME: Synchronous decoding of complete bodies that carry one or many
// ABOUTME: newline-delimited records, sharing the live engine's framing rules.
package stream

import "io"

// Collect reads r to completion and decodes every record in order, using the
// same framing rules as Run. It is the non-streaming counterpart for response
// bodies that may still hold several newline-delimited records.
//
// Unlike the live engine, a record that fails to decode is fatal here: the
// caller asked for a complete result, not a sequence it can react to. The
// returned error carries the decode, framing, or transport kind.
func Collect[T any](r io.Reader, codec Codec[T], opts Options) ([]T, error) {
	opts = opts.withDefaults()
	dec := newFrameDecoder(opts.Prefix, opts.Sentinel, opts.MaxRecord)

	var out []T
	decode := func(rec record) error {
		if rec.sentinel {
			return nil
		}
		v, err := codec.Decode([]byte(rec.text))
		if err != nil {
			return &Error{Kind: ErrDecode, Op: "decode", Raw: rec.text, Err: err}
		}
		out = append(out, v)
		return nil
	}

	buf := make([]byte, 4096)
	for {
		n, err := r.Read(buf)
		if n > 0 {
			recs, ferr := dec.feed(buf[:n])
			for _, rec := range recs {
				if derr := decode(rec); derr != nil {
					return out, derr
				}
			}
			if ferr != nil {
				return out, ferr
			}
		}
		if err == io.EOF {
			if rec, ok := dec.flush(); ok {
				if derr := decode(rec); derr != nil {
					return out, derr
				}
			}
			return out, nil
		}
		if err != nil {
			return out, &Error{Kind: ErrTransport, Op: "read", Err: err}
		}
	}
}
