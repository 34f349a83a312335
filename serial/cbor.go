package serial

import (
	"fmt"

	"github.com/fxamacker/cbor/v2"
)

// cborEnc uses Core Deterministic Encoding (RFC 8949 §4.2) so the embedded document,
// and therefore the archive bytes and any digest over them, depend only on the value.
var cborEnc cbor.EncMode

var cborDec cbor.DecMode

func init() {
	var err error
	cborEnc, err = cbor.CoreDetEncOptions().EncMode()
	if err != nil {
		panic("serial: CBOR encoder initialization failed: " + err.Error())
	}
	cborDec, err = cbor.DecOptions{
		DupMapKey: cbor.DupMapKeyEnforcedAPF,
	}.DecMode()
	if err != nil {
		panic("serial: CBOR decoder initialization failed: " + err.Error())
	}
}

// CBOR returns a codec that embeds v as a length-prefixed, deterministically encoded
// CBOR document. It serves struct types that have no hand-written archive codec.
func CBOR[T any]() Codec[T] {
	return Codec[T]{
		Write: func(w *Writer, v T) {
			b, err := cborEnc.Marshal(v)
			if err != nil {
				w.Fail(fmt.Errorf("serial: cbor encode: %w", err))
				return
			}
			w.Bytes(b)
		},
		Read: func(r *Reader, v *T) {
			b := r.Bytes()
			if r.Err() != nil {
				return
			}
			if err := cborDec.Unmarshal(b, v); err != nil {
				r.Fail(malformed(fmt.Errorf("cbor: %w", err)))
			}
		},
	}
}
