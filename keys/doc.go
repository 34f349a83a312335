// Package keys provides owner keys and signatures for signed chunks.
//
// Signed chunks are not validated by digest. Their name identifies the owner key and
// their content carries a payload signed by that key; see chunk.Signed.
//
// Stable:
//   - Signer, Verify and the algorithm constants.
//
// Experimental:
//   - Filesystem-backed key storage (KeyStore). It is a local-first utility and may
//     change in MINOR releases.
package keys
