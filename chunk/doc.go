// Package chunk validates that a chunk's name is consistent with its content.
//
// Every chunk type implements the Validator capability set:
//
//   - ValidName: the name is well formed for the chunk type
//   - Hashable: validity is defined by name == digest(content)
//   - ValidChunk: the content, held in memory, is valid under the name
//   - ValidChunkFile: the same check with content read from a file in bounded blocks
//
// The chunk type is a discriminant carried by the name itself (the CID multicodec),
// see TypeOf. Default chunks are hashable; Signed chunks are named after their owner
// key and validated by signature. Validation dispatches over the closed set of types.
//
// An invalid chunk is routine traffic for a content-addressed store, so rejection is
// an ordinary false result. Only I/O failures while reading a file are returned as
// errors, so storage layers can tell "could not check" from "checked and failed".
// The Check methods expose the full reason as a *Error when diagnosing matters.
//
// Validators hold no mutable state and are safe for concurrent use.
package chunk
