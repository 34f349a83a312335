package grpccas

import (
	"xdao.co/chunkstore/chunk"
	"xdao.co/chunkstore/serial"
)

// EncodePut frames a Put request body.
func EncodePut(name chunk.Name, content []byte) ([]byte, error) {
	return serial.Serialise(
		serial.Val(serial.String, string(name)),
		serial.Val(serial.Bytes, content),
	)
}

// DecodePut parses a Put request body.
func DecodePut(b []byte) (chunk.Name, []byte, error) {
	var (
		name    string
		content []byte
	)
	if err := serial.ParseInto(b, serial.Into(serial.String, &name), serial.Into(serial.Bytes, &content)); err != nil {
		return "", nil, err
	}
	return chunk.Name(name), content, nil
}
