package core

import (
	"encoding/json"
	"fmt"
	"io"
)

// lineTerminator matches the reference protocol: compact JSON + CRLF.
const lineTerminator = "\r\n"

// EncodeLine marshals v into a single CRLF-terminated wire line.
func EncodeLine(v any) ([]byte, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("failed to encode message: %w", err)
	}
	return append(data, lineTerminator...), nil
}

// WriteLine encodes v and writes it to w in one call.
func WriteLine(w io.Writer, v any) error {
	line, err := EncodeLine(v)
	if err != nil {
		return err
	}
	if _, err := w.Write(line); err != nil {
		return fmt.Errorf("failed to write message: %w", err)
	}
	return nil
}
