package mcp

import (
	"context"
	"errors"
	"io"
	"net"
	"strings"
)

// IsTransportError reports whether an MCP call failure indicates connection
// collapse (connect refused, reset, read timeout). Such failures downgrade
// the server to unhealthy; JSON-RPC protocol errors do not.
func IsTransportError(err error) bool {
	if err == nil {
		return false
	}

	// A *ProtocolError means the transport worked end to end.
	var protoErr *ProtocolError
	if errors.As(err, &protoErr) {
		return false
	}

	// Deadline exceeded on the call context counts as a read timeout.
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}

	if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
		return true
	}

	msg := strings.ToLower(err.Error())
	connectionErrors := []string{
		"connection refused",
		"connection reset",
		"broken pipe",
		"connection closed",
		"no such host",
		"client.timeout",
	}
	for _, e := range connectionErrors {
		if strings.Contains(msg, e) {
			return true
		}
	}
	return false
}
