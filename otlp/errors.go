package otlp

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// ErrorKind classifies the failure classes the capture pipeline produces.
type ErrorKind int

const (
	KindEmptyPayload ErrorKind = iota
	KindRequestDecoding
	KindRequestParsing
	KindNoToken
	KindNonRetryableSink
)

// CaptureError is a typed pipeline failure. It carries both transport
// mappings so the same value can serve HTTP handlers and a future gRPC
// export surface.
type CaptureError struct {
	Kind           ErrorKind
	Message        string
	HTTPStatusCode int
	GRPCStatusCode codes.Code
}

var (
	ErrEmptyPayload       = CaptureError{Kind: KindEmptyPayload, Message: "empty request payload", HTTPStatusCode: http.StatusBadRequest, GRPCStatusCode: codes.InvalidArgument}
	ErrInvalidContentType = RequestDecodingError("Content-Type must be one of: " + strings.Join(GetSupportedContentTypes(), ", "))
	ErrNoToken            = CaptureError{Kind: KindNoToken, Message: "missing or malformed Authorization bearer token", HTTPStatusCode: http.StatusUnauthorized, GRPCStatusCode: codes.Unauthenticated}
	ErrNonRetryableSink   = CaptureError{Kind: KindNonRetryableSink, Message: "failed to serialize event payload", HTTPStatusCode: http.StatusInternalServerError, GRPCStatusCode: codes.Internal}
)

// RequestDecodingError covers unsupported or malformed request envelopes:
// bad content-type, bad content-encoding, failed decompression.
func RequestDecodingError(message string) CaptureError {
	return CaptureError{
		Kind:           KindRequestDecoding,
		Message:        message,
		HTTPStatusCode: http.StatusBadRequest,
		GRPCStatusCode: codes.InvalidArgument,
	}
}

// RequestParsingError covers protobuf or JSON schema violations in an
// otherwise well-formed request body.
func RequestParsingError(message string) CaptureError {
	return CaptureError{
		Kind:           KindRequestParsing,
		Message:        message,
		HTTPStatusCode: http.StatusBadRequest,
		GRPCStatusCode: codes.InvalidArgument,
	}
}

func (e CaptureError) Error() string {
	return e.Message
}

// Is makes errors.Is match on kind, so dynamic-message errors compare
// equal to their sentinel.
func (e CaptureError) Is(target error) bool {
	var other CaptureError
	if errors.As(target, &other) {
		return e.Kind == other.Kind
	}
	return false
}

func AsJson(e error) string {
	return fmt.Sprintf(`{"error":"%s"}`, e.Error())
}

func AsGRPCError(e error) error {
	var captureErr CaptureError
	if errors.As(e, &captureErr) {
		return status.Error(captureErr.GRPCStatusCode, e.Error())
	}
	return status.Error(codes.Internal, "")
}
