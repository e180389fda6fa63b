package otlp

import (
	"bytes"
	"compress/gzip"
	"io"
	"net/http"
	"strings"

	jsoniter "github.com/json-iterator/go"
	"github.com/klauspost/compress/zstd"
)

const (
	authorizationHeader   = "authorization"
	userAgentHeader       = "user-agent"
	contentTypeHeader     = "content-type"
	contentEncodingHeader = "content-encoding"
	bearerPrefix          = "Bearer "

	protobufContentType = "application/x-protobuf"
	jsonContentType     = "application/json"
)

var (
	// Incoming OpenTelemetry HTTP Content-Types we support
	supportedContentTypes = []string{
		protobufContentType,
		jsonContentType,
	}
	// Incoming Content-Encodings we decompress. Anything else is passed
	// through untouched.
	supportedContentEncodings = []string{"gzip", "zstd"}

	// Use json-iterator for better performance
	json = jsoniter.ConfigCompatibleWithStandardLibrary
)

// List of HTTP Content Types supported for OTLP trace ingest.
func GetSupportedContentTypes() []string {
	return supportedContentTypes
}

// List of HTTP Content Encodings we know how to decompress.
func GetSupportedContentEncodings() []string {
	return supportedContentEncodings
}

// Check whether we support a given HTTP Content Type for OTLP. Senders
// commonly append charset parameters, so this is a prefix match.
func IsContentTypeSupported(contentType string) bool {
	for _, supportedType := range supportedContentTypes {
		if strings.HasPrefix(contentType, supportedType) {
			return true
		}
	}
	return false
}

// RequestInfo represents information parsed from incoming HTTP headers
type RequestInfo struct {
	Authorization   string
	UserAgent       string
	ContentType     string
	ContentEncoding string
}

// GetRequestInfoFromHttpHeaders parses relevant incoming HTTP headers
func GetRequestInfoFromHttpHeaders(header http.Header) RequestInfo {
	return RequestInfo{
		Authorization:   header.Get(authorizationHeader),
		UserAgent:       header.Get(userAgentHeader),
		ContentType:     header.Get(contentTypeHeader),
		ContentEncoding: header.Get(contentEncodingHeader),
	}
}

// ValidateTracesHeaders validates required headers for a trace OTLP request
func (ri *RequestInfo) ValidateTracesHeaders() error {
	if !IsContentTypeSupported(ri.ContentType) {
		return ErrInvalidContentType
	}
	if _, err := ri.BearerToken(); err != nil {
		return err
	}
	return nil // no error, headers passed all the validations
}

// BearerToken extracts the token from the Authorization header. A missing
// header or a non-Bearer scheme is a missing-credential error; whether the
// token itself is valid is the token validator's concern.
func (ri *RequestInfo) BearerToken() (string, error) {
	if !strings.HasPrefix(ri.Authorization, bearerPrefix) {
		return "", ErrNoToken
	}
	return ri.Authorization[len(bearerPrefix):], nil
}

// DecompressBody inflates a request body according to its declared
// content-encoding. Unrecognized encodings hand the body back untouched.
func DecompressBody(body []byte, contentEncoding string) ([]byte, error) {
	var reader io.Reader
	switch strings.ToLower(contentEncoding) {
	case "gzip":
		gzipReader, err := gzip.NewReader(bytes.NewReader(body))
		if err != nil {
			return nil, RequestDecodingError("failed to decompress gzip body: " + err.Error())
		}
		defer gzipReader.Close()
		reader = gzipReader
	case "zstd":
		zstdReader, err := zstd.NewReader(bytes.NewReader(body))
		if err != nil {
			return nil, RequestDecodingError("failed to decompress zstd body: " + err.Error())
		}
		defer zstdReader.Close()
		reader = zstdReader
	default:
		return body, nil
	}

	inflated, err := io.ReadAll(reader)
	if err != nil {
		return nil, RequestDecodingError("failed to decompress body: " + err.Error())
	}
	return inflated, nil
}
