package validation

import (
	"bytes"
	"fmt"
	"io"
	"net/http"
	"strings"
	"unicode/utf8"

	"github.com/username/finassist/backend/src/logger"
)

// allowedClientContentTypes lists the client-declared MIME types accepted for
// statement imports. CSVs arrive under several labels depending on the
// browser and OS.
var allowedClientContentTypes = map[string]bool{
	"text/csv":                 true,
	"application/csv":          true,
	"application/vnd.ms-excel": true,
	"text/plain":               true,
}

// ValidateClientContentType checks the Content-Type header declared by the
// client for an uploaded statement file.
func ValidateClientContentType(contentType string) error {
	if !allowedClientContentTypes[strings.ToLower(contentType)] {
		logger.L.Warn("disallowed client-declared content type", "contentType", contentType)
		return fmt.Errorf("client-declared file type %q is not allowed for CSV import", contentType)
	}
	return nil
}

// isBinaryContent reports whether a buffer contains control bytes or invalid
// UTF-8, which a text statement never should.
func isBinaryContent(buf []byte) bool {
	if bytes.IndexByte(buf, 0) != -1 {
		return true
	}
	return !utf8.Valid(buf)
}

// ValidateFileContentByMagicBytes sniffs the actual file content and verifies
// it is text-based. The read pointer is reset afterwards so the parser sees
// the whole file.
func ValidateFileContentByMagicBytes(file io.ReadSeeker) (string, error) {
	if file == nil {
		return "", fmt.Errorf("file is nil")
	}

	buffer := make([]byte, 1024)
	n, err := file.Read(buffer)
	if err != nil && err != io.EOF {
		return "", fmt.Errorf("reading file for content sniffing: %w", err)
	}
	if _, err := file.Seek(0, io.SeekStart); err != nil {
		return "", fmt.Errorf("resetting file read pointer: %w", err)
	}
	if n == 0 {
		return "", fmt.Errorf("file is empty")
	}

	if isBinaryContent(buffer[:n]) {
		logger.L.Warn("file rejected, binary content detected in text upload")
		return "application/octet-stream", fmt.Errorf("file appears to be binary, not a text CSV")
	}

	detected := http.DetectContentType(buffer[:n])
	detected = strings.ToLower(strings.Split(detected, ";")[0])

	// http.DetectContentType falls back to octet-stream for anything it does
	// not recognise, so the sniffed type gets its own allow list.
	allowedDetectedTypes := map[string]bool{
		"text/plain":      true,
		"text/csv":        true,
		"application/csv": true,
	}
	if !allowedDetectedTypes[detected] {
		logger.L.Warn("disallowed detected file content type", "detectedContentType", detected)
		return detected, fmt.Errorf("detected file content type %q is not allowed", detected)
	}

	return detected, nil
}
