// Package ingest validates a user-selected reference document and encodes it
// into the single attachment slot of a session.
package ingest

import (
	"bytes"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"strings"

	"grantdraft/internal/proposal"
)

// MaxFileSize is the largest accepted payload, in bytes.
const MaxFileSize int64 = 20 * 1024 * 1024

const (
	NoticeUnsupportedType = "PDF 파일만 업로드 가능합니다."
	NoticeTooLarge        = "파일 크기는 20MB 이하여야 합니다."
	NoticeMalformed       = "파일을 읽을 수 없습니다. 다시 선택해주세요."
)

var (
	ErrUnsupportedType = errors.New("ingest: unsupported media type")
	ErrTooLarge        = errors.New("ingest: file exceeds size limit")
	ErrMalformed       = errors.New("ingest: malformed file payload")
)

// ValidationError rejects an input without touching any state. Notice is the
// message shown to the user.
type ValidationError struct {
	Err    error
	Notice string
}

func (e *ValidationError) Error() string { return e.Err.Error() }
func (e *ValidationError) Unwrap() error { return e.Err }

func reject(err error, notice string) error {
	return &ValidationError{Err: err, Notice: notice}
}

// Check applies the type and size rules using the reported metadata only.
func Check(mimeType string, size int64) error {
	if mimeType != proposal.PDFMimeType {
		return reject(fmt.Errorf("%w: %q", ErrUnsupportedType, mimeType), NoticeUnsupportedType)
	}
	if size > MaxFileSize {
		return reject(fmt.Errorf("%w: %d bytes", ErrTooLarge, size), NoticeTooLarge)
	}
	return nil
}

// Ingest validates the reported metadata, reads the content and returns the
// encoded attachment. A reader that yields more than MaxFileSize bytes is
// rejected even if the reported size was within bounds. A negative size
// means the length is not known up front.
func Ingest(name, mimeType string, size int64, r io.Reader) (*proposal.AttachedFile, error) {
	if err := Check(mimeType, size); err != nil {
		return nil, err
	}
	if r == nil {
		return nil, reject(fmt.Errorf("%w: nil reader", ErrMalformed), NoticeMalformed)
	}
	var buf bytes.Buffer
	n, err := io.Copy(&buf, io.LimitReader(r, MaxFileSize+1))
	if err != nil {
		return nil, reject(fmt.Errorf("%w: %v", ErrMalformed, err), NoticeMalformed)
	}
	if n > MaxFileSize {
		return nil, reject(fmt.Errorf("%w: more than %d bytes read", ErrTooLarge, MaxFileSize), NoticeTooLarge)
	}
	return &proposal.AttachedFile{
		Name:     name,
		MimeType: mimeType,
		Data:     base64.StdEncoding.EncodeToString(buf.Bytes()),
	}, nil
}

// FromDataURL accepts the "data:<mime>;base64,<payload>" form a browser
// FileReader produces.
func FromDataURL(name, dataURL string) (*proposal.AttachedFile, error) {
	mimeType, payload, ok := splitDataURL(dataURL)
	if !ok {
		return nil, reject(fmt.Errorf("%w: not a base64 data url", ErrMalformed), NoticeMalformed)
	}
	if mimeType != proposal.PDFMimeType {
		return nil, reject(fmt.Errorf("%w: %q", ErrUnsupportedType, mimeType), NoticeUnsupportedType)
	}
	// Cheap bound before decoding: 4 base64 chars carry 3 bytes.
	if int64(len(payload))/4*3 > MaxFileSize+3 {
		return nil, reject(fmt.Errorf("%w: encoded payload too long", ErrTooLarge), NoticeTooLarge)
	}
	raw, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return nil, reject(fmt.Errorf("%w: %v", ErrMalformed, err), NoticeMalformed)
	}
	if int64(len(raw)) > MaxFileSize {
		return nil, reject(fmt.Errorf("%w: %d bytes", ErrTooLarge, len(raw)), NoticeTooLarge)
	}
	return &proposal.AttachedFile{
		Name:     name,
		MimeType: mimeType,
		Data:     payload,
	}, nil
}

// StripDataURIPrefix drops everything up to and including the first comma of
// a data URI. Plain base64 is returned unchanged.
func StripDataURIPrefix(s string) string {
	if !strings.HasPrefix(s, "data:") {
		return s
	}
	if i := strings.IndexByte(s, ','); i >= 0 {
		return s[i+1:]
	}
	return s
}

// Decode returns the original bytes of an attachment.
func Decode(f *proposal.AttachedFile) ([]byte, error) {
	if f == nil {
		return nil, nil
	}
	raw, err := base64.StdEncoding.DecodeString(f.Data)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	return raw, nil
}

// DecodedSize reports the payload size without decoding it.
func DecodedSize(f *proposal.AttachedFile) int64 {
	if f == nil {
		return 0
	}
	n := base64.StdEncoding.DecodedLen(len(f.Data))
	switch {
	case strings.HasSuffix(f.Data, "=="):
		n -= 2
	case strings.HasSuffix(f.Data, "="):
		n--
	}
	return int64(n)
}

func splitDataURL(s string) (mimeType, payload string, ok bool) {
	payload = StripDataURIPrefix(s)
	if !strings.HasPrefix(s, "data:") || len(payload) == len(s) {
		return "", "", false
	}
	header := s[len("data:") : len(s)-len(payload)-1]
	mimeType, params, _ := strings.Cut(header, ";")
	if !strings.HasSuffix(strings.ToLower(strings.TrimSpace(params)), "base64") {
		return "", "", false
	}
	return strings.TrimSpace(mimeType), payload, true
}
