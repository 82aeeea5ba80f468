package ingest

import (
	"bytes"
	"encoding/base64"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"grantdraft/internal/proposal"
)

func pdfBytes(n int) []byte {
	b := bytes.Repeat([]byte{0x25}, n)
	copy(b, "%PDF-1.4\n")
	return b
}

func TestIngestAcceptsExactlyMaxSize(t *testing.T) {
	content := pdfBytes(int(MaxFileSize))
	f, err := Ingest("공고문.pdf", proposal.PDFMimeType, MaxFileSize, bytes.NewReader(content))
	require.NoError(t, err)
	assert.Equal(t, "공고문.pdf", f.Name)
	assert.Equal(t, proposal.PDFMimeType, f.MimeType)
	assert.Equal(t, MaxFileSize, DecodedSize(f))
}

func TestIngestRejectsOneByteOver(t *testing.T) {
	content := pdfBytes(int(MaxFileSize) + 1)
	_, err := Ingest("big.pdf", proposal.PDFMimeType, MaxFileSize+1, bytes.NewReader(content))
	require.ErrorIs(t, err, ErrTooLarge)

	var verr *ValidationError
	require.True(t, errors.As(err, &verr))
	assert.Equal(t, NoticeTooLarge, verr.Notice)
}

func TestIngestRejectsUnderreportedSize(t *testing.T) {
	content := pdfBytes(int(MaxFileSize) + 1)
	_, err := Ingest("liar.pdf", proposal.PDFMimeType, 10, bytes.NewReader(content))
	require.ErrorIs(t, err, ErrTooLarge)
}

func TestIngestRejectsOtherTypesRegardlessOfSize(t *testing.T) {
	for _, mime := range []string{"image/png", "application/x-pdf", "text/plain", "", "application/pdf; charset=binary"} {
		_, err := Ingest("x", mime, 1, strings.NewReader("x"))
		require.ErrorIs(t, err, ErrUnsupportedType, "mime %q", mime)

		var verr *ValidationError
		require.True(t, errors.As(err, &verr))
		assert.Equal(t, NoticeUnsupportedType, verr.Notice)
	}
}

func TestIngestRoundTrip(t *testing.T) {
	content := []byte("%PDF-1.7\n\x00\x01\x02\xff binary tail")
	f, err := Ingest("a.pdf", proposal.PDFMimeType, int64(len(content)), bytes.NewReader(content))
	require.NoError(t, err)

	got, err := Decode(f)
	require.NoError(t, err)
	assert.Equal(t, content, got)
	assert.Equal(t, int64(len(content)), DecodedSize(f))
	assert.False(t, strings.HasPrefix(f.Data, "data:"))
}

func TestIngestNilReader(t *testing.T) {
	_, err := Ingest("a.pdf", proposal.PDFMimeType, 1, nil)
	require.ErrorIs(t, err, ErrMalformed)
}

func TestFromDataURL(t *testing.T) {
	content := []byte("%PDF-1.4 hello")
	enc := base64.StdEncoding.EncodeToString(content)

	f, err := FromDataURL("a.pdf", "data:application/pdf;base64,"+enc)
	require.NoError(t, err)
	assert.Equal(t, enc, f.Data)
	assert.Equal(t, proposal.PDFMimeType, f.MimeType)

	got, err := Decode(f)
	require.NoError(t, err)
	assert.Equal(t, content, got)
}

func TestFromDataURLRejections(t *testing.T) {
	enc := base64.StdEncoding.EncodeToString([]byte("x"))

	_, err := FromDataURL("a.png", "data:image/png;base64,"+enc)
	assert.ErrorIs(t, err, ErrUnsupportedType)

	_, err = FromDataURL("a.pdf", enc)
	assert.ErrorIs(t, err, ErrMalformed)

	_, err = FromDataURL("a.pdf", "data:application/pdf;base64,@@not base64@@")
	assert.ErrorIs(t, err, ErrMalformed)

	_, err = FromDataURL("a.pdf", "data:application/pdf,plain")
	assert.ErrorIs(t, err, ErrMalformed)

	_, err = FromDataURL("a.pdf", "data:application/pdf;base64")
	assert.ErrorIs(t, err, ErrMalformed)

	big := base64.StdEncoding.EncodeToString(pdfBytes(int(MaxFileSize) + 1))
	_, err = FromDataURL("a.pdf", "data:application/pdf;base64,"+big)
	assert.ErrorIs(t, err, ErrTooLarge)
}

func TestStripDataURIPrefix(t *testing.T) {
	assert.Equal(t, "QUJD", StripDataURIPrefix("data:application/pdf;base64,QUJD"))
	assert.Equal(t, "QUJD", StripDataURIPrefix("QUJD"))
	assert.Equal(t, "data:broken", StripDataURIPrefix("data:broken"))
}

func TestDecodeNil(t *testing.T) {
	got, err := Decode(nil)
	require.NoError(t, err)
	assert.Nil(t, got)
	assert.Zero(t, DecodedSize(nil))
}
