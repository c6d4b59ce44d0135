package source

// decode.go wraps file readers with the text decoding used for CSV sources.
//
//   - bomReader: removes a leading UTF-8 BOM (0xEF 0xBB 0xBF) left by Excel
//   - countingReader: tracks bytes consumed for the run report
//   - decoderFor: validates UTF-8 or decodes ISO-8859-1 to UTF-8
//
// The UTF-8 path never repairs input. An invalid byte sequence surfaces as
// encoding.ErrInvalidUTF8 so the caller can restart with the fallback.

import (
	"bufio"
	"bytes"
	"io"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/transform"
)

// Encoding names a text encoding a source was decoded with.
type Encoding string

const (
	EncodingUTF8   Encoding = "utf-8"
	EncodingLatin1 Encoding = "iso-8859-1"
	EncodingXLSX   Encoding = "xlsx"
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// bomReader skips the UTF-8 BOM if the stream starts with one.
type bomReader struct {
	r       *bufio.Reader
	checked bool
}

func newBOMReader(r io.Reader) *bomReader {
	return &bomReader{r: bufio.NewReader(r)}
}

func (b *bomReader) Read(p []byte) (int, error) {
	if !b.checked {
		b.checked = true
		// Peek returns fewer bytes plus an error on short input; that is not a BOM.
		if head, err := b.r.Peek(len(utf8BOM)); err == nil && bytes.Equal(head, utf8BOM) {
			if _, err := b.r.Discard(len(utf8BOM)); err != nil {
				return 0, err
			}
		}
	}
	return b.r.Read(p)
}

// countingReader tracks the number of bytes read from the file.
type countingReader struct {
	r io.Reader
	n int64
}

func (c *countingReader) Read(p []byte) (int, error) {
	n, err := c.r.Read(p)
	c.n += int64(n)
	return n, err
}

// decoderFor wraps r so that reads yield UTF-8 text decoded from enc.
//
// For EncodingUTF8 the bytes pass through unchanged after validation; the
// first invalid sequence fails the read with encoding.ErrInvalidUTF8.
// EncodingLatin1 maps every byte to a rune and cannot fail.
func decoderFor(r io.Reader, enc Encoding) io.Reader {
	r = newBOMReader(r)
	switch enc {
	case EncodingLatin1:
		return charmap.ISO8859_1.NewDecoder().Reader(r)
	default:
		return transform.NewReader(r, encoding.UTF8Validator)
	}
}
