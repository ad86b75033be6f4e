package recorder

import (
	"bufio"
	"encoding/binary"
	"hash/crc32"
	"io"
)

type ReaderOptions struct {
	DisableChecksum bool
	// MaxPayloadSize rejects larger records, 0 means no limit.
	MaxPayloadSize int
}

// Reader walks the records of one segment in order.
type Reader struct {
	src  *bufio.Reader
	opts ReaderOptions
	// buf holds header, payload and checksum of the last record.
	buf []byte
}

func NewReader(r io.Reader, opts ReaderOptions) *Reader {
	return &Reader{
		src:  bufio.NewReader(r),
		opts: opts,
		buf:  make([]byte, recordHeaderSize, recordHeaderSize+512),
	}
}

// Next returns io.EOF at a clean record boundary and io.ErrUnexpectedEOF on
// a truncated record. The payload is reused by the following call.
func (r *Reader) Next() (Header, []byte, error) {
	head := r.buf[:recordHeaderSize]
	if n, err := io.ReadFull(r.src, head); err != nil {
		if n == 0 && err == io.EOF {
			return Header{}, nil, io.EOF
		}
		return Header{}, nil, io.ErrUnexpectedEOF
	}

	h, size, err := decodeRecordHeader(head)
	if err != nil {
		return h, nil, err
	}
	if uint64(size) > maxPayloadLen || (r.opts.MaxPayloadSize > 0 && int(size) > r.opts.MaxPayloadSize) {
		return h, nil, ErrPayloadTooLarge
	}

	total := recordHeaderSize + int(size) + recordChecksumSize
	if cap(r.buf) < total {
		grown := make([]byte, total)
		copy(grown, head)
		r.buf = grown
	}
	r.buf = r.buf[:total]
	if _, err := io.ReadFull(r.src, r.buf[recordHeaderSize:]); err != nil {
		return h, nil, io.ErrUnexpectedEOF
	}

	body := r.buf[:total-recordChecksumSize]
	if !r.opts.DisableChecksum {
		want := binary.LittleEndian.Uint32(r.buf[total-recordChecksumSize:])
		if crc32.Checksum(body, crcTable) != want {
			return h, nil, ErrChecksumMismatch
		}
	}
	return h, body[recordHeaderSize:], nil
}
