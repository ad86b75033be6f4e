package recorder

import (
	"bytes"
	"encoding/binary"
	"hash/crc32"

	"quoteflow/internal/model/enum"

	"github.com/yanun0323/errors"
)

const (
	recordVersion      uint16 = 1
	recordHeaderSize          = 36
	recordChecksumSize        = 4
)

// Encoding describes how a record payload was serialized.
type Encoding uint16

const (
	EncodingRaw Encoding = iota + 1
	EncodingJSON
)

// Header precedes every payload in a segment.
type Header struct {
	Tag      enum.SourceTag
	Encoding Encoding
	Seq      uint64
	// RecvTime in unix nanoseconds.
	RecvTime int64
}

var (
	recordMagic = [4]byte{'Q', 'F', 'R', '1'}
	crcTable    = crc32.MakeTable(crc32.Castagnoli)
)

var (
	ErrInvalidMagic            = errors.New("recorder invalid magic")
	ErrUnsupportedRecordVer    = errors.New("recorder unsupported record version")
	ErrInvalidRecordHeaderSize = errors.New("recorder invalid header size")
	ErrChecksumMismatch        = errors.New("recorder checksum mismatch")
)

func encodeHeader(dst []byte, header Header, payloadLen int) {
	_ = dst[recordHeaderSize-1]
	copy(dst[0:4], recordMagic[:])
	binary.LittleEndian.PutUint16(dst[4:6], recordVersion)
	binary.LittleEndian.PutUint16(dst[6:8], uint16(recordHeaderSize))
	binary.LittleEndian.PutUint16(dst[8:10], uint16(header.Tag))
	binary.LittleEndian.PutUint16(dst[10:12], uint16(header.Encoding))
	binary.LittleEndian.PutUint32(dst[12:16], uint32(payloadLen))
	binary.LittleEndian.PutUint64(dst[16:24], header.Seq)
	binary.LittleEndian.PutUint64(dst[24:32], uint64(header.RecvTime))
	binary.LittleEndian.PutUint32(dst[32:36], 0)
}

// appendRecord appends header, payload and the trailing crc32c of both.
func appendRecord(dst []byte, h Header, payload []byte) []byte {
	start := len(dst)
	dst = append(dst, make([]byte, recordHeaderSize)...)
	encodeHeader(dst[start:], h, len(payload))
	dst = append(dst, payload...)
	return binary.LittleEndian.AppendUint32(dst, crc32.Checksum(dst[start:], crcTable))
}

func decodeRecordHeader(src []byte) (Header, uint32, error) {
	if len(src) < recordHeaderSize {
		return Header{}, 0, ErrInvalidRecordHeaderSize
	}
	if !bytes.Equal(src[0:4], recordMagic[:]) {
		return Header{}, 0, ErrInvalidMagic
	}
	if ver := binary.LittleEndian.Uint16(src[4:6]); ver != recordVersion {
		return Header{}, 0, ErrUnsupportedRecordVer
	}
	if headerSize := binary.LittleEndian.Uint16(src[6:8]); headerSize != recordHeaderSize {
		return Header{}, 0, ErrInvalidRecordHeaderSize
	}
	h := Header{
		Tag:      enum.SourceTag(binary.LittleEndian.Uint16(src[8:10])),
		Encoding: Encoding(binary.LittleEndian.Uint16(src[10:12])),
		Seq:      binary.LittleEndian.Uint64(src[16:24]),
		RecvTime: int64(binary.LittleEndian.Uint64(src[24:32])),
	}
	return h, binary.LittleEndian.Uint32(src[12:16]), nil
}
