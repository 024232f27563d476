package serial

import (
	"encoding/binary"

	"golang.org/x/text/encoding/htmlindex"
)

// byteOrder resolves an Endian value to the binary.ByteOrder the
// write_int/write_int_array/read_int family uses's
// endianness contract table (EndianDefault resolves to big-endian).
func byteOrder(e Endian) binary.ByteOrder {
	if e == EndianLittle {
		return binary.LittleEndian
	}
	return binary.BigEndian
}

// writeBytes is the Read/Write Façade's (C5) raw path: hand data to
// the adapter, translating a negative status into the mapped IOError.
// A nil buffer is rejected with ErrNullArg; an empty, non-nil buffer
// is a no-op that never reaches the adapter.
func writeBytes(adapter nativeAdapter, handle int, data []byte, interByteDelayMs int) (int, error) {
	if data == nil {
		return 0, ErrNullArg
	}
	if len(data) == 0 {
		return 0, nil
	}
	n := adapter.Write(handle, data, interByteDelayMs)
	if n < 0 {
		return 0, newIOError(n)
	}
	return n, nil
}

func writeSingleByte(adapter nativeAdapter, handle int, b byte) error {
	_, err := writeBytes(adapter, handle, []byte{b}, 0)
	return err
}

// writeString encodes s using the named charset (resolved through
// golang.org/x/text/encoding/htmlindex, the same registry
// encoding/json-adjacent tools use for IANA charset names) before
// handing the bytes to the adapter. An empty charset means UTF-8,
// i.e. no transcoding.
func writeString(adapter nativeAdapter, handle int, s, charset string, interByteDelayMs int) (int, error) {
	data := []byte(s)
	if charset != "" {
		enc, err := htmlindex.Get(charset)
		if err != nil {
			return 0, wrapErr("rw: unknown charset "+charset, err)
		}
		data, err = enc.NewEncoder().Bytes(data)
		if err != nil {
			return 0, wrapErr("rw: encode string", err)
		}
	}
	return writeBytes(adapter, handle, data, interByteDelayMs)
}

// packInt encodes v in width bytes (2 or 4) using endian's byte order.
// The 2-byte width truncates the high bits of the 4-byte encoding
// silently, per the endianness contract table: for big-endian that's
// the low two bytes of the 4-byte form, for little-endian the first
// two bytes already are the low two bytes.
func packInt(v int32, endian Endian, width int) ([]byte, error) {
	if width != 2 && width != 4 {
		return nil, ErrInvalidArg
	}
	order := byteOrder(endian)
	full := make([]byte, 4)
	order.PutUint32(full, uint32(v))
	if width == 4 {
		return full, nil
	}
	if order == binary.LittleEndian {
		return full[:2], nil
	}
	return full[2:4], nil
}

func writeInt(adapter nativeAdapter, handle int, v int32, endian Endian, width int) error {
	buf, err := packInt(v, endian, width)
	if err != nil {
		return err
	}
	_, err = writeBytes(adapter, handle, buf, 0)
	return err
}

func writeIntArray(adapter nativeAdapter, handle int, values []int32, endian Endian, width int) error {
	buf := make([]byte, 0, width*len(values))
	for _, v := range values {
		packed, err := packInt(v, endian, width)
		if err != nil {
			return err
		}
		buf = append(buf, packed...)
	}
	_, err := writeBytes(adapter, handle, buf, 0)
	return err
}

// readBytes reads up to n bytes (DefaultReadSize when n<=0), mapping
// the adapter's four-way readStatus outcome onto the façade's error
// contract: readNoData is not an error (returns nil, nil), readEOF
// maps to ErrEOF, and readError maps to ErrIO (the adapter's Read
// reports no status code, so no mapped message is attached).
func readBytes(adapter nativeAdapter, handle int, n int) ([]byte, error) {
	if n <= 0 {
		n = DefaultReadSize
	}
	buf := make([]byte, n)
	read, status := adapter.Read(handle, buf)
	switch status {
	case readData:
		return buf[:read], nil
	case readNoData:
		return nil, nil
	case readEOF:
		return nil, ErrEOF
	default:
		return nil, ErrIO
	}
}

func readSingleByte(adapter nativeAdapter, handle int) (byte, bool, error) {
	data, err := readBytes(adapter, handle, 1)
	if err != nil {
		return 0, false, err
	}
	if len(data) == 0 {
		return 0, false, nil
	}
	return data[0], true, nil
}

func readString(adapter nativeAdapter, handle int, n int, charset string) (string, error) {
	data, err := readBytes(adapter, handle, n)
	if err != nil || data == nil {
		return "", err
	}
	if charset == "" {
		return string(data), nil
	}
	enc, err := htmlindex.Get(charset)
	if err != nil {
		return "", wrapErr("rw: unknown charset "+charset, err)
	}
	decoded, err := enc.NewDecoder().Bytes(data)
	if err != nil {
		return "", wrapErr("rw: decode string", err)
	}
	return string(decoded), nil
}

func setMinDataLength(adapter nativeAdapter, handle int, n int) bool {
	return adapter.SetMinDataLength(handle, n)
}
