package actionledger

import (
	"encoding/binary"
	"fmt"
	"io"
)

// fileEntry is the on-disk representation of a single encrypted ledger
// entry: hash_chain and nonce are fixed-size, ciphertext is variable
// length.
type fileEntry struct {
	HashChain  [32]byte
	Nonce      [12]byte
	Ciphertext []byte
}

// encodeFileEntry serializes e as:
//
//	hash_chain[32]byte, nonce[12]byte, uint32 LE ciphertext length, ciphertext
//
// and returns that buffer prefixed with its own uint32 LE total length, so
// the framing on disk is a single self-describing record a reader can
// cursor-walk without looking ahead.
func encodeFileEntry(e fileEntry) []byte {
	body := make([]byte, 0, 32+12+4+len(e.Ciphertext))
	body = append(body, e.HashChain[:]...)
	body = append(body, e.Nonce[:]...)

	var ctLen [4]byte
	binary.LittleEndian.PutUint32(ctLen[:], uint32(len(e.Ciphertext)))
	body = append(body, ctLen[:]...)
	body = append(body, e.Ciphertext...)

	framed := make([]byte, 4+len(body))
	binary.LittleEndian.PutUint32(framed[:4], uint32(len(body)))
	copy(framed[4:], body)

	return framed
}

// readFileEntry reads one length-prefixed fileEntry from r. It returns
// io.EOF only when r is exhausted exactly at a record boundary; any other
// short read is reported as a truncation error, since a length prefix with
// no matching body means the file was cut mid-write.
func readFileEntry(r io.Reader) (fileEntry, error) {
	var lenBuf [4]byte

	if _, err := io.ReadFull(r, lenBuf[:]); err != nil {
		if err == io.ErrUnexpectedEOF {
			return fileEntry{}, fmt.Errorf("ledger file truncated or corrupted")
		}

		return fileEntry{}, err
	}

	bodyLen := binary.LittleEndian.Uint32(lenBuf[:])
	if bodyLen < 32+12+4 {
		return fileEntry{}, fmt.Errorf("ledger file truncated or corrupted")
	}

	body := make([]byte, bodyLen)
	if _, err := io.ReadFull(r, body); err != nil {
		return fileEntry{}, fmt.Errorf("ledger file truncated or corrupted")
	}

	var e fileEntry
	copy(e.HashChain[:], body[0:32])
	copy(e.Nonce[:], body[32:44])

	ctLen := binary.LittleEndian.Uint32(body[44:48])
	if int(ctLen) != len(body)-48 {
		return fileEntry{}, fmt.Errorf("ledger file truncated or corrupted")
	}

	e.Ciphertext = append([]byte(nil), body[48:]...)

	return e, nil
}
