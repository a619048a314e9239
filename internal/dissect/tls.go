package dissect

import (
	"encoding/binary"
	"errors"
)

// parseSNI extracts the Server Name Indication hostname from a TLS
// ClientHello record. It returns "" if the record isn't a ClientHello or
// carries no SNI extension.
func parseSNI(record []byte) (string, error) {
	if len(record) < 43 {
		return "", nil
	}
	if record[0] != 0x16 { // Handshake content type
		return "", nil
	}
	if record[5] != 0x01 { // ClientHello handshake type
		return "", nil
	}

	cursor := 5 + 4 // record header + handshake header
	cursor += 34    // protocol version(2) + random(32)

	if cursor >= len(record) {
		return "", nil
	}
	sessionIDLen := int(record[cursor])
	cursor += 1 + sessionIDLen

	if cursor+1 >= len(record) {
		return "", nil
	}
	cipherSuitesLen := int(binary.BigEndian.Uint16(record[cursor : cursor+2]))
	cursor += 2 + cipherSuitesLen

	if cursor >= len(record) {
		return "", nil
	}
	compMethodsLen := int(record[cursor])
	cursor += 1 + compMethodsLen

	if cursor+1 >= len(record) {
		return "", nil
	}
	extTotalLen := int(binary.BigEndian.Uint16(record[cursor : cursor+2]))
	cursor += 2

	end := cursor + extTotalLen
	if end > len(record) {
		return "", errors.New("incomplete client hello")
	}

	for cursor < end {
		if cursor+4 > end {
			break
		}
		extType := binary.BigEndian.Uint16(record[cursor : cursor+2])
		extLen := int(binary.BigEndian.Uint16(record[cursor+2 : cursor+4]))
		cursor += 4

		if extType == 0x0000 { // server_name extension
			if cursor+2 > end {
				break
			}
			sniCursor := cursor + 2
			if sniCursor+3 > end {
				break
			}
			nameType := record[sniCursor]
			nameLen := int(binary.BigEndian.Uint16(record[sniCursor+1 : sniCursor+3]))
			sniCursor += 3
			if nameType == 0 && sniCursor+nameLen <= end {
				return string(record[sniCursor : sniCursor+nameLen]), nil
			}
		}
		cursor += extLen
	}

	return "", nil
}
