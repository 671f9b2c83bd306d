package netbios

import "strings"

// NetBIOS name suffixes (16th byte of the padded name)
const (
	SuffixWorkstationService byte = 0x00
	SuffixFileServerService  byte = 0x20
)

// CalledNameWildcard is accepted by servers regardless of their actual
// NetBIOS machine name.
const CalledNameWildcard = "*SMBSERVER"

// EncodeName applies RFC 1001 first-level encoding: the name is uppercased,
// space-padded to 15 bytes, the suffix appended, and each byte split into two
// nibbles offset from 'A'. The result is length-prefixed and null-terminated
// as a second-level encoded name field.
func EncodeName(name string, suffix byte) []byte {
	padded := strings.ToUpper(name)
	if len(padded) > 15 {
		padded = padded[:15]
	}
	padded += strings.Repeat(" ", 15-len(padded))

	buf := make([]byte, 0, 34)
	buf = append(buf, 32)
	for i := 0; i < 15; i++ {
		buf = append(buf, 'A'+padded[i]>>4, 'A'+padded[i]&0x0F)
	}
	buf = append(buf, 'A'+suffix>>4, 'A'+suffix&0x0F)
	return append(buf, 0)
}

// DecodeName reverses EncodeName, returning the trimmed name and suffix.
func DecodeName(buf []byte) (string, byte, bool) {
	if len(buf) < 34 || buf[0] != 32 {
		return "", 0, false
	}
	raw := make([]byte, 16)
	for i := 0; i < 16; i++ {
		hi := buf[1+i*2] - 'A'
		lo := buf[2+i*2] - 'A'
		raw[i] = hi<<4 | lo
	}
	return strings.TrimRight(string(raw[:15]), " "), raw[15], true
}
