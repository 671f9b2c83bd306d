package types

import (
	"testing"
	"time"

	"github.com/cmonto/SMBLibrary/internal/encoding"
)

func mustTime(t *testing.T) time.Time {
	t.Helper()
	ts, err := time.Parse(time.RFC3339, "2024-05-04T03:02:01Z")
	if err != nil {
		t.Fatal(err)
	}
	return ts
}

// makeBothDirEntry builds one FileBothDirectoryInformation entry with the
// given NextEntryOffset.
func makeBothDirEntry(name string, size uint64, isDir bool, next uint32) []byte {
	nameBytes := encoding.ToUTF16LE(name)
	buf := make([]byte, 94+len(nameBytes))
	encoding.PutUint32LE(buf[0:4], next)
	encoding.PutUint64LE(buf[40:48], size)
	attrs := uint32(FileAttributeNormal)
	if isDir {
		attrs = uint32(FileAttributeDirectory)
	}
	encoding.PutUint32LE(buf[56:60], attrs)
	encoding.PutUint32LE(buf[60:64], uint32(len(nameBytes)))
	copy(buf[94:], nameBytes)
	return buf
}

// chainDirEntries links entries by filling in their NextEntryOffset fields.
func chainDirEntries(entries ...[]byte) []byte {
	var out []byte
	for i, e := range entries {
		next := uint32(0)
		if i < len(entries)-1 {
			next = uint32(len(e))
		}
		encoding.PutUint32LE(e[0:4], next)
		out = append(out, e...)
	}
	return out
}
