package srvsvc

import (
	"testing"

	"github.com/cmonto/SMBLibrary/internal/encoding"
)

func appendConformantString(stub []byte, s string) []byte {
	chars := encoding.ToUTF16LE(s)
	count := uint32(len(chars)/2 + 1)
	stub = encoding.AppendUint32LE(stub, count)
	stub = encoding.AppendUint32LE(stub, 0)
	stub = encoding.AppendUint32LE(stub, count)
	stub = append(stub, chars...)
	stub = append(stub, 0, 0)
	for len(stub)%4 != 0 {
		stub = append(stub, 0)
	}
	return stub
}

func buildStub(shares []ShareInfo) []byte {
	var stub []byte
	stub = encoding.AppendUint32LE(stub, 1)
	stub = encoding.AppendUint32LE(stub, 0x00020000)
	stub = encoding.AppendUint32LE(stub, uint32(len(shares)))
	stub = encoding.AppendUint32LE(stub, 0x00020004)
	stub = encoding.AppendUint32LE(stub, uint32(len(shares)))
	for i, s := range shares {
		stub = encoding.AppendUint32LE(stub, uint32(0x00020008+i*8))
		stub = encoding.AppendUint32LE(stub, uint32(s.Type))
		stub = encoding.AppendUint32LE(stub, uint32(0x0002000C+i*8))
	}
	for _, s := range shares {
		stub = appendConformantString(stub, s.Name)
		stub = appendConformantString(stub, s.Remark)
	}
	return stub
}

func TestParseNetShareEnumResponse(t *testing.T) {
	want := []ShareInfo{
		{Name: "C$", Type: ShareTypeSpecial, Remark: "Default share"},
		{Name: "IPC$", Type: ShareTypeSpecial | ShareTypeIPC, Remark: "Remote IPC"},
		{Name: "Public", Type: ShareTypeDiskDrive, Remark: ""},
	}
	shares, ok := parseNetShareEnumResponse(buildStub(want))
	if !ok {
		t.Fatal("parse failed")
	}
	if len(shares) != len(want) {
		t.Fatalf("%d shares, want %d", len(shares), len(want))
	}
	for i := range want {
		if shares[i] != want[i] {
			t.Errorf("share %d: %+v, want %+v", i, shares[i], want[i])
		}
	}
}

func TestParseNetShareEnumEmpty(t *testing.T) {
	shares, ok := parseNetShareEnumResponse(buildStub(nil))
	if !ok || len(shares) != 0 {
		t.Errorf("shares %v ok %v", shares, ok)
	}
}

func TestParseNetShareEnumTruncated(t *testing.T) {
	stub := buildStub([]ShareInfo{{Name: "C$", Type: ShareTypeSpecial}})
	if _, ok := parseNetShareEnumResponse(stub[:len(stub)-6]); ok {
		t.Error("truncated stub accepted")
	}
}

func TestShareTypeClassification(t *testing.T) {
	cases := []struct {
		t    ShareType
		disk bool
	}{
		{ShareTypeDiskDrive, true},
		{ShareTypeSpecial, true},
		{ShareTypeSpecial | ShareTypeIPC, false},
		{ShareTypePrinter, false},
		{ShareTypeTemporary, true},
	}
	for _, tc := range cases {
		if got := tc.t.IsDiskDrive(); got != tc.disk {
			t.Errorf("type 0x%08X: IsDiskDrive %v, want %v", uint32(tc.t), got, tc.disk)
		}
	}
}

func TestEncodeNetShareEnumCarriesServerName(t *testing.T) {
	stub := encodeNetShareEnum("192.0.2.1", 1)
	name := encoding.ToUTF16LE("\\\\192.0.2.1")
	found := false
	for i := 0; i+len(name) <= len(stub); i++ {
		if string(stub[i:i+len(name)]) == string(name) {
			found = true
			break
		}
	}
	if !found {
		t.Error("server name not present in stub")
	}
	if encoding.Uint32LE(stub[len(stub)-8:]) != 0x00020008 {
		t.Error("resume handle pointer missing")
	}
}
