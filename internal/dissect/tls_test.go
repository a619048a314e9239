package dissect

import (
	"encoding/hex"
	"testing"
)

func TestParseSNI(t *testing.T) {
	validSNIPacketHex := "1603010045010000410303" +
		"0000000000000000000000000000000000000000000000000000000000000000" +
		"00" +
		"0002C02B" +
		"0100" +
		"0011" +
		"0000000D000B000008746573742e636f6d"

	valid, _ := hex.DecodeString(validSNIPacketHex)

	tests := []struct {
		name    string
		payload []byte
		want    string
		wantErr bool
	}{
		{"valid SNI", valid, "test.com", false},
		{"short record", []byte{0x16}, "", false},
		{"not handshake", []byte{0x17, 0x03, 0x01, 0x00, 0x10}, "", false},
		{"not client hello", []byte{0x16, 0x03, 0x01, 0x00, 0x10, 0x02, 0x00}, "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parseSNI(tt.payload)
			if (err != nil) != tt.wantErr {
				t.Fatalf("parseSNI() error = %v, wantErr %v", err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("parseSNI() = %q, want %q", got, tt.want)
			}
		})
	}
}
