package ipfix

import "testing"

func TestIsEnterpriseField(t *testing.T) {
	if IsEnterpriseField(1) {
		t.Fatal("expected IANA field id to not be marked enterprise")
	}
	if !IsEnterpriseField(1 << 15) {
		t.Fatal("expected field id with high bit set to be marked enterprise")
	}
}

func TestIsVariableLength(t *testing.T) {
	if IsVariableLength(4) {
		t.Fatal("expected fixed length 4 to not be variable-length")
	}
	if !IsVariableLength(0xFFFF) {
		t.Fatal("expected 0xFFFF sentinel to be variable-length")
	}
}
