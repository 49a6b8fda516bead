package types

import "testing"

func TestAttributeSetFingerprintIsOrderIndependent(t *testing.T) {
	t.Parallel()

	a := AttributeSet{"Color": "Black", "size": "M"}
	b := AttributeSet{"size": "m", "color": "black"}

	if a.Fingerprint() != b.Fingerprint() {
		t.Fatalf("fingerprints differ: %q vs %q", a.Fingerprint(), b.Fingerprint())
	}
	if a.Fingerprint() == "" {
		t.Fatal("expected non-empty fingerprint")
	}
}

func TestAttributeSetFingerprintEmpty(t *testing.T) {
	t.Parallel()

	if got := (AttributeSet{}).Fingerprint(); got != "" {
		t.Fatalf("expected empty fingerprint, got %q", got)
	}
}
