package archive

import (
	"strings"
	"testing"
)

func TestDigest(t *testing.T) {
	a := DigestBytes([]byte("hello"))
	b, err := Digest(strings.NewReader("hello"))
	if err != nil {
		t.Fatalf("Digest: %v", err)
	}
	if a != b {
		t.Fatalf("DigestBytes and Digest disagree: %s vs %s", a, b)
	}
	if !ValidDigest(a) {
		t.Fatalf("expected valid digest %q", a)
	}
	if DigestBytes([]byte("hello!")) == a {
		t.Fatalf("different input must hash differently")
	}
	for _, bad := range []string{"", "sha256:abc", "blake3:zz", "blake3:" + strings.Repeat("0", 63)} {
		if ValidDigest(bad) {
			t.Errorf("expected %q to be invalid", bad)
		}
	}
}
