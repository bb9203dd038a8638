package bluetooth

import "testing"

func TestIsInvalid(t *testing.T) {
	if !IsInvalid(InvalidHandle) {
		t.Fatalf("IsInvalid(InvalidHandle) = false")
	}

	for _, h := range []Handle{0, 1, 0x1234, InvalidHandle - 1} {
		if IsInvalid(h) {
			t.Fatalf("IsInvalid(%#x) = true", h)
		}
	}
}
