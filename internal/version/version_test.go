package version

import "testing"

func TestString(t *testing.T) {
	got := String()
	want := Version + " (" + GitSHA + ")"
	if got != want {
		t.Errorf("String() = %q, want %q", got, want)
	}
}
