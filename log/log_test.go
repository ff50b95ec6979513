package log

import "testing"

func TestUncolorStripsAnsiCodes(t *testing.T) {
	in := "\x1b[31merror\x1b[0m: bad block"
	want := "error: bad block"
	if got := Uncolor(in); got != want {
		t.Fatalf("Uncolor(%q) = %q, want %q", in, got, want)
	}
}

func TestWithReturnsLogger(t *testing.T) {
	base := New("component", "vm")
	derived := base.With("block", uint64(100))
	if derived == nil {
		t.Fatal("With returned nil Logger")
	}
}

func TestSetDefaultReplacesRoot(t *testing.T) {
	prev := Root()
	defer SetDefault(prev)

	replacement := New("test", true)
	SetDefault(replacement)
	if Root() != replacement {
		t.Fatal("SetDefault did not replace the root logger")
	}
}
