package bytesize

import "testing"

func TestParse(t *testing.T) {
	tests := []struct {
		in   string
		want ByteSize
	}{
		{"1024", 1024},
		{"1Ki", KiB},
		{"2KiB", 2 * KiB},
		{"512Mi", 512 * MiB},
		{"1Gi", GiB},
		{"100MB", 100 * MB},
		{"2g", 2 * GB},
		{"  4 Ti ", 4 * TiB},
		{"0", 0},
	}
	for _, tt := range tests {
		got, err := Parse(tt.in)
		if err != nil {
			t.Errorf("Parse(%q) error: %v", tt.in, err)
			continue
		}
		if got != tt.want {
			t.Errorf("Parse(%q) = %d, want %d", tt.in, got, tt.want)
		}
	}
}

func TestParseInvalid(t *testing.T) {
	for _, in := range []string{"", "   ", "abc", "1.5X", "-5", "10Qi"} {
		if _, err := Parse(in); err == nil {
			t.Errorf("Parse(%q) should fail", in)
		}
	}
}

func TestString(t *testing.T) {
	tests := []struct {
		in   ByteSize
		want string
	}{
		{512, "512B"},
		{KiB, "1.00KiB"},
		{512 * MiB, "512.00MiB"},
		{GiB, "1.00GiB"},
	}
	for _, tt := range tests {
		if got := tt.in.String(); got != tt.want {
			t.Errorf("ByteSize(%d).String() = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestUnmarshalText(t *testing.T) {
	var b ByteSize
	if err := b.UnmarshalText([]byte("256Mi")); err != nil {
		t.Fatalf("UnmarshalText: %v", err)
	}
	if b != 256*MiB {
		t.Errorf("UnmarshalText = %d, want %d", b, 256*MiB)
	}
	if err := b.UnmarshalText([]byte("junk units")); err == nil {
		t.Error("UnmarshalText should fail on invalid input")
	}
}
