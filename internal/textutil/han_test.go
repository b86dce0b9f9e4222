package textutil

import "testing"

func TestCountHan(t *testing.T) {
	tests := []struct {
		input string
		want  int
	}{
		{"你好世界", 4},
		{"hello", 0},
		{"第2話です", 2},
		{"", 0},
	}
	for _, tt := range tests {
		if got := CountHan(tt.input); got != tt.want {
			t.Errorf("CountHan(%q) = %d, want %d", tt.input, got, tt.want)
		}
	}
}

func TestHanRatio(t *testing.T) {
	if got := HanRatio("你好世界"); got != 1 {
		t.Errorf("all-Han ratio = %v, want 1", got)
	}
	if got := HanRatio("abcd"); got != 0 {
		t.Errorf("no-Han ratio = %v, want 0", got)
	}
	if got := HanRatio("你好 ab"); got != 0.5 {
		t.Errorf("mixed ratio = %v, want 0.5", got)
	}
	if got := HanRatio("   "); got != 0 {
		t.Errorf("spaces-only ratio = %v, want 0", got)
	}
}

func TestPreferText(t *testing.T) {
	tests := []struct {
		name string
		a, b string
		want string
	}{
		{"more han wins", "你好o", "你好吗", "你好吗"},
		{"tie goes to longer", "你好ab", "你好abc", "你好abc"},
		{"full tie keeps first", "你好", "好你", "你好"},
		{"empty a", "", "text", "text"},
		{"empty b", "text", "  ", "text"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := PreferText(tt.a, tt.b); got != tt.want {
				t.Errorf("PreferText(%q, %q) = %q, want %q", tt.a, tt.b, got, tt.want)
			}
		})
	}
}

func TestSanitizeUTF8(t *testing.T) {
	input := string([]byte{'o', 'k', 0xff, '\n', 0x00, 'x'})
	got := SanitizeUTF8(input)
	if got != "ok\nx" {
		t.Errorf("SanitizeUTF8 = %q, want %q", got, "ok\nx")
	}
	clean := "already clean\tです"
	if SanitizeUTF8(clean) != clean {
		t.Errorf("clean input should pass through unchanged")
	}
}

func TestCollapseWhitespace(t *testing.T) {
	if got := CollapseWhitespace("  a \t b\n c  "); got != "a b c" {
		t.Errorf("CollapseWhitespace = %q", got)
	}
}
