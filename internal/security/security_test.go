package security

import (
	"reflect"
	"testing"
)

func TestSanitizeString(t *testing.T) {
	got := Sanitize(`  <b>bold</b> & "quoted"  `)
	want := "&lt;b&gt;bold&lt;/b&gt; &amp; &#34;quoted&#34;"
	if got != want {
		t.Fatalf("expected %q, got %q", want, got)
	}
}

func TestSanitizeNested(t *testing.T) {
	in := map[string]any{
		"name":  "<script>",
		"count": 42,
		"tags":  []string{"<a>", "plain"},
		"extra": map[string]any{
			"note": "a & b",
			"list": []any{"<i>", 7},
		},
	}
	want := map[string]any{
		"name":  "&lt;script&gt;",
		"count": 42,
		"tags":  []string{"&lt;a&gt;", "plain"},
		"extra": map[string]any{
			"note": "a &amp; b",
			"list": []any{"&lt;i&gt;", 7},
		},
	}
	if got := Sanitize(in); !reflect.DeepEqual(got, want) {
		t.Fatalf("expected %#v, got %#v", want, got)
	}
}

func TestSanitizeNonString(t *testing.T) {
	for _, v := range []any{42, int64(7), 3.14, true, nil} {
		if got := Sanitize(v); got != v {
			t.Errorf("expected %v to pass through, got %v", v, got)
		}
	}
}

func TestUnsanitizeRoundTrip(t *testing.T) {
	in := `<p title="x & y">`
	if got := Unsanitize(Sanitize(in).(string)); got != in {
		t.Fatalf("expected round trip to restore %q, got %q", in, got)
	}
}

func TestSuspiciousKeyword(t *testing.T) {
	tests := []struct {
		query string
		want  bool
	}{
		{"SELECT * FROM users; DROP TABLE users", true},
		{"SELECT * FROM t WHERE a = 'x'; delete from t", true},
		{"SELECT * FROM users WHERE id = ?", false},
		{"DELETE FROM users WHERE id = ?", false},
		{"SELECT name FROM users", false},
		{"SELECT updated_at FROM users", false},
	}
	for _, tt := range tests {
		if _, got := SuspiciousKeyword(tt.query); got != tt.want {
			t.Errorf("SuspiciousKeyword(%q) = %v, want %v", tt.query, got, tt.want)
		}
	}
}

func TestValidateEmail(t *testing.T) {
	valid := []string{"a@b.co", "user.name+tag@example.com", "x_1@sub.domain.org"}
	invalid := []string{"", "plain", "@nohost.com", "user@", "user@host", "user @host.com"}

	for _, e := range valid {
		if !ValidateEmail(e) {
			t.Errorf("expected %q to be valid", e)
		}
	}
	for _, e := range invalid {
		if ValidateEmail(e) {
			t.Errorf("expected %q to be invalid", e)
		}
	}
}
