package logx

import "testing"

func TestAnonymizeIP(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"203.0.113.42:8080", "203.0.113.0"},
		{"203.0.113.42", "203.0.113.0"},
		{"127.0.0.1:9999", "127.0.0.1"},
		{"[2001:db8:1:2:3:4:5:6]:443", "2001:db8:1:2::"},
		{"not-an-ip", "unknown_ip"},
		{"", "unknown_ip"},
	}

	for _, tc := range cases {
		if got := anonymizeIP(tc.in); got != tc.want {
			t.Errorf("anonymizeIP(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}
