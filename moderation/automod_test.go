package moderation

import "testing"

func TestGibberishNamePattern(t *testing.T) {
	cases := []struct {
		user string
		want bool
	}{
		{"cipey52636", true},
		{"licane7793", true},
		{"abcdef1234", true},
		{"abcdef12345", true},
		{"abcdef123", false},
		{"abcdef123456", false},
		{"abcde12345", false},
		{"abcdefg1234", false},
		{"Abcdef1234", false},
		{"mane_dat_mane", false},
		{"alice", false},
		{"", false},
	}
	for _, tc := range cases {
		if got := gibberishName.MatchString(tc.user); got != tc.want {
			t.Errorf("gibberish(%q) = %v, want %v", tc.user, got, tc.want)
		}
	}
}

func TestIPBanned(t *testing.T) {
	am := NewAutoMod(nil, nil, []string{"10.0.0.0/8", "192.168.1.0/24", "not-a-cidr", ""})
	if len(am.nets) != 2 {
		t.Fatalf("parsed %d nets, want 2", len(am.nets))
	}

	cases := []struct {
		remote string
		want   bool
	}{
		{"10.1.2.3", true},
		{"192.168.1.200", true},
		{"192.168.2.1", false},
		{"8.8.8.8", false},
		{"garbage", false},
		{"", false},
	}
	for _, tc := range cases {
		if got := am.ipBanned(tc.remote); got != tc.want {
			t.Errorf("ipBanned(%q) = %v, want %v", tc.remote, got, tc.want)
		}
	}
}

func TestIPBannedWithNoRanges(t *testing.T) {
	am := NewAutoMod(nil, nil, nil)
	if am.ipBanned("10.1.2.3") {
		t.Fatal("empty range list should never match")
	}
}
