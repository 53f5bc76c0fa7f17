package obs

import "testing"

func TestDescribeSQL(t *testing.T) {
	cases := []struct {
		sql        string
		name, verb string
	}{
		{"-- name: GetSubscription :one\nSELECT * FROM subscriptions WHERE id = $1", "GetSubscription", "SELECT"},
		{"\n  update subscriptions set status = $2", "query", "UPDATE"},
		{"-- name: ExpireStale :many\n-- stale pending rows\nUPDATE subscriptions SET status='EXPIRED'", "ExpireStale", "UPDATE"},
		{"", "query", ""},
	}
	for _, tc := range cases {
		name, verb := describeSQL(tc.sql)
		if name != tc.name || verb != tc.verb {
			t.Fatalf("describeSQL(%q) = %q, %q; want %q, %q", tc.sql, name, verb, tc.name, tc.verb)
		}
	}
	if got := clip("abcdef", 3); got != "abc..." {
		t.Fatalf("clip = %q", got)
	}
}
