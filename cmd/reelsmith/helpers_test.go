package main

import (
	"testing"
)

func TestParseIDs(t *testing.T) {
	ids, err := parseIDs([]string{"3", " 12 ", "7"})
	if err != nil {
		t.Fatalf("parseIDs: %v", err)
	}
	if len(ids) != 3 || ids[0] != 3 || ids[1] != 12 || ids[2] != 7 {
		t.Fatalf("ids = %v", ids)
	}

	for _, bad := range []string{"abc", "0", "-4", ""} {
		if _, err := parseIDs([]string{bad}); err == nil {
			t.Errorf("parseIDs(%q) should fail", bad)
		}
	}
}

func TestTruncate(t *testing.T) {
	cases := []struct {
		in    string
		limit int
		want  string
	}{
		{"short", 40, "short"},
		{"exactly-ten", 11, "exactly-ten"},
		{"engine rejected the job parameters entirely", 20, "engine rejected t..."},
		{"abcdef", 3, "abc"},
	}
	for _, tc := range cases {
		if got := truncate(tc.in, tc.limit); got != tc.want {
			t.Errorf("truncate(%q, %d) = %q, want %q", tc.in, tc.limit, got, tc.want)
		}
	}
}

func TestNewAPIClientNormalizesBase(t *testing.T) {
	client := newAPIClient("127.0.0.1:7490", " token ")
	if client.base != "http://127.0.0.1:7490" {
		t.Fatalf("base = %q", client.base)
	}
	if client.token != "token" {
		t.Fatalf("token = %q", client.token)
	}

	client = newAPIClient("https://reelsmith.internal/", "")
	if client.base != "https://reelsmith.internal" {
		t.Fatalf("base = %q", client.base)
	}
}

func TestBuildQueueStatusRows(t *testing.T) {
	rows := buildQueueStatusRows(map[string]int{
		"accepted":   3,
		"planned":    2,
		"failed":     1,
		"generating": 0,
		"bogus":      9,
	})
	if len(rows) != 3 {
		t.Fatalf("rows = %v", rows)
	}
	// Pipeline order, zero counts and unknown statuses dropped.
	if rows[0][0] != "planned" || rows[1][0] != "accepted" || rows[2][0] != "failed" {
		t.Fatalf("row order = %v", rows)
	}
	if rows[0][1] != "2" {
		t.Fatalf("planned count = %q", rows[0][1])
	}
}

func TestYesNo(t *testing.T) {
	if yesNo(true) != "yes" || yesNo(false) != "no" {
		t.Fatal("yesNo mapping broken")
	}
}
