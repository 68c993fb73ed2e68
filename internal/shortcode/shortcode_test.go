package shortcode

import "testing"

func TestNormalize(t *testing.T) {
	cases := map[string]string{
		"cash":           "CASH",
		"  petty cash  ": "PETTY-CASH",
		"a  b\tc":        "A-B-C",
		"10.15":          "10.15",
		"":               "",
	}
	for in, want := range cases {
		if got := Normalize(in); got != want {
			t.Fatalf("Normalize(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestValid(t *testing.T) {
	good := []string{"CASH", "AR-001", "10.15", "X"}
	for _, s := range good {
		if !Valid(s) {
			t.Fatalf("expected %q to be valid", s)
		}
	}
	bad := []string{"", "cash", "-CASH", "CASH!", "A B"}
	for _, s := range bad {
		if Valid(s) {
			t.Fatalf("expected %q to be invalid", s)
		}
	}
}
