package model

import "testing"

func TestGraceDays(t *testing.T) {
	tests := []struct {
		label string
		want  int
	}{
		{LabelPod, 1},
		{LabelAlert, 1},
		{LabelService, 7},
		{LabelDeployment, 7},
		{LabelPVC, 14},
		{LabelArgoApp, 14},
		{LabelVM, 30},
		{LabelHost, 30},
		{"SomeUnlistedLabel", DefaultGraceDays},
	}
	for _, tt := range tests {
		if got := GraceDays(tt.label); got != tt.want {
			t.Errorf("GraceDays(%q) = %d, want %d", tt.label, got, tt.want)
		}
	}
}

func TestIsProtected(t *testing.T) {
	for _, l := range []string{LabelNetwork, LabelLocation, LabelCluster, LabelProxmoxNode, LabelNAS, LabelStoragePool} {
		if !IsProtected(l) {
			t.Errorf("expected %q to be protected", l)
		}
	}
	if IsProtected(LabelPod) {
		t.Error("Pod must not be protected")
	}
}

func TestIsManaged(t *testing.T) {
	if !IsManaged(LabelPod) {
		t.Error("Pod should be managed")
	}
	if IsManaged(LabelNetwork) {
		t.Error("Network is protected, not in the managed mark/sweep set")
	}
}

func TestIsManuallyEnriched(t *testing.T) {
	cases := []struct {
		name string
		row  Row
		want bool
	}{
		{"empty row", Row{}, false},
		{"blank description", Row{"description": ""}, false},
		{"has description", Row{"description": "critical box, do not prune"}, true},
		{"has owner", Row{"owner": "alice"}, true},
		{"has notes", Row{"notes": "x"}, true},
		{"unrelated field", Row{"ip": "10.0.0.1"}, false},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			if got := IsManuallyEnriched(c.row); got != c.want {
				t.Errorf("IsManuallyEnriched(%v) = %v, want %v", c.row, got, c.want)
			}
		})
	}
}

func TestUnwrapTagged(t *testing.T) {
	cases := []struct {
		name string
		in   interface{}
		want float64
	}{
		{"plain float", 42.5, 42.5},
		{"plain int", 7, 7.0},
		{"parsed variant", map[string]interface{}{"parsed": 3.5, "rawvalue": "3.5"}, 3.5},
		{"rawvalue only", map[string]interface{}{"rawvalue": 9.0}, 9.0},
		{"nil", nil, 0},
		{"unknown shape", "garbage", 0},
		{"nested parsed", map[string]interface{}{"parsed": map[string]interface{}{"parsed": 11.0}}, 11.0},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			if got := UnwrapTagged(c.in); got != c.want {
				t.Errorf("UnwrapTagged(%v) = %v, want %v", c.in, got, c.want)
			}
		})
	}
}
