package version

import (
	"runtime/debug"
	"testing"
)

func TestRevision(t *testing.T) {
	tests := []struct {
		name     string
		settings []debug.BuildSetting
		want     string
	}{
		{"none", nil, ""},
		{"clean", []debug.BuildSetting{{Key: "vcs.revision", Value: "0123456789abcdef"}}, "0123456"},
		{"dirty", []debug.BuildSetting{
			{Key: "vcs.modified", Value: "true"},
			{Key: "vcs.revision", Value: "0123456789abcdef"},
		}, "0123456-dirty"},
		{"modified without revision", []debug.BuildSetting{{Key: "vcs.modified", Value: "true"}}, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := revision(tt.settings); got != tt.want {
				t.Errorf("revision = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestPick(t *testing.T) {
	if got := pick("v1.0.0", "0123456"); got != "v1.0.0" {
		t.Errorf("pick = %q, want the version", got)
	}
	if got := pick("", "0123456"); got != "0123456" {
		t.Errorf("pick = %q, want the hash", got)
	}
	if got := pick("", ""); got != "devel" {
		t.Errorf("pick = %q, want devel", got)
	}
}
