package health

import (
	"context"
	"errors"
	"testing"
)

type fakePinger struct{ err error }

func (f *fakePinger) Ping(context.Context) error { return f.err }

func TestCheck(t *testing.T) {
	tests := []struct {
		name       string
		cache      CachePinger
		wantStatus Status
		wantCache  CheckResult
	}{
		{"no cache configured", nil, Healthy, ""},
		{"cache up", &fakePinger{}, Healthy, CheckOK},
		{"cache down", &fakePinger{err: errors.New("conn refused")}, Degraded, CheckError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			report := New(tt.cache).Check(context.Background())
			if report.Status != tt.wantStatus {
				t.Fatalf("Status = %q, want %q", report.Status, tt.wantStatus)
			}
			if report.Checks["index"] != CheckOK {
				t.Fatalf("index check = %q", report.Checks["index"])
			}
			if got := report.Checks["cache"]; got != tt.wantCache {
				t.Fatalf("cache check = %q, want %q", got, tt.wantCache)
			}
		})
	}
}
