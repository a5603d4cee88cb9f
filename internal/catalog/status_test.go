package catalog

import "testing"

// ============================================================================
// Transition matrix
// ============================================================================

func TestCanTransition(t *testing.T) {
	all := []UploadStatus{
		StatusReceived, StatusValidating, StatusValidated,
		StatusWarning, StatusFailed, StatusMerged,
	}

	legal := map[UploadStatus]map[UploadStatus]bool{
		StatusReceived:   {StatusValidating: true},
		StatusValidating: {StatusValidated: true, StatusWarning: true, StatusFailed: true},
		StatusValidated:  {StatusMerged: true, StatusValidating: true},
		StatusWarning:    {StatusMerged: true, StatusValidating: true},
		StatusFailed:     {StatusReceived: true},
		StatusMerged:     {},
	}

	for _, from := range all {
		for _, to := range all {
			want := legal[from][to]
			if got := canTransition(from, to); got != want {
				t.Errorf("canTransition(%s, %s) = %v, want %v", from, to, got, want)
			}
		}
	}
}

func TestCanTransition_UnknownStatus(t *testing.T) {
	if canTransition(UploadStatus("bogus"), StatusValidating) {
		t.Error("canTransition from unknown status should be false")
	}
	if canTransition(StatusReceived, UploadStatus("bogus")) {
		t.Error("canTransition to unknown status should be false")
	}
}

// ============================================================================
// Merge precondition
// ============================================================================

func TestMergeable(t *testing.T) {
	tests := []struct {
		status UploadStatus
		skip   bool
		want   bool
	}{
		{StatusValidated, false, true},
		{StatusWarning, false, true},
		{StatusReceived, false, false},
		{StatusValidating, false, false},
		{StatusFailed, false, false},
		{StatusMerged, false, false},

		// skip_invalid_rows widens the gate to everything except a merge
		// that already happened or a validation in flight
		{StatusReceived, true, true},
		{StatusFailed, true, true},
		{StatusValidated, true, true},
		{StatusWarning, true, true},
		{StatusValidating, true, false},
		{StatusMerged, true, false},
	}

	for _, tt := range tests {
		if got := mergeable(tt.status, tt.skip); got != tt.want {
			t.Errorf("mergeable(%s, skip=%v) = %v, want %v", tt.status, tt.skip, got, tt.want)
		}
	}
}
