// Aural - Personal Music Recommendation Core
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/aural

package validation

import (
	"strings"
	"testing"
)

type sampleRequest struct {
	TrackID string `validate:"required"`
	Count   int    `validate:"min=1,max=500"`
	Seed    string `validate:"omitempty,oneof=track artist genre mood playlist"`
}

func TestValidateStruct_Valid(t *testing.T) {
	t.Parallel()

	req := sampleRequest{TrackID: "track-1", Count: 20, Seed: "artist"}
	if verr := ValidateStruct(&req); verr != nil {
		t.Errorf("ValidateStruct() = %v, want nil", verr)
	}
}

func TestValidateStruct_FieldErrors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		req     sampleRequest
		wantMsg string
	}{
		{
			name:    "missing required field",
			req:     sampleRequest{Count: 20},
			wantMsg: "TrackID is required",
		},
		{
			name:    "count below minimum",
			req:     sampleRequest{TrackID: "t", Count: 0},
			wantMsg: "Count must be at least 1",
		},
		{
			name:    "count above maximum",
			req:     sampleRequest{TrackID: "t", Count: 1000},
			wantMsg: "Count must be at most 500",
		},
		{
			name:    "invalid oneof value",
			req:     sampleRequest{TrackID: "t", Count: 1, Seed: "album"},
			wantMsg: "Seed must be one of",
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			verr := ValidateStruct(&tt.req)
			if verr == nil {
				t.Fatal("ValidateStruct() = nil, want error")
			}
			if !strings.Contains(verr.Error(), tt.wantMsg) {
				t.Errorf("error %q does not contain %q", verr.Error(), tt.wantMsg)
			}
		})
	}
}

func TestValidateStruct_MultipleErrors(t *testing.T) {
	t.Parallel()

	verr := ValidateStruct(&sampleRequest{Count: 0})
	if verr == nil {
		t.Fatal("ValidateStruct() = nil, want error")
	}
	if got := len(verr.Fields()); got != 2 {
		t.Errorf("len(Fields()) = %d, want 2", got)
	}
}
