package domain

import (
	"testing"
)

func TestChangeStatusTransitions(t *testing.T) {
	cases := []struct {
		from    ChangeStatus
		to      ChangeStatus
		allowed bool
	}{
		{ChangeStatusStaged, ChangeStatusApplied, true},
		{ChangeStatusStaged, ChangeStatusFailed, true},
		{ChangeStatusStaged, ChangeStatusReverted, false},
		{ChangeStatusApplied, ChangeStatusReverted, true},
		{ChangeStatusApplied, ChangeStatusFailed, false},
		{ChangeStatusApplied, ChangeStatusStaged, false},
		{ChangeStatusFailed, ChangeStatusApplied, false},
		{ChangeStatusFailed, ChangeStatusReverted, false},
		{ChangeStatusReverted, ChangeStatusApplied, false},
		{ChangeStatusReverted, ChangeStatusStaged, false},
	}

	for _, tc := range cases {
		if got := tc.from.CanTransitionTo(tc.to); got != tc.allowed {
			t.Errorf("%s -> %s: got %v, want %v", tc.from, tc.to, got, tc.allowed)
		}
	}
}

func TestNewManagerReassignmentSnapshots(t *testing.T) {
	oldManager := "U100"
	newManager := "U200"

	change, err := NewManagerReassignment("actor", "U001", &oldManager, &newManager)
	if err != nil {
		t.Fatalf("NewManagerReassignment failed: %v", err)
	}
	if change.Status != ChangeStatusStaged {
		t.Fatalf("expected staged status, got %s", change.Status)
	}
	if change.Kind != ChangeKindManager {
		t.Fatalf("expected manager kind, got %s", change.Kind)
	}

	before, after, err := change.ManagerPayloads()
	if err != nil {
		t.Fatalf("ManagerPayloads failed: %v", err)
	}
	if before.Manager == nil || *before.Manager != oldManager {
		t.Errorf("before manager = %v, want %s", before.Manager, oldManager)
	}
	if after.Manager == nil || *after.Manager != newManager {
		t.Errorf("after manager = %v, want %s", after.Manager, newManager)
	}
}

func TestNewManagerReassignmentToRoot(t *testing.T) {
	oldManager := "U100"

	change, err := NewManagerReassignment("actor", "U001", &oldManager, nil)
	if err != nil {
		t.Fatalf("NewManagerReassignment failed: %v", err)
	}

	_, after, err := change.ManagerPayloads()
	if err != nil {
		t.Fatalf("ManagerPayloads failed: %v", err)
	}
	if after.Manager != nil {
		t.Errorf("expected nil after manager, got %v", *after.Manager)
	}
}

func TestNewProfileUpdateSnapshots(t *testing.T) {
	before := map[string]FieldValue{"Xf01": {Value: "Engineer"}}
	after := map[string]FieldValue{"Xf01": {Value: "Staff Engineer"}}

	change, err := NewProfileUpdate("actor", "U001", before, after)
	if err != nil {
		t.Fatalf("NewProfileUpdate failed: %v", err)
	}
	if change.Kind != ChangeKindProfile {
		t.Fatalf("expected profile kind, got %s", change.Kind)
	}

	decodedBefore, decodedAfter, err := change.ProfilePayloads()
	if err != nil {
		t.Fatalf("ProfilePayloads failed: %v", err)
	}
	if got := decodedBefore.Fields["Xf01"].Value; got != "Engineer" {
		t.Errorf("before value = %q, want %q", got, "Engineer")
	}
	if got := decodedAfter.Fields["Xf01"].Value; got != "Staff Engineer" {
		t.Errorf("after value = %q, want %q", got, "Staff Engineer")
	}
}

func TestPayloadDecodersRejectWrongKind(t *testing.T) {
	change, err := NewManagerReassignment("actor", "U001", nil, nil)
	if err != nil {
		t.Fatalf("NewManagerReassignment failed: %v", err)
	}
	if _, _, err := change.ProfilePayloads(); err == nil {
		t.Error("expected error decoding manager change as profile update")
	}

	change, err = NewProfileUpdate("actor", "U001", nil, map[string]FieldValue{"Xf01": {Value: "x"}})
	if err != nil {
		t.Fatalf("NewProfileUpdate failed: %v", err)
	}
	if _, _, err := change.ManagerPayloads(); err == nil {
		t.Error("expected error decoding profile change as manager reassignment")
	}
}
