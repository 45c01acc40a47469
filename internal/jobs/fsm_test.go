package jobs

import (
	"errors"
	"testing"

	"github.com/scoutops/scoutops/pkg/errs"
	"github.com/scoutops/scoutops/pkg/models"
)

func TestNext_LegalTransitions(t *testing.T) {
	tests := []struct {
		from models.JobStatus
		ev   Event
		to   models.JobStatus
	}{
		{models.JobStatusDraft, EventPublish, models.JobStatusPosted},
		{models.JobStatusDraft, EventCancel, models.JobStatusCancelled},
		{models.JobStatusPosted, EventAccept, models.JobStatusAccepted},
		{models.JobStatusPosted, EventCancel, models.JobStatusCancelled},
		{models.JobStatusPosted, EventExpire, models.JobStatusExpired},
		{models.JobStatusAccepted, EventStart, models.JobStatusInProgress},
		{models.JobStatusAccepted, EventSubmit, models.JobStatusSubmitted},
		{models.JobStatusInProgress, EventSubmit, models.JobStatusSubmitted},
		{models.JobStatusSubmitted, EventApprove, models.JobStatusApproved},
		{models.JobStatusSubmitted, EventReject, models.JobStatusRejected},
		{models.JobStatusSubmitted, EventResubmit, models.JobStatusInProgress},
		{models.JobStatusApproved, EventSettle, models.JobStatusPaid},
	}

	for _, tt := range tests {
		t.Run(string(tt.from)+"_"+string(tt.ev), func(t *testing.T) {
			to, err := Next(tt.from, tt.ev)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if to != tt.to {
				t.Errorf("expected %s, got %s", tt.to, to)
			}
		})
	}
}

func TestNext_IllegalTransitions(t *testing.T) {
	tests := []struct {
		name string
		from models.JobStatus
		ev   Event
	}{
		{"cannot accept a draft", models.JobStatusDraft, EventAccept},
		{"cannot submit a draft", models.JobStatusDraft, EventSubmit},
		{"cannot publish twice", models.JobStatusPosted, EventPublish},
		{"cannot cancel after acceptance", models.JobStatusAccepted, EventCancel},
		{"cannot approve before submission", models.JobStatusInProgress, EventApprove},
		{"cannot cancel a submitted job", models.JobStatusSubmitted, EventCancel},
		{"cannot re-approve", models.JobStatusApproved, EventApprove},
		{"rejected is terminal", models.JobStatusRejected, EventSubmit},
		{"paid is terminal", models.JobStatusPaid, EventSettle},
		{"cancelled is terminal", models.JobStatusCancelled, EventPublish},
		{"expired is terminal", models.JobStatusExpired, EventAccept},
		{"expired job cannot be accepted", models.JobStatusExpired, EventAccept},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Next(tt.from, tt.ev)
			if !errors.Is(err, errs.ErrConflict) {
				t.Errorf("expected ErrConflict, got %v", err)
			}
		})
	}
}

func TestCanSubmit(t *testing.T) {
	if !CanSubmit(models.JobStatusAccepted) {
		t.Error("accepted jobs must accept submissions")
	}
	if !CanSubmit(models.JobStatusInProgress) {
		t.Error("in_progress jobs must accept submissions")
	}
	for _, s := range []models.JobStatus{
		models.JobStatusDraft, models.JobStatusPosted, models.JobStatusSubmitted,
		models.JobStatusApproved, models.JobStatusRejected, models.JobStatusPaid,
		models.JobStatusCancelled, models.JobStatusExpired,
	} {
		if CanSubmit(s) {
			t.Errorf("%s must not accept submissions", s)
		}
	}
}
