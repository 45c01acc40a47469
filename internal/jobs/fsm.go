// Package jobs owns the job lifecycle: the state machine that is the single
// authority over legal status transitions, and the poster that creates jobs
// from template snapshots.
package jobs

import (
	"fmt"

	"github.com/scoutops/scoutops/pkg/errs"
	"github.com/scoutops/scoutops/pkg/models"
)

// Event names a lifecycle trigger.
type Event string

const (
	EventPublish  Event = "publish"
	EventCancel   Event = "cancel"
	EventAccept   Event = "accept"
	EventStart    Event = "start"
	EventSubmit   Event = "submit"
	EventApprove  Event = "approve"
	EventReject   Event = "reject"
	EventResubmit Event = "resubmit"
	EventSettle   Event = "settle"
	EventExpire   Event = "expire"
)

// transitions is the complete table of legal job transitions. Anything not
// listed here is a conflict. cancelled and expired are terminal; a job
// never re-enters the workflow from either.
var transitions = map[models.JobStatus]map[Event]models.JobStatus{
	models.JobStatusDraft: {
		EventPublish: models.JobStatusPosted,
		EventCancel:  models.JobStatusCancelled,
	},
	models.JobStatusPosted: {
		EventAccept: models.JobStatusAccepted,
		EventCancel: models.JobStatusCancelled,
		EventExpire: models.JobStatusExpired,
	},
	models.JobStatusAccepted: {
		EventStart:  models.JobStatusInProgress,
		EventSubmit: models.JobStatusSubmitted,
	},
	models.JobStatusInProgress: {
		EventSubmit: models.JobStatusSubmitted,
	},
	models.JobStatusSubmitted: {
		EventApprove:  models.JobStatusApproved,
		EventReject:   models.JobStatusRejected,
		EventResubmit: models.JobStatusInProgress,
	},
	models.JobStatusApproved: {
		EventSettle: models.JobStatusPaid,
	},
}

// Next returns the status a job in `from` moves to on `ev`, or a conflict
// error when the transition is not in the table.
func Next(from models.JobStatus, ev Event) (models.JobStatus, error) {
	if to, ok := transitions[from][ev]; ok {
		return to, nil
	}
	return "", fmt.Errorf("%w: job cannot %s from %s", errs.ErrConflict, ev, from)
}

// CanSubmit reports whether a job in the given status accepts submissions.
func CanSubmit(status models.JobStatus) bool {
	return status == models.JobStatusAccepted || status == models.JobStatusInProgress
}
