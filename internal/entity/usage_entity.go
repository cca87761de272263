package entity

import "time"

type Outcome string

const (
	OutcomeCompleted Outcome = "completed"
	OutcomeFailed    Outcome = "failed"
	OutcomeQueued    Outcome = "queued"
	OutcomeRejected  Outcome = "rejected"
)

// Usage holds per-requester counters of request outcomes.
type Usage struct {
	Requester  string
	Completed  int64
	Failed     int64
	Queued     int64
	Rejected   int64
	LastSeenAt time.Time
}

func (u *Usage) Add(outcome Outcome, n int64) {
	switch outcome {
	case OutcomeCompleted:
		u.Completed += n
	case OutcomeFailed:
		u.Failed += n
	case OutcomeQueued:
		u.Queued += n
	case OutcomeRejected:
		u.Rejected += n
	}
}
