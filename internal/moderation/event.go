// Package moderation defines the audit trail for abuse reports: the event
// published when a report is filed, and the PostgreSQL archive the moderator
// service writes those events into. The archive is review material for
// humans, not a source of truth — blocking decisions are made in memory by
// the relay.
package moderation

import (
	"time"
)

// ReportEvent describes one filed abuse report and the block it triggered,
// if any. Published on the audit channel by the relay and archived by the
// moderator service.
type ReportEvent struct {
	Reporter     string `json:"reporter"`
	Reported     string `json:"reported"`
	Tally        int    `json:"tally"`
	BlockSeconds int64  `json:"block_seconds,omitempty"`
	Permanent    bool   `json:"permanent,omitempty"`
	Ts           int64  `json:"ts"`
}

// NewReportEvent builds an event for a report filed now.
func NewReportEvent(reporter, reported string, tally int, blockFor time.Duration, permanent bool) ReportEvent {
	return ReportEvent{
		Reporter:     reporter,
		Reported:     reported,
		Tally:        tally,
		BlockSeconds: int64(blockFor.Seconds()),
		Permanent:    permanent,
		Ts:           time.Now().Unix(),
	}
}
