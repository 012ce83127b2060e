package model

import "time"

// PackAnswer is one entry of the exported answer list. Order follows the
// question bank, not the answers map.
type PackAnswer struct {
	ID    TaskID `json:"id"`
	Value string `json:"value"`
}

// PackStats summarizes an early/partial submission.
type PackStats struct {
	Solved           int `json:"solved"`
	Total            int `json:"total"`
	SolvedPercentage int `json:"solvedPercentage"`
}

// PackTimer is the timer snapshot embedded in a result pack.
type PackTimer struct {
	StartedAt   *time.Time `json:"startedAt"`
	Finished    bool       `json:"finished"`
	EarlySubmit bool       `json:"earlySubmit,omitempty"`
}

// ResultPack is the exported answer document, wire-compatible with what the
// collection endpoint and graders already consume.
type ResultPack struct {
	Meta            QuestionBankMeta `json:"meta"`
	Variant         string           `json:"variant"`
	Identity        *Identity        `json:"identity"`
	TS              time.Time        `json:"ts"`
	DurationMinutes int              `json:"durationMinutes"`
	Timer           PackTimer        `json:"timer"`
	Answers         []PackAnswer     `json:"answers"`
	Stats           *PackStats       `json:"stats,omitempty"`
}
