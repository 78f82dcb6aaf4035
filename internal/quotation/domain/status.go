package domain

import (
	"errors"
	"strings"
)

type Status string

const (
	StatusDraft    Status = "draft"
	StatusSent     Status = "sent"
	StatusAccepted Status = "accepted"
	StatusRejected Status = "rejected"
	StatusArchived Status = "archived"
)

var (
	ErrInvalidStatus     = errors.New("invalid_status")
	ErrInvalidTransition = errors.New("invalid_status_transition")
)

// transitions lists every permitted (from, to) pair besides staying put.
var transitions = map[Status][]Status{
	StatusDraft:    {StatusSent, StatusArchived},
	StatusSent:     {StatusDraft, StatusAccepted, StatusRejected, StatusArchived},
	StatusAccepted: {StatusArchived},
	StatusRejected: {StatusDraft, StatusArchived},
	StatusArchived: {StatusDraft},
}

func ParseStatus(value string) (Status, error) {
	status := Status(strings.ToLower(strings.TrimSpace(value)))
	if !status.Valid() {
		return "", ErrInvalidStatus
	}
	return status, nil
}

func (s Status) Valid() bool {
	_, ok := transitions[s]
	return ok
}

func (s Status) String() string {
	return string(s)
}

// CanTransition reports whether a quotation in from may move to to.
func CanTransition(from, to Status) bool {
	if !from.Valid() || !to.Valid() {
		return false
	}
	if from == to {
		return true
	}
	for _, allowed := range transitions[from] {
		if allowed == to {
			return true
		}
	}
	return false
}

// Transition validates a status change against the transition table.
func Transition(from, to Status) error {
	if !to.Valid() {
		return ErrInvalidStatus
	}
	if !CanTransition(from, to) {
		return ErrInvalidTransition
	}
	return nil
}

// Toggle flips draft and sent. Every other status is rejected.
func Toggle(current Status) (Status, error) {
	switch current {
	case StatusDraft:
		return StatusSent, nil
	case StatusSent:
		return StatusDraft, nil
	default:
		return current, ErrInvalidTransition
	}
}
