package model

import (
	"time"
)

// SubjectType is the kind of content a reaction, view or counter refers to.
type SubjectType string

const (
	SubjectPost    SubjectType = "post"
	SubjectComment SubjectType = "comment"
	SubjectUser    SubjectType = "user"
)

// Reactable reports whether reactions can target this subject type.
func (s SubjectType) Reactable() bool {
	return s == SubjectPost || s == SubjectComment
}

// ReactionType is like or dislike.
type ReactionType string

const (
	ReactionLike    ReactionType = "like"
	ReactionDislike ReactionType = "dislike"
)

// Valid reports whether t is a known reaction type.
func (t ReactionType) Valid() bool {
	return t == ReactionLike || t == ReactionDislike
}

// Opposite returns the mutually exclusive reaction type.
func (t ReactionType) Opposite() ReactionType {
	if t == ReactionLike {
		return ReactionDislike
	}
	return ReactionLike
}

// Reaction is unique per (subject_type, subject_id, user_id).
type Reaction struct {
	SubjectType SubjectType  `db:"subject_type" json:"subject_type"`
	SubjectID   int64        `db:"subject_id" json:"subject_id"`
	UserID      int64        `db:"user_id" json:"user_id"`
	Type        ReactionType `db:"type" json:"type"`
	CreatedAt   time.Time    `db:"created_at" json:"created_at"`
}

// ReactionResult is returned by React and Unreact.
// Count is the counter of Type after the change. When Swapped is true the opposite
// reaction was removed and OppositeCount holds its decremented counter.
type ReactionResult struct {
	Type          ReactionType `json:"type"`
	Count         int64        `json:"count"`
	Swapped       bool         `json:"swapped"`
	OppositeCount int64        `json:"opposite_count"`
	Warnings      []string     `json:"warnings,omitempty"`
}

// ReactionCounts holds both counters for a subject.
type ReactionCounts struct {
	Likes    int64 `json:"likes"`
	Dislikes int64 `json:"dislikes"`
}

var (
	ErrAlreadyReacted  = NewError(KindConflict, "already reacted")
	ErrNotReacted      = NewError(KindBadRequest, "not reacted")
	ErrSubjectNotFound = NewError(KindNotFound, "subject not found")
)
