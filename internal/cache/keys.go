package cache

import (
	"fmt"

	"konnekt/internal/model"
)

const (
	// CounterPrefix namespaces every engagement key.
	CounterPrefix = "eng:"

	// statusNone is cached for users without a reaction so misses are not repeated.
	statusNone = "none"
)

// CounterKey returns the key of a counter, e.g. "eng:post:42:likes".
func CounterKey(subject model.SubjectType, subjectID int64, kind model.CounterKind) string {
	return fmt.Sprintf("%s%s:%d:%s", CounterPrefix, subject, subjectID, kind)
}

// SubjectPrefix returns the namespace holding every key of one subject.
// Invalidate(SubjectPrefix(...)) drops its counters and per-user reaction status.
func SubjectPrefix(subject model.SubjectType, subjectID int64) string {
	return fmt.Sprintf("%s%s:%d:", CounterPrefix, subject, subjectID)
}

// StatusKey returns the key caching one user's reaction to a subject.
func StatusKey(subject model.SubjectType, subjectID, userID int64) string {
	return fmt.Sprintf("%sstatus:%d", SubjectPrefix(subject, subjectID), userID)
}

// UserCounterKey is shorthand for counters owned by a user.
func UserCounterKey(userID int64, kind model.CounterKind) string {
	return CounterKey(model.SubjectUser, userID, kind)
}
