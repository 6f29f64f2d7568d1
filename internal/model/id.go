package model

import (
	"crypto/rand"
	"fmt"
	"regexp"
	"time"
)

// Claim and task ids are human-legible and time-ordered:
// CLM-20240115-093042-7KQ2. Lexicographic order matches creation order
// within a second; the random suffix breaks collisions across workers.

const idAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

var claimIDRegex = regexp.MustCompile(`^CLM-[0-9]{8}-[0-9]{6}-[A-Z0-9]{4}$`)
var taskIDRegex = regexp.MustCompile(`^TSK-[0-9]{8}-[0-9]{6}-[A-Z0-9]{4}$`)

func newID(prefix string, now time.Time) (string, error) {
	buf := make([]byte, 4)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generate id suffix: %w", err)
	}
	suffix := make([]byte, 4)
	for i, b := range buf {
		suffix[i] = idAlphabet[int(b)%len(idAlphabet)]
	}
	return fmt.Sprintf("%s-%s-%s", prefix, now.Format("20060102-150405"), suffix), nil
}

// NewClaimID generates a claim identifier for the given creation time.
func NewClaimID(now time.Time) (string, error) {
	return newID("CLM", now)
}

// NewTaskID generates a task identifier for the given creation time.
func NewTaskID(now time.Time) (string, error) {
	return newID("TSK", now)
}

// ValidClaimID reports whether id has the claim id shape.
func ValidClaimID(id string) bool {
	return claimIDRegex.MatchString(id)
}

// ValidTaskID reports whether id has the task id shape.
func ValidTaskID(id string) bool {
	return taskIDRegex.MatchString(id)
}

// IDTimestamp parses the embedded creation time out of a claim or task id.
func IDTimestamp(id string) (time.Time, error) {
	if !ValidClaimID(id) && !ValidTaskID(id) {
		return time.Time{}, fmt.Errorf("invalid id format: %s", id)
	}
	return time.Parse("20060102-150405", id[4:19])
}
