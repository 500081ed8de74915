package storage

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"
)

// ProofPath is the key for a daily goal proof.
func ProofPath(userID string, at time.Time, filename string) string {
	return fmt.Sprintf("proofs/%s/%d_%s", userID, at.UnixMilli(), CleanFilename(filename))
}

// BoostImagePath is the key for an image attached to a boost.
func BoostImagePath(userID string, at time.Time, boostType, filename string) string {
	return fmt.Sprintf("motivations/%s/%d_%s_%s", userID, at.UnixMilli(), boostType, CleanFilename(filename))
}

// MissionProofPath is unique per submission so a losing concurrent submit
// never overwrites the proof under review.
func MissionProofPath(userID, missionID string, at time.Time) string {
	return fmt.Sprintf("mission-proofs/%s/%s/%d", userID, missionID, at.UnixMilli())
}

// CleanFilename strips directories and characters that would split the object key.
func CleanFilename(name string) string {
	name = filepath.Base(strings.ReplaceAll(name, "\\", "/"))
	name = strings.Map(func(r rune) rune {
		switch {
		case r == '/' || r == '?' || r == '#' || r == '%':
			return '_'
		case r < 0x20 || r == 0x7f:
			return -1
		}
		return r
	}, name)
	if name == "" || name == "." || name == ".." {
		return "upload"
	}
	return name
}
