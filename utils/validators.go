package utils

import (
	"regexp"
	"strings"
)

var emailRegex = regexp.MustCompile(`^[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}$`)

// Branches recognized by the campus registration forms.
var ValidBranches = []string{"CSE", "ECE", "EEE", "CIVIL", "MECH"}

func IsValidEmail(email string) bool {
	return emailRegex.MatchString(email)
}

func IsValidBranch(branch string) bool {
	for _, b := range ValidBranches {
		if b == branch {
			return true
		}
	}
	return false
}

// NormalizeIDNumber uppercases and trims a campus ID number before matching.
func NormalizeIDNumber(id string) string {
	return strings.ToUpper(strings.TrimSpace(id))
}
