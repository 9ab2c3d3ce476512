package main

import (
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"
)

var emailRE = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

func validEmail(email string) bool {
	return emailRE.MatchString(email)
}

// validPassword requires at least 8 alphanumeric characters with at least
// one letter and one digit. RE2 has no lookahead, so the checks are explicit.
func validPassword(pw string) bool {
	if utf8.RuneCountInString(pw) < 8 {
		return false
	}
	var hasLetter, hasDigit bool
	for _, r := range pw {
		switch {
		case unicode.IsLetter(r):
			hasLetter = true
		case unicode.IsDigit(r):
			hasDigit = true
		default:
			return false
		}
	}
	return hasLetter && hasDigit
}

func validName(name string) bool {
	n := utf8.RuneCountInString(strings.TrimSpace(name))
	return n >= 2 && n <= 50
}

func validTaskTitle(title string) bool {
	n := utf8.RuneCountInString(strings.TrimSpace(title))
	return n >= 3 && n <= 100
}

func validTaskDescription(desc string) bool {
	return utf8.RuneCountInString(desc) <= 500
}

var taskStatuses = map[string]bool{
	"pending":     true,
	"in-progress": true,
	"completed":   true,
}

var taskPriorities = map[string]bool{
	"low":    true,
	"medium": true,
	"high":   true,
}
