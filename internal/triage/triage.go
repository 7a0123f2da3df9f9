// Package triage classifies incoming support messages.
package triage

import (
	"fmt"
	"strings"
)

type Priority string

const (
	High   Priority = "high"
	Medium Priority = "medium"
	Low    Priority = "low"
)

type Status string

const (
	StatusNew        Status = "new"
	StatusInProgress Status = "in-progress"
	StatusResolved   Status = "resolved"
)

var (
	urgentKeywords = []string{"urgent", "emergency", "critical", "asap", "immediately"}
	mediumKeywords = []string{"important", "issue", "problem", "help", "error"}
)

// Classify looks for keywords in subject and body. Matching is a plain
// substring test, so "helpful" counts as "help".
func Classify(subject, body string) Priority {
	text := strings.ToLower(subject + " " + body)
	if containsAny(text, urgentKeywords) {
		return High
	}
	if containsAny(text, mediumKeywords) {
		return Medium
	}
	return Low
}

func containsAny(text string, words []string) bool {
	for _, w := range words {
		if strings.Contains(text, w) {
			return true
		}
	}
	return false
}

// Rank orders priorities for sorting, high first.
func Rank(p Priority) int {
	switch p {
	case High:
		return 0
	case Medium:
		return 1
	default:
		return 2
	}
}

func ParseStatus(s string) (Status, error) {
	switch Status(s) {
	case StatusNew, StatusInProgress, StatusResolved:
		return Status(s), nil
	}
	return "", fmt.Errorf("unknown message status %q", s)
}

func ParsePriority(s string) (Priority, error) {
	switch Priority(s) {
	case High, Medium, Low:
		return Priority(s), nil
	}
	return "", fmt.Errorf("unknown message priority %q", s)
}

// ContactMethod is how the sender wants to be answered.
type ContactMethod string

const (
	ContactEmail ContactMethod = "email"
	ContactPhone ContactMethod = "phone"
	ContactBoth  ContactMethod = "both"
)

// CheckContact verifies the sender left the details the method needs.
func CheckContact(method ContactMethod, email, phone string) error {
	needEmail := method == ContactEmail || method == ContactBoth
	needPhone := method == ContactPhone || method == ContactBoth
	if method != ContactEmail && method != ContactPhone && method != ContactBoth {
		return fmt.Errorf("unknown contact method %q", method)
	}
	if needEmail && strings.TrimSpace(email) == "" {
		return fmt.Errorf("email is required for contact method %q", method)
	}
	if needPhone && strings.TrimSpace(phone) == "" {
		return fmt.Errorf("phone is required for contact method %q", method)
	}
	return nil
}
