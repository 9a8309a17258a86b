// Package domain contains entities without transport or storage logic.
package domain

import (
	"strings"
	"unicode/utf8"
)

const (
	MaxUserIDLen   = 50
	MaxUsernameLen = 50
	MaxTopicLen    = 200
	MaxSessionName = 100
)

type UserID string

// NormalizeName trims a display name and checks its length in characters.
func NormalizeName(raw string) (string, error) {
	name := strings.TrimSpace(raw)
	if name == "" {
		return "", ErrUsernameEmpty
	}
	if utf8.RuneCountInString(name) > MaxUsernameLen {
		return "", ErrUsernameTooLong
	}
	return name, nil
}

// NormalizeTopic trims a topic. An empty topic clears it.
func NormalizeTopic(raw string) (string, error) {
	topic := strings.TrimSpace(raw)
	if utf8.RuneCountInString(topic) > MaxTopicLen {
		return "", ErrTopicTooLong
	}
	return topic, nil
}

// NormalizeSessionName trims a session name and checks its length.
func NormalizeSessionName(raw string) (string, error) {
	name := strings.TrimSpace(raw)
	if name == "" || utf8.RuneCountInString(name) > MaxSessionName {
		return "", ErrInvalidSessionName
	}
	return name, nil
}

// ValidUserID reports why a client supplied id cannot be used, or nil.
func ValidUserID(id UserID) error {
	if id == "" {
		return ErrMissingIdentity
	}
	if utf8.RuneCountInString(string(id)) > MaxUserIDLen {
		return ErrUserIDTooLong
	}
	return nil
}
