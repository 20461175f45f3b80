// Package models defines the enrolled senior-citizen record as the core
// reads it. The record store owns these rows; the verification pipeline only
// ever looks them up.
package models

import (
	"time"

	"botica/pkg/domain"
)

// Senior is an enrolled senior-citizen record resolved from a biometric
// match. Read-only from the core's perspective.
type Senior struct {
	ID           domain.SeniorID
	FirstName    string
	LastName     string
	Birthdate    *time.Time
	Address      string
	HealthStatus string
}

// FullName returns the display name shown to the cashier on a successful
// verification.
func (s *Senior) FullName() string {
	if s.FirstName == "" {
		return s.LastName
	}
	if s.LastName == "" {
		return s.FirstName
	}
	return s.FirstName + " " + s.LastName
}
