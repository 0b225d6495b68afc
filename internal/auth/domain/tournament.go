package domain

import "time"

// Tournament is the event entity users register for. The CRUD surface lives
// outside this service; the type exists here so ability rules can be
// evaluated against concrete instances.
type Tournament struct {
	ID        string
	Name      string
	Venue     string
	StartsAt  time.Time
	CreatedBy string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// AbilitySubject tags Tournament for permission rule matching.
func (Tournament) AbilitySubject() string { return "Tournament" }
