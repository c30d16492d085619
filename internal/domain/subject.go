package domain

import "context"

// Subject is a resolved player or team from the reference database.
type Subject struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Sport    string `json:"sport"`
	Team     string `json:"team,omitempty"`
	TeamName string `json:"team_name,omitempty"`
}

// SubjectResolver maps a display name from the odds feed to a reference
// subject. It returns ErrNotFound when the name cannot be matched.
type SubjectResolver interface {
	Resolve(ctx context.Context, sport, name string) (Subject, error)
}
