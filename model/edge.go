package model

import "time"

// Edge is a directed edge of the social graph from a source to a destination account
type Edge struct {
	Source    string    `json:"source"`
	Target    string    `json:"target"`
	CreatedAt time.Time `json:"created_at,omitempty"`
}

// ConnectionType distinguishes follower from friend connections of an account
type ConnectionType string

const (
	ConnectionTypeFollower ConnectionType = "follower"
	ConnectionTypeFriend   ConnectionType = "friend"
)
