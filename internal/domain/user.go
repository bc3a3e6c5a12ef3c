package domain

import "time"

// User represents an operations user who can be assigned incidents.
type User struct {
	ID        string
	Name      string
	Email     string
	CreatedAt time.Time
}
