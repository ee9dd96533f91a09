package entity

import "time"

// Member levels. Anything below LevelAdmin is a standard member.
const (
	LevelMember = 1
	LevelAdmin  = 5
)

// User is the aggregate root for the membership domain. All string fields are
// stored in their normalized form (title-cased names, lowercased unaccented
// email); normalization happens in the application layer before any write.
type User struct {
	ID          int64
	Surname     string
	GivenName   string
	DateOfBirth time.Time
	Email       string
	Level       int
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

func (u *User) IsAdmin() bool { return u.Level == LevelAdmin }
