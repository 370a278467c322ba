package domain

import "time"

const (
	RoleUser    = "user"
	RoleCreator = "creator"
)

// User represents the identity behind a marketplace session.
type User struct {
	ID        string            `json:"id" yaml:"id"`
	Name      string            `json:"name" yaml:"name"`
	Email     string            `json:"email,omitempty" yaml:"email"`
	AvatarURL string            `json:"avatar_url,omitempty" yaml:"avatar_url"`
	Role      string            `json:"role" yaml:"role"`
	Balance   float64           `json:"balance" yaml:"balance"`
	JoinDate  string            `json:"join_date" yaml:"join_date"`
	Metadata  map[string]string `json:"metadata,omitempty" yaml:"metadata,omitempty"`
	CreatedAt time.Time         `json:"created_at" yaml:"-"`
	UpdatedAt time.Time         `json:"updated_at" yaml:"-"`
}

// Touch refreshes the bookkeeping timestamps.
func (u *User) Touch(now time.Time) {
	if u == nil {
		return
	}
	u.UpdatedAt = now
	if u.CreatedAt.IsZero() {
		u.CreatedAt = now
	}
}

// CanAfford reports whether the wallet balance covers amount.
func (u *User) CanAfford(amount float64) bool {
	return u != nil && RoundMoney(u.Balance) >= RoundMoney(amount)
}
