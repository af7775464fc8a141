package session

import "time"

type Session struct {
	SessionID    string     `bson:"session_id" json:"sessionId"`
	UserID       string     `bson:"user_id" json:"userId"`
	IsActive     bool       `bson:"is_active" json:"isActive"`
	ExpiresAt    time.Time  `bson:"expires_at" json:"expiresAt"`
	CreatedAt    time.Time  `bson:"created_at" json:"createdAt"`
	LogoutAt     *time.Time `bson:"logout_at,omitempty" json:"logoutAt,omitempty"`
	LastActiveAt time.Time  `bson:"last_active_at" json:"lastActiveAt"`
}

// IsValid reports whether the session can still authenticate requests.
func (s *Session) IsValid(now time.Time) bool {
	return s.IsActive && s.LogoutAt == nil && now.Before(s.ExpiresAt)
}
