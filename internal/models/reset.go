package models

import (
	"time"
)

// ==============================================
// PASSWORD RESET MODEL
// ==============================================

// PasswordReset tracks one reset-grant issued after a successful OTP
// verification. Only the most recent record per user is ever evaluated.
type PasswordReset struct {
	ID        int       `db:"id"`
	UserID    int       `db:"user_id"`
	ExpiresAt time.Time `db:"expires_at"`
	Used      bool      `db:"used"`
	Attempts  int       `db:"attempts"`
	CreatedAt time.Time `db:"created_at"`
}

// ResetMaxAttempts is the abuse ceiling: a record at or past this many
// failed submissions blocks further resets regardless of token validity.
const ResetMaxAttempts = 4

// ResetRecordTTL mirrors the grant token's own expiry as a safety net.
const ResetRecordTTL = 10 * time.Minute

func (p *PasswordReset) IsExpired() bool {
	return time.Now().After(p.ExpiresAt)
}

// Blocked reports whether the record has hit the attempts ceiling.
func (p *PasswordReset) Blocked() bool {
	return p.Attempts >= ResetMaxAttempts
}
