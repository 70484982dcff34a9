package domain

import "time"

// DynamicCode is the single pending one-time code for an owner.
// Only the bcrypt hash of the code is kept.
type DynamicCode struct {
	OwnerID    string    `json:"owner_id" dynamodbav:"owner_id"`
	HashedCode string    `json:"hashed_code" dynamodbav:"hashed_code"`
	ExpiresAt  time.Time `json:"expires_at" dynamodbav:"-"`
}

// Expired reports whether the record is no longer usable at now.
func (c DynamicCode) Expired(now time.Time) bool {
	return !now.Before(c.ExpiresAt)
}
