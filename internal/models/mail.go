package models

import (
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
)

// Verification purposes. A code issued for one purpose cannot be consumed for
// another.
const (
	PurposeRegister      = "register"
	PurposeResetPassword = "reset-password"
)

// ValidPurpose reports whether p is a known verification purpose.
func ValidPurpose(p string) bool {
	return p == PurposeRegister || p == PurposeResetPassword
}

// Mail represents a verification-code record in the mails collection.
// Records are never deleted; consumption flips IsUsed exactly once via an
// atomic conditional update. At most one record per (email, purpose) should be
// active at a time, but the store does not enforce exclusivity — consumption
// always picks the most recently created match.
type Mail struct {
	ID        bson.ObjectID `bson:"_id,omitempty" json:"_id"`
	Email     string        `bson:"email" json:"email"`
	Code      string        `bson:"code" json:"code"`
	Purpose   string        `bson:"purpose" json:"purpose"`
	IsUsed    bool          `bson:"isUsed" json:"isUsed"`
	CreatedAt time.Time     `bson:"createdAt" json:"createdAt"`
	ExpireAt  time.Time     `bson:"expireAt" json:"expireAt"`
}

// Expired reports whether the record's expiry has passed at the given time.
func (m *Mail) Expired(now time.Time) bool {
	return !now.Before(m.ExpireAt)
}
