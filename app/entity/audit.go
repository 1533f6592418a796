package entity

import "time"

type RiskLevel string

const (
	RiskLow    RiskLevel = "low"
	RiskMedium RiskLevel = "medium"
	RiskHigh   RiskLevel = "high"
)

// AuditRecord is an immutable trail entry for order transitions and
// entitlement dispatches.
type AuditRecord struct {
	ID         uint64
	Actor      string
	Action     string
	TargetType string
	TargetID   string
	Before     string
	After      string
	Risk       RiskLevel
	CreatedAt  time.Time
}
