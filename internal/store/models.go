package store

import "time"

type Plan string

const (
	PlanFree  Plan = "free"
	PlanBasic Plan = "basic"
	PlanPro   Plan = "pro"
)

// Account is one row per Telegram user. ProUntil is set only while the
// plan was most recently activated as pro; once it is in the past the
// account reads as free (lazy expiry on CurrentPlan).
type Account struct {
	UserID    int64  `gorm:"primaryKey"`
	Username  string `gorm:"size:64"`
	FirstName string `gorm:"size:64"`
	Plan      Plan   `gorm:"size:16;not null;default:'free'"`
	FreeUses  int    `gorm:"not null;default:0"`
	PaidLeft  int    `gorm:"not null;default:0"`
	ProUntil  *time.Time
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Generation is an append-only audit row, one per completed
// generation. Never read back on the hot path.
type Generation struct {
	ID        uint  `gorm:"primaryKey"`
	UserID    int64 `gorm:"index"`
	Product   string
	CreatedAt time.Time
}

// Usage is the plan-aware result of RecordUse and Usage: which counter
// applies depends on Plan.
type Usage struct {
	Plan     Plan
	FreeUses int
	PaidLeft int
	ProUntil *time.Time
}

// Stats are the aggregates behind /admin and the stats endpoint.
type Stats struct {
	TotalUsers       int64 `json:"total_users"`
	PaidUsers        int64 `json:"paid_users"`
	TotalGenerations int64 `json:"total_generations"`
	TodayGenerations int64 `json:"today_generations"`
}
