package entity

import "time"

// TierPrivileges is the fixed privilege schema serialized into the tier row.
// Missing fields decode to their zero value, so an absent privilege is always
// a denied privilege.
type TierPrivileges struct {
	AdFree             bool  `json:"ad_free"`
	HiResGallery       bool  `json:"hi_res_gallery"`
	ExclusiveArticles  bool  `json:"exclusive_articles"`
	MonthlyBonusPoints int64 `json:"monthly_bonus_points"`
	GalleryQuotaMB     int64 `json:"gallery_quota_mb"`
}

// MembershipTier is read-mostly reference data; this core never writes it.
type MembershipTier struct {
	ID         string
	Name       string
	Rank       int32
	Privileges TierPrivileges
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

const FreeTierID = "free"

// FreeTier is the sentinel returned when a user has no active subscription.
func FreeTier() *MembershipTier {
	return &MembershipTier{
		ID:   FreeTierID,
		Name: "Free",
		Rank: 0,
	}
}
