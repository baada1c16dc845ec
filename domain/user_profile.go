package domain

import (
	"time"

	"gorm.io/datatypes"
)

const MaxProfileHistory = 100

type UserProfile struct {
	ID                  uint64                      `gorm:"primaryKey;autoIncrement" json:"-"`
	UserID              string                      `gorm:"column:user_id;type:text;not null;uniqueIndex:idx_profiles_user_shop" json:"user_id"`
	ShopDomain          string                      `gorm:"column:shop_domain;type:text;not null;uniqueIndex:idx_profiles_user_shop" json:"shop_domain"`
	PreferredCategories datatypes.JSONSlice[string] `gorm:"column:preferred_categories;type:jsonb" json:"preferred_categories"`
	PreferredBrands     datatypes.JSONSlice[string] `gorm:"column:preferred_brands;type:jsonb" json:"preferred_brands"`
	ViewedProducts      datatypes.JSONSlice[string] `gorm:"column:viewed_products;type:jsonb" json:"viewed_products"`
	PurchasedProducts   datatypes.JSONSlice[string] `gorm:"column:purchased_products;type:jsonb" json:"purchased_products"`
	LastActive          time.Time                   `gorm:"column:last_active" json:"last_active"`
}

func (UserProfile) TableName() string {
	return "user_profiles"
}

// HasSignals reports whether the profile carries anything the personalized
// tier can match on.
func (p UserProfile) HasSignals() bool {
	return len(p.PreferredCategories) > 0 || len(p.PreferredBrands) > 0 || len(p.ViewedProducts) > 0
}

// ProfileSignals are the identifying signals an event contributes to a profile.
type ProfileSignals struct {
	ViewedProduct     string
	PurchasedProducts []string
	Category          string
	Brand             string
	At                time.Time
}
