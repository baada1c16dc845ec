package domain

import (
	"time"

	"gorm.io/datatypes"
)

// RecommendationRequestLog records one served recommendation request.
type RecommendationRequestLog struct {
	ID          string            `gorm:"column:id;type:text;primaryKey" json:"id"`
	ShopDomain  string            `gorm:"column:shop_domain;type:text;not null;index" json:"shop_domain"`
	ProductID   string            `gorm:"column:product_id;type:text;not null" json:"product_id"`
	UserID      string            `gorm:"column:user_id;type:text" json:"user_id,omitempty"`
	SessionID   string            `gorm:"column:session_id;type:text" json:"session_id,omitempty"`
	Strategy    Strategy          `gorm:"column:strategy;type:text" json:"strategy"`
	ResultCount int               `gorm:"column:result_count" json:"result_count"`
	Context     datatypes.JSONMap `gorm:"column:context;type:jsonb" json:"context,omitempty"`
	RequestedAt time.Time         `gorm:"column:requested_at;autoCreateTime" json:"requested_at"`
}

func (RecommendationRequestLog) TableName() string {
	return "recommendation_requests"
}
