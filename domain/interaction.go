package domain

import "time"

type CartEventType string

const (
	CartEventAdd    CartEventType = "ADD"
	CartEventRemove CartEventType = "REMOVE"
)

// ProductView, CartEvent, Order and OrderItem form the interaction log.
// Rows are append-only.

type ProductView struct {
	ID         uint64    `gorm:"primaryKey;autoIncrement" json:"id"`
	ProductID  string    `gorm:"column:product_id;type:text;not null;index:idx_views_shop_product" json:"product_id"`
	VariantID  string    `gorm:"column:variant_id;type:text" json:"variant_id,omitempty"`
	ShopDomain string    `gorm:"column:shop_domain;type:text;not null;index:idx_views_shop_product;index:idx_views_shop_session" json:"shop_domain"`
	SessionID  string    `gorm:"column:session_id;type:text;not null;index:idx_views_shop_session" json:"session_id"`
	UserID     string    `gorm:"column:user_id;type:text;index" json:"user_id,omitempty"`
	ViewedAt   time.Time `gorm:"column:viewed_at;not null;index" json:"viewed_at"`
}

func (ProductView) TableName() string {
	return "product_views"
}

type CartEvent struct {
	ID         uint64        `gorm:"primaryKey;autoIncrement" json:"id"`
	ProductID  string        `gorm:"column:product_id;type:text;not null" json:"product_id"`
	VariantID  string        `gorm:"column:variant_id;type:text" json:"variant_id,omitempty"`
	Quantity   int           `gorm:"column:quantity;not null;default:1" json:"quantity"`
	Price      float64       `gorm:"column:price;type:numeric" json:"price"`
	ShopDomain string        `gorm:"column:shop_domain;type:text;not null;index" json:"shop_domain"`
	SessionID  string        `gorm:"column:session_id;type:text;not null" json:"session_id"`
	UserID     string        `gorm:"column:user_id;type:text" json:"user_id,omitempty"`
	EventType  CartEventType `gorm:"column:event_type;type:text;not null" json:"event_type"`
	Timestamp  time.Time     `gorm:"column:timestamp;not null" json:"timestamp"`
}

func (CartEvent) TableName() string {
	return "cart_events"
}

type Order struct {
	ID          uint64      `gorm:"primaryKey;autoIncrement" json:"-"`
	OrderID     string      `gorm:"column:order_id;type:text;not null;uniqueIndex:idx_orders_order_shop" json:"order_id"`
	ShopDomain  string      `gorm:"column:shop_domain;type:text;not null;uniqueIndex:idx_orders_order_shop;index" json:"shop_domain"`
	UserID      string      `gorm:"column:user_id;type:text" json:"user_id,omitempty"`
	SessionID   string      `gorm:"column:session_id;type:text" json:"session_id"`
	TotalPrice  float64     `gorm:"column:total_price;type:numeric" json:"total_price"`
	CompletedAt time.Time   `gorm:"column:completed_at;not null;index" json:"completed_at"`
	Items       []OrderItem `gorm:"-" json:"items"`
}

func (Order) TableName() string {
	return "orders"
}

type OrderItem struct {
	ID         uint64  `gorm:"primaryKey;autoIncrement" json:"-"`
	OrderID    string  `gorm:"column:order_id;type:text;not null;index:idx_order_items_order" json:"order_id"`
	ShopDomain string  `gorm:"column:shop_domain;type:text;not null;index:idx_order_items_order;index:idx_order_items_product" json:"shop_domain"`
	ProductID  string  `gorm:"column:product_id;type:text;not null;index:idx_order_items_product" json:"product_id"`
	VariantID  string  `gorm:"column:variant_id;type:text" json:"variant_id,omitempty"`
	Quantity   int     `gorm:"column:quantity;not null;default:1" json:"quantity"`
	Price      float64 `gorm:"column:price;type:numeric" json:"price"`
}

func (OrderItem) TableName() string {
	return "order_items"
}

// Viewer identifies one distinct (session, user) pair that viewed a product.
type Viewer struct {
	SessionID string
	UserID    string
}
