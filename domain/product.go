package domain

import (
	"time"

	"gorm.io/datatypes"
)

// CREATE TABLE public.products (
//     id              BIGINT GENERATED ALWAYS AS IDENTITY PRIMARY KEY,
//     product_id      TEXT NOT NULL,
//     shop_domain     TEXT NOT NULL,
//     title           TEXT,
//     type            TEXT,
//     vendor          TEXT,
//     price           NUMERIC DEFAULT 0,
//     tags            JSONB DEFAULT '[]',
//     collections     JSONB DEFAULT '[]',
//     popularity      DOUBLE PRECISION DEFAULT 0,
//     created_at      TIMESTAMPTZ DEFAULT NOW(),
//     updated_at      TIMESTAMPTZ DEFAULT NOW(),
//     UNIQUE (product_id, shop_domain)
// );

type Product struct {
	ID          uint64                      `gorm:"primaryKey;autoIncrement" json:"-"`
	ProductID   string                      `gorm:"column:product_id;type:text;not null;uniqueIndex:idx_products_product_shop" json:"product_id"`
	ShopDomain  string                      `gorm:"column:shop_domain;type:text;not null;uniqueIndex:idx_products_product_shop;index" json:"shop_domain"`
	Title       string                      `gorm:"column:title;type:text" json:"title"`
	Type        string                      `gorm:"column:type;type:text" json:"type,omitempty"`
	Vendor      string                      `gorm:"column:vendor;type:text" json:"vendor,omitempty"`
	Price       float64                     `gorm:"column:price;type:numeric;default:0" json:"price"`
	Tags        datatypes.JSONSlice[string] `gorm:"column:tags;type:jsonb" json:"tags"`
	Collections datatypes.JSONSlice[string] `gorm:"column:collections;type:jsonb" json:"collections"`
	Popularity  float64                     `gorm:"column:popularity;default:0" json:"popularity"`
	CreatedAt   time.Time                   `gorm:"column:created_at" json:"created_at"`
	UpdatedAt   time.Time                   `gorm:"column:updated_at" json:"updated_at"`
}

func (Product) TableName() string {
	return "products"
}

const UnknownProductTitle = "Unknown Product"

// ProductAttributes carries the attribute data an ingestion path knows about a
// product. Zero values mean "absent" except Price, where nil means absent.
type ProductAttributes struct {
	ProductID   string
	Title       string
	Type        string
	Vendor      string
	Price       *float64
	Tags        []string
	Collections []string
}

// Float64 returns a pointer to v, handy for ProductAttributes.Price.
func Float64(v float64) *float64 {
	return &v
}
