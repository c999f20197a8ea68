package models

import (
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
)

type ProductImage struct {
	Url        string `bson:"url" json:"url"`
	ObjectName string `bson:"objectName" json:"-"`
	MimeType   string `bson:"mimeType" json:"mimeType"`
	SizeBytes  int64  `bson:"sizeBytes" json:"sizeBytes"`
	SortOrder  int    `bson:"sortOrder" json:"sortOrder"`
}

type Inventory struct {
	Quantity          int `bson:"quantity" json:"quantity"`
	LowStockThreshold int `bson:"lowStockThreshold" json:"lowStockThreshold"`
}

func (i Inventory) InStock() bool { return i.Quantity > 0 }

func (i Inventory) LowStock() bool {
	return i.Quantity > 0 && i.Quantity <= i.LowStockThreshold
}

type Product struct {
	Id                 bson.ObjectID   `bson:"_id" json:"id"`
	Name               string          `bson:"name" json:"name"`
	Price              float64         `bson:"price" json:"price"`
	Slug               string          `bson:"slug" json:"slug"`
	CategoryIds        []bson.ObjectID `bson:"categoryIds" json:"categoryIds"`
	Images             []ProductImage  `bson:"images" json:"images"`
	Inventory          Inventory       `bson:"inventory" json:"inventory"`
	IsTrending         bool            `bson:"isTrending" json:"isTrending"`
	Materials          []string        `bson:"materials" json:"materials"`
	Colors             []string        `bson:"colors" json:"colors"`
	Description        string          `bson:"description" json:"description"`
	DescriptionFull    string          `bson:"descriptionFull" json:"descriptionFull"`
	Dimensions         string          `bson:"dimensions" json:"dimensions"`
	Weight             string          `bson:"weight" json:"weight"`
	SimilarProductsIds []bson.ObjectID `bson:"similarProductsIds" json:"similarProductsIds"`
	IsDisabled         bool            `bson:"isDisabled" json:"isDisabled"`
	DeletedAt          *time.Time      `bson:"deletedAt,omitempty" json:"deletedAt,omitempty"` // soft delete marker
	CreatedAt          time.Time       `bson:"createdAt" json:"createdAt"`
	UpdatedAt          time.Time       `bson:"updatedAt" json:"updatedAt"`
}

// ImageUrls returns the public urls of the product images in display order.
func (p *Product) ImageUrls() []string {
	urls := make([]string, 0, len(p.Images))
	for _, img := range p.Images {
		urls = append(urls, img.Url)
	}
	return urls
}
