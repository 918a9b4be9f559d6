package models

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"go.mongodb.org/mongo-driver/v2/bson"
)

// Picture references an asset on the image host.
type Picture struct {
	URL      string `json:"url" bson:"url" validate:"required"`
	PublicID string `json:"public_id" bson:"public_id"`
}

type Product struct {
	ID          bson.ObjectID   `json:"_id" bson:"_id,omitempty"`
	Name        string          `json:"name" bson:"name"`
	Description string          `json:"description" bson:"description"`
	Price       decimal.Decimal `json:"price" bson:"price"`
	Category    string          `json:"category" bson:"category"`
	Pictures    []Picture       `json:"pictures" bson:"pictures"`
	CreatedAt   time.Time       `json:"createdAt" bson:"created_at"`
	UpdatedAt   time.Time       `json:"updatedAt" bson:"updated_at"`
}

func (p *Product) SetTimestamps() {
	now := time.Now().UTC()
	if p.CreatedAt.IsZero() {
		p.CreatedAt = now
	}
	p.UpdatedAt = now
}

// Clone returns a copy that shares no mutable state with p.
func (p *Product) Clone() *Product {
	out := *p
	out.Pictures = append([]Picture{}, p.Pictures...)
	return &out
}

// ProductRequest carries every product field; updates replace all of them.
type ProductRequest struct {
	Name        string          `json:"name" validate:"required"`
	Description string          `json:"description" validate:"required"`
	Price       decimal.Decimal `json:"price"`
	Category    string          `json:"category" validate:"required"`
	Images      []Picture       `json:"images" validate:"required,min=1,dive"`
}

func (req *ProductRequest) Normalize() {
	req.Name = strings.TrimSpace(req.Name)
	req.Description = strings.TrimSpace(req.Description)
	req.Category = strings.TrimSpace(req.Category)
}

func (req *ProductRequest) ToProduct() *Product {
	product := &Product{
		ID:          bson.NewObjectID(),
		Name:        req.Name,
		Description: req.Description,
		Price:       req.Price,
		Category:    req.Category,
		Pictures:    append([]Picture{}, req.Images...),
	}
	product.SetTimestamps()
	return product
}

// ApplyTo overwrites every editable field of p.
func (req *ProductRequest) ApplyTo(p *Product) {
	p.Name = req.Name
	p.Description = req.Description
	p.Price = req.Price
	p.Category = req.Category
	p.Pictures = append([]Picture{}, req.Images...)
	p.SetTimestamps()
}

// ProductDetail is a product and up to five others from its category.
type ProductDetail struct {
	Product *Product   `json:"product"`
	Similar []*Product `json:"similar"`
}
