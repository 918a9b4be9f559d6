package models

import "github.com/shopspring/decimal"

type CartRequest struct {
	UserID    string           `json:"userId" binding:"required"`
	ProductID string           `json:"productId" binding:"required"`
	Price     *decimal.Decimal `json:"price" binding:"required"`
}

type PlaceOrderRequest struct {
	UserID  string `json:"userId" binding:"required"`
	Cart    Cart   `json:"cart"`
	Country string `json:"country"`
	Address string `json:"address"`
}

type MarkShippedRequest struct {
	OwnerID string `json:"ownerId" binding:"required"`
}

type SignupRequest struct {
	Name     string `json:"name" validate:"required"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type LoginRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type DeleteProductRequest struct {
	UserID string `json:"user_id"`
}

type PaymentRequest struct {
	Amount decimal.Decimal `json:"amount"`
}
