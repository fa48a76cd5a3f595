package domain

import "time"

// CartLine is a single menu item a customer has put in their cart.
type CartLine struct {
	ID         string    `bson:"_id,omitempty" json:"_id"`
	OwnerEmail string    `bson:"email" json:"email"`
	MenuItemID string    `bson:"menuId" json:"menuId"`
	Name       string    `bson:"name" json:"name"`
	Image      string    `bson:"image,omitempty" json:"image,omitempty"`
	Price      float64   `bson:"price" json:"price"`
	AddedAt    time.Time `bson:"added_at" json:"added_at"`
}
