package models

import "time"

// User is an account identity. The password hash never leaves the auth layer:
// it is excluded from JSON so no handler can return it by accident.
type User struct {
	ID             uint      `json:"id" gorm:"primaryKey"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
	Email          string    `json:"email" gorm:"size:255;not null;uniqueIndex"`
	Name           string    `json:"name" gorm:"size:50;not null"`
	HashedPassword []byte    `json:"-" gorm:"not null"`
	Tasks          []Task    `json:"-" gorm:"foreignKey:UserID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE;"`
}
