package models

import (
	"time"

	"gorm.io/gorm"
)

// User represents a registered student.
type User struct {
	ID               uint   `json:"UserId" gorm:"primaryKey"`
	FirstName        string `json:"FirstName" validate:"required,max=100"`
	LastName         string `json:"LastName" validate:"required,max=100"`
	DisplayName      string `json:"DisplayName" validate:"required,min=2,max=100"`
	Email            string `json:"Email" gorm:"uniqueIndex;type:varchar(255)" validate:"required,email"`
	Password         string `json:"-" gorm:"type:varchar(255)"` // bcrypt hash, never serialized
	Verified         bool   `json:"-" gorm:"default:false"`
	VerificationCode string `json:"-" gorm:"type:varchar(8)"`
	// Groups and OwnerOfGroups mirror the membership stored on Group.Students.
	// Both sides of the relation are always written in one transaction.
	Groups        IDList         `json:"Group" gorm:"serializer:json"`
	OwnerOfGroups IDList         `json:"OwnerOfGroup" gorm:"serializer:json"`
	CreatedAt     time.Time      `json:"-"`
	UpdatedAt     time.Time      `json:"-"`
	DeletedAt     gorm.DeletedAt `json:"-" gorm:"index"`
}
