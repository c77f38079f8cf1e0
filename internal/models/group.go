package models

import (
	"time"

	"gorm.io/gorm"
)

// Group represents a study group for a class.
type Group struct {
	ID          uint   `json:"GroupId" gorm:"primaryKey"`
	Class       string `json:"Class" validate:"required,max=100"`
	Name        string `json:"Name" gorm:"uniqueIndex;type:varchar(255)" validate:"required,min=1,max=255"`
	Link        string `json:"Link" validate:"omitempty,max=500"`
	Modality    string `json:"Modality" validate:"required,oneof=In-Person Online Hybrid"`
	Description string `json:"Description" validate:"omitempty,max=1000"`
	Size        int    `json:"Size" validate:"omitempty,gte=0"` // advisory target size, not enforced
	Location    string `json:"Location" validate:"omitempty,max=255"`
	MeetingTime string `json:"MeetingTime" validate:"omitempty,max=100"`
	OwnerID     uint   `json:"Owner" gorm:"index" validate:"required"`
	// Students always contains OwnerID. Mutated only together with the
	// matching User.Groups entries.
	Students  IDList         `json:"Students" gorm:"serializer:json"`
	CreatedAt time.Time      `json:"-"`
	UpdatedAt time.Time      `json:"-"`
	DeletedAt gorm.DeletedAt `json:"-" gorm:"index"`
}

// GroupResponse is the wire format for group listings and details.
type GroupResponse struct {
	GroupID     uint   `json:"groupId"`
	Class       string `json:"class"`
	Name        string `json:"name"`
	Link        string `json:"link"`
	Modality    string `json:"modality"`
	Description string `json:"description"`
	Size        int    `json:"size"`
	Location    string `json:"location"`
	MeetingTime string `json:"meetingTime"`
	Owner       uint   `json:"owner"`
	Students    IDList `json:"students"`
}

func (g *Group) ToResponse() GroupResponse {
	return GroupResponse{
		GroupID:     g.ID,
		Class:       g.Class,
		Name:        g.Name,
		Link:        g.Link,
		Modality:    g.Modality,
		Description: g.Description,
		Size:        g.Size,
		Location:    g.Location,
		MeetingTime: g.MeetingTime,
		Owner:       g.OwnerID,
		Students:    g.Students,
	}
}
