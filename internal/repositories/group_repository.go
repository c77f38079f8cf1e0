package repositories

import "peerfinder/internal/models"

// GroupRepository defines read and single-document write access to groups.
// Creation and deletion live on MembershipRepository because they always pair
// with updates to the owning users.
type GroupRepository interface {
	GetByID(id uint) (*models.Group, error)
	GetByName(name string) (*models.Group, error)
	GetAll() ([]models.Group, error)
	SearchByClassPrefix(prefix string) ([]models.Group, error)
	UpdateFields(id uint, fields map[string]interface{}) error
}
