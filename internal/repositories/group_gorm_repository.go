package repositories

import (
	"errors"
	"fmt"
	"strings"

	"peerfinder/internal/models"

	"gorm.io/gorm"
)

// GORMGroupRepository is a GORM implementation of GroupRepository.
type GORMGroupRepository struct {
	db *gorm.DB
}

// NewGORMGroupRepository creates a new instance of GORMGroupRepository.
func NewGORMGroupRepository(db *gorm.DB) *GORMGroupRepository {
	return &GORMGroupRepository{
		db: db,
	}
}

// GetByID retrieves a single group by its id.
func (r *GORMGroupRepository) GetByID(id uint) (*models.Group, error) {
	var group models.Group
	if err := r.db.First(&group, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("group %d: %w", id, models.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get group %d: %w", id, err)
	}
	return &group, nil
}

// GetByName retrieves a single group by its exact name.
func (r *GORMGroupRepository) GetByName(name string) (*models.Group, error) {
	var group models.Group
	if err := r.db.First(&group, "name = ?", name).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("group %q: %w", name, models.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get group %q: %w", name, err)
	}
	return &group, nil
}

// GetAll retrieves every group.
func (r *GORMGroupRepository) GetAll() ([]models.Group, error) {
	var groups []models.Group
	if err := r.db.Find(&groups).Error; err != nil {
		return nil, fmt.Errorf("failed to get all groups: %w", err)
	}
	return groups, nil
}

// likeEscaper neutralizes the LIKE metacharacters so a prefix is always
// matched literally.
var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// SearchByClassPrefix returns groups whose Class starts with prefix,
// case-insensitively. An empty prefix matches every group.
func (r *GORMGroupRepository) SearchByClassPrefix(prefix string) ([]models.Group, error) {
	var groups []models.Group
	pattern := likeEscaper.Replace(strings.ToLower(prefix)) + "%"
	if err := r.db.Where(`LOWER(class) LIKE ? ESCAPE '\'`, pattern).Find(&groups).Error; err != nil {
		return nil, fmt.Errorf("failed to search groups by class prefix %q: %w", prefix, err)
	}
	return groups, nil
}

// UpdateFields applies a partial update to a group's descriptive fields.
// Callers must never include owner_id or students in fields.
func (r *GORMGroupRepository) UpdateFields(id uint, fields map[string]interface{}) error {
	if len(fields) == 0 {
		return nil
	}
	res := r.db.Model(&models.Group{}).Where("id = ?", id).Updates(fields)
	if res.Error != nil {
		return fmt.Errorf("failed to update group %d: %w", id, res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("group %d: %w", id, models.ErrNotFound)
	}
	return nil
}
