package repositories

import (
	"errors"
	"fmt"

	"peerfinder/internal/models"

	"gorm.io/gorm"
)

// GORMMembershipRepository applies paired user/group updates inside a single
// database transaction, so the bidirectional membership relation cannot be
// observed half-written.
type GORMMembershipRepository struct {
	db *gorm.DB
}

// NewGORMMembershipRepository creates a new instance of GORMMembershipRepository.
func NewGORMMembershipRepository(db *gorm.DB) *GORMMembershipRepository {
	return &GORMMembershipRepository{
		db: db,
	}
}

func findUser(tx *gorm.DB, id uint) (*models.User, error) {
	var user models.User
	if err := tx.First(&user, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("user %d: %w", id, models.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get user %d: %w", id, err)
	}
	return &user, nil
}

func findGroup(tx *gorm.DB, id uint) (*models.Group, error) {
	var group models.Group
	if err := tx.First(&group, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("group %d: %w", id, models.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get group %d: %w", id, err)
	}
	return &group, nil
}

// CreateGroup inserts the group and registers it on the owner in one
// transaction. The id is assigned by the insert itself, so there is no
// polling for it afterwards.
func (r *GORMMembershipRepository) CreateGroup(group *models.Group) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		owner, err := findUser(tx, group.OwnerID)
		if err != nil {
			return err
		}

		group.Students = models.IDList{group.OwnerID}
		if err := tx.Create(group).Error; err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return fmt.Errorf("group name %q already in use: %w", group.Name, models.ErrConflict)
			}
			return fmt.Errorf("failed to create group: %w", err)
		}

		owner.Groups = owner.Groups.Add(group.ID)
		owner.OwnerOfGroups = owner.OwnerOfGroups.Add(group.ID)
		if err := tx.Save(owner).Error; err != nil {
			return fmt.Errorf("failed to record group %d on owner %d: %w", group.ID, owner.ID, err)
		}
		return nil
	})
}

// Join adds the membership on both sides. Re-joining is a no-op.
func (r *GORMMembershipRepository) Join(userID, groupID uint) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		user, err := findUser(tx, userID)
		if err != nil {
			return err
		}
		group, err := findGroup(tx, groupID)
		if err != nil {
			return err
		}

		user.Groups = user.Groups.Add(groupID)
		group.Students = group.Students.Add(userID)

		if err := tx.Save(user).Error; err != nil {
			return fmt.Errorf("failed to add group %d to user %d: %w", groupID, userID, err)
		}
		if err := tx.Save(group).Error; err != nil {
			return fmt.Errorf("failed to add user %d to group %d: %w", userID, groupID, err)
		}
		return nil
	})
}

// Leave removes the membership on both sides. A user who was never a member
// gets models.ErrNotFound; a half-recorded membership is still cleaned up.
func (r *GORMMembershipRepository) Leave(userID, groupID uint) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		user, err := findUser(tx, userID)
		if err != nil {
			return err
		}
		group, err := findGroup(tx, groupID)
		if err != nil {
			return err
		}

		if !group.Students.Contains(userID) && !user.Groups.Contains(groupID) {
			return fmt.Errorf("user %d is not a member of group %d: %w", userID, groupID, models.ErrNotFound)
		}

		user.Groups = user.Groups.Remove(groupID)
		group.Students = group.Students.Remove(userID)

		if err := tx.Save(user).Error; err != nil {
			return fmt.Errorf("failed to remove group %d from user %d: %w", groupID, userID, err)
		}
		if err := tx.Save(group).Error; err != nil {
			return fmt.Errorf("failed to remove user %d from group %d: %w", userID, groupID, err)
		}
		return nil
	})
}

// DeleteGroup cascades the removal over every member's Groups and the owner's
// OwnerOfGroups before deleting the group itself, all in one transaction.
func (r *GORMMembershipRepository) DeleteGroup(groupID uint) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		group, err := findGroup(tx, groupID)
		if err != nil {
			return err
		}

		memberIDs := group.Students
		if !memberIDs.Contains(group.OwnerID) {
			// Owner should always be a member; repair on the way out.
			memberIDs = memberIDs.Add(group.OwnerID)
		}

		var members []models.User
		if err := tx.Where("id IN ?", []uint(memberIDs)).Find(&members).Error; err != nil {
			return fmt.Errorf("failed to load members of group %d: %w", groupID, err)
		}

		for i := range members {
			m := &members[i]
			m.Groups = m.Groups.Remove(groupID)
			if m.ID == group.OwnerID {
				m.OwnerOfGroups = m.OwnerOfGroups.Remove(groupID)
			}
			if err := tx.Save(m).Error; err != nil {
				return fmt.Errorf("failed to remove group %d from user %d: %w", groupID, m.ID, err)
			}
		}

		// Hard delete so the unique name is freed for reuse.
		if err := tx.Unscoped().Delete(&models.Group{}, groupID).Error; err != nil {
			return fmt.Errorf("failed to delete group %d: %w", groupID, err)
		}
		return nil
	})
}

// Sweep walks every user and group and repairs drift between the two sides of
// the membership relation. Group.Students is treated as the authoritative
// side: users referenced by a group gain the matching Groups entry, and
// Groups/OwnerOfGroups entries pointing at deleted or non-containing groups
// are dropped. Student entries for deleted users are removed, except the
// owner, which a sweep never evicts.
func (r *GORMMembershipRepository) Sweep() (int, error) {
	repaired := 0
	err := r.db.Transaction(func(tx *gorm.DB) error {
		var users []models.User
		if err := tx.Find(&users).Error; err != nil {
			return fmt.Errorf("failed to load users for sweep: %w", err)
		}
		var groups []models.Group
		if err := tx.Find(&groups).Error; err != nil {
			return fmt.Errorf("failed to load groups for sweep: %w", err)
		}

		userByID := make(map[uint]*models.User, len(users))
		for i := range users {
			userByID[users[i].ID] = &users[i]
		}
		groupByID := make(map[uint]*models.Group, len(groups))
		for i := range groups {
			groupByID[groups[i].ID] = &groups[i]
		}

		dirtyUsers := make(map[uint]bool)
		dirtyGroups := make(map[uint]bool)

		for i := range groups {
			g := &groups[i]
			for _, uid := range g.Students {
				u, ok := userByID[uid]
				if !ok {
					if uid == g.OwnerID {
						continue
					}
					g.Students = g.Students.Remove(uid)
					dirtyGroups[g.ID] = true
					continue
				}
				if !u.Groups.Contains(g.ID) {
					u.Groups = u.Groups.Add(g.ID)
					dirtyUsers[u.ID] = true
				}
			}
			if owner, ok := userByID[g.OwnerID]; ok && !owner.OwnerOfGroups.Contains(g.ID) {
				owner.OwnerOfGroups = owner.OwnerOfGroups.Add(g.ID)
				dirtyUsers[owner.ID] = true
			}
		}

		for i := range users {
			u := &users[i]
			for _, gid := range u.Groups {
				g, ok := groupByID[gid]
				if !ok || !g.Students.Contains(u.ID) {
					u.Groups = u.Groups.Remove(gid)
					dirtyUsers[u.ID] = true
				}
			}
			for _, gid := range u.OwnerOfGroups {
				g, ok := groupByID[gid]
				if !ok || g.OwnerID != u.ID {
					u.OwnerOfGroups = u.OwnerOfGroups.Remove(gid)
					dirtyUsers[u.ID] = true
				}
			}
		}

		for i := range users {
			if !dirtyUsers[users[i].ID] {
				continue
			}
			if err := tx.Save(&users[i]).Error; err != nil {
				return fmt.Errorf("failed to repair user %d: %w", users[i].ID, err)
			}
			repaired++
		}
		for i := range groups {
			if !dirtyGroups[groups[i].ID] {
				continue
			}
			if err := tx.Save(&groups[i]).Error; err != nil {
				return fmt.Errorf("failed to repair group %d: %w", groups[i].ID, err)
			}
			repaired++
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return repaired, nil
}
