package repositories

import "peerfinder/internal/models"

// MembershipRepository performs the paired updates that keep the relation
// "user in group.Students <=> group in user.Groups" true. Every method applies
// both sides atomically.
type MembershipRepository interface {
	// CreateGroup inserts the group with Students=[owner] and records the new
	// id in the owner's Groups and OwnerOfGroups. group.ID is populated on
	// return.
	CreateGroup(group *models.Group) error
	// Join adds the user to the group on both sides. Joining a group the user
	// already belongs to is a no-op.
	Join(userID, groupID uint) error
	// Leave removes the user from the group on both sides. It reports
	// models.ErrNotFound when the user was never a member.
	Leave(userID, groupID uint) error
	// DeleteGroup removes the group id from the owner's OwnerOfGroups, from
	// the Groups of every member, and deletes the group itself.
	DeleteGroup(groupID uint) error
	// Sweep detects and repairs drift between User.Groups and Group.Students,
	// returning the number of records repaired.
	Sweep() (int, error)
}
