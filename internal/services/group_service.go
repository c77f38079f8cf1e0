package services

import (
	"fmt"
	"strings"

	"peerfinder/internal/events"
	"peerfinder/internal/models"
	"peerfinder/internal/repositories"
)

// GroupService is the membership coordinator: every operation that touches
// the user/group relation goes through here so permission checks and the
// paired updates stay in one place.
type GroupService struct {
	groupRepo repositories.GroupRepository
	userRepo  repositories.UserRepository
	members   repositories.MembershipRepository
	publisher EventPublisher
}

// NewGroupService creates a new GroupService.
func NewGroupService(groupRepo repositories.GroupRepository, userRepo repositories.UserRepository, members repositories.MembershipRepository, publisher EventPublisher) *GroupService {
	return &GroupService{
		groupRepo: groupRepo,
		userRepo:  userRepo,
		members:   members,
		publisher: publisher,
	}
}

// Create inserts a new group owned by group.OwnerID. The owner becomes the
// first student and the group is recorded on the owner's user record.
func (s *GroupService) Create(group *models.Group) error {
	if group.OwnerID == 0 {
		return fmt.Errorf("owner is required: %w", models.ErrValidation)
	}
	if err := s.members.CreateGroup(group); err != nil {
		return err
	}

	publishEvent(s.publisher, events.GroupCreated, events.MembershipEvent{
		GroupID: group.ID,
		OwnerID: group.OwnerID,
	})
	return nil
}

// Join adds the user to the group. Joining twice is a no-op.
func (s *GroupService) Join(userID, groupID uint) error {
	if userID == 0 || groupID == 0 {
		return fmt.Errorf("user id and group id are required: %w", models.ErrValidation)
	}
	if err := s.members.Join(userID, groupID); err != nil {
		return err
	}

	publishEvent(s.publisher, events.GroupJoined, events.MembershipEvent{
		GroupID: groupID,
		UserID:  userID,
	})
	return nil
}

// Leave removes the user from the group. The owner cannot leave their own
// group; they must delete it (or transfer ownership) instead.
func (s *GroupService) Leave(userID, groupID uint) error {
	if userID == 0 || groupID == 0 {
		return fmt.Errorf("user id and group id are required: %w", models.ErrValidation)
	}
	group, err := s.groupRepo.GetByID(groupID)
	if err != nil {
		return err
	}
	if group.OwnerID == userID {
		return fmt.Errorf("owner cannot leave their own group: %w", models.ErrPermission)
	}
	if err := s.members.Leave(userID, groupID); err != nil {
		return err
	}

	publishEvent(s.publisher, events.GroupLeft, events.MembershipEvent{
		GroupID: groupID,
		UserID:  userID,
	})
	return nil
}

// Kick removes a student from a group. Only the owner may kick, and the
// owner cannot kick themselves. The group record is re-read so the check is
// against the stored owner, not a claimed one.
func (s *GroupService) Kick(actorID, groupID, kickID uint) error {
	if actorID == 0 || groupID == 0 || kickID == 0 {
		return fmt.Errorf("user id, group id and kick id are required: %w", models.ErrValidation)
	}
	group, err := s.groupRepo.GetByID(groupID)
	if err != nil {
		return err
	}
	if group.OwnerID != actorID {
		return fmt.Errorf("user %d is not the owner of group %d: %w", actorID, groupID, models.ErrPermission)
	}
	if kickID == group.OwnerID {
		return fmt.Errorf("owner cannot be kicked from their own group: %w", models.ErrValidation)
	}
	if err := s.members.Leave(kickID, groupID); err != nil {
		return err
	}

	publishEvent(s.publisher, events.MemberKicked, events.MembershipEvent{
		GroupID: groupID,
		UserID:  kickID,
		OwnerID: actorID,
	})
	return nil
}

// Delete removes the group and cascades the removal over every member's
// user record. Only the owner may delete.
func (s *GroupService) Delete(actorID, groupID uint) error {
	if actorID == 0 || groupID == 0 {
		return fmt.Errorf("user id and group id are required: %w", models.ErrValidation)
	}
	group, err := s.groupRepo.GetByID(groupID)
	if err != nil {
		return err
	}
	if group.OwnerID != actorID {
		return fmt.Errorf("user %d is not the owner of group %d: %w", actorID, groupID, models.ErrPermission)
	}
	if err := s.members.DeleteGroup(groupID); err != nil {
		return err
	}

	publishEvent(s.publisher, events.GroupDeleted, events.MembershipEvent{
		GroupID: groupID,
		OwnerID: actorID,
	})
	return nil
}

// Edit applies a partial update to the descriptive fields. Zero-valued
// fields in updates are left unchanged; Owner and Students are never
// touched by an edit.
func (s *GroupService) Edit(actorID, groupID uint, updates *models.Group) error {
	if actorID == 0 || groupID == 0 {
		return fmt.Errorf("user id and group id are required: %w", models.ErrValidation)
	}
	group, err := s.groupRepo.GetByID(groupID)
	if err != nil {
		return err
	}
	if group.OwnerID != actorID {
		return fmt.Errorf("user %d is not the owner of group %d: %w", actorID, groupID, models.ErrPermission)
	}

	fields := map[string]interface{}{}
	if updates.Class != "" {
		fields["class"] = updates.Class
	}
	if updates.Name != "" {
		fields["name"] = updates.Name
	}
	if updates.Link != "" {
		fields["link"] = updates.Link
	}
	if updates.Modality != "" {
		fields["modality"] = updates.Modality
	}
	if updates.Description != "" {
		fields["description"] = updates.Description
	}
	if updates.Size != 0 {
		fields["size"] = updates.Size
	}
	if updates.Location != "" {
		fields["location"] = updates.Location
	}
	if updates.MeetingTime != "" {
		fields["meeting_time"] = updates.MeetingTime
	}
	if len(fields) == 0 {
		return nil
	}
	if err := s.groupRepo.UpdateFields(groupID, fields); err != nil {
		return err
	}

	publishEvent(s.publisher, events.GroupEdited, events.MembershipEvent{
		GroupID: groupID,
		OwnerID: actorID,
	})
	return nil
}

// Search returns the names of groups whose Class starts with the query,
// case-insensitively. An empty query lists every group.
func (s *GroupService) Search(query string) ([]string, error) {
	groups, err := s.groupRepo.SearchByClassPrefix(strings.TrimSpace(query))
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(groups))
	for _, g := range groups {
		names = append(names, g.Name)
	}
	return names, nil
}

// FetchAll returns every group in wire format.
func (s *GroupService) FetchAll() ([]models.GroupResponse, error) {
	groups, err := s.groupRepo.GetAll()
	if err != nil {
		return nil, err
	}
	results := make([]models.GroupResponse, 0, len(groups))
	for i := range groups {
		results = append(results, groups[i].ToResponse())
	}
	return results, nil
}

// DetailsByName returns a single group looked up by its exact name.
func (s *GroupService) DetailsByName(name string) (*models.Group, error) {
	if name == "" {
		return nil, fmt.Errorf("group name is required: %w", models.ErrValidation)
	}
	return s.groupRepo.GetByName(name)
}

// StudentInfo returns the user record for a member id.
func (s *GroupService) StudentInfo(userID uint) (*models.User, error) {
	if userID == 0 {
		return nil, fmt.Errorf("student id is required: %w", models.ErrValidation)
	}
	return s.userRepo.GetByID(userID)
}
