package repositories

import (
	"fmt"
	"strings"
	"sync"

	"peerfinder/internal/models"
)

// MockStore is an in-memory store backing mock implementations of
// UserRepository, GroupRepository and MembershipRepository. The paired
// membership updates are applied under one lock, mirroring the transactional
// guarantee of the GORM implementation.
type MockStore struct {
	mu          sync.RWMutex
	users       map[uint]models.User
	groups      map[uint]models.Group
	nextUserID  uint
	nextGroupID uint
}

// NewMockStore creates a new instance of MockStore.
func NewMockStore() *MockStore {
	return &MockStore{
		users:  make(map[uint]models.User),
		groups: make(map[uint]models.Group),
	}
}

// Users returns a UserRepository view over the store.
func (s *MockStore) Users() UserRepository { return &mockUserRepo{s} }

// Groups returns a GroupRepository view over the store.
func (s *MockStore) Groups() GroupRepository { return &mockGroupRepo{s} }

// PutUser overwrites a user record directly, bypassing the paired-update
// methods. Tests use it to inject drift for the reconciler to find.
func (s *MockStore) PutUser(user *models.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.users[user.ID]; !ok {
		return fmt.Errorf("user %d: %w", user.ID, models.ErrNotFound)
	}
	s.users[user.ID] = cloneUser(*user)
	return nil
}

// PutGroup overwrites a group record directly, bypassing the paired-update
// methods.
func (s *MockStore) PutGroup(group *models.Group) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.groups[group.ID]; !ok {
		return fmt.Errorf("group %d: %w", group.ID, models.ErrNotFound)
	}
	s.groups[group.ID] = cloneGroup(*group)
	return nil
}

func cloneIDs(l models.IDList) models.IDList {
	out := make(models.IDList, len(l))
	copy(out, l)
	return out
}

func cloneUser(u models.User) models.User {
	u.Groups = cloneIDs(u.Groups)
	u.OwnerOfGroups = cloneIDs(u.OwnerOfGroups)
	return u
}

func cloneGroup(g models.Group) models.Group {
	g.Students = cloneIDs(g.Students)
	return g
}

// --- UserRepository view ---

type mockUserRepo struct {
	s *MockStore
}

func (r *mockUserRepo) Create(user *models.User) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	for _, u := range r.s.users {
		if u.Email == user.Email {
			return fmt.Errorf("email %s already registered: %w", user.Email, models.ErrConflict)
		}
	}
	if user.ID == 0 {
		r.s.nextUserID++
		user.ID = r.s.nextUserID
	}
	r.s.users[user.ID] = cloneUser(*user)
	return nil
}

func (r *mockUserRepo) GetByID(id uint) (*models.User, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	user, ok := r.s.users[id]
	if !ok {
		return nil, fmt.Errorf("user %d: %w", id, models.ErrNotFound)
	}
	user = cloneUser(user)
	return &user, nil
}

func (r *mockUserRepo) GetByEmail(email string) (*models.User, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	for _, u := range r.s.users {
		if u.Email == email {
			u = cloneUser(u)
			return &u, nil
		}
	}
	return nil, fmt.Errorf("user with email %s: %w", email, models.ErrNotFound)
}

func (r *mockUserRepo) UpdatePassword(id uint, passwordHash string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	user, ok := r.s.users[id]
	if !ok {
		return fmt.Errorf("user %d: %w", id, models.ErrNotFound)
	}
	user.Password = passwordHash
	r.s.users[id] = user
	return nil
}

func (r *mockUserRepo) UpdateVerificationCode(id uint, code string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	user, ok := r.s.users[id]
	if !ok {
		return fmt.Errorf("user %d: %w", id, models.ErrNotFound)
	}
	user.VerificationCode = code
	user.Verified = false
	r.s.users[id] = user
	return nil
}

func (r *mockUserRepo) MarkVerified(id uint) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	user, ok := r.s.users[id]
	if !ok {
		return fmt.Errorf("user %d: %w", id, models.ErrNotFound)
	}
	user.Verified = true
	r.s.users[id] = user
	return nil
}

// --- GroupRepository view ---

type mockGroupRepo struct {
	s *MockStore
}

func (r *mockGroupRepo) GetByID(id uint) (*models.Group, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	group, ok := r.s.groups[id]
	if !ok {
		return nil, fmt.Errorf("group %d: %w", id, models.ErrNotFound)
	}
	group = cloneGroup(group)
	return &group, nil
}

func (r *mockGroupRepo) GetByName(name string) (*models.Group, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	for _, g := range r.s.groups {
		if g.Name == name {
			g = cloneGroup(g)
			return &g, nil
		}
	}
	return nil, fmt.Errorf("group %q: %w", name, models.ErrNotFound)
}

func (r *mockGroupRepo) GetAll() ([]models.Group, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	groups := make([]models.Group, 0, len(r.s.groups))
	for _, g := range r.s.groups {
		groups = append(groups, cloneGroup(g))
	}
	return groups, nil
}

func (r *mockGroupRepo) SearchByClassPrefix(prefix string) ([]models.Group, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	lower := strings.ToLower(prefix)
	var groups []models.Group
	for _, g := range r.s.groups {
		if strings.HasPrefix(strings.ToLower(g.Class), lower) {
			groups = append(groups, cloneGroup(g))
		}
	}
	return groups, nil
}

func (r *mockGroupRepo) UpdateFields(id uint, fields map[string]interface{}) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	group, ok := r.s.groups[id]
	if !ok {
		return fmt.Errorf("group %d: %w", id, models.ErrNotFound)
	}
	for k, v := range fields {
		switch k {
		case "class":
			group.Class = v.(string)
		case "name":
			group.Name = v.(string)
		case "link":
			group.Link = v.(string)
		case "modality":
			group.Modality = v.(string)
		case "description":
			group.Description = v.(string)
		case "size":
			group.Size = v.(int)
		case "location":
			group.Location = v.(string)
		case "meeting_time":
			group.MeetingTime = v.(string)
		}
	}
	r.s.groups[id] = group
	return nil
}

// --- MembershipRepository ---

func (s *MockStore) CreateGroup(group *models.Group) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	owner, ok := s.users[group.OwnerID]
	if !ok {
		return fmt.Errorf("user %d: %w", group.OwnerID, models.ErrNotFound)
	}
	if group.ID == 0 {
		s.nextGroupID++
		group.ID = s.nextGroupID
	}
	group.Students = models.IDList{group.OwnerID}
	s.groups[group.ID] = cloneGroup(*group)

	owner.Groups = owner.Groups.Add(group.ID)
	owner.OwnerOfGroups = owner.OwnerOfGroups.Add(group.ID)
	s.users[owner.ID] = owner
	return nil
}

func (s *MockStore) Join(userID, groupID uint) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	user, ok := s.users[userID]
	if !ok {
		return fmt.Errorf("user %d: %w", userID, models.ErrNotFound)
	}
	group, ok := s.groups[groupID]
	if !ok {
		return fmt.Errorf("group %d: %w", groupID, models.ErrNotFound)
	}

	user.Groups = user.Groups.Add(groupID)
	group.Students = group.Students.Add(userID)
	s.users[userID] = user
	s.groups[groupID] = group
	return nil
}

func (s *MockStore) Leave(userID, groupID uint) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	user, ok := s.users[userID]
	if !ok {
		return fmt.Errorf("user %d: %w", userID, models.ErrNotFound)
	}
	group, ok := s.groups[groupID]
	if !ok {
		return fmt.Errorf("group %d: %w", groupID, models.ErrNotFound)
	}
	if !group.Students.Contains(userID) && !user.Groups.Contains(groupID) {
		return fmt.Errorf("user %d is not a member of group %d: %w", userID, groupID, models.ErrNotFound)
	}

	user.Groups = user.Groups.Remove(groupID)
	group.Students = group.Students.Remove(userID)
	s.users[userID] = user
	s.groups[groupID] = group
	return nil
}

func (s *MockStore) DeleteGroup(groupID uint) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	group, ok := s.groups[groupID]
	if !ok {
		return fmt.Errorf("group %d: %w", groupID, models.ErrNotFound)
	}

	members := group.Students.Add(group.OwnerID)
	for _, uid := range members {
		user, ok := s.users[uid]
		if !ok {
			continue
		}
		user.Groups = user.Groups.Remove(groupID)
		if uid == group.OwnerID {
			user.OwnerOfGroups = user.OwnerOfGroups.Remove(groupID)
		}
		s.users[uid] = user
	}
	delete(s.groups, groupID)
	return nil
}

func (s *MockStore) Sweep() (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	repairedGroups := 0
	dirty := make(map[uint]bool)

	for gid, g := range s.groups {
		changed := false
		for _, uid := range g.Students {
			u, ok := s.users[uid]
			if !ok {
				if uid == g.OwnerID {
					continue
				}
				g.Students = g.Students.Remove(uid)
				changed = true
				continue
			}
			if !u.Groups.Contains(gid) {
				u.Groups = u.Groups.Add(gid)
				s.users[uid] = u
				dirty[uid] = true
			}
		}
		if changed {
			s.groups[gid] = g
			repairedGroups++
		}
		if owner, ok := s.users[g.OwnerID]; ok && !owner.OwnerOfGroups.Contains(gid) {
			owner.OwnerOfGroups = owner.OwnerOfGroups.Add(gid)
			s.users[owner.ID] = owner
			dirty[owner.ID] = true
		}
	}

	for uid, u := range s.users {
		changed := false
		for _, gid := range u.Groups {
			g, ok := s.groups[gid]
			if !ok || !g.Students.Contains(uid) {
				u.Groups = u.Groups.Remove(gid)
				changed = true
			}
		}
		for _, gid := range u.OwnerOfGroups {
			g, ok := s.groups[gid]
			if !ok || g.OwnerID != uid {
				u.OwnerOfGroups = u.OwnerOfGroups.Remove(gid)
				changed = true
			}
		}
		if changed {
			s.users[uid] = u
			dirty[uid] = true
		}
	}

	return repairedGroups + len(dirty), nil
}
