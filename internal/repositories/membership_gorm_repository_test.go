package repositories_test

import (
	"fmt"
	"strings"
	"testing"

	"peerfinder/internal/models"
	"peerfinder/internal/repositories"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

// newTestDB opens a uniquely named in-memory SQLite database so tests do not
// share state.
func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{TranslateError: true})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&models.User{}, &models.Group{}))
	return db
}

func seedUser(t *testing.T, repo repositories.UserRepository, email string) *models.User {
	t.Helper()

	user := &models.User{
		FirstName:     "Test",
		LastName:      "User",
		DisplayName:   email,
		Email:         email,
		Password:      "hashed",
		Groups:        models.IDList{},
		OwnerOfGroups: models.IDList{},
	}
	require.NoError(t, repo.Create(user))
	require.NotZero(t, user.ID)
	return user
}

func seedGroup(t *testing.T, members repositories.MembershipRepository, ownerID uint, class, name string) *models.Group {
	t.Helper()

	group := &models.Group{
		Class:    class,
		Name:     name,
		Modality: "Online",
		OwnerID:  ownerID,
	}
	require.NoError(t, members.CreateGroup(group))
	require.NotZero(t, group.ID)
	return group
}

// checkInvariant asserts both directions of the membership relation across
// the whole database.
func checkInvariant(t *testing.T, db *gorm.DB) {
	t.Helper()

	var users []models.User
	require.NoError(t, db.Find(&users).Error)
	var groups []models.Group
	require.NoError(t, db.Find(&groups).Error)

	groupByID := make(map[uint]models.Group, len(groups))
	for _, g := range groups {
		groupByID[g.ID] = g
	}
	userByID := make(map[uint]models.User, len(users))
	for _, u := range users {
		userByID[u.ID] = u
	}

	for _, g := range groups {
		assert.True(t, g.Students.Contains(g.OwnerID), "owner %d not a student of group %d", g.OwnerID, g.ID)
		for _, uid := range g.Students {
			u, ok := userByID[uid]
			require.True(t, ok, "group %d references missing user %d", g.ID, uid)
			assert.True(t, u.Groups.Contains(g.ID), "user %d missing group %d", uid, g.ID)
		}
	}
	for _, u := range users {
		for _, gid := range u.Groups {
			g, ok := groupByID[gid]
			require.True(t, ok, "user %d references missing group %d", u.ID, gid)
			assert.True(t, g.Students.Contains(u.ID), "group %d missing user %d", gid, u.ID)
		}
	}
}

func TestMembershipRepository_CreateGroup(t *testing.T) {
	db := newTestDB(t)
	users := repositories.NewGORMUserRepository(db)
	members := repositories.NewGORMMembershipRepository(db)

	owner := seedUser(t, users, "owner@example.com")
	group := seedGroup(t, members, owner.ID, "COP4331", "Project Group")

	stored, err := repositories.NewGORMGroupRepository(db).GetByID(group.ID)
	require.NoError(t, err)
	assert.Equal(t, models.IDList{owner.ID}, stored.Students)

	ownerRec, err := users.GetByID(owner.ID)
	require.NoError(t, err)
	assert.True(t, ownerRec.Groups.Contains(group.ID))
	assert.True(t, ownerRec.OwnerOfGroups.Contains(group.ID))

	checkInvariant(t, db)

	// Unknown owner fails and leaves no orphan group behind
	err = members.CreateGroup(&models.Group{Class: "CS1", Name: "Orphan", Modality: "Online", OwnerID: 999})
	assert.ErrorIs(t, err, models.ErrNotFound)
	var count int64
	require.NoError(t, db.Model(&models.Group{}).Where("name = ?", "Orphan").Count(&count).Error)
	assert.Zero(t, count)
}

func TestMembershipRepository_JoinAndLeave(t *testing.T) {
	db := newTestDB(t)
	users := repositories.NewGORMUserRepository(db)
	members := repositories.NewGORMMembershipRepository(db)

	owner := seedUser(t, users, "owner@example.com")
	student := seedUser(t, users, "student@example.com")
	group := seedGroup(t, members, owner.ID, "COP4331", "Project Group")

	require.NoError(t, members.Join(student.ID, group.ID))
	checkInvariant(t, db)

	// Join is idempotent
	require.NoError(t, members.Join(student.ID, group.ID))
	stored, err := repositories.NewGORMGroupRepository(db).GetByID(group.ID)
	require.NoError(t, err)
	assert.ElementsMatch(t, models.IDList{owner.ID, student.ID}, stored.Students)

	require.NoError(t, members.Leave(student.ID, group.ID))
	checkInvariant(t, db)

	// Never-a-member leave reports not-found
	assert.ErrorIs(t, members.Leave(student.ID, group.ID), models.ErrNotFound)

	// Missing user or group reports not-found
	assert.ErrorIs(t, members.Join(999, group.ID), models.ErrNotFound)
	assert.ErrorIs(t, members.Join(student.ID, 999), models.ErrNotFound)
}

func TestMembershipRepository_DeleteGroupCascades(t *testing.T) {
	db := newTestDB(t)
	users := repositories.NewGORMUserRepository(db)
	members := repositories.NewGORMMembershipRepository(db)

	owner := seedUser(t, users, "owner@example.com")
	a := seedUser(t, users, "a@example.com")
	b := seedUser(t, users, "b@example.com")
	group := seedGroup(t, members, owner.ID, "COP4331", "Project Group")
	keep := seedGroup(t, members, owner.ID, "CDA3103", "Keep Me")

	require.NoError(t, members.Join(a.ID, group.ID))
	require.NoError(t, members.Join(b.ID, group.ID))
	require.NoError(t, members.Join(a.ID, keep.ID))

	require.NoError(t, members.DeleteGroup(group.ID))

	groupRepo := repositories.NewGORMGroupRepository(db)
	_, err := groupRepo.GetByID(group.ID)
	assert.ErrorIs(t, err, models.ErrNotFound)

	for _, uid := range []uint{owner.ID, a.ID, b.ID} {
		u, err := users.GetByID(uid)
		require.NoError(t, err)
		assert.False(t, u.Groups.Contains(group.ID), "user %d still references deleted group", uid)
	}

	// Unrelated membership survives
	aRec, err := users.GetByID(a.ID)
	require.NoError(t, err)
	assert.True(t, aRec.Groups.Contains(keep.ID))

	ownerRec, err := users.GetByID(owner.ID)
	require.NoError(t, err)
	assert.False(t, ownerRec.OwnerOfGroups.Contains(group.ID))
	assert.True(t, ownerRec.OwnerOfGroups.Contains(keep.ID))

	checkInvariant(t, db)
}

func TestMembershipRepository_DeleteGroupFreesName(t *testing.T) {
	db := newTestDB(t)
	users := repositories.NewGORMUserRepository(db)
	members := repositories.NewGORMMembershipRepository(db)

	owner := seedUser(t, users, "owner@example.com")
	group := seedGroup(t, members, owner.ID, "COP4331", "Capstone Crew")

	// A live group holds its name exclusively
	err := members.CreateGroup(&models.Group{Class: "COP4331", Name: "Capstone Crew", Modality: "Online", OwnerID: owner.ID})
	assert.ErrorIs(t, err, models.ErrConflict)

	// Deleting releases the name for a fresh group
	require.NoError(t, members.DeleteGroup(group.ID))
	recreated := seedGroup(t, members, owner.ID, "COP4331", "Capstone Crew")
	assert.NotEqual(t, group.ID, recreated.ID)

	checkInvariant(t, db)
}

func TestUserRepository_CreateDuplicateEmail(t *testing.T) {
	db := newTestDB(t)
	users := repositories.NewGORMUserRepository(db)

	seedUser(t, users, "taken@example.com")

	err := users.Create(&models.User{
		FirstName:     "Second",
		LastName:      "User",
		DisplayName:   "second",
		Email:         "taken@example.com",
		Password:      "hashed",
		Groups:        models.IDList{},
		OwnerOfGroups: models.IDList{},
	})
	assert.ErrorIs(t, err, models.ErrConflict)
}

func TestMembershipRepository_Sweep(t *testing.T) {
	db := newTestDB(t)
	users := repositories.NewGORMUserRepository(db)
	members := repositories.NewGORMMembershipRepository(db)

	owner := seedUser(t, users, "owner@example.com")
	student := seedUser(t, users, "student@example.com")
	group := seedGroup(t, members, owner.ID, "COP4331", "Project Group")
	require.NoError(t, members.Join(student.ID, group.ID))

	// Inject drift: strip the group from the student's record directly.
	var raw models.User
	require.NoError(t, db.First(&raw, student.ID).Error)
	raw.Groups = raw.Groups.Remove(group.ID)
	require.NoError(t, db.Save(&raw).Error)

	repaired, err := members.Sweep()
	require.NoError(t, err)
	assert.Positive(t, repaired)
	checkInvariant(t, db)

	// Second sweep finds nothing
	repaired, err = members.Sweep()
	require.NoError(t, err)
	assert.Zero(t, repaired)
}

func TestGroupRepository_SearchByClassPrefix(t *testing.T) {
	db := newTestDB(t)
	users := repositories.NewGORMUserRepository(db)
	members := repositories.NewGORMMembershipRepository(db)
	groupRepo := repositories.NewGORMGroupRepository(db)

	owner := seedUser(t, users, "owner@example.com")
	seedGroup(t, members, owner.ID, "cs101", "Intro Night")
	seedGroup(t, members, owner.ID, "CS150", "Structures Crew")
	seedGroup(t, members, owner.ID, "ACS101", "Applied Crew")
	seedGroup(t, members, owner.ID, "C_101", "Underscore Crew")

	groups, err := groupRepo.SearchByClassPrefix("CS1")
	require.NoError(t, err)
	names := make([]string, 0, len(groups))
	for _, g := range groups {
		names = append(names, g.Name)
	}
	assert.ElementsMatch(t, []string{"Intro Night", "Structures Crew"}, names)

	// Empty prefix matches everything
	groups, err = groupRepo.SearchByClassPrefix("")
	require.NoError(t, err)
	assert.Len(t, groups, 4)

	// LIKE metacharacters in the query are matched literally
	groups, err = groupRepo.SearchByClassPrefix("c_")
	require.NoError(t, err)
	require.Len(t, groups, 1)
	assert.Equal(t, "Underscore Crew", groups[0].Name)

	groups, err = groupRepo.SearchByClassPrefix("%")
	require.NoError(t, err)
	assert.Empty(t, groups)
}

func TestGroupRepository_UpdateFields(t *testing.T) {
	db := newTestDB(t)
	users := repositories.NewGORMUserRepository(db)
	members := repositories.NewGORMMembershipRepository(db)
	groupRepo := repositories.NewGORMGroupRepository(db)

	owner := seedUser(t, users, "owner@example.com")
	group := seedGroup(t, members, owner.ID, "COP4331", "Project Group")

	require.NoError(t, groupRepo.UpdateFields(group.ID, map[string]interface{}{
		"description": "Updated",
		"size":        10,
	}))

	stored, err := groupRepo.GetByID(group.ID)
	require.NoError(t, err)
	assert.Equal(t, "Updated", stored.Description)
	assert.Equal(t, 10, stored.Size)
	assert.Equal(t, "COP4331", stored.Class)

	assert.ErrorIs(t, groupRepo.UpdateFields(999, map[string]interface{}{"size": 1}), models.ErrNotFound)
}
