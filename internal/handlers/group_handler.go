package handlers

import (
	"errors"
	"fmt"
	"log"

	"peerfinder/internal/models"
	"peerfinder/internal/services"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
)

// GroupHandler handles HTTP requests for groups and membership.
type GroupHandler struct {
	groupService *services.GroupService
	validate     *validator.Validate
}

// NewGroupHandler creates a new GroupHandler.
func NewGroupHandler(groupService *services.GroupService) *GroupHandler {
	return &GroupHandler{
		groupService: groupService,
		validate:     validator.New(),
	}
}

// RegisterPublicRoutes registers the read-only group routes.
func (h *GroupHandler) RegisterPublicRoutes(router fiber.Router) {
	router.Get("/getgroupdetails", h.HandleGetGroupDetails)
	router.Get("/getstudentinfo", h.HandleGetStudentInfo)
	router.Post("/searchgroups", h.HandleSearchGroups)
	router.Post("/fetchgroups", h.HandleFetchGroups)
}

// RegisterProtectedRoutes registers the membership-mutating routes; callers
// attach the auth middleware to router before passing it in.
func (h *GroupHandler) RegisterProtectedRoutes(router fiber.Router) {
	router.Post("/addgroup", h.HandleAddGroup)
	router.Post("/joingroup", h.HandleJoinGroup)
	router.Post("/leavegroup", h.HandleLeaveGroup)
	router.Post("/deletegroup", h.HandleDeleteGroup)
	router.Post("/editgroup", h.HandleEditGroup)
	router.Post("/kickstudent", h.HandleKickStudent)
}

// AddGroupRequest represents the request body for group creation. It has no
// id field on purpose: the store assigns the id, never the client.
type AddGroupRequest struct {
	Class       string `json:"Class" validate:"required,max=100"`
	Name        string `json:"Name" validate:"required,min=1,max=255"`
	Link        string `json:"Link" validate:"omitempty,max=500"`
	Modality    string `json:"Modality" validate:"required,oneof=In-Person Online Hybrid"`
	Description string `json:"Description" validate:"omitempty,max=1000"`
	Size        int    `json:"Size" validate:"omitempty,gte=0"`
	Location    string `json:"Location" validate:"omitempty,max=255"`
	MeetingTime string `json:"MeetingTime" validate:"omitempty,max=100"`
	Owner       uint   `json:"Owner" validate:"required"`
}

// HandleAddGroup creates a new group owned by the Owner in the request.
func (h *GroupHandler) HandleAddGroup(c *fiber.Ctx) error {
	var req AddGroupRequest
	if err := c.BodyParser(&req); err != nil {
		log.Printf("Error parsing addgroup request body: %v", err)
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}

	if err := h.validate.Struct(req); err != nil {
		validationErrors := err.(validator.ValidationErrors)
		errorMessages := make(map[string]string)
		for _, e := range validationErrors {
			errorMessages[e.Field()] = fmt.Sprintf("Field '%s' failed on the '%s' tag", e.Field(), e.Tag())
		}
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error":  "Validation failed",
			"errors": errorMessages,
		})
	}

	group := models.Group{
		Class:       req.Class,
		Name:        req.Name,
		Link:        req.Link,
		Modality:    req.Modality,
		Description: req.Description,
		Size:        req.Size,
		Location:    req.Location,
		MeetingTime: req.MeetingTime,
		OwnerID:     req.Owner,
	}
	if err := h.groupService.Create(&group); err != nil {
		log.Printf("Error creating group: %v", err)
		if errors.Is(err, models.ErrConflict) {
			return respondError(c, err, "Group name is already in use")
		}
		return respondError(c, err, "")
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"error":   "",
		"groupId": group.ID,
	})
}

// HandleGetGroupDetails returns a group looked up by exact name.
func (h *GroupHandler) HandleGetGroupDetails(c *fiber.Ctx) error {
	name := c.Query("name")
	group, err := h.groupService.DetailsByName(name)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return respondError(c, err, "Group not found")
		}
		return respondError(c, err, "")
	}
	return c.JSON(group.ToResponse())
}

// HandleGetStudentInfo returns the name of a member by id.
func (h *GroupHandler) HandleGetStudentInfo(c *fiber.Ctx) error {
	studentID := c.QueryInt("studentId")
	if studentID <= 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "studentId is required",
		})
	}

	user, err := h.groupService.StudentInfo(uint(studentID))
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return respondError(c, err, "Student not found")
		}
		return respondError(c, err, "")
	}

	return c.JSON(fiber.Map{
		"firstName": user.FirstName,
		"lastName":  user.LastName,
	})
}

// SearchGroupsRequest represents the request body for a class-prefix search.
type SearchGroupsRequest struct {
	UserID uint   `json:"UserId"`
	Search string `json:"Search"`
}

// HandleSearchGroups returns the names of groups whose Class starts with the
// search string. An empty search lists every group.
func (h *GroupHandler) HandleSearchGroups(c *fiber.Ctx) error {
	var req SearchGroupsRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}

	names, err := h.groupService.Search(req.Search)
	if err != nil {
		log.Printf("Error searching groups for %q: %v", req.Search, err)
		return respondError(c, err, "")
	}

	return c.JSON(fiber.Map{
		"results": names,
		"error":   "",
	})
}

// HandleFetchGroups returns every group.
func (h *GroupHandler) HandleFetchGroups(c *fiber.Ctx) error {
	groups, err := h.groupService.FetchAll()
	if err != nil {
		log.Printf("Error fetching groups: %v", err)
		return respondError(c, err, "")
	}
	return c.JSON(fiber.Map{
		"results": groups,
	})
}

// MembershipRequest represents the request body for join and leave.
type MembershipRequest struct {
	UserID  uint `json:"UserId" validate:"required"`
	GroupID uint `json:"GroupId" validate:"required"`
}

// HandleJoinGroup adds the user to the group's students and the group to the
// user's groups. Joining twice is a no-op.
func (h *GroupHandler) HandleJoinGroup(c *fiber.Ctx) error {
	var req MembershipRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}
	if err := h.validate.Struct(req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "UserId and GroupId are required",
		})
	}

	if err := h.groupService.Join(req.UserID, req.GroupID); err != nil {
		log.Printf("Error joining user %d to group %d: %v", req.UserID, req.GroupID, err)
		return respondError(c, err, "")
	}

	return c.JSON(fiber.Map{"error": ""})
}

// HandleLeaveGroup removes the user from the group on both sides. Leaving a
// group the user was never a member of reports not-found.
func (h *GroupHandler) HandleLeaveGroup(c *fiber.Ctx) error {
	var req MembershipRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}
	if err := h.validate.Struct(req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "UserId and GroupId are required",
		})
	}

	if err := h.groupService.Leave(req.UserID, req.GroupID); err != nil {
		log.Printf("Error removing user %d from group %d: %v", req.UserID, req.GroupID, err)
		return respondError(c, err, "")
	}

	return c.JSON(fiber.Map{"error": ""})
}

// DeleteGroupRequest represents the request body for group deletion. Owner
// and Students are the caller's view; the stored group record is what the
// permission check and the cascade actually run against.
type DeleteGroupRequest struct {
	UserID   uint          `json:"UserId" validate:"required"`
	GroupID  uint          `json:"GroupId" validate:"required"`
	Owner    uint          `json:"Owner"`
	Students models.IDList `json:"Students"`
}

// HandleDeleteGroup deletes a group and removes it from every member's
// record. Owner-only.
func (h *GroupHandler) HandleDeleteGroup(c *fiber.Ctx) error {
	var req DeleteGroupRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}
	if err := h.validate.Struct(req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "UserId and GroupId are required",
		})
	}
	if req.Owner != 0 && req.Owner != req.UserID {
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
			"error": "User is not Owner of group",
		})
	}

	if err := h.groupService.Delete(req.UserID, req.GroupID); err != nil {
		log.Printf("Error deleting group %d by user %d: %v", req.GroupID, req.UserID, err)
		if errors.Is(err, models.ErrPermission) {
			return respondError(c, err, "User is not Owner of group")
		}
		return respondError(c, err, "")
	}

	return c.JSON(fiber.Map{"error": ""})
}

// EditGroupRequest represents the request body for a partial group edit.
type EditGroupRequest struct {
	UserID      uint   `json:"UserId" validate:"required"`
	GroupID     uint   `json:"GroupId" validate:"required"`
	Owner       uint   `json:"Owner"`
	Class       string `json:"Class"`
	Name        string `json:"Name"`
	Link        string `json:"Link"`
	Modality    string `json:"Modality" validate:"omitempty,oneof=In-Person Online Hybrid"`
	Description string `json:"Description"`
	Size        int    `json:"Size"`
	Location    string `json:"Location"`
	MeetingTime string `json:"MeetingTime"`
}

// HandleEditGroup applies a partial update to a group's descriptive fields.
// Owner-only; omitted fields keep their previous value.
func (h *GroupHandler) HandleEditGroup(c *fiber.Ctx) error {
	var req EditGroupRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}
	if err := h.validate.Struct(req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "UserId and GroupId are required",
		})
	}
	if req.Owner != 0 && req.Owner != req.UserID {
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
			"error": "User is not the Owner",
		})
	}

	updates := models.Group{
		Class:       req.Class,
		Name:        req.Name,
		Link:        req.Link,
		Modality:    req.Modality,
		Description: req.Description,
		Size:        req.Size,
		Location:    req.Location,
		MeetingTime: req.MeetingTime,
	}
	if err := h.groupService.Edit(req.UserID, req.GroupID, &updates); err != nil {
		log.Printf("Error editing group %d by user %d: %v", req.GroupID, req.UserID, err)
		if errors.Is(err, models.ErrPermission) {
			return respondError(c, err, "User is not the Owner")
		}
		return respondError(c, err, "")
	}

	return c.JSON(fiber.Map{"error": ""})
}

// KickStudentRequest represents the request body for removing a member.
type KickStudentRequest struct {
	UserID  uint `json:"UserId" validate:"required"`
	GroupID uint `json:"GroupId" validate:"required"`
	KickID  uint `json:"KickId" validate:"required"`
}

// HandleKickStudent removes a member from a group. Owner-only.
func (h *GroupHandler) HandleKickStudent(c *fiber.Ctx) error {
	var req KickStudentRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}
	if err := h.validate.Struct(req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "UserId, GroupId and KickId are required",
		})
	}

	if err := h.groupService.Kick(req.UserID, req.GroupID, req.KickID); err != nil {
		log.Printf("Error kicking user %d from group %d: %v", req.KickID, req.GroupID, err)
		if errors.Is(err, models.ErrPermission) {
			return respondError(c, err, "User is not the Owner")
		}
		return respondError(c, err, "")
	}

	return c.JSON(fiber.Map{"error": ""})
}
