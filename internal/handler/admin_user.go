package handler

import (
	"context"
	"database/sql"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/satriadp/meeting-room-reservation/internal/config"
	"github.com/satriadp/meeting-room-reservation/internal/model"
	"github.com/satriadp/meeting-room-reservation/internal/repository"
	"github.com/satriadp/meeting-room-reservation/internal/utils"
)

// AdminUserHandler manages user accounts. Mounted behind the admin
// role middleware; the SUPER_ADMIN-only rules are enforced here per
// operation.
type AdminUserHandler struct {
	Cfg   config.Config
	Users *repository.UserRepo
}

func NewAdminUserHandler(cfg config.Config, users *repository.UserRepo) *AdminUserHandler {
	return &AdminUserHandler{Cfg: cfg, Users: users}
}

func validRole(role string) bool {
	switch role {
	case model.RoleEmployee, model.RoleAdmin, model.RoleSuperAdmin:
		return true
	}
	return false
}

// List returns all users with their booking counts.
func (h *AdminUserHandler) List(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), dbTimeout)
	defer cancel()

	users, err := h.Users.List(ctx)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	return c.JSON(http.StatusOK, echo.Map{"users": users})
}

type adminCreateUserReq struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
	Role     string `json:"role"`
}

// Create adds a user with an explicit role. Only a SUPER_ADMIN may
// mint another SUPER_ADMIN.
func (h *AdminUserHandler) Create(c echo.Context) error {
	p, ok := currentPrincipal(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	var req adminCreateUserReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	req.Name = strings.TrimSpace(req.Name)
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	role := strings.ToUpper(strings.TrimSpace(req.Role))
	if role == "" {
		role = model.RoleEmployee
	}
	if req.Name == "" || req.Email == "" || req.Password == "" || !validRole(role) {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "name/email/password and a valid role required"})
	}
	if role == model.RoleSuperAdmin && p.Role != model.RoleSuperAdmin {
		return c.JSON(http.StatusForbidden, echo.Map{"error": "only a super admin may create super admins"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), dbTimeout)
	defer cancel()

	uid, err := h.Users.Create(ctx, req.Name, req.Email, req.Password, role, h.Cfg.BcryptCost)
	if err != nil {
		if err == repository.ErrEmailExists {
			return c.JSON(http.StatusConflict, echo.Map{"error": "email already exists"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "create user failed"})
	}
	return c.JSON(http.StatusCreated, echo.Map{
		"id":    uid,
		"name":  req.Name,
		"email": req.Email,
		"role":  role,
	})
}

type adminUpdateUserReq struct {
	Name     *string `json:"name"`
	Email    *string `json:"email"`
	Role     *string `json:"role"`
	Password *string `json:"password"`
}

// Update patches a user. Touching a SUPER_ADMIN account, or assigning
// the SUPER_ADMIN role, requires being one.
func (h *AdminUserHandler) Update(c echo.Context) error {
	p, ok := currentPrincipal(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	id, ok := pathID(c, "id")
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid user id"})
	}
	var req adminUpdateUserReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), dbTimeout)
	defer cancel()

	target, err := h.Users.GetByID(ctx, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "user not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	if target.Role == model.RoleSuperAdmin && p.Role != model.RoleSuperAdmin {
		return c.JSON(http.StatusForbidden, echo.Map{"error": "only a super admin may edit super admins"})
	}

	patch := repository.AdminPatch{Name: req.Name, Email: req.Email}
	if req.Role != nil {
		role := strings.ToUpper(strings.TrimSpace(*req.Role))
		if !validRole(role) {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid role"})
		}
		if role == model.RoleSuperAdmin && p.Role != model.RoleSuperAdmin {
			return c.JSON(http.StatusForbidden, echo.Map{"error": "only a super admin may assign the super admin role"})
		}
		patch.Role = &role
	}
	if req.Password != nil && *req.Password != "" {
		hash, err := utils.HashPassword(*req.Password, h.Cfg.BcryptCost)
		if err != nil {
			return c.JSON(http.StatusInternalServerError, echo.Map{"error": "hash password failed"})
		}
		patch.PasswordHash = &hash
	}

	if err := h.Users.UpdateAdmin(ctx, id, patch); err != nil {
		if err == repository.ErrEmailExists {
			return c.JSON(http.StatusConflict, echo.Map{"error": "email already exists"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "update user failed"})
	}
	return c.NoContent(http.StatusNoContent)
}

// Delete removes a user and, through the foreign key, their bookings.
// Super admin accounts and the caller's own account cannot be deleted.
func (h *AdminUserHandler) Delete(c echo.Context) error {
	p, ok := currentPrincipal(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	id, ok := pathID(c, "id")
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid user id"})
	}
	if id == p.UserID {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "cannot delete your own account"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), dbTimeout)
	defer cancel()

	target, err := h.Users.GetByID(ctx, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "user not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	if target.Role == model.RoleSuperAdmin {
		return c.JSON(http.StatusForbidden, echo.Map{"error": "super admin accounts cannot be deleted"})
	}

	if err := h.Users.Delete(ctx, id); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "delete user failed"})
	}
	return c.NoContent(http.StatusNoContent)
}
