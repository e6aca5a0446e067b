package handler

import (
	"context"
	"database/sql"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/satriadp/meeting-room-reservation/internal/repository"
)

// avatarDir is where uploaded avatar images land; the directory is
// served statically by the router.
const avatarDir = "uploads/avatars"

// maxAvatarBytes caps avatar uploads at 2 MiB.
const maxAvatarBytes = 2 << 20

// ProfileHandler serves the caller's own account.
type ProfileHandler struct {
	Users *repository.UserRepo
}

func NewProfileHandler(users *repository.UserRepo) *ProfileHandler {
	return &ProfileHandler{Users: users}
}

type profileResp struct {
	ID     uint64  `json:"id"`
	Name   string  `json:"name"`
	Email  string  `json:"email"`
	Role   string  `json:"role"`
	Avatar *string `json:"avatar,omitempty"`
	Status *string `json:"status,omitempty"`
	Bio    *string `json:"bio,omitempty"`
}

// Get returns the caller's profile.
func (h *ProfileHandler) Get(c echo.Context) error {
	p, ok := currentPrincipal(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), dbTimeout)
	defer cancel()

	u, err := h.Users.GetByID(ctx, p.UserID)
	if err != nil {
		if err == sql.ErrNoRows {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "user not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	return c.JSON(http.StatusOK, profileResp{
		ID: u.ID, Name: u.Name, Email: u.Email, Role: u.Role,
		Avatar: u.Avatar, Status: u.Status, Bio: u.Bio,
	})
}

type profileUpdateReq struct {
	Name   *string `json:"name"`
	Status *string `json:"status"`
	Bio    *string `json:"bio"`
}

// Update patches the caller's own name, status message and bio.
func (h *ProfileHandler) Update(c echo.Context) error {
	p, ok := currentPrincipal(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	var req profileUpdateReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	if req.Name != nil && strings.TrimSpace(*req.Name) == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "name must not be empty"})
	}
	if req.Name != nil && len(*req.Name) > 100 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "name too long (max 100)"})
	}
	if req.Status != nil && len(*req.Status) > 100 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "status too long (max 100)"})
	}
	if req.Bio != nil && len(*req.Bio) > 500 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "bio too long (max 500)"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), dbTimeout)
	defer cancel()

	err := h.Users.UpdateProfile(ctx, p.UserID, repository.ProfilePatch{
		Name:   req.Name,
		Status: req.Status,
		Bio:    req.Bio,
	})
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "update profile failed"})
	}
	return h.Get(c)
}

// UploadAvatar stores a multipart image under a random filename and
// records its public path on the profile.
func (h *ProfileHandler) UploadAvatar(c echo.Context) error {
	p, ok := currentPrincipal(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	fh, err := c.FormFile("avatar")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "avatar file required"})
	}
	if fh.Size > maxAvatarBytes {
		return c.JSON(http.StatusRequestEntityTooLarge, echo.Map{"error": "avatar exceeds 2MB"})
	}
	ext := strings.ToLower(filepath.Ext(fh.Filename))
	switch ext {
	case ".png", ".jpg", ".jpeg", ".gif", ".webp":
	default:
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "unsupported image type"})
	}

	src, err := fh.Open()
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "read upload failed"})
	}
	defer src.Close()

	if err := os.MkdirAll(avatarDir, 0o755); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "store upload failed"})
	}
	name := uuid.NewString() + ext
	dstPath := filepath.Join(avatarDir, name)
	dst, err := os.Create(dstPath)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "store upload failed"})
	}
	defer dst.Close()
	if _, err := io.Copy(dst, src); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "store upload failed"})
	}

	publicPath := "/" + avatarDir + "/" + name
	ctx, cancel := context.WithTimeout(c.Request().Context(), dbTimeout)
	defer cancel()
	if err := h.Users.UpdateProfile(ctx, p.UserID, repository.ProfilePatch{Avatar: &publicPath}); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "update profile failed"})
	}
	return c.JSON(http.StatusOK, echo.Map{"avatar": publicPath})
}
