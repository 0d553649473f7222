package httpserver

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/Skotchmaster/auth_service/internal/repo"
	"github.com/Skotchmaster/auth_service/internal/service"
)

type RolesHTTP struct {
	Svc *service.RoleService
}

type roleRequest struct {
	Name        string   `json:"name"`
	Permissions []string `json:"permissions"`
}

type roleUpdateRequest struct {
	Name        *string   `json:"name"`
	Permissions *[]string `json:"permissions"`
}

type permissionRequest struct {
	Permission string `json:"permission"`
}

// List pages only when ?page or ?size is given.
func (h *RolesHTTP) List(c echo.Context) error {
	var page *service.Page
	if c.QueryParam("page") != "" || c.QueryParam("size") != "" {
		page = &service.Page{
			Number: queryInt(c, "page"),
			Size:   queryInt(c, "size"),
		}
	}
	roles, err := h.Svc.List(c.Request().Context(), page)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, roles)
}

func (h *RolesHTTP) Get(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}
	role, err := h.Svc.Get(c.Request().Context(), id)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, role)
}

func (h *RolesHTTP) Create(c echo.Context) error {
	var req roleRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid body")
	}
	role, err := h.Svc.Create(c.Request().Context(), service.RoleInput{Name: req.Name, Permissions: req.Permissions})
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, role)
}

func (h *RolesHTTP) Update(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}
	var req roleUpdateRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid body")
	}
	role, err := h.Svc.Update(c.Request().Context(), id, repo.RoleUpdate{Name: req.Name, Permissions: req.Permissions})
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, role)
}

func (h *RolesHTTP) Delete(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}
	role, err := h.Svc.Delete(c.Request().Context(), id)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, role)
}

func (h *RolesHTTP) AddPermission(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}
	var req permissionRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid body")
	}
	role, err := h.Svc.AddPermission(c.Request().Context(), id, req.Permission)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, role)
}

func (h *RolesHTTP) RemovePermission(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}
	role, err := h.Svc.RemovePermission(c.Request().Context(), id, c.Param("permission"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, role)
}

func (h *RolesHTTP) AssignRole(c echo.Context) error {
	roleID, err := pathID(c, "id")
	if err != nil {
		return err
	}
	userID, err := pathID(c, "user_id")
	if err != nil {
		return err
	}
	user, err := h.Svc.AssignRole(c.Request().Context(), userID, roleID)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, user)
}

func pathID(c echo.Context, name string) (uint, error) {
	n, err := strconv.ParseUint(c.Param(name), 10, 64)
	if err != nil || n == 0 {
		return 0, echo.NewHTTPError(http.StatusBadRequest, "invalid "+name)
	}
	return uint(n), nil
}

func queryInt(c echo.Context, name string) int {
	n, err := strconv.Atoi(c.QueryParam(name))
	if err != nil {
		return 0
	}
	return n
}
