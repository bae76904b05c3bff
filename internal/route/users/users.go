// Package users mounts the user CRUD REST endpoints.
package users

import (
	"net/http"
	"strconv"
	"time"

	"github.com/acme/user-service/internal/apperr"
	"github.com/acme/user-service/internal/model"
	"github.com/acme/user-service/internal/service"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// CreateUserRequest is the POST /v1/users body.
type CreateUserRequest struct {
	Name  string `json:"name"`
	Email string `json:"email"`
}

// UpdateUserRequest is the PUT /v1/users/:id body.
type UpdateUserRequest struct {
	Name  string `json:"name"`
	Email string `json:"email"`
}

// UserResponse is the wire representation of a user.
type UserResponse struct {
	ID        uuid.UUID `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	Active    bool      `json:"active"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// UserListResponse is the paginated GET /v1/users body.
type UserListResponse struct {
	Data   []UserResponse `json:"data"`
	Total  int64          `json:"total"`
	Offset int            `json:"offset"`
	Limit  int            `json:"limit"`
}

func toResponse(u *model.User) UserResponse {
	return UserResponse{
		ID:        u.ID,
		Name:      u.Name,
		Email:     u.Email,
		Active:    u.Active,
		CreatedAt: u.CreatedAt,
		UpdatedAt: u.UpdatedAt,
	}
}

// MountRoutes mounts the user endpoints on the given router.
func MountRoutes(r *gin.Engine, svc *service.UserService, auth gin.HandlerFunc) {
	g := r.Group("/v1", auth)

	g.POST("/users", func(c *gin.Context) { createUser(c, svc) })
	g.GET("/users", func(c *gin.Context) { listUsers(c, svc) })
	g.GET("/users/:id", func(c *gin.Context) { getUser(c, svc) })
	g.PUT("/users/:id", func(c *gin.Context) { updateUser(c, svc) })
	g.DELETE("/users/:id", func(c *gin.Context) { deleteUser(c, svc) })
	g.POST("/users/:id/deactivate", func(c *gin.Context) { deactivateUser(c, svc) })
}

func createUser(c *gin.Context, svc *service.UserService) {
	var req CreateUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, apperr.NewArgument("body", "Request body must be valid JSON."))
		return
	}
	user, err := svc.Create(c.Request.Context(), req.Name, req.Email)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, toResponse(user))
}

func getUser(c *gin.Context, svc *service.UserService) {
	user, err := svc.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, toResponse(user))
}

func listUsers(c *gin.Context, svc *service.UserService) {
	// ?email= looks up a single user by address instead of paging.
	if email := c.Query("email"); email != "" {
		user, err := svc.GetByEmail(c.Request.Context(), email)
		if err != nil {
			fail(c, err)
			return
		}
		c.JSON(http.StatusOK, UserListResponse{
			Data:  []UserResponse{toResponse(user)},
			Total: 1,
			Limit: 1,
		})
		return
	}

	offset, err := queryInt(c, "offset", 0)
	if err != nil {
		fail(c, apperr.NewArgument("offset", "Offset must be an integer."))
		return
	}
	limit, err := queryInt(c, "limit", 0)
	if err != nil {
		fail(c, apperr.NewArgument("limit", "Limit must be an integer."))
		return
	}

	users, total, err := svc.List(c.Request.Context(), offset, limit)
	if err != nil {
		fail(c, err)
		return
	}
	data := make([]UserResponse, len(users))
	for i := range users {
		data[i] = toResponse(&users[i])
	}
	c.JSON(http.StatusOK, UserListResponse{Data: data, Total: total, Offset: offset, Limit: len(data)})
}

func updateUser(c *gin.Context, svc *service.UserService) {
	var req UpdateUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, apperr.NewArgument("body", "Request body must be valid JSON."))
		return
	}
	user, err := svc.Update(c.Request.Context(), c.Param("id"), req.Name, req.Email)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, toResponse(user))
}

func deleteUser(c *gin.Context, svc *service.UserService) {
	if err := svc.Delete(c.Request.Context(), c.Param("id")); err != nil {
		fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func deactivateUser(c *gin.Context, svc *service.UserService) {
	user, err := svc.Deactivate(c.Request.Context(), c.Param("id"))
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, toResponse(user))
}

// fail hands the error to the error-handling middleware; handlers never shape
// error responses themselves.
func fail(c *gin.Context, err error) {
	_ = c.Error(err)
	c.Abort()
}

func queryInt(c *gin.Context, key string, def int) (int, error) {
	v := c.Query(key)
	if v == "" {
		return def, nil
	}
	return strconv.Atoi(v)
}
