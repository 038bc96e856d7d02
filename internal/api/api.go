package api

import (
	"context"

	"github.com/celerix-dev/celerix-accounts/internal/accounts"
	"github.com/gin-gonic/gin"
)

// AccountService is the part of accounts.Service the HTTP layer needs.
type AccountService interface {
	Register(ctx context.Context, email, password string) accounts.Outcome
	Authenticate(ctx context.Context, email, password string) accounts.Outcome
}

type Handler struct {
	Accounts AccountService
}

// credentials is bound from either a form or a JSON body, depending on Content-Type.
type credentials struct {
	Email    string `form:"email" json:"email"`
	Password string `form:"password" json:"password"`
}

// bindCredentials never fails the request: an undecodable body leaves the
// fields empty and the service reports them as missing.
func bindCredentials(c *gin.Context) credentials {
	var in credentials
	if err := c.ShouldBind(&in); err != nil {
		return credentials{}
	}
	return in
}

func (h *Handler) Signup(c *gin.Context) {
	in := bindCredentials(c)
	out := h.Accounts.Register(c.Request.Context(), in.Email, in.Password)
	c.String(out.Kind.HTTPStatus(), out.Message)
}

func (h *Handler) Login(c *gin.Context) {
	in := bindCredentials(c)
	out := h.Accounts.Authenticate(c.Request.Context(), in.Email, in.Password)
	c.String(out.Kind.HTTPStatus(), out.Message)
}

// Register mounts the account routes on r.
func (h *Handler) Register(r gin.IRoutes) {
	r.POST("/signup", h.Signup)
	r.POST("/login", h.Login)
}
