package handlers

import (
	"context"
	"time"

	"github.com/geocoder89/roadwatch/internal/account"
	"github.com/geocoder89/roadwatch/internal/domain/user"
	"github.com/geocoder89/roadwatch/internal/observability"
	"github.com/gin-gonic/gin"
)

type AccountService interface {
	Login(ctx context.Context, req user.LoginRequest) (account.Result, error)
	Register(ctx context.Context, req user.RegisterRequest) (account.Result, error)
	ChangePassword(ctx context.Context, req user.ChangePasswordRequest) (account.Result, error)
	Edit(ctx context.Context, req user.EditRequest) (account.Result, error)
	Delete(ctx context.Context, req user.DeleteRequest) (account.Result, error)
}

// bcrypt runs up to twice per request, so leave room for a slow cost setting.
const accountTimeout = 5 * time.Second

type UsersHandler struct {
	accounts AccountService
	prom     *observability.Prom
}

func NewUsersHandler(accounts AccountService, prom *observability.Prom) *UsersHandler {
	return &UsersHandler{accounts: accounts, prom: prom}
}

func (h *UsersHandler) Login(ctx *gin.Context) {
	var req user.LoginRequest

	if !BindJSON(ctx, &req) {
		return
	}

	cctx, cancel := context.WithTimeout(ctx.Request.Context(), accountTimeout)
	defer cancel()

	res, err := h.accounts.Login(cctx, req)
	h.finish(ctx, "login", res, err)
}

func (h *UsersHandler) Register(ctx *gin.Context) {
	var req user.RegisterRequest

	if !BindJSON(ctx, &req) {
		return
	}

	cctx, cancel := context.WithTimeout(ctx.Request.Context(), accountTimeout)
	defer cancel()

	res, err := h.accounts.Register(cctx, req)
	h.finish(ctx, "register", res, err)
}

func (h *UsersHandler) ChangePassword(ctx *gin.Context) {
	var req user.ChangePasswordRequest

	if !BindJSON(ctx, &req) {
		return
	}

	cctx, cancel := context.WithTimeout(ctx.Request.Context(), accountTimeout)
	defer cancel()

	res, err := h.accounts.ChangePassword(cctx, req)
	h.finish(ctx, "change_password", res, err)
}

func (h *UsersHandler) Edit(ctx *gin.Context) {
	var req user.EditRequest

	if !BindJSON(ctx, &req) {
		return
	}

	cctx, cancel := context.WithTimeout(ctx.Request.Context(), accountTimeout)
	defer cancel()

	res, err := h.accounts.Edit(cctx, req)
	h.finish(ctx, "edit", res, err)
}

func (h *UsersHandler) Delete(ctx *gin.Context) {
	var req user.DeleteRequest

	if !BindJSON(ctx, &req) {
		return
	}

	cctx, cancel := context.WithTimeout(ctx.Request.Context(), accountTimeout)
	defer cancel()

	res, err := h.accounts.Delete(cctx, req)
	h.finish(ctx, "delete", res, err)
}

func (h *UsersHandler) finish(ctx *gin.Context, op string, res account.Result, err error) {
	respond(ctx, h.prom, op, res.Key, res.Message, res.Data, err)
}
