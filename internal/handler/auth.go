package handler

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/storehouse/internal/config"
	"github.com/iliyamo/storehouse/internal/logging"
	"github.com/iliyamo/storehouse/internal/metrics"
	"github.com/iliyamo/storehouse/internal/model"
	"github.com/iliyamo/storehouse/internal/queue"
	"github.com/iliyamo/storehouse/internal/repository"
	"github.com/iliyamo/storehouse/internal/utils"
)

// UserStore is what the auth endpoints need from the user repository.
type UserStore interface {
	GetByEmail(ctx context.Context, email string) (model.User, error)
	Insert(ctx context.Context, fields repository.Fields) (uint64, error)
}

// AuthHandler bundles dependencies for sign-up, login and the caller's own
// record.
type AuthHandler struct {
	Cfg    config.Config
	Users  UserStore
	Events EventSink
}

func NewAuthHandler(cfg config.Config, users UserStore, events EventSink) *AuthHandler {
	return &AuthHandler{Cfg: cfg, Users: users, Events: events}
}

type signupReq struct {
	Name     string `json:"name" validate:"required,max=20"`
	Email    string `json:"email" validate:"required,email,max=120"`
	Password string `json:"password" validate:"required,maxbytes=72"`
}

type loginReq struct {
	Email    string `json:"email" validate:"required"`
	Password string `json:"password" validate:"required"`
}

type tokenResp struct {
	Token   string    `json:"token"`
	Expires time.Time `json:"expires"`
}

// Signup creates a user unless the email is already registered, in which
// case it answers 202 and leaves the existing user untouched.
func (h *AuthHandler) Signup(c echo.Context) error {
	var req signupReq
	if err := (&echo.DefaultBinder{}).BindBody(c, &req); err != nil {
		return badRequest(c, "invalid request body")
	}
	if err := createValidator.Struct(req); err != nil {
		metrics.RecordAuthEvent("signup", "bad_request")
		return badRequest(c, validationMessage(err))
	}

	ctx, cancel := requestContext(c)
	defer cancel()

	_, err := h.Users.GetByEmail(ctx, req.Email)
	switch {
	case err == nil:
		return h.alreadyRegistered(c)
	case !errors.Is(err, repository.ErrNotFound):
		logging.Error().Err(err).Msg("signup lookup failed")
		return err
	}

	id, err := h.Users.Insert(ctx, repository.Fields{
		"name":     req.Name,
		"email":    req.Email,
		"password": req.Password,
	})
	if err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			// lost a race with a concurrent sign-up for the same email
			return h.alreadyRegistered(c)
		}
		if errors.Is(err, repository.ErrPasswordTooLong) {
			metrics.RecordAuthEvent("signup", "bad_request")
			return badRequest(c, err.Error())
		}
		logging.Error().Err(err).Msg("signup insert failed")
		return err
	}
	metrics.RecordAuthEvent("signup", "created")
	emit(ctx, h.Events, queue.ResourceEvent{Kind: "user", Op: queue.OpSignup, ID: id})
	return c.JSON(http.StatusCreated, echo.Map{"message": "successfully registered"})
}

func (h *AuthHandler) alreadyRegistered(c echo.Context) error {
	metrics.RecordAuthEvent("signup", "exists")
	return c.JSON(http.StatusAccepted, echo.Map{"message": "user already registered"})
}

// Login verifies credentials and issues an access token bound to the
// user's public id.
func (h *AuthHandler) Login(c echo.Context) error {
	var req loginReq
	if err := (&echo.DefaultBinder{}).BindBody(c, &req); err != nil {
		return badRequest(c, "invalid request body")
	}
	if err := createValidator.Struct(req); err != nil {
		metrics.RecordAuthEvent("login", "bad_request")
		return badRequest(c, validationMessage(err))
	}

	ctx, cancel := requestContext(c)
	defer cancel()

	u, err := h.Users.GetByEmail(ctx, req.Email)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			metrics.RecordAuthEvent("login", "not_found")
			return c.JSON(http.StatusNotFound, echo.Map{"error": "user not found"})
		}
		logging.Error().Err(err).Msg("login lookup failed")
		return err
	}
	if !utils.VerifyPassword(u.Password, req.Password) {
		metrics.RecordAuthEvent("login", "forbidden")
		return c.JSON(http.StatusForbidden, echo.Map{"error": "wrong password"})
	}

	at, err := utils.NewAccessToken(h.Cfg.JWTSecret, u.PublicID, h.Cfg.AccessTTL())
	if err != nil {
		logging.Error().Err(err).Msg("issue access token failed")
		return err
	}
	metrics.RecordAuthEvent("login", "ok")
	return c.JSON(http.StatusCreated, tokenResp{Token: at.Token, Expires: at.Exp})
}

// Me returns the authenticated caller.
func (h *AuthHandler) Me(c echo.Context, u *model.User) error {
	return c.JSON(http.StatusOK, u)
}
