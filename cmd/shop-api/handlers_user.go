package main

import (
	"fmt"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/MikeMC777/annoor-shop/internal/apperr"
	"github.com/MikeMC777/annoor-shop/internal/auth"
	"github.com/MikeMC777/annoor-shop/internal/httpx"
	"github.com/MikeMC777/annoor-shop/internal/listing"
	"github.com/MikeMC777/annoor-shop/internal/user"
)

// tokenHandler godoc
// @Summary Upsert identity and mint a token
// @Description Stores uid and any profile fields, returning a token valid for 24 hours.
// @Tags users
// @Accept json
// @Produce json
// @Param body body object true "uid plus free-form profile fields"
// @Success 200 {object} httpx.Envelope{data=string}
// @Failure 400 {object} httpx.Envelope
// @Failure 429 {object} httpx.Envelope
// @Router /token [put]
func tokenHandler(svc *user.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		body, err := profileBody(c)
		if err != nil {
			httpx.Fail(c, err)
			return
		}
		uid, _ := body["uid"].(string)
		token, err := svc.Upsert(c.Request.Context(), uid, body)
		if err != nil {
			httpx.Fail(c, err)
			return
		}
		httpx.OK(c, "Got token", token)
	}
}

// getUserHandler godoc
// @Summary Caller's stored identity
// @Tags users
// @Security BearerAuth
// @Produce json
// @Param uid header string true "caller uid"
// @Success 200 {object} httpx.Envelope{data=user.User}
// @Failure 401 {object} httpx.Envelope
// @Failure 403 {object} httpx.Envelope
// @Failure 404 {object} httpx.Envelope
// @Router /user [get]
func getUserHandler(svc *user.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		u, err := svc.Get(c.Request.Context(), auth.UID(c))
		if err != nil {
			httpx.Fail(c, err)
			return
		}
		httpx.OK(c, "user found", u)
	}
}

// updateUserInfoHandler godoc
// @Summary Merge profile fields into the caller's identity
// @Tags users
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param uid header string true "caller uid"
// @Param body body object true "profile fields"
// @Success 200 {object} httpx.Envelope
// @Failure 400 {object} httpx.Envelope
// @Router /update-user-info [post]
func updateUserInfoHandler(svc *user.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		body, err := profileBody(c)
		if err != nil {
			httpx.Fail(c, err)
			return
		}
		if err := svc.UpdateProfile(c.Request.Context(), auth.UID(c), body); err != nil {
			httpx.Fail(c, err)
			return
		}
		httpx.OK(c, "user info updated", nil)
	}
}

// listUsersHandler godoc
// @Summary List identities
// @Tags users
// @Security BearerAuth
// @Produce json
// @Param uid header string true "caller uid"
// @Param page query int false "page, 15 per page"
// @Param search query string false "text search, wins over filter"
// @Param filter query string false "Admin"
// @Success 200 {object} httpx.Envelope{data=[]user.User}
// @Router /all-users [get]
func listUsersHandler(svc *user.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		p, err := listing.ParseParams(listingParams(c))
		if err != nil {
			httpx.Fail(c, err)
			return
		}
		users, total, err := svc.List(c.Request.Context(), p)
		if err != nil {
			httpx.Fail(c, err)
			return
		}
		httpx.List(c, "users found", "userCount", users, total)
	}
}

// setRoleHandler godoc
// @Summary Grant or revoke admin
// @Tags users
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param uid header string true "caller uid"
// @Param body body user.RoleRequest true "target and role"
// @Success 200 {object} httpx.Envelope
// @Failure 400 {object} httpx.Envelope
// @Failure 404 {object} httpx.Envelope
// @Router /user-role [put]
func setRoleHandler(svc *user.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req user.RoleRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			httpx.Fail(c, fmt.Errorf("%w: %v", apperr.ErrInvalidInput, err))
			return
		}
		role, err := user.ParseRole(req.Role)
		if err != nil {
			httpx.Fail(c, err)
			return
		}
		if err := svc.SetRole(c.Request.Context(), strings.TrimSpace(req.UID), role); err != nil {
			httpx.Fail(c, err)
			return
		}
		httpx.OK(c, "role updated", nil)
	}
}

// profileBody decodes a JSON object body. Reserved keys are dropped later by
// Profile.Clean.
func profileBody(c *gin.Context) (user.Profile, error) {
	var body user.Profile
	if err := c.ShouldBindJSON(&body); err != nil {
		return nil, fmt.Errorf("%w: body must be a JSON object", apperr.ErrInvalidInput)
	}
	if body == nil {
		body = user.Profile{}
	}
	return body, nil
}
