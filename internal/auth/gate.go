package auth

import (
	"fmt"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/MikeMC777/annoor-shop/internal/apperr"
	"github.com/MikeMC777/annoor-shop/internal/httpx"
)

const (
	// HeaderUID carries the id the caller claims to be.
	HeaderUID = "uid"

	ctxUID = "auth.uid"
)

// Verifier checks a bearer token against the id the caller asserts.
type Verifier interface {
	VerifyCaller(token, claimedUID string) (string, error)
}

// Gate composes token verification and role authorization into gin
// middleware. Denials abort before any handler runs.
type Gate struct {
	tokens Verifier
	authz  *Authorizer
}

func NewGate(tokens Verifier, authz *Authorizer) *Gate {
	return &Gate{tokens: tokens, authz: authz}
}

// Authenticated admits any caller holding a valid token for the uid header.
func (g *Gate) Authenticated() gin.HandlerFunc {
	return func(c *gin.Context) {
		uid, err := g.verify(c)
		if err != nil {
			httpx.Fail(c, err)
			return
		}
		c.Set(ctxUID, uid)
		c.Next()
	}
}

// Admin admits authenticated callers whose stored role is admin.
func (g *Gate) Admin() gin.HandlerFunc {
	return func(c *gin.Context) {
		uid, err := g.verify(c)
		if err != nil {
			httpx.Fail(c, err)
			return
		}
		if err := g.authz.Authorize(c.Request.Context(), uid); err != nil {
			httpx.Fail(c, err)
			return
		}
		c.Set(ctxUID, uid)
		c.Next()
	}
}

// verify returns ErrUnauthenticated when no credential is presented and
// ErrForbidden when one is presented but rejected.
func (g *Gate) verify(c *gin.Context) (string, error) {
	token, ok := bearer(c.GetHeader("Authorization"))
	if !ok {
		return "", apperr.ErrUnauthenticated
	}
	uid, err := g.tokens.VerifyCaller(token, c.GetHeader(HeaderUID))
	if err != nil {
		return "", fmt.Errorf("%w: %v", apperr.ErrForbidden, err)
	}
	return uid, nil
}

func bearer(header string) (string, bool) {
	scheme, token, found := strings.Cut(strings.TrimSpace(header), " ")
	if !found || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}

// UID returns the verified caller id set by the gate.
func UID(c *gin.Context) string {
	return c.GetString(ctxUID)
}
