package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/quizmaster/profile-kit/pkg/auth"
)

type currentUser struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	Email    string `json:"email"`
	Name     string `json:"name,omitempty"`
	Role     string `json:"role"`
}

// Me echoes the user identified by the bearer token. It expects the
// authentication middleware to have stored the claims under claimsKey.
func Me(claimsKey string) gin.HandlerFunc {
	return func(c *gin.Context) {
		v, ok := c.Get(claimsKey)
		claims, _ := v.(*auth.Claims)
		if !ok || claims == nil {
			c.JSON(http.StatusUnauthorized, NewErrorResponse("unauthorized"))
			return
		}
		c.JSON(http.StatusOK, NewSuccessResponse(currentUser{
			ID:       claims.UserID,
			Username: claims.Username,
			Email:    claims.Email,
			Name:     claims.Name,
			Role:     claims.Role,
		}))
	}
}
