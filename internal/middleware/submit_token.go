package middleware

import (
	"crypto/subtle"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/kontrolhq/kontrol-backend/internal/response"
	"github.com/kontrolhq/kontrol-backend/internal/submit"
)

// RequireSubmitToken guards the pack collection endpoint with the shared
// X-Submit-Token secret. An empty configured token disables collection
// outright: an open drop box invites garbage uploads.
func RequireSubmitToken(token string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if token == "" {
			response.AbortFail(c, http.StatusForbidden, response.ErrSubmitTokenInvalid)
			return
		}

		got := c.GetHeader(submit.SubmitTokenHeader)
		if subtle.ConstantTimeCompare([]byte(got), []byte(token)) != 1 {
			response.AbortFail(c, http.StatusUnauthorized, response.ErrSubmitTokenInvalid)
			return
		}

		c.Next()
	}
}
