package middleware

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"drafts-service/internal/drafts"
	"drafts-service/internal/models"
	"drafts-service/internal/repositories"
)

const userContextKey = "user"

// DraftsSyncGuard loads the acting user's profile and rejects the request
// when draft synchronization is disabled. Runs after AuthMiddleware; on
// success the profile is available to handlers via UserFromContext.
func DraftsSyncGuard(users repositories.UserRepository) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := c.GetInt("userID")

		user, err := users.GetUser(c.Request.Context(), userID)
		if err != nil {
			status := http.StatusInternalServerError
			if errors.Is(err, repositories.ErrUserNotFound) {
				status = http.StatusUnauthorized
			}
			c.AbortWithStatusJSON(status, gin.H{"error": "failed to load user"})
			return
		}

		if !user.EnableDraftsSync {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": drafts.ErrSyncDisabled.Error()})
			return
		}

		c.Set(userContextKey, user)
		c.Next()
	}
}

// UserFromContext returns the profile stored by DraftsSyncGuard.
func UserFromContext(c *gin.Context) (models.User, bool) {
	val, ok := c.Get(userContextKey)
	if !ok {
		return models.User{}, false
	}
	user, ok := val.(models.User)
	return user, ok
}
