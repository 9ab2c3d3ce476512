package main

import (
	"errors"
	"net/http"
	"strings"

	"taskman/models"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func setupRoutes(r *gin.Engine) {
	r.GET("/health", healthHandler)
	r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(registry, promhttp.HandlerOpts{})))

	users := r.Group("/api/users")
	users.POST("/register", registerHandler)
	users.POST("/login", loginHandler)
	// logout is not behind the auth gate: revocation must work for expired
	// or already-invalid tokens too.
	users.POST("/logout", logoutHandler)
	authed := users.Group("")
	authed.Use(authMiddleware())
	authed.GET("/me", meHandler)
	authed.PUT("/update", updateDetailsHandler)
	authed.PUT("/change-password", changePasswordHandler)
	authed.DELETE("/delete-account", deleteAccountHandler)

	tasks := r.Group("/api/tasks")
	tasks.Use(authMiddleware())
	tasks.POST("", createTaskHandler)
	tasks.GET("", listTasksHandler)
	tasks.GET("/:id", getTaskHandler)
	tasks.PUT("/:id", updateTaskHandler)
	tasks.DELETE("/:id", deleteTaskHandler)
}

func healthHandler(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "OK"})
}

// bearerToken extracts the raw token from the Authorization header.
func bearerToken(c *gin.Context) (string, bool) {
	h := c.GetHeader("Authorization")
	if len(h) < 8 || h[:7] != "Bearer " {
		return "", false
	}
	return h[7:], true
}

// authMiddleware gates protected routes: signature+expiry check, then the
// blacklist, then a load of the current identity. The first two failures are
// indistinguishable to the caller.
func authMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		token, ok := bearerToken(c)
		if !ok {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "missing or invalid Authorization header"})
			c.Abort()
			return
		}
		userID, err := sessionCodec.Verify(token)
		if err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "not authorized"})
			c.Abort()
			return
		}
		if blacklist.IsRevoked(token) {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "not authorized"})
			c.Abort()
			return
		}
		var user models.User
		if err := db.First(&user, userID).Error; err != nil {
			c.JSON(http.StatusNotFound, gin.H{"error": "user not found"})
			c.Abort()
			return
		}
		c.Set("user", &user)
		c.Next()
	}
}

// currentUser returns the identity loaded by authMiddleware.
func currentUser(c *gin.Context) *models.User {
	v, _ := c.Get("user")
	u, _ := v.(*models.User)
	return u
}

func registerHandler(c *gin.Context) {
	var req struct {
		Email    string `json:"email" binding:"required"`
		Password string `json:"password" binding:"required"`
		Name     string `json:"name" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if !validEmail(req.Email) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid email format"})
		return
	}
	if !validPassword(req.Password) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "password must be at least 8 characters long and contain at least one letter and one number"})
		return
	}
	if !validName(req.Name) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "name must be between 2 and 50 characters"})
		return
	}
	user, err := RegisterUser(req.Email, req.Password, req.Name)
	if err != nil {
		if errors.Is(err, errEmailTaken) {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "registration failed"})
		return
	}
	c.JSON(http.StatusCreated, user)
}

func loginHandler(c *gin.Context) {
	var req struct {
		Email    string `json:"email" binding:"required"`
		Password string `json:"password" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	token, user, err := LoginUser(req.Email, req.Password)
	if err != nil {
		if errors.Is(err, errInvalidCredentials) {
			stats.loginFailures.Inc()
			c.JSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "login failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"token": token, "user": user})
}

func logoutHandler(c *gin.Context) {
	token, ok := bearerToken(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "no token provided"})
		return
	}
	LogoutUser(token)
	c.JSON(http.StatusOK, gin.H{"message": "logged out successfully"})
}

func meHandler(c *gin.Context) {
	c.JSON(http.StatusOK, currentUser(c))
}

func updateDetailsHandler(c *gin.Context) {
	user := currentUser(c)
	var req struct {
		Name  *string `json:"name"`
		Email *string `json:"email"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if req.Name == nil && req.Email == nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "at least one field must be provided for update"})
		return
	}
	if req.Name != nil {
		if !validName(*req.Name) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "name must be between 2 and 50 characters"})
			return
		}
		user.Name = strings.TrimSpace(*req.Name)
	}
	if req.Email != nil {
		if !validEmail(*req.Email) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid email format"})
			return
		}
		var other models.User
		if err := db.Where("email = ? AND id <> ?", *req.Email, user.ID).First(&other).Error; err == nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": errEmailTaken.Error()})
			return
		}
		user.Email = strings.TrimSpace(*req.Email)
	}
	if err := db.Save(user).Error; err != nil {
		if isUniqueConstraintError(err) {
			c.JSON(http.StatusBadRequest, gin.H{"error": errEmailTaken.Error()})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "update failed"})
		return
	}
	c.JSON(http.StatusOK, user)
}

func changePasswordHandler(c *gin.Context) {
	user := currentUser(c)
	var req struct {
		CurrentPassword string `json:"currentPassword" binding:"required"`
		NewPassword     string `json:"newPassword" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if !validPassword(req.NewPassword) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "new password must be at least 8 characters long and contain at least one letter and one number"})
		return
	}
	if err := ChangePassword(user.ID, req.CurrentPassword, req.NewPassword); err != nil {
		switch {
		case errors.Is(err, errWrongPassword):
			c.JSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
		case errors.Is(err, errUserNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"error": "password change failed"})
		}
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "password changed successfully"})
}

func deleteAccountHandler(c *gin.Context) {
	user := currentUser(c)
	if err := DeleteAccount(user.ID); err != nil {
		if errors.Is(err, errUserNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "account deletion failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "account deleted successfully"})
}
