package main

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"taskman/models"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// Columns the list endpoint accepts in its sort parameter.
var taskSortFields = map[string]string{
	"title":      "title",
	"status":     "status",
	"priority":   "priority",
	"due_date":   "due_date",
	"created_at": "created_at",
}

// parseSort turns "field:asc|desc" into an ORDER BY clause. Unknown fields
// and missing orders fall back to newest-first rather than erroring.
func parseSort(s string) string {
	if s == "" {
		return "created_at desc"
	}
	field, order := s, "asc"
	if i := strings.IndexByte(s, ':'); i >= 0 {
		field, order = s[:i], s[i+1:]
	}
	col, ok := taskSortFields[field]
	if !ok {
		return "created_at desc"
	}
	if order == "desc" {
		return col + " desc"
	}
	return col + " asc"
}

// parsePagination clamps page to >=1 and limit to 1..100 (default 10).
func parsePagination(pageStr, limitStr string) (page, limit int) {
	page, limit = 1, 10
	if v, err := strconv.Atoi(pageStr); err == nil && v > 1 {
		page = v
	}
	if v, err := strconv.Atoi(limitStr); err == nil && v >= 1 {
		limit = v
		if limit > 100 {
			limit = 100
		}
	}
	return page, limit
}

// parseDueDate accepts an RFC3339 timestamp that must lie in the future.
func parseDueDate(s string) (*time.Time, string) {
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return nil, "due_date must be a valid RFC3339 timestamp"
	}
	if t.Before(time.Now()) {
		return nil, "due date must be in the future"
	}
	return &t, ""
}

func createTaskHandler(c *gin.Context) {
	user := currentUser(c)
	var req struct {
		Title       string `json:"title" binding:"required"`
		Description string `json:"description"`
		Status      string `json:"status"`
		Priority    string `json:"priority"`
		DueDate     string `json:"due_date"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if !validTaskTitle(req.Title) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "title must be between 3 and 100 characters"})
		return
	}
	if !validTaskDescription(req.Description) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "description cannot exceed 500 characters"})
		return
	}
	if req.Status == "" {
		req.Status = models.StatusPending
	}
	if !taskStatuses[req.Status] {
		c.JSON(http.StatusBadRequest, gin.H{"error": "status must be one of: pending, in-progress, completed"})
		return
	}
	if req.Priority == "" {
		req.Priority = models.PriorityMedium
	}
	if !taskPriorities[req.Priority] {
		c.JSON(http.StatusBadRequest, gin.H{"error": "priority must be one of: low, medium, high"})
		return
	}
	task := models.Task{
		UserID:      user.ID,
		Title:       strings.TrimSpace(req.Title),
		Description: strings.TrimSpace(req.Description),
		Status:      req.Status,
		Priority:    req.Priority,
	}
	if req.DueDate != "" {
		due, msg := parseDueDate(req.DueDate)
		if msg != "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": msg})
			return
		}
		task.DueDate = due
	}
	if err := db.Create(&task).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "create failed"})
		return
	}
	c.JSON(http.StatusCreated, task)
}

// taskFilter builds the WHERE chain for the list endpoint. Built fresh for
// each finisher so count and find don't share gorm statement state.
func taskFilter(c *gin.Context, userID uint) *gorm.DB {
	q := db.Model(&models.Task{}).Where("user_id = ?", userID)
	if status := c.Query("status"); status != "" {
		q = q.Where("status = ?", status)
	}
	if priority := c.Query("priority"); priority != "" {
		q = q.Where("priority = ?", priority)
	}
	if search := c.Query("search"); search != "" {
		pat := "%" + search + "%"
		q = q.Where("title ILIKE ? OR description ILIKE ?", pat, pat)
	}
	return q
}

func listTasksHandler(c *gin.Context) {
	user := currentUser(c)

	var total int64
	if err := taskFilter(c, user.ID).Count(&total).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "query failed"})
		return
	}

	page, limit := parsePagination(c.Query("page"), c.Query("limit"))
	var tasks []models.Task
	if err := taskFilter(c, user.ID).Order(parseSort(c.Query("sort"))).Offset((page - 1) * limit).Limit(limit).Find(&tasks).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "query failed"})
		return
	}
	if tasks == nil {
		tasks = []models.Task{}
	}
	pages := (total + int64(limit) - 1) / int64(limit)
	c.JSON(http.StatusOK, gin.H{
		"tasks": tasks,
		"pagination": gin.H{
			"total": total,
			"page":  page,
			"pages": pages,
			"limit": limit,
		},
	})
}

// loadOwnedTask fetches the task by path id scoped to the current user. A
// non-numeric id behaves like a missing record.
func loadOwnedTask(c *gin.Context) (*models.Task, bool) {
	user := currentUser(c)
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "task not found"})
		return nil, false
	}
	var task models.Task
	if err := db.Where("id = ? AND user_id = ?", id, user.ID).First(&task).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "task not found"})
		return nil, false
	}
	return &task, true
}

func getTaskHandler(c *gin.Context) {
	task, ok := loadOwnedTask(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, task)
}

func updateTaskHandler(c *gin.Context) {
	task, ok := loadOwnedTask(c)
	if !ok {
		return
	}
	var req struct {
		Title       *string `json:"title"`
		Description *string `json:"description"`
		Status      *string `json:"status"`
		Priority    *string `json:"priority"`
		DueDate     *string `json:"due_date"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if req.Title == nil && req.Description == nil && req.Status == nil && req.Priority == nil && req.DueDate == nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "at least one field must be provided for update"})
		return
	}
	if req.Title != nil {
		if !validTaskTitle(*req.Title) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "title must be between 3 and 100 characters"})
			return
		}
		task.Title = strings.TrimSpace(*req.Title)
	}
	if req.Description != nil {
		if !validTaskDescription(*req.Description) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "description cannot exceed 500 characters"})
			return
		}
		task.Description = strings.TrimSpace(*req.Description)
	}
	if req.Status != nil {
		if !taskStatuses[*req.Status] {
			c.JSON(http.StatusBadRequest, gin.H{"error": "status must be one of: pending, in-progress, completed"})
			return
		}
		task.Status = *req.Status
	}
	if req.Priority != nil {
		if !taskPriorities[*req.Priority] {
			c.JSON(http.StatusBadRequest, gin.H{"error": "priority must be one of: low, medium, high"})
			return
		}
		task.Priority = *req.Priority
	}
	if req.DueDate != nil {
		due, msg := parseDueDate(*req.DueDate)
		if msg != "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": msg})
			return
		}
		task.DueDate = due
	}
	if err := db.Save(task).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "update failed"})
		return
	}
	c.JSON(http.StatusOK, task)
}

func deleteTaskHandler(c *gin.Context) {
	task, ok := loadOwnedTask(c)
	if !ok {
		return
	}
	if err := db.Delete(task).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "delete failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "task deleted successfully"})
}
