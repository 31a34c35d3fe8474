package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	internalhttp "github.com/inkwell-hq/inkwell/internal/http"
	"github.com/inkwell-hq/inkwell/internal/models"
)

// PostsHandler handles public and personal post endpoints.
type PostsHandler struct {
	db *gorm.DB
}

// NewPostsHandler constructs a PostsHandler.
func NewPostsHandler(db *gorm.DB) *PostsHandler {
	return &PostsHandler{db: db}
}

// PublicList returns all published posts, newest first.
func (h *PostsHandler) PublicList(c *gin.Context) {
	var posts []models.Post
	if errFind := h.db.WithContext(c.Request.Context()).
		Where("published = ?", true).
		Order("created_at DESC").
		Find(&posts).Error; errFind != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"detail": "Post list failed."})
		return
	}
	c.JSON(http.StatusOK, postListResponse(posts))
}

// ListMine returns the current user's posts regardless of published state.
func (h *PostsHandler) ListMine(c *gin.Context) {
	user, ok := internalhttp.CurrentUser(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"detail": "Not authenticated"})
		return
	}
	var posts []models.Post
	if errFind := h.db.WithContext(c.Request.Context()).
		Where("author_id = ?", user.ID).
		Order("created_at DESC").
		Find(&posts).Error; errFind != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"detail": "Post list failed."})
		return
	}
	c.JSON(http.StatusOK, postListResponse(posts))
}

// createPostRequest defines the request body for post creation.
type createPostRequest struct {
	Title     string `json:"title"`
	Content   string `json:"content"`
	Published bool   `json:"published"`
}

// CreateMine creates a post owned by the current user.
func (h *PostsHandler) CreateMine(c *gin.Context) {
	user, ok := internalhttp.CurrentUser(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"detail": "Not authenticated"})
		return
	}
	var body createPostRequest
	if errBind := c.ShouldBindJSON(&body); errBind != nil {
		c.JSON(http.StatusBadRequest, gin.H{"detail": "Invalid JSON body."})
		return
	}
	title := strings.TrimSpace(body.Title)
	if title == "" {
		c.JSON(http.StatusBadRequest, gin.H{"detail": "Title is required."})
		return
	}

	post := models.Post{
		AuthorID:  user.ID,
		Title:     title,
		Content:   body.Content,
		Published: body.Published,
	}
	if errCreate := h.db.WithContext(c.Request.Context()).Create(&post).Error; errCreate != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"detail": "Post creation failed."})
		return
	}
	c.JSON(http.StatusCreated, postResponse(post))
}

// GetMine returns one of the current user's posts.
func (h *PostsHandler) GetMine(c *gin.Context) {
	user, ok := internalhttp.CurrentUser(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"detail": "Not authenticated"})
		return
	}
	post, found := h.findOwnPost(c, user.ID)
	if !found {
		return
	}
	c.JSON(http.StatusOK, postResponse(*post))
}

// updatePostRequest defines the request body for post updates.
// Pointer fields distinguish "absent" from "set to zero value".
type updatePostRequest struct {
	Title     *string `json:"title"`
	Content   *string `json:"content"`
	Published *bool   `json:"published"`
}

// UpdateMine applies a partial update to one of the current user's posts.
func (h *PostsHandler) UpdateMine(c *gin.Context) {
	user, ok := internalhttp.CurrentUser(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"detail": "Not authenticated"})
		return
	}
	post, found := h.findOwnPost(c, user.ID)
	if !found {
		return
	}

	var body updatePostRequest
	if errBind := c.ShouldBindJSON(&body); errBind != nil {
		c.JSON(http.StatusBadRequest, gin.H{"detail": "Invalid JSON body."})
		return
	}

	updates := map[string]any{"updated_at": time.Now().UTC()}
	if body.Title != nil {
		title := strings.TrimSpace(*body.Title)
		if title == "" {
			c.JSON(http.StatusBadRequest, gin.H{"detail": "Title is required."})
			return
		}
		updates["title"] = title
		post.Title = title
	}
	if body.Content != nil {
		updates["content"] = *body.Content
		post.Content = *body.Content
	}
	if body.Published != nil {
		updates["published"] = *body.Published
		post.Published = *body.Published
	}

	if errUpdate := h.db.WithContext(c.Request.Context()).Model(post).Updates(updates).Error; errUpdate != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"detail": "Post update failed."})
		return
	}
	c.JSON(http.StatusOK, postResponse(*post))
}

// findOwnPost loads the path post scoped to the owner, writing the error
// response itself when the post is missing or the id is malformed.
func (h *PostsHandler) findOwnPost(c *gin.Context, userID uint64) (*models.Post, bool) {
	id, errParse := strconv.ParseUint(strings.TrimSpace(c.Param("id")), 10, 64)
	if errParse != nil {
		c.JSON(http.StatusBadRequest, gin.H{"detail": "Invalid post id."})
		return nil, false
	}
	var post models.Post
	if errFind := h.db.WithContext(c.Request.Context()).
		Where("id = ? AND author_id = ?", id, userID).
		First(&post).Error; errFind != nil {
		if errors.Is(errFind, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"detail": "Not found."})
			return nil, false
		}
		c.JSON(http.StatusInternalServerError, gin.H{"detail": "Post lookup failed."})
		return nil, false
	}
	return &post, true
}

// postResponse renders the post JSON shape.
func postResponse(post models.Post) gin.H {
	return gin.H{
		"id":         post.ID,
		"author":     post.AuthorID,
		"title":      post.Title,
		"content":    post.Content,
		"published":  post.Published,
		"created_at": post.CreatedAt,
		"updated_at": post.UpdatedAt,
	}
}

// postListResponse renders a list of posts.
func postListResponse(posts []models.Post) []gin.H {
	out := make([]gin.H, 0, len(posts))
	for _, post := range posts {
		out = append(out, postResponse(post))
	}
	return out
}
