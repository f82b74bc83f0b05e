package server

import (
	"errors"
	"net/http"
	"strings"

	"github.com/MarcoPoloResearchLab/bookmarks/backend/internal/bookmarks"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const (
	messageCreated   = "Bookmark created successfully"
	messageUpdated   = "Bookmark updated successfully"
	messageDeleted   = "Bookmark deleted successfully"
	messageReordered = "Bookmark order updated successfully"
	messageBadBody   = "Request body is invalid"
)

func (h *httpHandler) handleListBookmarks(c *gin.Context) {
	identity, ok := currentIdentity(c)
	if !ok {
		c.JSON(http.StatusOK, gin.H{"bookmarks": []bookmarkPayload{}})
		return
	}

	tag := strings.TrimSpace(c.Query("tag"))
	stored, err := h.bookmarks.ListByTag(c.Request.Context(), bookmarks.UserID(identity.UserID), tag)
	if err != nil {
		h.writeBookmarkError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"bookmarks": newBookmarkPayloads(stored)})
}

func (h *httpHandler) handleListTags(c *gin.Context) {
	identity, ok := currentIdentity(c)
	if !ok {
		c.JSON(http.StatusOK, gin.H{"tags": []string{}})
		return
	}
	tags, err := h.bookmarks.Tags(c.Request.Context(), bookmarks.UserID(identity.UserID))
	if err != nil {
		h.writeBookmarkError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"tags": tags})
}

func (h *httpHandler) handleCreateBookmark(c *gin.Context) {
	identity, ok := requireIdentity(c, messageLoginToSave, messageSessionExpired)
	if !ok {
		return
	}

	var request createBookmarkRequest
	if err := c.ShouldBindJSON(&request); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": messageBadBody})
		return
	}
	if strings.TrimSpace(request.URL) == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": bookmarks.MessageURLRequired})
		return
	}

	bookmark, err := h.bookmarks.Create(c.Request.Context(), bookmarks.CreateRequest{
		UserID: bookmarks.UserID(identity.UserID),
		URL:    request.URL,
		Tags:   []string(request.Tags),
	})
	if err != nil {
		h.writeBookmarkError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{
		"message":  messageCreated,
		"bookmark": newBookmarkPayload(bookmark),
	})
}

func (h *httpHandler) handleUpdateBookmark(c *gin.Context) {
	identity, ok := requireIdentity(c, messageNotAuthenticated, messageInvalidToken)
	if !ok {
		return
	}

	var request updateBookmarkRequest
	if err := c.ShouldBindJSON(&request); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": messageBadBody})
		return
	}

	bookmark, err := h.bookmarks.Update(c.Request.Context(), bookmarks.UserID(identity.UserID), c.Param("id"), request.toPatch())
	if err != nil {
		h.writeBookmarkError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"message":  messageUpdated,
		"bookmark": newBookmarkPayload(bookmark),
	})
}

func (h *httpHandler) handleDeleteBookmark(c *gin.Context) {
	identity, ok := requireIdentity(c, messageNotAuthenticated, messageInvalidToken)
	if !ok {
		return
	}
	if err := h.bookmarks.Delete(c.Request.Context(), bookmarks.UserID(identity.UserID), c.Param("id")); err != nil {
		h.writeBookmarkError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": messageDeleted})
}

func (h *httpHandler) handleReorderBookmarks(c *gin.Context) {
	identity, ok := requireIdentity(c, messageNotAuthenticated, messageInvalidToken)
	if !ok {
		return
	}

	var request reorderBookmarksRequest
	if err := c.ShouldBindJSON(&request); err != nil || request.BookmarkIDs == nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": bookmarks.MessageIDsRequired})
		return
	}

	result, err := h.bookmarks.Reorder(c.Request.Context(), bookmarks.UserID(identity.UserID), request.BookmarkIDs)
	if err != nil {
		h.writeBookmarkError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"message": messageReordered,
		"applied": result.Applied,
	})
}

func (h *httpHandler) writeBookmarkError(c *gin.Context, err error) {
	message := bookmarks.MessageInternal
	code := ""
	var serviceErr *bookmarks.ServiceError
	if errors.As(err, &serviceErr) {
		message = serviceErr.Message()
		code = serviceErr.Code()
	}

	switch {
	case errors.Is(err, bookmarks.ErrValidation), errors.Is(err, bookmarks.ErrDuplicate):
		c.JSON(http.StatusBadRequest, gin.H{"error": message})
	case errors.Is(err, bookmarks.ErrForbidden):
		c.JSON(http.StatusForbidden, gin.H{"error": message})
	case errors.Is(err, bookmarks.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": message})
	default:
		h.logger.Error("bookmark request failed", zap.String("code", code), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": message, "code": code})
	}
}
