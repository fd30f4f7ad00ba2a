package match

import (
	"context"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/veloradating/matchsvc/internal/db"
	svcErr "github.com/veloradating/matchsvc/internal/errors"
	"github.com/veloradating/matchsvc/internal/server"
)

const (
	defaultPageSize = 20
	maxPageSize     = 50
)

type recordActionRequest struct {
	TargetUserID uint64 `json:"target_user_id"`
	Action       string `json:"action"`
}

// PostMatch handles POST /matches: records the authenticated user's action
// on a target and reports whether it completed a mutual match.
func (s *Service) PostMatch(c *gin.Context) {
	actorID := server.UserID(c)

	var req recordActionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "msg": "invalid request body"})
		return
	}

	result, err := s.RecordAction(c.Request.Context(), actorID, req.TargetUserID, db.ActionKind(req.Action))
	if err != nil {
		status, _, msg := svcErr.Map(err)
		c.JSON(status, gin.H{"success": false, "msg": msg})
		return
	}

	resp := gin.H{
		"success":   true,
		"is_mutual": result.IsMutual,
	}
	if result.ConversationID != "" {
		resp["conversation_id"] = result.ConversationID
	}
	c.JSON(http.StatusOK, resp)
}

// GetLikedYou handles GET /matches/liked-you.
func (s *Service) GetLikedYou(c *gin.Context) {
	s.respondLikers(c, s.ListLikedYou)
}

// GetNewLikedYou handles GET /matches/liked-you/new.
func (s *Service) GetNewLikedYou(c *gin.Context) {
	s.respondLikers(c, s.ListNewLikedYou)
}

// GetLikedYouCount handles GET /matches/liked-you/count.
func (s *Service) GetLikedYouCount(c *gin.Context) {
	count, err := s.CountLikedYou(c.Request.Context(), server.UserID(c))
	if err != nil {
		status, _, msg := svcErr.Map(err)
		c.JSON(status, gin.H{"success": false, "msg": msg})
		return
	}
	c.JSON(http.StatusOK, gin.H{"count": count})
}

func (s *Service) respondLikers(
	c *gin.Context,
	list func(ctx context.Context, userID uint64, pageToken *string, limit int) ([]Liker, *string, error),
) {
	userID := server.UserID(c)

	var pageToken *string
	if tok := c.Query("page_token"); tok != "" {
		pageToken = &tok
	}

	limit := defaultPageSize
	if raw := c.Query("limit"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n > 0 {
			limit = min(n, maxPageSize)
		}
	}

	likers, next, err := list(c.Request.Context(), userID, pageToken, limit)
	if err != nil {
		status, _, msg := svcErr.Map(err)
		c.JSON(status, gin.H{"success": false, "msg": msg})
		return
	}

	resp := gin.H{"likers": likers}
	if next != nil {
		resp["next_page_token"] = *next
	}
	c.JSON(http.StatusOK, resp)
}
