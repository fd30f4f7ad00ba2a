package integrity

import (
	"net/http"

	"github.com/gin-gonic/gin"

	svcErr "github.com/veloradating/matchsvc/internal/errors"
)

// Fix action names accepted by the admin endpoint.
const (
	FixActionDuplicateMatches       = "fix_duplicate_matches"
	FixActionDuplicateConversations = "fix_duplicate_conversations"
	FixActionOrphanedConversations  = "fix_orphaned_conversations"
)

type fixRequest struct {
	Action  string `json:"action"`
	Details struct {
		MatchIDs        []uint64 `json:"matchIds"`
		ConversationIDs []string `json:"conversationIds"`
	} `json:"details"`
}

// GetScan handles GET /admin/data-integrity/matches.
func (s *Service) GetScan(c *gin.Context) {
	report, err := s.Scan(c.Request.Context())
	if err != nil {
		status, code, msg := svcErr.Map(err)
		c.JSON(status, gin.H{"success": false, "error": code, "msg": msg})
		return
	}
	c.JSON(http.StatusOK, report)
}

// PostFix handles POST /admin/data-integrity/matches: applies one approved
// fix and reports how many rows actually changed.
func (s *Service) PostFix(c *gin.Context) {
	var req fixRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false, "error": "invalid_request", "msg": "invalid request body",
		})
		return
	}

	ctx := c.Request.Context()

	var fixed int64
	var err error
	switch req.Action {
	case FixActionDuplicateMatches:
		fixed, err = s.FixDuplicateMatches(ctx, req.Details.MatchIDs)
	case FixActionDuplicateConversations:
		fixed, err = s.FixDuplicateConversations(ctx, req.Details.ConversationIDs)
	case FixActionOrphanedConversations:
		fixed, err = s.FixOrphanedConversations(ctx, req.Details.ConversationIDs)
	default:
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false, "error": "unknown_action", "msg": "unknown fix action: " + req.Action,
		})
		return
	}

	if err != nil {
		status, code, msg := svcErr.Map(err)
		c.JSON(status, gin.H{"success": false, "error": code, "msg": msg, "fixed_count": fixed})
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "fixed_count": fixed})
}
