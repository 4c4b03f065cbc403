package controllers

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"ssm-keeper/internal/models"
	"ssm-keeper/services"

	"github.com/gin-gonic/gin"
)

// SessionController handles port forwarding session HTTP requests
type SessionController struct {
	manager *services.SessionManager
}

// NewSessionController creates a new SessionController bound to a session manager
func NewSessionController(manager *services.SessionManager) *SessionController {
	return &SessionController{
		manager: manager,
	}
}

// 错误分类到HTTP状态码，响应里的code字段带具体分类
func statusFromError(err error) int {
	switch {
	case errors.Is(err, services.ErrSessionNotFound):
		return http.StatusNotFound
	case errors.Is(err, services.ErrSessionExists),
		errors.Is(err, services.ErrStopInFlight),
		errors.Is(err, services.ErrSessionBusy):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// 查询参数里的端口，缺省为0，非法时直接响应400
func portQuery(c *gin.Context, name string) (int, bool) {
	v := c.Query(name)
	if v == "" {
		return 0, true
	}
	port, err := strconv.Atoi(v)
	if err != nil {
		c.JSON(http.StatusBadRequest, &models.ErrorResponse{
			Code:  "invalid_request",
			Error: fmt.Sprintf("Invalid %s parameter", name),
		})
		return 0, false
	}
	return port, true
}

// CreateSession starts a port forwarding session
//
//	@Summary		Start port forwarding session
//	@Description	Spawn the tunnel subprocess and wait until the session id appears
//	@Tags			Sessions
//	@Accept			json
//	@Produce		json
//	@Param			body	body		models.CreateSessionRequest	true	"Session request parameters"
//	@Success		200		{object}	models.Session				"Active session"
//	@Failure		400		{object}	models.ErrorResponse		"Invalid parameter error response"
//	@Failure		409		{object}	models.ErrorResponse		"Session already exists for this key"
//	@Failure		500		{object}	models.ErrorResponse		"Session launch failure"
//	@Router			/ssm-keeper/api/v1/sessions [post]
func (sc *SessionController) CreateSession(c *gin.Context) {
	var req models.CreateSessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, &models.ErrorResponse{
			Code:  "invalid_request",
			Error: "Invalid request parameters",
		})
		return
	}

	sess, err := sc.manager.StartPortForwarding(c.Request.Context(), &req)
	if err != nil {
		c.JSON(statusFromError(err), &models.ErrorResponse{
			Code:  services.ErrorKind(err),
			Error: err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, sess)
}

// ListSessions lists all registered sessions
//
//	@Summary		List sessions
//	@Description	Get all sessions currently tracked in the registry
//	@Tags			Sessions
//	@Accept			json
//	@Produce		json
//	@Success		200	{array}		models.Session			"Session list response"
//	@Failure		500	{object}	models.ErrorResponse	"Internal server error response"
//	@Router			/ssm-keeper/api/v1/sessions [get]
func (sc *SessionController) ListSessions(c *gin.Context) {
	sessions := sc.manager.ListSessions()

	c.JSON(http.StatusOK, sessions)
}

// GetSession returns a single session by session id or instance id
//
//	@Summary		Get session
//	@Description	Look up one session by session id, or by instance id narrowed with the port queries
//	@Tags			Sessions
//	@Accept			json
//	@Produce		json
//	@Param			id			path		string	true	"Session id or instance id"
//	@Param			localPort	query		int		false	"Local port, narrows instance id lookup"
//	@Param			remotePort	query		int		false	"Remote port, narrows instance id lookup"
//	@Success		200			{object}	models.Session			"Session"
//	@Failure		404			{object}	models.ErrorResponse	"Session not found"
//	@Router			/ssm-keeper/api/v1/sessions/{id} [get]
func (sc *SessionController) GetSession(c *gin.Context) {
	ref := c.Param("id")
	localPort, ok := portQuery(c, "localPort")
	if !ok {
		return
	}
	remotePort, ok := portQuery(c, "remotePort")
	if !ok {
		return
	}

	sess, err := sc.manager.GetSession(ref, localPort, remotePort)
	if err != nil {
		c.JSON(statusFromError(err), &models.ErrorResponse{
			Code:  services.ErrorKind(err),
			Error: err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, sess)
}

// DeleteSession stops a session by session id or instance id
//
//	@Summary		Stop port forwarding session
//	@Description	Terminate the tunnel subprocess gracefully, escalating to kill when ignored
//	@Tags			Sessions
//	@Accept			json
//	@Produce		json
//	@Param			id			path		string				true	"Session id or instance id"
//	@Param			localPort	query		int					false	"Local port, narrows instance id lookup"
//	@Param			remotePort	query		int					false	"Remote port, narrows instance id lookup"
//	@Success		200			{object}	models.StopSessionResult	"Stop result"
//	@Failure		404			{object}	models.ErrorResponse		"Session not found"
//	@Failure		409			{object}	models.ErrorResponse		"Stop already in progress"
//	@Failure		500			{object}	models.ErrorResponse		"Termination failure"
//	@Router			/ssm-keeper/api/v1/sessions/{id} [delete]
func (sc *SessionController) DeleteSession(c *gin.Context) {
	ref := c.Param("id")
	localPort, ok := portQuery(c, "localPort")
	if !ok {
		return
	}
	remotePort, ok := portQuery(c, "remotePort")
	if !ok {
		return
	}

	result, err := sc.manager.StopPortForwarding(ref, localPort, remotePort)
	if err != nil {
		c.JSON(statusFromError(err), &models.ErrorResponse{
			Code:  services.ErrorKind(err),
			Error: err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, result)
}

// ListOrphans lists tunnel processes found in the OS process table
//
//	@Summary		List orphan tunnel processes
//	@Description	Scan the whole process table for tunnel subprocess signatures, independent of the registry
//	@Tags			Orphans
//	@Accept			json
//	@Produce		json
//	@Success		200	{array}		models.OrphanProcess	"Matching process list"
//	@Failure		500	{object}	models.ErrorResponse	"Process enumeration failure"
//	@Router			/ssm-keeper/api/v1/orphans [get]
func (sc *SessionController) ListOrphans(c *gin.Context) {
	orphans, err := sc.manager.FindOrphanedSessions()
	if err != nil {
		c.JSON(http.StatusInternalServerError, &models.ErrorResponse{
			Code:  "internal",
			Error: fmt.Sprintf("Failed to scan processes: %v", err),
		})
		return
	}

	c.JSON(http.StatusOK, orphans)
}

// ReapOrphans force kills every process matching the tunnel signature
//
//	@Summary		Force kill orphan tunnel processes
//	@Description	Kill all matching processes without graceful signaling, the emergency cleanup path
//	@Tags			Orphans
//	@Accept			json
//	@Produce		json
//	@Success		200	{object}	models.OrphanKillResult	"Kill sweep result"
//	@Failure		500	{object}	models.ErrorResponse	"Process enumeration failure"
//	@Router			/ssm-keeper/api/v1/orphans [delete]
func (sc *SessionController) ReapOrphans(c *gin.Context) {
	result, err := sc.manager.ForceKillOrphanedSessions()
	if err != nil {
		c.JSON(http.StatusInternalServerError, &models.ErrorResponse{
			Code:  "internal",
			Error: fmt.Sprintf("Failed to reap orphans: %v", err),
		})
		return
	}

	c.JSON(http.StatusOK, result)
}

/**
* Register all session-related routes to Gin engine
* @param {*gin.Engine} r - Gin router instance
* @description
* - Creates /ssm-keeper/api/v1 route group
* - Registers routes for:
*   - Start session (POST /sessions)
*   - List sessions (GET /sessions)
*   - Get session (GET /sessions/{id})
*   - Stop session (DELETE /sessions/{id})
*   - List orphan processes (GET /orphans)
*   - Force kill orphan processes (DELETE /orphans)
 */
func (sc *SessionController) RegisterRoutes(r *gin.Engine) {
	sessionAPI := r.Group("/ssm-keeper/api/v1")
	{
		// 会话管理接口
		sessions := sessionAPI.Group("/sessions")
		{
			sessions.POST("", sc.CreateSession)
			sessions.GET("", sc.ListSessions)
			sessions.GET("/:id", sc.GetSession)
			sessions.DELETE("/:id", sc.DeleteSession)
		}
		// 孤儿进程接口
		orphans := sessionAPI.Group("/orphans")
		{
			orphans.GET("", sc.ListOrphans)
			orphans.DELETE("", sc.ReapOrphans)
		}
	}
}
