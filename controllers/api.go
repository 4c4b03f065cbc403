package controllers

import (
	"ssm-keeper/internal/config"
	"ssm-keeper/services"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type APIController struct {
	server *services.Server
}

/**
 * Create new API controller instance
 * @param {*services.Server} server - Server instance owning the session manager
 * @returns {*APIController} New API controller instance
 * @description
 * - Initializes controller with the server
 * - Used to manage system level routes: check, reload, healthz, metrics
 * @example
 * server := services.NewServer(&config.Config)
 * controller := controllers.NewAPIController(server)
 * controller.RegisterRoutes(router)
 */
func NewAPIController(server *services.Server) *APIController {
	return &APIController{
		server: server,
	}
}

/**
 * Register all API routes to Gin engine
 * @param {*gin.Engine} r - Gin router instance
 * @description
 * - Registers routes for:
 *   - Configuration reload (POST /ssm-keeper/api/v1/reload)
 *   - System check (POST /ssm-keeper/api/v1/check)
 *   - Readiness probe (GET /healthz)
 *   - Prometheus metrics (GET /metrics)
 */
func (a *APIController) RegisterRoutes(r *gin.Engine) {
	r.POST("/ssm-keeper/api/v1/reload", a.ReloadConfig)
	r.POST("/ssm-keeper/api/v1/check", a.Check)
	r.GET("/ssm-keeper/api/v1/state", a.GetState)
	r.GET("/healthz", a.Healthz)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))
}

// @Summary 重新加载配置
// @Description 重新加载应用配置文件
// @Tags Config
// @Success 200 {object} map[string]interface{}
// @Failure 500 {object} map[string]interface{}
// @Router /ssm-keeper/api/v1/reload [post]
func (a *APIController) ReloadConfig(c *gin.Context) {
	if _, err := config.Reload(); err != nil {
		c.JSON(500, gin.H{
			"code":    "config.reload_failed",
			"message": "Failed to reload configuration: " + err.Error(),
		})
		return
	}

	c.JSON(200, gin.H{
		"status":  "success",
		"message": "Configuration reloaded successfully",
	})
}

// @Summary 执行系统检查
// @Description 立即巡检所有端口转发会话（进程存活、端口监听），并扫描系统里符合隧道特征的孤儿进程
// @Description 返回逐项检查结果与healthy/warning/error总评
// @Tags System
// @Accept json
// @Produce json
// @Success 200 {object} models.CheckResponse "检查成功，返回详细的会话与孤儿进程状态"
// @Router /ssm-keeper/api/v1/check [post]
func (a *APIController) Check(c *gin.Context) {
	response := a.server.Check()
	c.JSON(200, response)
}

// @Summary 查询服务器运行状态
// @Description 返回守护进程的PID、启动时间、侦听地址等运行信息
// @Tags System
// @Produce json
// @Success 200 {object} models.ServerState
// @Router /ssm-keeper/api/v1/state [get]
func (a *APIController) GetState(c *gin.Context) {
	c.JSON(200, a.server.GetState())
}

// @Summary 业务就绪探针
// @Description 检查服务是否已经做好准备，返回服务版本、启动时间、健康状态和关键指标统计结果
// @Tags System
// @Produce json
// @Success 200 {object} models.HealthResponse
// @Router /healthz [get]
func (a *APIController) Healthz(c *gin.Context) {
	response := a.server.GetHealthz()
	c.JSON(200, response)
}
