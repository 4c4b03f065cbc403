package middleware

import (
	"time"

	"ssm-keeper/services"

	"github.com/gin-gonic/gin"
)

/**
 * HTTP请求统计中间件
 * @description
 * - 统计HTTP服务器收到的请求数量
 * - 记录请求处理时间
 * - 区分成功和失败的请求
 * - 为健康检查接口提供请求数据
 */
func MetricsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		// 记录请求开始时间
		start := time.Now()

		// 处理请求
		c.Next()

		// 计算请求处理时间
		duration := time.Since(start).Seconds()

		// 获取请求状态码
		statusCode := c.Writer.Status()

		// 用注册的路由模板作为指标标签，避免路径参数撑爆标签数量
		route := c.FullPath()
		if route == "" {
			route = "unknown"
		}

		// 增加请求计数
		services.IncrementRequestCount(route)

		// 记录请求持续时间
		services.RecordRequestDuration(route, duration)

		// 如果是错误请求（状态码 >= 400），增加错误请求计数
		if statusCode >= 400 {
			services.IncrementErrorCount(route)
		}
	}
}
