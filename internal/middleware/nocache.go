package middleware

import "github.com/gin-gonic/gin"

// NoCache 禁止浏览器缓存页面，登出后后退不会看到旧页面
func NoCache() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Cache-Control", "no-cache, no-store, must-revalidate, public, max-age=0")
		c.Header("Pragma", "no-cache")
		c.Header("Expires", "0")
		c.Next()
	}
}
