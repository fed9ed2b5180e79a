package router

import (
	"context"
	"crypto/subtle"
	"errors"

	"resume-parser-go/internal/api/handler"
	"resume-parser-go/internal/types"

	"github.com/cloudwego/hertz/pkg/app"
	"github.com/cloudwego/hertz/pkg/app/server"
	"github.com/cloudwego/hertz/pkg/protocol/consts"
	"github.com/hertz-contrib/keyauth"
)

var errInvalidAPIKey = errors.New("invalid API key")

// RegisterRoutes 注册 API 路由, 上传接口需要 Bearer API Key
func RegisterRoutes(h *server.Hertz, resumeHandler *handler.ResumeHandler, apiKey string) {
	api := h.Group("/api/v1")

	api.GET("/health", resumeHandler.HandleHealth)

	resumes := api.Group("/resumes")
	resumes.POST("/upload", APIKeyAuth(apiKey), resumeHandler.HandleUpload)
	resumes.GET("/:id", resumeHandler.HandleGetResume)
	resumes.POST("/:id/match", resumeHandler.HandleMatch)
	resumes.POST("/:id/similarity", resumeHandler.HandleSimilarity)

	api.GET("/search", resumeHandler.HandleSearch)
}

// APIKeyAuth 缺少或格式错误的 Authorization 返回 401, key 不匹配返回 403
func APIKeyAuth(apiKey string) app.HandlerFunc {
	return keyauth.New(
		keyauth.WithKeyLookUp("header:Authorization", "Bearer"),
		keyauth.WithValidator(func(ctx context.Context, c *app.RequestContext, key string) (bool, error) {
			if subtle.ConstantTimeCompare([]byte(key), []byte(apiKey)) == 1 {
				return true, nil
			}
			return false, errInvalidAPIKey
		}),
		keyauth.WithErrorHandler(func(ctx context.Context, c *app.RequestContext, err error) {
			if errors.Is(err, keyauth.ErrMissingOrMalformedAPIKey) {
				c.AbortWithStatusJSON(consts.StatusUnauthorized,
					types.NewErrorResponse("缺少或格式错误的 Authorization 头", nil))
				return
			}
			c.AbortWithStatusJSON(consts.StatusForbidden, types.NewErrorResponse("API Key 无效", nil))
		}),
	)
}
