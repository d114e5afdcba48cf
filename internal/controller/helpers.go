package controller

import (
	"edu_platform_backend/internal/policy"
	"edu_platform_backend/internal/repository"
	"edu_platform_backend/internal/util"
	"strconv"

	"github.com/gin-gonic/gin"
)

// currentCaller 从 JWT 声明构造调用者；缺失时直接返回 401
func currentCaller(ctx *gin.Context) (policy.Caller, bool) {
	claims := util.GetUserFromContext(ctx)
	if claims == nil {
		util.Unauthorized(ctx)
		return policy.Caller{}, false
	}
	return policy.FromClaims(claims), true
}

func pathID(ctx *gin.Context, name string) (uint, bool) {
	id, err := util.ParseID(ctx.Param(name))
	if err != nil {
		util.RespondError(ctx, err)
		return 0, false
	}
	return id, true
}

func pagination(ctx *gin.Context) (int, int) {
	page, _ := strconv.Atoi(ctx.DefaultQuery("page", "1"))
	limit, _ := strconv.Atoi(ctx.DefaultQuery("limit", strconv.Itoa(repository.DefaultPageSize)))
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = repository.DefaultPageSize
	}
	if limit > repository.MaxPageSize {
		limit = repository.MaxPageSize
	}
	return page, limit
}

func pageResponse(list interface{}, total int64, page, limit int) util.PageResponse {
	return util.PageResponse{List: list, Total: total, Page: page, Limit: limit}
}
