package controller

import (
	"testhub_backend/internal/service"
	"testhub_backend/internal/util"

	"github.com/gin-gonic/gin"
)

type TeacherTestController struct {
	Authoring *service.TestAuthoringService
	Attempts  *service.TestAttemptService
}

func NewTeacherTestController(authoring *service.TestAuthoringService, attempts *service.TestAttemptService) *TeacherTestController {
	return &TeacherTestController{Authoring: authoring, Attempts: attempts}
}

// @Summary 创建测试
// @Tags 教师测试模块
// @Accept json
// @Produce json
// @Security ApiKeyAuth
// @Param body body service.CreateTestReq true "测试信息及题目"
// @Success 201 {object} util.Response{data=model.Test}
// @Failure 400 {object} util.Response
// @Router /teacher/tests [post]
func (c *TeacherTestController) CreateTest(ctx *gin.Context) {
	user := util.GetUserFromContext(ctx)
	if user == nil {
		util.Unauthorized(ctx)
		return
	}

	var req service.CreateTestReq
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	test, err := c.Authoring.CreateTest(ctx.Request.Context(), user.UserID, req)
	if err != nil {
		respondError(ctx, err)
		return
	}
	util.Created(ctx, test)
}

// @Summary 获取测试答题统计
// @Description 返回全部答题记录、答题次数、平均分与通过率
// @Tags 教师测试模块
// @Produce json
// @Security ApiKeyAuth
// @Param id path string true "测试ID"
// @Success 200 {object} util.Response{data=service.TestAnalytics}
// @Failure 403 {object} util.Response
// @Failure 404 {object} util.Response
// @Router /teacher/tests/{id}/analytics [get]
func (c *TeacherTestController) GetAnalytics(ctx *gin.Context) {
	user := util.GetUserFromContext(ctx)
	if user == nil {
		util.Unauthorized(ctx)
		return
	}

	stats, err := c.Attempts.GetTestAnalytics(ctx.Request.Context(), ctx.Param("id"), service.Requester{
		UserID: user.UserID,
		Role:   user.Role,
	})
	if err != nil {
		respondError(ctx, err)
		return
	}
	util.Success(ctx, stats)
}
