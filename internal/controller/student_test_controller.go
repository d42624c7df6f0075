package controller

import (
	"testhub_backend/internal/model"
	"testhub_backend/internal/service"
	"testhub_backend/internal/util"

	"github.com/gin-gonic/gin"
)

type StudentTestController struct {
	Service *service.TestAttemptService
}

func NewStudentTestController(svc *service.TestAttemptService) *StudentTestController {
	return &StudentTestController{Service: svc}
}

type SubmittedAnswerReq struct {
	QuestionNumber int               `json:"questionNumber" binding:"required,min=1"`
	Answer         model.AnswerValue `json:"answer" swaggertype:"string"`
}

type SubmitTestReq struct {
	Answers   []SubmittedAnswerReq `json:"answers" binding:"dive"`
	TimeSpent int                  `json:"timeSpent"`
}

// @Summary 获取学生测试详情
// @Description 有进行中的答题时返回题目（不含答案），乱序按答题记录固定
// @Tags 学生测试模块
// @Produce json
// @Security ApiKeyAuth
// @Param id path string true "测试ID"
// @Success 200 {object} util.Response{data=service.StudentTestView}
// @Failure 403 {object} util.Response
// @Failure 404 {object} util.Response
// @Router /student/tests/{id} [get]
func (c *StudentTestController) GetTest(ctx *gin.Context) {
	user := util.GetUserFromContext(ctx)
	if user == nil {
		util.Unauthorized(ctx)
		return
	}

	view, err := c.Service.GetTestForStudent(ctx.Request.Context(), ctx.Param("id"), user.UserID)
	if err != nil {
		respondError(ctx, err)
		return
	}
	util.Success(ctx, view)
}

// @Summary 开始或继续测试
// @Description 已有进行中的答题则原样返回，否则在资格校验通过后创建新的答题记录
// @Tags 学生测试模块
// @Produce json
// @Security ApiKeyAuth
// @Param id path string true "测试ID"
// @Success 200 {object} util.Response{data=service.StartResult} "继续答题"
// @Success 201 {object} util.Response{data=service.StartResult} "新答题"
// @Failure 403 {object} util.Response
// @Failure 404 {object} util.Response
// @Failure 503 {object} util.Response
// @Router /student/tests/{id}/start [post]
func (c *StudentTestController) StartTest(ctx *gin.Context) {
	user := util.GetUserFromContext(ctx)
	if user == nil {
		util.Unauthorized(ctx)
		return
	}

	result, err := c.Service.StartOrResume(ctx.Request.Context(), ctx.Param("id"), user.UserID)
	if err != nil {
		respondError(ctx, err)
		return
	}
	if result.Resumed {
		util.Success(ctx, result)
		return
	}
	util.Created(ctx, result)
}

// @Summary 提交测试
// @Tags 学生测试模块
// @Accept json
// @Produce json
// @Security ApiKeyAuth
// @Param id path string true "测试ID"
// @Param body body SubmitTestReq true "答案"
// @Success 200 {object} util.Response{data=service.AttemptSummary}
// @Failure 400 {object} util.Response
// @Failure 409 {object} util.Response
// @Failure 503 {object} util.Response
// @Router /student/tests/{id}/submit [post]
func (c *StudentTestController) SubmitTest(ctx *gin.Context) {
	user := util.GetUserFromContext(ctx)
	if user == nil {
		util.Unauthorized(ctx)
		return
	}

	var req SubmitTestReq
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	in := service.SubmitInput{
		Answers:   make([]model.AttemptAnswer, 0, len(req.Answers)),
		TimeSpent: req.TimeSpent,
	}
	for _, a := range req.Answers {
		in.Answers = append(in.Answers, model.AttemptAnswer{QuestionNumber: a.QuestionNumber, Answer: a.Answer})
	}

	attempt, err := c.Service.Submit(ctx.Request.Context(), ctx.Param("id"), user.UserID, in)
	if err != nil {
		respondError(ctx, err)
		return
	}

	summary, err := c.Service.Summarize(ctx.Request.Context(), attempt)
	if err != nil {
		respondError(ctx, err)
		return
	}
	util.Success(ctx, summary)
}

// @Summary 获取我的答题记录
// @Tags 学生测试模块
// @Produce json
// @Security ApiKeyAuth
// @Param id path string true "测试ID"
// @Success 200 {object} util.Response{data=[]service.AttemptSummary}
// @Router /student/tests/{id}/attempts [get]
func (c *StudentTestController) ListAttempts(ctx *gin.Context) {
	user := util.GetUserFromContext(ctx)
	if user == nil {
		util.Unauthorized(ctx)
		return
	}

	attempts, err := c.Service.ListStudentAttempts(ctx.Request.Context(), ctx.Param("id"), user.UserID)
	if err != nil {
		respondError(ctx, err)
		return
	}
	util.Success(ctx, gin.H{"items": attempts, "total": len(attempts)})
}

// @Summary 查看答题结果
// @Tags 学生测试模块
// @Produce json
// @Security ApiKeyAuth
// @Param id path string true "测试ID"
// @Param attemptId path string true "答题记录ID"
// @Success 200 {object} util.Response{data=service.ResultView}
// @Failure 403 {object} util.Response
// @Router /student/tests/{id}/attempts/{attemptId}/result [get]
func (c *StudentTestController) GetResult(ctx *gin.Context) {
	user := util.GetUserFromContext(ctx)
	if user == nil {
		util.Unauthorized(ctx)
		return
	}

	view, err := c.Service.GetResult(ctx.Request.Context(), ctx.Param("id"), ctx.Param("attemptId"), user.UserID)
	if err != nil {
		respondError(ctx, err)
		return
	}
	util.Success(ctx, view)
}
