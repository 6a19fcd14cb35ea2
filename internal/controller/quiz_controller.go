package controller

import (
	"ai-quiz-generator-be/internal/dto"
	"ai-quiz-generator-be/internal/pkg/serverutils"
	"ai-quiz-generator-be/internal/service"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

type IQuizController interface {
	RegisterRoutes(r fiber.Router, auth fiber.Handler)
	Create(ctx *fiber.Ctx) error
	Generate(ctx *fiber.Ctx) error
	GetProgress(ctx *fiber.Ctx) error
	DeleteProgress(ctx *fiber.Ctx) error
	ListQuestions(ctx *fiber.Ctx) error
}

type quizController struct {
	quizService service.IQuizService
}

func NewQuizController(quizService service.IQuizService) IQuizController {
	return &quizController{
		quizService: quizService,
	}
}

func (c *quizController) RegisterRoutes(r fiber.Router, auth fiber.Handler) {
	h := r.Group("/quiz/v1")
	h.Get("progress/:quizId", c.GetProgress)
	h.Delete("progress/:quizId", auth, c.DeleteProgress)
	h.Get("questions/:quizId", auth, c.ListQuestions)
	h.Post("create", auth, c.Create)
	h.Post("generate", auth, c.Generate)
}

func (c *quizController) parseRequest(ctx *fiber.Ctx) (*dto.CreateQuizRequest, error) {
	var req dto.CreateQuizRequest
	if err := ctx.BodyParser(&req); err != nil {
		return nil, fiber.NewError(fiber.StatusBadRequest, "Invalid request body")
	}
	if err := serverutils.ValidateRequest(req); err != nil {
		return nil, err
	}
	return &req, nil
}

// Create queues generation and returns 202 right away; poll progress for the outcome.
func (c *quizController) Create(ctx *fiber.Ctx) error {
	req, err := c.parseRequest(ctx)
	if err != nil {
		return err
	}

	res, err := c.quizService.Create(ctx.UserContext(), req)
	if err != nil {
		return err
	}

	return ctx.Status(fiber.StatusAccepted).JSON(serverutils.SuccessResponse("Quiz generation started", res))
}

func (c *quizController) Generate(ctx *fiber.Ctx) error {
	req, err := c.parseRequest(ctx)
	if err != nil {
		return err
	}

	res, err := c.quizService.Generate(ctx.UserContext(), req)
	if err != nil {
		return err
	}

	return ctx.JSON(serverutils.SuccessResponse("Questions generated", res))
}

func (c *quizController) GetProgress(ctx *fiber.Ctx) error {
	quizId, err := uuid.Parse(ctx.Params("quizId"))
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "Invalid quiz id")
	}

	res, err := c.quizService.GetProgress(ctx.UserContext(), quizId)
	if err != nil {
		return err
	}

	return ctx.JSON(serverutils.SuccessResponse("Progress retrieved", res))
}

func (c *quizController) DeleteProgress(ctx *fiber.Ctx) error {
	quizId, err := uuid.Parse(ctx.Params("quizId"))
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "Invalid quiz id")
	}

	if err := c.quizService.DeleteProgress(ctx.UserContext(), quizId); err != nil {
		return err
	}

	return ctx.JSON(serverutils.SuccessResponse[any]("Progress deleted", nil))
}

func (c *quizController) ListQuestions(ctx *fiber.Ctx) error {
	quizId, err := uuid.Parse(ctx.Params("quizId"))
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "Invalid quiz id")
	}

	req := dto.ListQuestionsRequest{
		QuizId:       quizId,
		QuestionType: ctx.Query("type"),
		Limit:        ctx.QueryInt("limit", 50),
		Offset:       ctx.QueryInt("offset", 0),
	}
	if err := serverutils.ValidateRequest(req); err != nil {
		return err
	}

	res, err := c.quizService.ListQuestions(ctx.UserContext(), &req)
	if err != nil {
		return err
	}

	return ctx.JSON(serverutils.SuccessResponse("Questions retrieved", res))
}
