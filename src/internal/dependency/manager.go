package dependency

import (
	"context"
	"errors"
	"taskhub-collab-svc/src/clients"
	"taskhub-collab-svc/src/internal/cache"
	"taskhub-collab-svc/src/internal/comment"
	"taskhub-collab-svc/src/internal/config"
	"taskhub-collab-svc/src/internal/models"
	"taskhub-collab-svc/src/internal/notify"
	"taskhub-collab-svc/src/internal/project"
	"taskhub-collab-svc/src/internal/realtime"
	"taskhub-collab-svc/src/internal/session"
	"taskhub-collab-svc/src/internal/task"
	"taskhub-collab-svc/src/internal/user"

	"github.com/gin-gonic/gin"
)

type Manager struct {
	Router   *gin.Engine
	Config   *config.Configuration
	Mongodb  *clients.MongoDB
	Redis    *clients.RedisClient
	RabbitMQ *clients.RabbitMQ

	CacheService cache.Service
	SessionRepo  session.Repository
	Publisher    notify.Publisher

	UserService    user.Service
	ProjectService project.Service
	TaskService    task.Service
	CommentService comment.Service

	UserHandler    user.Handler
	ProjectHandler project.Handler
	TaskHandler    task.Handler
	CommentHandler comment.Handler

	Hub             *realtime.Hub
	RealtimeHandler *realtime.Handler
}

func NewDependencyManager(router *gin.Engine,
	mongodb *clients.MongoDB,
	redisClient *clients.RedisClient,
	rabbitMQ *clients.RabbitMQ,
	cfg *config.Configuration) *Manager {
	cacheService := cache.NewCacheService(redisClient.Client, cfg)
	publisher := notify.NewPublisher(rabbitMQ.Channel, cfg)

	userRepo := user.NewUserRepository(mongodb, cfg.Database.Collections.Users)
	sessionRepo := session.NewSessionRepository(mongodb, cfg.Database.Collections.Sessions)
	projectRepo := project.NewProjectRepository(mongodb,
		cfg.Database.Collections.Projects,
		cfg.Database.Collections.ProjectMembers)
	taskRepo := task.NewTaskRepository(mongodb, cfg.Database.Collections.Tasks)
	commentRepo := comment.NewCommentRepository(mongodb, cfg.Database.Collections.Comments)

	userService := user.NewUserService(userRepo, sessionRepo, cacheService, publisher, cfg)

	// The hub only needs a membership check, which lives on the project
	// repository; the full project service depends on the hub's emitter,
	// so the room guard is wired against the repository directly.
	hub := realtime.NewHub(cfg, userService, &membershipGuard{repository: projectRepo})
	emitter := realtime.NewEmitter(hub.Rooms)

	projectService := project.NewProjectService(projectRepo, taskRepo, userService, emitter)
	taskService := task.NewTaskService(taskRepo, projectRepo, userService, emitter, publisher)
	commentService := comment.NewCommentService(commentRepo, taskService, projectRepo, userService, emitter, publisher)

	return &Manager{
		Router:   router,
		Config:   cfg,
		Mongodb:  mongodb,
		Redis:    redisClient,
		RabbitMQ: rabbitMQ,

		CacheService: cacheService,
		SessionRepo:  sessionRepo,
		Publisher:    publisher,

		UserService:    userService,
		ProjectService: projectService,
		TaskService:    taskService,
		CommentService: commentService,

		UserHandler:    user.NewHandler(cfg, userService),
		ProjectHandler: project.NewHandler(cfg, projectService),
		TaskHandler:    task.NewHandler(cfg, taskService),
		CommentHandler: comment.NewHandler(cfg, commentService),

		Hub:             hub,
		RealtimeHandler: realtime.NewHandler(cfg, hub, taskService),
	}
}

// membershipGuard adapts the project repository to the room access check.
type membershipGuard struct {
	repository project.Repository
}

func (g *membershipGuard) IsMember(ctx context.Context, userID, projectID string) (bool, error) {
	_, err := g.repository.GetMember(ctx, projectID, userID)
	if err != nil {
		if errors.Is(err, models.ErrRecordNotFound) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}
