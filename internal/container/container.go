package container

import (
	"cloud.google.com/go/storage"
	"github.com/elastic/go-elasticsearch/v8"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/oksasatya/phq9-intake/config"
	"github.com/oksasatya/phq9-intake/internal/application"
	"github.com/oksasatya/phq9-intake/internal/domain/repository"
	pginfra "github.com/oksasatya/phq9-intake/internal/infrastructure/postgres"
	"github.com/oksasatya/phq9-intake/pkg/helpers"
)

// Infra holds the clients opened by main. Optional ones may be nil.
type Infra struct {
	Config *config.Config
	Logger *logrus.Logger
	PG     *pgxpool.Pool
	Redis  *redis.Client
	GCS    *storage.Client
	ES     *elasticsearch.Client
	Rabbit *helpers.RabbitPublisher
}

// Container is built once at startup and handed to the router.
type Container struct {
	Infra
	JWT *helpers.JWTManager

	Users       repository.UserRepository
	Assessments repository.AssessmentRepository

	UserService       *application.UserService
	AssessmentService *application.AssessmentService
}

func New(in Infra) *Container {
	cfg := in.Config
	c := &Container{
		Infra:       in,
		JWT:         helpers.NewJWTManager(cfg.JWTAccessSecret, cfg.JWTRefreshSecret, cfg.AccessTTL, cfg.RefreshTTL),
		Users:       pginfra.NewUserRepository(in.PG),
		Assessments: pginfra.NewAssessmentRepository(in.PG),
	}
	c.UserService = application.NewUserService(c.Users, c.JWT, in.Redis, in.Logger, cfg.SessionTTL)

	svc := application.NewAssessmentService(c.Assessments, c.Users, cfg, in.Logger)
	svc.Redis = in.Redis
	svc.ES = in.ES
	// nil pointers must not end up inside the interfaces
	if in.Rabbit != nil {
		svc.Pub = in.Rabbit
	}
	if in.GCS != nil && cfg.GCSBucket != "" {
		svc.Uploader = &helpers.GCSUploader{Client: in.GCS, Bucket: cfg.GCSBucket}
	}
	c.AssessmentService = svc
	return c
}

// Close releases the clients owned by the container.
func (c *Container) Close() {
	if c.Rabbit != nil {
		c.Rabbit.Close()
	}
	if c.GCS != nil {
		_ = c.GCS.Close()
	}
	if c.Redis != nil {
		_ = c.Redis.Close()
	}
	if c.PG != nil {
		c.PG.Close()
	}
}
