package server

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/vik9541/super-brain-digital-twin/internal/queue"
	mid "github.com/vik9541/super-brain-digital-twin/internal/server/middleware"
	"github.com/vik9541/super-brain-digital-twin/internal/storage"
	"github.com/vik9541/super-brain-digital-twin/internal/util"
	"github.com/vik9541/super-brain-digital-twin/pkg/ai"
	oai "github.com/vik9541/super-brain-digital-twin/pkg/ai/ollama"
	gai "github.com/vik9541/super-brain-digital-twin/pkg/ai/openai"
	"github.com/vik9541/super-brain-digital-twin/pkg/embeddings"
	"github.com/vik9541/super-brain-digital-twin/pkg/logger"
	"github.com/vik9541/super-brain-digital-twin/pkg/recommend"
	pgstore "github.com/vik9541/super-brain-digital-twin/pkg/store/pgx"

	"github.com/MicahParks/keyfunc/v3"
	"github.com/go-playground/validator"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	pgxvec "github.com/pgvector/pgvector-go/pgx"
)

type CustomValidator struct {
	validator *validator.Validate
}

func (cv *CustomValidator) Validate(i any) error {
	if err := cv.validator.Struct(i); err != nil {
		return err
	}
	return nil
}

func Init() {
	e := echo.New()
	e.Validator = &CustomValidator{validator: validator.New()}

	jwksUrl := util.GetEnv("AUTH_URL") + "/jwks"
	k, err := keyfunc.NewDefault([]string{jwksUrl})
	if err != nil {
		logger.Fatal("Failed to load jwks keys", "err", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := RunMigrations(); err != nil {
		logger.Fatal("Failed to run migrations", "err", err)
	}

	conn, err := pgxpool.New(ctx, util.GetEnv("DATABASE_URL"))
	if err != nil {
		logger.Fatal("Failed to connect to database", "err", err)
	}
	defer conn.Close()
	conn.Config().AfterConnect = func(ctx context.Context, conn *pgx.Conn) error {
		return pgxvec.RegisterTypes(ctx, conn)
	}

	que := queue.Init()
	defer que.Close()
	ch, err := que.Channel()
	if err != nil {
		logger.Fatal("Failed to open channel", "err", err)
	}

	err = queue.SetupQueues(ch, queue.WorkerQueues)
	if err != nil {
		logger.Fatal("Failed to setup queues", "err", err)
	}

	contactStore := pgstore.NewContactDBStorage(conn)

	modelStore, err := buildModelStore(ctx)
	if err != nil {
		logger.Fatal("Failed to setup model store", "err", err)
	}

	recommender := recommend.NewService(recommend.ServiceParams{
		Contacts: contactStore,
		Models:   modelStore,
	})

	embedSvc := embeddings.NewService(embeddings.ServiceParams{
		Contacts:  contactStore,
		Client:    newEmbeddingClient(),
		BatchSize: int(util.GetEnvNumeric("AI_PARALLEL_REQ", 10)),
	})

	masterAPIKey := util.GetEnv("MASTER_API_KEY")
	masterUserID, _ := strconv.ParseInt(util.GetEnv("MASTER_USER_ID"), 10, 64)
	masterUserRole := util.GetEnv("MASTER_USER_ROLE")

	app := &mid.App{
		DBConn:         conn,
		Queue:          ch,
		Key:            &k,
		Recommender:    recommender,
		Embeddings:     embedSvc,
		MasterAPIKey:   masterAPIKey,
		MasterUserID:   masterUserID,
		MasterUserRole: masterUserRole,
	}

	e.Use(mid.AppContextMiddleware(app))
	e.Use(middleware.CORS())
	e.Use(middleware.RequestLogger())
	e.Use(middleware.Recover())

	RegisterRoutes(e)

	go func() {
		port := util.GetEnv("PORT")
		if port == "" {
			port = "8080"
		}
		logger.Info("Starting server", "port", port)
		if err := e.Start(":" + port); err != nil && err != http.ErrServerClosed {
			logger.Fatal("Failed shutting down server", "err", err)
		}
	}()

	<-ctx.Done()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(ctx); err != nil {
		logger.Error("Failed to shutdown server", "err", err)
	}
}

// newEmbeddingClient builds the embedding backend selected by AI_ADAPTER:
// "ollama" for a locally-hosted model, anything else for an
// OpenAI-compatible API.
func newEmbeddingClient() ai.EmbeddingClient {
	adapter := util.GetEnv("AI_ADAPTER")

	switch adapter {
	case "ollama":
		client, err := oai.NewEmbeddingOllamaClient(oai.NewEmbeddingOllamaClientParams{
			EmbeddingModel: util.GetEnv("AI_EMBED_MODEL"),

			BaseURL: util.GetEnv("AI_EMBED_URL"),
			ApiKey:  util.GetEnv("AI_EMBED_KEY"),

			MaxConcurrentRequests: int64(util.GetEnvNumeric("AI_PARALLEL_REQ", 10)),
		})
		if err != nil {
			logger.Fatal("Failed to create Ollama client", "err", err)
		}
		return client
	default:
		return gai.NewEmbeddingOpenAIClient(gai.NewEmbeddingOpenAIClientParams{
			EmbeddingModel: util.GetEnv("AI_EMBED_MODEL"),

			BaseURL: util.GetEnv("AI_EMBED_URL"),
			ApiKey:  util.GetEnv("AI_EMBED_KEY"),

			MaxConcurrentRequests: int64(util.GetEnvNumeric("AI_PARALLEL_REQ", 10)),
		})
	}
}

// buildModelStore picks the persistence backend for trained model weights:
// S3 when a bucket is configured, a local directory otherwise.
func buildModelStore(ctx context.Context) (recommend.ModelStore, error) {
	bucket := util.GetEnv("AWS_BUCKET")
	if bucket != "" {
		client := storage.NewS3Client(ctx)
		return storage.NewS3ModelStore(client, bucket, util.GetEnv("MODEL_S3_PREFIX")), nil
	}

	dir := util.GetEnv("MODEL_DIR")
	if dir == "" {
		dir = "models"
	}
	return recommend.NewLocalModelStore(dir)
}
