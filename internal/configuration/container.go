package configuration

import (
	"context"
	"fmt"
	"time"

	"github.com/priyesh-kurmi/eventhive-sub000/internal/db"
	"github.com/priyesh-kurmi/eventhive-sub000/internal/fanout"
	"github.com/priyesh-kurmi/eventhive-sub000/internal/handler"
	"github.com/priyesh-kurmi/eventhive-sub000/internal/hub"
	"github.com/priyesh-kurmi/eventhive-sub000/internal/model"
	"github.com/priyesh-kurmi/eventhive-sub000/internal/repo"
	"github.com/priyesh-kurmi/eventhive-sub000/internal/service"

	"github.com/uptrace/bun"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

const bootstrapTimeout = 30 * time.Second

type Container struct {
	Config Config
	Logger *zap.Logger

	Hub               *hub.Hub
	Gateway           *fanout.Gateway
	Auth              *handler.Authenticator
	ConnectionHandler handler.ConnectionHandler
	MessageHandler    handler.MessageHandler
	MonitorHandler    handler.MonitorHandler
	SocketHandler     *handler.SocketHandler

	// private - for cleanup
	mongoClient *mongo.Database
	bunDB       *bun.DB
}

func NewLogger(cfg LoggerConfig) (*zap.Logger, error) {
	zcfg := zap.NewProductionConfig()
	if cfg.Development {
		zcfg = zap.NewDevelopmentConfig()
	}
	if cfg.Level != "" {
		level, err := zap.ParseAtomicLevel(cfg.Level)
		if err != nil {
			return nil, fmt.Errorf("logger.level: %w", err)
		}
		zcfg.Level = level
	}
	return zcfg.Build()
}

// BuildContainer wires every component for config. On error, whatever was
// already opened is closed again.
func BuildContainer(config *Config) (c *Container, err error) {
	logger, err := NewLogger(config.Logger)
	if err != nil {
		return nil, err
	}

	c = &Container{Config: *config, Logger: logger}
	defer func() {
		if err != nil {
			_ = c.Close()
			c = nil
		}
	}()

	ctx, cancel := context.WithTimeout(context.Background(), bootstrapTimeout)
	defer cancel()

	if config.needsMongo() {
		c.mongoClient, err = db.OpenConnection(config.Mongo.Uri, config.Mongo.Database)
		if err != nil {
			return c, fmt.Errorf("connect mongo: %w", err)
		}
		logger.Info("mongo connected", zap.String("database", config.Mongo.Database))
	}

	// User records live in Mongo whenever any component does; the mongo
	// graph is embedded in them.
	var identities repo.IdentityStore
	if c.mongoClient != nil {
		users := db.NewRepository[model.User](c.mongoClient, config.Mongo.UsersCollection)
		identities = repo.NewUserRepository(c.mongoClient, users, logger)
	} else {
		identities = repo.NewMemoryIdentityStore()
	}
	if err = identities.EnsureIndexes(ctx); err != nil {
		return c, fmt.Errorf("user indexes: %w", err)
	}

	var (
		messages repo.MessageRepository
		events   service.EventDirectory
	)
	if config.Store.Backend == BackendMongo {
		messages = repo.NewMessageRepository(c.mongoClient, logger)
		events = repo.NewEventRepository(c.mongoClient, logger)
	} else {
		messages = repo.NewMemoryMessageRepository()
		events = repo.NewMemoryEventRepository()
	}
	if err = messages.EnsureIndexes(ctx); err != nil {
		return c, fmt.Errorf("message indexes: %w", err)
	}

	var graph repo.ConnectionRepository = identities
	if config.Graph.Backend == BackendPostgres {
		c.bunDB, err = db.OpenPostgres(config.Postgres.Dsn)
		if err != nil {
			return c, fmt.Errorf("connect postgres: %w", err)
		}
		pg := repo.NewPostgresConnectionRepository(c.bunDB, logger)
		if err = pg.CreateSchema(ctx); err != nil {
			return c, fmt.Errorf("graph schema: %w", err)
		}
		graph = pg
	}

	var transport fanout.Transport
	if config.Nats.Enabled {
		transport, err = fanout.NewNATSTransport(config.Nats.Url, config.Nats.Name, config.Nats.SubjectPrefix, logger)
		if err != nil {
			return c, fmt.Errorf("connect nats: %w", err)
		}
	} else {
		transport = fanout.NewMemoryTransport()
	}
	c.Gateway = fanout.NewGateway(transport, fanout.DefaultPublishTimeout, logger)

	connections := service.NewConnectionService(identities, graph, logger)
	store := service.NewMessageStore(messages, nil, logger)
	conversations := service.NewConversationService(messages, identities, logger)
	messaging := service.NewMessagingService(connections, store, conversations, events, c.Gateway, logger)

	c.Hub = hub.NewHub(c.Gateway, messaging, config.Server.AllowedOrigins, logger)
	c.Auth = handler.NewAuthenticator([]byte(config.Auth.JwtSecret), identities, logger)
	c.ConnectionHandler = handler.NewConnectionHandler(connections, logger)
	c.MessageHandler = handler.NewMessageHandler(messaging, logger)
	c.MonitorHandler = handler.NewMonitorHandler(hub.NewMonitorService(c.Hub))
	c.SocketHandler = handler.NewSocketHandler(c.Auth, messaging, c.Hub, logger)

	logger.Info("container ready",
		zap.String("graph_backend", config.Graph.Backend),
		zap.String("store_backend", config.Store.Backend),
		zap.Bool("nats", config.Nats.Enabled),
	)
	return c, nil
}

// Close gracefully shuts down all connections
func (c *Container) Close() error {
	// Stop the hub first (closes all WebSocket connections)
	if c.Hub != nil {
		c.Hub.Stop()
	}

	if c.Gateway != nil {
		if err := c.Gateway.Close(); err != nil {
			c.Logger.Warn("fan-out transport close failed", zap.Error(err))
		}
	}

	if c.bunDB != nil {
		if err := c.bunDB.Close(); err != nil {
			c.Logger.Warn("postgres close failed", zap.Error(err))
		}
	}

	var err error
	// Close MongoDB connection pool
	if c.mongoClient != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if dErr := c.mongoClient.Client().Disconnect(ctx); dErr != nil {
			err = fmt.Errorf("failed to close MongoDB connection: %w", dErr)
		}
	}

	// Sync logger
	if c.Logger != nil {
		_ = c.Logger.Sync()
	}

	return err
}
