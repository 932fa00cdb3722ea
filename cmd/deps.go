package cmd

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/viper"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"blogforge/src/core/blogflow"
	"blogforge/src/fsutil"
	"blogforge/src/infrastructure/integrations/ollama"
	"blogforge/src/infrastructure/integrations/openai"
	"blogforge/src/infrastructure/integrations/sanity"
	"blogforge/src/log"
	"blogforge/src/publisher"
	"blogforge/src/storage/minioctrl"
	"blogforge/src/storage/postgres/blogjobctrl"
	"blogforge/src/storage/redisctrl"
)

// components holds everything a command needs to run jobs, plus the cleanup for the
// connections opened along the way.
type components struct {
	stepper *blogflow.Stepper
	closers []func() error
}

func (c *components) Close() {
	for i := len(c.closers) - 1; i >= 0; i-- {
		if err := c.closers[i](); err != nil {
			log.Error(err, "failed to close resource")
		}
	}
}

func buildComponents(ctx context.Context) (*components, error) {
	c := &components{}

	store, err := buildStore(ctx, c)
	if err != nil {
		c.Close()
		return nil, err
	}

	generator, err := buildGenerator()
	if err != nil {
		c.Close()
		return nil, err
	}

	pub, err := buildPublisher(ctx)
	if err != nil {
		c.Close()
		return nil, err
	}

	c.stepper = blogflow.NewStepper(store, generator, pub,
		blogflow.WithSampler(blogflow.RandomSampler{
			Probability: viper.GetFloat64("generation.reformat_probability"),
		}),
		blogflow.WithMinSectionLength(viper.GetInt("generation.min_section_length")),
	)
	return c, nil
}

func buildStore(ctx context.Context, c *components) (*blogflow.Store, error) {
	backend := viper.GetString("store.backend")
	log.Info("Opening job store", "backend", backend)

	switch backend {
	case "memory":
		return blogflow.NewStore(blogflow.NewMemoryBackend()), nil

	case "postgres":
		dsn := fmt.Sprintf("host=%s user=%s password=%s dbname=%s port=%s sslmode=disable",
			viper.GetString("postgres.host"),
			viper.GetString("postgres.user"),
			viper.GetString("postgres.password"),
			viper.GetString("postgres.db"),
			viper.GetString("postgres.port"),
		)
		db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
		if err != nil {
			return nil, fmt.Errorf("failed to connect to database: %w", err)
		}
		sqlDB, err := db.DB()
		if err != nil {
			return nil, fmt.Errorf("failed to get underlying *sql.DB: %w", err)
		}
		c.closers = append(c.closers, sqlDB.Close)

		jobService := blogjobctrl.NewBlogJobService(db)
		if err := jobService.Migrate(ctx); err != nil {
			return nil, err
		}
		nextID, err := blogjobctrl.NewSnowflakeIDGenerator(viper.GetInt64("store.snowflake_node"))
		if err != nil {
			return nil, err
		}
		return blogflow.NewStore(jobService, blogflow.WithIDGenerator(nextID)), nil

	case "redis":
		rdb := redis.NewClient(&redis.Options{
			Addr:     viper.GetString("redis.addr"),
			Password: viper.GetString("redis.password"),
			DB:       viper.GetInt("redis.db"),
		})
		c.closers = append(c.closers, rdb.Close)
		if err := rdb.Ping(ctx).Err(); err != nil {
			return nil, fmt.Errorf("failed to connect to redis: %w", err)
		}
		return blogflow.NewStore(redisctrl.NewBlogJobStore(rdb,
			redisctrl.WithTTL(viper.GetDuration("redis.ttl")),
		)), nil
	}

	return nil, fmt.Errorf("unknown store backend %q", backend)
}

func buildGenerator() (*blogflow.Generator, error) {
	var completer blogflow.Completer

	provider := viper.GetString("generation.provider")
	switch provider {
	case "ollama":
		client, err := ollama.NewClient(
			viper.GetString("ollama.url"),
			&http.Client{Timeout: 5 * time.Minute},
			ollama.WithDefaultModel(viper.GetString("ollama.model")),
		)
		if err != nil {
			return nil, err
		}
		completer = client
	case "openai":
		client, err := openai.NewClient(
			viper.GetString("openai.base_url"),
			viper.GetString("openai.api_key"),
			viper.GetString("openai.model"),
		)
		if err != nil {
			return nil, err
		}
		completer = client
	default:
		return nil, fmt.Errorf("unknown generation provider %q", provider)
	}

	var opts []blogflow.GeneratorOption
	defaults := blogflow.DefaultPhaseConfigs()
	for _, phase := range blogflow.Phases {
		cfg := defaults[phase]
		if err := viper.UnmarshalKey("generation.phases."+string(phase), &cfg); err != nil {
			return nil, fmt.Errorf("invalid generation config for phase %s: %w", phase, err)
		}
		opts = append(opts, blogflow.WithPhaseConfig(phase, cfg))
	}

	gen := blogflow.NewGenerator(completer, opts...)
	log.Info("Using generation provider", "provider", provider)
	for _, phase := range blogflow.Phases {
		cfg := gen.PhaseConfig(phase)
		log.Debug("Generation phase", "phase", phase, "model", cfg.Model,
			"temperature", cfg.Temperature, "max_tokens", cfg.MaxTokens)
	}
	return gen, nil
}

func buildPublisher(ctx context.Context) (blogflow.DraftPublisher, error) {
	client, err := sanity.NewClient(sanity.Config{
		ProjectID:  viper.GetString("sanity.project_id"),
		Dataset:    viper.GetString("sanity.dataset"),
		Token:      viper.GetString("sanity.token"),
		APIVersion: viper.GetString("sanity.api_version"),
		BaseURL:    viper.GetString("sanity.base_url"),
	}, &http.Client{Timeout: 30 * time.Second})
	if err != nil {
		return nil, err
	}
	if !client.IsConfigured() {
		log.Info("Sanity write token is not set, draft creation will fail")
	}

	var pub blogflow.DraftPublisher = publisher.NewSanityPublisher(
		client,
		viper.GetString("sanity.studio_url"),
		viper.GetString("site.url"),
	)

	store, err := buildArchiveStore(ctx)
	if err != nil {
		return nil, err
	}
	if store == nil {
		return pub, nil
	}
	return publisher.NewArchivingPublisher(pub, store, viper.GetString("archive.bucket")), nil
}

// archiveStore is what both archiving and reading archived drafts back need.
type archiveStore interface {
	publisher.ObjectStore
	publisher.ObjectReader
}

// buildArchiveStore returns the configured archive backend, or nil when archiving is off.
func buildArchiveStore(ctx context.Context) (archiveStore, error) {
	switch backend := viper.GetString("archive.backend"); backend {
	case "":
		return nil, nil
	case "local":
		return fsutil.NewLocalFileStore(viper.GetString("archive.dir")), nil
	case "minio":
		minioService, err := minioctrl.NewMinioService(minioctrl.Config{
			Endpoint:        viper.GetString("minio.endpoint"),
			AccessKeyID:     viper.GetString("minio.access_key_id"),
			SecretAccessKey: viper.GetString("minio.secret_access_key"),
			UseSSL:          viper.GetBool("minio.use_ssl"),
		})
		if err != nil {
			return nil, fmt.Errorf("failed to initialize minio service: %w", err)
		}
		if err := minioService.EnsureBucketExists(ctx, viper.GetString("archive.bucket")); err != nil {
			return nil, err
		}
		return minioService, nil
	default:
		return nil, fmt.Errorf("unknown archive backend %q", backend)
	}
}

func watermillLogger() watermill.LoggerAdapter {
	return watermill.NewStdLogger(viper.GetInt("log.level") > 0, false)
}
