package main

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/Gobusters/ectologger"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"

	"github.com/tony-angelo/aletheia-codex/config"
	"github.com/tony-angelo/aletheia-codex/pkg/database"
	"github.com/tony-angelo/aletheia-codex/pkg/graph"
	"github.com/tony-angelo/aletheia-codex/pkg/kafka"
)

// postgresDependency opens the review item store and runs migrations
type postgresDependency struct {
	cfg    config.Config
	logger ectologger.Logger

	db  database.DB
	raw *sqlx.DB
}

func (d *postgresDependency) GetName() string {
	return "postgres"
}

func (d *postgresDependency) DependsOn() []string {
	return nil
}

func (d *postgresDependency) Start(ctx context.Context) error {
	dsn := fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		d.cfg.DatabaseHost, d.cfg.DatabasePort, d.cfg.DatabaseUserName, d.cfg.DatabasePassword, d.cfg.DatabaseName, d.cfg.DatabaseSSLMode)

	db, err := sqlx.Open(d.cfg.DatabaseDriver, dsn)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}

	db.SetMaxOpenConns(d.cfg.DatabaseMaxOpenConns)
	db.SetMaxIdleConns(d.cfg.DatabaseMaxIdleConns)
	db.SetConnMaxLifetime(d.cfg.DatabaseConnMaxLifetime)

	if err := db.PingContext(ctx); err != nil {
		return fmt.Errorf("failed to ping database: %w", err)
	}

	driver, err := postgres.WithInstance(db.DB, &postgres.Config{})
	if err != nil {
		return fmt.Errorf("failed to create migration driver: %w", err)
	}

	migrations := database.NewMigrationService(d.logger, &database.MigrationConfig{
		MigrationFolderPath: d.cfg.DatabaseMigrationFolderPath,
		Version:             uint(d.cfg.DatabaseMigrationVersion),
		AutoRollback:        d.cfg.DatabaseMigrationAutoRollback,
	})
	if err := migrations.Migrate(d.cfg.DatabaseName, driver); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	d.raw = db
	d.db = database.NewDatabaseInstance(db, d.logger)
	return nil
}

func (d *postgresDependency) Stop(ctx context.Context) error {
	if d.raw == nil {
		return nil
	}
	return d.raw.Close()
}

// graphDependency connects to the knowledge graph
type graphDependency struct {
	cfg    config.Config
	logger ectologger.Logger

	client *graph.Client
}

func (d *graphDependency) GetName() string {
	return "graph"
}

func (d *graphDependency) DependsOn() []string {
	return nil
}

func (d *graphDependency) Start(ctx context.Context) error {
	client, err := graph.NewClient(graph.Config{
		Host:     d.cfg.GraphDBHost,
		Port:     d.cfg.GraphDBPort,
		Username: d.cfg.GraphDBUser,
		Password: d.cfg.GraphDBPassword,
	}, d.logger)
	if err != nil {
		return err
	}

	if err := client.VerifyConnectivity(ctx); err != nil {
		client.Close(ctx)
		return fmt.Errorf("failed to reach graph database: %w", err)
	}

	d.client = client
	return nil
}

func (d *graphDependency) Stop(ctx context.Context) error {
	if d.client == nil {
		return nil
	}
	return d.client.Close(ctx)
}

// kafkaDependency starts the review event producer and the ingestion consumer
type kafkaDependency struct {
	cfg     config.Config
	logger  ectologger.Logger
	handler kafka.MessageHandler

	producer *kafka.Producer
	consumer *kafka.Consumer
}

func (d *kafkaDependency) GetName() string {
	return "kafka"
}

func (d *kafkaDependency) DependsOn() []string {
	return []string{"postgres"}
}

func (d *kafkaDependency) Start(ctx context.Context) error {
	d.producer = kafka.NewProducer(kafka.ProducerConfig{
		Brokers:      d.cfg.KafkaBrokers,
		Topic:        d.cfg.KafkaOutputTopic,
		BatchSize:    d.cfg.KafkaBatchSize,
		BatchTimeout: time.Duration(d.cfg.KafkaBatchTimeout) * time.Millisecond,
		RequiredAcks: d.cfg.KafkaRequiredAcks,
		Compression:  d.cfg.KafkaCompression,
	}, d.logger)

	if d.cfg.KafkaConsumerEnabled {
		d.consumer = kafka.NewConsumer(d.cfg, d.logger, d.handler)
		if err := d.consumer.Start(ctx); err != nil {
			return fmt.Errorf("failed to start kafka consumer: %w", err)
		}
	}

	return nil
}

func (d *kafkaDependency) Stop(ctx context.Context) error {
	if d.consumer != nil {
		if err := d.consumer.Stop(); err != nil {
			d.logger.WithError(err).Error("Failed to stop kafka consumer")
		}
	}
	if d.producer != nil {
		return d.producer.Close()
	}
	return nil
}

// serverDependency runs the HTTP API
type serverDependency struct {
	cfg     config.Config
	logger  ectologger.Logger
	handler http.Handler

	server *http.Server
}

func (d *serverDependency) GetName() string {
	return "http"
}

func (d *serverDependency) DependsOn() []string {
	return []string{"postgres", "graph", "kafka", "wiring"}
}

func (d *serverDependency) Start(ctx context.Context) error {
	d.server = &http.Server{
		Addr:              fmt.Sprintf(":%d", d.cfg.Port),
		Handler:           d.handler,
		ReadTimeout:       time.Duration(d.cfg.HttpServerReadTimeoutSeconds) * time.Second,
		WriteTimeout:      time.Duration(d.cfg.HttpServerWriteTimeoutSeconds) * time.Second,
		IdleTimeout:       time.Duration(d.cfg.HttpServerIdleTimeoutSeconds) * time.Second,
		ReadHeaderTimeout: time.Duration(d.cfg.ReadHeaderTimeoutSeconds) * time.Second,
		MaxHeaderBytes:    d.cfg.MaxHeaderBytes,
	}

	go func() {
		d.logger.Infof("HTTP server listening on %s", d.server.Addr)
		if err := d.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			d.logger.WithError(err).Error("HTTP server stopped unexpectedly")
		}
	}()

	return nil
}

func (d *serverDependency) Stop(ctx context.Context) error {
	if d.server == nil {
		return nil
	}
	return d.server.Shutdown(ctx)
}
