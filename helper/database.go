package helper

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"log/slog"
	"os"
	"strings"
	"time"

	_ "github.com/lib/pq"
)

// Database wraps a postgres connection with its logger
type Database struct {
	Name     string
	Logger   *slog.Logger
	Instance *sql.DB
}

// DatabaseConfiguration holds the connection parameters
type DatabaseConfiguration struct {
	Host     string
	Port     string
	Database string
	Username string
	Password string
	Schema   string
	SSLMode  string
}

// NewDatabaseConfiguration reads the configuration from DIFFUSER_DB_* environment variables.
// Host, port, database, username and password are required; schema defaults to "public"
// and sslmode to "disable".
func NewDatabaseConfiguration() (*DatabaseConfiguration, error) {
	config := &DatabaseConfiguration{
		Host:     os.Getenv("DIFFUSER_DB_HOST"),
		Port:     os.Getenv("DIFFUSER_DB_PORT"),
		Database: os.Getenv("DIFFUSER_DB_DATABASE"),
		Username: os.Getenv("DIFFUSER_DB_USERNAME"),
		Password: os.Getenv("DIFFUSER_DB_PASSWORD"),
		Schema:   os.Getenv("DIFFUSER_DB_SCHEMA"),
		SSLMode:  os.Getenv("DIFFUSER_DB_SSLMODE"),
	}

	var missing []string
	if config.Host == "" {
		missing = append(missing, "DIFFUSER_DB_HOST")
	}
	if config.Port == "" {
		missing = append(missing, "DIFFUSER_DB_PORT")
	}
	if config.Database == "" {
		missing = append(missing, "DIFFUSER_DB_DATABASE")
	}
	if config.Username == "" {
		missing = append(missing, "DIFFUSER_DB_USERNAME")
	}
	if config.Password == "" {
		missing = append(missing, "DIFFUSER_DB_PASSWORD")
	}
	if len(missing) > 0 {
		return nil, NewError("database configuration", fmt.Errorf("missing environment variables: %s", strings.Join(missing, ", ")))
	}

	if config.Schema == "" {
		config.Schema = "public"
	}
	if config.SSLMode == "" {
		config.SSLMode = "disable"
	}

	return config, nil
}

// DSN returns the postgres connection string
func (c *DatabaseConfiguration) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s search_path=%s",
		c.Host, c.Port, c.Username, c.Password, c.Database, c.SSLMode, c.Schema,
	)
}

// NewDatabase opens and pings a postgres connection. It stops the program if the
// database cannot be reached.
func NewDatabase(name string, config *DatabaseConfiguration, logger *slog.Logger) *Database {
	if logger == nil {
		logger = slog.Default()
	}

	db, err := connect(config)
	if err != nil {
		log.Fatalf("error connecting to database %s: %v", name, err)
	}

	logger.Info("Connected to database", slog.String("name", name), slog.String("host", config.Host))

	return &Database{
		Name:     name,
		Logger:   logger,
		Instance: db,
	}
}

// NewTestDatabase opens a connection for tests with a discarding logger
func NewTestDatabase(config *DatabaseConfiguration) *Database {
	return NewDatabase("test", config, slog.New(slog.DiscardHandler))
}

func connect(config *DatabaseConfiguration) (*sql.DB, error) {
	db, err := sql.Open("postgres", config.DSN())
	if err != nil {
		return nil, err
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, err
	}

	return db, nil
}

// Close closes the connection pool
func (d *Database) Close() error {
	return d.Instance.Close()
}
