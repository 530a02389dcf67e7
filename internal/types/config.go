package types

type RunMode string

const (
	// ModeLocal is the mode for running the API server locally
	ModeLocal RunMode = "local"
	// ModeAPI is the mode for running the API server
	ModeAPI RunMode = "api"
)

type LogLevel string

const (
	LogLevelDebug LogLevel = "debug"
	LogLevelInfo  LogLevel = "info"
	LogLevelWarn  LogLevel = "warn"
	LogLevelError LogLevel = "error"
)

type EventDestination string

const (
	EventDestinationMemory EventDestination = "memory"
	EventDestinationKafka  EventDestination = "kafka"
)

type DatabaseDriver string

const (
	DatabaseDriverPostgres DatabaseDriver = "postgres"
	DatabaseDriverPgx      DatabaseDriver = "pgx"
	DatabaseDriverSQLite   DatabaseDriver = "sqlite3"
)
