package domain

import (
	"context"
)

// SessionStore holds zero or one access token. Implementations must be safe
// for concurrent use.
type SessionStore interface {
	Set(token string)
	Get() (string, bool)
	Clear()
}

// ReportReader is the read side of the report repository used by the aggregator
type ReportReader interface {
	Get(ctx context.Context, id int64) (*Report, error)
}

// ReporterReader fetches a reporter by id
type ReporterReader interface {
	Get(ctx context.Context, id int64) (*Reporter, error)
}

// PatientReader fetches a patient by id
type PatientReader interface {
	Get(ctx context.Context, id int64) (*Patient, error)
}

// DiseaseReader fetches a disease by id
type DiseaseReader interface {
	Get(ctx context.Context, id int64) (*Disease, error)
}

// ConfigManager defines the interface for configuration management
type ConfigManager interface {
	GetConfig() *Config
	GetAPIConfig() *APIConfig
	GetSessionConfig() *SessionConfig
	GetServerConfig() *ServerConfig
	Reload() error
	Validate() error
}
