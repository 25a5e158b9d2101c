package types

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		config  Config
		wantErr error
	}{
		{
			name:    "empty backend returns ErrBackendEmpty",
			config:  Config{Backend: "", DataDir: "/tmp/data"},
			wantErr: ErrBackendEmpty,
		},
		{
			name:    "unknown backend returns ErrBackendUnknown",
			config:  Config{Backend: "postgres", DataDir: "/tmp/data"},
			wantErr: ErrBackendUnknown,
		},
		{
			name:    "valid sqlite config",
			config:  Config{Backend: "sqlite", DataDir: "/tmp/data"},
			wantErr: nil,
		},
		{
			name:    "unknown driver returns ErrDriverUnknown",
			config:  Config{Backend: "sqlite", Driver: "pgx"},
			wantErr: ErrDriverUnknown,
		},
		{
			name:    "unknown attach policy returns ErrAttachPolicyUnknown",
			config:  Config{Backend: "sqlite", AttachPolicy: "merge"},
			wantErr: ErrAttachPolicyUnknown,
		},
		{
			name:    "unknown slug locale returns ErrSlugLocaleUnknown",
			config:  Config{Backend: "sqlite", SlugLocale: "klingon"},
			wantErr: ErrSlugLocaleUnknown,
		},
		{
			name:    "table name with a quote is rejected",
			config:  Config{Backend: "sqlite", Tables: TableNames{Categories: `cats"; DROP`}},
			wantErr: ErrInvalidIdentifier,
		},
		{
			name: "identical table names are rejected",
			config: Config{Backend: "sqlite", Tables: TableNames{
				Categories:   "tags",
				Associations: "tags",
			}},
			wantErr: ErrInvalidIdentifier,
		},
		{
			name:    "subject table must be an identifier",
			config:  Config{Backend: "sqlite", Subjects: map[string]string{"post": "posts table"}},
			wantErr: ErrInvalidIdentifier,
		},
		{
			name:    "defaults are valid",
			config:  DefaultConfig(),
			wantErr: nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.config.Validate()
			if tt.wantErr == nil {
				if err != nil {
					t.Fatalf("expected nil error, got %v", err)
				}
				return
			}
			if err == nil {
				t.Fatalf("expected error %v, got nil", tt.wantErr)
			}
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("expected error %v, got %v", tt.wantErr, err)
			}
		})
	}
}

func TestConfigWithDefaults(t *testing.T) {
	cfg := Config{DataDir: "/tmp/data", Tables: TableNames{Categories: "tags"}}.WithDefaults()

	assert.Equal(t, BackendSQLite, cfg.Backend)
	assert.Equal(t, DriverSQLite, cfg.Driver)
	assert.Equal(t, "tags", cfg.Tables.Categories)
	assert.Equal(t, DefaultAssociationsTable, cfg.Tables.Associations)
	assert.Equal(t, DefaultCategoryType, cfg.DefaultCategoryType)
	assert.Equal(t, AttachDuplicate, cfg.AttachPolicy)
	assert.Equal(t, SlugLocalePersian, cfg.SlugLocale)
	assert.False(t, cfg.CascadeDelete, "WithDefaults must not flip an explicit bool")
	assert.True(t, DefaultConfig().CascadeDelete)
}
