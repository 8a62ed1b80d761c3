// SPDX-License-Identifier: MPL-2.0

package config

import "context"

// LoadOptions defines explicit configuration loading inputs.
type LoadOptions struct {
	// ProjectDir is the project directory. Empty means the working directory.
	ProjectDir string
	// ConfigFilePath forces a specific project file; relative paths are
	// resolved against ProjectDir. The file must exist.
	ConfigFilePath string
	// SkipDotEnv disables loading ProjectDir/.env.
	SkipDotEnv bool
}

// Provider loads configuration from explicit options.
type Provider interface {
	Load(ctx context.Context, opts LoadOptions) (*Config, error)
}

type fileProvider struct{}

// NewProvider creates a configuration provider backed by the filesystem and
// the process environment.
func NewProvider() Provider {
	return &fileProvider{}
}

// Load reads configuration from the requested source.
func (p *fileProvider) Load(ctx context.Context, opts LoadOptions) (*Config, error) {
	return loadWithOptions(ctx, opts)
}
