//go:build wireinject
// +build wireinject

package di

import (
	"github.com/google/wire"

	"github.com/taskory/taskory/internal/app"
)

// InitializeApp wires the whole HTTP application graph from environment
// configuration. Regenerate wire_gen.go with `wire ./internal/di` after
// changing providers.
func InitializeApp() (*app.App, error) {
	wire.Build(
		ConfigSet,
		ObservabilitySet,
		RuntimeInfraSet,
		RepositorySet,
		SecuritySet,
		NotifySet,
		ServiceSet,
		HTTPSet,
		AppSet,
	)
	return nil, nil
}

// InitializeMigrationRunner builds just enough of the graph to run schema
// migrations and seeding from taskctl, without starting observability or
// background workers.
func InitializeMigrationRunner() (*MigrationRunner, error) {
	wire.Build(
		ConfigSet,
		provideOpenDB,
		NewMigrationRunner,
	)
	return nil, nil
}
