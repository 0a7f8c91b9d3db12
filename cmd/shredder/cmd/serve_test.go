package cmd

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ssargent/shredder/pkg/api"
)

type recordingRunner struct {
	tables []string
}

func (r *recordingRunner) Run(context.Context) error { return nil }

type recordingFactory struct {
	config api.ServerConfig
	runner *recordingRunner
}

func (f *recordingFactory) CreateServer(tables api.TableCatalog, config api.ServerConfig) api.Runner {
	f.config = config
	f.runner = &recordingRunner{tables: tables.Loaded()}
	return f.runner
}

func TestServeCommand(t *testing.T) {
	env := newTestEnv(t)
	img := env.buildUsers(t)

	_, err := env.run(t, "register", "users", img)
	require.NoError(t, err)

	factory := &recordingFactory{}
	container.SetServerFactory(factory)

	_, err = env.run(t, "serve", "--port", "9123", "--bind", "0.0.0.0", "--api-key", "secret")
	require.NoError(t, err)

	require.NotNil(t, factory.runner)
	assert.Equal(t, "0.0.0.0:9123", factory.config.Addr)
	assert.Equal(t, "secret", factory.config.APIKey)
	assert.Equal(t, []string{"users"}, factory.runner.tables)
}

func TestServeCommand_InvalidPort(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.run(t, "serve", "--port", "70000")
	assert.Error(t, err)
}
