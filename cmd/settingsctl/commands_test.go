package main

import (
	"bytes"
	"encoding/json"
	"io"
	"path/filepath"
	"strings"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	config "github.com/avatarctic/settings-store/configs"
	"github.com/avatarctic/settings-store/internal/bootstrap"
	"github.com/avatarctic/settings-store/internal/core/domain/setting"
)

func boltOpener(t *testing.T) opener {
	t.Helper()
	path := filepath.Join(t.TempDir(), "settings.bbolt")
	return func(migrate bool) (*bootstrap.App, error) {
		cfg := &config.Config{Settings: config.SettingsConfig{
			StoreDriver: config.StoreDriverBolt,
			BoltPath:    path,
			CacheDriver: config.CacheDriverMemory,
			Locales:     []string{"en", "de"},
		}}
		logger := logrus.New()
		logger.SetOutput(io.Discard)
		return bootstrap.Build(cfg, logger, bootstrap.Options{Migrate: migrate})
	}
}

func run(t *testing.T, open opener, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	cmd := newRootCmd(open, &out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestGetAndSet(t *testing.T) {
	open := boltOpener(t)

	out, err := run(t, open, "get", "page_size", "--type", "int", "--default", "25")
	require.NoError(t, err)
	assert.Equal(t, "25\n", out)

	out, err = run(t, open, "get", "page_size", "--default", "99")
	require.NoError(t, err)
	assert.Equal(t, "25\n", out, "an existing setting ignores the default")

	_, err = run(t, open, "set", "page_size", "30")
	require.NoError(t, err)

	out, err = run(t, open, "get", "page_size")
	require.NoError(t, err)
	assert.Equal(t, "30\n", out)

	_, err = run(t, open, "set", "page_size", "lots")
	require.ErrorIs(t, err, setting.ErrInvalidValue)

	_, err = run(t, open, "set", "missing", "1")
	require.ErrorIs(t, err, setting.ErrSettingNotFound)

	_, err = run(t, open, "get", "x", "--type", "blob")
	require.ErrorIs(t, err, setting.ErrInvalidType)
}

func TestGroupCommands(t *testing.T) {
	open := boltOpener(t)

	out, err := run(t, open, "create-group", "mail", "--comment", "Outgoing mail")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(out, "category mail ("))

	out, err = run(t, open, "create", "host", "--group", "mail", "--value", "smtp.local")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(out, "created host ("))

	_, err = run(t, open, "create", "port", "--group", "mail", "--type", "int", "--value", "25")
	require.NoError(t, err)

	out, err = run(t, open, "group", "mail")
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 3)
	assert.Equal(t, []string{"NAME", "VALUE"}, strings.Fields(lines[0]))
	assert.Equal(t, []string{"host", "smtp.local"}, strings.Fields(lines[1]))
	assert.Equal(t, []string{"port", "25"}, strings.Fields(lines[2]))

	_, err = run(t, open, "set", "port", "587", "--group", "mail")
	require.NoError(t, err)

	out, err = run(t, open, "group", "mail", "--json")
	require.NoError(t, err)
	var values map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &values))
	assert.Equal(t, map[string]any{"host": "smtp.local", "port": float64(587)}, values)

	_, err = run(t, open, "create", "host", "--group", "mail")
	require.ErrorIs(t, err, setting.ErrDuplicate)
}

func TestCreateMultiLanguage(t *testing.T) {
	open := boltOpener(t)

	out, err := run(t, open, "create", "greeting", "--multi-language", "--value", "hello")
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 2)
	assert.True(t, strings.HasPrefix(lines[0], "created greeting_en ("))
	assert.True(t, strings.HasPrefix(lines[1], "created greeting_de ("))

	out, err = run(t, open, "get", "greeting", "--lang", "de")
	require.NoError(t, err)
	assert.Equal(t, "hello\n", out)
}

func TestClearCacheAndMigrate(t *testing.T) {
	open := boltOpener(t)

	out, err := run(t, open, "clear-cache", "page_size")
	require.NoError(t, err)
	assert.Equal(t, "cleared: true\n", out)

	out, err = run(t, open, "clear-cache", "mail", "--group")
	require.NoError(t, err)
	assert.Equal(t, "cleared: true\n", out)

	out, err = run(t, open, "migrate")
	require.NoError(t, err)
	assert.Equal(t, "migrations applied\n", out)
}

func TestArgsAreValidated(t *testing.T) {
	open := boltOpener(t)

	_, err := run(t, open, "get")
	require.Error(t, err)
	_, err = run(t, open, "set", "only-name")
	require.Error(t, err)
}
