package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"devservices/internal"
	"devservices/internal/backend"
	"devservices/internal/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDescribe(t *testing.T) {
	reader, err := config.NewReader(strings.NewReader(
		"jnosql.document.database=arangodb\njnosql.arangodb.host=localhost:18529\njnosql.arangodb.password=hunter2\n"))
	require.NoError(t, err)

	desc, err := internal.Describe(reader)
	require.NoError(t, err)

	var out bytes.Buffer
	printDescriptor(&out, desc)

	assert.Contains(t, out.String(), "arangodb:latest")
	assert.Contains(t, out.String(), "0.0.0.0:18529")
	assert.Contains(t, out.String(), "ARANGO_ROOT_PASSWORD=********")
	assert.NotContains(t, out.String(), "hunter2")
}

func TestDescribe_Unsupported(t *testing.T) {
	reader, err := config.NewReader(strings.NewReader("jnosql.document.database=mongodb\n"))
	require.NoError(t, err)

	_, err = internal.Describe(reader)
	assert.ErrorIs(t, err, backend.ErrUnsupportedBackend)
}

func TestDescribeCommand(t *testing.T) {
	path := filepath.Join(t.TempDir(), "application.properties")
	require.NoError(t, os.WriteFile(path, []byte(
		"jnosql.document.database=couchdb\njnosql.couchdb.port=15984\njnosql.couchdb.username=u\njnosql.couchdb.password=p\n"), 0o600))

	root := newRootCommand()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetArgs([]string{"describe", "--config", path})

	require.NoError(t, root.Execute())
	assert.Contains(t, out.String(), "couchdb:latest")
	assert.Contains(t, out.String(), "COUCHDB_USER=u")
}

func TestMaskEnv(t *testing.T) {
	assert.Equal(t,
		[]string{"COUCHDB_PASSWORD=********", "COUCHDB_USER=u"},
		maskEnv([]string{"COUCHDB_PASSWORD=p", "COUCHDB_USER=u"}))
}
