package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.hcl")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestNewFromFile(t *testing.T) {
	path := writeConfig(t, `
log_level = "debug"

peopledoc {
  base_uri      = "https://api.people-doc.test/api/v1"
  api_key       = "from-file"
  timeout       = "45s"
  max_redirects = 3
  tls_verify    = false
}
`)

	cfg, err := NewFromFile(path)
	require.NoError(t, err)
	assert.Equal(t, "debug", cfg.LogLevel)

	tc, err := cfg.Transport()
	require.NoError(t, err)
	assert.Equal(t, "https://api.people-doc.test/api/v1/", tc.BaseURL)
	assert.Equal(t, "from-file", tc.APIKey)
	assert.Equal(t, 45*time.Second, tc.Timeout)
	require.NotNil(t, tc.MaxRedirects)
	assert.Equal(t, 3, *tc.MaxRedirects)
	require.NotNil(t, tc.TLSVerify)
	assert.False(t, *tc.TLSVerify)
}

func TestNewFromFile_MaxRedirects(t *testing.T) {
	tests := []struct {
		name  string
		block string
		want  int
	}{
		{name: "unset", block: ``, want: 10},
		{name: "zero", block: `max_redirects = 0`, want: 0},
		{name: "set", block: `max_redirects = 4`, want: 4},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeConfig(t, `
peopledoc {
  base_uri = "https://api.people-doc.test/"
  api_key  = "k"
  `+tt.block+`
}
`)
			cfg, err := NewFromFile(path)
			require.NoError(t, err)

			tc, err := cfg.Transport()
			require.NoError(t, err)
			require.NotNil(t, tc.MaxRedirects)
			assert.Equal(t, tt.want, *tc.MaxRedirects)
		})
	}
}

func TestNewFromFile_Errors(t *testing.T) {
	_, err := NewFromFile("")
	assert.Error(t, err)

	_, err = NewFromFile(filepath.Join(t.TempDir(), "missing.hcl"))
	assert.ErrorContains(t, err, "not found")

	_, err = NewFromFile(writeConfig(t, `peopledoc { unknown = 1 }`))
	assert.ErrorContains(t, err, "failed to parse")
}

func TestConfig_ApplyEnv(t *testing.T) {
	t.Setenv(EnvBaseURI, "https://env.test/")
	t.Setenv(EnvAPIKey, "from-env")

	cfg := NewConfig()
	cfg.PeopleDoc.APIKey = "from-file"
	cfg.ApplyEnv()

	tc, err := cfg.Transport()
	require.NoError(t, err)
	assert.Equal(t, "https://env.test/", tc.BaseURL)
	assert.Equal(t, "from-env", tc.APIKey)
	assert.Equal(t, 30*time.Second, tc.Timeout)
}

func TestConfig_Transport(t *testing.T) {
	tests := []struct {
		name    string
		block   PeopleDoc
		wantErr string
	}{
		{name: "missing key", block: PeopleDoc{BaseURI: "https://a.test"}, wantErr: "api_key"},
		{name: "bad timeout", block: PeopleDoc{BaseURI: "https://a.test", APIKey: "k", Timeout: "soon"}, wantErr: "invalid timeout"},
		{name: "ok", block: PeopleDoc{BaseURI: "https://a.test", APIKey: "k", Timeout: "1m"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			block := tt.block
			cfg := &Config{PeopleDoc: &block}
			_, err := cfg.Transport()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			assert.ErrorContains(t, err, tt.wantErr)
		})
	}
}

func TestNewFromFile_ArchiveAndEvents(t *testing.T) {
	t.Setenv(EnvBrokers, "")
	path := writeConfig(t, `
peopledoc {
  base_uri = "https://api.people-doc.test/api/v1/"
  api_key  = "k"
}

archive {
  endpoint = "http://localhost:9000"
  region   = "eu-west-3"
  bucket   = "hr"
  prefix   = "pd"
  timeout  = "5s"
}

events {
  brokers = ["b1:9092", "b2:9092"]
  topic   = "pd.sig"
}
`)

	cfg, err := NewFromFile(path)
	require.NoError(t, err)

	ac, err := cfg.ArchiveConfig()
	require.NoError(t, err)
	require.NotNil(t, ac)
	assert.Equal(t, "hr", ac.Bucket)
	assert.Equal(t, "pd", ac.Prefix)
	assert.Equal(t, 5*time.Second, ac.Timeout)

	ec := cfg.EventsConfig()
	require.NotNil(t, ec)
	assert.Equal(t, []string{"b1:9092", "b2:9092"}, ec.Brokers)
	assert.Equal(t, "pd.sig", ec.Topic)
}

func TestConfig_ArchiveAndEventsOptional(t *testing.T) {
	cfg := NewConfig()

	ac, err := cfg.ArchiveConfig()
	require.NoError(t, err)
	assert.Nil(t, ac)
	assert.Nil(t, cfg.EventsConfig())

	cfg.Archive = &Archive{Region: "r"}
	_, err = cfg.ArchiveConfig()
	assert.ErrorContains(t, err, "bucket is required")
}

func TestConfig_ApplyEnvBrokers(t *testing.T) {
	t.Setenv(EnvBrokers, "a:1, b:2,")

	cfg := NewConfig()
	cfg.ApplyEnv()

	ec := cfg.EventsConfig()
	require.NotNil(t, ec)
	assert.Equal(t, []string{"a:1", "b:2"}, ec.Brokers)
}
