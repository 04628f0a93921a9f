package cmd

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/hashicorp/go-hclog"
	"github.com/mitchellh/cli"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/twmb/franz-go/pkg/kgo"

	"github.com/hashicorp-forge/peopledoc/internal/cmd/base"
	"github.com/hashicorp-forge/peopledoc/internal/config"
	"github.com/hashicorp-forge/peopledoc/internal/version"
	"github.com/hashicorp-forge/peopledoc/pkg/events"
	"github.com/hashicorp-forge/peopledoc/pkg/peopledoc/peopledoctest"
)

const testAPIKey = "cli-test-key"

type harness struct {
	server *peopledoctest.Server
	ui     *cli.MockUi
	fs     afero.Fs
	reg    *prometheus.Registry

	producer events.Producer
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	t.Setenv(config.EnvBaseURI, "")
	t.Setenv(config.EnvAPIKey, "")
	t.Setenv(config.EnvBrokers, "")

	server := peopledoctest.NewServer(testAPIKey)
	t.Cleanup(server.Close)

	return &harness{
		server: server,
		ui:     cli.NewMockUi(),
		fs:     afero.NewMemMapFs(),
		reg:    prometheus.NewRegistry(),
	}
}

// run executes args against a fresh command set and returns the exit code.
func (h *harness) run(t *testing.T, args ...string) int {
	t.Helper()

	b := base.NewCommand(hclog.NewNullLogger(), h.ui)
	b.Fs = h.fs
	b.Registerer = h.reg
	b.Producer = h.producer
	initCommands(b)

	// Client flags follow the subcommand name.
	var name []string
	for len(args) > 0 && !strings.HasPrefix(args[0], "-") {
		name = append(name, args[0])
		args = args[1:]
	}
	full := append(name, "-base-uri="+h.server.BaseURL(), "-api-key="+testAPIKey)
	full = append(full, args...)

	c := &cli.CLI{
		Name:     "peopledoc",
		Args:     full,
		Commands: Commands,
	}
	code, err := c.Run()
	require.NoError(t, err)
	return code
}

func TestEmployeeGet(t *testing.T) {
	h := newHarness(t)
	h.server.AddEmployee(map[string]any{
		"technical_id": "E-7",
		"first_name":   "Grace",
		"last_name":    "Hopper",
	})

	code := h.run(t, "employee", "get", "-id=E-7")
	require.Equal(t, 0, code, h.ui.ErrorWriter.String())
	assert.Contains(t, h.ui.OutputWriter.String(), `"first_name": "Grace"`)

	count, err := testutil.GatherAndCount(h.reg, "peopledoc_client_requests_total")
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestEmployeeGet_NotFound(t *testing.T) {
	h := newHarness(t)

	code := h.run(t, "employee", "get", "-id=E-404")
	assert.Equal(t, 1, code)
	assert.Contains(t, h.ui.ErrorWriter.String(), `employee "E-404" not found`)
}

func TestEmployeeLeaveAndReturn(t *testing.T) {
	h := newHarness(t)
	h.server.AddEmployee(map[string]any{"technical_id": "E-8"})

	require.Equal(t, 0, h.run(t, "employee", "leave", "-id=E-8"), h.ui.ErrorWriter.String())
	assert.True(t, h.server.Gone("E-8"))

	require.Equal(t, 0, h.run(t, "employee", "return", "-id=E-8"), h.ui.ErrorWriter.String())
	assert.False(t, h.server.Gone("E-8"))
	assert.Contains(t, h.ui.OutputWriter.String(), "Employee E-8: return reported")
}

func TestMissingID(t *testing.T) {
	cases := [][]string{
		{"employee", "get"},
		{"employee", "leave"},
		{"signature", "get"},
		{"signature", "wait"},
		{"document", "download"},
		{"document", "upload"},
	}

	for _, args := range cases {
		t.Run(strings.Join(args, " "), func(t *testing.T) {
			h := newHarness(t)
			assert.Equal(t, 1, h.run(t, args...))
			assert.Contains(t, h.ui.ErrorWriter.String(), "is required")
			assert.Empty(t, h.server.Requests())
		})
	}
}

func TestInvalidConfiguration(t *testing.T) {
	h := newHarness(t)
	b := base.NewCommand(hclog.NewNullLogger(), h.ui)
	initCommands(b)

	c := &cli.CLI{
		Name:     "peopledoc",
		Args:     []string{"employee", "get", "-id=E-1"},
		Commands: Commands,
	}
	code, err := c.Run()
	require.NoError(t, err)
	assert.Equal(t, 1, code)
	assert.Contains(t, h.ui.ErrorWriter.String(), "invalid configuration")
}

func TestSignatureGetAndList(t *testing.T) {
	h := newHarness(t)
	id := h.server.AddSignature(map[string]any{"title": "Contract", "status": "pending"})
	h.server.AddSignature(map[string]any{"title": "Amendment", "status": "signed"})

	require.Equal(t, 0, h.run(t, "signature", "get", "-id="+id), h.ui.ErrorWriter.String())
	assert.Contains(t, h.ui.OutputWriter.String(), `"title": "Contract"`)

	h.ui = cli.NewMockUi()
	require.Equal(t, 0, h.run(t, "signature", "list", "-state=signed"), h.ui.ErrorWriter.String())
	out := h.ui.OutputWriter.String()
	assert.Contains(t, out, "Amendment")
	assert.NotContains(t, out, "Contract")
}

func TestSignatureWait(t *testing.T) {
	h := newHarness(t)
	id := h.server.AddSignature(map[string]any{"title": "Contract", "status": "signed"})

	code := h.run(t, "signature", "wait", "-id="+id, "-status=signed", "-interval=10ms", "-timeout=1s")
	require.Equal(t, 0, code, h.ui.ErrorWriter.String())
	assert.Contains(t, h.ui.OutputWriter.String(), `"status": "signed"`)

	h.ui = cli.NewMockUi()
	code = h.run(t, "signature", "wait", "-id=sig-missing", "-interval=10ms", "-timeout=1s")
	assert.Equal(t, 1, code)
	assert.Contains(t, h.ui.ErrorWriter.String(), "not found")
}

func TestDocumentDownload(t *testing.T) {
	h := newHarness(t)
	payload := []byte("%PDF-1.4 test")
	h.server.AddDocument("D-1", payload)

	code := h.run(t, "document", "download", "-id=D-1", "-output=out/d.pdf")
	require.Equal(t, 0, code, h.ui.ErrorWriter.String())

	got, err := afero.ReadFile(h.fs, "out/d.pdf")
	require.NoError(t, err)
	assert.Equal(t, payload, got)
	assert.Contains(t, h.ui.OutputWriter.String(), "Wrote 13 bytes to out/d.pdf")
}

func TestDocumentDownload_NotFound(t *testing.T) {
	h := newHarness(t)

	assert.Equal(t, 1, h.run(t, "document", "download", "-id=D-404"))
	exists, err := afero.Exists(h.fs, "D-404.pdf")
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestDocumentUpload(t *testing.T) {
	h := newHarness(t)
	require.NoError(t, afero.WriteFile(h.fs, "payslip.pdf", []byte("%PDF"), 0o644))

	code := h.run(t, "document", "upload",
		"-file=payslip.pdf", "-employee=E-1", "-title=Payslip")
	require.Equal(t, 0, code, h.ui.ErrorWriter.String())
	require.Len(t, h.server.Documents(), 1)

	doc, ok := h.server.Document(h.server.Documents()[0])
	require.True(t, ok)
	assert.Equal(t, "payslip.pdf", doc.Filename)
	assert.Equal(t, "Payslip", doc.Meta["title"])
}

func TestDocumentUpload_MissingFile(t *testing.T) {
	h := newHarness(t)

	assert.Equal(t, 1, h.run(t, "document", "upload", "-file=nope.pdf", "-employee=E-1", "-title=T"))
	assert.Contains(t, h.ui.ErrorWriter.String(), "file not found")
}

func TestVersion(t *testing.T) {
	ui := cli.NewMockUi()
	initCommands(base.NewCommand(hclog.NewNullLogger(), ui))

	c := &cli.CLI{Name: "peopledoc", Args: []string{"version"}, Commands: Commands}
	code, err := c.Run()
	require.NoError(t, err)
	assert.Equal(t, 0, code)
	assert.Equal(t, version.Version+"\n", ui.OutputWriter.String())
}

type recordingProducer struct {
	mu      sync.Mutex
	records []*kgo.Record
}

func (p *recordingProducer) ProduceSync(ctx context.Context, rs ...*kgo.Record) kgo.ProduceResults {
	p.mu.Lock()
	defer p.mu.Unlock()
	var results kgo.ProduceResults
	for _, r := range rs {
		p.records = append(p.records, r)
		results = append(results, kgo.ProduceResult{Record: r})
	}
	return results
}

func (p *recordingProducer) Close() {}

func TestSignatureWait_Publish(t *testing.T) {
	h := newHarness(t)
	prod := &recordingProducer{}
	h.producer = prod
	id := h.server.AddSignature(map[string]any{"title": "Contract", "status": "refused"})

	code := h.run(t, "signature", "wait", "-id="+id, "-interval=10ms", "-timeout=1s", "-publish")
	require.Equal(t, 0, code, h.ui.ErrorWriter.String())

	require.Len(t, prod.records, 1)
	assert.Equal(t, events.DefaultTopic, prod.records[0].Topic)
	assert.Equal(t, "signature:"+id, string(prod.records[0].Key))
	assert.Contains(t, string(prod.records[0].Value), `"status":"refused"`)
}

func TestSignatureWait_PublishUnconfigured(t *testing.T) {
	h := newHarness(t)
	id := h.server.AddSignature(map[string]any{"title": "Contract", "status": "signed"})

	code := h.run(t, "signature", "wait", "-id="+id, "-publish")
	assert.Equal(t, 1, code)
	assert.Contains(t, h.ui.ErrorWriter.String(), "requires an events block")
	assert.Empty(t, h.server.Requests())
}

func TestDocumentArchive(t *testing.T) {
	h := newHarness(t)
	payload := []byte("%PDF-1.7 archived")
	h.server.AddDocument("D-9", payload)

	var (
		mu     sync.Mutex
		stored = map[string][]byte{}
	)
	s3 := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		mu.Lock()
		stored[r.URL.Path] = body
		mu.Unlock()
		w.Header().Set("ETag", `"e"`)
	}))
	t.Cleanup(s3.Close)

	path := filepath.Join(t.TempDir(), "peopledoc.hcl")
	require.NoError(t, os.WriteFile(path, []byte(fmt.Sprintf(`
archive {
  endpoint   = %q
  region     = "us-east-1"
  bucket     = "hr"
  access_key = "AKIATEST"
  secret_key = "secret"
}
`, s3.URL)), 0o600))

	code := h.run(t, "document", "archive", "-config="+path, "-id=D-9")
	require.Equal(t, 0, code, h.ui.ErrorWriter.String())
	assert.Contains(t, h.ui.OutputWriter.String(), "Archived D-9 to documents/D-9.pdf")

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, payload, stored["/hr/documents/D-9.pdf"])
}

func TestDocumentArchive_Unconfigured(t *testing.T) {
	h := newHarness(t)

	assert.Equal(t, 1, h.run(t, "document", "archive", "-id=D-9"))
	assert.Contains(t, h.ui.ErrorWriter.String(), "no archive block")
}
