package main

import (
	"bytes"
	"context"
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/json"
	"encoding/pem"
	"math/big"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"casework-hq/auditexport/pkg/audit/storage"
	"casework-hq/auditexport/pkg/cli"
	"casework-hq/auditexport/pkg/config"
)

const testReference = `
case_types:
  - display_name: Ministerial
    short_code: a1
    type: MIN
  - display_name: Treat Official
    short_code: a2
    type: TRO
`

func execute(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	rootCmd.SetOut(&stdout)
	rootCmd.SetErr(&stderr)
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	return stdout.String(), stderr.String(), err
}

func TestVersionCommand(t *testing.T) {
	stdout, _, err := execute(t, "version")

	require.NoError(t, err)
	assert.Contains(t, stdout, "auditexport "+Version)
	assert.Contains(t, stdout, "Go Version:")
}

func TestIngestThenExport(t *testing.T) {
	dir := t.TempDir()
	refPath := filepath.Join(dir, "reference.yaml")
	require.NoError(t, os.WriteFile(refPath, []byte(testReference), 0o600))

	cfgPath := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(cfgPath, []byte(`
audit:
  backend: sqlite
  sqlite:
    path: `+filepath.Join(dir, "audit.db")+`
    driver: sqlite
reference:
  path: `+refPath+`
telemetry:
  logging:
    level: error
`), 0o600))

	events := strings.Join([]string{
		`{"correlation_id":"c-1","raising_service":"casework","namespace":"ns","type":"CASE_TOPIC_CREATED","user_id":"u-1","case_uuid":"3fa0c2b8-1111-4a2b-9c3d-0000000001a1","audit_timestamp":"2019-06-03T10:00:00Z","audit_payload":{"topicUuid":"t-1","topicName":"Animals"}}`,
		`{"correlation_id":"c-2","raising_service":"casework","namespace":"ns","type":"CASE_TOPIC_CREATED","user_id":"u-1","case_uuid":"3fa0c2b8-3333-4a2b-9c3d-0000000003a2","audit_timestamp":"2019-06-04T10:00:00Z","audit_payload":{"topicUuid":"t-2","topicName":"Plants"}}`,
	}, "\n")
	eventsPath := filepath.Join(dir, "events.jsonl")
	require.NoError(t, os.WriteFile(eventsPath, []byte(events), 0o600))

	stdout, _, err := execute(t, "--config", cfgPath, "ingest", eventsPath)
	require.NoError(t, err)
	assert.Contains(t, stdout, "ingested 2 records, rejected 0")

	reportPath := filepath.Join(dir, "topics.csv")
	_, stderr, err := execute(t, "--config", cfgPath, "export",
		"--from", "2019-06-01", "--through", "2019-06-30",
		"--case-type", "MIN", "--report-type", "TOPICS",
		"--out", reportPath)
	require.NoError(t, err)
	assert.Contains(t, stderr, "wrote 1 rows")

	data, err := os.ReadFile(reportPath)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	require.Len(t, lines, 2)
	assert.Equal(t, "timestamp,event,userId,caseUuid,topicUuid,topic", lines[0])
	assert.Contains(t, lines[1], "CASE_TOPIC_CREATED,u-1,3fa0c2b8-1111-4a2b-9c3d-0000000001a1,t-1,Animals")

	_, _, err = execute(t, "--config", cfgPath, "export",
		"--from", "2019-06-30", "--through", "2019-06-01",
		"--case-type", "MIN", "--report-type", "TOPICS",
		"--out", "-")
	require.Error(t, err)
	assert.Equal(t, cli.ExitUsage, cli.ExitCode(err))
}

func TestKeysGenerate(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "secrets")

	stdout, stderr, err := execute(t, "keys", "generate", "--name", "reporting", "--secret-dir", dir)
	require.NoError(t, err)
	assert.Contains(t, stderr, "key written to")
	assert.Contains(t, stdout, `name: "reporting"`)
	assert.Contains(t, stdout, `key: "${secret:reporting-api-key}"`)
	assert.Contains(t, stdout, "scopes: [export]")

	path := filepath.Join(dir, "reporting-api-key")
	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(data), apiKeyPrefix))

	// An existing key is never overwritten.
	_, _, err = execute(t, "keys", "generate", "--name", "reporting", "--secret-dir", dir)
	require.Error(t, err)

	_, _, err = execute(t, "keys", "generate", "--name", "other", "--scopes", "admin")
	require.Error(t, err)
	assert.Equal(t, cli.ExitUsage, cli.ExitCode(err))
}

func TestNewAPIKey(t *testing.T) {
	a, err := newAPIKey()
	require.NoError(t, err)
	b, err := newAPIKey()
	require.NoError(t, err)

	assert.NotEqual(t, a, b)
	assert.True(t, strings.HasPrefix(a, apiKeyPrefix))
	assert.Len(t, a, len(apiKeyPrefix)+43)
}

func writeTestCert(t *testing.T, dir string, notAfter time.Time) (string, string) {
	t.Helper()
	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	require.NoError(t, err)

	tmpl := &x509.Certificate{
		SerialNumber: big.NewInt(1),
		Subject:      pkix.Name{CommonName: "auditexport.test"},
		DNSNames:     []string{"auditexport.test"},
		NotBefore:    time.Now().Add(-time.Hour),
		NotAfter:     notAfter,
		KeyUsage:     x509.KeyUsageDigitalSignature,
		ExtKeyUsage:  []x509.ExtKeyUsage{x509.ExtKeyUsageServerAuth},
	}
	der, err := x509.CreateCertificate(rand.Reader, tmpl, tmpl, &key.PublicKey, key)
	require.NoError(t, err)
	keyDER, err := x509.MarshalECPrivateKey(key)
	require.NoError(t, err)

	certPath := filepath.Join(dir, "server.crt")
	keyPath := filepath.Join(dir, "server.key")
	require.NoError(t, os.WriteFile(certPath, pem.EncodeToMemory(&pem.Block{Type: "CERTIFICATE", Bytes: der}), 0o600))
	require.NoError(t, os.WriteFile(keyPath, pem.EncodeToMemory(&pem.Block{Type: "EC PRIVATE KEY", Bytes: keyDER}), 0o600))
	return certPath, keyPath
}

func TestCertsCheck(t *testing.T) {
	certPath, keyPath := writeTestCert(t, t.TempDir(), time.Now().Add(90*24*time.Hour))

	stdout, _, err := execute(t, "certs", "check", "--cert", certPath, "--key", keyPath, "--output", "json")
	require.NoError(t, err)

	var summary certSummary
	require.NoError(t, json.Unmarshal([]byte(stdout), &summary))
	assert.Equal(t, "CN=auditexport.test", summary.Subject)
	assert.Equal(t, []string{"auditexport.test"}, summary.DNSNames)
	assert.False(t, summary.ExpiringSoon)
	assert.InDelta(t, 89, summary.DaysRemaining, 1)
}

func TestCertsCheck_ExpiringSoon(t *testing.T) {
	certPath, keyPath := writeTestCert(t, t.TempDir(), time.Now().Add(10*24*time.Hour))

	_, stderr, err := execute(t, "certs", "check", "--cert", certPath, "--key", keyPath, "--output", "text")
	require.NoError(t, err)
	assert.Contains(t, stderr, "certificate expires in")
}

func TestOpenStore_MemoryRequiresDev(t *testing.T) {
	ctx := context.Background()
	cfg := &config.AuditConfig{Backend: "memory"}

	_, err := openStore(ctx, cfg, false)
	require.ErrorIs(t, err, errMemoryBackend)

	store, err := openStore(ctx, cfg, true)
	require.NoError(t, err)
	assert.IsType(t, &storage.MemoryStorage{}, store)
	require.NoError(t, store.Close())
}
