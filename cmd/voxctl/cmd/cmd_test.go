package cmd

import (
	"bytes"
	"encoding/json"
	"net"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	"github.com/loqalabs/loqa-voxmind/internal/intent"
	"github.com/loqalabs/loqa-voxmind/internal/server"
	"github.com/loqalabs/loqa-voxmind/internal/wake"
)

// setupEnv points the configuration at a temporary database and clears
// anything inherited from the environment.
func setupEnv(t *testing.T) string {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "voxmind.db")
	t.Setenv("DB_PATH", dbPath)
	t.Setenv("VOXMIND_CONFIG", "")
	t.Setenv("VOXMIND_SESSION", "cli")
	t.Setenv("WAKE_DEBOUNCE", "0s")
	t.Setenv("CLASSIFIER_SEMANTIC", "false")
	return dbPath
}

func run(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	root := NewRootCmd()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetIn(strings.NewReader(stdin))
	root.SetArgs(args)
	err := root.Execute()
	return out.String(), err
}

func TestClassifyCmd(t *testing.T) {
	setupEnv(t)

	out, err := run(t, "", "classify", "set", "volume", "to", "35")
	require.NoError(t, err)
	assert.Contains(t, out, intent.CommandControlVolume)
	assert.Contains(t, out, "Volume set to 35 percent.")

	out, err = run(t, "", "classify", "--json", "open chrome and what time is it")
	require.NoError(t, err)
	var results []intent.Classification
	require.NoError(t, json.Unmarshal([]byte(out), &results))
	require.Len(t, results, 2)
	assert.Equal(t, intent.CommandOpenBrowser, results[0].Command)
	assert.Equal(t, intent.CommandGetTime, results[1].Command)

	out, err = run(t, "", "classify", "--json", "--compound=false", "open chrome and what time is it")
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal([]byte(out), &results))
	assert.Len(t, results, 1)

	out, err = run(t, "", "classify", "--json", "--semantic", "turn it up")
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal([]byte(out), &results))
	require.Len(t, results, 1)
	assert.Equal(t, intent.CommandControlVolume, results[0].Command)
	assert.Equal(t, intent.SourceSemantic, results[0].Source)

	_, err = run(t, "", "classify")
	assert.Error(t, err)
}

func TestWakeCmd(t *testing.T) {
	setupEnv(t)

	out, err := run(t, "", "wake", "--json", "hey vox what time is it", "what time is it")
	require.NoError(t, err)

	var results []wake.Result
	require.NoError(t, json.Unmarshal([]byte(out), &results))
	require.Len(t, results, 2)
	assert.True(t, results[0].Detected)
	assert.Equal(t, "hey vox", results[0].Phrase)
	assert.Equal(t, wake.TierPrimary, results[0].Tier)
	assert.Equal(t, "what time is it", results[0].Remainder)
	assert.False(t, results[1].Detected)

	_, err = run(t, "", "wake", "--sensitivity", "2", "hey vox")
	assert.Error(t, err)
}

func TestEvalCmd(t *testing.T) {
	setupEnv(t)
	dir := t.TempDir()
	positives := filepath.Join(dir, "positives.txt")
	negatives := filepath.Join(dir, "negatives.txt")
	require.NoError(t, os.WriteFile(positives, []byte("# wake samples\nhey vox what time is it\nok vox play music\n\n"), 0o644))
	require.NoError(t, os.WriteFile(negatives, []byte("what time is it\nturn the volume down\n"), 0o644))

	out, err := run(t, "", "eval", "--positives", positives, "--negatives", negatives, "--sensitivity", "0.5")
	require.NoError(t, err)
	assert.Contains(t, out, "SENSITIVITY")
	assert.Contains(t, out, "2/2")
	assert.Contains(t, out, "0/2")

	_, err = run(t, "", "eval")
	assert.Error(t, err)
}

func TestListenAndHistoryCmd(t *testing.T) {
	setupEnv(t)

	stdin := "hey vox set volume to 35\nwhat time is it\n\nhey vox\npause the music\n"
	out, err := run(t, stdin, "listen", "--record")
	require.NoError(t, err)
	assert.Contains(t, out, "Volume set to 35 percent.")
	assert.NotContains(t, out, "It is ")

	out, err = run(t, "", "history")
	require.NoError(t, err)
	assert.Contains(t, out, intent.CommandControlVolume)
	assert.Contains(t, out, intent.CommandMediaControl)
	assert.Contains(t, out, "cli")

	out, err = run(t, "", "history", "--stats")
	require.NoError(t, err)
	assert.Contains(t, out, "COUNT")
	assert.Contains(t, out, intent.CommandMediaControl)

	out, err = run(t, "", "history", "--command", intent.CommandMediaControl)
	require.NoError(t, err)
	assert.NotContains(t, out, intent.CommandControlVolume)
}

func TestStatusCmd(t *testing.T) {
	setupEnv(t)

	httpSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"status":"ok","nats_connected":true}`))
	}))
	defer httpSrv.Close()

	lis, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	grpcSrv := grpc.NewServer()
	hs := health.NewServer()
	healthpb.RegisterHealthServer(grpcSrv, hs)
	hs.SetServingStatus(server.HealthService, healthpb.HealthCheckResponse_SERVING)
	go func() { _ = grpcSrv.Serve(lis) }()
	defer grpcSrv.Stop()

	_, httpPort, err := net.SplitHostPort(strings.TrimPrefix(httpSrv.URL, "http://"))
	require.NoError(t, err)
	t.Setenv("VOXMIND_HOST", "127.0.0.1")
	t.Setenv("VOXMIND_PORT", httpPort)
	t.Setenv("VOXMIND_GRPC_PORT", strconv.Itoa(lis.Addr().(*net.TCPAddr).Port))

	out, err := run(t, "", "status")
	require.NoError(t, err)
	assert.Contains(t, out, "ok (nats connected: true)")
	assert.Contains(t, out, "SERVING")

	hs.SetServingStatus(server.HealthService, healthpb.HealthCheckResponse_NOT_SERVING)
	out, err = run(t, "", "status")
	assert.Error(t, err)
	assert.Contains(t, out, "NOT_SERVING")
}

func TestVersionCmd(t *testing.T) {
	out, err := run(t, "", "version")
	require.NoError(t, err)
	assert.Contains(t, out, "voxctl v"+Version)
}
