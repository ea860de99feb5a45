//go:build e2e

package e2e

import (
	"bytes"
	"context"
	"fmt"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/cloo-solutions/quizgen/internal/cli/admin"
	"github.com/cloo-solutions/quizgen/internal/cli/client"
	"github.com/cloo-solutions/quizgen/internal/config"
	"github.com/cloo-solutions/quizgen/internal/jobs"
	"github.com/cloo-solutions/quizgen/internal/storage"
	"github.com/cloo-solutions/quizgen/internal/testutil"
)

const (
	testAPIKey = "e2e-secret-key"
	testBucket = "quizgen-e2e"
)

// E2ETestEnv runs the full server against real Postgres and S3 containers.
type E2ETestEnv struct {
	T         *testing.T
	Ctx       context.Context
	PostgresC *testutil.PostgresContainer
	RustFSC   *testutil.RustFSContainer
	S3Client  *storage.S3Client
	App       *admin.App
	Registry  *jobs.Registry
	Server    *httptest.Server
	Client    *client.APIClient

	cancel context.CancelFunc
	worker *jobs.Worker
	tasks  *jobs.TaskWorker
}

// SetupE2EEnv starts the containers and serves the API on a random port.
// No OpenAI key is configured, so questions come from the fallback templates.
func SetupE2EEnv(t *testing.T) *E2ETestEnv {
	ctx, cancel := context.WithCancel(context.Background())

	pgC := testutil.NewPostgresContainer(ctx, t)
	s3C := testutil.NewRustFSContainer(ctx, t)
	s3Client := testutil.NewTestS3Client(ctx, t, s3C, testBucket)

	cfg := &config.Config{
		Environment:         "test",
		APIKey:              testAPIKey,
		MaxOutputTokens:     1000,
		PromptMaxChars:      4000,
		ChunkSize:           200,
		ChunkOverlap:        20,
		ChunkMinChars:       10,
		RetryMaxAttempts:    1,
		RetryInitialBackoff: 10 * time.Millisecond,
		RetryMaxBackoff:     50 * time.Millisecond,
		MaxFiles:            10,
		MaxQuestions:        300,
		MaxWorkers:          4,
		TaskWorkers:         2,
		TaskPollInterval:    20 * time.Millisecond,
		DownloadTimeout:     30 * time.Second,
		MaxDownloadBytes:    10 << 20,
		CacheBackend:        config.CacheBackendPostgres,
		QuestionCache:       true,
		DatabaseURL:         pgC.ConnectionString(),
		S3Endpoint:          s3C.Endpoint(),
		S3AccessKey:         testutil.RustFSAccessKey,
		S3SecretKey:         testutil.RustFSSecretKey,
		S3Bucket:            testBucket,
		S3Region:            "us-east-1",
	}

	app, err := admin.NewApp(ctx, cfg, nil, admin.AppOptions{})
	if err != nil {
		cancel()
		t.Fatalf("failed to build app: %v", err)
	}

	registry := jobs.NewRegistry()
	taskWorker := jobs.NewTaskWorker(registry, app.Quiz, cfg.TaskWorkers, nil)
	worker := jobs.NewWorker(taskWorker, cfg.TaskPollInterval, nil)
	go worker.Start(ctx)

	srv := httptest.NewServer(app.Handler(registry))

	return &E2ETestEnv{
		T:         t,
		Ctx:       ctx,
		PostgresC: pgC,
		RustFSC:   s3C,
		S3Client:  s3Client,
		App:       app,
		Registry:  registry,
		Server:    srv,
		Client:    client.NewAPIClientWithConfig(testAPIKey, srv.URL),
		cancel:    cancel,
		worker:    worker,
		tasks:     taskWorker,
	}
}

// Cleanup releases all resources
func (e *E2ETestEnv) Cleanup() {
	e.Server.Close()
	e.worker.Stop()

	waitCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = e.tasks.Wait(waitCtx)

	e.cancel()
	e.App.Close()
	e.RustFSC.Terminate(context.Background())
	e.PostgresC.Terminate(context.Background())
}

// UploadPDF stores a generated single-page PDF and returns its s3 URL.
func (e *E2ETestEnv) UploadPDF(key string, lines ...string) string {
	e.Upload(key, buildPDF(lines...), "application/pdf")
	return fmt.Sprintf("s3://%s/%s", testBucket, key)
}

// Upload stores raw bytes and returns their s3 URL.
func (e *E2ETestEnv) Upload(key string, data []byte, contentType string) string {
	if err := e.S3Client.PutObject(e.Ctx, key, data, contentType); err != nil {
		e.T.Fatalf("failed to upload %s: %v", key, err)
	}
	return fmt.Sprintf("s3://%s/%s", testBucket, key)
}

// buildPDF writes a minimal PDF with one text line per entry and a correct
// cross-reference table.
func buildPDF(lines ...string) []byte {
	var content bytes.Buffer
	content.WriteString("BT /F1 12 Tf 72 720 Td 14 TL\n")
	for _, line := range lines {
		fmt.Fprintf(&content, "(%s) Tj T*\n", escapePDF(line))
	}
	content.WriteString("ET")

	objects := []string{
		"<< /Type /Catalog /Pages 2 0 R >>",
		"<< /Type /Pages /Kids [3 0 R] /Count 1 >>",
		"<< /Type /Page /Parent 2 0 R /MediaBox [0 0 612 792] /Contents 4 0 R /Resources << /Font << /F1 5 0 R >> >> >>",
		fmt.Sprintf("<< /Length %d >>\nstream\n%s\nendstream", content.Len(), content.String()),
		"<< /Type /Font /Subtype /Type1 /BaseFont /Helvetica /Encoding /WinAnsiEncoding >>",
	}

	var buf bytes.Buffer
	buf.WriteString("%PDF-1.4\n")
	offsets := make([]int, len(objects))
	for i, obj := range objects {
		offsets[i] = buf.Len()
		fmt.Fprintf(&buf, "%d 0 obj\n%s\nendobj\n", i+1, obj)
	}

	xref := buf.Len()
	fmt.Fprintf(&buf, "xref\n0 %d\n0000000000 65535 f \n", len(objects)+1)
	for _, off := range offsets {
		fmt.Fprintf(&buf, "%010d 00000 n \n", off)
	}
	fmt.Fprintf(&buf, "trailer\n<< /Size %d /Root 1 0 R >>\nstartxref\n%d\n%%%%EOF\n", len(objects)+1, xref)
	return buf.Bytes()
}

func escapePDF(s string) string {
	var out bytes.Buffer
	for _, r := range s {
		switch r {
		case '(', ')', '\\':
			out.WriteByte('\\')
		}
		out.WriteRune(r)
	}
	return out.String()
}
