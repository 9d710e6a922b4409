package storage

import (
	"context"
	"errors"
	"image"
	"image/png"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"knolling-factory/modules/common/config"
	"knolling-factory/modules/common/model"
)

type memoryUploader struct {
	puts map[string]string
	fail map[string]bool
}

func (m *memoryUploader) Name() string { return "memory" }

func (m *memoryUploader) Put(ctx context.Context, key, contentType string, data []byte) (string, error) {
	if m.fail[key] {
		return "", errors.New("boom")
	}
	if m.puts == nil {
		m.puts = map[string]string{}
	}
	m.puts[key] = contentType
	return "mem://" + key, nil
}

func writeFile(t *testing.T, dir, name string, data []byte) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func writePNG(t *testing.T, dir, name string) string {
	t.Helper()
	f, err := os.Create(filepath.Join(dir, name))
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	if err := png.Encode(f, image.NewGray(image.Rect(0, 0, 8, 8))); err != nil {
		t.Fatal(err)
	}
	return f.Name()
}

func TestPublishWithPreviews(t *testing.T) {
	dir := t.TempDir()
	doc := writeFile(t, dir, "book.pdf", []byte("%PDF-1.4"))
	pages := []model.Artifact{
		{Key: "cover", Path: writePNG(t, dir, "cover.png")},
		{Key: "action", Path: filepath.Join(dir, "missing.png")},
	}
	up := &memoryUploader{}

	ref, err := NewPublisher(up, true).Publish(context.Background(), "run-1", doc, pages)
	if err != nil {
		t.Fatalf("Publish: %v", err)
	}
	if ref != "mem://runs/run-1/book.pdf" {
		t.Fatalf("ref = %s", ref)
	}
	if up.puts["runs/run-1/book.pdf"] != "application/pdf" {
		t.Fatalf("puts = %v", up.puts)
	}
	if up.puts["runs/run-1/previews/cover.webp"] != "image/webp" {
		t.Fatalf("cover preview missing: %v", up.puts)
	}
	if _, ok := up.puts["runs/run-1/previews/action.webp"]; ok {
		t.Fatal("missing page should not get a preview")
	}
}

func TestPublishDocumentUploadFailure(t *testing.T) {
	doc := writeFile(t, t.TempDir(), "book.pdf", []byte("%PDF-1.4"))
	up := &memoryUploader{fail: map[string]bool{"runs/run-2/book.pdf": true}}

	if _, err := NewPublisher(up, false).Publish(context.Background(), "run-2", doc, nil); err == nil {
		t.Fatal("expected error")
	}
}

func TestPublishMissingDocument(t *testing.T) {
	if _, err := NewPublisher(&memoryUploader{}, false).Publish(context.Background(), "run", "/nope/book.pdf", nil); err == nil {
		t.Fatal("expected error")
	}
}

func TestLocalUploader(t *testing.T) {
	root := t.TempDir()
	ref, err := NewLocalUploader(root).Put(context.Background(), "runs/r/book.pdf", "application/pdf", []byte("pdf"))
	if err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(ref, "file://") || !strings.HasSuffix(ref, "runs/r/book.pdf") {
		t.Fatalf("ref = %s", ref)
	}
	data, err := os.ReadFile(filepath.Join(root, "runs", "r", "book.pdf"))
	if err != nil || string(data) != "pdf" {
		t.Fatalf("stored = %q, %v", data, err)
	}
}

func TestSupabaseUploader(t *testing.T) {
	var gotPath, gotAuth, gotType string
	var gotBody []byte
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath, gotAuth, gotType = r.URL.Path, r.Header.Get("Authorization"), r.Header.Get("Content-Type")
		gotBody, _ = io.ReadAll(r.Body)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	up := NewSupabaseUploader(&config.Config{SupabaseURL: srv.URL, SupabaseServiceKey: "secret", SupabaseBucket: "knolling"})
	ref, err := up.Put(context.Background(), "runs/r/book.pdf", "application/pdf", []byte("pdf"))
	if err != nil {
		t.Fatal(err)
	}
	if gotPath != "/storage/v1/object/knolling/runs/r/book.pdf" || gotAuth != "Bearer secret" || gotType != "application/pdf" {
		t.Fatalf("request = %s %s %s", gotPath, gotAuth, gotType)
	}
	if string(gotBody) != "pdf" {
		t.Fatalf("body = %q", gotBody)
	}
	if ref != srv.URL+"/storage/v1/object/public/knolling/runs/r/book.pdf" {
		t.Fatalf("ref = %s", ref)
	}

	up.publicBase = "https://cdn.example.com/files/"
	if got := up.PublicURL("a/b.pdf"); got != "https://cdn.example.com/files/a/b.pdf" {
		t.Fatalf("public url = %s", got)
	}
}

func TestSupabaseUploaderRejectsErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "bucket not found", http.StatusNotFound)
	}))
	defer srv.Close()

	up := NewSupabaseUploader(&config.Config{SupabaseURL: srv.URL, SupabaseBucket: "nope"})
	_, err := up.Put(context.Background(), "k", "application/pdf", []byte("x"))
	if err == nil || !strings.Contains(err.Error(), "404") {
		t.Fatalf("err = %v", err)
	}
}

type fakeS3 struct {
	input *s3.PutObjectInput
}

func (f *fakeS3) PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	f.input = params
	return &s3.PutObjectOutput{}, nil
}

func TestS3Uploader(t *testing.T) {
	client := &fakeS3{}
	up := &S3Uploader{client: client, bucket: "books", prefix: "/knolling/"}

	ref, err := up.Put(context.Background(), "runs/r/book.pdf", "application/pdf", []byte("pdf"))
	if err != nil {
		t.Fatal(err)
	}
	if ref != "s3://books/knolling/runs/r/book.pdf" {
		t.Fatalf("ref = %s", ref)
	}
	if aws.ToString(client.input.Key) != "knolling/runs/r/book.pdf" || aws.ToString(client.input.ContentType) != "application/pdf" {
		t.Fatalf("input = %+v", client.input)
	}
}

func TestNewUnsupportedBackend(t *testing.T) {
	_, err := New(context.Background(), &config.Config{StorageBackend: "ftp"})
	if !errors.Is(err, ErrUnsupportedBackend) {
		t.Fatalf("err = %v", err)
	}
}

func TestNewLocalBackend(t *testing.T) {
	p, err := New(context.Background(), &config.Config{StorageBackend: config.StorageLocal, OutputDir: t.TempDir()})
	if err != nil {
		t.Fatal(err)
	}
	if p.uploader.Name() != "local" || p.previews {
		t.Fatalf("publisher = %+v", p)
	}
}

func TestApplyPrefix(t *testing.T) {
	tests := map[[2]string]string{
		{"", "a/b"}:          "a/b",
		{"knolling", "a/b"}:  "knolling/a/b",
		{"/knolling/", "/a"}: "knolling/a",
	}
	for in, want := range tests {
		if got := applyPrefix(in[0], in[1]); got != want {
			t.Fatalf("applyPrefix(%q, %q) = %q", in[0], in[1], got)
		}
	}
}
