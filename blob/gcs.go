package blob

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"

	"google.golang.org/api/googleapi"
	storage "google.golang.org/api/storage/v1"
)

// GCS stores objects in a Google Cloud Storage bucket. Visibility of a
// freshly written object to other readers is eventually consistent, which is
// why the pipeline polls Exists before handing a URI to the recognizer.
type GCS struct {
	service *storage.Service
	bucket  string
}

func NewGCS(ctx context.Context, bucket string) (*GCS, error) {
	service, err := storage.NewService(ctx)
	if err != nil {
		return nil, fmt.Errorf("create storage service: %w", err)
	}
	return &GCS{service: service, bucket: bucket}, nil
}

func (g *GCS) Put(ctx context.Context, key string) (Writer, error) {
	pr, pw := io.Pipe()
	w := &gcsWriter{pw: pw, done: make(chan error, 1)}

	go func() {
		_, err := g.service.Objects.
			Insert(g.bucket, &storage.Object{Name: key}).
			Media(pr, googleapi.ContentType("application/octet-stream")).
			Context(ctx).
			Do()
		if err != nil {
			pr.CloseWithError(err)
		}
		w.done <- err
	}()

	return w, nil
}

func (g *GCS) Exists(ctx context.Context, key string) (bool, error) {
	_, err := g.service.Objects.Get(g.bucket, key).Context(ctx).Do()
	if err == nil {
		return true, nil
	}
	var apiErr *googleapi.Error
	if errors.As(err, &apiErr) && apiErr.Code == http.StatusNotFound {
		return false, nil
	}
	return false, fmt.Errorf("check object %s: %w", key, err)
}

func (g *GCS) Delete(ctx context.Context, key string) error {
	err := g.service.Objects.Delete(g.bucket, key).Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("delete object %s: %w", key, err)
	}
	return nil
}

func (g *GCS) URI(key string) string {
	return fmt.Sprintf("gs://%s/%s", g.bucket, key)
}

type gcsWriter struct {
	pw   *io.PipeWriter
	done chan error
}

func (w *gcsWriter) Write(p []byte) (int, error) {
	return w.pw.Write(p)
}

func (w *gcsWriter) Close() error {
	if err := w.pw.Close(); err != nil {
		return err
	}
	return <-w.done
}

func (w *gcsWriter) Abort() error {
	w.pw.CloseWithError(io.ErrClosedPipe)
	<-w.done
	return nil
}
