// Package fetcher implements the download-and-persist operation: resolve a
// bundled resource or a remote URL, stream it to a local file, and
// optionally digest what was written.
package fetcher

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/vertextoedge/easy-file-system/internal/domain"
	"github.com/vertextoedge/easy-file-system/internal/domain/event"
	"github.com/vertextoedge/easy-file-system/internal/port"
)

const tracerName = "github.com/vertextoedge/easy-file-system/internal/service/fetcher"

// Fetcher performs one fetch per call
type Fetcher struct {
	fs         port.FileSystem
	bundle     port.ResourceBundle
	client     *http.Client
	dispatcher event.EventDispatcher
	logger     *zap.Logger
	tracer     trace.Tracer
}

// New creates a new Fetcher. A nil bundle makes every bundled source
// unresolvable; a nil client uses http.DefaultClient.
func New(
	fs port.FileSystem,
	bundle port.ResourceBundle,
	client *http.Client,
	dispatcher event.EventDispatcher,
	logger *zap.Logger,
) *Fetcher {
	if client == nil {
		client = http.DefaultClient
	}
	if dispatcher == nil {
		dispatcher = event.NewNullDispatcher()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Fetcher{
		fs:         fs,
		bundle:     bundle,
		client:     client,
		dispatcher: dispatcher,
		logger:     logger,
		tracer:     otel.Tracer(tracerName),
	}
}

// Fetch resolves req.Source and writes it to req.Destination, replacing any
// existing file. Non-2xx responses are successful fetches; their body is
// written like any other.
//
// Every failure is a *domain.FetchError. A failure while copying may leave
// a partially written destination file behind; a successful result always
// means the full body was written.
func (f *Fetcher) Fetch(ctx context.Context, req domain.DownloadRequest) (*domain.DownloadResult, error) {
	requestID := uuid.NewString()
	kind := domain.ClassifySource(req.Source)

	ctx, span := f.tracer.Start(ctx, "fetcher.Fetch", trace.WithAttributes(
		attribute.String("fetch.request_id", requestID),
		attribute.String("fetch.kind", kind.String()),
		attribute.String("fetch.destination", req.Destination),
		attribute.Bool("fetch.md5", req.Options.MD5),
	))
	defer span.End()

	f.logger.Debug("fetch started",
		zap.String("request_id", requestID),
		zap.String("source", req.Source),
		zap.String("destination", req.Destination),
		zap.String("kind", kind.String()))

	start := time.Now()
	result, err := f.fetch(ctx, req, kind)
	took := time.Since(start)

	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, domain.ErrorCode(err))
		f.dispatcher.Dispatch(event.NewFetchFailed(requestID, req, kind, err, took))
		return nil, err
	}

	if result.Remote {
		span.SetAttributes(attribute.Int("http.status_code", result.Status))
	}
	span.SetAttributes(attribute.Int64("fetch.bytes_written", result.BytesWritten))
	f.dispatcher.Dispatch(event.NewFetchCompleted(requestID, req, kind, *result, took))

	return result, nil
}

func (f *Fetcher) fetch(ctx context.Context, req domain.DownloadRequest, kind domain.SourceKind) (*domain.DownloadResult, error) {
	dest, err := domain.ParseDestination(req.Destination)
	if err != nil {
		return nil, err
	}

	if !f.fs.ParentExists(dest.Path) {
		return nil, domain.DirectoryNotFound(dest.Path)
	}

	if !dest.IsLocal() {
		return nil, domain.UnsupportedScheme(req.Destination, nil)
	}

	var result *domain.DownloadResult
	switch kind {
	case domain.SourceBundled:
		result, err = f.fetchBundled(ctx, req.Source, dest.Path)
	case domain.SourceRemote:
		result, err = f.fetchRemote(ctx, req.Source, req.Options.Headers, dest.Path)
	default:
		err = domain.UnsupportedScheme(req.Source, nil)
	}
	if err != nil {
		return nil, err
	}

	if req.Options.MD5 {
		sum, err := f.fs.MD5(dest.Path)
		if err != nil {
			return nil, domain.DigestError(dest.Path, err)
		}
		result.MD5 = sum
	}

	return result, nil
}

func (f *Fetcher) fetchBundled(ctx context.Context, name, path string) (*domain.DownloadResult, error) {
	if f.bundle == nil {
		return nil, domain.ResourceNotFound(name, errors.New("no resource bundle configured"))
	}

	r, err := f.bundle.Open(ctx, name)
	if err != nil {
		var fe *domain.FetchError
		if errors.As(err, &fe) {
			return nil, fe
		}
		return nil, domain.ResourceNotFound(name, err)
	}
	defer r.Close()

	src := &sourceReader{r: r}
	written, err := f.fs.Replace(path, src)
	if err != nil {
		if src.err != nil {
			return nil, domain.IOError("read resource", name, src.err)
		}
		return nil, domain.IOError("write", path, err)
	}

	return &domain.DownloadResult{
		URI:          domain.FileURI(path),
		BytesWritten: written,
	}, nil
}

func (f *Fetcher) fetchRemote(ctx context.Context, source string, headers domain.HeaderList, path string) (*domain.DownloadResult, error) {
	u, err := url.Parse(source)
	if err != nil {
		return nil, domain.UnsupportedScheme(source, err)
	}
	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return nil, domain.UnsupportedScheme(source, nil)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, domain.UnsupportedScheme(source, err)
	}
	for _, h := range headers {
		httpReq.Header.Add(h.Name, h.Value)
	}

	resp, err := f.client.Do(httpReq)
	if err != nil {
		return nil, domain.NetworkError(u.Redacted(), err)
	}
	defer resp.Body.Close()

	f.logger.Debug("response received",
		zap.String("url", u.Redacted()),
		zap.Int("status", resp.StatusCode),
		zap.Int64("content_length", resp.ContentLength))

	body := &sourceReader{r: resp.Body}
	written, err := f.fs.Replace(path, body)
	if err != nil {
		if body.err != nil {
			return nil, domain.NetworkError(u.Redacted(), body.err)
		}
		return nil, domain.IOError("write", path, err)
	}

	return &domain.DownloadResult{
		URI:          domain.FileURI(path),
		Remote:       true,
		Status:       resp.StatusCode,
		Headers:      domain.MergeHeaders(resp.Header),
		BytesWritten: written,
	}, nil
}

// sourceReader remembers a read failure so copy errors can be told apart
// from write errors
type sourceReader struct {
	r   io.Reader
	err error
}

func (s *sourceReader) Read(p []byte) (int, error) {
	n, err := s.r.Read(p)
	if err != nil && err != io.EOF {
		s.err = err
	}
	return n, err
}
