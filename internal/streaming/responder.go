package streaming

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"sync"

	"github.com/go-chi/chi/v5"

	"rendition-server/internal/asset"
	"rendition-server/internal/platform/metrics"
)

const (
	// ContentType is sent for every rendition.
	ContentType = "video/mp4"

	// ChunkSize is the buffer size used to copy a rendition to the client.
	ChunkSize = 64 << 10
)

var bufPool = sync.Pool{
	New: func() any {
		b := make([]byte, ChunkSize)
		return &b
	},
}

// Responder serves renditions from the asset store, honouring single
// byte-range requests.
type Responder struct {
	store   *asset.Store
	log     *slog.Logger
	metrics *metrics.Metrics
}

// NewResponder returns a Responder. m may be nil.
func NewResponder(store *asset.Store, log *slog.Logger, m *metrics.Metrics) *Responder {
	if log == nil {
		log = slog.Default()
	}
	return &Responder{store: store, log: log, metrics: m}
}

// ServeVideo handles GET and HEAD /video/{asset_id}/{quality}.
func (s *Responder) ServeVideo(w http.ResponseWriter, r *http.Request) {
	s.Serve(w, r, asset.ID(chi.URLParam(r, "asset_id")), chi.URLParam(r, "quality"))
}

// Serve writes the quality rendition of id. The file is opened and sized
// per request, so a rendition replaced on disk is picked up by the next
// request.
func (s *Responder) Serve(w http.ResponseWriter, r *http.Request, id asset.ID, quality string) {
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		w.Header().Set("Allow", "GET, HEAD")
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	f, info, err := s.store.OpenRendition(id, quality)
	if err != nil {
		if errors.Is(err, asset.ErrNotFound) {
			http.Error(w, "video not found", http.StatusNotFound)
			return
		}
		s.log.Error("open rendition failed",
			slog.String("asset_id", id.String()),
			slog.String("quality", quality),
			slog.String("error", err.Error()))
		w.WriteHeader(http.StatusInternalServerError)
		return
	}
	defer f.Close()

	size := info.Size()
	d := Resolve(rangeHeader(r), size)

	hdr := w.Header()
	hdr.Set("Accept-Ranges", "bytes")

	var start, length int64
	status := http.StatusOK
	switch d.Kind {
	case Unsatisfiable:
		hdr.Set("Content-Range", "bytes */"+strconv.FormatInt(size, 10))
		w.WriteHeader(http.StatusRequestedRangeNotSatisfiable)
		return
	case Partial:
		start, length = d.Start, d.Length()
		status = http.StatusPartialContent
		hdr.Set("Content-Range", contentRange(d.Start, d.End, size))
	default:
		start, length = 0, size
	}
	hdr.Set("Content-Type", ContentType)
	hdr.Set("Content-Length", strconv.FormatInt(length, 10))
	w.WriteHeader(status)

	if r.Method == http.MethodHead {
		return
	}

	done := s.metrics.StreamStarted()
	n, err := copyRange(r.Context(), w, f, start, length)
	done()
	s.metrics.AddStreamBytes(n)

	if err != nil {
		s.log.Debug("stream ended early",
			slog.String("asset_id", id.String()),
			slog.String("quality", quality),
			slog.Int64("written", n),
			slog.Int64("expected", length),
			slog.String("error", err.Error()))
	}
}

// rangeHeader returns the Range value, or a value Resolve rejects when the
// client sent more than one Range header.
func rangeHeader(r *http.Request) string {
	values := r.Header.Values("Range")
	switch len(values) {
	case 0:
		return ""
	case 1:
		return values[0]
	default:
		return "bytes=0-0,0-0"
	}
}

func contentRange(start, end, size int64) string {
	return "bytes " + strconv.FormatInt(start, 10) + "-" + strconv.FormatInt(end, 10) +
		"/" + strconv.FormatInt(size, 10)
}

// copyRange writes length bytes of src starting at offset to w in
// ChunkSize pieces, in file order. It stops at the first write error or
// once ctx is done, and returns the number of bytes written.
func copyRange(ctx context.Context, w io.Writer, src io.ReaderAt, offset, length int64) (int64, error) {
	bp := bufPool.Get().(*[]byte)
	defer bufPool.Put(bp)
	buf := *bp

	sr := io.NewSectionReader(src, offset, length)
	var written int64
	for written < length {
		if err := ctx.Err(); err != nil {
			return written, err
		}
		nr, rerr := sr.Read(buf)
		if nr > 0 {
			nw, werr := w.Write(buf[:nr])
			written += int64(nw)
			if werr != nil {
				return written, werr
			}
			if nw != nr {
				return written, io.ErrShortWrite
			}
		}
		if rerr == io.EOF {
			if written < length {
				return written, io.ErrUnexpectedEOF
			}
			break
		}
		if rerr != nil {
			return written, rerr
		}
	}
	return written, nil
}
