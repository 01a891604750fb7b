package cli

import (
	"context"
	"errors"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/spf13/cobra"

	"github.com/matzehuels/votemap/pkg/artifact"
	verrors "github.com/matzehuels/votemap/pkg/errors"
)

// serveOpts holds serve command flags.
type serveOpts struct {
	addr string
}

// serveCommand creates the serve command.
func (c *CLI) serveCommand() *cobra.Command {
	opts := serveOpts{}

	cmd := &cobra.Command{
		Use:   "serve [dir]",
		Short: "Preview the artifact tree over HTTP",
		Long: `Serve exposes a published output tree the way the map viewer fetches it:
static artifacts under /<department>/ and the manifest at /index.json, with
CORS enabled. /api/departments lists the manifest entries.

Staging directories of a transform in progress are never served.`,
		Example: `  votemap serve out --addr :8080`,
		Args:    cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dir := outputDir("", "out")
			if len(args) == 1 {
				dir = args[0]
			}
			return c.runServe(cmd.Context(), dir, opts)
		},
	}

	cmd.Flags().StringVar(&opts.addr, "addr", "localhost:8080", "listen address")
	return cmd
}

func (c *CLI) runServe(ctx context.Context, dir string, opts serveOpts) error {
	logger := loggerFromContext(ctx)
	if info, err := os.Stat(dir); err != nil || !info.IsDir() {
		return verrors.New(verrors.ErrCodeFileNotFound, "output directory %s not found", dir)
	}
	if _, err := artifact.ReadIndex(dir); err != nil {
		printWarning("No readable %s in %s; run votemap transform first", artifact.FileIndex, dir)
	}

	srv := &http.Server{
		Addr:              opts.addr,
		Handler:           newServer(dir, logger),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errc := make(chan error, 1)
	go func() {
		errc <- srv.ListenAndServe()
	}()
	printSuccess("Serving %s", dir)
	printKeyValue("URL", StyleLink.Render("http://"+opts.addr+"/"+artifact.FileIndex))

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errc; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	printNewline()
	printInfo("Server stopped")
	return ctx.Err()
}

// newServer routes the preview endpoints over dir.
func newServer(dir string, logger *log.Logger) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(requestLogger(logger))
	r.Use(cors)

	r.Route("/api", func(r chi.Router) {
		r.Get("/departments", func(w http.ResponseWriter, req *http.Request) {
			idx, err := artifact.ReadIndex(dir)
			if err != nil {
				writeError(w, err)
				return
			}
			writeJSON(w, http.StatusOK, idx)
		})
		r.Get("/departments/{code}", func(w http.ResponseWriter, req *http.Request) {
			idx, err := artifact.ReadIndex(dir)
			if err != nil {
				writeError(w, err)
				return
			}
			entry, ok := idx.Department(chi.URLParam(req, "code"))
			if !ok {
				http.NotFound(w, req)
				return
			}
			writeJSON(w, http.StatusOK, entry)
		})
	})

	files := http.FileServer(http.Dir(dir))
	r.Get("/*", func(w http.ResponseWriter, req *http.Request) {
		if hiddenPath(req.URL.Path) {
			http.NotFound(w, req)
			return
		}
		files.ServeHTTP(w, req)
	})
	return r
}

// hiddenPath reports whether any segment of p starts with a dot, which
// covers staging and backup directories.
func hiddenPath(p string) bool {
	for _, seg := range strings.Split(p, "/") {
		if strings.HasPrefix(seg, ".") {
			return true
		}
	}
	return false
}

func cors(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, HEAD, OPTIONS")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func requestLogger(logger *log.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()
			next.ServeHTTP(ww, r)
			logger.Debug("request", "method", r.Method, "path", r.URL.Path,
				"status", ww.Status(), "bytes", ww.BytesWritten(),
				"elapsed", time.Since(start).Round(time.Microsecond),
				"id", middleware.GetReqID(r.Context()))
		})
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	data, err := artifact.Encode(v, true)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(data)
}

func writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	if verrors.Is(err, verrors.ErrCodeFileNotFound) {
		status = http.StatusNotFound
	}
	writeJSON(w, status, map[string]string{
		"error": verrors.UserMessage(err),
		"code":  string(verrors.GetCode(err)),
	})
}
