package middleware

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/rs/zerolog/log"

	"kitstock-api/internal/cache"
	"kitstock-api/pkg/apierror"
)

// IdempotencyHeader names the client-supplied request key.
const IdempotencyHeader = "Idempotency-Key"

// pendingTTL bounds how long an in-flight marker blocks retries if the
// process dies mid-request.
const pendingTTL = time.Minute

type recordedResponse struct {
	Pending     bool   `json:"pending,omitempty"`
	Status      int    `json:"status,omitempty"`
	ContentType string `json:"contentType,omitempty"`
	Body        []byte `json:"body,omitempty"`
}

// Idempotency replays the recorded response for a repeated
// Idempotency-Key. Only 2xx responses are recorded; failures release the
// key so the client can retry. Requests without the header pass through.
func Idempotency(c cache.Cache, ttl time.Duration) func(http.Handler) http.Handler {
	pending, _ := json.Marshal(recordedResponse{Pending: true})

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			idemKey := r.Header.Get(IdempotencyHeader)
			if idemKey == "" {
				next.ServeHTTP(w, r)
				return
			}

			ctx := r.Context()
			key := fmt.Sprintf(cache.KeyIdempotency, r.Method, r.URL.Path, idemKey)

			stored, err := c.SetNX(ctx, key, pending, pendingTTL)
			if err != nil {
				log.Warn().Err(err).Str("key", key).Msg("Idempotency cache unavailable, processing without it")
				next.ServeHTTP(w, r)
				return
			}
			if !stored {
				replay(ctx, w, c, key)
				return
			}

			rec := &recordingWriter{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(rec, r)

			bg := context.WithoutCancel(ctx)
			if rec.status < 200 || rec.status > 299 {
				if err := c.Delete(bg, key); err != nil {
					log.Warn().Err(err).Str("key", key).Msg("Failed to release idempotency key")
				}
				return
			}

			data, _ := json.Marshal(recordedResponse{
				Status:      rec.status,
				ContentType: rec.Header().Get("Content-Type"),
				Body:        rec.body.Bytes(),
			})
			if err := c.Set(bg, key, data, ttl); err != nil {
				log.Warn().Err(err).Str("key", key).Msg("Failed to record idempotent response")
			}
		})
	}
}

func replay(ctx context.Context, w http.ResponseWriter, c cache.Cache, key string) {
	raw, err := c.Get(ctx, key)
	if errors.Is(err, cache.ErrCacheMiss) {
		writeError(w, apierror.Conflict("Request with this Idempotency-Key was just released, please retry"))
		return
	}
	if err != nil {
		writeError(w, apierror.ServiceUnavailable("Idempotency cache unavailable"))
		return
	}

	var prev recordedResponse
	if err := json.Unmarshal(raw, &prev); err != nil || prev.Pending {
		writeError(w, apierror.Conflict("Request with this Idempotency-Key is still in progress"))
		return
	}

	if prev.ContentType != "" {
		w.Header().Set("Content-Type", prev.ContentType)
	}
	w.Header().Set("Idempotent-Replayed", "true")
	w.WriteHeader(prev.Status)
	_, _ = w.Write(prev.Body)
}

// recordingWriter passes the response through while keeping a copy.
type recordingWriter struct {
	http.ResponseWriter
	status      int
	wroteHeader bool
	body        bytes.Buffer
}

func (rw *recordingWriter) WriteHeader(code int) {
	if !rw.wroteHeader {
		rw.status = code
		rw.wroteHeader = true
	}
	rw.ResponseWriter.WriteHeader(code)
}

func (rw *recordingWriter) Write(b []byte) (int, error) {
	rw.wroteHeader = true
	rw.body.Write(b)
	return rw.ResponseWriter.Write(b)
}
