package middleware

import (
	"bytes"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"

	"github.com/grcmmap/api/pkg/apierror"
)

// DecompressConfig configures Decompress.
type DecompressConfig struct {
	// MaxCompressedSize caps the encoded body that is read.
	MaxCompressedSize int64
	// MaxDecompressedSize caps the decoded body.
	MaxDecompressedSize int64
	// MaxCompressionRatio rejects bodies that expand more than this.
	MaxCompressionRatio float64
}

// DefaultDecompressConfig returns limits sized for CSV uploads.
func DefaultDecompressConfig() DecompressConfig {
	return DecompressConfig{
		MaxCompressedSize:   10 << 20,
		MaxDecompressedSize: 50 << 20,
		MaxCompressionRatio: 100,
	}
}

// Decompress decodes gzip and zstd request bodies named by
// Content-Encoding. Other encodings get a 415 and undecodable bodies a
// 400. Identity bodies pass through untouched.
func Decompress(cfg DecompressConfig) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			encoding := strings.ToLower(strings.TrimSpace(r.Header.Get("Content-Encoding")))
			if encoding == "" || encoding == "identity" {
				next.ServeHTTP(w, r)
				return
			}
			if encoding != "gzip" && encoding != "zstd" {
				apierror.UnsupportedMediaType(fmt.Sprintf("Unsupported Content-Encoding: %s", encoding)).
					WriteJSONWithRequestID(w, GetRequestID(r.Context()))
				return
			}

			body, err := decodeBody(r.Body, encoding, cfg)
			if err != nil {
				apierror.BadRequest("Invalid compressed request body").
					WithError(err).
					WriteJSONWithRequestID(w, GetRequestID(r.Context()))
				return
			}

			r.Body = io.NopCloser(bytes.NewReader(body))
			r.ContentLength = int64(len(body))
			r.Header.Del("Content-Encoding")
			r.Header.Del("Content-Length")

			next.ServeHTTP(w, r)
		})
	}
}

func decodeBody(body io.ReadCloser, encoding string, cfg DecompressConfig) ([]byte, error) {
	defer body.Close()

	compressed, err := io.ReadAll(io.LimitReader(body, cfg.MaxCompressedSize+1))
	if err != nil {
		return nil, fmt.Errorf("read compressed body: %w", err)
	}
	if int64(len(compressed)) > cfg.MaxCompressedSize {
		return nil, fmt.Errorf("compressed body exceeds %d bytes", cfg.MaxCompressedSize)
	}
	if len(compressed) == 0 {
		return []byte{}, nil
	}

	var reader io.Reader
	switch encoding {
	case "gzip":
		gr, err := gzip.NewReader(bytes.NewReader(compressed))
		if err != nil {
			return nil, fmt.Errorf("gzip reader: %w", err)
		}
		defer gr.Close()
		reader = gr
	case "zstd":
		//nolint:gosec // G115: MaxDecompressedSize is a positive byte count
		zr, err := zstd.NewReader(bytes.NewReader(compressed),
			zstd.WithDecoderMaxMemory(uint64(cfg.MaxDecompressedSize)),
			zstd.WithDecoderConcurrency(1),
		)
		if err != nil {
			return nil, fmt.Errorf("zstd reader: %w", err)
		}
		defer zr.Close()
		reader = zr
	}

	decoded, err := io.ReadAll(io.LimitReader(reader, cfg.MaxDecompressedSize+1))
	if err != nil {
		return nil, fmt.Errorf("decompress: %w", err)
	}
	if int64(len(decoded)) > cfg.MaxDecompressedSize {
		return nil, fmt.Errorf("decompressed body exceeds %d bytes", cfg.MaxDecompressedSize)
	}
	if ratio := float64(len(decoded)) / float64(len(compressed)); ratio > cfg.MaxCompressionRatio {
		return nil, fmt.Errorf("compression ratio %.1f exceeds %.1f", ratio, cfg.MaxCompressionRatio)
	}
	return decoded, nil
}
