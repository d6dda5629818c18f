// Package diagram renders fenced diagram sources into raster images using a
// Kroki compatible service.
package diagram

import (
	"bytes"
	"compress/zlib"
	"context"
	"encoding/base64"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/h2non/filetype"
	"go.uber.org/zap"

	"mdc/config"
	"mdc/misc"
)

// Kroki requests rendered diagrams from a remote service. Diagram source is
// zlib compressed, base64 url-encoded and embedded into the request path, the
// way kroki.io expects it. One Kroki serves a single conversion run and is
// not safe for concurrent use because of report sequencing.
type Kroki struct {
	url    string
	format string
	token  config.SecretString
	client *http.Client
	rpt    *config.Report
	log    *zap.Logger

	seq int
}

func NewKroki(cfg *config.DiagramsConfig, rpt *config.Report, log *zap.Logger) *Kroki {
	return &Kroki{
		url:    cfg.ServiceURL,
		format: cfg.Format,
		token:  cfg.AuthToken,
		client: &http.Client{Timeout: time.Duration(cfg.Timeout) * time.Second},
		rpt:    rpt,
		log:    log,
	}
}

// Render implements markdown.DiagramRenderer.
func (k *Kroki) Render(ctx context.Context, language, source string) ([]byte, error) {
	payload, err := encode(source)
	if err != nil {
		return nil, fmt.Errorf("unable to encode diagram source: %w", err)
	}

	url := fmt.Sprintf("%s/%s/%s/%s", k.url, language, k.format, payload)

	k.seq++
	k.rpt.StoreData(fmt.Sprintf("diagrams/%03d-%s.txt", k.seq, language), []byte(source))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("unable to prepare diagram request: %w", err)
	}
	req.Header.Set("User-Agent", misc.GetAppName()+"/"+misc.GetVersion())
	if len(k.token) > 0 {
		req.Header.Set("Authorization", "Bearer "+string(k.token))
	}

	start := time.Now()
	resp, err := k.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("unable to render diagram: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("unable to read diagram response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		// service reports problems with the diagram source in the body
		return nil, fmt.Errorf("diagram service returned %s: %s", resp.Status, bytes.TrimSpace(data))
	}
	if !acceptable(data) {
		return nil, fmt.Errorf("diagram service response is not an image (%d bytes)", len(data))
	}

	k.rpt.StoreData(fmt.Sprintf("diagrams/%03d-%s.%s", k.seq, language, k.format), data)
	k.log.Debug("Diagram rendered",
		zap.String("language", language), zap.Int("bytes", len(data)), zap.Duration("elapsed", time.Since(start)))
	return data, nil
}

// encode produces the url-safe request path segment for diagram source:
// base64url(zlib(source)) with best compression.
func encode(source string) (string, error) {
	var buf bytes.Buffer
	zw, err := zlib.NewWriterLevel(&buf, zlib.BestCompression)
	if err != nil {
		return "", err
	}
	if _, err := zw.Write([]byte(source)); err != nil {
		return "", err
	}
	if err := zw.Close(); err != nil {
		return "", err
	}
	return base64.URLEncoding.EncodeToString(buf.Bytes()), nil
}

// acceptable sniffs the response to make sure the service sent a picture and
// not an error page. SVG has no magic bytes, filetype cannot match it, so it
// is recognized by the opening tag instead.
func acceptable(data []byte) bool {
	if t, err := filetype.Match(data); err == nil && t.MIME.Type == "image" {
		return true
	}
	head := bytes.TrimSpace(data)
	return bytes.HasPrefix(head, []byte("<svg")) || bytes.HasPrefix(head, []byte("<?xml"))
}
