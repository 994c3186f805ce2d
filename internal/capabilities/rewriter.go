package capabilities

import (
	"bytes"
	"io"
	"mime"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/paramx/paramx/internal/extractor"
	"github.com/paramx/paramx/internal/observability"
	"github.com/sirupsen/logrus"
)

const maxDocumentBytes = 32 << 20

// Rewriter fixes the service URLs of capabilities documents coming back
// from an upstream: links pointing at the upstream origin are moved to the
// public one and the mangler adds the echo parameters.
type Rewriter struct {
	mangler  *extractor.Mangler
	upstream *url.URL
	log      logrus.FieldLogger
	metrics  *observability.Metrics
}

func NewRewriter(mangler *extractor.Mangler, upstream *url.URL, log logrus.FieldLogger) *Rewriter {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Rewriter{mangler: mangler, upstream: upstream, log: log}
}

func (rw *Rewriter) SetMetrics(metrics *observability.Metrics) {
	rw.metrics = metrics
}

// PrepareRequest asks the upstream for an uncompressed document when the
// response may need rewriting.
func (rw *Rewriter) PrepareRequest(r *http.Request) {
	if rw.mangler.Applies(r) {
		r.Header.Del("Accept-Encoding")
	}
}

// ModifyResponse is meant for httputil.ReverseProxy.ModifyResponse. Bodies
// that are not well formed XML are passed through untouched.
func (rw *Rewriter) ModifyResponse(resp *http.Response) error {
	r := resp.Request
	if r == nil || !rw.mangler.Applies(r) || !isXMLContent(resp.Header.Get("Content-Type")) {
		return nil
	}
	if enc := resp.Header.Get("Content-Encoding"); enc != "" && !strings.EqualFold(enc, "identity") {
		return nil
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxDocumentBytes+1))
	if err != nil {
		return err
	}
	if len(body) > maxDocumentBytes {
		resp.Body = struct {
			io.Reader
			io.Closer
		}{io.MultiReader(bytes.NewReader(body), resp.Body), resp.Body}
		return nil
	}
	_ = resp.Body.Close()

	var out bytes.Buffer
	if err := Rewrite(&out, bytes.NewReader(body), func(raw string) string { return rw.rewriteURL(r, raw) }); err != nil {
		rw.log.WithError(err).WithField("uri", r.URL.RequestURI()).Warn("capabilities document not rewritten")
		out.Reset()
		out.Write(body)
	} else if rw.metrics != nil {
		rw.metrics.ObserveCapabilitiesRewrite()
	}

	resp.Body = io.NopCloser(&out)
	resp.ContentLength = int64(out.Len())
	resp.Header.Set("Content-Length", strconv.Itoa(out.Len()))
	return nil
}

func (rw *Rewriter) rewriteURL(r *http.Request, raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return raw
	}
	if rw.upstream != nil && u.Host != "" && strings.EqualFold(u.Host, rw.upstream.Host) && r.Host != "" {
		u.Host = r.Host
		u.Scheme = publicScheme(r)
		raw = u.String()
	}
	return rw.mangler.Mangle(r, raw)
}

func publicScheme(r *http.Request) string {
	if proto := r.Header.Get("X-Forwarded-Proto"); proto != "" {
		return strings.ToLower(strings.TrimSpace(strings.Split(proto, ",")[0]))
	}
	if r.TLS != nil {
		return "https"
	}
	return "http"
}

func isXMLContent(contentType string) bool {
	media, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return false
	}
	return media == "text/xml" || media == "application/xml" || strings.HasSuffix(media, "+xml") ||
		strings.HasPrefix(media, "application/vnd.ogc.")
}
