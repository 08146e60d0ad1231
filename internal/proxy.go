package internal

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"strings"

	"github.com/peterckelly/zotero/pkg/pagecache"
)

const (
	proxyPrefix   = "/proxy/"
	maxProxyDepth = 1
)

type proxyDepthKey struct{}

func isProxy(u *url.URL) bool {
	return u != nil && strings.HasPrefix(u.Path, proxyPrefix)
}

// proxyTarget maps scheme://ext/proxy/<host><rest> to scheme://<host>/<rest>,
// keeping the query.
func proxyTarget(u *url.URL) (*url.URL, error) {
	rest := strings.TrimPrefix(u.Path, proxyPrefix)
	host, tail, _ := strings.Cut(rest, "/")
	if host == "" {
		return nil, fmt.Errorf("%w: %s", ErrInvalidProxy, u)
	}
	return &url.URL{
		Scheme:   u.Scheme,
		Host:     host,
		Path:     "/" + strings.TrimLeft(tail, "/"),
		RawQuery: u.RawQuery,
	}, nil
}

func proxyDepth(ctx context.Context) int {
	d, _ := ctx.Value(proxyDepthKey{}).(int)
	return d
}

// loadProxy fetches the proxied URI, through the page cache when one is
// bound.
func (c *AsyncChannel) loadProxy(ctx context.Context) (string, error) {
	target, err := proxyTarget(c.uri)
	if err != nil {
		return "", err
	}
	depth := proxyDepth(ctx)
	if depth >= maxProxyDepth {
		c.env.metrics.proxyLoad("rejected")
		return "", fmt.Errorf("%w: %s", ErrProxyDepth, c.uri)
	}
	ctx = context.WithValue(ctx, proxyDepthKey{}, depth+1)
	c.env.logger.DebugContext(ctx, "proxying request", slog.String("target", target.String()))

	fetch := func(ctx context.Context) (pagecache.Page, error) {
		body, err := readAll(ctx, c.env.loader, target)
		if err != nil {
			return pagecache.Page{}, err
		}
		return pagecache.Page{URI: target.String(), Body: string(body)}, nil
	}

	if c.env.pages == nil || c.env.proxyTTL <= 0 {
		page, err := fetch(ctx)
		if err != nil {
			c.env.metrics.proxyLoad("error")
			return "", err
		}
		c.env.metrics.proxyLoad("direct")
		return page.Body, nil
	}

	miss := false
	page, err := pagecache.Load(ctx, c.env.pages, target.String(), c.env.proxyTTL,
		func(ctx context.Context) (pagecache.Page, error) {
			miss = true
			return fetch(ctx)
		})
	switch {
	case err != nil:
		c.env.metrics.proxyLoad("error")
		return "", err
	case miss:
		c.env.metrics.proxyLoad("miss")
	default:
		c.env.metrics.proxyLoad("hit")
	}
	return page.Body, nil
}
