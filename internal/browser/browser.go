// Package browser drives a Chrome tab logged into the giveaway host.
package browser

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"strconv"
	"strings"

	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/chromedp"
)

// Options configures the browser.
type Options struct {
	BaseURL        string
	Cookie         string
	Headless       bool
	InterceptAlert bool
}

// Chrome is one browser tab.
type Chrome struct {
	ctx     context.Context
	cancel  context.CancelFunc
	baseURL string
	log     *slog.Logger
}

// New starts Chrome and installs the session cookie. The browser lives until
// Close is called or parent ends.
func New(parent context.Context, opts Options, log *slog.Logger) (*Chrome, error) {
	u, err := url.Parse(opts.BaseURL)
	if err != nil || u.Host == "" {
		return nil, fmt.Errorf("invalid base url %q", opts.BaseURL)
	}

	allocOpts := append(chromedp.DefaultExecAllocatorOptions[:], chromedp.Flag("headless", opts.Headless))
	allocCtx, cancelAlloc := chromedp.NewExecAllocator(parent, allocOpts...)
	tabCtx, cancelTab := chromedp.NewContext(allocCtx, chromedp.WithLogf(func(format string, args ...any) {
		log.Debug(fmt.Sprintf(format, args...))
	}))

	c := &Chrome{
		ctx: tabCtx,
		cancel: func() {
			cancelTab()
			cancelAlloc()
		},
		baseURL: strings.TrimRight(opts.BaseURL, "/"),
		log:     log,
	}

	if opts.InterceptAlert {
		chromedp.ListenTarget(tabCtx, func(ev any) {
			e, ok := ev.(*page.EventJavascriptDialogOpening)
			if !ok || e.Type != page.DialogTypeAlert {
				return
			}
			log.Warn("alert intercepted", "message", e.Message)
			go func() {
				if err := chromedp.Run(tabCtx, page.HandleJavaScriptDialog(true)); err != nil {
					log.Debug("dismiss alert", "error", err)
				}
			}()
		})
	}

	cookies := ParseCookies(opts.Cookie)
	err = chromedp.Run(tabCtx, network.Enable(), chromedp.ActionFunc(func(ctx context.Context) error {
		for _, ck := range cookies {
			if err := network.SetCookie(ck.Name, ck.Value).
				WithDomain(u.Hostname()).
				WithPath("/").
				WithSecure(u.Scheme == "https").
				Do(ctx); err != nil {
				return fmt.Errorf("set cookie %s: %w", ck.Name, err)
			}
		}
		return nil
	}))
	if err != nil {
		c.Close()
		return nil, fmt.Errorf("start browser: %w", err)
	}
	return c, nil
}

// Close shuts the browser down.
func (c *Chrome) Close() {
	c.cancel()
}

// run executes actions on the tab, bounded by ctx as well as the tab's life.
func (c *Chrome) run(ctx context.Context, actions ...chromedp.Action) error {
	runCtx, cancel := context.WithCancel(c.ctx)
	defer cancel()
	stop := context.AfterFunc(ctx, cancel)
	defer stop()

	if err := chromedp.Run(runCtx, actions...); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return err
	}
	return nil
}

// Navigate loads path on the host and waits for the load event.
func (c *Chrome) Navigate(ctx context.Context, path string) error {
	return c.run(ctx, chromedp.Navigate(c.baseURL+path))
}

// Reload reloads the current page.
func (c *Chrome) Reload(ctx context.Context) error {
	return c.run(ctx, chromedp.Reload())
}

// Location returns the current URL.
func (c *Chrome) Location(ctx context.Context) (string, error) {
	var loc string
	if err := c.run(ctx, chromedp.Location(&loc)); err != nil {
		return "", err
	}
	return loc, nil
}

// HTML waits for selector and returns the document markup.
func (c *Chrome) HTML(ctx context.Context, selector string) (string, error) {
	var html string
	err := c.run(ctx,
		chromedp.WaitReady(selector, chromedp.ByQuery),
		chromedp.OuterHTML("html", &html, chromedp.ByQuery),
	)
	if err != nil {
		return "", err
	}
	return html, nil
}

// Visible reports whether an element matching selector is rendered.
func (c *Chrome) Visible(ctx context.Context, selector string) (bool, error) {
	var visible bool
	js := fmt.Sprintf(`(() => { const el = document.querySelector(%s); return !!el && el.offsetParent !== null; })()`, strconv.Quote(selector))
	if err := c.run(ctx, chromedp.Evaluate(js, &visible)); err != nil {
		return false, err
	}
	return visible, nil
}

// Cookie is a single name=value pair.
type Cookie struct {
	Name  string
	Value string
}

// ParseCookies splits a Cookie header value into its pairs.
func ParseCookies(header string) []Cookie {
	var out []Cookie
	for _, part := range strings.Split(header, ";") {
		name, value, ok := strings.Cut(strings.TrimSpace(part), "=")
		if !ok || name == "" {
			continue
		}
		out = append(out, Cookie{Name: strings.TrimSpace(name), Value: strings.TrimSpace(value)})
	}
	return out
}
