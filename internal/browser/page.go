// File: internal/browser/page.go
package browser

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/chromedp/cdproto/dom"
	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/cdproto/storage"
	"github.com/chromedp/cdproto/target"
	"github.com/chromedp/chromedp"
	"go.uber.org/zap"

	"github.com/BondarenkoCom/applyflow/internal/engine"
)

// Page drives one browser tab and implements the engine's Page and
// CookieReader contracts. All CDP work runs on the tab context; the caller's
// context only bounds how long an individual operation may take.
type Page struct {
	ctx     context.Context
	cancel  context.CancelFunc
	logger  *zap.Logger
	navWait time.Duration

	closeOnce sync.Once
	onClose   func()
}

var _ engine.Page = (*Page)(nil)
var _ engine.CookieReader = (*Page)(nil)

// run executes CDP actions on the tab, aborting early if the caller's context
// ends first.
func (p *Page) run(ctx context.Context, actions ...chromedp.Action) error {
	runCtx, cancel := context.WithCancel(p.ctx)
	stop := context.AfterFunc(ctx, cancel)
	defer stop()
	defer cancel()

	if err := chromedp.Run(runCtx, actions...); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		return err
	}
	return nil
}

// eval evaluates a script and decodes its result into out.
func (p *Page) eval(ctx context.Context, script string, out any) error {
	if out == nil {
		var discard any
		out = &discard
	}
	return p.run(ctx, chromedp.Evaluate(script, out))
}

func (p *Page) URL(ctx context.Context) (string, error) {
	var loc string
	if err := p.run(ctx, chromedp.Location(&loc)); err != nil {
		return "", fmt.Errorf("could not read page location: %w", err)
	}
	return loc, nil
}

func (p *Page) Navigate(ctx context.Context, u string) error {
	navCtx, cancel := context.WithTimeout(ctx, p.navWait)
	defer cancel()
	if err := p.run(navCtx,
		chromedp.Navigate(u),
		chromedp.WaitReady("body", chromedp.ByQuery),
	); err != nil {
		return fmt.Errorf("navigation to %s failed: %w", u, err)
	}
	return nil
}

func (p *Page) DialogPresent(ctx context.Context) (bool, error) {
	var present bool
	if err := p.eval(ctx, dialogPresentScript, &present); err != nil {
		return false, err
	}
	return present, nil
}

func (p *Page) ScopeText(ctx context.Context, dialog bool) (string, error) {
	var text string
	if err := p.eval(ctx, fmt.Sprintf(scopeTextScript, dialog), &text); err != nil {
		return "", err
	}
	return text, nil
}

func (p *Page) Controls(ctx context.Context, dialog bool) ([]engine.RawControl, error) {
	var raws []engine.RawControl
	if err := p.eval(ctx, fmt.Sprintf(surveyControlsScript, dialog), &raws); err != nil {
		return nil, fmt.Errorf("control survey failed: %w", err)
	}
	return raws, nil
}

func (p *Page) Buttons(ctx context.Context, dialog bool) ([]engine.RawButton, error) {
	var buttons []engine.RawButton
	if err := p.eval(ctx, fmt.Sprintf(surveyButtonsScript, dialog), &buttons); err != nil {
		return nil, fmt.Errorf("button survey failed: %w", err)
	}
	return buttons, nil
}

func (p *Page) SetValue(ctx context.Context, dialog bool, index int, value string) error {
	return p.evalMutation(ctx,
		fmt.Sprintf(setValueScript, dialog, index, strconv.Quote(value)),
		fmt.Sprintf("set value on control %d", index))
}

func (p *Page) SelectOption(ctx context.Context, dialog bool, index int, option string) error {
	return p.evalMutation(ctx,
		fmt.Sprintf(selectOptionScript, dialog, index, strconv.Quote(option)),
		fmt.Sprintf("select %q on control %d", option, index))
}

func (p *Page) SetChecked(ctx context.Context, dialog bool, index int, checked bool) error {
	return p.evalMutation(ctx,
		fmt.Sprintf(setCheckedScript, dialog, index, checked),
		fmt.Sprintf("set checked=%v on control %d", checked, index))
}

func (p *Page) ClickButton(ctx context.Context, dialog bool, index int) error {
	return p.evalMutation(ctx,
		fmt.Sprintf(clickButtonScript, dialog, index),
		fmt.Sprintf("click button %d", index))
}

// evalMutation runs a boolean-returning mutation script and converts a false
// result into an error.
func (p *Page) evalMutation(ctx context.Context, script, op string) error {
	var ok bool
	if err := p.eval(ctx, script, &ok); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if !ok {
		return fmt.Errorf("%s: element rejected the operation or is gone", op)
	}
	return nil
}

// AttachFile uploads a local file into a file input. The element is tagged
// from script, then addressed by node for the CDP file-attach call; plain
// value assignment cannot populate file inputs.
func (p *Page) AttachFile(ctx context.Context, dialog bool, index int, path string) error {
	if err := p.evalMutation(ctx,
		fmt.Sprintf(markUploadScript, dialog, index),
		fmt.Sprintf("mark upload control %d", index)); err != nil {
		return err
	}

	err := p.run(ctx, chromedp.ActionFunc(func(cctx context.Context) error {
		root, err := dom.GetDocument().Do(cctx)
		if err != nil {
			return err
		}
		nodeID, err := dom.QuerySelector(root.NodeID, "input[data-af-upload='1']").Do(cctx)
		if err != nil {
			return err
		}
		if nodeID == 0 {
			return fmt.Errorf("upload marker not found")
		}
		return dom.SetFileInputFiles([]string{path}).WithNodeID(nodeID).Do(cctx)
	}))
	if err != nil {
		return fmt.Errorf("file attach on control %d failed: %w", index, err)
	}

	// Clear the marker; leaving it would confuse the next attach.
	var cleared any
	_ = p.eval(ctx, `document.querySelectorAll('[data-af-upload]').forEach((n) => n.removeAttribute('data-af-upload')); true`, &cleared)
	return nil
}

// FindApplyEntry reports whether the job page offers a direct apply entry,
// and any external apply URL discovered when it does not.
func (p *Page) FindApplyEntry(ctx context.Context) (bool, string, error) {
	var res struct {
		Found    bool   `json:"found"`
		External string `json:"external"`
	}
	if err := p.eval(ctx, findApplyEntryScript, &res); err != nil {
		return false, "", fmt.Errorf("apply entry scan failed: %w", err)
	}
	return res.Found, res.External, nil
}

// OpenApplyEntry activates the apply entry and returns the page the flow
// continues on. Some entries open a popup; the popup target becomes the
// returned Page, owned by the caller.
func (p *Page) OpenApplyEntry(ctx context.Context) (engine.Page, error) {
	popupCh := chromedp.WaitNewTarget(p.ctx, func(info *target.Info) bool {
		return info.Type == "page" && info.OpenerID != ""
	})

	var action string
	if err := p.eval(ctx, clickApplyEntryScript, &action); err != nil {
		return nil, fmt.Errorf("apply entry activation failed: %w", err)
	}
	switch {
	case action == "clicked":
		// Either a popup opens or the current page transitions.
	case strings.HasPrefix(action, "http"):
		// Hidden but valid apply link; navigate directly.
		if err := p.Navigate(ctx, action); err != nil {
			return nil, err
		}
		return p, nil
	default:
		return nil, fmt.Errorf("apply entry disappeared before activation")
	}

	select {
	case id := <-popupCh:
		popupCtx, cancel := chromedp.NewContext(p.ctx, chromedp.WithTargetID(id))
		popup := &Page{
			ctx:     popupCtx,
			cancel:  cancel,
			logger:  p.logger.Named("popup"),
			navWait: p.navWait,
		}
		if err := popup.run(ctx, chromedp.WaitReady("body", chromedp.ByQuery)); err != nil {
			popup.Close()
			return nil, fmt.Errorf("apply popup did not become ready: %w", err)
		}
		p.logger.Debug("Apply entry opened a popup target.", zap.String("target_id", string(id)))
		return popup, nil
	case <-time.After(3 * time.Second):
		return p, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Settle waits for the page to quiesce. A fixed wait is deliberate: the step
// UI re-renders in place and exposes no reliable load event to hook.
func (p *Page) Settle(ctx context.Context, d time.Duration) error {
	return p.run(ctx, chromedp.Sleep(d))
}

func (p *Page) CaptureHTML(ctx context.Context) (string, error) {
	var html string
	if err := p.run(ctx, chromedp.OuterHTML("html", &html, chromedp.ByQuery)); err != nil {
		return "", fmt.Errorf("could not capture document markup: %w", err)
	}
	return html, nil
}

func (p *Page) CaptureScreenshot(ctx context.Context) ([]byte, error) {
	var buf []byte
	err := p.run(ctx, chromedp.ActionFunc(func(cctx context.Context) error {
		var err error
		buf, err = page.CaptureScreenshot().WithCaptureBeyondViewport(true).Do(cctx)
		return err
	}))
	if err != nil {
		return nil, fmt.Errorf("could not capture screenshot: %w", err)
	}
	return buf, nil
}

// HasCookie reports whether a non-empty cookie exists for the origin's
// domain.
func (p *Page) HasCookie(ctx context.Context, origin, name string) (bool, error) {
	host := origin
	if u, err := url.Parse(origin); err == nil && u.Host != "" {
		host = u.Host
	}
	host = strings.TrimPrefix(host, "www.")

	var found bool
	err := p.run(ctx, chromedp.ActionFunc(func(cctx context.Context) error {
		cookies, err := storage.GetCookies().Do(cctx)
		if err != nil {
			return err
		}
		for _, c := range cookies {
			if c.Name != name || c.Value == "" {
				continue
			}
			if strings.Contains(c.Domain, host) || strings.HasSuffix(host, strings.TrimPrefix(c.Domain, ".")) {
				found = true
				return nil
			}
		}
		return nil
	}))
	if err != nil {
		return false, fmt.Errorf("cookie read failed: %w", err)
	}
	return found, nil
}

// Close tears down the tab. Safe to call more than once.
func (p *Page) Close() {
	p.closeOnce.Do(func() {
		p.cancel()
		if p.onClose != nil {
			p.onClose()
		}
	})
}
