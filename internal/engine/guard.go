// File: internal/engine/guard.go
package engine

import (
	"context"
	"fmt"
	"regexp"

	"go.uber.org/zap"

	"github.com/BondarenkoCom/applyflow/internal/config"
)

// Guard confirms the driving browser context is authenticated before an
// attempt starts: the long-lived session cookie must be present, and the
// known authenticated landing page must load without redirecting to a
// login/verification interstitial.
type Guard struct {
	origin     string
	cookieName string
	landingURL string
	checkpoint *regexp.Regexp
	logger     *zap.Logger
}

// NewGuard builds a session guard from configuration.
func NewGuard(cfg config.SessionConfig, logger *zap.Logger) (*Guard, error) {
	re, err := regexp.Compile("(?i)" + cfg.CheckpointPattern)
	if err != nil {
		return nil, fmt.Errorf("invalid checkpoint pattern: %w", err)
	}
	return &Guard{
		origin:     cfg.Origin,
		cookieName: cfg.CookieName,
		landingURL: cfg.LandingURL,
		checkpoint: re,
		logger:     logger.Named("guard"),
	}, nil
}

// IsCheckpointURL reports whether a URL is a login/verification interstitial.
func (g *Guard) IsCheckpointURL(url string) bool {
	return url != "" && g.checkpoint.MatchString(url)
}

// Verify checks the session credential and that the landing page opens
// without hitting a checkpoint. The single side effect is one navigation.
// Any failure yields false; the caller must not proceed to the walker.
func (g *Guard) Verify(ctx context.Context, page Page, cookies CookieReader) bool {
	ok, err := cookies.HasCookie(ctx, g.origin, g.cookieName)
	if err != nil {
		g.logger.Warn("Session cookie check failed.", zap.Error(err))
		return false
	}
	if !ok {
		g.logger.Info("Session cookie absent.", zap.String("cookie", g.cookieName))
		return false
	}

	if err := page.Navigate(ctx, g.landingURL); err != nil {
		g.logger.Warn("Landing page navigation failed.", zap.Error(err))
		return false
	}

	url, err := page.URL(ctx)
	if err != nil {
		g.logger.Warn("Could not read post-navigation URL.", zap.Error(err))
		return false
	}
	if g.IsCheckpointURL(url) {
		g.logger.Info("Landing page redirected to a checkpoint.", zap.String("url", url))
		return false
	}

	// The credential can be dropped during navigation; check once more.
	ok, err = cookies.HasCookie(ctx, g.origin, g.cookieName)
	if err != nil || !ok {
		g.logger.Info("Session cookie gone after navigation.")
		return false
	}
	return true
}
