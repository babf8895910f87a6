// File: cmd/apply.go
package cmd

import (
	"bufio"
	"context"
	"fmt"
	"math/rand"
	"os"
	"path/filepath"
	"strings"
	"time"

	jsoniter "github.com/json-iterator/go"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/BondarenkoCom/applyflow/internal/answerbank"
	"github.com/BondarenkoCom/applyflow/internal/attemptlog"
	"github.com/BondarenkoCom/applyflow/internal/browser"
	"github.com/BondarenkoCom/applyflow/internal/config"
	"github.com/BondarenkoCom/applyflow/internal/engine"
	"github.com/BondarenkoCom/applyflow/internal/observability"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

func newApplyCommand() *cobra.Command {
	var (
		inputFile string
		submit    bool
	)

	cmd := &cobra.Command{
		Use:   "apply [job-url ...]",
		Short: "Walk application forms for the given job URLs.",
		Long: `Apply opens each job URL in the driven browser, walks the multi-step
application form, fills what the answer bank and safe templates cover, and
stops with a structured needs_manual report whenever a human decision is
required. Nothing is ever submitted unless --submit (or apply.submit) is set.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if submit {
				appConfig.Apply.Submit = true
			}
			urls, err := collectJobURLs(args, inputFile)
			if err != nil {
				return err
			}
			if len(urls) == 0 {
				return fmt.Errorf("no job URLs given; pass them as arguments or via --input")
			}
			return runApply(cmd.Context(), appConfig, urls)
		},
	}

	cmd.Flags().StringVarP(&inputFile, "input", "i", "", "file with one job URL per line")
	cmd.Flags().BoolVar(&submit, "submit", false, "authorize final submission (overrides apply.submit)")
	return cmd
}

func runApply(ctx context.Context, cfg *config.Config, urls []string) error {
	logger := observability.GetLogger()

	bank, err := answerbank.NewFromConfig(ctx, cfg.Bank)
	if err != nil {
		return fmt.Errorf("could not open answer bank: %w", err)
	}
	defer bank.Close()

	alog, err := attemptlog.Open(attemptLogPath(cfg))
	if err != nil {
		return fmt.Errorf("could not open attempt log: %w", err)
	}
	defer alog.Close()

	profile, err := bank.LoadProfile(ctx)
	if err != nil {
		return fmt.Errorf("could not load profile: %w", err)
	}
	candidate := buildCandidate(profile, cfg.Candidate)
	if profile["candidate.linkedin"] == "" && candidate.LinkedIn != "" {
		profile["candidate.linkedin"] = candidate.LinkedIn
	}

	mgr, err := browser.NewManager(ctx, logger, cfg)
	if err != nil {
		return err
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 20*time.Second)
		defer cancel()
		_ = mgr.Shutdown(shutdownCtx)
	}()

	guard, err := engine.NewGuard(cfg.Session, logger)
	if err != nil {
		return err
	}

	// One guarded navigation up front; a dead session fails the whole run
	// before any attempt starts.
	guardPage, err := mgr.NewPage(ctx)
	if err != nil {
		return err
	}
	sessionOK := guard.Verify(ctx, guardPage, guardPage)
	guardPage.Close()
	if !sessionOK {
		for _, u := range urls {
			_ = alog.Record(ctx, engine.AttemptResult{
				JobURL:  u,
				Outcome: engine.OutcomeFailed,
				Reason:  engine.ReasonSessionUnavailable,
				Started: time.Now(), Finished: time.Now(),
			})
		}
		return fmt.Errorf("browser session is not authenticated; log in once in a headful run and retry")
	}

	capture := engine.NewCapture(cfg.Debug.Dir, cfg.Debug.MaxSizeMB, cfg.Debug.Screenshot, logger)
	resolver := engine.NewResolver(bank, engine.Profile(profile))
	walker := engine.NewWalker(engine.WalkerConfig{
		MaxSteps:   cfg.Apply.MaxSteps,
		Submit:     cfg.Apply.Submit,
		ResumePath: cfg.Apply.ResumePath,
		SettleWait: cfg.Network.SettleWait,
	}, guard, resolver, capture, candidate, logger)

	// Right before an authorized submit every answer is visible; bank what
	// the bank does not know yet, pending review.
	walker.OnBeforeSubmit(func(hctx context.Context, page engine.Page, dialog bool) {
		observed, err := engine.ExtractFilledAnswers(hctx, page, dialog)
		if err != nil {
			logger.Warn("Answer harvest failed.", zap.Error(err))
			return
		}
		for _, o := range observed {
			if _, err := bank.InsertIfMissing(hctx, answerbank.Entry{
				QNorm:  o.QNorm,
				QRaw:   o.Question,
				Answer: o.Answer,
				Status: answerbank.StatusObserved,
			}); err != nil {
				logger.Warn("Could not record observed answer.", zap.String("question", o.Question), zap.Error(err))
			}
		}
	})

	limiter := rate.NewLimiter(rate.Every(cfg.Apply.PaceMin), 1)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(cfg.Apply.Concurrency)
	for _, jobURL := range urls {
		jobURL := jobURL
		g.Go(func() error {
			done, err := alog.AlreadySubmitted(gctx, jobURL)
			if err != nil {
				return err
			}
			if done {
				logger.Info("Skipping job with a prior submitted attempt.", zap.String("job_url", jobURL))
				return nil
			}

			if err := limiter.Wait(gctx); err != nil {
				return err
			}
			if jitter := paceJitter(cfg.Apply.PaceJitter); jitter > 0 {
				select {
				case <-time.After(jitter):
				case <-gctx.Done():
					return gctx.Err()
				}
			}

			page, err := mgr.NewPage(gctx)
			if err != nil {
				return err
			}
			defer page.Close()

			attemptCtx, cancel := context.WithTimeout(gctx, cfg.Apply.AttemptTimeout)
			defer cancel()

			res := walker.Run(attemptCtx, page, jobURL)
			reportAttempt(logger, res)
			if err := alog.Record(gctx, res); err != nil {
				logger.Warn("Could not record attempt.", zap.String("attempt_id", res.AttemptID), zap.Error(err))
			}
			return nil
		})
	}
	return g.Wait()
}

// reportAttempt logs the outcome and, for needs_manual, prints the structured
// payload to stdout for the review tooling.
func reportAttempt(logger *zap.Logger, res engine.AttemptResult) {
	fields := []zap.Field{
		zap.String("attempt_id", res.AttemptID),
		zap.String("job_url", res.JobURL),
		zap.String("outcome", string(res.Outcome)),
		zap.String("reason", res.Reason),
		zap.Int("step", res.Step),
		zap.Duration("duration", res.Duration()),
	}
	switch res.Outcome {
	case engine.OutcomeSubmitted:
		logger.Info("Application submitted.", fields...)
	case engine.OutcomeNeedsManual:
		logger.Warn("Application needs manual follow-up.", fields...)
		payload := engine.NeedsManualPayload{Reason: res.Reason, Step: res.Step, Missing: res.Missing}
		if payload.Missing == nil {
			payload.Missing = []engine.MissingQuestion{}
		}
		if raw, err := json.Marshal(payload); err == nil {
			fmt.Println(string(raw))
		}
	default:
		logger.Error("Application attempt failed.", append(fields, zap.String("detail", res.Detail))...)
	}
}

// buildCandidate assembles contact answers, profile values first, config as
// fallback.
func buildCandidate(profile map[string]string, cfg config.CandidateConfig) engine.Candidate {
	first := strings.TrimSpace(profile["candidate.first_name"])
	last := strings.TrimSpace(profile["candidate.last_name"])
	if first == "" && last == "" && cfg.Name != "" {
		parts := strings.Fields(cfg.Name)
		if len(parts) > 0 {
			first = parts[0]
			last = strings.Join(parts[1:], " ")
		}
	}

	phone := strings.TrimSpace(profile["candidate.phone"])
	if phone == "" {
		phone = cfg.Phone
	}
	country := strings.TrimSpace(profile["candidate.phone_country"])
	if country == "" {
		country = cfg.PhoneCountry
	}
	email := strings.TrimSpace(profile["candidate.email"])
	if email == "" {
		email = cfg.Email
	}
	linkedin := strings.TrimSpace(profile["candidate.linkedin"])
	if linkedin == "" {
		linkedin = cfg.LinkedIn
	}

	return engine.Candidate{
		FirstName:    first,
		LastName:     last,
		PhoneCountry: country,
		PhoneNumber:  phoneDigits(phone),
		Email:        email,
		LinkedIn:     linkedin,
	}
}

// phoneDigits strips formatting; phone inputs routinely reject spaces and
// punctuation.
func phoneDigits(s string) string {
	var b strings.Builder
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

func paceJitter(max time.Duration) time.Duration {
	if max <= 0 {
		return 0
	}
	return time.Duration(rand.Int63n(int64(max)))
}

// attemptLogPath places the attempt journal next to the sqlite bank file.
func attemptLogPath(cfg *config.Config) string {
	dir := filepath.Dir(cfg.Bank.Path)
	if cfg.Bank.Path == "" {
		dir = "."
	}
	return filepath.Join(dir, "attempts.db")
}

// collectJobURLs merges positional URLs with an optional input file, keeping
// order and dropping duplicates.
func collectJobURLs(args []string, inputFile string) ([]string, error) {
	var urls []string
	seen := map[string]struct{}{}
	add := func(u string) {
		u = strings.TrimSpace(u)
		if u == "" || strings.HasPrefix(u, "#") {
			return
		}
		if _, dup := seen[u]; dup {
			return
		}
		seen[u] = struct{}{}
		urls = append(urls, u)
	}

	for _, a := range args {
		add(a)
	}
	if inputFile != "" {
		f, err := os.Open(inputFile)
		if err != nil {
			return nil, fmt.Errorf("could not open input file: %w", err)
		}
		defer f.Close()
		scanner := bufio.NewScanner(f)
		for scanner.Scan() {
			add(scanner.Text())
		}
		if err := scanner.Err(); err != nil {
			return nil, fmt.Errorf("could not read input file: %w", err)
		}
	}
	return urls, nil
}
