package creator

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/fastygo/nexus/domain"
	"github.com/fastygo/nexus/internal/validation"
	"github.com/fastygo/nexus/usecase"
)

var buildSteps = []string{
	"> Installing dependencies (npm install)...",
	"> Running build script (npm run build)...",
	"> Optimizing production assets...",
	"> Verifying security protocols...",
	"> Deploying to Nexus Cloud Edge...",
}

var slugSpace = regexp.MustCompile(`\s+`)

// Assistant writes listing copy. Implementations answer with fallback text
// instead of failing.
type Assistant interface {
	DescribeListing(ctx context.Context, name, coreFunction, audience string) domain.ListingCopy
	SuggestPricing(ctx context.Context, name, category string) string
}

type AssistRequest struct {
	Name         string `json:"name" validate:"required,max=120"`
	CoreFunction string `json:"core_function" validate:"required,max=500"`
	Audience     string `json:"audience" validate:"max=200"`
	Category     string `json:"category" validate:"max=80"`
}

type Assistance struct {
	Copy    domain.ListingCopy `json:"copy"`
	Pricing string             `json:"pricing"`
}

type BuildRequest struct {
	AppName string `json:"app_name" validate:"required,max=120"`
	RepoURL string `json:"repo_url" validate:"required,url"`
}

// Dashboard is the creator earnings overview.
type Dashboard struct {
	Payouts []domain.Payout     `json:"payouts"`
	Sales   []domain.SalesPoint `json:"sales"`
}

type Config struct {
	BuildStepInterval time.Duration
}

type UseCase struct {
	assistant Assistant
	validator *validation.Validator
	dashboard Dashboard
	cfg       Config
	metrics   usecase.Metrics
	logger    *zap.Logger
}

func New(assistant Assistant, dashboard Dashboard, cfg Config, metrics usecase.Metrics, logger *zap.Logger) *UseCase {
	if logger == nil {
		logger = zap.NewNop()
	}
	if metrics == nil {
		metrics = usecase.NopMetrics{}
	}
	if cfg.BuildStepInterval <= 0 {
		cfg.BuildStepInterval = 800 * time.Millisecond
	}
	return &UseCase{
		assistant: assistant,
		validator: validation.New(),
		dashboard: dashboard,
		cfg:       cfg,
		metrics:   metrics,
		logger:    logger,
	}
}

// Assist drafts a description and a pricing hint concurrently.
func (uc *UseCase) Assist(ctx context.Context, req AssistRequest) (*Assistance, error) {
	if err := uc.validator.Struct(req); err != nil {
		return nil, err
	}

	var out Assistance
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		out.Copy = uc.assistant.DescribeListing(gctx, req.Name, req.CoreFunction, req.Audience)
		return nil
	})
	g.Go(func() error {
		out.Pricing = uc.assistant.SuggestPricing(gctx, req.Name, req.Category)
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	uc.metrics.Count("creator.assist")
	return &out, nil
}

// StartBuild simulates deploying a repository. Log lines arrive on the
// returned channel one interval apart; the channel closes after the final
// event or when ctx is done.
func (uc *UseCase) StartBuild(ctx context.Context, req BuildRequest) (<-chan domain.BuildEvent, error) {
	if err := uc.validator.Struct(req); err != nil {
		return nil, err
	}

	url := DeploymentURL(req.AppName)
	lines := append([]string{"> Initializing build environment...", "> Cloning repository..."}, buildSteps...)
	total := len(lines) + 1

	events := make(chan domain.BuildEvent)
	go func() {
		defer close(events)

		ticker := time.NewTicker(uc.cfg.BuildStepInterval)
		defer ticker.Stop()

		emit := func(ev domain.BuildEvent) bool {
			select {
			case events <- ev:
				return true
			case <-ctx.Done():
				return false
			}
		}

		for i, line := range lines {
			// the first two lines are printed together
			if i > 1 {
				select {
				case <-ticker.C:
				case <-ctx.Done():
					uc.logger.Debug("build abandoned", zap.String("app", req.AppName), zap.Int("seq", i))
					return
				}
			}
			if !emit(domain.BuildEvent{Seq: i + 1, Line: line, Percent: (i + 1) * 100 / total}) {
				return
			}
		}

		select {
		case <-ticker.C:
		case <-ctx.Done():
			return
		}
		if emit(domain.BuildEvent{
			Seq:     total,
			Line:    "> Success! App deployed to: " + url,
			Done:    true,
			URL:     url,
			Percent: 100,
		}) {
			uc.metrics.Count("creator.build")
			uc.logger.Info("build finished", zap.String("app", req.AppName), zap.String("url", url))
		}
	}()
	return events, nil
}

func (uc *UseCase) Dashboard(context.Context) Dashboard {
	return Dashboard{
		Payouts: append([]domain.Payout{}, uc.dashboard.Payouts...),
		Sales:   append([]domain.SalesPoint{}, uc.dashboard.Sales...),
	}
}

// DeploymentURL derives the hosted address of a built app from its name.
func DeploymentURL(appName string) string {
	slug := slugSpace.ReplaceAllString(strings.ToLower(strings.TrimSpace(appName)), "-")
	return fmt.Sprintf("https://%s.nexus-deploy.com", slug)
}
