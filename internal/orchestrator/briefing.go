package orchestrator

import (
	"context"
	"strings"

	"github.com/kirillm/fx-copilot/internal/domain"
	"golang.org/x/sync/errgroup"
)

// MarketBriefing разовая сводка по паре; пустая пара - пара по умолчанию
func (o *Orchestrator) MarketBriefing(ctx context.Context, pair string) Outcome {
	o.opMu.Lock()
	defer o.opMu.Unlock()
	if o.isDisposed() {
		return Outcome{Err: domain.ErrDisposed}
	}
	o.processing.Store(true)
	defer o.processing.Store(false)

	out := o.briefingLocked(ctx, pair)
	o.say(out.Message)
	return out
}

// briefingLocked собирает котировку, новости и сентимент параллельно
func (o *Orchestrator) briefingLocked(ctx context.Context, pair string) Outcome {
	if pair == "" {
		pair = o.opts.DefaultPair
	}
	if o.market == nil {
		return Outcome{Message: o.msg.T("briefing_fallback")}
	}

	var (
		rate      domain.ForexRate
		news      domain.NewsDigest
		sentiment domain.Sentiment
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		rate = o.market.Rate(gctx, pair)
		return nil
	})
	g.Go(func() error {
		news = o.market.News(gctx, pair)
		return nil
	})
	g.Go(func() error {
		sentiment = o.market.Sentiment(gctx, pair)
		return nil
	})
	_ = g.Wait()

	parts := []string{o.msg.Tf("briefing_line", pair, rate.Price, sentiment.Label, sentiment.Score)}
	if len(news.Items) > 0 {
		parts = append(parts, o.msg.Tf("briefing_headline", news.Items[0].Title))
	}
	if rate.Fallback || news.Fallback || sentiment.Fallback {
		parts = append(parts, o.msg.T("briefing_fallback"))
	}

	if !sentiment.Fallback {
		if bias := parseBias(sentiment.Label); bias != "" {
			o.stateMu.Lock()
			o.st.bias = bias
			o.stateMu.Unlock()
		}
	}

	o.logger.Debug("[Orchestrator] briefing %s price=%.5f sentiment=%s fallback=%v",
		pair, rate.Price, sentiment.Label, rate.Fallback)
	return Outcome{Message: strings.Join(parts, " ")}
}

func parseBias(label string) domain.Bias {
	switch domain.Bias(strings.ToLower(strings.TrimSpace(label))) {
	case domain.BiasBullish, "up", "positive":
		return domain.BiasBullish
	case domain.BiasBearish, "down", "negative":
		return domain.BiasBearish
	case domain.BiasNeutral, "flat", "sideways":
		return domain.BiasNeutral
	default:
		return ""
	}
}
