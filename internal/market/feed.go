// Package market отдает котировки, новости и сентимент для брифингов.
// При недоступности сервиса данные берутся из кеша или из справочных цен
// и помечаются как Fallback.
package market

import (
	"context"
	"sync"
	"time"

	"github.com/kirillm/fx-copilot/internal/domain"
	"github.com/kirillm/fx-copilot/pkg/utils"
)

// Source источник рыночных данных
type Source interface {
	GetForexRate(ctx context.Context, pair string) (domain.ForexRate, error)
	GetNews(ctx context.Context, pair string) (domain.NewsDigest, error)
	GetSentiment(ctx context.Context, pair string) (domain.Sentiment, error)
}

// DefaultCacheTTL срок годности кешированной котировки
const DefaultCacheTTL = 5 * time.Minute

// Feed рыночные данные с failover
type Feed struct {
	primary   Source
	fallbacks []Source
	reference map[string]float64
	ttl       time.Duration
	logger    *utils.Logger
	now       func() time.Time

	mu    sync.Mutex
	cache map[string]domain.ForexRate
}

// NewFeed создает feed; reference - справочные цены по парам
func NewFeed(primary Source, reference map[string]float64, ttl time.Duration, logger *utils.Logger) *Feed {
	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}
	if logger == nil {
		logger = utils.Discard()
	}
	ref := make(map[string]float64, len(reference))
	for k, v := range reference {
		ref[k] = v
	}
	return &Feed{
		primary:   primary,
		reference: ref,
		ttl:       ttl,
		logger:    logger,
		now:       time.Now,
		cache:     make(map[string]domain.ForexRate),
	}
}

// AddFallbackSource добавляет запасной источник
func (f *Feed) AddFallbackSource(source Source) {
	f.fallbacks = append(f.fallbacks, source)
}

func (f *Feed) sources() []Source {
	out := make([]Source, 0, 1+len(f.fallbacks))
	if f.primary != nil {
		out = append(out, f.primary)
	}
	return append(out, f.fallbacks...)
}

// Rate котировка: источники по порядку, затем кеш, затем справочная цена
func (f *Feed) Rate(ctx context.Context, pair string) domain.ForexRate {
	for i, source := range f.sources() {
		rate, err := source.GetForexRate(ctx, pair)
		if err != nil {
			f.logger.Debug("[Market] source #%d rate %s failed: %v", i, pair, err)
			continue
		}
		if i > 0 {
			f.logger.Warn("⚠️ Using fallback source #%d for %s price", i, pair)
		}
		f.mu.Lock()
		f.cache[pair] = rate
		f.mu.Unlock()
		return rate
	}

	f.mu.Lock()
	cached, ok := f.cache[pair]
	f.mu.Unlock()
	if ok {
		if age := f.now().Sub(cached.Timestamp); age < f.ttl {
			f.logger.Warn("⚠️ Using cached price for %s (age: %v)", pair, age.Round(time.Second))
			cached.Fallback = true
			return cached
		}
	}

	return f.referenceRate(pair)
}

func (f *Feed) referenceRate(pair string) domain.ForexRate {
	price := f.reference[pair]
	if price <= 0 {
		price = 1
	}
	return domain.ForexRate{
		Pair:      pair,
		Price:     price,
		Bid:       price,
		Ask:       price,
		Timestamp: f.now().UTC(),
		Fallback:  true,
	}
}

// News новости; при ошибке - заглушка без элементов
func (f *Feed) News(ctx context.Context, pair string) domain.NewsDigest {
	for _, source := range f.sources() {
		digest, err := source.GetNews(ctx, pair)
		if err == nil {
			return digest
		}
		f.logger.Debug("[Market] news %s failed: %v", pair, err)
	}
	return domain.NewsDigest{Pair: pair, Fallback: true}
}

// Sentiment сентимент; при ошибке - нейтральный
func (f *Feed) Sentiment(ctx context.Context, pair string) domain.Sentiment {
	for _, source := range f.sources() {
		s, err := source.GetSentiment(ctx, pair)
		if err == nil {
			return s
		}
		f.logger.Debug("[Market] sentiment %s failed: %v", pair, err)
	}
	return domain.Sentiment{Pair: pair, Label: string(domain.BiasNeutral), Fallback: true}
}
