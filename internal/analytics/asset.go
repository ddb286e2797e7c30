package analytics

import (
	"fmt"

	"github.com/rs/zerolog"

	"github.com/aristath/finsight/internal/domain"
)

// Asset pairs static metadata with its daily and five-minute series.
// FiveMinute is the zero Series (Empty() == true) for mutual funds and
// whenever five-minute data hasn't been loaded; callers treat it as
// equal to Daily in that case per the distilled spec.
type Asset struct {
	Meta       domain.AssetMeta
	Daily      Series
	FiveMinute Series
}

// Service loads and caches Assets on demand from the store, falling
// back to the external provider on a cache/store miss.
type Service struct {
	store    domain.PriceStore
	provider domain.MarketDataProvider
	cache    map[string]*Asset
	log      zerolog.Logger
}

// NewService builds an asset analytics service.
func NewService(store domain.PriceStore, provider domain.MarketDataProvider, log zerolog.Logger) *Service {
	return &Service{
		store:    store,
		provider: provider,
		cache:    make(map[string]*Asset),
		log:      log.With().Str("component", "analytics").Logger(),
	}
}

// FullLoad populates both the daily and five-minute frames.
func (s *Service) FullLoad(ticker string) (*Asset, error) {
	return s.load(ticker, true)
}

// DailyOnlyLoad populates only the daily frame, as used by portfolio
// code that never needs intraday bars.
func (s *Service) DailyOnlyLoad(ticker string) (*Asset, error) {
	return s.load(ticker, false)
}

func (s *Service) load(ticker string, includeFiveMin bool) (*Asset, error) {
	if a, ok := s.cache[ticker]; ok {
		if !includeFiveMin || !a.FiveMinute.Empty() || a.Meta.Kind == domain.AssetKindMutualFund {
			return a, nil
		}
	}

	meta, err := s.store.GetAssetMeta(ticker)
	if err != nil {
		meta, err = s.ingestFromProvider(ticker)
		if err != nil {
			s.log.Warn().Str("ticker", ticker).Err(err).Msg("ticker not resolvable")
			return &Asset{}, domain.NewError(domain.ErrInvalidAsset, fmt.Sprintf("unknown ticker %s", ticker), err)
		}
	}

	dailyBars, err := s.store.GetDailyBars(ticker)
	if err != nil || len(dailyBars) == 0 {
		dailyBars, err = s.provider.FetchDaily(ticker)
		if err != nil {
			return &Asset{}, domain.NewError(domain.ErrExternalFailure, "fetch daily bars", err)
		}
		if err := s.store.UpsertDailyBars(ticker, dailyBars); err != nil {
			s.log.Warn().Err(err).Msg("failed to persist daily bars")
		}
	}

	asset := &Asset{Meta: meta, Daily: NewSeries(dailyBars)}

	if includeFiveMin && meta.Kind != domain.AssetKindMutualFund {
		fiveMin, err := s.store.GetFiveMinuteBars(ticker)
		if err != nil || len(fiveMin) == 0 {
			fiveMin, err = s.provider.FetchFiveMinute(ticker)
			if err == nil {
				_ = s.store.UpsertFiveMinuteBars(ticker, fiveMin)
			}
		}
		if len(fiveMin) > 0 {
			asset.FiveMinute = NewSeries(fiveMin)
		}
	}

	s.cache[ticker] = asset
	return asset, nil
}

func (s *Service) ingestFromProvider(ticker string) (domain.AssetMeta, error) {
	meta, err := s.provider.FetchMeta(ticker)
	if err != nil {
		return domain.AssetMeta{}, err
	}
	if err := s.store.UpsertAssetMeta(meta); err != nil {
		s.log.Warn().Err(err).Msg("failed to persist asset metadata")
	}
	return meta, nil
}

// AnnFactor returns the annualization factor for this asset's kind and
// bar frequency, per the distilled spec's table.
func AnnFactor(kind domain.AssetKind, fiveMinute bool) float64 {
	crypto := kind == domain.AssetKindCrypto
	switch {
	case fiveMinute && crypto:
		return 252 * 24 * 12
	case fiveMinute:
		return 252 * 78
	case crypto:
		return 365
	default:
		return 252
	}
}
