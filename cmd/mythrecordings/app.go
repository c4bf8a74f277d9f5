package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/githubixx/mythrecordings-go/internal/adapters/secondary/entrystore"
	"github.com/githubixx/mythrecordings-go/internal/adapters/secondary/mythtv"
	"github.com/githubixx/mythrecordings-go/internal/application/catalog"
	"github.com/githubixx/mythrecordings-go/internal/application/services"
	"github.com/githubixx/mythrecordings-go/internal/domain"
	"github.com/githubixx/mythrecordings-go/internal/infrastructure/config"
	"github.com/githubixx/mythrecordings-go/internal/infrastructure/i18n"
	"github.com/githubixx/mythrecordings-go/internal/infrastructure/resources"
)

// app holds the wired components shared by serve, browse and validate.
type app struct {
	cfg     *config.Config
	logger  *slog.Logger
	client  *mythtv.Client
	cache   *services.RecordingService
	browser *catalog.Browser
	loc     *i18n.Localizer
	redis   *entrystore.RedisStore
}

func newApp(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*app, error) {
	loc, err := i18n.New(cfg.UI.Locale)
	if err != nil {
		return nil, err
	}

	client := mythtv.NewClient(cfg.MythTV.Host, cfg.MythTV.Port, mythtv.Options{
		Timeout:                      cfg.MythTV.Timeout,
		UserAgent:                    "mythrecordings/" + version,
		RespectMasterBackendOverride: cfg.MythTV.RespectMasterBackendOverride,
	})

	cache := services.NewRecordingService(client, cfg.Cache.TTL)
	cache.SetEnabled(cfg.Cache.Enabled)
	cache.SetLogger(logger)
	if cfg.MythTV.Timeout > 0 {
		cache.SetFetchTimeout(cfg.MythTV.Timeout)
	}

	a := &app{cfg: cfg, logger: logger, client: client, cache: cache, loc: loc}

	if cfg.Cache.Enabled && cfg.Cache.Backend == config.CacheBackendRedis {
		store, err := entrystore.NewRedisStore(ctx, entrystore.RedisConfig{
			Addr:     cfg.Cache.Redis.Addr,
			Password: cfg.Cache.Redis.Password,
			DB:       cfg.Cache.Redis.DB,
			Key:      cfg.Cache.Redis.Key,
		}, cfg.Cache.TTL, logger)
		if err != nil {
			return nil, err
		}
		cache.SetEntryStore(store)
		a.redis = store
	}

	accessor, err := newAccessor(cfg, logger)
	if err != nil {
		_ = a.close()
		return nil, err
	}

	res := resources.NewResolver(cfg.UI.ResourceDir, cfg.UI.ResourcePrefix, logger)
	projector := catalog.NewProjector(catalog.ProjectorOptions{
		MaxHeaderLength:      cfg.Browse.MaxHeaderLength,
		StillRecordingWindow: cfg.Browse.StillRecordingWindow,
		ProcessingPadding:    cfg.Browse.ProcessingPadding,
		FallbackDuration:     cfg.Browse.FallbackDuration,
	}, client, res, loc, logger)

	a.browser = catalog.NewBrowser(cache, accessor, projector, res, client, loc, catalog.Options{
		PageSize:        cfg.Browse.PageSize,
		Paging:          cfg.Browse.Paging,
		SeriesDetection: cfg.Browse.SeriesDetection,
		CoalesceTitles:  cfg.Browse.CoalesceTitles,
		MaxCount:        cfg.MythTV.MaxCount,
		Menu:            menuPlans(cfg.Browse.Menu),
	}, logger)

	return a, nil
}

func newAccessor(cfg *config.Config, logger *slog.Logger) (*catalog.Accessor, error) {
	exemptions, err := cfg.Browse.Exemptions()
	if err != nil {
		return nil, err
	}
	aliases := catalog.LoadAliasSet(cfg.Aliases.File, logger)
	category := cfg.Aliases.Category
	if category == "" {
		category = catalog.CategoryAliases
	}
	return catalog.NewAccessor(catalog.AccessorOptions{
		TitleSplitting:  cfg.Browse.TitleSplitting,
		Splitters:       cfg.Browse.Splitters,
		Exemptions:      exemptions,
		CategoryAliases: aliases[category],
		StripChars:      cfg.Browse.StripChars,
	}), nil
}

func menuPlans(menu [][]string) []domain.GroupPlan {
	plans := make([]domain.GroupPlan, 0, len(menu))
	for _, keys := range menu {
		plans = append(plans, domain.GroupPlan(keys))
	}
	return plans
}

func (a *app) close() error {
	if a.redis == nil {
		return nil
	}
	if err := a.redis.Close(); err != nil {
		return fmt.Errorf("close redis: %w", err)
	}
	return nil
}

