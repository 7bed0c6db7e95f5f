package jsonfile

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"github.com/KotFed0t/crypto_tracker_bot/config"
	"github.com/KotFed0t/crypto_tracker_bot/internal/converter/storageConverter"
	"github.com/KotFed0t/crypto_tracker_bot/internal/model"
	"github.com/KotFed0t/crypto_tracker_bot/internal/model/storageModel"
	"github.com/KotFed0t/crypto_tracker_bot/utils"
)

// Repository persists the full state as two JSON files, in the layout written
// by earlier versions of this tool, so existing files keep working.
type Repository struct {
	portfoliosPath string
	watchlistsPath string
	mu             sync.Mutex
}

func New(cfg *config.Config) *Repository {
	return &Repository{
		portfoliosPath: cfg.Storage.PortfoliosFile,
		watchlistsPath: cfg.Storage.WatchlistsFile,
	}
}

func (r *Repository) LoadPortfolios(ctx context.Context) (map[string]map[string]model.LedgerSnapshot, error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "jsonfile.LoadPortfolios"

	raw := storageModel.Portfolios{}
	ok, err := r.readFile(r.portfoliosPath, &raw)
	if err != nil {
		slog.Error("failed to read portfolios file", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		return nil, err
	}
	if !ok {
		return map[string]map[string]model.LedgerSnapshot{}, nil
	}

	res := make(map[string]map[string]model.LedgerSnapshot, len(raw))
	for userID, userData := range raw {
		assets := make(map[string]model.LedgerSnapshot, len(userData.Portfolio))
		for coinID, entry := range userData.Portfolio {
			snapshot, err := storageConverter.ConvertAssetEntry(entry)
			if err != nil {
				// a single corrupt entry must not strand the rest of the file
				slog.Error(
					"skipping corrupt asset entry",
					slog.String("rqID", rqID),
					slog.String("op", op),
					slog.String("userID", userID),
					slog.String("coinID", coinID),
					slog.String("err", err.Error()),
				)
				continue
			}
			assets[coinID] = snapshot
		}
		res[userID] = assets
	}

	return res, nil
}

func (r *Repository) SavePortfolios(ctx context.Context, portfolios map[string]map[string]model.LedgerSnapshot) error {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "jsonfile.SavePortfolios"

	raw := make(storageModel.Portfolios, len(portfolios))
	for userID, assets := range portfolios {
		userData := storageModel.UserData{Portfolio: make(map[string]storageModel.AssetEntry, len(assets))}
		for coinID, snapshot := range assets {
			userData.Portfolio[coinID] = storageConverter.ToStorageAssetEntry(snapshot)
		}
		raw[userID] = userData
	}

	if err := r.writeFile(r.portfoliosPath, raw); err != nil {
		slog.Error("failed to write portfolios file", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		return err
	}

	return nil
}

func (r *Repository) LoadWatchlists(ctx context.Context) (map[string][]string, error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "jsonfile.LoadWatchlists"

	raw := storageModel.Watchlists{}
	ok, err := r.readFile(r.watchlistsPath, &raw)
	if err != nil {
		slog.Error("failed to read watchlists file", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		return nil, err
	}
	if !ok {
		return map[string][]string{}, nil
	}

	return raw, nil
}

func (r *Repository) SaveWatchlists(ctx context.Context, watchlists map[string][]string) error {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "jsonfile.SaveWatchlists"

	if err := r.writeFile(r.watchlistsPath, storageModel.Watchlists(watchlists)); err != nil {
		slog.Error("failed to write watchlists file", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		return err
	}

	return nil
}

// readFile reports ok=false when the file does not exist yet.
func (r *Repository) readFile(path string, dst any) (ok bool, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, err
	}

	if err := json.Unmarshal(data, dst); err != nil {
		return false, fmt.Errorf("unmarshal %s: %w", path, err)
	}

	return true, nil
}

// writeFile goes through a temp file plus rename so a crash mid-write never
// truncates the previous state.
func (r *Repository) writeFile(path string, src any) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	data, err := json.MarshalIndent(src, "", "    ")
	if err != nil {
		return fmt.Errorf("marshal %s: %w", path, err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+".tmp")
	if err != nil {
		return err
	}

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return err
	}

	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return err
	}

	return os.Rename(tmp.Name(), path)
}
