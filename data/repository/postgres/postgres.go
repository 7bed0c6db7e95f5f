package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/KotFed0t/crypto_tracker_bot/config"
	"github.com/KotFed0t/crypto_tracker_bot/internal/converter/storageConverter"
	"github.com/KotFed0t/crypto_tracker_bot/internal/model"
	"github.com/KotFed0t/crypto_tracker_bot/internal/model/storageModel"
	"github.com/KotFed0t/crypto_tracker_bot/utils"
	_ "github.com/jackc/pgx/v5/stdlib" // pgx driver
	"github.com/jmoiron/sqlx"
)

// Postgres stores one jsonb row per user in the same layout the file backend
// writes, keeping the two backends interchangeable.
type Postgres struct {
	db  *sqlx.DB
	cfg *config.Config
}

func New(cfg *config.Config, db *sqlx.DB) *Postgres {
	return &Postgres{db: db, cfg: cfg}
}

type userRow struct {
	UserID string `db:"user_id"`
	Data   []byte `db:"data"`
}

func (p *Postgres) LoadPortfolios(ctx context.Context) (res map[string]map[string]model.LedgerSnapshot, err error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "Postgres.LoadPortfolios"
	query := `SELECT user_id, data FROM portfolios`

	slog.Debug("LoadPortfolios start", slog.String("rqID", rqID), slog.String("op", op))
	defer func() {
		if err != nil {
			slog.Error("LoadPortfolios failed", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		} else {
			slog.Debug("LoadPortfolios completed", slog.String("rqID", rqID), slog.String("op", op))
		}
	}()

	var rows []userRow
	if err = p.db.SelectContext(ctx, &rows, query); err != nil {
		return nil, err
	}

	res = make(map[string]map[string]model.LedgerSnapshot, len(rows))
	for _, row := range rows {
		userData := storageModel.UserData{}
		if err := json.Unmarshal(row.Data, &userData); err != nil {
			slog.Error("skipping corrupt portfolio row", slog.String("rqID", rqID), slog.String("op", op), slog.String("userID", row.UserID), slog.String("err", err.Error()))
			continue
		}

		assets := make(map[string]model.LedgerSnapshot, len(userData.Portfolio))
		for coinID, entry := range userData.Portfolio {
			snapshot, err := storageConverter.ConvertAssetEntry(entry)
			if err != nil {
				slog.Error("skipping corrupt asset entry", slog.String("rqID", rqID), slog.String("op", op), slog.String("userID", row.UserID), slog.String("coinID", coinID), slog.String("err", err.Error()))
				continue
			}
			assets[coinID] = snapshot
		}
		res[row.UserID] = assets
	}

	return res, nil
}

func (p *Postgres) SavePortfolios(ctx context.Context, portfolios map[string]map[string]model.LedgerSnapshot) (err error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "Postgres.SavePortfolios"

	slog.Debug("SavePortfolios start", slog.String("rqID", rqID), slog.String("op", op))
	defer func() {
		if err != nil {
			slog.Error("SavePortfolios failed", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		} else {
			slog.Debug("SavePortfolios completed", slog.String("rqID", rqID), slog.String("op", op))
		}
	}()

	rows := make([]userRow, 0, len(portfolios))
	for userID, assets := range portfolios {
		userData := storageModel.UserData{Portfolio: make(map[string]storageModel.AssetEntry, len(assets))}
		for coinID, snapshot := range assets {
			userData.Portfolio[coinID] = storageConverter.ToStorageAssetEntry(snapshot)
		}

		data, err := json.Marshal(userData)
		if err != nil {
			return fmt.Errorf("marshal portfolio of user %s: %w", userID, err)
		}
		rows = append(rows, userRow{UserID: userID, Data: data})
	}

	return p.replaceAll(ctx, "portfolios", rows)
}

func (p *Postgres) LoadWatchlists(ctx context.Context) (res map[string][]string, err error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "Postgres.LoadWatchlists"
	query := `SELECT user_id, data FROM watchlists`

	slog.Debug("LoadWatchlists start", slog.String("rqID", rqID), slog.String("op", op))
	defer func() {
		if err != nil {
			slog.Error("LoadWatchlists failed", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		} else {
			slog.Debug("LoadWatchlists completed", slog.String("rqID", rqID), slog.String("op", op))
		}
	}()

	var rows []userRow
	if err = p.db.SelectContext(ctx, &rows, query); err != nil {
		return nil, err
	}

	res = make(map[string][]string, len(rows))
	for _, row := range rows {
		var coinIDs []string
		if err := json.Unmarshal(row.Data, &coinIDs); err != nil {
			slog.Error("skipping corrupt watchlist row", slog.String("rqID", rqID), slog.String("op", op), slog.String("userID", row.UserID), slog.String("err", err.Error()))
			continue
		}
		res[row.UserID] = coinIDs
	}

	return res, nil
}

func (p *Postgres) SaveWatchlists(ctx context.Context, watchlists map[string][]string) (err error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "Postgres.SaveWatchlists"

	slog.Debug("SaveWatchlists start", slog.String("rqID", rqID), slog.String("op", op))
	defer func() {
		if err != nil {
			slog.Error("SaveWatchlists failed", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		} else {
			slog.Debug("SaveWatchlists completed", slog.String("rqID", rqID), slog.String("op", op))
		}
	}()

	rows := make([]userRow, 0, len(watchlists))
	for userID, coinIDs := range watchlists {
		data, err := json.Marshal(coinIDs)
		if err != nil {
			return fmt.Errorf("marshal watchlist of user %s: %w", userID, err)
		}
		rows = append(rows, userRow{UserID: userID, Data: data})
	}

	return p.replaceAll(ctx, "watchlists", rows)
}

// replaceAll rewrites the whole table inside one transaction, mirroring the
// save-all semantics of the file backend.
func (p *Postgres) replaceAll(ctx context.Context, table string, rows []userRow) error {
	tx, err := p.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, fmt.Sprintf(`DELETE FROM %s`, table)); err != nil {
		return err
	}

	query := fmt.Sprintf(`INSERT INTO %s (user_id, data, updated_at) VALUES ($1, $2, now())`, table)
	for _, row := range rows {
		if _, err := tx.ExecContext(ctx, query, row.UserID, row.Data); err != nil {
			return err
		}
	}

	return tx.Commit()
}
