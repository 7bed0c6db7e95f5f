package portfolio

import (
	"context"
	"log/slog"
	"slices"
	"sync"

	"github.com/KotFed0t/crypto_tracker_bot/internal/model"
	"github.com/KotFed0t/crypto_tracker_bot/utils"
)

// Repository is the persistence collaborator: load everything at startup, save
// everything after each mutation. The store does not know the storage medium.
type Repository interface {
	LoadPortfolios(ctx context.Context) (map[string]map[string]model.LedgerSnapshot, error)
	SavePortfolios(ctx context.Context, portfolios map[string]map[string]model.LedgerSnapshot) error
	LoadWatchlists(ctx context.Context) (map[string][]string, error)
	SaveWatchlists(ctx context.Context, watchlists map[string][]string) error
}

type userState struct {
	mu        sync.Mutex
	portfolio map[string]*Ledger
	watchlist []string
}

// Store owns the user -> asset -> ledger mapping in memory and mediates every
// ledger mutation with persistence. Mutations on the same user are serialized
// by a per-user mutex; different users proceed in parallel. Saves are
// best-effort: a failed write is logged and reported through the receipt's
// PersistWarning, and the in-memory state stays authoritative.
type Store struct {
	mu    sync.RWMutex
	users map[string]*userState
	repo  Repository
}

func NewStore(repo Repository) *Store {
	return &Store{
		users: make(map[string]*userState),
		repo:  repo,
	}
}

// Load replaces the in-memory state with the persisted one. Cached amounts are
// revalidated against each transaction history; mismatches are repaired to the
// recomputed sum and logged.
func (s *Store) Load(ctx context.Context) error {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "Store.Load"

	portfolios, err := s.repo.LoadPortfolios(ctx)
	if err != nil {
		slog.Error("failed to load portfolios", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		return err
	}

	watchlists, err := s.repo.LoadWatchlists(ctx)
	if err != nil {
		slog.Error("failed to load watchlists", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		return err
	}

	users := make(map[string]*userState, len(portfolios))

	for userID, assets := range portfolios {
		u := &userState{portfolio: make(map[string]*Ledger, len(assets))}
		for coinID, snapshot := range assets {
			ledger, repaired := RestoreLedger(snapshot)
			if repaired {
				slog.Warn(
					"stored amount disagrees with transaction sum, repaired",
					slog.String("op", op),
					slog.String("userID", userID),
					slog.String("coinID", coinID),
					slog.String("storedAmount", snapshot.Amount.String()),
					slog.String("recomputedAmount", ledger.Balance().String()),
				)
			}
			u.portfolio[coinID] = ledger
		}
		users[userID] = u
	}

	for userID, coinIDs := range watchlists {
		u, ok := users[userID]
		if !ok {
			u = &userState{}
			users[userID] = u
		}
		u.watchlist = slices.Clone(coinIDs)
	}

	s.mu.Lock()
	s.users = users
	s.mu.Unlock()

	slog.Info("store loaded", slog.String("op", op), slog.Int("users", len(users)))
	return nil
}

func (s *Store) user(userID string) *userState {
	s.mu.RLock()
	u, ok := s.users[userID]
	s.mu.RUnlock()
	if ok {
		return u
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if u, ok = s.users[userID]; !ok {
		u = &userState{}
		s.users[userID] = u
	}
	return u
}

// AppendTransaction appends tx to the user's ledger for coinID, creating the
// ledger on first use, and saves all portfolios.
func (s *Store) AppendTransaction(ctx context.Context, userID, coinID string, tx model.Transaction) (model.TransactionReceipt, error) {
	u := s.user(userID)

	u.mu.Lock()
	if u.portfolio == nil {
		u.portfolio = make(map[string]*Ledger)
	}
	ledger, ok := u.portfolio[coinID]
	if !ok {
		ledger = NewLedger()
		u.portfolio[coinID] = ledger
	}
	err := ledger.Append(tx)
	u.mu.Unlock()

	if err != nil {
		return model.TransactionReceipt{}, err
	}

	return model.TransactionReceipt{
		CoinID:         coinID,
		Tx:             tx,
		PersistWarning: !s.savePortfolios(ctx),
	}, nil
}

// DeleteTransaction removes the transaction at index (0-based) from the user's
// ledger for coinID, reversing its balance effect, and saves all portfolios.
func (s *Store) DeleteTransaction(ctx context.Context, userID, coinID string, index int) (model.TransactionReceipt, error) {
	u := s.user(userID)

	u.mu.Lock()
	ledger, ok := u.portfolio[coinID]
	if !ok {
		u.mu.Unlock()
		return model.TransactionReceipt{}, ErrAssetNotFound
	}
	tx, err := ledger.DeleteAt(index)
	balance := ledger.Balance()
	u.mu.Unlock()

	if err != nil {
		return model.TransactionReceipt{}, err
	}

	if balance.IsNegative() {
		slog.Warn(
			"balance went negative after transaction deletion",
			slog.String("userID", userID),
			slog.String("coinID", coinID),
			slog.String("balance", balance.String()),
		)
	}

	return model.TransactionReceipt{
		CoinID:         coinID,
		Tx:             tx,
		PersistWarning: !s.savePortfolios(ctx),
	}, nil
}

// Snapshot returns a deep read-only copy of the user's portfolio.
func (s *Store) Snapshot(userID string) map[string]model.LedgerSnapshot {
	s.mu.RLock()
	u, ok := s.users[userID]
	s.mu.RUnlock()
	if !ok {
		return map[string]model.LedgerSnapshot{}
	}

	u.mu.Lock()
	defer u.mu.Unlock()

	snapshot := make(map[string]model.LedgerSnapshot, len(u.portfolio))
	for coinID, ledger := range u.portfolio {
		snapshot[coinID] = ledger.Snapshot()
	}
	return snapshot
}

func (s *Store) Watchlist(userID string) []string {
	s.mu.RLock()
	u, ok := s.users[userID]
	s.mu.RUnlock()
	if !ok {
		return nil
	}

	u.mu.Lock()
	defer u.mu.Unlock()
	return slices.Clone(u.watchlist)
}

// AddToWatchlist appends coinID to the user's watchlist. added is false when
// the coin is already listed.
func (s *Store) AddToWatchlist(ctx context.Context, userID, coinID string) (added, persistWarning bool) {
	u := s.user(userID)

	u.mu.Lock()
	if slices.Contains(u.watchlist, coinID) {
		u.mu.Unlock()
		return false, false
	}
	u.watchlist = append(u.watchlist, coinID)
	u.mu.Unlock()

	return true, !s.saveWatchlists(ctx)
}

func (s *Store) RemoveFromWatchlist(ctx context.Context, userID, coinID string) (removed, persistWarning bool) {
	u := s.user(userID)

	u.mu.Lock()
	i := slices.Index(u.watchlist, coinID)
	if i < 0 {
		u.mu.Unlock()
		return false, false
	}
	u.watchlist = slices.Delete(u.watchlist, i, i+1)
	u.mu.Unlock()

	return true, !s.saveWatchlists(ctx)
}

func (s *Store) savePortfolios(ctx context.Context) bool {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "Store.savePortfolios"

	s.mu.RLock()
	portfolios := make(map[string]map[string]model.LedgerSnapshot, len(s.users))
	for userID, u := range s.users {
		u.mu.Lock()
		if u.portfolio != nil {
			assets := make(map[string]model.LedgerSnapshot, len(u.portfolio))
			for coinID, ledger := range u.portfolio {
				assets[coinID] = ledger.Snapshot()
			}
			portfolios[userID] = assets
		}
		u.mu.Unlock()
	}
	s.mu.RUnlock()

	if err := s.repo.SavePortfolios(ctx, portfolios); err != nil {
		slog.Error("failed to save portfolios", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		return false
	}
	return true
}

func (s *Store) saveWatchlists(ctx context.Context) bool {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "Store.saveWatchlists"

	s.mu.RLock()
	watchlists := make(map[string][]string, len(s.users))
	for userID, u := range s.users {
		u.mu.Lock()
		if len(u.watchlist) > 0 {
			watchlists[userID] = slices.Clone(u.watchlist)
		}
		u.mu.Unlock()
	}
	s.mu.RUnlock()

	if err := s.repo.SaveWatchlists(ctx, watchlists); err != nil {
		slog.Error("failed to save watchlists", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		return false
	}
	return true
}
