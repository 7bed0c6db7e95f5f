package service

import "errors"

var (
	ErrNotFound           = errors.New("error not found")
	ErrEmptyPortfolio     = errors.New("portfolio is empty")
	ErrNoTransactions     = errors.New("no transactions")
	ErrAlreadyInWatchlist = errors.New("already in watchlist")
	ErrNotInWatchlist     = errors.New("not in watchlist")
	ErrEmptyWatchlist     = errors.New("watchlist is empty")
)
