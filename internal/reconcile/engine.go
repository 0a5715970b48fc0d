// Package reconcile implements the guest-to-authenticated state machine: on a
// login transition it merges the locally persisted guest cart and favorites
// into server-authoritative state exactly once, then discards the local state
// for everything that merged. It is the only writer that moves data between
// the local stores and the server.
package reconcile

import (
	"context"
	"errors"
	"sync"

	"github.com/charmbracelet/log"

	"shopfront/internal/api"
	"shopfront/internal/logger"
	"shopfront/internal/session"
	"shopfront/internal/store"
	"shopfront/pkg/shoptypes"
)

// State is the engine's position in the auth lifecycle.
type State string

// Engine states. Guest → Authenticating → Reconciling → Authenticated, with
// Reconciling skipped when there is no local state to merge, and a direct
// drop back to Guest on logout or terminal 401.
const (
	StateGuest          State = "guest"
	StateAuthenticating State = "authenticating"
	StateReconciling    State = "reconciling"
	StateAuthenticated  State = "authenticated"
)

// ErrReconcileInProgress is returned when a reconciliation is triggered while
// another one is still running; the second trigger is a no-op.
var ErrReconcileInProgress = errors.New("reconcile: merge already in progress")

// DefaultMaxFavoriteAttempts bounds how many reconciliation runs may fail for
// one favorite before its local marker is dropped.
const DefaultMaxFavoriteAttempts = 3

// StoreService is the slice of the store API the engine needs. *api.StoreAPI
// satisfies it; tests substitute fakes.
type StoreService interface {
	UpsertCartItem(ctx context.Context, req api.UpsertCartItemRequest) error
	GetCart(ctx context.Context) ([]shoptypes.CartLineItem, error)
	ListAllFavorites(ctx context.Context) ([]shoptypes.FavoriteEntry, error)
	CreateFavorite(ctx context.Context, productID string) (*shoptypes.FavoriteEntry, error)
}

// Config holds the engine's collaborators.
type Config struct {
	Session   *session.Session
	Cart      *store.CartStore
	Favorites *store.FavoritesStore
	Store     StoreService
	// MaxFavoriteAttempts overrides DefaultMaxFavoriteAttempts when positive.
	MaxFavoriteAttempts int
}

// Engine drives the reconciliation state machine.
type Engine struct {
	mu                  sync.Mutex
	state               State
	inProgress          bool
	session             *session.Session
	cart                *store.CartStore
	favorites           *store.FavoritesStore
	store               StoreService
	maxFavoriteAttempts int
	logger              *log.Logger
}

// New creates an engine in the Guest state (or Authenticated when a persisted
// session already carries a token).
func New(cfg Config) *Engine {
	maxAttempts := cfg.MaxFavoriteAttempts
	if maxAttempts <= 0 {
		maxAttempts = DefaultMaxFavoriteAttempts
	}
	e := &Engine{
		state:               StateGuest,
		session:             cfg.Session,
		cart:                cfg.Cart,
		favorites:           cfg.Favorites,
		store:               cfg.Store,
		maxFavoriteAttempts: maxAttempts,
		logger:              logger.NewStyledLogger("Reconcile"),
	}
	if cfg.Session != nil && cfg.Session.IsAuthenticated() {
		e.state = StateAuthenticated
	}
	return e
}

// State returns the engine's current state.
func (e *Engine) State() State {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state
}

// OnLogin installs the fresh session and runs the reconciliation pass. When
// both local stores are empty the Reconciling state is skipped and the engine
// refreshes server state before settling in Authenticated.
func (e *Engine) OnLogin(ctx context.Context, token string, user *shoptypes.UserProfile) (*Report, error) {
	e.setState(StateAuthenticating)
	e.session.Set(token, user)

	if e.cart.IsEmpty() && e.favorites.IsEmpty() {
		e.logger.Debug("No local state to merge, refreshing server state", "state", StateAuthenticating)
		report := &Report{}
		if serverCart, err := e.store.GetCart(ctx); err == nil {
			report.ServerCart = serverCart
		} else {
			report.Errors = append(report.Errors, err)
		}
		if serverFavorites, err := e.store.ListAllFavorites(ctx); err == nil {
			report.ServerFavorites = serverFavorites
		} else {
			report.Errors = append(report.Errors, err)
		}
		e.setState(StateAuthenticated)
		return report, nil
	}

	return e.Reconcile(ctx)
}

// Reconcile runs one merge pass. At most one pass runs at a time; a
// concurrent trigger returns ErrReconcileInProgress without issuing any call.
func (e *Engine) Reconcile(ctx context.Context) (*Report, error) {
	e.mu.Lock()
	if e.inProgress {
		e.mu.Unlock()
		e.logger.Debug("Reconciliation already in progress, ignoring trigger")
		return nil, ErrReconcileInProgress
	}
	e.inProgress = true
	e.state = StateReconciling
	e.mu.Unlock()

	e.logger.Info("Reconciliation started", "state", StateReconciling,
		"cart_items", len(e.cart.Items()), "favorites", len(e.favorites.IDs()))

	report := &Report{}
	e.mergeCart(ctx, report)
	e.mergeFavorites(ctx, report)

	e.mu.Lock()
	e.inProgress = false
	e.state = StateAuthenticated
	e.mu.Unlock()

	e.logger.Info("Reconciliation finished", "state", StateAuthenticated,
		"cart_merged", report.CartMerged, "cart_failed", len(report.CartFailures),
		"favorites_created", report.FavoritesCreated, "favorites_failed", len(report.FavoriteFailures))

	return report, nil
}

// Logout clears the session and drops back to Guest. Local stores are not
// repopulated from server state; they stay empty until the user acts as a
// guest again.
func (e *Engine) Logout() {
	e.session.Clear()
	e.cart.Clear()
	e.favorites.Clear()
	e.setState(StateGuest)
}

// HandleUnauthorized is the gateway's 401 teardown hook: the session is gone
// server-side, so the engine falls back to Guest. Guest state is kept so the
// user can log back in and have it merged again.
func (e *Engine) HandleUnauthorized() {
	e.logger.Warn("Session rejected by server, tearing down", "state", StateGuest)
	e.session.Clear()
	e.setState(StateGuest)
}

// mergeCart upserts every local line against the server cart, then adopts the
// authoritative server cart. Upserts for distinct line items run concurrently;
// the refetch happens only after all of them settle. A failed line is retained
// locally so a later reconciliation retries it.
func (e *Engine) mergeCart(ctx context.Context, report *Report) {
	items := e.cart.Items()
	if len(items) == 0 {
		if serverCart, err := e.store.GetCart(ctx); err == nil {
			report.ServerCart = serverCart
		} else {
			report.Errors = append(report.Errors, err)
		}
		return
	}

	var wg sync.WaitGroup
	var mu sync.Mutex
	failed := make(map[shoptypes.LineItemKey]error)

	for _, item := range items {
		wg.Add(1)
		go func(item shoptypes.CartLineItem) {
			defer wg.Done()
			err := e.store.UpsertCartItem(ctx, api.UpsertCartItemRequest{
				ProductID: item.ProductID,
				Binding:   item.Binding,
				Quantity:  item.Quantity,
			})
			if err != nil {
				e.logger.Warn("Cart item failed to merge", "product", item.ProductID, "error", err)
				mu.Lock()
				failed[item.Key()] = err
				mu.Unlock()
			}
		}(item)
	}
	wg.Wait()

	var retained []shoptypes.CartLineItem
	for _, item := range items {
		if err, ok := failed[item.Key()]; ok {
			retained = append(retained, item)
			report.CartFailures = append(report.CartFailures, ItemFailure{
				Key:       item.Key(),
				ProductID: item.ProductID,
				Err:       err,
			})
			continue
		}
		report.CartMerged++
	}

	serverCart, err := e.store.GetCart(ctx)
	if err != nil {
		// Without authoritative state nothing can be safely discarded.
		// Replaying the upserts later is idempotent, so keep everything.
		report.Errors = append(report.Errors, err)
		return
	}
	report.ServerCart = serverCart

	// Server price wins; differences are surfaced for the UI to notice.
	serverByKey := make(map[shoptypes.LineItemKey]shoptypes.CartLineItem, len(serverCart))
	for _, line := range serverCart {
		serverByKey[line.Key()] = line
	}
	for _, item := range items {
		if _, stillFailed := failed[item.Key()]; stillFailed {
			continue
		}
		if line, ok := serverByKey[item.Key()]; ok && item.UnitPrice != "" && line.UnitPrice != item.UnitPrice {
			report.PriceNotices = append(report.PriceNotices, PriceNotice{
				Key:         item.Key(),
				ProductID:   item.ProductID,
				LocalPrice:  item.UnitPrice,
				ServerPrice: line.UnitPrice,
			})
		}
	}

	// Merged lines are now server truth; only failures stay local.
	e.cart.ReplaceAll(retained)
}

// mergeFavorites creates the favorites the server is missing, then adopts the
// refetched server set as ground truth. A product already favorited
// server-side silently supersedes the local marker. A failed create keeps its
// local marker for a bounded number of later attempts, then is dropped.
func (e *Engine) mergeFavorites(ctx context.Context, report *Report) {
	localIDs := e.favorites.IDs()
	if len(localIDs) == 0 {
		if serverFavorites, err := e.store.ListAllFavorites(ctx); err == nil {
			report.ServerFavorites = serverFavorites
		} else {
			report.Errors = append(report.Errors, err)
		}
		return
	}

	serverFavorites, err := e.store.ListAllFavorites(ctx)
	if err != nil {
		// The set difference cannot be computed; retry everything next time.
		report.Errors = append(report.Errors, err)
		return
	}
	onServer := make(map[string]bool, len(serverFavorites))
	for _, fav := range serverFavorites {
		onServer[fav.ProductID] = true
	}

	var retained []string
	for _, productID := range localIDs {
		if onServer[productID] {
			report.FavoritesAlreadyOnServer++
			continue
		}
		if _, err := e.store.CreateFavorite(ctx, productID); err != nil {
			attempts := e.favorites.RecordMergeFailure(productID)
			dropped := attempts >= e.maxFavoriteAttempts
			if dropped {
				e.logger.Warn("Favorite dropped after repeated merge failures",
					"product", productID, "attempts", attempts)
			} else {
				retained = append(retained, productID)
			}
			report.FavoriteFailures = append(report.FavoriteFailures, FavoriteFailure{
				ProductID: productID,
				Attempts:  attempts,
				Dropped:   dropped,
				Err:       err,
			})
			continue
		}
		report.FavoritesCreated++
	}

	if refreshed, err := e.store.ListAllFavorites(ctx); err == nil {
		report.ServerFavorites = refreshed
	} else {
		report.Errors = append(report.Errors, err)
		report.ServerFavorites = serverFavorites
	}

	e.favorites.ReplaceAll(retained)
}

// setState updates the state under lock and logs the transition.
func (e *Engine) setState(next State) {
	e.mu.Lock()
	prev := e.state
	e.state = next
	e.mu.Unlock()
	if prev != next {
		e.logger.Debug("State transition", "from", prev, "state", next)
	}
}
