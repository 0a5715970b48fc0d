// Package main provides the Shopfront CLI application entry point.
// Shopfront is the data-access client for the storefront platform: typed API
// namespaces, cached queries, durable guest state and login reconciliation.
package main

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"shopfront/internal/api"
	"shopfront/internal/config"
	"shopfront/internal/gateway"
	"shopfront/internal/logger"
	"shopfront/internal/query"
	"shopfront/internal/reconcile"
	"shopfront/internal/session"
	"shopfront/internal/store"
	"shopfront/internal/version"
	"shopfront/pkg/shoptypes"
)

var (
	logLevel string
	logFile  string
	testMode bool
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "shopfront",
	Short: "Shopfront - storefront data-access client",
	Long: `Shopfront is the data-access client for the storefront platform.
It keeps a durable guest cart and favorites, talks to the store and platform
APIs, and merges guest state into the account on login.`,
	RunE: runStatus, // Default behavior is to show session and store status
}

// versionCmd represents the version command
var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Show version information",
	Long:  `Display the version of the Shopfront client.`,
	Run: func(_ *cobra.Command, _ []string) {
		fmt.Println(version.GetFormattedVersion())
	},
}

var loginCmd = &cobra.Command{
	Use:   "login <email>",
	Short: "Log in and merge guest state into the account",
	Args:  cobra.ExactArgs(1),
	RunE:  runLogin,
}

var logoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "Log out and return to guest mode",
	RunE:  runLogout,
}

var cartCmd = &cobra.Command{
	Use:   "cart",
	Short: "Inspect and modify the cart",
}

var cartListCmd = &cobra.Command{
	Use:   "list",
	Short: "Show the current cart",
	RunE:  runCartList,
}

var cartAddCmd = &cobra.Command{
	Use:   "add <product-id> <quantity>",
	Short: "Add a product variant to the cart",
	Args:  cobra.ExactArgs(2),
	RunE:  runCartAdd,
}

var cartRemoveCmd = &cobra.Command{
	Use:   "remove <product-id>",
	Short: "Remove a product variant from the cart",
	Args:  cobra.ExactArgs(1),
	RunE:  runCartRemove,
}

var favCmd = &cobra.Command{
	Use:   "fav",
	Short: "Inspect and modify favorites",
}

var favListCmd = &cobra.Command{
	Use:   "list",
	Short: "Show favorites",
	RunE:  runFavList,
}

var favAddCmd = &cobra.Command{
	Use:   "add <product-id>",
	Short: "Mark a product as favorite",
	Args:  cobra.ExactArgs(1),
	RunE:  runFavAdd,
}

var favRemoveCmd = &cobra.Command{
	Use:   "remove <product-id>",
	Short: "Unmark a favorite",
	Args:  cobra.ExactArgs(1),
	RunE:  runFavRemove,
}

var catalogCmd = &cobra.Command{
	Use:   "catalog",
	Short: "Browse the product catalog",
}

var catalogListCmd = &cobra.Command{
	Use:   "list",
	Short: "List products",
	RunE:  runCatalogList,
}

var catalogShowCmd = &cobra.Command{
	Use:   "show <product-id>",
	Short: "Show one product",
	Args:  cobra.ExactArgs(1),
	RunE:  runCatalogShow,
}

var reconcileCmd = &cobra.Command{
	Use:   "reconcile",
	Short: "Re-run the guest state merge for the current session",
	RunE:  runReconcile,
}

var healthCmd = &cobra.Command{
	Use:   "health",
	Short: "Probe the platform API and check client compatibility",
	RunE:  runHealth,
}

// per-command flags
var (
	cartAddOptions []string
	catalogSearch  string
	catalogPage    int
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	// Add global flags
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Set log level (debug|info|warn|error) [default: info]")
	rootCmd.PersistentFlags().StringVar(&logFile, "log-file", "", "Write logs to file instead of stderr")
	rootCmd.PersistentFlags().BoolVar(&testMode, "test-mode", false, "Run in deterministic test mode")

	// Bind flags to viper
	if err := viper.BindPFlag("log-level", rootCmd.PersistentFlags().Lookup("log-level")); err != nil {
		fmt.Fprintf(os.Stderr, "Error binding log-level flag: %v\n", err)
		os.Exit(1)
	}
	if err := viper.BindPFlag("log-file", rootCmd.PersistentFlags().Lookup("log-file")); err != nil {
		fmt.Fprintf(os.Stderr, "Error binding log-file flag: %v\n", err)
		os.Exit(1)
	}
	if err := viper.BindPFlag("test-mode", rootCmd.PersistentFlags().Lookup("test-mode")); err != nil {
		fmt.Fprintf(os.Stderr, "Error binding test-mode flag: %v\n", err)
		os.Exit(1)
	}

	cartAddCmd.Flags().StringArrayVar(&cartAddOptions, "option", nil, "Variant option as group=value (repeatable)")
	catalogListCmd.Flags().StringVar(&catalogSearch, "search", "", "Search term")
	catalogListCmd.Flags().IntVar(&catalogPage, "page", 1, "Page number")

	// Add subcommands
	cartCmd.AddCommand(cartListCmd, cartAddCmd, cartRemoveCmd)
	favCmd.AddCommand(favListCmd, favAddCmd, favRemoveCmd)
	catalogCmd.AddCommand(catalogListCmd, catalogShowCmd)
	rootCmd.AddCommand(loginCmd, logoutCmd, cartCmd, favCmd, catalogCmd, reconcileCmd, healthCmd, versionCmd)

	// Configure logger before any command execution
	cobra.OnInitialize(initConfig)
}

func initConfig() {
	// Configure logger with CLI flags
	if err := logger.Configure(logLevel, logFile, testMode); err != nil {
		fmt.Fprintf(os.Stderr, "Error configuring logger: %v\n", err)
		os.Exit(1)
	}
}

// app wires the full client runtime for one CLI invocation.
type app struct {
	cfg       *config.Config
	session   *session.Session
	cart      *store.CartStore
	favorites *store.FavoritesStore
	storeAPI  *api.StoreAPI
	platform  *api.PlatformAPI
	queries   *query.Orchestrator
	engine    *reconcile.Engine
}

func newApp() (*app, error) {
	cfg, err := config.Load(viper.GetViper())
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	sess := session.New(cfg.StateDir)
	storeAPI := api.NewStoreAPI(gateway.NewClient(gateway.Config{
		BaseURL: cfg.StoreBaseURL,
		Timeout: cfg.RequestTimeout,
		Tokens:  sess,
	}))
	platform := api.NewPlatformAPI(gateway.NewClient(gateway.Config{
		BaseURL: cfg.PlatformBaseURL,
		Timeout: cfg.RequestTimeout,
		Tokens:  sess,
	}))

	a := &app{
		cfg:       cfg,
		session:   sess,
		cart:      store.NewCartStore(cfg.StateDir),
		favorites: store.NewFavoritesStore(cfg.StateDir),
		storeAPI:  storeAPI,
		platform:  platform,
		queries:   query.New(query.Config{TTL: cfg.CacheTTL}),
	}
	a.engine = reconcile.New(reconcile.Config{
		Session:   sess,
		Cart:      a.cart,
		Favorites: a.favorites,
		Store:     storeAPI,
	})
	// A terminal 401 on either surface tears the session down.
	storeAPI.Gateway().SetUnauthorizedCallback(a.engine.HandleUnauthorized)
	platform.Gateway().SetUnauthorizedCallback(a.engine.HandleUnauthorized)
	return a, nil
}

func runStatus(_ *cobra.Command, _ []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}

	fmt.Println(version.GetFormattedVersion())
	if user := a.session.User(); user != nil {
		fmt.Printf("Logged in as %s (%s)\n", user.Email, a.engine.State())
	} else {
		fmt.Printf("Guest mode (%s)\n", a.engine.State())
	}
	fmt.Printf("Cart: %d line(s), Favorites: %d\n", len(a.cart.Items()), len(a.favorites.IDs()))
	return nil
}

func runLogin(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}

	fmt.Print("Password: ")
	var password string
	if _, err := fmt.Fscanln(cmd.InOrStdin(), &password); err != nil {
		return fmt.Errorf("failed to read password: %w", err)
	}

	ctx := context.Background()
	auth, err := a.storeAPI.Login(ctx, api.LoginRequest{Email: args[0], Password: password})
	if err != nil {
		return fmt.Errorf("login failed: %w", err)
	}

	report, err := a.engine.OnLogin(ctx, auth.Token, &auth.User)
	if err != nil {
		return fmt.Errorf("login succeeded but reconciliation failed: %w", err)
	}

	fmt.Printf("Logged in as %s\n", auth.User.Email)
	printReport(report)
	return nil
}

func runLogout(_ *cobra.Command, _ []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}

	if a.session.IsAuthenticated() {
		// Best effort: the local teardown happens regardless.
		if err := a.storeAPI.Logout(context.Background()); err != nil {
			logger.Warn("Server-side logout failed", "error", err)
		}
	}
	a.engine.Logout()
	fmt.Println("Logged out, back to guest mode")
	return nil
}

func runCartList(_ *cobra.Command, _ []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}

	if a.session.IsAuthenticated() {
		items, err := a.storeAPI.GetCart(context.Background())
		if err != nil {
			return fmt.Errorf("failed to fetch server cart: %w", err)
		}
		printCart("Server cart", items)
		return nil
	}
	printCart("Guest cart", a.cart.Items())
	return nil
}

func runCartAdd(_ *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}

	quantity, err := strconv.Atoi(args[1])
	if err != nil || quantity <= 0 {
		return fmt.Errorf("quantity must be a positive integer, got %q", args[1])
	}
	binding, err := parseBinding(cartAddOptions)
	if err != nil {
		return err
	}

	if a.session.IsAuthenticated() {
		err := a.storeAPI.UpsertCartItem(context.Background(), api.UpsertCartItemRequest{
			ProductID: args[0],
			Binding:   binding,
			Quantity:  quantity,
		})
		if err != nil {
			return fmt.Errorf("failed to update server cart: %w", err)
		}
		fmt.Printf("Set %s x%d in server cart\n", args[0], quantity)
		return nil
	}

	a.cart.AddOrIncrement(shoptypes.CartLineItem{
		ProductID: args[0],
		Binding:   binding,
		Quantity:  quantity,
	})
	fmt.Printf("Added %s x%d to guest cart\n", args[0], quantity)
	return nil
}

func runCartRemove(_ *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}

	binding, err := parseBinding(cartAddOptions)
	if err != nil {
		return err
	}
	key := shoptypes.NewLineItemKey(args[0], binding)

	if a.session.IsAuthenticated() {
		item, found := findServerLine(a, key)
		if !found {
			return fmt.Errorf("no matching line in server cart for %s", args[0])
		}
		if err := a.storeAPI.RemoveCartItem(context.Background(), item.ServerID); err != nil {
			return fmt.Errorf("failed to remove server cart line: %w", err)
		}
		fmt.Printf("Removed %s from server cart\n", args[0])
		return nil
	}

	a.cart.Remove(key)
	fmt.Printf("Removed %s from guest cart\n", args[0])
	return nil
}

func runFavList(_ *cobra.Command, _ []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}

	if a.session.IsAuthenticated() {
		favorites, err := a.storeAPI.ListAllFavorites(context.Background())
		if err != nil {
			return fmt.Errorf("failed to fetch favorites: %w", err)
		}
		for _, fav := range favorites {
			fmt.Println(fav.ProductID)
		}
		return nil
	}
	for _, id := range a.favorites.IDs() {
		fmt.Println(id)
	}
	return nil
}

func runFavAdd(_ *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}

	if a.session.IsAuthenticated() {
		if _, err := a.storeAPI.CreateFavorite(context.Background(), args[0]); err != nil {
			return fmt.Errorf("failed to create favorite: %w", err)
		}
	} else {
		a.favorites.Add(args[0])
	}
	fmt.Printf("Favorited %s\n", args[0])
	return nil
}

func runFavRemove(_ *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}

	if a.session.IsAuthenticated() {
		favorites, err := a.storeAPI.ListAllFavorites(context.Background())
		if err != nil {
			return fmt.Errorf("failed to fetch favorites: %w", err)
		}
		for _, fav := range favorites {
			if fav.ProductID == args[0] {
				if err := a.storeAPI.DeleteFavorite(context.Background(), fav.ID); err != nil {
					return fmt.Errorf("failed to delete favorite: %w", err)
				}
				fmt.Printf("Unfavorited %s\n", args[0])
				return nil
			}
		}
		return fmt.Errorf("%s is not favorited", args[0])
	}

	a.favorites.Remove(args[0])
	fmt.Printf("Unfavorited %s\n", args[0])
	return nil
}

func runCatalogList(_ *cobra.Command, _ []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}

	filter := api.ProductFilter{Search: catalogSearch, Page: catalogPage}
	page, err := query.FetchAs(context.Background(), a.queries, "catalog.products", filter,
		func(ctx context.Context) (*shoptypes.Page[shoptypes.Product], error) {
			return a.storeAPI.ListProducts(ctx, filter)
		}, query.Options{})
	if err != nil {
		return fmt.Errorf("failed to list products: %w", err)
	}

	for _, product := range page.List {
		stock := "in stock"
		if !product.InStock {
			stock = "out of stock"
		}
		fmt.Printf("%s  %s  %s %s  (%s)\n", product.ID, product.Name, product.Price, product.Currency, stock)
	}
	fmt.Printf("Page %d/%d, %d total\n", page.Meta.CurrentPage, page.Meta.LastPage, page.Meta.Total)
	return nil
}

func runCatalogShow(_ *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}

	product, err := query.FetchAs(context.Background(), a.queries, "catalog.product", args[0],
		func(ctx context.Context) (*shoptypes.Product, error) {
			return a.storeAPI.GetProduct(ctx, args[0])
		}, query.Options{})
	if err != nil {
		return fmt.Errorf("failed to fetch product: %w", err)
	}

	fmt.Printf("%s\n%s %s\n", product.Name, product.Price, product.Currency)
	if product.Description != "" {
		fmt.Println(product.Description)
	}
	for _, group := range product.OptionGroups {
		names := make([]string, len(group.Values))
		for i, v := range group.Values {
			names[i] = v.Name
		}
		fmt.Printf("%s: %s\n", group.Name, strings.Join(names, ", "))
	}
	return nil
}

func runReconcile(_ *cobra.Command, _ []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}

	if !a.session.IsAuthenticated() {
		return fmt.Errorf("not logged in, nothing to reconcile")
	}

	report, err := a.engine.Reconcile(context.Background())
	if err != nil {
		return fmt.Errorf("reconciliation failed: %w", err)
	}
	printReport(report)
	return nil
}

func runHealth(_ *cobra.Command, _ []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}

	health, err := a.platform.Health(context.Background())
	if err != nil {
		return fmt.Errorf("platform health probe failed: %w", err)
	}

	fmt.Printf("Platform status: %s\n", health.Status)
	if err := version.CheckServerCompatibility(health.MinClientVersion); err != nil {
		return err
	}
	fmt.Println("Client version is compatible")
	return nil
}

// parseBinding turns repeated group=value flags into a variant binding.
func parseBinding(options []string) (shoptypes.Binding, error) {
	if len(options) == 0 {
		return nil, nil
	}
	binding := make(shoptypes.Binding, len(options))
	for _, opt := range options {
		group, value, ok := strings.Cut(opt, "=")
		if !ok || group == "" || value == "" {
			return nil, fmt.Errorf("option must be group=value, got %q", opt)
		}
		binding[group] = value
	}
	return binding, nil
}

func findServerLine(a *app, key shoptypes.LineItemKey) (shoptypes.CartLineItem, bool) {
	items, err := a.storeAPI.GetCart(context.Background())
	if err != nil {
		return shoptypes.CartLineItem{}, false
	}
	for _, item := range items {
		if item.Key() == key {
			return item, true
		}
	}
	return shoptypes.CartLineItem{}, false
}

func printCart(title string, items []shoptypes.CartLineItem) {
	fmt.Println(title + ":")
	if len(items) == 0 {
		fmt.Println("  (empty)")
		return
	}
	for _, item := range items {
		variant := ""
		if len(item.Binding) > 0 {
			variant = " [" + item.Binding.Canonical() + "]"
		}
		fmt.Printf("  %s%s x%d", item.ProductID, variant, item.Quantity)
		if item.UnitPrice != "" {
			fmt.Printf("  %s %s", item.UnitPrice, item.Currency)
		}
		fmt.Println()
	}
}

func printReport(report *reconcile.Report) {
	if report == nil {
		return
	}
	if report.CartMerged > 0 || len(report.CartFailures) > 0 {
		fmt.Printf("Cart: %d merged, %d failed\n", report.CartMerged, len(report.CartFailures))
	}
	for _, failure := range report.CartFailures {
		fmt.Printf("  could not merge %s: %v\n", failure.ProductID, failure.Err)
	}
	for _, notice := range report.PriceNotices {
		fmt.Printf("  price changed for %s: %s -> %s\n", notice.ProductID, notice.LocalPrice, notice.ServerPrice)
	}
	if report.FavoritesCreated > 0 || report.FavoritesAlreadyOnServer > 0 || len(report.FavoriteFailures) > 0 {
		fmt.Printf("Favorites: %d created, %d already on server, %d failed\n",
			report.FavoritesCreated, report.FavoritesAlreadyOnServer, len(report.FavoriteFailures))
	}
	for _, failure := range report.FavoriteFailures {
		state := "will retry"
		if failure.Dropped {
			state = "dropped"
		}
		fmt.Printf("  could not favorite %s (%s): %v\n", failure.ProductID, state, failure.Err)
	}
	for _, err := range report.Errors {
		fmt.Printf("  warning: %v\n", err)
	}
}
