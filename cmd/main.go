package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"raffle/internal/automation"
	"raffle/internal/clock"
	"raffle/internal/config"
	"raffle/internal/handlers"
	"raffle/internal/oracle"
	"raffle/internal/payout"
	"raffle/internal/services"
	"raffle/internal/storage"

	"github.com/gin-gonic/gin"
	"github.com/google/logger"
	"golang.org/x/sync/errgroup"
	"gopkg.in/urfave/cli.v1"
)

func main() {
	app := cli.NewApp()
	app.Name = "raffle"
	app.Usage = "automated raffle with upkeep-driven rounds and oracle randomness"
	app.Commands = []cli.Command{
		{
			Name:   "serve",
			Usage:  "run the raffle API, keeper and (on development networks) the mock oracle",
			Action: serve,
			Flags: []cli.Flag{
				cli.StringFlag{Name: "network", Usage: "network from the network table (overrides RAFFLE_NETWORK)"},
			},
		},
		{
			Name:   "networks",
			Usage:  "list the configured networks",
			Action: listNetworks,
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatalf("raffle: %v", err)
	}
}

func listNetworks(c *cli.Context) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	networks, err := config.LoadNetworks(cfg.NetworksFile)
	if err != nil {
		return err
	}

	for _, name := range networks.Names() {
		nw, _ := networks.Lookup(name)
		kind := "live"
		if networks.IsDevelopment(name) {
			kind = "development"
		}
		fee := nw.EntranceFee
		if fee == "" {
			fee = "-"
		}
		fmt.Printf("%-12s chainId=%-6d interval=%-4d fee=%s (%s)\n", name, nw.ChainID, nw.Interval, fee, kind)
	}
	return nil
}

func serve(c *cli.Context) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if n := c.String("network"); n != "" {
		cfg.Network = n
	}

	defer logger.Init("raffle", cfg.Verbose, false, io.Discard).Close()

	networks, err := config.LoadNetworks(cfg.NetworksFile)
	if err != nil {
		return err
	}
	network, err := networks.Lookup(cfg.Network)
	if err != nil {
		return err
	}
	fee, err := network.Fee()
	if err != nil {
		return err
	}

	db, err := storage.Open(cfg.DBPath)
	if err != nil {
		return err
	}
	defer db.Close()

	history, err := storage.NewWinnerStore(db, cfg.CacheSize)
	if err != nil {
		return err
	}

	// Development networks answer randomness in-process; live networks
	// forward to a remote coordinator which calls /oracle/fulfill.
	var (
		coordinator oracle.RandomWordsRequester
		mock        *oracle.MockCoordinator
	)
	if networks.IsDevelopment(network.Name) {
		logger.Infof("local network %s detected, using mock coordinator", network.Name)
		mock = oracle.NewMockCoordinator()
		coordinator = mock
	} else {
		if cfg.OracleURL == "" || cfg.OracleToken == "" {
			return fmt.Errorf("network %s needs RAFFLE_ORACLE_URL and RAFFLE_ORACLE_TOKEN", network.Name)
		}
		coordinator = oracle.NewHTTPCoordinator(cfg.OracleURL, cfg.CallbackURL)
	}

	firstRound, err := history.NextRound()
	if err != nil {
		return fmt.Errorf("read winner history: %w", err)
	}
	if firstRound > 1 {
		logger.Infof("resuming after stored round %d", firstRound-1)
	}

	clk := &clock.System{}
	raffle, err := services.NewRaffleService(services.Settings{
		EntranceFee: fee,
		Interval:    network.Interval,
		Request:     network.RequestParams(),
		FirstRound:  firstRound,
	}, coordinator, payout.NewBank(), clk, services.LogObserver{}, history)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	sched := automation.NewScheduler()
	keeper := automation.NewKeeper(raffle, clk, cfg.StuckAfter)
	if err := sched.AddJob(ctx, cfg.KeeperSpec(network.Interval), func(ctx context.Context) { keeper.Tick(ctx) }); err != nil {
		return fmt.Errorf("schedule keeper: %w", err)
	}
	if mock != nil {
		fulfiller := automation.NewFulfiller(mock, raffle)
		if err := sched.AddJob(ctx, cfg.FulfillSchedule, func(ctx context.Context) { fulfiller.Tick(ctx) }); err != nil {
			return fmt.Errorf("schedule fulfiller: %w", err)
		}
	}

	if !cfg.Verbose {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()
	r.Use(gin.Recovery())
	api := handlers.NewHTTPHandler(raffle, history, clk)
	if mock == nil {
		if err := api.EnableOracleCallback(cfg.OracleToken); err != nil {
			return err
		}
	}
	api.RegisterRoutes(r)
	srv := &http.Server{Addr: cfg.Addr, Handler: r}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return sched.Run(gctx)
	})
	g.Go(func() error {
		logger.Infof("raffle on %s (chain %d) listening on %s", network.Name, network.ChainID, cfg.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	return g.Wait()
}
