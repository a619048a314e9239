package main

import (
	"bytes"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/dustin/go-humanize"

	"netwatch.dev/netwatch/internal/api"
	"netwatch.dev/netwatch/internal/capture"
	"netwatch.dev/netwatch/internal/classify"
	"netwatch.dev/netwatch/internal/config"
	"netwatch.dev/netwatch/internal/dnscache"
	"netwatch.dev/netwatch/internal/flowtable"
	"netwatch.dev/netwatch/internal/identity"
	"netwatch.dev/netwatch/internal/ingest"
	"netwatch.dev/netwatch/internal/logging"
	"netwatch.dev/netwatch/internal/metrics"
	"netwatch.dev/netwatch/internal/netiface"
	"netwatch.dev/netwatch/internal/oui"
	"netwatch.dev/netwatch/internal/scan"
	"netwatch.dev/netwatch/internal/store"
)

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	switch os.Args[1] {
	case "run":
		runDaemon(os.Args[2:])
	case "scan":
		runScan(os.Args[2:])
	case "list-interfaces":
		runListInterfaces(os.Args[2:])
	case "show":
		runShow(os.Args[2:])
	default:
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Fprintln(os.Stderr, "usage: netwatch <run|scan|list-interfaces|show> [flags]")
}

func runDaemon(args []string) {
	fs := flag.NewFlagSet("run", flag.ExitOnError)
	configFile := fs.String("config", "", "Configuration file (HCL)")
	verbose := fs.Bool("verbose", false, "Debug-level logging")
	iface := fs.String("interface", "", "Comma-separated interface names/indices to monitor (overrides MONITOR_INTERFACES)")
	fs.StringVar(iface, "i", *iface, "Shorthand for -interface")
	port := fs.Int("port", 0, "Web API port (overrides WEB_PORT); 0 leaves the config value in place")
	fs.IntVar(port, "p", *port, "Shorthand for -port")
	fs.Parse(args)

	cfg, err := config.Load(config.PathFromEnv(*configFile))
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}
	if *iface != "" {
		cfg.Interfaces = strings.Split(*iface, ",")
	}
	if *port != 0 {
		cfg.WebPort = *port
	}

	logCfg := logging.DefaultConfig()
	if *verbose {
		logCfg.Level = logging.LevelDebug
	}
	logger := logging.New(logCfg)
	logging.SetDefault(logger)

	engine, err := store.Open(cfg.DatabasePath, logger)
	if err != nil {
		logger.Error("failed to open storage engine", "error", err)
		os.Exit(1)
	}
	defer engine.Close()

	interfaces := cfg.Interfaces
	if len(interfaces) == 0 {
		interfaces = autoDetectInterfaces(logger)
	}

	resolver := identity.New(engine, time.Duration(cfg.ActiveThresholdSeconds)*time.Second)
	flows := flowtable.New(100_000)
	dnsCache := dnscache.New(10_000, 5*time.Minute)
	ouiDB := oui.NewDB()
	if cfg.OUISnapshotPath != "" {
		if entries, err := oui.LoadFile(cfg.OUISnapshotPath); err != nil {
			logger.Warn("oui snapshot not loaded", "path", cfg.OUISnapshotPath, "error", err)
		} else {
			ouiDB.Load(entries)
			logger.Info("loaded oui snapshot", "path", cfg.OUISnapshotPath, "entries", len(entries))
		}
	}
	classifier := classify.New(ouiDB)

	capMgr, err := capture.NewManager(interfaces, cfg.ChannelBufferSize)
	if err != nil {
		logger.Error("failed to open capture sources", "error", err)
		os.Exit(1)
	}

	ing := ingest.New(capMgr, resolver, flows, dnsCache, classifier, engine, logger.WithComponent("ingest"))

	scanRecorder := store.NewScanRecorder(engine, resolver)
	scanEngine := scan.New(scanRecorder, logger.WithComponent("scan"), func() []string {
		infos, err := netiface.List()
		if err != nil {
			return nil
		}
		names := make([]string, 0, len(infos))
		for _, in := range infos {
			names = append(names, in.Name)
		}
		return names
	})

	server := api.New(engine, scanEngine, capMgr, dnsCache, classifier, ing, logger.WithComponent("api"))

	collector := metrics.NewCollector(logger.WithComponent("metrics"), 10*time.Second)
	go collector.Start()
	defer collector.Stop()

	ctx, cancel := context.WithCancel(context.Background())

	ingDone := make(chan struct{})
	go func() {
		ing.Run(ctx)
		close(ingDone)
	}()
	go dnsSweepLoop(ctx, dnsCache)
	go cleanupLoop(ctx, engine, resolver, logger, cfg)
	if cfg.AutoScanIntervalMinutes > 0 {
		go autoScanLoop(ctx, scanEngine, time.Duration(cfg.AutoScanIntervalMinutes)*time.Minute)
	}

	go func() {
		logger.Info("listening", "port", cfg.WebPort)
		if err := server.ListenAndServe(cfg.WebPort); err != nil && err != http.ErrServerClosed {
			logger.Error("api server stopped", "error", err)
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh
	logger.Info("shutdown signal received")

	// Stop capture first so no new frames enter the pipeline, then let the
	// dissector workers drain what's already in flight before flushing.
	cancel()
	<-ingDone
	ing.Drain(context.Background())
	logger.Info("shutdown complete")
}

func autoDetectInterfaces(logger *logging.Logger) []string {
	infos, err := netiface.List()
	if err != nil {
		logger.Warn("interface auto-detect failed", "error", err)
		return nil
	}
	names := make([]string, 0, len(infos))
	for _, in := range infos {
		if in.Up {
			names = append(names, in.Name)
		}
	}
	return names
}

func dnsSweepLoop(ctx context.Context, cache *dnscache.Cache) {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			cache.Sweep()
		}
	}
}

func cleanupLoop(ctx context.Context, engine *store.Engine, resolver *identity.Resolver, logger *logging.Logger, cfg config.Config) {
	interval := time.Duration(cfg.CleanupIntervalSeconds) * time.Second
	if interval <= 0 {
		interval = time.Hour
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := engine.Cleanup(ctx, cfg.DataRetentionDays, resolver); err != nil {
				logger.Warn("cleanup failed", "error", err)
			}
		}
	}
}

func autoScanLoop(ctx context.Context, scanner *scan.Engine, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			scanner.Start(ctx, nil)
		}
	}
}

// --- lightweight HTTP client subcommands, talking to a running `run` daemon ---

func runScan(args []string) {
	fs := flag.NewFlagSet("scan", flag.ExitOnError)
	port := fs.Int("port", 8080, "Daemon API port")
	wait := fs.Bool("wait", true, "Wait for the scan to finish before exiting")
	fs.Parse(args)

	base := "http://127.0.0.1:" + strconv.Itoa(*port)
	resp, err := http.Post(base+"/api/scan/start", "application/json", bytes.NewReader(nil))
	if err != nil {
		fmt.Fprintf(os.Stderr, "scan: %v\n", err)
		os.Exit(1)
	}
	resp.Body.Close()
	if resp.StatusCode >= 300 {
		fmt.Fprintf(os.Stderr, "scan: daemon returned %s\n", resp.Status)
		os.Exit(1)
	}

	if !*wait {
		fmt.Println("scan started")
		return
	}

	for {
		time.Sleep(500 * time.Millisecond)
		var status scan.Snapshot
		if err := getJSON(base+"/api/scan/status", &status); err != nil {
			fmt.Fprintf(os.Stderr, "scan: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("\r%-12s %3d%%  discovered=%d", status.CurrentPhase, status.ProgressPercent, status.DiscoveredCount)
		if !status.Running {
			fmt.Println()
			return
		}
	}
}

func runListInterfaces(args []string) {
	fs := flag.NewFlagSet("list-interfaces", flag.ExitOnError)
	fs.Parse(args)

	infos, err := netiface.List()
	if err != nil {
		fmt.Fprintf(os.Stderr, "list-interfaces: %v\n", err)
		os.Exit(1)
	}
	for _, in := range infos {
		fmt.Printf("%-12s up=%-5v speed=%-10s addrs=%v\n", in.Name, in.Up, speedString(in.LinkInfo.SpeedMbps), in.Addrs)
	}
}

func speedString(mbps uint32) string {
	if mbps == 0 {
		return "unknown"
	}
	return strconv.FormatUint(uint64(mbps), 10) + "Mbps"
}

func runShow(args []string) {
	fs := flag.NewFlagSet("show", flag.ExitOnError)
	port := fs.Int("port", 8080, "Daemon API port")
	fs.Parse(args)

	base := "http://127.0.0.1:" + strconv.Itoa(*port)
	var rows []store.EndpointRow
	if err := getJSON(base+"/api/endpoints/table", &rows); err != nil {
		fmt.Fprintf(os.Stderr, "show: %v\n", err)
		os.Exit(1)
	}

	for _, r := range rows {
		name := r.Name
		if r.CustomName != "" {
			name = r.CustomName
		}
		online := "offline"
		if r.Online {
			online = "online"
		}
		fmt.Printf("%-24s %-10s %-8s last seen %s\n", name, r.DeviceType, online, humanize.Time(r.LastSeenAt))
	}
}

func getJSON(url string, dest any) error {
	resp, err := http.Get(url)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}
	return json.Unmarshal(body, dest)
}
