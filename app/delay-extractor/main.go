package main

import (
	"fmt"
	logger "log"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/suburail/delaycast/app/delay-extractor/extractor"
	"github.com/suburail/delaycast/business/data/realtime"
	"github.com/suburail/delaycast/foundation/database"
	"github.com/suburail/delaycast/foundation/httpclient"
	"github.com/suburail/delaycast/foundation/secrets"

	"github.com/ardanlabs/conf"
	"github.com/nats-io/nats.go"
)

var build = "develop"

// secret keys the vendor api credentials are looked up under
const (
	apiUserKey     = "API_USER"
	apiPasswordKey = "API_PASSWORD"
)

func main() {
	log := logger.New(os.Stdout, "DELAY_EXTRACTOR : ", logger.LstdFlags|logger.Lmicroseconds|logger.Lshortfile)
	if err := run(log); err != nil {
		log.Printf("main: error: %v", err)
		os.Exit(1)
	}
}

func run(log *logger.Logger) error {
	var cfg struct {
		conf.Version
		Args conf.Args
		DB   struct {
			User       string `conf:"default:postgres"`
			Password   string `conf:"default:postgres,noprint"`
			Host       string `conf:"default:0.0.0.0"`
			Name       string `conf:"default:postgres"`
			DisableTLS bool   `conf:"default:true"`
		}
		API struct {
			BaseURL         string `conf:"default:http://api.transilien.com"`
			RetryTimeoutSec int    `conf:"default:20"`
		}
		NATS struct {
			URL     string `conf:"default:nats://127.0.0.1:4222"`
			Publish bool   `conf:"default:false"`
		}
		Extract struct {
			StationFile    string `conf:"default:stations.csv"`
			CallsPerMinute int    `conf:"default:300"`
			Workers        int    `conf:"default:10"`
			CycleSec       int    `conf:"default:1200"`
			BudgetSec      int    `conf:"default:3500"`
		}
		Secrets struct {
			File string `conf:"default:secrets.json"`
		}
	}
	cfg.Version.SVN = build
	cfg.Version.Desc = "Poll the departure feed and record passages"
	if err := conf.Parse(os.Args[1:], "DELAY_EXTRACTOR", &cfg); err != nil {
		switch err {
		case conf.ErrHelpWanted:
			usage, err := conf.Usage("DELAY_EXTRACTOR", &cfg)
			if err != nil {
				return fmt.Errorf("generating config usage: %w", err)
			}
			fmt.Println(usage)
			return nil
		case conf.ErrVersionWanted:
			version, err := conf.VersionString("DELAY_EXTRACTOR", &cfg)
			if err != nil {
				return fmt.Errorf("generating config version: %w", err)
			}
			fmt.Println(version)
			return nil
		}
		return fmt.Errorf("parsing config: %w", err)
	}

	log.Printf("main : Started : Application initializing : version %s", build)
	defer log.Println("main: Completed")

	out, err := conf.String(&cfg)
	if err != nil {
		return fmt.Errorf("generating config for output: %w", err)
	}
	log.Printf("main: Config :\n%v\n", out)

	if cfg.Args.Num(0) != "extract" {
		fmt.Println("extract [cycle_sec]: poll stations in repeated cycles until the budget is spent")
		usage, err := conf.Usage("DELAY_EXTRACTOR", &cfg)
		if err != nil {
			return fmt.Errorf("generating config usage: %w", err)
		}
		fmt.Println(usage)
		return nil
	}
	cycleSec := cfg.Extract.CycleSec
	if cycleArg := cfg.Args.Num(1); len(cycleArg) > 0 {
		cycleSec, err = strconv.Atoi(cycleArg)
		if err != nil {
			return fmt.Errorf("unable to parse cycle seconds %q: %w", cycleArg, err)
		}
	}

	secretStore, err := secrets.Load(log, cfg.Secrets.File, []string{apiUserKey, apiPasswordKey})
	if err != nil {
		return fmt.Errorf("loading secrets: %w", err)
	}
	apiUser := secretStore.Get(apiUserKey)
	apiPassword := secretStore.Get(apiPasswordKey)
	if apiUser == "" || apiPassword == "" {
		return fmt.Errorf("vendor api credentials %s and %s are required", apiUserKey, apiPasswordKey)
	}

	stations, err := extractor.LoadStationIds(cfg.Extract.StationFile)
	if err != nil {
		return err
	}
	log.Printf("main: polling %d stations", len(stations))

	log.Println("main: Initializing database support")

	db, err := database.Open(database.Config{
		User:       cfg.DB.User,
		Password:   cfg.DB.Password,
		Host:       cfg.DB.Host,
		Name:       cfg.DB.Name,
		DisableTLS: cfg.DB.DisableTLS,
	})
	if err != nil {
		return fmt.Errorf("connecting to db: %w", err)
	}
	defer func() {
		log.Printf("main: Database Stopping : %s", cfg.DB.Host)
		err = db.Close()
		if err != nil {
			log.Printf("main: error closing database: %v", err)
		}
	}()

	var natsConnection *nats.Conn
	if cfg.NATS.Publish {
		log.Printf("main: connecting to nats at %s", cfg.NATS.URL)
		natsConnection, err = nats.Connect(cfg.NATS.URL)
		if err != nil {
			return fmt.Errorf("connecting to nats at %s: %w", cfg.NATS.URL, err)
		}
		defer natsConnection.Close()
	}

	shutdownSignal := make(chan os.Signal, 1)
	signal.Notify(shutdownSignal, os.Interrupt, syscall.SIGTERM)

	client := httpclient.NewClient(cfg.API.BaseURL, apiUser, apiPassword,
		time.Duration(cfg.API.RetryTimeoutSec)*time.Second)
	ext := extractor.NewExtractor(log, db, extractor.Config{
		Client:          client,
		Store:           realtime.NewPostgresStore(log, db),
		NatsConnection:  natsConnection,
		PublishOverNats: cfg.NATS.Publish,
		Stations:        stations,
		CallsPerMinute:  cfg.Extract.CallsPerMinute,
		Workers:         cfg.Extract.Workers,
	})

	return ext.RunExtractLoop(time.Duration(cycleSec)*time.Second,
		time.Duration(cfg.Extract.BudgetSec)*time.Second,
		shutdownSignal)
}
