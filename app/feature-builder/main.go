package main

import (
	"context"
	"fmt"
	logger "log"
	"os"
	"time"

	"github.com/suburail/delaycast/app/feature-builder/features"
	"github.com/suburail/delaycast/business/data/daytime"
	"github.com/suburail/delaycast/business/data/predictors"
	"github.com/suburail/delaycast/business/data/realtime"
	"github.com/suburail/delaycast/foundation/bucket"
	"github.com/suburail/delaycast/foundation/database"

	"github.com/ardanlabs/conf"
)

var build = "develop"

func main() {
	log := logger.New(os.Stdout, "FEATURE_BUILDER : ", logger.LstdFlags|logger.Lmicroseconds|logger.Lshortfile)
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
		Bucket struct {
			Dir string `conf:"default:training_bucket"`
		}
		Features struct {
			WindowSec int `conf:"default:1200"`
		}
	}
	cfg.Version.SVN = build
	cfg.Version.Desc = "Build delay prediction matrices from schedule and realtime data"
	if err := conf.Parse(os.Args[1:], "FEATURE_BUILDER", &cfg); err != nil {
		switch err {
		case conf.ErrHelpWanted:
			usage, err := conf.Usage("FEATURE_BUILDER", &cfg)
			if err != nil {
				return fmt.Errorf("generating config usage: %w", err)
			}
			fmt.Println(usage)
			return nil
		case conf.ErrVersionWanted:
			version, err := conf.VersionString("FEATURE_BUILDER", &cfg)
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

	artifacts, err := bucket.NewFilesystem(cfg.Bucket.Dir)
	if err != nil {
		return fmt.Errorf("opening artifact bucket: %w", err)
	}

	builder := features.NewBuilder(log, db, realtime.NewPostgresStore(log, db), artifacts,
		time.Duration(cfg.Features.WindowSec)*time.Second)
	ctx := context.Background()
	now := time.Now().In(daytime.NetworkLocation())

	switch cfg.Args.Num(0) {
	case "train":
		day := cfg.Args.Num(1)
		if len(day) == 0 {
			day = daytime.FormatDay(now.AddDate(0, 0, -1))
		}
		if _, err := daytime.ParseDay(day); err != nil {
			return fmt.Errorf("bad training day %q: %w", day, err)
		}
		key, err := builder.BuildTrainingDay(ctx, day, now)
		if err != nil {
			return err
		}
		log.Printf("main: training matrix for %s written to %s", day, key)
		return nil

	case "infer":
		current := daytime.FromWallClock(now)
		key, err := builder.BuildInferenceArtifact(ctx, current.Day, now)
		if err != nil {
			return err
		}
		log.Printf("main: inference vectors written to %s", key)
		return nil

	case "models":
		line := cfg.Args.Num(1)
		if len(line) == 0 {
			return fmt.Errorf("expected line short name with command models")
		}
		recorded, err := predictors.GetPredictors(db, line)
		if err != nil {
			return err
		}
		if len(recorded) == 0 {
			fmt.Printf("no predictors recorded for line %s\n", line)
			return nil
		}
		for _, p := range recorded {
			score := "unscored"
			if p.Score != nil {
				score = *p.Score
			}
			fmt.Printf("line %s v%d trained %s..%s score %s features %s\n",
				p.Line, p.Version, p.TrainStartDay, p.TrainEndDay, score, p.Features)
		}
		return nil

	default:
		fmt.Println("train [yyyymmdd]: build the training matrix for a past day, yesterday by default")
		fmt.Println("infer: build inference vectors for the current instant")
		fmt.Println("models <line>: list the predictors recorded for a line")
		usage, err := conf.Usage("FEATURE_BUILDER", &cfg)
		if err != nil {
			return fmt.Errorf("generating config usage: %w", err)
		}
		fmt.Println(usage)
	}
	return nil
}
