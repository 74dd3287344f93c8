package main

import (
	"fmt"
	logger "log"
	"os"
	"strconv"

	"github.com/suburail/delaycast/app/schedule-loader/schedmanager"
	"github.com/suburail/delaycast/foundation/bucket"
	"github.com/suburail/delaycast/foundation/database"

	"github.com/ardanlabs/conf"
)

var build = "develop"

func main() {
	log := logger.New(os.Stdout, "SCHEDULE_LOADER : ", logger.LstdFlags|logger.Lmicroseconds|logger.Lshortfile)
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
		GTFS struct {
			IndexURL string `conf:"default:https://ressources.data.sncf.com/api/v2/catalog/datasets/sncf-transilien-gtfs/exports/csv"`
			WorkDir  string `conf:"default:gtfs_tmp"`
		}
		Bucket struct {
			Dir string `conf:"default:gtfs_bucket"`
		}
	}
	cfg.Version.SVN = build
	cfg.Version.Desc = "Maintain suburban rail gtfs schedule instances in database"
	if err := conf.Parse(os.Args[1:], "SCHEDULE_LOADER", &cfg); err != nil {
		switch err {
		case conf.ErrHelpWanted:
			usage, err := conf.Usage("SCHEDULE_LOADER", &cfg)
			if err != nil {
				return fmt.Errorf("generating config usage: %w", err)
			}
			fmt.Println(usage)
			return nil
		case conf.ErrVersionWanted:
			version, err := conf.VersionString("SCHEDULE_LOADER", &cfg)
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

	switch cfg.Args.Num(0) {
	case "load":
		gtfsBucket, err := bucket.NewFilesystem(cfg.Bucket.Dir)
		if err != nil {
			return fmt.Errorf("opening gtfs bucket: %w", err)
		}
		err = schedmanager.UpdateSchedule(log, db, gtfsBucket, cfg.GTFS.WorkDir, cfg.GTFS.IndexURL)
		if err != nil {
			return err
		}
		return schedmanager.ListSchedules(db)

	case "delete":
		dataSetIdString := cfg.Args.Num(1)
		if len(dataSetIdString) < 1 {
			return fmt.Errorf("expected data set id with command delete")
		}
		dataSetId, err := strconv.ParseInt(dataSetIdString, 10, 64)
		if err != nil {
			return fmt.Errorf("unable to parse data set id %s, error: %w", dataSetIdString, err)
		}
		return schedmanager.DeleteSchedule(log, db, dataSetId)

	case "list":
		return schedmanager.ListSchedules(db)

	default:
		fmt.Println("load: download the published schedule archives and load the canonical one")
		fmt.Println("delete: remove a schedule data set from the database")
		fmt.Println("list: list all schedule data sets in the database")
		usage, err := conf.Usage("SCHEDULE_LOADER", &cfg)
		if err != nil {
			return fmt.Errorf("generating config usage: %w", err)
		}
		fmt.Println(usage)
	}
	return nil
}
