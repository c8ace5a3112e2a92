// Command cleardb deletes every row from every table. The schema is kept.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"

	"github.com/iliyamo/storehouse/internal/config"
	"github.com/iliyamo/storehouse/internal/database"
	"github.com/iliyamo/storehouse/internal/logging"
)

func main() {
	yes := flag.Bool("yes", false, "skip the confirmation prompt")
	flag.Parse()

	if err := godotenv.Load(); err != nil {
		logging.Debug().Msg("no .env file found")
	}
	logging.Init(logging.Config{Level: os.Getenv("LOG_LEVEL"), Format: "console"})

	dbc, err := config.LoadDB()
	if err != nil {
		logging.Fatal().Err(err).Msg("load config")
	}
	if !*yes {
		fmt.Printf("Delete ALL data from the %s database? [y/N] ", dbc.Driver)
		var answer string
		fmt.Scanln(&answer)
		if answer != "y" && answer != "Y" {
			fmt.Println("aborted")
			return
		}
	}

	db, err := database.Open(dbc)
	if err != nil {
		logging.Fatal().Err(err).Msg("open database")
	}
	defer db.Close()

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()
	if err := database.ClearData(ctx, db); err != nil {
		logging.Fatal().Err(err).Msg("clear data")
	}
	logging.Info().Str("driver", dbc.Driver).Msg("all data deleted")
}
