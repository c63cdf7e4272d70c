// Command catalog seeds a SQLite prompt database from the built-in prompt
// lists, or prints the prompts of an existing one.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"totgame/internal/catalog"
	"totgame/internal/logging"
)

func main() {
	dbPath := flag.String("db", "prompts.db", "SQLite database path")
	list := flag.Bool("list", false, "print the prompts stored in -db instead of seeding it")
	flag.Parse()

	log := logging.New(os.Stderr, "info", "console")
	ctx := context.Background()

	if *list {
		c, err := catalog.LoadSQLite(ctx, *dbPath)
		if err != nil {
			log.Fatal().Err(err).Str("db", *dbPath).Msg("load catalog")
		}
		for _, p := range c.All() {
			fmt.Printf("%s\t%s\t%s\n", p.Category, p.ID, p.Content)
		}
		return
	}

	c, err := catalog.Default()
	if err != nil {
		log.Fatal().Err(err).Msg("load built-in catalog")
	}
	if err := catalog.WriteSQLite(ctx, *dbPath, c); err != nil {
		log.Fatal().Err(err).Str("db", *dbPath).Msg("write catalog")
	}
	log.Info().
		Str("db", *dbPath).
		Int("truth", c.Size(catalog.Truth)).
		Int("trick", c.Size(catalog.Trick)).
		Msg("catalog seeded")
}
