// Package main provides a CLI tool for seeding panel accounts from a
// YAML file.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/cory-johannsen/botpanel/internal/config"
	"github.com/cory-johannsen/botpanel/internal/storage/postgres"
)

type seedFile struct {
	Users []seedUser `yaml:"users"`
}

type seedUser struct {
	Username string `yaml:"username"`
	Password string `yaml:"password"`
}

func main() {
	start := time.Now()

	configPath := flag.String("config", "configs/dev.yaml", "path to configuration file")
	seedPath := flag.String("seed", "configs/users.yaml", "path to user seed file")
	flag.Parse()

	data, err := os.ReadFile(*seedPath)
	if err != nil {
		log.Fatalf("reading seed file: %v", err)
	}

	var seed seedFile
	if err := yaml.Unmarshal(data, &seed); err != nil {
		log.Fatalf("parsing seed file: %v", err)
	}
	if len(seed.Users) == 0 {
		log.Fatalf("seed file %s contains no users", *seedPath)
	}
	for i, u := range seed.Users {
		if u.Username == "" || u.Password == "" {
			log.Fatalf("seed user %d: username and password are required", i)
		}
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("loading config: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	pool, err := postgres.NewPool(ctx, cfg.Database)
	if err != nil {
		log.Fatalf("connecting to database: %v", err)
	}
	defer pool.Close()

	repo := postgres.NewAccountRepository(pool.DB())

	created, skipped := 0, 0
	for _, u := range seed.Users {
		acct, err := repo.Create(ctx, u.Username, u.Password)
		if err != nil {
			if errors.Is(err, postgres.ErrAccountExists) {
				skipped++
				continue
			}
			log.Fatalf("creating account %q: %v", u.Username, err)
		}
		created++
		fmt.Fprintf(os.Stdout, "created %s (#%d)\n", acct.Username, acct.ID)
	}

	fmt.Fprintf(os.Stdout, "seeded %d accounts, %d already existed [%s]\n",
		created, skipped, time.Since(start))
}
