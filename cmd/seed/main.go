// File: cmd/seed/main.go
// Seeds a sample pricing feed ("tillfetch") into Redis so the catalog has
// prices to load. Intended for local setups and demos.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"time"

	"remo-checkout/internal/config"
	red "remo-checkout/internal/infra/redis"
)

func main() {
	cfgPath := flag.String("config", "config.yaml", "path to YAML config file")
	beginner := flag.String("beginner", "2.40", "beginner tier USD price")
	average := flag.String("average", "4.50", "average tier USD price")
	expert := flag.String("expert", "6.50", "expert tier USD price")
	flag.Parse()

	cfg, err := config.LoadConfig(*cfgPath, true)
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	client, err := red.NewClient(ctx, &cfg.Redis)
	if err != nil {
		log.Fatalf("redis: %v", err)
	}
	defer client.Close()

	// Tier prices live at indices 2/3/4; the other slots are padding the
	// legacy feed format carries along.
	feed := []string{"value0", "value1", *beginner, *average, *expert, "value5", "value6", "value7"}
	if err := red.NewPricingFeedRepo(client).Store(ctx, feed); err != nil {
		log.Fatalf("store pricing feed: %v", err)
	}
	fmt.Printf("seeded pricing feed: beginner=%s average=%s expert=%s\n", *beginner, *average, *expert)
}
