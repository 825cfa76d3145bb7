// Mark podcast jobs that never finished as failed. A job is stale when it is
// still in progress long after it was created, which happens when the MCP
// server that owned it was killed.
//
// Usage:
//
//	go run ./scripts/fail-stale-jobs --dry-run              # preview changes
//	go run ./scripts/fail-stale-jobs                        # apply changes
//	go run ./scripts/fail-stale-jobs --older-than 6h        # custom age
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb"

	"github.com/apresai/polycast/internal/config"
	"github.com/apresai/polycast/internal/store"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal(err)
	}

	tableName := flag.String("table", cfg.TableName, "DynamoDB table name")
	olderThan := flag.Duration("older-than", 2*time.Hour, "Minimum job age to treat as stale")
	dryRun := flag.Bool("dry-run", false, "Preview changes without writing")
	flag.Parse()

	ctx := context.Background()
	awsCfg, err := cfg.AWSConfig(ctx)
	if err != nil {
		log.Fatal(err)
	}
	client := dynamodb.NewFromConfig(awsCfg)

	fmt.Printf("Table: %s | Older than: %s | Dry run: %v\n", *tableName, *olderThan, *dryRun)

	res, err := store.NewStore(client, *tableName).FailStale(ctx, client, *olderThan, *dryRun)
	for _, id := range res.Stale {
		action := "FAIL"
		if *dryRun {
			action = "DRY-RUN"
		}
		fmt.Printf("[%s] %s\n", action, id)
	}
	if err != nil {
		log.Fatalf("sweep: %v", err)
	}

	fmt.Printf("\nDone. Scanned: %d, Stale: %d, Failed: %d\n", res.Scanned, len(res.Stale), res.Failed)
	if *dryRun {
		fmt.Println("(dry run: no changes written)")
	}
}
