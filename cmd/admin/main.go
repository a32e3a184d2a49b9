// Package main provides category management utilities for Crowdfund.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"crowdfund/internal/bootstrap"
	"crowdfund/internal/config"
	"crowdfund/internal/database"
	"crowdfund/internal/notifications"
	"crowdfund/internal/repository"
	"crowdfund/internal/service"
)

func usage() {
	fmt.Println("Usage:")
	fmt.Println("  go run ./cmd/admin create-category <name> [description]  - Create a category")
	fmt.Println("  go run ./cmd/admin delete-category <name>                - Delete a category, moving its projects to the sentinel")
	fmt.Println("  go run ./cmd/admin list-categories                       - List all categories")
	fmt.Println("  go run ./cmd/admin check-sentinel                        - Verify the sentinel category exists")
	fmt.Println("  go run ./cmd/admin watch-notifications                   - Print owner notifications until interrupted")
	os.Exit(1)
}

func main() {
	if len(os.Args) < 2 {
		usage()
	}

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	ctx := context.Background()
	command := os.Args[1]

	// check-sentinel must observe the database as-is
	if command == "check-sentinel" {
		cfg.BootstrapSentinel = false
	}

	rt, err := bootstrap.InitRuntime(ctx, cfg, bootstrap.Options{})
	if err != nil {
		log.Fatalf("Failed to initialize runtime: %v", err)
	}

	categories := service.NewCategoryService(
		repository.NewCategoryRepository(rt.DB), rt.Redis, cfg.SentinelCategory, nil)

	switch command {
	case "create-category":
		if len(os.Args) < 3 {
			usage()
		}
		description := strings.Join(os.Args[3:], " ")
		category, err := categories.CreateCategory(ctx, os.Args[2], description)
		if err != nil {
			log.Fatalf("Failed to create category: %v", err)
		}
		fmt.Printf("Created category %d (%s)\n", category.ID, category.Name)

	case "delete-category":
		if len(os.Args) < 3 {
			usage()
		}
		moved, err := categories.DeleteCategory(ctx, os.Args[2])
		if err != nil {
			log.Fatalf("Failed to delete category: %v", err)
		}
		fmt.Printf("Deleted category %s; %d project(s) moved to %s\n", os.Args[2], moved, cfg.SentinelCategory)

	case "list-categories":
		list, err := categories.ListCategories(ctx)
		if err != nil {
			log.Fatalf("Failed to list categories: %v", err)
		}
		fmt.Printf("%-6s %-15s %s\n", "ID", "NAME", "DESCRIPTION")
		for _, c := range list {
			marker := ""
			if c.Name == cfg.SentinelCategory {
				marker = " (sentinel)"
			}
			fmt.Printf("%-6d %-15s %s%s\n", c.ID, c.Name, c.Description, marker)
		}

	case "check-sentinel":
		category, err := database.VerifySentinelCategory(ctx, rt.DB, cfg.SentinelCategory)
		if err != nil {
			log.Fatalf("Sentinel check failed: %v", err)
		}
		fmt.Printf("Sentinel category %q present (id %d)\n", category.Name, category.ID)

	case "watch-notifications":
		if rt.Redis == nil {
			log.Fatal("Redis is not reachable; nothing to watch")
		}
		watchCtx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
		defer stop()
		enc := json.NewEncoder(os.Stdout)
		err := notifications.NewNotifier(rt.Redis).StartPatternSubscriber(watchCtx, func(userID uint, ev notifications.Event) {
			_ = enc.Encode(map[string]interface{}{"user": userID, "event": ev})
		})
		if err != nil {
			log.Fatalf("Failed to subscribe: %v", err)
		}
		log.Println("Watching notifications, Ctrl+C to stop")
		<-watchCtx.Done()

	default:
		fmt.Printf("Unknown command: %s\n", command)
		usage()
	}
}
