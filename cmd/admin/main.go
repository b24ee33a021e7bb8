// Package main provides operator management utilities for AnimeVerse.
package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"animeverse/internal/cache"
	"animeverse/internal/config"
	"animeverse/internal/database"
	"animeverse/internal/models"
	"animeverse/internal/notifications"
	"animeverse/internal/repository"
	"animeverse/internal/service"

	"gorm.io/gorm"
)

func usage() {
	fmt.Println("Usage:")
	fmt.Println("  go run ./cmd/admin/main.go create-operator <username> <email> <password>  - Create a staff operator")
	fmt.Println("  go run ./cmd/admin/main.go promote <user_id>                             - Grant staff access")
	fmt.Println("  go run ./cmd/admin/main.go demote <user_id>                              - Revoke staff access")
	fmt.Println("  go run ./cmd/admin/main.go list-operators                                - List staff operators")
	fmt.Println("  go run ./cmd/admin/main.go approve-comment <comment_id>                  - Show a comment")
	fmt.Println("  go run ./cmd/admin/main.go hide-comment <comment_id>                     - Hide a comment")
	fmt.Println("  go run ./cmd/admin/main.go delete-comment <comment_id>                   - Delete a comment")
	fmt.Println("  go run ./cmd/admin/main.go inbox                                         - List unread contact messages")
	fmt.Println("  go run ./cmd/admin/main.go mark-read <contact_id>                        - Mark a contact message read")
	fmt.Println("  go run ./cmd/admin/main.go subscribers                                   - List active newsletter subscribers")
	fmt.Println("  go run ./cmd/admin/main.go unsubscribe <subscriber_id>                   - Deactivate a newsletter subscriber")
	fmt.Println("  go run ./cmd/admin/main.go watch                                         - Stream operator events")
}

// AdminSetup provides a utility to manage operators and moderate content
func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(1)
	}

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	db, err := database.Connect(cfg)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}

	ctx := context.Background()
	mod := newModerator(db, notifications.NewNotifier(nil), os.Stdout)
	command := os.Args[1]

	switch command {
	case "create-operator":
		if len(os.Args) < 5 {
			fmt.Println("Usage: go run ./cmd/admin/main.go create-operator <username> <email> <password>")
			os.Exit(1)
		}
		createOperator(ctx, db, os.Args[2], os.Args[3], os.Args[4])

	case "promote":
		setStaff(db, argID("promote <user_id>"), true)

	case "demote":
		setStaff(db, argID("demote <user_id>"), false)

	case "list-operators":
		listOperators(db)

	case "approve-comment":
		check(mod.setApproved(ctx, argID("approve-comment <comment_id>"), true))

	case "hide-comment":
		check(mod.setApproved(ctx, argID("hide-comment <comment_id>"), false))

	case "delete-comment":
		check(mod.deleteComment(ctx, argID("delete-comment <comment_id>")))

	case "inbox":
		check(mod.inbox(ctx))

	case "mark-read":
		check(mod.markRead(ctx, argID("mark-read <contact_id>")))

	case "subscribers":
		check(mod.subscribers(ctx))

	case "unsubscribe":
		check(mod.unsubscribe(ctx, argID("unsubscribe <subscriber_id>")))

	case "watch":
		cache.InitRedis(cfg.RedisURL)
		watch(cache.GetClient() != nil, notifications.NewNotifier(cache.GetClient()))

	default:
		fmt.Printf("Unknown command: %s\n", command)
		usage()
		os.Exit(1)
	}
}

func argID(usageLine string) uint {
	if len(os.Args) < 3 {
		fmt.Printf("Usage: go run ./cmd/admin/main.go %s\n", usageLine)
		os.Exit(1)
	}
	id, err := strconv.ParseUint(os.Args[2], 10, 64)
	if err != nil || id == 0 {
		fmt.Printf("Invalid ID %q\n", os.Args[2])
		os.Exit(1)
	}
	return uint(id)
}

func createOperator(ctx context.Context, db *gorm.DB, username, email, password string) {
	operators := service.NewOperatorService(repository.NewUserRepository(db))
	user, err := operators.CreateOperator(ctx, service.CreateOperatorInput{
		Username: username,
		Email:    email,
		Password: password,
		Staff:    true,
	})
	if err != nil {
		log.Fatalf("Failed to create operator: %v", err)
	}
	fmt.Printf("✅ Created operator %s (ID: %d)\n", user.Username, user.ID)
}

func setStaff(db *gorm.DB, userID uint, staff bool) {
	var user models.User
	if err := db.First(&user, userID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			fmt.Printf("User with ID %d not found\n", userID)
		} else {
			log.Fatalf("Database error: %v", err)
		}
		os.Exit(1)
	}

	if user.IsStaff == staff {
		fmt.Printf("User %s (ID: %d) already has staff=%t\n", user.Username, user.ID, staff)
		return
	}

	if err := db.Model(&user).Update("is_staff", staff).Error; err != nil {
		log.Fatalf("Failed to update user: %v", err)
	}

	fmt.Printf("✅ %s (ID: %d) now has staff=%t\n", user.Username, user.ID, staff)
}

func listOperators(db *gorm.DB) {
	var operators []models.User
	if err := db.Where("is_staff = ?", true).Order("username").Find(&operators).Error; err != nil {
		log.Fatalf("Failed to fetch operators: %v", err)
	}

	if len(operators) == 0 {
		fmt.Println("No staff operators found")
		return
	}

	fmt.Printf("Staff operators (%d):\n", len(operators))
	for _, op := range operators {
		fmt.Printf("  - ID: %d, Username: %s, Email: %s\n", op.ID, op.Username, op.Email)
	}
}

func check(err error) {
	if err != nil {
		log.Fatalf("Failed: %v", err)
	}
}

func watch(connected bool, notifier *notifications.Notifier) {
	if !connected {
		log.Fatal("Redis is unavailable; operator events cannot be streamed")
	}
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	err := notifier.Subscribe(ctx, func(ev notifications.Event) {
		fmt.Printf("%s  %-22s #%d  %s\n", ev.At.Format("15:04:05"), ev.Type, ev.ID, ev.Summary)
	})
	if err != nil {
		log.Fatalf("Failed to subscribe: %v", err)
	}
	fmt.Printf("Watching %s (Ctrl+C to stop)\n", notifications.OperatorChannel)
	<-ctx.Done()
}
