// cmd/client/main.go - End-to-end walkthrough against a running server
package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go"

	"taskdeck/internal/models"
	"taskdeck/internal/session"
	"taskdeck/pkg/client"
)

func main() {
	fmt.Println("🚀 TaskDeck Session Walkthrough")
	fmt.Println(strings.Repeat("=", 50))

	runWalkthrough()
}

func runWalkthrough() {
	apiURL := envOr("TASKDECK_API_URL", "http://localhost:8080")
	natsURL := envOr("TASKDECK_NATS_URL", nats.DefaultURL)
	subjectPrefix := envOr("TASKDECK_SUBJECT_PREFIX", "task.events")

	api := client.New(apiURL)

	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()

	// Quiet logger for the session layer; the walkthrough output tells the story.
	logg := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))

	// Test 1: Register or login
	fmt.Println("\n📝 TEST 1: Register / Login")
	fmt.Println(strings.Repeat("-", 40))

	email := "walkthrough@example.com"
	username := "walkthrough"
	password := "SecurePass123!"

	account, err := api.Register(ctx, email, username, password)
	if err != nil {
		if !errors.Is(err, client.ErrConflict) {
			log.Fatalf("Registration failed: %v", err)
		}
		fmt.Println("  ℹ️  Account already exists, logging in...")
		account, err = api.Login(ctx, email, password)
		if err != nil {
			log.Fatalf("Login failed: %v", err)
		}
		fmt.Println("  ✅ Logged in!")
	} else {
		fmt.Println("  ✅ Registered!")
	}
	fmt.Printf("  Account ID: %s\n", account.ID)
	fmt.Printf("  Username: %s\n", account.Username)

	// Test 2: Current account
	fmt.Println("\n👤 TEST 2: Current Account")
	fmt.Println(strings.Repeat("-", 40))

	me, err := api.Me(ctx)
	if err != nil {
		fmt.Printf("  ❌ Me failed: %v\n", err)
	} else {
		fmt.Printf("  ✅ Authenticated as %s <%s>\n", me.Username, me.Email)
		if me.LastLoginAt != nil {
			fmt.Printf("  Last login: %s\n", me.LastLoginAt.Format(time.RFC3339))
		}
	}

	// Test 3: Live session
	fmt.Println("\n📡 TEST 3: Live Session")
	fmt.Println(strings.Repeat("-", 40))

	sess := session.New(account.ID, api, logg)
	defer sess.Close()

	feedAttached := false
	nc, err := nats.Connect(natsURL, nats.Name("taskdeck-walkthrough"))
	if err != nil {
		fmt.Printf("  ⚠️  NATS unavailable (%v), continuing without live feed\n", err)
	} else {
		defer nc.Close()
		sub := client.NewFeedSubscriber(nc, subjectPrefix, account.ID, logg)
		if err := sess.AttachFeed(ctx, sub); err != nil {
			fmt.Printf("  ⚠️  Could not attach feed: %v\n", err)
		} else {
			fmt.Println("  ✅ Live feed attached")
			feedAttached = true
		}
	}

	if err := sess.Load(ctx); err != nil {
		log.Fatalf("Failed to load tasks: %v", err)
	}
	fmt.Printf("  ✅ Loaded %d existing tasks\n", sess.Len())

	// Test 4: Create tasks
	fmt.Println("\n📋 TEST 4: Create Tasks")
	fmt.Println(strings.Repeat("-", 40))

	// Titles carry a run stamp so repeated runs never trip the duplicate check.
	stamp := time.Now().Format("15:04:05")
	inTwoDays := time.Now().AddDate(0, 0, 2)
	nextWeek := time.Now().AddDate(0, 0, 6)

	drafts := []session.TaskDraft{
		{Title: "Write release notes " + stamp, Category: "work", Priority: models.PriorityHigh, DueDate: &inTwoDays},
		{Title: "Plan sprint review " + stamp, Category: "work", Priority: models.PriorityMedium, DueDate: &nextWeek},
		{Title: "Water the plants " + stamp, Category: "home", Priority: models.PriorityLow},
	}

	var created []models.Task
	for i, draft := range drafts {
		task, err := sess.Create(ctx, draft)
		if err != nil {
			fmt.Printf("  ❌ Failed to create task %d: %v\n", i+1, err)
			continue
		}
		fmt.Printf("  ✅ Created: %s (ID: %s)\n", task.Title, task.ID)
		created = append(created, task)
	}
	if len(created) == 0 {
		log.Fatal("No tasks created, cannot continue")
	}

	// Test 5: Duplicate title rejected before any network call
	fmt.Println("\n🚫 TEST 5: Duplicate Title (Should Fail)")
	fmt.Println(strings.Repeat("-", 40))

	_, err = sess.Create(ctx, session.TaskDraft{Title: created[0].Title})
	if errors.Is(err, session.ErrDuplicateTitle) {
		fmt.Printf("  ✅ Expected rejection: %v\n", err)
	} else if err != nil {
		fmt.Printf("  ❌ Unexpected error: %v\n", err)
	} else {
		fmt.Println("  ❌ WARNING: duplicate title was accepted!")
	}

	// Test 6: Edit and workflow
	fmt.Println("\n✏️ TEST 6: Edit + Workflow")
	fmt.Println(strings.Repeat("-", 40))

	first := created[0].ID
	newDescription := "Cover the reconciliation changes"
	highPriority := models.PriorityHigh
	if err := sess.Update(ctx, first, session.EditPatch{Description: &newDescription, Priority: &highPriority}); err != nil {
		fmt.Printf("  ❌ Update failed: %v\n", err)
	} else {
		fmt.Println("  ✅ Description and priority updated")
	}

	if err := sess.CycleStatus(ctx, first); err != nil {
		fmt.Printf("  ❌ Cycle status failed: %v\n", err)
	} else if task, ok := sess.Task(first); ok {
		fmt.Printf("  ✅ Status advanced to %s\n", task.Status)
	}

	if err := sess.ToggleComplete(ctx, first); err != nil {
		fmt.Printf("  ❌ Toggle complete failed: %v\n", err)
	} else if task, ok := sess.Task(first); ok {
		fmt.Printf("  ✅ Completed: %v (status stays %s)\n", task.Completed, task.Status)
	}

	// Test 7: Filtered and sorted views
	fmt.Println("\n🔍 TEST 7: Views")
	fmt.Println(strings.Repeat("-", 40))

	work := sess.Visible(session.Filters{Category: "work"}, session.SortPriority)
	fmt.Printf("  Work tasks by priority (%d):\n", len(work))
	for i, task := range work {
		fmt.Printf("    %d. [%s] %s\n", i+1, task.Priority, task.Title)
	}

	dueSoon := sess.Visible(session.Filters{Due: session.DueWeek}, session.SortDueDate)
	fmt.Printf("  Due within the week (%d):\n", len(dueSoon))
	for i, task := range dueSoon {
		due := "-"
		if task.DueDate != nil {
			due = task.DueDate.Format("2006-01-02")
		}
		fmt.Printf("    %d. %s (due %s)\n", i+1, task.Title, due)
	}

	fmt.Printf("  Category picker: %s\n", strings.Join(sess.Categories(), ", "))

	// Test 8: Selection and bulk operations
	fmt.Println("\n☑️ TEST 8: Selection + Bulk")
	fmt.Println(strings.Repeat("-", 40))

	for _, task := range created[1:] {
		sess.ToggleSelect(task.ID)
	}
	fmt.Printf("  Selected %d tasks\n", len(sess.Selected()))

	if err := sess.BulkComplete(ctx); err != nil {
		fmt.Printf("  ❌ Bulk complete failed: %v\n", err)
	} else {
		fmt.Printf("  ✅ Bulk complete done, selection cleared (%d selected)\n", len(sess.Selected()))
	}

	ids := make([]uuid.UUID, 0, len(created))
	for _, task := range created {
		sess.ToggleSelect(task.ID)
		ids = append(ids, task.ID)
	}
	if err := sess.BulkDelete(ctx); err != nil {
		fmt.Printf("  ❌ Bulk delete failed: %v\n", err)
	} else {
		fmt.Printf("  ✅ Bulk deleted %d tasks, %d remain in session\n", len(ids), sess.Len())
	}

	// Test 9: Refresh token
	fmt.Println("\n🔄 TEST 9: Refresh Token")
	fmt.Println(strings.Repeat("-", 40))

	if err := api.Refresh(ctx); err != nil {
		fmt.Printf("  ❌ Refresh failed: %v\n", err)
	} else {
		fmt.Println("  ✅ Token pair rotated")
		if _, err := api.Me(ctx); err != nil {
			fmt.Printf("  ❌ New token rejected: %v\n", err)
		} else {
			fmt.Println("  ✅ New access token works")
		}
	}

	// Test 10: Logout
	fmt.Println("\n🚪 TEST 10: Logout")
	fmt.Println(strings.Repeat("-", 40))

	if err := api.Logout(ctx); err != nil {
		fmt.Printf("  ❌ Logout failed: %v\n", err)
	} else {
		fmt.Println("  ✅ Logged out")
		if err := api.Refresh(ctx); err != nil {
			fmt.Printf("  ✅ Expected: refresh rejected after logout (%v)\n", err)
		} else {
			fmt.Println("  ❌ WARNING: refresh still works after logout!")
		}
	}

	// Summary
	fmt.Println("\n" + strings.Repeat("=", 50))
	fmt.Println("📊 Walkthrough Summary:")
	fmt.Printf("  • Account: %s\n", account.Username)
	fmt.Printf("  • Live feed: %s\n", statusLabel(feedAttached))
	fmt.Printf("  • Tasks created: %d\n", len(created))
	fmt.Println("\n✨ Walkthrough completed!")
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func statusLabel(ok bool) string {
	if ok {
		return "✅ attached"
	}
	return "⚠️ unavailable"
}
