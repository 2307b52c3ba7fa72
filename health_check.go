//go:build ignore

package main

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/shiftwatch/shift-backend/config"
	"github.com/shiftwatch/shift-backend/database"
	"github.com/shiftwatch/shift-backend/services"
)

func main() {
	fmt.Printf("🏥 SHiFT Backend Health Check - %s\n", time.Now().Format("2006-01-02 15:04:05"))
	fmt.Println(strings.Repeat("=", 50))

	// Quick tests
	healthScore := 0
	totalTests := 4

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	scraper := services.NewShiftCodeScraperService(config.DefaultScraperConfig())

	// Test 1: MentalMars
	fmt.Print("📡 MentalMars: ")
	if codes, err := scraper.ScrapeMentalMars(ctx); err != nil {
		fmt.Printf("❌ FAILED (%v)\n", err)
	} else {
		fmt.Printf("✅ OK (%d codes)\n", len(codes))
		healthScore++
	}

	// Test 2: Community tracker
	fmt.Print("📡 Community Tracker: ")
	if codes, err := scraper.ScrapeTracker(ctx); err != nil {
		fmt.Printf("❌ FAILED (%v)\n", err)
	} else {
		fmt.Printf("✅ OK (%d codes)\n", len(codes))
		healthScore++
	}

	// Test 3: Database
	cfg := config.LoadConfig()
	fmt.Print("🗄️  Database: ")
	if cfg.DatabaseURL == "" {
		fmt.Println("⏭️  SKIPPED (no DATABASE_URL)")
		totalTests--
	} else if err := database.Connect(cfg.DatabaseURL); err != nil {
		fmt.Printf("❌ FAILED (%v)\n", err)
	} else {
		fmt.Println("✅ OK")
		healthScore++
		database.Close()
	}

	// Test 4: Database data
	fmt.Print("📊 Database Data: ")
	if cfg.DatabaseURL == "" {
		fmt.Println("⏭️  SKIPPED (no DATABASE_URL)")
		totalTests--
	} else if err := database.Connect(cfg.DatabaseURL); err != nil {
		fmt.Printf("❌ FAILED (%v)\n", err)
	} else {
		codeService := services.NewCodeService(database.DB)
		if codes, err := codeService.GetActiveCodes(ctx); err != nil {
			fmt.Printf("❌ FAILED (%v)\n", err)
		} else {
			fmt.Printf("✅ OK (%d active codes)\n", len(codes))
			healthScore++
		}
		database.Close()
	}

	// Overall health
	fmt.Println(strings.Repeat("-", 50))
	healthPercent := float64(healthScore) / float64(totalTests) * 100

	if healthScore == totalTests {
		fmt.Printf("🎉 SYSTEM HEALTHY: %d/%d tests passed (%.0f%%)\n", healthScore, totalTests, healthPercent)
	} else if healthScore >= totalTests/2 {
		fmt.Printf("⚠️  SYSTEM DEGRADED: %d/%d tests passed (%.0f%%)\n", healthScore, totalTests, healthPercent)
	} else {
		fmt.Printf("❌ SYSTEM UNHEALTHY: %d/%d tests passed (%.0f%%)\n", healthScore, totalTests, healthPercent)
	}

	fmt.Printf("⏰ Check completed at: %s\n", time.Now().Format("15:04:05"))
}
