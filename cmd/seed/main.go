package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/Uniqwrites1/vendorrPWA-backend/internal/config"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
	"golang.org/x/crypto/bcrypt"
)

func main() {
	// CLI flags
	email := flag.String("email", "", "Admin email address")
	password := flag.String("password", "", "Admin password")
	name := flag.String("name", "", "Admin full name")
	flag.Parse()

	// Fall back to environment variables
	if *email == "" {
		*email = os.Getenv("SEED_EMAIL")
	}
	if *password == "" {
		*password = os.Getenv("SEED_PASSWORD")
	}
	if *name == "" {
		*name = os.Getenv("SEED_NAME")
	}

	// Fall back to defaults
	if *email == "" {
		*email = "admin@vendorr.ng"
	}
	if *password == "" {
		*password = "password123"
		log.Println("WARNING: Using default password 'password123'. Change immediately in production!")
	}
	if *name == "" {
		*name = "Vendorr Admin"
	}

	cfg := config.Load()

	// Connect to database
	ctx := context.Background()
	pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("Unable to connect to database: %v", err)
	}
	defer pool.Close()

	// Verify connection
	if err := pool.Ping(ctx); err != nil {
		log.Fatalf("Unable to ping database: %v", err)
	}
	log.Println("Connected to database")

	// Seed in a transaction (settings + admin + menu, or nothing)
	tx, err := pool.Begin(ctx)
	if err != nil {
		log.Fatalf("Failed to begin transaction: %v", err)
	}
	defer tx.Rollback(ctx)

	if err := seedSettings(ctx, tx, cfg.TaxRate); err != nil {
		log.Fatalf("Failed to seed restaurant settings: %v", err)
	}

	adminID, err := seedAdmin(ctx, tx, *email, *password, *name)
	if err != nil {
		log.Fatalf("Failed to seed admin: %v", err)
	}

	if err := seedMenu(ctx, tx); err != nil {
		log.Fatalf("Failed to seed menu: %v", err)
	}

	if err := tx.Commit(ctx); err != nil {
		log.Fatalf("Failed to commit: %v", err)
	}

	log.Println("Seed completed successfully")
	log.Printf("Admin ID: %s", adminID)
}

// seedSettings inserts the singleton restaurant settings row if missing.
func seedSettings(ctx context.Context, tx pgx.Tx, taxRate string) error {
	const restaurantName = "Vendorr Kitchen"

	insertSQL := `
		INSERT INTO restaurant_settings (id, restaurant_name, tax_rate)
		VALUES (1, $1, $2)
		ON CONFLICT (id) DO NOTHING
	`
	ct, err := tx.Exec(ctx, insertSQL, restaurantName, numeric(taxRate))
	if err != nil {
		return fmt.Errorf("insert settings: %w", err)
	}
	if ct.RowsAffected() == 0 {
		log.Println("Restaurant settings already exist, skipping")
		return nil
	}

	log.Printf("Created restaurant settings (tax rate %s)", taxRate)
	return nil
}

// seedAdmin creates the admin user if it doesn't exist.
func seedAdmin(ctx context.Context, tx pgx.Tx, email, password, fullName string) (uuid.UUID, error) {
	// Check if user already exists
	var existingID uuid.UUID
	checkSQL := `SELECT id FROM users WHERE email = $1 LIMIT 1`
	err := tx.QueryRow(ctx, checkSQL, email).Scan(&existingID)
	if err == nil {
		log.Printf("User '%s' already exists (ID: %s), skipping", email, existingID)
		return existingID, nil
	}
	if err != pgx.ErrNoRows {
		return uuid.Nil, fmt.Errorf("check user: %w", err)
	}

	// Hash password
	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return uuid.Nil, fmt.Errorf("hash password: %w", err)
	}

	firstName, lastName, _ := strings.Cut(fullName, " ")

	// Create user
	insertSQL := `
		INSERT INTO users (email, hashed_password, first_name, last_name, role)
		VALUES ($1, $2, $3, $4, 'admin')
		RETURNING id
	`
	var newID uuid.UUID
	err = tx.QueryRow(ctx, insertSQL, email, string(hashed), firstName, text(lastName)).Scan(&newID)
	if err != nil {
		return uuid.Nil, fmt.Errorf("insert user: %w", err)
	}

	log.Printf("Created admin user '%s' (ID: %s)", email, newID)
	return newID, nil
}

type seedItem struct {
	name        string
	description string
	price       string
	prepMinutes int32
	spiceLevel  int32
	featured    bool
}

type seedCategory struct {
	name         string
	description  string
	displayOrder int32
	items        []seedItem
}

var sampleMenu = []seedCategory{
	{
		name:         "Rice & Mains",
		description:  "Hearty plates, served hot",
		displayOrder: 1,
		items: []seedItem{
			{"Jollof Rice", "Smoky party-style jollof with fried plantain", "2500.00", 15, 2, true},
			{"Fried Rice", "Mixed-vegetable fried rice with grilled chicken", "2500.00", 15, 1, false},
			{"Ofada Rice & Ayamase", "Local ofada rice with green pepper sauce and assorted meat", "3200.00", 20, 4, true},
		},
	},
	{
		name:         "Soups & Swallow",
		description:  "Served with your choice of swallow",
		displayOrder: 2,
		items: []seedItem{
			{"Egusi Soup & Pounded Yam", "Melon seed soup with goat meat and stockfish", "3500.00", 20, 2, false},
			{"Afang Soup & Eba", "Afang leaves, waterleaf and dried fish", "3300.00", 20, 2, false},
		},
	},
	{
		name:         "Grills & Small Chops",
		description:  "Fresh off the grill",
		displayOrder: 3,
		items: []seedItem{
			{"Beef Suya", "Thin-cut beef skewers with yaji spice and onions", "2000.00", 12, 3, true},
			{"Peppered Chicken", "Grilled chicken in fiery pepper sauce", "2800.00", 18, 3, false},
			{"Puff Puff (6 pieces)", "Soft fried dough balls, lightly sweet", "1000.00", 8, 0, false},
		},
	},
	{
		name:         "Drinks",
		description:  "Chilled drinks and fresh juices",
		displayOrder: 4,
		items: []seedItem{
			{"Chapman", "Classic chapman with grenadine, cucumber and bitters", "1800.00", 5, 0, false},
			{"Zobo", "Homemade hibiscus drink with ginger and pineapple", "800.00", 3, 0, false},
			{"Bottled Water", "50cl still water", "300.00", 1, 0, false},
		},
	},
}

// seedMenu loads the sample menu on a fresh database. Any existing category
// means a real menu is in place, so the samples stay out.
func seedMenu(ctx context.Context, tx pgx.Tx) error {
	var count int
	if err := tx.QueryRow(ctx, `SELECT count(*) FROM menu_categories`).Scan(&count); err != nil {
		return fmt.Errorf("count categories: %w", err)
	}
	if count > 0 {
		log.Printf("Menu already seeded (%d categories), skipping", count)
		return nil
	}

	categorySQL := `
		INSERT INTO menu_categories (name, description, display_order)
		VALUES ($1, $2, $3)
		RETURNING id
	`
	itemSQL := `
		INSERT INTO menu_items (category_id, name, description, price, preparation_time, spice_level, is_featured)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`

	items := 0
	for _, cat := range sampleMenu {
		var catID uuid.UUID
		err := tx.QueryRow(ctx, categorySQL, cat.name, text(cat.description), cat.displayOrder).Scan(&catID)
		if err != nil {
			return fmt.Errorf("insert category %q: %w", cat.name, err)
		}
		for _, it := range cat.items {
			_, err := tx.Exec(ctx, itemSQL,
				catID, it.name, text(it.description), numeric(it.price),
				it.prepMinutes, it.spiceLevel, it.featured)
			if err != nil {
				return fmt.Errorf("insert item %q: %w", it.name, err)
			}
			items++
		}
	}

	log.Printf("Created sample menu (%d categories, %d items)", len(sampleMenu), items)
	return nil
}

func text(s string) pgtype.Text {
	return pgtype.Text{String: s, Valid: s != ""}
}

func numeric(s string) pgtype.Numeric {
	var n pgtype.Numeric
	if err := n.Scan(s); err != nil {
		log.Fatalf("Invalid numeric %q: %v", s, err)
	}
	return n
}
