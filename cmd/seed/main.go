// Command seed populates a development database with demo profiles,
// locations, connections, and chat history around a reference coordinate.
package main

import (
	"flag"
	"log"

	"orbit/internal/config"
	"orbit/internal/database"
	"orbit/internal/seed"
)

func main() {
	opts := seed.DefaultOptions()
	flag.IntVar(&opts.Users, "users", opts.Users, "number of users to create")
	flag.Float64Var(&opts.CenterLat, "lat", opts.CenterLat, "center latitude")
	flag.Float64Var(&opts.CenterLng, "lng", opts.CenterLng, "center longitude")
	flag.Float64Var(&opts.SpreadKm, "spread", opts.SpreadKm, "scatter radius in km")
	flag.Parse()

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	if cfg.IsProduction() {
		log.Fatal("Refusing to seed a production database")
	}

	db, err := database.Connect(cfg)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}

	if err := seed.Run(db, opts); err != nil {
		log.Fatalf("Seeding failed: %v", err)
	}
	log.Println("Seeding complete")
}
