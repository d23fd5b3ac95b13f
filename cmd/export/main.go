package main

import (
	"context"
	"flag"
	"log"

	"solmate-sdk/internal/output"
	"solmate-sdk/pkg/soldb"
)

func main() {
	var dbPath string
	var serial string
	var outJSON string
	var outCSV string
	var limit int
	var latest bool
	flag.StringVar(&dbPath, "db", "data/readings.sqlite", "path to the reading history database")
	flag.StringVar(&serial, "serial", "", "serial number to export (required unless -latest)")
	flag.StringVar(&outJSON, "json", "", "path to write JSON output (optional)")
	flag.StringVar(&outCSV, "csv", "", "path to write CSV output (optional)")
	flag.IntVar(&limit, "limit", 0, "max readings to export, 0 for all")
	flag.BoolVar(&latest, "latest", false, "export only the latest reading per field, across all devices")
	flag.Parse()

	if outJSON == "" && outCSV == "" {
		log.Fatalf("no output specified: set --json and/or --csv")
	}
	if serial == "" && !latest {
		log.Fatalf("either --serial or --latest is required")
	}

	client, err := soldb.Open(dbPath)
	if err != nil {
		log.Fatalf("open database: %v", err)
	}
	defer client.Close()

	ctx := context.Background()
	var readings []soldb.Reading
	if latest {
		readings, err = client.Latest(ctx)
	} else {
		readings, err = client.Readings(ctx, serial, limit)
	}
	if err != nil {
		log.Fatalf("query readings: %v", err)
	}

	if outJSON != "" {
		if err := output.WriteJSON(outJSON, readings); err != nil {
			log.Printf("write json error: %v", err)
		}
	}
	if outCSV != "" {
		if err := output.WriteCSV(outCSV, readings); err != nil {
			log.Printf("write csv error: %v", err)
		}
	}
}
