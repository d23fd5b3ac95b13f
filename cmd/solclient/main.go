// solclient issues one-shot queries against a SolMate and prints the
// replies as JSON.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"solmate-sdk/pkg/solmate"
)

func main() {
	var (
		serial        string
		password      string
		uri           string
		deviceID      string
		timeout       time.Duration
		live          bool
		online        bool
		info          bool
		grid          bool
		settings      bool
		injection     bool
		logsDays      int
		savingsDays   int
		setMax        float64
		setMin        float64
		setMinBattery float64
	)
	flag.StringVar(&serial, "serial", "", "SolMate serial number (required)")
	flag.StringVar(&password, "password", "", "user password; omit to reuse a stored signature")
	flag.StringVar(&uri, "uri", "", "endpoint URI, defaults to the public Sol endpoint")
	flag.StringVar(&deviceID, "device-id", "", "device id reported on login")
	flag.DurationVar(&timeout, "timeout", 30*time.Second, "per-request timeout")
	flag.BoolVar(&live, "live", false, "print current live values")
	flag.BoolVar(&online, "online", false, "print online status")
	flag.BoolVar(&info, "info", false, "print device info")
	flag.BoolVar(&grid, "grid", false, "print grid mode")
	flag.BoolVar(&settings, "settings", false, "print user settings")
	flag.BoolVar(&injection, "injection", false, "print injection settings")
	flag.IntVar(&logsDays, "logs", 0, "print logs of the last N days")
	flag.IntVar(&savingsDays, "savings", 0, "print savings milestones of the last N days")
	flag.Float64Var(&setMax, "set-max-injection", -1, "set maximum injection power in watts")
	flag.Float64Var(&setMin, "set-min-injection", -1, "set minimum injection power in watts")
	flag.Float64Var(&setMinBattery, "set-min-battery", -1, "set minimum battery percentage")
	flag.Parse()

	if serial == "" {
		log.Fatalf("--serial is required")
	}

	storePath, err := solmate.DefaultAuthStorePath()
	if err != nil {
		log.Fatalf("auth store: %v", err)
	}

	opts := []solmate.Option{
		solmate.WithTimeout(timeout),
		solmate.WithAuthStore(solmate.NewAuthStore(storePath)),
	}
	if uri != "" {
		opts = append(opts, solmate.WithURI(uri))
	}
	if deviceID != "" {
		opts = append(opts, solmate.WithDeviceID(deviceID))
	}

	client := solmate.NewClient(serial, opts...)
	ctx := context.Background()

	if err := client.Quickstart(ctx, password); err != nil {
		log.Fatalf("quickstart: %v", err)
	}
	defer client.Close()

	if online {
		ok, err := client.CheckOnline(ctx)
		if err != nil {
			log.Fatalf("check_online: %v", err)
		}
		fmt.Printf("%s online: %v\n", client.Serialnum(), ok)
	}
	if live {
		values, err := client.GetLiveValues(ctx)
		if err != nil {
			log.Fatalf("live_values: %v", err)
		}
		printJSON(values)
	}
	if info {
		run(client.GetInfo(ctx))
	}
	if grid {
		run(client.GetGridMode(ctx))
	}
	if settings {
		run(client.GetUserSettings(ctx))
	}
	if injection {
		run(client.GetInjectionSettings(ctx))
	}
	if logsDays > 0 {
		run(client.GetRecentLogs(ctx, logsDays, time.Time{}))
	}
	if savingsDays > 0 {
		run(client.GetMilestonesSavings(ctx, savingsDays))
	}
	if setMax >= 0 {
		run(client.SetMaxInjection(ctx, setMax))
	}
	if setMin >= 0 {
		run(client.SetMinInjection(ctx, setMin))
	}
	if setMinBattery >= 0 {
		run(client.SetMinBatteryPercentage(ctx, setMinBattery))
	}
}

func run(v map[string]any, err error) {
	if err != nil {
		log.Fatalf("request: %v", err)
	}
	printJSON(v)
}

func printJSON(v any) {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		log.Fatalf("encode output: %v", err)
	}
}
