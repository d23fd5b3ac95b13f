// mocksol runs the simulated Sol backend, useful for developing against
// the SDK without a physical SolMate.
package main

import (
	"flag"
	"log"
	"log/slog"
	"net/http"
	"strings"

	"solmate-sdk/internal/logger"
	"solmate-sdk/internal/simulator"
)

func main() {
	var listen string
	var accounts string
	var level string
	flag.StringVar(&listen, "listen", ":9124", "listen address")
	flag.StringVar(&accounts, "accounts", "test1:password", "comma-separated serial:password pairs")
	flag.StringVar(&level, "log-level", "INFO", "log level")
	flag.Parse()

	lg := logger.Initialize(logger.Config{Level: level})

	sim := simulator.New(lg)
	n := 0
	for _, pair := range strings.Split(accounts, ",") {
		pair = strings.TrimSpace(pair)
		if pair == "" {
			continue
		}
		serial, password, ok := strings.Cut(pair, ":")
		if !ok {
			log.Fatalf("invalid account %q, want serial:password", pair)
		}
		sim.AddSolMate(serial, password)
		n++
	}
	if n == 0 {
		log.Fatalf("no accounts configured")
	}

	slog.Info("mock sol backend listening", "addr", listen, "accounts", n)
	if err := http.ListenAndServe(listen, sim); err != nil {
		log.Fatalf("listen: %v", err)
	}
}
