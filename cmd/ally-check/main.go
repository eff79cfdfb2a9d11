// Command ally-check verifies Danfoss Ally credentials by fetching the device
// list once and printing it, optionally writing the result to a local SQLite file.
package main

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"text/tabwriter"
	"time"

	"hometemp/config"
	"hometemp/internal/core"
	"hometemp/internal/danfoss"
	"hometemp/internal/storage/sqlite"

	flag "github.com/spf13/pflag"
)

func main() {
	if err := run(); err != nil {
		log.Fatalf("ally-check: %v", err)
	}
}

func run() error {
	// Parse command line flags
	configPath := flag.String("config", "", "Path to an optional YAML/JSON config file")
	envFile := flag.String("env-file", ".env", "Path to an optional dotenv file")
	sqlitePath := flag.String("sqlite", "", "Also write the fetched devices into this SQLite file")
	timeout := flag.Duration("timeout", 30*time.Second, "Overall timeout")
	flag.Parse()

	cfg, err := config.Load(config.Options{ConfigFile: *configPath, EnvFile: *envFile})
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	client := danfoss.NewClient(danfoss.Config{
		APIKey:    cfg.Danfoss.APIKey,
		APISecret: cfg.Danfoss.APISecret,
		BaseURL:   cfg.Danfoss.BaseURL,
		Timeout:   cfg.Danfoss.Timeout,
	})

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	fmt.Printf("Testing Danfoss Ally API...\n")
	fmt.Printf("Base URL: %s\n\n", cfg.Danfoss.BaseURL)

	token, err := client.AcquireToken(ctx)
	if err != nil {
		return fmt.Errorf("token request failed (%s): %w", core.KindOf(err), err)
	}
	fmt.Printf("Token acquired: type=%s expires_in=%ds\n\n", token.TokenType, token.ExpiresIn)

	devices, err := client.FetchDevices(ctx, token)
	if err != nil {
		return fmt.Errorf("device request failed (%s): %w", core.KindOf(err), err)
	}

	printDevices(os.Stdout, devices)

	if *sqlitePath == "" {
		return nil
	}
	if err := writeSQLite(ctx, *sqlitePath, devices, time.Now()); err != nil {
		return err
	}
	fmt.Printf("\nWrote %d devices and %d statuses to %s\n", len(devices), core.StatusCount(devices), *sqlitePath)
	return nil
}

// writeSQLite stores one cycle in the given SQLite file and always closes it
func writeSQLite(ctx context.Context, path string, devices []core.Device, capturedAt time.Time) (err error) {
	store, err := sqlite.New(path, nil)
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer func() {
		if closeErr := store.Close(); closeErr != nil && err == nil {
			err = fmt.Errorf("failed to close %s: %w", path, closeErr)
		}
	}()

	if err := store.WriteDevices(ctx, devices, capturedAt); err != nil {
		return fmt.Errorf("failed to write devices: %w", err)
	}
	return nil
}

func printDevices(out io.Writer, devices []core.Device) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tNAME\tTYPE\tONLINE\tTEMPERATURE")
	for i := range devices {
		d := &devices[i]
		temp := "-"
		if temps := d.Temperatures(); len(temps) > 0 {
			temp = fmt.Sprintf("%s=%s", temps[0].Code, string(temps[0].Value))
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%t\t%s\n", d.ID, d.Name, d.DeviceType, d.Online, temp)
	}
	w.Flush()
	fmt.Fprintf(out, "\n%d devices\n", len(devices))
}
