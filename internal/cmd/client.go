package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/logmule/logmule/internal/config"
	"github.com/logmule/logmule/internal/intake"
)

const clientTimeout = 30 * time.Second

func newFlushCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "flush",
		Short: "Drain the buffered log to the sink now",
		RunE: func(cmd *cobra.Command, args []string) error {
			configPath, _ := cmd.Flags().GetString("config")

			var res intake.FlushResponse
			if err := callDaemon(cmd.Context(), http.MethodPost, configPath, "/v1/flush", &res); err != nil {
				return err
			}
			if res.Sent == 0 {
				fmt.Println("nothing to flush")
				return nil
			}
			fmt.Printf("flushed %d entries\n", res.Sent)
			return nil
		},
	}
}

func newStatusCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show daemon status",
		RunE: func(cmd *cobra.Command, args []string) error {
			configPath, _ := cmd.Flags().GetString("config")

			var st intake.StatusResponse
			if err := callDaemon(cmd.Context(), http.MethodGet, configPath, "/v1/status", &st); err != nil {
				return err
			}

			fmt.Printf("agent:   %s\n", st.AgentID)
			fmt.Printf("uptime:  %s\n", time.Duration(st.UptimeSeconds)*time.Second)
			if st.Link != nil {
				fmt.Printf("link:    %s\n", st.Link.String())
			} else {
				fmt.Printf("link:    unavailable (%s)\n", st.LinkError)
			}
			fmt.Printf("buffer:  %d entries, %d bytes\n", st.Buffer.Entries, st.Buffer.Bytes)
			if lf := st.LastFlush; lf != nil {
				if lf.Error != "" {
					fmt.Printf("last flush: failed at %s: %s\n", lf.At.Format(time.RFC3339), lf.Error)
				} else {
					fmt.Printf("last flush: delivered %d at %s\n", lf.Sent, lf.At.Format(time.RFC3339))
				}
			}
			return nil
		},
	}
}

// intakeTarget resolves the running daemon's API base URL and optional
// API key. The config supplies both; LOGMULE_API overrides the URL.
func intakeTarget(configPath string) (base, header, key string) {
	base = "http://" + config.DefaultListen
	if cfg, err := config.Load(configPath); err == nil {
		base = "http://" + cfg.Intake.Listen
		if cfg.Intake.Auth.Mode == "apikey" {
			header = cfg.Intake.Auth.Header
			key = cfg.Intake.Auth.Key()
		}
	}
	if v := os.Getenv("LOGMULE_API"); v != "" {
		base = v
	}
	return base, header, key
}

// callDaemon performs one request against the daemon's intake API and
// decodes the JSON response into out.
func callDaemon(ctx context.Context, method, configPath, path string, out interface{}) error {
	base, header, key := intakeTarget(configPath)

	req, err := http.NewRequestWithContext(ctx, method, base+path, nil)
	if err != nil {
		return err
	}
	if header != "" && key != "" {
		req.Header.Set(header, key)
	}

	client := &http.Client{Timeout: clientTimeout}
	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("reach daemon at %s (is it running?): %w", base, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var e struct {
			Error string `json:"error"`
		}
		if json.Unmarshal(body, &e) == nil && e.Error != "" {
			return fmt.Errorf("daemon: %s (HTTP %d)", e.Error, resp.StatusCode)
		}
		return fmt.Errorf("daemon: HTTP %d", resp.StatusCode)
	}
	if out != nil {
		if err := json.Unmarshal(body, out); err != nil {
			return fmt.Errorf("decode response: %w", err)
		}
	}
	return nil
}
