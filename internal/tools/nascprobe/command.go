package nascprobe

import (
	"context"
	"encoding/binary"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/retendo/account/internal/nintendo"
	"github.com/retendo/account/internal/tools/common"
	"github.com/retendo/account/internal/tools/loadgen"
	"github.com/retendo/account/internal/tools/ui"
)

type options struct {
	baseURL     string
	serial      string
	mac         string
	titleID     string
	environment string
	userID      string
	ci          bool
}

func NewRootCommand() *cobra.Command {
	opts := &options{}
	cmd := &cobra.Command{Use: "nascprobe", Short: "Exercise the console exchange endpoint of a running service"}
	cmd.PersistentFlags().StringVar(&opts.baseURL, "base-url", "http://localhost:8080", "service base URL")
	cmd.PersistentFlags().StringVar(&opts.serial, "serial", "CW404567890", "console serial number")
	cmd.PersistentFlags().StringVar(&opts.mac, "mac", "0009BF001122", "console MAC address")
	cmd.PersistentFlags().StringVar(&opts.titleID, "title-id", "000400300000A000", "title requesting a game server")
	cmd.PersistentFlags().StringVar(&opts.environment, "environment", "L1", "server environment")
	cmd.PersistentFlags().StringVar(&opts.userID, "user-id", "", "linked PID, empty for an unregistered console")
	cmd.PersistentFlags().BoolVar(&opts.ci, "ci", false, "non-interactive machine-readable output")
	cmd.AddCommand(newExchangeCommand(opts))
	cmd.AddCommand(newLoadCommand(opts))
	return cmd
}

func newExchangeCommand(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "exchange",
		Short: "Perform a single LOGIN exchange and decode the reply",
		RunE: func(cmd *cobra.Command, args []string) error {
			details, err := run(opts, "nascprobe exchange", func(ctx context.Context) ([]string, error) {
				return exchange(ctx, opts)
			})
			if opts.ci {
				common.PrintCIResult(err == nil, "nascprobe exchange", details, err)
			}
			if err != nil {
				os.Exit(4)
			}
			return nil
		},
	}
}

func newLoadCommand(opts *options) *cobra.Command {
	var (
		profile     string
		duration    time.Duration
		rps         int
		concurrency int
	)
	cmd := &cobra.Command{
		Use:   "load",
		Short: "Generate synthetic console traffic",
		RunE: func(cmd *cobra.Command, args []string) error {
			details, err := run(opts, "nascprobe load", func(ctx context.Context) ([]string, error) {
				res, err := loadgen.Run(ctx, loadgen.Config{
					BaseURL:     opts.baseURL,
					Profile:     profile,
					Duration:    duration,
					RPS:         rps,
					Concurrency: concurrency,
					Seed:        42,
				})
				if err != nil {
					return nil, err
				}
				details := []string{fmt.Sprintf("traffic generated total=%d failures=%d", res.TotalRequests, res.Failures)}
				for class, count := range res.StatusClasses {
					details = append(details, fmt.Sprintf("status %s: %d", class, count))
				}
				return details, nil
			})
			if opts.ci {
				common.PrintCIResult(err == nil, "nascprobe load", details, err)
			}
			if err != nil {
				os.Exit(4)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&profile, "profile", "mixed", "traffic profile: nasc, api or mixed")
	cmd.Flags().DurationVar(&duration, "duration", 6*time.Second, "run duration")
	cmd.Flags().IntVar(&rps, "rps", 20, "target requests per second")
	cmd.Flags().IntVar(&concurrency, "concurrency", 6, "worker count")
	return cmd
}

func run(opts *options, title string, fn func(context.Context) ([]string, error)) ([]string, error) {
	if opts.ci {
		ctx, cancel := context.WithTimeout(context.Background(), 3*time.Minute)
		defer cancel()
		return fn(ctx)
	}
	return ui.Run(title, fn)
}

func exchange(ctx context.Context, opts *options) ([]string, error) {
	enc := func(s string) string { return nintendo.Base64Encode([]byte(s)) }
	form := url.Values{}
	form.Set("action", enc("LOGIN"))
	form.Set("fcdcert", nintendo.Base64Encode(buildCertificate()))
	form.Set("csnum", enc(opts.serial))
	form.Set("macadr", enc(opts.mac))
	form.Set("titleid", enc(opts.titleID))
	form.Set("servertype", enc(opts.environment))
	if opts.userID != "" {
		form.Set("userid", enc(opts.userID))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		strings.TrimRight(opts.baseURL, "/")+"/ac", strings.NewReader(form.Encode()))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := (&http.Client{Timeout: 20 * time.Second}).Do(req)
	if err != nil {
		return nil, err
	}
	defer func() { _ = resp.Body.Close() }()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	details, returnCode := decodeResponse(string(body))
	details = append([]string{fmt.Sprintf("http status %d", resp.StatusCode)}, details...)
	if returnCode == "" {
		return details, fmt.Errorf("reply carries no returncd field")
	}
	return details, nil
}

// decodeResponse splits the k=v& reply and decodes each value back to
// text. Error replies carry some fields unencoded, so a value only gets
// replaced when it decodes to printable text.
func decodeResponse(body string) ([]string, string) {
	var details []string
	var returnCode string
	for _, pair := range strings.Split(body, "&") {
		key, value, ok := strings.Cut(pair, "=")
		if !ok {
			continue
		}
		if decoded, err := nintendo.Base64Decode(value); err == nil && printable(decoded) {
			value = string(decoded)
		}
		if key == "returncd" {
			returnCode = value
		}
		details = append(details, fmt.Sprintf("%s=%s", key, value))
	}
	return details, returnCode
}

func printable(b []byte) bool {
	for _, c := range b {
		if c < 0x20 || c > 0x7E {
			return false
		}
	}
	return len(b) > 0
}

// buildCertificate assembles a structurally valid ECDSA device certificate.
// It carries no real signature, which is fine: the service only checks the
// structure.
func buildCertificate() []byte {
	raw := make([]byte, 4+0x3C+0x40+0x88)
	binary.BigEndian.PutUint32(raw, 0x10005)
	body := raw[4+0x3C+0x40:]
	copy(body[0x00:], "Nintendo CA - G3_NintendoCTR2prod")
	binary.BigEndian.PutUint32(body[0x40:], 0x2)
	copy(body[0x44:], "CT0A1B2C3D")
	binary.BigEndian.PutUint32(body[0x84:], 0x11223344)
	return raw
}
