package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"sort"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"golang.org/x/term"

	"github.com/balihome/balirelay/internal/config"
	"github.com/balihome/balirelay/internal/mms"
	"github.com/balihome/balirelay/internal/relay"
	"github.com/balihome/balirelay/internal/ui"
)

// Command flags
var (
	outputFormat   string
	requestTimeout int
	deviceFilter   string
)

func init() {
	rootCmd.PersistentFlags().StringVar(&outputFormat, "format", "detailed", "Output format (detailed, json)")
	rootCmd.PersistentFlags().IntVar(&requestTimeout, "timeout", 30, "Per-request timeout in seconds")
	rootCmd.PersistentPreRun = applyPreferences

	rootCmd.AddCommand(loginCmd)
	rootCmd.AddCommand(infoCmd)
	rootCmd.AddCommand(devicesCmd)
	rootCmd.AddCommand(itemsCmd)
	rootCmd.AddCommand(setCmd)
	rootCmd.AddCommand(watchCmd)
}

// loginCmd verifies portal credentials and stores the account username.
var loginCmd = &cobra.Command{
	Use:   "login <username>",
	Short: "Log in to the Bali cloud portal",
	Long: `Verify your Bali Motorization account against the MMS cloud portal
and remember the username for later commands.

The password is read interactively (or from the BALI_PASSWORD environment
variable) and is never written to disk. Subsequent commands prompt for it
again or read it from the environment.`,
	Example: `  # Interactive password prompt
  balictl login user@example.com

  # Non-interactive (scripting)
  BALI_PASSWORD=secret balictl login user@example.com`,
	Args: cobra.ExactArgs(1),
	RunE: runLogin,
}

func runLogin(cmd *cobra.Command, args []string) error {
	username := args[0]

	password, err := readPassword(username)
	if err != nil {
		return err
	}

	settings, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	resolver := newResolver(username, password, settings)

	ctx, cancel := requestContext()
	defer cancel()

	fmt.Println("Verifying credentials against the cloud portal...")
	creds, err := resolver.Resolve(ctx)
	if err != nil {
		return fmt.Errorf("login failed: %w", err)
	}

	settings.Account = &config.Account{
		Username: username,
		LastUsed: time.Now(),
	}
	meta := settings.EnsureDevice(creds.DeviceID)
	meta.LastSeen = time.Now()

	if err := config.Save(settings); err != nil {
		return fmt.Errorf("failed to save config: %w", err)
	}

	fmt.Println()
	fmt.Println(ui.SuccessStyle.Render("✓ Logged in"))
	fmt.Println(ui.Field("Account", username))
	fmt.Println(ui.Field("Hub", creds.DeviceID))
	fmt.Println(ui.Field("Relay", creds.ServerRelay))
	return nil
}

// infoCmd prints hub identification and firmware details.
var infoCmd = &cobra.Command{
	Use:   "info",
	Short: "Show hub information",
	Long:  `Connect to the hub's cloud relay and display its identification, firmware, and status details.`,
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withSession(func(ctx context.Context, sess *relay.Session) error {
			info, err := sess.Info(ctx)
			if err != nil {
				return fmt.Errorf("failed to fetch hub info: %w", err)
			}

			if outputFormat == "json" {
				return printJSON(info)
			}

			fmt.Println(ui.HeaderStyle.Render("HUB"))
			for _, key := range sortedKeys(info) {
				fmt.Println("  " + ui.Field(key, fmt.Sprintf("%v", info[key])))
			}
			return nil
		})
	},
}

// devicesCmd lists the devices paired to the hub.
var devicesCmd = &cobra.Command{
	Use:   "devices",
	Short: "List devices paired to the hub",
	Example: `  # Human-readable listing
  balictl devices

  # JSON for scripting
  balictl devices --format json`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withSession(func(ctx context.Context, sess *relay.Session) error {
			devices, err := sess.Devices(ctx)
			if err != nil {
				return fmt.Errorf("failed to list devices: %w", err)
			}

			if outputFormat == "json" {
				return printJSON(devices)
			}

			if len(devices) == 0 {
				fmt.Println("No devices paired to this hub.")
				return nil
			}

			fmt.Println(ui.HeaderStyle.Render(fmt.Sprintf("DEVICES (%d)", len(devices))))
			for _, dev := range devices {
				fmt.Printf("\n  %s  [%s]\n", ui.ValueStyle.Render(dev.Name), ui.Reachable(dev.Reachable))
				fmt.Println("    " + ui.Field("ID", dev.ID))
				fmt.Println("    " + ui.Field("Category", dev.Category))
				if dev.BatteryPowered {
					fmt.Println("    " + ui.Field("Power", "battery"))
				}
			}
			return nil
		})
	},
}

// itemsCmd lists controllable items, optionally scoped to one device.
var itemsCmd = &cobra.Command{
	Use:   "items",
	Short: "List item states",
	Long: `List the hub's items (controllable and readable state variables),
optionally scoped to a single device.`,
	Example: `  # All items on the hub
  balictl items

  # Items belonging to one device
  balictl items --device 5fd39b4bc61f7a34ea3b2c11`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withSession(func(ctx context.Context, sess *relay.Session) error {
			var scope []string
			if deviceFilter != "" {
				scope = append(scope, deviceFilter)
			}

			items, err := sess.Items(ctx, scope...)
			if err != nil {
				return fmt.Errorf("failed to list items: %w", err)
			}

			if outputFormat == "json" {
				return printJSON(items)
			}

			if len(items) == 0 {
				fmt.Println("No items found.")
				return nil
			}

			fmt.Println(ui.HeaderStyle.Render(fmt.Sprintf("ITEMS (%d)", len(items))))
			for _, item := range items {
				fmt.Printf("\n  %s = %v\n", ui.ValueStyle.Render(item.Name), item.Value)
				fmt.Println("    " + ui.Field("ID", item.ID))
				fmt.Println("    " + ui.Field("Device", item.DeviceID))
				fmt.Println("    " + ui.Field("Type", item.ValueType))
				if item.HasSetter {
					fmt.Println("    " + ui.SuccessStyle.Render("settable"))
				}
			}
			return nil
		})
	},
}

func init() {
	itemsCmd.Flags().StringVar(&deviceFilter, "device", "", "Only list items for this device id")
}

// setCmd writes a value to one or more items.
var setCmd = &cobra.Command{
	Use:   "set <value> <item-id> [item-id...]",
	Short: "Set an item value",
	Long: `Set the value of one or more items. With a single item id the hub's
single-item form is used; with several, a multicast set targets them all.

Values are sent as numbers when they parse as one, as booleans for
true/false, and as strings otherwise.`,
	Example: `  # Move one blind to 75%
  balictl set 75 5fd39b4bc61f7a34ea3b2c12

  # Close several blinds at once
  balictl set 0 5fd39b4bc61f7a34ea3b2c12 5fd39b4bc61f7a34ea3b2c13`,
	Args: cobra.MinimumNArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		value := coerceValue(args[0])
		itemIDs := args[1:]

		return withSession(func(ctx context.Context, sess *relay.Session) error {
			if err := sess.SetItemValue(ctx, value, itemIDs...); err != nil {
				return fmt.Errorf("failed to set item value: %w", err)
			}
			fmt.Println(ui.SuccessStyle.Render(fmt.Sprintf("✓ Set %d item(s) to %v", len(itemIDs), value)))
			return nil
		})
	},
}

// watchCmd streams live item updates for a device.
var watchCmd = &cobra.Command{
	Use:   "watch <device-id>",
	Short: "Stream live item updates for a device",
	Long: `Subscribe to the hub's broadcast stream and print every item update
for the given device as it arrives. Runs until interrupted.`,
	Example: `  balictl watch 5fd39b4bc61f7a34ea3b2c11`,
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		deviceID := args[0]

		sess, err := newSession()
		if err != nil {
			return err
		}
		defer sess.Close()

		sess.AddItemObserver(deviceID, func(update relay.ItemUpdate) {
			if outputFormat == "json" {
				if data, err := json.Marshal(update); err == nil {
					fmt.Println(string(data))
				}
				return
			}
			ts := time.Now().Format("15:04:05")
			fmt.Printf("%s  %s = %v\n", ui.LabelStyle.Render(ts), ui.ValueStyle.Render(update.Name), update.Value)
		})

		ctx, cancel := requestContext()
		err = sess.Connect(ctx)
		cancel()
		if err != nil {
			return fmt.Errorf("failed to connect: %w", err)
		}

		fmt.Printf("Watching device %s (Ctrl-C to stop)...\n", deviceID)

		stop := make(chan os.Signal, 1)
		signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
		<-stop

		fmt.Println("\nStopping.")
		return nil
	},
}

// withSession runs fn against a connected relay session, closing it after.
func withSession(fn func(context.Context, *relay.Session) error) error {
	sess, err := newSession()
	if err != nil {
		return err
	}
	defer sess.Close()

	ctx, cancel := requestContext()
	defer cancel()

	return fn(ctx, sess)
}

// newSession builds a relay session backed by the stored account. The
// password comes from BALI_PASSWORD or an interactive prompt; it is held
// only in memory for the life of the command.
func newSession() (*relay.Session, error) {
	settings, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	username := settings.UsernameOrEmpty()
	if username == "" {
		return nil, fmt.Errorf("not logged in: run 'balictl login <username>' first")
	}

	password, err := readPassword(username)
	if err != nil {
		return nil, err
	}

	resolver := newResolver(username, password, settings)
	return relay.NewSession(resolver, relay.Config{}), nil
}

// newResolver applies any configured portal overrides to a fresh resolver.
func newResolver(username, password string, settings *config.Settings) *mms.Resolver {
	resolver := mms.NewResolver(username, password)
	if settings.Portal != nil && (settings.Portal.AuthHost != "" || settings.Portal.OEM != "") {
		resolver.SetPortal(settings.Portal.AuthHost, settings.Portal.OEM)
	}
	return resolver
}

// readPassword takes the portal password from BALI_PASSWORD or prompts for
// it on the terminal without echo.
func readPassword(username string) (string, error) {
	if password := os.Getenv("BALI_PASSWORD"); password != "" {
		return password, nil
	}

	if !term.IsTerminal(int(os.Stdin.Fd())) {
		return "", fmt.Errorf("no password available: set BALI_PASSWORD or run interactively")
	}

	fmt.Printf("Password for %s: ", username)
	raw, err := term.ReadPassword(int(os.Stdin.Fd()))
	fmt.Println()
	if err != nil {
		return "", fmt.Errorf("failed to read password: %w", err)
	}
	if len(raw) == 0 {
		return "", fmt.Errorf("empty password")
	}
	return string(raw), nil
}

// applyPreferences seeds flag-backed settings from the stored preferences
// before any command runs. Flags given on the command line win.
func applyPreferences(cmd *cobra.Command, args []string) {
	settings, err := config.Load()
	if err != nil {
		return
	}
	applyStoredPreferences(cmd.Root().PersistentFlags(), settings.Preferences)
}

func applyStoredPreferences(flags *pflag.FlagSet, prefs *config.Preferences) {
	if prefs == nil {
		return
	}
	if prefs.OutputFormat != "" && !flags.Changed("format") {
		outputFormat = prefs.OutputFormat
	}
	if prefs.RequestTimeout > 0 && !flags.Changed("timeout") {
		requestTimeout = prefs.RequestTimeout
	}
}

func requestContext() (context.Context, context.CancelFunc) {
	timeout := time.Duration(requestTimeout) * time.Second
	return context.WithTimeout(context.Background(), timeout)
}

// coerceValue maps a CLI argument to the JSON type the hub expects.
func coerceValue(raw string) any {
	switch strings.ToLower(raw) {
	case "true":
		return true
	case "false":
		return false
	}
	num := json.Number(raw)
	if i, err := num.Int64(); err == nil {
		return i
	}
	if f, err := num.Float64(); err == nil {
		return f
	}
	return raw
}

func printJSON(v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode output: %w", err)
	}
	fmt.Println(string(data))
	return nil
}

func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for key := range m {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}
