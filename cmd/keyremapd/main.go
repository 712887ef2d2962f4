// keyremapd - remaps keys while a chosen application has focus
//
//	keyremapd [run]                 Run the remapper (tray icon, or --console)
//	keyremapd check                 Validate the configuration and list mappings
//	keyremapd keys                  List key names accepted in mappings
//	keyremapd init                  Write the default configuration
//	keyremapd startup <action>      Manage start with Windows
//	keyremapd version               Print the version
package main

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"strings"
	"text/tabwriter"

	"keyremapd/internal/config"
	"keyremapd/internal/keys"
	"keyremapd/internal/logging"
	"keyremapd/internal/remap"
	"keyremapd/internal/startup"
)

var version = "dev"

func main() {
	args := os.Args[1:]

	// A bare flag list (as registered in the Run key) means "run".
	cmd := "run"
	if len(args) > 0 && !strings.HasPrefix(args[0], "-") {
		cmd, args = args[0], args[1:]
	}

	switch cmd {
	case "run":
		cmdRun(args)
	case "check":
		cmdCheck(args)
	case "keys":
		cmdKeys(args)
	case "init":
		cmdInit(args)
	case "startup":
		cmdStartup(args)
	case "version":
		fmt.Printf("keyremapd %s\n", version)
	case "help":
		usage()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", cmd)
		usage()
		os.Exit(1)
	}
}

func usage() {
	fmt.Println(`keyremapd - Per-application keyboard remapper

USAGE:
    keyremapd [command] [options]

COMMANDS:
    run                 Run the remapper (default)
    check               Validate the configuration and list mappings
    keys                List key names accepted in mappings
    init                Write the default configuration file
    startup <action>    enable | disable | status for start with Windows
    version             Print the version
    help                Show this help message

RUN OPTIONS:
    --config <path>     Configuration file (default: next to the executable,
                        then the user config directory)
    --console           Log to the console and stop with Ctrl+C instead of
                        showing a tray icon
    --startup           Started at login: hide informational notifications
    --log-level <lvl>   Override logging.level (debug, info, warn, error)

Remapping is active only while the foreground process name contains
target_application. Edits to the configuration file are applied
automatically.`)
}

func cmdCheck(args []string) {
	fs := flag.NewFlagSet("check", flag.ExitOnError)
	configPath := fs.String("config", "", "configuration file")
	fs.Parse(args)

	path := config.FindConfigFile(*configPath)
	cfg, err := config.Load(path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	table, problems := remap.ParseTable(pairsOf(cfg))

	fmt.Printf("Config file:        %s\n", path)
	fmt.Printf("Target application: %s\n", cfg.TargetApplication)
	if cfg.TargetWindowTitle != "" {
		fmt.Printf("Target window:      %s\n", cfg.TargetWindowTitle)
	}
	fmt.Printf("Focus interval:     %s\n", cfg.FocusInterval())
	if cfg.ToggleHotkey != "" {
		fmt.Printf("Toggle hotkey:      %s\n", cfg.ToggleHotkey)
	}
	fmt.Printf("Mappings:           %d/%d keys parsed\n", table.Len(), len(cfg.Mappings))
	if summary := crashSummary(logging.DefaultCrashDir()); summary != "" {
		fmt.Printf("Crash reports:      %s\n", summary)
	}
	fmt.Println()

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	for _, m := range table.Mappings() {
		fmt.Fprintf(w, "    %s\t->\t%s\n", keys.Describe(m.From), keys.Describe(m.To))
	}
	w.Flush()

	if len(problems) > 0 {
		fmt.Println()
		for _, p := range problems {
			fmt.Printf("Warning: %v\n", p)
		}
		os.Exit(2)
	}
}

func cmdKeys(args []string) {
	fs := flag.NewFlagSet("keys", flag.ExitOnError)
	fs.Parse(args)

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "NAME\tVK\tDESCRIPTION\tALIASES")
	for _, name := range keys.Names() {
		code := keys.MustParse(name)
		if keys.Name(code) != name {
			continue
		}
		fmt.Fprintf(w, "%s\t0x%02X\t%s\t%s\n", name, uint32(code), keys.Describe(code),
			strings.Join(keys.Aliases(code)[1:], " "))
	}
	w.Flush()
}

func cmdInit(args []string) {
	fs := flag.NewFlagSet("init", flag.ExitOnError)
	configPath := fs.String("config", "", "configuration file to write")
	force := fs.Bool("force", false, "overwrite an existing file")
	fs.Parse(args)

	path := *configPath
	if path == "" {
		path = config.ConfigPath()
	}

	if _, err := os.Stat(path); err == nil && !*force {
		fmt.Fprintf(os.Stderr, "Error: %s already exists (use --force to overwrite)\n", path)
		os.Exit(1)
	}

	if err := config.SaveConfig(config.DefaultConfig(), path); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("Wrote default configuration to %s\n", path)
}

func cmdStartup(args []string) {
	if len(args) < 1 {
		fmt.Fprintln(os.Stderr, "Usage: keyremapd startup <enable|disable|status>")
		os.Exit(1)
	}

	var err error
	switch args[0] {
	case "enable":
		if err = startup.Enable(); err == nil {
			fmt.Println("keyremapd will start with Windows.")
		}
	case "disable":
		if err = startup.Disable(); err == nil {
			fmt.Println("keyremapd will no longer start with Windows.")
		}
	case "status":
		var cmd string
		if cmd, err = startup.Command(); err == nil {
			if cmd == "" {
				fmt.Println("Start with Windows: disabled")
			} else {
				fmt.Printf("Start with Windows: enabled (%s)\n", cmd)
			}
		}
	default:
		fmt.Fprintf(os.Stderr, "Unknown startup action: %s\n", args[0])
		os.Exit(1)
	}

	if err != nil {
		if errors.Is(err, startup.ErrUnsupported) {
			fmt.Fprintln(os.Stderr, "Start with Windows is only available on Windows.")
		} else {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		}
		os.Exit(1)
	}
}
