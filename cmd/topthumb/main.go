package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/phsym/console-slog"
	"gopkg.in/yaml.v3"

	"github.com/1broseidon/topthumb/internal/config"
	"github.com/1broseidon/topthumb/internal/ipc"
	"github.com/1broseidon/topthumb/internal/picker"
	"github.com/1broseidon/topthumb/internal/platform"
	"github.com/1broseidon/topthumb/internal/preview"
	"github.com/1broseidon/topthumb/internal/runtimepath"
)

func main() {
	godotenv.Load()

	if len(os.Args) < 2 {
		printMainUsage(os.Stdout)
		os.Exit(0)
	}

	switch os.Args[1] {
	case "run":
		os.Exit(runPreview(os.Args[2:]))
	case "list":
		os.Exit(runList(os.Args[2:]))
	case "windows":
		os.Exit(runWindows(os.Args[2:]))
	case "status":
		os.Exit(runStatus(os.Args[2:]))
	case "reset":
		os.Exit(runReset(os.Args[2:]))
	case "crop":
		os.Exit(runCrop(os.Args[2:]))
	case "config":
		os.Exit(runConfig(os.Args[2:]))
	case "mcp":
		os.Exit(runMCP(os.Args[2:]))
	case "help", "-h", "--help":
		printMainUsage(os.Stdout)
		os.Exit(0)
	default:
		// A bare title query is shorthand for "run <title>".
		if strings.HasPrefix(os.Args[1], "-") {
			fmt.Fprintf(os.Stderr, "Unknown flag: %s\n\n", os.Args[1])
			printMainUsage(os.Stderr)
			os.Exit(2)
		}
		os.Exit(runPreview(os.Args[1:]))
	}
}

func printMainUsage(w io.Writer) {
	fmt.Fprintln(w, "Usage: topthumb <window title> | topthumb <command> [options]")
	fmt.Fprintln(w, "")
	fmt.Fprintln(w, "Commands:")
	fmt.Fprintln(w, "  run <title>         Preview the window whose title contains <title>")
	fmt.Fprintln(w, "  windows <title>     List windows whose title contains <title>")
	fmt.Fprintln(w, "  list                List running previews")
	fmt.Fprintln(w, "")
	fmt.Fprintln(w, "  status              Show crop state of a running preview")
	fmt.Fprintln(w, "  reset               Restore the full view of a running preview")
	fmt.Fprintln(w, "  crop                Crop a running preview to a rectangle")
	fmt.Fprintln(w, "")
	fmt.Fprintln(w, "  config init         Write the default configuration file")
	fmt.Fprintln(w, "  config validate     Validate configuration")
	fmt.Fprintln(w, "  config print        Print configuration")
	fmt.Fprintln(w, "  config explain      Explain a config value")
	fmt.Fprintln(w, "")
	fmt.Fprintln(w, "  mcp serve           Start MCP server (stdio transport)")
	fmt.Fprintln(w, "")
	fmt.Fprintln(w, "In the preview: drag with the left button to crop, right click or")
	fmt.Fprintln(w, "press r to restore the full view, q to quit.")
	fmt.Fprintln(w, "")
	fmt.Fprintln(w, "Run 'topthumb <command> --help' for command-specific options.")
}

// initLogger installs the console handler at the configured level.
func initLogger(level string, debug bool) *slog.Logger {
	lvl := parseLevel(level)
	if debug {
		lvl = slog.LevelDebug
	}
	logger := slog.New(console.NewHandler(os.Stderr, &console.HandlerOptions{
		Level: lvl,
	}))
	slog.SetDefault(logger)
	return logger
}

func parseLevel(level string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func loadConfig(path string) (*config.Config, error) {
	if path == "" {
		return config.Load()
	}
	res, err := config.LoadFromPath(path)
	if err != nil {
		return nil, err
	}
	return res.Config, nil
}

func runPreview(args []string) int {
	fs := flag.NewFlagSet("run", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	path := fs.String("path", "", "Config file path (default: ~/.config/topthumb/config.yaml)")
	debug := fs.Bool("debug", false, "Enable debug logging")
	display := fs.String("display", "", "X display to connect to (default: $DISPLAY)")
	fs.Usage = func() {
		fmt.Fprintln(os.Stderr, "Usage: topthumb run [--path PATH] [--debug] [--display DISPLAY] <window title>")
		fmt.Fprintln(os.Stderr, "")
		fmt.Fprintln(os.Stderr, "Show an always-on-top live preview of the window whose title contains")
		fmt.Fprintln(os.Stderr, "<window title>. When several windows match you are asked to pick one.")
		fmt.Fprintln(os.Stderr, "")
		fs.PrintDefaults()
	}
	if err := fs.Parse(args); err != nil {
		if err == flag.ErrHelp {
			return 0
		}
		return 2
	}
	if fs.NArg() != 1 {
		fmt.Fprintln(os.Stderr, "run requires exactly one <window title>")
		fs.Usage()
		return 2
	}

	cfg, err := loadConfig(*path)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	if *display != "" {
		cfg.Display = *display
	}
	logger := initLogger(cfg.LogLevel, *debug)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	err = preview.Run(ctx, preview.Options{
		Query:  fs.Arg(0),
		Config: cfg,
		Choose: picker.ForTerminal(),
		Out:    os.Stdout,
		Logger: logger,
	})
	return previewExitCode(err, os.Stdout, logger)
}

// previewExitCode maps the outcome of a preview run onto the process exit
// code.
func previewExitCode(err error, out io.Writer, logger *slog.Logger) int {
	switch {
	case err == nil:
		return 0
	case errors.Is(err, picker.ErrQuit):
		return 0
	case errors.Is(err, picker.ErrNoWindows):
		fmt.Fprintln(out, "No windows found!")
		return 1
	default:
		logger.Error("preview failed", "error", err)
		return 1
	}
}

func runWindows(args []string) int {
	fs := flag.NewFlagSet("windows", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	display := fs.String("display", "", "X display to connect to (default: $DISPLAY)")
	jsonOut := fs.Bool("json", false, "Print JSON")
	fs.Usage = func() {
		fmt.Fprintln(os.Stderr, "Usage: topthumb windows [--display DISPLAY] [--json] <window title>")
		fmt.Fprintln(os.Stderr, "")
		fmt.Fprintln(os.Stderr, "List windows whose title contains <window title>.")
	}
	if err := fs.Parse(args); err != nil {
		if err == flag.ErrHelp {
			return 0
		}
		return 2
	}
	if fs.NArg() != 1 {
		fmt.Fprintln(os.Stderr, "windows requires exactly one <window title>")
		fs.Usage()
		return 2
	}

	backend, err := platform.NewLinuxBackendFromDisplay(*display, slog.Default())
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	defer backend.Disconnect()

	windows, err := backend.FindWindowsByTitle(fs.Arg(0))
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}

	if *jsonOut {
		return printJSON(windows)
	}
	if len(windows) == 0 {
		fmt.Println("No windows found!")
		return 1
	}
	picker.PrintTable(os.Stdout, windows)
	return 0
}

func runList(args []string) int {
	fs := flag.NewFlagSet("list", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	jsonOut := fs.Bool("json", false, "Print JSON")
	fs.Usage = func() {
		fmt.Fprintln(os.Stderr, "Usage: topthumb list [--json]")
		fmt.Fprintln(os.Stderr, "")
		fmt.Fprintln(os.Stderr, "List running previews of the current user.")
	}
	if err := fs.Parse(args); err != nil {
		if err == flag.ErrHelp {
			return 0
		}
		return 2
	}

	instances, err := runtimepath.ListSockets()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}

	type entry struct {
		PID     int    `json:"pid"`
		Running bool   `json:"running"`
		Title   string `json:"title,omitempty"`
		Phase   string `json:"phase,omitempty"`
		Socket  string `json:"socket"`
	}
	entries := make([]entry, 0, len(instances))
	for _, inst := range instances {
		e := entry{PID: inst.PID, Socket: inst.Socket}
		if status, err := ipc.NewClient(inst.Socket).GetStatus(); err == nil {
			e.Running = true
			e.Title = status.Title
			e.Phase = status.Phase
		}
		entries = append(entries, e)
	}

	if *jsonOut {
		return printJSON(entries)
	}
	if len(entries) == 0 {
		fmt.Println("No running previews")
		return 0
	}
	for _, e := range entries {
		if !e.Running {
			fmt.Printf("%7d  %-11s  (stale socket %s)\n", e.PID, "-", e.Socket)
			continue
		}
		fmt.Printf("%7d  %-11s  %s\n", e.PID, e.Phase, e.Title)
	}
	return 0
}

// dialPreview resolves --pid, or the only running preview when it is zero.
func dialPreview(pid int) (*ipc.Client, error) {
	if pid > 0 {
		return ipc.NewClientForPID(pid)
	}

	instances, err := runtimepath.ListSockets()
	if err != nil {
		return nil, err
	}
	var running []*ipc.Client
	for _, inst := range instances {
		client := ipc.NewClient(inst.Socket)
		if err := client.Ping(); err == nil {
			running = append(running, client)
		}
	}
	switch len(running) {
	case 0:
		return nil, fmt.Errorf("no running previews found")
	case 1:
		return running[0], nil
	default:
		return nil, fmt.Errorf("%d previews are running; pass --pid to pick one", len(running))
	}
}

func runStatus(args []string) int {
	fs := flag.NewFlagSet("status", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	pid := fs.Int("pid", 0, "Preview process id (default: the only running preview)")
	jsonOut := fs.Bool("json", false, "Print JSON")
	fs.Usage = func() {
		fmt.Fprintln(os.Stderr, "Usage: topthumb status [--pid PID] [--json]")
		fmt.Fprintln(os.Stderr, "")
		fmt.Fprintln(os.Stderr, "Show the crop state of a running preview via IPC.")
	}
	if err := fs.Parse(args); err != nil {
		if err == flag.ErrHelp {
			return 0
		}
		return 2
	}
	if fs.NArg() != 0 {
		fmt.Fprintln(os.Stderr, "status takes no arguments")
		fs.Usage()
		return 2
	}

	client, err := dialPreview(*pid)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	status, err := client.GetStatus()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	if *jsonOut {
		return printJSON(status)
	}
	printStatus(os.Stdout, status)
	return 0
}

func printStatus(w io.Writer, status *ipc.StatusData) {
	fmt.Fprintf(w, "pid:            %d\n", status.PID)
	fmt.Fprintf(w, "title:          %s\n", status.Title)
	fmt.Fprintf(w, "phase:          %s\n", status.Phase)
	fmt.Fprintf(w, "tracked_window: 0x%x\n", status.TrackedWindow)
	fmt.Fprintf(w, "preview_window: 0x%x\n", status.PreviewWindow)
	fmt.Fprintf(w, "frame:          %s\n", formatRect(status.Frame))
	fmt.Fprintf(w, "source:         %s\n", formatRect(status.Source))
	fmt.Fprintf(w, "destination:    %s\n", formatRect(status.Destination))
	fmt.Fprintf(w, "uptime_seconds: %d\n", status.UptimeSeconds)
}

func formatRect(r ipc.RectData) string {
	return fmt.Sprintf("(%d,%d)-(%d,%d) %dx%d", r.Left, r.Top, r.Right, r.Bottom, r.Right-r.Left, r.Bottom-r.Top)
}

func runReset(args []string) int {
	fs := flag.NewFlagSet("reset", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	pid := fs.Int("pid", 0, "Preview process id (default: the only running preview)")
	fs.Usage = func() {
		fmt.Fprintln(os.Stderr, "Usage: topthumb reset [--pid PID]")
		fmt.Fprintln(os.Stderr, "")
		fmt.Fprintln(os.Stderr, "Restore the full view of a cropped preview.")
	}
	if err := fs.Parse(args); err != nil {
		if err == flag.ErrHelp {
			return 0
		}
		return 2
	}
	if fs.NArg() != 0 {
		fmt.Fprintln(os.Stderr, "reset takes no arguments")
		fs.Usage()
		return 2
	}

	client, err := dialPreview(*pid)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	if err := client.ResetCrop(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	return 0
}

func runCrop(args []string) int {
	fs := flag.NewFlagSet("crop", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	pid := fs.Int("pid", 0, "Preview process id (default: the only running preview)")
	fs.Usage = func() {
		fmt.Fprintln(os.Stderr, "Usage: topthumb crop [--pid PID] <left> <top> <right> <bottom>")
		fmt.Fprintln(os.Stderr, "")
		fmt.Fprintln(os.Stderr, "Crop a preview to a rectangle in preview window pixels, as if it had")
		fmt.Fprintln(os.Stderr, "been dragged with the mouse. The preview must not already be cropped.")
	}
	if err := fs.Parse(args); err != nil {
		if err == flag.ErrHelp {
			return 0
		}
		return 2
	}

	crop, err := parseCropArgs(fs.Args())
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		fs.Usage()
		return 2
	}

	client, err := dialPreview(*pid)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	if err := client.Crop(crop); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	return 0
}

func parseCropArgs(args []string) (ipc.CropPayload, error) {
	if len(args) != 4 {
		return ipc.CropPayload{}, fmt.Errorf("crop requires <left> <top> <right> <bottom>")
	}
	var vals [4]int
	for i, arg := range args {
		v, err := strconv.Atoi(arg)
		if err != nil {
			return ipc.CropPayload{}, fmt.Errorf("invalid coordinate %q", arg)
		}
		vals[i] = v
	}
	crop := ipc.CropPayload{Left: vals[0], Top: vals[1], Right: vals[2], Bottom: vals[3]}
	if crop.Left == crop.Right || crop.Top == crop.Bottom {
		return ipc.CropPayload{}, fmt.Errorf("crop rectangle has zero area")
	}
	return crop, nil
}

func printJSON(v any) int {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	fmt.Println(string(data))
	return 0
}

func runConfig(args []string) int {
	if len(args) == 0 || args[0] == "help" || args[0] == "-h" || args[0] == "--help" {
		fmt.Fprintln(os.Stderr, "Usage:")
		fmt.Fprintln(os.Stderr, "  topthumb config init [--path PATH] [--force]")
		fmt.Fprintln(os.Stderr, "  topthumb config validate [--path PATH]")
		fmt.Fprintln(os.Stderr, "  topthumb config print [--path PATH] [--effective|--defaults]")
		fmt.Fprintln(os.Stderr, "  topthumb config explain [--path PATH] <yaml.path>")
		return 2
	}

	switch args[0] {
	case "init":
		fs := flag.NewFlagSet("init", flag.ContinueOnError)
		fs.SetOutput(os.Stderr)
		path := fs.String("path", "", "Config file path (default: ~/.config/topthumb/config.yaml)")
		force := fs.Bool("force", false, "Overwrite an existing config file")
		if err := fs.Parse(args[1:]); err != nil {
			return 2
		}

		written, err := initConfig(*path, *force)
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			return 1
		}
		fmt.Printf("config: wrote %s\n", written)
		return 0

	case "validate":
		fs := flag.NewFlagSet("validate", flag.ContinueOnError)
		fs.SetOutput(os.Stderr)
		path := fs.String("path", "", "Config file path (default: ~/.config/topthumb/config.yaml)")
		if err := fs.Parse(args[1:]); err != nil {
			return 2
		}

		if _, err := loadResult(*path); err != nil {
			fmt.Fprintln(os.Stderr, err)
			return 1
		}
		fmt.Println("config: ok")
		return 0

	case "print":
		fs := flag.NewFlagSet("print", flag.ContinueOnError)
		fs.SetOutput(os.Stderr)
		path := fs.String("path", "", "Config file path (default: ~/.config/topthumb/config.yaml)")
		printDefaults := fs.Bool("defaults", false, "Print built-in defaults (no files)")
		fs.Bool("effective", false, "Print effective config (default)")
		if err := fs.Parse(args[1:]); err != nil {
			return 2
		}

		cfg := config.DefaultConfig()
		if !*printDefaults {
			res, err := loadResult(*path)
			if err != nil {
				fmt.Fprintln(os.Stderr, err)
				return 1
			}
			if res.File != "" {
				fmt.Printf("# file: %s\n", res.File)
			}
			cfg = res.Config
		}
		data, err := yaml.Marshal(cfg)
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			return 1
		}
		fmt.Print(string(data))
		return 0

	case "explain":
		fs := flag.NewFlagSet("explain", flag.ContinueOnError)
		fs.SetOutput(os.Stderr)
		path := fs.String("path", "", "Config file path (default: ~/.config/topthumb/config.yaml)")
		if err := fs.Parse(args[1:]); err != nil {
			return 2
		}
		if fs.NArg() < 1 {
			fmt.Fprintln(os.Stderr, "explain requires <yaml.path>")
			return 2
		}
		queryPath := fs.Arg(0)

		res, err := loadResult(*path)
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			return 1
		}

		value, src, err := config.Explain(res, queryPath)
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			return 1
		}

		out, err := yaml.Marshal(value)
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			return 1
		}

		fmt.Printf("path: %s\n", queryPath)
		fmt.Printf("source: %s\n", formatSource(src))
		fmt.Printf("value:\n%s", string(out))
		return 0

	default:
		fmt.Fprintf(os.Stderr, "Unknown config subcommand: %s\n", args[0])
		return 2
	}
}

// initConfig writes the built-in defaults to path and returns where they went.
func initConfig(path string, force bool) (string, error) {
	if path == "" {
		var err error
		if path, err = config.DefaultConfigPath(); err != nil {
			return "", err
		}
	}
	if !force {
		if _, err := os.Stat(path); err == nil {
			return "", fmt.Errorf("%s already exists (use --force to overwrite)", path)
		} else if !errors.Is(err, os.ErrNotExist) {
			return "", err
		}
	}
	if err := config.DefaultConfig().Save(path); err != nil {
		return "", err
	}
	return path, nil
}

func loadResult(path string) (*config.LoadResult, error) {
	if path == "" {
		return config.LoadWithSources()
	}
	return config.LoadFromPath(path)
}

func formatSource(src config.Source) string {
	switch src.Kind {
	case config.SourceFile:
		if src.File == "" {
			return "file"
		}
		if src.Line > 0 {
			return fmt.Sprintf("file:%s:%d:%d", src.File, src.Line, src.Column)
		}
		return "file:" + src.File
	case config.SourceEnv:
		if src.Name != "" {
			return "env:" + src.Name
		}
		return "env"
	case config.SourceDefault:
		if src.Name != "" {
			return "default:" + src.Name
		}
		return "default"
	default:
		return string(src.Kind)
	}
}
