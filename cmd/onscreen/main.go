// Command onscreen shows an image in a window.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"

	"github.com/oliverbestmann/onscreen/driver/soft"
	"github.com/oliverbestmann/onscreen/driver/webgpu"
	"github.com/oliverbestmann/onscreen/glimpse"
	"github.com/oliverbestmann/onscreen/glimpse/native"
	"github.com/oliverbestmann/onscreen/orion"
	"github.com/oliverbestmann/onscreen/pulse"
	"github.com/pkg/profile"
	"github.com/spf13/cobra"
)

const (
	exitFatal = 1
	exitUsage = 2
)

// usageError marks errors caused by invalid command line arguments.
type usageError struct {
	err error
}

func (e usageError) Error() string {
	return e.err.Error()
}

func (e usageError) Unwrap() error {
	return e.err
}

type flags struct {
	config  string
	dump    string
	profile string
}

func main() {
	cmd := newCommand()

	if err := cmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "onscreen: %s\n", err)

		var usage usageError
		if errors.As(err, &usage) {
			fmt.Fprintln(os.Stderr, cmd.UsageString())
			os.Exit(exitUsage)
		}

		os.Exit(exitFatal)
	}
}

func newCommand() *cobra.Command {
	var f flags

	config := orion.DefaultConfig()

	cmd := &cobra.Command{
		Use:           "onscreen [flags] IMAGE",
		Short:         "Show an image in a window",
		SilenceUsage:  true,
		SilenceErrors: true,

		Args: func(cmd *cobra.Command, args []string) error {
			if len(args) != 1 {
				return usageError{fmt.Errorf("expected exactly one image, got %d arguments", len(args))}
			}

			return nil
		},

		RunE: func(cmd *cobra.Command, args []string) error {
			merged, err := mergeConfig(cmd, f.config, config)
			if err != nil {
				return usageError{err}
			}

			return run(cmd.Context(), args[0], merged, f)
		},
	}

	cmd.SetFlagErrorFunc(func(cmd *cobra.Command, err error) error {
		return usageError{err}
	})

	fl := cmd.Flags()
	fl.StringVar(&config.Driver, "driver", config.Driver, "graphics driver, webgpu or soft")
	fl.IntVar(&config.Width, "width", config.Width, "initial window width")
	fl.IntVar(&config.Height, "height", config.Height, "initial window height")
	fl.StringVar(&config.Title, "title", config.Title, "window title")
	fl.StringVar(&config.PresentMode, "present-mode", config.PresentMode, "fifo, fifo-relaxed, mailbox or immediate")
	fl.Uint32Var(&config.Images, "images", config.Images, "number of swap images, zero for the default")
	fl.StringVar(&config.Filter, "filter", config.Filter, "scaling filter, linear or nearest")
	fl.StringVar(&config.Clear, "clear", config.Clear, "letterbox color as #rrggbb")
	fl.IntVar(&config.Frames, "frames", config.Frames, "exit after presenting this many frames")
	fl.BoolVar(&config.Watch, "watch", config.Watch, "reload the image when the file changes")
	fl.BoolVar(&config.Fit, "fit", config.Fit, "downscale images larger than the device supports")
	fl.StringVar(&config.LogLevel, "log-level", config.LogLevel, "debug, info, warn or error")
	fl.StringVar(&f.config, "config", "", "read settings from a toml or yaml file")
	fl.StringVar(&f.dump, "dump", "", "save the last presented frame as png (soft driver)")
	fl.StringVar(&f.profile, "profile", "off", "write a cpu or mem profile")

	return cmd
}

// mergeConfig loads the config file and applies all flags that were set
// explicitly on top of it.
func mergeConfig(cmd *cobra.Command, path string, fromFlags orion.Config) (orion.Config, error) {
	if path == "" {
		return fromFlags, nil
	}

	config, err := orion.LoadConfig(path, orion.DefaultConfig())
	if err != nil {
		return config, err
	}

	fl := cmd.Flags()

	overrides := map[string]func(){
		"driver":       func() { config.Driver = fromFlags.Driver },
		"width":        func() { config.Width = fromFlags.Width },
		"height":       func() { config.Height = fromFlags.Height },
		"title":        func() { config.Title = fromFlags.Title },
		"present-mode": func() { config.PresentMode = fromFlags.PresentMode },
		"images":       func() { config.Images = fromFlags.Images },
		"filter":       func() { config.Filter = fromFlags.Filter },
		"clear":        func() { config.Clear = fromFlags.Clear },
		"frames":       func() { config.Frames = fromFlags.Frames },
		"watch":        func() { config.Watch = fromFlags.Watch },
		"fit":          func() { config.Fit = fromFlags.Fit },
		"log-level":    func() { config.LogLevel = fromFlags.LogLevel },
	}

	for name, apply := range overrides {
		if fl.Changed(name) {
			apply()
		}
	}

	return config, nil
}

func parseLogLevel(name string) (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(name)); err != nil {
		return level, fmt.Errorf("invalid log level %q", name)
	}

	return level, nil
}

func startProfile(mode string) (interface{ Stop() }, error) {
	switch strings.ToLower(mode) {
	case "", "off":
		return nil, nil
	case "cpu":
		return profile.Start(profile.CPUProfile, profile.Quiet), nil
	case "mem":
		return profile.Start(profile.MemProfile, profile.Quiet), nil
	default:
		return nil, fmt.Errorf("unknown profile mode %q", mode)
	}
}

func run(ctx context.Context, imagePath string, config orion.Config, f flags) error {
	level, err := parseLogLevel(config.LogLevel)
	if err != nil {
		return usageError{err}
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)
	pulse.SetLogger(logger)

	loopOpts, err := config.LoopOptions()
	if err != nil {
		return usageError{err}
	}

	prof, err := startProfile(f.profile)
	if err != nil {
		return usageError{err}
	}

	if prof != nil {
		defer prof.Stop()
	}

	if ctx == nil {
		ctx = context.Background()
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt)
	defer stop()

	opts := orion.Options{
		ImagePath: imagePath,
		Fit:       config.Fit,
		Watch:     config.Watch,
		DumpPath:  f.dump,
		Loop:      loopOpts,
	}

	switch config.Driver {
	case "soft":
		// the soft driver renders without a visible window
		opts.Driver = soft.New(soft.Options{})
		opts.Window = glimpse.NewHeadless(uint32(config.Width), uint32(config.Height))

	case "webgpu":
		win, err := native.NewWindow(native.Options{
			Width:  config.Width,
			Height: config.Height,
			Title:  config.Title,
		})

		if err != nil {
			return err
		}

		defer win.Terminate()

		opts.Driver = webgpu.New(webgpu.Options{})
		opts.Window = win

	default:
		return usageError{fmt.Errorf("unknown driver %q", config.Driver)}
	}

	return orion.Run(ctx, opts)
}
