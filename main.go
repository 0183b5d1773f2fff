package main

import (
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/nvr-ai/go-icon/converter"
	"github.com/nvr-ai/go-icon/ico"
	"github.com/nvr-ai/go-icon/images"
	"github.com/nvr-ai/go-icon/profiler"
)

// Mode is what the CLI was asked to do.
type Mode int

const (
	ModeConvert Mode = iota
	ModeInspect
)

// CLIConfig holds the parsed command line.
type CLIConfig struct {
	Mode       Mode
	Input      string
	Output     string
	ConfigPath string
	Resampler  string
	Encoding   string
	Verbose    bool
	// Pick is the display size, in pixels, whose entry -inspect reports.
	Pick int
}

func main() {
	log.SetFlags(0)
	log.SetPrefix("icoconv: ")

	cli, err := parseFlags(flag.CommandLine, os.Args[1:])
	if err != nil {
		log.Fatal(err)
	}

	if cli.Mode == ModeInspect {
		if err := inspect(os.Stdout, cli.Input, cli.Pick); err != nil {
			log.Fatalf("inspect failed: %v", err)
		}
		return
	}

	cfg, err := loadConfig(cli)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	opts := cfg.Options()
	var timer *profiler.Timer
	if cfg.Verbose {
		timer = profiler.NewTimer()
		opts.Timer = timer
		opts.Logger = log.Default()
	}

	c, err := converter.New(opts)
	if err != nil {
		log.Fatal(err)
	}

	if err := c.Convert(cli.Input, cli.Output); err != nil {
		log.Print(err)
		os.Exit(exitCode(err))
	}

	fmt.Printf("Created %s (%d sizes, %s resampler)\n", cli.Output, len(images.IconSizes), c.Resampler().Name())
	if timer != nil {
		fmt.Print(timer.Report())
	}
}

// exitCode maps a conversion failure to the process status: 2 for an
// unreadable source, 3 for a source that cannot be resized, 4 when the icon
// could not be written.
func exitCode(err error) int {
	switch converter.KindOf(err) {
	case converter.KindDecode:
		return 2
	case converter.KindResize:
		return 3
	case converter.KindWrite:
		return 4
	}
	return 1
}

// parseFlags reads the command line. Input and output may also be given as
// positional arguments; the output defaults to the input with an .ico extension.
func parseFlags(fs *flag.FlagSet, args []string) (*CLIConfig, error) {
	cli := &CLIConfig{}
	var inspectPath string

	fs.StringVar(&cli.Input, "in", "", "Path to the source image (.png, .jpg, .gif, .bmp, .webp, .svg)")
	fs.StringVar(&cli.Output, "out", "", "Path of the .ico file to write (default: input with .ico extension)")
	fs.StringVar(&cli.ConfigPath, "config", "", "Path to a YAML configuration file")
	fs.StringVar(&cli.Resampler, "resampler", "", fmt.Sprintf("Resampling backend %v", images.AvailableResamplers()))
	fs.StringVar(&cli.Encoding, "encoding", "", "Container layout: png (PNG in every entry) or auto (PNG at 256, bitmaps below)")
	fs.BoolVar(&cli.Verbose, "v", false, "Log each stage and print timings")
	fs.StringVar(&inspectPath, "inspect", "", "List the entries of an existing .ico file and exit")
	fs.IntVar(&cli.Pick, "pick", 0, "With -inspect, report the entry a reader would choose for this size")
	if err := fs.Parse(args); err != nil {
		return nil, err
	}

	if inspectPath != "" {
		cli.Mode = ModeInspect
		cli.Input = inspectPath
		return cli, nil
	}
	if cli.Pick != 0 {
		return nil, fmt.Errorf("-pick needs -inspect")
	}

	rest := fs.Args()
	if cli.Input == "" && len(rest) > 0 {
		cli.Input, rest = rest[0], rest[1:]
	}
	if cli.Output == "" && len(rest) > 0 {
		cli.Output, rest = rest[0], rest[1:]
	}
	if len(rest) > 0 {
		return nil, fmt.Errorf("unexpected arguments: %s", strings.Join(rest, " "))
	}

	if cli.Input == "" {
		return nil, fmt.Errorf("source image is required (-in)")
	}
	if cli.Output == "" {
		cli.Output = strings.TrimSuffix(cli.Input, filepath.Ext(cli.Input)) + ".ico"
	}
	if filepath.Clean(cli.Output) == filepath.Clean(cli.Input) {
		return nil, fmt.Errorf("output %s would overwrite the source image", cli.Output)
	}

	return cli, nil
}

// loadConfig merges the optional config file with command line overrides.
func loadConfig(cli *CLIConfig) (*converter.Config, error) {
	cfg := converter.DefaultConfig()
	if cli.ConfigPath != "" {
		var err error
		cfg, err = converter.LoadConfig(cli.ConfigPath)
		if err != nil {
			return nil, err
		}
	}

	if cli.Resampler != "" {
		cfg.Resampler = cli.Resampler
	}
	if cli.Encoding != "" {
		cfg.EntryEncoding = cli.Encoding
	}
	if cli.Verbose {
		cfg.Verbose = true
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// inspect prints the directory of an icon file. When pick is positive it also
// reports which entry a reader asked for that many pixels would display.
func inspect(w io.Writer, path string, pick int) error {
	if pick < 0 {
		return fmt.Errorf("pick size %d must be positive", pick)
	}

	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	icon, err := ico.Decode(f)
	if err != nil {
		return err
	}

	fmt.Fprintf(w, "%s: %d entries\n", path, len(icon.Entries))
	for i, e := range icon.Entries {
		fmt.Fprintf(w, "  [%d] %s\n", i, describe(e))
	}

	if pick > 0 {
		e, ok := icon.Closest(pick)
		if !ok {
			return fmt.Errorf("%s has no entries", path)
		}
		fmt.Fprintf(w, "%dpx -> %s\n", pick, describe(e))
	}
	return nil
}

func describe(e ico.Entry) string {
	opacity := "transparent"
	if images.IsOpaque(e.Image) {
		opacity = "opaque"
	}
	if size, ok := images.IconSizeByWidth(e.Width); ok && e.Height == size.Height {
		return fmt.Sprintf("%s, %s, %s", e, size.Name, opacity)
	}
	return fmt.Sprintf("%s, %s", e, opacity)
}
