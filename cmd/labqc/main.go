package main

import (
	"fmt"
	"os"
	"runtime/debug"

	flag "github.com/spf13/pflag"
	"gopkg.in/yaml.v3"

	"github.com/cmgg/labqc/internal/config"
	"github.com/cmgg/labqc/internal/discovery"
	"github.com/cmgg/labqc/internal/engine"
	"github.com/cmgg/labqc/internal/log"
	"github.com/cmgg/labqc/internal/module"
	"github.com/cmgg/labqc/internal/output"

	// Import all module packages so their init() functions register them.
	_ "github.com/cmgg/labqc/internal/modules/coverage"
	_ "github.com/cmgg/labqc/internal/modules/msisensor"
	_ "github.com/cmgg/labqc/internal/modules/sexpred"
	_ "github.com/cmgg/labqc/internal/modules/varcount"
)

func main() {
	os.Exit(run())
}

const usageText = `Usage: labqc <command> [flags] [inputs...]

Commands:
  report    Generate a QC report from tool output files
  init      Generate a default .labqc.yml config file
  version   Print version and exit

Global flags:
  -h, --help      Show this help

Run 'labqc <command> --help' for more information on a command.
`

func run() int {
	// Handle no arguments: print usage, exit 0.
	if len(os.Args) < 2 {
		fmt.Fprint(os.Stderr, usageText)
		return 0
	}

	first := os.Args[1]

	switch first {
	case "--help", "-h":
		fmt.Fprint(os.Stderr, usageText)
		return 0
	}

	switch first {
	case "report":
		return runReport(os.Args[2:])
	case "init":
		return runInit(os.Args[2:])
	case "version":
		printVersion()
		return 0
	default:
		fmt.Fprintf(os.Stderr, "labqc: unknown command %q\n\n%s", first, usageText)
		return 2
	}
}

func printVersion() {
	version := "(devel)"
	if info, ok := debug.ReadBuildInfo(); ok && info.Main.Version != "" {
		version = info.Main.Version
	}
	fmt.Printf("labqc %s\n", version)
}

// runReport implements the "report" subcommand: scan the inputs,
// run every active module, and write the formatted report.
func runReport(args []string) int {
	fs := flag.NewFlagSet("report", flag.ContinueOnError)
	var (
		inputArgs     []string
		configPath    string
		format        string
		outPath       string
		workers       int
		verbose       bool
		noColor       bool
		disablePlugin bool
	)

	fs.StringArrayVarP(&inputArgs, "input", "i", nil, "Input file, directory, or glob (repeatable)")
	fs.StringVarP(&configPath, "config", "c", "", "Override config file path")
	fs.StringVarP(&format, "format", "f", "text", "Output format: text, json")
	fs.StringVarP(&outPath, "output", "o", "", "Write the report to a file instead of stdout")
	fs.IntVar(&workers, "workers", 4, "Concurrent file parses per module")
	fs.BoolVarP(&verbose, "verbose", "v", false, "Log progress to stderr")
	fs.BoolVar(&noColor, "no-color", false, "Disable ANSI colors")
	fs.BoolVar(&disablePlugin, "disable-plugin", false, "Run no QC modules; emit an empty report")

	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: labqc report [flags] [inputs...]\n\n"+
			"Generate a QC report from tool output files.\n\n"+
			"Inputs can be paths, directories (walked recursively), or glob patterns.\n"+
			"Files no module recognizes are skipped silently.\n\n"+
			"Flags:\n")
		fs.PrintDefaults()
	}

	if err := fs.Parse(args); err != nil {
		return 2
	}

	inputArgs = append(inputArgs, fs.Args()...)
	if len(inputArgs) == 0 {
		inputArgs = []string{"."}
	}
	inputs, err := discovery.ResolveInputs(inputArgs)
	if err != nil {
		fmt.Fprintf(os.Stderr, "labqc: %v\n", err)
		return 2
	}
	if len(inputs) == 0 {
		fmt.Fprintf(os.Stderr, "labqc: no input files\n")
		return 2
	}

	cfg, err := loadConfig(configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "labqc: %v\n", err)
		return 2
	}

	logger := &log.Logger{Enabled: verbose, W: os.Stderr}
	engine.ExecutionStart(cfg, logger)

	mods := module.All()
	if disablePlugin {
		logger.Printf("all QC modules disabled by --disable-plugin")
		mods = nil
	}

	runner := &engine.Runner{
		Config:  cfg,
		Modules: mods,
		Log:     logger,
		Workers: workers,
	}

	result := runner.Run(inputs)

	for _, e := range result.Errors {
		fmt.Fprintf(os.Stderr, "labqc: %v\n", e)
	}

	out := os.Stdout
	if outPath != "" {
		f, err := os.Create(outPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "labqc: %v\n", err)
			return 2
		}
		defer f.Close()
		out = f
	}

	var formatter output.Formatter
	switch format {
	case "json":
		formatter = &output.JSONFormatter{}
	default:
		formatter = &output.TextFormatter{Color: !noColor && outPath == ""}
	}

	if err := formatter.Format(out, result.Report); err != nil {
		fmt.Fprintf(os.Stderr, "labqc: error writing report: %v\n", err)
		return 2
	}

	return 0
}

// runInit implements the "init" subcommand: generate .labqc.yml.
func runInit(args []string) int {
	fs := flag.NewFlagSet("init", flag.ContinueOnError)

	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: labqc init\n\n"+
			"Generate a default .labqc.yml config file in the current directory.\n")
	}

	if err := fs.Parse(args); err != nil {
		return 2
	}

	if fs.NArg() > 0 {
		fmt.Fprintf(os.Stderr, "labqc: init takes no arguments\n")
		return 2
	}

	const configFile = ".labqc.yml"

	if _, err := os.Stat(configFile); err == nil {
		fmt.Fprintf(os.Stderr, "labqc: %s already exists\n", configFile)
		return 2
	}

	cfg := config.Defaults()

	data, err := yaml.Marshal(cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "labqc: marshalling config: %v\n", err)
		return 2
	}

	if err := os.WriteFile(configFile, data, 0644); err != nil {
		fmt.Fprintf(os.Stderr, "labqc: writing %s: %v\n", configFile, err)
		return 2
	}

	fmt.Fprintf(os.Stderr, "labqc: created %s\n", configFile)
	return 0
}

// loadConfig loads configuration by either using the specified path or
// discovering a config file from the current directory.
func loadConfig(configPath string) (*config.Config, error) {
	defaults := config.Defaults()

	if configPath != "" {
		loaded, err := config.Load(configPath)
		if err != nil {
			return nil, err
		}
		return config.Merge(defaults, loaded), nil
	}

	cwd, err := os.Getwd()
	if err != nil {
		return config.Merge(defaults, nil), nil
	}

	discovered, err := config.Discover(cwd)
	if err != nil || discovered == "" {
		return config.Merge(defaults, nil), nil
	}

	loaded, err := config.Load(discovered)
	if err != nil {
		return nil, err
	}

	return config.Merge(defaults, loaded), nil
}
