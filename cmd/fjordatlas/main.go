// Package main provides the fjordatlas command-line tool.
package main

import (
	"io"
	"os"

	"github.com/jessevdk/go-flags"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"

	"go.ngs.io/fjord-atlas/internal/adapter/store"
	"go.ngs.io/fjord-atlas/internal/config"
	"go.ngs.io/fjord-atlas/internal/logger"
)

type Options struct {
	Logger logger.Logger `group:"Logger options"`

	ConfigFile string `short:"c" long:"config" env:"CONFIG_FILE" description:"Path to configuration file" default:"fjord-atlas.yaml"`
}

type app struct {
	opts   Options
	stdout io.Writer
	stderr io.Writer
	cfg    *config.Config
	source *store.Files
}

func main() {
	_ = godotenv.Load()

	a := &app{stdout: os.Stdout, stderr: os.Stderr}
	if _, err := newParser(a, flags.Default).Parse(); err != nil {
		if flagsErr, ok := err.(*flags.Error); ok {
			if flagsErr.Type == flags.ErrHelp {
				os.Exit(0)
			}
			os.Exit(1)
		}
		log.Fatal().Err(err).Msg("Command failed")
	}
}

// newParser builds the command tree. Logging and configuration are set up
// once a subcommand has been selected, before it runs.
func newParser(a *app, options flags.Options) *flags.Parser {
	parser := flags.NewParser(&a.opts, options|flags.PassDoubleDash)
	parser.SubcommandsOptional = false
	parser.CommandHandler = func(cmd flags.Commander, args []string) error {
		if cmd == nil {
			return nil
		}
		a.opts.Logger.SetupWriter(a.stderr)

		cfg, err := config.Load(a.opts.ConfigFile, true)
		if err != nil {
			return err
		}
		a.cfg = cfg
		a.source = store.NewFiles(cfg, nil)
		return cmd.Execute(args)
	}

	commands := []struct {
		name, short, long string
		data              any
	}{
		{"fjords", "Fjord polygons as GeoJSON", "Load the fjord master shapefile with every polygon replaced by its convex hull.", &polygonsCommand{app: a, layer: layerFjords}},
		{"regions", "Region polygons as GeoJSON", "Load the extended-region shapefile as is.", &polygonsCommand{app: a, layer: layerRegions}},
		{"gdf", "Any shapefile as hulled GeoJSON", "Load a shapefile and replace every geometry with its convex hull.", &gdfCommand{app: a}},
		{"top-gates", "Top (fjord, gate) pairs", "List the fjord/gate pairs of the 20 highest overall means, skipping pairs with a missing member.", &topGatesCommand{app: a}},
		{"region-names", "Region name table", "Print the region id to name table, built in or from the configured lookup file.", &regionNamesCommand{app: a}},
		{"region-positions", "Figure panel positions", "Print the panel index and letter of every region.", &regionPositionsCommand{app: a}},
		{"group-map", "Group to fjord table", "Print the group name to fjord ids table.", &groupMapCommand{app: a}},
		{"bounds", "Group grid bounds", "Compute lat/lon bounds of every group annual grid.", &boundsCommand{app: a}},
		{"extents", "Greenland map extent", "Print the Greenland extent in EPSG:4326.", &extentsCommand{app: a}},
		{"convert-time", "Days since epoch to timestamps", "Convert integer day counts since 1970-01-01 to UTC timestamps. Put negative counts after --, as in convert-time -- -1.", &convertTimeCommand{app: a}},
		{"means", "Inspect monthly chlorophyll grids", "Open monthly chlorophyll NetCDF files as one time series and summarise or sample it.", &meansCommand{app: a}},
		{"plot", "Render polygons on the Greenland map", "Draw fjord or region polygons with labels on a polar stereographic map of Greenland.", &plotCommand{app: a}},
		{"legend", "Print the legend snippet", "Print the plotting snippet for the Fjords/Glaciers legend.", &legendCommand{app: a}},
	}
	for _, c := range commands {
		if _, err := parser.AddCommand(c.name, c.short, c.long, c.data); err != nil {
			panic(err)
		}
	}

	return parser
}
