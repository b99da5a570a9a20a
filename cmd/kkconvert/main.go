/*
Package main implements kkconvert, the batch/interactive front end for
the kkconv immutable converter (spec §13.1).

kkconvert loads a system dictionary, an optional suffix dictionary, a
connection-cost table, a segmenter bitmap, and an optional POS-group
table/penalty blob, then converts readings supplied on the command line,
over stdin, or via the msgpack IPC server.

# Usage

Convert a single reading from the command line:

	kkconvert -key きょうはいいてんきです

Run the msgpack IPC server (spec §12):

	kkconvert -server

Run the interactive terminal mode (spec §13.2):

	kkconvert -i

# Command Line Flags

	-system-dict string
	    Path to the system dictionary blob
	-suffix-dict string
	    Path to the suffix dictionary blob
	-connection-table string
	    Path to the connection-cost table blob
	-segmenter-bitmap string
	    Path to the segment-boundary bitmap blob
	-pos-table string
	    Path to the POS-group tag table blob (optional)
	-pos-penalty string
	    Path to the POS-group penalty table blob (optional)
	-config string
	    Path to a kkconv-config.toml override
	-request-type string
	    One of CONVERSION, PREDICTION, SUGGESTION, PARTIAL_PREDICTION,
	    PARTIAL_SUGGESTION (default CONVERSION)
	-max-candidates int
	    Cap on candidates returned per call (default from config)
	-key string
	    Reading to convert; reads stdin line-by-line if omitted
	-server
	    Run the msgpack IPC loop instead of one-shot conversion
	-i  Run the interactive terminal mode
	-d  Enable debug logging
*/
package main

import (
	"bufio"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/log"

	kkconv "github.com/kanaconv/kkconv"
	"github.com/kanaconv/kkconv/internal/cli"
	"github.com/kanaconv/kkconv/internal/config"
	"github.com/kanaconv/kkconv/internal/connector"
	"github.com/kanaconv/kkconv/internal/dictionary"
	"github.com/kanaconv/kkconv/internal/posmatch"
	"github.com/kanaconv/kkconv/internal/segmenter"
	"github.com/kanaconv/kkconv/internal/suppress"
	"github.com/kanaconv/kkconv/internal/utils"
	"github.com/kanaconv/kkconv/pkg/server"
)

const (
	Version = "0.1.0"
	AppName = "kkconvert"
)

// sigHandler mirrors the teacher's cmd/wordserve signal handling.
func sigHandler() {
	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-c
		fmt.Fprintf(os.Stderr, "\nExiting...\n")
		os.Exit(0)
	}()
}

var reqTypeNames = map[string]kkconv.RequestType{
	"CONVERSION":         kkconv.Conversion,
	"PREDICTION":         kkconv.Prediction,
	"SUGGESTION":         kkconv.Suggestion,
	"PARTIAL_PREDICTION": kkconv.PartialPrediction,
	"PARTIAL_SUGGESTION": kkconv.PartialSuggestion,
}

func main() {
	sigHandler()
	defaultConfig := config.DefaultConfig()

	showVersion := flag.Bool("version", false, "Show current version")
	systemDictPath := flag.String("system-dict", "", "Path to the system dictionary blob")
	suffixDictPath := flag.String("suffix-dict", "", "Path to the suffix dictionary blob")
	connTablePath := flag.String("connection-table", "", "Path to the connection-cost table blob")
	segBitmapPath := flag.String("segmenter-bitmap", "", "Path to the segment-boundary bitmap blob")
	posTablePath := flag.String("pos-table", "", "Path to the POS-group tag table blob")
	posPenaltyPath := flag.String("pos-penalty", "", "Path to the POS-group penalty table blob")
	configPath := flag.String("config", "", "Path to a kkconv-config.toml override")
	requestType := flag.String("request-type", "CONVERSION", "CONVERSION|PREDICTION|SUGGESTION|PARTIAL_PREDICTION|PARTIAL_SUGGESTION")
	maxCandidates := flag.Int("max-candidates", defaultConfig.Lattice.MaxCandidatesSize, "Cap on candidates returned per call")
	key := flag.String("key", "", "Reading to convert; reads stdin line-by-line if omitted")
	serverMode := flag.Bool("server", false, "Run the msgpack IPC loop instead of one-shot conversion")
	interactiveMode := flag.Bool("i", false, "Run the interactive terminal mode")
	debugMode := flag.Bool("d", false, "Toggle debug mode")

	flag.Parse()

	if *showVersion {
		printVersion()
		os.Exit(0)
	}

	if *debugMode {
		log.SetLevel(log.DebugLevel)
		log.SetReportTimestamp(true)
	} else {
		log.SetLevel(log.WarnLevel)
	}

	pathResolver, err := utils.NewPathResolver()
	if err != nil {
		log.Fatalf("Failed to initialize path resolver: %v", err)
	}

	cfg, resolvedConfigPath := config.LoadConfigWithPriority(pathResolver, *configPath)
	log.Debugf("kkconvert: using config at %s", resolvedConfigPath)

	maxCandidatesSet := false
	flag.Visit(func(f *flag.Flag) {
		if f.Name == "max-candidates" {
			maxCandidatesSet = true
		}
	})
	if !maxCandidatesSet {
		*maxCandidates = cfg.Lattice.MaxCandidatesSize
	}

	if *systemDictPath == "" {
		*systemDictPath = cfg.Dict.SystemDictionaryPath
	}
	if *suffixDictPath == "" {
		*suffixDictPath = cfg.Dict.SuffixDictionaryPath
	}

	engine, err := buildEngine(cfg, *systemDictPath, *suffixDictPath, *connTablePath, *segBitmapPath, *posTablePath, *posPenaltyPath, *maxCandidates)
	if err != nil {
		log.Fatalf("kkconvert: %v", err)
	}

	if *serverMode {
		log.Debug("kkconvert: spawning IPC")
		srv := server.NewServer(engine)
		if err := srv.Start(); err != nil {
			log.Fatalf("kkconvert: server error: %v", err)
		}
		return
	}

	if *interactiveMode {
		handler := cli.NewInputHandler(engine)
		if err := handler.Start(); err != nil {
			log.Fatalf("kkconvert: terminal error: %v", err)
		}
		return
	}

	reqType, ok := reqTypeNames[*requestType]
	if !ok {
		log.Fatalf("kkconvert: unknown -request-type %q", *requestType)
	}

	if *key != "" {
		runOne(engine, reqType, *key)
		return
	}

	scanner := bufio.NewScanner(os.Stdin)
	for scanner.Scan() {
		reading := scanner.Text()
		if reading == "" {
			continue
		}
		runOne(engine, reqType, reading)
	}
}

func runOne(engine *kkconv.Engine, reqType kkconv.RequestType, reading string) {
	segments := &kkconv.Segments{
		RequestType: reqType,
		List:        []kkconv.Segment{{Key: reading, Type: kkconv.Free}},
	}
	req := kkconv.DefaultRequest()
	if !engine.ConvertForRequest(req, segments) {
		fmt.Printf("%s\t(invalid input)\n", reading)
		return
	}
	for _, seg := range segments.List {
		if seg.IsHistory() {
			continue
		}
		for rank, c := range seg.Candidates {
			fmt.Printf("%s\t%d\t%s\t%d\n", reading, rank+1, c.Value, c.Cost)
		}
	}
}

func buildEngine(cfg *config.Config, systemDictPath, suffixDictPath, connTablePath, segBitmapPath, posTablePath, posPenaltyPath string, maxCandidates int) (*kkconv.Engine, error) {
	dict := dictionary.New(log.Default())
	if systemDictPath != "" {
		if err := dictionary.LoadBlob(dict, systemDictPath); err != nil {
			return nil, fmt.Errorf("loading system dictionary: %w", err)
		}
	} else {
		log.Warn("kkconvert: no -system-dict given, running with an empty system dictionary")
	}

	suffixDict := dictionary.New(log.Default())
	if suffixDictPath != "" {
		if err := dictionary.LoadBlob(suffixDict, suffixDictPath); err != nil {
			return nil, fmt.Errorf("loading suffix dictionary: %w", err)
		}
	}

	var conn *connector.Connector
	if connTablePath != "" {
		var err error
		conn, err = connector.LoadFile(connTablePath)
		if err != nil {
			return nil, fmt.Errorf("loading connection table: %w", err)
		}
	} else {
		log.Warn("kkconvert: no -connection-table given, treating every transition as free")
	}

	var seg *segmenter.Segmenter
	if segBitmapPath != "" {
		var err error
		seg, err = segmenter.LoadFile(segBitmapPath)
		if err != nil {
			return nil, fmt.Errorf("loading segmenter bitmap: %w", err)
		}
	}

	var posMatch *posmatch.Matcher
	if posTablePath != "" {
		var err error
		posMatch, err = posmatch.LoadMatcherFile(posTablePath)
		if err != nil {
			return nil, fmt.Errorf("loading POS-group table: %w", err)
		}
	}

	penalties, err := posmatch.LoadPenaltyTableFile(posPenaltyPath)
	if err != nil {
		return nil, fmt.Errorf("loading POS-group penalty table: %w", err)
	}

	filter := suppress.New(nil, nil, nil)

	params := kkconv.Params{
		HistoryByteBound:            cfg.Lattice.HistoryByteBound,
		MaxCandidatesSize:           maxCandidates,
		MaxPredictionCandidatesSize: cfg.Lattice.MaxPredictionCandidatesSize,
		NBestCostGap:                cfg.Lattice.NBestCostGap,
		SegmentBoundaryPenalty:      cfg.Lattice.SegmentBoundaryPenalty,
	}

	return kkconv.NewEngine(dict, suffixDict, conn, seg, posMatch, penalties, filter, params, log.Default()), nil
}

func printVersion() {
	logger := log.NewWithOptions(os.Stderr, log.Options{ReportCaller: false, ReportTimestamp: false, Prefix: ""})
	styles := log.DefaultStyles()
	styles.Values["version"] = lipgloss.NewStyle().Bold(true).
		Foreground(lipgloss.AdaptiveColor{Light: "#575279", Dark: "#e0def4"})
	logger.SetStyles(styles)
	logger.Print("")
	logger.Print(fmt.Sprintf("[ %s ] Immutable kana-to-kanji conversion engine", AppName))
	logger.Print("", "version", Version)
	logger.Print("")
}
