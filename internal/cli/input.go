// Package cli implements the interactive terminal mode of spec §13.2:
// a read-eval-print loop over readings, printing ranked candidates for
// debugging and manual testing of the converter.
//
// Grounded on the teacher's internal/cli.InputHandler: same
// bufio.NewReader(os.Stdin) prompt loop, same log.Print-based output
// formatting, generalised from a word-completion prefix loop to a
// kana-to-kanji reading loop.
package cli

import (
	"bufio"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/charmbracelet/log"

	kkconv "github.com/kanaconv/kkconv"
)

// InputHandler drives the interactive terminal loop against an Engine.
type InputHandler struct {
	engine       *kkconv.Engine
	requestType  kkconv.RequestType
	requestCount int
}

// NewInputHandler builds an InputHandler that converts each typed line
// as a CONVERSION-mode call.
func NewInputHandler(engine *kkconv.Engine) *InputHandler {
	return &InputHandler{engine: engine, requestType: kkconv.Conversion}
}

// Start begins the loop: prompt, read a line, convert it, print ranked
// candidates. Loop terminates if reading stdin errors (e.g. EOF).
func (h *InputHandler) Start() error {
	log.Print("kkconvert terminal [BETA]")
	reader := bufio.NewReader(os.Stdin)
	log.Print("type a reading and press Enter to see candidates (Ctrl+C to exit):")

	for {
		log.Print("> ")
		line, err := reader.ReadString('\n')
		if err != nil {
			return err
		}
		reading := strings.TrimSpace(line)
		if reading == "" {
			continue
		}
		h.handleInput(reading)
	}
}

// handleInput converts a single reading and prints its candidates.
func (h *InputHandler) handleInput(reading string) {
	h.requestCount++

	segments := &kkconv.Segments{
		RequestType: h.requestType,
		List:        []kkconv.Segment{{Key: reading, Type: kkconv.Free}},
	}

	start := time.Now()
	ok := h.engine.ConvertForRequest(kkconv.DefaultRequest(), segments)
	elapsed := time.Since(start)

	if !ok {
		log.Errorf("Invalid input: %q", reading)
		return
	}

	log.Debugf("Took [ %v ] for reading %q", elapsed, reading)

	var candidates []kkconv.Candidate
	for _, seg := range segments.List {
		if !seg.IsHistory() {
			candidates = seg.Candidates
			break
		}
	}

	if len(candidates) == 0 {
		log.Warnf("No candidates found for reading: %q", reading)
		return
	}

	log.Printf("Found %d candidates for reading %q:", len(candidates), reading)
	for i, c := range candidates {
		clValue := fmt.Sprintf("\033[38;5;75m%s\033[0m", c.Value)
		log.Printf("%2d. %-40s (cost: %6d)", i+1, clValue, c.Cost)
	}
}
