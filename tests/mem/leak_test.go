//go:build test

package mem

import (
	"fmt"
	"runtime"
	"sync"
	"testing"

	"github.com/charmbracelet/log"

	kkconv "github.com/kanaconv/kkconv"
	"github.com/kanaconv/kkconv/internal/dictionary"
)

func init() {
	log.SetLevel(log.ErrorLevel)
}

// testReadings mirrors the teacher's testPrefixes fixture: a handful of
// readings that exercise several lattice widths per call.
var testReadings = []string{
	"あ", "あい", "あいだ", "あいだに",
	"か", "かん", "かんじ", "かんじへんかん",
	"わ", "わた", "わたし", "わたしの",
	"な", "なか", "なかの", "なかのです",
}

var longReadings = [][]string{
	{"あ", "あい", "あいだ", "あいだに", "あいだにわ"},
	{"か", "かん", "かんじ", "かんじへ", "かんじへん", "かんじへんか", "かんじへんかん"},
	{"わ", "わた", "わたし", "わたしの", "わたしのな", "わたしのなま", "わたしのなまえ"},
}

// newTestEngine builds a small in-memory Engine: no dictionary blob I/O,
// a handful of tokens covering parts of the readings above, so most
// ConvertForRequest calls decode through dictionary nodes as well as the
// unknown-char fallback (spec §4.G step 3); readings with no token, such
// as "あ", go through the fallback alone.
func newTestEngine() *kkconv.Engine {
	logger := log.Default()
	logger.SetLevel(log.ErrorLevel)

	dict := dictionary.New(logger)
	add := func(key, value string, leftID, rightID uint16, cost int16) {
		dict.Add(dictionary.Token{Key: key, Value: value, LeftID: leftID, RightID: rightID, WordCost: cost})
	}
	add("あい", "愛", 1, 1, 500)
	add("あいだ", "間", 1, 1, 480)
	add("かん", "感", 1, 1, 520)
	add("かんじ", "漢字", 1, 1, 400)
	add("わたし", "私", 1, 1, 300)
	add("の", "の", 2, 2, 100)
	add("なか", "中", 1, 1, 450)
	add("なかの", "中野", 1, 1, 410)
	add("です", "です", 2, 2, 150)

	return kkconv.NewEngine(dict, nil, nil, nil, nil, nil, nil, kkconv.Params{
		HistoryByteBound:            256,
		MaxCandidatesSize:           50,
		MaxPredictionCandidatesSize: 10,
		NBestCostGap:                3000,
		SegmentBoundaryPenalty:      700,
	}, logger)
}

func convertOnce(e *kkconv.Engine, reading string) bool {
	segs := &kkconv.Segments{
		RequestType: kkconv.Conversion,
		List:        []kkconv.Segment{{Key: reading, Type: kkconv.Free}},
	}
	return e.Convert(segs)
}

func TestMemoryLeakBasic(t *testing.T) {
	iterations := []int{100, 500, 1000, 2500, 5000}

	for _, iterCount := range iterations {
		t.Run(fmt.Sprintf("iterations_%d", iterCount), func(t *testing.T) {
			runBasicMemoryTest(t, iterCount, testReadings)
		})
	}
}

func TestMemoryLeakConcurrent(t *testing.T) {
	configs := []struct {
		workers              int
		iterationsPerWorker int
	}{
		{workers: 1, iterationsPerWorker: 1000},
		{workers: 2, iterationsPerWorker: 500},
		{workers: 4, iterationsPerWorker: 250},
		{workers: 8, iterationsPerWorker: 125},
	}

	for _, config := range configs {
		t.Run(fmt.Sprintf("workers_%d_iter_%d", config.workers, config.iterationsPerWorker), func(t *testing.T) {
			runConcurrentMemoryTest(t, config.workers, config.iterationsPerWorker)
		})
	}
}

func TestMemoryStabilityLongRun(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping long-running memory stability test in short mode")
	}

	cycles := 50
	opsPerCycle := 200

	runLongRunMemoryTest(t, cycles, opsPerCycle)
}

func runBasicMemoryTest(t *testing.T, iterations int, readings []string) {
	engine := newTestEngine()

	var baseline runtime.MemStats
	runtime.GC()
	runtime.ReadMemStats(&baseline)
	baselineGoroutines := runtime.NumGoroutine()

	for i := 0; i < iterations; i++ {
		for _, reading := range readings {
			if !convertOnce(engine, reading) {
				t.Fatalf("convert failed for reading %q", reading)
			}
		}
	}

	var final runtime.MemStats
	runtime.GC()
	runtime.ReadMemStats(&final)
	finalGoroutines := runtime.NumGoroutine()

	memDelta := int64(final.Alloc - baseline.Alloc)
	goroutineDelta := finalGoroutines - baselineGoroutines
	totalOps := iterations * len(readings)
	memPerOp := float64(memDelta) / float64(totalOps)

	t.Logf("iterations=%d ops=%d mem_delta=%d bytes mem_per_op=%.2f goroutine_delta=%d",
		iterations, totalOps, memDelta, memPerOp, goroutineDelta)

	// Every call's lattice arena is discarded on return (spec §5); a
	// steady per-op allocation here would mean a call is retaining its
	// arena instead of letting it become garbage.
	if memPerOp > 4000 {
		t.Errorf("excessive memory usage per operation: %.2f bytes", memPerOp)
	}

	if goroutineDelta > 2 {
		t.Errorf("goroutine leak detected: %d goroutines leaked", goroutineDelta)
	}
}

func runConcurrentMemoryTest(t *testing.T, workers, iterationsPerWorker int) {
	engine := newTestEngine()

	var baseline runtime.MemStats
	runtime.GC()
	runtime.ReadMemStats(&baseline)
	baselineGoroutines := runtime.NumGoroutine()

	var wg sync.WaitGroup
	var totalOps int64
	var mu sync.Mutex

	for worker := 0; worker < workers; worker++ {
		wg.Add(1)
		go func() {
			defer wg.Done()

			ops := 0
			for iter := 0; iter < iterationsPerWorker; iter++ {
				for _, pattern := range longReadings {
					for _, reading := range pattern {
						// Concurrent calls share one Engine's read-only
						// collaborators but each owns its own lattice
						// arena (spec §5 "fully re-entrant across calls").
						if !convertOnce(engine, reading) {
							t.Errorf("convert failed for reading %q", reading)
						}
						ops++
					}
				}
			}
			mu.Lock()
			totalOps += int64(ops)
			mu.Unlock()
		}()
	}

	wg.Wait()

	var final runtime.MemStats
	runtime.GC()
	runtime.ReadMemStats(&final)
	finalGoroutines := runtime.NumGoroutine()

	memDelta := int64(final.Alloc - baseline.Alloc)
	goroutineDelta := finalGoroutines - baselineGoroutines
	memPerOp := float64(memDelta) / float64(totalOps)

	t.Logf("workers=%d iter_per_worker=%d total_ops=%d mem_delta=%d bytes mem_per_op=%.2f goroutine_delta=%d",
		workers, iterationsPerWorker, totalOps, memDelta, memPerOp, goroutineDelta)

	if memPerOp > 4000 {
		t.Errorf("excessive memory usage per operation: %.2f bytes", memPerOp)
	}

	if goroutineDelta > 3 {
		t.Errorf("goroutine leak detected: %d goroutines leaked", goroutineDelta)
	}
}

func runLongRunMemoryTest(t *testing.T, cycles, opsPerCycle int) {
	engine := newTestEngine()

	var baseline runtime.MemStats
	runtime.GC()
	runtime.ReadMemStats(&baseline)
	baselineGoroutines := runtime.NumGoroutine()

	totalOps := 0
	maxMemDelta := int64(0)

	for cycle := 0; cycle < cycles; cycle++ {
		for op := 0; op < opsPerCycle; op++ {
			pattern := longReadings[op%len(longReadings)]
			reading := pattern[op%len(pattern)]
			if !convertOnce(engine, reading) {
				t.Fatalf("convert failed for reading %q", reading)
			}
			totalOps++
		}

		if cycle%10 == 0 {
			var m runtime.MemStats
			runtime.GC()
			runtime.ReadMemStats(&m)

			memDelta := int64(m.Alloc - baseline.Alloc)
			goroutineDelta := runtime.NumGoroutine() - baselineGoroutines
			memPerOp := float64(memDelta) / float64(totalOps)

			if memDelta > maxMemDelta {
				maxMemDelta = memDelta
			}

			t.Logf("cycle=%d ops=%d mem_delta=%d bytes mem_per_op=%.2f goroutine_delta=%d",
				cycle, totalOps, memDelta, memPerOp, goroutineDelta)
		}
	}

	var final runtime.MemStats
	runtime.GC()
	runtime.ReadMemStats(&final)
	finalGoroutines := runtime.NumGoroutine()

	finalMemDelta := int64(final.Alloc - baseline.Alloc)
	finalGoroutineDelta := finalGoroutines - baselineGoroutines
	finalMemPerOp := float64(finalMemDelta) / float64(totalOps)

	t.Logf("final_summary: cycles=%d total_ops=%d mem_delta=%d bytes mem_per_op=%.2f goroutine_delta=%d max_mem_delta=%d",
		cycles, totalOps, finalMemDelta, finalMemPerOp, finalGoroutineDelta, maxMemDelta)

	if finalMemPerOp > 2000 {
		t.Errorf("excessive memory usage per operation: %.2f bytes", finalMemPerOp)
	}

	if finalGoroutineDelta > 2 {
		t.Errorf("goroutine leak detected: %d goroutines leaked", finalGoroutineDelta)
	}

	if maxMemDelta > 10*1024*1024 {
		t.Errorf("excessive peak memory usage: %d bytes", maxMemDelta)
	}
}
