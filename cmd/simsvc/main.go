package main

import (
	"flag"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"github.com/oklog/ulid/v2"

	"battlecore/internal/combat"
	"battlecore/internal/config"
	"battlecore/internal/logging"
	"battlecore/internal/sim"
	"battlecore/internal/util"
)

func main() {
	var cfgDir, scenario, out, logLevel, logFormat string
	var seed int64
	var n, workers int
	var maxTicks uint64
	var saveLog bool
	flag.StringVar(&cfgDir, "config", "assets", "config dir")
	flag.StringVar(&scenario, "scenario", "", "scenario file (default <config>/scenario.yaml)")
	flag.StringVar(&out, "out", "out.json", "output file (single) or summary file (batch)")
	flag.Int64Var(&seed, "seed", 0, "seed (0 keeps the scenario's)")
	flag.IntVar(&n, "n", 1, "number of simulations")
	flag.IntVar(&workers, "workers", 8, "batch worker count")
	flag.Uint64Var(&maxTicks, "max-ticks", 0, "hard tick cap per run (0 = scenario time limit only)")
	flag.BoolVar(&saveLog, "log", true, "save full event log when n==1")
	flag.StringVar(&logLevel, "log-level", "info", "debug, info, warn or error")
	flag.StringVar(&logFormat, "log-format", logging.FormatText, "text or json")
	flag.Parse()

	log, err := logging.New(os.Stderr, logging.Config{Level: logLevel, Format: logFormat})
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}
	bundle, err := config.LoadAll(cfgDir, scenario)
	if err != nil {
		log.Error("load config", "dir", cfgDir, "err", err)
		os.Exit(1)
	}
	if seed != 0 {
		bundle.Scenario.Seed = seed
	}

	if n <= 1 {
		w, err := sim.FromBundle(bundle, saveLog, log)
		if err != nil {
			log.Error("build world", "err", err)
			os.Exit(1)
		}
		res := w.Run(maxTicks)
		if err := os.WriteFile(out, combat.MarshalPretty(res), 0644); err != nil {
			log.Error("write result", "out", out, "err", err)
			os.Exit(1)
		}
		fmt.Printf("Single simsvc finished. Winner=%s, T=%.2fs, events=%d, checksum=%.12s -> %s\n",
			res.Winner, res.Duration, res.EventCount, res.Checksum, out)
		return
	}

	summary, err := runBatch(bundle, n, workers, maxTicks, log)
	if err != nil {
		log.Error("batch", "err", err)
		os.Exit(1)
	}
	if err := os.WriteFile(out, combat.MarshalPretty(summary), 0644); err != nil {
		log.Error("write summary", "out", out, "err", err)
		os.Exit(1)
	}
	fmt.Printf("Batch %d done -> %s\n", n, filepath.Base(out))
}

type stat struct {
	Wins     map[string]int
	SumT     float64
	SumTicks uint64
	BySource map[string]float64
	Faulted  uint64
}

// runBatch runs n independent worlds on a worker pool. Run i always uses seed
// RunSeed(base, i) and results are folded in run order, so the summary does not
// depend on which worker ran what.
func runBatch(b *config.Bundle, n, workers int, maxTicks uint64, log *slog.Logger) (map[string]any, error) {
	if workers < 1 {
		workers = 1
	}
	batchID := ulid.Make()
	log = log.With("batch", batchID.String())
	log.Info("batch started", "runs", n, "workers", workers, "scenario", b.Scenario.Name)

	results := make([]sim.Result, n)
	var mu sync.Mutex
	var firstErr error
	wg := sync.WaitGroup{}
	jobs := make(chan int, n)
	quiet := logging.Discard()
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func(workerID int) {
			defer wg.Done()
			for i := range jobs {
				bb := *b
				bb.Scenario.Seed = util.RunSeed(b.Scenario.Seed, i)
				world, err := sim.FromBundle(&bb, false, quiet)
				if err != nil {
					mu.Lock()
					if firstErr == nil {
						firstErr = fmt.Errorf("run %d: %w", i, err)
					}
					mu.Unlock()
					continue
				}
				results[i] = world.Run(maxTicks)
				log.Debug("run finished", "worker", workerID, "run", i,
					"winner", results[i].Winner, "t", results[i].Duration)
			}
		}(w)
	}
	for i := 0; i < n; i++ {
		jobs <- i
	}
	close(jobs)
	wg.Wait()
	if firstErr != nil {
		return nil, firstErr
	}

	st := stat{Wins: map[string]int{}, BySource: map[string]float64{}}
	for _, res := range results {
		st.Wins[res.Winner]++
		st.SumT += res.Duration
		st.SumTicks += res.Ticks
		st.Faulted += res.Scheduler.Faulted
		for k, v := range res.DamageBySource {
			st.BySource[k] += v
		}
	}

	totalDmg := 0.0
	for _, v := range st.BySource {
		totalDmg += v
	}
	bySource := map[string]any{}
	for k, v := range st.BySource {
		share := 0.0
		if totalDmg > 0 {
			share = v / totalDmg
		}
		bySource[k] = map[string]any{"total": v, "ratio": share}
	}
	winRate := map[string]float64{}
	for k, v := range st.Wins {
		winRate[k] = float64(v) / float64(n)
	}

	log.Info("batch finished", "runs", n, "win_rate", winRate)
	return map[string]any{
		"batch_id":         batchID.String(),
		"scenario":         b.Scenario.Name,
		"base_seed":        b.Scenario.Seed,
		"runs":             n,
		"win_rate":         winRate,
		"avg_time":         st.SumT / float64(n),
		"avg_ticks":        float64(st.SumTicks) / float64(n),
		"total_damage":     totalDmg,
		"damage_by_source": bySource,
		"callback_faults":  st.Faulted,
	}, nil
}
