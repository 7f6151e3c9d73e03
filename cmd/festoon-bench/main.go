// festoon-bench is a benchmark and stress test for the Festoon library.
// It builds a synthetic document, populates it with decorations and
// measures throughput of the common operations.
package main

import (
	"fmt"
	"math/rand"
	"os"
	"runtime"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/phroun/festoon"
)

var (
	flagLines       int
	flagLineWidth   int
	flagDecorations int
	flagSeed        int64
	flagPresets     string
)

type BenchResult struct {
	Name     string
	Duration time.Duration
	Ops      int
	Extra    string
}

func (r BenchResult) String() string {
	if r.Ops > 0 {
		opsPerSec := float64(r.Ops) / r.Duration.Seconds()
		if r.Extra != "" {
			return fmt.Sprintf("%-40s %12v  (%d ops, %.2f ops/sec) %s", r.Name, r.Duration.Round(time.Millisecond), r.Ops, opsPerSec, r.Extra)
		}
		return fmt.Sprintf("%-40s %12v  (%d ops, %.2f ops/sec)", r.Name, r.Duration.Round(time.Millisecond), r.Ops, opsPerSec)
	}
	if r.Extra != "" {
		return fmt.Sprintf("%-40s %12v  %s", r.Name, r.Duration.Round(time.Millisecond), r.Extra)
	}
	return fmt.Sprintf("%-40s %12v", r.Name, r.Duration.Round(time.Millisecond))
}

// presetFile is the YAML shape accepted by --presets: a list of named
// decoration option records registered up front, mimicking how an editor
// registers its decoration types at startup.
type presetFile struct {
	Presets []struct {
		Name              string `yaml:"name"`
		ClassName         string `yaml:"className"`
		InlineClassName   string `yaml:"inlineClassName"`
		IsWholeLine       bool   `yaml:"isWholeLine"`
		IsForValidation   bool   `yaml:"isForValidation"`
		CollapseOnReplace bool   `yaml:"collapseOnReplace"`
		Stickiness        int    `yaml:"stickiness"`
		RulerColor        string `yaml:"rulerColor"`
	} `yaml:"presets"`
}

func main() {
	rootCmd := newRootCmd()
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "festoon-bench",
		Short: "Benchmark and stress test for the Festoon library",
	}
	root.PersistentFlags().IntVar(&flagLines, "lines", 50000, "Lines in the synthetic document")
	root.PersistentFlags().IntVar(&flagLineWidth, "width", 80, "Bytes per synthetic line")
	root.PersistentFlags().IntVar(&flagDecorations, "decorations", 100000, "Decorations to populate")
	root.PersistentFlags().Int64Var(&flagSeed, "seed", 1, "PRNG seed")
	root.PersistentFlags().StringVar(&flagPresets, "presets", "", "YAML file of decoration option presets")

	root.AddCommand(newChurnCmd(), newEditsCmd(), newQueryCmd())
	return root
}

// bench is the shared fixture: a populated document plus the registered
// option bundles decorations cycle through.
type bench struct {
	lib     *festoon.Library
	doc     *festoon.Document
	bundles []*festoon.Options
	rng     *rand.Rand
	length  int
}

func setup() (*bench, error) {
	fmt.Println("Festoon Benchmark and Stress Test")
	fmt.Println("==================================")
	fmt.Printf("Document: %d lines x %d bytes\n", flagLines, flagLineWidth)
	fmt.Printf("Decorations: %d\n", flagDecorations)
	fmt.Printf("Go version: %s\n", runtime.Version())
	fmt.Printf("GOMAXPROCS: %d\n", runtime.GOMAXPROCS(0))
	fmt.Println()

	lib, err := festoon.Init(festoon.LibraryOptions{})
	if err != nil {
		return nil, err
	}

	b := &bench{
		lib: lib,
		rng: rand.New(rand.NewSource(flagSeed)),
	}

	if err := b.registerBundles(); err != nil {
		return nil, err
	}

	start := time.Now()
	text := syntheticText(flagLines, flagLineWidth)
	b.length = len(text)
	doc, err := lib.Open(festoon.DocumentOptions{DataString: text})
	if err != nil {
		return nil, err
	}
	b.doc = doc
	fmt.Println(BenchResult{Name: "Generate + open document", Duration: time.Since(start), Extra: fmt.Sprintf("%d bytes", b.length)})

	start = time.Now()
	for i := 0; i < flagDecorations; i++ {
		doc.AddDecoration(b.randomRange(), b.bundles[i%len(b.bundles)], i%7)
	}
	fmt.Println(BenchResult{Name: "Populate decorations", Duration: time.Since(start), Ops: flagDecorations})
	fmt.Println()

	return b, nil
}

func (b *bench) registerBundles() error {
	if flagPresets == "" {
		for i := 0; i < 8; i++ {
			b.bundles = append(b.bundles, b.lib.Options().Register(festoon.DecorationOptions{
				ClassName:  fmt.Sprintf("bench-%d", i),
				Stickiness: festoon.Stickiness(i % 4),
			}))
		}
		return nil
	}

	data, err := os.ReadFile(flagPresets)
	if err != nil {
		return err
	}
	var pf presetFile
	if err := yaml.Unmarshal(data, &pf); err != nil {
		return fmt.Errorf("parsing %s: %w", flagPresets, err)
	}
	if len(pf.Presets) == 0 {
		return fmt.Errorf("%s defines no presets", flagPresets)
	}
	for _, p := range pf.Presets {
		b.bundles = append(b.bundles, b.lib.Options().Register(festoon.DecorationOptions{
			ClassName:         p.ClassName,
			InlineClassName:   p.InlineClassName,
			IsWholeLine:       p.IsWholeLine,
			IsForValidation:   p.IsForValidation,
			CollapseOnReplace: p.CollapseOnReplace,
			Stickiness:        festoon.Stickiness(p.Stickiness),
			OverviewRuler:     festoon.OverviewRulerOptions{Color: p.RulerColor},
		}))
	}
	fmt.Printf("Registered %d presets from %s\n", len(b.bundles), flagPresets)
	return nil
}

func (b *bench) randomRange() festoon.Range {
	line := 1 + b.rng.Intn(flagLines)
	col := 1 + b.rng.Intn(flagLineWidth)
	span := 1 + b.rng.Intn(flagLineWidth-1)
	endCol := col + span
	if endCol > flagLineWidth+1 {
		endCol = flagLineWidth + 1
	}
	return festoon.NewRange(line, col, line, endCol)
}

func syntheticText(lines, width int) string {
	const alphabet = "abcdefghijklmnopqrstuvwxyz 0123456789"
	var sb strings.Builder
	sb.Grow(lines * (width + 1))
	for i := 0; i < lines; i++ {
		for j := 0; j < width; j++ {
			sb.WriteByte(alphabet[(i+j)%len(alphabet)])
		}
		sb.WriteByte('\n')
	}
	return sb.String()
}

func newChurnCmd() *cobra.Command {
	var rounds int
	var batch int
	cmd := &cobra.Command{
		Use:   "churn",
		Short: "Measure decoration swap throughput",
		RunE: func(cmd *cobra.Command, args []string) error {
			b, err := setup()
			if err != nil {
				return err
			}
			defer b.doc.Close()

			owner := 99
			var ids []string
			start := time.Now()
			for i := 0; i < rounds; i++ {
				specs := make([]festoon.DecorationSpec, batch)
				for j := range specs {
					specs[j] = festoon.DecorationSpec{
						Range:   b.randomRange(),
						Options: b.bundles[j%len(b.bundles)],
					}
				}
				ids = b.doc.DeltaDecorations(owner, ids, specs)
			}
			fmt.Println(BenchResult{
				Name:     "Swap decorations",
				Duration: time.Since(start),
				Ops:      rounds * batch,
				Extra:    fmt.Sprintf("%d rounds of %d", rounds, batch),
			})
			return nil
		},
	}
	cmd.Flags().IntVar(&rounds, "rounds", 200, "Swap rounds")
	cmd.Flags().IntVar(&batch, "batch", 1000, "Decorations per swap")
	return cmd
}

func newEditsCmd() *cobra.Command {
	var edits int
	cmd := &cobra.Command{
		Use:   "edits",
		Short: "Measure edit throughput with decorations sliding",
		RunE: func(cmd *cobra.Command, args []string) error {
			b, err := setup()
			if err != nil {
				return err
			}
			defer b.doc.Close()

			start := time.Now()
			for i := 0; i < edits; i++ {
				offset := b.rng.Intn(b.length)
				if i%2 == 0 {
					if err := b.doc.Insert(offset, "xx"); err != nil {
						return err
					}
					b.length += 2
				} else {
					if err := b.doc.Delete(offset, 2); err != nil {
						return err
					}
					b.length -= 2
				}
			}
			fmt.Println(BenchResult{Name: "Random 2-byte edits", Duration: time.Since(start), Ops: edits})
			return nil
		},
	}
	cmd.Flags().IntVar(&edits, "edits", 10000, "Edits to apply")
	return cmd
}

func newQueryCmd() *cobra.Command {
	var queries int
	cmd := &cobra.Command{
		Use:   "query",
		Short: "Measure interval query throughput",
		RunE: func(cmd *cobra.Command, args []string) error {
			b, err := setup()
			if err != nil {
				return err
			}
			defer b.doc.Close()

			found := 0
			start := time.Now()
			for i := 0; i < queries; i++ {
				line := 1 + b.rng.Intn(flagLines)
				found += len(b.doc.LineDecorations(line, 0, false))
			}
			fmt.Println(BenchResult{
				Name:     "Line queries",
				Duration: time.Since(start),
				Ops:      queries,
				Extra:    fmt.Sprintf("%d decorations returned", found),
			})

			start = time.Now()
			rulerCount := len(b.doc.OverviewRulerDecorations(0, false))
			fmt.Println(BenchResult{
				Name:     "Overview ruler scan",
				Duration: time.Since(start),
				Extra:    fmt.Sprintf("%d decorations", rulerCount),
			})
			return nil
		},
	}
	cmd.Flags().IntVar(&queries, "queries", 100000, "Line queries to run")
	return cmd
}
