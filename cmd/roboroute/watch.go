package main

import (
	"fmt"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/pdrpinto/roboroute"
	"github.com/pdrpinto/roboroute/internal/watch"
)

var (
	watchHeuristic string
	watchInterval  time.Duration
	watchPaused    bool
	watchSeed      uint64
	watchRows      int
	watchCols      int
)

func init() {
	watchCmd.Flags().StringVar(&watchHeuristic, "heuristic", "", "heuristic (euclidean|manhattan), defaults to config")
	watchCmd.Flags().DurationVar(&watchInterval, "interval", 80*time.Millisecond, "delay between expansions")
	watchCmd.Flags().BoolVar(&watchPaused, "paused", false, "start paused; press n to step")
	watchCmd.Flags().Uint64Var(&watchSeed, "seed", 0, "seed for a random grid (0 uses the clock)")
	watchCmd.Flags().IntVar(&watchRows, "rows", 0, "rows of a random grid")
	watchCmd.Flags().IntVar(&watchCols, "cols", 0, "columns of a random grid")
}

var watchCmd = &cobra.Command{
	Use:   "watch [request.json|request.yaml]",
	Short: "Animate a search in the terminal",
	Long: `watch replays the search one node expansion at a time. Without a request
file it generates a random grid with clustered obstacles.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		name := watchHeuristic
		if name == "" {
			name = cfg.Search.Heuristic
		}

		var (
			cells       [][]int
			start, goal roboroute.Cell
		)
		if len(args) == 1 {
			req, err := readRequest(args[0])
			if err != nil {
				return err
			}
			if req.Start == nil || req.Goal == nil {
				return fmt.Errorf("%w: start and goal are required", roboroute.ErrInvalidInput)
			}
			if req.Heuristic != "" && watchHeuristic == "" {
				name = req.Heuristic
			}
			cells, start, goal = req.Grid, *req.Start, *req.Goal
		} else {
			layout := watch.DefaultLayout()
			if watchRows > 0 {
				layout.Rows = watchRows
			}
			if watchCols > 0 {
				layout.Cols = watchCols
			}
			seed := watchSeed
			if seed == 0 {
				seed = uint64(time.Now().UnixNano())
			}
			cells, start, goal = watch.Generate(layout, seed)
		}

		heuristic, err := roboroute.ParseHeuristic(name)
		if err != nil {
			return err
		}
		model, err := watch.NewModel(roboroute.NewPathfinder(
			roboroute.WithHeuristic(heuristic),
			roboroute.WithSearchOptions(roboroute.WithWorkers(cfg.Search.Workers)),
		), cells, start, goal)
		if err != nil {
			return err
		}
		defer model.Close()
		model.SetInterval(watchInterval)
		model.SetPaused(watchPaused)

		_, err = tea.NewProgram(model, tea.WithAltScreen(), tea.WithContext(cmd.Context())).Run()
		return err
	},
}
