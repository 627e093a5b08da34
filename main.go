// Command toboggan trains the learning agent by headless self-play
// and reports its progress. All learned state is persisted between
// runs, so repeated invocations keep improving the same agent.
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/schollz/progressbar/v3"
	"k8s.io/klog/v2"

	"github.com/Oz1231/TobogganGame/agent"
	"github.com/Oz1231/TobogganGame/agent/deepq"
	"github.com/Oz1231/TobogganGame/environment/toboggan"
	"github.com/Oz1231/TobogganGame/experiment"
)

func main() {
	var (
		width    = flag.Int("width", 20, "grid width in cells")
		height   = flag.Int("height", 20, "grid height in cells")
		episodes = flag.Int("episodes", 1000, "number of episodes to play")
		seed     = flag.Uint64("seed", 1, "random seed")
		dataDir  = flag.String("data", ".", "directory for persisted state")
	)
	klog.InitFlags(nil)
	flag.Parse()

	if err := run(*width, *height, *episodes, *seed, *dataDir); err != nil {
		fmt.Fprintf(os.Stderr, "toboggan: %v\n", err)
		os.Exit(1)
	}
}

func run(width, height, episodes int, seed uint64, dataDir string) error {
	config := deepq.DefaultConfig()
	config.Seed = seed
	config.WeightsFile = dataDir + "/toboggan-weights.bin"
	config.StatsFile = dataDir + "/toboggan-stats.bin"
	config.ReplayFile = dataDir + "/toboggan-replay.bin"

	dqn, err := deepq.New(width, height, config)
	if err != nil {
		return err
	}
	defer closeAgent(dqn)

	world := toboggan.New(width, height, seed)

	bar := progressbar.NewOptions(episodes,
		progressbar.OptionSetDescription("self-play"),
		progressbar.OptionShowCount(),
	)

	exp := experiment.NewOnline(world, dqn, episodes,
		func(episode, score int) {
			bar.Add(1)
			if episode%100 == 0 {
				mean, _ := dqn.Tracker().MeanScore(100)
				klog.V(1).Infof("episode %d: score %d, mean %.2f, "+
					"max %d, eps %.3f, lr %.5f, replay %d",
					episode, score, mean, dqn.Tracker().MaxScore(),
					dqn.Epsilon(), dqn.LearningRate(),
					dqn.ReplaySize())
			}
		})

	if err := exp.Run(); err != nil {
		return err
	}

	mean, _ := dqn.Tracker().MeanScore(100)
	fmt.Printf("\nplayed %d episodes: mean score %.2f, max score %d\n",
		dqn.Tracker().GamesPlayed(), mean, dqn.Tracker().MaxScore())
	return nil
}

// closeAgent flushes an agent's pending state on shutdown. Close
// faults only cost the last save interval, so they are logged rather
// than propagated.
func closeAgent(a agent.Closer) {
	if err := a.Close(); err != nil {
		klog.Errorf("close: %v", err)
	}
}
