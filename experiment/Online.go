package experiment

import (
	"github.com/pkg/errors"

	"github.com/Oz1231/TobogganGame/agent"
	env "github.com/Oz1231/TobogganGame/environment"
)

// DefaultStepLimit bounds a single episode. An agent that neither
// crashes nor collects flags would otherwise tick forever; hitting the
// limit ends the episode as if the world had terminated it.
const DefaultStepLimit = 5000

// Online is an Experiment that trains an agent by live self-play, one
// world tick at a time.
type Online struct {
	world    env.World
	agent    agent.Agent
	episodes int

	stepLimit int

	// onEpisode, when set, observes every finished episode. The
	// training driver uses it for progress reporting.
	onEpisode func(episode, score int)
}

// NewOnline creates a self-play experiment playing the given number of
// episodes.
func NewOnline(world env.World, a agent.Agent, episodes int,
	onEpisode func(episode, score int)) *Online {
	return &Online{
		world:     world,
		agent:     a,
		episodes:  episodes,
		stepLimit: DefaultStepLimit,
		onEpisode: onEpisode,
	}
}

// SetStepLimit replaces the per-episode step limit.
func (o *Online) SetStepLimit(limit int) {
	if limit > 0 {
		o.stepLimit = limit
	}
}

// RunEpisode plays a single episode to termination and returns its
// score.
func (o *Online) RunEpisode() (int, error) {
	state := o.world.Reset()

	for step := 0; ; step++ {
		dir := o.agent.SelectAction(state)
		outcome := o.world.Step(dir)
		state = o.world.State()

		// A stalled episode is cut off and reported to the agent as
		// terminal so its end-of-episode bookkeeping still runs.
		if step+1 >= o.stepLimit {
			outcome.GameOver = true
		}

		if err := o.agent.UpdateAfterMove(state, outcome); err != nil {
			return state.Score, errors.Wrap(err, "runEpisode")
		}
		if outcome.GameOver {
			return state.Score, nil
		}
	}
}

// Run plays all episodes of the experiment.
func (o *Online) Run() error {
	for episode := 1; episode <= o.episodes; episode++ {
		score, err := o.RunEpisode()
		if err != nil {
			return errors.Wrapf(err, "run: episode %d", episode)
		}
		if o.onEpisode != nil {
			o.onEpisode(episode, score)
		}
	}
	return nil
}
