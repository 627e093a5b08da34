// Package experiment implements functionality for running self-play
// experiments: a world simulation and a learning agent are stepped
// against each other for a number of episodes, with a step limit
// guarding against non-terminating episodes.
package experiment

// Experiment outlines types that can run self-play experiments. Run
// plays episodes until the episode budget is exhausted; RunEpisode
// plays exactly one episode and reports its score.
type Experiment interface {
	Run() error
	RunEpisode() (score int, err error)
}
