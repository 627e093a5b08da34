// Package deepq implements the learning agent for the toboggan game:
// a Double-DQN over the 8-ray observation vector, with a hand-rolled
// function approximator, prioritized experience replay, an
// epsilon-greedy policy with a directed exploration fallback, and
// adaptive schedules for the learning rate and exploration rate.
package deepq

import (
	"math"

	"github.com/pkg/errors"
	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/mat"
	"k8s.io/klog/v2"

	"github.com/Oz1231/TobogganGame/environment"
	"github.com/Oz1231/TobogganGame/expreplay"
	"github.com/Oz1231/TobogganGame/grid"
	"github.com/Oz1231/TobogganGame/network"
	"github.com/Oz1231/TobogganGame/perception"
	"github.com/Oz1231/TobogganGame/policy"
	"github.com/Oz1231/TobogganGame/stats"
	ts "github.com/Oz1231/TobogganGame/timestep"
	"github.com/Oz1231/TobogganGame/utils/floatutils"
	"github.com/Oz1231/TobogganGame/utils/intutils"
)

// Score-trend windows used by the adaptive schedules: the short window
// measures recent performance, the long window the established level.
const (
	shortScoreWindow = 20
	longScoreWindow  = 200

	shortLossWindow = 20
	longLossWindow  = 200

	// positionHistoryCap bounds the per-episode head position history
	// kept for loop diagnostics.
	positionHistoryCap = 32
)

// DeepQ implements the Double-DQN learning agent. It satisfies
// agent.Closer.
type DeepQ struct {
	config Config

	sensor   *perception.Sensor
	online   *network.Network
	target   *network.Network
	replay   *expreplay.Store
	selector *policy.EGreedy
	tracker  *stats.Tracker
	rng      *rand.Rand

	// Pending action state between SelectAction and UpdateAfterMove.
	pendingObs    *mat.VecDense
	pendingAction int
	pendingHead   grid.Cell
	havePending   bool

	// Schedules and per-episode counters.
	frameCount      int // frames since the last learning pass
	learnEvery      int // current learning frequency
	ticks           int // lifetime tick counter, drives soft updates
	gradientSteps   int // lifetime learning passes, drives hard updates
	lastHardUpdate  int // gradientSteps at the most recent hard update
	framesSinceFlag int
	prevDistance    float64
	havePrevDist    bool
	minDistance     float64
	episodeReward   float64
	positionHistory []grid.Cell

	training bool
}

// New creates a DeepQ agent for a width×height world. Previously
// persisted weights, statistics, and replay transitions are restored
// when available; any artifact that is missing or unreadable degrades
// to a fresh component instead of failing.
func New(width, height int, config Config) (*DeepQ, error) {
	if err := config.Validate(); err != nil {
		return nil, errors.Wrap(err, "new")
	}

	online, err := network.New(perception.ObservationSize,
		config.HiddenSize, grid.NumDirections, config.LearningRate,
		config.Seed)
	if err != nil {
		return nil, errors.Wrap(err, "new: could not create approximator")
	}

	replay, err := config.Replay.Create(config.Seed + 1)
	if err != nil {
		return nil, errors.Wrap(err, "new: could not create replay store")
	}

	d := &DeepQ{
		config:      config,
		sensor:      perception.NewSensor(width, height),
		online:      online,
		target:      online.Clone(),
		replay:      replay,
		selector:    policy.NewEGreedy(config.Epsilon, config.Seed+2),
		tracker:     stats.NewTracker(),
		rng:         rand.New(rand.NewSource(config.Seed + 3)),
		learnEvery:  config.LearnEvery,
		minDistance: math.Inf(1),
		training:    true,
	}
	d.restore()

	return d, nil
}

// SelectAction builds the current observation with the perception
// model and picks one direction for this tick. The observation and
// action are retained so UpdateAfterMove can assemble the transition
// once the move resolves.
func (d *DeepQ) SelectAction(state environment.State) grid.Direction {
	obs, _ := d.sensor.Sense(state)

	qValues, err := d.online.Forward(obs)
	if err != nil {
		// Cannot happen with a sensor-produced observation; fall back
		// to the heuristic rather than crashing the tick.
		klog.Errorf("selectAction: forward pass failed: %v", err)
		return policy.Directed(state)
	}

	dir, mode := d.selector.SelectAction(state, qValues, d.framesSinceFlag)
	klog.V(2).Infof("tick %d: %v via %v", d.ticks, dir, mode)

	d.pendingObs = obs
	d.pendingAction = dir.ToAction()
	d.pendingHead = state.Head
	d.havePending = true
	return dir
}

// UpdateAfterMove consumes the post-move snapshot and outcome: it
// scores the move, records the transition, conditionally runs one
// learning pass, advances every schedule, and on episode termination
// records statistics and persists state.
func (d *DeepQ) UpdateAfterMove(state environment.State,
	outcome environment.Outcome) error {
	if !d.havePending {
		return nil
	}
	d.havePending = false
	d.ticks++

	intended := grid.FromAction(d.pendingAction).Apply(d.pendingHead)
	hitWall := !intended.In(state.Width, state.Height)
	hitObstacle := grid.Contains(state.Obstacles, intended)

	distance := state.Head.Euclidean(state.Flag)
	reward := Reward(RewardInput{
		PrevDistance:    d.previousDistance(distance),
		Distance:        distance,
		CollectedFlag:   outcome.CollectedFlag,
		HitObstacle:     hitObstacle,
		HitWall:         hitWall,
		FramesSinceFlag: d.framesSinceFlag,
		StuckAfter:      d.config.StuckAfter,
	})
	d.episodeReward += reward

	nextObs, _ := d.sensor.Sense(state)
	d.replay.Insert(ts.NewTransition(d.pendingObs, d.pendingAction,
		reward, nextObs, outcome.GameOver))

	if d.training {
		d.frameCount++
		if d.frameCount >= d.learnEvery &&
			d.replay.Len() >= d.replay.MinCapacity() {
			d.frameCount = 0
			if err := d.learn(); err != nil {
				return errors.Wrap(err, "updateAfterMove")
			}
		}
		d.adaptSchedules()
		d.syncTarget()
	}

	d.advanceEpisodeCounters(state, distance, outcome)

	if outcome.GameOver {
		d.endEpisode(state.Score)
	}
	return nil
}

// previousDistance returns the distance reference for shaping. The
// first tick of an episode has no previous measurement; shaping is
// suppressed by reusing the current distance.
func (d *DeepQ) previousDistance(current float64) float64 {
	if !d.havePrevDist {
		return current
	}
	return d.prevDistance
}

// advanceEpisodeCounters updates every per-tick episodic counter. The
// distance reference is recomputed from the post-move snapshot every
// tick; on a collection tick the snapshot already holds the relocated
// flag, so the next shaping delta is measured against the new flag and
// never against a stale one.
func (d *DeepQ) advanceEpisodeCounters(state environment.State,
	distance float64, outcome environment.Outcome) {
	if outcome.CollectedFlag {
		d.framesSinceFlag = 0
		d.minDistance = math.Inf(1)
	} else {
		d.framesSinceFlag++
	}

	d.prevDistance = state.Head.Euclidean(state.Flag)
	d.havePrevDist = true
	if distance < d.minDistance {
		d.minDistance = distance
	}

	d.positionHistory = append(d.positionHistory, state.Head)
	if len(d.positionHistory) > positionHistoryCap {
		d.positionHistory = d.positionHistory[1:]
	}
	if d.looping(state.Head) {
		klog.V(2).Infof("tick %d: revisiting %v, agent may be looping",
			d.ticks, state.Head)
	}
}

// looping reports whether the head has revisited its current cell
// often within the recent position history.
func (d *DeepQ) looping(head grid.Cell) bool {
	visits := 0
	for _, c := range d.positionHistory {
		if c.Equal(head) {
			visits++
		}
	}
	return visits >= 3
}

// learn runs one learning pass: sample a prioritized batch, compute a
// Double-DQN target per transition, shape the target by its alignment
// with the directed heuristic, and backpropagate a sparse update per
// transition. The mean squared error between the adjusted targets and
// the pre-update predictions feeds the statistics tracker.
func (d *DeepQ) learn() error {
	batch, err := d.replay.SampleBatch(d.config.BatchSize)
	if err != nil {
		if expreplay.IsInsufficientSamples(err) ||
			expreplay.IsEmptyStore(err) {
			return nil
		}
		return errors.Wrap(err, "learn")
	}

	var lossSum float64
	for _, t := range batch {
		target, err := d.targetValue(t)
		if err != nil {
			return errors.Wrap(err, "learn")
		}

		prediction, err := d.online.Forward(t.State)
		if err != nil {
			return errors.Wrap(err, "learn")
		}
		tdErr := target - prediction[t.Action]
		lossSum += tdErr * tdErr

		if err := d.online.TrainSingleAction(t.State, t.Action,
			target); err != nil {
			return errors.Wrap(err, "learn")
		}
	}

	d.tracker.AddLoss(lossSum / float64(len(batch)))
	d.tracker.AddTrainingStep()
	d.gradientSteps++
	return nil
}

// targetValue computes the Double-DQN target for one transition: the
// online network selects the best next action, the target network
// evaluates it. The result is clipped and then scaled by the
// heuristic-alignment multiplier.
func (d *DeepQ) targetValue(t ts.Transition) (float64, error) {
	target := t.Reward
	if !t.Done {
		nextOnline, err := d.online.Forward(t.NextState)
		if err != nil {
			return 0, err
		}
		nextTarget, err := d.target.Forward(t.NextState)
		if err != nil {
			return 0, err
		}
		best := floatutils.ArgMax(nextOnline)
		target += d.config.Discount * nextTarget[best]
	}

	target = floatutils.Clip(target, -d.config.TargetClip,
		d.config.TargetClip)
	return d.alignTarget(t, target), nil
}

// alignTarget injects domain knowledge into the TD target without
// touching the reward itself: a replayed action pointing at (or within
// two compass steps of) the flag direction visible in its observation
// is boosted, one pointing exactly away is dampened. Transitions whose
// rays never saw the flag pass through unchanged.
func (d *DeepQ) alignTarget(t ts.Transition, target float64) float64 {
	flagDir, ok := flagDirection(t.State)
	if !ok {
		return target
	}

	steps := grid.FromAction(t.Action).AngularSteps(flagDir)
	switch {
	case steps <= 2:
		return target * d.config.AlignBoost
	case steps == grid.NumDirections/2:
		return target * d.config.AlignDamp
	default:
		return target
	}
}

// flagDirection recovers the heuristic-optimal direction from a stored
// observation: the ray with the strongest flag-visibility reading. ok
// is false when no ray saw the flag.
func flagDirection(obs mat.Vector) (grid.Direction, bool) {
	best := grid.North
	bestValue := 0.0
	for dir := 0; dir < grid.NumDirections; dir++ {
		v := obs.AtVec(dir*perception.ChannelsPerRay + 2)
		if v > bestValue {
			best = grid.Direction(dir)
			bestValue = v
		}
	}
	return best, bestValue > 0
}

// adaptSchedules advances the learning-rate and exploration-rate
// schedules. Both decay geometrically every tick; the decay speed is
// modulated by the loss and score trends, and the exploration rate
// receives a temporary boost when recent scores regress sharply
// against the long-run window.
func (d *DeepQ) adaptSchedules() {
	// Learning rate: decay faster while the loss trend is rising.
	decay := d.config.LearningRateDecay
	if d.lossRising() {
		decay = decay * decay
	}
	lr := d.online.LearningRate() * decay
	d.online.SetLearningRate(math.Max(d.config.LearningRateMin, lr))

	// Exploration rate.
	short, haveShort := d.tracker.MeanScore(shortScoreWindow)
	long, haveLong := d.tracker.MeanScore(longScoreWindow)

	eps := d.selector.Epsilon()
	if haveShort && haveLong && long > 0 && short < long/2 &&
		d.tracker.GamesPlayed() > shortScoreWindow {
		// Sharp regression: re-explore, but never back to fully
		// random.
		eps = math.Min(eps*d.config.EpsilonBoost, 0.5)
	} else {
		factor := d.config.EpsilonDecay
		if haveShort && haveLong && short > long {
			// Performance is improving; retire exploration faster.
			factor *= factor
		}
		eps = math.Max(d.config.EpsilonMin, eps*factor)
	}
	d.selector.SetEpsilon(eps)
	d.tracker.SetEpsilon(eps)
}

// lossRising reports whether the short-window loss trend sits above
// the long-window trend.
func (d *DeepQ) lossRising() bool {
	short, ok := d.tracker.TrimmedMeanLoss(shortLossWindow)
	if !ok {
		return false
	}
	long, ok := d.tracker.TrimmedMeanLoss(longLossWindow)
	if !ok {
		return false
	}
	return short > long
}

// syncTarget keeps the target network trailing the online network: a
// small Polyak blend on a subsample of ticks, and a full copy on a
// fixed learning-pass cadence to reset any accumulated drift.
func (d *DeepQ) syncTarget() {
	if d.ticks%d.config.SoftUpdateEvery == 0 {
		if err := d.target.SoftUpdate(d.online, d.config.Tau); err != nil {
			klog.Errorf("syncTarget: %v", err)
		}
	}
	if d.gradientSteps > d.lastHardUpdate &&
		d.gradientSteps%d.config.HardUpdateEvery == 0 {
		d.target.HardUpdate(d.online)
		d.lastHardUpdate = d.gradientSteps
	}
}

// endEpisode records the finished episode, persists state on the
// configured cadence, resets the per-episode counters, and recomputes
// the learning frequency from the updated long-run statistics.
func (d *DeepQ) endEpisode(score int) {
	d.tracker.RecordEpisode(score, d.episodeReward)

	if d.config.SaveEvery > 0 &&
		d.tracker.GamesPlayed()%d.config.SaveEvery == 0 {
		d.persist()
	}

	d.framesSinceFlag = 0
	d.havePrevDist = false
	d.minDistance = math.Inf(1)
	d.episodeReward = 0
	d.positionHistory = d.positionHistory[:0]
	d.havePending = false

	d.recomputeLearnFrequency()
}

// recomputeLearnFrequency relaxes the learning frequency as the
// long-run score level rises: an agent that already plays well trains
// on fewer of its (mostly redundant) transitions.
func (d *DeepQ) recomputeLearnFrequency() {
	mean, ok := d.tracker.MeanScore(longScoreWindow)
	if !ok {
		return
	}
	d.learnEvery = intutils.Clamp(d.config.LearnEvery+int(mean)/5,
		d.config.LearnEvery, 4*d.config.LearnEvery)
}

// SetTraining toggles learning. Disabling training flushes all state
// to disk so an evaluation run can be resumed from later.
func (d *DeepQ) SetTraining(training bool) {
	if d.training && !training {
		d.persist()
	}
	d.training = training
}

// Training returns whether learning currently runs.
func (d *DeepQ) Training() bool {
	return d.training
}

// Epsilon returns the current exploration rate.
func (d *DeepQ) Epsilon() float64 {
	return d.selector.Epsilon()
}

// LearningRate returns the online approximator's current learning
// rate.
func (d *DeepQ) LearningRate() float64 {
	return d.online.LearningRate()
}

// Tracker exposes the learning statistics for reporting.
func (d *DeepQ) Tracker() *stats.Tracker {
	return d.tracker
}

// ReplaySize returns the number of stored transitions.
func (d *DeepQ) ReplaySize() int {
	return d.replay.Len()
}

// EpisodeMinDistance returns the closest straight-line distance to the
// flag reached during the current episode.
func (d *DeepQ) EpisodeMinDistance() float64 {
	return d.minDistance
}

// Reset discards everything learned and returns the agent to a
// consistent freshly initialized state: new networks, empty replay
// store, cleared statistics, and restarted schedules.
func (d *DeepQ) Reset() error {
	online, err := network.New(perception.ObservationSize,
		d.config.HiddenSize, grid.NumDirections, d.config.LearningRate,
		d.rng.Uint64())
	if err != nil {
		return errors.Wrap(err, "reset")
	}

	d.online = online
	d.target = online.Clone()
	d.replay.Clear()
	d.tracker.Reset()
	d.selector.SetEpsilon(d.config.Epsilon)

	d.frameCount = 0
	d.learnEvery = d.config.LearnEvery
	d.ticks = 0
	d.gradientSteps = 0
	d.lastHardUpdate = 0
	d.framesSinceFlag = 0
	d.havePrevDist = false
	d.minDistance = math.Inf(1)
	d.episodeReward = 0
	d.positionHistory = nil
	d.havePending = false
	return nil
}

// Close persists all state. The agent remains usable afterwards;
// Close exists so hosts can flush on shutdown.
func (d *DeepQ) Close() error {
	d.persist()
	return nil
}
