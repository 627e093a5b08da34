package deepq

// Reward magnitudes. The failure penalties are intentionally larger
// than the per-step shaping rewards so that safety dominates greed
// over many short-horizon steps.
const (
	ObstaclePenalty = -50.0
	WallPenalty     = -50.0
	FlagBonus       = 75.0

	ApproachFactor = 5.0
	RetreatFactor  = 3.0
	TimePenalty    = -0.3
)

// RewardInput packages everything the reward function reads for one
// resolved move. Distances are straight-line distances from the head
// to the flag; PrevDistance was measured before the move and Distance
// after it.
type RewardInput struct {
	PrevDistance float64
	Distance     float64

	CollectedFlag bool
	HitObstacle   bool
	HitWall       bool

	// FramesSinceFlag is the number of ticks since the last flag
	// collection; once it exceeds StuckAfter a small constant time
	// penalty applies.
	FramesSinceFlag int
	StuckAfter      int
}

// Reward scores one resolved move.
//
// Collecting the flag pays the fixed bonus and short-circuits the
// distance shaping, since the flag has already relocated and any
// distance delta against the old flag is meaningless. Otherwise the
// move is shaped by the distance delta: approaching pays
// ApproachFactor per cell of improvement, retreating costs
// RetreatFactor per cell of regression, and a constant time penalty
// accrues once the agent has gone too long without a flag. The
// obstacle and wall penalties stack on top of either branch.
func Reward(in RewardInput) float64 {
	var reward float64

	if in.HitObstacle {
		reward += ObstaclePenalty
	}
	if in.HitWall {
		reward += WallPenalty
	}

	if in.CollectedFlag {
		reward += FlagBonus
	} else {
		delta := in.PrevDistance - in.Distance
		if delta > 0 {
			reward += ApproachFactor * delta
		} else {
			reward += RetreatFactor * delta
		}
		if in.FramesSinceFlag > in.StuckAfter {
			reward += TimePenalty
		}
	}

	return reward
}
