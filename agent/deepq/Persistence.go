package deepq

import (
	"os"

	"github.com/pkg/errors"
	"k8s.io/klog/v2"

	"github.com/Oz1231/TobogganGame/network"
	"github.com/Oz1231/TobogganGame/stats"
)

// persist writes the three artifacts — weights, statistics, replay
// transitions — to their configured paths. Persistence faults are
// logged and never interrupt training.
func (d *DeepQ) persist() {
	if d.config.WeightsFile != "" {
		if err := d.online.Save(d.config.WeightsFile); err != nil {
			klog.Errorf("persist: weights: %v", err)
		}
	}
	if d.config.StatsFile != "" {
		if err := d.tracker.Save(d.config.StatsFile); err != nil {
			klog.Errorf("persist: statistics: %v", err)
		}
	}
	if d.config.ReplayFile != "" {
		if err := d.replay.Save(d.config.ReplayFile); err != nil {
			klog.Errorf("persist: replay: %v", err)
		}
	}
}

// restore loads previously persisted state. The weights and statistics
// artifacts describe one coherent training run, so they are adopted
// only when both load; restoring one without the other would pair a
// trained network with mismatched schedules. The replay store is
// independent and restored on its own. Any fault degrades to a fresh
// component.
func (d *DeepQ) restore() {
	d.restoreNetworkAndStats()
	d.restoreReplay()
}

func (d *DeepQ) restoreNetworkAndStats() {
	if d.config.WeightsFile == "" || d.config.StatsFile == "" {
		return
	}

	online, weightsErr := network.Load(d.config.WeightsFile,
		d.online.Inputs(), d.online.Outputs(), d.config.LearningRate)

	tracker := stats.NewTracker()
	statsErr := tracker.Load(d.config.StatsFile)

	switch {
	case weightsErr == nil && statsErr == nil:
		d.online = online
		d.target = online.Clone()
		d.tracker = tracker
		if eps := tracker.Epsilon(); eps > 0 {
			d.selector.SetEpsilon(eps)
		}
		d.recomputeLearnFrequency()
		klog.V(1).Infof("restored approximator and statistics "+
			"(%d games, max score %d)", tracker.GamesPlayed(),
			tracker.MaxScore())

	case weightsErr == nil || statsErr == nil:
		// A partial restore would mix an approximator with schedules
		// from a different run; reset both together.
		klog.Warningf("restore: partial state (weights: %v, stats: %v); "+
			"starting fresh", errString(weightsErr), errString(statsErr))

	default:
		if missing(weightsErr) && missing(statsErr) {
			klog.V(1).Info("restore: no saved state, starting fresh")
		} else {
			klog.Warningf("restore: weights: %v", weightsErr)
			klog.Warningf("restore: statistics: %v", statsErr)
		}
	}
}

func (d *DeepQ) restoreReplay() {
	if d.config.ReplayFile == "" {
		return
	}
	if err := d.replay.Load(d.config.ReplayFile); err != nil {
		if missing(err) {
			klog.V(1).Info("restore: no saved replay transitions")
		} else {
			klog.Warningf("restore: replay: %v", err)
		}
		return
	}
	klog.V(1).Infof("restored %d replay transitions", d.replay.Len())
}

func missing(err error) bool {
	return os.IsNotExist(errors.Cause(err))
}

func errString(err error) string {
	if err == nil {
		return "ok"
	}
	return err.Error()
}
