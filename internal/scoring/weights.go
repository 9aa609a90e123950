package scoring

import (
	"context"
	"fmt"

	"github.com/alfredjeanlab/patrol/internal/model"
)

// DefaultTaskWeights is the share each task contributes to a miner's weight.
func DefaultTaskWeights() map[model.TaskType]float64 {
	return map[model.TaskType]float64{
		model.TaskHotkeyOwnership:  60,
		model.TaskPredictAlphaSell: 40,
	}
}

// CalculateWeights blends per-task moving averages into one weight per miner.
// Within a task a miner's share is its average over the task total; shares
// are then combined by task weight. Tasks whose registered total is zero do
// not contribute. When registered is nil every miner is considered.
func CalculateWeights(
	perTask map[model.TaskType]map[model.MinerKey]float64,
	taskWeights map[model.TaskType]float64,
	registered []model.MinerKey,
) map[model.MinerKey]float64 {
	var allowed map[model.MinerKey]struct{}
	if registered != nil {
		allowed = make(map[model.MinerKey]struct{}, len(registered))
		for _, k := range registered {
			allowed[k] = struct{}{}
		}
	}

	type taskShare struct {
		weight float64
		total  float64
		scores map[model.MinerKey]float64
	}

	var (
		shares      []taskShare
		totalWeight float64
		miners      = make(map[model.MinerKey]struct{})
	)
	for task, weight := range taskWeights {
		ts := taskShare{weight: weight, scores: make(map[model.MinerKey]float64)}
		for k, v := range perTask[task] {
			if allowed != nil {
				if _, ok := allowed[k]; !ok {
					continue
				}
			}
			ts.scores[k] = v
			ts.total += v
			miners[k] = struct{}{}
		}
		if ts.total == 0 {
			continue
		}
		shares = append(shares, ts)
		totalWeight += weight
	}

	out := make(map[model.MinerKey]float64, len(miners))
	for k := range miners {
		if totalWeight == 0 {
			out[k] = 0
			continue
		}
		var w float64
		for _, ts := range shares {
			w += ts.weight * ts.scores[k] / ts.total
		}
		out[k] = w / totalWeight
	}
	return out
}

// MovingAverages supplies each miner's latest moving average for a task.
type MovingAverages interface {
	FindLastMovingAverages(ctx context.Context, taskType model.TaskType) (map[model.MinerKey]float64, error)
}

// LatestWeights loads the latest moving average of every weighted task and
// blends them with CalculateWeights.
func LatestWeights(ctx context.Context, src MovingAverages, taskWeights map[model.TaskType]float64, registered []model.MinerKey) (map[model.MinerKey]float64, error) {
	perTask := make(map[model.TaskType]map[model.MinerKey]float64, len(taskWeights))
	for task := range taskWeights {
		avgs, err := src.FindLastMovingAverages(ctx, task)
		if err != nil {
			return nil, fmt.Errorf("load %s moving averages: %w", task, err)
		}
		perTask[task] = avgs
	}
	return CalculateWeights(perTask, taskWeights, registered), nil
}
