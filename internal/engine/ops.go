package engine

import (
	"context"
	"fmt"
	"time"

	"clowder-server/internal/colony"
	"clowder-server/internal/event"
	"clowder-server/internal/job"
	"clowder-server/internal/player"
	"clowder-server/internal/shared/errors"
	"clowder-server/internal/store"
	"clowder-server/internal/upgrade"
)

// RequestResult is the outcome of a job request. Ritual requests return
// Requested instead of a job id: the tick enqueues the ritual once the
// offering is affordable and the altar is free.
type RequestResult struct {
	JobID     string `json:"job_id,omitempty"`
	Requested bool   `json:"requested,omitempty"`
}

// BoostResult reports one applied click boost.
type BoostResult struct {
	ReducedBySec float64   `json:"reduced_by_sec"`
	NewEndsAt    time.Time `json:"new_ends_at"`
}

// PurchaseResult reports a completed upgrade purchase.
type PurchaseResult struct {
	Key             string `json:"key"`
	Level           int    `json:"level"`
	RemainingPoints int    `json:"remaining_points"`
}

// RegisterSession upserts the player row for a freshly minted visitor
// session.
func (e *Engine) RegisterSession(ctx context.Context, sessionID, nickname string) (*player.Player, error) {
	logger := e.logger.With("component", "engine", "operation", "register_session")

	var registered *player.Player
	err := e.store.Update(ctx, e.colonyID, func(tx store.Tx) error {
		c, err := tx.Colony()
		if err != nil {
			return err
		}
		p, err := touchPlayer(tx, c, sessionID, nickname, e.Now())
		if err != nil {
			return err
		}
		if err := tx.UpsertPlayer(p); err != nil {
			return err
		}
		if err := tx.SaveColony(c); err != nil {
			return err
		}
		registered = p
		return nil
	})
	if err != nil {
		logger.Error("Failed to register session", "error", err)
		return nil, err
	}

	logger.Info("Session registered", "nickname", registered.Nickname)
	return registered, nil
}

// RequestJob files a job on the visitor's behalf. A queued-or-active job
// in the same conflict class rejects the request; rituals stamp the
// pending-request marker instead of queuing directly.
func (e *Engine) RequestJob(ctx context.Context, sessionID, nickname string, kind job.Kind) (*RequestResult, error) {
	logger := e.logger.With("component", "engine", "operation", "request_job", "kind", string(kind))

	if !job.ValidKind(kind) {
		return nil, errors.Validationf("unknown job kind: %s", kind)
	}
	if !job.Requestable(kind) {
		return nil, errors.Validationf("job kind %s cannot be requested directly", kind)
	}

	var result RequestResult
	err := e.store.Update(ctx, e.colonyID, func(tx store.Tx) error {
		now := e.Now()

		c, err := tx.Colony()
		if err != nil {
			return err
		}
		jobs, err := tx.Jobs()
		if err != nil {
			return err
		}
		if conflict := conflictingJob(jobs, kind); conflict != nil {
			return errors.Conflictf("a %s job is already %s", conflict.Kind, conflict.Status)
		}

		p, err := touchPlayer(tx, c, sessionID, nickname, now)
		if err != nil {
			return err
		}

		if kind == job.KindRitual {
			if c.RitualRequestedAt != nil && now.Sub(*c.RitualRequestedAt).Hours() < e.bal.RitualFreshnessHours {
				return errors.Conflict("ritual already pending")
			}
			c.RitualRequestedAt = &now
			result = RequestResult{Requested: true}
		} else {
			j := newJob(c.ID, kind, job.RequestedByPlayer, &sessionID)
			if err := tx.InsertJob(j); err != nil {
				return err
			}
			ev := event.New(c.ID, event.TypeJobQueued,
				fmt.Sprintf("%s asked for a %s job", displayName(p), kind)).
				WithMeta("kind", string(kind))
			if err := tx.InsertEvent(ev); err != nil {
				return err
			}
			result = RequestResult{JobID: j.ID}
		}

		p.JobsRequested++
		if err := tx.UpsertPlayer(p); err != nil {
			return err
		}
		return tx.SaveColony(c)
	})
	if err != nil {
		return nil, err
	}

	logger.Info("Job requested", "job_id", result.JobID, "ritual_pending", result.Requested)
	return &result, nil
}

// ClickBoostJob shaves time off a job for one click. Boosting a queued
// job activates it first; the shave value decays inside the caller's
// rolling click window and the job can never finish sooner than the
// minimum floor.
func (e *Engine) ClickBoostJob(ctx context.Context, sessionID, nickname, jobID string) (*BoostResult, error) {
	logger := e.logger.With("component", "engine", "operation", "click_boost", "job_id", jobID)

	var result BoostResult
	err := e.store.Update(ctx, e.colonyID, func(tx store.Tx) error {
		now := e.Now()

		c, err := tx.Colony()
		if err != nil {
			return err
		}
		j, err := tx.JobByID(jobID)
		if err != nil {
			return err
		}
		if j == nil {
			return errors.NotFoundf("job %s not found", jobID)
		}
		if !j.Live() {
			return errors.Validationf("job %s is %s and cannot be boosted", jobID, j.Status)
		}

		p, err := touchPlayer(tx, c, sessionID, nickname, now)
		if err != nil {
			return err
		}
		clicks := p.RegisterClick(now, e.bal.ClickWindowSeconds)

		ups, err := tx.Upgrades()
		if err != nil {
			return err
		}
		levels := levelsByKey(ups)

		if j.Status == job.StatusQueued {
			cats, err := tx.Cats()
			if err != nil {
				return err
			}
			activateJob(j, cats, levels, c.TimeScale, now)
		}

		reduce := job.BoostSeconds(e.bal, levels[upgrade.KeyClickPower], clicks)
		shaved := job.ApplyBoost(j, now, reduce, e.bal.MinJobSeconds)

		if err := tx.SaveJob(j); err != nil {
			return err
		}
		if err := tx.UpsertPlayer(p); err != nil {
			return err
		}
		if err := tx.SaveColony(c); err != nil {
			return err
		}

		result = BoostResult{ReducedBySec: shaved, NewEndsAt: *j.EndsAt}
		return nil
	})
	if err != nil {
		return nil, err
	}

	logger.Debug("Boost applied", "reduced_by_sec", result.ReducedBySec)
	return &result, nil
}

// PurchaseUpgrade spends global upgrade points on the next level of a
// catalog track. The debit and the level bump commit together.
func (e *Engine) PurchaseUpgrade(ctx context.Context, sessionID, nickname, key string) (*PurchaseResult, error) {
	logger := e.logger.With("component", "engine", "operation", "purchase_upgrade", "key", key)

	if !upgrade.ValidKey(key) {
		return nil, errors.NotFoundf("unknown upgrade key: %s", key)
	}

	var result PurchaseResult
	err := e.store.Update(ctx, e.colonyID, func(tx store.Tx) error {
		now := e.Now()

		c, err := tx.Colony()
		if err != nil {
			return err
		}
		u, err := tx.UpgradeByKey(key)
		if err != nil {
			return err
		}
		if u == nil {
			return errors.NotFoundf("unknown upgrade key: %s", key)
		}
		if err := upgrade.ValidatePurchase(u, c.GlobalUpgradePoints); err != nil {
			return err
		}

		c.GlobalUpgradePoints -= u.NextCost()
		u.Level++
		if u.Key == upgrade.KeyAutomation {
			c.AutomationTier = clampTier(c.AutomationTier + 1)
		}

		p, err := touchPlayer(tx, c, sessionID, nickname, now)
		if err != nil {
			return err
		}
		p.UpgradesPurchased++

		ev := event.New(c.ID, event.TypeUpgradePurchased,
			fmt.Sprintf("%s bought %s level %d", displayName(p), u.Key, u.Level)).
			WithMeta("key", u.Key)
		if err := tx.InsertEvent(ev); err != nil {
			return err
		}

		if err := tx.SaveUpgrade(u); err != nil {
			return err
		}
		if err := tx.UpsertPlayer(p); err != nil {
			return err
		}
		if err := tx.SaveColony(c); err != nil {
			return err
		}

		result = PurchaseResult{Key: u.Key, Level: u.Level, RemainingPoints: c.GlobalUpgradePoints}
		return nil
	})
	if err != nil {
		return nil, err
	}

	logger.Info("Upgrade purchased", "level", result.Level, "remaining_points", result.RemainingPoints)
	return &result, nil
}

// Acceleration preset names.
const (
	PresetOff   = "off"
	PresetFast  = "fast"
	PresetTurbo = "turbo"
)

// Acceleration is the resolved override set a preset maps to.
type Acceleration struct {
	Preset                  string   `json:"preset"`
	TimeScale               float64  `json:"time_scale"`
	ResourceDecayMultiplier float64  `json:"resource_decay_multiplier"`
	ResilienceHoursOverride *float64 `json:"resilience_hours_override,omitempty"`
	CriticalWindowMs        int64    `json:"critical_window_ms"`
}

func accelerationFor(preset string) (Acceleration, error) {
	switch preset {
	case PresetOff:
		return Acceleration{
			Preset:                  preset,
			TimeScale:               1,
			ResourceDecayMultiplier: 1,
			CriticalWindowMs:        colony.DefaultCriticalWindowMs,
		}, nil
	case PresetFast:
		hours := 0.1
		return Acceleration{
			Preset:                  preset,
			TimeScale:               60,
			ResourceDecayMultiplier: 10,
			ResilienceHoursOverride: &hours,
			CriticalWindowMs:        60000,
		}, nil
	case PresetTurbo:
		hours := 0.0
		return Acceleration{
			Preset:                  preset,
			TimeScale:               600,
			ResourceDecayMultiplier: 60,
			ResilienceHoursOverride: &hours,
			CriticalWindowMs:        1000,
		}, nil
	default:
		return Acceleration{}, errors.Validationf("unknown acceleration preset: %s", preset)
	}
}

// SetTestAcceleration applies one of the named override presets. It is
// an ops knob: it does not count as player activity.
func (e *Engine) SetTestAcceleration(ctx context.Context, preset string) (*Acceleration, error) {
	logger := e.logger.With("component", "engine", "operation", "set_test_acceleration", "preset", preset)

	acc, err := accelerationFor(preset)
	if err != nil {
		return nil, err
	}

	err = e.store.Update(ctx, e.colonyID, func(tx store.Tx) error {
		c, err := tx.Colony()
		if err != nil {
			return err
		}
		c.TimeScale = acc.TimeScale
		c.ResourceDecayMultiplier = acc.ResourceDecayMultiplier
		c.ResilienceHoursOverride = acc.ResilienceHoursOverride
		c.CriticalWindowMs = acc.CriticalWindowMs
		return tx.SaveColony(c)
	})
	if err != nil {
		logger.Error("Failed to apply acceleration preset", "error", err)
		return nil, err
	}

	logger.Warn("Acceleration preset applied")
	return &acc, nil
}
