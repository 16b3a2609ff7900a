package service

import (
	"context"
	"encoding/json"
	"time"

	"github.com/ericogr/skirmish/internal/constants"
	"github.com/ericogr/skirmish/internal/game"
	"github.com/ericogr/skirmish/internal/logging"
	"github.com/ericogr/skirmish/internal/storage"
)

const archiveTimeout = 5 * time.Second

// watch waits for the battle to end, stamps the end time used for eviction
// and hands the result to the recorder.
func (m *Manager) watch(id string, e *entry) {
	defer m.wg.Done()
	select {
	case <-e.eng.Done():
	case <-m.stop:
		return
	}
	now := m.opts.Now()
	m.mu.Lock()
	e.endedAt = now
	m.mu.Unlock()

	if m.opts.Recorder == nil {
		return
	}
	rec, err := resultRecord(e.eng.Snapshot(), now)
	if err != nil {
		logging.Error("failed to encode battle result", err, logging.Fields{constants.LogFieldBattleID: id})
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), archiveTimeout)
	defer cancel()
	_, span := tracer.Start(ctx, "battle.archive")
	defer span.End()
	if err := m.opts.Recorder.RecordResult(ctx, rec); err != nil {
		fail(span, err)
		logging.Error("failed to archive battle result", err, logging.Fields{constants.LogFieldBattleID: id})
		return
	}
	logging.Debug("battle result archived", logging.Fields{
		constants.LogFieldBattleID: id,
		constants.LogFieldOutcome:  rec.Outcome,
	})
}

func resultRecord(snap game.Snapshot, endedAt time.Time) (*storage.BattleResultRecord, error) {
	raw, err := json.Marshal(snap)
	if err != nil {
		return nil, err
	}
	rec := &storage.BattleResultRecord{
		BattleID: snap.ID,
		Type:     string(snap.Type),
		Turns:    snap.Turn,
		Snapshot: raw,
		EndedAt:  endedAt,
	}
	if a := snap.Battle.Side(game.SideA); a != nil {
		rec.SideAName = a.Name
	}
	if b := snap.Battle.Side(game.SideB); b != nil {
		rec.SideBName = b.Name
	}
	if r := snap.Result; r != nil {
		rec.Winner = string(r.Winner)
		rec.Outcome = string(r.Outcome)
		rec.Reason = r.Reason
		rec.Turns = r.Turns
	}
	return rec, nil
}

// Evict drops finished battles whose retention window has passed and
// returns how many were removed.
func (m *Manager) Evict(now time.Time) int {
	m.mu.Lock()
	var gone []*entry
	for id, e := range m.battles {
		if e.endedAt.IsZero() || now.Sub(e.endedAt) < m.opts.Defaults.Retention {
			continue
		}
		gone = append(gone, e)
		delete(m.battles, id)
	}
	m.mu.Unlock()

	for _, e := range gone {
		e.eng.Close()
		e.hub.Close()
	}
	if len(gone) > 0 {
		logging.Debug("evicted finished battles", logging.Fields{"count": len(gone)})
	}
	return len(gone)
}

// RunJanitor evicts finished battles every interval until ctx is done.
func (m *Manager) RunJanitor(ctx context.Context, every time.Duration) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.Evict(m.opts.Now())
		}
	}
}
