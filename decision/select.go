package decision

import (
	"github.com/pthm-cable/cortex/actions"
	"github.com/pthm-cable/cortex/registry"
	"github.com/pthm-cable/cortex/scoring"
)

// memo is what the engine remembers about a controller's previous action.
type memo struct {
	name, key string
	ctx       registry.ContextID
}

func (m memo) matches(t *actions.ActionTemplate) bool {
	return m.name == t.Name && m.key == t.Key
}

// job is one controller's input to the scoring phase.
type job struct {
	controller registry.EntityID
	prev       memo
	hasPrev    bool
}

// scratch holds per-worker reusable buffers.
type scratch struct {
	sets      []*actions.ActionSet
	templates []*actions.ActionTemplate
	seen      map[*actions.ActionSet]struct{}
}

func newScratch() *scratch {
	return &scratch{
		sets:      make([]*actions.ActionSet, 0, 16),
		templates: make([]*actions.ActionTemplate, 0, 64),
		seen:      make(map[*actions.ActionSet]struct{}, 16),
	}
}

// gather collects the union of the pawn's own sets and supplied sets, in
// contribution order, and flattens them into templates.
func (e *Engine) gather(w World, controller, pawn registry.EntityID, s *scratch) []*actions.ActionTemplate {
	s.sets = s.sets[:0]
	s.templates = s.templates[:0]
	clear(s.seen)

	add := func(sets []*actions.ActionSet) {
		for _, set := range sets {
			if set == nil {
				continue
			}
			if _, dup := s.seen[set]; dup {
				continue
			}
			s.seen[set] = struct{}{}
			s.sets = append(s.sets, set)
		}
	}
	add(w.ActionSets(controller, pawn))
	for _, sup := range e.suppliers {
		add(sup.Contribute(w, controller, pawn))
	}

	for _, set := range s.sets {
		s.templates = append(s.templates, set.Templates()...)
	}
	return s.templates
}

// candidates is what scoring found for one controller, handed to the
// selecting phase.
type candidates struct {
	best        Action
	bestTie     int
	hasBest     bool
	current     Action
	haveCurrent bool
}

// decide runs gathering and scoring for one controller. It only reads
// shared state and may run on any worker. The outcome of a scored
// controller is settled later by selectAction.
func (e *Engine) decide(w World, scorer *scoring.Scorer, j job, s *scratch, c *candidates) Decision {
	*c = candidates{}
	d := Decision{Controller: j.controller, Tick: e.tick}

	if !w.Alive(j.controller) {
		d.Outcome = OutcomeAborted
		d.Err = ErrControllerGone
		return d
	}
	pawn := w.Pawn(j.controller)
	d.Pawn = pawn
	if pawn != registry.None && !w.Alive(pawn) {
		d.Outcome = OutcomeAborted
		d.Err = ErrPawnGone
		return d
	}
	lod := w.LOD(j.controller)
	if lod == actions.LODInactive {
		d.Outcome = OutcomeSkipped
		return d
	}

	// Gathering
	templates := e.gather(w, j.controller, pawn, s)

	// Scoring
	for _, tmpl := range templates {
		if !tmpl.LOD.Contains(lod) {
			continue
		}
		isCurrent := j.hasPrev && j.prev.matches(tmpl)

		// A template can score at most its priority.
		if e.opts.Prune && c.hasBest && !isCurrent && c.best.Score > tmpl.Priority {
			d.Pruned++
			continue
		}

		var retain *registry.ContextID
		if isCurrent && !c.haveCurrent {
			ctx := j.prev.ctx
			retain = &ctx
		}

		res := scorer.ScoreTemplate(w, j.controller, pawn, tmpl, retain)
		d.Templates++
		d.Candidates += res.Contexts
		d.Invalid += res.Invalid
		d.Pruned += res.Pruned
		if res.Err != nil {
			d.Errors = append(d.Errors, res.Err)
			continue
		}
		if res.InvalidErr != nil {
			d.Errors = append(d.Errors, res.InvalidErr)
		}
		if res.HasRetained {
			c.current = Action{Template: tmpl, Context: j.prev.ctx, Score: res.Retained}
			c.haveCurrent = true
		}
		if !res.HasBest {
			continue
		}
		// Equal scores fall back to tie-break rank, then gather order.
		b := res.Best
		if !c.hasBest || b.Score > c.best.Score || (b.Score == c.best.Score && tmpl.TieBreak < c.bestTie) {
			c.best = Action{Template: b.Template, Context: b.Context, Score: b.Score}
			c.bestTie = tmpl.TieBreak
			c.hasBest = true
		}
	}
	return d
}

// selectAction settles a scored decision: idle when nothing scored above
// zero, otherwise the best candidate, or the previous action while it stays
// within the hysteresis band.
func (e *Engine) selectAction(j job, c *candidates, d *Decision) {
	if d.Outcome == OutcomeAborted || d.Outcome == OutcomeSkipped {
		return
	}
	if !c.hasBest || c.best.Score <= 0 {
		d.Outcome = OutcomeIdle
		return
	}
	d.Outcome = OutcomePicked
	d.Action = c.best

	cur := c.current
	if c.haveCurrent && e.opts.Hysteresis > 0 && cur.Score > 0 &&
		!(c.best.Template == cur.Template && c.best.Context == cur.Context) &&
		cur.Score >= c.best.Score-e.opts.Hysteresis {
		d.Action = cur
		d.Held = true
	}
	d.Retained = j.hasPrev && j.prev.matches(d.Action.Template) && j.prev.ctx == d.Action.Context
}
