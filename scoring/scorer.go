package scoring

import (
	"fmt"

	"github.com/pthm-cable/cortex/actions"
	"github.com/pthm-cable/cortex/curves"
	"github.com/pthm-cable/cortex/registry"
)

// Candidate is a scored (template, context) pair.
type Candidate struct {
	Template *actions.ActionTemplate
	Context  registry.ContextID
	Score    float64
}

// TemplateResult summarizes scoring one template against all its contexts.
type TemplateResult struct {
	Best    Candidate
	HasBest bool

	// Score of the context passed as retain, when it was fetched and valid.
	Retained    float64
	HasRetained bool

	Contexts int // Contexts returned by the fetcher
	Invalid  int // Candidates discarded for invalid consideration output
	Pruned   int // Candidates abandoned because they could not win

	// Err is set when the template could not be scored at all, e.g. a
	// missing fetcher or consideration key.
	Err error
	// InvalidErr is the first invalid-output error seen, if any.
	InvalidErr error
}

// Scorer evaluates templates against the functions in a registry snapshot.
// A Scorer is read-only and may be shared between goroutines.
type Scorer struct {
	Snapshot *registry.Snapshot
	// Prune abandons a context as soon as its running product can no longer
	// beat the template's best context. The selected candidate is unchanged.
	Prune bool
}

// ScoreTemplate fetches the contexts for tmpl and returns its best one.
// Ties keep the context the fetcher returned first. When retain is non-nil
// that context is always fully scored and reported in Retained.
func (s *Scorer) ScoreTemplate(v registry.WorldView, controller, pawn registry.EntityID, tmpl *actions.ActionTemplate, retain *registry.ContextID) TemplateResult {
	var res TemplateResult

	fetcher, err := s.Snapshot.Fetcher(tmpl.Fetcher)
	if err != nil {
		res.Err = fmt.Errorf("template %q: %w", tmpl.Name, err)
		return res
	}
	cons := make([]registry.Consideration, len(tmpl.Considerations))
	for i := range tmpl.Considerations {
		c, err := s.Snapshot.Consideration(tmpl.Considerations[i].Key)
		if err != nil {
			res.Err = fmt.Errorf("template %q: %w", tmpl.Name, err)
			return res
		}
		cons[i] = c
	}

	contexts, err := safeFetch(fetcher, v, controller, pawn)
	if err != nil {
		res.Err = fmt.Errorf("template %q: %w", tmpl.Name, err)
		return res
	}
	res.Contexts = len(contexts)

	n := len(tmpl.Considerations)
	bestProduct := -1.0
	for _, ctx := range contexts {
		isRetained := retain != nil && *retain == ctx
		floor := bestProduct
		if !s.Prune || isRetained {
			floor = -1
		}

		product, pruned, err := s.product(v, controller, pawn, tmpl, cons, ctx, floor)
		if err != nil {
			res.Invalid++
			if res.InvalidErr == nil {
				res.InvalidErr = err
			}
			continue
		}
		if pruned {
			res.Pruned++
			continue
		}

		score := Final(product, n, tmpl.Priority)
		if isRetained && !res.HasRetained {
			res.Retained = score
			res.HasRetained = true
		}
		if product > bestProduct {
			bestProduct = product
			res.Best = Candidate{Template: tmpl, Context: ctx, Score: score}
			res.HasBest = true
		}
	}
	return res
}

// ScoreContext fully scores a single candidate without pruning.
func (s *Scorer) ScoreContext(v registry.WorldView, controller, pawn registry.EntityID, tmpl *actions.ActionTemplate, ctx registry.ContextID) (float64, error) {
	cons := make([]registry.Consideration, len(tmpl.Considerations))
	for i := range tmpl.Considerations {
		c, err := s.Snapshot.Consideration(tmpl.Considerations[i].Key)
		if err != nil {
			return 0, err
		}
		cons[i] = c
	}
	product, _, err := s.product(v, controller, pawn, tmpl, cons, ctx, -1)
	if err != nil {
		return 0, err
	}
	return Final(product, len(tmpl.Considerations), tmpl.Priority), nil
}

// product multiplies the curve outputs for one context. It stops early once
// the product reaches zero, or drops to floor or below (pruned=true).
func (s *Scorer) product(v registry.WorldView, controller, pawn registry.EntityID, tmpl *actions.ActionTemplate, cons []registry.Consideration, ctx registry.ContextID, floor float64) (float64, bool, error) {
	product := 1.0
	for i, c := range cons {
		spec := &tmpl.Considerations[i]
		raw, ok, err := safeEvaluate(c, v, controller, pawn, ctx)
		if err != nil {
			return 0, false, fmt.Errorf("consideration %q: %w", spec.Key, err)
		}
		if !ok {
			return 0, false, fmt.Errorf("consideration %q: %w: no value", spec.Key, ErrInvalidOutput)
		}
		norm, err := Normalize(raw, spec.Min, spec.Max)
		if err != nil {
			return 0, false, fmt.Errorf("consideration %q: %w", spec.Key, err)
		}
		if spec.Curve == nil {
			return 0, false, fmt.Errorf("consideration %q: %w: no curve", spec.Key, actions.ErrMalformedTemplate)
		}

		product *= curves.Eval(spec.Curve, norm)
		if product == 0 {
			return 0, false, nil
		}
		if product <= floor {
			return product, true, nil
		}
	}
	return product, false, nil
}

func safeFetch(f registry.ContextFetcher, v registry.WorldView, controller, pawn registry.EntityID) (out []registry.ContextID, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("context fetcher panicked: %v", r)
		}
	}()
	return f.FetchContexts(v, controller, pawn), nil
}

func safeEvaluate(c registry.Consideration, v registry.WorldView, controller, pawn registry.EntityID, ctx registry.ContextID) (raw float64, ok bool, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: consideration panicked: %v", ErrInvalidOutput, r)
		}
	}()
	raw, ok = c.Evaluate(v, controller, pawn, ctx)
	return raw, ok, nil
}
