package oracle

import (
	"context"

	"legalrag-backend/retry"
)

type resilientOracle struct {
	next   Oracle
	policy retry.Policy
}

// WithResilience bounds every call of o with the policy's timeout and retries
func WithResilience(o Oracle, p retry.Policy) Oracle {
	if o == nil {
		return nil
	}
	return &resilientOracle{next: o, policy: p}
}

func (r *resilientOracle) Name() string { return r.next.Name() }

func (r *resilientOracle) Generate(ctx context.Context, prompt string, opts GenerateOptions) (string, error) {
	var out string
	err := retry.Do(ctx, r.policy, func(ctx context.Context) error {
		var err error
		out, err = r.next.Generate(ctx, prompt, opts)
		return err
	})
	return out, err
}

func (r *resilientOracle) Embed(ctx context.Context, text string) ([]float32, error) {
	var out []float32
	err := retry.Do(ctx, r.policy, func(ctx context.Context) error {
		var err error
		out, err = r.next.Embed(ctx, text)
		return err
	})
	return out, err
}

func (r *resilientOracle) ListModels(ctx context.Context) ([]string, error) {
	var out []string
	err := retry.Do(ctx, r.policy, func(ctx context.Context) error {
		var err error
		out, err = r.next.ListModels(ctx)
		return err
	})
	return out, err
}
