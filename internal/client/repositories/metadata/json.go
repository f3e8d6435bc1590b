package metadata

import (
	"context"
	"encoding/json"
	"fmt"
)

// GetJSON decodes the value stored under key into v. It reports false when
// the key is absent, leaving v untouched.
func GetJSON(ctx context.Context, r Repository, key string, v any) (bool, error) {
	raw, err := r.Get(ctx, key)
	if err != nil {
		return false, err
	}
	if raw == nil {
		return false, nil
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return false, fmt.Errorf("failed to decode metadata[%s]: %w", key, err)
	}
	return true, nil
}

// SetJSON stores v under key as JSON.
func SetJSON(ctx context.Context, r Repository, key string, v any) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to encode metadata[%s]: %w", key, err)
	}
	return r.Set(ctx, key, raw)
}

// UpdateJSON decodes the value under key (the zero T when absent), lets fn
// modify it and stores the result, all inside one Update. When fn reports
// false nothing is written.
func UpdateJSON[T any](ctx context.Context, r Repository, key string, fn func(v *T) (bool, error)) error {
	return r.Update(ctx, key, func(cur []byte) ([]byte, error) {
		var v T
		if cur != nil {
			if err := json.Unmarshal(cur, &v); err != nil {
				return nil, fmt.Errorf("decode: %w", err)
			}
		}
		changed, err := fn(&v)
		if err != nil {
			return nil, err
		}
		if !changed {
			return cur, nil
		}
		return json.Marshal(v)
	})
}
