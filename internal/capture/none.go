package capture

import "context"

// NoneProvider hands out interfaces that capture nothing. The engine then
// only serves clients that connect to its inbound directly.
type NoneProvider struct{}

func (NoneProvider) Name() string {
	return "none"
}

func (NoneProvider) Acquire(ctx context.Context) (Handle, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return newHandle("none", nil), nil
}
