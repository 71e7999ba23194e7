package query

import "context"

// Erase adapts a typed loader to a Fetcher.
func Erase[T any](fetch func(context.Context) (T, error)) Fetcher {
	return func(ctx context.Context) (any, error) {
		return fetch(ctx)
	}
}

// As returns data as T, or the zero value when data holds something else.
func As[T any](data any) (T, bool) {
	value, ok := data.(T)
	return value, ok
}

// Get is Fetch for a typed loader.
func Get[T any](ctx context.Context, c *Cache, key Key, fetch func(context.Context) (T, error), opts ...ReadOption) (T, error) {
	data, err := c.Fetch(ctx, key, Erase(fetch), opts...)
	if err != nil {
		var zero T
		return zero, err
	}
	value, _ := As[T](data)
	return value, nil
}

// Reload is Refetch for a typed loader.
func Reload[T any](ctx context.Context, c *Cache, key Key, fetch func(context.Context) (T, error), opts ...ReadOption) (T, error) {
	data, err := c.Refetch(ctx, key, Erase(fetch), opts...)
	if err != nil {
		var zero T
		return zero, err
	}
	value, _ := As[T](data)
	return value, nil
}
