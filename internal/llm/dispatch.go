package llm

import (
	"context"
	"errors"
	"fmt"
	"sync"
)

// Factory builds a client bound to one model.
type Factory func(ctx context.Context, model string) (Client, error)

// With wraps every client the factory builds, so stateful middleware such
// as RateLimit keeps one budget per model.
func (f Factory) With(mws ...Middleware) Factory {
	return func(ctx context.Context, model string) (Client, error) {
		cli, err := f(ctx, model)
		if err != nil {
			return nil, err
		}
		return Wrap(cli, mws...), nil
	}
}

// DispatchClient resolves the model for each call through a Selector and
// reuses one client per resolved model.
type DispatchClient struct {
	selector Selector
	factory  Factory

	mu      sync.Mutex
	clients map[string]Client
}

func NewDispatchClient(selector Selector, factory Factory) *DispatchClient {
	return &DispatchClient{
		selector: selector,
		factory:  factory,
		clients:  map[string]Client{},
	}
}

func (d *DispatchClient) Name() string { return "ModelDispatch" }

func (d *DispatchClient) GenerateText(ctx context.Context, prompt string) (string, error) {
	if d.selector == nil || d.factory == nil {
		return "", errors.New("llm: dispatch client is not configured")
	}
	model, err := d.selector.SelectModel(ctx)
	if err != nil {
		return "", err
	}
	cli, err := d.clientFor(ctx, model)
	if err != nil {
		return "", err
	}
	return cli.GenerateText(ctx, prompt)
}

func (d *DispatchClient) clientFor(ctx context.Context, model string) (Client, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if cli, ok := d.clients[model]; ok {
		return cli, nil
	}
	cli, err := d.factory(ctx, model)
	if err != nil {
		return nil, fmt.Errorf("build client for %s: %w", model, err)
	}
	d.clients[model] = cli
	return cli, nil
}

func (d *DispatchClient) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	var errs []error
	for name, cli := range d.clients {
		if err := cli.Close(); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", name, err))
		}
		delete(d.clients, name)
	}
	return errors.Join(errs...)
}
