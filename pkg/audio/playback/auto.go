package playback

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/facebookincubator/go-belt/tool/logger"
	"github.com/hashicorp/go-multierror"
	"github.com/xaionaro-go/audiorender/pkg/audio/registry"
)

var ErrNoBackends = errors.New("no audio backends are registered")

var (
	lastSuccessfulSubsystemFactory       registry.SubsystemFactory
	lastSuccessfulSubsystemFactoryLocker sync.Mutex
)

func getLastSuccessfulSubsystemFactory() registry.SubsystemFactory {
	lastSuccessfulSubsystemFactoryLocker.Lock()
	defer lastSuccessfulSubsystemFactoryLocker.Unlock()
	return lastSuccessfulSubsystemFactory
}

func setLastSuccessfulSubsystemFactory(factory registry.SubsystemFactory) {
	lastSuccessfulSubsystemFactoryLocker.Lock()
	defer lastSuccessfulSubsystemFactoryLocker.Unlock()
	lastSuccessfulSubsystemFactory = factory
}

// NewAuto opens a Client on the first registered backend that works,
// trying the one that worked the last time first.
func NewAuto(
	ctx context.Context,
	opts ...Option,
) (*Client, error) {
	factory := getLastSuccessfulSubsystemFactory()
	if factory != nil {
		client, err := NewFromFactory(ctx, factory, opts...)
		if err == nil {
			return client, nil
		}
		logger.Debugf(ctx, "the last successful backend %s failed this time: %v", factory.Name(), err)
	}

	var mErr *multierror.Error
	for _, factory := range registry.SubsystemFactories() {
		client, err := NewFromFactory(ctx, factory, opts...)
		logger.Debugf(ctx, "initializing playback on backend %s result is %v", factory.Name(), err)
		if err != nil {
			mErr = multierror.Append(mErr, fmt.Errorf("unable to initialize backend %s: %w", factory.Name(), err))
			continue
		}

		setLastSuccessfulSubsystemFactory(factory)
		return client, nil
	}

	if mErr == nil {
		return nil, ErrNoBackends
	}
	logger.Infof(ctx, "was unable to initialize any playback backend: %v", mErr)
	return nil, mErr
}

func NewByName(
	ctx context.Context,
	backendName string,
	opts ...Option,
) (*Client, error) {
	factory, err := registry.SubsystemFactoryByName(backendName)
	if err != nil {
		return nil, err
	}
	return NewFromFactory(ctx, factory, opts...)
}

func NewFromFactory(
	ctx context.Context,
	factory registry.SubsystemFactory,
	opts ...Option,
) (*Client, error) {
	subsystem, err := factory.NewSubsystem()
	if err != nil {
		return nil, newConstructionError(StepSubsystemInit, ErrSubsystemInit, fmt.Errorf("backend %s: %w", factory.Name(), err))
	}
	return New(ctx, subsystem, opts...)
}
